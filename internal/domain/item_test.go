package domain

import (
	"testing"
	"time"
)

func TestItem_NewItemIsUnmeasured(t *testing.T) {
	item := NewItem("docs/a.txt", "0/1", ItemTypeFile, "")

	if item.Exists() {
		t.Error("Expected new item to be unmeasured")
	}
	if item.Size != -1 {
		t.Errorf("Expected size -1, got %d", item.Size)
	}
	if item.KeyAlias() != DefaultKeyAlias {
		t.Errorf("Expected alias %q, got %q", DefaultKeyAlias, item.KeyAlias())
	}
}

func TestItem_KeyAlias(t *testing.T) {
	item := NewItem("a", "1", ItemTypeFile, "share_abc$alice@host.net")
	if got := item.KeyAlias(); got != "share_abc" {
		t.Errorf("Expected share_abc, got %q", got)
	}
}

func TestItem_Versions(t *testing.T) {
	item := NewItem("a", "1", ItemTypeFile, "")
	item.AddVersion("F20200101020000PM")
	item.SetVersionInfo("F20200101110000AM", VersionInfo{MaxBlock: 3, Size: 4096})
	item.AddVersion("F20200101120000AM")

	got := item.Versions(false)
	want := []string{"F20200101120000AM", "F20200101110000AM", "F20200101020000PM"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d versions, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected version %d to be %s, got %s", i, want[i], got[i])
		}
	}

	latest, ok := item.LatestVersion()
	if !ok || latest != "F20200101020000PM" {
		t.Errorf("Expected latest F20200101020000PM, got %q", latest)
	}

	info := item.VersionInfo("F20200101110000AM")
	if info.MaxBlock != 3 || info.Size != 4096 {
		t.Errorf("Unexpected version info %+v", info)
	}
	if item.VersionInfo("missing") != Unmeasured {
		t.Error("Expected missing version to be unmeasured")
	}

	if !item.DeleteVersion("F20200101120000AM") {
		t.Error("Expected DeleteVersion to report removal")
	}
	if item.HasVersion("F20200101120000AM") {
		t.Error("Expected version to be gone")
	}
	if item.VersionCount() != 2 {
		t.Errorf("Expected 2 versions, got %d", item.VersionCount())
	}
}

func TestItem_PackUnpackVersions(t *testing.T) {
	item := NewItem("a", "1", ItemTypeFile, "")
	item.SetVersionInfo("F20200101110000AM", VersionInfo{MaxBlock: 2, Size: 100})
	item.AddVersion("F20200102110000AM")

	packed := item.PackVersions()
	if packed != "F20200101110000AM:2:100 F20200102110000AM:-1:-1" {
		t.Errorf("Unexpected packed versions %q", packed)
	}

	other := NewItem("a", "1", ItemTypeFile, "")
	other.UnpackVersions(packed + " broken")
	if other.VersionCount() != 3 {
		t.Fatalf("Expected 3 versions, got %d", other.VersionCount())
	}
	if other.VersionSize("F20200101110000AM") != 100 {
		t.Errorf("Expected size 100, got %d", other.VersionSize("F20200101110000AM"))
	}
	if other.VersionInfo("broken") != Unmeasured {
		t.Error("Expected unparsable word to become an unmeasured version")
	}
}

func TestItem_CloneIsIndependent(t *testing.T) {
	item := NewItem("a", "1", ItemTypeFile, "")
	item.AddVersion("F20200101110000AM")

	clone := item.Clone()
	clone.AddVersion("F20200102110000AM")
	clone.Size = 10

	if item.VersionCount() != 1 {
		t.Errorf("Expected original to keep 1 version, got %d", item.VersionCount())
	}
	if item.Size != -1 {
		t.Errorf("Expected original size -1, got %d", item.Size)
	}
}

func TestItem_TotalVersionSize(t *testing.T) {
	item := NewItem("a", "1", ItemTypeFile, "")
	item.SetVersionInfo("F20200101110000AM", VersionInfo{MaxBlock: 1, Size: 10})
	item.SetVersionInfo("F20200102110000AM", VersionInfo{MaxBlock: 1, Size: 32})
	item.AddVersion("F20200103110000AM")

	if got := item.TotalVersionSize(); got != 42 {
		t.Errorf("Expected 42, got %d", got)
	}
}

func TestCompareVersions(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"F20131120053803PM", "F20131120053803PM", 0},
		{"F20131120113803AM", "F20131120013803PM", -1},
		{"F20131120123803AM", "F20131120013803AM", -1},
		{"F20131120123803PM", "F20131120013803PM", -1},
		{"F20131120053803PM", "F20131120053803PM1", -1},
		{"F20131121013803AM", "F20131120113803PM", 1},
		{"F20131120053803PM", "garbage", -1},
		{"abc", "abd", -1},
	}

	for _, tt := range tests {
		if got := CompareVersions(tt.a, tt.b); got != tt.want {
			t.Errorf("CompareVersions(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestVersionTime(t *testing.T) {
	ts := time.Date(2021, 3, 4, 17, 5, 6, 0, time.Local)
	label := MakeVersion(ts)
	if label != "F20210304050506PM" {
		t.Fatalf("Unexpected label %q", label)
	}
	if !IsCanonicalVersion(label) {
		t.Errorf("Expected %q to be canonical", label)
	}

	got, ok := VersionTime(label)
	if !ok {
		t.Fatal("Expected label to parse")
	}
	if !got.Equal(ts) {
		t.Errorf("Expected %v, got %v", ts, got)
	}

	if _, ok := VersionTime("F2021"); ok {
		t.Error("Expected short label to be rejected")
	}
}

func TestParseOwner(t *testing.T) {
	o, err := ParseOwner("alice@id.example.com")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if o.User() != "alice" || o.Host() != "id.example.com" {
		t.Errorf("Unexpected owner parts %q %q", o.User(), o.Host())
	}

	for _, bad := range []string{"", "alice", "@host", "alice@", "master$alice@host"} {
		if _, err := ParseOwner(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestStaticResolver(t *testing.T) {
	r := NewStaticResolver("alice@host")
	if _, ok := r.ResolveOwner("bob@host"); ok {
		t.Error("Expected bob to be unknown")
	}
	r.Add("bob@host")
	if o, ok := r.ResolveOwner("bob@host"); !ok || o != "bob@host" {
		t.Errorf("Expected bob@host, got %q %v", o, ok)
	}
}

func TestCompareVersions_CounterAddsToSeconds(t *testing.T) {
	if CompareVersions("F20240101120001AM10", "F20240101120005AM") <= 0 {
		t.Error("Expected the counter to push the label past a later second")
	}
	if CompareVersions("F20240101120001AM2", "F20240101120001AM") <= 0 {
		t.Error("Expected a counted label after the plain one")
	}
}
