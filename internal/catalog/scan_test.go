package catalog

import (
	"path/filepath"
	"testing"

	"github.com/bitdust-io/devel-sub003/internal/core/codec"
	"github.com/bitdust-io/devel-sub003/internal/domain"
	"github.com/bitdust-io/devel-sub003/internal/testutil"
)

func (f *fixture) writeSource(t *testing.T, name string, size int64) {
	t.Helper()
	testutil.CreateTestFileWithSize(t, f.sourceDir, name, size)
}

// versionDir returns the local directory of one version of an item
func (f *fixture) versionDir(alias, pathID, version string) string {
	return filepath.Join(f.backupsDir, codec.MakeKeyID(alias, testOwner), filepath.FromSlash(pathID), version)
}

func TestScan_ReadVersions(t *testing.T) {
	f := newFixture(t)
	c := f.cat
	id, item, _ := c.AddFile(testOwner, "db.sqlite", "")
	item.SetVersionInfo("F20240301090000AM", domain.VersionInfo{MaxBlock: 4, Size: 777})

	fresh := f.versionDir("master", id, "F20240302090000AM")
	testutil.CreatePacket(t, fresh, 0, 0, "Data", 100)
	testutil.CreatePacket(t, fresh, 0, 1, "Parity", 100)
	testutil.CreatePacket(t, fresh, 3, 0, "Data", 50)
	testutil.CreateTestFile(t, fresh, "garbage.tmp", []byte("x"))

	// already measured versions are left alone
	known := f.versionDir("master", id, "F20240301090000AM")
	testutil.CreatePacket(t, known, 9, 0, "Data", 10)

	// not a version
	testutil.CreatePacket(t, f.versionDir("master", id, "tmp"), 0, 0, "Data", 10)

	res, err := c.Scan(t.Context(), testOwner, "master")
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}

	info := item.VersionInfo("F20240302090000AM")
	if info.MaxBlock != 3 {
		t.Errorf("max block = %d, want 3", info.MaxBlock)
	}
	wantSize := int64(100+100+50) + 3*PacketOverhead
	if info.Size != wantSize {
		t.Errorf("version size = %d, want %d", info.Size, wantSize)
	}
	if res.SizeBackups != wantSize {
		t.Errorf("scanned backup bytes = %d, want %d", res.SizeBackups, wantSize)
	}
	if got := item.VersionInfo("F20240301090000AM"); got.MaxBlock != 4 || got.Size != 777 {
		t.Errorf("measured version changed: %+v", got)
	}
	if item.HasVersion("tmp") {
		t.Error("non canonical directory taken as version")
	}
	if item.Size != -1 {
		t.Errorf("missing source file changed the size to %d", item.Size)
	}
}

func TestScanID(t *testing.T) {
	f := newFixture(t)
	c := f.cat
	id, item, _ := c.AddFile(testOwner, "a/b.bin", "")
	other, otherItem, _ := c.AddFile(testOwner, "a/c.bin", "")
	f.writeSource(t, "a/b.bin", 10)
	f.writeSource(t, "a/c.bin", 20)
	testutil.CreatePacket(t, f.versionDir("master", id, "F20240101120000AM"), 0, 0, "Data", 5)

	res, err := c.ScanID(t.Context(), testOwner, "", id)
	if err != nil {
		t.Fatalf("ScanID failed: %v", err)
	}
	if item.Size != 10 || res.SizeFiles != 10 {
		t.Errorf("size = %d (result %d), want 10", item.Size, res.SizeFiles)
	}
	if res.SizeBackups != 5+PacketOverhead {
		t.Errorf("backup size = %d", res.SizeBackups)
	}
	if otherItem.Size != -1 {
		t.Errorf("ScanID(%s) touched %s", id, other)
	}

	if _, err := c.ScanID(t.Context(), testOwner, "", "42"); err == nil {
		t.Error("expected an error for a missing id")
	}
}

func TestCalculate(t *testing.T) {
	f := newFixture(t)
	c := f.cat
	c.AddFile(testOwner, "top/a.txt", "")
	c.AddFile(testOwner, "top/sub/b.txt", "")
	c.AddFile(testOwner, "top/sub/unmeasured.txt", "")
	f.writeSource(t, "top/a.txt", 100)
	f.writeSource(t, "top/sub/b.txt", 50)
	if _, err := c.Scan(t.Context(), testOwner, ""); err != nil {
		t.Fatal(err)
	}

	st := c.Calculate()
	if st.Files != 3 || st.Dirs != 2 || st.Items != 5 {
		t.Errorf("counts = %+v", st)
	}
	if st.SizeFiles != 150 {
		t.Errorf("file bytes = %d, want 150", st.SizeFiles)
	}
	top, _ := c.GetByPath(testOwner, "", "top")
	sub, _ := c.GetByPath(testOwner, "", "top/sub")
	if top.Size != 150 || sub.Size != 50 {
		t.Errorf("directory sizes top=%d sub=%d", top.Size, sub.Size)
	}
	if got := c.Stats(testOwner, ""); got != st {
		t.Errorf("stored stats %+v differ from %+v", got, st)
	}
}

func TestAddLocalPath(t *testing.T) {
	f := newFixture(t)
	c := f.cat
	f.writeSource(t, "docs/a.txt", 11)
	f.writeSource(t, "docs/img/b.png", 22)
	f.writeSource(t, "docs/img/c.png", 33)
	f.writeSource(t, "other/d.txt", 44)

	id, count, err := c.AddLocalPath(t.Context(), testOwner, "docs", "", true)
	if err != nil {
		t.Fatalf("AddLocalPath failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
	if docsID, _ := c.ToID(testOwner, "", "docs"); docsID != id {
		t.Errorf("returned id %q, docs is %q", id, docsID)
	}
	png, ok := c.GetByPath(testOwner, "", "docs/img/c.png")
	if !ok || png.Size != 33 {
		t.Errorf("c.png = %+v", png)
	}
	if c.Exists(testOwner, "", "other/d.txt") {
		t.Error("walked outside the given path")
	}

	// without stats sizes stay unmeasured
	if _, _, err := c.AddLocalPath(t.Context(), testOwner, "other/d.txt", "", false); err != nil {
		t.Fatal(err)
	}
	d, _ := c.GetByPath(testOwner, "", "other/d.txt")
	if d.Size != -1 {
		t.Errorf("d.txt size = %d, want -1", d.Size)
	}

	if _, _, err := c.AddLocalPath(t.Context(), testOwner, "missing", "", true); err == nil {
		t.Error("expected an error for a missing local path")
	}
}
