package events

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"github.com/bitdust-io/devel-sub003/internal/domain"
)

func TestFromItem(t *testing.T) {
	item := domain.NewItem("cat.png", "3/7", domain.ItemTypeFile, "share_1$alice@host")
	item.AddVersion("F20200101110000AM")

	e := FromItem(KindDeleted, "alice@host", "share_1", "3/7", "photos/cat.png", item)

	if e.GlobalID != "share_1$alice@host:3/7" {
		t.Errorf("Unexpected global id %q", e.GlobalID)
	}
	if e.RemotePath != "share_1$alice@host:photos/cat.png" {
		t.Errorf("Unexpected remote path %q", e.RemotePath)
	}
	if e.Size != 0 {
		t.Errorf("Expected unmeasured size to be reported as 0, got %d", e.Size)
	}
	if len(e.Versions) != 1 || e.Versions[0] != "F20200101110000AM" {
		t.Errorf("Unexpected versions %v", e.Versions)
	}
	if !strings.HasPrefix(e.String(), "deleted file") {
		t.Errorf("Unexpected string %q", e.String())
	}
}

func TestCallbackListener(t *testing.T) {
	var got []Event
	var mu sync.Mutex

	l := NewCallbackListener(func(e Event) {
		mu.Lock()
		got = append(got, e)
		mu.Unlock()
	})
	l.OnEvent(Event{Kind: KindAdded})
	l.SetCallback(nil)
	l.OnEvent(Event{Kind: KindDeleted})

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 || got[0].Kind != KindAdded {
		t.Errorf("Expected exactly one added event, got %v", got)
	}
}

func TestRecorderAndMulti(t *testing.T) {
	a, b := &Recorder{}, &Recorder{}
	m := Multi{a, nil, b}

	m.OnEvent(Event{Kind: KindAdded})
	m.OnEvent(Event{Kind: KindDeleted})
	m.OnEvent(Event{Kind: KindDeleted})

	if a.Count(KindDeleted) != 2 || b.Count(KindAdded) != 1 {
		t.Errorf("Unexpected counts %d %d", a.Count(KindDeleted), b.Count(KindAdded))
	}
	if len(a.Events()) != 3 {
		t.Errorf("Expected 3 events, got %d", len(a.Events()))
	}
	a.Reset()
	if len(a.Events()) != 0 {
		t.Error("Expected reset recorder to be empty")
	}
}

func TestWriterListener(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterListener(&buf)
	l.OnEvent(Event{Kind: KindModified, Type: domain.ItemTypeDir, RemotePath: "master$a@h:docs", Size: 2048})

	if !strings.Contains(buf.String(), "modified dir master$a@h:docs") {
		t.Errorf("Unexpected output %q", buf.String())
	}
	if !strings.Contains(buf.String(), "2.0 KB") {
		t.Errorf("Expected formatted size, got %q", buf.String())
	}
}

func TestFormatBytes(t *testing.T) {
	tests := map[int64]string{
		0:                      "0 B",
		1023:                   "1023 B",
		1024:                   "1.0 KB",
		5 * 1024 * 1024:        "5.0 MB",
		3 * 1024 * 1024 * 1024: "3.0 GB",
	}
	for in, want := range tests {
		if got := FormatBytes(in); got != want {
			t.Errorf("FormatBytes(%d) = %q, want %q", in, got, want)
		}
	}
}
