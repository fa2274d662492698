package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/bitdust-io/devel-sub003/internal/core/index"
	"github.com/bitdust-io/devel-sub003/internal/events"
)

func TestRecordNamespace(t *testing.T) {
	stats := index.Stats{Items: 5, Files: 3, Dirs: 2, SizeFiles: 4096, SizeFolders: 4096, SizeBackups: 9000}
	RecordNamespace("alice@node1.net", "master", stats, 7)

	if got := testutil.ToFloat64(namespaceFiles.WithLabelValues("alice@node1.net", "master")); got != 3 {
		t.Errorf("files = %v, want 3", got)
	}
	if got := testutil.ToFloat64(namespaceBackupBytes.WithLabelValues("alice@node1.net", "master")); got != 9000 {
		t.Errorf("backup bytes = %v, want 9000", got)
	}
	if got := testutil.ToFloat64(namespaceRevision.WithLabelValues("alice@node1.net", "master")); got != 7 {
		t.Errorf("revision = %v, want 7", got)
	}

	ForgetNamespace("alice@node1.net", "master")
	if n := testutil.CollectAndCount(namespaceItems); n != 0 {
		t.Errorf("expected no item series after forget, got %d", n)
	}
}

func TestRecordMerge(t *testing.T) {
	before := testutil.ToFloat64(mergesTotal.WithLabelValues("stale"))
	RecordMerge("stale", 10*time.Millisecond)
	RecordMerge("stale", 10*time.Millisecond)
	if got := testutil.ToFloat64(mergesTotal.WithLabelValues("stale")) - before; got != 2 {
		t.Errorf("stale merges delta = %v, want 2", got)
	}
}

func TestListener(t *testing.T) {
	before := testutil.ToFloat64(eventsTotal.WithLabelValues("deleted"))
	var l events.Listener = Listener{}
	l.OnEvent(events.Event{Kind: events.KindDeleted})
	if got := testutil.ToFloat64(eventsTotal.WithLabelValues("deleted")) - before; got != 1 {
		t.Errorf("deleted events delta = %v, want 1", got)
	}
}

func TestHandler(t *testing.T) {
	RecordSave(true)
	SetPending(2)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, name := range []string{"bdcatalog_index_saves_total", "bdcatalog_pending_documents 2"} {
		if !strings.Contains(body, name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
