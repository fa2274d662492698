package state

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	manager, err := NewManager(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	t.Cleanup(func() { manager.Close() })
	return manager
}

func TestNewManager(t *testing.T) {
	tmpDir := t.TempDir()

	manager, err := NewManager(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create manager: %v", err)
	}
	defer manager.Close()

	if manager.db == nil {
		t.Error("Database connection is nil")
	}

	if _, err := os.Stat(filepath.Join(tmpDir, DatabaseName)); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestNewManager_EmptyDir(t *testing.T) {
	_, err := NewManager("")
	if err == nil {
		t.Error("Expected error for empty directory, got nil")
	}
}

func TestSaveAndGetMerge(t *testing.T) {
	manager := newTestManager(t)

	record := MergeRecord{
		BatchID:     "b1",
		Owner:       "alice@node1",
		Alias:       "master",
		Source:      "/data/index/master$alice@node1",
		Status:      StatusApplied,
		OldRevision: 3,
		NewRevision: 4,
		Processed:   10,
		Modified:    2,
		Deleted:     1,
	}
	if err := manager.SaveMerge(record); err != nil {
		t.Fatalf("Failed to save merge: %v", err)
	}

	history, err := manager.GetHistory("alice@node1", "master", 10)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(history))
	}

	got := history[0]
	if got.BatchID != "b1" || got.Source != record.Source {
		t.Errorf("Expected batch b1 from %s, got %s from %s", record.Source, got.BatchID, got.Source)
	}
	if got.OldRevision != 3 || got.NewRevision != 4 {
		t.Errorf("Expected revisions 3 -> 4, got %d -> %d", got.OldRevision, got.NewRevision)
	}
	if got.Processed != 10 || got.Modified != 2 || got.Deleted != 1 {
		t.Errorf("Unexpected counters %+v", got)
	}
	if got.AppliedAt.IsZero() {
		t.Error("Expected applied time to be set")
	}
}

func TestGetHistory_PerNamespace(t *testing.T) {
	manager := newTestManager(t)
	base := time.Now().Add(-time.Hour)

	for i, alias := range []string{"master", "share_1", "master"} {
		err := manager.SaveMerge(MergeRecord{
			BatchID:     "b",
			Owner:       "alice@node1",
			Alias:       alias,
			Status:      StatusApplied,
			NewRevision: int64(i + 1),
			AppliedAt:   base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Failed to save merge: %v", err)
		}
	}

	history, err := manager.GetHistory("alice@node1", "master", 10)
	if err != nil {
		t.Fatalf("Failed to get history: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(history))
	}
	if history[0].NewRevision != 3 {
		t.Errorf("Expected newest first, got revision %d", history[0].NewRevision)
	}
}

func TestGetLastApplied(t *testing.T) {
	manager := newTestManager(t)
	base := time.Now().Add(-time.Hour)

	records := []MergeRecord{
		{Status: StatusApplied, NewRevision: 1},
		{Status: StatusApplied, NewRevision: 2},
		{Status: StatusStale, OldRevision: 2, NewRevision: 2},
		{Status: StatusRejected, Error: "invalid snapshot: duplicate path id"},
	}
	for i, r := range records {
		r.BatchID = "b"
		r.Owner = "bob@host"
		r.Alias = "master"
		r.AppliedAt = base.Add(time.Duration(i) * time.Minute)
		if err := manager.SaveMerge(r); err != nil {
			t.Fatalf("Failed to save merge: %v", err)
		}
	}

	last, err := manager.GetLastApplied("bob@host", "master")
	if err != nil {
		t.Fatalf("Failed to get last applied: %v", err)
	}
	if last == nil {
		t.Fatal("Expected last applied merge, got nil")
	}
	if last.NewRevision != 2 {
		t.Errorf("Expected revision 2, got %d", last.NewRevision)
	}
}

func TestGetLastApplied_None(t *testing.T) {
	manager := newTestManager(t)

	err := manager.SaveMerge(MergeRecord{BatchID: "b", Owner: "bob@host", Alias: "master", Status: StatusDeferred})
	if err != nil {
		t.Fatalf("Failed to save merge: %v", err)
	}

	last, err := manager.GetLastApplied("bob@host", "master")
	if err != nil {
		t.Fatalf("Failed to get last applied: %v", err)
	}
	if last != nil {
		t.Error("Expected nil for last applied, got a record")
	}
}

func TestGetBatch(t *testing.T) {
	manager := newTestManager(t)

	for _, r := range []MergeRecord{
		{BatchID: "load-1", Owner: "a@h", Alias: "master", Status: StatusApplied},
		{BatchID: "load-1", Owner: "a@h", Alias: "share_x", Status: StatusRejected, Error: "bad"},
		{BatchID: "load-2", Owner: "a@h", Alias: "master", Status: StatusStale},
	} {
		if err := manager.SaveMerge(r); err != nil {
			t.Fatalf("Failed to save merge: %v", err)
		}
	}

	batch, err := manager.GetBatch("load-1")
	if err != nil {
		t.Fatalf("Failed to get batch: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(batch))
	}
	if batch[1].Alias != "share_x" || batch[1].Error != "bad" {
		t.Errorf("Unexpected record %+v", batch[1])
	}
}

func TestGetAllHistory_Limit(t *testing.T) {
	manager := newTestManager(t)

	for i := 0; i < 5; i++ {
		r := MergeRecord{BatchID: "b", Owner: "a@h", Alias: "master", Status: StatusApplied, NewRevision: int64(i)}
		if err := manager.SaveMerge(r); err != nil {
			t.Fatalf("Failed to save merge: %v", err)
		}
	}

	all, err := manager.GetAllHistory(3)
	if err != nil {
		t.Fatalf("Failed to get all history: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(all))
	}
}

func TestPrune(t *testing.T) {
	manager := newTestManager(t)
	now := time.Now()

	old := MergeRecord{BatchID: "b", Owner: "a@h", Alias: "master", Status: StatusApplied, AppliedAt: now.Add(-48 * time.Hour)}
	fresh := MergeRecord{BatchID: "b", Owner: "a@h", Alias: "master", Status: StatusApplied, AppliedAt: now}
	for _, r := range []MergeRecord{old, fresh} {
		if err := manager.SaveMerge(r); err != nil {
			t.Fatalf("Failed to save merge: %v", err)
		}
	}

	n, err := manager.Prune(now.Add(-24 * time.Hour))
	if err != nil {
		t.Fatalf("Prune failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 pruned record, got %d", n)
	}
}

func TestSaveMerge_Invalid(t *testing.T) {
	manager := newTestManager(t)

	if err := manager.SaveMerge(MergeRecord{Owner: "a@h", Alias: "master", Status: "done"}); err == nil {
		t.Error("Expected error for invalid status, got nil")
	}
	if err := manager.SaveMerge(MergeRecord{Alias: "master", Status: StatusApplied}); err == nil {
		t.Error("Expected error for missing owner, got nil")
	}
}

func TestGetHistory_InvalidLimit(t *testing.T) {
	manager := newTestManager(t)

	if _, err := manager.GetHistory("a@h", "master", 0); err == nil {
		t.Error("Expected error for limit=0, got nil")
	}
	if _, err := manager.GetAllHistory(-1); err == nil {
		t.Error("Expected error for limit=-1, got nil")
	}
}
