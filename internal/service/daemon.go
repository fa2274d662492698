package service

import (
	"context"
	"fmt"

	"github.com/bitdust-io/devel-sub003/internal/catalog"
	"github.com/bitdust-io/devel-sub003/internal/scheduler"
	"github.com/bitdust-io/devel-sub003/internal/state"
	"github.com/bitdust-io/devel-sub003/internal/watcher"
)

// DaemonStatus describes a serving catalog
type DaemonStatus struct {
	Running        bool
	Watching       bool
	Namespaces     int
	Pending        []string
	SchedulerStats *scheduler.Status
	LastMerge      *state.MergeRecord
}

// Start takes the writer lock, loads every index file and then keeps the
// catalog current: the watcher reloads index files written by other
// processes and the scheduler saves dirty namespaces.
func (s *CatalogService) Start(ctx context.Context) ([]catalog.AliasResult, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.sched != nil || s.watch != nil {
		return nil, fmt.Errorf("catalog service is already running")
	}
	if err := s.Lock("serve"); err != nil {
		return nil, err
	}

	results, err := s.Load(ctx)
	if err != nil {
		s.log.Warn("Some index files could not be loaded", "error", err)
	}

	w, err := watcher.New(s.cfg.IndexDir(), watcher.DefaultDelay, catalog.IsIndexFile,
		func(ctx context.Context, name string) { s.Reload(ctx, name) }, s.log)
	if err != nil {
		return results, err
	}
	if err := w.Start(ctx); err != nil {
		return results, fmt.Errorf("failed to watch index directory: %w", err)
	}
	s.mu.Lock()
	s.watch = w
	s.mu.Unlock()

	if s.cfg.AutosaveInterval > 0 {
		sched, err := scheduler.NewIntervalScheduler(scheduler.Config{
			Interval:    s.cfg.AutosaveInterval,
			Tasks:       []string{scheduler.TaskAutosave, scheduler.TaskPrune},
			FlushOnStop: true,
		}, s)
		if err != nil {
			s.stopWatcher()
			return results, fmt.Errorf("failed to create scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			s.stopWatcher()
			return results, fmt.Errorf("failed to start scheduler: %w", err)
		}
		s.sched = sched
	}

	s.log.Info("Catalog service started", "index_dir", s.cfg.IndexDir(),
		"autosave_interval", s.cfg.AutosaveInterval, "loaded", len(results))
	return results, nil
}

// Stop halts the scheduler, which saves dirty namespaces a last time, and
// the watcher. The writer lock stays held until Close.
func (s *CatalogService) Stop() error {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	if s.sched == nil && s.watch == nil {
		return fmt.Errorf("catalog service is not running")
	}

	var err error
	if s.sched != nil {
		if stopErr := s.sched.Stop(); stopErr != nil {
			err = fmt.Errorf("failed to stop scheduler: %w", stopErr)
		}
		s.sched = nil
	}
	s.stopWatcher()

	s.log.Info("Catalog service stopped")
	return err
}

// stopWatcher detaches and stops the watcher; caller holds runMu
func (s *CatalogService) stopWatcher() {
	s.mu.Lock()
	w := s.watch
	s.watch = nil
	s.mu.Unlock()
	if w != nil {
		w.Stop()
	}
}

// Running reports whether Start succeeded and Stop was not called yet
func (s *CatalogService) Running() bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.sched != nil || s.watch != nil
}

// Status returns the current daemon status
func (s *CatalogService) Status() *DaemonStatus {
	s.runMu.Lock()
	status := &DaemonStatus{
		Running:  s.sched != nil || s.watch != nil,
		Watching: s.watch != nil,
	}
	if s.sched != nil {
		status.SchedulerStats = s.sched.Status()
	}
	s.runMu.Unlock()

	s.View(func(c *catalog.Catalog) error {
		status.Namespaces = len(c.Namespaces())
		status.Pending = c.Pending()
		return nil
	})

	if s.history != nil {
		if records, err := s.history.GetAllHistory(1); err == nil && len(records) > 0 {
			status.LastMerge = &records[0]
		}
	}
	return status
}
