// Package service wires the catalog to its files, history and metrics and
// serializes every access to it
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bitdust-io/devel-sub003/internal/adapter/local"
	"github.com/bitdust-io/devel-sub003/internal/catalog"
	"github.com/bitdust-io/devel-sub003/internal/config"
	"github.com/bitdust-io/devel-sub003/internal/domain"
	"github.com/bitdust-io/devel-sub003/internal/events"
	"github.com/bitdust-io/devel-sub003/internal/lock"
	"github.com/bitdust-io/devel-sub003/internal/logger"
	"github.com/bitdust-io/devel-sub003/internal/metrics"
	"github.com/bitdust-io/devel-sub003/internal/registry"
	"github.com/bitdust-io/devel-sub003/internal/scheduler"
	"github.com/bitdust-io/devel-sub003/internal/state"
	"github.com/bitdust-io/devel-sub003/internal/watcher"
)

// ignoreOwnWrite is how long the watcher skips an index file we just wrote
const ignoreOwnWrite = 2 * time.Second

// CatalogService owns one catalog. The catalog itself is not safe for
// concurrent use; every call goes through the service mutex.
type CatalogService struct {
	mu  sync.Mutex
	cfg *config.Config
	cat *catalog.Catalog
	log logger.Logger

	indexes *local.Adapter
	backups *local.Adapter
	source  *local.Adapter

	history *state.Manager
	lock    *lock.FileLock

	// runMu guards the serving parts; watch is also read under mu
	runMu sync.Mutex
	watch *watcher.Watcher
	sched *scheduler.IntervalScheduler

	published map[registry.Key]bool
}

// NewCatalogService opens the directories and the history database named
// by cfg. listener receives catalog events next to the metrics collector.
func NewCatalogService(cfg *config.Config, listener events.Listener) (*CatalogService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.With("component", "catalog")

	indexes, err := local.NewOrCreate(cfg.IndexDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open index directory: %w", err)
	}
	backups, err := local.NewOrCreate(cfg.BackupsDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open backups directory: %w", err)
	}

	var source *local.Adapter
	if cfg.SourceRoot != "" {
		source, err = local.New(config.ExpandPath(cfg.SourceRoot))
		if err != nil {
			return nil, fmt.Errorf("failed to open source root %s: %w", cfg.SourceRoot, err)
		}
	}

	fileLock, err := lock.NewFileLock(cfg.LockDir())
	if err != nil {
		return nil, err
	}

	s := &CatalogService{
		cfg:       cfg,
		log:       log,
		indexes:   indexes,
		backups:   backups,
		source:    source,
		lock:      fileLock,
		published: make(map[registry.Key]bool),
	}

	if cfg.History.Enabled {
		s.history, err = state.NewManager(cfg.HistoryPath())
		if err != nil {
			return nil, fmt.Errorf("failed to open merge history: %w", err)
		}
	}

	multi := events.Multi{metrics.Listener{}}
	if listener != nil {
		multi = append(multi, listener)
	}
	opts := catalog.Options{
		Index:     indexes,
		Backups:   backups,
		Listener:  multi,
		Logger:    log,
		RandomIDs: cfg.RandomIDs,
	}
	// a nil *local.Adapter inside the interface would not compare to nil
	if source != nil {
		opts.Source = source
	}
	if s.history != nil {
		opts.History = s.history
	}
	s.cat = catalog.New(opts)
	return s, nil
}

// Owner returns the configured local owner
func (s *CatalogService) Owner() (domain.Owner, error) {
	if s.cfg.Owner == "" {
		return "", fmt.Errorf("%w: owner is not set", domain.ErrConfigInvalid)
	}
	return s.cfg.OwnerID(), nil
}

// View runs fn with exclusive access to the catalog
func (s *CatalogService) View(fn func(c *catalog.Catalog) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.cat)
}

// Update is View followed by publishing fresh namespace metrics
func (s *CatalogService) Update(fn func(c *catalog.Catalog) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := fn(s.cat)
	s.publish()
	return err
}

// Lock takes the writer lock of the index directory until Close
func (s *CatalogService) Lock(purpose string) error {
	if s.lock.Held() {
		return nil
	}
	return s.lock.Acquire(purpose)
}

// Load merges every index file of the index directory, then retries
// documents parked for unknown owners
func (s *CatalogService) Load(ctx context.Context) ([]catalog.AliasResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.cat.LoadAllIndexes(ctx)
	results = append(results, s.cat.RetryPending()...)
	s.observe(results)
	s.publish()
	return results, err
}

// Reload merges one index file, as reported by the watcher
func (s *CatalogService) Reload(ctx context.Context, keyID string) ([]catalog.AliasResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	results, err := s.cat.LoadIndex(ctx, keyID)
	if errors.Is(err, domain.ErrNotFound) {
		// removed again before the debounce fired
		return nil, nil
	}
	s.observe(results)
	s.publish()
	if err != nil {
		s.log.Warn("Can not reload index", "key_id", keyID, "error", err)
	}
	return results, err
}

// Save recalculates sizes and writes the index file of every namespace
func (s *CatalogService) Save(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cat.Calculate()
	var errs []error
	for _, k := range s.cat.Namespaces() {
		if err := s.saveOne(ctx, k); err != nil {
			errs = append(errs, err)
		}
	}
	s.publish()
	return errors.Join(errs...)
}

// Autosave writes only the namespaces with uncommitted local changes and
// returns how many were written
func (s *CatalogService) Autosave(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var dirty []registry.Key
	for _, k := range s.cat.Namespaces() {
		if s.cat.Dirty(k.Owner, k.Alias) {
			dirty = append(dirty, k)
		}
	}
	if len(dirty) == 0 {
		return 0, nil
	}

	var errs []error
	saved := 0
	for _, k := range dirty {
		s.cat.CalculateNamespace(k.Owner, k.Alias)
		if err := s.saveOne(ctx, k); err != nil {
			errs = append(errs, err)
			continue
		}
		saved++
	}
	s.publish()
	s.log.Debug("Autosave finished", "saved", saved, "failed", len(errs))
	return saved, errors.Join(errs...)
}

func (s *CatalogService) saveOne(ctx context.Context, k registry.Key) error {
	if s.watch != nil {
		s.watch.Ignore(k.KeyID(), ignoreOwnWrite)
	}
	_, err := s.cat.SaveIndex(ctx, k.Owner, k.Alias)
	metrics.RecordSave(err == nil)
	return err
}

// History returns the newest merge records of a namespace, or of every
// namespace when owner is empty
func (s *CatalogService) History(owner, alias string, limit int) ([]state.MergeRecord, error) {
	if s.history == nil {
		return nil, fmt.Errorf("merge history is disabled")
	}
	if owner == "" {
		return s.history.GetAllHistory(limit)
	}
	if alias == "" {
		alias = "master"
	}
	return s.history.GetHistory(owner, alias, limit)
}

// PruneHistory drops merge records older than the retention period
func (s *CatalogService) PruneHistory(now time.Time) (int64, error) {
	if s.history == nil || s.cfg.History.Retain <= 0 {
		return 0, nil
	}
	n, err := s.history.Prune(now.Add(-s.cfg.History.Retain))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.log.Info("Pruned merge history", "records", n)
	}
	return n, nil
}

// RunTask runs one of the scheduler tasks
func (s *CatalogService) RunTask(ctx context.Context, task string) error {
	switch task {
	case scheduler.TaskAutosave:
		_, err := s.Autosave(ctx)
		return err
	case scheduler.TaskPrune:
		_, err := s.PruneHistory(time.Now())
		return err
	}
	return fmt.Errorf("unknown task: %s", task)
}

// observe feeds merge outcomes to the metrics
func (s *CatalogService) observe(results []catalog.AliasResult) {
	for _, r := range results {
		metrics.RecordMerge(r.Status, r.Duration)
	}
}

// publish refreshes the per namespace gauges; caller holds mu
func (s *CatalogService) publish() {
	seen := make(map[registry.Key]bool)
	for _, k := range s.cat.Namespaces() {
		seen[k] = true
		metrics.RecordNamespace(k.Owner.String(), k.Alias, s.cat.Stats(k.Owner, k.Alias), s.cat.Revision(k.Owner, k.Alias))
	}
	for k := range s.published {
		if !seen[k] {
			metrics.ForgetNamespace(k.Owner.String(), k.Alias)
		}
	}
	s.published = seen
	metrics.SetPending(len(s.cat.Pending()))
}

// Close stops serving, releases the writer lock and closes the history
func (s *CatalogService) Close() error {
	var errs []error
	if s.Running() {
		if err := s.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.lock.Release(); err != nil {
		errs = append(errs, err)
	}
	if s.history != nil {
		if err := s.history.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
