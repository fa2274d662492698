package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// IntervalScheduler runs its tasks on a fixed ticker
type IntervalScheduler struct {
	config Config
	runner TaskRunner

	mu          sync.RWMutex
	running     bool
	stopped     bool
	stopOnce    sync.Once
	closeOnce   sync.Once
	stopChan    chan struct{}
	stoppedChan chan struct{}

	// serializes rounds so the final flush never overlaps a tick
	roundMu sync.Mutex

	stats struct {
		lastRunTime    time.Time
		nextRunTime    time.Time
		totalRuns      int
		successfulRuns int
		failedRuns     int
		lastError      string
		taskErrors     map[string]string
	}
}

// NewIntervalScheduler creates a scheduler; it needs a positive interval and
// at least one task
func NewIntervalScheduler(config Config, runner TaskRunner) (*IntervalScheduler, error) {
	if config.Interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %v", config.Interval)
	}
	if runner == nil {
		return nil, fmt.Errorf("task runner cannot be nil")
	}
	if len(config.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks configured")
	}

	s := &IntervalScheduler{
		config:      config,
		runner:      runner,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
	s.stats.taskErrors = make(map[string]string)
	return s, nil
}

// Start begins the ticker loop
func (s *IntervalScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}
	if s.stopped {
		return fmt.Errorf("scheduler cannot be restarted after stop")
	}

	s.running = true
	s.stats.nextRunTime = time.Now().Add(s.config.Interval)
	go s.run(ctx)
	return nil
}

func (s *IntervalScheduler) run(ctx context.Context) {
	defer s.closeOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.running = false
		s.mu.Unlock()
		close(s.stoppedChan)
	})

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.RunNow(ctx)
		}
	}
}

// RunNow runs every task once, outside the ticker. A failing task does not
// keep the next ones from running.
func (s *IntervalScheduler) RunNow(ctx context.Context) error {
	s.roundMu.Lock()
	defer s.roundMu.Unlock()

	s.mu.Lock()
	s.stats.lastRunTime = time.Now()
	s.stats.totalRuns++
	s.stats.nextRunTime = time.Now().Add(s.config.Interval)
	s.mu.Unlock()

	var lastErr error
	failed := make(map[string]string)
	for _, task := range s.config.Tasks {
		if err := s.runner.RunTask(ctx, task); err != nil {
			lastErr = fmt.Errorf("task %s: %w", task, err)
			failed[task] = err.Error()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.taskErrors = failed
	if lastErr != nil {
		s.stats.failedRuns++
		s.stats.lastError = lastErr.Error()
	} else {
		s.stats.successfulRuns++
		s.stats.lastError = ""
	}
	return lastErr
}

// Stop ends the loop and, with FlushOnStop, runs a final round
func (s *IntervalScheduler) Stop() error {
	s.mu.RLock()
	if !s.running {
		s.mu.RUnlock()
		return fmt.Errorf("scheduler is not running")
	}
	s.mu.RUnlock()

	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
	<-s.stoppedChan

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	if s.config.FlushOnStop {
		return s.RunNow(context.Background())
	}
	return nil
}

// Status returns a copy of the counters
func (s *IntervalScheduler) Status() *Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	taskErrors := make(map[string]string, len(s.stats.taskErrors))
	for k, v := range s.stats.taskErrors {
		taskErrors[k] = v
	}
	return &Status{
		Running:        s.running,
		LastRunTime:    s.stats.lastRunTime,
		NextRunTime:    s.stats.nextRunTime,
		TotalRuns:      s.stats.totalRuns,
		SuccessfulRuns: s.stats.successfulRuns,
		FailedRuns:     s.stats.failedRuns,
		LastError:      s.stats.lastError,
		TaskErrors:     taskErrors,
	}
}
