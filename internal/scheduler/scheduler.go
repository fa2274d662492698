// Package scheduler runs the periodic housekeeping of the catalog service:
// recalculating sizes, writing dirty index files and pruning merge history.
package scheduler

import (
	"context"
	"time"
)

// Task names understood by the catalog service
const (
	TaskAutosave = "autosave"
	TaskPrune    = "prune"
)

// Scheduler runs named tasks in the background
type Scheduler interface {
	Start(ctx context.Context) error
	Stop() error
	Status() *Status
}

// Status is a snapshot of the scheduler counters
type Status struct {
	Running        bool
	LastRunTime    time.Time
	NextRunTime    time.Time
	TotalRuns      int
	SuccessfulRuns int
	FailedRuns     int
	LastError      string
	// TaskErrors holds the last error per task, cleared after a clean run
	TaskErrors map[string]string
}

// Config configures a periodic scheduler
type Config struct {
	// Interval between two rounds
	Interval time.Duration

	// Tasks run in order on every round
	Tasks []string

	// FlushOnStop runs one last round when Stop is called
	FlushOnStop bool
}

// TaskRunner executes one named task
type TaskRunner interface {
	RunTask(ctx context.Context, task string) error
}

// TaskFunc adapts a function to TaskRunner
type TaskFunc func(ctx context.Context, task string) error

// RunTask calls f
func (f TaskFunc) RunTask(ctx context.Context, task string) error {
	return f(ctx, task)
}
