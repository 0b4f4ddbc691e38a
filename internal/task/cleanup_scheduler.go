package task

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultCleanupInterval is how often the scheduler submits a cleanup task
// when no interval is configured.
const DefaultCleanupInterval = time.Hour

// CleanupScheduler periodically submits a CleanupTask to the runner so
// finished task records are pruned without operator intervention. Each run
// goes through the normal task pipeline and leaves an inspectable record.
type CleanupScheduler struct {
	runner    *TaskRunner
	store     TaskStore
	interval  time.Duration
	olderThan time.Duration
	logger    *slog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewCleanupScheduler creates a scheduler that submits a cleanup task every
// interval, pruning finished records older than olderThan. Non-positive
// values fall back to DefaultCleanupInterval and DefaultCleanupAge.
func NewCleanupScheduler(runner *TaskRunner, taskStore TaskStore, interval, olderThan time.Duration, logger *slog.Logger) *CleanupScheduler {
	if interval <= 0 {
		interval = DefaultCleanupInterval
	}
	if olderThan <= 0 {
		olderThan = DefaultCleanupAge
	}
	return &CleanupScheduler{
		runner:    runner,
		store:     taskStore,
		interval:  interval,
		olderThan: olderThan,
		logger:    logger.With("component", "cleanup_scheduler"),
		stop:      make(chan struct{}),
	}
}

// Start begins the scheduling loop. The first cleanup is submitted
// immediately so a long interval does not delay pruning after a restart.
func (s *CleanupScheduler) Start() {
	s.wg.Add(1)
	go s.loop()
}

// Stop terminates the scheduling loop and waits for it to exit. Safe to
// call more than once.
func (s *CleanupScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	s.wg.Wait()
}

func (s *CleanupScheduler) loop() {
	defer s.wg.Done()

	s.submit()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.submit()
		}
	}
}

func (s *CleanupScheduler) submit() {
	t, err := NewCleanupTask(s.store, s.olderThan)
	if err != nil {
		s.logger.Error("failed to build cleanup task", "error", err)
		return
	}
	if err := s.runner.Submit(context.Background(), t); err != nil {
		s.logger.Error("failed to submit cleanup task", "error", err)
		return
	}
	s.logger.Debug("cleanup task submitted",
		"task_id", t.ID(),
		"older_than", s.olderThan)
}
