// Package queue implements the single-slot scan job scheduler: FIFO
// admission, cooperative cancellation, early-failure refunds, and
// retention sweeping of finished jobs.
package queue

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/probelab/redscan/internal/config"
	"github.com/probelab/redscan/internal/credit"
	"github.com/probelab/redscan/internal/types"
)

// Status is the lifecycle state of a job. A job's status never moves
// backwards: queued → in-progress → complete or error, with the direct
// queued → error shortcut for pre-start cancellation.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in-progress"
	StatusComplete   Status = "complete"
	StatusError      Status = "error"
)

// Terminal reports whether a status is final.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// Job is one unit of scheduled scan work.
type Job struct {
	ID        types.ID  `json:"id"`
	UserID    string    `json:"userId"`
	Config    any       `json:"config"`
	Status    Status    `json:"status"`
	Progress  int       `json:"progress"`
	Total     int       `json:"total"`
	Result    any       `json:"result,omitempty"`
	Logs      []string  `json:"logs"`
	QueuedAt  time.Time `json:"queuedAt"`
	StartTime time.Time `json:"startTime"`

	// cancel is non-nil only while the job is the active execution.
	cancel context.CancelFunc
}

// snapshot returns a copy safe to hand out while the scheduler keeps
// mutating the original.
func (j *Job) snapshot() Job {
	out := *j
	out.cancel = nil
	out.Logs = append([]string(nil), j.Logs...)
	return out
}

// Runner executes a job's scan. It must return promptly with a
// context error once ctx is cancelled.
type Runner interface {
	Run(ctx context.Context, cfg any, logFn func(string), progressFn func(completed, total int)) (any, error)
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, cfg any, logFn func(string), progressFn func(completed, total int)) (any, error)

func (f RunnerFunc) Run(ctx context.Context, cfg any, logFn func(string), progressFn func(completed, total int)) (any, error) {
	return f(ctx, cfg, logFn, progressFn)
}

// QueueStatus is a point-in-time snapshot of scheduler state.
type QueueStatus struct {
	QueueLength  int      `json:"queueLength"`
	CurrentJobID types.ID `json:"currentJobId,omitempty"`
	IsProcessing bool     `json:"isProcessing"`
	TotalJobs    int      `json:"totalJobs"`
}

// Scheduler runs at most one job at a time, in admission order. All
// methods are safe for concurrent use.
type Scheduler struct {
	runner Runner
	ledger credit.Ledger
	logger *slog.Logger
	clock  func() time.Time

	refundWindow  time.Duration
	retention     time.Duration
	sweepInterval time.Duration

	mu           sync.Mutex
	jobs         map[types.ID]*Job
	pending      []types.ID
	currentJobID types.ID
	draining     bool
}

// NewScheduler creates a Scheduler. Durations left zero in cfg fall
// back to the package defaults (30s refund window, 1h retention, 30m
// sweep interval).
func NewScheduler(cfg config.QueueConfig, runner Runner, ledger credit.Ledger, logger *slog.Logger) *Scheduler {
	defaults := config.DefaultConfig().Queue
	if cfg.RefundWindow <= 0 {
		cfg.RefundWindow = defaults.RefundWindow
	}
	if cfg.Retention <= 0 {
		cfg.Retention = defaults.Retention
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = defaults.SweepInterval
	}

	return &Scheduler{
		runner:        runner,
		ledger:        ledger,
		logger:        logger.With("component", "queue"),
		clock:         time.Now,
		refundWindow:  cfg.RefundWindow,
		retention:     cfg.Retention,
		sweepInterval: cfg.SweepInterval,
		jobs:          make(map[types.ID]*Job),
	}
}

// Enqueue admits a job at the tail of the queue and triggers draining.
// It returns as soon as the job is registered, before execution starts.
func (s *Scheduler) Enqueue(userID string, cfg any) types.ID {
	job := &Job{
		ID:       types.NewID(),
		UserID:   userID,
		Config:   cfg,
		Status:   StatusQueued,
		Logs:     []string{},
		QueuedAt: s.clock(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.pending = append(s.pending, job.ID)
	position := len(s.pending)
	s.mu.Unlock()

	s.logger.Info("job enqueued", "job_id", job.ID, "user_id", userID, "position", position)

	go s.drain()
	return job.ID
}

// drain processes the pending queue until it is empty. The draining
// flag keeps concurrent triggers from running two loops.
func (s *Scheduler) drain() {
	s.mu.Lock()
	if s.draining || len(s.pending) == 0 {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.draining = false
		s.mu.Unlock()
	}()

	for {
		s.mu.Lock()
		if len(s.pending) == 0 {
			s.mu.Unlock()
			return
		}

		jobID := s.pending[0]
		s.pending = s.pending[1:]
		job, ok := s.jobs[jobID]
		if !ok {
			s.logger.Warn("pending job missing from job map", "job_id", jobID)
			s.mu.Unlock()
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		job.Status = StatusInProgress
		job.StartTime = s.clock()
		job.cancel = cancel
		s.currentJobID = jobID
		cfg := job.Config
		userID := job.UserID
		s.mu.Unlock()

		s.logger.Info("job started", "job_id", jobID, "user_id", userID)

		result, err := s.runner.Run(ctx, cfg, s.appendLog(jobID), s.updateProgress(jobID))
		s.finishJob(job, result, err)
		cancel()
	}
}

// finishJob applies the run outcome to the job record and handles the
// refund decision for non-cancelled early failures.
func (s *Scheduler) finishJob(job *Job, result any, err error) {
	var refund bool

	s.mu.Lock()
	elapsed := s.clock().Sub(job.StartTime)

	switch {
	case err == nil:
		job.Result = result
		job.Status = StatusComplete

	case errors.Is(err, context.Canceled):
		job.Status = StatusError
		s.logger.Info("job cancelled by user", "job_id", job.ID)

	default:
		job.Status = StatusError
		job.Logs = append(job.Logs, "Error: "+err.Error())
		refund = elapsed < s.refundWindow
		s.logger.Error("job failed", "job_id", job.ID, "elapsed", elapsed, "error", err)
	}

	job.cancel = nil
	s.currentJobID = ""
	userID := job.UserID
	jobID := job.ID
	s.mu.Unlock()

	if err == nil {
		s.logger.Info("job completed", "job_id", jobID, "user_id", userID)
	}

	if refund {
		if cerr := s.ledger.Credit(context.Background(), userID, 1); cerr != nil {
			s.logger.Error("credit refund failed", "job_id", jobID, "error", cerr)
		} else {
			s.logger.Info("scan credit refunded for early failure", "job_id", jobID, "user_id", userID)
			s.mu.Lock()
			job.Logs = append(job.Logs, "Scan credit refunded due to early failure")
			s.mu.Unlock()
		}
	}
}

func (s *Scheduler) appendLog(jobID types.ID) func(string) {
	return func(message string) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if job, ok := s.jobs[jobID]; ok {
			job.Logs = append(job.Logs, message)
		}
	}
}

func (s *Scheduler) updateProgress(jobID types.ID) func(int, int) {
	return func(completed, total int) {
		s.mu.Lock()
		defer s.mu.Unlock()
		if job, ok := s.jobs[jobID]; ok {
			job.Progress = completed
			job.Total = total
		}
	}
}

// Cancel cancels a job the user owns. A queued job is removed from the
// pending order and marked errored immediately; an in-progress job only
// has its cancellation signalled, with the drain loop recording the
// final state once the runner returns. Unknown ids, ownership
// mismatches, and terminal jobs all return false.
func (s *Scheduler) Cancel(userID string, jobID types.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.UserID != userID {
		return false
	}

	switch job.Status {
	case StatusQueued:
		for i, id := range s.pending {
			if id == jobID {
				s.pending = append(s.pending[:i], s.pending[i+1:]...)
				break
			}
		}
		job.Status = StatusError
		job.Logs = append(job.Logs, "Job cancelled by user")
		return true

	case StatusInProgress:
		if job.cancel != nil {
			job.Logs = append(job.Logs, "Job cancelled by user")
			job.cancel()
			s.logger.Info("cancellation signalled", "job_id", jobID)
			return true
		}
	}

	return false
}

// Position returns the 1-based position of a queued job the user owns.
// The second return is false for unknown, non-owned, in-progress, and
// terminal jobs.
func (s *Scheduler) Position(userID string, jobID types.ID) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.UserID != userID || job.Status != StatusQueued {
		return 0, false
	}

	for i, id := range s.pending {
		if id == jobID {
			return i + 1, true
		}
	}
	return 0, false
}

// Status returns a snapshot of scheduler state.
func (s *Scheduler) Status() QueueStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return QueueStatus{
		QueueLength:  len(s.pending),
		CurrentJobID: s.currentJobID,
		IsProcessing: s.draining,
		TotalJobs:    len(s.jobs),
	}
}

// UserJob returns a snapshot of a job the user owns.
func (s *Scheduler) UserJob(userID string, jobID types.ID) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, ok := s.jobs[jobID]
	if !ok || job.UserID != userID {
		return Job{}, false
	}
	return job.snapshot(), true
}

// UserJobs returns snapshots of all the user's jobs, most recently
// queued first.
func (s *Scheduler) UserJobs(userID string) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Job, 0)
	for _, job := range s.jobs {
		if job.UserID == userID {
			out = append(out, job.snapshot())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QueuedAt.After(out[j].QueuedAt)
	})
	return out
}

// Sweep deletes terminal jobs queued more than the retention period
// before now and returns the number removed.
func (s *Scheduler) Sweep(now time.Time) int {
	cutoff := now.Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, job := range s.jobs {
		if job.Status.Terminal() && job.QueuedAt.Before(cutoff) {
			delete(s.jobs, id)
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("swept finished jobs", "removed", removed)
	}
	return removed
}

// StartSweeper sweeps on the configured interval until ctx is done.
func (s *Scheduler) StartSweeper(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(s.clock())
			}
		}
	}()
}
