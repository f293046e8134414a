// Package scheduler runs registered background jobs on fixed intervals.
// Jobs are plain functions registered at startup; each must be idempotent,
// since a restart re-runs it from its offset.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/cbejar93/astroSocial-sub001/internal/logger"
	"go.uber.org/zap"
)

// Job is one scheduled task. Offset staggers jobs sharing an interval so
// they fire at distinct times.
type Job struct {
	Name     string
	Interval time.Duration
	Offset   time.Duration
	Run      func(ctx context.Context) error
}

// Runner executes registered jobs until stopped.
type Runner struct {
	jobs   []Job
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRunner creates an empty job runner.
func NewRunner() *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{ctx: ctx, cancel: cancel}
}

// Register adds a job. Must be called before Start.
func (r *Runner) Register(job Job) {
	r.jobs = append(r.jobs, job)
}

// Start launches one goroutine per job.
func (r *Runner) Start() {
	for _, job := range r.jobs {
		job := job
		r.wg.Add(1)
		go r.runJob(job)
	}
	logger.Log.Info("Scheduler started", zap.Int("jobs", len(r.jobs)))
}

// Stop cancels all jobs and waits for them to exit. A job already running
// finishes its current invocation.
func (r *Runner) Stop() {
	r.cancel()
	r.wg.Wait()
	logger.Log.Info("Scheduler stopped")
}

func (r *Runner) runJob(job Job) {
	defer r.wg.Done()

	if job.Offset > 0 {
		select {
		case <-time.After(job.Offset):
		case <-r.ctx.Done():
			return
		}
	}

	r.invoke(job)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.invoke(job)
		case <-r.ctx.Done():
			return
		}
	}
}

func (r *Runner) invoke(job Job) {
	start := time.Now()
	if err := job.Run(r.ctx); err != nil {
		logger.Log.Error("Scheduled job failed",
			zap.String("job", job.Name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return
	}
	logger.Log.Info("Scheduled job completed",
		zap.String("job", job.Name),
		zap.Duration("elapsed", time.Since(start)))
}
