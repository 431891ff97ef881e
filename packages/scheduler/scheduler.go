// Package scheduler decouples trigger requests from pipeline execution.
// Trigger handlers persist a running report row, then hand a job to the
// worker pool and return immediately. Workers run the pipeline and
// reconcile the report row to its terminal state exactly once; no fault,
// including a panic, escapes a worker.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/tessera-qa/tessera/packages/exec"
	"github.com/tessera-qa/tessera/packages/plan"
	"github.com/tessera-qa/tessera/packages/store"
)

// ErrQueueFull is returned when the job queue cannot accept another run.
var ErrQueueFull = errors.New("execution queue full")

// Job binds one pipeline run to the report row created for it. The binding
// is 1:1; a job is never reused and no two jobs share a report.
type Job struct {
	ReportID int64
	Plan     plan.Plan
}

// RunFunc executes one pipeline. Production wiring points this at
// (*exec.Executor).Run.
type RunFunc func(ctx context.Context, p plan.Plan) (exec.RunResult, error)

type Options struct {
	Workers       int
	QueueSize     int
	ReportTTL     time.Duration
	SweepInterval time.Duration
}

func (o *Options) defaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.ReportTTL <= 0 {
		o.ReportTTL = 2 * time.Hour
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = 5 * time.Minute
	}
}

type Scheduler struct {
	log   *zap.Logger
	store *store.Store
	run   RunFunc
	opts  Options

	jobs chan Job
	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New builds a scheduler. st must be the scheduler's own store handle,
// independent of any request-scoped access.
func New(log *zap.Logger, st *store.Store, run RunFunc, opts Options) *Scheduler {
	opts.defaults()
	return &Scheduler{
		log:   log,
		store: st,
		run:   run,
		opts:  opts,
		jobs:  make(chan Job, opts.QueueSize),
		stop:  make(chan struct{}),
	}
}

// Start launches the worker pool and the stale-report reaper.
func (s *Scheduler) Start() {
	for i := 0; i < s.opts.Workers; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}
	s.wg.Add(1)
	go s.reaper()
	s.log.Info("scheduler started",
		zap.Int("workers", s.opts.Workers),
		zap.Int("queue_size", s.opts.QueueSize))
}

// Dispatch enqueues a job without blocking. When the queue is full the
// report is reconciled to failed immediately, since no worker will ever
// pick it up.
func (s *Scheduler) Dispatch(reportID int64, p plan.Plan) error {
	select {
	case s.jobs <- Job{ReportID: reportID, Plan: p}:
		return nil
	default:
		s.log.Warn("queue full, failing report", zap.Int64("report_id", reportID))
		if err := s.store.FailReport(reportID, nil); err != nil {
			s.log.Error("fail report on full queue", zap.Int64("report_id", reportID), zap.Error(err))
		}
		return ErrQueueFull
	}
}

// Close stops the workers, waits for in-flight jobs to finish, and fails
// the reports of jobs still queued, since no worker will ever pick them up.
func (s *Scheduler) Close() {
	s.once.Do(func() {
		close(s.stop)
	})
	s.wg.Wait()
	for {
		select {
		case job := <-s.jobs:
			s.log.Warn("failing undispatched report on shutdown", zap.Int64("report_id", job.ReportID))
			s.failReport(job.ReportID, nil)
		default:
			return
		}
	}
}

func (s *Scheduler) worker(id int) {
	defer s.wg.Done()
	for {
		select {
		case <-s.stop:
			return
		case job := <-s.jobs:
			s.process(job)
		}
	}
}

// process runs one pipeline and applies the single terminal transition for
// its report row.
func (s *Scheduler) process(job Job) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in pipeline run",
				zap.Int64("report_id", job.ReportID),
				zap.Any("panic", r))
			s.failReport(job.ReportID, nil)
		}
	}()

	res, err := s.run(context.Background(), job.Plan)
	switch {
	case err != nil:
		s.log.Error("pipeline fault",
			zap.Int64("report_id", job.ReportID),
			zap.Int("fault_kind", int(exec.KindOf(err))),
			zap.Error(err))
		s.failReport(job.ReportID, nil)
	case res.ExitCode != 0:
		// The interpreter exits nonzero only when it could not run its
		// cases; assertion failures still exit zero.
		s.log.Warn("interpreter crashed",
			zap.Int64("report_id", job.ReportID),
			zap.Int("exit_code", res.ExitCode),
			zap.String("stderr", res.Stderr))
		s.failReport(job.ReportID, optionalPath(res.ReportDir))
	default:
		if err := s.store.CompleteReport(job.ReportID, res.ReportDir, res.Summary.Passed, res.Summary.Total); err != nil {
			s.log.Error("complete report", zap.Int64("report_id", job.ReportID), zap.Error(err))
			return
		}
		s.log.Info("report completed",
			zap.Int64("report_id", job.ReportID),
			zap.String("report_path", res.ReportDir),
			zap.Int("passed", res.Summary.Passed),
			zap.Int("total", res.Summary.Total))
	}
}

func (s *Scheduler) failReport(reportID int64, path *string) {
	if err := s.store.FailReport(reportID, path); err != nil && errors.Cause(err) != store.ErrNotFound {
		s.log.Error("fail report", zap.Int64("report_id", reportID), zap.Error(err))
	}
}

// reaper sweeps reports stuck in running longer than the TTL. Covers a
// crash between process completion and reconciliation.
func (s *Scheduler) reaper() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-s.opts.ReportTTL)
			n, err := s.store.SweepStaleReports(cutoff)
			if err != nil {
				s.log.Error("sweep stale reports", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Warn("reclaimed stale running reports", zap.Int64("count", n))
			}
		}
	}
}

func optionalPath(p string) *string {
	if p == "" {
		return nil
	}
	return &p
}
