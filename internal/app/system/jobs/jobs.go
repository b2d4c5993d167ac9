// internal/app/system/jobs/jobs.go
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/dalemusser/residencyhub/internal/app/system/metrics"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultTimeout bounds a job run when Job.Timeout is zero.
const DefaultTimeout = 5 * time.Minute

// ErrUnknownJob is returned by RunNow for a name that was never added.
var ErrUnknownJob = errors.New("unknown job")

// Job is a unit of scheduled background work.
type Job struct {
	Name    string
	Spec    string // standard 5-field cron spec or a descriptor such as "@daily"
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSpec validates a cron spec without scheduling anything.
func ParseSpec(spec string) error {
	_, err := parser.Parse(spec)
	return err
}

// Scheduler runs Jobs on their cron schedules in the program time zone.
type Scheduler struct {
	cron *cron.Cron
	log  *zap.Logger

	mu      sync.Mutex
	jobs    map[string]Job
	entries map[string]cron.EntryID

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a stopped scheduler. Overlapping runs of the same job are skipped
// and panics are recovered and logged.
func New(logger *zap.Logger, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{s: logger.Sugar()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		log:     logger,
		jobs:    make(map[string]Job),
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Add registers j. Names must be unique.
func (s *Scheduler) Add(j Job) error {
	if j.Name == "" || j.Run == nil {
		return errors.New("job needs a name and a run func")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, dup := s.jobs[j.Name]; dup {
		return fmt.Errorf("job %q already registered", j.Name)
	}
	id, err := s.cron.AddFunc(j.Spec, func() { _ = s.execute(s.ctx, j) })
	if err != nil {
		return fmt.Errorf("schedule %q (%s): %w", j.Name, j.Spec, err)
	}
	s.jobs[j.Name] = j
	s.entries[j.Name] = id
	s.log.Info("job scheduled", zap.String("job", j.Name), zap.String("spec", j.Spec))
	return nil
}

// Names returns the registered job names, sorted.
func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.jobs))
	for n := range s.jobs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Next returns the next scheduled run of the named job, or the zero time
// when the scheduler is not running or the job is unknown.
func (s *Scheduler) Next(name string) time.Time {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(id).Next
}

// RunNow runs the named job synchronously, outside its schedule.
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	return s.execute(ctx, j)
}

// Start begins dispatching jobs in a background goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("job scheduler started", zap.Strings("jobs", s.Names()))
}

// Stop halts scheduling, cancels running jobs' contexts and waits for them
// to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	s.cancel()
	select {
	case <-done.Done():
		s.log.Info("job scheduler stopped")
		return nil
	case <-ctx.Done():
		s.log.Warn("job scheduler stop timed out", zap.Error(ctx.Err()))
		return ctx.Err()
	}
}

func (s *Scheduler) execute(parent context.Context, j Job) error {
	timeout := j.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	start := time.Now()
	err := j.Run(ctx)
	if err != nil {
		metrics.JobRuns.WithLabelValues(j.Name, "error").Inc()
		s.log.Error("job failed",
			zap.String("job", j.Name),
			zap.Duration("took", time.Since(start)),
			zap.Error(err))
		return err
	}
	metrics.JobRuns.WithLabelValues(j.Name, "ok").Inc()
	s.log.Info("job finished", zap.String("job", j.Name), zap.Duration("took", time.Since(start)))
	return nil
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw("cron: "+msg, append(keysAndValues, "error", err)...)
}
