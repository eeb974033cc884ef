package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus represents the status of the last run of a job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// JobFunc is the unit of work run on every tick of a schedule
type JobFunc func(ctx context.Context) error

// RunObserver is notified after every job run
type RunObserver func(name string, duration time.Duration, err error)

// JobState is a snapshot of a registered job
type JobState struct {
	Name        string
	Spec        string
	Status      JobStatus
	Error       string
	Runs        int
	Failures    int
	StartedAt   *time.Time
	CompletedAt *time.Time
	NextRunAt   time.Time
}

type registeredJob struct {
	entryID cron.EntryID
	fn      JobFunc
	state   JobState
}

// Scheduler runs named jobs on cron schedules. Overlapping runs of the same job
// are skipped and every run is bounded by the job timeout.
type Scheduler struct {
	cron    *cron.Cron
	timeout time.Duration
	logger  *zap.Logger

	mu        sync.Mutex
	jobs      map[string]*registeredJob
	order     []string
	observers []RunObserver
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc

	now func() time.Time
}

// New creates a scheduler. A zero timeout leaves runs unbounded.
func New(timeout time.Duration, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		timeout: timeout,
		logger:  logger,
		jobs:    make(map[string]*registeredJob),
		ctx:     context.Background(),
		now:     time.Now,
	}
}

// Observe registers a callback invoked after every run
func (s *Scheduler) Observe(fn RunObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// Register adds a job under a unique name. Jobs must be registered before Start.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return ErrSchedulerRunning
	}
	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, name)
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%w %q for job %s: %v", ErrInvalidSpec, spec, name, err)
	}

	job := &registeredJob{
		fn:    fn,
		state: JobState{Name: name, Spec: spec, Status: JobStatusPending},
	}
	id, err := s.cron.AddFunc(spec, func() {
		_ = s.execute(s.baseContext(), job)
	})
	if err != nil {
		return fmt.Errorf("%w %q for job %s: %v", ErrInvalidSpec, spec, name, err)
	}
	job.entryID = id
	s.jobs[name] = job
	s.order = append(s.order, name)
	return nil
}

// Start starts the cron loop. Jobs receive a context derived from ctx that is
// cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()

	for _, st := range s.States() {
		s.logger.Info("Scheduled job registered",
			zap.String("job", st.Name),
			zap.String("spec", st.Spec),
			zap.Time("next_run_at", st.NextRunAt),
		)
	}
	s.logger.Info("Scheduler started", zap.Int("jobs", len(s.order)), zap.Duration("job_timeout", s.timeout))
	return nil
}

// Stop stops scheduling new runs, cancels the running ones and waits for them
// to return or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	stopped := s.cron.Stop()

	select {
	case <-stopped.Done():
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Scheduler stop timed out")
		return ctx.Err()
	}
}

// RunNow runs a job synchronously outside its schedule
func (s *Scheduler) RunNow(ctx context.Context, name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.execute(ctx, job)
}

// States returns the state of every job in registration order
func (s *Scheduler) States() []JobState {
	s.mu.Lock()
	defer s.mu.Unlock()

	states := make([]JobState, 0, len(s.order))
	for _, name := range s.order {
		job := s.jobs[name]
		st := job.state
		st.NextRunAt = s.cron.Entry(job.entryID).Next
		states = append(states, st)
	}
	return states
}

// State returns the state of one job
func (s *Scheduler) State(name string) (JobState, error) {
	for _, st := range s.States() {
		if st.Name == name {
			return st, nil
		}
	}
	return JobState{}, fmt.Errorf("%w: %s", ErrJobNotFound, name)
}

func (s *Scheduler) baseContext() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx
}

func (s *Scheduler) execute(ctx context.Context, job *registeredJob) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := s.now()
	s.mu.Lock()
	name := job.state.Name
	job.state.Status = JobStatusRunning
	job.state.StartedAt = &started
	job.state.Error = ""
	s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job %s panicked: %v", name, r)
		}
		s.finish(job, started, err)
	}()

	return job.fn(ctx)
}

func (s *Scheduler) finish(job *registeredJob, started time.Time, err error) {
	completed := s.now()
	duration := completed.Sub(started)

	s.mu.Lock()
	name := job.state.Name
	job.state.Runs++
	job.state.CompletedAt = &completed
	if err != nil {
		job.state.Status = JobStatusFailed
		job.state.Error = err.Error()
		job.state.Failures++
	} else {
		job.state.Status = JobStatusSuccess
	}
	observers := append([]RunObserver(nil), s.observers...)
	s.mu.Unlock()

	if err != nil {
		s.logger.Error("Scheduled job failed",
			zap.String("job", name),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
	} else {
		s.logger.Debug("Scheduled job completed",
			zap.String("job", name),
			zap.Duration("duration", duration),
		)
	}
	for _, fn := range observers {
		fn(name, duration, err)
	}
}

// cronLogger adapts zap to the cron.Logger interface
type cronLogger struct {
	logger *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, zap.Any("details", keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, zap.Error(err), zap.Any("details", keysAndValues))
}
