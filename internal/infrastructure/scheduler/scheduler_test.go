package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ribotflow/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestScheduler_Register(t *testing.T) {
	s := New(time.Minute, zap.NewNop())
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.Register("a", "0 1 * * *", noop))
	require.NoError(t, s.Register("b", "@every 15s", noop))

	err := s.Register("a", "0 2 * * *", noop)
	assert.ErrorIs(t, err, ErrDuplicateJob)

	err = s.Register("c", "not a cron", noop)
	assert.ErrorIs(t, err, ErrInvalidSpec)

	states := s.States()
	require.Len(t, states, 2)
	assert.Equal(t, "a", states[0].Name)
	assert.Equal(t, "b", states[1].Name)
	assert.Equal(t, JobStatusPending, states[0].Status)
}

func TestScheduler_RunNowTracksState(t *testing.T) {
	s := New(time.Minute, zap.NewNop())
	now := time.Date(2026, 3, 1, 1, 0, 0, 0, time.UTC)
	s.now = fixedClock(now)

	fail := true
	require.NoError(t, s.Register("flaky", "@every 1m", func(context.Context) error {
		if fail {
			return errors.New("boom")
		}
		return nil
	}))

	var observed []error
	s.Observe(func(name string, _ time.Duration, err error) {
		assert.Equal(t, "flaky", name)
		observed = append(observed, err)
	})

	err := s.RunNow(context.Background(), "flaky")
	require.EqualError(t, err, "boom")

	st, err := s.State("flaky")
	require.NoError(t, err)
	assert.Equal(t, JobStatusFailed, st.Status)
	assert.Equal(t, "boom", st.Error)
	assert.Equal(t, 1, st.Runs)
	assert.Equal(t, 1, st.Failures)
	require.NotNil(t, st.StartedAt)
	assert.True(t, st.StartedAt.Equal(now))

	fail = false
	require.NoError(t, s.RunNow(context.Background(), "flaky"))
	st, _ = s.State("flaky")
	assert.Equal(t, JobStatusSuccess, st.Status)
	assert.Empty(t, st.Error)
	assert.Equal(t, 2, st.Runs)
	assert.Equal(t, 1, st.Failures)

	require.Len(t, observed, 2)
	assert.Error(t, observed[0])
	assert.NoError(t, observed[1])

	_, err = s.State("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
	assert.ErrorIs(t, s.RunNow(context.Background(), "missing"), ErrJobNotFound)
}

func TestScheduler_RecoversPanics(t *testing.T) {
	s := New(0, zap.NewNop())
	require.NoError(t, s.Register("panics", "@every 1m", func(context.Context) error {
		panic("kaput")
	}))

	err := s.RunNow(context.Background(), "panics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaput")

	st, _ := s.State("panics")
	assert.Equal(t, JobStatusFailed, st.Status)
}

func TestScheduler_TimeoutBoundsRun(t *testing.T) {
	s := New(20*time.Millisecond, zap.NewNop())
	require.NoError(t, s.Register("slow", "@every 1m", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	err := s.RunNow(context.Background(), "slow")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestScheduler_CancelledContextSkipsRun(t *testing.T) {
	s := New(0, zap.NewNop())
	var calls int32
	require.NoError(t, s.Register("job", "@every 1m", func(context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.RunNow(ctx, "job"), context.Canceled)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestScheduler_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(time.Second, zap.NewNop())
	ran := make(chan struct{}, 1)
	require.NoError(t, s.Register("tick", "@every 1s", func(context.Context) error {
		select {
		case ran <- struct{}{}:
		default:
		}
		return nil
	}))

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")

	err := s.Register("late", "@every 1m", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrSchedulerRunning)

	st, err := s.State("tick")
	require.NoError(t, err)
	assert.False(t, st.NextRunAt.IsZero())

	select {
	case <-ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not run on schedule")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	require.NoError(t, s.Stop(ctx), "second stop is a no-op")
}

func TestScheduler_StopCancelsRunningJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := New(0, zap.NewNop())
	started := make(chan struct{})
	var once sync.Once
	require.NoError(t, s.Register("long", "@every 1s", func(ctx context.Context) error {
		once.Do(func() { close(started) })
		<-ctx.Done()
		return ctx.Err()
	}))
	require.NoError(t, s.Start(context.Background()))

	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("job did not start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	st, _ := s.State("long")
	assert.Equal(t, JobStatusFailed, st.Status)
	assert.Contains(t, st.Error, context.Canceled.Error())
}

type fakeQuotes struct {
	now   time.Time
	limit int
}

func (f *fakeQuotes) ExpireDue(_ context.Context, now time.Time, limit int) (int, error) {
	f.now, f.limit = now, limit
	return 3, nil
}

type fakeInvoices struct {
	limit int
	err   error
}

func (f *fakeInvoices) MarkOverdue(_ context.Context, _ time.Time, limit int) (int, error) {
	f.limit = limit
	return 0, f.err
}

type fakeAudio struct {
	limit  int
	before time.Time
}

func (f *fakeAudio) ProcessPending(_ context.Context, limit int) (int, error) {
	f.limit = limit
	return 1, nil
}

func (f *fakeAudio) RequeueStale(_ context.Context, startedBefore time.Time, _ int) (int, error) {
	f.before = startedBefore
	return 0, nil
}

func testSchedulerConfig() config.SchedulerConfig {
	return config.SchedulerConfig{
		Enabled:            true,
		QuoteExpirySpec:    "0 1 * * *",
		InvoiceOverdueSpec: "30 1 * * *",
		AudioWorkerSpec:    "@every 15s",
		AudioStaleSpec:     "@every 5m",
		AudioBatchSize:     4,
		AudioStaleAfter:    10 * time.Minute,
		BatchSize:          50,
	}
}

func TestRegisterJobs(t *testing.T) {
	now := time.Date(2026, 5, 4, 1, 0, 0, 0, time.UTC)
	s := New(time.Minute, zap.NewNop())
	s.now = fixedClock(now)

	quotes := &fakeQuotes{}
	invoices := &fakeInvoices{err: errors.New("db down")}
	audio := &fakeAudio{}

	require.NoError(t, RegisterJobs(s, testSchedulerConfig(), Jobs{Quotes: quotes, Invoices: invoices, Audio: audio}))

	names := make([]string, 0)
	for _, st := range s.States() {
		names = append(names, st.Name)
	}
	assert.Equal(t, []string{JobQuoteExpiry, JobInvoiceOverdue, JobAudioWorker, JobAudioStale}, names)

	require.NoError(t, s.RunNow(context.Background(), JobQuoteExpiry))
	assert.True(t, quotes.now.Equal(now))
	assert.Equal(t, 50, quotes.limit)

	assert.EqualError(t, s.RunNow(context.Background(), JobInvoiceOverdue), "db down")
	assert.Equal(t, 50, invoices.limit)

	require.NoError(t, s.RunNow(context.Background(), JobAudioWorker))
	assert.Equal(t, 4, audio.limit)

	require.NoError(t, s.RunNow(context.Background(), JobAudioStale))
	assert.True(t, audio.before.Equal(now.Add(-10*time.Minute)))
}

func TestRegisterJobs_SkipsMissingServices(t *testing.T) {
	s := New(time.Minute, zap.NewNop())
	require.NoError(t, RegisterJobs(s, testSchedulerConfig(), Jobs{Quotes: &fakeQuotes{}}))
	require.Len(t, s.States(), 1)
}

func TestRegisterJobs_InvalidSpec(t *testing.T) {
	cfg := testSchedulerConfig()
	cfg.InvoiceOverdueSpec = "every day"
	s := New(time.Minute, zap.NewNop())
	err := RegisterJobs(s, cfg, Jobs{Invoices: &fakeInvoices{}})
	assert.ErrorIs(t, err, ErrInvalidSpec)
}
