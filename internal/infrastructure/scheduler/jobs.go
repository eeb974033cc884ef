package scheduler

import (
	"context"
	"time"

	"github.com/ribotflow/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// Names of the built-in jobs
const (
	JobQuoteExpiry    = "quote-expiry"
	JobInvoiceOverdue = "invoice-overdue"
	JobAudioWorker    = "audio-worker"
	JobAudioStale     = "audio-stale"
)

// QuoteExpirer expires sent quotes whose expiry date has passed
type QuoteExpirer interface {
	ExpireDue(ctx context.Context, now time.Time, limit int) (int, error)
}

// InvoiceOverdueMarker flags issued invoices whose due date has passed
type InvoiceOverdueMarker interface {
	MarkOverdue(ctx context.Context, now time.Time, limit int) (int, error)
}

// AudioQueue drives the transcription worker
type AudioQueue interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
	RequeueStale(ctx context.Context, startedBefore time.Time, limit int) (int, error)
}

// Jobs groups the services driven by the scheduler. Nil members are not scheduled.
type Jobs struct {
	Quotes   QuoteExpirer
	Invoices InvoiceOverdueMarker
	Audio    AudioQueue
}

// RegisterJobs registers the built-in jobs using the configured schedules
func RegisterJobs(s *Scheduler, cfg config.SchedulerConfig, jobs Jobs) error {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = 200
	}

	if jobs.Quotes != nil {
		err := s.Register(JobQuoteExpiry, cfg.QuoteExpirySpec, func(ctx context.Context) error {
			n, err := jobs.Quotes.ExpireDue(ctx, s.now(), batch)
			s.logCount(JobQuoteExpiry, "quotes_expired", n)
			return err
		})
		if err != nil {
			return err
		}
	}

	if jobs.Invoices != nil {
		err := s.Register(JobInvoiceOverdue, cfg.InvoiceOverdueSpec, func(ctx context.Context) error {
			n, err := jobs.Invoices.MarkOverdue(ctx, s.now(), batch)
			s.logCount(JobInvoiceOverdue, "invoices_overdue", n)
			return err
		})
		if err != nil {
			return err
		}
	}

	if jobs.Audio != nil {
		audioBatch := cfg.AudioBatchSize
		if audioBatch <= 0 {
			audioBatch = 2
		}
		err := s.Register(JobAudioWorker, cfg.AudioWorkerSpec, func(ctx context.Context) error {
			n, err := jobs.Audio.ProcessPending(ctx, audioBatch)
			s.logCount(JobAudioWorker, "audio_jobs_processed", n)
			return err
		})
		if err != nil {
			return err
		}

		staleAfter := cfg.AudioStaleAfter
		if staleAfter <= 0 {
			staleAfter = 15 * time.Minute
		}
		err = s.Register(JobAudioStale, cfg.AudioStaleSpec, func(ctx context.Context) error {
			n, err := jobs.Audio.RequeueStale(ctx, s.now().Add(-staleAfter), batch)
			s.logCount(JobAudioStale, "audio_jobs_requeued", n)
			return err
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Scheduler) logCount(job, field string, n int) {
	if n > 0 {
		s.logger.Info("Scheduled job affected rows", zap.String("job", job), zap.Int(field, n))
	}
}
