package transcription

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/transcription"
	"github.com/ribotflow/backend/internal/infrastructure/storage"
	"github.com/ribotflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Transcriber turns a recording into a transcript and analysis
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string) (transcription.Analysis, error)
}

// Audio job outcomes recorded in metrics
const (
	OutcomeCompleted = "completed"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
)

const staleReason = "processing timed out"

// Worker processes queued audio jobs of every tenant
type Worker struct {
	jobRepo     transcription.AudioJobRepository
	store       storage.ObjectStore
	transcriber Transcriber
	maxBytes    int64
	concurrency int
	metrics     *telemetry.Metrics
	events      shared.EventPublisher
	lists       *listing.Lists
	logger      *zap.Logger
	now         func() time.Time
}

// NewWorker creates a new Worker. concurrency bounds the jobs transcribed at once.
func NewWorker(
	jobRepo transcription.AudioJobRepository,
	store storage.ObjectStore,
	transcriber Transcriber,
	maxBytes int64,
	concurrency int,
	metrics *telemetry.Metrics,
	events shared.EventPublisher,
	lists *listing.Lists,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Worker{
		jobRepo:     jobRepo,
		store:       store,
		transcriber: transcriber,
		maxBytes:    maxBytes,
		concurrency: concurrency,
		metrics:     metrics,
		events:      events,
		lists:       lists,
		logger:      logger.With(zap.String("component", "audio_worker")),
		now:         time.Now,
	}
}

// ProcessPending claims up to limit pending jobs and transcribes them. It
// returns the number of jobs that completed. A failing job never stops the batch.
func (w *Worker) ProcessPending(ctx context.Context, limit int) (int, error) {
	jobs, err := w.jobRepo.ClaimPending(ctx, limit, w.now())
	if err != nil {
		return 0, err
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	completed := make([]bool, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for i := range jobs {
		job := &jobs[i]
		g.Go(func() error {
			completed[i] = w.process(gctx, job)
			return nil
		})
	}
	_ = g.Wait()

	n := 0
	for _, ok := range completed {
		if ok {
			n++
		}
	}
	return n, nil
}

func (w *Worker) process(ctx context.Context, job *transcription.AudioJob) bool {
	ctx, span := telemetry.StartServiceSpan(ctx, "audio", "transcribe",
		telemetry.SpanAttrTenantID, job.TenantID.String(),
		telemetry.SpanAttrAudioJobID, job.ID.String(),
		telemetry.SpanAttrContentType, job.ContentType,
		telemetry.SpanAttrSizeBytes, job.Size)
	defer span.End()

	log := w.logger.With(
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("audio_job_id", job.ID.String()),
		zap.Int("attempt", job.Attempts))

	analysis, err := w.transcribe(ctx, job)
	if err != nil {
		telemetry.RecordError(span, err)
		if ctx.Err() != nil {
			// Shutting down; the stale sweep puts the job back in the queue.
			log.Warn("Audio job interrupted", zap.Error(err))
			return false
		}
		if failErr := job.Fail(err.Error()); failErr != nil {
			log.Error("Failed to record audio job failure", zap.Error(failErr))
			return false
		}
		outcome := OutcomeRetried
		if job.Status == transcription.JobStatusFailed {
			outcome = OutcomeFailed
		}
		w.metrics.RecordAudioJob(outcome)
		log.Warn("Audio job failed", zap.String("outcome", outcome), zap.Error(err))
		w.save(ctx, job, log)
		return false
	}

	if err := job.Complete(analysis, w.now()); err != nil {
		log.Error("Failed to complete audio job", zap.Error(err))
		return false
	}
	if !w.save(ctx, job, log) {
		return false
	}
	w.metrics.RecordAudioJob(OutcomeCompleted)
	log.Info("Audio job completed", zap.Int("participants", len(job.Participants)))
	return true
}

func (w *Worker) transcribe(ctx context.Context, job *transcription.AudioJob) (transcription.Analysis, error) {
	audio, err := w.download(ctx, job)
	if err != nil {
		return transcription.Analysis{}, err
	}
	start := time.Now()
	analysis, err := w.transcriber.Transcribe(ctx, audio, job.ContentType)
	w.metrics.RecordAI("transcribe", time.Since(start), err)
	return analysis, err
}

func (w *Worker) download(ctx context.Context, job *transcription.AudioJob) ([]byte, error) {
	body, _, err := w.store.Get(ctx, storage.BucketAudioFiles, job.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, errors.New("recording not found in storage")
		}
		return nil, fmt.Errorf("failed to download recording: %w", err)
	}
	defer body.Close()

	reader := io.Reader(body)
	if w.maxBytes > 0 {
		reader = io.LimitReader(body, w.maxBytes+1)
	}
	audio, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read recording: %w", err)
	}
	if w.maxBytes > 0 && int64(len(audio)) > w.maxBytes {
		return nil, fmt.Errorf("recording exceeds %d bytes", w.maxBytes)
	}
	return audio, nil
}

func (w *Worker) save(ctx context.Context, job *transcription.AudioJob, log *zap.Logger) bool {
	if err := w.jobRepo.SaveProgress(ctx, job, transcription.JobStatusProcessing); err != nil {
		log.Error("Failed to save audio job", zap.Error(err))
		return false
	}
	w.lists.Changed(ctx, w.events, job, job.TenantID, listing.ResourceAudioJobs)
	return true
}

// RequeueStale fails jobs stuck in processing since before startedBefore so
// they are retried or given up on. It returns the number of jobs updated.
func (w *Worker) RequeueStale(ctx context.Context, startedBefore time.Time, limit int) (int, error) {
	jobs, err := w.jobRepo.FindStale(ctx, startedBefore, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range jobs {
		job := &jobs[i]
		log := w.logger.With(zap.String("audio_job_id", job.ID.String()))
		if err := job.Fail(staleReason); err != nil {
			log.Warn("Skipping stale audio job", zap.Error(err))
			continue
		}
		if job.Status == transcription.JobStatusFailed {
			w.metrics.RecordAudioJob(OutcomeFailed)
		} else {
			w.metrics.RecordAudioJob(OutcomeRetried)
		}
		if w.save(ctx, job, log) {
			n++
		}
	}
	return n, nil
}
