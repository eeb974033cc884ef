package transcription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/transcription"
	"github.com/ribotflow/backend/internal/infrastructure/storage"
	"github.com/ribotflow/backend/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var workerNow = time.Date(2026, 7, 1, 10, 0, 0, 0, time.UTC)

func newTestWorker(f *audioFixture, transcriber Transcriber, maxBytes int64) *Worker {
	w := NewWorker(f.jobs, f.store, transcriber, maxBytes, 2, telemetry.NewMetrics(), f.events, listing.Disabled(), zap.NewNop())
	w.now = func() time.Time { return workerNow }
	return w
}

// claimed returns a job as ClaimPending hands it out
func claimed(t *testing.T, f *audioFixture) transcription.AudioJob {
	t.Helper()
	job := f.storedJob(t)
	require.NoError(t, job.Start(workerNow))
	job.ClearDomainEvents()
	return *job
}

func TestWorker_ProcessPending_Completes(t *testing.T) {
	f := newAudioFixture()
	transcriber := new(MockTranscriber)
	w := newTestWorker(f, transcriber, 0)
	job := claimed(t, f)

	f.jobs.On("ClaimPending", mock.Anything, 5, workerNow).Return([]transcription.AudioJob{job}, nil)
	transcriber.On("Transcribe", mock.Anything, []byte("ID3audio"), "audio/mpeg").Return(transcription.Analysis{
		Transcript:   "Buenos días",
		Summary:      "Llamada breve",
		Participants: []string{"Ana", "Luis"},
	}, nil)
	f.jobs.On("SaveProgress", mock.Anything, mock.MatchedBy(func(j *transcription.AudioJob) bool {
		return j.ID == job.ID && j.Status == transcription.JobStatusCompleted && j.Transcript == "Buenos días"
	}), transcription.JobStatusProcessing).Return(nil)

	n, err := w.ProcessPending(context.Background(), 5)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []string{"audio_job.UPDATE"}, f.events.types())
	f.jobs.AssertExpectations(t)
}

func TestWorker_ProcessPending_FailureRequeues(t *testing.T) {
	f := newAudioFixture()
	transcriber := new(MockTranscriber)
	w := newTestWorker(f, transcriber, 0)
	job := claimed(t, f)

	f.jobs.On("ClaimPending", mock.Anything, 2, workerNow).Return([]transcription.AudioJob{job}, nil)
	transcriber.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return(transcription.Analysis{}, errors.New("503 unavailable"))
	f.jobs.On("SaveProgress", mock.Anything, mock.MatchedBy(func(j *transcription.AudioJob) bool {
		return j.Status == transcription.JobStatusPending && j.ErrorMessage == "503 unavailable"
	}), transcription.JobStatusProcessing).Return(nil)

	n, err := w.ProcessPending(context.Background(), 2)

	require.NoError(t, err)
	assert.Zero(t, n)
	f.jobs.AssertExpectations(t)
}

func TestWorker_ProcessPending_LastAttemptFails(t *testing.T) {
	f := newAudioFixture()
	transcriber := new(MockTranscriber)
	w := newTestWorker(f, transcriber, 0)
	job := claimed(t, f)
	job.Attempts = transcription.MaxAttempts

	f.jobs.On("ClaimPending", mock.Anything, 2, workerNow).Return([]transcription.AudioJob{job}, nil)
	transcriber.On("Transcribe", mock.Anything, mock.Anything, mock.Anything).Return(transcription.Analysis{}, errors.New("invalid audio"))
	f.jobs.On("SaveProgress", mock.Anything, mock.MatchedBy(func(j *transcription.AudioJob) bool {
		return j.Status == transcription.JobStatusFailed
	}), transcription.JobStatusProcessing).Return(nil)

	_, err := w.ProcessPending(context.Background(), 2)

	require.NoError(t, err)
	f.jobs.AssertExpectations(t)
}

func TestWorker_ProcessPending_MissingRecording(t *testing.T) {
	f := newAudioFixture()
	transcriber := new(MockTranscriber)
	w := newTestWorker(f, transcriber, 0)
	job := claimed(t, f)
	require.NoError(t, f.store.Delete(context.Background(), storage.BucketAudioFiles, job.StorageKey))

	f.jobs.On("ClaimPending", mock.Anything, 2, workerNow).Return([]transcription.AudioJob{job}, nil)
	f.jobs.On("SaveProgress", mock.Anything, mock.MatchedBy(func(j *transcription.AudioJob) bool {
		return j.ErrorMessage == "recording not found in storage"
	}), transcription.JobStatusProcessing).Return(nil)

	_, err := w.ProcessPending(context.Background(), 2)

	require.NoError(t, err)
	transcriber.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything, mock.Anything)
	f.jobs.AssertExpectations(t)
}

func TestWorker_ProcessPending_RecordingTooLarge(t *testing.T) {
	f := newAudioFixture()
	transcriber := new(MockTranscriber)
	w := newTestWorker(f, transcriber, 4)
	job := claimed(t, f)

	f.jobs.On("ClaimPending", mock.Anything, 2, workerNow).Return([]transcription.AudioJob{job}, nil)
	f.jobs.On("SaveProgress", mock.Anything, mock.MatchedBy(func(j *transcription.AudioJob) bool {
		return j.ErrorMessage == "recording exceeds 4 bytes"
	}), transcription.JobStatusProcessing).Return(nil)

	_, err := w.ProcessPending(context.Background(), 2)

	require.NoError(t, err)
	transcriber.AssertNotCalled(t, "Transcribe", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorker_ProcessPending_ClaimError(t *testing.T) {
	f := newAudioFixture()
	w := newTestWorker(f, new(MockTranscriber), 0)

	f.jobs.On("ClaimPending", mock.Anything, 2, workerNow).Return([]transcription.AudioJob{}, errors.New("lock timeout"))

	n, err := w.ProcessPending(context.Background(), 2)

	assert.Error(t, err)
	assert.Zero(t, n)
}

func TestWorker_RequeueStale(t *testing.T) {
	f := newAudioFixture()
	w := newTestWorker(f, new(MockTranscriber), 0)
	stale := claimed(t, f)
	pending := *f.storedJob(t)
	before := workerNow.Add(-15 * time.Minute)

	f.jobs.On("FindStale", mock.Anything, before, 50).Return([]transcription.AudioJob{stale, pending}, nil)
	f.jobs.On("SaveProgress", mock.Anything, mock.MatchedBy(func(j *transcription.AudioJob) bool {
		return j.ID == stale.ID && j.Status == transcription.JobStatusPending && j.ErrorMessage == staleReason
	}), transcription.JobStatusProcessing).Return(nil)

	n, err := w.RequeueStale(context.Background(), before, 50)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	f.jobs.AssertNumberOfCalls(t, "SaveProgress", 1)
}
