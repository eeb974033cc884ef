package transcription

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// AggregateTypeAudioJob is the aggregate type name for audio jobs
const AggregateTypeAudioJob = "audio_job"

// MaxAttempts is how many times processing is tried before a job stays failed
const MaxAttempts = 3

// JobStatus represents the processing status of an audio job
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
)

// IsValid checks if the status is a valid JobStatus
func (s JobStatus) IsValid() bool {
	switch s {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted, JobStatusFailed:
		return true
	}
	return false
}

// KeyMoment is a notable point of the recording
type KeyMoment struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
}

// DialogueTurn is one speaker turn of the transcript
type DialogueTurn struct {
	Speaker      string  `json:"speaker"`
	Text         string  `json:"text"`
	StartSeconds float64 `json:"start_seconds"`
}

// Analysis is the structured result of transcribing a recording
type Analysis struct {
	Transcript   string
	Summary      string
	Participants []string
	KeyMoments   []KeyMoment
	Dialogue     []DialogueTurn
}

// AudioJob is the aggregate root for a recording sent for transcription
type AudioJob struct {
	shared.TenantAggregateRoot
	Title        string
	StorageKey   string
	ContentType  string
	Size         int64
	ContactID    *uuid.UUID
	Status       JobStatus
	Attempts     int
	ErrorMessage string
	Transcript   string
	Summary      string
	Participants []string
	KeyMoments   []KeyMoment
	Dialogue     []DialogueTurn
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// NewAudioJob creates a pending job for an uploaded recording
func NewAudioJob(tenantID, createdBy uuid.UUID, title, storageKey, contentType string, size int64) (*AudioJob, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = "Untitled recording"
	}
	if len(title) > 200 {
		return nil, shared.NewDomainError("INVALID_TITLE", "Title cannot exceed 200 characters")
	}
	if strings.TrimSpace(storageKey) == "" {
		return nil, shared.NewDomainError("INVALID_STORAGE_KEY", "Audio file is required")
	}
	if !IsSupportedAudio(contentType) {
		return nil, shared.NewDomainError("UNSUPPORTED_AUDIO", "Unsupported audio format: "+contentType)
	}
	if size <= 0 {
		return nil, shared.NewDomainError("INVALID_AUDIO_SIZE", "Audio file is empty")
	}
	j := &AudioJob{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		Title:               title,
		StorageKey:          storageKey,
		ContentType:         contentType,
		Size:                size,
		Status:              JobStatusPending,
		Participants:        []string{},
		KeyMoments:          []KeyMoment{},
		Dialogue:            []DialogueTurn{},
	}
	j.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeAudioJob, shared.ChangeInsert, j.ID, tenantID))
	return j, nil
}

// Rename changes the title of the job
func (j *AudioJob) Rename(title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return shared.NewDomainError("INVALID_TITLE", "Title cannot be empty")
	}
	if len(title) > 200 {
		return shared.NewDomainError("INVALID_TITLE", "Title cannot exceed 200 characters")
	}
	j.Title = title
	j.Touch()
	j.addChange()
	return nil
}

// SetContact links the recording to a contact; nil unlinks it
func (j *AudioJob) SetContact(contactID *uuid.UUID) {
	if contactID != nil && *contactID == uuid.Nil {
		contactID = nil
	}
	j.ContactID = contactID
	j.Touch()
	j.addChange()
}

// Start claims a pending job for processing
func (j *AudioJob) Start(now time.Time) error {
	if j.Status != JobStatusPending {
		return shared.ErrInvalidState.WithMessage("Only pending jobs can be started")
	}
	j.Status = JobStatusProcessing
	j.Attempts++
	j.StartedAt = &now
	j.ErrorMessage = ""
	j.Touch()
	j.addChange()
	return nil
}

// Complete stores the analysis of a processing job
func (j *AudioJob) Complete(a Analysis, now time.Time) error {
	if j.Status != JobStatusProcessing {
		return shared.ErrInvalidState.WithMessage("Only processing jobs can be completed")
	}
	j.Status = JobStatusCompleted
	j.Transcript = strings.TrimSpace(a.Transcript)
	j.Summary = strings.TrimSpace(a.Summary)
	j.Participants = nonNil(a.Participants)
	j.KeyMoments = a.KeyMoments
	if j.KeyMoments == nil {
		j.KeyMoments = []KeyMoment{}
	}
	j.Dialogue = a.Dialogue
	if j.Dialogue == nil {
		j.Dialogue = []DialogueTurn{}
	}
	j.CompletedAt = &now
	j.Touch()
	j.addChange()
	return nil
}

// Fail records a processing error. The job goes back to pending while attempts remain.
func (j *AudioJob) Fail(reason string) error {
	if j.Status != JobStatusProcessing {
		return shared.ErrInvalidState.WithMessage("Only processing jobs can fail")
	}
	j.ErrorMessage = truncate(strings.TrimSpace(reason), 1000)
	if j.Attempts < MaxAttempts {
		j.Status = JobStatusPending
	} else {
		j.Status = JobStatusFailed
	}
	j.Touch()
	j.addChange()
	return nil
}

// Retry resets a failed job so it is picked up again
func (j *AudioJob) Retry() error {
	if j.Status != JobStatusFailed {
		return shared.ErrInvalidState.WithMessage("Only failed jobs can be retried")
	}
	j.Status = JobStatusPending
	j.Attempts = 0
	j.ErrorMessage = ""
	j.Touch()
	j.addChange()
	return nil
}

// IsStale reports whether a processing job has been running longer than timeout
func (j *AudioJob) IsStale(now time.Time, timeout time.Duration) bool {
	return j.Status == JobStatusProcessing && j.StartedAt != nil && now.Sub(*j.StartedAt) > timeout
}

// MarkDeleted records the delete event for the job
func (j *AudioJob) MarkDeleted() error {
	if j.Status == JobStatusProcessing {
		return shared.ErrInvalidState.WithMessage("Cannot delete a job while it is processing")
	}
	j.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeAudioJob, shared.ChangeDelete, j.ID, j.TenantID))
	return nil
}

func (j *AudioJob) addChange() {
	j.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeAudioJob, shared.ChangeUpdate, j.ID, j.TenantID))
}

var supportedAudio = map[string]bool{
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/webm":  true,
	"audio/ogg":   true,
	"audio/mp4":   true,
	"audio/x-m4a": true,
	"audio/aac":   true,
	"audio/flac":  true,
}

// IsSupportedAudio reports whether the content type can be transcribed
func IsSupportedAudio(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return supportedAudio[ct]
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
