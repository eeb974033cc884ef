package transcription

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/transcription"
)

// UploadAudioRequest carries the form fields sent with a recording
type UploadAudioRequest struct {
	Title     string `form:"title" binding:"max=200"`
	ContactID string `form:"contact_id" binding:"omitempty,uuid"`
}

// AudioFile is the recording received from a multipart request
type AudioFile struct {
	FileName    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// UpdateAudioJobRequest changes the title or the linked contact of a job
type UpdateAudioJobRequest struct {
	Title     *string    `json:"title" binding:"omitempty,max=200"`
	ContactID *uuid.UUID `json:"contact_id"`
}

// AudioJobListFilter represents filter options for the audio job list
type AudioJobListFilter struct {
	listing.Params
	listing.DateRange
	Status    string `form:"status" binding:"omitempty,oneof=pending processing completed failed"`
	ContactID string `form:"contact_id" binding:"omitempty,uuid"`
}

// Query builds the repository query
func (f AudioJobListFilter) Query() shared.ListQuery {
	q := f.Params.Query()
	if f.Status != "" {
		q.Filters["status"] = f.Status
	}
	if id, err := uuid.Parse(f.ContactID); err == nil {
		q.Filters["contact_id"] = id
	}
	f.DateRange.Apply(q)
	return q
}

// AudioJobResponse represents an audio job in API responses
type AudioJobResponse struct {
	ID           uuid.UUID                    `json:"id"`
	TenantID     uuid.UUID                    `json:"tenant_id"`
	Title        string                       `json:"title"`
	ContentType  string                       `json:"content_type"`
	Size         int64                        `json:"size"`
	ContactID    *uuid.UUID                   `json:"contact_id,omitempty"`
	Status       string                       `json:"status"`
	Attempts     int                          `json:"attempts"`
	ErrorMessage string                       `json:"error_message,omitempty"`
	Transcript   string                       `json:"transcript,omitempty"`
	Summary      string                       `json:"summary,omitempty"`
	Participants []string                     `json:"participants"`
	KeyMoments   []transcription.KeyMoment    `json:"key_moments"`
	Dialogue     []transcription.DialogueTurn `json:"dialogue"`
	StartedAt    *time.Time                   `json:"started_at,omitempty"`
	CompletedAt  *time.Time                   `json:"completed_at,omitempty"`
	CreatedAt    time.Time                    `json:"created_at"`
	UpdatedAt    time.Time                    `json:"updated_at"`
}

// AudioURLResponse is a time-limited link to the recording
type AudioURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ToAudioJobResponse converts a domain AudioJob to AudioJobResponse.
// Lists leave the transcript out to keep pages small.
func ToAudioJobResponse(j *transcription.AudioJob, withTranscript bool) AudioJobResponse {
	resp := AudioJobResponse{
		ID:           j.ID,
		TenantID:     j.TenantID,
		Title:        j.Title,
		ContentType:  j.ContentType,
		Size:         j.Size,
		ContactID:    j.ContactID,
		Status:       string(j.Status),
		Attempts:     j.Attempts,
		ErrorMessage: j.ErrorMessage,
		Summary:      j.Summary,
		Participants: j.Participants,
		KeyMoments:   j.KeyMoments,
		Dialogue:     j.Dialogue,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
	if withTranscript {
		resp.Transcript = j.Transcript
	} else {
		resp.Dialogue = nil
	}
	if resp.Participants == nil {
		resp.Participants = []string{}
	}
	if resp.KeyMoments == nil {
		resp.KeyMoments = []transcription.KeyMoment{}
	}
	if resp.Dialogue == nil {
		resp.Dialogue = []transcription.DialogueTurn{}
	}
	return resp
}
