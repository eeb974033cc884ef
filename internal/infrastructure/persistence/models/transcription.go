package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/transcription"
)

// AudioJobModel is the persistence model for the AudioJob aggregate
type AudioJobModel struct {
	TenantModel
	Title        string                             `gorm:"type:varchar(200);not null"`
	StorageKey   string                             `gorm:"type:varchar(500);not null"`
	ContentType  string                             `gorm:"type:varchar(100);not null"`
	Size         int64                              `gorm:"not null"`
	ContactID    *uuid.UUID                         `gorm:"type:uuid;index"`
	Status       transcription.JobStatus            `gorm:"type:varchar(20);not null;default:'pending';index"`
	Attempts     int                                `gorm:"not null;default:0"`
	ErrorMessage string                             `gorm:"type:text"`
	Transcript   string                             `gorm:"type:text"`
	Summary      string                             `gorm:"type:text"`
	Participants JSON[[]string]                     `gorm:"type:jsonb;not null"`
	KeyMoments   JSON[[]transcription.KeyMoment]    `gorm:"type:jsonb;not null"`
	Dialogue     JSON[[]transcription.DialogueTurn] `gorm:"type:jsonb;not null"`
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// TableName returns the table name for GORM
func (AudioJobModel) TableName() string {
	return "audio_jobs"
}

// AudioJobModelFromDomain creates a persistence model from a domain AudioJob
func AudioJobModelFromDomain(j *transcription.AudioJob) *AudioJobModel {
	m := &AudioJobModel{
		Title:        j.Title,
		StorageKey:   j.StorageKey,
		ContentType:  j.ContentType,
		Size:         j.Size,
		ContactID:    j.ContactID,
		Status:       j.Status,
		Attempts:     j.Attempts,
		ErrorMessage: j.ErrorMessage,
		Transcript:   j.Transcript,
		Summary:      j.Summary,
		Participants: NewJSON(nonNil(j.Participants)),
		KeyMoments:   NewJSON(nonNil(j.KeyMoments)),
		Dialogue:     NewJSON(nonNil(j.Dialogue)),
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
	m.FromRoot(j.TenantAggregateRoot)
	return m
}

// ToDomain converts the model to a domain AudioJob
func (m *AudioJobModel) ToDomain() *transcription.AudioJob {
	return &transcription.AudioJob{
		TenantAggregateRoot: m.ToRoot(),
		Title:               m.Title,
		StorageKey:          m.StorageKey,
		ContentType:         m.ContentType,
		Size:                m.Size,
		ContactID:           m.ContactID,
		Status:              m.Status,
		Attempts:            m.Attempts,
		ErrorMessage:        m.ErrorMessage,
		Transcript:          m.Transcript,
		Summary:             m.Summary,
		Participants:        nonNil(m.Participants.Data),
		KeyMoments:          nonNil(m.KeyMoments.Data),
		Dialogue:            nonNil(m.Dialogue.Data),
		StartedAt:           m.StartedAt,
		CompletedAt:         m.CompletedAt,
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
