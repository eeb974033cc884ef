package transcription

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/transcription"
	"github.com/ribotflow/backend/internal/infrastructure/storage"
	"github.com/ribotflow/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Limits bounds uploaded recordings and download links
type Limits struct {
	MaxAudioBytes int64
	URLExpiration time.Duration
}

func (l Limits) withDefaults() Limits {
	if l.MaxAudioBytes <= 0 {
		l.MaxAudioBytes = 20 << 20
	}
	if l.URLExpiration <= 0 {
		l.URLExpiration = 15 * time.Minute
	}
	return l
}

// AudioService handles the audio jobs a user uploads and manages
type AudioService struct {
	jobRepo     transcription.AudioJobRepository
	contactRepo partner.ContactRepository
	store       storage.ObjectStore
	limits      Limits
	events      shared.EventPublisher
	lists       *listing.Lists
	logger      *zap.Logger
}

// NewAudioService creates a new AudioService
func NewAudioService(
	jobRepo transcription.AudioJobRepository,
	contactRepo partner.ContactRepository,
	store storage.ObjectStore,
	limits Limits,
	events shared.EventPublisher,
	lists *listing.Lists,
	logger *zap.Logger,
) *AudioService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AudioService{
		jobRepo:     jobRepo,
		contactRepo: contactRepo,
		store:       store,
		limits:      limits.withDefaults(),
		events:      events,
		lists:       lists,
		logger:      logger,
	}
}

// Upload stores the recording and queues a pending job
func (s *AudioService) Upload(ctx context.Context, tenantID, userID uuid.UUID, req UploadAudioRequest, file AudioFile) (*AudioJobResponse, error) {
	if file.Size <= 0 {
		return nil, shared.NewDomainError("INVALID_AUDIO_SIZE", "Audio file is empty")
	}
	if file.Size > s.limits.MaxAudioBytes {
		return nil, shared.NewDomainError("AUDIO_TOO_LARGE", "Audio file exceeds the maximum size")
	}
	if !transcription.IsSupportedAudio(file.ContentType) {
		return nil, shared.NewDomainError("UNSUPPORTED_AUDIO", "Unsupported audio format: "+file.ContentType)
	}
	contactID, err := s.contactFrom(ctx, tenantID, req.ContactID)
	if err != nil {
		return nil, err
	}

	title := req.Title
	name := path.Base(strings.ReplaceAll(file.FileName, "\\", "/"))
	if strings.TrimSpace(title) == "" && name != "." && name != "/" {
		title = strings.TrimSuffix(name, path.Ext(name))
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "audio", "upload",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrContentType, file.ContentType,
		telemetry.SpanAttrSizeBytes, file.Size)
	defer span.End()

	key := storage.ObjectKey(tenantID, "audio", uuid.NewString()+path.Ext(name))
	job, err := transcription.NewAudioJob(tenantID, userID, title, key, file.ContentType, file.Size)
	if err != nil {
		return nil, err
	}
	if contactID != nil {
		job.SetContact(contactID)
	}

	if err := s.store.Put(ctx, storage.BucketAudioFiles, key, file.Body, file.Size, file.ContentType); err != nil {
		telemetry.RecordError(span, err)
		return nil, shared.NewUnexpectedError("UPLOAD_FAILED", "Failed to store the recording")
	}
	if err := s.jobRepo.Save(ctx, job); err != nil {
		telemetry.RecordError(span, err)
		s.removeObject(ctx, key)
		return nil, err
	}
	s.lists.Changed(ctx, s.events, job, tenantID, listing.ResourceAudioJobs)

	s.logger.Info("Audio job queued",
		zap.String("tenant_id", tenantID.String()),
		zap.String("audio_job_id", job.ID.String()),
		zap.Int64("size", file.Size))
	response := ToAudioJobResponse(job, true)
	return &response, nil
}

// GetByID retrieves an audio job with its transcript
func (s *AudioService) GetByID(ctx context.Context, tenantID, jobID uuid.UUID) (*AudioJobResponse, error) {
	job, err := s.jobRepo.FindByIDForTenant(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	response := ToAudioJobResponse(job, true)
	return &response, nil
}

// List retrieves a page of audio jobs without transcripts
func (s *AudioService) List(ctx context.Context, tenantID uuid.UUID, filter AudioJobListFilter) (shared.Page[AudioJobResponse], error) {
	q := filter.Query()
	return listing.Cached(ctx, s.lists, tenantID, listing.ResourceAudioJobs, q, func(ctx context.Context) (shared.Page[AudioJobResponse], error) {
		page, err := listing.Fetch(ctx, q,
			func(ctx context.Context, q shared.ListQuery) ([]transcription.AudioJob, error) {
				return s.jobRepo.FindAllForTenant(ctx, tenantID, q)
			},
			func(ctx context.Context, q shared.ListQuery) (int64, error) {
				return s.jobRepo.CountForTenant(ctx, tenantID, q)
			},
		)
		if err != nil {
			return shared.Page[AudioJobResponse]{}, err
		}
		return shared.MapPage(page, func(j transcription.AudioJob) AudioJobResponse {
			return ToAudioJobResponse(&j, false)
		}), nil
	})
}

// Update renames a job or changes its contact
func (s *AudioService) Update(ctx context.Context, tenantID, jobID uuid.UUID, req UpdateAudioJobRequest) (*AudioJobResponse, error) {
	job, err := s.jobRepo.FindByIDForTenant(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if req.Title != nil {
		if err := job.Rename(*req.Title); err != nil {
			return nil, err
		}
	}
	if req.ContactID != nil {
		contactID := req.ContactID
		if *contactID == uuid.Nil {
			contactID = nil
		} else if err := s.ensureContact(ctx, tenantID, *contactID); err != nil {
			return nil, err
		}
		job.SetContact(contactID)
	}

	// The worker may be writing results concurrently; only the edited columns are stored
	if err := s.jobRepo.UpdateDetails(ctx, job); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, job, tenantID, listing.ResourceAudioJobs)

	response := ToAudioJobResponse(job, true)
	return &response, nil
}

// Delete removes a job and its recording. Jobs being processed cannot be deleted.
func (s *AudioService) Delete(ctx context.Context, tenantID, jobID uuid.UUID) error {
	job, err := s.jobRepo.FindByIDForTenant(ctx, tenantID, jobID)
	if err != nil {
		return err
	}
	if err := job.MarkDeleted(); err != nil {
		return err
	}
	if err := s.jobRepo.DeleteForTenant(ctx, tenantID, jobID); err != nil {
		return err
	}
	s.removeObject(ctx, job.StorageKey)
	s.lists.Changed(ctx, s.events, job, tenantID, listing.ResourceAudioJobs)
	return nil
}

// Retry puts a failed job back in the queue
func (s *AudioService) Retry(ctx context.Context, tenantID, jobID uuid.UUID) (*AudioJobResponse, error) {
	job, err := s.jobRepo.FindByIDForTenant(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if err := job.Retry(); err != nil {
		return nil, err
	}
	if err := s.jobRepo.SaveProgress(ctx, job, transcription.JobStatusFailed); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, job, tenantID, listing.ResourceAudioJobs)

	response := ToAudioJobResponse(job, true)
	return &response, nil
}

// AudioURL returns a time-limited link to play the recording
func (s *AudioService) AudioURL(ctx context.Context, tenantID, jobID uuid.UUID) (*AudioURLResponse, error) {
	job, err := s.jobRepo.FindByIDForTenant(ctx, tenantID, jobID)
	if err != nil {
		return nil, err
	}
	if !storage.BelongsTo(job.StorageKey, tenantID) {
		return nil, shared.ErrNotFound.WithMessage("Recording not found")
	}
	url, expiresAt, err := s.store.PresignGet(ctx, storage.BucketAudioFiles, job.StorageKey, s.limits.URLExpiration)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, shared.ErrNotFound.WithMessage("Recording not found")
		}
		return nil, err
	}
	return &AudioURLResponse{URL: url, ExpiresAt: expiresAt}, nil
}

func (s *AudioService) contactFrom(ctx context.Context, tenantID uuid.UUID, raw string) (*uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, shared.NewDomainError("INVALID_CONTACT", "Invalid contact id")
	}
	if err := s.ensureContact(ctx, tenantID, id); err != nil {
		return nil, err
	}
	return &id, nil
}

func (s *AudioService) ensureContact(ctx context.Context, tenantID, contactID uuid.UUID) error {
	if _, err := s.contactRepo.FindByIDForTenant(ctx, tenantID, contactID); err != nil {
		if shared.IsNotFound(err) {
			return shared.NewDomainError("INVALID_CONTACT", "Contact not found")
		}
		return err
	}
	return nil
}

func (s *AudioService) removeObject(ctx context.Context, key string) {
	err := s.store.Delete(ctx, storage.BucketAudioFiles, key)
	if err != nil && !errors.Is(err, storage.ErrObjectNotFound) {
		s.logger.Warn("Failed to delete recording", zap.String("key", key), zap.Error(err))
	}
}
