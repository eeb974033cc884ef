package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/transcription"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/models"
	"github.com/ribotflow/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var audioJobList = listSpec{
	searchColumns: []string{"title", "summary"},
	filters: []filterColumn{
		{key: "status", column: "status"},
		{key: "contact_id", column: "contact_id"},
	},
	dateColumn:  "created_at",
	sorts:       audioSorts,
	defaultSort: "created_at",
}

// GormAudioJobRepository implements transcription.AudioJobRepository using GORM
type GormAudioJobRepository struct {
	db *gorm.DB
}

// NewGormAudioJobRepository creates a new GormAudioJobRepository
func NewGormAudioJobRepository(db *gorm.DB) *GormAudioJobRepository {
	return &GormAudioJobRepository{db: db}
}

// FindByIDForTenant finds a job by ID within a tenant
func (r *GormAudioJobRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*transcription.AudioJob, error) {
	var model models.AudioJobModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		return tx.Where("tenant_id = ? AND id = ?", tenantID, id).First(&model).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return model.ToDomain(), nil
}

// FindAllForTenant lists jobs. Transcripts are omitted from the list.
func (r *GormAudioJobRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]transcription.AudioJob, error) {
	var rows []models.AudioJobModel
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := audioJobList.applyFilters(tx.Model(&models.AudioJobModel{}).Where("tenant_id = ?", tenantID), query)
		return audioJobList.applyPaging(db, query).Omit("transcript", "dialogue").Find(&rows).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]transcription.AudioJob, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// CountForTenant counts jobs matching the query filters
func (r *GormAudioJobRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	var count int64
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		db := audioJobList.applyFilters(tx.Model(&models.AudioJobModel{}).Where("tenant_id = ?", tenantID), query)
		return db.Count(&count).Error
	})
	return count, translate(err)
}

// ClaimPending locks up to limit pending jobs of any tenant, skipping rows held by
// other workers, and moves them to processing within the same transaction.
func (r *GormAudioJobRepository) ClaimPending(ctx context.Context, limit int, now time.Time) ([]transcription.AudioJob, error) {
	var claimed []transcription.AudioJob
	err := tenant.System(ctx, r.db, func(tx *gorm.DB) error {
		var rows []models.AudioJobModel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", transcription.JobStatusPending).
			Order("created_at ASC").
			Limit(limit).
			Find(&rows).Error; err != nil {
			return err
		}
		for i := range rows {
			job := rows[i].ToDomain()
			if err := job.Start(now); err != nil {
				continue
			}
			if err := tx.Model(&models.AudioJobModel{}).
				Where("id = ?", job.ID).
				Updates(map[string]any{
					"status":        job.Status,
					"attempts":      job.Attempts,
					"started_at":    job.StartedAt,
					"error_message": "",
					"updated_at":    job.UpdatedAt,
				}).Error; err != nil {
				return err
			}
			claimed = append(claimed, *job)
		}
		return nil
	})
	if err != nil {
		return nil, translate(err)
	}
	return claimed, nil
}

// FindStale returns processing jobs of any tenant started before the given time
func (r *GormAudioJobRepository) FindStale(ctx context.Context, startedBefore time.Time, limit int) ([]transcription.AudioJob, error) {
	var rows []models.AudioJobModel
	err := tenant.System(ctx, r.db, func(tx *gorm.DB) error {
		return tx.Where("status = ? AND started_at < ?", transcription.JobStatusProcessing, startedBefore).
			Order("started_at ASC").
			Limit(limit).
			Find(&rows).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	out := make([]transcription.AudioJob, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out, nil
}

// Save creates or updates a job. Jobs handled by the worker are saved from a
// system context, so the tenant of the job is used for the session.
func (r *GormAudioJobRepository) Save(ctx context.Context, job *transcription.AudioJob) error {
	model := models.AudioJobModelFromDomain(job)
	err := tenant.Session(ctx, r.db, job.TenantID, func(tx *gorm.DB) error {
		return tx.Save(model).Error
	})
	return translate(err)
}

// UpdateDetails writes title and contact without touching the processing state
func (r *GormAudioJobRepository) UpdateDetails(ctx context.Context, job *transcription.AudioJob) error {
	err := tenant.Session(ctx, r.db, job.TenantID, func(tx *gorm.DB) error {
		result := tx.Model(&models.AudioJobModel{}).
			Where("tenant_id = ? AND id = ?", job.TenantID, job.ID).
			Updates(map[string]any{
				"title":      job.Title,
				"contact_id": job.ContactID,
				"updated_at": job.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err)
}

// SaveProgress writes a status transition and its results. The row must still
// be in status from, so a worker and a sweep never overwrite each other.
func (r *GormAudioJobRepository) SaveProgress(ctx context.Context, job *transcription.AudioJob, from transcription.JobStatus) error {
	m := models.AudioJobModelFromDomain(job)
	var changed int64
	err := tenant.Session(ctx, r.db, job.TenantID, func(tx *gorm.DB) error {
		result := tx.Model(&models.AudioJobModel{}).
			Where("tenant_id = ? AND id = ? AND status = ?", job.TenantID, job.ID, from).
			Updates(map[string]any{
				"status":        m.Status,
				"attempts":      m.Attempts,
				"error_message": m.ErrorMessage,
				"transcript":    m.Transcript,
				"summary":       m.Summary,
				"participants":  m.Participants,
				"key_moments":   m.KeyMoments,
				"dialogue":      m.Dialogue,
				"started_at":    m.StartedAt,
				"completed_at":  m.CompletedAt,
				"updated_at":    job.UpdatedAt,
			})
		changed = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return translate(err)
	}
	if changed == 0 {
		return shared.ErrInvalidState.WithMessage("Audio job is no longer " + string(from))
	}
	return nil
}

// DeleteForTenant deletes a job row. The stored audio is removed by the caller.
func (r *GormAudioJobRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	err := tenant.Session(ctx, r.db, tenantID, func(tx *gorm.DB) error {
		result := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.AudioJobModel{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return translate(err)
}

// Ensure GormAudioJobRepository implements transcription.AudioJobRepository
var _ transcription.AudioJobRepository = (*GormAudioJobRepository)(nil)
