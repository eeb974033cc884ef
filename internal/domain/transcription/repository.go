package transcription

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// AudioJobRepository defines persistence operations for audio jobs
type AudioJobRepository interface {
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*AudioJob, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]AudioJob, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error)
	// ClaimPending atomically moves up to limit pending jobs of any tenant to processing
	// and returns them. Jobs claimed by another worker are skipped.
	ClaimPending(ctx context.Context, limit int, now time.Time) ([]AudioJob, error)
	// FindStale returns processing jobs started before the given time
	FindStale(ctx context.Context, startedBefore time.Time, limit int) ([]AudioJob, error)
	Save(ctx context.Context, job *AudioJob) error
	// UpdateDetails writes only the user-editable columns (title, contact)
	UpdateDetails(ctx context.Context, job *AudioJob) error
	// SaveProgress writes the processing columns, but only while the stored job
	// is still in status from. Otherwise it returns shared.ErrInvalidState.
	SaveProgress(ctx context.Context, job *AudioJob, from JobStatus) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
