package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// DefaultTermDays is the quote validity and invoice payment term applied when
// no date is given
const DefaultTermDays = 30

// nextNumber reserves the next document number of series for the issue year
func nextNumber(ctx context.Context, numbers sales.NumberSequence, tenantID uuid.UUID, series string, issueDate time.Time) (string, error) {
	year := issueDate.Year()
	n, err := numbers.Next(ctx, tenantID, series, year)
	if err != nil {
		return "", err
	}
	return sales.FormatNumber(series, year, n), nil
}

// ensureContact checks that the contact exists in the tenant
func ensureContact(ctx context.Context, contactRepo partner.ContactRepository, tenantID, contactID uuid.UUID) error {
	if _, err := contactRepo.FindByIDForTenant(ctx, tenantID, contactID); err != nil {
		if shared.IsNotFound(err) {
			return shared.NewDomainError("INVALID_CONTACT", "Contact not found")
		}
		return err
	}
	return nil
}

func dateOr(t *time.Time, fallback time.Time) time.Time {
	if t == nil || t.IsZero() {
		return fallback
	}
	return *t
}

func termFrom(issueDate time.Time) *time.Time {
	t := issueDate.AddDate(0, 0, DefaultTermDays)
	return &t
}

func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}
