package partner

import (
	"strings"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// AggregateTypeSupplier is the aggregate type name for suppliers
const AggregateTypeSupplier = "supplier"

// Supplier is a company the tenant buys from. Expenses and contacts may reference it.
type Supplier struct {
	shared.TenantAggregateRoot
	Name  string
	TaxID string
	ContactInfo
	Website string
	Notes   string
}

// NewSupplier creates a new supplier
func NewSupplier(tenantID, createdBy uuid.UUID, name, taxID string) (*Supplier, error) {
	s := &Supplier{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
	}
	if err := s.Rename(name, taxID); err != nil {
		return nil, err
	}
	s.ClearDomainEvents()
	s.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeSupplier, shared.ChangeInsert, s.ID, tenantID))
	return s, nil
}

// Rename updates the name and tax id
func (s *Supplier) Rename(name, taxID string) error {
	name = strings.TrimSpace(name)
	if err := validateName("INVALID_NAME", "Supplier name", name, 200); err != nil {
		return err
	}
	taxID = NormalizeTaxID(taxID)
	if taxID != "" {
		if err := validateTaxID(taxID); err != nil {
			return err
		}
	}
	s.Name = name
	s.TaxID = taxID
	s.Touch()
	s.addChange()
	return nil
}

// SetContactInfo replaces the contact details
func (s *Supplier) SetContactInfo(info ContactInfo) error {
	info = info.Normalize()
	if err := info.Validate(); err != nil {
		return err
	}
	s.ContactInfo = info
	s.Touch()
	s.addChange()
	return nil
}

// SetDetails sets the free-form fields
func (s *Supplier) SetDetails(website, notes string) error {
	website = strings.TrimSpace(website)
	if len(website) > 255 {
		return shared.NewDomainError("INVALID_WEBSITE", "Website cannot exceed 255 characters")
	}
	s.Website = website
	s.Notes = strings.TrimSpace(notes)
	s.Touch()
	s.addChange()
	return nil
}

// MarkDeleted records the delete event for the supplier
func (s *Supplier) MarkDeleted() {
	s.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeSupplier, shared.ChangeDelete, s.ID, s.TenantID))
}

func (s *Supplier) addChange() {
	s.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeSupplier, shared.ChangeUpdate, s.ID, s.TenantID))
}
