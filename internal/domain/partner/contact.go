package partner

import (
	"strings"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// AggregateTypeContact is the aggregate type name for contacts
const AggregateTypeContact = "contact"

// ContactStage is the position of a contact in the sales funnel
type ContactStage string

const (
	ContactStageLead     ContactStage = "lead"
	ContactStageProspect ContactStage = "prospect"
	ContactStageCustomer ContactStage = "customer"
	ContactStageInactive ContactStage = "inactive"
)

// IsValid checks if the stage is known
func (s ContactStage) IsValid() bool {
	switch s {
	case ContactStageLead, ContactStageProspect, ContactStageCustomer, ContactStageInactive:
		return true
	}
	return false
}

// Contact is a CRM person or company that receives quotes and invoices
type Contact struct {
	shared.TenantAggregateRoot
	Name     string
	Company  string
	JobTitle string
	TaxID    string
	ContactInfo
	Stage      ContactStage
	SupplierID *uuid.UUID
	Notes      string
}

// NewContact creates a new lead contact
func NewContact(tenantID, createdBy uuid.UUID, name string) (*Contact, error) {
	name = strings.TrimSpace(name)
	if err := validateName("INVALID_NAME", "Contact name", name, 200); err != nil {
		return nil, err
	}
	c := &Contact{
		TenantAggregateRoot: shared.NewTenantAggregateRootWithCreator(tenantID, createdBy),
		Name:                name,
		Stage:               ContactStageLead,
	}
	c.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeContact, shared.ChangeInsert, c.ID, tenantID))
	return c, nil
}

// UpdateProfile changes the identity fields
func (c *Contact) UpdateProfile(name, company, jobTitle, taxID string) error {
	name = strings.TrimSpace(name)
	if err := validateName("INVALID_NAME", "Contact name", name, 200); err != nil {
		return err
	}
	company = strings.TrimSpace(company)
	if len(company) > 200 {
		return shared.NewDomainError("INVALID_COMPANY", "Company cannot exceed 200 characters")
	}
	jobTitle = strings.TrimSpace(jobTitle)
	if len(jobTitle) > 100 {
		return shared.NewDomainError("INVALID_JOB_TITLE", "Job title cannot exceed 100 characters")
	}
	taxID = NormalizeTaxID(taxID)
	if taxID != "" {
		if err := validateTaxID(taxID); err != nil {
			return err
		}
	}
	c.Name = name
	c.Company = company
	c.JobTitle = jobTitle
	c.TaxID = taxID
	c.Touch()
	c.addChange()
	return nil
}

// SetContactInfo replaces the contact details
func (c *Contact) SetContactInfo(info ContactInfo) error {
	info = info.Normalize()
	if err := info.Validate(); err != nil {
		return err
	}
	c.ContactInfo = info
	c.Touch()
	c.addChange()
	return nil
}

// SetStage moves the contact to another funnel stage
func (c *Contact) SetStage(stage ContactStage) error {
	if !stage.IsValid() {
		return shared.NewDomainError("INVALID_STAGE", "Invalid contact stage")
	}
	c.Stage = stage
	c.Touch()
	c.addChange()
	return nil
}

// LinkSupplier associates the contact with a supplier; nil unlinks it
func (c *Contact) LinkSupplier(supplierID *uuid.UUID) {
	if supplierID != nil && *supplierID == uuid.Nil {
		supplierID = nil
	}
	c.SupplierID = supplierID
	c.Touch()
	c.addChange()
}

// SetNotes replaces the notes
func (c *Contact) SetNotes(notes string) {
	c.Notes = strings.TrimSpace(notes)
	c.Touch()
}

// DisplayName returns the name to print on documents
func (c *Contact) DisplayName() string {
	if c.Company != "" {
		return c.Company
	}
	return c.Name
}

// MarkDeleted records the delete event for the contact
func (c *Contact) MarkDeleted() {
	c.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeContact, shared.ChangeDelete, c.ID, c.TenantID))
}

func (c *Contact) addChange() {
	c.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeContact, shared.ChangeUpdate, c.ID, c.TenantID))
}
