package partner

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// ContactService handles CRM contact operations
type ContactService struct {
	contactRepo  partner.ContactRepository
	supplierRepo partner.SupplierRepository
	quoteRepo    sales.QuoteRepository
	invoiceRepo  sales.InvoiceRepository
	events       shared.EventPublisher
	lists        *listing.Lists
}

// NewContactService creates a new ContactService
func NewContactService(
	contactRepo partner.ContactRepository,
	supplierRepo partner.SupplierRepository,
	quoteRepo sales.QuoteRepository,
	invoiceRepo sales.InvoiceRepository,
	events shared.EventPublisher,
	lists *listing.Lists,
) *ContactService {
	return &ContactService{
		contactRepo:  contactRepo,
		supplierRepo: supplierRepo,
		quoteRepo:    quoteRepo,
		invoiceRepo:  invoiceRepo,
		events:       events,
		lists:        lists,
	}
}

// Create creates a new contact
func (s *ContactService) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreateContactRequest) (*ContactResponse, error) {
	if err := s.ensureEmailAvailable(ctx, tenantID, "", req.Email); err != nil {
		return nil, err
	}

	contact, err := partner.NewContact(tenantID, userID, req.Name)
	if err != nil {
		return nil, err
	}
	if err := s.apply(ctx, tenantID, contact, req); err != nil {
		return nil, err
	}

	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, contact, tenantID, listing.ResourceContacts)

	response := ToContactResponse(contact)
	return &response, nil
}

// GetByID retrieves a contact by ID
func (s *ContactService) GetByID(ctx context.Context, tenantID, contactID uuid.UUID) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByIDForTenant(ctx, tenantID, contactID)
	if err != nil {
		return nil, err
	}
	response := ToContactResponse(contact)
	return &response, nil
}

// List retrieves a page of contacts
func (s *ContactService) List(ctx context.Context, tenantID uuid.UUID, filter ContactListFilter) (shared.Page[ContactResponse], error) {
	q := filter.Query()
	return listing.Cached(ctx, s.lists, tenantID, listing.ResourceContacts, q, func(ctx context.Context) (shared.Page[ContactResponse], error) {
		page, err := listing.Fetch(ctx, q,
			func(ctx context.Context, q shared.ListQuery) ([]partner.Contact, error) {
				return s.contactRepo.FindAllForTenant(ctx, tenantID, q)
			},
			func(ctx context.Context, q shared.ListQuery) (int64, error) {
				return s.contactRepo.CountForTenant(ctx, tenantID, q)
			},
		)
		if err != nil {
			return shared.Page[ContactResponse]{}, err
		}
		return shared.MapPage(page, func(c partner.Contact) ContactResponse {
			return ToContactResponse(&c)
		}), nil
	})
}

// Update updates a contact
func (s *ContactService) Update(ctx context.Context, tenantID, contactID uuid.UUID, req UpdateContactRequest) (*ContactResponse, error) {
	contact, err := s.contactRepo.FindByIDForTenant(ctx, tenantID, contactID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailAvailable(ctx, tenantID, contact.Email, req.Email); err != nil {
		return nil, err
	}

	if err := s.apply(ctx, tenantID, contact, req); err != nil {
		return nil, err
	}

	if err := s.contactRepo.Save(ctx, contact); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, contact, tenantID, listing.ResourceContacts)

	response := ToContactResponse(contact)
	return &response, nil
}

// Delete deletes a contact that no quote or invoice refers to
func (s *ContactService) Delete(ctx context.Context, tenantID, contactID uuid.UUID) error {
	contact, err := s.contactRepo.FindByIDForTenant(ctx, tenantID, contactID)
	if err != nil {
		return err
	}

	hasQuotes, err := s.quoteRepo.ExistsForContact(ctx, tenantID, contactID)
	if err != nil {
		return err
	}
	if hasQuotes {
		return shared.ErrInUse.WithMessage("Contact has quotes and cannot be deleted")
	}
	hasInvoices, err := s.invoiceRepo.ExistsForContact(ctx, tenantID, contactID)
	if err != nil {
		return err
	}
	if hasInvoices {
		return shared.ErrInUse.WithMessage("Contact has invoices and cannot be deleted")
	}

	contact.MarkDeleted()
	if err := s.contactRepo.DeleteForTenant(ctx, tenantID, contactID); err != nil {
		return err
	}
	// Recordings of the contact lose their link (ON DELETE SET NULL)
	s.lists.Changed(ctx, s.events, contact, tenantID, listing.ResourceContacts, listing.ResourceAudioJobs)
	return nil
}

// apply sets the fields shared by create and update
func (s *ContactService) apply(ctx context.Context, tenantID uuid.UUID, contact *partner.Contact, req CreateContactRequest) error {
	if err := contact.UpdateProfile(req.Name, req.Company, req.JobTitle, req.TaxID); err != nil {
		return err
	}
	if err := contact.SetContactInfo(req.ContactInfoRequest.toDomain()); err != nil {
		return err
	}
	if req.Stage != "" {
		if err := contact.SetStage(partner.ContactStage(req.Stage)); err != nil {
			return err
		}
	}

	supplierID := req.SupplierID
	if supplierID != nil && *supplierID != uuid.Nil {
		if _, err := s.supplierRepo.FindByIDForTenant(ctx, tenantID, *supplierID); err != nil {
			if shared.IsNotFound(err) {
				return shared.NewDomainError("INVALID_SUPPLIER", "Supplier not found")
			}
			return err
		}
	}
	contact.LinkSupplier(supplierID)
	contact.SetNotes(req.Notes)
	return nil
}

// ensureEmailAvailable rejects an email already used by another contact of the tenant
func (s *ContactService) ensureEmailAvailable(ctx context.Context, tenantID uuid.UUID, current, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || email == current {
		return nil
	}
	exists, err := s.contactRepo.ExistsByEmail(ctx, tenantID, email)
	if err != nil {
		return err
	}
	if exists {
		return shared.ErrAlreadyExists.WithMessage("Contact with this email already exists")
	}
	return nil
}
