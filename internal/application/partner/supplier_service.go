package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/purchasing"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// SupplierService handles supplier-related business operations
type SupplierService struct {
	supplierRepo partner.SupplierRepository
	contactRepo  partner.ContactRepository
	expenseRepo  purchasing.ExpenseRepository
	events       shared.EventPublisher
	lists        *listing.Lists
}

// NewSupplierService creates a new SupplierService
func NewSupplierService(
	supplierRepo partner.SupplierRepository,
	contactRepo partner.ContactRepository,
	expenseRepo purchasing.ExpenseRepository,
	events shared.EventPublisher,
	lists *listing.Lists,
) *SupplierService {
	return &SupplierService{
		supplierRepo: supplierRepo,
		contactRepo:  contactRepo,
		expenseRepo:  expenseRepo,
		events:       events,
		lists:        lists,
	}
}

// Create creates a new supplier
func (s *SupplierService) Create(ctx context.Context, tenantID, userID uuid.UUID, req CreateSupplierRequest) (*SupplierResponse, error) {
	if err := s.ensureTaxIDAvailable(ctx, tenantID, uuid.Nil, req.TaxID); err != nil {
		return nil, err
	}

	supplier, err := partner.NewSupplier(tenantID, userID, req.Name, req.TaxID)
	if err != nil {
		return nil, err
	}
	if err := applySupplierRequest(supplier, req); err != nil {
		return nil, err
	}

	if err := s.supplierRepo.Save(ctx, supplier); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, supplier, tenantID, listing.ResourceSuppliers)

	response := ToSupplierResponse(supplier)
	return &response, nil
}

// GetByID retrieves a supplier by ID
func (s *SupplierService) GetByID(ctx context.Context, tenantID, supplierID uuid.UUID) (*SupplierResponse, error) {
	supplier, err := s.supplierRepo.FindByIDForTenant(ctx, tenantID, supplierID)
	if err != nil {
		return nil, err
	}
	response := ToSupplierResponse(supplier)
	return &response, nil
}

// List retrieves a page of suppliers
func (s *SupplierService) List(ctx context.Context, tenantID uuid.UUID, filter SupplierListFilter) (shared.Page[SupplierResponse], error) {
	q := filter.Query()
	return listing.Cached(ctx, s.lists, tenantID, listing.ResourceSuppliers, q, func(ctx context.Context) (shared.Page[SupplierResponse], error) {
		page, err := listing.Fetch(ctx, q,
			func(ctx context.Context, q shared.ListQuery) ([]partner.Supplier, error) {
				return s.supplierRepo.FindAllForTenant(ctx, tenantID, q)
			},
			func(ctx context.Context, q shared.ListQuery) (int64, error) {
				return s.supplierRepo.CountForTenant(ctx, tenantID, q)
			},
		)
		if err != nil {
			return shared.Page[SupplierResponse]{}, err
		}
		return shared.MapPage(page, func(sup partner.Supplier) SupplierResponse {
			return ToSupplierResponse(&sup)
		}), nil
	})
}

// Update updates a supplier
func (s *SupplierService) Update(ctx context.Context, tenantID, supplierID uuid.UUID, req UpdateSupplierRequest) (*SupplierResponse, error) {
	supplier, err := s.supplierRepo.FindByIDForTenant(ctx, tenantID, supplierID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureTaxIDAvailable(ctx, tenantID, supplierID, req.TaxID); err != nil {
		return nil, err
	}

	if err := supplier.Rename(req.Name, req.TaxID); err != nil {
		return nil, err
	}
	if err := applySupplierRequest(supplier, req); err != nil {
		return nil, err
	}

	if err := s.supplierRepo.Save(ctx, supplier); err != nil {
		return nil, err
	}
	s.lists.Changed(ctx, s.events, supplier, tenantID, listing.ResourceSuppliers)

	response := ToSupplierResponse(supplier)
	return &response, nil
}

// Delete deletes a supplier. Suppliers with expenses cannot be deleted;
// linked contacts are detached.
func (s *SupplierService) Delete(ctx context.Context, tenantID, supplierID uuid.UUID) error {
	supplier, err := s.supplierRepo.FindByIDForTenant(ctx, tenantID, supplierID)
	if err != nil {
		return err
	}

	hasExpenses, err := s.expenseRepo.ExistsForSupplier(ctx, tenantID, supplierID)
	if err != nil {
		return err
	}
	if hasExpenses {
		return shared.ErrInUse.WithMessage("Supplier has expenses and cannot be deleted")
	}

	// Linked contacts are detached in the same transaction as the delete
	supplier.MarkDeleted()
	if err := s.supplierRepo.DeleteForTenant(ctx, tenantID, supplierID); err != nil {
		return err
	}
	s.lists.Changed(ctx, s.events, supplier, tenantID, listing.ResourceSuppliers, listing.ResourceContacts)
	return nil
}

// Contacts lists the contacts linked to a supplier
func (s *SupplierService) Contacts(ctx context.Context, tenantID, supplierID uuid.UUID, params listing.Params) (shared.Page[ContactResponse], error) {
	if _, err := s.supplierRepo.FindByIDForTenant(ctx, tenantID, supplierID); err != nil {
		return shared.Page[ContactResponse]{}, err
	}

	q := params.Query()
	q.Filters["supplier_id"] = supplierID
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
}

// Expenses lists the expenses booked against a supplier
func (s *SupplierService) Expenses(ctx context.Context, tenantID, supplierID uuid.UUID, params listing.Params) (shared.Page[SupplierExpenseResponse], error) {
	if _, err := s.supplierRepo.FindByIDForTenant(ctx, tenantID, supplierID); err != nil {
		return shared.Page[SupplierExpenseResponse]{}, err
	}

	q := params.Query()
	q.Filters["supplier_id"] = supplierID
	page, err := listing.Fetch(ctx, q,
		func(ctx context.Context, q shared.ListQuery) ([]purchasing.Expense, error) {
			return s.expenseRepo.FindAllForTenant(ctx, tenantID, q)
		},
		func(ctx context.Context, q shared.ListQuery) (int64, error) {
			return s.expenseRepo.CountForTenant(ctx, tenantID, q)
		},
	)
	if err != nil {
		return shared.Page[SupplierExpenseResponse]{}, err
	}
	return shared.MapPage(page, ToSupplierExpenseResponse), nil
}

// ensureTaxIDAvailable rejects a tax id already used by another supplier of the tenant
func (s *SupplierService) ensureTaxIDAvailable(ctx context.Context, tenantID, selfID uuid.UUID, taxID string) error {
	taxID = partner.NormalizeTaxID(taxID)
	if taxID == "" {
		return nil
	}
	if selfID == uuid.Nil {
		exists, err := s.supplierRepo.ExistsByTaxID(ctx, tenantID, taxID)
		if err != nil {
			return err
		}
		if exists {
			return shared.ErrAlreadyExists.WithMessage("Supplier with this tax ID already exists")
		}
		return nil
	}

	existing, err := s.supplierRepo.FindByTaxID(ctx, tenantID, taxID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return shared.ErrAlreadyExists.WithMessage("Supplier with this tax ID already exists")
	}
	return nil
}

func applySupplierRequest(supplier *partner.Supplier, req CreateSupplierRequest) error {
	if err := supplier.SetContactInfo(req.ContactInfoRequest.toDomain()); err != nil {
		return err
	}
	return supplier.SetDetails(req.Website, req.Notes)
}
