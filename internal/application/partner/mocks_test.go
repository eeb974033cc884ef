package partner

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/purchasing"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockSupplierRepository is a mock implementation of SupplierRepository
type MockSupplierRepository struct {
	mock.Mock
}

func (m *MockSupplierRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Supplier, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]partner.Supplier, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).([]partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSupplierRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*partner.Supplier, error) {
	args := m.Called(ctx, tenantID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) ExistsByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (bool, error) {
	args := m.Called(ctx, tenantID, taxID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSupplierRepository) FindByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (*partner.Supplier, error) {
	args := m.Called(ctx, tenantID, taxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) Save(ctx context.Context, supplier *partner.Supplier) error {
	return m.Called(ctx, supplier).Error(0)
}

func (m *MockSupplierRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

var _ partner.SupplierRepository = (*MockSupplierRepository)(nil)

// MockContactRepository is a mock implementation of ContactRepository
type MockContactRepository struct {
	mock.Mock
}

func (m *MockContactRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Contact, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Contact), args.Error(1)
}

func (m *MockContactRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]partner.Contact, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).([]partner.Contact), args.Error(1)
}

func (m *MockContactRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockContactRepository) ExistsByEmail(ctx context.Context, tenantID uuid.UUID, email string) (bool, error) {
	args := m.Called(ctx, tenantID, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockContactRepository) Save(ctx context.Context, contact *partner.Contact) error {
	return m.Called(ctx, contact).Error(0)
}

func (m *MockContactRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

var _ partner.ContactRepository = (*MockContactRepository)(nil)

// MockExpenseRepository is a mock implementation of ExpenseRepository
type MockExpenseRepository struct {
	mock.Mock
}

func (m *MockExpenseRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*purchasing.Expense, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchasing.Expense), args.Error(1)
}

func (m *MockExpenseRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]purchasing.Expense, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).([]purchasing.Expense), args.Error(1)
}

func (m *MockExpenseRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockExpenseRepository) ExistsForSupplier(ctx context.Context, tenantID, supplierID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, supplierID)
	return args.Bool(0), args.Error(1)
}

func (m *MockExpenseRepository) Save(ctx context.Context, expense *purchasing.Expense) error {
	return m.Called(ctx, expense).Error(0)
}

func (m *MockExpenseRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

var _ purchasing.ExpenseRepository = (*MockExpenseRepository)(nil)

// MockQuoteRepository implements only what the contact service needs
type MockQuoteRepository struct {
	mock.Mock
	sales.QuoteRepository
}

func (m *MockQuoteRepository) ExistsForContact(ctx context.Context, tenantID, contactID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, contactID)
	return args.Bool(0), args.Error(1)
}

// MockInvoiceRepository implements only what the contact service needs
type MockInvoiceRepository struct {
	mock.Mock
	sales.InvoiceRepository
}

func (m *MockInvoiceRepository) ExistsForContact(ctx context.Context, tenantID, contactID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, contactID)
	return args.Bool(0), args.Error(1)
}

// capturePublisher records published events
type capturePublisher struct {
	events []shared.DomainEvent
}

func (p *capturePublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.events = append(p.events, events...)
	return nil
}

func (p *capturePublisher) types() []string {
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}
