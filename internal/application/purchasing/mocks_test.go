package purchasing

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/purchasing"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

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

// MockSupplierRepository implements the supplier lookups used here
type MockSupplierRepository struct {
	mock.Mock
	partner.SupplierRepository
}

func (m *MockSupplierRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Supplier, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) FindByName(ctx context.Context, tenantID uuid.UUID, name string) (*partner.Supplier, error) {
	args := m.Called(ctx, tenantID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Supplier), args.Error(1)
}

func (m *MockSupplierRepository) FindByTaxID(ctx context.Context, tenantID uuid.UUID, taxID string) (*partner.Supplier, error) {
	args := m.Called(ctx, tenantID, taxID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Supplier), args.Error(1)
}

// MockDocumentExtractor is a mock implementation of DocumentExtractor
type MockDocumentExtractor struct {
	mock.Mock
}

func (m *MockDocumentExtractor) Extract(ctx context.Context, data []byte, contentType string) (*purchasing.ExtractedDocument, error) {
	args := m.Called(ctx, data, contentType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*purchasing.ExtractedDocument), args.Error(1)
}

// =============================================================================
// Fakes
// =============================================================================

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
