package sales

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/mail"
	"github.com/ribotflow/backend/internal/infrastructure/printing"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockQuoteRepository is a mock implementation of QuoteRepository
type MockQuoteRepository struct {
	mock.Mock
}

func (m *MockQuoteRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*sales.Quote, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Quote), args.Error(1)
}

func (m *MockQuoteRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]sales.Quote, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).([]sales.Quote), args.Error(1)
}

func (m *MockQuoteRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockQuoteRepository) FindExpirable(ctx context.Context, before time.Time, limit int) ([]sales.Quote, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]sales.Quote), args.Error(1)
}

func (m *MockQuoteRepository) ExistsForContact(ctx context.Context, tenantID, contactID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, contactID)
	return args.Bool(0), args.Error(1)
}

func (m *MockQuoteRepository) Save(ctx context.Context, quote *sales.Quote) error {
	return m.Called(ctx, quote).Error(0)
}

func (m *MockQuoteRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

var _ sales.QuoteRepository = (*MockQuoteRepository)(nil)

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*sales.Invoice, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) ([]sales.Invoice, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).([]sales.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, query shared.ListQuery) (int64, error) {
	args := m.Called(ctx, tenantID, query)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) FindOverdue(ctx context.Context, before time.Time, limit int) ([]sales.Invoice, error) {
	args := m.Called(ctx, before, limit)
	return args.Get(0).([]sales.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) ExistsForContact(ctx context.Context, tenantID, contactID uuid.UUID) (bool, error) {
	args := m.Called(ctx, tenantID, contactID)
	return args.Bool(0), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *sales.Invoice) error {
	return m.Called(ctx, invoice).Error(0)
}

func (m *MockInvoiceRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

var _ sales.InvoiceRepository = (*MockInvoiceRepository)(nil)

// MockTaxRateRepository is a mock implementation of TaxRateRepository
type MockTaxRateRepository struct {
	mock.Mock
}

func (m *MockTaxRateRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*sales.TaxRate, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sales.TaxRate), args.Error(1)
}

func (m *MockTaxRateRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID) ([]sales.TaxRate, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).([]sales.TaxRate), args.Error(1)
}

func (m *MockTaxRateRepository) ExistsByName(ctx context.Context, tenantID uuid.UUID, name string) (bool, error) {
	args := m.Called(ctx, tenantID, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockTaxRateRepository) Save(ctx context.Context, rate *sales.TaxRate) error {
	return m.Called(ctx, rate).Error(0)
}

func (m *MockTaxRateRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	return m.Called(ctx, tenantID, id).Error(0)
}

var _ sales.TaxRateRepository = (*MockTaxRateRepository)(nil)

// MockContactRepository implements only the lookups used by the sales services
type MockContactRepository struct {
	mock.Mock
	partner.ContactRepository
}

func (m *MockContactRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*partner.Contact, error) {
	args := m.Called(ctx, tenantID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Contact), args.Error(1)
}

// MockTenantRepository implements only FindByID
type MockTenantRepository struct {
	mock.Mock
	identity.TenantRepository
}

func (m *MockTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.Tenant, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Tenant), args.Error(1)
}

// =============================================================================
// Fakes
// =============================================================================

// sequence hands out increasing numbers per series
type sequence struct {
	next map[string]int64
	err  error
}

func newSequence() *sequence {
	return &sequence{next: make(map[string]int64)}
}

func (s *sequence) Next(_ context.Context, _ uuid.UUID, series string, _ int) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	s.next[series]++
	return s.next[series], nil
}

// fakePrinter returns a fixed PDF
type fakePrinter struct {
	err     error
	printed []*printing.Document
}

func (p *fakePrinter) PDF(_ context.Context, doc *printing.Document) ([]byte, error) {
	if p.err != nil {
		return nil, p.err
	}
	p.printed = append(p.printed, doc)
	return []byte("%PDF-1.7 test"), nil
}

// failingSender rejects every message
type failingSender struct{}

func (failingSender) Send(context.Context, mail.Message) error {
	return errors.New("smtp: connection refused")
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
