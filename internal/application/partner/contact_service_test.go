package partner

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type contactFixture struct {
	contacts  *MockContactRepository
	suppliers *MockSupplierRepository
	quotes    *MockQuoteRepository
	invoices  *MockInvoiceRepository
	events    *capturePublisher
	service   *ContactService
}

func newContactFixture() *contactFixture {
	f := &contactFixture{
		contacts:  new(MockContactRepository),
		suppliers: new(MockSupplierRepository),
		quotes:    new(MockQuoteRepository),
		invoices:  new(MockInvoiceRepository),
		events:    &capturePublisher{},
	}
	f.service = NewContactService(f.contacts, f.suppliers, f.quotes, f.invoices, f.events, listing.Disabled())
	return f
}

func createTestContact(tenantID uuid.UUID) *partner.Contact {
	contact, _ := partner.NewContact(tenantID, newSupplierTestUserID(), "Lucía Martín")
	_ = contact.SetContactInfo(partner.ContactInfo{Email: "lucia@example.com"})
	contact.ClearDomainEvents()
	return contact
}

func TestContactService_Create_Success(t *testing.T) {
	f := newContactFixture()
	ctx := context.Background()
	tenantID := newSupplierTestTenantID()
	supplier := createTestSupplier(tenantID)
	supplierID := supplier.ID

	f.contacts.On("ExistsByEmail", ctx, tenantID, "lucia@example.com").Return(false, nil)
	f.suppliers.On("FindByIDForTenant", ctx, tenantID, supplierID).Return(supplier, nil)
	f.contacts.On("Save", ctx, mock.AnythingOfType("*partner.Contact")).Return(nil)

	resp, err := f.service.Create(ctx, tenantID, newSupplierTestUserID(), CreateContactRequest{
		Name:               "Lucía Martín",
		Company:            "Estudio Martín",
		Stage:              "prospect",
		SupplierID:         &supplierID,
		ContactInfoRequest: ContactInfoRequest{Email: " Lucia@Example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Estudio Martín", resp.DisplayName)
	assert.Equal(t, "prospect", resp.Stage)
	assert.Equal(t, &supplierID, resp.SupplierID)
	assert.Equal(t, "lucia@example.com", resp.Email)
	f.contacts.AssertExpectations(t)
}

func TestContactService_Create_DefaultsToLead(t *testing.T) {
	f := newContactFixture()
	ctx := context.Background()
	tenantID := newSupplierTestTenantID()

	f.contacts.On("Save", ctx, mock.Anything).Return(nil)

	resp, err := f.service.Create(ctx, tenantID, newSupplierTestUserID(), CreateContactRequest{Name: "Pablo"})

	require.NoError(t, err)
	assert.Equal(t, "lead", resp.Stage)
	assert.Nil(t, resp.SupplierID)
	f.contacts.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestContactService_Create_DuplicateEmail(t *testing.T) {
	f := newContactFixture()
	ctx := context.Background()
	tenantID := newSupplierTestTenantID()

	f.contacts.On("ExistsByEmail", ctx, tenantID, "lucia@example.com").Return(true, nil)

	_, err := f.service.Create(ctx, tenantID, newSupplierTestUserID(), CreateContactRequest{
		Name:               "Lucía",
		ContactInfoRequest: ContactInfoRequest{Email: "lucia@example.com"},
	})

	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestContactService_Create_UnknownSupplier(t *testing.T) {
	f := newContactFixture()
	ctx := context.Background()
	tenantID := newSupplierTestTenantID()
	supplierID := uuid.New()

	f.suppliers.On("FindByIDForTenant", ctx, tenantID, supplierID).Return(nil, shared.ErrNotFound)

	_, err := f.service.Create(ctx, tenantID, newSupplierTestUserID(), CreateContactRequest{
		Name:       "Lucía",
		SupplierID: &supplierID,
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_SUPPLIER", domainErr.Code)
	f.contacts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestContactService_Update_KeepingOwnEmailSkipsCheck(t *testing.T) {
	f := newContactFixture()
	ctx := context.Background()
	tenantID := newSupplierTestTenantID()
	contact := createTestContact(tenantID)

	f.contacts.On("FindByIDForTenant", ctx, tenantID, contact.ID).Return(contact, nil)
	f.contacts.On("Save", ctx, contact).Return(nil)

	resp, err := f.service.Update(ctx, tenantID, contact.ID, UpdateContactRequest{
		Name:               "Lucía Martín Gil",
		Stage:              "customer",
		ContactInfoRequest: ContactInfoRequest{Email: "lucia@example.com"},
	})

	require.NoError(t, err)
	assert.Equal(t, "Lucía Martín Gil", resp.Name)
	assert.Equal(t, "customer", resp.Stage)
	f.contacts.AssertNotCalled(t, "ExistsByEmail", mock.Anything, mock.Anything, mock.Anything)
	assert.Contains(t, f.events.types(), "contact.UPDATE")
}

func TestContactService_Delete_Success(t *testing.T) {
	f := newContactFixture()
	ctx := context.Background()
	tenantID := newSupplierTestTenantID()
	contact := createTestContact(tenantID)

	f.contacts.On("FindByIDForTenant", ctx, tenantID, contact.ID).Return(contact, nil)
	f.quotes.On("ExistsForContact", ctx, tenantID, contact.ID).Return(false, nil)
	f.invoices.On("ExistsForContact", ctx, tenantID, contact.ID).Return(false, nil)
	f.contacts.On("DeleteForTenant", ctx, tenantID, contact.ID).Return(nil)

	require.NoError(t, f.service.Delete(ctx, tenantID, contact.ID))
	assert.Equal(t, []string{"contact.DELETE"}, f.events.types())
	f.contacts.AssertExpectations(t)
}

func TestContactService_Delete_RevalidatesAudioJobs(t *testing.T) {
	f := newContactFixture()
	lists := listing.NewLists(cache.NewMemoryListCache(time.Minute), nil, nil)
	f.service = NewContactService(f.contacts, f.suppliers, f.quotes, f.invoices, f.events, lists)
	ctx := context.Background()
	tenantID := newSupplierTestTenantID()
	contact := createTestContact(tenantID)
	q := shared.NewListQuery()

	loads := 0
	load := func(context.Context) (shared.Page[string], error) {
		loads++
		return shared.NewPage([]string{"grabación"}, 1, q), nil
	}
	_, err := listing.Cached(ctx, lists, tenantID, listing.ResourceAudioJobs, q, load)
	require.NoError(t, err)

	f.contacts.On("FindByIDForTenant", ctx, tenantID, contact.ID).Return(contact, nil)
	f.quotes.On("ExistsForContact", ctx, tenantID, contact.ID).Return(false, nil)
	f.invoices.On("ExistsForContact", ctx, tenantID, contact.ID).Return(false, nil)
	f.contacts.On("DeleteForTenant", ctx, tenantID, contact.ID).Return(nil)
	require.NoError(t, f.service.Delete(ctx, tenantID, contact.ID))

	_, err = listing.Cached(ctx, lists, tenantID, listing.ResourceAudioJobs, q, load)
	require.NoError(t, err)
	assert.Equal(t, 2, loads)
}

func TestContactService_Delete_ReferencedByQuote(t *testing.T) {
	f := newContactFixture()
	ctx := context.Background()
	tenantID := newSupplierTestTenantID()
	contact := createTestContact(tenantID)

	f.contacts.On("FindByIDForTenant", ctx, tenantID, contact.ID).Return(contact, nil)
	f.quotes.On("ExistsForContact", ctx, tenantID, contact.ID).Return(true, nil)

	err := f.service.Delete(ctx, tenantID, contact.ID)

	assert.ErrorIs(t, err, shared.ErrInUse)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	f.invoices.AssertNotCalled(t, "ExistsForContact", mock.Anything, mock.Anything, mock.Anything)
	f.contacts.AssertNotCalled(t, "DeleteForTenant", mock.Anything, mock.Anything, mock.Anything)
}

func TestContactService_Delete_ReferencedByInvoice(t *testing.T) {
	f := newContactFixture()
	ctx := context.Background()
	tenantID := newSupplierTestTenantID()
	contact := createTestContact(tenantID)

	f.contacts.On("FindByIDForTenant", ctx, tenantID, contact.ID).Return(contact, nil)
	f.quotes.On("ExistsForContact", ctx, tenantID, contact.ID).Return(false, nil)
	f.invoices.On("ExistsForContact", ctx, tenantID, contact.ID).Return(true, nil)

	err := f.service.Delete(ctx, tenantID, contact.ID)

	assert.ErrorIs(t, err, shared.ErrInUse)
	assert.Empty(t, f.events.events)
}

func TestContactService_List_StageFilter(t *testing.T) {
	f := newContactFixture()
	ctx := context.Background()
	tenantID := newSupplierTestTenantID()
	contact := createTestContact(tenantID)

	byStage := mock.MatchedBy(func(q shared.ListQuery) bool {
		v, ok := q.Filter("stage")
		_, hasSupplier := q.Filter("supplier_id")
		return ok && v == "customer" && !hasSupplier
	})
	f.contacts.On("FindAllForTenant", mock.Anything, tenantID, byStage).Return([]partner.Contact{*contact}, nil)
	f.contacts.On("CountForTenant", mock.Anything, tenantID, byStage).Return(int64(1), nil)

	page, err := f.service.List(ctx, tenantID, ContactListFilter{Stage: "customer", SupplierID: "not-a-uuid"})

	require.NoError(t, err)
	assert.Len(t, page.Data, 1)
	assert.Equal(t, 1, page.TotalPages)
	f.contacts.AssertExpectations(t)
}
