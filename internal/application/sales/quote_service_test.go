package sales

import (
	"context"
	"errors"
	netmail "net/mail"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/ribotflow/backend/internal/infrastructure/mail"
	"github.com/ribotflow/backend/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type salesFixture struct {
	tenant   *identity.Tenant
	contact  *partner.Contact
	userID   uuid.UUID
	quotes   *MockQuoteRepository
	invoices *MockInvoiceRepository
	contacts *MockContactRepository
	taxes    *MockTaxRateRepository
	tenants  *MockTenantRepository
	numbers  *sequence
	printer  *fakePrinter
	mailer   *mail.LogSender
	store    *storage.MemoryStore
	events   *capturePublisher
	delivery *DocumentDelivery
	quoteSvc *QuoteService
	invSvc   *InvoiceService
}

func newSalesFixture(t *testing.T) *salesFixture {
	t.Helper()
	tenant, err := identity.NewTenant("Ribot Studio", "ribot-studio")
	require.NoError(t, err)
	contact, err := partner.NewContact(tenant.ID, uuid.New(), "Lucía Martín")
	require.NoError(t, err)
	require.NoError(t, contact.SetContactInfo(partner.ContactInfo{Email: "lucia@example.com"}))
	contact.ClearDomainEvents()

	f := &salesFixture{
		tenant:   tenant,
		contact:  contact,
		userID:   uuid.New(),
		quotes:   new(MockQuoteRepository),
		invoices: new(MockInvoiceRepository),
		contacts: new(MockContactRepository),
		taxes:    new(MockTaxRateRepository),
		tenants:  new(MockTenantRepository),
		numbers:  newSequence(),
		printer:  &fakePrinter{},
		mailer:   mail.NewLogSender(netmail.Address{Name: "RibotFlow", Address: "noreply@ribotflow.test"}, zap.NewNop()),
		store:    storage.NewMemoryStore("http://files.test"),
		events:   &capturePublisher{},
	}
	f.delivery = NewDocumentDelivery(f.printer, f.mailer, f.store, f.tenants, f.contacts, nil, zap.NewNop())
	f.quoteSvc = NewQuoteService(f.quotes, f.invoices, f.contacts, f.taxes, f.numbers, f.delivery, f.events, listing.Disabled(), zap.NewNop())
	f.invSvc = NewInvoiceService(f.invoices, f.contacts, f.taxes, f.numbers, f.delivery, f.events, listing.Disabled(), zap.NewNop())
	return f
}

func (f *salesFixture) tenantID() uuid.UUID {
	return f.tenant.ID
}

func (f *salesFixture) expectParties(ctx context.Context) {
	f.tenants.On("FindByID", ctx, f.tenant.ID).Return(f.tenant, nil)
	f.contacts.On("FindByIDForTenant", ctx, f.tenant.ID, f.contact.ID).Return(f.contact, nil)
}

func ptrFloat(v float64) *float64 {
	return &v
}

func vatItem(description string, qty, price float64) LineItemRequest {
	return LineItemRequest{
		Description: description,
		Quantity:    ptrFloat(qty),
		UnitPrice:   ptrFloat(price),
		Taxes:       []TaxLineRequest{{Name: "IVA 21%", Percent: ptrFloat(21), Type: "vat"}},
	}
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got)
}

func createTestQuote(t *testing.T, f *salesFixture, status sales.QuoteStatus) *sales.Quote {
	t.Helper()
	q, err := sales.NewQuote(f.tenantID(), f.userID, "Q-2026-0007", f.contact.ID, time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NoError(t, q.SetItems([]sales.LineInput{{
		Description: "Diseño web",
		Quantity:    decimal.NewFromInt(1),
		UnitPrice:   decimal.NewFromInt(500),
		Taxes:       []service.TaxLine{{Name: "IVA 21%", Percent: decimal.NewFromInt(21), Type: service.TaxTypeVAT}},
	}}, decimal.Zero))
	q.Status = status
	q.ClearDomainEvents()
	return q
}

func TestQuoteService_Create_NumbersAndTotals(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	issue := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	f.contacts.On("FindByIDForTenant", ctx, f.tenantID(), f.contact.ID).Return(f.contact, nil)
	f.quotes.On("Save", ctx, mock.AnythingOfType("*sales.Quote")).Return(nil)

	resp, err := f.quoteSvc.Create(ctx, f.tenantID(), f.userID, CreateQuoteRequest{
		ContactID:       f.contact.ID,
		IssueDate:       &issue,
		DiscountPercent: ptrFloat(10),
		Items:           []LineItemRequest{vatItem("Consultoría", 2, 100)},
	})

	require.NoError(t, err)
	assert.Equal(t, "Q-2026-0001", resp.Number)
	assert.Equal(t, "draft", resp.Status)
	require.NotNil(t, resp.ExpiryDate)
	assert.Equal(t, issue.AddDate(0, 0, DefaultTermDays), *resp.ExpiryDate)
	require.Len(t, resp.Items, 1)
	assertDecimal(t, "200", resp.Subtotal)
	assertDecimal(t, "20", resp.DiscountAmount)
	assertDecimal(t, "37.8", resp.TaxAmount)
	assertDecimal(t, "217.8", resp.Total)
	assert.Contains(t, f.events.types(), "quote.INSERT")
	f.quotes.AssertExpectations(t)
}

func TestQuoteService_Create_SecondQuoteGetsNextNumber(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	issue := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	f.contacts.On("FindByIDForTenant", ctx, f.tenantID(), f.contact.ID).Return(f.contact, nil)
	f.quotes.On("Save", ctx, mock.Anything).Return(nil)

	req := CreateQuoteRequest{ContactID: f.contact.ID, IssueDate: &issue}
	_, err := f.quoteSvc.Create(ctx, f.tenantID(), f.userID, req)
	require.NoError(t, err)
	second, err := f.quoteSvc.Create(ctx, f.tenantID(), f.userID, req)
	require.NoError(t, err)

	assert.Equal(t, "Q-2026-0002", second.Number)
}

func TestQuoteService_Create_UnknownContact(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	contactID := uuid.New()

	f.contacts.On("FindByIDForTenant", ctx, f.tenantID(), contactID).Return(nil, shared.ErrNotFound)

	_, err := f.quoteSvc.Create(ctx, f.tenantID(), f.userID, CreateQuoteRequest{ContactID: contactID})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_CONTACT", domainErr.Code)
	assert.Empty(t, f.numbers.next, "no number must be reserved")
	f.quotes.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestQuoteService_Create_ResolvesCatalogTaxes(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	irpf, err := sales.NewTaxRate(f.tenantID(), "IRPF 15%", decimal.NewFromInt(15), service.TaxTypeRetention)
	require.NoError(t, err)

	f.contacts.On("FindByIDForTenant", ctx, f.tenantID(), f.contact.ID).Return(f.contact, nil)
	f.taxes.On("FindAllForTenant", ctx, f.tenantID()).Return([]sales.TaxRate{*irpf}, nil)
	f.quotes.On("Save", ctx, mock.Anything).Return(nil)

	item := vatItem("Asesoría", 1, 1000)
	item.TaxRateIDs = []uuid.UUID{irpf.ID}
	resp, err := f.quoteSvc.Create(ctx, f.tenantID(), f.userID, CreateQuoteRequest{
		ContactID: f.contact.ID,
		Items:     []LineItemRequest{item},
	})

	require.NoError(t, err)
	require.Len(t, resp.Items[0].Taxes, 2)
	assert.Equal(t, "retention", resp.Items[0].Taxes[1].Type)
	assertDecimal(t, "210", resp.TaxAmount)
	assertDecimal(t, "150", resp.RetentionAmount)
	assertDecimal(t, "1060", resp.Total)
}

func TestQuoteService_Create_UnknownCatalogTax(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()

	f.contacts.On("FindByIDForTenant", ctx, f.tenantID(), f.contact.ID).Return(f.contact, nil)
	f.taxes.On("FindAllForTenant", ctx, f.tenantID()).Return([]sales.TaxRate{}, nil)

	item := vatItem("Asesoría", 1, 1000)
	item.TaxRateIDs = []uuid.UUID{uuid.New()}
	_, err := f.quoteSvc.Create(ctx, f.tenantID(), f.userID, CreateQuoteRequest{
		ContactID: f.contact.ID,
		Items:     []LineItemRequest{item},
	})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_TAX_RATE", domainErr.Code)
}

func TestQuoteService_Update_ReplacesItemsAndKeepsExpiry(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	quote := createTestQuote(t, f, sales.QuoteStatusDraft)
	expiry := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)
	quote.ExpiryDate = &expiry

	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), quote.ID).Return(quote, nil)
	f.quotes.On("Save", ctx, quote).Return(nil)

	resp, err := f.quoteSvc.Update(ctx, f.tenantID(), quote.ID, UpdateQuoteRequest{
		ContactID: f.contact.ID,
		Notes:     "Precio válido hasta fin de mes",
		Items: []LineItemRequest{
			vatItem("Hosting anual", 1, 120),
			vatItem("Dominio", 1, 15),
		},
	})

	require.NoError(t, err)
	assert.Len(t, resp.Items, 2)
	assert.Equal(t, &expiry, resp.ExpiryDate)
	assertDecimal(t, "135", resp.Subtotal)
	assert.Equal(t, "Precio válido hasta fin de mes", resp.Notes)
	f.contacts.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
}

func TestQuoteService_Delete(t *testing.T) {
	tests := []struct {
		status  sales.QuoteStatus
		allowed bool
	}{
		{sales.QuoteStatusDraft, true},
		{sales.QuoteStatusDeclined, true},
		{sales.QuoteStatusExpired, true},
		{sales.QuoteStatusSent, false},
		{sales.QuoteStatusAccepted, false},
		{sales.QuoteStatusInvoiced, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newSalesFixture(t)
			ctx := context.Background()
			quote := createTestQuote(t, f, tt.status)

			f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), quote.ID).Return(quote, nil)
			f.quotes.On("DeleteForTenant", ctx, f.tenantID(), quote.ID).Return(nil)

			err := f.quoteSvc.Delete(ctx, f.tenantID(), quote.ID)

			if tt.allowed {
				require.NoError(t, err)
				assert.Equal(t, []string{"quote.DELETE"}, f.events.types())
				return
			}
			assert.ErrorIs(t, err, shared.ErrInvalidState)
			f.quotes.AssertNotCalled(t, "DeleteForTenant", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestQuoteService_Send_EmailsContactAndStoresPDF(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	quote := createTestQuote(t, f, sales.QuoteStatusDraft)

	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), quote.ID).Return(quote, nil)
	f.expectParties(ctx)
	f.quotes.On("Save", ctx, quote).Return(nil)

	resp, err := f.quoteSvc.Send(ctx, f.tenantID(), quote.ID, SendDocumentRequest{Message: "Quedamos a tu disposición."})

	require.NoError(t, err)
	assert.Equal(t, "lucia@example.com", resp.SentTo)
	assert.Equal(t, "quote-Q-2026-0007.pdf", resp.FileName)
	assert.True(t, storage.BelongsTo(resp.StorageKey, f.tenantID()))
	assert.Equal(t, sales.QuoteStatusSent, quote.Status)
	assert.NotNil(t, quote.SentAt)

	sent := f.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "lucia@example.com", sent[0].To[0].Address)
	require.Len(t, sent[0].Attachments, 1)
	assert.Equal(t, "application/pdf", sent[0].Attachments[0].ContentType)

	exists, err := f.store.Exists(ctx, storage.BucketDocuments, resp.StorageKey)
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Contains(t, f.events.types(), sales.EventTypeQuoteStatusChanged)
}

func TestQuoteService_Send_ExplicitRecipient(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	quote := createTestQuote(t, f, sales.QuoteStatusSent)

	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), quote.ID).Return(quote, nil)
	f.expectParties(ctx)
	f.quotes.On("Save", ctx, quote).Return(nil)

	resp, err := f.quoteSvc.Send(ctx, f.tenantID(), quote.ID, SendDocumentRequest{To: "compras@cliente.es", Name: "Compras"})

	require.NoError(t, err)
	assert.Equal(t, "compras@cliente.es", resp.SentTo)
	assert.Equal(t, "Compras", f.mailer.Sent()[0].To[0].Name)
}

func TestQuoteService_Send_MissingRecipient(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	f.contact.Email = ""
	quote := createTestQuote(t, f, sales.QuoteStatusDraft)

	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), quote.ID).Return(quote, nil)
	f.expectParties(ctx)

	_, err := f.quoteSvc.Send(ctx, f.tenantID(), quote.ID, SendDocumentRequest{})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "MISSING_RECIPIENT", domainErr.Code)
	assert.Empty(t, f.printer.printed)
	f.quotes.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestQuoteService_Send_MailFailureKeepsStatus(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	f.delivery.mailer = failingSender{}
	quote := createTestQuote(t, f, sales.QuoteStatusDraft)

	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), quote.ID).Return(quote, nil)
	f.expectParties(ctx)

	_, err := f.quoteSvc.Send(ctx, f.tenantID(), quote.ID, SendDocumentRequest{})

	require.Error(t, err)
	assert.Equal(t, shared.KindUnexpected, shared.KindOf(err))
	f.quotes.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	assert.Empty(t, f.events.events)
}

func TestQuoteService_Send_EmptyQuote(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	quote, err := sales.NewQuote(f.tenantID(), f.userID, "Q-2026-0001", f.contact.ID, time.Now())
	require.NoError(t, err)

	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), quote.ID).Return(quote, nil)

	_, err = f.quoteSvc.Send(ctx, f.tenantID(), quote.ID, SendDocumentRequest{})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "EMPTY_QUOTE", domainErr.Code)
	assert.Empty(t, f.mailer.Sent())
}

func TestQuoteService_AcceptAndDecline(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	accepted := createTestQuote(t, f, sales.QuoteStatusSent)
	declined := createTestQuote(t, f, sales.QuoteStatusSent)

	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), accepted.ID).Return(accepted, nil)
	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), declined.ID).Return(declined, nil)
	f.quotes.On("Save", ctx, mock.Anything).Return(nil)

	resp, err := f.quoteSvc.Accept(ctx, f.tenantID(), accepted.ID)
	require.NoError(t, err)
	assert.Equal(t, "accepted", resp.Status)
	assert.NotNil(t, resp.AcceptedAt)

	resp, err = f.quoteSvc.Decline(ctx, f.tenantID(), declined.ID)
	require.NoError(t, err)
	assert.Equal(t, "declined", resp.Status)

	_, err = f.quoteSvc.Accept(ctx, f.tenantID(), declined.ID)
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestQuoteService_ConvertToInvoice_Success(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	quote := createTestQuote(t, f, sales.QuoteStatusAccepted)
	issue := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), quote.ID).Return(quote, nil)
	f.invoices.On("Save", ctx, mock.AnythingOfType("*sales.Invoice")).Return(nil)
	f.quotes.On("Save", ctx, quote).Return(nil)

	resp, err := f.quoteSvc.ConvertToInvoice(ctx, f.tenantID(), f.userID, quote.ID, ConvertQuoteRequest{IssueDate: &issue})

	require.NoError(t, err)
	assert.Equal(t, "F-2026-0001", resp.Number)
	assert.Equal(t, "draft", resp.Status)
	assert.Equal(t, &quote.ID, resp.QuoteID)
	require.NotNil(t, resp.DueDate)
	assert.Equal(t, issue.AddDate(0, 0, DefaultTermDays), *resp.DueDate)
	assert.Len(t, resp.Items, len(quote.Items))
	assertDecimal(t, quote.Total.String(), resp.Total)

	assert.Equal(t, sales.QuoteStatusInvoiced, quote.Status)
	assert.Equal(t, &resp.ID, quote.InvoiceID)
	assert.Contains(t, f.events.types(), "invoice.INSERT")
	assert.Contains(t, f.events.types(), sales.EventTypeQuoteStatusChanged)
}

func TestQuoteService_ConvertToInvoice_NotAccepted(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	quote := createTestQuote(t, f, sales.QuoteStatusSent)

	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), quote.ID).Return(quote, nil)

	_, err := f.quoteSvc.ConvertToInvoice(ctx, f.tenantID(), f.userID, quote.ID, ConvertQuoteRequest{})

	assert.ErrorIs(t, err, shared.ErrInvalidState)
	assert.Empty(t, f.numbers.next)
	f.invoices.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestQuoteService_ConvertToInvoice_QuoteSaveFailsRemovesInvoice(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	quote := createTestQuote(t, f, sales.QuoteStatusAccepted)

	var saved *sales.Invoice
	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), quote.ID).Return(quote, nil)
	f.invoices.On("Save", ctx, mock.AnythingOfType("*sales.Invoice")).
		Run(func(args mock.Arguments) { saved = args.Get(1).(*sales.Invoice) }).
		Return(nil)
	f.quotes.On("Save", ctx, quote).Return(errors.New("connection reset"))
	f.invoices.On("DeleteForTenant", ctx, f.tenantID(), mock.AnythingOfType("uuid.UUID")).Return(nil)

	_, err := f.quoteSvc.ConvertToInvoice(ctx, f.tenantID(), f.userID, quote.ID, ConvertQuoteRequest{})

	require.Error(t, err)
	require.NotNil(t, saved)
	f.invoices.AssertCalled(t, "DeleteForTenant", ctx, f.tenantID(), saved.ID)
	assert.Empty(t, f.events.events)
}

func TestQuoteService_ExpireDue_ReloadsFullQuote(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	expiry := now.AddDate(0, 0, -1)

	full := createTestQuote(t, f, sales.QuoteStatusSent)
	full.ExpiryDate = &expiry
	header := *full
	header.Items = nil

	f.quotes.On("FindExpirable", ctx, now, 50).Return([]sales.Quote{header}, nil)
	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), full.ID).Return(full, nil)
	f.quotes.On("Save", ctx, mock.MatchedBy(func(q *sales.Quote) bool {
		return q.Status == sales.QuoteStatusExpired && len(q.Items) == 1
	})).Return(nil)

	n, err := f.quoteSvc.ExpireDue(ctx, now, 50)

	require.NoError(t, err)
	assert.Equal(t, 1, n)
	f.quotes.AssertExpectations(t)
}

func TestQuoteService_ExpireDue_SkipsFailures(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	now := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	gone := createTestQuote(t, f, sales.QuoteStatusSent)

	f.quotes.On("FindExpirable", ctx, now, 10).Return([]sales.Quote{*gone}, nil)
	f.quotes.On("FindByIDForTenant", ctx, f.tenantID(), gone.ID).Return(nil, shared.ErrNotFound)

	n, err := f.quoteSvc.ExpireDue(ctx, now, 10)

	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQuoteService_List_Filters(t *testing.T) {
	f := newSalesFixture(t)
	ctx := context.Background()
	quote := createTestQuote(t, f, sales.QuoteStatusSent)
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	matches := mock.MatchedBy(func(q shared.ListQuery) bool {
		status, _ := q.Filter("status")
		contactID, _ := q.Filter("contact_id")
		dateFrom, _ := q.Filter("date_from")
		return status == "sent" && contactID == f.contact.ID && dateFrom == from && q.Search == "Q-2026"
	})
	f.quotes.On("FindAllForTenant", mock.Anything, f.tenantID(), matches).Return([]sales.Quote{*quote}, nil)
	f.quotes.On("CountForTenant", mock.Anything, f.tenantID(), matches).Return(int64(1), nil)

	page, err := f.quoteSvc.List(ctx, f.tenantID(), QuoteListFilter{
		Params:    listing.Params{Search: "Q-2026"},
		DateRange: listing.DateRange{DateFrom: &from},
		Status:    "sent",
		ContactID: f.contact.ID.String(),
	})

	require.NoError(t, err)
	require.Len(t, page.Data, 1)
	assert.Equal(t, int64(1), page.TotalCount)
	assert.Equal(t, "Q-2026-0007", page.Data[0].Number)
	f.quotes.AssertExpectations(t)
}
