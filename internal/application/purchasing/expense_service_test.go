package purchasing

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/purchasing"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type expenseFixture struct {
	svc       *ExpenseService
	expenses  *MockExpenseRepository
	suppliers *MockSupplierRepository
	store     *storage.MemoryStore
	events    *capturePublisher
	tenantID  uuid.UUID
	userID    uuid.UUID
}

func newExpenseFixture() *expenseFixture {
	f := &expenseFixture{
		expenses:  new(MockExpenseRepository),
		suppliers: new(MockSupplierRepository),
		store:     storage.NewMemoryStore("http://files.test"),
		events:    &capturePublisher{},
		tenantID:  uuid.New(),
		userID:    uuid.New(),
	}
	f.svc = NewExpenseService(f.expenses, f.suppliers, f.store,
		FileLimits{MaxUploadBytes: 1024, URLExpiration: 5 * time.Minute},
		f.events, listing.Disabled(), zap.NewNop())
	return f
}

func createTestExpense(t *testing.T, tenantID uuid.UUID) *purchasing.Expense {
	t.Helper()
	e, err := purchasing.NewExpense(tenantID, uuid.New(), purchasing.ExpenseDetails{
		InvoiceNumber: "A-118",
		ExpenseDate:   time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
		Category:      "software",
	})
	require.NoError(t, err)
	e.ClearDomainEvents()
	return e
}

func ptrFloat(v float64) *float64 {
	return &v
}

func pdfUpload(name string, size int) FileUpload {
	return FileUpload{
		FileName:    name,
		ContentType: "application/pdf",
		Size:        int64(size),
		Body:        bytes.NewReader(bytes.Repeat([]byte("x"), size)),
	}
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestExpenseService_Create_Totals(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	supplier, err := partner.NewSupplier(f.tenantID, f.userID, "Hosting Norte", "B12345678")
	require.NoError(t, err)

	f.suppliers.On("FindByIDForTenant", ctx, f.tenantID, supplier.ID).Return(supplier, nil)
	f.expenses.On("Save", ctx, mock.AnythingOfType("*purchasing.Expense")).Return(nil)

	resp, err := f.svc.Create(ctx, f.tenantID, f.userID, CreateExpenseRequest{
		SupplierID: &supplier.ID,
		Category:   "hosting",
		Items: []ExpenseItemRequest{{
			Description: "Servidor dedicado",
			Quantity:    ptrFloat(2),
			UnitPrice:   ptrFloat(100),
			Taxes: []ExpenseTaxRequest{
				{Name: "IVA 21%", Percent: ptrFloat(21)},
				{Name: "IRPF 15%", Percent: ptrFloat(15), Type: "retention"},
			},
		}},
	})

	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Status)
	assert.Equal(t, "transfer", resp.PaymentMethod)
	assertDecimal(t, "200", resp.Subtotal)
	assertDecimal(t, "42", resp.TaxAmount)
	assertDecimal(t, "30", resp.RetentionAmount)
	assertDecimal(t, "212", resp.Total)
	assert.Equal(t, []string{"expense.INSERT"}, f.events.types())
}

func TestExpenseService_Create_UnknownSupplier(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	supplierID := uuid.New()

	f.suppliers.On("FindByIDForTenant", ctx, f.tenantID, supplierID).Return(nil, shared.ErrNotFound)

	_, err := f.svc.Create(ctx, f.tenantID, f.userID, CreateExpenseRequest{SupplierID: &supplierID})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_SUPPLIER", domainErr.Code)
	f.expenses.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestExpenseService_Update_KeepsDateWhenMissing(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	expense := createTestExpense(t, f.tenantID)

	f.expenses.On("FindByIDForTenant", ctx, f.tenantID, expense.ID).Return(expense, nil)
	f.expenses.On("Save", ctx, expense).Return(nil)

	resp, err := f.svc.Update(ctx, f.tenantID, expense.ID, UpdateExpenseRequest{
		Category:      "formación",
		PaymentMethod: "card",
	})

	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC), resp.ExpenseDate)
	assert.Equal(t, "card", resp.PaymentMethod)
	f.suppliers.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
}

func TestExpenseService_MarkPaid(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	expense := createTestExpense(t, f.tenantID)
	paidAt := time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

	f.expenses.On("FindByIDForTenant", ctx, f.tenantID, expense.ID).Return(expense, nil)
	f.expenses.On("Save", ctx, expense).Return(nil)

	resp, err := f.svc.MarkPaid(ctx, f.tenantID, expense.ID, MarkExpensePaidRequest{PaidAt: &paidAt})
	require.NoError(t, err)
	assert.Equal(t, "paid", resp.Status)
	assert.Equal(t, &paidAt, resp.PaidAt)

	_, err = f.svc.MarkPaid(ctx, f.tenantID, expense.ID, MarkExpensePaidRequest{})
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	resp, err = f.svc.MarkPending(ctx, f.tenantID, expense.ID)
	require.NoError(t, err)
	assert.Equal(t, "pending", resp.Status)
	assert.Nil(t, resp.PaidAt)
}

func TestExpenseService_Delete_RemovesFiles(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	expense := createTestExpense(t, f.tenantID)
	key := storage.ObjectKey(f.tenantID, "expenses", expense.ID.String(), "ticket.pdf")
	require.NoError(t, f.store.Put(ctx, storage.BucketExpenseAttachments, key, strings.NewReader("pdf"), 3, "application/pdf"))
	_, err := expense.AddAttachment(key, "ticket.pdf", "application/pdf", 3)
	require.NoError(t, err)

	f.expenses.On("FindByIDForTenant", ctx, f.tenantID, expense.ID).Return(expense, nil)
	f.expenses.On("DeleteForTenant", ctx, f.tenantID, expense.ID).Return(nil)

	require.NoError(t, f.svc.Delete(ctx, f.tenantID, expense.ID))
	assert.Zero(t, f.store.Len())
	assert.Contains(t, f.events.types(), "expense.DELETE")
}

func TestExpenseService_AddAttachment_Success(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	expense := createTestExpense(t, f.tenantID)

	f.expenses.On("FindByIDForTenant", ctx, f.tenantID, expense.ID).Return(expense, nil)
	f.expenses.On("Save", mock.Anything, expense).Return(nil)

	resp, err := f.svc.AddAttachment(ctx, f.tenantID, expense.ID, pdfUpload("../../factura marzo.pdf", 10))

	require.NoError(t, err)
	assert.Equal(t, "../../factura marzo.pdf", resp.FileName)
	assert.Equal(t, int64(10), resp.Size)
	assert.Equal(t, 1, f.store.Len())
	require.Len(t, expense.Attachments, 1)
	key := expense.Attachments[0].StorageKey
	assert.True(t, storage.BelongsTo(key, f.tenantID))
	assert.True(t, strings.HasSuffix(key, "-factura marzo.pdf"), key)
	assert.NotContains(t, key, "..")
}

func TestExpenseService_AddAttachment_Rejected(t *testing.T) {
	tests := []struct {
		name string
		file FileUpload
		code string
	}{
		{name: "too large", file: pdfUpload("big.pdf", 2048), code: "FILE_TOO_LARGE"},
		{name: "empty", file: pdfUpload("empty.pdf", 0), code: "EMPTY_FILE"},
		{name: "unsupported type", file: FileUpload{FileName: "notes.txt", ContentType: "text/plain", Size: 4, Body: strings.NewReader("text")}, code: "UNSUPPORTED_FILE_TYPE"},
		{name: "no name", file: pdfUpload(" ", 4), code: "INVALID_FILE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newExpenseFixture()
			_, err := f.svc.AddAttachment(context.Background(), f.tenantID, uuid.New(), tt.file)

			var domainErr *shared.DomainError
			require.ErrorAs(t, err, &domainErr)
			assert.Equal(t, tt.code, domainErr.Code)
			assert.Zero(t, f.store.Len())
			f.expenses.AssertNotCalled(t, "FindByIDForTenant", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestExpenseService_AddAttachment_LimitReached(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	expense := createTestExpense(t, f.tenantID)
	for i := 0; i < purchasing.MaxAttachments; i++ {
		_, err := expense.AddAttachment(storage.ObjectKey(f.tenantID, "expenses", uuid.NewString()), "a.pdf", "application/pdf", 1)
		require.NoError(t, err)
	}

	f.expenses.On("FindByIDForTenant", ctx, f.tenantID, expense.ID).Return(expense, nil)

	_, err := f.svc.AddAttachment(ctx, f.tenantID, expense.ID, pdfUpload("one-more.pdf", 4))

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "TOO_MANY_ATTACHMENTS", domainErr.Code)
	assert.Zero(t, f.store.Len())
}

func TestExpenseService_AddAttachment_SaveFailureRemovesObject(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	expense := createTestExpense(t, f.tenantID)

	f.expenses.On("FindByIDForTenant", ctx, f.tenantID, expense.ID).Return(expense, nil)
	f.expenses.On("Save", mock.Anything, expense).Return(errors.New("connection reset"))

	_, err := f.svc.AddAttachment(ctx, f.tenantID, expense.ID, pdfUpload("ticket.pdf", 8))

	require.Error(t, err)
	assert.Zero(t, f.store.Len())
}

func TestExpenseService_AttachmentURL(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	expense := createTestExpense(t, f.tenantID)
	attachment, err := expense.AddAttachment(storage.ObjectKey(f.tenantID, "expenses", expense.ID.String(), "t.pdf"), "t.pdf", "application/pdf", 1)
	require.NoError(t, err)
	foreign, err := expense.AddAttachment(storage.ObjectKey(uuid.New(), "expenses", "x.pdf"), "x.pdf", "application/pdf", 1)
	require.NoError(t, err)

	f.expenses.On("FindByIDForTenant", ctx, f.tenantID, expense.ID).Return(expense, nil)

	before := time.Now()
	resp, err := f.svc.AttachmentURL(ctx, f.tenantID, expense.ID, attachment.ID)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(resp.URL, "http://files.test/expense-attachments/"))
	assert.WithinDuration(t, before.Add(5*time.Minute), resp.ExpiresAt, 5*time.Second)

	_, err = f.svc.AttachmentURL(ctx, f.tenantID, expense.ID, foreign.ID)
	assert.True(t, shared.IsNotFound(err))

	_, err = f.svc.AttachmentURL(ctx, f.tenantID, expense.ID, uuid.New())
	assert.True(t, shared.IsNotFound(err))
}

func TestExpenseService_DeleteAttachment(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	expense := createTestExpense(t, f.tenantID)
	key := storage.ObjectKey(f.tenantID, "expenses", expense.ID.String(), "t.pdf")
	require.NoError(t, f.store.Put(ctx, storage.BucketExpenseAttachments, key, strings.NewReader("pdf"), 3, "application/pdf"))
	attachment, err := expense.AddAttachment(key, "t.pdf", "application/pdf", 3)
	require.NoError(t, err)

	f.expenses.On("FindByIDForTenant", ctx, f.tenantID, expense.ID).Return(expense, nil)
	f.expenses.On("Save", ctx, expense).Return(nil)

	require.NoError(t, f.svc.DeleteAttachment(ctx, f.tenantID, expense.ID, attachment.ID))
	assert.Empty(t, expense.Attachments)
	assert.Zero(t, f.store.Len())

	err = f.svc.DeleteAttachment(ctx, f.tenantID, expense.ID, attachment.ID)
	assert.True(t, shared.IsNotFound(err))
}

func TestExpenseService_List(t *testing.T) {
	f := newExpenseFixture()
	ctx := context.Background()
	expense := createTestExpense(t, f.tenantID)

	f.expenses.On("FindAllForTenant", mock.Anything, f.tenantID, mock.Anything).Return([]purchasing.Expense{*expense}, nil)
	f.expenses.On("CountForTenant", mock.Anything, f.tenantID, mock.Anything).Return(int64(41), nil)

	page, err := f.svc.List(ctx, f.tenantID, ExpenseListFilter{Params: listing.Params{PageSize: 20}})

	require.NoError(t, err)
	assert.Equal(t, int64(41), page.TotalCount)
	require.Len(t, page.Data, 1)
	assert.Equal(t, expense.ID, page.Data[0].ID)
}

func TestExpenseListFilter_Query(t *testing.T) {
	supplierID := uuid.New()
	q := ExpenseListFilter{SupplierID: supplierID.String(), Status: "paid", Category: "viajes"}.Query()

	v, ok := q.Filter("supplier_id")
	require.True(t, ok)
	assert.Equal(t, supplierID, v)
	status, _ := q.Filter("status")
	assert.Equal(t, "paid", status)
	_, ok = q.Filter("payment_method")
	assert.False(t, ok)
}
