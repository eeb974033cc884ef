package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"
	identityapp "github.com/ribotflow/backend/internal/application/identity"
	purchasingapp "github.com/ribotflow/backend/internal/application/purchasing"
	salesapp "github.com/ribotflow/backend/internal/application/sales"
	transcriptionapp "github.com/ribotflow/backend/internal/application/transcription"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/auth"
	"github.com/stretchr/testify/mock"
)

func respOrNil[T any](args mock.Arguments, i int) *T {
	if v := args.Get(i); v != nil {
		return v.(*T)
	}
	return nil
}

// =============================================================================
// Auth
// =============================================================================

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, req identityapp.LoginRequest) (*identityapp.LoginResponse, error) {
	args := m.Called(ctx, req)
	return respOrNil[identityapp.LoginResponse](args, 0), args.Error(1)
}

func (m *MockAuthService) Refresh(ctx context.Context, req identityapp.RefreshTokenRequest) (*identityapp.TokenResponse, error) {
	args := m.Called(ctx, req)
	return respOrNil[identityapp.TokenResponse](args, 0), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, access *auth.Claims, req identityapp.LogoutRequest) error {
	return m.Called(ctx, access, req).Error(0)
}

func (m *MockAuthService) Me(ctx context.Context, tenantID, userID uuid.UUID) (*identityapp.CurrentUserResponse, error) {
	args := m.Called(ctx, tenantID, userID)
	return respOrNil[identityapp.CurrentUserResponse](args, 0), args.Error(1)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, tenantID, userID uuid.UUID, req identityapp.ChangePasswordRequest) error {
	return m.Called(ctx, tenantID, userID, req).Error(0)
}

// =============================================================================
// Quotes
// =============================================================================

type MockQuoteService struct {
	mock.Mock
}

func (m *MockQuoteService) Create(ctx context.Context, tenantID, userID uuid.UUID, req salesapp.CreateQuoteRequest) (*salesapp.QuoteResponse, error) {
	args := m.Called(ctx, tenantID, userID, req)
	return respOrNil[salesapp.QuoteResponse](args, 0), args.Error(1)
}

func (m *MockQuoteService) GetByID(ctx context.Context, tenantID, quoteID uuid.UUID) (*salesapp.QuoteResponse, error) {
	args := m.Called(ctx, tenantID, quoteID)
	return respOrNil[salesapp.QuoteResponse](args, 0), args.Error(1)
}

func (m *MockQuoteService) List(ctx context.Context, tenantID uuid.UUID, filter salesapp.QuoteListFilter) (shared.Page[salesapp.QuoteResponse], error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(shared.Page[salesapp.QuoteResponse]), args.Error(1)
}

func (m *MockQuoteService) Update(ctx context.Context, tenantID, quoteID uuid.UUID, req salesapp.UpdateQuoteRequest) (*salesapp.QuoteResponse, error) {
	args := m.Called(ctx, tenantID, quoteID, req)
	return respOrNil[salesapp.QuoteResponse](args, 0), args.Error(1)
}

func (m *MockQuoteService) Delete(ctx context.Context, tenantID, quoteID uuid.UUID) error {
	return m.Called(ctx, tenantID, quoteID).Error(0)
}

func (m *MockQuoteService) Send(ctx context.Context, tenantID, quoteID uuid.UUID, req salesapp.SendDocumentRequest) (*salesapp.SendDocumentResponse, error) {
	args := m.Called(ctx, tenantID, quoteID, req)
	return respOrNil[salesapp.SendDocumentResponse](args, 0), args.Error(1)
}

func (m *MockQuoteService) PDF(ctx context.Context, tenantID, quoteID uuid.UUID) ([]byte, string, error) {
	args := m.Called(ctx, tenantID, quoteID)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}

func (m *MockQuoteService) Accept(ctx context.Context, tenantID, quoteID uuid.UUID) (*salesapp.QuoteResponse, error) {
	args := m.Called(ctx, tenantID, quoteID)
	return respOrNil[salesapp.QuoteResponse](args, 0), args.Error(1)
}

func (m *MockQuoteService) Decline(ctx context.Context, tenantID, quoteID uuid.UUID) (*salesapp.QuoteResponse, error) {
	args := m.Called(ctx, tenantID, quoteID)
	return respOrNil[salesapp.QuoteResponse](args, 0), args.Error(1)
}

func (m *MockQuoteService) Reopen(ctx context.Context, tenantID, quoteID uuid.UUID) (*salesapp.QuoteResponse, error) {
	args := m.Called(ctx, tenantID, quoteID)
	return respOrNil[salesapp.QuoteResponse](args, 0), args.Error(1)
}

func (m *MockQuoteService) ConvertToInvoice(ctx context.Context, tenantID, userID, quoteID uuid.UUID, req salesapp.ConvertQuoteRequest) (*salesapp.InvoiceResponse, error) {
	args := m.Called(ctx, tenantID, userID, quoteID, req)
	return respOrNil[salesapp.InvoiceResponse](args, 0), args.Error(1)
}

// =============================================================================
// Taxes
// =============================================================================

type MockTaxRateService struct {
	mock.Mock
}

func (m *MockTaxRateService) List(ctx context.Context, tenantID uuid.UUID) ([]salesapp.TaxRateResponse, error) {
	args := m.Called(ctx, tenantID)
	rates, _ := args.Get(0).([]salesapp.TaxRateResponse)
	return rates, args.Error(1)
}

func (m *MockTaxRateService) Create(ctx context.Context, tenantID uuid.UUID, req salesapp.CreateTaxRateRequest) (*salesapp.TaxRateResponse, error) {
	args := m.Called(ctx, tenantID, req)
	return respOrNil[salesapp.TaxRateResponse](args, 0), args.Error(1)
}

func (m *MockTaxRateService) Update(ctx context.Context, tenantID, rateID uuid.UUID, req salesapp.UpdateTaxRateRequest) (*salesapp.TaxRateResponse, error) {
	args := m.Called(ctx, tenantID, rateID, req)
	return respOrNil[salesapp.TaxRateResponse](args, 0), args.Error(1)
}

func (m *MockTaxRateService) Delete(ctx context.Context, tenantID, rateID uuid.UUID) error {
	return m.Called(ctx, tenantID, rateID).Error(0)
}

// Import reads the document so tests can assert on its content
func (m *MockTaxRateService) Import(ctx context.Context, tenantID uuid.UUID, r io.Reader) (*salesapp.TaxImportResult, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	args := m.Called(ctx, tenantID, string(body))
	return respOrNil[salesapp.TaxImportResult](args, 0), args.Error(1)
}

type MockTotalsService struct {
	mock.Mock
}

func (m *MockTotalsService) Preview(ctx context.Context, tenantID uuid.UUID, req salesapp.TotalsPreviewRequest) (*salesapp.TotalsPreviewResponse, error) {
	args := m.Called(ctx, tenantID, req)
	return respOrNil[salesapp.TotalsPreviewResponse](args, 0), args.Error(1)
}

// =============================================================================
// Expenses
// =============================================================================

type MockExpenseService struct {
	mock.Mock
}

func (m *MockExpenseService) Create(ctx context.Context, tenantID, userID uuid.UUID, req purchasingapp.CreateExpenseRequest) (*purchasingapp.ExpenseResponse, error) {
	args := m.Called(ctx, tenantID, userID, req)
	return respOrNil[purchasingapp.ExpenseResponse](args, 0), args.Error(1)
}

func (m *MockExpenseService) GetByID(ctx context.Context, tenantID, expenseID uuid.UUID) (*purchasingapp.ExpenseResponse, error) {
	args := m.Called(ctx, tenantID, expenseID)
	return respOrNil[purchasingapp.ExpenseResponse](args, 0), args.Error(1)
}

func (m *MockExpenseService) List(ctx context.Context, tenantID uuid.UUID, filter purchasingapp.ExpenseListFilter) (shared.Page[purchasingapp.ExpenseResponse], error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(shared.Page[purchasingapp.ExpenseResponse]), args.Error(1)
}

func (m *MockExpenseService) Update(ctx context.Context, tenantID, expenseID uuid.UUID, req purchasingapp.UpdateExpenseRequest) (*purchasingapp.ExpenseResponse, error) {
	args := m.Called(ctx, tenantID, expenseID, req)
	return respOrNil[purchasingapp.ExpenseResponse](args, 0), args.Error(1)
}

func (m *MockExpenseService) Delete(ctx context.Context, tenantID, expenseID uuid.UUID) error {
	return m.Called(ctx, tenantID, expenseID).Error(0)
}

func (m *MockExpenseService) MarkPaid(ctx context.Context, tenantID, expenseID uuid.UUID, req purchasingapp.MarkExpensePaidRequest) (*purchasingapp.ExpenseResponse, error) {
	args := m.Called(ctx, tenantID, expenseID, req)
	return respOrNil[purchasingapp.ExpenseResponse](args, 0), args.Error(1)
}

func (m *MockExpenseService) MarkPending(ctx context.Context, tenantID, expenseID uuid.UUID) (*purchasingapp.ExpenseResponse, error) {
	args := m.Called(ctx, tenantID, expenseID)
	return respOrNil[purchasingapp.ExpenseResponse](args, 0), args.Error(1)
}

func (m *MockExpenseService) AddAttachment(ctx context.Context, tenantID, expenseID uuid.UUID, file purchasingapp.FileUpload) (*purchasingapp.AttachmentResponse, error) {
	args := m.Called(ctx, tenantID, expenseID, file)
	return respOrNil[purchasingapp.AttachmentResponse](args, 0), args.Error(1)
}

func (m *MockExpenseService) ListAttachments(ctx context.Context, tenantID, expenseID uuid.UUID) ([]purchasingapp.AttachmentResponse, error) {
	args := m.Called(ctx, tenantID, expenseID)
	items, _ := args.Get(0).([]purchasingapp.AttachmentResponse)
	return items, args.Error(1)
}

func (m *MockExpenseService) AttachmentURL(ctx context.Context, tenantID, expenseID, attachmentID uuid.UUID) (*purchasingapp.AttachmentURLResponse, error) {
	args := m.Called(ctx, tenantID, expenseID, attachmentID)
	return respOrNil[purchasingapp.AttachmentURLResponse](args, 0), args.Error(1)
}

func (m *MockExpenseService) DeleteAttachment(ctx context.Context, tenantID, expenseID, attachmentID uuid.UUID) error {
	return m.Called(ctx, tenantID, expenseID, attachmentID).Error(0)
}

type MockExtractionService struct {
	mock.Mock
}

func (m *MockExtractionService) Extract(ctx context.Context, tenantID uuid.UUID, file purchasingapp.FileUpload) (*purchasingapp.ExtractionResponse, error) {
	args := m.Called(ctx, tenantID, file)
	return respOrNil[purchasingapp.ExtractionResponse](args, 0), args.Error(1)
}

// =============================================================================
// Audio
// =============================================================================

type MockAudioService struct {
	mock.Mock
}

func (m *MockAudioService) Upload(ctx context.Context, tenantID, userID uuid.UUID, req transcriptionapp.UploadAudioRequest, file transcriptionapp.AudioFile) (*transcriptionapp.AudioJobResponse, error) {
	args := m.Called(ctx, tenantID, userID, req, file)
	return respOrNil[transcriptionapp.AudioJobResponse](args, 0), args.Error(1)
}

func (m *MockAudioService) GetByID(ctx context.Context, tenantID, jobID uuid.UUID) (*transcriptionapp.AudioJobResponse, error) {
	args := m.Called(ctx, tenantID, jobID)
	return respOrNil[transcriptionapp.AudioJobResponse](args, 0), args.Error(1)
}

func (m *MockAudioService) List(ctx context.Context, tenantID uuid.UUID, filter transcriptionapp.AudioJobListFilter) (shared.Page[transcriptionapp.AudioJobResponse], error) {
	args := m.Called(ctx, tenantID, filter)
	return args.Get(0).(shared.Page[transcriptionapp.AudioJobResponse]), args.Error(1)
}

func (m *MockAudioService) Update(ctx context.Context, tenantID, jobID uuid.UUID, req transcriptionapp.UpdateAudioJobRequest) (*transcriptionapp.AudioJobResponse, error) {
	args := m.Called(ctx, tenantID, jobID, req)
	return respOrNil[transcriptionapp.AudioJobResponse](args, 0), args.Error(1)
}

func (m *MockAudioService) Delete(ctx context.Context, tenantID, jobID uuid.UUID) error {
	return m.Called(ctx, tenantID, jobID).Error(0)
}

func (m *MockAudioService) Retry(ctx context.Context, tenantID, jobID uuid.UUID) (*transcriptionapp.AudioJobResponse, error) {
	args := m.Called(ctx, tenantID, jobID)
	return respOrNil[transcriptionapp.AudioJobResponse](args, 0), args.Error(1)
}

func (m *MockAudioService) AudioURL(ctx context.Context, tenantID, jobID uuid.UUID) (*transcriptionapp.AudioURLResponse, error) {
	args := m.Called(ctx, tenantID, jobID)
	return respOrNil[transcriptionapp.AudioURLResponse](args, 0), args.Error(1)
}

// =============================================================================
// Realtime
// =============================================================================

type MockRealtimeHub struct {
	mock.Mock
}

func (m *MockRealtimeHub) Serve(w http.ResponseWriter, r *http.Request, tenantID, userID uuid.UUID, subscribe []string) error {
	return m.Called(tenantID, userID, subscribe).Error(0)
}

var (
	_ AuthService       = (*MockAuthService)(nil)
	_ QuoteService      = (*MockQuoteService)(nil)
	_ TaxRateService    = (*MockTaxRateService)(nil)
	_ TotalsService     = (*MockTotalsService)(nil)
	_ ExpenseService    = (*MockExpenseService)(nil)
	_ ExtractionService = (*MockExtractionService)(nil)
	_ AudioService      = (*MockAudioService)(nil)
	_ RealtimeHub       = (*MockRealtimeHub)(nil)
)
