package sales

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTaxRateTestService() (*TaxRateService, *MockTaxRateRepository, *capturePublisher) {
	repo := new(MockTaxRateRepository)
	events := &capturePublisher{}
	return NewTaxRateService(repo, events, listing.Disabled(), zap.NewNop()), repo, events
}

func createTestTaxRate(t *testing.T, tenantID uuid.UUID, name string, percent int64, taxType service.TaxType) *sales.TaxRate {
	t.Helper()
	rate, err := sales.NewTaxRate(tenantID, name, decimal.NewFromInt(percent), taxType)
	require.NoError(t, err)
	rate.ClearDomainEvents()
	return rate
}

func TestTaxRateService_Create_Success(t *testing.T) {
	svc, repo, events := newTaxRateTestService()
	ctx := context.Background()
	tenantID := uuid.New()

	repo.On("ExistsByName", ctx, tenantID, "IVA 10%").Return(false, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*sales.TaxRate")).Return(nil)

	resp, err := svc.Create(ctx, tenantID, CreateTaxRateRequest{Name: " IVA 10% ", Percent: 10})

	require.NoError(t, err)
	assert.Equal(t, "IVA 10%", resp.Name)
	assert.Equal(t, "vat", resp.Type)
	assertDecimal(t, "10", resp.Percent)
	assert.Equal(t, []string{"tax_rate.INSERT"}, events.types())
}

func TestTaxRateService_Create_DuplicateName(t *testing.T) {
	svc, repo, _ := newTaxRateTestService()
	ctx := context.Background()
	tenantID := uuid.New()

	repo.On("ExistsByName", ctx, tenantID, "IVA 21%").Return(true, nil)

	_, err := svc.Create(ctx, tenantID, CreateTaxRateRequest{Name: "IVA 21%", Percent: 21})

	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTaxRateService_Create_DefaultClearsPreviousDefault(t *testing.T) {
	svc, repo, _ := newTaxRateTestService()
	ctx := context.Background()
	tenantID := uuid.New()
	previous := createTestTaxRate(t, tenantID, "IVA 21%", 21, service.TaxTypeVAT)
	previous.SetDefault(true)
	retention := createTestTaxRate(t, tenantID, "IRPF 15%", 15, service.TaxTypeRetention)
	retention.SetDefault(true)

	repo.On("ExistsByName", ctx, tenantID, "IVA 10%").Return(false, nil)
	repo.On("Save", ctx, mock.Anything).Return(nil)
	repo.On("FindAllForTenant", ctx, tenantID).Return([]sales.TaxRate{*previous, *retention}, nil)

	resp, err := svc.Create(ctx, tenantID, CreateTaxRateRequest{Name: "IVA 10%", Percent: 10, IsDefault: true})

	require.NoError(t, err)
	assert.True(t, resp.IsDefault)
	repo.AssertCalled(t, "Save", ctx, mock.MatchedBy(func(r *sales.TaxRate) bool {
		return r.ID == previous.ID && !r.IsDefault
	}))
	repo.AssertNotCalled(t, "Save", ctx, mock.MatchedBy(func(r *sales.TaxRate) bool {
		return r.ID == retention.ID
	}))
}

func TestTaxRateService_Update_RenameToTakenName(t *testing.T) {
	svc, repo, _ := newTaxRateTestService()
	ctx := context.Background()
	tenantID := uuid.New()
	rate := createTestTaxRate(t, tenantID, "IVA 4%", 4, service.TaxTypeVAT)

	repo.On("FindByIDForTenant", ctx, tenantID, rate.ID).Return(rate, nil)
	repo.On("ExistsByName", ctx, tenantID, "IVA 21%").Return(true, nil)

	_, err := svc.Update(ctx, tenantID, rate.ID, UpdateTaxRateRequest{Name: "IVA 21%", Percent: 21})

	assert.ErrorIs(t, err, shared.ErrAlreadyExists)
}

func TestTaxRateService_Update_InvalidPercent(t *testing.T) {
	svc, repo, _ := newTaxRateTestService()
	ctx := context.Background()
	tenantID := uuid.New()
	rate := createTestTaxRate(t, tenantID, "IVA 4%", 4, service.TaxTypeVAT)

	repo.On("FindByIDForTenant", ctx, tenantID, rate.ID).Return(rate, nil)

	_, err := svc.Update(ctx, tenantID, rate.ID, UpdateTaxRateRequest{Name: "IVA 4%", Percent: 140})

	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_TAX_PERCENT", domainErr.Code)
}

func TestTaxRateService_Delete(t *testing.T) {
	svc, repo, events := newTaxRateTestService()
	ctx := context.Background()
	tenantID := uuid.New()
	rate := createTestTaxRate(t, tenantID, "IVA 4%", 4, service.TaxTypeVAT)

	repo.On("FindByIDForTenant", ctx, tenantID, rate.ID).Return(rate, nil)
	repo.On("DeleteForTenant", ctx, tenantID, rate.ID).Return(nil)

	require.NoError(t, svc.Delete(ctx, tenantID, rate.ID))
	assert.Equal(t, []string{"tax_rate.DELETE"}, events.types())
}

const testCatalog = `
taxes:
  - name: IVA 21%
    percent: 21
    type: vat
    default: true
  - name: IVA 10%
    percent: 10
  - name: IRPF 15%
    percent: 15
    type: retention
  - name: iva 10%
    percent: 10
`

func TestTaxRateService_Import_CreatesAndUpdates(t *testing.T) {
	svc, repo, _ := newTaxRateTestService()
	ctx := context.Background()
	tenantID := uuid.New()
	existing := createTestTaxRate(t, tenantID, "IVA 21%", 18, service.TaxTypeVAT)

	repo.On("FindAllForTenant", ctx, tenantID).Return([]sales.TaxRate{*existing}, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*sales.TaxRate")).Return(nil)

	result, err := svc.Import(ctx, tenantID, strings.NewReader(testCatalog))

	require.NoError(t, err)
	assert.Equal(t, 2, result.Created)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, []string{"iva 10%"}, result.Skipped)
	repo.AssertCalled(t, "Save", ctx, mock.MatchedBy(func(r *sales.TaxRate) bool {
		return r.ID == existing.ID && r.Percent.Equal(decimal.NewFromInt(21)) && r.IsDefault
	}))
	repo.AssertCalled(t, "Save", ctx, mock.MatchedBy(func(r *sales.TaxRate) bool {
		return r.Name == "IRPF 15%" && r.Type == service.TaxTypeRetention
	}))
}

func TestTaxRateService_Import_InvalidEntry(t *testing.T) {
	svc, repo, _ := newTaxRateTestService()
	ctx := context.Background()
	tenantID := uuid.New()

	repo.On("FindAllForTenant", ctx, tenantID).Return([]sales.TaxRate{}, nil)

	_, err := svc.Import(ctx, tenantID, strings.NewReader("taxes:\n  - name: Raro\n    percent: 12\n    type: luxury\n"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "entry 1 (Raro)")
	assert.ErrorIs(t, err, shared.NewDomainError("INVALID_TAX_TYPE", ""))
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestTaxRateService_SeedTenant(t *testing.T) {
	svc, repo, _ := newTaxRateTestService()
	ctx := context.Background()
	tenantID := uuid.New()

	repo.On("FindAllForTenant", ctx, tenantID).Return([]sales.TaxRate{}, nil)
	repo.On("Save", ctx, mock.AnythingOfType("*sales.TaxRate")).Return(nil)

	require.NoError(t, svc.SeedTenant(ctx, tenantID))

	repo.AssertNumberOfCalls(t, "Save", 6)
	repo.AssertCalled(t, "Save", ctx, mock.MatchedBy(func(r *sales.TaxRate) bool {
		return r.Name == "IVA 21%" && r.IsDefault && r.Type == service.TaxTypeVAT
	}))
	repo.AssertCalled(t, "Save", ctx, mock.MatchedBy(func(r *sales.TaxRate) bool {
		return r.Name == "IRPF 15%" && r.IsDefault && r.Type == service.TaxTypeRetention
	}))
}

func TestParseTaxCatalog(t *testing.T) {
	t.Run("empty document", func(t *testing.T) {
		catalog, err := ParseTaxCatalog(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, catalog.Taxes)
	})

	t.Run("unknown field", func(t *testing.T) {
		_, err := ParseTaxCatalog(strings.NewReader("taxes:\n  - name: IVA\n    rate: 21\n"))
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_TAX_CATALOG", domainErr.Code)
	})
}

func TestTotalsService_Preview(t *testing.T) {
	repo := new(MockTaxRateRepository)
	svc := NewTotalsService(repo)
	ctx := context.Background()

	t.Run("empty items yield zeros", func(t *testing.T) {
		resp, err := svc.Preview(ctx, uuid.New(), TotalsPreviewRequest{})
		require.NoError(t, err)
		assertDecimal(t, "0", resp.Subtotal)
		assertDecimal(t, "0", resp.Total)
		assert.Empty(t, resp.Breakdown)
	})

	t.Run("discount is clamped", func(t *testing.T) {
		resp, err := svc.Preview(ctx, uuid.New(), TotalsPreviewRequest{
			Items:           []LineItemRequest{vatItem("A", 1, 100)},
			DiscountPercent: ptrFloat(150),
		})
		require.NoError(t, err)
		assertDecimal(t, "100", resp.DiscountPercent)
		assertDecimal(t, "100", resp.DiscountAmount)
		assertDecimal(t, "0", resp.Total)
	})

	t.Run("negative percent counts as retention", func(t *testing.T) {
		resp, err := svc.Preview(ctx, uuid.New(), TotalsPreviewRequest{
			Items: []LineItemRequest{{
				Description: "Honorarios",
				Quantity:    ptrFloat(1),
				UnitPrice:   ptrFloat(1000),
				Taxes: []TaxLineRequest{
					{Name: "IVA 21%", Percent: ptrFloat(21)},
					{Name: "IRPF", Percent: ptrFloat(-15)},
				},
			}},
		})
		require.NoError(t, err)
		assertDecimal(t, "210", resp.TaxAmount)
		assertDecimal(t, "150", resp.RetentionAmount)
		assertDecimal(t, "1060", resp.Total)
		assert.Len(t, resp.Breakdown, 2)
	})

	repo.AssertNotCalled(t, "FindAllForTenant", mock.Anything, mock.Anything)
}
