package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared/service"
)

// TotalsService computes totals of unsaved line items
type TotalsService struct {
	lines      lineResolver
	calculator *service.TotalsCalculator
}

// NewTotalsService creates a new TotalsService
func NewTotalsService(taxRepo sales.TaxRateRepository) *TotalsService {
	return &TotalsService{
		lines:      lineResolver{taxRepo: taxRepo},
		calculator: service.NewTotalsCalculator(),
	}
}

// Preview returns the totals the items would have on a document
func (s *TotalsService) Preview(ctx context.Context, tenantID uuid.UUID, req TotalsPreviewRequest) (*TotalsPreviewResponse, error) {
	inputs, err := s.lines.resolve(ctx, tenantID, req.Items)
	if err != nil {
		return nil, err
	}
	totals := s.calculator.Calculate(toServiceLines(inputs), service.DecimalFromFloatPtr(req.DiscountPercent))
	response := ToTotalsPreviewResponse(totals)
	return &response, nil
}
