package sales

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
)

// lineResolver turns item requests into domain line inputs, expanding
// catalog tax rate references
type lineResolver struct {
	taxRepo sales.TaxRateRepository
}

func (r lineResolver) resolve(ctx context.Context, tenantID uuid.UUID, items []LineItemRequest) ([]sales.LineInput, error) {
	catalog, err := r.catalogFor(ctx, tenantID, items)
	if err != nil {
		return nil, err
	}

	inputs := make([]sales.LineInput, len(items))
	for i, item := range items {
		taxes := make([]service.TaxLine, 0, len(item.Taxes)+len(item.TaxRateIDs))
		for _, t := range item.Taxes {
			taxes = append(taxes, t.toDomain())
		}
		for _, id := range item.TaxRateIDs {
			rate, ok := catalog[id]
			if !ok {
				return nil, shared.NewDomainError("INVALID_TAX_RATE", "Tax rate not found")
			}
			taxes = append(taxes, rate.ToTaxLine())
		}
		inputs[i] = sales.LineInput{
			Description: item.Description,
			Quantity:    service.DecimalFromFloatPtr(item.Quantity),
			UnitPrice:   service.DecimalFromFloatPtr(item.UnitPrice),
			Taxes:       taxes,
		}
	}
	return inputs, nil
}

// catalogFor loads the tenant catalog only when an item references it
func (r lineResolver) catalogFor(ctx context.Context, tenantID uuid.UUID, items []LineItemRequest) (map[uuid.UUID]*sales.TaxRate, error) {
	needed := false
	for _, item := range items {
		if len(item.TaxRateIDs) > 0 {
			needed = true
			break
		}
	}
	if !needed || r.taxRepo == nil {
		return nil, nil
	}

	rates, err := r.taxRepo.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	catalog := make(map[uuid.UUID]*sales.TaxRate, len(rates))
	for i := range rates {
		catalog[rates[i].ID] = &rates[i]
	}
	return catalog, nil
}

// toServiceLines drops the descriptions for a totals-only calculation
func toServiceLines(inputs []sales.LineInput) []service.LineInput {
	lines := make([]service.LineInput, len(inputs))
	for i, in := range inputs {
		lines[i] = service.LineInput{
			Quantity:  in.Quantity,
			UnitPrice: in.UnitPrice,
			Taxes:     in.Taxes,
		}
	}
	return lines
}
