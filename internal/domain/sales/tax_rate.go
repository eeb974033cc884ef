package sales

import (
	"strings"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// AggregateTypeTaxRate is the aggregate type name for tax rates
const AggregateTypeTaxRate = "tax_rate"

// TaxRate is an entry of the tenant tax catalog offered when editing line items
type TaxRate struct {
	shared.TenantAggregateRoot
	Name      string
	Percent   decimal.Decimal
	Type      service.TaxType
	IsDefault bool
}

// NewTaxRate creates a catalog tax rate
func NewTaxRate(tenantID uuid.UUID, name string, percent decimal.Decimal, taxType service.TaxType) (*TaxRate, error) {
	r := &TaxRate{TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID)}
	if err := r.Update(name, percent, taxType); err != nil {
		return nil, err
	}
	r.ClearDomainEvents()
	r.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeTaxRate, shared.ChangeInsert, r.ID, tenantID))
	return r, nil
}

// Update changes the rate definition
func (r *TaxRate) Update(name string, percent decimal.Decimal, taxType service.TaxType) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_TAX_NAME", "Tax name cannot be empty")
	}
	if len(name) > 50 {
		return shared.NewDomainError("INVALID_TAX_NAME", "Tax name cannot exceed 50 characters")
	}
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return shared.NewDomainError("INVALID_TAX_PERCENT", "Tax percent must be between 0 and 100")
	}
	if !taxType.IsValid() {
		return shared.NewDomainError("INVALID_TAX_TYPE", "Tax type must be vat or retention")
	}
	r.Name = name
	r.Percent = percent
	r.Type = taxType
	r.Touch()
	r.AddDomainEvent(shared.NewRowChangedEvent(AggregateTypeTaxRate, shared.ChangeUpdate, r.ID, r.TenantID))
	return nil
}

// SetDefault marks whether the rate is preselected on new lines
func (r *TaxRate) SetDefault(isDefault bool) {
	r.IsDefault = isDefault
	r.Touch()
}

// ToTaxLine returns the tax as applied to a line item
func (r *TaxRate) ToTaxLine() service.TaxLine {
	return service.TaxLine{Name: r.Name, Percent: r.Percent, Type: r.Type}
}
