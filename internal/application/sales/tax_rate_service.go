package sales

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/sales"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// TaxRateService manages the tenant tax catalog
type TaxRateService struct {
	taxRepo sales.TaxRateRepository
	events  shared.EventPublisher
	lists   *listing.Lists
	logger  *zap.Logger
}

// NewTaxRateService creates a new TaxRateService
func NewTaxRateService(taxRepo sales.TaxRateRepository, events shared.EventPublisher, lists *listing.Lists, logger *zap.Logger) *TaxRateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaxRateService{taxRepo: taxRepo, events: events, lists: lists, logger: logger}
}

// List returns the whole catalog of the tenant
func (s *TaxRateService) List(ctx context.Context, tenantID uuid.UUID) ([]TaxRateResponse, error) {
	rates, err := s.taxRepo.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	out := make([]TaxRateResponse, len(rates))
	for i := range rates {
		out[i] = ToTaxRateResponse(&rates[i])
	}
	return out, nil
}

// Create adds a tax rate. Names are unique per tenant.
func (s *TaxRateService) Create(ctx context.Context, tenantID uuid.UUID, req CreateTaxRateRequest) (*TaxRateResponse, error) {
	exists, err := s.taxRepo.ExistsByName(ctx, tenantID, strings.TrimSpace(req.Name))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.ErrAlreadyExists.WithMessage("Tax rate with this name already exists")
	}

	rate, err := sales.NewTaxRate(tenantID, req.Name, service.DecimalFromFloat(req.Percent), taxTypeOrVAT(req.Type))
	if err != nil {
		return nil, err
	}
	if err := s.save(ctx, rate, req.IsDefault); err != nil {
		return nil, err
	}

	response := ToTaxRateResponse(rate)
	return &response, nil
}

// Update changes a tax rate. Existing documents keep the rate they were
// created with.
func (s *TaxRateService) Update(ctx context.Context, tenantID, rateID uuid.UUID, req UpdateTaxRateRequest) (*TaxRateResponse, error) {
	rate, err := s.taxRepo.FindByIDForTenant(ctx, tenantID, rateID)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if !strings.EqualFold(name, rate.Name) {
		exists, err := s.taxRepo.ExistsByName(ctx, tenantID, name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, shared.ErrAlreadyExists.WithMessage("Tax rate with this name already exists")
		}
	}

	if err := rate.Update(name, service.DecimalFromFloat(req.Percent), taxTypeOrVAT(req.Type)); err != nil {
		return nil, err
	}
	if err := s.save(ctx, rate, req.IsDefault); err != nil {
		return nil, err
	}

	response := ToTaxRateResponse(rate)
	return &response, nil
}

// Delete removes a tax rate from the catalog
func (s *TaxRateService) Delete(ctx context.Context, tenantID, rateID uuid.UUID) error {
	rate, err := s.taxRepo.FindByIDForTenant(ctx, tenantID, rateID)
	if err != nil {
		return err
	}
	if err := s.taxRepo.DeleteForTenant(ctx, tenantID, rateID); err != nil {
		return err
	}
	rate.AddDomainEvent(shared.NewRowChangedEvent(sales.AggregateTypeTaxRate, shared.ChangeDelete, rate.ID, tenantID))
	s.lists.Changed(ctx, s.events, rate, tenantID)
	return nil
}

// save stores rate and keeps a single default per tax type
func (s *TaxRateService) save(ctx context.Context, rate *sales.TaxRate, isDefault bool) error {
	rate.SetDefault(isDefault)
	if err := s.taxRepo.Save(ctx, rate); err != nil {
		return err
	}
	s.lists.Changed(ctx, s.events, rate, rate.TenantID)

	if !isDefault {
		return nil
	}
	others, err := s.taxRepo.FindAllForTenant(ctx, rate.TenantID)
	if err != nil {
		return err
	}
	for i := range others {
		other := &others[i]
		if other.ID == rate.ID || !other.IsDefault || other.Type != rate.Type {
			continue
		}
		other.SetDefault(false)
		if err := s.taxRepo.Save(ctx, other); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Catalog import
// =============================================================================

// TaxCatalogEntry is one rate of a YAML catalog file
type TaxCatalogEntry struct {
	Name    string  `yaml:"name"`
	Percent float64 `yaml:"percent"`
	Type    string  `yaml:"type"`
	Default bool    `yaml:"default"`
}

// TaxCatalog is the YAML document accepted by Import:
//
//	taxes:
//	  - name: IVA 21%
//	    percent: 21
//	    type: vat
//	    default: true
//	  - name: IRPF 15%
//	    percent: 15
//	    type: retention
type TaxCatalog struct {
	Taxes []TaxCatalogEntry `yaml:"taxes"`
}

// ParseTaxCatalog decodes a YAML catalog. Unknown fields are rejected.
func ParseTaxCatalog(r io.Reader) (*TaxCatalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var catalog TaxCatalog
	if err := dec.Decode(&catalog); err != nil {
		if errors.Is(err, io.EOF) {
			return &catalog, nil
		}
		return nil, shared.NewDomainError("INVALID_TAX_CATALOG", fmt.Sprintf("Invalid tax catalog: %v", err))
	}
	return &catalog, nil
}

// Import creates or updates the rates of a YAML catalog. Rates are matched by
// name, case-insensitively. Repeated names in the file are skipped.
func (s *TaxRateService) Import(ctx context.Context, tenantID uuid.UUID, r io.Reader) (*TaxImportResult, error) {
	catalog, err := ParseTaxCatalog(r)
	if err != nil {
		return nil, err
	}

	existing, err := s.taxRepo.FindAllForTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*sales.TaxRate, len(existing))
	for i := range existing {
		byName[strings.ToLower(existing[i].Name)] = &existing[i]
	}

	result := &TaxImportResult{}
	seen := make(map[string]bool, len(catalog.Taxes))
	for i, entry := range catalog.Taxes {
		key := strings.ToLower(strings.TrimSpace(entry.Name))
		if seen[key] {
			result.Skipped = append(result.Skipped, entry.Name)
			continue
		}
		seen[key] = true

		percent := service.DecimalFromFloat(entry.Percent)
		if rate, ok := byName[key]; ok {
			if err := rate.Update(entry.Name, percent, taxTypeOrVAT(entry.Type)); err != nil {
				return result, fmt.Errorf("entry %d (%s): %w", i+1, entry.Name, err)
			}
			if err := s.save(ctx, rate, entry.Default); err != nil {
				return result, err
			}
			result.Updated++
			continue
		}

		rate, err := sales.NewTaxRate(tenantID, entry.Name, percent, taxTypeOrVAT(entry.Type))
		if err != nil {
			return result, fmt.Errorf("entry %d (%s): %w", i+1, entry.Name, err)
		}
		if err := s.save(ctx, rate, entry.Default); err != nil {
			return result, err
		}
		byName[key] = rate
		result.Created++
	}

	s.logger.Info("Tax catalog imported",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

//go:embed default_taxes.yaml
var defaultTaxCatalog []byte

// SeedTenant imports the default Spanish catalog into a new tenant
func (s *TaxRateService) SeedTenant(ctx context.Context, tenantID uuid.UUID) error {
	_, err := s.Import(ctx, tenantID, bytes.NewReader(defaultTaxCatalog))
	return err
}

func taxTypeOrVAT(t string) service.TaxType {
	if t == "" {
		return service.TaxTypeVAT
	}
	return service.TaxType(strings.ToLower(t))
}
