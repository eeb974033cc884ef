package identity

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// TenantSeeder fills a freshly created tenant with starter data
type TenantSeeder interface {
	SeedTenant(ctx context.Context, tenantID uuid.UUID) error
}

// TenantService handles tenant management operations
type TenantService struct {
	tenantRepo identity.TenantRepository
	userRepo   identity.UserRepository
	seeders    []TenantSeeder
	logger     *zap.Logger
}

// NewTenantService creates a new tenant service. Seeders run after a tenant is bootstrapped.
func NewTenantService(
	tenantRepo identity.TenantRepository,
	userRepo identity.UserRepository,
	logger *zap.Logger,
	seeders ...TenantSeeder,
) *TenantService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TenantService{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		seeders:    seeders,
		logger:     logger,
	}
}

// Bootstrap creates a tenant and its owner account
func (s *TenantService) Bootstrap(ctx context.Context, req CreateTenantRequest) (*BootstrapResponse, error) {
	tenant, err := identity.NewTenant(req.Name, req.Slug)
	if err != nil {
		return nil, err
	}
	if req.Locale != "" || req.Currency != "" {
		locale, currency := req.Locale, req.Currency
		if locale == "" {
			locale = tenant.Locale
		}
		if currency == "" {
			currency = tenant.Currency
		}
		if err := tenant.SetLocale(locale, currency); err != nil {
			return nil, err
		}
	}

	exists, err := s.tenantRepo.ExistsBySlug(ctx, tenant.Slug)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("SLUG_EXISTS", "A tenant with this slug already exists")
	}

	ownerName := req.OwnerName
	if strings.TrimSpace(ownerName) == "" {
		ownerName = tenant.Name
	}
	owner, err := identity.NewUser(tenant.ID, req.OwnerEmail, ownerName, req.OwnerPassword, identity.RoleOwner)
	if err != nil {
		return nil, err
	}
	exists, err = s.userRepo.ExistsByEmail(ctx, owner.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_EXISTS", "Email is already registered")
	}

	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, owner); err != nil {
		return nil, err
	}

	for _, seeder := range s.seeders {
		if err := seeder.SeedTenant(ctx, tenant.ID); err != nil {
			// The tenant is usable without starter data
			s.logger.Warn("Failed to seed tenant",
				zap.String("tenant_id", tenant.ID.String()),
				zap.Error(err))
		}
	}

	s.logger.Info("Tenant created",
		zap.String("tenant_id", tenant.ID.String()),
		zap.String("slug", tenant.Slug),
		zap.String("owner_id", owner.ID.String()))

	return &BootstrapResponse{Tenant: ToTenantResponse(tenant), Owner: ToUserResponse(owner)}, nil
}

// Get returns the tenant
func (s *TenantService) Get(ctx context.Context, tenantID uuid.UUID) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	resp := ToTenantResponse(tenant)
	return &resp, nil
}

// UpdateSettings changes the name, billing details, locale and currency
func (s *TenantService) UpdateSettings(ctx context.Context, tenantID uuid.UUID, req UpdateTenantSettingsRequest) (*TenantResponse, error) {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if err := tenant.Rename(req.Name); err != nil {
		return nil, err
	}
	if err := tenant.UpdateBilling(req.TaxID, req.Address, req.SenderName, req.SenderEmail); err != nil {
		return nil, err
	}
	if err := tenant.SetLocale(req.Locale, req.Currency); err != nil {
		return nil, err
	}
	if err := s.tenantRepo.Save(ctx, tenant); err != nil {
		return nil, err
	}

	s.logger.Info("Tenant settings updated", zap.String("tenant_id", tenantID.String()))
	resp := ToTenantResponse(tenant)
	return &resp, nil
}
