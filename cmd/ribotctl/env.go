package main

import (
	"context"
	"fmt"

	identityapp "github.com/ribotflow/backend/internal/application/identity"
	"github.com/ribotflow/backend/internal/application/listing"
	partnerapp "github.com/ribotflow/backend/internal/application/partner"
	salesapp "github.com/ribotflow/backend/internal/application/sales"
	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/infrastructure/config"
	"github.com/ribotflow/backend/internal/infrastructure/event"
	"github.com/ribotflow/backend/internal/infrastructure/persistence"
	"go.uber.org/zap"
)

// env holds the services behind the admin commands. Events are published
// to a bus with no subscribers; list caches of a running server expire by TTL.
type env struct {
	log     *zap.Logger
	db      *persistence.Database
	tenants identity.TenantRepository
	users   identity.UserRepository

	tenantSvc   *identityapp.TenantService
	userSvc     *identityapp.UserService
	taxSvc      *salesapp.TaxRateService
	contactSvc  *partnerapp.ContactService
	supplierSvc *partnerapp.SupplierService
	recomputer  *salesapp.Recomputer
}

func newEnv(ctx context.Context, cfg *config.Config, log *zap.Logger) (*env, error) {
	db, err := persistence.NewDatabase(&cfg.Database, persistence.Options{Logger: log, LogLevel: "warn"})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := db.Ping(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	bus := event.NewInMemoryEventBus(log)
	lists := listing.Disabled()

	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)
	contactRepo := persistence.NewGormContactRepository(db.DB)
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	quoteRepo := persistence.NewGormQuoteRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	expenseRepo := persistence.NewGormExpenseRepository(db.DB)

	taxSvc := salesapp.NewTaxRateService(persistence.NewGormTaxRateRepository(db.DB), bus, lists, log)
	return &env{
		log:         log,
		db:          db,
		tenants:     tenantRepo,
		users:       userRepo,
		tenantSvc:   identityapp.NewTenantService(tenantRepo, userRepo, log, taxSvc),
		userSvc:     identityapp.NewUserService(userRepo, log),
		taxSvc:      taxSvc,
		contactSvc:  partnerapp.NewContactService(contactRepo, supplierRepo, quoteRepo, invoiceRepo, bus, lists),
		supplierSvc: partnerapp.NewSupplierService(supplierRepo, contactRepo, expenseRepo, bus, lists),
		recomputer:  salesapp.NewRecomputer(quoteRepo, invoiceRepo, log),
	}, nil
}

func (e *env) close() {
	if err := e.db.Close(); err != nil {
		e.log.Warn("Failed to close database", zap.Error(err))
	}
	_ = e.log.Sync()
}

// tenantBySlug resolves the --tenant flag
func (e *env) tenantBySlug(ctx context.Context, slug string) (*identity.Tenant, error) {
	t, err := e.tenants.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("tenant %q: %w", slug, err)
	}
	return t, nil
}

// actor returns the user a command acts as. The user must belong to the tenant.
func (e *env) actor(ctx context.Context, tenant *identity.Tenant, email string) (*identity.User, error) {
	u, err := e.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user %q: %w", email, err)
	}
	if u.TenantID != tenant.ID {
		return nil, fmt.Errorf("user %q does not belong to tenant %q", email, tenant.Slug)
	}
	return u, nil
}
