// Package tenant isolates tenant data at the GORM layer.
//
// Two mechanisms cooperate: every repository statement runs inside Session, which
// sets the PostgreSQL setting app.current_tenant used by the row-level security
// policies, and the Guard callback refuses (or scopes) statements on tenant-owned
// tables that carry no tenant_id condition.
package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/infrastructure/logger"
	"gorm.io/gorm"
)

// Column is the tenant discriminator column
const Column = "tenant_id"

var (
	// ErrTenantIDRequired is returned when a tenant-owned table is touched without a tenant
	ErrTenantIDRequired = errors.New("tenant_id is required but not found in context")
	// ErrInvalidTenantID is returned when the tenant id in context is not a uuid
	ErrInvalidTenantID = errors.New("invalid tenant_id format")
)

const (
	setTenantSQL = "SELECT set_config('app.current_tenant', ?, true)"
	setBypassSQL = "SELECT set_config('app.bypass_rls', 'on', true)"
)

type systemKey struct{}

// WithTenant stores tenantID in ctx for the guard callback and the logger
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return logger.WithTenantID(ctx, tenantID.String())
}

// FromContext returns the tenant stored in ctx
func FromContext(ctx context.Context) (uuid.UUID, error) {
	raw := logger.TenantID(ctx)
	if raw == "" {
		return uuid.Nil, ErrTenantIDRequired
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, ErrInvalidTenantID
	}
	return id, nil
}

// AsSystem marks ctx as a cross-tenant maintenance context (schedulers, CLI)
func AsSystem(ctx context.Context) context.Context {
	return context.WithValue(ctx, systemKey{}, true)
}

// IsSystem reports whether ctx was marked with AsSystem
func IsSystem(ctx context.Context) bool {
	v, _ := ctx.Value(systemKey{}).(bool)
	return v
}

// Scope filters a query by tenant
func Scope(tenantID uuid.UUID) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(Column+" = ?", tenantID)
	}
}

// Session runs fn in a transaction bound to tenantID. The row-level security
// setting is local to the transaction, so pooled connections never leak it.
func Session(ctx context.Context, db *gorm.DB, tenantID uuid.UUID, fn func(tx *gorm.DB) error) error {
	if tenantID == uuid.Nil {
		return ErrTenantIDRequired
	}
	ctx = WithTenant(ctx, tenantID)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(setTenantSQL, tenantID.String()).Error; err != nil {
			return err
		}
		return fn(tx)
	})
}

// System runs fn in a transaction that bypasses row-level security. Used by
// cross-tenant jobs such as quote expiry and the audio worker.
func System(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	ctx = AsSystem(ctx)
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(setBypassSQL).Error; err != nil {
			return err
		}
		return fn(tx)
	})
}
