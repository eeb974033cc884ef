package tenant

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type note struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	TenantID uuid.UUID `gorm:"type:uuid"`
	Body     string
}

type setting struct {
	Name  string `gorm:"primaryKey"`
	Value string
}

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&note{}, &setting{}))
	require.NoError(t, RegisterGuard(db))
	return db
}

func seed(t *testing.T, db *gorm.DB, tenants ...uuid.UUID) {
	t.Helper()
	for _, tenantID := range tenants {
		for i := 0; i < 2; i++ {
			require.NoError(t, db.Create(&note{ID: uuid.New(), TenantID: tenantID, Body: "n"}).Error)
		}
	}
}

func TestGuard_ScopesQueriesToContextTenant(t *testing.T) {
	db := setupDB(t)
	tenantA, tenantB := uuid.New(), uuid.New()
	seed(t, db, tenantA, tenantB)

	var notes []note
	ctx := WithTenant(context.Background(), tenantA)
	require.NoError(t, db.WithContext(ctx).Find(&notes).Error)
	assert.Len(t, notes, 2)
	for _, n := range notes {
		assert.Equal(t, tenantA, n.TenantID)
	}
}

func TestGuard_RejectsMissingTenant(t *testing.T) {
	db := setupDB(t)
	seed(t, db, uuid.New())

	var notes []note
	err := db.WithContext(context.Background()).Find(&notes).Error
	assert.ErrorIs(t, err, ErrTenantIDRequired)

	var count int64
	err = db.WithContext(context.Background()).Model(&note{}).Count(&count).Error
	assert.ErrorIs(t, err, ErrTenantIDRequired)
}

func TestGuard_KeepsExplicitCondition(t *testing.T) {
	db := setupDB(t)
	tenantA, tenantB := uuid.New(), uuid.New()
	seed(t, db, tenantA, tenantB)

	var count int64
	err := db.WithContext(context.Background()).Model(&note{}).Scopes(Scope(tenantB)).Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	err = db.WithContext(context.Background()).Model(&note{}).Where("tenant_id = ? AND body = ?", tenantA, "n").Count(&count).Error
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGuard_SystemContextSeesAllTenants(t *testing.T) {
	db := setupDB(t)
	seed(t, db, uuid.New(), uuid.New())

	var count int64
	require.NoError(t, db.WithContext(AsSystem(context.Background())).Model(&note{}).Count(&count).Error)
	assert.Equal(t, int64(4), count)
}

func TestGuard_ScopesDeletes(t *testing.T) {
	db := setupDB(t)
	tenantA, tenantB := uuid.New(), uuid.New()
	seed(t, db, tenantA, tenantB)

	ctx := WithTenant(context.Background(), tenantA)
	res := db.WithContext(ctx).Where("body = ?", "n").Delete(&note{})
	require.NoError(t, res.Error)
	assert.Equal(t, int64(2), res.RowsAffected)

	var count int64
	require.NoError(t, db.WithContext(AsSystem(context.Background())).Model(&note{}).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestGuard_IgnoresTablesWithoutTenantColumn(t *testing.T) {
	db := setupDB(t)
	require.NoError(t, db.Create(&setting{Name: "k", Value: "v"}).Error)

	var s setting
	require.NoError(t, db.WithContext(context.Background()).First(&s, "name = ?", "k").Error)
	assert.Equal(t, "v", s.Value)
}

func TestFromContext(t *testing.T) {
	_, err := FromContext(context.Background())
	assert.ErrorIs(t, err, ErrTenantIDRequired)

	id := uuid.New()
	got, err := FromContext(WithTenant(context.Background(), id))
	require.NoError(t, err)
	assert.Equal(t, id, got)

	assert.False(t, IsSystem(context.Background()))
	assert.True(t, IsSystem(AsSystem(context.Background())))
}

func TestSession_RequiresTenant(t *testing.T) {
	db := setupDB(t)
	err := Session(context.Background(), db, uuid.Nil, func(*gorm.DB) error { return nil })
	assert.ErrorIs(t, err, ErrTenantIDRequired)
}
