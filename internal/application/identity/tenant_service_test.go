package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTenantTestService() (*TenantService, *MockTenantRepository, *MockUserRepository, *MockTenantSeeder) {
	tenants := new(MockTenantRepository)
	users := new(MockUserRepository)
	seeder := new(MockTenantSeeder)
	return NewTenantService(tenants, users, zap.NewNop(), seeder), tenants, users, seeder
}

func bootstrapRequest() CreateTenantRequest {
	return CreateTenantRequest{
		Name:          "Reformas Lucía",
		Slug:          "reformas-lucia",
		OwnerEmail:    "Lucia@Reformas.es",
		OwnerPassword: testPassword,
	}
}

func TestTenantService_Bootstrap(t *testing.T) {
	svc, tenants, users, seeder := newTenantTestService()
	ctx := context.Background()

	tenants.On("ExistsBySlug", ctx, "reformas-lucia").Return(false, nil)
	users.On("ExistsByEmail", ctx, "lucia@reformas.es").Return(false, nil)
	tenants.On("Save", ctx, mock.AnythingOfType("*identity.Tenant")).Return(nil)
	users.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)
	seeder.On("SeedTenant", ctx, mock.Anything).Return(nil)

	resp, err := svc.Bootstrap(ctx, bootstrapRequest())

	require.NoError(t, err)
	assert.Equal(t, "es-ES", resp.Tenant.Locale)
	assert.Equal(t, "EUR", resp.Tenant.Currency)
	assert.Equal(t, "owner", resp.Owner.Role)
	assert.Equal(t, "Reformas Lucía", resp.Owner.FullName)
	assert.Equal(t, resp.Tenant.ID, resp.Owner.TenantID)
	seeder.AssertCalled(t, "SeedTenant", ctx, resp.Tenant.ID)
}

func TestTenantService_Bootstrap_CustomLocale(t *testing.T) {
	svc, tenants, users, seeder := newTenantTestService()
	ctx := context.Background()
	req := bootstrapRequest()
	req.Locale = "ca-ES"

	tenants.On("ExistsBySlug", ctx, mock.Anything).Return(false, nil)
	users.On("ExistsByEmail", ctx, mock.Anything).Return(false, nil)
	tenants.On("Save", ctx, mock.Anything).Return(nil)
	users.On("Save", ctx, mock.Anything).Return(nil)
	seeder.On("SeedTenant", ctx, mock.Anything).Return(nil)

	resp, err := svc.Bootstrap(ctx, req)

	require.NoError(t, err)
	assert.Equal(t, "ca-ES", resp.Tenant.Locale)
	assert.Equal(t, "EUR", resp.Tenant.Currency)
}

func TestTenantService_Bootstrap_Conflicts(t *testing.T) {
	t.Run("slug taken", func(t *testing.T) {
		svc, tenants, users, _ := newTenantTestService()
		ctx := context.Background()
		tenants.On("ExistsBySlug", ctx, "reformas-lucia").Return(true, nil)

		_, err := svc.Bootstrap(ctx, bootstrapRequest())

		assertCode(t, err, "SLUG_EXISTS")
		tenants.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("email taken", func(t *testing.T) {
		svc, tenants, users, _ := newTenantTestService()
		ctx := context.Background()
		tenants.On("ExistsBySlug", ctx, "reformas-lucia").Return(false, nil)
		users.On("ExistsByEmail", ctx, "lucia@reformas.es").Return(true, nil)

		_, err := svc.Bootstrap(ctx, bootstrapRequest())

		assertCode(t, err, "EMAIL_EXISTS")
		tenants.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("invalid slug", func(t *testing.T) {
		svc, _, _, _ := newTenantTestService()
		req := bootstrapRequest()
		req.Slug = "Reformas Lucía"

		_, err := svc.Bootstrap(context.Background(), req)

		assertCode(t, err, "INVALID_TENANT_SLUG")
	})
}

func TestTenantService_Bootstrap_SeedFailureIsNotFatal(t *testing.T) {
	svc, tenants, users, seeder := newTenantTestService()
	ctx := context.Background()

	tenants.On("ExistsBySlug", ctx, mock.Anything).Return(false, nil)
	users.On("ExistsByEmail", ctx, mock.Anything).Return(false, nil)
	tenants.On("Save", ctx, mock.Anything).Return(nil)
	users.On("Save", ctx, mock.Anything).Return(nil)
	seeder.On("SeedTenant", ctx, mock.Anything).Return(errors.New("db timeout"))

	_, err := svc.Bootstrap(ctx, bootstrapRequest())

	assert.NoError(t, err)
}

func TestTenantService_UpdateSettings(t *testing.T) {
	svc, tenants, _, _ := newTenantTestService()
	ctx := context.Background()
	tenant, err := identity.NewTenant("Reformas Lucía", "reformas-lucia")
	require.NoError(t, err)

	tenants.On("FindByID", ctx, tenant.ID).Return(tenant, nil)
	tenants.On("Save", ctx, tenant).Return(nil)

	resp, err := svc.UpdateSettings(ctx, tenant.ID, UpdateTenantSettingsRequest{
		Name:        "Reformas Lucía SL",
		TaxID:       "b12345678",
		Address:     "Calle Mayor 1, Zaragoza",
		SenderEmail: "Facturas@Reformas.es",
		Locale:      "es-ES",
		Currency:    "eur",
	})

	require.NoError(t, err)
	assert.Equal(t, "Reformas Lucía SL", resp.Name)
	assert.Equal(t, "B12345678", resp.TaxID)
	assert.Equal(t, "facturas@reformas.es", resp.SenderEmail)
	assert.Equal(t, "EUR", resp.Currency)
}

func TestTenantService_UpdateSettings_Invalid(t *testing.T) {
	svc, tenants, _, _ := newTenantTestService()
	ctx := context.Background()
	tenant, err := identity.NewTenant("Reformas Lucía", "reformas-lucia")
	require.NoError(t, err)

	tenants.On("FindByID", ctx, tenant.ID).Return(tenant, nil)

	_, err = svc.UpdateSettings(ctx, tenant.ID, UpdateTenantSettingsRequest{
		Name: "Reformas", Locale: "es-ES", Currency: "EURO",
	})

	assertCode(t, err, "INVALID_CURRENCY")
	tenants.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
