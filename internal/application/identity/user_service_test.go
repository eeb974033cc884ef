package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestUser(t *testing.T, tenantID uuid.UUID, email string, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser(tenantID, email, "", testPassword, role)
	require.NoError(t, err)
	return u
}

func TestUserService_Create(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewUserService(users, zap.NewNop())
	ctx := context.Background()
	tenantID, actorID := uuid.New(), uuid.New()

	users.On("ExistsByEmail", ctx, "pablo@talleres.es").Return(false, nil)
	users.On("Save", ctx, mock.AnythingOfType("*identity.User")).Return(nil)

	resp, err := svc.Create(ctx, tenantID, actorID, CreateUserRequest{
		Email: "pablo@talleres.es", FullName: "Pablo", Password: testPassword, Role: "member",
	})

	require.NoError(t, err)
	assert.Equal(t, tenantID, resp.TenantID)
	assert.Equal(t, "member", resp.Role)
	assert.NotContains(t, resp.Permissions, string(identity.PermUserManage))
	users.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestUserService_Create_OwnerRequiresOwner(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewUserService(users, zap.NewNop())
	ctx := context.Background()
	tenantID := uuid.New()
	admin := newTestUser(t, tenantID, "admin@talleres.es", identity.RoleAdmin)

	users.On("FindByID", ctx, tenantID, admin.ID).Return(admin, nil)

	_, err := svc.Create(ctx, tenantID, admin.ID, CreateUserRequest{
		Email: "jefe@talleres.es", Password: testPassword, Role: "owner",
	})

	assertCode(t, err, "OWNER_REQUIRED")
	assert.Equal(t, shared.KindPermissionDenied, shared.KindOf(err))
}

func TestUserService_Create_EmailExists(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewUserService(users, zap.NewNop())
	ctx := context.Background()

	users.On("ExistsByEmail", ctx, "pablo@talleres.es").Return(true, nil)

	_, err := svc.Create(ctx, uuid.New(), uuid.New(), CreateUserRequest{
		Email: "Pablo@talleres.es", Password: testPassword, Role: "viewer",
	})

	assertCode(t, err, "EMAIL_EXISTS")
	users.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestUserService_ChangeRole(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewUserService(users, zap.NewNop())
	ctx := context.Background()
	tenantID := uuid.New()
	owner := newTestUser(t, tenantID, "jefa@talleres.es", identity.RoleOwner)
	member := newTestUser(t, tenantID, "pablo@talleres.es", identity.RoleMember)

	users.On("FindByID", ctx, tenantID, owner.ID).Return(owner, nil)
	users.On("FindByID", ctx, tenantID, member.ID).Return(member, nil)
	users.On("Save", ctx, member).Return(nil)

	resp, err := svc.ChangeRole(ctx, tenantID, owner.ID, member.ID, ChangeRoleRequest{Role: "owner"})

	require.NoError(t, err)
	assert.Equal(t, "owner", resp.Role)
}

func TestUserService_ChangeRole_Self(t *testing.T) {
	svc := NewUserService(new(MockUserRepository), zap.NewNop())
	id := uuid.New()

	_, err := svc.ChangeRole(context.Background(), uuid.New(), id, id, ChangeRoleRequest{Role: "viewer"})

	assertCode(t, err, "SELF_ROLE_CHANGE")
}

func TestUserService_Deactivate(t *testing.T) {
	users := new(MockUserRepository)
	svc := NewUserService(users, zap.NewNop())
	ctx := context.Background()
	tenantID := uuid.New()
	admin := newTestUser(t, tenantID, "admin@talleres.es", identity.RoleAdmin)
	owner := newTestUser(t, tenantID, "jefa@talleres.es", identity.RoleOwner)
	member := newTestUser(t, tenantID, "pablo@talleres.es", identity.RoleMember)

	users.On("FindByID", ctx, tenantID, admin.ID).Return(admin, nil)
	users.On("FindByID", ctx, tenantID, owner.ID).Return(owner, nil)
	users.On("FindByID", ctx, tenantID, member.ID).Return(member, nil)
	users.On("Save", ctx, member).Return(nil)

	require.NoError(t, svc.Deactivate(ctx, tenantID, admin.ID, member.ID))
	assert.Equal(t, identity.UserStatusDeactivated, member.Status)

	err := svc.Deactivate(ctx, tenantID, admin.ID, owner.ID)
	assertCode(t, err, "OWNER_REQUIRED")
	assert.Equal(t, identity.UserStatusActive, owner.Status)

	err = svc.Deactivate(ctx, tenantID, admin.ID, admin.ID)
	assertCode(t, err, "SELF_DEACTIVATION")
}
