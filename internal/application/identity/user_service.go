package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// UserService manages the members of a tenant
type UserService struct {
	userRepo identity.UserRepository
	logger   *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(userRepo identity.UserRepository, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{userRepo: userRepo, logger: logger}
}

// Create adds a user to the tenant. Only owners can create other owners.
func (s *UserService) Create(ctx context.Context, tenantID, actorID uuid.UUID, req CreateUserRequest) (*UserResponse, error) {
	role := identity.Role(req.Role)
	if err := s.checkGrant(ctx, tenantID, actorID, role); err != nil {
		return nil, err
	}

	user, err := identity.NewUser(tenantID, req.Email, req.FullName, req.Password, role)
	if err != nil {
		return nil, err
	}
	exists, err := s.userRepo.ExistsByEmail(ctx, user.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("EMAIL_EXISTS", "Email is already registered")
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("tenant_id", tenantID.String()),
		zap.String("user_id", user.ID.String()),
		zap.String("role", req.Role))
	resp := ToUserResponse(user)
	return &resp, nil
}

// GetByID returns a user of the tenant
func (s *UserService) GetByID(ctx context.Context, tenantID, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

// ChangeRole assigns another role. Users cannot change their own role.
func (s *UserService) ChangeRole(ctx context.Context, tenantID, actorID, userID uuid.UUID, req ChangeRoleRequest) (*UserResponse, error) {
	if actorID == userID {
		return nil, shared.NewPermissionError("SELF_ROLE_CHANGE", "You cannot change your own role")
	}
	user, err := s.userRepo.FindByID(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	role := identity.Role(req.Role)
	if err := s.checkGrant(ctx, tenantID, actorID, role, user.Role); err != nil {
		return nil, err
	}
	if err := user.ChangeRole(role); err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User role changed",
		zap.String("user_id", userID.String()),
		zap.String("role", req.Role))
	resp := ToUserResponse(user)
	return &resp, nil
}

// Deactivate disables a user's account
func (s *UserService) Deactivate(ctx context.Context, tenantID, actorID, userID uuid.UUID) error {
	if actorID == userID {
		return shared.NewPermissionError("SELF_DEACTIVATION", "You cannot deactivate your own account")
	}
	user, err := s.userRepo.FindByID(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if err := s.checkGrant(ctx, tenantID, actorID, user.Role); err != nil {
		return err
	}
	user.Deactivate()
	if err := s.userRepo.Save(ctx, user); err != nil {
		return err
	}
	s.logger.Info("User deactivated", zap.String("user_id", userID.String()))
	return nil
}

// checkGrant requires the actor to be an owner when any of roles is owner
func (s *UserService) checkGrant(ctx context.Context, tenantID, actorID uuid.UUID, roles ...identity.Role) error {
	needsOwner := false
	for _, r := range roles {
		if r == identity.RoleOwner {
			needsOwner = true
		}
	}
	if !needsOwner {
		return nil
	}
	actor, err := s.userRepo.FindByID(ctx, tenantID, actorID)
	if err != nil {
		return err
	}
	if actor.Role != identity.RoleOwner {
		return shared.NewPermissionError("OWNER_REQUIRED", "Only owners can manage owner accounts")
	}
	return nil
}
