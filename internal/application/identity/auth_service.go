package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/ribotflow/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// AuthServiceConfig contains configuration for the auth service
type AuthServiceConfig struct {
	MaxLoginAttempts int           // Maximum failed login attempts before lock
	LockDuration     time.Duration // How long to lock account after max attempts
	RefreshTTL       time.Duration // How long a user-wide revocation must be remembered
}

// DefaultAuthServiceConfig returns default configuration
func DefaultAuthServiceConfig() AuthServiceConfig {
	return AuthServiceConfig{
		MaxLoginAttempts: 5,
		LockDuration:     15 * time.Minute,
		RefreshTTL:       7 * 24 * time.Hour,
	}
}

// AuthService handles authentication operations
type AuthService struct {
	userRepo    identity.UserRepository
	tenantRepo  identity.TenantRepository
	jwtService  *auth.JWTService
	revocations auth.Revocations
	config      AuthServiceConfig
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuthService creates a new authentication service
func NewAuthService(
	userRepo identity.UserRepository,
	tenantRepo identity.TenantRepository,
	jwtService *auth.JWTService,
	revocations auth.Revocations,
	config AuthServiceConfig,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:    userRepo,
		tenantRepo:  tenantRepo,
		jwtService:  jwtService,
		revocations: revocations,
		config:      config,
		logger:      logger,
		now:         time.Now,
	}
}

var errInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid email or password")

// Login authenticates a user and returns tokens
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	now := s.now()

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if shared.IsNotFound(err) {
			s.logger.Warn("Login attempt for unknown email")
			return nil, errInvalidCredentials
		}
		return nil, err
	}

	if !user.CanLogin(now) {
		if user.Status == identity.UserStatusDeactivated {
			s.logger.Warn("Login attempt for deactivated account", zap.String("user_id", user.ID.String()))
			return nil, shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")
		}
		s.logger.Warn("Login attempt for locked account", zap.String("user_id", user.ID.String()))
		return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Account is locked. Please try again later")
	}

	if !user.VerifyPassword(req.Password) {
		locked := user.RecordLoginFailure(now, s.config.MaxLoginAttempts, s.config.LockDuration)
		if err := s.userRepo.Save(ctx, user); err != nil {
			s.logger.Error("Failed to save user after login failure", zap.Error(err))
		}
		if locked {
			s.logger.Warn("Account locked after too many failed attempts",
				zap.String("user_id", user.ID.String()),
				zap.Int("attempts", user.FailedAttempts))
			return nil, shared.NewDomainError("ACCOUNT_LOCKED", "Too many failed login attempts. Account has been locked")
		}
		s.logger.Warn("Invalid password attempt",
			zap.String("user_id", user.ID.String()),
			zap.Int("failed_attempts", user.FailedAttempts))
		return nil, errInvalidCredentials
	}

	if err := s.ensureTenantActive(ctx, user.TenantID); err != nil {
		return nil, err
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, err
	}

	user.RecordLoginSuccess(now)
	if err := s.userRepo.Save(ctx, user); err != nil {
		// The tokens are valid; only the login bookkeeping is lost
		s.logger.Error("Failed to save user after successful login", zap.Error(err))
	}

	s.logger.Info("User logged in",
		zap.String("tenant_id", user.TenantID.String()),
		zap.String("user_id", user.ID.String()))

	return &LoginResponse{TokenResponse: *tokens, User: ToUserResponse(user)}, nil
}

// Refresh exchanges a refresh token for a new pair. The old refresh token is revoked.
func (s *AuthService) Refresh(ctx context.Context, req RefreshTokenRequest) (*TokenResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		s.logger.Debug("Refresh token validation failed", zap.Error(err))
		return nil, tokenError(err)
	}
	revoked, err := s.isRevoked(ctx, claims)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, tokenError(auth.ErrTokenRevoked)
	}

	tenantID, err := claims.TenantUUID()
	if err != nil {
		return nil, tokenError(auth.ErrInvalidClaims)
	}
	userID, err := claims.UserUUID()
	if err != nil {
		return nil, tokenError(auth.ErrInvalidClaims)
	}

	user, err := s.userRepo.FindByID(ctx, tenantID, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, shared.NewDomainError("USER_NOT_FOUND", "User not found")
		}
		return nil, err
	}
	if !user.CanLogin(s.now()) {
		return nil, shared.NewDomainError("ACCOUNT_INACTIVE", "Account is no longer active")
	}
	if err := s.ensureTenantActive(ctx, tenantID); err != nil {
		return nil, err
	}

	tokens, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.revocations.Revoke(ctx, claims.ID, claims.RemainingTTL(s.now())); err != nil {
		s.logger.Warn("Failed to revoke rotated refresh token", zap.Error(err))
	}
	return tokens, nil
}

// Logout revokes the access token and, when given, the refresh token
func (s *AuthService) Logout(ctx context.Context, access *auth.Claims, req LogoutRequest) error {
	now := s.now()
	if err := s.revocations.Revoke(ctx, access.ID, access.RemainingTTL(now)); err != nil {
		return shared.NewUnexpectedError("LOGOUT_FAILED", "Failed to revoke the session")
	}
	if req.RefreshToken != "" {
		refresh, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
		if err == nil && refresh.UserID == access.UserID {
			if err := s.revocations.Revoke(ctx, refresh.ID, refresh.RemainingTTL(now)); err != nil {
				s.logger.Warn("Failed to revoke refresh token on logout", zap.Error(err))
			}
		}
	}
	s.logger.Info("User logged out",
		zap.String("tenant_id", access.TenantID),
		zap.String("user_id", access.UserID))
	return nil
}

// Me returns the signed-in user and their tenant
func (s *AuthService) Me(ctx context.Context, tenantID, userID uuid.UUID) (*CurrentUserResponse, error) {
	user, err := s.userRepo.FindByID(ctx, tenantID, userID)
	if err != nil {
		return nil, err
	}
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	return &CurrentUserResponse{User: ToUserResponse(user), Tenant: ToTenantResponse(tenant)}, nil
}

// ChangePassword replaces the password and revokes every token issued before
func (s *AuthService) ChangePassword(ctx context.Context, tenantID, userID uuid.UUID, req ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, tenantID, userID)
	if err != nil {
		return err
	}
	if !user.VerifyPassword(req.OldPassword) {
		return shared.NewDomainError("INVALID_PASSWORD", "Current password is incorrect")
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return err
	}

	// iat has second precision: tokens issued during the current second stay valid
	cutoff := s.now().Truncate(time.Second).Add(-time.Nanosecond)
	if err := s.revocations.RevokeUser(ctx, userID.String(), cutoff, s.config.RefreshTTL); err != nil {
		s.logger.Error("Failed to revoke tokens after password change", zap.Error(err))
	}
	s.logger.Info("User password changed", zap.String("user_id", userID.String()))
	return nil
}

// Authenticate validates an access token and checks it has not been revoked.
// Revocation lookups fail open: a revocation store outage is logged, not fatal.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.jwtService.ValidateAccessToken(token)
	if err != nil {
		return nil, err
	}
	revoked, err := s.isRevoked(ctx, claims)
	if err != nil {
		s.logger.Error("Failed to check token revocation",
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		return claims, nil
	}
	if revoked {
		return nil, auth.ErrTokenRevoked
	}
	return claims, nil
}

func (s *AuthService) isRevoked(ctx context.Context, claims *auth.Claims) (bool, error) {
	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil || revoked {
		return revoked, err
	}
	if claims.IssuedAt == nil {
		return false, nil
	}
	return s.revocations.IsUserRevoked(ctx, claims.UserID, claims.IssuedAt.Time)
}

func (s *AuthService) issue(user *identity.User) (*TokenResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.Subject{
		TenantID:    user.TenantID,
		UserID:      user.ID,
		Email:       user.Email,
		Role:        string(user.Role),
		Permissions: user.Permissions(),
	})
	if err != nil {
		s.logger.Error("Failed to generate token pair", zap.Error(err))
		return nil, shared.NewUnexpectedError("TOKEN_ERROR", "Failed to generate authentication tokens")
	}
	return &TokenResponse{
		AccessToken:           pair.AccessToken,
		RefreshToken:          pair.RefreshToken,
		AccessTokenExpiresAt:  pair.AccessTokenExpiresAt,
		RefreshTokenExpiresAt: pair.RefreshTokenExpiresAt,
		TokenType:             pair.TokenType,
	}, nil
}

func (s *AuthService) ensureTenantActive(ctx context.Context, tenantID uuid.UUID) error {
	tenant, err := s.tenantRepo.FindByID(ctx, tenantID)
	if err != nil {
		return err
	}
	if !tenant.Active {
		return shared.NewPermissionError("TENANT_INACTIVE", "Organisation is not active")
	}
	return nil
}

func tokenError(err error) error {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return shared.NewDomainError("TOKEN_EXPIRED", "Token has expired")
	case errors.Is(err, auth.ErrTokenRevoked):
		return shared.NewDomainError("TOKEN_REVOKED", "Token has been revoked")
	}
	return shared.NewDomainError("TOKEN_INVALID", "Invalid token")
}
