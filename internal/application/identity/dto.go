package identity

import (
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/identity"
)

// =============================================================================
// Auth DTOs
// =============================================================================

// LoginRequest contains the credentials of a user
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email,max=200"`
	Password string `json:"password" binding:"required,max=72"`
}

// RefreshTokenRequest carries the refresh token to exchange
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// LogoutRequest optionally carries the refresh token so it is revoked too
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest contains the current and the new password
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// TokenResponse is an access and refresh token pair
type TokenResponse struct {
	AccessToken           string    `json:"access_token"`
	RefreshToken          string    `json:"refresh_token"`
	AccessTokenExpiresAt  time.Time `json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `json:"refresh_token_expires_at"`
	TokenType             string    `json:"token_type"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	TokenResponse
	User UserResponse `json:"user"`
}

// CurrentUserResponse describes the signed-in user and their tenant
type CurrentUserResponse struct {
	User   UserResponse   `json:"user"`
	Tenant TenantResponse `json:"tenant"`
}

// =============================================================================
// User DTOs
// =============================================================================

// CreateUserRequest adds a user to the caller's tenant
type CreateUserRequest struct {
	Email    string `json:"email" binding:"required,email,max=200"`
	FullName string `json:"full_name" binding:"max=200"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"required,oneof=owner admin member viewer"`
}

// ChangeRoleRequest assigns another role to a user
type ChangeRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=owner admin member viewer"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Email       string     `json:"email"`
	FullName    string     `json:"full_name"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	Permissions []string   `json:"permissions"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

// =============================================================================
// Tenant DTOs
// =============================================================================

// CreateTenantRequest creates a tenant together with its owner
type CreateTenantRequest struct {
	Name          string `json:"name" binding:"required,max=200"`
	Slug          string `json:"slug" binding:"required,max=63"`
	OwnerEmail    string `json:"owner_email" binding:"required,email"`
	OwnerName     string `json:"owner_name" binding:"max=200"`
	OwnerPassword string `json:"owner_password" binding:"required,min=8,max=72"`
	Locale        string `json:"locale" binding:"max=20"`
	Currency      string `json:"currency" binding:"omitempty,len=3"`
}

// UpdateTenantSettingsRequest changes what is printed on documents and emails
type UpdateTenantSettingsRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	TaxID       string `json:"tax_id" binding:"max=50"`
	Address     string `json:"address" binding:"max=500"`
	SenderName  string `json:"sender_name" binding:"max=200"`
	SenderEmail string `json:"sender_email" binding:"omitempty,email"`
	Locale      string `json:"locale" binding:"required,max=20"`
	Currency    string `json:"currency" binding:"required,len=3"`
}

// TenantResponse represents a tenant in API responses
type TenantResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Locale      string    `json:"locale"`
	Currency    string    `json:"currency"`
	TaxID       string    `json:"tax_id"`
	Address     string    `json:"address"`
	SenderName  string    `json:"sender_name"`
	SenderEmail string    `json:"sender_email"`
	Active      bool      `json:"active"`
}

// BootstrapResponse is returned when a tenant and its owner are created
type BootstrapResponse struct {
	Tenant TenantResponse `json:"tenant"`
	Owner  UserResponse   `json:"owner"`
}

// =============================================================================
// Converters
// =============================================================================

// ToUserResponse converts a domain User to UserResponse
func ToUserResponse(u *identity.User) UserResponse {
	return UserResponse{
		ID:          u.ID,
		TenantID:    u.TenantID,
		Email:       u.Email,
		FullName:    u.FullName,
		Role:        string(u.Role),
		Status:      string(u.Status),
		Permissions: u.Permissions(),
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// ToTenantResponse converts a domain Tenant to TenantResponse
func ToTenantResponse(t *identity.Tenant) TenantResponse {
	return TenantResponse{
		ID:          t.ID,
		Name:        t.Name,
		Slug:        t.Slug,
		Locale:      t.Locale,
		Currency:    t.Currency,
		TaxID:       t.TaxID,
		Address:     t.Address,
		SenderName:  t.SenderName,
		SenderEmail: t.SenderEmail,
		Active:      t.Active,
	}
}
