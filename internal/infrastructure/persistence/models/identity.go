package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/identity"
	"github.com/ribotflow/backend/internal/domain/shared"
)

// TenantRecord is the persistence model for a Tenant. Tenants are not tenant-scoped.
type TenantRecord struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string    `gorm:"type:varchar(200);not null"`
	Slug        string    `gorm:"type:varchar(63);not null;uniqueIndex"`
	Locale      string    `gorm:"type:varchar(20);not null"`
	Currency    string    `gorm:"type:varchar(3);not null"`
	TaxID       string    `gorm:"type:varchar(30)"`
	Address     string    `gorm:"type:varchar(500)"`
	SenderName  string    `gorm:"type:varchar(200)"`
	SenderEmail string    `gorm:"type:varchar(200)"`
	Active      bool      `gorm:"not null;default:true"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TenantRecord) TableName() string {
	return "tenants"
}

// TenantRecordFromDomain creates a persistence model from a domain Tenant
func TenantRecordFromDomain(t *identity.Tenant) *TenantRecord {
	return &TenantRecord{
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
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// ToDomain converts the model to a domain Tenant
func (m *TenantRecord) ToDomain() *identity.Tenant {
	return &identity.Tenant{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{ID: m.ID, CreatedAt: m.CreatedAt, UpdatedAt: m.UpdatedAt},
		},
		Name:        m.Name,
		Slug:        m.Slug,
		Locale:      m.Locale,
		Currency:    m.Currency,
		TaxID:       m.TaxID,
		Address:     m.Address,
		SenderName:  m.SenderName,
		SenderEmail: m.SenderEmail,
		Active:      m.Active,
	}
}

// UserModel is the persistence model for a User
type UserModel struct {
	TenantModel
	Email          string              `gorm:"type:varchar(200);not null;uniqueIndex"`
	FullName       string              `gorm:"type:varchar(200)"`
	PasswordHash   string              `gorm:"type:varchar(255);not null"`
	Role           identity.Role       `gorm:"type:varchar(20);not null"`
	Status         identity.UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	LastLoginAt    *time.Time
	FailedAttempts int `gorm:"not null;default:0"`
	LockedUntil    *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// UserModelFromDomain creates a persistence model from a domain User
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{
		Email:          u.Email,
		FullName:       u.FullName,
		PasswordHash:   u.PasswordHash,
		Role:           u.Role,
		Status:         u.Status,
		LastLoginAt:    u.LastLoginAt,
		FailedAttempts: u.FailedAttempts,
		LockedUntil:    u.LockedUntil,
	}
	m.FromRoot(u.TenantAggregateRoot)
	return m
}

// ToDomain converts the model to a domain User
func (m *UserModel) ToDomain() *identity.User {
	return &identity.User{
		TenantAggregateRoot: m.ToRoot(),
		Email:               m.Email,
		FullName:            m.FullName,
		PasswordHash:        m.PasswordHash,
		Role:                m.Role,
		Status:              m.Status,
		LastLoginAt:         m.LastLoginAt,
		FailedAttempts:      m.FailedAttempts,
		LockedUntil:         m.LockedUntil,
	}
}
