package models

import (
	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/partner"
)

// ContactInfoColumns are the address and reachability columns of partners
type ContactInfoColumns struct {
	Email   string `gorm:"type:varchar(200);index"`
	Phone   string `gorm:"type:varchar(50)"`
	Address string `gorm:"type:varchar(500)"`
	City    string `gorm:"type:varchar(100)"`
	Postal  string `gorm:"type:varchar(20)"`
	Country string `gorm:"type:varchar(100)"`
}

func contactInfoColumnsFrom(c partner.ContactInfo) ContactInfoColumns {
	return ContactInfoColumns(c)
}

func (c ContactInfoColumns) toDomain() partner.ContactInfo {
	return partner.ContactInfo(c)
}

// SupplierModel is the persistence model for the Supplier aggregate
type SupplierModel struct {
	TenantModel
	Name  string `gorm:"type:varchar(200);not null;index"`
	TaxID string `gorm:"type:varchar(30);index"`
	ContactInfoColumns
	Website string `gorm:"type:varchar(255)"`
	Notes   string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (SupplierModel) TableName() string {
	return "suppliers"
}

// SupplierModelFromDomain creates a persistence model from a domain Supplier
func SupplierModelFromDomain(s *partner.Supplier) *SupplierModel {
	m := &SupplierModel{
		Name:               s.Name,
		TaxID:              s.TaxID,
		ContactInfoColumns: contactInfoColumnsFrom(s.ContactInfo),
		Website:            s.Website,
		Notes:              s.Notes,
	}
	m.FromRoot(s.TenantAggregateRoot)
	return m
}

// ToDomain converts the model to a domain Supplier
func (m *SupplierModel) ToDomain() *partner.Supplier {
	return &partner.Supplier{
		TenantAggregateRoot: m.ToRoot(),
		Name:                m.Name,
		TaxID:               m.TaxID,
		ContactInfo:         m.ContactInfoColumns.toDomain(),
		Website:             m.Website,
		Notes:               m.Notes,
	}
}

// ContactModel is the persistence model for the Contact aggregate
type ContactModel struct {
	TenantModel
	Name     string `gorm:"type:varchar(200);not null;index"`
	Company  string `gorm:"type:varchar(200)"`
	JobTitle string `gorm:"type:varchar(100)"`
	TaxID    string `gorm:"type:varchar(30)"`
	ContactInfoColumns
	Stage      partner.ContactStage `gorm:"type:varchar(20);not null;default:'lead';index"`
	SupplierID *uuid.UUID           `gorm:"type:uuid;index"`
	Notes      string               `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (ContactModel) TableName() string {
	return "contacts"
}

// ContactModelFromDomain creates a persistence model from a domain Contact
func ContactModelFromDomain(c *partner.Contact) *ContactModel {
	m := &ContactModel{
		Name:               c.Name,
		Company:            c.Company,
		JobTitle:           c.JobTitle,
		TaxID:              c.TaxID,
		ContactInfoColumns: contactInfoColumnsFrom(c.ContactInfo),
		Stage:              c.Stage,
		SupplierID:         c.SupplierID,
		Notes:              c.Notes,
	}
	m.FromRoot(c.TenantAggregateRoot)
	return m
}

// ToDomain converts the model to a domain Contact
func (m *ContactModel) ToDomain() *partner.Contact {
	return &partner.Contact{
		TenantAggregateRoot: m.ToRoot(),
		Name:                m.Name,
		Company:             m.Company,
		JobTitle:            m.JobTitle,
		TaxID:               m.TaxID,
		ContactInfo:         m.ContactInfoColumns.toDomain(),
		Stage:               m.Stage,
		SupplierID:          m.SupplierID,
		Notes:               m.Notes,
	}
}
