package partner

import (
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/application/listing"
	"github.com/ribotflow/backend/internal/domain/partner"
	"github.com/ribotflow/backend/internal/domain/purchasing"
	"github.com/ribotflow/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Shared DTOs
// =============================================================================

// ContactInfoRequest carries the reachability fields of suppliers and contacts
type ContactInfoRequest struct {
	Email   string `json:"email" binding:"omitempty,email,max=200"`
	Phone   string `json:"phone" binding:"max=50"`
	Address string `json:"address" binding:"max=500"`
	City    string `json:"city" binding:"max=100"`
	Postal  string `json:"postal_code" binding:"max=20"`
	Country string `json:"country" binding:"max=100"`
}

func (r ContactInfoRequest) toDomain() partner.ContactInfo {
	return partner.ContactInfo{
		Email:   r.Email,
		Phone:   r.Phone,
		Address: r.Address,
		City:    r.City,
		Postal:  r.Postal,
		Country: r.Country,
	}
}

// =============================================================================
// Supplier DTOs
// =============================================================================

// CreateSupplierRequest represents a request to create a new supplier
type CreateSupplierRequest struct {
	Name    string `json:"name" binding:"required,min=1,max=200"`
	TaxID   string `json:"tax_id" binding:"max=50"`
	Website string `json:"website" binding:"max=255"`
	Notes   string `json:"notes"`
	ContactInfoRequest
}

// UpdateSupplierRequest represents a request to update a supplier
type UpdateSupplierRequest = CreateSupplierRequest

// SupplierResponse represents a supplier in API responses
type SupplierResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Name        string     `json:"name"`
	TaxID       string     `json:"tax_id"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	City        string     `json:"city"`
	Postal      string     `json:"postal_code"`
	Country     string     `json:"country"`
	FullAddress string     `json:"full_address"`
	Website     string     `json:"website"`
	Notes       string     `json:"notes"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// SupplierListFilter represents filter options for the supplier list
type SupplierListFilter struct {
	listing.Params
	City    string `form:"city" binding:"max=100"`
	Country string `form:"country" binding:"max=100"`
}

// Query converts the filter into a list query
func (f SupplierListFilter) Query() shared.ListQuery {
	q := f.Params.Query()
	q.Filters["city"] = f.City
	q.Filters["country"] = f.Country
	return q
}

// ToSupplierResponse converts a domain Supplier to SupplierResponse
func ToSupplierResponse(s *partner.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:          s.ID,
		TenantID:    s.TenantID,
		Name:        s.Name,
		TaxID:       s.TaxID,
		Email:       s.Email,
		Phone:       s.Phone,
		Address:     s.Address,
		City:        s.City,
		Postal:      s.Postal,
		Country:     s.Country,
		FullAddress: s.FullAddress(),
		Website:     s.Website,
		Notes:       s.Notes,
		CreatedBy:   s.CreatedBy,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// SupplierExpenseResponse is an expense as listed on the supplier detail view
type SupplierExpenseResponse struct {
	ID            uuid.UUID       `json:"id"`
	InvoiceNumber string          `json:"invoice_number"`
	ExpenseDate   time.Time       `json:"expense_date"`
	Category      string          `json:"category"`
	Description   string          `json:"description"`
	Status        string          `json:"status"`
	Total         decimal.Decimal `json:"total"`
}

// ToSupplierExpenseResponse converts a domain Expense for the supplier detail view
func ToSupplierExpenseResponse(e purchasing.Expense) SupplierExpenseResponse {
	return SupplierExpenseResponse{
		ID:            e.ID,
		InvoiceNumber: e.InvoiceNumber,
		ExpenseDate:   e.ExpenseDate,
		Category:      e.Category,
		Description:   e.Description,
		Status:        string(e.Status),
		Total:         e.Total,
	}
}

// =============================================================================
// Contact DTOs
// =============================================================================

// CreateContactRequest represents a request to create a new contact
type CreateContactRequest struct {
	Name       string     `json:"name" binding:"required,min=1,max=200"`
	Company    string     `json:"company" binding:"max=200"`
	JobTitle   string     `json:"job_title" binding:"max=100"`
	TaxID      string     `json:"tax_id" binding:"max=50"`
	Stage      string     `json:"stage" binding:"omitempty,oneof=lead prospect customer inactive"`
	SupplierID *uuid.UUID `json:"supplier_id"`
	Notes      string     `json:"notes"`
	ContactInfoRequest
}

// UpdateContactRequest represents a request to update a contact
type UpdateContactRequest = CreateContactRequest

// ContactResponse represents a contact in API responses
type ContactResponse struct {
	ID          uuid.UUID  `json:"id"`
	TenantID    uuid.UUID  `json:"tenant_id"`
	Name        string     `json:"name"`
	DisplayName string     `json:"display_name"`
	Company     string     `json:"company"`
	JobTitle    string     `json:"job_title"`
	TaxID       string     `json:"tax_id"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	Address     string     `json:"address"`
	City        string     `json:"city"`
	Postal      string     `json:"postal_code"`
	Country     string     `json:"country"`
	FullAddress string     `json:"full_address"`
	Stage       string     `json:"stage"`
	SupplierID  *uuid.UUID `json:"supplier_id,omitempty"`
	Notes       string     `json:"notes"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ContactListFilter represents filter options for the contact list
type ContactListFilter struct {
	listing.Params
	Stage      string `form:"stage" binding:"omitempty,oneof=lead prospect customer inactive"`
	SupplierID string `form:"supplier_id" binding:"omitempty,uuid"`
}

// Query converts the filter into a list query
func (f ContactListFilter) Query() shared.ListQuery {
	q := f.Params.Query()
	q.Filters["stage"] = f.Stage
	if id, err := uuid.Parse(f.SupplierID); err == nil {
		q.Filters["supplier_id"] = id
	}
	return q
}

// ToContactResponse converts a domain Contact to ContactResponse
func ToContactResponse(c *partner.Contact) ContactResponse {
	return ContactResponse{
		ID:          c.ID,
		TenantID:    c.TenantID,
		Name:        c.Name,
		DisplayName: c.DisplayName(),
		Company:     c.Company,
		JobTitle:    c.JobTitle,
		TaxID:       c.TaxID,
		Email:       c.Email,
		Phone:       c.Phone,
		Address:     c.Address,
		City:        c.City,
		Postal:      c.Postal,
		Country:     c.Country,
		FullAddress: c.FullAddress(),
		Stage:       string(c.Stage),
		SupplierID:  c.SupplierID,
		Notes:       c.Notes,
		CreatedBy:   c.CreatedBy,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}
