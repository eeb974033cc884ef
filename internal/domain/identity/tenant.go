package identity

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// Tenant is an organisation using the application. All business rows belong to one tenant.
type Tenant struct {
	shared.BaseAggregateRoot
	Name        string
	Slug        string
	Locale      string
	Currency    string
	TaxID       string
	Address     string
	SenderName  string
	SenderEmail string
	Active      bool
}

// NewTenant creates an active tenant with Spanish locale and euro currency
func NewTenant(name, slug string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_TENANT_NAME", "Tenant name must be 1 to 200 characters")
	}
	slug = strings.ToLower(strings.TrimSpace(slug))
	if !slugPattern.MatchString(slug) || len(slug) > 63 {
		return nil, shared.NewDomainError("INVALID_TENANT_SLUG", "Slug can only contain lowercase letters, numbers and hyphens")
	}
	return &Tenant{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Slug:              slug,
		Locale:            "es-ES",
		Currency:          "EUR",
		SenderName:        name,
		Active:            true,
	}, nil
}

// TenantID returns the tenant's own id, for symmetry with tenant-scoped aggregates
func (t *Tenant) TenantID() uuid.UUID {
	return t.ID
}

// Rename changes the display name of the tenant
func (t *Tenant) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > 200 {
		return shared.NewDomainError("INVALID_TENANT_NAME", "Tenant name must be 1 to 200 characters")
	}
	t.Name = name
	t.Touch()
	return nil
}

// UpdateBilling sets the details printed on documents
func (t *Tenant) UpdateBilling(taxID, address, senderName, senderEmail string) error {
	senderEmail = strings.ToLower(strings.TrimSpace(senderEmail))
	if senderEmail != "" {
		if err := validateEmail(senderEmail); err != nil {
			return err
		}
	}
	t.TaxID = strings.ToUpper(strings.TrimSpace(taxID))
	t.Address = strings.TrimSpace(address)
	if s := strings.TrimSpace(senderName); s != "" {
		t.SenderName = s
	}
	t.SenderEmail = senderEmail
	t.Touch()
	return nil
}

// SetLocale sets the BCP 47 locale and ISO currency used for documents
func (t *Tenant) SetLocale(locale, currency string) error {
	locale = strings.TrimSpace(locale)
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if locale == "" {
		return shared.NewDomainError("INVALID_LOCALE", "Locale cannot be empty")
	}
	if len(currency) != 3 {
		return shared.NewDomainError("INVALID_CURRENCY", "Currency must be a 3-letter ISO code")
	}
	t.Locale = locale
	t.Currency = currency
	t.Touch()
	return nil
}
