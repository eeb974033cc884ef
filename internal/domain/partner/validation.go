package partner

import (
	"regexp"
	"strings"

	"github.com/ribotflow/backend/internal/domain/shared"
)

var (
	phonePattern = regexp.MustCompile(`^[\d\s\-\(\)\+\.]+$`)
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	taxIDPattern = regexp.MustCompile(`^[A-Z0-9\-]+$`)
)

// ContactInfo groups the reachability fields shared by suppliers and contacts
type ContactInfo struct {
	Email   string
	Phone   string
	Address string
	City    string
	Postal  string
	Country string
}

// Normalize trims every field and lowercases the email
func (c ContactInfo) Normalize() ContactInfo {
	return ContactInfo{
		Email:   strings.ToLower(strings.TrimSpace(c.Email)),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
		City:    strings.TrimSpace(c.City),
		Postal:  strings.TrimSpace(c.Postal),
		Country: strings.TrimSpace(c.Country),
	}
}

// Validate checks lengths and formats
func (c ContactInfo) Validate() error {
	if c.Email != "" {
		if err := validateEmail(c.Email); err != nil {
			return err
		}
	}
	if c.Phone != "" {
		if err := validatePhone(c.Phone); err != nil {
			return err
		}
	}
	if len(c.Address) > 500 {
		return shared.NewDomainError("INVALID_ADDRESS", "Address cannot exceed 500 characters")
	}
	if len(c.City) > 100 {
		return shared.NewDomainError("INVALID_CITY", "City cannot exceed 100 characters")
	}
	if len(c.Postal) > 20 {
		return shared.NewDomainError("INVALID_POSTAL_CODE", "Postal code cannot exceed 20 characters")
	}
	if len(c.Country) > 100 {
		return shared.NewDomainError("INVALID_COUNTRY", "Country cannot exceed 100 characters")
	}
	return nil
}

// FullAddress returns the address on one line
func (c ContactInfo) FullAddress() string {
	parts := make([]string, 0, 4)
	for _, p := range []string{c.Address, c.Postal, c.City, c.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// NormalizeTaxID uppercases a tax id and strips spaces and dots
func NormalizeTaxID(taxID string) string {
	taxID = strings.ToUpper(strings.TrimSpace(taxID))
	return strings.NewReplacer(" ", "", ".", "").Replace(taxID)
}

func validateTaxID(taxID string) error {
	if len(taxID) > 50 {
		return shared.NewDomainError("INVALID_TAX_ID", "Tax ID cannot exceed 50 characters")
	}
	if !taxIDPattern.MatchString(taxID) {
		return shared.NewDomainError("INVALID_TAX_ID", "Tax ID can only contain letters, numbers and hyphens")
	}
	return nil
}

func validatePhone(phone string) error {
	if len(phone) > 50 {
		return shared.NewDomainError("INVALID_PHONE", "Phone number cannot exceed 50 characters")
	}
	if !phonePattern.MatchString(phone) {
		return shared.NewDomainError("INVALID_PHONE", "Invalid phone number format")
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 200 {
		return shared.NewDomainError("INVALID_EMAIL", "Email cannot exceed 200 characters")
	}
	if !emailPattern.MatchString(email) {
		return shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return nil
}

func validateName(code, label, name string, max int) error {
	if name == "" {
		return shared.NewDomainError(code, label+" cannot be empty")
	}
	if len(name) > max {
		return shared.NewDomainError(code, label+" is too long")
	}
	return nil
}
