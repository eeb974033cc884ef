package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/ribotflow/backend/internal/domain/shared/service"
	"github.com/shopspring/decimal"
)

// TaxRecord is the stored form of a tax applied to a line
type TaxRecord struct {
	Name    string          `json:"name"`
	Percent decimal.Decimal `json:"percent"`
	Type    string          `json:"type"`
}

// TaxRecords is the jsonb column holding the taxes of one line
type TaxRecords = JSON[[]TaxRecord]

// LineItemColumns are the columns shared by quote, invoice and expense item tables
type LineItemColumns struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"`
	TenantID    uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	Description string          `gorm:"type:varchar(500);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Taxes       TaxRecords      `gorm:"type:jsonb;not null"`
	CreatedAt   time.Time       `gorm:"not null"`
}

// TotalsColumns are the stored totals of a document
type TotalsColumns struct {
	DiscountPercent decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Subtotal        decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	DiscountAmount  decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	TaxAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	RetentionAmount decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Total           decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
}

func taxRecordsFrom(taxes []service.TaxLine) TaxRecords {
	out := make([]TaxRecord, len(taxes))
	for i, t := range taxes {
		out[i] = TaxRecord{Name: t.Name, Percent: t.Percent, Type: string(t.Type)}
	}
	return NewJSON(out)
}

func taxLinesFrom(records TaxRecords) []service.TaxLine {
	out := make([]service.TaxLine, len(records.Data))
	for i, r := range records.Data {
		out[i] = service.TaxLine{Name: r.Name, Percent: r.Percent, Type: service.TaxType(r.Type)}
	}
	return out
}
