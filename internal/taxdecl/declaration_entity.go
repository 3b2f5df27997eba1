package taxdecl

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	TypeDCTFWeb = "DCTFWeb"
	TypeDIRF    = "DIRF"
	TypeGFIP    = "GFIP"
)

// Tax types carried by declaration values.
const (
	TaxINSS = "INSS"
	TaxIRRF = "IRRF"
	TaxFGTS = "FGTS"
	TaxPIS  = "PIS"
)

// Declaration is one officially filed tax declaration. Read-only
// reference data; the audit never mutates it.
type Declaration struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index:idx_decl_company_period"`
	DeclType  string    `gorm:"type:varchar(20);not null"`
	Period    string    `gorm:"type:varchar(7);not null;index:idx_decl_company_period"` // YYYY-MM
	FiledAt   time.Time `gorm:"not null"`

	Values []DeclarationValue `gorm:"foreignKey:DeclarationID"`

	CreatedAt time.Time
}

func (Declaration) TableName() string {
	return "tax_declarations"
}

// DeclarationValue is one declared amount for a tax type.
type DeclarationValue struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DeclarationID uuid.UUID       `gorm:"type:uuid;not null;index"`
	TaxType       string          `gorm:"type:varchar(10);not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null"`
}

func (DeclarationValue) TableName() string {
	return "tax_declaration_values"
}
