package chartofaccounts

import (
	"time"

	"github.com/google/uuid"
)

// AccountMapping holds the company's account code for each payroll
// concept used by posting generation.
type AccountMapping struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`

	SalaryExpense       string `gorm:"type:varchar(20);not null"`
	EmployerINSSExpense string `gorm:"type:varchar(20);not null"`
	FGTSExpense         string `gorm:"type:varchar(20);not null"`
	SalariesPayable     string `gorm:"type:varchar(20);not null"`
	INSSPayable         string `gorm:"type:varchar(20);not null"`
	IRRFPayable         string `gorm:"type:varchar(20);not null"`
	FGTSPayable         string `gorm:"type:varchar(20);not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (AccountMapping) TableName() string {
	return "chart_of_accounts_mappings"
}
