package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payroll processing states.
const (
	ProcessingStatusPending = "PENDING"
	ProcessingStatusAudited = "AUDITED"
)

// Report status; a persisted report is always complete.
const ReportStatusCompleted = "COMPLETED"

// Run log outcomes.
const (
	RunOutcomeSucceeded = "SUCCEEDED"
	RunOutcomeFailed    = "FAILED"
)

// Posting line sides.
const (
	SideDebit  = "DEBIT"
	SideCredit = "CREDIT"
)

// Processing is one uploaded payroll document awaiting (or after) audit.
type Processing struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CompanyID       uuid.UUID `gorm:"type:uuid;not null;index"`
	FirmID          uuid.UUID `gorm:"type:uuid;not null;index"`
	Period          string    `gorm:"type:varchar(7);not null"` // YYYY-MM
	Document        []byte    `gorm:"type:bytea"`
	InstructionHint string    `gorm:"type:text"`
	Status          string    `gorm:"type:varchar(20);not null;default:'PENDING'"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Processing) TableName() string {
	return "payroll_processings"
}

// Report is the persisted result of one audit run. Created once,
// never mutated; the unique index keeps it one report per processing.
type Report struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProcessingID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Period       string    `gorm:"type:varchar(7);not null"`
	Status       string    `gorm:"type:varchar(20);not null"`

	TotalEmployees    int `gorm:"not null"`
	TotalDivergences  int `gorm:"not null"`
	CriticalCount     int `gorm:"not null"`
	WarningCount      int `gorm:"not null"`
	PostingsGenerated int `gorm:"not null"`

	GrossPay      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	OvertimeTotal decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	EmployeeINSS  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	EmployerINSS  decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	IRRF          decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	NetPay        decimal.Decimal `gorm:"type:numeric(14,2);not null"`

	SkippedCategories string `gorm:"type:text"` // comma separated
	Recommendations   string `gorm:"type:text"` // newline separated

	Divergences []ReportDivergence `gorm:"foreignKey:ReportID"`

	CreatedAt time.Time
}

func (Report) TableName() string {
	return "audit_reports"
}

// ReportDivergence is one divergence row of a report. Position preserves
// the severity-then-discovery ordering.
type ReportDivergence struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReportID uuid.UUID `gorm:"type:uuid;not null;index"`
	Position int       `gorm:"not null"`

	Category      string `gorm:"type:varchar(30);not null"`
	Severity      string `gorm:"type:varchar(10);not null"`
	Subject       string `gorm:"type:varchar(255);not null"`
	FoundValue    string `gorm:"type:varchar(64)"`
	ExpectedValue string `gorm:"type:varchar(64)"`
	Difference    string `gorm:"type:varchar(64)"`
	Message       string `gorm:"type:text;not null"`
}

func (ReportDivergence) TableName() string {
	return "audit_report_divergences"
}

// Posting is one balanced draft accounting entry generated for a run.
type Posting struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ReportID    uuid.UUID `gorm:"type:uuid;not null;index"`
	CompanyID   uuid.UUID `gorm:"type:uuid;not null;index:idx_posting_entry,unique"`
	EntryNumber string    `gorm:"type:varchar(20);not null;index:idx_posting_entry,unique"`
	EntryDate   time.Time `gorm:"type:date;not null"`
	Description string    `gorm:"type:varchar(255);not null"`

	Lines []PostingLine `gorm:"foreignKey:PostingID"`

	CreatedAt time.Time
}

func (Posting) TableName() string {
	return "accounting_postings"
}

type PostingLine struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	PostingID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	Position    int             `gorm:"not null"`
	AccountCode string          `gorm:"type:varchar(20);not null"`
	Side        string          `gorm:"type:varchar(6);not null"`
	Amount      decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	Memo        string          `gorm:"type:varchar(255)"`
}

func (PostingLine) TableName() string {
	return "accounting_posting_lines"
}

// RunLog is the audit-log record of one engine run outcome.
type RunLog struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	ProcessingID uuid.UUID `gorm:"type:uuid;not null;index"`
	CompanyID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Outcome      string    `gorm:"type:varchar(10);not null"`
	Phase        string    `gorm:"type:varchar(20);not null"`
	Message      string    `gorm:"type:text"`

	TotalDivergences int `gorm:"not null;default:0"`
	CriticalCount    int `gorm:"not null;default:0"`

	CreatedAt time.Time
}

func (RunLog) TableName() string {
	return "audit_run_logs"
}
