package knowledgebase

import (
	"time"

	"github.com/google/uuid"
)

// Source document states. ERROR is terminal and only reachable from
// PENDING; nothing transitions out of CONCLUDED.
const (
	DocStatusPending   = "PENDING"
	DocStatusProcessed = "PROCESSED"
	DocStatusConcluded = "CONCLUDED"
	DocStatusError     = "ERROR"
)

// Candidate parameter states.
const (
	CandidateStatusPending  = "PENDING"
	CandidateStatusApproved = "APPROVED"
	CandidateStatusRejected = "REJECTED"
)

// Rule value types.
const (
	ValueTypeDecimal    = "decimal"
	ValueTypeDate       = "date"
	ValueTypePercentage = "percentage"
)

// SourceDocument is one uploaded CCT document going through the
// extract-review-publish workflow.
type SourceDocument struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FirmID       uuid.UUID  `gorm:"type:uuid;not null;index"`
	CompanyID    *uuid.UUID `gorm:"type:uuid;index"`
	Name         string     `gorm:"type:varchar(255);not null"`
	Content      []byte     `gorm:"type:bytea"`
	Status       string     `gorm:"type:varchar(20);not null;default:'PENDING';index"`
	ErrorMessage *string    `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (SourceDocument) TableName() string {
	return "kb_source_documents"
}

// CandidateParameter is an AI-extracted field awaiting human review.
// Never consumed by the audit engine.
type CandidateParameter struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DocumentID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name       string    `gorm:"type:varchar(120);not null"`
	RawValue   string    `gorm:"type:varchar(255);not null"`
	ValueType  string    `gorm:"type:varchar(20);not null"`
	Confidence float64   `gorm:"type:numeric(4,3);not null;default:0"`
	Status     string    `gorm:"type:varchar(20);not null;default:'PENDING';index"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CandidateParameter) TableName() string {
	return "kb_candidate_parameters"
}

// CCTRule is a human-validated business rule. Only validated rules reach
// the compliance auditor.
type CCTRule struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FirmID           uuid.UUID  `gorm:"type:uuid;not null;index:idx_rule_firm_param"`
	CompanyID        *uuid.UUID `gorm:"type:uuid;index"`
	ParameterName    string     `gorm:"type:varchar(120);not null;index:idx_rule_firm_param"`
	Value            string     `gorm:"type:varchar(255);not null"`
	ValueType        string     `gorm:"type:varchar(20);not null"`
	SourceDocumentID *uuid.UUID `gorm:"type:uuid"`
	ValidatedBy      string     `gorm:"type:varchar(120);not null"`
	ValidatedAt      time.Time  `gorm:"not null"`

	CreatedAt time.Time
}

func (CCTRule) TableName() string {
	return "kb_cct_rules"
}
