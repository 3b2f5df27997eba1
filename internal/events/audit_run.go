package events

import "time"

const AuditRunTopic = "audit.payroll.run.v1"

type AuditCompletedEvent struct {
	EventType       string    `json:"event_type"`
	RequestID       string    `json:"request_id,omitempty"`
	ProcessingID    string    `json:"processing_id"`
	CompanyID       string    `json:"company_id"`
	Status          string    `json:"status"`
	DivergenceCount int       `json:"divergence_count"`
	CriticalCount   int       `json:"critical_count"`
	OccurredAt      time.Time `json:"occurred_at"`
}

type AuditFailedEvent struct {
	EventType    string    `json:"event_type"`
	RequestID    string    `json:"request_id,omitempty"`
	ProcessingID string    `json:"processing_id"`
	CompanyID    string    `json:"company_id"`
	Phase        string    `json:"phase"`
	ErrorMessage string    `json:"error_message"`
	OccurredAt   time.Time `json:"occurred_at"`
}
