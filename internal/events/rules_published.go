package events

import "time"

const RulesLifecycleTopic = "kb.rules.lifecycle.v1"

type RulesPublishedEvent struct {
	EventType  string    `json:"event_type"`
	RequestID  string    `json:"request_id,omitempty"`
	DocumentID string    `json:"document_id"`
	FirmID     string    `json:"firm_id"`
	RuleCount  int       `json:"rule_count"`
	OccurredAt time.Time `json:"occurred_at"`
}
