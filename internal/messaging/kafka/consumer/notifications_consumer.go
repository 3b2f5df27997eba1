package consumer

import (
	"context"
	"encoding/json"

	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"go-payaudit/internal/bootstrap"
	"go-payaudit/internal/events"
)

// ConsumeAuditRunEvents is the in-process stand-in for the notification
// dispatcher: it turns audit run events into operator-facing audit-log
// entries. Delivery problems never affect the audit runs that produced
// the events.
func ConsumeAuditRunEvents(
	ctx context.Context,
	reader *kafkago.Reader,
	auditLogger bootstrap.AuditLogger,
	logger *zap.Logger,
) {
	log := logger.Named("kafka.consumer.audit_run")
	log.Info("audit run consumer started")

	for {
		msg, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("audit run consumer stopped")
				return
			}
			log.Error("fetch audit run message failed", zap.Error(err))
			continue
		}

		eventType := headerValue(msg, "event_type")
		switch eventType {
		case "audit_completed":
			var event events.AuditCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Error("decode audit_completed event failed", zap.Error(err))
				break
			}
			auditLogger.Log(ctx, bootstrap.AuditLog{
				Action:  "AUDIT_COMPLETED",
				Message: "payroll audit completed",
				Meta: map[string]any{
					"processing_id":    event.ProcessingID,
					"company_id":       event.CompanyID,
					"divergence_count": event.DivergenceCount,
					"critical_count":   event.CriticalCount,
				},
			})
		case "audit_failed":
			var event events.AuditFailedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				log.Error("decode audit_failed event failed", zap.Error(err))
				break
			}
			auditLogger.Log(ctx, bootstrap.AuditLog{
				Action:  "AUDIT_FAILED",
				Message: event.ErrorMessage,
				Meta: map[string]any{
					"processing_id": event.ProcessingID,
					"company_id":    event.CompanyID,
					"phase":         event.Phase,
				},
			})
		default:
			log.Warn("unknown audit run event type", zap.String("event_type", eventType))
		}

		if err := reader.CommitMessages(ctx, msg); err != nil {
			log.Error("commit audit run message failed", zap.Error(err))
		}
	}
}

func headerValue(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
