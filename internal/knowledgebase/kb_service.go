package knowledgebase

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-payaudit/internal/events"
	"go-payaudit/internal/extraction"
	knowledgebaseerrors "go-payaudit/internal/knowledgebase/errors"
	"go-payaudit/internal/messaging/kafka"
	"go-payaudit/internal/shared/apperror"
	"go-payaudit/internal/shared/contextutil"
)

//go:generate mockgen -source=kb_service.go -destination=mock/kb_service_mock.go -package=mock
type Service interface {
	BeginExtraction(ctx context.Context, firmID, documentID, hint string) (ExtractionResult, error)
	ValidateAndPublish(ctx context.Context, firmID, documentID string, corrections map[string]string, reviewer string) (PublishResult, error)
	LookupRules(ctx context.Context, parameterName, firmID string, companyID *string) ([]CCTRule, error)
}

type ExtractionResult struct {
	DocumentID     string
	CandidateCount int
	Candidates     []CandidateParameter
}

type PublishResult struct {
	DocumentID     string
	PublishedCount int
	SkippedCount   int
	RuleIDs        []string
}

type service struct {
	db             *sql.DB
	repo           Repository
	extractor      extraction.Adapter
	outbox         kafka.OutboxRepository
	logger         *zap.Logger
	extractTimeout time.Duration
}

func NewService(
	db *sql.DB,
	repo Repository,
	extractor extraction.Adapter,
	outboxRepo kafka.OutboxRepository,
	extractTimeout time.Duration,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("knowledgebase.service")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("knowledgebase.service")
	}
	if extractTimeout <= 0 {
		extractTimeout = 60 * time.Second
	}
	return &service{
		db:             db,
		repo:           repo,
		extractor:      extractor,
		outbox:         outboxRepo,
		logger:         l,
		extractTimeout: extractTimeout,
	}
}

// BeginExtraction sends the document to the extraction service and stores
// every returned field as an unvalidated candidate. The document moves to
// PROCESSED; on adapter failure it stays PENDING and can be retried.
func (s *service) BeginExtraction(
	ctx context.Context,
	firmID, documentID, hint string,
) (ExtractionResult, error) {
	if _, err := uuid.Parse(firmID); err != nil {
		return ExtractionResult{}, knowledgebaseerrors.ErrInvalidFirmID
	}
	if _, err := uuid.Parse(documentID); err != nil {
		return ExtractionResult{}, knowledgebaseerrors.ErrInvalidDocumentID
	}

	doc, err := s.repo.FindDocument(ctx, firmID, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExtractionResult{}, knowledgebaseerrors.ErrDocumentNotFound
		}
		return ExtractionResult{}, err
	}

	if doc.Status != DocStatusPending {
		return ExtractionResult{}, knowledgebaseerrors.ErrDocumentNotPending
	}

	extractCtx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	defer cancel()

	fields, err := s.extractor.ExtractParameters(extractCtx, doc.Content, hint)
	if err != nil {
		s.logger.Warn("cct parameter extraction failed",
			zap.String("document_id", documentID),
			zap.Error(err),
		)
		return ExtractionResult{}, apperror.Wrap(
			err,
			apperror.CodeServiceUnavailable,
			knowledgebaseerrors.ErrExtractionFailed.Message,
			knowledgebaseerrors.ErrExtractionFailed.HTTPStatus,
		)
	}

	if len(fields) == 0 {
		// The service answered but found nothing usable. The document
		// itself is the problem, so it goes terminal.
		msg := "extraction returned no candidate parameters"
		if err := s.markDocumentError(ctx, documentID, msg); err != nil {
			return ExtractionResult{}, err
		}
		return ExtractionResult{}, knowledgebaseerrors.ErrNoCandidatesExtracted
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ExtractionResult{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	// A retried PENDING document may have stale candidates from a run
	// that failed after partial writes.
	if err := qtx.DeleteCandidatesByDocument(ctx, documentID); err != nil {
		return ExtractionResult{}, err
	}

	candidates := make([]CandidateParameter, 0, len(fields))
	for _, f := range fields {
		candidate := CandidateParameter{
			ID:         uuid.New(),
			DocumentID: doc.ID,
			Name:       f.Name,
			RawValue:   f.RawValue,
			ValueType:  f.ValueType,
			Confidence: f.Confidence,
			Status:     CandidateStatusPending,
		}
		if err := qtx.CreateCandidate(ctx, &candidate); err != nil {
			return ExtractionResult{}, err
		}
		candidates = append(candidates, candidate)
	}

	if err := qtx.UpdateDocumentStatus(ctx, documentID, DocStatusProcessed, nil); err != nil {
		return ExtractionResult{}, err
	}

	if err := tx.Commit(); err != nil {
		return ExtractionResult{}, err
	}

	s.logger.Info("document extracted",
		zap.String("document_id", documentID),
		zap.Int("candidate_count", len(candidates)),
	)

	return ExtractionResult{
		DocumentID:     documentID,
		CandidateCount: len(candidates),
		Candidates:     candidates,
	}, nil
}

// ValidateAndPublish promotes reviewed candidates into validated rules.
// Corrections referencing unknown candidate ids are skipped and counted,
// not treated as errors.
func (s *service) ValidateAndPublish(
	ctx context.Context,
	firmID, documentID string,
	corrections map[string]string,
	reviewer string,
) (PublishResult, error) {
	if _, err := uuid.Parse(firmID); err != nil {
		return PublishResult{}, knowledgebaseerrors.ErrInvalidFirmID
	}
	if _, err := uuid.Parse(documentID); err != nil {
		return PublishResult{}, knowledgebaseerrors.ErrInvalidDocumentID
	}
	if reviewer == "" {
		return PublishResult{}, knowledgebaseerrors.ErrReviewerRequired
	}

	doc, err := s.repo.FindDocument(ctx, firmID, documentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return PublishResult{}, knowledgebaseerrors.ErrDocumentNotFound
		}
		return PublishResult{}, err
	}

	if doc.Status != DocStatusProcessed {
		return PublishResult{}, knowledgebaseerrors.ErrDocumentNotProcessed
	}

	candidates, err := s.repo.FindCandidatesByDocument(ctx, documentID)
	if err != nil {
		return PublishResult{}, err
	}

	byID := make(map[string]CandidateParameter, len(candidates))
	for _, c := range candidates {
		byID[c.ID.String()] = c
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return PublishResult{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)
	now := time.Now().UTC()

	result := PublishResult{DocumentID: documentID}
	for candidateID, correctedValue := range corrections {
		candidate, ok := byID[candidateID]
		if !ok || candidate.Status != CandidateStatusPending {
			s.logger.Warn("publish correction skipped, unknown candidate",
				zap.String("document_id", documentID),
				zap.String("candidate_id", candidateID),
			)
			result.SkippedCount++
			continue
		}

		value := correctedValue
		if value == "" {
			value = candidate.RawValue
		}

		rule := CCTRule{
			ID:               uuid.New(),
			FirmID:           doc.FirmID,
			CompanyID:        doc.CompanyID,
			ParameterName:    candidate.Name,
			Value:            value,
			ValueType:        candidate.ValueType,
			SourceDocumentID: &doc.ID,
			ValidatedBy:      reviewer,
			ValidatedAt:      now,
		}
		if err := qtx.CreateRule(ctx, &rule); err != nil {
			return PublishResult{}, err
		}
		if err := qtx.UpdateCandidateStatus(ctx, candidateID, CandidateStatusApproved); err != nil {
			return PublishResult{}, err
		}

		result.PublishedCount++
		result.RuleIDs = append(result.RuleIDs, rule.ID.String())
	}

	if result.PublishedCount == 0 {
		return PublishResult{}, knowledgebaseerrors.ErrNothingToPublish
	}

	if err := qtx.UpdateDocumentStatus(ctx, documentID, DocStatusConcluded, nil); err != nil {
		return PublishResult{}, err
	}

	s.queueRulesPublished(ctx, tx, doc, result.PublishedCount)

	if err := tx.Commit(); err != nil {
		return PublishResult{}, err
	}

	s.logger.Info("rules published",
		zap.String("document_id", documentID),
		zap.String("reviewer", reviewer),
		zap.Int("published", result.PublishedCount),
		zap.Int("skipped", result.SkippedCount),
	)

	return result, nil
}

// LookupRules returns validated rules only. Empty result means "cannot
// assert compliance for this parameter", never "compliant".
func (s *service) LookupRules(
	ctx context.Context,
	parameterName, firmID string,
	companyID *string,
) ([]CCTRule, error) {
	if _, err := uuid.Parse(firmID); err != nil {
		return nil, knowledgebaseerrors.ErrInvalidFirmID
	}
	return s.repo.FindValidatedRules(ctx, parameterName, firmID, companyID)
}

func (s *service) markDocumentError(ctx context.Context, documentID string, msg string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := s.repo.WithTx(tx).UpdateDocumentStatus(ctx, documentID, DocStatusError, &msg); err != nil {
		return err
	}

	return tx.Commit()
}

// queueRulesPublished writes the RulesPublished event to the outbox inside
// the publish transaction. Outbox failure is logged, never fatal.
func (s *service) queueRulesPublished(ctx context.Context, tx *sql.Tx, doc *SourceDocument, ruleCount int) {
	if s.outbox == nil {
		return
	}

	rid := contextutil.GetRequestID(ctx)
	event := events.RulesPublishedEvent{
		EventType:  "rules_published",
		RequestID:  rid,
		DocumentID: doc.ID.String(),
		FirmID:     doc.FirmID.String(),
		RuleCount:  ruleCount,
		OccurredAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal rules_published event failed", zap.Error(err))
		return
	}

	if err := s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     rid,
		AggregateType: "kb_document",
		AggregateID:   doc.ID.String(),
		EventType:     "rules_published",
		Topic:         events.RulesLifecycleTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		s.logger.Error("rules_published outbox persist failed",
			zap.String("document_id", doc.ID.String()),
			zap.Error(err),
		)
	}
}
