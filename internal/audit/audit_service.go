package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditerrors "go-payaudit/internal/audit/errors"
	chartofaccountserrors "go-payaudit/internal/chartofaccounts/errors"
	"go-payaudit/internal/events"
	"go-payaudit/internal/extraction"
	"go-payaudit/internal/knowledgebase"
	"go-payaudit/internal/messaging/kafka"
	"go-payaudit/internal/payroll"
	"go-payaudit/internal/shared/apperror"
	"go-payaudit/internal/shared/contextutil"
	"go-payaudit/internal/taxdecl"
)

// Audit run phases, in execution order.
const (
	PhaseStarted        = "STARTED"
	PhaseExtracting     = "EXTRACTING"
	PhaseCCTAuditing    = "CCT_AUDITING"
	PhaseTaxComputing   = "TAX_COMPUTING"
	PhaseFiscalCrossref = "FISCAL_CROSSREF"
	PhaseCompiling      = "COMPILING"
	PhasePostingDraft   = "POSTING_DRAFT"
	PhasePersisted      = "PERSISTED"
)

// RunResult is what callers get back from a successful audit run.
type RunResult struct {
	ProcessingID        string
	Status              string
	TotalDivergences    int
	CriticalDivergences int
	ReportID            string
	PostingsGenerated   int
}

// RuleLookup is the slice of the knowledge base the engine needs.
type RuleLookup interface {
	LookupRules(ctx context.Context, parameterName, firmID string, companyID *string) ([]knowledgebase.CCTRule, error)
}

//go:generate mockgen -source=audit_service.go -destination=mock/audit_service_mock.go -package=mock
type Service interface {
	RunAudit(ctx context.Context, processingID, companyID, period, operatorID string) (RunResult, error)
	GetReport(ctx context.Context, companyID, processingID string) (ReportResponse, error)
}

type service struct {
	db             *sql.DB
	repo           Repository
	rules          RuleLookup
	declarations   taxdecl.Store
	extractor      extraction.Adapter
	auditor        *ComplianceAuditor
	reconciler     *TaxReconciler
	generator      *EntryGenerator
	outbox         kafka.OutboxRepository
	logger         *zap.Logger
	extractTimeout time.Duration
}

func NewService(
	db *sql.DB,
	repo Repository,
	rules RuleLookup,
	declarations taxdecl.Store,
	extractor extraction.Adapter,
	auditor *ComplianceAuditor,
	reconciler *TaxReconciler,
	generator *EntryGenerator,
	outboxRepo kafka.OutboxRepository,
	extractTimeout time.Duration,
	logger ...*zap.Logger,
) Service {
	l := zap.L().Named("audit.engine")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.engine")
	}
	if extractTimeout <= 0 {
		extractTimeout = 60 * time.Second
	}
	return &service{
		db:             db,
		repo:           repo,
		rules:          rules,
		declarations:   declarations,
		extractor:      extractor,
		auditor:        auditor,
		reconciler:     reconciler,
		generator:      generator,
		outbox:         outboxRepo,
		logger:         l,
		extractTimeout: extractTimeout,
	}
}

// RunAudit executes one audit run as a sequential phase machine. Any
// system failure rolls back every write for this run and surfaces a typed
// error; data conditions (missing rule, missing declaration, missing
// chart of accounts) become report content instead.
func (s *service) RunAudit(
	ctx context.Context,
	processingID, companyID, period, operatorID string,
) (RunResult, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return RunResult{}, auditerrors.ErrInvalidCompanyID
	}
	if _, err := uuid.Parse(processingID); err != nil {
		return RunResult{}, auditerrors.ErrInvalidProcessingID
	}
	if _, err := uuid.Parse(operatorID); err != nil {
		return RunResult{}, auditerrors.ErrInvalidOperatorID
	}

	rid := contextutil.GetRequestID(ctx)
	log := s.logger.With(
		zap.String("request_id", rid),
		zap.String("processing_id", processingID),
		zap.String("company_id", companyID),
	)

	// STARTED
	log.Info("audit run started", zap.String("operator_id", operatorID))

	processing, err := s.repo.GetProcessing(ctx, companyID, processingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RunResult{}, auditerrors.ErrProcessingNotFound
		}
		return s.failRun(ctx, log, processingID, companyID, PhaseStarted, err)
	}
	if period != "" && period != processing.Period {
		return RunResult{}, auditerrors.ErrInvalidPeriodFormat
	}
	period = processing.Period

	// EXTRACTING
	extractCtx, cancel := context.WithTimeout(ctx, s.extractTimeout)
	dataset, err := s.extractor.ExtractPayroll(extractCtx, processing.Document, processing.InstructionHint)
	cancel()
	if err != nil {
		wrapped := apperror.Wrap(
			err,
			apperror.CodeServiceUnavailable,
			auditerrors.ErrExtractionFailed.Message,
			auditerrors.ErrExtractionFailed.HTTPStatus,
		)
		return s.failRun(ctx, log, processingID, companyID, PhaseExtracting, wrapped)
	}
	log.Info("payroll extracted", zap.Int("employees", len(dataset.Employees)))

	// CCT_AUDITING
	ruleSet, err := s.loadRuleSet(ctx, processing.FirmID.String(), companyID)
	if err != nil {
		return s.failRun(ctx, log, processingID, companyID, PhaseCCTAuditing, err)
	}
	compliance := s.auditor.AuditCompliance(dataset, ruleSet)

	// TAX_COMPUTING
	computed := s.reconciler.RecomputeContributions(dataset.Totals)

	// FISCAL_CROSSREF
	declarations, err := s.declarations.FindByPeriod(ctx, companyID, period)
	if err != nil {
		return s.failRun(ctx, log, processingID, companyID, PhaseFiscalCrossref, err)
	}
	fiscal := s.reconciler.CrossReferenceWithDeclarations(computed, declarations)

	// COMPILING
	divergences := make([]Divergence, 0, len(compliance.Divergences)+len(fiscal))
	divergences = append(divergences, compliance.Divergences...)
	divergences = append(divergences, fiscal...)
	SortBySeverity(divergences)

	critical, warnings := countBySeverity(divergences)

	// POSTING_DRAFT
	coaMissing := false
	postings, err := s.generator.GeneratePostings(ctx, companyID, period, dataset.Totals, computed)
	if err != nil {
		if errors.Is(err, chartofaccountserrors.ErrChartOfAccountsMissing) {
			// Fatal for posting generation only; the report still goes out.
			log.Warn("chart of accounts missing, skipping posting generation")
			coaMissing = true
			postings = nil
		} else {
			return s.failRun(ctx, log, processingID, companyID, PhasePostingDraft, err)
		}
	}

	report := s.buildReport(processing, dataset, divergences, critical, warnings, compliance.SkippedCategories, len(postings), coaMissing)

	// PERSISTED
	result, err := s.persistRun(ctx, report, postings, processing)
	if err != nil {
		if errors.Is(err, auditerrors.ErrAuditAlreadyPerformed) {
			// A report for this processing already exists; a duplicate
			// submission is a client conflict, not a failed run.
			return RunResult{}, err
		}
		wrapped := apperror.Wrap(
			err,
			apperror.CodeInternalError,
			auditerrors.ErrPersistenceFailed.Message,
			auditerrors.ErrPersistenceFailed.HTTPStatus,
		)
		return s.failRun(ctx, log, processingID, companyID, PhasePersisted, wrapped)
	}

	log.Info("audit run persisted",
		zap.String("report_id", result.ReportID),
		zap.Int("total_divergences", result.TotalDivergences),
		zap.Int("critical_divergences", result.CriticalDivergences),
		zap.Int("postings_generated", result.PostingsGenerated),
	)

	return result, nil
}

func (s *service) GetReport(ctx context.Context, companyID, processingID string) (ReportResponse, error) {
	if _, err := uuid.Parse(companyID); err != nil {
		return ReportResponse{}, auditerrors.ErrInvalidCompanyID
	}
	if _, err := uuid.Parse(processingID); err != nil {
		return ReportResponse{}, auditerrors.ErrInvalidProcessingID
	}

	report, err := s.repo.FindReportByProcessingID(ctx, companyID, processingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ReportResponse{}, auditerrors.ErrReportNotFound
		}
		return ReportResponse{}, err
	}

	return mapToReportResponse(*report), nil
}

// loadRuleSet pulls every validated rule for the firm/company and decodes
// the parameters the auditor understands.
func (s *service) loadRuleSet(ctx context.Context, firmID, companyID string) (RuleSet, error) {
	rules, err := s.rules.LookupRules(ctx, "", firmID, &companyID)
	if err != nil {
		return RuleSet{}, err
	}
	return BuildRuleSet(rules), nil
}

func (s *service) buildReport(
	processing *Processing,
	dataset payroll.Dataset,
	divergences []Divergence,
	critical, warnings int,
	skippedCategories []string,
	postingsGenerated int,
	coaMissing bool,
) *Report {
	report := &Report{
		ID:                uuid.New(),
		ProcessingID:      processing.ID,
		CompanyID:         processing.CompanyID,
		Period:            processing.Period,
		Status:            ReportStatusCompleted,
		TotalEmployees:    len(dataset.Employees),
		TotalDivergences:  len(divergences),
		CriticalCount:     critical,
		WarningCount:      warnings,
		PostingsGenerated: postingsGenerated,
		GrossPay:          dataset.Totals.GrossPay,
		OvertimeTotal:     dataset.Totals.OvertimeTotal,
		EmployeeINSS:      dataset.Totals.EmployeeINSS,
		EmployerINSS:      dataset.Totals.EmployerINSS,
		IRRF:              dataset.Totals.IRRF,
		NetPay:            dataset.Totals.NetPay,
		SkippedCategories: strings.Join(skippedCategories, ","),
		Recommendations:   strings.Join(buildRecommendations(critical, warnings, skippedCategories, coaMissing), "\n"),
	}

	for i, divergence := range divergences {
		report.Divergences = append(report.Divergences, ReportDivergence{
			ID:            uuid.New(),
			ReportID:      report.ID,
			Position:      i,
			Category:      string(divergence.Category),
			Severity:      string(divergence.Severity),
			Subject:       divergence.Subject,
			FoundValue:    divergence.FoundValue,
			ExpectedValue: divergence.ExpectedValue,
			Difference:    divergence.Difference,
			Message:       divergence.Message,
		})
	}

	return report
}

func buildRecommendations(critical, warnings int, skippedCategories []string, coaMissing bool) []string {
	var recommendations []string
	if critical > 0 {
		recommendations = append(recommendations,
			"Corrigir as divergências críticas antes do fechamento da folha.")
	}
	if warnings > 0 {
		recommendations = append(recommendations,
			"Revisar os alertas apontados junto ao departamento pessoal.")
	}
	if len(skippedCategories) > 0 {
		recommendations = append(recommendations,
			"Cadastrar as regras de CCT ausentes: "+strings.Join(skippedCategories, ", ")+".")
	}
	if coaMissing {
		recommendations = append(recommendations,
			"Cadastrar o plano de contas da empresa para gerar os lançamentos contábeis.")
	}
	if len(recommendations) == 0 {
		recommendations = append(recommendations,
			"Nenhuma divergência encontrada; folha apta para fechamento.")
	}
	return recommendations
}

// persistRun commits report, divergences, postings, run log and the
// AuditCompleted outbox event in a single transaction.
func (s *service) persistRun(
	ctx context.Context,
	report *Report,
	postings []Posting,
	processing *Processing,
) (RunResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return RunResult{}, err
	}
	defer tx.Rollback()

	qtx := s.repo.WithTx(tx)

	if err := qtx.CreateReport(ctx, report); err != nil {
		return RunResult{}, mapRepositoryError(err)
	}

	for i := range postings {
		postings[i].ReportID = report.ID
		if err := qtx.CreatePosting(ctx, &postings[i]); err != nil {
			return RunResult{}, err
		}
	}

	if err := qtx.MarkProcessingAudited(ctx, processing.ID.String()); err != nil {
		return RunResult{}, err
	}

	if err := qtx.CreateRunLog(ctx, &RunLog{
		ID:               uuid.New(),
		ProcessingID:     report.ProcessingID,
		CompanyID:        report.CompanyID,
		Outcome:          RunOutcomeSucceeded,
		Phase:            PhasePersisted,
		Message:          "audit run completed",
		TotalDivergences: report.TotalDivergences,
		CriticalCount:    report.CriticalCount,
	}); err != nil {
		return RunResult{}, err
	}

	s.queueAuditCompleted(ctx, tx, report)

	if err := tx.Commit(); err != nil {
		return RunResult{}, err
	}

	return RunResult{
		ProcessingID:        report.ProcessingID.String(),
		Status:              RunOutcomeSucceeded,
		TotalDivergences:    report.TotalDivergences,
		CriticalDivergences: report.CriticalCount,
		ReportID:            report.ID.String(),
		PostingsGenerated:   report.PostingsGenerated,
	}, nil
}

// failRun records the failure outcome (best effort, outside the rolled
// back transaction) and re-raises the triggering error to the caller.
func (s *service) failRun(
	ctx context.Context,
	log *zap.Logger,
	processingID, companyID, phase string,
	cause error,
) (RunResult, error) {
	log.Error("audit run failed",
		zap.String("phase", phase),
		zap.Error(cause),
	)

	if err := s.repo.CreateRunLog(ctx, &RunLog{
		ID:           uuid.New(),
		ProcessingID: uuid.MustParse(processingID),
		CompanyID:    uuid.MustParse(companyID),
		Outcome:      RunOutcomeFailed,
		Phase:        phase,
		Message:      cause.Error(),
	}); err != nil {
		log.Error("write failed run log failed", zap.Error(err))
	}

	s.queueAuditFailed(ctx, processingID, companyID, phase, cause)

	return RunResult{}, cause
}

// queueAuditCompleted adds the completion event to the outbox inside the
// run's transaction. Outbox failure is logged, never fatal.
func (s *service) queueAuditCompleted(ctx context.Context, tx *sql.Tx, report *Report) {
	if s.outbox == nil {
		return
	}

	rid := contextutil.GetRequestID(ctx)
	event := events.AuditCompletedEvent{
		EventType:       "audit_completed",
		RequestID:       rid,
		ProcessingID:    report.ProcessingID.String(),
		CompanyID:       report.CompanyID.String(),
		Status:          RunOutcomeSucceeded,
		DivergenceCount: report.TotalDivergences,
		CriticalCount:   report.CriticalCount,
		OccurredAt:      time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal audit_completed event failed", zap.Error(err))
		return
	}

	if err := s.outbox.WithTx(tx).Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     rid,
		AggregateType: "audit_run",
		AggregateID:   report.ProcessingID.String(),
		EventType:     "audit_completed",
		Topic:         events.AuditRunTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		s.logger.Error("audit_completed outbox persist failed",
			zap.String("processing_id", report.ProcessingID.String()),
			zap.Error(err),
		)
	}
}

// queueAuditFailed is fire-and-forget: notification delivery failure must
// never mask the original run error.
func (s *service) queueAuditFailed(ctx context.Context, processingID, companyID, phase string, cause error) {
	if s.outbox == nil {
		return
	}

	rid := contextutil.GetRequestID(ctx)
	event := events.AuditFailedEvent{
		EventType:    "audit_failed",
		RequestID:    rid,
		ProcessingID: processingID,
		CompanyID:    companyID,
		Phase:        phase,
		ErrorMessage: cause.Error(),
		OccurredAt:   time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal audit_failed event failed", zap.Error(err))
		return
	}

	if err := s.outbox.Create(ctx, kafka.OutboxEvent{
		ID:            uuid.New().String(),
		RequestID:     rid,
		AggregateType: "audit_run",
		AggregateID:   processingID,
		EventType:     "audit_failed",
		Topic:         events.AuditRunTopic,
		Payload:       payload,
		Status:        kafka.OutboxStatusPending,
	}); err != nil {
		s.logger.Error("audit_failed outbox persist failed",
			zap.String("processing_id", processingID),
			zap.Error(err),
		)
	}
}

func countBySeverity(divergences []Divergence) (critical, warnings int) {
	for _, divergence := range divergences {
		if divergence.Severity == SeverityCritical {
			critical++
		} else {
			warnings++
		}
	}
	return critical, warnings
}
