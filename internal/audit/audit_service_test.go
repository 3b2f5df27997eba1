package audit_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"go-payaudit/internal/audit"
	auditerrors "go-payaudit/internal/audit/errors"
	"go-payaudit/internal/chartofaccounts"
	chartofaccountserrors "go-payaudit/internal/chartofaccounts/errors"
	"go-payaudit/internal/extraction"
	"go-payaudit/internal/knowledgebase"
	"go-payaudit/internal/messaging/kafka"
	"go-payaudit/internal/payroll"
	"go-payaudit/internal/shared/apperror"
	"go-payaudit/internal/taxdecl"
)

type fakeAuditRepository struct {
	getProcessingFn          func(ctx context.Context, companyID, processingID string) (*audit.Processing, error)
	findReportByProcessingFn func(ctx context.Context, companyID, processingID string) (*audit.Report, error)
	createReportFn           func(ctx context.Context, report *audit.Report) error
	createPostingFn          func(ctx context.Context, posting *audit.Posting) error
	createRunLogFn           func(ctx context.Context, runLog *audit.RunLog) error
	markProcessingAuditedFn  func(ctx context.Context, processingID string) error

	createdReports  []*audit.Report
	createdPostings []*audit.Posting
	runLogs         []*audit.RunLog
	auditedIDs      []string
}

func (f *fakeAuditRepository) WithTx(tx *sql.Tx) audit.Repository { return f }

func (f *fakeAuditRepository) GetProcessing(ctx context.Context, companyID, processingID string) (*audit.Processing, error) {
	if f.getProcessingFn != nil {
		return f.getProcessingFn(ctx, companyID, processingID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAuditRepository) FindReportByProcessingID(ctx context.Context, companyID, processingID string) (*audit.Report, error) {
	if f.findReportByProcessingFn != nil {
		return f.findReportByProcessingFn(ctx, companyID, processingID)
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeAuditRepository) CreateReport(ctx context.Context, report *audit.Report) error {
	if f.createReportFn != nil {
		return f.createReportFn(ctx, report)
	}
	f.createdReports = append(f.createdReports, report)
	return nil
}

func (f *fakeAuditRepository) CreatePosting(ctx context.Context, posting *audit.Posting) error {
	if f.createPostingFn != nil {
		return f.createPostingFn(ctx, posting)
	}
	f.createdPostings = append(f.createdPostings, posting)
	return nil
}

func (f *fakeAuditRepository) CreateRunLog(ctx context.Context, runLog *audit.RunLog) error {
	if f.createRunLogFn != nil {
		return f.createRunLogFn(ctx, runLog)
	}
	f.runLogs = append(f.runLogs, runLog)
	return nil
}

func (f *fakeAuditRepository) MarkProcessingAudited(ctx context.Context, processingID string) error {
	if f.markProcessingAuditedFn != nil {
		return f.markProcessingAuditedFn(ctx, processingID)
	}
	f.auditedIDs = append(f.auditedIDs, processingID)
	return nil
}

type fakeRuleLookup struct {
	lookupRulesFn func(ctx context.Context, parameterName, firmID string, companyID *string) ([]knowledgebase.CCTRule, error)
}

func (f *fakeRuleLookup) LookupRules(ctx context.Context, parameterName, firmID string, companyID *string) ([]knowledgebase.CCTRule, error) {
	if f.lookupRulesFn != nil {
		return f.lookupRulesFn(ctx, parameterName, firmID, companyID)
	}
	return nil, nil
}

type fakeDeclarationStore struct {
	findByPeriodFn func(ctx context.Context, companyID, period string) ([]taxdecl.Declaration, error)
}

func (f *fakeDeclarationStore) FindByPeriod(ctx context.Context, companyID, period string) ([]taxdecl.Declaration, error) {
	if f.findByPeriodFn != nil {
		return f.findByPeriodFn(ctx, companyID, period)
	}
	return nil, nil
}

type fakeExtractionAdapter struct {
	extractPayrollFn    func(ctx context.Context, document []byte, hint string) (payroll.Dataset, error)
	extractParametersFn func(ctx context.Context, document []byte, hint string) ([]extraction.CandidateField, error)
}

func (f *fakeExtractionAdapter) ExtractPayroll(ctx context.Context, document []byte, hint string) (payroll.Dataset, error) {
	if f.extractPayrollFn != nil {
		return f.extractPayrollFn(ctx, document, hint)
	}
	return payroll.Dataset{}, errors.New("not configured")
}

func (f *fakeExtractionAdapter) ExtractParameters(ctx context.Context, document []byte, hint string) ([]extraction.CandidateField, error) {
	if f.extractParametersFn != nil {
		return f.extractParametersFn(ctx, document, hint)
	}
	return nil, errors.New("not configured")
}

type fakeOutboxRepository struct {
	createFn func(ctx context.Context, event kafka.OutboxEvent) error
	created  []kafka.OutboxEvent
}

func (f *fakeOutboxRepository) WithTx(tx *sql.Tx) kafka.OutboxRepository { return f }

func (f *fakeOutboxRepository) Create(ctx context.Context, event kafka.OutboxEvent) error {
	if f.createFn != nil {
		return f.createFn(ctx, event)
	}
	f.created = append(f.created, event)
	return nil
}

func (f *fakeOutboxRepository) ListPending(ctx context.Context, limit int) ([]kafka.OutboxEvent, error) {
	return nil, nil
}

func (f *fakeOutboxRepository) MarkSent(ctx context.Context, id string) error { return nil }

func (f *fakeOutboxRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return nil
}

type auditServiceDeps struct {
	db           *sql.DB
	sqlMock      sqlmock.Sqlmock
	service      audit.Service
	repo         *fakeAuditRepository
	rules        *fakeRuleLookup
	declarations *fakeDeclarationStore
	extractor    *fakeExtractionAdapter
	outbox       *fakeOutboxRepository
	coa          *fakeChartProvider
}

func setupAuditServiceTest(t *testing.T) *auditServiceDeps {
	t.Helper()

	db, sqlMock, err := sqlmock.New()
	assert.NoError(t, err)

	repo := &fakeAuditRepository{}
	rules := &fakeRuleLookup{}
	declarations := &fakeDeclarationStore{}
	extractor := &fakeExtractionAdapter{}
	outbox := &fakeOutboxRepository{}
	coa := &fakeChartProvider{}

	generator := audit.NewEntryGenerator(coa, &fakeCounterRepository{})
	svc := audit.NewService(
		db,
		repo,
		rules,
		declarations,
		extractor,
		audit.NewComplianceAuditor(),
		audit.NewTaxReconciler(nil),
		generator,
		outbox,
		time.Second,
	)

	return &auditServiceDeps{
		db:           db,
		sqlMock:      sqlMock,
		service:      svc,
		repo:         repo,
		rules:        rules,
		declarations: declarations,
		extractor:    extractor,
		outbox:       outbox,
		coa:          coa,
	}
}

func pendingProcessing(companyID, processingID string) *audit.Processing {
	return &audit.Processing{
		ID:        uuid.MustParse(processingID),
		CompanyID: uuid.MustParse(companyID),
		FirmID:    uuid.New(),
		Period:    "2025-03",
		Document:  []byte("folha-marco"),
		Status:    audit.ProcessingStatusPending,
	}
}

// sampleDataset has one employee below the CCT floor and consistent net
// pay, so a piso rule yields exactly one compliance divergence.
func sampleDataset() payroll.Dataset {
	low := payroll.EmployeeRecord{
		Name:       "João Silva",
		BaseSalary: dec("1800.00"),
	}
	low.NetPay = low.ExpectedNetPay()

	ok := payroll.EmployeeRecord{
		Name:       "Maria Souza",
		BaseSalary: dec("3000.00"),
	}
	ok.NetPay = ok.ExpectedNetPay()

	return payroll.Dataset{
		Period:    "2025-03",
		Employees: []payroll.EmployeeRecord{low, ok},
		Totals: payroll.Totals{
			GrossPay:     dec("10000.00"),
			EmployeeINSS: dec("900.00"),
			EmployerINSS: dec("2000.00"),
			IRRF:         dec("300.00"),
			NetPay:       dec("8800.00"),
		},
	}
}

func TestAuditService_RunAudit_Success(t *testing.T) {
	deps := setupAuditServiceTest(t)
	ctx := context.Background()

	companyID := uuid.New().String()
	processingID := uuid.New().String()
	operatorID := uuid.New().String()

	deps.repo.getProcessingFn = func(ctx context.Context, cID, pID string) (*audit.Processing, error) {
		assert.Equal(t, companyID, cID)
		assert.Equal(t, processingID, pID)
		return pendingProcessing(companyID, processingID), nil
	}
	deps.extractor.extractPayrollFn = func(ctx context.Context, document []byte, hint string) (payroll.Dataset, error) {
		return sampleDataset(), nil
	}
	deps.rules.lookupRulesFn = func(ctx context.Context, parameterName, firmID string, cID *string) ([]knowledgebase.CCTRule, error) {
		assert.NotNil(t, cID)
		return []knowledgebase.CCTRule{
			{ParameterName: audit.ParamMinimumWage, Value: "1985.00"},
		}, nil
	}
	deps.declarations.findByPeriodFn = func(ctx context.Context, cID, period string) ([]taxdecl.Declaration, error) {
		assert.Equal(t, "2025-03", period)
		// Computed FGTS is 10000 * 8% = 800.00; declared 750 diverges.
		return []taxdecl.Declaration{declaration(taxdecl.TaxFGTS, "750.00")}, nil
	}

	deps.sqlMock.ExpectBegin()
	deps.sqlMock.ExpectCommit()

	result, err := deps.service.RunAudit(ctx, processingID, companyID, "", operatorID)

	assert.NoError(t, err)
	assert.Equal(t, processingID, result.ProcessingID)
	assert.Equal(t, audit.RunOutcomeSucceeded, result.Status)
	assert.Equal(t, 2, result.TotalDivergences)
	assert.Equal(t, 2, result.CriticalDivergences)
	assert.NotEmpty(t, result.ReportID)
	assert.Equal(t, 1, result.PostingsGenerated)

	assert.Len(t, deps.repo.createdReports, 1)
	report := deps.repo.createdReports[0]
	assert.Equal(t, 2, report.TotalEmployees)
	assert.Equal(t, 2, report.CriticalCount)
	assert.Equal(t, 0, report.WarningCount)
	assert.Len(t, report.Divergences, 2)

	assert.Len(t, deps.repo.createdPostings, 1)
	assert.Equal(t, report.ID, deps.repo.createdPostings[0].ReportID)
	assert.Equal(t, []string{processingID}, deps.repo.auditedIDs)

	assert.Len(t, deps.repo.runLogs, 1)
	assert.Equal(t, audit.RunOutcomeSucceeded, deps.repo.runLogs[0].Outcome)

	assert.Len(t, deps.outbox.created, 1)
	assert.Equal(t, "audit_completed", deps.outbox.created[0].EventType)

	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestAuditService_RunAudit_InvalidIDs(t *testing.T) {
	deps := setupAuditServiceTest(t)
	ctx := context.Background()
	valid := uuid.New().String()

	t.Run("invalid company id", func(t *testing.T) {
		_, err := deps.service.RunAudit(ctx, valid, "not-a-uuid", "", valid)
		assert.ErrorIs(t, err, auditerrors.ErrInvalidCompanyID)
	})

	t.Run("invalid processing id", func(t *testing.T) {
		_, err := deps.service.RunAudit(ctx, "not-a-uuid", valid, "", valid)
		assert.ErrorIs(t, err, auditerrors.ErrInvalidProcessingID)
	})

	t.Run("invalid operator id", func(t *testing.T) {
		_, err := deps.service.RunAudit(ctx, valid, valid, "", "not-a-uuid")
		assert.ErrorIs(t, err, auditerrors.ErrInvalidOperatorID)
	})
}

func TestAuditService_RunAudit_ProcessingNotFound(t *testing.T) {
	deps := setupAuditServiceTest(t)
	ctx := context.Background()

	_, err := deps.service.RunAudit(
		ctx, uuid.New().String(), uuid.New().String(), "", uuid.New().String(),
	)

	assert.ErrorIs(t, err, auditerrors.ErrProcessingNotFound)
	// A lookup miss is a client error, not a failed run.
	assert.Empty(t, deps.repo.runLogs)
	assert.Empty(t, deps.outbox.created)
}

func TestAuditService_RunAudit_PeriodMismatch(t *testing.T) {
	deps := setupAuditServiceTest(t)
	ctx := context.Background()

	companyID := uuid.New().String()
	processingID := uuid.New().String()

	deps.repo.getProcessingFn = func(ctx context.Context, cID, pID string) (*audit.Processing, error) {
		return pendingProcessing(companyID, processingID), nil
	}

	_, err := deps.service.RunAudit(ctx, processingID, companyID, "2024-12", uuid.New().String())

	assert.ErrorIs(t, err, auditerrors.ErrInvalidPeriodFormat)
}

func TestAuditService_RunAudit_ExtractionFails(t *testing.T) {
	deps := setupAuditServiceTest(t)
	ctx := context.Background()

	companyID := uuid.New().String()
	processingID := uuid.New().String()

	deps.repo.getProcessingFn = func(ctx context.Context, cID, pID string) (*audit.Processing, error) {
		return pendingProcessing(companyID, processingID), nil
	}
	deps.extractor.extractPayrollFn = func(ctx context.Context, document []byte, hint string) (payroll.Dataset, error) {
		return payroll.Dataset{}, errors.New("extractor unreachable")
	}

	_, err := deps.service.RunAudit(ctx, processingID, companyID, "", uuid.New().String())

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeServiceUnavailable, appErr.Code)

	// Failure outcome is recorded and the notification is queued.
	assert.Len(t, deps.repo.runLogs, 1)
	assert.Equal(t, audit.RunOutcomeFailed, deps.repo.runLogs[0].Outcome)
	assert.Equal(t, audit.PhaseExtracting, deps.repo.runLogs[0].Phase)

	assert.Len(t, deps.outbox.created, 1)
	assert.Equal(t, "audit_failed", deps.outbox.created[0].EventType)

	// Nothing else was written.
	assert.Empty(t, deps.repo.createdReports)
	assert.Empty(t, deps.repo.auditedIDs)
}

func TestAuditService_RunAudit_ChartOfAccountsMissing(t *testing.T) {
	deps := setupAuditServiceTest(t)
	ctx := context.Background()

	companyID := uuid.New().String()
	processingID := uuid.New().String()

	deps.repo.getProcessingFn = func(ctx context.Context, cID, pID string) (*audit.Processing, error) {
		return pendingProcessing(companyID, processingID), nil
	}
	deps.extractor.extractPayrollFn = func(ctx context.Context, document []byte, hint string) (payroll.Dataset, error) {
		return sampleDataset(), nil
	}
	deps.coa.getFn = func(ctx context.Context, companyID string) (*chartofaccounts.AccountMapping, error) {
		return nil, chartofaccountserrors.ErrChartOfAccountsMissing
	}

	deps.sqlMock.ExpectBegin()
	deps.sqlMock.ExpectCommit()

	result, err := deps.service.RunAudit(ctx, processingID, companyID, "", uuid.New().String())

	// Missing mapping skips posting generation but the report goes out.
	assert.NoError(t, err)
	assert.Equal(t, 0, result.PostingsGenerated)
	assert.Empty(t, deps.repo.createdPostings)
	assert.Len(t, deps.repo.createdReports, 1)
	assert.Contains(t, deps.repo.createdReports[0].Recommendations, "plano de contas")

	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestAuditService_RunAudit_DuplicateReportConflicts(t *testing.T) {
	deps := setupAuditServiceTest(t)
	ctx := context.Background()

	companyID := uuid.New().String()
	processingID := uuid.New().String()

	deps.repo.getProcessingFn = func(ctx context.Context, cID, pID string) (*audit.Processing, error) {
		return pendingProcessing(companyID, processingID), nil
	}
	deps.extractor.extractPayrollFn = func(ctx context.Context, document []byte, hint string) (payroll.Dataset, error) {
		return sampleDataset(), nil
	}
	deps.repo.createReportFn = func(ctx context.Context, report *audit.Report) error {
		return &pgconn.PgError{Code: "23505", ConstraintName: "idx_audit_reports_processing_id"}
	}

	deps.sqlMock.ExpectBegin()
	deps.sqlMock.ExpectRollback()

	_, err := deps.service.RunAudit(ctx, processingID, companyID, "", uuid.New().String())

	assert.ErrorIs(t, err, auditerrors.ErrAuditAlreadyPerformed)
	// Duplicate submission is a client conflict, not a failed run.
	assert.Empty(t, deps.repo.runLogs)
	assert.Empty(t, deps.outbox.created)

	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestAuditService_RunAudit_PersistFailureRollsBack(t *testing.T) {
	deps := setupAuditServiceTest(t)
	ctx := context.Background()

	companyID := uuid.New().String()
	processingID := uuid.New().String()

	deps.repo.getProcessingFn = func(ctx context.Context, cID, pID string) (*audit.Processing, error) {
		return pendingProcessing(companyID, processingID), nil
	}
	deps.extractor.extractPayrollFn = func(ctx context.Context, document []byte, hint string) (payroll.Dataset, error) {
		return sampleDataset(), nil
	}
	deps.repo.createReportFn = func(ctx context.Context, report *audit.Report) error {
		return errors.New("insert failed")
	}

	deps.sqlMock.ExpectBegin()
	deps.sqlMock.ExpectRollback()

	_, err := deps.service.RunAudit(ctx, processingID, companyID, "", uuid.New().String())

	var appErr *apperror.AppError
	assert.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperror.CodeInternalError, appErr.Code)

	assert.Empty(t, deps.repo.auditedIDs)
	assert.Len(t, deps.repo.runLogs, 1)
	assert.Equal(t, audit.RunOutcomeFailed, deps.repo.runLogs[0].Outcome)
	assert.Equal(t, audit.PhasePersisted, deps.repo.runLogs[0].Phase)

	assert.NoError(t, deps.sqlMock.ExpectationsWereMet())
}

func TestAuditService_GetReport(t *testing.T) {
	deps := setupAuditServiceTest(t)
	ctx := context.Background()

	companyID := uuid.New().String()
	processingID := uuid.New().String()

	t.Run("found", func(t *testing.T) {
		deps.repo.findReportByProcessingFn = func(ctx context.Context, cID, pID string) (*audit.Report, error) {
			return &audit.Report{
				ID:                uuid.New(),
				ProcessingID:      uuid.MustParse(processingID),
				CompanyID:         uuid.MustParse(companyID),
				Period:            "2025-03",
				Status:            audit.ReportStatusCompleted,
				TotalEmployees:    2,
				TotalDivergences:  1,
				CriticalCount:     1,
				GrossPay:          dec("10000.00"),
				SkippedCategories: "hora_extra_50,hora_extra_100",
				Recommendations:   "Corrigir as divergências críticas antes do fechamento da folha.",
			}, nil
		}

		resp, err := deps.service.GetReport(ctx, companyID, processingID)

		assert.NoError(t, err)
		assert.Equal(t, processingID, resp.ProcessingID)
		assert.Equal(t, "10000.00", resp.Totals.GrossPay)
		assert.Equal(t, []string{"hora_extra_50", "hora_extra_100"}, resp.SkippedCategories)
		assert.Len(t, resp.Recommendations, 1)
	})

	t.Run("not found", func(t *testing.T) {
		deps.repo.findReportByProcessingFn = nil

		_, err := deps.service.GetReport(ctx, companyID, processingID)

		assert.ErrorIs(t, err, auditerrors.ErrReportNotFound)
	})

	t.Run("invalid processing id", func(t *testing.T) {
		_, err := deps.service.GetReport(ctx, companyID, "nope")

		assert.ErrorIs(t, err, auditerrors.ErrInvalidProcessingID)
	})
}
