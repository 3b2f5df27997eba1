package audit

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	"go-payaudit/internal/tenant"
)

//go:generate mockgen -source=audit_repo.go -destination=mock/audit_repo_mock.go -package=mock

// Repository persists audit runs. Reads go through gorm; writes go
// through the raw executor so report, divergences, postings and run log
// commit or roll back as one unit.
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	GetProcessing(ctx context.Context, companyID string, processingID string) (*Processing, error)
	FindReportByProcessingID(ctx context.Context, companyID string, processingID string) (*Report, error)

	CreateReport(ctx context.Context, report *Report) error
	CreatePosting(ctx context.Context, posting *Posting) error
	CreateRunLog(ctx context.Context, runLog *RunLog) error
	MarkProcessingAudited(ctx context.Context, processingID string) error
}

type repository struct {
	db    *gorm.DB
	rawDB *sql.DB
	tx    *sql.Tx
}

func NewRepository(db *gorm.DB, rawDB *sql.DB) Repository {
	return &repository{db: db, rawDB: rawDB}
}

func (r *repository) WithTx(tx *sql.Tx) Repository {
	return &repository{db: r.db, rawDB: r.rawDB, tx: tx}
}

func (r *repository) GetProcessing(ctx context.Context, companyID string, processingID string) (*Processing, error) {
	var processing Processing
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		First(&processing, "id = ?", processingID).Error
	if err != nil {
		return nil, err
	}
	return &processing, nil
}

func (r *repository) FindReportByProcessingID(ctx context.Context, companyID string, processingID string) (*Report, error) {
	var report Report
	err := r.db.WithContext(ctx).
		Scopes(tenant.Scope(companyID)).
		Preload("Divergences", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		First(&report, "processing_id = ?", processingID).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *repository) CreateReport(ctx context.Context, report *Report) error {
	query := `
        INSERT INTO audit_reports (
            id, processing_id, company_id, period, status,
            total_employees, total_divergences, critical_count, warning_count, postings_generated,
            gross_pay, overtime_total, employee_inss, employer_inss, irrf, net_pay,
            skipped_categories, recommendations, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, NOW())
    `
	exec := r.execer()
	if _, err := exec.ExecContext(
		ctx, query,
		report.ID, report.ProcessingID, report.CompanyID, report.Period, report.Status,
		report.TotalEmployees, report.TotalDivergences, report.CriticalCount, report.WarningCount,
		report.PostingsGenerated,
		report.GrossPay, report.OvertimeTotal, report.EmployeeINSS, report.EmployerINSS,
		report.IRRF, report.NetPay,
		report.SkippedCategories, report.Recommendations,
	); err != nil {
		return err
	}

	lineQuery := `
        INSERT INTO audit_report_divergences (
            id, report_id, position, category, severity, subject,
            found_value, expected_value, difference, message
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
    `
	for _, divergence := range report.Divergences {
		if _, err := exec.ExecContext(
			ctx, lineQuery,
			divergence.ID, divergence.ReportID, divergence.Position,
			divergence.Category, divergence.Severity, divergence.Subject,
			divergence.FoundValue, divergence.ExpectedValue, divergence.Difference,
			divergence.Message,
		); err != nil {
			return err
		}
	}

	return nil
}

func (r *repository) CreatePosting(ctx context.Context, posting *Posting) error {
	query := `
        INSERT INTO accounting_postings (
            id, report_id, company_id, entry_number, entry_date, description, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, NOW())
    `
	exec := r.execer()
	if _, err := exec.ExecContext(
		ctx, query,
		posting.ID, posting.ReportID, posting.CompanyID,
		posting.EntryNumber, posting.EntryDate, posting.Description,
	); err != nil {
		return err
	}

	lineQuery := `
        INSERT INTO accounting_posting_lines (
            id, posting_id, position, account_code, side, amount, memo
        ) VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	for _, line := range posting.Lines {
		if _, err := exec.ExecContext(
			ctx, lineQuery,
			line.ID, line.PostingID, line.Position,
			line.AccountCode, line.Side, line.Amount, line.Memo,
		); err != nil {
			return err
		}
	}

	return nil
}

func (r *repository) CreateRunLog(ctx context.Context, runLog *RunLog) error {
	query := `
        INSERT INTO audit_run_logs (
            id, processing_id, company_id, outcome, phase, message,
            total_divergences, critical_count, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
    `
	_, err := r.execer().ExecContext(
		ctx, query,
		runLog.ID, runLog.ProcessingID, runLog.CompanyID,
		runLog.Outcome, runLog.Phase, runLog.Message,
		runLog.TotalDivergences, runLog.CriticalCount,
	)
	return err
}

func (r *repository) MarkProcessingAudited(ctx context.Context, processingID string) error {
	query := `UPDATE payroll_processings SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.execer().ExecContext(ctx, query, processingID, ProcessingStatusAudited)
	return err
}

func (r *repository) execer() interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
} {
	if r.tx != nil {
		return r.tx
	}
	return r.rawDB
}
