package knowledgebase

import (
	"context"
	"database/sql"

	"gorm.io/gorm"
)

//go:generate mockgen -source=kb_repo.go -destination=mock/kb_repo_mock.go -package=mock

// Repository persists the knowledge-base workflow. Reads go through gorm;
// writes go through the raw executor so they participate in the caller's
// transaction.
type Repository interface {
	WithTx(tx *sql.Tx) Repository

	FindDocument(ctx context.Context, firmID string, documentID string) (*SourceDocument, error)
	FindCandidatesByDocument(ctx context.Context, documentID string) ([]CandidateParameter, error)
	FindValidatedRules(ctx context.Context, parameterName string, firmID string, companyID *string) ([]CCTRule, error)

	CreateCandidate(ctx context.Context, candidate *CandidateParameter) error
	DeleteCandidatesByDocument(ctx context.Context, documentID string) error
	UpdateCandidateStatus(ctx context.Context, candidateID string, status string) error
	UpdateDocumentStatus(ctx context.Context, documentID string, status string, errorMessage *string) error
	CreateRule(ctx context.Context, rule *CCTRule) error
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

func (r *repository) FindDocument(ctx context.Context, firmID string, documentID string) (*SourceDocument, error) {
	var doc SourceDocument
	err := r.db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		First(&doc, "id = ?", documentID).Error
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *repository) FindCandidatesByDocument(ctx context.Context, documentID string) ([]CandidateParameter, error) {
	var candidates []CandidateParameter
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("created_at ASC, id ASC").
		Find(&candidates).Error
	return candidates, err
}

func (r *repository) FindValidatedRules(
	ctx context.Context,
	parameterName string,
	firmID string,
	companyID *string,
) ([]CCTRule, error) {
	q := r.db.WithContext(ctx).
		Where("firm_id = ?", firmID).
		Where("validated_by <> ''")

	if parameterName != "" {
		q = q.Where("parameter_name = ?", parameterName)
	}

	// Company-specific rules plus firm-wide defaults; company-specific
	// rows sort first so callers can prefer them.
	if companyID != nil && *companyID != "" {
		q = q.Where("company_id = ? OR company_id IS NULL", *companyID).
			Order("company_id ASC NULLS LAST")
	} else {
		q = q.Where("company_id IS NULL")
	}

	var rules []CCTRule
	err := q.Order("validated_at DESC").Find(&rules).Error
	return rules, err
}

func (r *repository) CreateCandidate(ctx context.Context, candidate *CandidateParameter) error {
	query := `
        INSERT INTO kb_candidate_parameters (
            id, document_id, name, raw_value, value_type, confidence, status, created_at, updated_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
    `
	_, err := r.execer().ExecContext(
		ctx, query,
		candidate.ID, candidate.DocumentID, candidate.Name,
		candidate.RawValue, candidate.ValueType, candidate.Confidence, candidate.Status,
	)
	return err
}

func (r *repository) DeleteCandidatesByDocument(ctx context.Context, documentID string) error {
	query := `DELETE FROM kb_candidate_parameters WHERE document_id = $1 AND status = $2`
	_, err := r.execer().ExecContext(ctx, query, documentID, CandidateStatusPending)
	return err
}

func (r *repository) UpdateCandidateStatus(ctx context.Context, candidateID string, status string) error {
	query := `UPDATE kb_candidate_parameters SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.execer().ExecContext(ctx, query, candidateID, status)
	return err
}

func (r *repository) UpdateDocumentStatus(ctx context.Context, documentID string, status string, errorMessage *string) error {
	query := `UPDATE kb_source_documents SET status = $2, error_message = $3, updated_at = NOW() WHERE id = $1`
	_, err := r.execer().ExecContext(ctx, query, documentID, status, errorMessage)
	return err
}

func (r *repository) CreateRule(ctx context.Context, rule *CCTRule) error {
	query := `
        INSERT INTO kb_cct_rules (
            id, firm_id, company_id, parameter_name, value, value_type,
            source_document_id, validated_by, validated_at, created_at
        ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
    `
	_, err := r.execer().ExecContext(
		ctx, query,
		rule.ID, rule.FirmID, rule.CompanyID, rule.ParameterName,
		rule.Value, rule.ValueType, rule.SourceDocumentID,
		rule.ValidatedBy, rule.ValidatedAt,
	)
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
