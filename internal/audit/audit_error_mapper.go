package audit

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	auditerrors "go-payaudit/internal/audit/errors"
)

func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" && pgErr.ConstraintName == "idx_audit_reports_processing_id" {
			return auditerrors.ErrAuditAlreadyPerformed
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "duplicate key value") && strings.Contains(errMsg, "idx_audit_reports_processing_id") {
		return auditerrors.ErrAuditAlreadyPerformed
	}

	return err
}
