package auditerrors

import (
	"net/http"

	"go-payaudit/internal/shared/apperror"
)

var (
	ErrInvalidCompanyID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid company id",
		http.StatusBadRequest,
	)
	ErrInvalidProcessingID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid processing id",
		http.StatusBadRequest,
	)
	ErrInvalidOperatorID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid operator id",
		http.StatusBadRequest,
	)
	ErrInvalidPeriodFormat = apperror.New(
		apperror.CodeInvalidInput,
		"invalid period format, expected YYYY-MM",
		http.StatusBadRequest,
	)
	ErrProcessingNotFound = apperror.New(
		apperror.CodeNotFound,
		"payroll processing not found",
		http.StatusNotFound,
	)
	ErrAuditAlreadyPerformed = apperror.New(
		apperror.CodeConflict,
		"an audit report already exists for this processing",
		http.StatusConflict,
	)
	ErrReportNotFound = apperror.New(
		apperror.CodeNotFound,
		"audit report not found",
		http.StatusNotFound,
	)
	ErrExtractionFailed = apperror.New(
		apperror.CodeServiceUnavailable,
		"payroll extraction failed",
		http.StatusBadGateway,
	)
	ErrUnbalancedPosting = apperror.New(
		apperror.CodeInternalError,
		"generated posting does not balance",
		http.StatusInternalServerError,
	)
	ErrPersistenceFailed = apperror.New(
		apperror.CodeInternalError,
		"persisting audit results failed",
		http.StatusInternalServerError,
	)
)
