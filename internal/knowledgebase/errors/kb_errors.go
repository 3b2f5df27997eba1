package knowledgebaseerrors

import (
	"net/http"

	"go-payaudit/internal/shared/apperror"
)

var (
	ErrDocumentNotFound = apperror.New(
		apperror.CodeNotFound,
		"source document not found",
		http.StatusNotFound,
	)
	ErrDocumentNotPending = apperror.New(
		apperror.CodeInvalidState,
		"document can only be extracted while status is PENDING",
		http.StatusBadRequest,
	)
	ErrDocumentNotProcessed = apperror.New(
		apperror.CodeInvalidState,
		"document can only be published while status is PROCESSED",
		http.StatusBadRequest,
	)
	ErrExtractionFailed = apperror.New(
		apperror.CodeServiceUnavailable,
		"document extraction failed",
		http.StatusBadGateway,
	)
	ErrNoCandidatesExtracted = apperror.New(
		apperror.CodeInvalidState,
		"extraction returned no candidate parameters",
		http.StatusUnprocessableEntity,
	)
	ErrNothingToPublish = apperror.New(
		apperror.CodeInvalidInput,
		"no corrections matched a candidate parameter",
		http.StatusBadRequest,
	)
	ErrInvalidFirmID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid firm id",
		http.StatusBadRequest,
	)
	ErrInvalidDocumentID = apperror.New(
		apperror.CodeInvalidInput,
		"invalid document id",
		http.StatusBadRequest,
	)
	ErrReviewerRequired = apperror.New(
		apperror.CodeInvalidInput,
		"reviewer is required to publish rules",
		http.StatusBadRequest,
	)
)
