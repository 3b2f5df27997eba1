package chartofaccountserrors

import (
	"net/http"

	"go-payaudit/internal/shared/apperror"
)

var (
	ErrChartOfAccountsMissing = apperror.New(
		apperror.CodeNotFound,
		"no chart of accounts mapping registered for this company",
		http.StatusNotFound,
	)
)
