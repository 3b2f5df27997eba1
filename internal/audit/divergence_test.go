package audit_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"go-payaudit/internal/audit"
)

func TestSortBySeverity(t *testing.T) {
	divergences := []audit.Divergence{
		{Severity: audit.SeverityWarning, Subject: "a"},
		{Severity: audit.SeverityCritical, Subject: "b"},
		{Severity: audit.SeverityWarning, Subject: "c"},
		{Severity: audit.SeverityCritical, Subject: "d"},
	}

	audit.SortBySeverity(divergences)

	// CRITICAL first, discovery order preserved within each severity.
	assert.Equal(t, "b", divergences[0].Subject)
	assert.Equal(t, "d", divergences[1].Subject)
	assert.Equal(t, "a", divergences[2].Subject)
	assert.Equal(t, "c", divergences[3].Subject)
}
