package audit

import "sort"

type Category string

const (
	CategoryCCTCompliance        Category = "CCT_COMPLIANCE"
	CategoryFiscalCrossReference Category = "FISCAL_CROSS_REFERENCE"
)

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityWarning  Severity = "WARNING"
)

// Divergence is one detected mismatch between payroll data and an
// expected value from rules or filings. Immutable once created.
type Divergence struct {
	Category      Category
	Severity      Severity
	Subject       string // employee name or declaration field
	FoundValue    string
	ExpectedValue string
	Difference    string // signed, fiscal cross-reference only
	Message       string
}

// CheckResult is the outcome of one compliance check. Checks report
// instead of raising; the caller aggregates.
type CheckResult struct {
	RuleCategory string
	Triggered    bool
	Divergence   Divergence
}

// SortBySeverity orders divergences CRITICAL first, preserving discovery
// order within each severity. Stable so identical inputs give identical
// output.
func SortBySeverity(divergences []Divergence) {
	sort.SliceStable(divergences, func(i, j int) bool {
		return severityRank(divergences[i].Severity) < severityRank(divergences[j].Severity)
	})
}

func severityRank(s Severity) int {
	if s == SeverityCritical {
		return 0
	}
	return 1
}
