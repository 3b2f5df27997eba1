package audit

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"go-payaudit/internal/payroll"
	"go-payaudit/internal/taxdecl"
)

// Statutory contribution rates over gross pay.
var (
	fgtsRate = decimal.NewFromFloat(0.08)
	pisRate  = decimal.NewFromFloat(0.0065)
)

// CrossReferenceTolerance is the largest computed-vs-declared difference
// that is still treated as a rounding artifact. Strictly greater triggers
// a divergence; exactly 0.01 does not.
var CrossReferenceTolerance = decimal.NewFromFloat(0.01)

// ComputedTaxes holds the contributions this engine recomputed (or passed
// through) from payroll totals.
type ComputedTaxes struct {
	INSS decimal.Decimal
	IRRF decimal.Decimal
	FGTS decimal.Decimal
	PIS  decimal.Decimal
}

// ContributionCalculator recomputes statutory contributions from payroll
// totals. The default passes INSS/IRRF through from extraction; a
// bracket-based calculator can replace it once bracket tables are
// specified.
type ContributionCalculator interface {
	Recompute(totals payroll.Totals) ComputedTaxes
}

type passthroughCalculator struct{}

func NewPassthroughCalculator() ContributionCalculator {
	return passthroughCalculator{}
}

func (passthroughCalculator) Recompute(totals payroll.Totals) ComputedTaxes {
	return ComputedTaxes{
		INSS: totals.EmployeeINSS.Add(totals.EmployerINSS),
		IRRF: totals.IRRF,
		FGTS: totals.GrossPay.Mul(fgtsRate).Round(2),
		PIS:  totals.GrossPay.Mul(pisRate).Round(2),
	}
}

// TaxReconciler cross-references recomputed contributions against
// officially filed declarations.
type TaxReconciler struct {
	calc   ContributionCalculator
	logger *zap.Logger
}

func NewTaxReconciler(calc ContributionCalculator, logger ...*zap.Logger) *TaxReconciler {
	l := zap.L().Named("audit.tax")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.tax")
	}
	if calc == nil {
		calc = NewPassthroughCalculator()
	}
	return &TaxReconciler{calc: calc, logger: l}
}

func (r *TaxReconciler) RecomputeContributions(totals payroll.Totals) ComputedTaxes {
	return r.calc.Recompute(totals)
}

// CrossReferenceWithDeclarations emits a CRITICAL divergence for every tax
// type whose computed and declared values differ beyond the tolerance.
// Tax types without a matching declaration are skipped — not every filing
// is available for every period.
func (r *TaxReconciler) CrossReferenceWithDeclarations(
	computed ComputedTaxes,
	declarations []taxdecl.Declaration,
) []Divergence {
	declared := map[string]decimal.Decimal{}
	for _, decl := range declarations {
		for _, value := range decl.Values {
			// First filing wins; declarations are ordered by filing date.
			if _, ok := declared[value.TaxType]; !ok {
				declared[value.TaxType] = value.Amount
			}
		}
	}

	// Fixed order keeps the output deterministic.
	taxTypes := []struct {
		name     string
		computed decimal.Decimal
	}{
		{taxdecl.TaxINSS, computed.INSS},
		{taxdecl.TaxIRRF, computed.IRRF},
		{taxdecl.TaxFGTS, computed.FGTS},
		{taxdecl.TaxPIS, computed.PIS},
	}

	var divergences []Divergence
	for _, tax := range taxTypes {
		declaredValue, ok := declared[tax.name]
		if !ok {
			continue
		}

		difference := tax.computed.Sub(declaredValue)
		if difference.Abs().LessThanOrEqual(CrossReferenceTolerance) {
			continue
		}

		divergences = append(divergences, Divergence{
			Category:      CategoryFiscalCrossReference,
			Severity:      SeverityCritical,
			Subject:       tax.name,
			FoundValue:    tax.computed.StringFixed(2),
			ExpectedValue: declaredValue.StringFixed(2),
			Difference:    difference.StringFixed(2),
			Message: fmt.Sprintf(
				"%s apurado na folha diverge do valor declarado (apurado %s, declarado %s, diferença %s)",
				tax.name, tax.computed.StringFixed(2), declaredValue.StringFixed(2), difference.StringFixed(2),
			),
		})
	}

	if len(divergences) > 0 {
		r.logger.Debug("fiscal cross-reference found divergences",
			zap.Int("count", len(divergences)),
		)
	}

	return divergences
}
