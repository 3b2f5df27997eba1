package audit

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"go-payaudit/internal/payroll"
)

// Compliance check categories, in the order they run per employee.
const (
	CheckNetPayConsistency = "consistencia_liquido"
	CheckMinimumWage       = "piso_salarial"
	CheckOvertime50        = "hora_extra_50"
	CheckOvertime100       = "hora_extra_100"
	CheckNightShift        = "adicional_noturno"
	CheckMealVoucher       = "vale_refeicao"
)

var hundred = decimal.NewFromInt(100)

// payTolerance absorbs rounding differences when comparing recomputed pay
// components against payslip values.
var payTolerance = decimal.NewFromFloat(0.01)

// ComplianceResult carries the divergences plus the check categories that
// had to be skipped for lack of a validated rule. A skipped category is a
// documented gap, never "compliant".
type ComplianceResult struct {
	Divergences       []Divergence
	SkippedCategories []string
}

// ComplianceAuditor compares extracted payroll data against validated CCT
// rules. Stateless; safe for concurrent audit runs.
type ComplianceAuditor struct {
	logger *zap.Logger
}

func NewComplianceAuditor(logger ...*zap.Logger) *ComplianceAuditor {
	l := zap.L().Named("audit.compliance")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.compliance")
	}
	return &ComplianceAuditor{logger: l}
}

// AuditCompliance walks employees in list order and check categories in
// fixed order, so identical inputs always produce identical output.
func (a *ComplianceAuditor) AuditCompliance(dataset payroll.Dataset, rules RuleSet) ComplianceResult {
	result := ComplianceResult{}

	skipped := map[string]bool{}
	markSkipped := func(category string) {
		if !skipped[category] {
			skipped[category] = true
			result.SkippedCategories = append(result.SkippedCategories, category)
		}
	}

	for _, employee := range dataset.Employees {
		checks := []CheckResult{
			checkNetPayConsistency(employee),
			checkMinimumWage(employee, rules, markSkipped),
			checkOvertime(employee, CheckOvertime50, employee.OvertimeHours50, employee.OvertimePay50, rules.Overtime50, markSkipped),
			checkOvertime(employee, CheckOvertime100, employee.OvertimeHours100, employee.OvertimePay100, rules.Overtime100, markSkipped),
			checkNightShift(employee, rules, markSkipped),
			checkMealVoucher(employee, rules, markSkipped),
		}

		for _, check := range checks {
			if check.Triggered {
				result.Divergences = append(result.Divergences, check.Divergence)
			}
		}
	}

	a.logger.Debug("cct compliance audited",
		zap.Int("employees", len(dataset.Employees)),
		zap.Int("divergences", len(result.Divergences)),
		zap.Strings("skipped_categories", result.SkippedCategories),
	)

	return result
}

// checkNetPayConsistency verifies the payslip's own arithmetic. It needs
// no CCT rule, so it is never skipped.
func checkNetPayConsistency(e payroll.EmployeeRecord) CheckResult {
	if e.NetPayConsistent() {
		return CheckResult{RuleCategory: CheckNetPayConsistency}
	}

	expected := e.ExpectedNetPay()
	return CheckResult{
		RuleCategory: CheckNetPayConsistency,
		Triggered:    true,
		Divergence: Divergence{
			Category:      CategoryCCTCompliance,
			Severity:      SeverityWarning,
			Subject:       e.Name,
			FoundValue:    e.NetPay.StringFixed(2),
			ExpectedValue: expected.StringFixed(2),
			Message: fmt.Sprintf(
				"salário líquido de %s não confere com os componentes da folha (calculado %s, informado %s)",
				e.Name, expected.StringFixed(2), e.NetPay.StringFixed(2),
			),
		},
	}
}

func checkMinimumWage(e payroll.EmployeeRecord, rules RuleSet, markSkipped func(string)) CheckResult {
	if rules.MinimumWage == nil {
		markSkipped(CheckMinimumWage)
		return CheckResult{RuleCategory: CheckMinimumWage}
	}

	if e.BaseSalary.GreaterThanOrEqual(*rules.MinimumWage) {
		return CheckResult{RuleCategory: CheckMinimumWage}
	}

	return CheckResult{
		RuleCategory: CheckMinimumWage,
		Triggered:    true,
		Divergence: Divergence{
			Category:      CategoryCCTCompliance,
			Severity:      SeverityCritical,
			Subject:       e.Name,
			FoundValue:    e.BaseSalary.StringFixed(2),
			ExpectedValue: rules.MinimumWage.StringFixed(2),
			Message: fmt.Sprintf(
				"salário base de %s abaixo do piso da CCT (%s < %s)",
				e.Name, e.BaseSalary.StringFixed(2), rules.MinimumWage.StringFixed(2),
			),
		},
	}
}

// checkOvertime recomputes the overtime amount the hours and the CCT
// multiplier imply and compares it against the paid amount.
func checkOvertime(
	e payroll.EmployeeRecord,
	category string,
	hours, paid decimal.Decimal,
	percent *decimal.Decimal,
	markSkipped func(string),
) CheckResult {
	if percent == nil {
		markSkipped(category)
		return CheckResult{RuleCategory: category}
	}

	if hours.IsZero() {
		return CheckResult{RuleCategory: category}
	}

	multiplier := decimal.NewFromInt(1).Add(percent.Div(hundred))
	expected := e.HourlyRate().Mul(hours).Mul(multiplier).Round(2)

	if expected.Sub(paid).Abs().LessThanOrEqual(payTolerance) {
		return CheckResult{RuleCategory: category}
	}

	return CheckResult{
		RuleCategory: category,
		Triggered:    true,
		Divergence: Divergence{
			Category:      CategoryCCTCompliance,
			Severity:      SeverityCritical,
			Subject:       e.Name,
			FoundValue:    paid.StringFixed(2),
			ExpectedValue: expected.StringFixed(2),
			Message: fmt.Sprintf(
				"horas extras de %s pagas fora do percentual da CCT (pago %s, devido %s para %s horas)",
				e.Name, paid.StringFixed(2), expected.StringFixed(2), hours.String(),
			),
		},
	}
}

func checkNightShift(e payroll.EmployeeRecord, rules RuleSet, markSkipped func(string)) CheckResult {
	if rules.NightShiftPremium == nil {
		markSkipped(CheckNightShift)
		return CheckResult{RuleCategory: CheckNightShift}
	}

	if e.NightShiftHours.IsZero() {
		return CheckResult{RuleCategory: CheckNightShift}
	}

	expected := e.HourlyRate().
		Mul(e.NightShiftHours).
		Mul(rules.NightShiftPremium.Div(hundred)).
		Round(2)

	if expected.Sub(e.NightShiftPay).Abs().LessThanOrEqual(payTolerance) {
		return CheckResult{RuleCategory: CheckNightShift}
	}

	return CheckResult{
		RuleCategory: CheckNightShift,
		Triggered:    true,
		Divergence: Divergence{
			Category:      CategoryCCTCompliance,
			Severity:      SeverityWarning,
			Subject:       e.Name,
			FoundValue:    e.NightShiftPay.StringFixed(2),
			ExpectedValue: expected.StringFixed(2),
			Message: fmt.Sprintf(
				"adicional noturno de %s fora do percentual da CCT (pago %s, devido %s)",
				e.Name, e.NightShiftPay.StringFixed(2), expected.StringFixed(2),
			),
		},
	}
}

func checkMealVoucher(e payroll.EmployeeRecord, rules RuleSet, markSkipped func(string)) CheckResult {
	if rules.MealVoucher == nil {
		markSkipped(CheckMealVoucher)
		return CheckResult{RuleCategory: CheckMealVoucher}
	}

	if e.MealVoucher.GreaterThanOrEqual(*rules.MealVoucher) {
		return CheckResult{RuleCategory: CheckMealVoucher}
	}

	return CheckResult{
		RuleCategory: CheckMealVoucher,
		Triggered:    true,
		Divergence: Divergence{
			Category:      CategoryCCTCompliance,
			Severity:      SeverityWarning,
			Subject:       e.Name,
			FoundValue:    e.MealVoucher.StringFixed(2),
			ExpectedValue: rules.MealVoucher.StringFixed(2),
			Message: fmt.Sprintf(
				"vale refeição de %s abaixo do valor da CCT (%s < %s)",
				e.Name, e.MealVoucher.StringFixed(2), rules.MealVoucher.StringFixed(2),
			),
		},
	}
}
