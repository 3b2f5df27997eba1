package payroll

import (
	"errors"
	"regexp"

	"github.com/shopspring/decimal"
)

// MonthlyHoursDivisor is the statutory divisor used to derive an hourly
// rate from a monthly salary (220h, CLT art. 64).
var MonthlyHoursDivisor = decimal.NewFromInt(220)

// NetPayTolerance is the rounding slack allowed when checking that a
// payslip's net pay matches its components.
var NetPayTolerance = decimal.NewFromFloat(0.01)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Totals are the company-level sums extracted from one payroll document.
type Totals struct {
	GrossPay      decimal.Decimal
	OvertimeTotal decimal.Decimal
	EmployeeINSS  decimal.Decimal
	EmployerINSS  decimal.Decimal
	IRRF          decimal.Decimal
	NetPay        decimal.Decimal
}

// EmployeeRecord is one employee line of an extracted payroll. Values come
// straight from the payslip; the audit never mutates them.
type EmployeeRecord struct {
	Name             string
	Role             string
	BaseSalary       decimal.Decimal
	OvertimeHours50  decimal.Decimal
	OvertimePay50    decimal.Decimal
	OvertimeHours100 decimal.Decimal
	OvertimePay100   decimal.Decimal
	NightShiftHours  decimal.Decimal
	NightShiftPay    decimal.Decimal
	MealVoucher      decimal.Decimal
	EmployeeINSS     decimal.Decimal
	IRRF             decimal.Decimal
	NetPay           decimal.Decimal
}

// Dataset is the immutable result of extracting one payroll document.
// Owned exclusively by a single audit run.
type Dataset struct {
	Period    string // YYYY-MM
	Employees []EmployeeRecord
	Totals    Totals
}

// HourlyRate derives the employee's base hourly rate from the monthly salary.
func (e EmployeeRecord) HourlyRate() decimal.Decimal {
	return e.BaseSalary.Div(MonthlyHoursDivisor)
}

// OvertimePay is the total overtime amount reported on the payslip.
func (e EmployeeRecord) OvertimePay() decimal.Decimal {
	return e.OvertimePay50.Add(e.OvertimePay100)
}

// NetPayConsistent reports whether the payslip's own arithmetic holds:
// netPay = baseSalary + overtimePay − employeeINSS − IRRF, within tolerance.
func (e EmployeeRecord) NetPayConsistent() bool {
	expected := e.BaseSalary.
		Add(e.OvertimePay()).
		Sub(e.EmployeeINSS).
		Sub(e.IRRF)
	return expected.Sub(e.NetPay).Abs().LessThanOrEqual(NetPayTolerance)
}

// ExpectedNetPay returns the net pay the payslip components imply.
func (e EmployeeRecord) ExpectedNetPay() decimal.Decimal {
	return e.BaseSalary.
		Add(e.OvertimePay()).
		Sub(e.EmployeeINSS).
		Sub(e.IRRF)
}

// Validate rejects datasets the audit cannot reason about.
func (d Dataset) Validate() error {
	if !periodPattern.MatchString(d.Period) {
		return errors.New("invalid period format, expected YYYY-MM")
	}
	if len(d.Employees) == 0 {
		return errors.New("payroll dataset has no employee records")
	}
	for _, e := range d.Employees {
		if e.Name == "" {
			return errors.New("payroll dataset has an employee record without a name")
		}
	}
	return nil
}
