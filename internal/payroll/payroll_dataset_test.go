package payroll_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"go-payaudit/internal/payroll"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestEmployeeRecord_HourlyRate(t *testing.T) {
	e := payroll.EmployeeRecord{BaseSalary: dec("2200.00")}

	assert.True(t, e.HourlyRate().Equal(dec("10")), "2200 / 220 should be 10, got %s", e.HourlyRate())
}

func TestEmployeeRecord_NetPayConsistent(t *testing.T) {
	base := payroll.EmployeeRecord{
		Name:          "Maria Souza",
		BaseSalary:    dec("3000.00"),
		OvertimePay50: dec("150.00"),
		EmployeeINSS:  dec("270.00"),
		IRRF:          dec("80.00"),
	}

	t.Run("exact match", func(t *testing.T) {
		e := base
		e.NetPay = dec("2800.00")
		assert.True(t, e.NetPayConsistent())
	})

	t.Run("within tolerance", func(t *testing.T) {
		e := base
		e.NetPay = dec("2800.01")
		assert.True(t, e.NetPayConsistent())
	})

	t.Run("beyond tolerance", func(t *testing.T) {
		e := base
		e.NetPay = dec("2800.02")
		assert.False(t, e.NetPayConsistent())
	})
}

func TestEmployeeRecord_OvertimePay(t *testing.T) {
	e := payroll.EmployeeRecord{
		OvertimePay50:  dec("120.50"),
		OvertimePay100: dec("80.00"),
	}

	assert.Equal(t, "200.50", e.OvertimePay().StringFixed(2))
}

func TestDataset_Validate(t *testing.T) {
	valid := payroll.Dataset{
		Period: "2025-03",
		Employees: []payroll.EmployeeRecord{
			{Name: "João Silva", BaseSalary: dec("2000.00")},
		},
	}

	t.Run("valid dataset", func(t *testing.T) {
		assert.NoError(t, valid.Validate())
	})

	t.Run("bad period format", func(t *testing.T) {
		d := valid
		d.Period = "03/2025"
		assert.Error(t, d.Validate())
	})

	t.Run("month out of range", func(t *testing.T) {
		d := valid
		d.Period = "2025-13"
		assert.Error(t, d.Validate())
	})

	t.Run("no employees", func(t *testing.T) {
		d := valid
		d.Employees = nil
		assert.Error(t, d.Validate())
	})

	t.Run("employee without name", func(t *testing.T) {
		d := valid
		d.Employees = []payroll.EmployeeRecord{{BaseSalary: dec("2000.00")}}
		assert.Error(t, d.Validate())
	})
}
