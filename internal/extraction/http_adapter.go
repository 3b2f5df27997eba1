package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"go-payaudit/internal/payroll"
)

type httpAdapter struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// NewHTTPAdapter talks to the extraction service over JSON. Timeouts are
// the caller's responsibility via ctx.
func NewHTTPAdapter(baseURL string, client *http.Client, logger ...*zap.Logger) Adapter {
	l := zap.L().Named("extraction.http")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("extraction.http")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &httpAdapter{baseURL: baseURL, client: client, logger: l}
}

type extractRequest struct {
	Document string `json:"document"` // base64
	Hint     string `json:"hint,omitempty"`
}

type wireEmployee struct {
	Name             string `json:"name"`
	Role             string `json:"role"`
	BaseSalary       string `json:"base_salary"`
	OvertimeHours50  string `json:"overtime_hours_50"`
	OvertimePay50    string `json:"overtime_pay_50"`
	OvertimeHours100 string `json:"overtime_hours_100"`
	OvertimePay100   string `json:"overtime_pay_100"`
	NightShiftHours  string `json:"night_shift_hours"`
	NightShiftPay    string `json:"night_shift_pay"`
	MealVoucher      string `json:"meal_voucher"`
	EmployeeINSS     string `json:"employee_inss"`
	IRRF             string `json:"irrf"`
	NetPay           string `json:"net_pay"`
}

type wireTotals struct {
	GrossPay      string `json:"gross_pay"`
	OvertimeTotal string `json:"overtime_total"`
	EmployeeINSS  string `json:"employee_inss"`
	EmployerINSS  string `json:"employer_inss"`
	IRRF          string `json:"irrf"`
	NetPay        string `json:"net_pay"`
}

type wirePayroll struct {
	Period    string         `json:"period"`
	Employees []wireEmployee `json:"employees"`
	Totals    wireTotals     `json:"totals"`
}

type wireCandidate struct {
	Name       string  `json:"name"`
	RawValue   string  `json:"raw_value"`
	ValueType  string  `json:"value_type"`
	Confidence float64 `json:"confidence"`
}

func (a *httpAdapter) ExtractPayroll(ctx context.Context, document []byte, hint string) (payroll.Dataset, error) {
	var wire wirePayroll
	if err := a.post(ctx, "/extract/payroll", document, hint, &wire); err != nil {
		return payroll.Dataset{}, err
	}

	ds := payroll.Dataset{Period: wire.Period}

	var err error
	if ds.Totals, err = mapTotals(wire.Totals); err != nil {
		return payroll.Dataset{}, fmt.Errorf("unparseable payroll totals: %w", err)
	}

	ds.Employees = make([]payroll.EmployeeRecord, 0, len(wire.Employees))
	for _, we := range wire.Employees {
		rec, err := mapEmployee(we)
		if err != nil {
			return payroll.Dataset{}, fmt.Errorf("unparseable employee record %q: %w", we.Name, err)
		}
		ds.Employees = append(ds.Employees, rec)
	}

	if err := ds.Validate(); err != nil {
		return payroll.Dataset{}, err
	}

	return ds, nil
}

func (a *httpAdapter) ExtractParameters(ctx context.Context, document []byte, hint string) ([]CandidateField, error) {
	var wire struct {
		Candidates []wireCandidate `json:"candidates"`
	}
	if err := a.post(ctx, "/extract/parameters", document, hint, &wire); err != nil {
		return nil, err
	}

	fields := make([]CandidateField, 0, len(wire.Candidates))
	for _, c := range wire.Candidates {
		fields = append(fields, CandidateField{
			Name:       c.Name,
			RawValue:   c.RawValue,
			ValueType:  c.ValueType,
			Confidence: c.Confidence,
		})
	}
	return fields, nil
}

func (a *httpAdapter) post(ctx context.Context, path string, document []byte, hint string, out any) error {
	body, err := json.Marshal(extractRequest{
		Document: base64.StdEncoding.EncodeToString(document),
		Hint:     hint,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		a.logger.Warn("extraction call failed", zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		a.logger.Warn("extraction service returned non-200",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("extraction service returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func mapTotals(w wireTotals) (payroll.Totals, error) {
	var t payroll.Totals
	var err error
	if t.GrossPay, err = parseMoney(w.GrossPay); err != nil {
		return t, err
	}
	if t.OvertimeTotal, err = parseMoney(w.OvertimeTotal); err != nil {
		return t, err
	}
	if t.EmployeeINSS, err = parseMoney(w.EmployeeINSS); err != nil {
		return t, err
	}
	if t.EmployerINSS, err = parseMoney(w.EmployerINSS); err != nil {
		return t, err
	}
	if t.IRRF, err = parseMoney(w.IRRF); err != nil {
		return t, err
	}
	if t.NetPay, err = parseMoney(w.NetPay); err != nil {
		return t, err
	}
	return t, nil
}

func mapEmployee(w wireEmployee) (payroll.EmployeeRecord, error) {
	rec := payroll.EmployeeRecord{Name: w.Name, Role: w.Role}

	fields := []struct {
		dst *decimal.Decimal
		src string
	}{
		{&rec.BaseSalary, w.BaseSalary},
		{&rec.OvertimeHours50, w.OvertimeHours50},
		{&rec.OvertimePay50, w.OvertimePay50},
		{&rec.OvertimeHours100, w.OvertimeHours100},
		{&rec.OvertimePay100, w.OvertimePay100},
		{&rec.NightShiftHours, w.NightShiftHours},
		{&rec.NightShiftPay, w.NightShiftPay},
		{&rec.MealVoucher, w.MealVoucher},
		{&rec.EmployeeINSS, w.EmployeeINSS},
		{&rec.IRRF, w.IRRF},
		{&rec.NetPay, w.NetPay},
	}
	for _, f := range fields {
		v, err := parseMoney(f.src)
		if err != nil {
			return rec, err
		}
		*f.dst = v
	}

	return rec, nil
}

func parseMoney(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
