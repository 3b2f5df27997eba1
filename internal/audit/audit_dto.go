package audit

import "time"

type RunAuditRequest struct {
	ProcessingID string `json:"processing_id" binding:"required"`
	Period       string `json:"period"`
}

type RunAuditResponse struct {
	ProcessingID        string `json:"processing_id"`
	Status              string `json:"status"`
	TotalDivergences    int    `json:"total_divergences"`
	CriticalDivergences int    `json:"critical_divergences"`
	ReportID            string `json:"report_id"`
	PostingsGenerated   int    `json:"postings_generated"`
}

type DivergenceResponse struct {
	Category      string `json:"category"`
	Severity      string `json:"severity"`
	Subject       string `json:"subject"`
	FoundValue    string `json:"found_value,omitempty"`
	ExpectedValue string `json:"expected_value,omitempty"`
	Difference    string `json:"difference,omitempty"`
	Message       string `json:"message"`
}

type TotalsResponse struct {
	GrossPay      string `json:"gross_pay"`
	OvertimeTotal string `json:"overtime_total"`
	EmployeeINSS  string `json:"employee_inss"`
	EmployerINSS  string `json:"employer_inss"`
	IRRF          string `json:"irrf"`
	NetPay        string `json:"net_pay"`
}

type ReportResponse struct {
	ReportID          string               `json:"report_id"`
	ProcessingID      string               `json:"processing_id"`
	CompanyID         string               `json:"company_id"`
	Period            string               `json:"period"`
	Status            string               `json:"status"`
	TotalEmployees    int                  `json:"total_employees"`
	TotalDivergences  int                  `json:"total_divergences"`
	CriticalCount     int                  `json:"critical_count"`
	WarningCount      int                  `json:"warning_count"`
	PostingsGenerated int                  `json:"postings_generated"`
	Totals            TotalsResponse       `json:"totals"`
	SkippedCategories []string             `json:"skipped_categories"`
	Recommendations   []string             `json:"recommendations"`
	Divergences       []DivergenceResponse `json:"divergences"`
	CreatedAt         string               `json:"created_at"`
}

func mapToReportResponse(report Report) ReportResponse {
	resp := ReportResponse{
		ReportID:          report.ID.String(),
		ProcessingID:      report.ProcessingID.String(),
		CompanyID:         report.CompanyID.String(),
		Period:            report.Period,
		Status:            report.Status,
		TotalEmployees:    report.TotalEmployees,
		TotalDivergences:  report.TotalDivergences,
		CriticalCount:     report.CriticalCount,
		WarningCount:      report.WarningCount,
		PostingsGenerated: report.PostingsGenerated,
		Totals: TotalsResponse{
			GrossPay:      report.GrossPay.StringFixed(2),
			OvertimeTotal: report.OvertimeTotal.StringFixed(2),
			EmployeeINSS:  report.EmployeeINSS.StringFixed(2),
			EmployerINSS:  report.EmployerINSS.StringFixed(2),
			IRRF:          report.IRRF.StringFixed(2),
			NetPay:        report.NetPay.StringFixed(2),
		},
		SkippedCategories: splitList(report.SkippedCategories, ","),
		Recommendations:   splitList(report.Recommendations, "\n"),
		CreatedAt:         report.CreatedAt.Format(time.RFC3339),
	}

	for _, divergence := range report.Divergences {
		resp.Divergences = append(resp.Divergences, DivergenceResponse{
			Category:      divergence.Category,
			Severity:      divergence.Severity,
			Subject:       divergence.Subject,
			FoundValue:    divergence.FoundValue,
			ExpectedValue: divergence.ExpectedValue,
			Difference:    divergence.Difference,
			Message:       divergence.Message,
		})
	}

	return resp
}
