package knowledgebase

import "time"

type BeginExtractionRequest struct {
	InstructionHint string `json:"instruction_hint"`
}

type CandidateResponse struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	RawValue   string  `json:"raw_value"`
	ValueType  string  `json:"value_type"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
}

type ExtractionResponse struct {
	DocumentID     string              `json:"document_id"`
	CandidateCount int                 `json:"candidate_count"`
	Candidates     []CandidateResponse `json:"candidates"`
}

type PublishRequest struct {
	Corrections map[string]string `json:"corrections" binding:"required"`
	Reviewer    string            `json:"reviewer" binding:"required"`
}

type PublishResponse struct {
	DocumentID     string   `json:"document_id"`
	PublishedCount int      `json:"published_count"`
	SkippedCount   int      `json:"skipped_count"`
	RuleIDs        []string `json:"rule_ids"`
}

type RuleResponse struct {
	ID            string `json:"id"`
	FirmID        string `json:"firm_id"`
	CompanyID     string `json:"company_id,omitempty"`
	ParameterName string `json:"parameter_name"`
	Value         string `json:"value"`
	ValueType     string `json:"value_type"`
	ValidatedBy   string `json:"validated_by"`
	ValidatedAt   string `json:"validated_at"`
}

func mapToExtractionResponse(result ExtractionResult) ExtractionResponse {
	resp := ExtractionResponse{
		DocumentID:     result.DocumentID,
		CandidateCount: result.CandidateCount,
		Candidates:     make([]CandidateResponse, 0, len(result.Candidates)),
	}
	for _, c := range result.Candidates {
		resp.Candidates = append(resp.Candidates, CandidateResponse{
			ID:         c.ID.String(),
			Name:       c.Name,
			RawValue:   c.RawValue,
			ValueType:  c.ValueType,
			Confidence: c.Confidence,
			Status:     c.Status,
		})
	}
	return resp
}

func mapToRuleResponses(rules []CCTRule) []RuleResponse {
	resp := make([]RuleResponse, 0, len(rules))
	for _, r := range rules {
		rr := RuleResponse{
			ID:            r.ID.String(),
			FirmID:        r.FirmID.String(),
			ParameterName: r.ParameterName,
			Value:         r.Value,
			ValueType:     r.ValueType,
			ValidatedBy:   r.ValidatedBy,
			ValidatedAt:   r.ValidatedAt.Format(time.RFC3339),
		}
		if r.CompanyID != nil {
			rr.CompanyID = r.CompanyID.String()
		}
		resp = append(resp, rr)
	}
	return resp
}
