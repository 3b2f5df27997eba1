package extraction

import (
	"context"

	"go-payaudit/internal/payroll"
)

// CandidateField is one parameter the extraction service pulled out of a
// CCT document. Untrusted until a human validates it.
type CandidateField struct {
	Name       string
	RawValue   string
	ValueType  string // decimal | date | percentage
	Confidence float64
}

//go:generate mockgen -source=adapter.go -destination=mock/adapter_mock.go -package=mock

// Adapter is the boundary to the document extraction service. The real
// implementation talks to an AI/OCR backend; tests substitute a
// deterministic fake.
type Adapter interface {
	ExtractPayroll(ctx context.Context, document []byte, hint string) (payroll.Dataset, error)
	ExtractParameters(ctx context.Context, document []byte, hint string) ([]CandidateField, error)
}
