package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	auditerrors "go-payaudit/internal/audit/errors"
	"go-payaudit/internal/chartofaccounts"
	"go-payaudit/internal/payroll"
	"go-payaudit/internal/shared/counter"
)

const entryNumberCounter = "posting_entry"

// EntryGenerator maps reconciled payroll totals onto the company's chart
// of accounts, producing one balanced draft posting per audit run.
type EntryGenerator struct {
	coa     chartofaccounts.Provider
	counter counter.Repository
	logger  *zap.Logger
}

func NewEntryGenerator(
	coa chartofaccounts.Provider,
	counterRepo counter.Repository,
	logger ...*zap.Logger,
) *EntryGenerator {
	l := zap.L().Named("audit.postings")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("audit.postings")
	}
	return &EntryGenerator{coa: coa, counter: counterRepo, logger: l}
}

// GeneratePostings builds the payroll closing entry for the period.
// Returns ErrChartOfAccountsMissing when the company has no mapping and
// ErrUnbalancedPosting when debits and credits do not match exactly —
// the latter indicates a mapping/logic bug, never a data-quality issue.
func (g *EntryGenerator) GeneratePostings(
	ctx context.Context,
	companyID string,
	period string,
	totals payroll.Totals,
	computed ComputedTaxes,
) ([]Posting, error) {
	mapping, err := g.coa.Get(ctx, companyID)
	if err != nil {
		return nil, err
	}

	next, err := g.counter.GetNextValue(ctx, companyID, entryNumberCounter)
	if err != nil {
		return nil, err
	}

	totalINSS := totals.EmployeeINSS.Add(totals.EmployerINSS)
	// Salaries payable is derived from the gross side so the entry
	// balances by construction even when the extracted net differs.
	salariesPayable := totals.GrossPay.Sub(totals.EmployeeINSS).Sub(totals.IRRF)

	posting := Posting{
		ID:          uuid.New(),
		CompanyID:   uuid.MustParse(companyID),
		EntryNumber: fmt.Sprintf("LC-%06d", next),
		EntryDate:   periodEndDate(period),
		Description: fmt.Sprintf("Provisão da folha de pagamento %s", period),
	}

	type lineSpec struct {
		account string
		side    string
		amount  decimal.Decimal
		memo    string
	}

	specs := []lineSpec{
		{mapping.SalaryExpense, SideDebit, totals.GrossPay, "salários e ordenados"},
		{mapping.EmployerINSSExpense, SideDebit, totals.EmployerINSS, "INSS patronal"},
		{mapping.FGTSExpense, SideDebit, computed.FGTS, "FGTS sobre a folha"},
		{mapping.SalariesPayable, SideCredit, salariesPayable, "salários a pagar"},
		{mapping.INSSPayable, SideCredit, totalINSS, "INSS a recolher"},
		{mapping.IRRFPayable, SideCredit, totals.IRRF, "IRRF a recolher"},
		{mapping.FGTSPayable, SideCredit, computed.FGTS, "FGTS a recolher"},
	}

	position := 0
	for _, spec := range specs {
		if spec.amount.IsZero() {
			continue
		}
		posting.Lines = append(posting.Lines, PostingLine{
			ID:          uuid.New(),
			PostingID:   posting.ID,
			Position:    position,
			AccountCode: spec.account,
			Side:        spec.side,
			Amount:      spec.amount,
			Memo:        spec.memo,
		})
		position++
	}

	if err := verifyBalance(posting); err != nil {
		return nil, err
	}

	g.logger.Debug("posting generated",
		zap.String("company_id", companyID),
		zap.String("entry_number", posting.EntryNumber),
		zap.Int("lines", len(posting.Lines)),
	)

	return []Posting{posting}, nil
}

// verifyBalance enforces sum(debits) == sum(credits) with zero tolerance.
func verifyBalance(posting Posting) error {
	debits := decimal.Zero
	credits := decimal.Zero
	for _, line := range posting.Lines {
		switch line.Side {
		case SideDebit:
			debits = debits.Add(line.Amount)
		case SideCredit:
			credits = credits.Add(line.Amount)
		}
	}

	if !debits.Equal(credits) {
		return auditerrors.ErrUnbalancedPosting
	}
	return nil
}

// periodEndDate resolves YYYY-MM to the last day of that month.
func periodEndDate(period string) time.Time {
	t, err := time.Parse("2006-01", period)
	if err != nil {
		return time.Now().UTC().Truncate(24 * time.Hour)
	}
	return t.AddDate(0, 1, -1)
}
