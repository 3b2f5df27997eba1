package audit

import (
	"github.com/shopspring/decimal"

	"go-payaudit/internal/knowledgebase"
)

// CCT parameter names as published by the knowledge base.
const (
	ParamMinimumWage       = "piso_salarial"
	ParamOvertime50        = "percentual_hora_extra_50"
	ParamOvertime100       = "percentual_hora_extra_100"
	ParamNightShiftPremium = "adicional_noturno"
	ParamMealVoucher       = "vale_refeicao"
)

// RuleSet is the decoded view of the validated CCT rules one audit run
// works with. A nil field means no validated rule exists for that
// parameter and the matching check category is skipped.
type RuleSet struct {
	MinimumWage       *decimal.Decimal
	Overtime50        *decimal.Decimal // percentage, e.g. 50
	Overtime100       *decimal.Decimal // percentage, e.g. 100
	NightShiftPremium *decimal.Decimal // percentage, e.g. 20
	MealVoucher       *decimal.Decimal // monthly amount
}

// BuildRuleSet decodes validated rules into the typed set. Rules whose
// value does not parse as a decimal are ignored; the auditor then treats
// the parameter as absent rather than comparing against garbage.
func BuildRuleSet(rules []knowledgebase.CCTRule) RuleSet {
	var rs RuleSet
	for _, rule := range rules {
		value, err := decimal.NewFromString(rule.Value)
		if err != nil {
			continue
		}

		switch rule.ParameterName {
		case ParamMinimumWage:
			if rs.MinimumWage == nil {
				rs.MinimumWage = &value
			}
		case ParamOvertime50:
			if rs.Overtime50 == nil {
				rs.Overtime50 = &value
			}
		case ParamOvertime100:
			if rs.Overtime100 == nil {
				rs.Overtime100 = &value
			}
		case ParamNightShiftPremium:
			if rs.NightShiftPremium == nil {
				rs.NightShiftPremium = &value
			}
		case ParamMealVoucher:
			if rs.MealVoucher == nil {
				rs.MealVoucher = &value
			}
		}
	}
	return rs
}
