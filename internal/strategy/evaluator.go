// Package strategy computes target prices from competitor data. Evaluation
// is pure: (current price, competitor prices, strategy) in, a validated
// target price or a structured failure out.
package strategy

import (
	"fmt"

	"github.com/shopspring/decimal"

	"repricer-service/internal/models"
)

// Failure reasons carried on an unsuccessful Result.
const (
	ReasonNoCompetitorData  = "no_competitor_data"
	ReasonMissingParameter  = "missing_parameter"
	ReasonConflictParameter = "conflicting_parameters"
	ReasonUnknownRule       = "unknown_rule"
	ReasonNonPositiveTarget = "non_positive_target"
	ReasonBelowMinPrice     = "below_min_price"
	ReasonAboveMaxPrice     = "above_max_price"
	ReasonMaxChangeExceeded = "max_change_exceeded"
)

// Result is the outcome of evaluating a strategy against one listing. On
// failure NewPrice reverts to OldPrice; a partially valid target is never
// carried forward. Competitor prices used are kept for the audit trail.
type Result struct {
	Success          bool
	OldPrice         decimal.Decimal
	NewPrice         decimal.Decimal
	CompetitorLowest decimal.NullDecimal
	CompetitorPrices []decimal.Decimal
	StrategyID       string
	Reason           string
	Message          string
}

func failure(st models.PricingStrategy, old decimal.Decimal, prices []decimal.Decimal, reason, msg string) Result {
	res := Result{
		OldPrice:         old,
		NewPrice:         old,
		CompetitorPrices: prices,
		StrategyID:       st.ID,
		Reason:           reason,
		Message:          msg,
	}
	if len(prices) > 0 {
		res.CompetitorLowest = decimal.NullDecimal{Decimal: lowest(prices), Valid: true}
	}
	return res
}

// Evaluate computes the target price for one listing. competitors must
// already be normalized (see NormalizePrices); an empty list is an explicit
// no-competitor-data failure, never a silent no-op.
func Evaluate(oldPrice decimal.Decimal, competitors []decimal.Decimal, st models.PricingStrategy) Result {
	if len(competitors) == 0 {
		return failure(st, oldPrice, nil, ReasonNoCompetitorData,
			"no competitor data available, keeping current price")
	}

	low := lowest(competitors)

	var target decimal.Decimal
	switch st.Rule {
	case models.RuleMatchLowest:
		target = low

	case models.RuleBeatLowest:
		adj, res, ok := adjustment(st, oldPrice, competitors)
		if !ok {
			return res
		}
		target = low.Sub(adj)
		if target.LessThanOrEqual(decimal.Zero) {
			return failure(st, oldPrice, competitors, ReasonNonPositiveTarget,
				fmt.Sprintf("target price %s is not positive", target))
		}

	case models.RuleStayAbove:
		adj, res, ok := adjustment(st, oldPrice, competitors)
		if !ok {
			return res
		}
		target = low.Add(adj)

	default:
		return failure(st, oldPrice, competitors, ReasonUnknownRule,
			fmt.Sprintf("unknown pricing rule %q", st.Rule))
	}

	target = target.Round(2)

	if res, ok := checkConstraints(st, oldPrice, target, competitors); !ok {
		return res
	}

	return Result{
		Success:          true,
		OldPrice:         oldPrice,
		NewPrice:         target,
		CompetitorLowest: decimal.NullDecimal{Decimal: low, Valid: true},
		CompetitorPrices: competitors,
		StrategyID:       st.ID,
	}
}

// adjustment resolves the amount/percentage parameter of BEAT_LOWEST and
// STAY_ABOVE. Exactly one of the two must be supplied.
func adjustment(st models.PricingStrategy, oldPrice decimal.Decimal, competitors []decimal.Decimal) (decimal.Decimal, Result, bool) {
	hasAmount := st.Amount.Valid
	hasPercent := st.Percentage.Valid

	switch {
	case hasAmount && hasPercent:
		return decimal.Zero, failure(st, oldPrice, competitors, ReasonConflictParameter,
			"strategy supplies both amount and percentage"), false
	case !hasAmount && !hasPercent:
		return decimal.Zero, failure(st, oldPrice, competitors, ReasonMissingParameter,
			"strategy supplies neither amount nor percentage"), false
	case hasAmount:
		return st.Amount.Decimal, Result{}, true
	default:
		return lowest(competitors).Mul(st.Percentage.Decimal), Result{}, true
	}
}

// checkConstraints applies min/max/max-change bounds after rule computation.
// Any violation reverts to the old price.
func checkConstraints(st models.PricingStrategy, oldPrice, target decimal.Decimal, competitors []decimal.Decimal) (Result, bool) {
	if st.MinPrice.Valid && target.LessThan(st.MinPrice.Decimal) {
		return failure(st, oldPrice, competitors, ReasonBelowMinPrice,
			fmt.Sprintf("target %s below minimum price %s", target, st.MinPrice.Decimal)), false
	}
	if st.MaxPrice.Valid && target.GreaterThan(st.MaxPrice.Decimal) {
		return failure(st, oldPrice, competitors, ReasonAboveMaxPrice,
			fmt.Sprintf("target %s above maximum price %s", target, st.MaxPrice.Decimal)), false
	}
	if st.MaxChange.Valid && target.Sub(oldPrice).Abs().GreaterThan(st.MaxChange.Decimal) {
		return failure(st, oldPrice, competitors, ReasonMaxChangeExceeded,
			fmt.Sprintf("change from %s to %s exceeds max change %s", oldPrice, target, st.MaxChange.Decimal)), false
	}
	return Result{}, true
}

func lowest(prices []decimal.Decimal) decimal.Decimal {
	low := prices[0]
	for _, p := range prices[1:] {
		if p.LessThan(low) {
			low = p
		}
	}
	return low
}
