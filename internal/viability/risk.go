package viability

import "github.com/shopspring/decimal"

// RiskTier buckets the composite score for display.
type RiskTier string

const (
	RiskLow    RiskTier = "LOW"
	RiskMedium RiskTier = "MEDIUM"
	RiskHigh   RiskTier = "HIGH"
)

// Recommendation texts, from most to least favourable.
const (
	RecommendHighlyViable = "highly viable, favorable conditions, low risk"
	RecommendViable       = "viable with some considerations, monitor inflation"
	RecommendMediumRisk   = "medium risk, evaluate conditions carefully"
	RecommendHighRisk     = "high risk, consider renegotiating terms"
)

var (
	highRiskBelow   = decimal.NewFromInt(40)
	lowRiskFrom     = decimal.NewFromInt(70)
	viableFrom      = decimal.NewFromInt(60)
	highlyViableMin = decimal.NewFromInt(80)
)

// Assessment is the composite view over the four factors.
type Assessment struct {
	Score          decimal.Decimal
	Tier           RiskTier
	IsViable       bool
	Recommendation string
}

// Evaluate averages the factors and classifies the resulting score.
func Evaluate(f Factors) Assessment {
	score := f.InflationImpact.
		Add(f.PaymentHistory).
		Add(f.LoanTerm).
		Add(f.Amount).
		Div(decimal.NewFromInt(4))
	return ClassifyScore(score)
}

// ClassifyScore maps a composite score to tier, viability and recommendation.
//
// The viability threshold (60) sits inside the MEDIUM band (40 to 70), so a
// score such as 65 is both MEDIUM and viable. Callers rely on this as is.
func ClassifyScore(score decimal.Decimal) Assessment {
	a := Assessment{
		Score:    score,
		IsViable: score.GreaterThanOrEqual(viableFrom),
	}

	switch {
	case score.LessThan(highRiskBelow):
		a.Tier = RiskHigh
	case score.LessThan(lowRiskFrom):
		a.Tier = RiskMedium
	default:
		a.Tier = RiskLow
	}

	switch {
	case score.GreaterThanOrEqual(highlyViableMin):
		a.Recommendation = RecommendHighlyViable
	case score.GreaterThanOrEqual(viableFrom):
		a.Recommendation = RecommendViable
	case score.GreaterThanOrEqual(highRiskBelow):
		a.Recommendation = RecommendMediumRisk
	default:
		a.Recommendation = RecommendHighRisk
	}

	return a
}
