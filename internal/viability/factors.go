package viability

import "github.com/shopspring/decimal"

const (
	// ReferenceInstallments is the term at which the loan-term factor reaches zero.
	ReferenceInstallments = 60
)

// ReferenceAmount is the principal at which the amount factor reaches zero.
var ReferenceAmount = decimal.NewFromInt(100_000)

// FactorInputs are the normalised values the sub-scores are derived from.
type FactorInputs struct {
	AverageMonthlyInflation decimal.Decimal
	PaymentRate             decimal.Decimal
	InstallmentCount        int
	RequestedAmount         decimal.Decimal
}

// ScoreFactors computes the four sub-scores independently.
func ScoreFactors(in FactorInputs) Factors {
	accumulated := AccumulatedInflation(in.AverageMonthlyInflation, in.InstallmentCount)
	count := decimal.NewFromInt(int64(in.InstallmentCount))

	return Factors{
		InflationImpact: clampScore(hundred.Sub(accumulated.Mul(hundred))),
		PaymentHistory:  clampScore(in.PaymentRate.Mul(hundred)),
		LoanTerm:        clampScore(hundred.Sub(count.Div(decimal.NewFromInt(ReferenceInstallments)).Mul(hundred))),
		Amount:          clampScore(hundred.Sub(in.RequestedAmount.Div(ReferenceAmount).Mul(hundred))),
	}
}

func clampScore(v decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, decimal.Min(hundred, v))
}
