package viability

import "github.com/shopspring/decimal"

// CostProjection summarises what the loan costs over its life.
type CostProjection struct {
	TotalCost     decimal.Decimal
	TotalInterest decimal.Decimal
	RealValue     decimal.Decimal
}

// ProjectCost derives total cost, interest and the inflation-adjusted
// principal. Negative interest is a valid result.
func ProjectCost(terms LoanTerms, averageMonthlyInflation decimal.Decimal) CostProjection {
	totalCost := terms.InstallmentAmount.Mul(decimal.NewFromInt(int64(terms.InstallmentCount)))
	accumulated := AccumulatedInflation(averageMonthlyInflation, terms.InstallmentCount)

	return CostProjection{
		TotalCost:     totalCost,
		TotalInterest: totalCost.Sub(terms.RequestedAmount),
		RealValue:     terms.RequestedAmount.Mul(one.Add(accumulated)),
	}
}
