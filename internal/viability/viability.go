// Package viability scores the risk of a loan from its terms, its installment
// history and a monthly inflation series. Everything here is pure: no I/O, no
// logging, no shared state. Callers fetch the inputs and render the result.
package viability

import (
	"time"

	"github.com/shopspring/decimal"
)

// LoanTerms are the contractual figures of a single loan.
type LoanTerms struct {
	RequestedAmount   decimal.Decimal `json:"requestedAmount"`
	ApprovedAmount    decimal.Decimal `json:"approvedAmount"`
	InstallmentAmount decimal.Decimal `json:"installmentAmount"`
	InstallmentCount  int             `json:"installmentCount"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// Installment is one scheduled payment. A non-nil PaymentDate marks it paid.
type Installment struct {
	SequenceNumber int             `json:"sequenceNumber"`
	OriginalAmount decimal.Decimal `json:"originalAmount"`
	CurrentAmount  decimal.Decimal `json:"currentAmount"`
	DueDate        time.Time       `json:"dueDate"`
	PaymentDate    *time.Time      `json:"paymentDate,omitempty"`
	DaysLate       *int            `json:"daysLate,omitempty"`
}

// Paid reports whether the installment has a payment date.
func (i Installment) Paid() bool {
	return i.PaymentDate != nil
}

// InflationSample is the inflation rate of one reporting period, in percent.
type InflationSample struct {
	Period      string          `json:"period"`
	RatePercent decimal.Decimal `json:"ratePercent"`
}

// Factors holds the four sub-scores, each within [0, 100].
type Factors struct {
	InflationImpact decimal.Decimal `json:"inflationImpact"`
	PaymentHistory  decimal.Decimal `json:"paymentHistory"`
	LoanTerm        decimal.Decimal `json:"loanTerm"`
	Amount          decimal.Decimal `json:"amount"`
}

// Result is the outcome of a viability assessment.
type Result struct {
	IsViable                bool            `json:"isViable"`
	Score                   decimal.Decimal `json:"score"`
	RiskTier                RiskTier        `json:"riskTier"`
	TotalCost               decimal.Decimal `json:"totalCost"`
	TotalInterest           decimal.Decimal `json:"totalInterest"`
	RealValue               decimal.Decimal `json:"realValue"`
	AverageMonthlyInflation decimal.Decimal `json:"averageMonthlyInflation"`
	Recommendation          string          `json:"recommendation"`
	Factors                 Factors         `json:"factors"`
}

// Compute runs the full assessment. The only failure is an empty inflation
// series; every other input, however extreme, yields a clamped result.
func Compute(terms LoanTerms, installments []Installment, series []InflationSample) (Result, error) {
	avgInflation, err := AverageInflation(series)
	if err != nil {
		return Result{}, err
	}

	factors := ScoreFactors(FactorInputs{
		AverageMonthlyInflation: avgInflation,
		PaymentRate:             PaymentRate(installments),
		InstallmentCount:        terms.InstallmentCount,
		RequestedAmount:         terms.RequestedAmount,
	})
	assessment := Evaluate(factors)
	cost := ProjectCost(terms, avgInflation)

	return Result{
		IsViable:                assessment.IsViable,
		Score:                   assessment.Score,
		RiskTier:                assessment.Tier,
		TotalCost:               cost.TotalCost,
		TotalInterest:           cost.TotalInterest,
		RealValue:               cost.RealValue,
		AverageMonthlyInflation: avgInflation,
		Recommendation:          assessment.Recommendation,
		Factors:                 factors,
	}, nil
}
