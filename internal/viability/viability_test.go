package viability

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func referenceSeries() []InflationSample {
	rates := []string{"0.42", "0.83", "0.16", "0.38", "0.46", "0.21", "0.38", "0.02", "0.44"}
	series := make([]InflationSample, len(rates))
	for i, r := range rates {
		series[i] = InflationSample{
			Period:      time.Date(2024, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC).Format("200601"),
			RatePercent: decimal.RequireFromString(r),
		}
	}
	return series
}

func referenceTerms() LoanTerms {
	return LoanTerms{
		RequestedAmount:   decimal.NewFromInt(10_000),
		ApprovedAmount:    decimal.NewFromInt(10_000),
		InstallmentAmount: decimal.NewFromInt(1_000),
		InstallmentCount:  12,
		CreatedAt:         time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCompute_ReferenceScenario(t *testing.T) {
	result, err := Compute(referenceTerms(), nil, referenceSeries())
	require.NoError(t, err)

	assert.InDelta(t, 0.3667, result.AverageMonthlyInflation.InexactFloat64(), 0.0001)
	assert.True(t, result.TotalCost.Equal(decimal.NewFromInt(12_000)), "total cost %s", result.TotalCost)
	assert.True(t, result.TotalInterest.Equal(decimal.NewFromInt(2_000)), "total interest %s", result.TotalInterest)
	assert.InDelta(t, 10_450, result.RealValue.InexactFloat64(), 5)

	assert.True(t, result.Factors.PaymentHistory.IsZero())
	assert.True(t, result.Factors.LoanTerm.Equal(decimal.NewFromInt(80)), "loan term %s", result.Factors.LoanTerm)
	assert.True(t, result.Factors.Amount.Equal(decimal.NewFromInt(90)), "amount %s", result.Factors.Amount)
	assert.InDelta(t, 95.5, result.Factors.InflationImpact.InexactFloat64(), 0.1)

	assert.InDelta(t, 66.4, result.Score.InexactFloat64(), 0.1)
	assert.Equal(t, RiskMedium, result.RiskTier)
	assert.True(t, result.IsViable)
	assert.Equal(t, RecommendViable, result.Recommendation)
}

func TestCompute_EmptySeries(t *testing.T) {
	_, err := Compute(referenceTerms(), nil, nil)
	require.Error(t, err)

	var invalid *InvalidInputError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "inflation series must be non-empty", invalid.Reason)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestCompute_Idempotent(t *testing.T) {
	paidAt := time.Date(2024, 11, 5, 0, 0, 0, 0, time.UTC)
	installments := []Installment{
		{SequenceNumber: 1, PaymentDate: &paidAt},
		{SequenceNumber: 2},
	}

	first, err := Compute(referenceTerms(), installments, referenceSeries())
	require.NoError(t, err)
	second, err := Compute(referenceTerms(), installments, referenceSeries())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestAverageInflation_PermutationInvariant(t *testing.T) {
	series := referenceSeries()
	want, err := AverageInflation(series)
	require.NoError(t, err)

	reversed := make([]InflationSample, len(series))
	for i := range series {
		reversed[len(series)-1-i] = series[i]
	}
	rotated := append(append([]InflationSample{}, series[4:]...), series[:4]...)

	for name, perm := range map[string][]InflationSample{"reversed": reversed, "rotated": rotated} {
		got, err := AverageInflation(perm)
		require.NoError(t, err, name)
		assert.True(t, want.Equal(got), "%s: want %s got %s", name, want, got)
	}
}

func TestAverageInflation_NegativeRates(t *testing.T) {
	got, err := AverageInflation([]InflationSample{
		{Period: "202301", RatePercent: decimal.RequireFromString("-0.50")},
		{Period: "202302", RatePercent: decimal.RequireFromString("0.10")},
	})
	require.NoError(t, err)
	assert.True(t, got.Equal(decimal.RequireFromString("-0.2")), "got %s", got)
}

func TestPaymentRate(t *testing.T) {
	paidAt := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	late := 4

	tests := []struct {
		name         string
		installments []Installment
		want         string
	}{
		{name: "empty history", installments: nil, want: "0"},
		{name: "none paid", installments: []Installment{{SequenceNumber: 1}, {SequenceNumber: 2}}, want: "0"},
		{name: "half paid", installments: []Installment{{SequenceNumber: 1, PaymentDate: &paidAt, DaysLate: &late}, {SequenceNumber: 2}}, want: "0.5"},
		{name: "all paid", installments: []Installment{{SequenceNumber: 1, PaymentDate: &paidAt}}, want: "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PaymentRate(tt.installments)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "want %s got %s", tt.want, got)
		})
	}
}

func TestScoreFactors_ClampExtremes(t *testing.T) {
	inputs := []FactorInputs{
		{
			AverageMonthlyInflation: decimal.NewFromInt(50),
			PaymentRate:             decimal.NewFromInt(1),
			InstallmentCount:        600,
			RequestedAmount:         decimal.NewFromInt(10_000_000),
		},
		{
			AverageMonthlyInflation: decimal.NewFromInt(-50),
			PaymentRate:             decimal.NewFromInt(3),
			InstallmentCount:        0,
			RequestedAmount:         decimal.NewFromInt(-5_000),
		},
		{
			AverageMonthlyInflation: decimal.Zero,
			PaymentRate:             decimal.NewFromInt(-1),
			InstallmentCount:        -12,
			RequestedAmount:         decimal.Zero,
		},
	}

	for _, in := range inputs {
		f := ScoreFactors(in)
		for name, v := range map[string]decimal.Decimal{
			"inflationImpact": f.InflationImpact,
			"paymentHistory":  f.PaymentHistory,
			"loanTerm":        f.LoanTerm,
			"amount":          f.Amount,
		} {
			assert.False(t, v.IsNegative(), "%s below zero: %s", name, v)
			assert.False(t, v.GreaterThan(hundred), "%s above 100: %s", name, v)
		}
	}

	extreme := ScoreFactors(inputs[0])
	assert.True(t, extreme.InflationImpact.IsZero())
	assert.True(t, extreme.LoanTerm.IsZero())
	assert.True(t, extreme.Amount.IsZero())
	assert.True(t, extreme.PaymentHistory.Equal(hundred))
}

func TestClassifyScore_Boundaries(t *testing.T) {
	tests := []struct {
		score          string
		tier           RiskTier
		viable         bool
		recommendation string
	}{
		{score: "0", tier: RiskHigh, viable: false, recommendation: RecommendHighRisk},
		{score: "39.9", tier: RiskHigh, viable: false, recommendation: RecommendHighRisk},
		{score: "40", tier: RiskMedium, viable: false, recommendation: RecommendMediumRisk},
		{score: "59.99", tier: RiskMedium, viable: false, recommendation: RecommendMediumRisk},
		{score: "60", tier: RiskMedium, viable: true, recommendation: RecommendViable},
		{score: "70", tier: RiskLow, viable: true, recommendation: RecommendViable},
		{score: "79.99", tier: RiskLow, viable: true, recommendation: RecommendViable},
		{score: "80", tier: RiskLow, viable: true, recommendation: RecommendHighlyViable},
		{score: "100", tier: RiskLow, viable: true, recommendation: RecommendHighlyViable},
	}

	for _, tt := range tests {
		t.Run(tt.score, func(t *testing.T) {
			a := ClassifyScore(decimal.RequireFromString(tt.score))
			assert.Equal(t, tt.tier, a.Tier)
			assert.Equal(t, tt.viable, a.IsViable)
			assert.Equal(t, tt.recommendation, a.Recommendation)
		})
	}
}

// A score between 60 and 70 is viable yet still MEDIUM risk. The two
// thresholds do not line up and that is the intended behaviour.
func TestClassifyScore_ViableMediumOverlap(t *testing.T) {
	a := ClassifyScore(decimal.NewFromInt(65))
	assert.Equal(t, RiskMedium, a.Tier)
	assert.True(t, a.IsViable)
}

func TestEvaluate_AveragesFactors(t *testing.T) {
	a := Evaluate(Factors{
		InflationImpact: decimal.NewFromInt(100),
		PaymentHistory:  decimal.NewFromInt(100),
		LoanTerm:        decimal.NewFromInt(60),
		Amount:          decimal.NewFromInt(60),
	})
	assert.True(t, a.Score.Equal(decimal.NewFromInt(80)), "score %s", a.Score)
	assert.Equal(t, RecommendHighlyViable, a.Recommendation)
}

func TestProjectCost_NegativeInterest(t *testing.T) {
	terms := LoanTerms{
		RequestedAmount:   decimal.NewFromInt(10_000),
		InstallmentAmount: decimal.NewFromInt(500),
		InstallmentCount:  10,
	}
	cost := ProjectCost(terms, decimal.Zero)

	assert.True(t, cost.TotalCost.Equal(decimal.NewFromInt(5_000)))
	assert.True(t, cost.TotalInterest.Equal(decimal.NewFromInt(-5_000)))
	assert.True(t, cost.RealValue.Equal(decimal.NewFromInt(10_000)), "real value %s", cost.RealValue)
}

func TestAccumulatedInflation(t *testing.T) {
	got := AccumulatedInflation(decimal.NewFromInt(1), 2)
	assert.True(t, got.Equal(decimal.RequireFromString("0.0201")), "got %s", got)

	assert.True(t, AccumulatedInflation(decimal.NewFromInt(5), 0).IsZero())
}
