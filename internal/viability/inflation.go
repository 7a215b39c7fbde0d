package viability

import "github.com/shopspring/decimal"

// compoundingPrecision bounds the decimal places kept while compounding so
// long terms do not grow the mantissa without limit.
const compoundingPrecision = 18

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// AverageInflation returns the arithmetic mean of the series' rates.
func AverageInflation(series []InflationSample) (decimal.Decimal, error) {
	if len(series) == 0 {
		return decimal.Decimal{}, &InvalidInputError{Reason: "inflation series must be non-empty"}
	}

	sum := decimal.Zero
	for _, sample := range series {
		sum = sum.Add(sample.RatePercent)
	}
	return sum.Div(decimal.NewFromInt(int64(len(series)))), nil
}

// AccumulatedInflation compounds a constant monthly rate (in percent) over
// periods months and returns the total growth as a fraction:
// (1 + rate/100)^periods - 1.
func AccumulatedInflation(monthlyRatePercent decimal.Decimal, periods int) decimal.Decimal {
	base := one.Add(monthlyRatePercent.Div(hundred))
	return compound(base, periods).Sub(one)
}

// compound raises base to a non-negative integer power by squaring.
func compound(base decimal.Decimal, periods int) decimal.Decimal {
	result := one
	for periods > 0 {
		if periods&1 == 1 {
			result = result.Mul(base).Round(compoundingPrecision)
		}
		base = base.Mul(base).Round(compoundingPrecision)
		periods >>= 1
	}
	return result
}
