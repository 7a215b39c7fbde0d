package viability

import "github.com/shopspring/decimal"

// PaymentRate is the fraction of installments already paid, in [0, 1].
// An empty history yields zero.
func PaymentRate(installments []Installment) decimal.Decimal {
	if len(installments) == 0 {
		return decimal.Zero
	}

	paid := 0
	for _, inst := range installments {
		if inst.Paid() {
			paid++
		}
	}
	return decimal.NewFromInt(int64(paid)).Div(decimal.NewFromInt(int64(len(installments))))
}
