package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AssessmentRecord is one persisted viability assessment of a loan.
type AssessmentRecord struct {
	ID                      int64
	LoanID                  string
	AssessedAt              time.Time
	RequestedAmount         decimal.Decimal
	InstallmentAmount       decimal.Decimal
	InstallmentCount        int
	Score                   decimal.Decimal
	RiskTier                string
	IsViable                bool
	TotalCost               decimal.Decimal
	TotalInterest           decimal.Decimal
	RealValue               decimal.Decimal
	AverageMonthlyInflation decimal.Decimal
	InflationImpact         decimal.Decimal
	PaymentHistory          decimal.Decimal
	LoanTerm                decimal.Decimal
	Amount                  decimal.Decimal
	Recommendation          string
	InflationSource         string
	CreatedAt               time.Time
}

// InflationRecord is one stored monthly inflation observation.
type InflationRecord struct {
	Period      string
	RatePercent decimal.Decimal
	Source      string
	FetchedAt   time.Time
}
