package fetcher

import (
	"context"
	"errors"

	"loan-viability/internal/viability"
)

// Source labels where an inflation series came from.
const (
	SourceIBGE     = "ibge"
	SourceCache    = "cache"
	SourceFallback = "fallback"
	SourceStatic   = "static"
)

// ErrLoanNotFound is returned when the admin backend has no such loan.
var ErrLoanNotFound = errors.New("loan not found")

// Series is an inflation series together with its origin.
type Series struct {
	Samples []viability.InflationSample
	Source  string
}

// Loan is a loan record as served by the admin backend.
type Loan struct {
	ID           string
	Terms        viability.LoanTerms
	Installments []viability.Installment
}

// InflationFetcher retrieves the monthly inflation series.
type InflationFetcher interface {
	FetchInflation(ctx context.Context) (Series, error)
}

// LoanFetcher retrieves a loan and its installment history by identifier.
type LoanFetcher interface {
	FetchLoan(ctx context.Context, id string) (Loan, error)
}

// Refresher is implemented by fetchers that can bypass their own cache.
type Refresher interface {
	Refresh(ctx context.Context) (Series, error)
}
