package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"loan-viability/internal/fetcher"
	"loan-viability/internal/service"
	"loan-viability/internal/viability"
)

// Simulate scores loan terms given on the command line without touching the
// network. Without --rates the built-in fallback series is used.
func (a *App) Simulate(ctx context.Context, opts SimulateOptions) error {
	now := time.Now().UTC()
	terms, installments, err := simulationInputs(opts, a.Config.Server.MaxInstallments, now)
	if err != nil {
		return err
	}

	samples := fetcher.DefaultFallbackSeries()
	if len(opts.Rates) > 0 {
		samples, err = parseRates(opts.Rates, now)
		if err != nil {
			return err
		}
	}

	svc := service.New(a.Config, nil, &fetcher.Static{Samples: samples}, nil, nil, nil, nil, a.Logger)
	assessment, err := svc.Evaluate(ctx, service.Request{
		LoanID:       "simulation",
		Terms:        terms,
		Installments: installments,
	})
	if err != nil {
		return err
	}
	return printAssessment(a.Out, assessment)
}

// simulationInputs validates the flags; a positive maxInstallments bounds the term.
func simulationInputs(opts SimulateOptions, maxInstallments int, now time.Time) (viability.LoanTerms, []viability.Installment, error) {
	requested, err := decimal.NewFromString(strings.TrimSpace(opts.RequestedAmount))
	if err != nil || !requested.IsPositive() {
		return viability.LoanTerms{}, nil, errors.New("--requested must be a positive amount")
	}
	installmentAmount, err := decimal.NewFromString(strings.TrimSpace(opts.InstallmentAmount))
	if err != nil || installmentAmount.IsNegative() {
		return viability.LoanTerms{}, nil, errors.New("--installment-amount must be a non-negative amount")
	}
	if opts.Installments <= 0 {
		return viability.LoanTerms{}, nil, errors.New("--installments must be greater than zero")
	}
	if maxInstallments > 0 && opts.Installments > maxInstallments {
		return viability.LoanTerms{}, nil, fmt.Errorf("--installments must not exceed %d (server.max_installments)", maxInstallments)
	}
	if opts.Paid < 0 || opts.Paid > opts.Installments {
		return viability.LoanTerms{}, nil, fmt.Errorf("--paid must be between 0 and %d", opts.Installments)
	}

	terms := viability.LoanTerms{
		RequestedAmount:   requested,
		ApprovedAmount:    requested,
		InstallmentAmount: installmentAmount,
		InstallmentCount:  opts.Installments,
		CreatedAt:         now,
	}

	// History is only generated when some installments are paid; an empty
	// history and an all-unpaid one both score zero.
	if opts.Paid == 0 {
		return terms, nil, nil
	}
	installments := make([]viability.Installment, opts.Installments)
	for i := range installments {
		due := now.AddDate(0, i+1, 0)
		installments[i] = viability.Installment{
			SequenceNumber: i + 1,
			OriginalAmount: installmentAmount,
			CurrentAmount:  installmentAmount,
			DueDate:        due,
		}
		if i < opts.Paid {
			paidAt := due
			installments[i].PaymentDate = &paidAt
		}
	}
	return terms, installments, nil
}

// parseRates labels the given monthly rates with the trailing months before now.
func parseRates(rates []string, now time.Time) ([]viability.InflationSample, error) {
	periods := fetcher.TrailingPeriods(now, len(rates))
	samples := make([]viability.InflationSample, len(rates))
	for i, raw := range rates {
		rate, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid rate %q: %w", raw, err)
		}
		samples[i] = viability.InflationSample{Period: periods[i], RatePercent: rate}
	}
	return samples, nil
}
