package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"loan-viability/internal/api"
	"loan-viability/internal/service"
)

// Assess scores one loan from the admin backend and prints the result.
func (a *App) Assess(ctx context.Context, loanID string) error {
	if a.Config.Admin.BaseURL == "" {
		return errors.New("admin.base_url not configured; cannot fetch loans")
	}

	svc, closer, err := a.newService(ctx, nil)
	if err != nil {
		return err
	}
	defer closer()

	assessment, err := svc.AssessLoan(ctx, loanID)
	if err != nil {
		return fmt.Errorf("assess loan %s: %w", loanID, err)
	}
	return printAssessment(a.Out, assessment)
}

// Review assesses several loans in sequence and reports a summary. A failed
// loan does not stop the batch.
func (a *App) Review(ctx context.Context, opts ReviewOptions) error {
	if len(opts.LoanIDs) == 0 {
		return errors.New("at least one --loan-id is required")
	}
	if a.Config.Admin.BaseURL == "" {
		return errors.New("admin.base_url not configured; cannot fetch loans")
	}

	svc, closer, err := a.newService(ctx, nil)
	if err != nil {
		return err
	}
	defer closer()

	loans := a.newLoanFetcher()
	if opts.DryRun {
		a.Logger.Warn().Msg("review dry-run: assessments will not be persisted or alerted")
	}

	processed := 0
	failed := 0
	results := make([]service.Assessment, 0, len(opts.LoanIDs))
	for _, id := range opts.LoanIDs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		id = strings.TrimSpace(id)
		var assessment service.Assessment
		if opts.DryRun {
			loan, fetchErr := loans.FetchLoan(ctx, id)
			if fetchErr != nil {
				err = fetchErr
			} else {
				assessment, err = svc.Evaluate(ctx, service.Request{
					LoanID:       id,
					Terms:        loan.Terms,
					Installments: loan.Installments,
				})
			}
		} else {
			assessment, err = svc.AssessLoan(ctx, id)
		}
		if err != nil {
			failed++
			a.Logger.Error().Err(err).Str("loan_id", id).Msg("review failed")
			continue
		}
		processed++
		results = append(results, assessment)
	}

	if err := printReview(a.Out, results); err != nil {
		return err
	}

	a.Logger.Info().Int("processed", processed).Int("failed", failed).Msg("review complete")
	if failed > 0 {
		return fmt.Errorf("%d of %d loans failed review; check logs", failed, len(opts.LoanIDs))
	}
	return nil
}

// Serve exposes the HTTP API until SIGINT or SIGTERM.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	svc, closer, err := a.newService(ctx, nil)
	if err != nil {
		return err
	}
	defer closer()

	srv, limiter := api.NewServer(a.Config.Server, api.NewHandler(svc, a.Config.Server.MaxInstallments, a.Logger), a.Logger)
	defer limiter.Stop()

	if err := api.Serve(ctx, srv, a.Logger); err != nil {
		a.Logger.Error().Err(err).Msg("http api terminated with error")
		return err
	}
	a.Logger.Info().Msg("http api stopped")
	return nil
}
