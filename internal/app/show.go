package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"loan-viability/internal/service"
	"loan-viability/internal/storage"
	"loan-viability/internal/viability"
)

// Show prints recent persisted assessments, optionally for a single loan.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show assessments")
	}
	if closeStore != nil {
		defer closeStore()
	}

	records, err := a.listAssessments(ctx, store, opts)
	if err != nil {
		return err
	}
	return printRecords(a.Out, records)
}

// listAssessments serves a single loan through the service history and
// everything else straight from the store.
func (a *App) listAssessments(ctx context.Context, store storage.AssessmentStore, opts ShowOptions) ([]storage.AssessmentRecord, error) {
	if opts.LoanID == "" {
		return store.ListRecentAssessments(ctx, opts.Limit)
	}
	svc := service.New(a.Config, nil, nil, nil, store, nil, nil, a.Logger)
	return svc.History(ctx, strings.TrimSpace(opts.LoanID), opts.Limit)
}

// ShowInflation prints the series the scorer would use right now.
func (a *App) ShowInflation(ctx context.Context) error {
	source, closer := a.newInflationFetcher(ctx)
	defer closer()

	series, err := source.FetchInflation(ctx)
	if err != nil {
		return err
	}
	avg, err := viability.AverageInflation(series.Samples)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Period\tRate%")
	for _, sample := range series.Samples {
		fmt.Fprintf(writer, "%s\t%s\n", sample.Period, formatDecimal(sample.RatePercent, 2))
	}
	fmt.Fprintf(writer, "Mean\t%s\n", formatDecimal(avg, 4))
	fmt.Fprintf(writer, "Source\t%s\n", series.Source)
	return writer.Flush()
}

func printRecords(w io.Writer, records []storage.AssessmentRecord) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "no assessments found")
		return nil
	}

	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Assessed (UTC)\tLoan\tScore\tTier\tViable\tRequested\tInterest\tReal value\tInflation\tRecommendation")
	for _, rec := range records {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%t\t%s\t%s\t%s\t%s\t%s\n",
			rec.AssessedAt.UTC().Format(time.RFC3339),
			sanitizeInline(rec.LoanID),
			formatDecimal(rec.Score, 2),
			rec.RiskTier,
			rec.IsViable,
			formatDecimal(rec.RequestedAmount, 2),
			formatDecimal(rec.TotalInterest, 2),
			formatDecimal(rec.RealValue, 2),
			rec.InflationSource,
			sanitizeInline(rec.Recommendation),
		)
	}
	return writer.Flush()
}

func printAssessment(w io.Writer, a service.Assessment) error {
	r := a.Result
	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if a.LoanID != "" {
		fmt.Fprintf(writer, "Loan\t%s\n", sanitizeInline(a.LoanID))
	}
	fmt.Fprintf(writer, "Score\t%s\n", formatDecimal(r.Score, 2))
	fmt.Fprintf(writer, "Risk tier\t%s\n", r.RiskTier)
	fmt.Fprintf(writer, "Viable\t%t\n", r.IsViable)
	fmt.Fprintf(writer, "Recommendation\t%s\n", r.Recommendation)
	fmt.Fprintf(writer, "Total cost\t%s\n", formatDecimal(r.TotalCost, 2))
	fmt.Fprintf(writer, "Total interest\t%s\n", formatDecimal(r.TotalInterest, 2))
	fmt.Fprintf(writer, "Real value\t%s\n", formatDecimal(r.RealValue, 2))
	fmt.Fprintf(writer, "Avg monthly inflation\t%s%% (%s, %d periods)\n", formatDecimal(r.AverageMonthlyInflation, 4), a.InflationSource, len(a.Inflation))
	fmt.Fprintf(writer, "Factors\tinflation %s, payments %s, term %s, amount %s\n",
		formatDecimal(r.Factors.InflationImpact, 2),
		formatDecimal(r.Factors.PaymentHistory, 2),
		formatDecimal(r.Factors.LoanTerm, 2),
		formatDecimal(r.Factors.Amount, 2),
	)
	return writer.Flush()
}

func printReview(w io.Writer, results []service.Assessment) error {
	if len(results) == 0 {
		return nil
	}
	writer := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Loan\tScore\tTier\tViable\tRecommendation")
	for _, a := range results {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%t\t%s\n",
			sanitizeInline(a.LoanID),
			formatDecimal(a.Result.Score, 2),
			a.Result.RiskTier,
			a.Result.IsViable,
			a.Result.Recommendation,
		)
	}
	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	cleaned = strings.ReplaceAll(cleaned, "\t", " ")
	return cleaned
}

func formatDecimal(d decimal.Decimal, places int32) string {
	return d.StringFixed(places)
}
