package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"

	"loan-viability/internal/storage"
	"loan-viability/internal/viability"
)

const periodLayout = "200601"

// Export writes persisted assessments as CSV and the inflation series as a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxRows = a.Config.ResolveMaxRows(opts.MaxRows)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.CSVPath != "" {
		if store == nil {
			return errors.New("database not configured; cannot export assessments")
		}
		if err := a.exportAssessments(ctx, store, opts); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		samples, err := a.chartSamples(ctx, store, opts.MaxRows)
		if err != nil {
			return err
		}
		if err := writeInflationPNG(opts.PNGPath, samples); err != nil {
			return err
		}
		a.Logger.Info().Int("periods", len(samples)).Str("path", opts.PNGPath).Msg("inflation chart written")
	}

	return nil
}

func (a *App) exportAssessments(ctx context.Context, store *storage.Store, opts ExportOptions) error {
	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}
	from := to.AddDate(-1, 0, 0)
	if opts.From != nil {
		from = opts.From.UTC()
	}
	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	records, err := store.ListAssessmentsBetween(ctx, from, to, opts.MaxRows)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no assessments found for export window")
		return nil
	}

	a.Logger.Info().Int("rows", len(records)).Str("path", opts.CSVPath).Msg("exporting assessments")
	return writeAssessmentsCSV(opts.CSVPath, records)
}

// chartSamples prefers recorded history and falls back to the live source.
func (a *App) chartSamples(ctx context.Context, store *storage.Store, limit int) ([]viability.InflationSample, error) {
	if store != nil {
		records, err := store.ListInflationSamples(ctx, limit)
		if err != nil {
			return nil, err
		}
		if len(records) > 0 {
			samples := make([]viability.InflationSample, len(records))
			for i, rec := range records {
				samples[i] = viability.InflationSample{Period: rec.Period, RatePercent: rec.RatePercent}
			}
			return samples, nil
		}
	}

	source, closer := a.newInflationFetcher(ctx)
	defer closer()
	series, err := source.FetchInflation(ctx)
	if err != nil {
		return nil, err
	}
	return series.Samples, nil
}

func writeAssessmentsCSV(path string, records []storage.AssessmentRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"assessed_at", "loan_id", "requested_amount", "installment_amount", "installment_count",
		"score", "risk_tier", "is_viable", "total_cost", "total_interest", "real_value",
		"avg_monthly_inflation", "factor_inflation_impact", "factor_payment_history",
		"factor_loan_term", "factor_amount", "recommendation", "inflation_source",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		row := []string{
			rec.AssessedAt.UTC().Format(time.RFC3339),
			rec.LoanID,
			rec.RequestedAmount.String(),
			rec.InstallmentAmount.String(),
			strconv.Itoa(rec.InstallmentCount),
			rec.Score.String(),
			rec.RiskTier,
			strconv.FormatBool(rec.IsViable),
			rec.TotalCost.String(),
			rec.TotalInterest.String(),
			rec.RealValue.String(),
			rec.AverageMonthlyInflation.String(),
			rec.InflationImpact.String(),
			rec.PaymentHistory.String(),
			rec.LoanTerm.String(),
			rec.Amount.String(),
			rec.Recommendation,
			rec.InflationSource,
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// accumulatedSeries returns the compounded inflation, in percent, after each period.
func accumulatedSeries(samples []viability.InflationSample) []decimal.Decimal {
	out := make([]decimal.Decimal, len(samples))
	factor := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	for i, sample := range samples {
		factor = factor.Mul(decimal.NewFromInt(1).Add(sample.RatePercent.Div(hundred)))
		out[i] = factor.Sub(decimal.NewFromInt(1)).Mul(hundred)
	}
	return out
}

func writeInflationPNG(path string, samples []viability.InflationSample) error {
	if len(samples) < 2 {
		return fmt.Errorf("need at least two inflation periods to chart, got %d", len(samples))
	}
	if err := ensureDir(path); err != nil {
		return err
	}

	x := make([]time.Time, len(samples))
	monthly := make([]float64, len(samples))
	accumulated := make([]float64, len(samples))
	for i, acc := range accumulatedSeries(samples) {
		ts, err := time.Parse(periodLayout, samples[i].Period)
		if err != nil {
			return fmt.Errorf("period %q is not YYYYMM: %w", samples[i].Period, err)
		}
		x[i] = ts
		monthly[i] = samples[i].RatePercent.InexactFloat64()
		accumulated[i] = acc.InexactFloat64()
	}

	pctFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: func(v interface{}) string {
				return chart.TimeValueFormatterWithFormat(v, "2006-01")
			},
		},
		YAxis: chart.YAxis{
			Name:           "Monthly inflation (%)",
			ValueFormatter: pctFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Accumulated (%)",
			ValueFormatter: pctFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Monthly",
				XValues: x,
				YValues: monthly,
			},
			chart.TimeSeries{
				Name:    "Accumulated",
				XValues: x,
				YValues: accumulated,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
