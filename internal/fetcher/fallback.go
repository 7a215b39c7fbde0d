package fetcher

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"loan-viability/internal/viability"
)

var fallbackRates = []struct {
	period string
	rate   string
}{
	{"202401", "0.42"},
	{"202402", "0.83"},
	{"202403", "0.16"},
	{"202404", "0.38"},
	{"202405", "0.46"},
	{"202406", "0.21"},
	{"202407", "0.38"},
	{"202408", "0.02"},
	{"202409", "0.44"},
}

// DefaultFallbackSeries returns a fresh copy of the built-in nine-month series
// used when the statistics API is unavailable.
func DefaultFallbackSeries() []viability.InflationSample {
	series := make([]viability.InflationSample, len(fallbackRates))
	for i, r := range fallbackRates {
		series[i] = viability.InflationSample{Period: r.period, RatePercent: decimal.RequireFromString(r.rate)}
	}
	return series
}

// Fallback serves a fixed series whenever the primary fetcher fails or
// returns nothing. It never returns an error.
type Fallback struct {
	primary InflationFetcher
	series  []viability.InflationSample
	logger  zerolog.Logger
}

// NewFallback wraps primary. A nil or empty series selects DefaultFallbackSeries.
func NewFallback(primary InflationFetcher, series []viability.InflationSample, logger zerolog.Logger) *Fallback {
	if len(series) == 0 {
		series = DefaultFallbackSeries()
	}
	return &Fallback{
		primary: primary,
		series:  series,
		logger:  logger.With().Str("component", "inflation_fallback").Logger(),
	}
}

// FetchInflation returns the primary series or the fallback one.
func (f *Fallback) FetchInflation(ctx context.Context) (Series, error) {
	if f.primary == nil {
		return f.fallback(), nil
	}
	return f.resolve(f.primary.FetchInflation(ctx))
}

// Refresh forces the primary to bypass any cache when it supports it.
func (f *Fallback) Refresh(ctx context.Context) (Series, error) {
	if r, ok := f.primary.(Refresher); ok {
		return f.resolve(r.Refresh(ctx))
	}
	return f.FetchInflation(ctx)
}

func (f *Fallback) resolve(series Series, err error) (Series, error) {
	if err == nil && len(series.Samples) > 0 {
		return series, nil
	}
	if err != nil {
		f.logger.Warn().Err(err).Msg("inflation fetch failed; using fallback series")
	} else {
		f.logger.Warn().Msg("inflation source returned empty series; using fallback series")
	}
	return f.fallback(), nil
}

func (f *Fallback) fallback() Series {
	samples := make([]viability.InflationSample, len(f.series))
	copy(samples, f.series)
	return Series{Samples: samples, Source: SourceFallback}
}

// Static serves a caller-supplied series, for offline simulation.
type Static struct {
	Samples []viability.InflationSample
}

func (s *Static) FetchInflation(ctx context.Context) (Series, error) {
	return Series{Samples: s.Samples, Source: SourceStatic}, nil
}

var (
	_ InflationFetcher = (*Fallback)(nil)
	_ Refresher        = (*Fallback)(nil)
	_ InflationFetcher = (*Static)(nil)
)
