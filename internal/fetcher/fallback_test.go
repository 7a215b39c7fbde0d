package fetcher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"loan-viability/internal/cache"
	"loan-viability/internal/viability"
)

type stubInflation struct {
	series Series
	err    error
	calls  int
}

func (s *stubInflation) FetchInflation(ctx context.Context) (Series, error) {
	s.calls++
	return s.series, s.err
}

func TestFallbackOnError(t *testing.T) {
	f := NewFallback(&stubInflation{err: errors.New("offline")}, nil, noopLogger())

	series, err := f.FetchInflation(context.Background())
	if err != nil {
		t.Fatalf("fallback must not fail: %v", err)
	}
	if series.Source != SourceFallback {
		t.Fatalf("expected fallback source, got %q", series.Source)
	}
	if len(series.Samples) != 9 {
		t.Fatalf("expected 9 fallback samples, got %d", len(series.Samples))
	}

	avg, err := viability.AverageInflation(series.Samples)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if avg.Sub(decimal.RequireFromString("0.3667")).Abs().GreaterThan(decimal.RequireFromString("0.0001")) {
		t.Fatalf("unexpected fallback mean %s", avg)
	}
}

func TestFallbackOnEmptySeries(t *testing.T) {
	f := NewFallback(&stubInflation{series: Series{Source: SourceIBGE}}, nil, noopLogger())
	series, _ := f.FetchInflation(context.Background())
	if series.Source != SourceFallback {
		t.Fatalf("empty primary series should fall back, got %q", series.Source)
	}
}

func TestFallbackPassesThrough(t *testing.T) {
	primary := &stubInflation{series: Series{
		Samples: []viability.InflationSample{{Period: "202410", RatePercent: decimal.RequireFromString("0.56")}},
		Source:  SourceIBGE,
	}}
	f := NewFallback(primary, nil, noopLogger())

	series, err := f.FetchInflation(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Source != SourceIBGE || len(series.Samples) != 1 {
		t.Fatalf("primary series should be returned untouched, got %+v", series)
	}
}

func TestFallbackReturnsCopy(t *testing.T) {
	f := NewFallback(nil, nil, noopLogger())
	first, _ := f.FetchInflation(context.Background())
	first.Samples[0].RatePercent = decimal.NewFromInt(99)

	second, _ := f.FetchInflation(context.Background())
	if second.Samples[0].RatePercent.Equal(decimal.NewFromInt(99)) {
		t.Fatal("callers must not be able to mutate the fallback series")
	}
}

func TestCachedServesFromCache(t *testing.T) {
	primary := &stubInflation{series: Series{
		Samples: []viability.InflationSample{{Period: "202410", RatePercent: decimal.RequireFromString("0.56")}},
		Source:  SourceIBGE,
	}}
	c := NewCached(primary, cache.NewMemory(), "inflation:test", time.Hour, noopLogger())

	first, err := c.FetchInflation(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Source != SourceIBGE {
		t.Fatalf("first fetch should hit the source, got %q", first.Source)
	}

	second, err := c.FetchInflation(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Source != SourceCache {
		t.Fatalf("second fetch should hit the cache, got %q", second.Source)
	}
	if primary.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", primary.calls)
	}
	if !second.Samples[0].RatePercent.Equal(decimal.RequireFromString("0.56")) {
		t.Fatalf("cached rate mismatch: %s", second.Samples[0].RatePercent)
	}
}

func TestCachedPropagatesError(t *testing.T) {
	c := NewCached(&stubInflation{err: errors.New("offline")}, cache.NewMemory(), "k", time.Hour, noopLogger())
	if _, err := c.FetchInflation(context.Background()); err == nil {
		t.Fatal("cache miss with failing source should return the error")
	}
}

func TestFallbackRefreshBypassesCache(t *testing.T) {
	primary := &stubInflation{series: Series{
		Samples: []viability.InflationSample{{Period: "202410", RatePercent: decimal.RequireFromString("0.56")}},
		Source:  SourceIBGE,
	}}
	c := NewCached(primary, cache.NewMemory(), "k", time.Hour, noopLogger())
	f := NewFallback(c, nil, noopLogger())

	if _, err := f.FetchInflation(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	series, err := f.Refresh(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if series.Source != SourceIBGE || primary.calls != 2 {
		t.Fatalf("refresh should reach the source, got source %q after %d calls", series.Source, primary.calls)
	}
}
