//go:build integration

package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"loan-viability/internal/config"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("viability"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, config.DatabaseConfig{DSN: dsn, MaxOpenConns: 4})
	require.NoError(t, err)

	migration, err := os.ReadFile(filepath.Join("..", "..", "migrations", "001_init.sql"))
	require.NoError(t, err)
	_, err = pool.Exec(ctx, string(migration))
	require.NoError(t, err)

	store := NewStore(pool)
	t.Cleanup(store.Close)
	return store
}

func TestAssessmentRoundTrip(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	assessedAt := time.Date(2024, 10, 1, 12, 0, 0, 0, time.UTC)
	rec := AssessmentRecord{
		LoanID:                  "L-1",
		AssessedAt:              assessedAt,
		RequestedAmount:         decimal.NewFromInt(10000),
		InstallmentAmount:       decimal.NewFromInt(1000),
		InstallmentCount:        12,
		Score:                   decimal.RequireFromString("66.3776"),
		RiskTier:                "MEDIUM",
		IsViable:                true,
		TotalCost:               decimal.NewFromInt(12000),
		TotalInterest:           decimal.NewFromInt(2000),
		RealValue:               decimal.RequireFromString("10448.98"),
		AverageMonthlyInflation: decimal.RequireFromString("0.3667"),
		InflationImpact:         decimal.RequireFromString("95.51"),
		PaymentHistory:          decimal.Zero,
		LoanTerm:                decimal.NewFromInt(80),
		Amount:                  decimal.NewFromInt(90),
		Recommendation:          "viable with some considerations, monitor inflation",
		InflationSource:         "fallback",
	}

	saved, err := store.UpsertAssessment(ctx, rec)
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	// same loan and timestamp updates in place
	rec.Score = decimal.RequireFromString("70")
	rec.RiskTier = "LOW"
	again, err := store.UpsertAssessment(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, again.ID)

	recent, err := store.ListRecentAssessments(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.True(t, recent[0].Score.Equal(decimal.NewFromInt(70)))
	assert.Equal(t, "LOW", recent[0].RiskTier)
	assert.True(t, recent[0].RealValue.Equal(rec.RealValue))

	between, err := store.ListAssessmentsBetween(ctx, assessedAt.Add(-time.Hour), assessedAt.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Len(t, between, 1)

	byLoan, err := store.ListLoanAssessments(ctx, "other", 10)
	require.NoError(t, err)
	assert.Empty(t, byLoan)
}

func TestInflationSamples(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	require.NoError(t, store.UpsertInflationSamples(ctx, []InflationRecord{
		{Period: "202401", RatePercent: decimal.RequireFromString("0.42"), Source: "ibge"},
		{Period: "202402", RatePercent: decimal.RequireFromString("0.83"), Source: "ibge"},
		{Period: "202403", RatePercent: decimal.RequireFromString("0.16"), Source: "ibge"},
	}))

	latest, err := store.ListInflationSamples(ctx, 2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "202402", latest[0].Period)
	assert.Equal(t, "202403", latest[1].Period)
}

func TestAdvisoryLock(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	unlock, acquired, err := store.TryAdvisoryLock(ctx, 42)
	require.NoError(t, err)
	require.True(t, acquired)

	_, again, err := store.TryAdvisoryLock(ctx, 42)
	require.NoError(t, err)
	assert.False(t, again, "lock held by another session must not be re-acquired")

	unlock()
}
