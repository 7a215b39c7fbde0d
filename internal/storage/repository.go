package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const assessmentColumns = `
        id,
        loan_id,
        assessed_at,
        requested_amount,
        installment_amount,
        installment_count,
        score,
        risk_tier,
        is_viable,
        total_cost,
        total_interest,
        real_value,
        avg_monthly_inflation,
        factor_inflation_impact,
        factor_payment_history,
        factor_loan_term,
        factor_amount,
        recommendation,
        inflation_source,
        created_at`

const (
	upsertAssessmentSQL = `INSERT INTO viability_assessments (
        loan_id,
        assessed_at,
        requested_amount,
        installment_amount,
        installment_count,
        score,
        risk_tier,
        is_viable,
        total_cost,
        total_interest,
        real_value,
        avg_monthly_inflation,
        factor_inflation_impact,
        factor_payment_history,
        factor_loan_term,
        factor_amount,
        recommendation,
        inflation_source
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18
    )
    ON CONFLICT (loan_id, assessed_at) DO UPDATE
    SET
        requested_amount        = EXCLUDED.requested_amount,
        installment_amount      = EXCLUDED.installment_amount,
        installment_count       = EXCLUDED.installment_count,
        score                   = EXCLUDED.score,
        risk_tier               = EXCLUDED.risk_tier,
        is_viable               = EXCLUDED.is_viable,
        total_cost              = EXCLUDED.total_cost,
        total_interest          = EXCLUDED.total_interest,
        real_value              = EXCLUDED.real_value,
        avg_monthly_inflation   = EXCLUDED.avg_monthly_inflation,
        factor_inflation_impact = EXCLUDED.factor_inflation_impact,
        factor_payment_history  = EXCLUDED.factor_payment_history,
        factor_loan_term        = EXCLUDED.factor_loan_term,
        factor_amount           = EXCLUDED.factor_amount,
        recommendation          = EXCLUDED.recommendation,
        inflation_source        = EXCLUDED.inflation_source
    RETURNING id, created_at;`

	listRecentAssessmentsSQL = `SELECT` + assessmentColumns + `
    FROM viability_assessments
    ORDER BY assessed_at DESC
    LIMIT $1;`

	listAssessmentsBetweenSQL = `SELECT` + assessmentColumns + `
    FROM viability_assessments
    WHERE assessed_at >= $1
      AND assessed_at < $2
    ORDER BY assessed_at
    LIMIT $3;`

	listLoanAssessmentsSQL = `SELECT` + assessmentColumns + `
    FROM viability_assessments
    WHERE loan_id = $1
    ORDER BY assessed_at DESC
    LIMIT $2;`

	upsertInflationSampleSQL = `INSERT INTO inflation_samples (
        period,
        rate_percent,
        source,
        fetched_at
    ) VALUES (
        $1,$2,$3,$4
    )
    ON CONFLICT (period) DO UPDATE
    SET rate_percent = EXCLUDED.rate_percent,
        source       = EXCLUDED.source,
        fetched_at   = EXCLUDED.fetched_at;`

	listInflationSamplesSQL = `SELECT period, rate_percent, source, fetched_at
    FROM (
        SELECT period, rate_percent, source, fetched_at
        FROM inflation_samples
        ORDER BY period DESC
        LIMIT $1
    ) recent
    ORDER BY period;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// AssessmentStore persists viability assessments.
type AssessmentStore interface {
	UpsertAssessment(ctx context.Context, rec AssessmentRecord) (AssessmentRecord, error)
	ListRecentAssessments(ctx context.Context, limit int) ([]AssessmentRecord, error)
	ListAssessmentsBetween(ctx context.Context, from, to time.Time, limit int) ([]AssessmentRecord, error)
	ListLoanAssessments(ctx context.Context, loanID string, limit int) ([]AssessmentRecord, error)
}

// InflationStore keeps the history of fetched inflation samples.
type InflationStore interface {
	UpsertInflationSamples(ctx context.Context, samples []InflationRecord) error
	ListInflationSamples(ctx context.Context, limit int) ([]InflationRecord, error)
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// Store aggregates access to assessments and inflation history.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		// A failed unlock is released with the session when the connection closes.
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// UpsertAssessment persists an assessment, replacing one with the same loan and timestamp.
func (s *Store) UpsertAssessment(ctx context.Context, rec AssessmentRecord) (AssessmentRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return AssessmentRecord{}, err
	}

	row := pool.QueryRow(ctx, upsertAssessmentSQL,
		rec.LoanID,
		rec.AssessedAt,
		rec.RequestedAmount.String(),
		rec.InstallmentAmount.String(),
		rec.InstallmentCount,
		rec.Score.String(),
		rec.RiskTier,
		rec.IsViable,
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
	)
	if scanErr := row.Scan(&rec.ID, &rec.CreatedAt); scanErr != nil {
		return AssessmentRecord{}, fmt.Errorf("upsert assessment: %w", scanErr)
	}
	return rec, nil
}

// ListRecentAssessments lists the most recent assessments, newest first.
func (s *Store) ListRecentAssessments(ctx context.Context, limit int) ([]AssessmentRecord, error) {
	return s.queryAssessments(ctx, "list recent assessments", listRecentAssessmentsSQL, limit)
}

// ListAssessmentsBetween lists assessments within a time window, oldest first.
func (s *Store) ListAssessmentsBetween(ctx context.Context, from, to time.Time, limit int) ([]AssessmentRecord, error) {
	return s.queryAssessments(ctx, "list assessments between", listAssessmentsBetweenSQL, from, to, limit)
}

// ListLoanAssessments lists the assessment history of one loan, newest first.
func (s *Store) ListLoanAssessments(ctx context.Context, loanID string, limit int) ([]AssessmentRecord, error) {
	return s.queryAssessments(ctx, "list loan assessments", listLoanAssessmentsSQL, loanID, limit)
}

func (s *Store) queryAssessments(ctx context.Context, op, query string, args ...any) ([]AssessmentRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("%s: %w", op, queryErr)
	}
	defer rows.Close()

	records := make([]AssessmentRecord, 0)
	for rows.Next() {
		rec, scanErr := scanAssessment(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// UpsertInflationSamples stores samples keyed by period in one batch.
func (s *Store) UpsertInflationSamples(ctx context.Context, samples []InflationRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, sample := range samples {
		fetchedAt := sample.FetchedAt
		if fetchedAt.IsZero() {
			fetchedAt = time.Now().UTC()
		}
		batch.Queue(upsertInflationSampleSQL, sample.Period, sample.RatePercent.String(), sample.Source, fetchedAt)
	}

	if err := pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("upsert inflation samples: %w", err)
	}
	return nil
}

// ListInflationSamples returns the latest limit periods, oldest first.
func (s *Store) ListInflationSamples(ctx context.Context, limit int) ([]InflationRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listInflationSamplesSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list inflation samples: %w", queryErr)
	}
	defer rows.Close()

	records := make([]InflationRecord, 0, limit)
	for rows.Next() {
		var (
			rec     InflationRecord
			rateStr string
		)
		if err := rows.Scan(&rec.Period, &rateStr, &rec.Source, &rec.FetchedAt); err != nil {
			return nil, err
		}
		rate, convErr := decimal.NewFromString(rateStr)
		if convErr != nil {
			return nil, fmt.Errorf("parse rate percent: %w", convErr)
		}
		rec.RatePercent = rate
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

func scanAssessment(rows pgx.Rows) (AssessmentRecord, error) {
	var (
		rec      AssessmentRecord
		numerics [11]string
	)

	if err := rows.Scan(
		&rec.ID,
		&rec.LoanID,
		&rec.AssessedAt,
		&numerics[0],
		&numerics[1],
		&rec.InstallmentCount,
		&numerics[2],
		&rec.RiskTier,
		&rec.IsViable,
		&numerics[3],
		&numerics[4],
		&numerics[5],
		&numerics[6],
		&numerics[7],
		&numerics[8],
		&numerics[9],
		&numerics[10],
		&rec.Recommendation,
		&rec.InflationSource,
		&rec.CreatedAt,
	); err != nil {
		return AssessmentRecord{}, err
	}

	targets := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"requested_amount", &rec.RequestedAmount},
		{"installment_amount", &rec.InstallmentAmount},
		{"score", &rec.Score},
		{"total_cost", &rec.TotalCost},
		{"total_interest", &rec.TotalInterest},
		{"real_value", &rec.RealValue},
		{"avg_monthly_inflation", &rec.AverageMonthlyInflation},
		{"factor_inflation_impact", &rec.InflationImpact},
		{"factor_payment_history", &rec.PaymentHistory},
		{"factor_loan_term", &rec.LoanTerm},
		{"factor_amount", &rec.Amount},
	}
	for i, target := range targets {
		value, err := decimal.NewFromString(numerics[i])
		if err != nil {
			return AssessmentRecord{}, fmt.Errorf("parse %s: %w", target.name, err)
		}
		*target.dst = value
	}

	return rec, nil
}

var (
	_ AssessmentStore = (*Store)(nil)
	_ InflationStore  = (*Store)(nil)
	_ AdvisoryLocker  = (*Store)(nil)
)
