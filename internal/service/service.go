package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"loan-viability/internal/alerting"
	"loan-viability/internal/config"
	"loan-viability/internal/fetcher"
	"loan-viability/internal/scheduler"
	"loan-viability/internal/storage"
	"loan-viability/internal/viability"
)

// Request is one viability assessment to perform. A nil Inflation selects the
// configured inflation source; a non-nil empty one is passed through and
// rejected by the scorer.
type Request struct {
	LoanID       string
	Terms        viability.LoanTerms
	Installments []viability.Installment
	Inflation    []viability.InflationSample
}

// Assessment is a computed result with the context it was computed in.
type Assessment struct {
	LoanID          string                      `json:"loanId,omitempty"`
	AssessedAt      time.Time                   `json:"assessedAt"`
	InflationSource string                      `json:"inflationSource"`
	Terms           viability.LoanTerms         `json:"terms"`
	Inflation       []viability.InflationSample `json:"inflation"`
	Result          viability.Result            `json:"result"`
}

// Service orchestrates fetching, scoring, persistence, and alerting.
type Service struct {
	scheduler      *scheduler.Scheduler
	inflation      fetcher.InflationFetcher
	loans          fetcher.LoanFetcher
	assessments    storage.AssessmentStore
	inflationStore storage.InflationStore
	notifier       alerting.Notifier
	logger         zerolog.Logger

	channels []string
	alertsOn bool
	locker   storage.AdvisoryLocker
	lockKey  int64
	now      func() time.Time
}

// New constructs the viability service. Any store, the notifier and the
// scheduler may be nil; the corresponding feature is then disabled.
func New(cfg *config.Config, sched *scheduler.Scheduler, inflation fetcher.InflationFetcher, loans fetcher.LoanFetcher, assessments storage.AssessmentStore, inflationStore storage.InflationStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := inflationStore.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler:      sched,
		inflation:      inflation,
		loans:          loans,
		assessments:    assessments,
		inflationStore: inflationStore,
		notifier:       notifier,
		logger:         logger.With().Str("component", "service").Logger(),
		channels:       cfg.Alerting.Channels,
		alertsOn:       cfg.Alerting.Enabled,
		locker:         locker,
		lockKey:        cfg.Scheduler.AdvisoryLockKey,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Run begins the scheduled inflation refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.RefreshInflation)
}

// RefreshInflation re-reads the series from the statistics API and records it.
func (s *Service) RefreshInflation(ctx context.Context, round time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("round", round).Msg("skip refresh because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	var series fetcher.Series
	if r, ok := s.inflation.(fetcher.Refresher); ok {
		series, err = r.Refresh(ctx)
	} else {
		series, err = s.inflation.FetchInflation(ctx)
	}
	if err != nil {
		return fmt.Errorf("refresh inflation: %w", err)
	}

	if series.Source == fetcher.SourceFallback {
		s.logger.Warn().Time("round", round).Msg("statistics api unavailable; fallback series not recorded")
		return nil
	}

	if s.inflationStore != nil {
		records := make([]storage.InflationRecord, 0, len(series.Samples))
		for _, sample := range series.Samples {
			records = append(records, storage.InflationRecord{
				Period:      sample.Period,
				RatePercent: sample.RatePercent,
				Source:      series.Source,
				FetchedAt:   round,
			})
		}
		if err := s.inflationStore.UpsertInflationSamples(ctx, records); err != nil {
			s.logger.Error().Err(err).Time("round", round).Msg("failed to store inflation samples")
		}
	}

	s.logger.Info().Time("round", round).
		Str("source", series.Source).
		Int("periods", len(series.Samples)).
		Msg("inflation series refreshed")
	return nil
}

// Inflation returns the current series from the configured source.
func (s *Service) Inflation(ctx context.Context) (fetcher.Series, error) {
	if s.inflation == nil {
		return fetcher.Series{}, errors.New("inflation source not configured")
	}
	series, err := s.inflation.FetchInflation(ctx)
	if err != nil {
		return fetcher.Series{}, fmt.Errorf("fetch inflation: %w", err)
	}
	return series, nil
}

// AssessLoan fetches a loan by id, scores it and records the result.
func (s *Service) AssessLoan(ctx context.Context, loanID string) (Assessment, error) {
	loanID = strings.TrimSpace(loanID)
	if loanID == "" {
		return Assessment{}, errors.New("loan id is required")
	}
	if s.loans == nil {
		return Assessment{}, errors.New("loan source not configured")
	}

	loan, err := s.loans.FetchLoan(ctx, loanID)
	if err != nil {
		return Assessment{}, err
	}

	assessment, err := s.Evaluate(ctx, Request{
		LoanID:       loanID,
		Terms:        loan.Terms,
		Installments: loan.Installments,
	})
	if err != nil {
		return Assessment{}, err
	}

	s.record(ctx, assessment)
	return assessment, nil
}

// Evaluate scores the request without persisting it.
func (s *Service) Evaluate(ctx context.Context, req Request) (Assessment, error) {
	series := fetcher.Series{Samples: req.Inflation, Source: fetcher.SourceStatic}
	if req.Inflation == nil {
		var err error
		series, err = s.Inflation(ctx)
		if err != nil {
			return Assessment{}, err
		}
	}

	result, err := viability.Compute(req.Terms, req.Installments, series.Samples)
	if err != nil {
		return Assessment{}, err
	}

	assessment := Assessment{
		LoanID:          req.LoanID,
		AssessedAt:      s.now(),
		InflationSource: series.Source,
		Terms:           req.Terms,
		Inflation:       series.Samples,
		Result:          result,
	}

	s.logger.Info().Str("loan_id", req.LoanID).
		Str("score", result.Score.StringFixed(2)).
		Str("risk_tier", string(result.RiskTier)).
		Bool("viable", result.IsViable).
		Str("inflation_source", series.Source).
		Msg("viability assessed")
	return assessment, nil
}

// History lists persisted assessments of a loan, newest first.
func (s *Service) History(ctx context.Context, loanID string, limit int) ([]storage.AssessmentRecord, error) {
	if s.assessments == nil {
		return nil, storage.ErrNotConfigured
	}
	return s.assessments.ListLoanAssessments(ctx, loanID, limit)
}

// record persists and alerts. Failures here are logged, never returned.
func (s *Service) record(ctx context.Context, a Assessment) {
	if s.assessments != nil {
		if _, err := s.assessments.UpsertAssessment(ctx, toRecord(a)); err != nil {
			s.logger.Error().Err(err).Str("loan_id", a.LoanID).Msg("failed to persist assessment")
		}
	}

	if s.alertsOn && s.notifier != nil && a.Result.RiskTier == viability.RiskHigh {
		note := alerting.Notification{
			LoanID:          a.LoanID,
			AssessedAt:      a.AssessedAt,
			Score:           a.Result.Score,
			RiskTier:        string(a.Result.RiskTier),
			IsViable:        a.Result.IsViable,
			Recommendation:  a.Result.Recommendation,
			RequestedAmount: a.Terms.RequestedAmount,
			TotalInterest:   a.Result.TotalInterest,
			RealValue:       a.Result.RealValue,
			AvgInflation:    a.Result.AverageMonthlyInflation,
			InflationSource: a.InflationSource,
			Channels:        s.channels,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("loan_id", a.LoanID).Msg("failed to dispatch alert")
		}
	}
}

func toRecord(a Assessment) storage.AssessmentRecord {
	r := a.Result
	return storage.AssessmentRecord{
		LoanID:                  a.LoanID,
		AssessedAt:              a.AssessedAt,
		RequestedAmount:         a.Terms.RequestedAmount,
		InstallmentAmount:       a.Terms.InstallmentAmount,
		InstallmentCount:        a.Terms.InstallmentCount,
		Score:                   r.Score,
		RiskTier:                string(r.RiskTier),
		IsViable:                r.IsViable,
		TotalCost:               r.TotalCost,
		TotalInterest:           r.TotalInterest,
		RealValue:               r.RealValue,
		AverageMonthlyInflation: r.AverageMonthlyInflation,
		InflationImpact:         r.Factors.InflationImpact,
		PaymentHistory:          r.Factors.PaymentHistory,
		LoanTerm:                r.Factors.LoanTerm,
		Amount:                  r.Factors.Amount,
		Recommendation:          r.Recommendation,
		InflationSource:         a.InflationSource,
	}
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
