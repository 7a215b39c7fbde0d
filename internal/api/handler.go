package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"loan-viability/internal/fetcher"
	"loan-viability/internal/service"
	"loan-viability/internal/viability"
)

const maxBodyBytes = 1 << 20

// DefaultMaxInstallments caps installmentCount when no limit is configured.
// Compounding is exact, so the cost grows with the term length.
const DefaultMaxInstallments = 600

// Assessor is the slice of the service the HTTP API depends on.
type Assessor interface {
	Evaluate(ctx context.Context, req service.Request) (service.Assessment, error)
	AssessLoan(ctx context.Context, loanID string) (service.Assessment, error)
	Inflation(ctx context.Context) (fetcher.Series, error)
}

// Handler serves the viability endpoints.
type Handler struct {
	assessor        Assessor
	maxInstallments int
	logger          zerolog.Logger
}

// NewHandler constructs the API handler. A non-positive maxInstallments
// selects DefaultMaxInstallments.
func NewHandler(assessor Assessor, maxInstallments int, logger zerolog.Logger) *Handler {
	if maxInstallments <= 0 {
		maxInstallments = DefaultMaxInstallments
	}
	return &Handler{
		assessor:        assessor,
		maxInstallments: maxInstallments,
		logger:          logger.With().Str("component", "api").Logger(),
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/viability", h.ComputeViability)
	mux.HandleFunc("GET /v1/loans/{id}/viability", h.LoanViability)
	mux.HandleFunc("GET /v1/inflation", h.CurrentInflation)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

type viabilityRequest struct {
	Terms        viability.LoanTerms         `json:"terms"`
	Installments []viability.Installment     `json:"installments"`
	Inflation    []viability.InflationSample `json:"inflation"`
}

// ComputeViability scores loan terms posted in the body.
func (h *Handler) ComputeViability(w http.ResponseWriter, r *http.Request) {
	var body viabilityRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Terms.InstallmentCount <= 0 || !body.Terms.RequestedAmount.IsPositive() {
		writeError(w, http.StatusBadRequest, "terms.requestedAmount and terms.installmentCount must be greater than zero")
		return
	}
	if body.Terms.InstallmentCount > h.maxInstallments {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("terms.installmentCount must not exceed %d", h.maxInstallments))
		return
	}

	assessment, err := h.assessor.Evaluate(r.Context(), service.Request{
		Terms:        body.Terms,
		Installments: body.Installments,
		Inflation:    body.Inflation,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// LoanViability fetches a loan from the admin backend and scores it.
func (h *Handler) LoanViability(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.assessor.AssessLoan(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

type inflationResponse struct {
	Source                  string                      `json:"source"`
	AverageMonthlyInflation decimal.Decimal             `json:"averageMonthlyInflation"`
	Samples                 []viability.InflationSample `json:"samples"`
}

// CurrentInflation returns the series the scorer would use right now.
func (h *Handler) CurrentInflation(w http.ResponseWriter, r *http.Request) {
	series, err := h.assessor.Inflation(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	avg, err := viability.AverageInflation(series.Samples)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inflationResponse{
		Source:                  series.Source,
		AverageMonthlyInflation: avg,
		Samples:                 series.Samples,
	})
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *viability.InvalidInputError
	switch {
	case errors.As(err, &invalid):
		writeError(w, http.StatusBadRequest, invalid.Error())
	case errors.Is(err, fetcher.ErrLoanNotFound):
		writeError(w, http.StatusNotFound, "loan not found")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusBadGateway, "upstream failure")
	}
}

// LoggingMiddleware logs one line per request.
func LoggingMiddleware(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
