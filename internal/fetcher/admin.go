package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"loan-viability/internal/viability"
)

// AdminOptions parameterise the admin backend client.
type AdminOptions struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
}

// Admin fetches loan records from the wallet admin backend.
type Admin struct {
	opts    AdminOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

// NewAdmin constructs an admin backend client.
func NewAdmin(opts AdminOptions, logger zerolog.Logger) *Admin {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Admin{
		opts:    opts,
		logger:  logger.With().Str("component", "admin_fetcher").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
	}
}

// FetchLoan loads the loan terms and its installments. Money arrives in cents.
func (a *Admin) FetchLoan(ctx context.Context, id string) (Loan, error) {
	if a.baseURL == "" {
		return Loan{}, fmt.Errorf("admin base url not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Loan{}, fmt.Errorf("loan id is required")
	}

	var record loanPayload
	if err := a.getJSON(ctx, "/loans/"+url.PathEscape(id), &record); err != nil {
		return Loan{}, fmt.Errorf("fetch loan %s: %w", id, err)
	}

	var inst installmentsPayload
	if err := a.getJSON(ctx, "/loans/"+url.PathEscape(id)+"/installments", &inst); err != nil {
		return Loan{}, fmt.Errorf("fetch installments for loan %s: %w", id, err)
	}

	terms, err := record.terms()
	if err != nil {
		return Loan{}, fmt.Errorf("decode loan %s: %w", id, err)
	}

	installments := make([]viability.Installment, 0, len(inst.Data))
	for _, row := range inst.Data {
		installment, err := row.installment()
		if err != nil {
			return Loan{}, fmt.Errorf("decode installment %d of loan %s: %w", row.Number, id, err)
		}
		installments = append(installments, installment)
	}

	a.logger.Debug().Str("loan_id", id).Int("installments", len(installments)).Msg("loan fetched")
	return Loan{ID: id, Terms: terms, Installments: installments}, nil
}

func (a *Admin) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if a.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.opts.Token)
	}
	if ua := strings.TrimSpace(a.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "loanviability/1.0")
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrLoanNotFound
	case resp.StatusCode != http.StatusOK:
		msg := strings.TrimSpace(string(payload))
		if msg == "" {
			return fmt.Errorf("admin api error (%d)", resp.StatusCode)
		}
		return fmt.Errorf("admin api error (%d): %s", resp.StatusCode, msg)
	}

	return json.Unmarshal(payload, out)
}

type loanPayload struct {
	ID                string `json:"id"`
	RequestedAmount   int64  `json:"requestedAmount"`
	ApprovedAmount    int64  `json:"approvedAmount"`
	InstallmentAmount int64  `json:"installmentAmount"`
	InstallmentCount  int    `json:"installmentCount"`
	CreatedAt         string `json:"createdAt"`
}

func (p loanPayload) terms() (viability.LoanTerms, error) {
	createdAt, err := parseAdminTime(p.CreatedAt)
	if err != nil {
		return viability.LoanTerms{}, fmt.Errorf("createdAt: %w", err)
	}
	return viability.LoanTerms{
		RequestedAmount:   centsToUnits(p.RequestedAmount),
		ApprovedAmount:    centsToUnits(p.ApprovedAmount),
		InstallmentAmount: centsToUnits(p.InstallmentAmount),
		InstallmentCount:  p.InstallmentCount,
		CreatedAt:         createdAt,
	}, nil
}

type installmentsPayload struct {
	Data []installmentPayload `json:"data"`
}

type installmentPayload struct {
	Number         int     `json:"number"`
	OriginalAmount int64   `json:"originalAmount"`
	CurrentAmount  int64   `json:"currentAmount"`
	DueDate        string  `json:"dueDate"`
	PaymentDate    *string `json:"paymentDate"`
	DaysLate       *int    `json:"daysLate"`
}

func (p installmentPayload) installment() (viability.Installment, error) {
	due, err := parseAdminTime(p.DueDate)
	if err != nil {
		return viability.Installment{}, fmt.Errorf("dueDate: %w", err)
	}

	inst := viability.Installment{
		SequenceNumber: p.Number,
		OriginalAmount: centsToUnits(p.OriginalAmount),
		CurrentAmount:  centsToUnits(p.CurrentAmount),
		DueDate:        due,
		DaysLate:       p.DaysLate,
	}
	if p.PaymentDate != nil && strings.TrimSpace(*p.PaymentDate) != "" {
		paid, err := parseAdminTime(*p.PaymentDate)
		if err != nil {
			return viability.Installment{}, fmt.Errorf("paymentDate: %w", err)
		}
		inst.PaymentDate = &paid
	}
	return inst, nil
}

func centsToUnits(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func parseAdminTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.DateOnly, v)
}

var _ LoanFetcher = (*Admin)(nil)
