package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAdminFetchLoan(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/loans/L-1":
			_, _ = w.Write([]byte(`{"id":"L-1","requestedAmount":1000000,"approvedAmount":950000,"installmentAmount":100000,"installmentCount":12,"createdAt":"2024-10-01T12:00:00Z"}`))
		case "/loans/L-1/installments":
			_, _ = w.Write([]byte(`{"data":[
				{"number":1,"originalAmount":100000,"currentAmount":100000,"dueDate":"2024-11-01","paymentDate":"2024-11-03","daysLate":2},
				{"number":2,"originalAmount":100000,"currentAmount":101500,"dueDate":"2024-12-01","paymentDate":null,"daysLate":null}
			]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	a := NewAdmin(AdminOptions{BaseURL: srv.URL, Token: "secret", Timeout: time.Second}, noopLogger())
	loan, err := a.FetchLoan(context.Background(), "L-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !loan.Terms.RequestedAmount.Equal(decimal.NewFromInt(10000)) {
		t.Fatalf("cents should convert to units, got %s", loan.Terms.RequestedAmount)
	}
	if !loan.Terms.ApprovedAmount.Equal(decimal.NewFromInt(9500)) {
		t.Fatalf("unexpected approved amount %s", loan.Terms.ApprovedAmount)
	}
	if loan.Terms.InstallmentCount != 12 {
		t.Fatalf("unexpected installment count %d", loan.Terms.InstallmentCount)
	}
	if len(loan.Installments) != 2 {
		t.Fatalf("expected 2 installments, got %d", len(loan.Installments))
	}
	if !loan.Installments[0].Paid() || loan.Installments[1].Paid() {
		t.Fatal("payment dates were not mapped")
	}
	if !loan.Installments[1].CurrentAmount.Equal(decimal.RequireFromString("1015")) {
		t.Fatalf("unexpected current amount %s", loan.Installments[1].CurrentAmount)
	}
}

func TestAdminFetchLoanNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := NewAdmin(AdminOptions{BaseURL: srv.URL, Timeout: time.Second}, noopLogger())
	_, err := a.FetchLoan(context.Background(), "missing")
	if !errors.Is(err, ErrLoanNotFound) {
		t.Fatalf("expected ErrLoanNotFound, got %v", err)
	}
}

func TestAdminMissingConfig(t *testing.T) {
	a := NewAdmin(AdminOptions{}, noopLogger())
	if _, err := a.FetchLoan(context.Background(), "L-1"); err == nil {
		t.Fatal("missing base url should return an error")
	}
}
