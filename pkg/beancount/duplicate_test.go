package beancount

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestPostingExists(t *testing.T) {
	service := newTestService(t)
	writeLedger(t, service, "user", sampleLedger)

	tests := []struct {
		name     string
		account  string
		amount   string
		currency string
		date     string
		want     bool
	}{
		{"exact posting", "Assets:Bank:Checking", "-5.00", "USD", "2024-01-10", true},
		{"negated amount matches", "Assets:Bank:Checking", "5.00", "USD", "2024-01-10", true},
		{"no date filter", "Assets:Bank:Checking", "-7.00", "USD", "", true},
		{"no currency filter", "Assets:Cash", "-4.00", "", "", true},
		{"wrong date", "Assets:Bank:Checking", "-5.00", "USD", "2024-01-11", false},
		{"wrong currency", "Assets:Bank:Checking", "-5.00", "EUR", "2024-01-10", false},
		{"wrong amount", "Assets:Bank:Checking", "-6.00", "USD", "2024-01-10", false},
		{"wrong account", "Assets:Cash", "-5.00", "USD", "2024-01-10", false},
		{"counterparty side", "Expenses:Food", "-5.00", "USD", "2024-01-10", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.PostingExists("user", tt.account, mustDecimal(t, tt.amount), tt.currency, tt.date)
			if err != nil {
				t.Fatalf("PostingExists() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("PostingExists(%s, %s, %s, %s) = %v, want %v",
					tt.account, tt.amount, tt.currency, tt.date, got, tt.want)
			}
		})
	}
}

func TestPostingExistsAbsentLedger(t *testing.T) {
	service := newTestService(t)

	got, err := service.PostingExists("user", "Assets:Cash", decimal.NewFromInt(5), "USD", "")
	if err != nil {
		t.Fatalf("PostingExists() error = %v", err)
	}
	if got {
		t.Error("PostingExists() on absent ledger = true, want false")
	}
}
