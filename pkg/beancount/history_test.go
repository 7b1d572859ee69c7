package beancount

import (
	"reflect"
	"strings"
	"testing"
)

func TestHistoryRecords(t *testing.T) {
	service := newTestService(t)
	writeLedger(t, service, "user", sampleLedger)

	records, err := service.HistoryRecords("user")
	if err != nil {
		t.Fatalf("HistoryRecords() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("HistoryRecords() returned %d records, want 2", len(records))
	}

	coffee, ok := records["coffee shop"]
	if !ok {
		t.Fatal("missing record for key \"coffee shop\"")
	}
	if coffee.Seen != 3 {
		t.Errorf("coffee shop Seen = %d, want 3", coffee.Seen)
	}
	if coffee.LastDate != "2024-01-20" {
		t.Errorf("coffee shop LastDate = %q, want 2024-01-20", coffee.LastDate)
	}
	wantPairs := map[AccountPair]int{
		{Ledger: "Assets:Bank:Checking", Counter: "Expenses:Food"}: 2,
		{Ledger: "Assets:Cash", Counter: "Expenses:Food"}:          1,
	}
	if !reflect.DeepEqual(coffee.PairCounts, wantPairs) {
		t.Errorf("coffee shop PairCounts = %v, want %v", coffee.PairCounts, wantPairs)
	}

	if _, ok := records["acme corp"]; !ok {
		t.Error("missing record for key \"acme corp\"")
	}
}

func TestHistoryRecordsAbsentLedger(t *testing.T) {
	service := newTestService(t)

	records, err := service.HistoryRecords("user")
	if err != nil {
		t.Fatalf("HistoryRecords() error = %v", err)
	}
	if len(records) != 0 {
		t.Errorf("HistoryRecords() on absent ledger = %v, want empty", records)
	}
}

func TestNormalizeDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Coffee Shop", "coffee shop"},
		{"  COFFEE   Shop\t", "coffee shop"},
		{"", ""},
		{"   ", ""},
	}

	for _, tt := range tests {
		if got := NormalizeDescription(tt.in); got != tt.want {
			t.Errorf("NormalizeDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchKeys(t *testing.T) {
	candidates := []string{"acme corp", "coffee shop", "coffee shop downtown"}

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{"exact wins over substring", "coffee shop", []string{"coffee shop"}},
		{"substring both directions", "shop", []string{"coffee shop", "coffee shop downtown"}},
		{"query contains candidate", "acme corp payroll", []string{"acme corp"}},
		{"fuzzy within cutoff", "coffee shap", []string{"coffee shop"}},
		{"no match", "utility bill", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchKeys(tt.query, candidates)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("matchKeys(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"same", "same", 1},
		{"abcd", "abce", 0.75},
	}

	for _, tt := range tests {
		if got := similarity(tt.a, tt.b); got != tt.want {
			t.Errorf("similarity(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestSelectTopPair(t *testing.T) {
	record := &HistoryRecord{
		Description: "Coffee Shop",
		PairCounts: map[AccountPair]int{
			{Ledger: "Assets:Bank:Checking", Counter: "Expenses:Food"}:   5,
			{Ledger: "Assets:Cash", Counter: "Expenses:Food"}:            2,
			{Ledger: "Assets:Cash", Counter: "Expenses:Entertainment"}:   1,
		},
	}

	t.Run("no preference picks most frequent", func(t *testing.T) {
		pair, count := selectTopPair(record, "")
		want := AccountPair{Ledger: "Assets:Bank:Checking", Counter: "Expenses:Food"}
		if pair != want || count != 5 {
			t.Errorf("selectTopPair() = (%v, %d), want (%v, 5)", pair, count, want)
		}
	})

	t.Run("preferred ledger overrides frequency", func(t *testing.T) {
		pair, count := selectTopPair(record, "Assets:Cash")
		want := AccountPair{Ledger: "Assets:Cash", Counter: "Expenses:Food"}
		if pair != want || count != 2 {
			t.Errorf("selectTopPair() = (%v, %d), want (%v, 2)", pair, count, want)
		}
	})

	t.Run("unknown preference falls back", func(t *testing.T) {
		pair, count := selectTopPair(record, "Liabilities:CreditCard")
		want := AccountPair{Ledger: "Assets:Bank:Checking", Counter: "Expenses:Food"}
		if pair != want || count != 5 {
			t.Errorf("selectTopPair() = (%v, %d), want (%v, 5)", pair, count, want)
		}
	})

	t.Run("empty record", func(t *testing.T) {
		if pair, count := selectTopPair(nil, ""); pair != (AccountPair{}) || count != 0 {
			t.Errorf("selectTopPair(nil) = (%v, %d), want zero values", pair, count)
		}
	})
}

func TestSuggestCounterAccount(t *testing.T) {
	service := newTestService(t)
	writeLedger(t, service, "user", sampleLedger)

	tests := []struct {
		name          string
		description   string
		ledgerAccount string
		minCount      int
		want          string
	}{
		{"exact description", "Coffee Shop", "", 1, "Expenses:Food"},
		{"case and spacing ignored", "  COFFEE   shop ", "", 1, "Expenses:Food"},
		{"preferred ledger account", "Coffee Shop", "Assets:Cash", 1, "Expenses:Food"},
		{"min count filters rare pairs", "Coffee Shop", "", 3, ""},
		{"unknown description", "Utility Bill", "", 1, ""},
		{"empty description", "   ", "", 1, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := service.SuggestCounterAccount("user", tt.description, tt.ledgerAccount, tt.minCount, nil)
			if err != nil {
				t.Fatalf("SuggestCounterAccount() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("SuggestCounterAccount() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSuggestCounterAccountPrebuiltHistory(t *testing.T) {
	service := newTestService(t)

	history := map[string]*HistoryRecord{
		"coffee shop": {
			Description: "Coffee Shop",
			PairCounts: map[AccountPair]int{
				{Ledger: "Assets:Cash", Counter: "Expenses:Food"}: 4,
			},
			Seen: 4,
		},
	}

	got, err := service.SuggestCounterAccount("user", "Coffee Shop", "", 1, history)
	if err != nil {
		t.Fatalf("SuggestCounterAccount() error = %v", err)
	}
	if got != "Expenses:Food" {
		t.Errorf("SuggestCounterAccount() = %q, want Expenses:Food", got)
	}
}

func TestSuggestCounterAccountTieBreakIsDeterministic(t *testing.T) {
	service := newTestService(t)

	// Both keys match "coffee" by substring with the same count; the
	// lexicographically first key must win every time.
	history := map[string]*HistoryRecord{
		"coffee shop": {
			Description: "Coffee Shop",
			PairCounts: map[AccountPair]int{
				{Ledger: "Assets:Cash", Counter: "Expenses:Food"}: 2,
			},
			Seen: 2,
		},
		"coffee bar": {
			Description: "Coffee Bar",
			PairCounts: map[AccountPair]int{
				{Ledger: "Assets:Cash", Counter: "Expenses:Drinks"}: 2,
			},
			Seen: 2,
		},
	}

	for i := 0; i < 10; i++ {
		got, err := service.SuggestCounterAccount("user", "coffee", "", 1, history)
		if err != nil {
			t.Fatalf("SuggestCounterAccount() error = %v", err)
		}
		if got != "Expenses:Drinks" {
			t.Fatalf("SuggestCounterAccount() = %q, want Expenses:Drinks", got)
		}
	}
}

func TestTransactionHistorySummary(t *testing.T) {
	service := newTestService(t)
	writeLedger(t, service, "user", sampleLedger)

	lines, err := service.TransactionHistorySummary("user", 0)
	if err != nil {
		t.Fatalf("TransactionHistorySummary() error = %v", err)
	}
	want := []string{
		`- "Coffee Shop" -> Assets:Bank:Checking vs Expenses:Food (last 2024-01-20, seen 3x; top pair 2x)`,
		`- "ACME Corp" -> Assets:Bank:Checking vs Income:Salary (last 2024-01-15, seen 1x; top pair 1x)`,
	}
	if !reflect.DeepEqual(lines, want) {
		t.Errorf("TransactionHistorySummary() = %v, want %v", lines, want)
	}
}

func TestTransactionHistorySummaryLimit(t *testing.T) {
	service := newTestService(t)
	writeLedger(t, service, "user", sampleLedger)

	lines, err := service.TransactionHistorySummary("user", 1)
	if err != nil {
		t.Fatalf("TransactionHistorySummary() error = %v", err)
	}
	if len(lines) != 1 {
		t.Fatalf("TransactionHistorySummary() returned %d lines, want 1", len(lines))
	}
	if !strings.Contains(lines[0], "Coffee Shop") {
		t.Errorf("most recent line = %q, want the newest description first", lines[0])
	}
}
