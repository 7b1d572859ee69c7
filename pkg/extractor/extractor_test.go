package extractor

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/hints"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/pathutil"
)

const testLedger = `option "operating_currency" "USD"

2024-01-01 open Assets:Bank:Checking USD
2024-01-01 open Assets:Cash USD
2024-01-01 open Expenses:Food USD
2024-01-01 open Expenses:Health:Gym USD
2024-01-01 open Income:Salary USD

2024-01-10 * "Coffee Shop" "Morning latte"
  Assets:Bank:Checking  -5.00 USD
  Expenses:Food          5.00 USD
`

func newTestExtractor(t *testing.T, hintMapper *hints.Mapper) (*Extractor, *beancount.Service) {
	t.Helper()
	paths := pathutil.New(pathutil.Config{LedgerRoot: t.TempDir()})
	service := beancount.NewService(paths)

	path := service.UserLedgerPath("user")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(testLedger), 0644); err != nil {
		t.Fatal(err)
	}

	extractor := New(nil, service, hintMapper, nil)
	extractor.now = func() time.Time {
		return time.Date(2024, 2, 15, 10, 30, 0, 0, time.UTC)
	}
	return extractor, service
}

func TestValidateStatement(t *testing.T) {
	allowed := []string{"Assets:Bank:Checking", "Expenses:Food", "Income:Salary"}

	valid := &BankStatement{
		LedgerAccount: "Assets:Bank:Checking",
		Currency:      "USD",
		Transactions: []StatementTransaction{
			{Date: "2024-02-01", Description: "Coffee", Amount: "-5.00", Debit: "Assets:Bank:Checking", Credit: "Expenses:Food"},
			{Date: "2024-02-02", Description: "Salary", Amount: "1000", Debit: "Income:Salary", Credit: "Assets:Bank:Checking"},
		},
	}
	if err := validateStatement(valid, allowed); err != nil {
		t.Errorf("validateStatement() on valid statement = %v", err)
	}

	t.Run("unknown account", func(t *testing.T) {
		statement := &BankStatement{
			LedgerAccount: "Assets:Bank:Checking",
			Transactions: []StatementTransaction{
				{Date: "2024-02-01", Amount: "-5.00", Debit: "Assets:Bank:Checking", Credit: "Expenses:Mystery"},
			},
		}
		err := validateStatement(statement, allowed)
		var disallowed *DisallowedAccountsError
		if !errors.As(err, &disallowed) {
			t.Fatalf("error = %v, want DisallowedAccountsError", err)
		}
		if len(disallowed.Accounts) != 1 || disallowed.Accounts[0] != "Expenses:Mystery" {
			t.Errorf("Accounts = %v, want [Expenses:Mystery]", disallowed.Accounts)
		}
	})

	t.Run("wrong orientation", func(t *testing.T) {
		statement := &BankStatement{
			LedgerAccount: "Assets:Bank:Checking",
			Transactions: []StatementTransaction{
				{Date: "2024-02-01", Amount: "-5.00", Debit: "Expenses:Food", Credit: "Assets:Bank:Checking"},
			},
		}
		if err := validateStatement(statement, allowed); err == nil {
			t.Error("negative amount not debiting the ledger account passed validation")
		}
	})
}

func TestResolveCounterAccount(t *testing.T) {
	ledger := "Assets:Bank:Checking"

	tests := []struct {
		name    string
		txn     StatementTransaction
		amount  string
		want    string
		wantErr bool
	}{
		{
			"negative takes credit side",
			StatementTransaction{Debit: ledger, Credit: "Expenses:Food"},
			"-5.00", "Expenses:Food", false,
		},
		{
			"positive takes debit side",
			StatementTransaction{Debit: "Income:Salary", Credit: ledger},
			"1000", "Income:Salary", false,
		},
		{
			"falls back when hint repeats ledger",
			StatementTransaction{Debit: "Expenses:Food", Credit: ledger},
			"-5.00", "Expenses:Food", false,
		},
		{
			"no usable counter",
			StatementTransaction{Debit: ledger, Credit: ledger},
			"-5.00", "", true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, _ := decimal.NewFromString(tt.amount)
			got, err := resolveCounterAccount(ledger, tt.txn, amount)
			if (err != nil) != tt.wantErr {
				t.Fatalf("resolveCounterAccount() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("resolveCounterAccount() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"5.00", "5"},
		{"-37.50", "-37.5"},
		{"0.00", "0"},
		{"1234.56", "1234.56"},
	}

	for _, tt := range tests {
		amount, err := decimal.NewFromString(tt.in)
		if err != nil {
			t.Fatal(err)
		}
		if got := formatDecimal(amount); got != tt.want {
			t.Errorf("formatDecimal(%s) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeDescription(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Coffee Shop", "Coffee Shop"},
		{"line\nbreak", "line break"},
		{`He said "hi"`, "He said 'hi'"},
		{"  padded  ", "padded"},
	}

	for _, tt := range tests {
		if got := sanitizeDescription(tt.in); got != tt.want {
			t.Errorf("sanitizeDescription(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRenderEntry(t *testing.T) {
	statement := &BankStatement{LedgerAccount: "Assets:Bank:Checking", Currency: "USD"}
	txn := StatementTransaction{Date: "2024-02-01", Description: "Coffee Shop"}
	amount, _ := decimal.NewFromString("-5.00")

	got := renderEntry(statement, txn, "Assets:Bank:Checking", "Expenses:Food", amount)
	want := "2024-02-01 * \"Coffee Shop\"\n" +
		"  Assets:Bank:Checking  -5 USD\n" +
		"  Expenses:Food  5 USD"
	if got != want {
		t.Errorf("renderEntry() = %q, want %q", got, want)
	}
}

func TestGenerateEntries(t *testing.T) {
	extractor, _ := newTestExtractor(t, nil)

	statement := &BankStatement{
		LedgerAccount: "Assets:Bank:Checking",
		Currency:      "USD",
		Transactions: []StatementTransaction{
			// Already in the ledger on the same date with the same amount.
			{Date: "2024-01-10", Description: "Coffee Shop", Amount: "-5.00", Debit: "Assets:Bank:Checking", Credit: "Expenses:Food"},
			{Date: "2024-02-01", Description: "Zero fee", Amount: "0", Debit: "Assets:Bank:Checking", Credit: "Expenses:Food"},
			{Date: "2024-02-02", Description: "Coffee Shop", Amount: "-20.00", Debit: "Assets:Bank:Checking", Credit: "Expenses:Food"},
		},
	}

	entries, added, skipped, err := extractor.GenerateEntries(statement, "user", "statement.pdf")
	if err != nil {
		t.Fatalf("GenerateEntries() error = %v", err)
	}
	if added != 1 || skipped != 2 {
		t.Errorf("added = %d, skipped = %d, want 1 and 2", added, skipped)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want heading plus one entry", len(entries))
	}
	if entries[0] != "; =========== import statement.pdf at 2024-02-15 10:30:00 ===========" {
		t.Errorf("heading = %q", entries[0])
	}
	if !strings.Contains(entries[1], "-20 USD") {
		t.Errorf("entry = %q, want the new transaction", entries[1])
	}
}

func TestGenerateEntriesAllSkipped(t *testing.T) {
	extractor, _ := newTestExtractor(t, nil)

	statement := &BankStatement{
		LedgerAccount: "Assets:Bank:Checking",
		Currency:      "USD",
		Transactions: []StatementTransaction{
			{Date: "2024-01-10", Description: "Coffee Shop", Amount: "-5.00", Debit: "Assets:Bank:Checking", Credit: "Expenses:Food"},
		},
	}

	entries, added, skipped, err := extractor.GenerateEntries(statement, "user", "statement.pdf")
	if err != nil {
		t.Fatalf("GenerateEntries() error = %v", err)
	}
	if len(entries) != 0 || added != 0 || skipped != 1 {
		t.Errorf("entries = %v, added = %d, skipped = %d; want no heading when nothing is new", entries, added, skipped)
	}
}

func TestGenerateEntriesHintOverride(t *testing.T) {
	mapper, err := hints.Parse([]byte("hints:\n  - keyword: gym\n    account: Expenses:Health:Gym\n"))
	if err != nil {
		t.Fatal(err)
	}
	extractor, _ := newTestExtractor(t, mapper)

	statement := &BankStatement{
		LedgerAccount: "Assets:Bank:Checking",
		Currency:      "USD",
		Transactions: []StatementTransaction{
			{Date: "2024-02-03", Description: "Gym membership", Amount: "-30.00", Debit: "Assets:Bank:Checking", Credit: "Expenses:Food"},
		},
	}

	entries, added, _, err := extractor.GenerateEntries(statement, "user", "statement.pdf")
	if err != nil {
		t.Fatalf("GenerateEntries() error = %v", err)
	}
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}
	if !strings.Contains(entries[1], "Expenses:Health:Gym") {
		t.Errorf("entry = %q, want hint account to win", entries[1])
	}
}

func TestGenerateEntriesIgnoresHintForUnknownAccount(t *testing.T) {
	mapper, err := hints.Parse([]byte("hints:\n  - keyword: gym\n    account: Expenses:Retired:Gym\n"))
	if err != nil {
		t.Fatal(err)
	}
	extractor, _ := newTestExtractor(t, mapper)

	statement := &BankStatement{
		LedgerAccount: "Assets:Bank:Checking",
		Currency:      "USD",
		Transactions: []StatementTransaction{
			{Date: "2024-02-03", Description: "Gym membership", Amount: "-30.00", Debit: "Assets:Bank:Checking", Credit: "Expenses:Food"},
		},
	}

	entries, added, _, err := extractor.GenerateEntries(statement, "user", "statement.pdf")
	if err != nil {
		t.Fatalf("GenerateEntries() error = %v", err)
	}
	if added != 1 {
		t.Fatalf("added = %d, want 1", added)
	}
	if strings.Contains(entries[1], "Expenses:Retired:Gym") {
		t.Errorf("entry = %q, hint for an unopened account must not apply", entries[1])
	}
	if !strings.Contains(entries[1], "Expenses:Food") {
		t.Errorf("entry = %q, want the model's counter account kept", entries[1])
	}
}

func TestBuildPromptBlocks(t *testing.T) {
	extractor, _ := newTestExtractor(t, nil)

	prompt := extractor.buildPrompt("Assets:Cash: 10 USD", []string{"Assets:Cash"}, nil, "statement is from January")
	if !strings.Contains(prompt, "No prior transactions found") {
		t.Error("prompt missing empty-history fallback")
	}
	if !strings.Contains(prompt, "Additional user note: statement is from January") {
		t.Error("prompt missing user note")
	}
	if !strings.Contains(prompt, "assume the year is 2024") {
		t.Error("prompt missing reference year")
	}
}
