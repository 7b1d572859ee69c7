package beancount

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/pathutil"
)

// Service exposes the ledger operations consumed by the orchestration
// layer. Every query re-parses the ledger file: the file is the single
// source of truth and no cache can diverge from it.
type Service struct {
	store *Store
}

// NewService creates a Service over the given path resolver.
func NewService(paths *pathutil.PathResolver) *Service {
	return &Service{store: NewStore(paths)}
}

// Store returns the underlying ledger store.
func (s *Service) Store() *Store {
	return s.store
}

// UserLedgerPath returns the ledger file path for a user.
func (s *Service) UserLedgerPath(userID string) string {
	return s.store.UserLedgerPath(userID)
}

// AppendEntries appends entry snippets to the user's ledger.
func (s *Service) AppendEntries(userID string, entries []string) (string, error) {
	return s.store.AppendEntries(userID, entries)
}

// SummarizeAccounts returns one balance line per account plus any parse
// warnings. Both slices are nil for an absent or empty ledger. Recoverable
// parse errors never abort the summary; the error return is reserved for
// I/O failures.
func (s *Service) SummarizeAccounts(userID string) ([]string, []string, error) {
	ledgerPath := s.store.UserLedgerPath(userID)
	if !s.ledgerHasContent(ledgerPath) {
		return nil, nil, nil
	}

	// Fix trailing-whitespace drift before parsing so the on-disk file
	// stays in canonical form for external readers.
	existing, err := s.store.readContent(ledgerPath)
	if err != nil {
		return nil, nil, err
	}
	if normalized := composeContent(existing, nil); normalized != existing {
		if err := os.WriteFile(ledgerPath, []byte(normalized), 0644); err != nil {
			return nil, nil, fmt.Errorf("failed to normalize ledger: %w", err)
		}
	}

	file, err := loadFile(ledgerPath)
	if err != nil {
		return nil, nil, err
	}

	balances := realizeBalances(file)
	accounts := sortedAccounts(file)

	lines := make([]string, 0, len(accounts))
	for _, account := range accounts {
		lines = append(lines, fmt.Sprintf("%s: %s", account, formatPositions(balances[account])))
	}
	return lines, file.Warnings, nil
}

// ListAccounts returns the sorted account names discovered in the user's
// ledger, or nil if the ledger is absent or empty.
func (s *Service) ListAccounts(userID string) ([]string, error) {
	ledgerPath := s.store.UserLedgerPath(userID)
	if !s.ledgerHasContent(ledgerPath) {
		return nil, nil
	}

	file, err := loadFile(ledgerPath)
	if err != nil {
		return nil, err
	}
	return sortedAccounts(file), nil
}

func (s *Service) ledgerHasContent(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// realizeBalances sums posting amounts per account and currency.
func realizeBalances(file *File) map[string]map[string]decimal.Decimal {
	balances := make(map[string]map[string]decimal.Decimal)
	for _, txn := range file.Transactions {
		for _, posting := range txn.Postings {
			if !posting.HasAmount || posting.Account == "" {
				continue
			}
			currencies, ok := balances[posting.Account]
			if !ok {
				currencies = make(map[string]decimal.Decimal)
				balances[posting.Account] = currencies
			}
			currencies[posting.Currency] = currencies[posting.Currency].Add(posting.Amount)
		}
	}
	return balances
}

// formatPositions renders the non-zero positions of one account sorted and
// comma separated, or "0" when the account holds nothing.
func formatPositions(currencies map[string]decimal.Decimal) string {
	var items []string
	for currency, amount := range currencies {
		if amount.IsZero() {
			continue
		}
		items = append(items, fmt.Sprintf("%s %s", amount.String(), currency))
	}
	if len(items) == 0 {
		return "0"
	}
	sort.Strings(items)
	return strings.Join(items, ", ")
}

func sortedAccounts(file *File) []string {
	set := file.Accounts()
	accounts := make([]string, 0, len(set))
	for account := range set {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)
	return accounts
}
