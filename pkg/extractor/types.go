// Package extractor turns bank statement files (PDF or image) into
// Beancount entries. The model extracts a structured statement; this
// package validates the account names against the user's ledger, resolves
// counterparty accounts through hints and transaction history, skips
// duplicates, and renders the surviving transactions as entries.
package extractor

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// StatementPeriod represents the covered date range of a statement.
type StatementPeriod struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// StatementTransaction represents one extracted transaction. Amount is
// signed relative to the ledger account: positive means money entering it.
type StatementTransaction struct {
	Date        string      `json:"date"`
	Description string      `json:"description"`
	Amount      json.Number `json:"amount"`
	Debit       string      `json:"debit"`
	Credit      string      `json:"credit"`
}

// BankStatement represents an extracted bank statement.
type BankStatement struct {
	Institution     string                 `json:"institution"`
	AccountHolder   string                 `json:"account_holder"`
	AccountNumber   string                 `json:"account_number"`
	Currency        string                 `json:"currency"`
	LedgerAccount   string                 `json:"ledger_account"`
	StatementPeriod StatementPeriod        `json:"statement_period"`
	OpeningBalance  json.Number            `json:"opening_balance"`
	ClosingBalance  json.Number            `json:"closing_balance"`
	Transactions    []StatementTransaction `json:"transactions"`
}

// ErrNoAccounts reports that the user's ledger declares no accounts, so
// statement transactions cannot be classified.
var ErrNoAccounts = errors.New("no ledger accounts available; cannot classify transactions")

// DisallowedAccountsError reports account names the model produced that do
// not exist in the user's ledger.
type DisallowedAccountsError struct {
	Accounts []string
}

func (e *DisallowedAccountsError) Error() string {
	sorted := append([]string(nil), e.Accounts...)
	sort.Strings(sorted)
	return fmt.Sprintf("model produced account names not present in the ledger: %s", strings.Join(sorted, ", "))
}
