// Package beancount implements the ledger core of the bookkeeping bot:
// per-user append-only ledger files, account and balance summaries,
// transaction-history mining for counter-account suggestions, duplicate
// posting detection, and a snapshot/validate/rollback commit workflow.
//
// Parsing and semantic validation of the Beancount grammar are delegated to
// the external parser; this package decodes its AST once into the typed
// entry model below and never touches parser types outside parse.go.
package beancount

import "github.com/shopspring/decimal"

// Posting is one leg of a transaction.
type Posting struct {
	Account   string
	Amount    decimal.Decimal
	HasAmount bool // false when the parser left the amount to be inferred
	Currency  string
}

// Transaction is a dated, flagged group of postings.
type Transaction struct {
	Date      string // YYYY-MM-DD
	Flag      string // "*" confirmed, "!" uncertain
	Payee     string
	Narration string
	Postings  []Posting
}

// Description returns the payee if present, otherwise the narration.
func (t Transaction) Description() string {
	if t.Payee != "" {
		return t.Payee
	}
	return t.Narration
}

// Open declares an account opening.
type Open struct {
	Date       string
	Account    string
	Currencies []string
}

// Close declares an account closing.
type Close struct {
	Date    string
	Account string
}

// Balance asserts an account balance at a date.
type Balance struct {
	Date     string
	Account  string
	Amount   decimal.Decimal
	Currency string
}

// Price declares the price of a commodity in another currency.
type Price struct {
	Date      string
	Commodity string
	Amount    decimal.Decimal
	Currency  string
}

// Option is a ledger-wide option directive.
type Option struct {
	Name  string
	Value string
}

// File is a user ledger decoded into typed entries. Warnings carries
// stringified parse and validation diagnostics; a File with warnings still
// exposes whatever entries could be recovered.
type File struct {
	Transactions []Transaction
	Opens        []Open
	Closes       []Close
	Balances     []Balance
	Prices       []Price
	Options      []Option
	Warnings     []string
}

// Accounts returns every account name referenced by directives or postings.
func (f *File) Accounts() map[string]struct{} {
	accounts := make(map[string]struct{})
	for _, open := range f.Opens {
		accounts[open.Account] = struct{}{}
	}
	for _, cl := range f.Closes {
		accounts[cl.Account] = struct{}{}
	}
	for _, bal := range f.Balances {
		accounts[bal.Account] = struct{}{}
	}
	for _, txn := range f.Transactions {
		for _, posting := range txn.Postings {
			if posting.Account != "" {
				accounts[posting.Account] = struct{}{}
			}
		}
	}
	return accounts
}
