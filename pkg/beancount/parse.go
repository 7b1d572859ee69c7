package beancount

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/robinvdvleuten/beancount/ast"
	"github.com/robinvdvleuten/beancount/ledger"
	"github.com/robinvdvleuten/beancount/parser"
	"github.com/shopspring/decimal"
)

// loadFile reads and parses a ledger file into the typed entry model.
// Parse and validation diagnostics become warnings on the returned File;
// only I/O failures are returned as errors. An absent file decodes to an
// empty File so callers don't need an existence check of their own.
func loadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}
	return parseContent(data), nil
}

// parseContent parses raw ledger bytes. The external parser owns the
// grammar; validation runs afterwards so inferred posting amounts are
// filled in before decoding.
func parseContent(data []byte) *File {
	file := &File{}
	if len(data) == 0 {
		return file
	}

	tree, err := parser.ParseBytes(context.Background(), data)
	if err != nil {
		file.Warnings = append(file.Warnings, err.Error())
	}
	if tree == nil {
		return file
	}

	if err := ledger.New().Process(context.Background(), tree); err != nil {
		var verrs *ledger.ValidationErrors
		if errors.As(err, &verrs) {
			for _, verr := range verrs.Errors {
				file.Warnings = append(file.Warnings, verr.Error())
			}
		} else {
			file.Warnings = append(file.Warnings, err.Error())
		}
	}

	decodeAST(file, tree)
	return file
}

// decodeAST flattens the parser's AST into the tagged entry model,
// converting amounts to decimals exactly once.
func decodeAST(file *File, tree *ast.AST) {
	for _, option := range tree.Options {
		file.Options = append(file.Options, Option{Name: option.Name.String(), Value: option.Value.String()})
	}

	for _, directive := range tree.Directives {
		switch d := directive.(type) {
		case *ast.Transaction:
			file.Transactions = append(file.Transactions, decodeTransaction(d))
		case *ast.Open:
			file.Opens = append(file.Opens, Open{
				Date:       dateString(d.Date()),
				Account:    string(d.Account),
				Currencies: append([]string(nil), d.ConstraintCurrencies...),
			})
		case *ast.Close:
			file.Closes = append(file.Closes, Close{
				Date:    dateString(d.Date()),
				Account: string(d.Account),
			})
		case *ast.Balance:
			bal := Balance{Date: dateString(d.Date()), Account: string(d.Account)}
			if d.Amount != nil {
				bal.Amount, _ = decimal.NewFromString(d.Amount.Value)
				bal.Currency = d.Amount.Currency
			}
			file.Balances = append(file.Balances, bal)
		case *ast.Price:
			price := Price{Date: dateString(d.Date()), Commodity: d.Commodity}
			if d.Amount != nil {
				price.Amount, _ = decimal.NewFromString(d.Amount.Value)
				price.Currency = d.Amount.Currency
			}
			file.Prices = append(file.Prices, price)
		}
	}
}

func decodeTransaction(txn *ast.Transaction) Transaction {
	decoded := Transaction{
		Date:      dateString(txn.Date()),
		Flag:      txn.Flag,
		Payee:     txn.Payee.String(),
		Narration: txn.Narration.String(),
	}
	for _, posting := range txn.Postings {
		p := Posting{Account: string(posting.Account)}
		if posting.Amount != nil {
			amount, err := decimal.NewFromString(posting.Amount.Value)
			if err == nil {
				p.Amount = amount
				p.HasAmount = true
				p.Currency = posting.Amount.Currency
			}
		}
		decoded.Postings = append(decoded.Postings, p)
	}
	return decoded
}

func dateString(date *ast.Date) string {
	if date == nil {
		return ""
	}
	return date.String()
}
