package beancount

import "testing"

const parseFixture = `option "operating_currency" "USD"

2024-01-01 open Assets:Cash USD
2024-03-01 close Income:Side

2024-01-10 * "Coffee Shop" "Morning latte"
  Assets:Cash  -5.00 USD
  Expenses:Food  5.00 USD

2024-01-15 balance Assets:Cash -5.00 USD
2024-01-20 price USD 450 KZT
`

func TestParseContentDecodesDirectives(t *testing.T) {
	file := parseContent([]byte(parseFixture))

	if len(file.Options) != 1 {
		t.Errorf("got %d options, want 1", len(file.Options))
	}

	if len(file.Opens) != 1 {
		t.Fatalf("got %d opens, want 1", len(file.Opens))
	}
	if file.Opens[0].Date != "2024-01-01" || file.Opens[0].Account != "Assets:Cash" {
		t.Errorf("open = %+v", file.Opens[0])
	}

	if len(file.Closes) != 1 {
		t.Fatalf("got %d closes, want 1", len(file.Closes))
	}
	if file.Closes[0].Date != "2024-03-01" || file.Closes[0].Account != "Income:Side" {
		t.Errorf("close = %+v", file.Closes[0])
	}

	if len(file.Transactions) != 1 {
		t.Fatalf("got %d transactions, want 1", len(file.Transactions))
	}
	txn := file.Transactions[0]
	if txn.Date != "2024-01-10" {
		t.Errorf("transaction date = %q", txn.Date)
	}
	if txn.Payee != "Coffee Shop" || txn.Narration != "Morning latte" {
		t.Errorf("payee = %q, narration = %q", txn.Payee, txn.Narration)
	}
	if len(txn.Postings) != 2 {
		t.Fatalf("got %d postings, want 2", len(txn.Postings))
	}
	if txn.Postings[0].Account != "Assets:Cash" || !txn.Postings[0].HasAmount {
		t.Errorf("posting = %+v", txn.Postings[0])
	}
	if txn.Postings[0].Amount.String() != "-5" {
		t.Errorf("posting amount = %s", txn.Postings[0].Amount)
	}

	if len(file.Balances) != 1 {
		t.Fatalf("got %d balances, want 1", len(file.Balances))
	}
	if file.Balances[0].Date != "2024-01-15" || file.Balances[0].Account != "Assets:Cash" {
		t.Errorf("balance = %+v", file.Balances[0])
	}

	if len(file.Prices) != 1 {
		t.Fatalf("got %d prices, want 1", len(file.Prices))
	}
	if file.Prices[0].Date != "2024-01-20" || file.Prices[0].Commodity != "USD" {
		t.Errorf("price = %+v", file.Prices[0])
	}
}

func TestParseContentEmptyInput(t *testing.T) {
	file := parseContent(nil)
	if len(file.Transactions) != 0 || len(file.Warnings) != 0 {
		t.Errorf("empty input decoded to %+v", file)
	}
}
