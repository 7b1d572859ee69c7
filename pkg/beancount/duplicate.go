package beancount

import "github.com/shopspring/decimal"

// PostingExists reports whether a posting equivalent to the candidate is
// already in the user's ledger. A posting matches when its account equals
// accountName, its currency equals currency (when given), its transaction
// date equals date (when given), and its quantity equals amount or its
// negation. The sign symmetry catches the same economic event recorded
// from either side; comparison is exact decimal, no tolerance.
//
// Description and counterparty are deliberately ignored, trading
// false-negative risk for zero false positives on the
// (account, date, |amount|) tuple.
func (s *Service) PostingExists(userID, accountName string, amount decimal.Decimal, currency, date string) (bool, error) {
	ledgerPath := s.store.UserLedgerPath(userID)
	if !s.ledgerHasContent(ledgerPath) {
		return false, nil
	}

	file, err := loadFile(ledgerPath)
	if err != nil {
		return false, err
	}

	negated := amount.Neg()
	for _, txn := range file.Transactions {
		if date != "" && txn.Date != date {
			continue
		}
		for _, posting := range txn.Postings {
			if posting.Account != accountName || !posting.HasAmount {
				continue
			}
			if currency != "" && posting.Currency != currency {
				continue
			}
			if posting.Amount.Equal(amount) || posting.Amount.Equal(negated) {
				return true, nil
			}
		}
	}
	return false, nil
}
