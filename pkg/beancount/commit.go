package beancount

import (
	"fmt"
	"regexp"
)

// CommitResult reports the outcome of a commit attempt. On a failed commit
// ErrorLines holds one formatted diagnostic per validation error and the
// ledger file has been restored byte-for-byte.
type CommitResult struct {
	Committed  bool
	LedgerPath string
	ErrorLines []string
}

var (
	linenoPattern  = regexp.MustCompile(`lineno': (\d+)`)
	messagePattern = regexp.MustCompile(`message='([^']+)'`)
)

// CommitEntries appends the candidate entries to the user's ledger, then
// re-validates the whole file with the external parser. Any validation
// error rolls the file back to the pre-commit snapshot and is reported in
// the result; the entries are then not durable. The caller must serialize
// commits per user (the pending-entry status transition does this); within
// one attempt no reader of the same goroutine ever observes a
// half-applied state.
func (s *Service) CommitEntries(userID string, entries []string) (CommitResult, error) {
	snapshot, err := s.store.Snapshot(userID)
	if err != nil {
		return CommitResult{}, err
	}

	ledgerPath, err := s.store.AppendEntries(userID, entries)
	if err != nil {
		return CommitResult{}, err
	}

	file, err := loadFile(ledgerPath)
	if err != nil {
		// Unreadable after our own write; restore and surface the I/O error.
		if restoreErr := s.store.Restore(userID, snapshot); restoreErr != nil {
			return CommitResult{}, fmt.Errorf("validation read failed: %v, rollback failed: %w", err, restoreErr)
		}
		return CommitResult{}, err
	}

	if len(file.Warnings) > 0 {
		if err := s.store.Restore(userID, snapshot); err != nil {
			return CommitResult{}, fmt.Errorf("rollback after validation failure: %w", err)
		}
		errorLines := make([]string, 0, len(file.Warnings))
		for _, warning := range file.Warnings {
			errorLines = append(errorLines, FormatValidationError(warning))
		}
		return CommitResult{Committed: false, LedgerPath: ledgerPath, ErrorLines: errorLines}, nil
	}

	return CommitResult{Committed: true, LedgerPath: ledgerPath}, nil
}

// FormatValidationError reduces a raw validation error string to
// "Line <n>: <message>" when the line number and message are extractable,
// falling back to the raw text otherwise.
func FormatValidationError(errorText string) string {
	lineno := "?"
	if match := linenoPattern.FindStringSubmatch(errorText); match != nil {
		lineno = match[1]
	}

	message := errorText
	if match := messagePattern.FindStringSubmatch(errorText); match != nil {
		message = match[1]
	}

	return fmt.Sprintf("Line %s: %s", lineno, message)
}
