package beancount

import (
	"fmt"
	"os"
	"strings"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/pathutil"
)

// Store owns the append-only plain-text ledger file of each user.
// Files are only ever appended to; the single exception is idempotent
// trailing-whitespace normalization, which leaves every prior directive
// byte-for-byte equivalent in a re-parse.
type Store struct {
	paths *pathutil.PathResolver
}

// NewStore creates a Store rooted at the resolver's ledger root.
func NewStore(paths *pathutil.PathResolver) *Store {
	return &Store{paths: paths}
}

// UserLedgerPath returns the deterministic per-user ledger file path.
func (s *Store) UserLedgerPath(userID string) string {
	return s.paths.UserLedgerPath(userID)
}

// AppendEntries normalizes the given entry snippets and appends them to the
// user's ledger, creating the file and parent directories on first use.
// An empty entry list only normalizes trailing whitespace of the existing
// content. Identical entries appended twice produce two copies; duplicate
// detection is the caller's job.
func (s *Store) AppendEntries(userID string, entries []string) (string, error) {
	ledgerPath := s.UserLedgerPath(userID)
	if err := s.paths.EnsureParentDir(ledgerPath); err != nil {
		return "", fmt.Errorf("failed to ensure ledger directory: %w", err)
	}

	var cleaned []string
	for _, entry := range entries {
		if strings.TrimSpace(entry) == "" {
			continue
		}
		cleaned = append(cleaned, normalizeEntry(entry))
	}

	existing, err := s.readContent(ledgerPath)
	if err != nil {
		return "", err
	}

	final := composeContent(existing, cleaned)
	if err := os.WriteFile(ledgerPath, []byte(final), 0644); err != nil {
		return "", fmt.Errorf("failed to write ledger: %w", err)
	}
	return ledgerPath, nil
}

// Snapshot returns the current ledger content verbatim, or the empty string
// if the file does not exist.
func (s *Store) Snapshot(userID string) (string, error) {
	return s.readContent(s.UserLedgerPath(userID))
}

// Restore overwrites the user's ledger with a previously taken snapshot.
func (s *Store) Restore(userID, snapshot string) error {
	ledgerPath := s.UserLedgerPath(userID)
	if err := s.paths.EnsureParentDir(ledgerPath); err != nil {
		return fmt.Errorf("failed to ensure ledger directory: %w", err)
	}
	if err := os.WriteFile(ledgerPath, []byte(snapshot), 0644); err != nil {
		return fmt.Errorf("failed to restore ledger: %w", err)
	}
	return nil
}

func (s *Store) readContent(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read ledger: %w", err)
	}
	return string(data), nil
}

// normalizeEntry strips outer whitespace and the trailing whitespace of
// every line while preserving indentation, which is significant for
// postings.
func normalizeEntry(entry string) string {
	lines := strings.Split(strings.TrimSpace(entry), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.Join(lines, "\n")
}

func ensureTrailingNewline(content string) string {
	if strings.HasSuffix(content, "\n") {
		return content
	}
	return content + "\n"
}

// composeContent joins existing ledger content with new entries using a
// blank-line separator and guarantees a single trailing newline. With no
// new entries it only normalizes trailing whitespace.
func composeContent(existing string, newEntries []string) string {
	if len(newEntries) == 0 {
		if existing == "" {
			return ""
		}
		return ensureTrailingNewline(strings.TrimRight(existing, "\n"))
	}

	existingNormalized := strings.TrimRight(existing, " \t\r\n")
	trimmed := make([]string, len(newEntries))
	for i, entry := range newEntries {
		trimmed[i] = strings.TrimRight(entry, " \t\r\n")
	}
	newText := strings.Join(trimmed, "\n\n")

	combined := newText
	if existingNormalized != "" {
		combined = existingNormalized + "\n\n" + newText
	}
	return ensureTrailingNewline(strings.TrimRight(combined, " \t\r\n"))
}
