// Package pathutil provides centralized path management for user ledgers and bot data.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// PathResolver manages paths for per-user ledger files, the bot database,
// and statement attachments.
type PathResolver struct {
	ledgerRoot     string
	databasePath   string
	attachmentsDir string
}

// Config represents the configuration for PathResolver.
type Config struct {
	// LedgerRoot is the root directory holding one ledger file per user.
	LedgerRoot string
	// DatabasePath is the path to the SQLite database file for conversational state.
	DatabasePath string
	// AttachmentsDir is the scratch directory for downloaded statement files.
	AttachmentsDir string
}

// New creates a new PathResolver with the given configuration.
// If DatabasePath is empty, it defaults to {LedgerRoot}/../messages.db.
// If AttachmentsDir is empty, it defaults to {LedgerRoot}/attachments.
func New(config Config) *PathResolver {
	dbPath := config.DatabasePath
	if dbPath == "" {
		dbPath = filepath.Join(filepath.Dir(config.LedgerRoot), "messages.db")
	}

	attachmentsDir := config.AttachmentsDir
	if attachmentsDir == "" {
		attachmentsDir = filepath.Join(config.LedgerRoot, "attachments")
	}

	return &PathResolver{
		ledgerRoot:     config.LedgerRoot,
		databasePath:   dbPath,
		attachmentsDir: attachmentsDir,
	}
}

// LedgerRoot returns the ledger root directory.
func (p *PathResolver) LedgerRoot() string {
	return p.ledgerRoot
}

// DatabasePath returns the database file path.
func (p *PathResolver) DatabasePath() string {
	return p.databasePath
}

// AttachmentsDir returns the attachments directory.
func (p *PathResolver) AttachmentsDir() string {
	return p.attachmentsDir
}

// UserLedgerPath returns the ledger file path for a user.
// Example: data/beancount/12345.bean
func (p *PathResolver) UserLedgerPath(userID string) string {
	return filepath.Join(p.ledgerRoot, fmt.Sprintf("%s.bean", userID))
}

// DiscoverLedgers returns all ledger files under the root, sorted.
// Both .bean and .beancount files are recognized so externally created
// ledgers show up in the report viewer too.
func (p *PathResolver) DiscoverLedgers() ([]string, error) {
	var ledgers []string
	for _, pattern := range []string{"*.bean", "*.beancount"} {
		matches, err := filepath.Glob(filepath.Join(p.ledgerRoot, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to glob ledger files: %w", err)
		}
		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil || info.IsDir() {
				continue
			}
			ledgers = append(ledgers, match)
		}
	}
	sort.Strings(ledgers)
	return ledgers, nil
}

// EnsureDir creates a directory if it doesn't exist.
// It creates all parent directories as needed (like mkdir -p).
func (p *PathResolver) EnsureDir(dirPath string) error {
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dirPath, err)
	}
	return nil
}

// EnsureParentDir ensures the parent directory of a file exists.
func (p *PathResolver) EnsureParentDir(filePath string) error {
	return p.EnsureDir(filepath.Dir(filePath))
}

// FileExists checks if a file exists.
func (p *PathResolver) FileExists(filePath string) bool {
	_, err := os.Stat(filePath)
	return err == nil
}
