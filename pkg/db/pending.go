package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// PendingStatus represents the lifecycle state of a pending entry proposal.
type PendingStatus string

const (
	StatusPending  PendingStatus = "pending"
	StatusAccepted PendingStatus = "accepted"
	StatusRejected PendingStatus = "rejected"
	StatusError    PendingStatus = "error"
)

// PendingEntry represents a generated entry proposal awaiting review.
type PendingEntry struct {
	ID               int64
	UserID           string
	ChatID           int64
	MessageRowID     int64
	Entries          []string
	Summary          string
	OriginalText     string
	Status           PendingStatus
	ErrorContext     sql.NullString
	PendingMessageID sql.NullInt64
	PromptMessageID  sql.NullInt64
	CreatedAt        time.Time
	ResolvedAt       sql.NullTime
}

// PendingStore manages pending entry proposals.
type PendingStore struct {
	conn *Connection
}

// NewPendingStore creates a new PendingStore instance.
func NewPendingStore(conn *Connection) *PendingStore {
	return &PendingStore{conn: conn}
}

// CreatePendingEntry stores a new proposal in pending state and returns its
// row ID. Only UserID, ChatID, MessageRowID, Entries, Summary, and
// OriginalText of the given entry are used.
func (p *PendingStore) CreatePendingEntry(entry PendingEntry) (int64, error) {
	encoded, err := json.Marshal(entry.Entries)
	if err != nil {
		return 0, fmt.Errorf("failed to encode entries: %w", err)
	}

	result, err := p.conn.Exec(`
		INSERT INTO pending_entries (user_id, chat_id, message_row_id, entries, summary, original_text, status)
		VALUES (?, ?, ?, ?, ?, ?, 'pending')
	`, entry.UserID, entry.ChatID, entry.MessageRowID, string(encoded), entry.Summary, entry.OriginalText)
	if err != nil {
		return 0, fmt.Errorf("failed to create pending entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get pending entry ID: %w", err)
	}
	return id, nil
}

// GetPendingEntry retrieves a proposal by ID. Returns nil without error
// when the ID is unknown.
func (p *PendingStore) GetPendingEntry(id int64) (*PendingEntry, error) {
	var entry PendingEntry
	var encoded string
	var status string

	err := p.conn.QueryRow(`
		SELECT id, user_id, chat_id, message_row_id, entries, summary, original_text,
		       status, error_context, pending_message_id, prompt_message_id,
		       created_at, resolved_at
		FROM pending_entries
		WHERE id = ?
	`, id).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.ChatID,
		&entry.MessageRowID,
		&encoded,
		&entry.Summary,
		&entry.OriginalText,
		&status,
		&entry.ErrorContext,
		&entry.PendingMessageID,
		&entry.PromptMessageID,
		&entry.CreatedAt,
		&entry.ResolvedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending entry: %w", err)
	}

	if err := json.Unmarshal([]byte(encoded), &entry.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode entries: %w", err)
	}
	entry.Status = PendingStatus(status)
	return &entry, nil
}

// GetLatestPendingForUser retrieves the user's most recent proposal still
// in pending state, or nil when there is none.
func (p *PendingStore) GetLatestPendingForUser(userID string) (*PendingEntry, error) {
	var id int64
	err := p.conn.QueryRow(`
		SELECT id FROM pending_entries
		WHERE user_id = ? AND status = 'pending'
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, userID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest pending entry: %w", err)
	}
	return p.GetPendingEntry(id)
}

// TransitionStatus moves a proposal from one status to another and reports
// whether the transition happened. The conditional UPDATE makes the
// transition atomic: two concurrent accept taps resolve to exactly one
// winner, which serializes ledger commits per proposal.
func (p *PendingStore) TransitionStatus(id int64, from, to PendingStatus) (bool, error) {
	result, err := p.conn.Exec(`
		UPDATE pending_entries
		SET status = ?, resolved_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to transition pending entry status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// SetErrorContext stores the validation failure details used by the
// auto-fix flow.
func (p *PendingStore) SetErrorContext(id int64, context string) error {
	_, err := p.conn.Exec(
		`UPDATE pending_entries SET error_context = ? WHERE id = ?`,
		context, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set error context: %w", err)
	}
	return nil
}

// SetPendingMessageID records which chat message carries the proposal's
// review keyboard.
func (p *PendingStore) SetPendingMessageID(id, messageID int64) error {
	_, err := p.conn.Exec(
		`UPDATE pending_entries SET pending_message_id = ? WHERE id = ?`,
		messageID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set pending message ID: %w", err)
	}
	return nil
}

// SetPromptMessageID records which user message triggered the proposal.
func (p *PendingStore) SetPromptMessageID(id, messageID int64) error {
	_, err := p.conn.Exec(
		`UPDATE pending_entries SET prompt_message_id = ? WHERE id = ?`,
		messageID, id,
	)
	if err != nil {
		return fmt.Errorf("failed to set prompt message ID: %w", err)
	}
	return nil
}

// ReplaceEntries swaps a proposal's entries and summary and resets it to
// pending state, clearing any stored error context. Used after an
// automatic fix regenerates the entries.
func (p *PendingStore) ReplaceEntries(id int64, entries []string, summary string) error {
	encoded, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode entries: %w", err)
	}

	_, err = p.conn.Exec(`
		UPDATE pending_entries
		SET entries = ?, summary = ?, status = 'pending', error_context = NULL, resolved_at = NULL
		WHERE id = ?
	`, string(encoded), summary, id)
	if err != nil {
		return fmt.Errorf("failed to replace pending entries: %w", err)
	}
	return nil
}
