package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Message represents a logged inbound message and its eventual reply.
type Message struct {
	ID          int64
	UserID      string
	MessageText string
	Response    sql.NullString
	CreatedAt   time.Time
}

// MessageLog manages the message log and per-user standing instructions.
type MessageLog struct {
	conn *Connection
}

// NewMessageLog creates a new MessageLog instance.
func NewMessageLog(conn *Connection) *MessageLog {
	return &MessageLog{conn: conn}
}

// LogMessage records an inbound message and returns its row ID.
func (m *MessageLog) LogMessage(userID, messageText string) (int64, error) {
	result, err := m.conn.Exec(
		`INSERT INTO messages (user_id, message_text) VALUES (?, ?)`,
		userID, messageText,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to log message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get message ID: %w", err)
	}
	return id, nil
}

// UpdateMessageResponse fills in the bot's reply for a logged message.
func (m *MessageLog) UpdateMessageResponse(messageID int64, response string) error {
	_, err := m.conn.Exec(
		`UPDATE messages SET response = ? WHERE id = ?`,
		response, messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to update message response: %w", err)
	}
	return nil
}

// GetRecentMessages retrieves the most recent messages for a user, newest
// first.
func (m *MessageLog) GetRecentMessages(userID string, limit int) ([]Message, error) {
	rows, err := m.conn.Query(`
		SELECT id, user_id, message_text, response, created_at
		FROM messages
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var message Message
		if err := rows.Scan(
			&message.ID,
			&message.UserID,
			&message.MessageText,
			&message.Response,
			&message.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, message)
	}
	return messages, rows.Err()
}

// GetInstruction retrieves the user's standing instruction, or "" if none
// is set.
func (m *MessageLog) GetInstruction(userID string) (string, error) {
	var instruction string
	err := m.conn.QueryRow(
		`SELECT instruction FROM instructions WHERE user_id = ?`, userID,
	).Scan(&instruction)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get instruction: %w", err)
	}
	return instruction, nil
}

// SetInstruction stores or replaces the user's standing instruction.
func (m *MessageLog) SetInstruction(userID, instruction string) error {
	_, err := m.conn.Exec(`
		INSERT INTO instructions (user_id, instruction, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			instruction = excluded.instruction,
			updated_at = CURRENT_TIMESTAMP
	`, userID, instruction)
	if err != nil {
		return fmt.Errorf("failed to set instruction: %w", err)
	}
	return nil
}

// ClearInstruction removes the user's standing instruction. It reports
// whether an instruction existed.
func (m *MessageLog) ClearInstruction(userID string) (bool, error) {
	result, err := m.conn.Exec(`DELETE FROM instructions WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to clear instruction: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// Stats represents usage statistics for the stats command.
type Stats struct {
	TotalMessages  int
	TotalUsers     int
	PendingEntries int
	LastMessage    sql.NullString
}

// GetStats retrieves usage statistics.
func (m *MessageLog) GetStats() (*Stats, error) {
	var stats Stats

	err := m.conn.QueryRow(`SELECT COUNT(*) FROM messages`).Scan(&stats.TotalMessages)
	if err != nil {
		return nil, fmt.Errorf("failed to get message count: %w", err)
	}

	err = m.conn.QueryRow(`SELECT COUNT(DISTINCT user_id) FROM messages`).Scan(&stats.TotalUsers)
	if err != nil {
		return nil, fmt.Errorf("failed to get user count: %w", err)
	}

	err = m.conn.QueryRow(`SELECT COUNT(*) FROM pending_entries WHERE status = 'pending'`).Scan(&stats.PendingEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending entry count: %w", err)
	}

	err = m.conn.QueryRow(`SELECT MAX(created_at) FROM messages`).Scan(&stats.LastMessage)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last message time: %w", err)
	}

	return &stats, nil
}
