// Package db provides SQLite storage for conversational state: the message
// log, per-user standing instructions, and pending entry proposals awaiting
// user review. Ledger content itself never lives here; the plain-text
// ledger files are the source of truth for bookkeeping data.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Message log
-- One row per inbound user message, with the bot's reply filled in later
CREATE TABLE IF NOT EXISTS messages (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,             -- Telegram user ID
    message_text TEXT NOT NULL,        -- Raw inbound text or a file placeholder
    response TEXT,                     -- Bot reply, NULL until answered
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_messages_user
    ON messages(user_id, created_at);

-- Standing instructions
-- Free-form per-user guidance injected into every generation prompt
CREATE TABLE IF NOT EXISTS instructions (
    user_id TEXT PRIMARY KEY,
    instruction TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Pending entry proposals
-- Generated entries waiting for the user to accept or reject them.
-- entries holds a JSON array of entry snippets.
CREATE TABLE IF NOT EXISTS pending_entries (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    user_id TEXT NOT NULL,
    chat_id INTEGER NOT NULL,          -- Chat the proposal was posted in
    message_row_id INTEGER NOT NULL,   -- messages.id of the triggering message
    entries TEXT NOT NULL,             -- JSON array of ledger entry snippets
    summary TEXT NOT NULL DEFAULT '',  -- Human-readable proposal summary
    original_text TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'pending',
    error_context TEXT,                -- Validation failure details for auto-fix
    pending_message_id INTEGER,        -- Message carrying the proposal keyboard
    prompt_message_id INTEGER,         -- User message that triggered the proposal
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    resolved_at TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_pending_entries_user_status
    ON pending_entries(user_id, status);
`

// InitializeSchema initializes the database schema.
// It creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
