package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/db"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/telegram"
)

// maxErrorLines caps how many validation errors a chat reply shows.
const maxErrorLines = 5

func (p *Processor) handleCallback(ctx context.Context, callback *telegram.CallbackQuery) error {
	action, pendingID, ok := parseCallbackData(callback.Data)
	if !ok {
		p.answerCallback(ctx, callback.ID, "Invalid action")
		return nil
	}

	switch action {
	case "accept":
		return p.finalizePending(ctx, callback, pendingID, true)
	case "reject":
		return p.finalizePending(ctx, callback, pendingID, false)
	case "autofix":
		return p.autofixPending(ctx, callback, pendingID)
	default:
		p.answerCallback(ctx, callback.ID, "Unknown action")
		return nil
	}
}

func parseCallbackData(data string) (string, int64, bool) {
	action, value, found := strings.Cut(strings.TrimSpace(data), ":")
	if !found {
		return "", 0, false
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return "", 0, false
	}
	return action, id, true
}

// finalizePending resolves an accept or reject tap. The accept path is
// the only writer of the ledger: it wins the status race first, then runs
// the validated commit, and rolls the status to error when the entries do
// not pass.
func (p *Processor) finalizePending(ctx context.Context, callback *telegram.CallbackQuery, pendingID int64, accept bool) error {
	record, err := p.pending.GetPendingEntry(pendingID)
	if err != nil {
		p.answerCallback(ctx, callback.ID, "Internal error")
		return err
	}
	if record == nil {
		p.answerCallback(ctx, callback.ID, "Request not found")
		return nil
	}

	if strconv.FormatInt(callback.From.ID, 10) != record.UserID {
		p.answerCallback(ctx, callback.ID, "You are not allowed to act on this request")
		p.logger.Warn("callback from foreign user", "pending", pendingID, "user", callback.From.ID)
		return nil
	}

	chatID, messageID := p.callbackTarget(callback, record)
	defer p.refreshFava()

	if accept {
		return p.acceptPending(ctx, callback, record, chatID, messageID)
	}
	return p.rejectPending(ctx, callback, record, chatID, messageID)
}

func (p *Processor) acceptPending(ctx context.Context, callback *telegram.CallbackQuery, record *db.PendingEntry, chatID, messageID int64) error {
	// Winning this transition is what serializes concurrent accept taps.
	won, err := p.pending.TransitionStatus(record.ID, db.StatusPending, db.StatusAccepted)
	if err != nil {
		p.answerCallback(ctx, callback.ID, "Internal error")
		return err
	}
	if !won {
		p.answerCallback(ctx, callback.ID, "Request already processed")
		return nil
	}

	p.answerCallback(ctx, callback.ID, "Processing...")

	result, err := p.ledger.CommitEntries(record.UserID, record.Entries)
	if err != nil {
		if _, terr := p.pending.TransitionStatus(record.ID, db.StatusAccepted, db.StatusError); terr != nil {
			p.logger.Error("failed to mark pending entry as error", "pending", record.ID, "error", terr)
		}
		failure := fmt.Sprintf("Error while processing request: %v", err)
		p.recordResponse(record.MessageRowID, failure)
		p.sendOrEdit(ctx, chatID, messageID, failure, nil)
		return err
	}

	if !result.Committed {
		return p.reportValidationFailure(ctx, record, result.ErrorLines, chatID, messageID)
	}

	parts := []string{"✅ Entry accepted and written to the ledger."}
	if record.Summary != "" {
		parts = append(parts, record.Summary)
	}
	parts = append(parts, "Generated entries:")
	for _, entry := range record.Entries {
		parts = append(parts, strings.TrimSpace(entry))
	}
	response := strings.Join(parts, "\n")

	p.recordResponse(record.MessageRowID, response)
	p.sendOrEdit(ctx, chatID, messageID, response, nil)
	p.logger.Info("pending entry accepted", "pending", record.ID, "user", record.UserID, "entries", len(record.Entries))
	return nil
}

// reportValidationFailure moves the proposal to error state, stores the
// failure context for auto-fix, and offers the auto-fix keyboard.
func (p *Processor) reportValidationFailure(ctx context.Context, record *db.PendingEntry, errorLines []string, chatID, messageID int64) error {
	if _, err := p.pending.TransitionStatus(record.ID, db.StatusAccepted, db.StatusError); err != nil {
		return err
	}

	shown := errorLines
	if len(shown) > maxErrorLines {
		shown = shown[:maxErrorLines]
	}
	var errorSummary strings.Builder
	for _, line := range shown {
		fmt.Fprintf(&errorSummary, "- %s\n", line)
	}

	var preview strings.Builder
	for _, entry := range record.Entries {
		preview.WriteString(strings.TrimSpace(entry))
		preview.WriteString("\n")
	}

	errorContext := fmt.Sprintf("Error details:\n%s\nGenerated entry preview:\n%s\nOriginal message:\n%s",
		errorSummary.String(), preview.String(), record.OriginalText)
	if err := p.pending.SetErrorContext(record.ID, errorContext); err != nil {
		p.logger.Error("failed to store error context", "pending", record.ID, "error", err)
	}

	response := "❌ Entry failed: the generated entries did not pass Beancount validation. Please review and try again.\n\n" +
		"Error details:\n" + errorSummary.String() + "\n" +
		"Generated entry preview:\n" + preview.String()

	p.recordResponse(record.MessageRowID, response)
	p.sendOrEdit(ctx, chatID, messageID, response, errorKeyboard(record.ID))
	p.logger.Info("pending entry failed validation", "pending", record.ID, "errors", len(errorLines))
	return nil
}

func (p *Processor) rejectPending(ctx context.Context, callback *telegram.CallbackQuery, record *db.PendingEntry, chatID, messageID int64) error {
	// A proposal can be rejected both fresh and after a failed commit.
	won, err := p.pending.TransitionStatus(record.ID, db.StatusPending, db.StatusRejected)
	if err != nil {
		p.answerCallback(ctx, callback.ID, "Internal error")
		return err
	}
	if !won {
		won, err = p.pending.TransitionStatus(record.ID, db.StatusError, db.StatusRejected)
		if err != nil {
			p.answerCallback(ctx, callback.ID, "Internal error")
			return err
		}
	}
	if !won {
		p.answerCallback(ctx, callback.ID, "Request already processed")
		return nil
	}

	p.answerCallback(ctx, callback.ID, "Rejected")

	parts := []string{"❌ Entry rejected. Please submit again or adjust the content."}
	if record.Summary != "" {
		parts = append(parts, record.Summary)
	}
	response := strings.Join(parts, "\n")

	p.recordResponse(record.MessageRowID, response)
	p.sendOrEdit(ctx, chatID, messageID, response, nil)
	p.logger.Info("pending entry rejected", "pending", record.ID, "user", record.UserID)
	return nil
}

// autofixPending regenerates the entries of a failed proposal using the
// stored validation errors as extra model context, then re-opens it for
// review.
func (p *Processor) autofixPending(ctx context.Context, callback *telegram.CallbackQuery, pendingID int64) error {
	record, err := p.pending.GetPendingEntry(pendingID)
	if err != nil {
		p.answerCallback(ctx, callback.ID, "Internal error")
		return err
	}
	if record == nil {
		p.answerCallback(ctx, callback.ID, "Request not found")
		return nil
	}
	if record.Status != db.StatusError {
		p.answerCallback(ctx, callback.ID, "Request does not need to be fixed")
		return nil
	}
	if !record.ErrorContext.Valid || record.ErrorContext.String == "" {
		p.answerCallback(ctx, callback.ID, "Missing error details; unable to auto-fix")
		return nil
	}

	p.answerCallback(ctx, callback.ID, "Attempting auto-fix...")
	chatID, messageID := p.callbackTarget(callback, record)

	extraContext := "The previously generated entries failed Beancount validation. Use the details below to fix them:\n" +
		record.ErrorContext.String + "\n" +
		"Regenerate entries that pass validation. Review every error carefully and provide new entries that resolve the issues."

	result, err := p.generateForUser(ctx, record.UserID, record.OriginalText, extraContext)
	if err != nil {
		failure := fmt.Sprintf("Auto-fix failed: %v", err)
		p.sendOrEdit(ctx, chatID, messageID, failure, errorKeyboard(record.ID))
		return err
	}
	if len(result.Entries) == 0 {
		failure := "Auto-fix produced no entries."
		if result.Summary != "" {
			failure += "\n" + result.Summary
		}
		p.sendOrEdit(ctx, chatID, messageID, failure, errorKeyboard(record.ID))
		return nil
	}

	if err := p.pending.ReplaceEntries(record.ID, result.Entries, result.Summary); err != nil {
		p.sendOrEdit(ctx, chatID, messageID, fmt.Sprintf("Auto-fix failed: %v", err), nil)
		return err
	}

	summary := result.Summary
	if summary == "" {
		summary = "Auto-fix suggestions:"
	}
	parts := []string{"🤖 Auto-fix suggestions (pending your confirmation).", summary, "Generated entries:"}
	for _, entry := range result.Entries {
		parts = append(parts, strings.TrimSpace(entry))
	}
	response := strings.Join(parts, "\n")

	p.recordResponse(record.MessageRowID, response)
	p.sendOrEdit(ctx, chatID, messageID, response, reviewKeyboard(record.ID))
	p.logger.Info("pending entry auto-fixed", "pending", record.ID)
	return nil
}

// callbackTarget picks the chat and message to update: the message the
// tapped keyboard is attached to when available, otherwise what the
// proposal recorded at creation time.
func (p *Processor) callbackTarget(callback *telegram.CallbackQuery, record *db.PendingEntry) (int64, int64) {
	if callback.Message != nil {
		return callback.Message.Chat.ID, callback.Message.MessageID
	}
	var messageID int64
	if record.PendingMessageID.Valid {
		messageID = record.PendingMessageID.Int64
	}
	return record.ChatID, messageID
}

func (p *Processor) answerCallback(ctx context.Context, callbackID, text string) {
	if err := p.telegram.AnswerCallbackQuery(ctx, callbackID, text); err != nil {
		p.logger.Warn("failed to answer callback query", "callback", callbackID, "error", err)
	}
}
