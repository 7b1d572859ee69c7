package bot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/db"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/extractor"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/telegram"
)

// handleStatementUpload downloads an attached statement (PDF or image),
// extracts its transactions, and posts the resulting entries as a pending
// proposal for review.
func (p *Processor) handleStatementUpload(ctx context.Context, message *telegram.Message, userID string, chatID int64) error {
	caption := strings.TrimSpace(message.Caption)
	logText := caption
	if logText == "" {
		logText = "[statement upload]"
	}
	rowID, err := p.messages.LogMessage(userID, logText)
	if err != nil {
		p.logger.Error("failed to log message", "user", userID, "error", err)
	}

	progress, err := p.telegram.SendMessage(ctx, chatID, "Extracting statement, please wait...", nil)
	if err != nil {
		p.logger.Warn("failed to send progress message", "error", err)
	}
	var progressID int64
	if progress != nil {
		progressID = progress.MessageID
	}

	localPath, sourceName, err := p.downloadAttachment(ctx, message)
	if err != nil {
		failure := fmt.Sprintf("Failed to download the attachment: %v", err)
		p.recordResponse(rowID, failure)
		p.sendOrEdit(ctx, chatID, progressID, failure, nil)
		return err
	}
	defer func() {
		if err := os.Remove(localPath); err != nil {
			p.logger.Debug("failed to remove attachment", "path", localPath, "error", err)
		}
	}()

	statement, err := p.extractor.Extract(ctx, userID, localPath, caption)
	if err != nil {
		failure := statementErrorText(err)
		p.recordResponse(rowID, failure)
		p.sendOrEdit(ctx, chatID, progressID, failure, nil)
		return err
	}

	entries, added, skipped, err := p.extractor.GenerateEntries(statement, userID, sourceName)
	if err != nil {
		failure := fmt.Sprintf("Failed to convert the statement into entries: %v", err)
		p.recordResponse(rowID, failure)
		p.sendOrEdit(ctx, chatID, progressID, failure, nil)
		return err
	}

	if added == 0 {
		response := "No new transactions detected in the statement."
		if skipped > 0 {
			response += fmt.Sprintf(" Skipped %d duplicate or zero-amount entries.", skipped)
		}
		p.recordResponse(rowID, response)
		p.sendOrEdit(ctx, chatID, progressID, response, nil)
		return nil
	}

	summary := fmt.Sprintf("Statement extraction ready for confirmation: %d new transactions", added)
	if skipped > 0 {
		summary += fmt.Sprintf(", %d skipped as duplicates or zero amounts", skipped)
	}
	summary += "."

	pendingID, err := p.pending.CreatePendingEntry(db.PendingEntry{
		UserID:       userID,
		ChatID:       chatID,
		MessageRowID: rowID,
		Entries:      entries,
		Summary:      summary,
		OriginalText: logText,
	})
	if err != nil {
		p.sendOrEdit(ctx, chatID, progressID, fmt.Sprintf("Failed to store proposal: %v", err), nil)
		return err
	}

	parts := []string{summary, "Generated entries:"}
	for _, entry := range entries {
		parts = append(parts, strings.TrimSpace(entry))
	}
	parts = append(parts, "", "Use the buttons below to confirm whether to write them to the ledger.")
	response := strings.Join(parts, "\n")

	p.recordResponse(rowID, response)

	keyboardID := p.sendOrEdit(ctx, chatID, progressID, response, reviewKeyboard(pendingID))
	if keyboardID != 0 {
		if err := p.pending.SetPendingMessageID(pendingID, keyboardID); err != nil {
			p.logger.Warn("failed to store keyboard message ID", "pending", pendingID, "error", err)
		}
		if err := p.pending.SetPromptMessageID(pendingID, keyboardID); err != nil {
			p.logger.Warn("failed to store prompt message ID", "pending", pendingID, "error", err)
		}
	}

	p.logger.Info("statement proposal created", "pending", pendingID, "user", userID, "added", added, "skipped", skipped)
	return nil
}

// downloadAttachment fetches the statement file into the attachments
// directory and returns its local path and a display name for the import
// heading. Photos use the largest available resolution.
func (p *Processor) downloadAttachment(ctx context.Context, message *telegram.Message) (string, string, error) {
	var fileID, sourceName, ext string
	switch {
	case message.Document != nil:
		fileID = message.Document.FileID
		sourceName = message.Document.FileName
		if sourceName == "" {
			sourceName = "statement"
		}
		ext = strings.ToLower(filepath.Ext(sourceName))
	case len(message.Photo) > 0:
		best := message.Photo[0]
		for _, photo := range message.Photo[1:] {
			if photo.FileSize > best.FileSize {
				best = photo
			}
		}
		fileID = best.FileID
		sourceName = "photo"
		ext = ".jpg"
	default:
		return "", "", fmt.Errorf("message carries no downloadable attachment")
	}

	file, err := p.telegram.GetFile(ctx, fileID)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve file: %w", err)
	}
	data, err := p.telegram.DownloadFile(ctx, file.FilePath)
	if err != nil {
		return "", "", fmt.Errorf("failed to download file: %w", err)
	}

	if ext == "" {
		ext = strings.ToLower(filepath.Ext(file.FilePath))
	}

	dir := p.paths.AttachmentsDir()
	if err := p.paths.EnsureDir(dir); err != nil {
		return "", "", err
	}
	localPath := filepath.Join(dir, fmt.Sprintf("%s%s", file.FileID, ext))
	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return "", "", fmt.Errorf("failed to store attachment: %w", err)
	}
	return localPath, sourceName, nil
}

// statementErrorText maps extraction failures to user-facing replies.
func statementErrorText(err error) string {
	var disallowed *extractor.DisallowedAccountsError
	switch {
	case errors.Is(err, extractor.ErrNoAccounts):
		return "Your ledger has no accounts yet, so the statement cannot be mapped. " +
			"Record at least one transaction first to establish the account structure."
	case errors.As(err, &disallowed):
		return "The statement mentions accounts that do not exist in your ledger:\n- " +
			strings.Join(disallowed.Accounts, "\n- ") +
			"\nOpen them in the ledger first, or add a caption telling me which accounts to use."
	default:
		return fmt.Sprintf("Failed to extract the statement: %v", err)
	}
}
