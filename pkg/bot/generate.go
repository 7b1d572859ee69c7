package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/db"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/telegram"
)

// handleTransactionText turns a free-text transaction description into a
// pending entry proposal with a review keyboard.
func (p *Processor) handleTransactionText(ctx context.Context, userID string, chatID, rowID int64, text string) error {
	progress, err := p.telegram.SendMessage(ctx, chatID, "Generating accounting entries, please wait...", nil)
	if err != nil {
		p.logger.Warn("failed to send progress message", "error", err)
	}
	var progressID int64
	if progress != nil {
		progressID = progress.MessageID
	}

	result, err := p.generateForUser(ctx, userID, text, "")
	if err != nil {
		failure := fmt.Sprintf("Failed to generate entry: %v", err)
		p.recordResponse(rowID, "ERROR: "+err.Error())
		p.sendOrEdit(ctx, chatID, progressID, failure, nil)
		return err
	}

	if len(result.Entries) == 0 {
		// Summary-only responses explain why nothing could be generated.
		response := result.Summary
		if response == "" {
			response = "No entries could be generated from that message. Please add amounts or more detail."
		}
		p.recordResponse(rowID, response)
		p.sendOrEdit(ctx, chatID, progressID, response, nil)
		return nil
	}

	pendingID, err := p.pending.CreatePendingEntry(db.PendingEntry{
		UserID:       userID,
		ChatID:       chatID,
		MessageRowID: rowID,
		Entries:      result.Entries,
		Summary:      result.Summary,
		OriginalText: text,
	})
	if err != nil {
		p.sendOrEdit(ctx, chatID, progressID, fmt.Sprintf("Failed to store proposal: %v", err), nil)
		return err
	}

	summary := result.Summary
	if summary == "" {
		summary = "Please review the generated Beancount entries below."
	}
	parts := []string{summary, "Generated entries:"}
	for _, entry := range result.Entries {
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

	p.refreshFava()
	return nil
}

// generateForUser assembles the full generation prompt (account summary,
// custom instruction, transaction history, today's date) and calls the
// model. extraContext carries validation failure details for auto-fix.
func (p *Processor) generateForUser(ctx context.Context, userID, text, extraContext string) (*llmResult, error) {
	accountLines, warnings, err := p.ledger.SummarizeAccounts(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger: %w", err)
	}

	ledgerEmpty := len(accountLines) == 0
	var accountSection string
	if !ledgerEmpty {
		accountSection = "Existing ledger accounts and balances are listed below. Reuse them whenever possible to avoid duplicates:\n" +
			strings.Join(accountLines, "\n")
	} else {
		accountSection = "The ledger currently has no accounts. Initialize defaults such as the operating currency (for example CNY, USD, or KZT) " +
			"and the basic account structure (Assets, Liabilities, Income, Expenses, Equity), " +
			"and use option, commodity, and open directives to create opening entries when needed."
	}
	if len(warnings) > 0 {
		accountSection += "\nNote: Loading the accounts produced the following warnings. Adjust if necessary:\n- " +
			strings.Join(warnings, "\n- ")
	}

	instruction, err := p.messages.GetInstruction(userID)
	if err != nil {
		p.logger.Warn("failed to read instruction", "user", userID, "error", err)
	}

	historyLines, err := p.ledger.TransactionHistorySummary(userID, 0)
	if err != nil {
		p.logger.Warn("failed to mine history", "user", userID, "error", err)
	}

	var parts []string
	if instruction != "" {
		parts = append(parts, "The user's custom instruction is below. Follow it exactly:\n"+instruction+"\n")
	}
	parts = append(parts,
		"Turn the user's request below into Beancount-compliant transaction entries.",
		"If you need to create new accounts or adjust balances, add appropriate opening entries or balance adjustments.",
		"\n"+accountSection+"\n",
		"Only create new accounts when the request truly requires one that does not exist. "+
			"Add an open directive dated at the start of the current year and follow the existing Beancount hierarchy.",
	)
	if ledgerEmpty {
		parts = append(parts, "The ledger is currently empty. Add the required option, commodity, and open directives "+
			"to establish the default currency and base account structure before recording the user's transaction.")
	}
	if len(historyLines) > 0 {
		parts = append(parts, "Recent transaction history (reuse the same accounts when descriptions are similar; most recent first):\n"+
			strings.Join(historyLines, "\n"))
	}
	if extraContext != "" {
		parts = append(parts, "Previous error or feedback:\n"+extraContext+"\n")
	}
	parts = append(parts,
		"Today's date: "+p.now().Format("2006-01-02"),
		"User input: "+text,
	)

	result, err := p.llm.GenerateEntries(ctx, strings.Join(parts, "\n"))
	if err != nil {
		return nil, err
	}
	return &llmResult{Entries: result.Entries, Summary: result.Summary}, nil
}

// llmResult narrows the model output to what the bot layer needs.
type llmResult struct {
	Entries []string
	Summary string
}

func reviewKeyboard(pendingID int64) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "✅ Accept entry", CallbackData: fmt.Sprintf("accept:%d", pendingID)},
			{Text: "❌ Reject", CallbackData: fmt.Sprintf("reject:%d", pendingID)},
		}},
	}
}

func errorKeyboard(pendingID int64) *telegram.InlineKeyboardMarkup {
	return &telegram.InlineKeyboardMarkup{
		InlineKeyboard: [][]telegram.InlineKeyboardButton{{
			{Text: "🔄 Auto-fix", CallbackData: fmt.Sprintf("autofix:%d", pendingID)},
			{Text: "❌ Reject", CallbackData: fmt.Sprintf("reject:%d", pendingID)},
		}},
	}
}

// sendOrEdit edits an existing message when messageID is non-zero, falling
// back to sending a fresh message. Returns the ID of the message that ends
// up carrying the text (and keyboard), or 0 when everything failed.
func (p *Processor) sendOrEdit(ctx context.Context, chatID, messageID int64, text string, markup *telegram.InlineKeyboardMarkup) int64 {
	if messageID != 0 && len([]rune(text)) <= telegram.MaxMessageLength {
		if err := p.telegram.EditMessageText(ctx, chatID, messageID, text, markup); err == nil {
			return messageID
		} else {
			p.logger.Debug("edit failed, sending new message", "error", err)
		}
	}

	if messageID != 0 {
		// Drop the stale keyboard so only the fresh message offers actions.
		if err := p.telegram.EditMessageReplyMarkup(ctx, chatID, messageID, nil); err != nil {
			p.logger.Debug("failed to clear stale keyboard", "error", err)
		}
	}

	sent, err := p.telegram.SendMessage(ctx, chatID, text, markup)
	if err != nil {
		p.logger.Warn("failed to send message", "chat", chatID, "error", err)
		return 0
	}
	return sent.MessageID
}
