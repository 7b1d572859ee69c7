package bot

import (
	"context"
	"fmt"
	"strings"
)

func (p *Processor) handleStart(ctx context.Context, userID string, chatID, rowID int64) error {
	instruction, err := p.messages.GetInstruction(userID)
	if err != nil {
		p.logger.Warn("failed to read instruction", "user", userID, "error", err)
	}
	if instruction == "" {
		instruction = "No custom instruction is set yet."
	}

	response := "Welcome to the bookkeeping bot!\n" +
		"Send messages like \"I spent 13000 KZT on dinner using KaspiBank\" to generate Beancount entries automatically, " +
		"or attach a bank statement (PDF or image) to import it.\n\n" +
		"Available commands:\n" +
		"- /instruction -- View or update your custom instruction\n" +
		"- /instruction <instruction text> -- Set a new instruction\n" +
		"- /instruction reset -- Clear the custom instruction\n" +
		"- /accounts -- View current ledger accounts and balances\n" +
		"- /history -- View recent transaction history\n\n" +
		"Current instruction:\n" + instruction

	p.recordResponse(rowID, response)
	_, err = p.telegram.SendMessage(ctx, chatID, response, nil)
	return err
}

func (p *Processor) handleInstruction(ctx context.Context, userID string, chatID, rowID int64, payload string) error {
	var response string

	switch normalized := strings.TrimSpace(payload); {
	case normalized == "":
		current, err := p.messages.GetInstruction(userID)
		if err != nil {
			response = fmt.Sprintf("Failed to read instruction: %v", err)
		} else if current == "" {
			response = "No custom instruction is set yet.\n" +
				"Send /instruction <instruction text> to set one."
		} else {
			response = "Current custom instruction:\n" + current + "\n\n" +
				"Send /instruction <instruction text> to replace it, or /instruction reset to clear it."
		}
	case strings.EqualFold(normalized, "reset") || strings.EqualFold(normalized, "clear"):
		if _, err := p.messages.ClearInstruction(userID); err != nil {
			response = fmt.Sprintf("Failed to clear instruction: %v", err)
		} else {
			response = "Custom instruction cleared."
		}
	default:
		if err := p.messages.SetInstruction(userID, normalized); err != nil {
			response = fmt.Sprintf("Failed to update instruction: %v", err)
		} else {
			response = "Custom instruction updated:\n" + normalized
		}
	}

	p.recordResponse(rowID, response)
	_, err := p.telegram.SendMessage(ctx, chatID, response, nil)
	return err
}

func (p *Processor) handleAccounts(ctx context.Context, userID string, chatID, rowID int64) error {
	lines, warnings, err := p.ledger.SummarizeAccounts(userID)

	var response string
	switch {
	case err != nil:
		response = fmt.Sprintf("Failed to read ledger: %v", err)
	case len(lines) == 0:
		response = "No accounts found in the ledger yet; try recording a transaction first."
	default:
		parts := append([]string{"Ledger accounts and balances:"}, lines...)
		if len(warnings) > 0 {
			parts = append(parts, "", "Parse warnings:")
			for _, warning := range warnings {
				parts = append(parts, "- "+warning)
			}
		}
		response = strings.Join(parts, "\n")
	}

	p.recordResponse(rowID, response)
	_, err = p.telegram.SendMessage(ctx, chatID, response, nil)
	return err
}

func (p *Processor) handleHistory(ctx context.Context, userID string, chatID, rowID int64) error {
	lines, err := p.ledger.TransactionHistorySummary(userID, 0)

	var response string
	switch {
	case err != nil:
		response = fmt.Sprintf("Failed to read ledger: %v", err)
	case len(lines) == 0:
		response = "No transaction history yet; record a transaction first."
	default:
		response = "Recent transaction history (most recent first):\n" + strings.Join(lines, "\n")
	}

	p.recordResponse(rowID, response)
	_, err = p.telegram.SendMessage(ctx, chatID, response, nil)
	return err
}
