package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/hints"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/llm"
)

const promptTemplate = `You are a financial extraction engine. Extract statement information from the provided document, determine which ledger account the statement belongs to, and classify each transaction. Always return valid JSON matching this shape:
{"institution":"...","account_holder":"...","account_number":"...","currency":"...","ledger_account":"...","statement_period":{"start_date":"YYYY-MM-DD","end_date":"YYYY-MM-DD"},"opening_balance":0,"closing_balance":0,"transactions":[{"date":"YYYY-MM-DD","description":"...","amount":-12.34,"debit":"...","credit":"..."}]}
For every transaction emit exactly these keys and nothing else: date, description, amount, debit, credit. amount must be signed relative to the statement ledger: positive amounts indicate money entering the ledger account, negative amounts indicate money leaving it. When amount < 0, set debit to the ledger account itself and credit to the counterparty account (e.g. an expense). When amount > 0, set credit to the ledger account itself and debit to the counterparty account (e.g. income or transfers). Output entries so the newest transaction appears first and the oldest last. If any transaction date is missing a year, assume the year is %s and keep the given month/day. YOU MAY ONLY USE ACCOUNT NAMES FROM THE ALLOWED LIST BELOW. Do not wrap the JSON in code fences.

Allowed account names (verbatim only):
%s

User account summary:
%s

Recent transaction history (reuse the same ledger/counter accounts when descriptions are similar; most recent first):
%s

%s`

// mimeTypes maps supported statement file extensions to MIME types.
var mimeTypes = map[string]string{
	".pdf":  "application/pdf",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
}

// Extractor extracts bank statements and converts them to ledger entries.
type Extractor struct {
	llm    *llm.Client
	ledger *beancount.Service
	hints  *hints.Mapper
	logger *slog.Logger
	now    func() time.Time
}

// New creates an Extractor. A nil hints mapper disables hint lookups.
func New(llmClient *llm.Client, ledger *beancount.Service, hintMapper *hints.Mapper, logger *slog.Logger) *Extractor {
	if hintMapper == nil {
		hintMapper = hints.Empty()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		llm:    llmClient,
		ledger: ledger,
		hints:  hintMapper,
		logger: logger,
		now:    time.Now,
	}
}

// Extract reads a statement file, asks the model for a structured
// extraction, and validates every produced account name against the
// user's ledger. Transactions are returned oldest first.
func (e *Extractor) Extract(ctx context.Context, userID, statementPath, userNote string) (*BankStatement, error) {
	summary, allowed, historyLines, err := e.accountContext(userID)
	if err != nil {
		return nil, err
	}

	prompt := e.buildPrompt(summary, allowed, historyLines, userNote)
	parts, err := e.buildParts(statementPath, prompt)
	if err != nil {
		return nil, err
	}

	text, err := e.llm.GenerateText(ctx, parts)
	if err != nil {
		return nil, fmt.Errorf("statement extraction failed: %w", err)
	}

	var statement BankStatement
	if err := json.Unmarshal([]byte(llm.CleanJSON(text)), &statement); err != nil {
		return nil, fmt.Errorf("failed to decode statement extraction: %w", err)
	}

	// The model emits newest first; flip to chronological order so the
	// ledger stays date-ordered on append.
	for i, j := 0, len(statement.Transactions)-1; i < j; i, j = i+1, j-1 {
		statement.Transactions[i], statement.Transactions[j] = statement.Transactions[j], statement.Transactions[i]
	}

	if err := validateStatement(&statement, allowed); err != nil {
		return nil, err
	}
	return &statement, nil
}

// GenerateEntries converts a validated statement into entry snippets.
// Returns the entries (with a heading comment first), the number of new
// transactions, and the number skipped as zero-amount or duplicates.
func (e *Extractor) GenerateEntries(statement *BankStatement, userID, sourceName string) ([]string, int, int, error) {
	ledgerAccount := strings.TrimSpace(statement.LedgerAccount)

	history, err := e.ledger.HistoryRecords(userID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to mine transaction history: %w", err)
	}

	accounts, err := e.ledger.ListAccounts(userID)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("failed to list ledger accounts: %w", err)
	}
	known := make(map[string]struct{}, len(accounts))
	for _, account := range accounts {
		known[account] = struct{}{}
	}

	var newEntries []string
	skipped := 0
	for _, txn := range statement.Transactions {
		amount, err := decimal.NewFromString(txn.Amount.String())
		if err != nil {
			return nil, 0, 0, fmt.Errorf("invalid amount %q on %s: %w", txn.Amount, txn.Date, err)
		}
		if amount.IsZero() {
			skipped++
			continue
		}

		counter, err := resolveCounterAccount(ledgerAccount, txn, amount)
		if err != nil {
			return nil, 0, 0, err
		}

		if suggested, err := e.ledger.SuggestCounterAccount(userID, txn.Description, ledgerAccount, 1, history); err != nil {
			return nil, 0, 0, err
		} else if suggested != "" && suggested != counter && suggested != ledgerAccount {
			e.logger.Debug("history overrides counter account",
				"description", txn.Description, "model", counter, "history", suggested)
			counter = suggested
		}

		// Configured hints outrank both the model and mined history, but
		// only for accounts the ledger actually has.
		if hinted := e.hints.AccountFor(txn.Description); hinted != "" && hinted != ledgerAccount {
			if _, ok := known[hinted]; ok {
				counter = hinted
			} else {
				e.logger.Warn("hint points at an account missing from the ledger",
					"description", txn.Description, "account", hinted)
			}
		}

		exists, err := e.ledger.PostingExists(userID, ledgerAccount, amount, statement.Currency, txn.Date)
		if err != nil {
			return nil, 0, 0, err
		}
		if exists {
			skipped++
			continue
		}

		newEntries = append(newEntries, renderEntry(statement, txn, ledgerAccount, counter, amount))
	}

	if len(newEntries) == 0 {
		return nil, 0, skipped, nil
	}

	heading := fmt.Sprintf("; =========== import %s at %s ===========",
		sourceName, e.now().Format("2006-01-02 15:04:05"))
	return append([]string{heading}, newEntries...), len(newEntries), skipped, nil
}

func (e *Extractor) accountContext(userID string) (string, []string, []string, error) {
	lines, warnings, err := e.ledger.SummarizeAccounts(userID)
	if err != nil {
		return "", nil, nil, err
	}
	accounts, err := e.ledger.ListAccounts(userID)
	if err != nil {
		return "", nil, nil, err
	}
	if len(accounts) == 0 {
		return "", nil, nil, ErrNoAccounts
	}
	historyLines, err := e.ledger.TransactionHistorySummary(userID, 0)
	if err != nil {
		return "", nil, nil, err
	}

	if len(lines) == 0 {
		lines = []string{"(no account balances available)"}
	}
	summary := strings.Join(lines, "\n")
	if len(warnings) > 0 {
		summary += "\nWarnings: " + strings.Join(warnings, "; ")
	}
	return summary, accounts, historyLines, nil
}

func (e *Extractor) buildPrompt(summary string, allowed, historyLines []string, userNote string) string {
	historyBlock := "No prior transactions found; use the allowed accounts consistently."
	if len(historyLines) > 0 {
		historyBlock = strings.Join(historyLines, "\n")
	}
	noteBlock := ""
	if userNote != "" {
		noteBlock = "Additional user note: " + userNote
	}
	return fmt.Sprintf(promptTemplate,
		e.now().Format("2006"),
		strings.Join(allowed, "\n"),
		summary,
		historyBlock,
		noteBlock,
	)
}

// buildParts packs the statement file as inline data alongside the prompt.
func (e *Extractor) buildParts(statementPath, prompt string) ([]*genai.Part, error) {
	ext := strings.ToLower(filepath.Ext(statementPath))
	mimeType, ok := mimeTypes[ext]
	if !ok {
		return nil, fmt.Errorf("unsupported statement file type %q, use PDF, PNG, or JPEG", ext)
	}

	data, err := os.ReadFile(statementPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read statement file: %w", err)
	}

	return []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
		{Text: prompt},
	}, nil
}

// validateStatement enforces the allowed account list and the debit/credit
// orientation contract of the extraction prompt.
func validateStatement(statement *BankStatement, allowedAccounts []string) error {
	allowed := make(map[string]struct{}, len(allowedAccounts))
	for _, account := range allowedAccounts {
		allowed[strings.TrimSpace(account)] = struct{}{}
	}

	missing := make(map[string]struct{})
	ledger := strings.TrimSpace(statement.LedgerAccount)
	if _, ok := allowed[ledger]; !ok {
		missing[ledger] = struct{}{}
	}

	for _, txn := range statement.Transactions {
		debit := strings.TrimSpace(txn.Debit)
		credit := strings.TrimSpace(txn.Credit)
		amount, err := decimal.NewFromString(txn.Amount.String())
		if err != nil {
			return fmt.Errorf("invalid amount %q on %s: %w", txn.Amount, txn.Date, err)
		}

		if _, ok := allowed[debit]; !ok {
			missing[debit] = struct{}{}
		}
		if _, ok := allowed[credit]; !ok {
			missing[credit] = struct{}{}
		}

		if amount.IsNegative() && debit != ledger {
			return fmt.Errorf("transaction on %s should debit %s because amount is negative, got %s", txn.Date, ledger, debit)
		}
		if amount.IsPositive() && credit != ledger {
			return fmt.Errorf("transaction on %s should credit %s because amount is positive, got %s", txn.Date, ledger, credit)
		}
	}

	if len(missing) > 0 {
		names := make([]string, 0, len(missing))
		for name := range missing {
			names = append(names, name)
		}
		return &DisallowedAccountsError{Accounts: names}
	}
	return nil
}

// resolveCounterAccount picks the counterparty leg from the model's
// debit/credit hints.
func resolveCounterAccount(ledgerAccount string, txn StatementTransaction, amount decimal.Decimal) (string, error) {
	debit := strings.TrimSpace(txn.Debit)
	credit := strings.TrimSpace(txn.Credit)

	var counter string
	if amount.IsNegative() {
		counter = credit
		if counter == "" || counter == ledgerAccount {
			counter = debit
		}
	} else {
		counter = debit
		if counter == "" || counter == ledgerAccount {
			counter = credit
		}
	}

	if counter == "" || counter == ledgerAccount {
		return "", fmt.Errorf("model did not supply a counter account distinct from the ledger account for %s", txn.Date)
	}
	return counter, nil
}

// renderEntry formats one balanced two-posting transaction.
func renderEntry(statement *BankStatement, txn StatementTransaction, ledgerAccount, counterAccount string, amount decimal.Decimal) string {
	description := sanitizeDescription(txn.Description)
	return strings.Join([]string{
		fmt.Sprintf("%s * %q", txn.Date, description),
		fmt.Sprintf("  %s  %s %s", ledgerAccount, formatDecimal(amount), statement.Currency),
		fmt.Sprintf("  %s  %s %s", counterAccount, formatDecimal(amount.Neg()), statement.Currency),
	}, "\n")
}

// formatDecimal renders an amount without trailing fraction zeros.
func formatDecimal(value decimal.Decimal) string {
	text := value.String()
	if strings.Contains(text, ".") {
		text = strings.TrimRight(text, "0")
		text = strings.TrimRight(text, ".")
	}
	if text == "" || text == "-" {
		return "0"
	}
	return text
}

// sanitizeDescription flattens newlines and swaps double quotes so the
// description survives inside a quoted narration.
func sanitizeDescription(description string) string {
	cleaned := strings.TrimSpace(strings.ReplaceAll(description, "\n", " "))
	return strings.ReplaceAll(cleaned, `"`, "'")
}
