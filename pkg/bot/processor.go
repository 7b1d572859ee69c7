// Package bot routes Telegram updates to the ledger workflows: free-text
// entry generation, statement uploads, review callbacks, and the command
// set. It owns no bookkeeping logic itself; everything flows through the
// ledger service, the extractor, and the conversational state store.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/db"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/extractor"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/fava"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/llm"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/pathutil"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/telegram"
)

var digitPattern = regexp.MustCompile(`\d`)

// Deps holds the collaborators a Processor needs.
type Deps struct {
	Telegram  *telegram.Client
	Ledger    *beancount.Service
	LLM       *llm.Client
	Extractor *extractor.Extractor
	Messages  *db.MessageLog
	Pending   *db.PendingStore
	Fava      *fava.Manager // optional
	Paths     *pathutil.PathResolver
	Logger    *slog.Logger
}

// Processor handles one Telegram update at a time.
type Processor struct {
	telegram  *telegram.Client
	ledger    *beancount.Service
	llm       *llm.Client
	extractor *extractor.Extractor
	messages  *db.MessageLog
	pending   *db.PendingStore
	fava      *fava.Manager
	paths     *pathutil.PathResolver
	logger    *slog.Logger
	now       func() time.Time
}

// New creates a Processor.
func New(deps Deps) *Processor {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		telegram:  deps.Telegram,
		ledger:    deps.Ledger,
		llm:       deps.LLM,
		extractor: deps.Extractor,
		messages:  deps.Messages,
		pending:   deps.Pending,
		fava:      deps.Fava,
		paths:     deps.Paths,
		logger:    logger,
		now:       time.Now,
	}
}

// Commands returns the command menu published at startup.
func Commands() []telegram.BotCommand {
	return []telegram.BotCommand{
		{Command: "start", Description: "Show usage and the current instruction"},
		{Command: "instruction", Description: "View or update your custom instruction"},
		{Command: "accounts", Description: "Show ledger accounts and balances"},
		{Command: "history", Description: "Show recent transaction history"},
	}
}

// HandleUpdate processes one update. Errors are reported to the user where
// possible; the returned error is for logging only.
func (p *Processor) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return p.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil {
		return nil
	}
	return p.handleMessage(ctx, update.Message)
}

func (p *Processor) handleMessage(ctx context.Context, message *telegram.Message) error {
	userID := userIDOf(message)
	chatID := message.Chat.ID

	if message.Document != nil || len(message.Photo) > 0 {
		return p.handleStatementUpload(ctx, message, userID, chatID)
	}

	text := strings.TrimSpace(message.Text)
	if text == "" {
		return nil
	}

	rowID, err := p.messages.LogMessage(userID, text)
	if err != nil {
		p.logger.Error("failed to log message", "user", userID, "error", err)
	}

	if strings.HasPrefix(text, "/") {
		return p.handleCommand(ctx, userID, chatID, rowID, text)
	}

	if !looksLikeTransaction(text) {
		friendly := "I didn't detect any amounts or transaction details. " +
			"Please describe a transaction with dates/amounts or attach a statement file/image."
		p.recordResponse(rowID, friendly)
		_, err := p.telegram.SendMessage(ctx, chatID, friendly, nil)
		return err
	}

	return p.handleTransactionText(ctx, userID, chatID, rowID, text)
}

func (p *Processor) handleCommand(ctx context.Context, userID string, chatID, rowID int64, text string) error {
	command, payload := splitCommand(text)
	switch command {
	case "/start":
		return p.handleStart(ctx, userID, chatID, rowID)
	case "/instruction":
		return p.handleInstruction(ctx, userID, chatID, rowID, payload)
	case "/accounts":
		return p.handleAccounts(ctx, userID, chatID, rowID)
	case "/history":
		return p.handleHistory(ctx, userID, chatID, rowID)
	default:
		response := fmt.Sprintf("Unknown command %s. Try /start for usage.", command)
		p.recordResponse(rowID, response)
		_, err := p.telegram.SendMessage(ctx, chatID, response, nil)
		return err
	}
}

// splitCommand separates the command token from its payload and strips a
// trailing @botname mention.
func splitCommand(text string) (string, string) {
	command := text
	payload := ""
	if idx := strings.IndexAny(text, " \t\n"); idx != -1 {
		command = text[:idx]
		payload = strings.TrimSpace(text[idx+1:])
	}
	command = strings.ToLower(command)
	if at := strings.Index(command, "@"); at != -1 {
		command = command[:at]
	}
	return command, payload
}

// looksLikeTransaction is a cheap pre-filter: without a single digit there
// is nothing to book, so the model is not called.
func looksLikeTransaction(text string) bool {
	return digitPattern.MatchString(text)
}

func userIDOf(message *telegram.Message) string {
	if message.From != nil {
		return strconv.FormatInt(message.From.ID, 10)
	}
	return strconv.FormatInt(message.Chat.ID, 10)
}

// recordResponse stores the bot's reply next to the logged message; a
// failure here must never break the conversation.
func (p *Processor) recordResponse(rowID int64, response string) {
	if rowID == 0 {
		return
	}
	if err := p.messages.UpdateMessageResponse(rowID, response); err != nil {
		p.logger.Warn("failed to record response", "row", rowID, "error", err)
	}
}

func (p *Processor) refreshFava() {
	if p.fava == nil {
		return
	}
	p.fava.Refresh()
}
