package cmd

import (
	"context"
	"log/slog"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/bot"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/config"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/db"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/extractor"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/fava"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/hints"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/llm"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/pathutil"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/telegram"
)

var noFava bool

// serveCmd represents the serve command.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Telegram bot",
	Long: `Run the Telegram bot with long polling.

This command:
1. Loads configuration from the environment or a .env file
2. Opens the SQLite conversation database
3. Connects to the Telegram Bot API and the Gemini API
4. Starts the embedded Fava viewer over the discovered ledgers
5. Polls for updates until interrupted

Example:
  beanbot serve
  beanbot serve --no-fava`,
	Run: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&noFava, "no-fava", false, "disable the embedded Fava viewer")
}

func runServe(cmd *cobra.Command, args []string) {
	// Load configuration
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")
	exitOnError(cfg.Validate(), "invalid configuration")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize components
	pathResolver := pathutil.New(cfg.PathConfig())
	exitOnError(pathResolver.EnsureDir(pathResolver.LedgerRoot()), "failed to create ledger root")
	exitOnError(pathResolver.EnsureParentDir(pathResolver.DatabasePath()), "failed to create database directory")

	// Open database
	dbPath := pathResolver.DatabasePath()
	slog.Debug("Opening database", "path", dbPath)
	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	messages := db.NewMessageLog(conn)
	pending := db.NewPendingStore(conn)

	ledger := beancount.NewService(pathResolver)

	// Gemini clients: the chat model and the statement extraction model can
	// be configured independently.
	chatLLM, err := llm.NewClient(ctx, llm.ClientConfig{
		APIKey:     cfg.Gemini.APIKey,
		Model:      cfg.Gemini.Model,
		MaxRetries: cfg.Gemini.MaxRetries,
	}, slog.Default())
	exitOnError(err, "failed to create Gemini client")

	extractionLLM := chatLLM
	if cfg.Gemini.ExtractionModel != cfg.Gemini.Model {
		extractionLLM, err = llm.NewClient(ctx, llm.ClientConfig{
			APIKey:     cfg.Gemini.APIKey,
			Model:      cfg.Gemini.ExtractionModel,
			MaxRetries: cfg.Gemini.MaxRetries,
		}, slog.Default())
		exitOnError(err, "failed to create Gemini extraction client")
	}

	var hintMapper *hints.Mapper
	if cfg.Beancount.HintsPath != "" {
		hintMapper, err = hints.NewMapper(cfg.Beancount.HintsPath)
		exitOnError(err, "failed to load account hints")
		slog.Info("Loaded account hints", "path", cfg.Beancount.HintsPath, "count", hintMapper.Len())
	}

	statementExtractor := extractor.New(extractionLLM, ledger, hintMapper, slog.Default())

	telegramClient := telegram.NewClient(telegram.ClientConfig{
		Token:   cfg.Telegram.Token,
		APIURL:  cfg.Telegram.APIURL,
		Timeout: time.Duration(cfg.Telegram.PollTimeoutSeconds+60) * time.Second,
	})

	var favaManager *fava.Manager
	if !noFava {
		favaManager = fava.NewManager(pathResolver, fava.Config{
			Binary: cfg.Fava.Binary,
			Host:   cfg.Fava.Host,
			Port:   strconv.Itoa(cfg.Fava.Port),
		}, slog.Default())
		favaManager.Start()
		defer favaManager.Stop()
	}

	processor := bot.New(bot.Deps{
		Telegram:  telegramClient,
		Ledger:    ledger,
		LLM:       chatLLM,
		Extractor: statementExtractor,
		Messages:  messages,
		Pending:   pending,
		Fava:      favaManager,
		Paths:     pathResolver,
		Logger:    slog.Default(),
	})

	if err := telegramClient.SetMyCommands(ctx, bot.Commands()); err != nil {
		slog.Warn("Failed to publish command menu", "error", err)
	}

	slog.Info("Bot started", "poll_timeout", cfg.Telegram.PollTimeoutSeconds)
	pollUpdates(ctx, telegramClient, processor, cfg.Telegram.PollTimeoutSeconds)
	slog.Info("Bot stopped")
}

// pollUpdates runs the getUpdates long-poll loop until ctx is cancelled.
// Each update is handled in its own goroutine so a slow model call never
// blocks the poll.
func pollUpdates(ctx context.Context, client *telegram.Client, processor *bot.Processor, timeoutSeconds int) {
	var wg sync.WaitGroup
	var offset int64

	for {
		updates, err := client.GetUpdates(ctx, offset, timeoutSeconds)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			slog.Error("Failed to fetch updates", "error", err)
			select {
			case <-time.After(5 * time.Second):
			case <-ctx.Done():
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= offset {
				offset = update.UpdateID + 1
			}
			wg.Add(1)
			go func(update telegram.Update) {
				defer wg.Done()
				if err := processor.HandleUpdate(ctx, update); err != nil {
					slog.Error("Failed to handle update", "update_id", update.UpdateID, "error", err)
				}
			}(update)
		}

		if ctx.Err() != nil {
			break
		}
	}

	wg.Wait()
}
