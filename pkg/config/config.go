// Package config provides configuration management for the bookkeeping bot.
// It loads configuration from environment variables and .env files.
package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/pathutil"
)

// Config represents the application configuration. It is built once at
// startup and handed to each component explicitly; nothing reads the
// environment after Load returns.
type Config struct {
	Telegram  TelegramConfig
	Gemini    GeminiConfig
	Beancount BeancountConfig
	Fava      FavaConfig
	Debug     bool `env:"DEBUG"`
}

// TelegramConfig represents Telegram Bot API configuration.
type TelegramConfig struct {
	// Token is the bot token issued by BotFather.
	Token string `env:"TELEGRAM_BOT_TOKEN"`
	// APIURL allows pointing the client at a local Bot API server.
	APIURL string `env:"TELEGRAM_API_URL" envDefault:"https://api.telegram.org"`
	// PollTimeoutSeconds is the long-poll timeout for getUpdates.
	PollTimeoutSeconds int `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"30"`
}

// GeminiConfig represents Gemini API configuration.
type GeminiConfig struct {
	APIKey string `env:"GEMINI_API_KEY"`
	// Model handles conversational entry generation.
	Model string `env:"GEMINI_MODEL" envDefault:"gemini-2.0-flash"`
	// ExtractionModel handles bank statement files; defaults to Model.
	ExtractionModel string `env:"GEMINI_EXTRACTION_MODEL"`
	MaxRetries      int    `env:"GEMINI_MAX_RETRIES" envDefault:"3"`
}

// BeancountConfig represents ledger storage configuration.
type BeancountConfig struct {
	// Root is the directory holding one ledger file per user.
	Root string `env:"BEANCOUNT_ROOT" envDefault:"./data/beancount"`
	// DBPath is the SQLite file for conversational state. Empty uses the
	// pathutil default next to the ledger root.
	DBPath string `env:"BEANCOUNT_DB_PATH"`
	// AttachmentsDir is the scratch directory for downloaded statements.
	AttachmentsDir string `env:"BEANCOUNT_ATTACHMENTS_DIR"`
	// HintsPath optionally points at a YAML keyword-to-account mapping.
	HintsPath string `env:"BEANCOUNT_HINTS_PATH"`
}

// FavaConfig represents the embedded Fava report viewer configuration.
type FavaConfig struct {
	// Binary is the fava executable; an empty PATH lookup disables the viewer.
	Binary string `env:"FAVA_BINARY" envDefault:"fava"`
	Host   string `env:"FAVA_HOST" envDefault:"127.0.0.1"`
	Port   int    `env:"FAVA_PORT" envDefault:"5000"`
}

// Load loads configuration from environment variables.
// It automatically loads .env file from the current directory if available.
// You can optionally specify a custom .env file path.
func Load(envPath ...string) (*Config, error) {
	if len(envPath) > 0 && envPath[0] != "" {
		if err := godotenv.Load(envPath[0]); err != nil {
			return nil, fmt.Errorf("failed to load .env file: %w", err)
		}
	} else {
		// Try to load .env from current directory (ignore error if not found)
		_ = godotenv.Load()
	}

	config, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if config.Gemini.ExtractionModel == "" {
		config.Gemini.ExtractionModel = config.Gemini.Model
	}
	return &config, nil
}

// Validate checks that the fields required to run the bot are set. The
// read-only CLI commands work without them.
func (c *Config) Validate() error {
	var missing []string
	if c.Telegram.Token == "" {
		missing = append(missing, "TELEGRAM_BOT_TOKEN")
	}
	if c.Gemini.APIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %v\nPlease check your .env file or environment variables", missing)
	}
	return nil
}

// PathConfig maps the ledger storage settings onto a pathutil.Config.
func (c *Config) PathConfig() pathutil.Config {
	return pathutil.Config{
		LedgerRoot:     c.Beancount.Root,
		DatabasePath:   c.Beancount.DBPath,
		AttachmentsDir: c.Beancount.AttachmentsDir,
	}
}
