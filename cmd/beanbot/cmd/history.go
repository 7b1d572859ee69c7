package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/config"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/pathutil"
)

var (
	historyUser  string
	historyLimit int
)

// historyCmd represents the history command.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Display a user's mined transaction history",
	Long: `Display the per-description transaction history mined from one
user's ledger: how often each counterparty appears, when it was last
seen, and which account pair it usually books to.

This is the same history the bot feeds into entry generation and
statement imports.

Example:
  beanbot history --user 12345
  beanbot history --user 12345 --limit 10`,
	Run: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyUser, "user", "", "Telegram user ID (required)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum number of descriptions (0 = no limit)")
	historyCmd.MarkFlagRequired("user")
}

func runHistory(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	pathResolver := pathutil.New(cfg.PathConfig())
	ledger := beancount.NewService(pathResolver)

	lines, err := ledger.TransactionHistorySummary(historyUser, historyLimit)
	exitOnError(err, "failed to mine transaction history")

	if len(lines) == 0 {
		fmt.Println("No transaction history found")
		return
	}

	fmt.Println("\n=== Transaction History (most recent first) ===")
	for _, line := range lines {
		fmt.Println(line)
	}
	fmt.Println()
}
