package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/beancount"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/config"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/pathutil"
)

var accountsUser string

// accountsCmd represents the accounts command.
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Display a user's ledger accounts and balances",
	Long: `Display the accounts and balances of one user's ledger file.

The ledger is parsed and normalized exactly like the bot does before
generating entries, so warnings shown here match what the bot sees.

Example:
  beanbot accounts --user 12345`,
	Run: runAccounts,
}

func init() {
	accountsCmd.Flags().StringVar(&accountsUser, "user", "", "Telegram user ID (required)")
	accountsCmd.MarkFlagRequired("user")
}

func runAccounts(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	pathResolver := pathutil.New(cfg.PathConfig())
	ledger := beancount.NewService(pathResolver)

	slog.Debug("Reading ledger", "path", pathResolver.UserLedgerPath(accountsUser))
	lines, warnings, err := ledger.SummarizeAccounts(accountsUser)
	exitOnError(err, "failed to read ledger")

	if len(lines) == 0 {
		fmt.Println("No accounts found in the ledger")
		return
	}

	fmt.Println("\n=== Ledger Accounts ===")
	for _, line := range lines {
		fmt.Println(line)
	}
	if len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for _, warning := range warnings {
			fmt.Printf("- %s\n", warning)
		}
	}
	fmt.Println()
}
