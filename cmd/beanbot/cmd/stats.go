package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/beancount-bot/pkg/config"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/db"
	"github.com/shunichi-ikebuchi/beancount-bot/pkg/pathutil"
)

// statsCmd represents the stats command.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display bot usage statistics",
	Long: `Display statistics about logged messages and pending entries.

Shows:
- Total number of logged messages
- Number of distinct users
- Pending entry proposals awaiting review
- Last message timestamp

Example:
  beanbot stats`,
	Run: runStats,
}

func runStats(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(getConfigFile())
	exitOnError(err, "failed to load configuration")

	pathResolver := pathutil.New(cfg.PathConfig())

	dbPath := pathResolver.DatabasePath()
	slog.Debug("Opening database", "path", dbPath)
	conn, err := db.Open(dbPath)
	exitOnError(err, "failed to open database")
	defer conn.Close()

	messages := db.NewMessageLog(conn)

	stats, err := messages.GetStats()
	exitOnError(err, "failed to get statistics")

	fmt.Println("\n=== Bot Statistics ===")
	fmt.Printf("Total messages:  %d\n", stats.TotalMessages)
	fmt.Printf("Distinct users:  %d\n", stats.TotalUsers)
	fmt.Printf("Pending entries: %d\n", stats.PendingEntries)

	if stats.LastMessage.Valid {
		fmt.Printf("Last message:    %s\n", stats.LastMessage.String)
	} else {
		fmt.Printf("Last message:    (never)\n")
	}

	fmt.Println()
}
