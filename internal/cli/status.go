package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vietddude/sentinel/internal/core/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current queue populations",
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("Failed to open store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	stats, err := store.Stats(ctx)
	if err != nil {
		slog.Error("Failed to read queue stats", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SET\tTASKS")
	_, _ = fmt.Fprintf(w, "pending\t%d\n", stats.Pending)
	_, _ = fmt.Fprintf(w, "processing\t%d\n", stats.Processing)
	_, _ = fmt.Fprintf(w, "dead_letter\t%d\n", stats.DeadLetter)
	_ = w.Flush()
}
