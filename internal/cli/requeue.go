package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/vietddude/sentinel/internal/core/config"
	"github.com/vietddude/sentinel/internal/queue"
)

var requeueCmd = &cobra.Command{
	Use:   "requeue [task_id]",
	Short: "Move a dead-lettered task back to the pending queue",
	Args:  cobra.ExactArgs(1),
	Run:   runRequeue,
}

func init() {
	rootCmd.AddCommand(requeueCmd)
}

func runRequeue(cmd *cobra.Command, args []string) {
	id := args[0]

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

	q := queue.New(store, cfg.Queue.Backoff)
	requeued, err := q.RetryDeadLetter(ctx, id)
	if err != nil {
		slog.Error("Failed to requeue task", "error", err)
		os.Exit(1)
	}
	if !requeued {
		fmt.Printf("Task %s is not in the dead letter queue\n", id)
		os.Exit(1)
	}

	fmt.Printf("Requeued task %s\n", id)
}
