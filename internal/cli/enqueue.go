package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vietddude/sentinel/internal/core/config"
	"github.com/vietddude/sentinel/internal/queue"
)

var (
	enqueueMaxAttempts int
	enqueueDelay       time.Duration
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [task_type] [payload_json]",
	Short: "Schedule a task on the durable retry queue",
	Args:  cobra.ExactArgs(2),
	Run:   runEnqueue,
}

func init() {
	enqueueCmd.Flags().IntVar(&enqueueMaxAttempts, "max-attempts", 3, "attempts before the task is dead-lettered")
	enqueueCmd.Flags().DurationVar(&enqueueDelay, "delay", 0, "initial delay before the task becomes due")
	rootCmd.AddCommand(enqueueCmd)
}

func runEnqueue(cmd *cobra.Command, args []string) {
	taskType := args[0]
	payload := json.RawMessage(args[1])
	if !json.Valid(payload) {
		fmt.Printf("Payload is not valid JSON: %s\n", args[1])
		os.Exit(1)
	}

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
	id, err := q.Enqueue(ctx, taskType, payload, enqueueMaxAttempts, enqueueDelay)
	if err != nil {
		slog.Error("Failed to enqueue task", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Enqueued %s task %s\n", taskType, id)
}
