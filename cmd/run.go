package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run <agent-id>",
		Short: "Run one agent immediately and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), args[0])
		},
	}
}

func runOnce(ctx context.Context, agentID string) error {
	a, err := newApplication(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	result, err := a.app.Scheduler().TriggerAgent(ctx, agentID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if !result.Success {
		return fmt.Errorf("agent %s failed: %s", agentID, result.Error)
	}
	return nil
}
