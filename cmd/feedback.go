package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newFeedbackCmd() *cobra.Command {
	var note string
	var executionID int64

	cmd := &cobra.Command{
		Use:   "feedback <agent-id> <thumbs_up|thumbs_down|correction>",
		Short: "Record feedback on an agent's behavior",
		Long: `Records a feedback signal for an agent. Once enough feedback
accumulates, the learning manager folds it into the agent's prompt
within guardrail bounds.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return recordFeedback(cmd.Context(), args[0], args[1], note, executionID)
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "free-form note attached to the feedback")
	cmd.Flags().Int64Var(&executionID, "execution-id", 0, "execution this feedback refers to")

	return cmd
}

func recordFeedback(ctx context.Context, agentID, feedbackType, note string, executionID int64) error {
	switch feedbackType {
	case "thumbs_up", "thumbs_down", "correction":
	default:
		return fmt.Errorf("invalid feedback type: %q (want thumbs_up, thumbs_down, or correction)", feedbackType)
	}

	a, err := newApplication(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	if _, ok := a.app.Registry().Get(agentID); !ok {
		return fmt.Errorf("unknown agent %q", agentID)
	}

	var execID *int64
	if executionID > 0 {
		execID = &executionID
	}
	var data map[string]any
	if note != "" {
		data = map[string]any{"note": note}
	}

	if err := a.app.Learning().RecordFeedback(ctx, agentID, execID, feedbackType, data); err != nil {
		return err
	}

	fmt.Printf("Feedback recorded for %s\n", agentID)
	return nil
}
