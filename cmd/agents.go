package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAgentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect the agent department",
	}
	cmd.AddCommand(newAgentsListCmd(), newAgentsShowCmd())
	return cmd
}

func newAgentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all agents with their state and schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			return listAgents(cmd.Context())
		},
	}
}

func newAgentsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <agent-id>",
		Short: "Print one agent's full configuration as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showAgent(cmd.Context(), args[0])
		},
	}
}

func listAgents(ctx context.Context) error {
	a, err := newApplication(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "AGENT\tNAME\tENABLED\tVERSION\tLAST RUN")
	for _, st := range a.app.Registry().Statuses() {
		lastRun := "never"
		if st.LastRun != nil {
			lastRun = st.LastRun.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(tw, "%s\t%s\t%t\tv%d\t%s\n",
			st.AgentID, st.DisplayName, st.Enabled, st.ConfigVersion, lastRun)
	}
	return tw.Flush()
}

func showAgent(ctx context.Context, agentID string) error {
	a, err := newApplication(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	unit, ok := a.app.Registry().Get(agentID)
	if !ok {
		return fmt.Errorf("unknown agent %q", agentID)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"status": unit.Status(),
		"config": unit.Config().ToMap(),
	})
}
