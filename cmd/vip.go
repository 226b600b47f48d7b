package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/teemow/inboxpilot/internal/config"
	"github.com/teemow/inboxpilot/internal/vip"
)

func newVIPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vip",
		Short: "Manage the VIP contact and domain list",
		Long: `Maintains the list of important senders the VIP monitor agent
watches. Entries are either individual addresses or whole domains.`,
	}
	cmd.AddCommand(newVIPListCmd(), newVIPAddCmd(), newVIPRemoveCmd())
	return cmd
}

// vipStore opens the VIP store without the full application bootstrap, so
// list management works before Gmail credentials exist.
func vipStore() (*vip.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return vip.NewStore(cfg.VIPPath()), nil
}

func newVIPListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List VIP contacts and domains",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := vipStore()
			if err != nil {
				return err
			}
			contacts, domains, err := store.Load()
			if err != nil {
				return err
			}
			if len(contacts) == 0 && len(domains) == 0 {
				fmt.Println("No VIPs configured. Add one with 'inboxpilot vip add'.")
				return nil
			}
			tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			for _, c := range contacts {
				fmt.Fprintf(tw, "contact\t%s\t%s\n", c.Email, c.Name)
			}
			for _, d := range domains {
				fmt.Fprintf(tw, "domain\t%s\t%s\n", d.Domain, d.Company)
			}
			return tw.Flush()
		},
	}
}

func newVIPAddCmd() *cobra.Command {
	var name string
	var domain bool

	cmd := &cobra.Command{
		Use:   "add <email-or-domain>",
		Short: "Add a VIP contact or domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := vipStore()
			if err != nil {
				return err
			}
			if domain {
				if err := store.AddDomain(args[0], name); err != nil {
					return err
				}
			} else {
				if err := store.AddContact(args[0], name); err != nil {
					return err
				}
			}
			fmt.Printf("Added %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name (or company for --domain)")
	cmd.Flags().BoolVar(&domain, "domain", false, "treat the argument as a sender domain")

	return cmd
}

func newVIPRemoveCmd() *cobra.Command {
	var domain bool

	cmd := &cobra.Command{
		Use:   "remove <email-or-domain>",
		Short: "Remove a VIP contact or domain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := vipStore()
			if err != nil {
				return err
			}
			if domain {
				if err := store.RemoveDomain(args[0]); err != nil {
					return err
				}
			} else {
				if err := store.RemoveContact(args[0]); err != nil {
					return err
				}
			}
			fmt.Printf("Removed %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().BoolVar(&domain, "domain", false, "treat the argument as a sender domain")

	return cmd
}
