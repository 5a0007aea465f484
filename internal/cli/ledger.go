package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/ledger"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
)

// NewLedgerCommand creates the ledger command group.
func NewLedgerCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the ledger of replayed activity",
	}
	cmd.AddCommand(newLedgerShowCommand(opts))
	return cmd
}

func newLedgerShowCommand(opts *RootOptions) *cobra.Command {
	var counts bool

	cmd := &cobra.Command{
		Use:           "show",
		Short:         "Print the ledger",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := ledger.Open(opts.cfg.Ledger, opts.logger)
			if err != nil {
				return err
			}
			defer closeStore()

			state, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if counts {
				c := state.Counts()
				for _, cat := range []models.Category{
					models.CategoryCommit,
					models.CategoryPullRequest,
					models.CategoryIssue,
					models.CategoryBranch,
				} {
					fmt.Fprintf(out, "%s\t%d\n", cat, c[cat])
				}
				return nil
			}

			data, err := ledger.Marshal(state)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(data))
			return nil
		},
	}

	cmd.Flags().BoolVar(&counts, "counts", false, "print entry counts per category")
	return cmd
}
