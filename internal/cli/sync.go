package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
)

// NewSyncCommand creates the sync command, which performs one replay run.
func NewSyncCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "sync",
		Short:         "Replay new activity once and exit",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return err
			}

			a, err := newApp(opts.cfg, opts.logger)
			if err != nil {
				return err
			}
			defer a.close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			run, err := a.scheduler.RunNow(ctx)
			if rl := a.client.RateLimit(); rl.Limit > 0 {
				opts.logger.WithFields(logrus.Fields{
					"remaining": rl.Remaining,
					"limit":     rl.Limit,
					"reset":     rl.ResetTime.UTC().Format(time.RFC3339),
				}).Debug("GitHub rate limit after run")
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"replayed %d (commits %d, prs %d, issues %d), reconciled %d, pushed %t\n",
				run.TotalReplayed(),
				run.Replayed[models.CategoryCommit],
				run.Replayed[models.CategoryPullRequest],
				run.Replayed[models.CategoryIssue],
				run.Reconciled,
				run.Pushed,
			)
			return nil
		},
	}
}
