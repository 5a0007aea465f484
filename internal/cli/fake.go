package cli

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
)

// NewFakeCommand creates the fake command, which pushes one commit at an explicit date.
func NewFakeCommand(opts *RootOptions) *cobra.Command {
	var (
		message string
		date    string
	)

	cmd := &cobra.Command{
		Use:           "fake",
		Short:         "Push a single commit with an explicit date",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.cfg.Validate(); err != nil {
				return err
			}
			at, err := parseDate(date)
			if err != nil {
				return err
			}

			wc := newWorkingCopy(opts.cfg, opts.logger)
			if err := wc.EnsureCloned(cmd.Context()); err != nil {
				return err
			}
			if err := wc.FakeCommit(cmd.Context(), message, at, identity(opts.cfg)); err != nil {
				return err
			}

			opts.logger.WithFields(logrus.Fields{
				"message": message,
				"date":    at.Format(time.RFC3339),
			}).Info("Fake commit pushed")
			return nil
		},
	}

	cmd.Flags().StringVarP(&message, "message", "m", "", "commit message")
	cmd.Flags().StringVar(&date, "date", "", "commit date in RFC 3339 (defaults to now)")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now(), nil
	}
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, apperrors.NewConfigError("invalid --date, want RFC 3339", err)
	}
	return at, nil
}
