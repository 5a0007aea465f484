// Package cli wires configuration, logging and the replay components into cobra commands.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/config"
	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
)

// RootOptions holds global flags and the state every subcommand shares.
type RootOptions struct {
	ConfigPath string
	Verbose    bool
	LogFormat  string // "json" | "text"; empty uses the configured format

	cfg    *config.Config
	logger *logrus.Logger
}

// ValidLogFormats defines the allowed log formats.
var ValidLogFormats = []string{"json", "text"}

// NewRootCommand creates the root command for the activity mirror CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "activity-mirror",
		Short: "Mirror GitHub activity into a contribution repository",
		Long: "Replays commits, pull requests and issues of one GitHub identity as synthetic\n" +
			"commits on a repository owned by another, recording what was replayed in a ledger.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file (defaults to $CONFIG_FILE)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.LogFormat, "log-format", "", "log format (json|text)")

	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return apperrors.NewConfigError("invalid usage of "+c.CommandPath(), err)
	})

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewFakeCommand(opts))
	cmd.AddCommand(NewLedgerCommand(opts))
	classifyRunErrors(cmd)

	return cmd
}

// Execute runs cmd and returns an error whose class selects the exit code.
// Command bodies only return classified errors, so an unclassified one was
// raised by cobra while resolving the command line: an unknown command,
// unexpected arguments or a missing required flag.
func Execute(cmd *cobra.Command) error {
	err := cmd.Execute()
	if err == nil {
		return nil
	}
	if _, ok := apperrors.TypeOf(err); !ok {
		return apperrors.NewConfigError("invalid usage", err)
	}
	return err
}

// classifyRunErrors makes every command body return an AppError, INTERNAL by default
func classifyRunErrors(cmd *cobra.Command) {
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(c *cobra.Command, args []string) error {
			err := run(c, args)
			if err == nil {
				return nil
			}
			if _, ok := apperrors.TypeOf(err); !ok {
				return apperrors.NewInternalError(c.CommandPath()+" failed", err)
			}
			return err
		}
	}
	for _, sub := range cmd.Commands() {
		classifyRunErrors(sub)
	}
}

func (o *RootOptions) setup(cmd *cobra.Command) error {
	if o.LogFormat != "" && !isValidFormat(o.LogFormat) {
		return apperrors.NewConfigError(fmt.Sprintf("invalid log format %q: must be one of %v", o.LogFormat, ValidLogFormats), nil)
	}

	// A missing .env is normal outside development
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return apperrors.NewConfigError("failed to read .env", err)
	}

	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return err
	}
	if o.LogFormat == "" {
		o.LogFormat = cfg.Log.Format
	}
	if !isValidFormat(o.LogFormat) {
		return apperrors.NewConfigError(fmt.Sprintf("invalid LOG_FORMAT %q: must be one of %v", o.LogFormat, ValidLogFormats), nil)
	}

	logger, err := newLogger(cfg.Log.Level, o.LogFormat, o.Verbose)
	if err != nil {
		return err
	}
	logger.SetOutput(cmd.ErrOrStderr())

	o.cfg = cfg
	o.logger = logger
	return nil
}

func newLogger(level, format string, verbose bool) (*logrus.Logger, error) {
	logger := logrus.New()
	if format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339,
		})
	}

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
		return logger, nil
	}
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid LOG_LEVEL", err)
	}
	logger.SetLevel(lvl)
	return logger, nil
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidLogFormats {
		if f == format {
			return true
		}
	}
	return false
}
