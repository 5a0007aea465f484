package cli

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
)

var envKeys = []string{
	"CONFIG_FILE", "SOURCE_GITHUB_TOKEN", "DEST_GITHUB_TOKEN", "SYNC_REPO_OWNER", "SYNC_REPO_NAME",
	"AUTHOR_NAME", "AUTHOR_EMAIL", "LOCAL_REPO_PATH", "LEDGER_PATH", "LEDGER_DSN",
	"REPOS_TO_EXCLUDE", "BRANCH_FILTER", "LOG_LEVEL", "LOG_FORMAT", "PORT",
}

func clearEnv(t *testing.T) {
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func setRequiredEnv(t *testing.T) {
	t.Setenv("SOURCE_GITHUB_TOKEN", "src-token")
	t.Setenv("DEST_GITHUB_TOKEN", "dst-token")
	t.Setenv("SYNC_REPO_OWNER", "main-account")
	t.Setenv("SYNC_REPO_NAME", "activity")
	t.Setenv("AUTHOR_NAME", "Main Account")
	t.Setenv("AUTHOR_EMAIL", "main@example.com")
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := Execute(cmd)
	return stdout.String(), stderr.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "activity-mirror", cmd.Use)
	assert.Contains(t, cmd.Long, "synthetic")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := [][]string{{"sync"}, {"serve"}, {"fake"}, {"ledger"}, {"ledger", "show"}}

	for _, path := range commands {
		name := path[len(path)-1]
		t.Run(name, func(t *testing.T) {
			subCmd, _, err := cmd.Find(path)
			require.NoError(t, err, "Command %v should exist", path)
			require.NotNil(t, subCmd)
			assert.Equal(t, name, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("log-format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "", formatFlag.DefValue)

	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func TestFakeCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	fakeCmd, _, err := cmd.Find([]string{"fake"})
	require.NoError(t, err)

	messageFlag := fakeCmd.Flags().Lookup("message")
	require.NotNil(t, messageFlag)
	assert.Equal(t, "m", messageFlag.Shorthand)
	require.NotNil(t, fakeCmd.Flags().Lookup("date"))
}

func TestUsageErrors(t *testing.T) {
	clearEnv(t)

	tests := []struct {
		name string
		args []string
	}{
		{"invalid log format flag", []string{"--log-format", "xml", "ledger", "show"}},
		{"unknown flag", []string{"sync", "--no-such-flag"}},
		{"missing config file", []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "ledger", "show"}},
		{"unknown command", []string{"nosuchcmd"}},
		{"unexpected argument", []string{"sync", "extra"}},
		{"unexpected argument to ledger show", []string{"ledger", "show", "extra"}},
		{"missing required flag", []string{"fake"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, apperrors.ExitConfig, apperrors.ExitCode(err))
		})
	}
}

func TestInvalidLogFormatFromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOG_FORMAT", "xml")
	t.Setenv("LEDGER_PATH", filepath.Join(t.TempDir(), "ledger.json"))

	_, _, err := execute(t, "ledger", "show")
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitConfig, apperrors.ExitCode(err))
}

func TestSyncRequiresConfiguration(t *testing.T) {
	clearEnv(t)

	_, _, err := execute(t, "sync")
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitConfig, apperrors.ExitCode(err))
	assert.Contains(t, err.Error(), "SOURCE_GITHUB_TOKEN")
}

func TestFakeRejectsInvalidDate(t *testing.T) {
	clearEnv(t)
	setRequiredEnv(t)
	t.Setenv("LOCAL_REPO_PATH", filepath.Join(t.TempDir(), "clone"))

	_, _, err := execute(t, "fake", "-m", "hello", "--date", "yesterday")
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitConfig, apperrors.ExitCode(err))
}

func TestLedgerShow(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "processed_shas.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"shas":["abc123"],"prs":[7],"issues":[],"branches":[]}`), 0o644))
	t.Setenv("LEDGER_PATH", path)

	t.Run("document", func(t *testing.T) {
		stdout, _, err := execute(t, "ledger", "show")
		require.NoError(t, err)
		assert.JSONEq(t, `{"shas":["abc123"],"prs":[7],"issues":[],"branches":[]}`, stdout)
	})

	t.Run("counts", func(t *testing.T) {
		stdout, _, err := execute(t, "ledger", "show", "--counts")
		require.NoError(t, err)
		assert.Equal(t, "commit\t1\npull_request\t1\nissue\t0\nbranch\t0\n", stdout)
	})

	t.Run("corrupt", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{not json"), 0o644))
		t.Setenv("LEDGER_PATH", bad)

		_, _, err := execute(t, "ledger", "show")
		require.Error(t, err)
		assert.Equal(t, apperrors.ExitLedger, apperrors.ExitCode(err))
	})
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("warn", "text", false)
	require.NoError(t, err)
	assert.Equal(t, logrus.WarnLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	logger, err = newLogger("warn", "json", true)
	require.NoError(t, err)
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	_, err = newLogger("loud", "json", false)
	assert.Equal(t, apperrors.ExitConfig, apperrors.ExitCode(err))
}

func TestParseDate(t *testing.T) {
	at, err := parseDate("2024-03-01T10:00:00+01:00")
	require.NoError(t, err)
	assert.True(t, at.Equal(time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)))

	now, err := parseDate("")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), now, time.Minute)

	_, err = parseDate("01/03/2024")
	assert.Error(t, err)
}

func TestClassifyRunErrors(t *testing.T) {
	cmd := NewRootCommand()
	ledgerShow, _, err := cmd.Find([]string{"ledger", "show"})
	require.NoError(t, err)

	ledgerShow.RunE = func(*cobra.Command, []string) error { return errors.New("boom") }
	classifyRunErrors(cmd)
	err = ledgerShow.RunE(ledgerShow, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.ExitInternal, apperrors.ExitCode(err))

	ledgerShow.RunE = func(*cobra.Command, []string) error { return apperrors.NewLedgerError("bad", nil) }
	classifyRunErrors(cmd)
	assert.Equal(t, apperrors.ExitLedger, apperrors.ExitCode(ledgerShow.RunE(ledgerShow, nil)))
}
