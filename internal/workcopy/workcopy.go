// Package workcopy drives the local clone of the destination repository through the git CLI.
package workcopy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/utils"
)

// SyncFile is the marker file every synthetic commit appends to
const SyncFile = "syncfile.txt"

// Runner executes git with args in dir. env entries are appended to the process environment.
type Runner func(ctx context.Context, dir string, env []string, args ...string) (string, error)

// CommitSpec describes one synthetic commit
type CommitSpec struct {
	Message     string
	Author      models.Identity
	Committer   models.Identity
	AuthoredAt  time.Time
	CommittedAt time.Time
}

// Manager owns the local clone at path
type Manager struct {
	path      string
	remoteURL string
	logger    *logrus.Logger
	run       Runner
}

// Option configures a Manager
type Option func(*Manager)

// WithRunner replaces the git executor
func WithRunner(r Runner) Option {
	return func(m *Manager) {
		m.run = r
	}
}

// New creates a manager for the clone at path of the repository at remoteURL.
// remoteURL may embed credentials; it is never logged unredacted.
func New(path, remoteURL string, logger *logrus.Logger, opts ...Option) *Manager {
	m := &Manager{
		path:      path,
		remoteURL: remoteURL,
		logger:    logger,
		run:       runGit,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the location of the local clone
func (m *Manager) Path() string {
	return m.path
}

// EnsureCloned clones the destination when the local directory does not exist
func (m *Manager) EnsureCloned(ctx context.Context) error {
	if _, err := os.Stat(m.path); err == nil {
		m.logger.WithField("path", m.path).Debug("Local clone present")
		return nil
	} else if !os.IsNotExist(err) {
		return apperrors.NewWorkingCopyError("failed to inspect local clone", err)
	}

	m.logger.WithFields(logrus.Fields{
		"remote": utils.RedactURL(m.remoteURL),
		"path":   m.path,
	}).Info("Cloning destination repository")

	if _, err := m.run(ctx, "", nil, "clone", m.remoteURL, m.path); err != nil {
		return apperrors.NewWorkingCopyError("clone", m.redact(err))
	}
	return nil
}

// SyncBeforeRun pulls the remote history into the local clone.
// A clone of an empty repository has nothing to pull.
func (m *Manager) SyncBeforeRun(ctx context.Context) error {
	empty, err := m.isEmpty(ctx)
	if err != nil {
		return err
	}
	if empty {
		m.logger.Info("Destination repository is empty, skipping pull")
		return nil
	}
	if _, err := m.run(ctx, m.path, nil, "pull", "--ff-only"); err != nil {
		return apperrors.NewWorkingCopyError("pull", m.redact(err))
	}
	return nil
}

// AppendSyncLine appends text to the marker file, creating it if needed
func (m *Manager) AppendSyncLine(text string) error {
	f, err := os.OpenFile(filepath.Join(m.path, SyncFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return apperrors.NewWorkingCopyError("open "+SyncFile, err)
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return apperrors.NewWorkingCopyError("append "+SyncFile, err)
	}
	if err := f.Close(); err != nil {
		return apperrors.NewWorkingCopyError("close "+SyncFile, err)
	}
	return nil
}

// Stage adds path, relative to the clone, to the index
func (m *Manager) Stage(ctx context.Context, path string) error {
	if _, err := m.run(ctx, m.path, nil, "add", "--", path); err != nil {
		return apperrors.NewWorkingCopyError("add "+path, err)
	}
	return nil
}

// Commit records the index as one commit with explicit identities and dates
func (m *Manager) Commit(ctx context.Context, spec CommitSpec) error {
	env := []string{
		"GIT_AUTHOR_NAME=" + spec.Author.Name,
		"GIT_AUTHOR_EMAIL=" + spec.Author.Email,
		"GIT_AUTHOR_DATE=" + spec.AuthoredAt.UTC().Format(time.RFC3339),
		"GIT_COMMITTER_NAME=" + spec.Committer.Name,
		"GIT_COMMITTER_EMAIL=" + spec.Committer.Email,
		"GIT_COMMITTER_DATE=" + spec.CommittedAt.UTC().Format(time.RFC3339),
	}
	if _, err := m.run(ctx, m.path, env, "commit", "--no-gpg-sign", "-m", spec.Message); err != nil {
		return apperrors.NewWorkingCopyError("commit", err)
	}
	return nil
}

// Push publishes the current branch to origin
func (m *Manager) Push(ctx context.Context) error {
	m.logger.WithField("remote", utils.RedactURL(m.remoteURL)).Info("Pushing destination repository")
	if _, err := m.run(ctx, m.path, nil, "push", "origin", "HEAD"); err != nil {
		return apperrors.NewWorkingCopyError("push", m.redact(err))
	}
	return nil
}

// Subjects returns the subject line of every commit reachable from HEAD, newest first
func (m *Manager) Subjects(ctx context.Context) ([]string, error) {
	empty, err := m.isEmpty(ctx)
	if err != nil || empty {
		return nil, err
	}
	out, err := m.run(ctx, m.path, nil, "log", "--format=%s")
	if err != nil {
		return nil, apperrors.NewWorkingCopyError("log", err)
	}

	var subjects []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			subjects = append(subjects, line)
		}
	}
	return subjects, nil
}

// FakeCommit pulls, appends a "Fake:" marker line, commits it at date and pushes
func (m *Manager) FakeCommit(ctx context.Context, message string, date time.Time, who models.Identity) error {
	if err := m.SyncBeforeRun(ctx); err != nil {
		return err
	}
	if err := m.AppendSyncLine("Fake: " + message + "\n"); err != nil {
		return err
	}
	if err := m.Stage(ctx, SyncFile); err != nil {
		return err
	}
	err := m.Commit(ctx, CommitSpec{
		Message:     message,
		Author:      who,
		Committer:   who,
		AuthoredAt:  date,
		CommittedAt: date,
	})
	if err != nil {
		return err
	}
	return m.Push(ctx)
}

// isEmpty reports whether the clone has no commits yet
func (m *Manager) isEmpty(ctx context.Context) (bool, error) {
	if _, err := m.run(ctx, m.path, nil, "rev-parse", "--git-dir"); err != nil {
		return false, apperrors.NewWorkingCopyError("not a git repository: "+m.path, err)
	}
	if _, err := m.run(ctx, m.path, nil, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		return true, nil
	}
	return false, nil
}

// redact strips the credential-bearing remote URL from git output
func (m *Manager) redact(err error) error {
	if m.remoteURL == "" {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), m.remoteURL, utils.RedactURL(m.remoteURL)))
}

func runGit(ctx context.Context, dir string, env []string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	if dir != "" {
		cmd.Dir = dir
	}
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}
