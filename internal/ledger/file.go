package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
)

// FileStore keeps the ledger as an indented JSON document on local disk
type FileStore struct {
	path   string
	logger *logrus.Logger
}

// NewFileStore creates a store backed by the JSON file at path
func NewFileStore(path string, logger *logrus.Logger) *FileStore {
	return &FileStore{path: path, logger: logger}
}

// Path returns the location of the ledger file
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the ledger. A missing file is an empty ledger; a corrupt one is an error.
func (s *FileStore) Load(ctx context.Context) (*models.ProcessedState, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.logger.WithField("path", s.path).Info("No ledger found, starting from an empty state")
		return models.NewProcessedState(), nil
	}
	if err != nil {
		return nil, apperrors.NewLedgerError(fmt.Sprintf("failed to read ledger %s", s.path), err)
	}

	state := models.NewProcessedState()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, apperrors.NewLedgerError(fmt.Sprintf("malformed ledger %s", s.path), err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":   s.path,
		"counts": state.Counts(),
	}).Debug("Loaded ledger")
	return state, nil
}

// Save replaces the ledger file atomically: the new content is written to a
// temporary file in the same directory, synced, then renamed over the target.
func (s *FileStore) Save(ctx context.Context, state *models.ProcessedState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := Marshal(state)
	if err != nil {
		return apperrors.NewLedgerError("failed to encode ledger", err)
	}
	if err := writeFileAtomic(s.path, data); err != nil {
		return apperrors.NewLedgerError(fmt.Sprintf("failed to write ledger %s", s.path), err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":   s.path,
		"counts": state.Counts(),
	}).Info("Ledger saved")
	return nil
}

// Marshal renders the ledger document with two-space indentation
func Marshal(state *models.ProcessedState) ([]byte, error) {
	return json.MarshalIndent(state, "", "  ")
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	// persist the rename itself; not every platform allows syncing a directory
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}
