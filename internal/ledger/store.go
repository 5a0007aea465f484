package ledger

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/Kamar-Folarin/github-activity-mirror/internal/config"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
)

// Store persists the ledger of replayed identifiers.
// Load on a store that has never been saved returns an empty state.
type Store interface {
	Load(ctx context.Context) (*models.ProcessedState, error)
	Save(ctx context.Context, state *models.ProcessedState) error
}

// Open returns the Postgres store when a DSN is configured, the JSON file store otherwise.
// The returned close function releases any held resources.
func Open(cfg config.LedgerConfig, logger *logrus.Logger) (Store, func() error, error) {
	if cfg.DSN == "" {
		return NewFileStore(cfg.Path, logger), func() error { return nil }, nil
	}

	store, err := NewPostgresStore(cfg.DSN, logger)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, nil, err
	}
	logger.Info("Using Postgres ledger")
	return store, store.Close, nil
}
