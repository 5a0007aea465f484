package ledger

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strconv"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/sirupsen/logrus"

	apperrors "github.com/Kamar-Folarin/github-activity-mirror/internal/errors"
	"github.com/Kamar-Folarin/github-activity-mirror/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps the ledger in the processed_items table.
// Rows are only ever inserted; position preserves insertion order.
type PostgresStore struct {
	db     *sql.DB
	logger *logrus.Logger
}

// NewPostgresStore opens and pings the database at dsn
func NewPostgresStore(dsn string, logger *logrus.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.NewLedgerError("failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, apperrors.NewLedgerError("failed to ping database", err)
	}

	return &PostgresStore{db: db, logger: logger}, nil
}

// Migrate applies the embedded schema migrations
func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(s.logger)
	if err := goose.SetDialect("postgres"); err != nil {
		return apperrors.NewLedgerError("failed to set migration dialect", err)
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return apperrors.NewLedgerError("failed to run migrations", err)
	}
	return nil
}

// Close releases the database handle
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Load reads every recorded identifier in insertion order
func (s *PostgresStore) Load(ctx context.Context) (*models.ProcessedState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT category, identifier FROM processed_items
		ORDER BY position
	`)
	if err != nil {
		return nil, apperrors.NewLedgerError("failed to query ledger", err)
	}
	defer rows.Close()

	state := models.NewProcessedState()
	for rows.Next() {
		var category, identifier string
		if err := rows.Scan(&category, &identifier); err != nil {
			return nil, apperrors.NewLedgerError("failed to scan ledger row", err)
		}
		item := models.ActivityItem{Category: models.Category(category), Identifier: identifier}
		if err := state.Record(item); err != nil {
			return nil, apperrors.NewLedgerError("malformed ledger row", err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewLedgerError("error iterating ledger rows", err)
	}

	return state, nil
}

// Save inserts every identifier of state in one transaction. Identifiers
// already stored are left untouched, so the table only grows.
func (s *PostgresStore) Save(ctx context.Context, state *models.ProcessedState) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewLedgerError("failed to begin transaction", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO processed_items (category, identifier, recorded_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (category, identifier) DO NOTHING
	`)
	if err != nil {
		return apperrors.NewLedgerError("failed to prepare ledger statement", err)
	}
	defer stmt.Close()

	for _, row := range rows(state) {
		if _, err := stmt.ExecContext(ctx, string(row.category), row.identifier); err != nil {
			return apperrors.NewLedgerError(fmt.Sprintf("failed to save %s %s", row.category, row.identifier), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewLedgerError("failed to commit ledger transaction", err)
	}

	s.logger.WithField("counts", state.Counts()).Info("Ledger saved")
	return nil
}

type ledgerRow struct {
	category   models.Category
	identifier string
}

// rows flattens state in ledger order: shas, prs, issues, branches
func rows(state *models.ProcessedState) []ledgerRow {
	out := make([]ledgerRow, 0, len(state.SHAs)+len(state.PRs)+len(state.Issues)+len(state.Branches))
	for _, sha := range state.SHAs {
		out = append(out, ledgerRow{models.CategoryCommit, sha})
	}
	for _, n := range state.PRs {
		out = append(out, ledgerRow{models.CategoryPullRequest, strconv.Itoa(n)})
	}
	for _, n := range state.Issues {
		out = append(out, ledgerRow{models.CategoryIssue, strconv.Itoa(n)})
	}
	for _, b := range state.Branches {
		out = append(out, ledgerRow{models.CategoryBranch, b})
	}
	return out
}
