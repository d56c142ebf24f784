// Package store handles SQLite persistence of model artifacts.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/verte-zerg/betterrest/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// ErrModelNotFound is returned when no model has the requested name.
var ErrModelNotFound = errors.New("model not found")

// Store wraps SQLite access for the model registry.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS models (
			name TEXT PRIMARY KEY,
			version TEXT NOT NULL,
			artifact BLOB NOT NULL,
			imported_at TEXT NOT NULL,
			active INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE INDEX IF NOT EXISTS idx_models_active ON models(active);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// ImportModel inserts a model or replaces the artifact of an existing one.
// The active flag of an existing model is kept.
func (s *Store) ImportModel(ctx context.Context, rec model.ModelRecord) error {
	name := strings.TrimSpace(rec.Name)
	if name == "" {
		return fmt.Errorf("model name is empty")
	}
	if len(rec.Artifact) == 0 {
		return fmt.Errorf("model %q artifact is empty", name)
	}
	importedAt := rec.ImportedAt
	if importedAt.IsZero() {
		importedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO models (name, version, artifact, imported_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
			version = excluded.version,
			artifact = excluded.artifact,
			imported_at = excluded.imported_at`,
		name,
		rec.Version,
		rec.Artifact,
		importedAt.Format(time.RFC3339Nano),
	)
	return err
}

// ListModels returns all models ordered by name, without artifacts.
func (s *Store) ListModels(ctx context.Context) ([]model.ModelRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, version, imported_at, active FROM models ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.ModelRecord
	for rows.Next() {
		var rec model.ModelRecord
		var importedAt string
		var active int
		if err := rows.Scan(&rec.Name, &rec.Version, &importedAt, &active); err != nil {
			return nil, err
		}
		parsed, err := time.Parse(time.RFC3339Nano, importedAt)
		if err != nil {
			return nil, err
		}
		rec.ImportedAt = parsed
		rec.Active = active != 0
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// ReadArtifact returns the stored artifact for name.
func (s *Store) ReadArtifact(ctx context.Context, name string) ([]byte, error) {
	var artifact []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT artifact FROM models WHERE name = ?`, name).Scan(&artifact)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	return artifact, nil
}

// SetActive marks name as the only active model. An empty name clears the
// active model.
func (s *Store) SetActive(ctx context.Context, name string) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	if _, err = tx.ExecContext(ctx, `UPDATE models SET active = 0 WHERE active != 0`); err != nil {
		return err
	}
	if name != "" {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `UPDATE models SET active = 1 WHERE name = ?`, name)
		if err != nil {
			return err
		}
		var n int64
		n, err = res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			err = fmt.Errorf("%w: %s", ErrModelNotFound, name)
			return err
		}
	}
	return tx.Commit()
}

// ActiveModel returns the name of the active model, or "" when none is set.
func (s *Store) ActiveModel(ctx context.Context) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx,
		`SELECT name FROM models WHERE active != 0 LIMIT 1`).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// DeleteModel removes a model from the registry.
func (s *Store) DeleteModel(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM models WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrModelNotFound, name)
	}
	return nil
}
