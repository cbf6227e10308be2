package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
)

// CategoryRepository persists the explicit category set. Insertion order is
// the serial id; duplicate names are silently absorbed by the unique
// constraint, which makes Add idempotent.
type CategoryRepository struct {
	db *sql.DB
}

func NewCategoryRepository(db *sql.DB) *CategoryRepository {
	return &CategoryRepository{db: db}
}

func (r *CategoryRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026052102)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS categories (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL UNIQUE,
	predefined BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	// The baseline category always exists.
	if _, err := tx.ExecContext(ctx, `
INSERT INTO categories (name, predefined, created_at) VALUES ($1, FALSE, $2)
ON CONFLICT (name) DO NOTHING
`, domain.DefaultCategory, time.Now().UTC()); err != nil {
		return fmt.Errorf("seed baseline category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CategoryRepository) Add(ctx context.Context, name string, predefined bool) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
INSERT INTO categories (name, predefined, created_at) VALUES ($1, $2, $3)
ON CONFLICT (name) DO NOTHING
`, name, predefined, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("insert category: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("category rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *CategoryRepository) List(ctx context.Context) ([]domain.CategoryEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, predefined FROM categories ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var entries []domain.CategoryEntry
	for rows.Next() {
		var entry domain.CategoryEntry
		if err := rows.Scan(&entry.Name, &entry.Predefined); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return entries, nil
}
