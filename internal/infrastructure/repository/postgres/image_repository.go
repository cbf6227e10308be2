package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
)

type ImageRepository struct {
	db *sql.DB
}

func NewImageRepository(db *sql.DB) *ImageRepository {
	return &ImageRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *ImageRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026052101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	total INTEGER NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	failed INTEGER NOT NULL DEFAULT 0,
	processing BOOLEAN NOT NULL DEFAULT TRUE,
	current_image_id TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS images (
	id TEXT PRIMARY KEY,
	batch_id TEXT NOT NULL REFERENCES batches(id),
	position INTEGER NOT NULL,
	original_name TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	size_bytes BIGINT NOT NULL,
	storage_key TEXT NOT NULL,
	renamed_name TEXT,
	renamed_key TEXT,
	results JSONB NOT NULL DEFAULT '[]'::jsonb,
	status TEXT NOT NULL,
	category TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_images_batch ON images(batch_id, position);
CREATE INDEX IF NOT EXISTS idx_images_status ON images(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// CreateBatch inserts the batch record and its images in submission order
// inside one transaction, so a batch never appears partially.
func (r *ImageRepository) CreateBatch(ctx context.Context, batch *domain.Batch, images []domain.Image) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	_, err = tx.ExecContext(ctx, `
INSERT INTO batches (id, total, completed, failed, processing, current_image_id, created_at, updated_at)
VALUES ($1,$2,0,0,$3,NULL,$4,$5)
`, batch.ID, batch.Total, batch.Processing, batch.CreatedAt, batch.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert batch: %w", err)
	}

	for i := range images {
		img := &images[i]
		resultsJSON, err := json.Marshal(img.Results)
		if err != nil {
			return fmt.Errorf("marshal results: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
INSERT INTO images (
	id, batch_id, position, original_name, mime_type, size_bytes, storage_key,
	renamed_name, renamed_key, results, status, category, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,NULL,NULL,$8,$9,$10,'',$11,$12)
`,
			img.ID, img.BatchID, i, img.OriginalName, img.MimeType, img.SizeBytes, img.StorageKey,
			resultsJSON, string(img.Status), img.Category, img.CreatedAt, img.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert image: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

const imageColumns = `
id, batch_id, original_name, mime_type, size_bytes, storage_key,
renamed_name, renamed_key, results, status, category, error_message, created_at, updated_at
`

func (r *ImageRepository) GetImage(ctx context.Context, id string) (*domain.Image, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+imageColumns+` FROM images WHERE id = $1`, id)
	img, err := scanImage(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrImageNotFound, "get image", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan image: %w", err)
	}
	return img, nil
}

func (r *ImageRepository) ListImages(ctx context.Context) ([]domain.Image, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+imageColumns+` FROM images ORDER BY created_at, position`)
	if err != nil {
		return nil, fmt.Errorf("query images: %w", err)
	}
	defer rows.Close()

	var images []domain.Image
	for rows.Next() {
		img, err := scanImage(rows)
		if err != nil {
			return nil, fmt.Errorf("scan image: %w", err)
		}
		images = append(images, *img)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate images: %w", err)
	}
	return images, nil
}

func (r *ImageRepository) GetBatch(ctx context.Context, id string) (*domain.Batch, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, total, completed, failed, processing, current_image_id, created_at, updated_at
FROM batches WHERE id = $1
`, id)

	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrBatchNotFound, "get batch", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("scan batch: %w", err)
	}
	return batch, nil
}

func (r *ImageRepository) MarkProcessing(ctx context.Context, id string) error {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mark tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	res, err := tx.ExecContext(ctx, `
UPDATE images SET status = $2, updated_at = $3 WHERE id = $1
`, id, string(domain.StatusProcessing), now)
	if err != nil {
		return fmt.Errorf("mark image processing: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrImageNotFound, "mark processing", fmt.Errorf("id %s", id))
	}

	_, err = tx.ExecContext(ctx, `
UPDATE batches SET current_image_id = $1, updated_at = $2
WHERE id = (SELECT batch_id FROM images WHERE id = $1)
`, id, now)
	if err != nil {
		return fmt.Errorf("advance batch cursor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mark tx: %w", err)
	}
	return nil
}

func (r *ImageRepository) SaveRecognition(
	ctx context.Context,
	id string,
	renamedName, renamedKey string,
	results []domain.RecognitionResult,
	category string,
) (*domain.Batch, error) {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("marshal results: %w", err)
	}
	return r.settle(ctx, id, func(tx *sql.Tx, now time.Time) error {
		_, err := tx.ExecContext(ctx, `
UPDATE images
SET renamed_name = $2, renamed_key = $3, results = $4, status = $5, category = $6, error_message = '', updated_at = $7
WHERE id = $1
`, id, renamedName, renamedKey, resultsJSON, string(domain.StatusCompleted), category, now)
		if err != nil {
			return fmt.Errorf("save recognition: %w", err)
		}
		return nil
	}, true)
}

func (r *ImageRepository) MarkFailed(ctx context.Context, id string, errMessage string) (*domain.Batch, error) {
	return r.settle(ctx, id, func(tx *sql.Tx, now time.Time) error {
		_, err := tx.ExecContext(ctx, `
UPDATE images
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1
`, id, string(domain.StatusFailed), errMessage, now)
		if err != nil {
			return fmt.Errorf("mark image failed: %w", err)
		}
		return nil
	}, false)
}

// settle commits the per-image outcome and the batch counter bump in one
// transaction; the batch flips out of processing when its last image lands.
func (r *ImageRepository) settle(
	ctx context.Context,
	id string,
	updateImage func(tx *sql.Tx, now time.Time) error,
	success bool,
) (*domain.Batch, error) {
	now := time.Now().UTC()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin settle tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := updateImage(tx, now); err != nil {
		return nil, err
	}

	column := "failed"
	if success {
		column = "completed"
	}
	row := tx.QueryRowContext(ctx, `
UPDATE batches
SET `+column+` = `+column+` + 1,
	processing = (completed + failed + 1) < total,
	updated_at = $2
WHERE id = (SELECT batch_id FROM images WHERE id = $1)
RETURNING id, total, completed, failed, processing, current_image_id, created_at, updated_at
`, id, now)

	batch, err := scanBatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrImageNotFound, "settle image", fmt.Errorf("id %s", id))
		}
		return nil, fmt.Errorf("settle batch: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit settle tx: %w", err)
	}
	return batch, nil
}

func (r *ImageRepository) SetCategory(ctx context.Context, id string, category string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE images SET category = $2, updated_at = $3 WHERE id = $1
`, id, category, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("set image category: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return domain.WrapError(domain.ErrImageNotFound, "set category", fmt.Errorf("id %s", id))
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*domain.Image, error) {
	var img domain.Image
	var renamedName, renamedKey, errMessage sql.NullString
	var resultsRaw []byte
	var status string

	err := row.Scan(
		&img.ID, &img.BatchID, &img.OriginalName, &img.MimeType, &img.SizeBytes, &img.StorageKey,
		&renamedName, &renamedKey, &resultsRaw, &status, &img.Category, &errMessage,
		&img.CreatedAt, &img.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(resultsRaw, &img.Results); err != nil {
		return nil, fmt.Errorf("unmarshal results: %w", err)
	}
	img.RenamedName = renamedName.String
	img.RenamedKey = renamedKey.String
	img.Error = errMessage.String
	img.Status = domain.ImageStatus(status)
	return &img, nil
}

func scanBatch(row rowScanner) (*domain.Batch, error) {
	var batch domain.Batch
	var current sql.NullString

	err := row.Scan(
		&batch.ID, &batch.Total, &batch.Completed, &batch.Failed, &batch.Processing,
		&current, &batch.CreatedAt, &batch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	batch.CurrentImageID = current.String
	return &batch, nil
}
