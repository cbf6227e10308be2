package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
)

func newImageRepoWithMock(t *testing.T) (*ImageRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &ImageRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetImageReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newImageRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetImage(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetImageScansRecognitionState(t *testing.T) {
	repo, mock, done := newImageRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "batch_id", "original_name", "mime_type", "size_bytes", "storage_key",
		"renamed_name", "renamed_key", "results", "status", "category", "error_message",
		"created_at", "updated_at",
	}).AddRow(
		"img-1", "batch-1", "IMG_0042.jpg", "image/jpeg", int64(1024), "img-1_IMG_0042.jpg",
		"tennis-ball-123456.jpg", "img-1_renamed", []byte(`[{"label":"Tennis Ball","confidence":0.91}]`),
		"completed", "Tennis", "", now, now,
	)

	mock.ExpectQuery("SELECT").WithArgs("img-1").WillReturnRows(rows)

	img, err := repo.GetImage(context.Background(), "img-1")
	if err != nil {
		t.Fatalf("GetImage() error = %v", err)
	}
	if !img.IsCompleted() || img.RenamedName != "tennis-ball-123456.jpg" {
		t.Fatalf("unexpected image state: %+v", img)
	}
	if len(img.Results) != 1 || img.Results[0].Label != "Tennis Ball" {
		t.Fatalf("unexpected results: %+v", img.Results)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestCreateBatchInsertsBatchThenImagesInOrder(t *testing.T) {
	repo, mock, done := newImageRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	batch := &domain.Batch{ID: "batch-1", Total: 2, Processing: true, CreatedAt: now, UpdatedAt: now}
	images := []domain.Image{
		{ID: "img-1", BatchID: "batch-1", OriginalName: "a.jpg", MimeType: "image/jpeg", SizeBytes: 1, StorageKey: "k1", Status: domain.StatusPending, Category: domain.DefaultCategory, CreatedAt: now, UpdatedAt: now},
		{ID: "img-2", BatchID: "batch-1", OriginalName: "b.jpg", MimeType: "image/jpeg", SizeBytes: 2, StorageKey: "k2", Status: domain.StatusPending, Category: domain.DefaultCategory, CreatedAt: now, UpdatedAt: now},
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO batches").
		WithArgs("batch-1", 2, true, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO images").
		WithArgs("img-1", "batch-1", 0, "a.jpg", "image/jpeg", int64(1), "k1", sqlmock.AnyArg(), "pending", domain.DefaultCategory, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO images").
		WithArgs("img-2", "batch-1", 1, "b.jpg", "image/jpeg", int64(2), "k2", sqlmock.AnyArg(), "pending", domain.DefaultCategory, now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.CreateBatch(context.Background(), batch, images); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkProcessingAdvancesBatchCursor(t *testing.T) {
	repo, mock, done := newImageRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE images SET status").
		WithArgs("img-1", string(domain.StatusProcessing), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE batches SET current_image_id").
		WithArgs("img-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	if err := repo.MarkProcessing(context.Background(), "img-1"); err != nil {
		t.Fatalf("MarkProcessing() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkProcessingUnknownImage(t *testing.T) {
	repo, mock, done := newImageRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE images SET status").
		WithArgs("missing", string(domain.StatusProcessing), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := repo.MarkProcessing(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func batchRows(completed, failed int, processing bool) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "total", "completed", "failed", "processing", "current_image_id", "created_at", "updated_at",
	}).AddRow("batch-1", 2, completed, failed, processing, "img-1", now, now)
}

func TestSaveRecognitionSettlesBatch(t *testing.T) {
	repo, mock, done := newImageRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE images").
		WithArgs("img-1", "tennis-ball-123456.jpg", "img-1_renamed", sqlmock.AnyArg(), string(domain.StatusCompleted), "Tennis", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE batches").
		WithArgs("img-1", sqlmock.AnyArg()).
		WillReturnRows(batchRows(1, 0, true))
	mock.ExpectCommit()

	batch, err := repo.SaveRecognition(
		context.Background(), "img-1",
		"tennis-ball-123456.jpg", "img-1_renamed",
		[]domain.RecognitionResult{{Label: "Tennis Ball", Confidence: 0.91}},
		"Tennis",
	)
	if err != nil {
		t.Fatalf("SaveRecognition() error = %v", err)
	}
	if batch.Completed != 1 || !batch.Processing {
		t.Fatalf("unexpected batch after settle: %+v", batch)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkFailedSettlesBatch(t *testing.T) {
	repo, mock, done := newImageRepoWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE images").
		WithArgs("img-2", string(domain.StatusFailed), "provider transport failure", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery("UPDATE batches").
		WithArgs("img-2", sqlmock.AnyArg()).
		WillReturnRows(batchRows(1, 1, false))
	mock.ExpectCommit()

	batch, err := repo.MarkFailed(context.Background(), "img-2", "provider transport failure")
	if err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}
	if batch.Failed != 1 || batch.Processing {
		t.Fatalf("expected settled batch, got %+v", batch)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSetCategoryUnknownImage(t *testing.T) {
	repo, mock, done := newImageRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE images SET category").
		WithArgs("missing", "Tennis", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.SetCategory(context.Background(), "missing", "Tennis")
	if !domain.IsKind(err, domain.ErrImageNotFound) {
		t.Fatalf("expected ErrImageNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
