package usecase

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/ports"
)

type SubmitBatchUseCase struct {
	repo    ports.ImageRepository
	storage ports.ObjectStorage
	queue   ports.TaskQueue
}

func NewSubmitBatchUseCase(
	repo ports.ImageRepository,
	storage ports.ObjectStorage,
	queue ports.TaskQueue,
) *SubmitBatchUseCase {
	return &SubmitBatchUseCase{
		repo:    repo,
		storage: storage,
		queue:   queue,
	}
}

// Submit stores every file of the batch, creates one pending record per
// file in submission order and enqueues a recognition task per image. Each
// image gets its own stable id; later state updates go by id, so records
// never shift even when batches overlap.
func (uc *SubmitBatchUseCase) Submit(ctx context.Context, files []ports.UploadFile) (*domain.Batch, []domain.Image, error) {
	if len(files) == 0 {
		return nil, nil, domain.WrapError(domain.ErrInvalidInput, "submit batch", errors.New("no files submitted"))
	}

	now := time.Now().UTC()
	batch := &domain.Batch{
		ID:         uuid.NewString(),
		Total:      len(files),
		Processing: true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	images := make([]domain.Image, 0, len(files))
	for _, file := range files {
		id := uuid.NewString()
		storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(file.Name))

		if err := uc.storage.Save(ctx, storageKey, file.Body); err != nil {
			return nil, nil, fmt.Errorf("save image payload: %w", err)
		}

		images = append(images, domain.Image{
			ID:           id,
			BatchID:      batch.ID,
			OriginalName: file.Name,
			MimeType:     file.MimeType,
			SizeBytes:    file.Size,
			StorageKey:   storageKey,
			Results:      []domain.RecognitionResult{},
			Status:       domain.StatusPending,
			Category:     domain.DefaultCategory,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}

	if err := uc.repo.CreateBatch(ctx, batch, images); err != nil {
		return nil, nil, fmt.Errorf("create batch records: %w", err)
	}

	for i := range images {
		if err := uc.queue.PublishImageSubmitted(ctx, images[i].ID); err != nil {
			return nil, nil, fmt.Errorf("publish recognition task: %w", err)
		}
	}

	return batch, images, nil
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." || base == ".." {
		return "image.bin"
	}
	return base
}
