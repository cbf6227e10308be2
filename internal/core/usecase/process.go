package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/ports"
)

type ProcessImageUseCase struct {
	repo       ports.ImageRepository
	storage    ports.ObjectStorage
	recognizer ports.Recognizer
	resolver   ports.CategoryResolver
	namer      ports.FileNamer

	// settleDelay paces the visible state transition after a successful
	// recognition. Zero disables the pause.
	settleDelay time.Duration
}

func NewProcessImageUseCase(
	repo ports.ImageRepository,
	storage ports.ObjectStorage,
	recognizer ports.Recognizer,
	resolver ports.CategoryResolver,
	namer ports.FileNamer,
	settleDelay time.Duration,
) *ProcessImageUseCase {
	return &ProcessImageUseCase{
		repo:        repo,
		storage:     storage,
		recognizer:  recognizer,
		resolver:    resolver,
		namer:       namer,
		settleDelay: settleDelay,
	}
}

// ProcessByID runs the recognition pipeline for one image. A failure is
// recorded on that image alone and settles its batch slot; it never blocks
// the queue's remaining images.
func (uc *ProcessImageUseCase) ProcessByID(ctx context.Context, imageID string) error {
	img, err := uc.repo.GetImage(ctx, imageID)
	if err != nil {
		return fmt.Errorf("fetch image by id: %w", err)
	}

	if err := uc.repo.MarkProcessing(ctx, img.ID); err != nil {
		return fmt.Errorf("set status=processing: %w", err)
	}

	payload, err := uc.readPayload(ctx, img.StorageKey)
	if err != nil {
		return uc.fail(ctx, img.ID, err)
	}

	results, err := uc.recognizer.Recognize(ctx, payload, img.MimeType)
	if err != nil {
		return uc.fail(ctx, img.ID, err)
	}
	if len(results) == 0 {
		err := domain.WrapError(domain.ErrMalformedResponse, "recognize image", errors.New("provider returned no labels"))
		return uc.fail(ctx, img.ID, err)
	}

	if err := uc.pause(ctx); err != nil {
		return uc.fail(ctx, img.ID, err)
	}

	renamedName := uc.namer.Rename(img.OriginalName, results[0].Label)
	renamedKey := fmt.Sprintf("%s_renamed_%s", img.ID, renamedName)
	if err := uc.storage.Save(ctx, renamedKey, bytes.NewReader(payload)); err != nil {
		return uc.fail(ctx, img.ID, fmt.Errorf("save renamed payload: %w", err))
	}

	category := uc.resolver.Resolve(results)

	batch, err := uc.repo.SaveRecognition(ctx, img.ID, renamedName, renamedKey, results, category)
	if err != nil {
		return fmt.Errorf("save recognition outcome: %w", err)
	}
	uc.summarize(batch)
	return nil
}

func (uc *ProcessImageUseCase) readPayload(ctx context.Context, key string) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("open image payload: %w", err)
	}
	defer rc.Close()

	payload, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read image payload: %w", err)
	}
	return payload, nil
}

func (uc *ProcessImageUseCase) fail(ctx context.Context, imageID string, processErr error) error {
	batch, markErr := uc.repo.MarkFailed(ctx, imageID, processErr.Error())
	if markErr != nil {
		return fmt.Errorf("%w; mark failed status: %v", processErr, markErr)
	}
	uc.summarize(batch)
	return processErr
}

func (uc *ProcessImageUseCase) pause(ctx context.Context) error {
	if uc.settleDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(uc.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (uc *ProcessImageUseCase) summarize(batch *domain.Batch) {
	if batch == nil || batch.Processing {
		return
	}
	slog.Info("batch_complete",
		"batch_id", batch.ID,
		"attempted", batch.Total,
		"completed", batch.Completed,
		"failed", batch.Failed,
	)
}
