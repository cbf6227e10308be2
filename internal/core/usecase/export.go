package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/ports"
)

// ArchiveFilename is the download name of the full export archive.
const ArchiveFilename = "categorized-images.zip"

type ExportUseCase struct {
	repo     ports.ImageRepository
	storage  ports.ObjectStorage
	archiver ports.ArchiveBuilder
}

func NewExportUseCase(repo ports.ImageRepository, storage ports.ObjectStorage, archiver ports.ArchiveBuilder) *ExportUseCase {
	return &ExportUseCase{repo: repo, storage: storage, archiver: archiver}
}

// ExportOne serves the renamed payload of a single completed image.
func (uc *ExportUseCase) ExportOne(ctx context.Context, imageID string) (*ports.Download, error) {
	img, err := uc.repo.GetImage(ctx, imageID)
	if err != nil {
		return nil, err
	}
	if !img.IsCompleted() || img.RenamedKey == "" {
		return nil, domain.WrapError(domain.ErrNothingToExport, "export image",
			fmt.Errorf("image %s has no processed file", imageID))
	}

	body, err := uc.readPayload(ctx, img.RenamedKey)
	if err != nil {
		return nil, fmt.Errorf("read renamed payload: %w", err)
	}

	contentType := img.MimeType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return &ports.Download{
		Filename:    img.RenamedName,
		ContentType: contentType,
		Body:        body,
	}, nil
}

// ExportAll builds a zip archive of every completed image, one folder per
// category, each file stored under its renamed name.
func (uc *ExportUseCase) ExportAll(ctx context.Context) (*ports.Download, error) {
	images, err := uc.repo.ListImages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list images for export: %w", err)
	}

	var entries []ports.ArchiveEntry
	var readers []io.ReadCloser
	defer func() {
		for _, rc := range readers {
			rc.Close()
		}
	}()

	for i := range images {
		img := &images[i]
		if !img.IsCompleted() || img.RenamedKey == "" {
			continue
		}
		rc, err := uc.storage.Open(ctx, img.RenamedKey)
		if err != nil {
			return nil, fmt.Errorf("open payload %s: %w", img.RenamedKey, err)
		}
		readers = append(readers, rc)
		entries = append(entries, ports.ArchiveEntry{
			Folder:   img.Category,
			Filename: img.RenamedName,
			Body:     rc,
		})
	}

	if len(entries) == 0 {
		return nil, domain.WrapError(domain.ErrNothingToExport, "export archive",
			errors.New("no completed images to export"))
	}

	archive, err := uc.archiver.Build(ctx, entries)
	if err != nil {
		return nil, err
	}
	return &ports.Download{
		Filename:    ArchiveFilename,
		ContentType: "application/zip",
		Body:        archive,
	}, nil
}

func (uc *ExportUseCase) readPayload(ctx context.Context, key string) ([]byte, error) {
	rc, err := uc.storage.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}
