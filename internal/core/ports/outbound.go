package ports

import (
	"context"
	"io"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
)

// ImageRepository persists image and batch state. Updates address records
// by id, never by position.
type ImageRepository interface {
	CreateBatch(ctx context.Context, batch *domain.Batch, images []domain.Image) error
	GetImage(ctx context.Context, id string) (*domain.Image, error)
	ListImages(ctx context.Context) ([]domain.Image, error)
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)

	// MarkProcessing flips the image to processing and records it as the
	// batch's current image.
	MarkProcessing(ctx context.Context, id string) error
	// SaveRecognition commits a successful recognition outcome and settles
	// the image's slot in its batch. The returned batch reflects the settle.
	SaveRecognition(ctx context.Context, id string, renamedName, renamedKey string, results []domain.RecognitionResult, category string) (*domain.Batch, error)
	// MarkFailed records a failed recognition and settles the image's slot.
	MarkFailed(ctx context.Context, id string, errMessage string) (*domain.Batch, error)

	SetCategory(ctx context.Context, id string, category string) error
}

// CategoryRepository persists the explicit category set (baseline, predefined
// and user-added names) in insertion order.
type CategoryRepository interface {
	Add(ctx context.Context, name string, predefined bool) (added bool, err error)
	List(ctx context.Context) ([]domain.CategoryEntry, error)
}

// ObjectStorage stores original and renamed image payloads by key.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TaskQueue carries per-image recognition tasks. Subscription delivers
// tasks one at a time, in publication order.
type TaskQueue interface {
	PublishImageSubmitted(ctx context.Context, imageID string) error
	SubscribeImageSubmitted(ctx context.Context, handler func(context.Context, string) error) error
}

// Recognizer calls the external vision provider for one image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, mimeType string) ([]domain.RecognitionResult, error)
}

// CategoryResolver maps recognition results to a category name.
type CategoryResolver interface {
	Resolve(results []domain.RecognitionResult) string
}

// FileNamer derives the renamed filename from the original name and the
// top-ranked label.
type FileNamer interface {
	Rename(originalName, topLabel string) string
}

// CredentialStore holds the vision provider credential outside the pipeline.
type CredentialStore interface {
	Get() (string, error)
	Set(credential string) error
	Clear() error
	IsSet() bool
}

// ArchiveBuilder assembles the category-foldered zip archive.
type ArchiveBuilder interface {
	Build(ctx context.Context, entries []ArchiveEntry) ([]byte, error)
}

// ArchiveEntry is one file of the export archive.
type ArchiveEntry struct {
	Folder   string
	Filename string
	Body     io.Reader
}
