package ports

import (
	"context"
	"io"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
)

// BatchSubmitter is the inbound contract for image batch submission.
type BatchSubmitter interface {
	Submit(ctx context.Context, files []UploadFile) (*domain.Batch, []domain.Image, error)
}

// UploadFile is one file of a submitted batch, in submission order.
type UploadFile struct {
	Name     string
	MimeType string
	Size     int64
	Body     io.Reader
}

// ImageProcessor is the inbound contract for asynchronous per-image
// recognition, invoked by the queue worker one image at a time.
type ImageProcessor interface {
	ProcessByID(ctx context.Context, imageID string) error
}

// ImageReader is the inbound read model for image and batch state.
type ImageReader interface {
	GetImage(ctx context.Context, id string) (*domain.Image, error)
	ListImages(ctx context.Context) ([]domain.Image, error)
	GetBatch(ctx context.Context, id string) (*domain.Batch, error)
}

// CategoryService manages the visible category set and per-image assignment.
type CategoryService interface {
	List(ctx context.Context) (categories, predefined []string, err error)
	Add(ctx context.Context, name string) error
	AddPredefined(ctx context.Context, names []string) (added int, err error)
	SetImageCategory(ctx context.Context, imageID, category string) (*domain.Image, error)
}

// Exporter produces downloadable payloads for completed images.
type Exporter interface {
	ExportOne(ctx context.Context, imageID string) (*Download, error)
	ExportAll(ctx context.Context) (*Download, error)
}

// Download is a named binary payload handed to the transport layer.
type Download struct {
	Filename    string
	ContentType string
	Body        []byte
}
