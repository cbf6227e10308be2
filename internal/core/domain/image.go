package domain

import "time"

type ImageStatus string

const (
	StatusPending    ImageStatus = "pending"
	StatusProcessing ImageStatus = "processing"
	StatusCompleted  ImageStatus = "completed"
	StatusFailed     ImageStatus = "failed"
)

// DefaultCategory is the baseline category every image starts in and falls
// back to when no keyword rule matches.
const DefaultCategory = "Uncategorized"

// RecognitionResult is one label/confidence pair returned by the vision
// provider, in provider rank order.
type RecognitionResult struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Image is one uploaded file tracked through the recognition pipeline.
// Identity is a stable UUID so that state updates never depend on the
// position of the record inside a batch.
type Image struct {
	ID      string `json:"id"`
	BatchID string `json:"batch_id"`

	OriginalName string `json:"original_name"`
	MimeType     string `json:"mime_type"`
	SizeBytes    int64  `json:"size_bytes"`
	StorageKey   string `json:"-"`

	// RenamedName/RenamedKey are set only when recognition succeeds.
	RenamedName string `json:"renamed_name,omitempty"`
	RenamedKey  string `json:"-"`

	Results  []RecognitionResult `json:"results"`
	Status   ImageStatus         `json:"status"`
	Category string              `json:"category"`
	Error    string              `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (i *Image) IsProcessing() bool {
	return i.Status == StatusPending || i.Status == StatusProcessing
}

func (i *Image) IsCompleted() bool {
	return i.Status == StatusCompleted
}

// Batch groups the images submitted in one upload action. Settled counts
// both completed and failed images; the batch stays processing until every
// image has settled.
type Batch struct {
	ID             string    `json:"id"`
	Total          int       `json:"total"`
	Completed      int       `json:"completed"`
	Failed         int       `json:"failed"`
	Processing     bool      `json:"processing"`
	CurrentImageID string    `json:"current_image_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (b *Batch) Settled() int {
	return b.Completed + b.Failed
}
