package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/ports"
)

func TestSubmitCreatesRecordsAndPublishesInOrder(t *testing.T) {
	repo := newImageRepoFake()
	storage := newStorageFake()
	queue := &queueFake{}
	uc := NewSubmitBatchUseCase(repo, storage, queue)

	files := []ports.UploadFile{
		{Name: "first photo.png", MimeType: "image/png", Size: 3, Body: strings.NewReader("aaa")},
		{Name: "second.jpg", MimeType: "image/jpeg", Size: 2, Body: strings.NewReader("bb")},
	}

	batch, images, err := uc.Submit(context.Background(), files)
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if batch.Total != 2 || !batch.Processing {
		t.Fatalf("unexpected batch state: %+v", batch)
	}
	if len(images) != 2 {
		t.Fatalf("expected 2 images, got %d", len(images))
	}
	if len(repo.createdImages) != 2 || repo.createdBatch.ID != batch.ID {
		t.Fatalf("expected batch persisted with its images")
	}

	for i, img := range images {
		if img.ID == "" {
			t.Fatalf("image %d has no id", i)
		}
		if img.Status != domain.StatusPending {
			t.Fatalf("image %d status = %s, want pending", i, img.Status)
		}
		if img.Category != domain.DefaultCategory {
			t.Fatalf("image %d category = %s, want %s", i, img.Category, domain.DefaultCategory)
		}
		if img.OriginalName != files[i].Name {
			t.Fatalf("image %d original name = %s, want %s", i, img.OriginalName, files[i].Name)
		}
		if _, ok := storage.objects[img.StorageKey]; !ok {
			t.Fatalf("payload for %s not stored", img.StorageKey)
		}
	}
	if images[0].ID == images[1].ID {
		t.Fatalf("images share an id")
	}

	if len(queue.published) != 2 {
		t.Fatalf("expected 2 published tasks, got %d", len(queue.published))
	}
	if queue.published[0] != images[0].ID || queue.published[1] != images[1].ID {
		t.Fatalf("tasks published out of submission order: %v", queue.published)
	}
}

func TestSubmitRejectsEmptyBatch(t *testing.T) {
	uc := NewSubmitBatchUseCase(newImageRepoFake(), newStorageFake(), &queueFake{})

	_, _, err := uc.Submit(context.Background(), nil)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestSubmitFailsWhenStorageFails(t *testing.T) {
	storage := newStorageFake()
	storage.saveErr = errors.New("disk full")
	repo := newImageRepoFake()
	uc := NewSubmitBatchUseCase(repo, storage, &queueFake{})

	_, _, err := uc.Submit(context.Background(), []ports.UploadFile{
		{Name: "a.png", Body: strings.NewReader("x")},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
	if repo.createdBatch != nil {
		t.Fatalf("batch must not be persisted when a payload save fails")
	}
}

func TestSubmitFailsWhenPublishFails(t *testing.T) {
	queue := &queueFake{publishErr: errors.New("broker down")}
	uc := NewSubmitBatchUseCase(newImageRepoFake(), newStorageFake(), queue)

	_, _, err := uc.Submit(context.Background(), []ports.UploadFile{
		{Name: "a.png", Body: strings.NewReader("x")},
	})
	if err == nil {
		t.Fatalf("expected error")
	}
}

func TestSanitizeFilename(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"holiday photo.png", "holiday_photo.png"},
		{"../../etc/passwd", "passwd"},
		{"weird*chars?.jpg", "weird_chars_.jpg"},
		{"", "image.bin"},
	}
	for _, tc := range cases {
		if got := sanitizeFilename(tc.in); got != tc.want {
			t.Fatalf("sanitizeFilename(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
