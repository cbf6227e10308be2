package usecase

import (
	"bytes"
	"context"
	"io"
	"strings"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/ports"
)

type recognitionSave struct {
	imageID     string
	renamedName string
	renamedKey  string
	results     []domain.RecognitionResult
	category    string
}

type failureMark struct {
	imageID string
	errMsg  string
}

type imageRepoFake struct {
	images map[string]*domain.Image
	list   []domain.Image
	batch  *domain.Batch

	createdBatch  *domain.Batch
	createdImages []domain.Image

	processingIDs []string
	saves         []recognitionSave
	failures      []failureMark
	categorySets  map[string]string

	getErr        error
	listErr       error
	createErr     error
	processingErr error
	saveErr       error
	failErr       error
	categoryErr   error
}

func newImageRepoFake() *imageRepoFake {
	return &imageRepoFake{
		images:       map[string]*domain.Image{},
		categorySets: map[string]string{},
	}
}

func (f *imageRepoFake) CreateBatch(_ context.Context, batch *domain.Batch, images []domain.Image) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.createdBatch = batch
	f.createdImages = images
	return nil
}

func (f *imageRepoFake) GetImage(_ context.Context, id string) (*domain.Image, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	img, ok := f.images[id]
	if !ok {
		return nil, domain.ErrImageNotFound
	}
	copyImg := *img
	return &copyImg, nil
}

func (f *imageRepoFake) ListImages(context.Context) ([]domain.Image, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

func (f *imageRepoFake) GetBatch(context.Context, string) (*domain.Batch, error) {
	if f.batch == nil {
		return nil, domain.ErrBatchNotFound
	}
	copyBatch := *f.batch
	return &copyBatch, nil
}

func (f *imageRepoFake) MarkProcessing(_ context.Context, id string) error {
	f.processingIDs = append(f.processingIDs, id)
	return f.processingErr
}

func (f *imageRepoFake) SaveRecognition(_ context.Context, id, renamedName, renamedKey string, results []domain.RecognitionResult, category string) (*domain.Batch, error) {
	if f.saveErr != nil {
		return nil, f.saveErr
	}
	f.saves = append(f.saves, recognitionSave{
		imageID:     id,
		renamedName: renamedName,
		renamedKey:  renamedKey,
		results:     results,
		category:    category,
	})
	return f.batch, nil
}

func (f *imageRepoFake) MarkFailed(_ context.Context, id, errMessage string) (*domain.Batch, error) {
	if f.failErr != nil {
		return nil, f.failErr
	}
	f.failures = append(f.failures, failureMark{imageID: id, errMsg: errMessage})
	return f.batch, nil
}

func (f *imageRepoFake) SetCategory(_ context.Context, id, category string) error {
	if f.categoryErr != nil {
		return f.categoryErr
	}
	f.categorySets[id] = category
	if img, ok := f.images[id]; ok {
		img.Category = category
	}
	return nil
}

type storageFake struct {
	objects map[string][]byte
	saveErr error
	openErr error
	saved   []string
}

func newStorageFake() *storageFake {
	return &storageFake{objects: map[string][]byte{}}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	payload, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = payload
	f.saved = append(f.saved, key)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	payload, ok := f.objects[key]
	if !ok {
		return nil, domain.ErrImageNotFound
	}
	return io.NopCloser(bytes.NewReader(payload)), nil
}

type queueFake struct {
	published  []string
	publishErr error
}

func (f *queueFake) PublishImageSubmitted(_ context.Context, imageID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, imageID)
	return nil
}

func (f *queueFake) SubscribeImageSubmitted(context.Context, func(context.Context, string) error) error {
	return nil
}

type recognizerFake struct {
	results []domain.RecognitionResult
	err     error
}

func (f *recognizerFake) Recognize(context.Context, []byte, string) ([]domain.RecognitionResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

type resolverFake struct {
	category string
}

func (f *resolverFake) Resolve([]domain.RecognitionResult) string {
	if f.category == "" {
		return domain.DefaultCategory
	}
	return f.category
}

type namerFake struct{}

func (namerFake) Rename(originalName, topLabel string) string {
	ext := "bin"
	if i := strings.LastIndex(originalName, "."); i >= 0 {
		ext = originalName[i+1:]
	}
	return strings.ToLower(topLabel) + "-000001." + ext
}

type categoryRepoFake struct {
	entries []domain.CategoryEntry
	addErr  error
	listErr error
}

func (f *categoryRepoFake) Add(_ context.Context, name string, predefined bool) (bool, error) {
	if f.addErr != nil {
		return false, f.addErr
	}
	for _, entry := range f.entries {
		if entry.Name == name {
			return false, nil
		}
	}
	f.entries = append(f.entries, domain.CategoryEntry{Name: name, Predefined: predefined})
	return true, nil
}

func (f *categoryRepoFake) List(context.Context) ([]domain.CategoryEntry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.entries, nil
}

type archiverFake struct {
	entries []ports.ArchiveEntry
	payload []byte
	err     error
}

func (f *archiverFake) Build(_ context.Context, entries []ports.ArchiveEntry) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.entries = entries
	return f.payload, nil
}
