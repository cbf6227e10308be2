package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/ports"
)

type submitterFake struct {
	files []ports.UploadFile
	err   error
}

func (f *submitterFake) Submit(_ context.Context, files []ports.UploadFile) (*domain.Batch, []domain.Image, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	f.files = files
	batch := &domain.Batch{ID: "batch-1", Total: len(files), Processing: true}
	images := make([]domain.Image, len(files))
	for i, file := range files {
		images[i] = domain.Image{ID: "img-" + file.Name, OriginalName: file.Name, Status: domain.StatusPending}
	}
	return batch, images, nil
}

type readerFake struct {
	image *domain.Image
	batch *domain.Batch
	err   error
}

func (f *readerFake) GetImage(context.Context, string) (*domain.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.image, nil
}

func (f *readerFake) ListImages(context.Context) ([]domain.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.image == nil {
		return nil, nil
	}
	return []domain.Image{*f.image}, nil
}

func (f *readerFake) GetBatch(context.Context, string) (*domain.Batch, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.batch, nil
}

type categoryServiceFake struct {
	names      []string
	predefined []string
	added      []string
	setCalls   map[string]string
	err        error
}

func (f *categoryServiceFake) List(context.Context) ([]string, []string, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.names, f.predefined, nil
}

func (f *categoryServiceFake) Add(_ context.Context, name string) error {
	if f.err != nil {
		return f.err
	}
	f.added = append(f.added, name)
	return nil
}

func (f *categoryServiceFake) AddPredefined(_ context.Context, names []string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.added = append(f.added, names...)
	return len(names), nil
}

func (f *categoryServiceFake) SetImageCategory(_ context.Context, imageID, category string) (*domain.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.setCalls == nil {
		f.setCalls = map[string]string{}
	}
	f.setCalls[imageID] = category
	return &domain.Image{ID: imageID, Category: category}, nil
}

type exporterFake struct {
	download *ports.Download
	err      error
}

func (f *exporterFake) ExportOne(context.Context, string) (*ports.Download, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.download, nil
}

func (f *exporterFake) ExportAll(context.Context) (*ports.Download, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.download, nil
}

type credentialFake struct {
	value string
}

func (f *credentialFake) Get() (string, error) { return f.value, nil }
func (f *credentialFake) Set(v string) error   { f.value = v; return nil }
func (f *credentialFake) Clear() error         { f.value = ""; return nil }
func (f *credentialFake) IsSet() bool          { return f.value != "" }

type routerDeps struct {
	submitter   *submitterFake
	reader      *readerFake
	categories  *categoryServiceFake
	exporter    *exporterFake
	credentials *credentialFake
}

func newTestRouter(deps routerDeps) http.Handler {
	if deps.submitter == nil {
		deps.submitter = &submitterFake{}
	}
	if deps.reader == nil {
		deps.reader = &readerFake{}
	}
	if deps.categories == nil {
		deps.categories = &categoryServiceFake{}
	}
	if deps.exporter == nil {
		deps.exporter = &exporterFake{}
	}
	if deps.credentials == nil {
		deps.credentials = &credentialFake{}
	}
	return NewRouter(
		deps.submitter,
		deps.reader,
		deps.categories,
		deps.exporter,
		deps.credentials,
		[]string{"Ball", "Sports", "Tennis", "Pickleball"},
		0,
		0, 0,
	).Handler()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newTestRouter(routerDeps{})
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestSubmitBatchSuccess(t *testing.T) {
	submitter := &submitterFake{}
	handler := newTestRouter(routerDeps{submitter: submitter})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, name := range []string{"a.png", "b.jpg"} {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write([]byte("payload")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/images", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if len(submitter.files) != 2 || submitter.files[0].Name != "a.png" {
		t.Fatalf("files not forwarded in order: %+v", submitter.files)
	}

	var resp struct {
		Batch  domain.Batch   `json:"batch"`
		Images []domain.Image `json:"images"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Batch.ID != "batch-1" || len(resp.Images) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestSubmitBatchMissingFilesField(t *testing.T) {
	handler := newTestRouter(routerDeps{})

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("note", "no files here")
	_ = writer.Close()

	req := httptest.NewRequest(http.MethodPost, "/v1/images", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestCredentialLifecycle(t *testing.T) {
	credentials := &credentialFake{}
	handler := newTestRouter(routerDeps{credentials: credentials})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/credential", nil))
	if res.Code != http.StatusOK || !strings.Contains(res.Body.String(), `"set":false`) {
		t.Fatalf("expected unset credential, got %d %s", res.Code, res.Body.String())
	}

	put := httptest.NewRequest(http.MethodPut, "/v1/credential",
		strings.NewReader(`{"api_key":"sk-proj-0123456789abcdef012345"}`))
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, put)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if !credentials.IsSet() {
		t.Fatalf("credential not stored")
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/credential", nil))
	if res.Code != http.StatusOK || credentials.IsSet() {
		t.Fatalf("expected cleared credential, got %d", res.Code)
	}
}

func TestCredentialRejectsBadFormat(t *testing.T) {
	handler := newTestRouter(routerDeps{})

	req := httptest.NewRequest(http.MethodPut, "/v1/credential",
		strings.NewReader(`{"api_key":"not-a-key"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetImageNotFoundMapsTo404(t *testing.T) {
	reader := &readerFake{err: domain.WrapError(domain.ErrImageNotFound, "get image", errors.New("no row"))}
	handler := newTestRouter(routerDeps{reader: reader})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/images/missing", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestSetImageCategory(t *testing.T) {
	categories := &categoryServiceFake{}
	handler := newTestRouter(routerDeps{categories: categories})

	req := httptest.NewRequest(http.MethodPut, "/v1/images/img-1/category",
		strings.NewReader(`{"category":"Sports"}`))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if categories.setCalls["img-1"] != "Sports" {
		t.Fatalf("category not forwarded: %+v", categories.setCalls)
	}
}

func TestListCategories(t *testing.T) {
	categories := &categoryServiceFake{
		names:      []string{domain.DefaultCategory, "Tennis", "Food"},
		predefined: []string{"Tennis"},
	}
	handler := newTestRouter(routerDeps{categories: categories})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/categories", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp struct {
		Categories []string `json:"categories"`
		Predefined []string `json:"predefined"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Categories) != 3 || resp.Categories[0] != domain.DefaultCategory {
		t.Fatalf("unexpected categories: %+v", resp)
	}
}

func TestAddPredefinedCategories(t *testing.T) {
	categories := &categoryServiceFake{}
	handler := newTestRouter(routerDeps{categories: categories})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/v1/categories/predefined", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if len(categories.added) != 4 || categories.added[0] != "Ball" {
		t.Fatalf("predefined set not forwarded: %v", categories.added)
	}
}

func TestExportArchiveHeaders(t *testing.T) {
	exporter := &exporterFake{download: &ports.Download{
		Filename:    "categorized-images.zip",
		ContentType: "application/zip",
		Body:        []byte("zip"),
	}}
	handler := newTestRouter(routerDeps{exporter: exporter})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/export", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); got != "application/zip" {
		t.Fatalf("content type = %s", got)
	}
	if got := res.Header().Get("Content-Disposition"); !strings.Contains(got, "categorized-images.zip") {
		t.Fatalf("content disposition = %s", got)
	}
	if body, _ := io.ReadAll(res.Body); string(body) != "zip" {
		t.Fatalf("unexpected body: %q", body)
	}
}

func TestExportNothingMapsTo409(t *testing.T) {
	exporter := &exporterFake{err: domain.WrapError(domain.ErrNothingToExport, "export archive", errors.New("empty"))}
	handler := newTestRouter(routerDeps{exporter: exporter})

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/export", nil))

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}
