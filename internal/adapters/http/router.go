package httpadapter

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/domain"
	"github.com/gregorydelacruz/chatgpt-image-visionary2/internal/core/ports"
)

// Instrumentation receives pipeline-level observations from the handlers.
// The zero value (nil) disables recording.
type Instrumentation interface {
	RecordBatchSubmission(service string, imageCount int)
	RecordExport(service string, err error)
	RecordCategoryReassignment(service string)
}

type Router struct {
	submitter   ports.BatchSubmitter
	reader      ports.ImageReader
	categories  ports.CategoryService
	exporter    ports.Exporter
	credentials ports.CredentialStore

	predefined     []string
	maxUploadBytes int64
	rateLimitRPS   float64
	rateLimitBurst int

	instr   Instrumentation
	service string
}

func NewRouter(
	submitter ports.BatchSubmitter,
	reader ports.ImageReader,
	categories ports.CategoryService,
	exporter ports.Exporter,
	credentials ports.CredentialStore,
	predefined []string,
	maxUploadBytes int64,
	rateLimitRPS float64,
	rateLimitBurst int,
) *Router {
	return &Router{
		submitter:      submitter,
		reader:         reader,
		categories:     categories,
		exporter:       exporter,
		credentials:    credentials,
		predefined:     predefined,
		maxUploadBytes: maxUploadBytes,
		rateLimitRPS:   rateLimitRPS,
		rateLimitBurst: rateLimitBurst,
	}
}

// WithInstrumentation attaches a metrics sink to the handlers.
func (rt *Router) WithInstrumentation(instr Instrumentation, service string) *Router {
	rt.instr = instr
	rt.service = service
	return rt
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/credential", rt.credential)
	mux.HandleFunc("/v1/images", rt.images)
	mux.HandleFunc("/v1/images/", rt.imageByID)
	mux.HandleFunc("/v1/batches/", rt.batchByID)
	mux.HandleFunc("/v1/categories", rt.categoriesCollection)
	mux.HandleFunc("/v1/categories/predefined", rt.addPredefinedCategories)
	mux.HandleFunc("/v1/export", rt.export)

	var handler http.Handler = mux
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) credential(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]bool{"set": rt.credentials.IsSet()})
	case http.MethodPut:
		var req struct {
			APIKey string `json:"api_key"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		key := strings.TrimSpace(req.APIKey)
		if !domain.ValidCredentialFormat(key) {
			writeError(w, http.StatusBadRequest, "api key format is invalid")
			return
		}
		if err := rt.credentials.Set(key); err != nil {
			rt.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"set": true})
	case http.MethodDelete:
		if err := rt.credentials.Clear(); err != nil {
			rt.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"set": false})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) images(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		rt.submitBatch(w, r)
	case http.MethodGet:
		images, err := rt.reader.ListImages(r.Context())
		if err != nil {
			rt.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"images": images})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) submitBatch(w http.ResponseWriter, r *http.Request) {
	if rt.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "multipart form is required")
		return
	}
	defer r.MultipartForm.RemoveAll()

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "multipart field 'files' is required")
		return
	}

	files := make([]ports.UploadFile, 0, len(headers))
	opened := make([]interface{ Close() error }, 0, len(headers))
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable multipart file")
			return
		}
		opened = append(opened, f)
		files = append(files, ports.UploadFile{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Size:     header.Size,
			Body:     f,
		})
	}

	batch, images, err := rt.submitter.Submit(r.Context(), files)
	if err != nil {
		rt.fail(w, err)
		return
	}
	if rt.instr != nil {
		rt.instr.RecordBatchSubmission(rt.service, len(images))
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"batch": batch, "images": images})
}

func (rt *Router) imageByID(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/images/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "image id is required")
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		img, err := rt.reader.GetImage(r.Context(), id)
		if err != nil {
			rt.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, img)
	case action == "file" && r.Method == http.MethodGet:
		dl, err := rt.exporter.ExportOne(r.Context(), id)
		if err != nil {
			rt.fail(w, err)
			return
		}
		writeDownload(w, dl)
	case action == "category" && r.Method == http.MethodPut:
		var req struct {
			Category string `json:"category"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		img, err := rt.categories.SetImageCategory(r.Context(), id, req.Category)
		if err != nil {
			rt.fail(w, err)
			return
		}
		if rt.instr != nil {
			rt.instr.RecordCategoryReassignment(rt.service)
		}
		writeJSON(w, http.StatusOK, img)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) batchByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/batches/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "batch id is required")
		return
	}
	batch, err := rt.reader.GetBatch(r.Context(), id)
	if err != nil {
		rt.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batch)
}

func (rt *Router) categoriesCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		names, predefined, err := rt.categories.List(r.Context())
		if err != nil {
			rt.fail(w, err)
			return
		}
		if predefined == nil {
			predefined = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"categories": names,
			"predefined": predefined,
		})
	case http.MethodPost:
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		if err := rt.categories.Add(r.Context(), req.Name); err != nil {
			rt.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"name": strings.TrimSpace(req.Name)})
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (rt *Router) addPredefinedCategories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	added, err := rt.categories.AddPredefined(r.Context(), rt.predefined)
	if err != nil {
		rt.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"added": added})
}

func (rt *Router) export(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	dl, err := rt.exporter.ExportAll(r.Context())
	if rt.instr != nil {
		rt.instr.RecordExport(rt.service, err)
	}
	if err != nil {
		rt.fail(w, err)
		return
	}
	writeDownload(w, dl)
}

func (rt *Router) fail(w http.ResponseWriter, err error) {
	writeError(w, mapErrorToHTTPStatus(err), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeDownload(w http.ResponseWriter, dl *ports.Download) {
	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+dl.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Body)
}
