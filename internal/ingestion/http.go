package ingestion

import (
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/your-org/mediasink/internal/media"
	"github.com/your-org/mediasink/internal/staging"
)

// HTTPHandler exposes the pipeline's boundary endpoints: batch upload
// and remote-object deletion. Everything richer (auth, albums,
// pagination) lives with the surrounding CRUD services.
type HTTPHandler struct {
	staging        *staging.Store
	coordinator    *Coordinator
	orchestrator   *Orchestrator
	logger         *zap.Logger
	maxSizeBytes   int64
	formMemBytes   int64
	maxConcurrency int
	router         chi.Router
}

// NewHTTPHandler constructs the HTTP handler and wires routes.
func NewHTTPHandler(store *staging.Store, coordinator *Coordinator, orchestrator *Orchestrator, logger *zap.Logger, maxSizeBytes, formMemBytes int64, maxConcurrency int) *HTTPHandler {
	h := &HTTPHandler{
		staging:        store,
		coordinator:    coordinator,
		orchestrator:   orchestrator,
		logger:         logger,
		maxSizeBytes:   maxSizeBytes,
		formMemBytes:   formMemBytes,
		maxConcurrency: maxConcurrency,
	}
	h.buildRouter()
	return h
}

func (h *HTTPHandler) buildRouter() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Get("/healthz", h.handleHealth)
	r.Post("/api/v1/uploads", h.handleUpload)
	r.Delete("/api/v1/objects", h.handleDeleteObjects)

	h.router = r
}

// Router exposes the configured chi router.
func (h *HTTPHandler) Router() http.Handler {
	return h.router
}

func (h *HTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// handleUpload stages every part of the multipart form, fans them out
// through the batch coordinator, and reports per-file outcomes. The
// response is always a report, never an opaque batch-wide failure.
func (h *HTTPHandler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.formMemBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "files field is required")
		return
	}

	var (
		staged   []*staging.File
		rejected []*media.IngestError
	)
	for _, header := range headers {
		file, err := h.stageOne(header)
		if err != nil {
			h.logger.Warn("upload rejected before staging",
				zap.String("filename", header.Filename), zap.Error(err))
			rejected = append(rejected, &media.IngestError{
				OriginalFilename: header.Filename,
				Stage:            media.StageStaged,
				Cause:            err,
			})
			continue
		}
		staged = append(staged, file)
	}

	report := h.coordinator.IngestAll(r.Context(), staged, h.maxConcurrency)
	report.Failed = append(report.Failed, rejected...)

	status := http.StatusOK
	if len(report.Succeeded) == 0 && len(report.Failed) > 0 {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, reportPayload(report))
}

func (h *HTTPHandler) stageOne(header *multipart.FileHeader) (*staging.File, error) {
	if header.Size > h.maxSizeBytes {
		return nil, errFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	// Reject unsupported kinds before touching the staging disk;
	// the orchestrator re-validates defensively.
	if _, err := media.KindFromMime(contentType); err != nil {
		return nil, err
	}

	part, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer part.Close()

	return h.staging.Stage(part, header.Filename, contentType)
}

type deleteRequest struct {
	RemoteIDs []string `json:"remote_ids"`
}

// handleDeleteObjects removes remote objects by id or URL. Gateway
// soft-failures are reported but never fail the request, so callers
// can proceed with their own row removal.
func (h *HTTPHandler) handleDeleteObjects(w http.ResponseWriter, r *http.Request) {
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.RemoteIDs) == 0 {
		writeError(w, http.StatusBadRequest, "remote_ids is required")
		return
	}

	pending := h.orchestrator.DeleteRemote(r.Context(), req.RemoteIDs...)
	if pending == nil {
		pending = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"deleted":                len(req.RemoteIDs) - len(pending),
		"pending_reconciliation": pending,
	})
}

func reportPayload(report media.BatchReport) map[string]any {
	failed := make([]map[string]string, 0, len(report.Failed))
	for _, f := range report.Failed {
		entry := map[string]string{
			"original_filename": f.OriginalFilename,
			"stage":             string(f.Stage),
		}
		if f.Cause != nil {
			entry["error"] = f.Cause.Error()
		}
		failed = append(failed, entry)
	}
	succeeded := report.Succeeded
	if succeeded == nil {
		succeeded = []media.Record{}
	}
	return map[string]any{
		"succeeded": succeeded,
		"failed":    failed,
	}
}

var errFileTooLarge = errors.New("file exceeds max size limit")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{
		"error": msg,
	})
}
