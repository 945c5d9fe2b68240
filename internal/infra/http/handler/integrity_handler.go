package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/contentgraph/api/internal/app"
	"github.com/contentgraph/api/internal/infra/jobs"
	"github.com/contentgraph/api/internal/infra/postgres"
	"github.com/contentgraph/api/internal/infra/redis"
	"github.com/contentgraph/api/pkg/apierror"
	"github.com/contentgraph/api/pkg/logger"
)

// IntegrityHandler handles integrity scan and schema HTTP requests.
type IntegrityHandler struct {
	integrity *app.IntegrityService
	scheduler *app.ScanScheduler
	transfer  *app.TransferService
	schema    *postgres.SchemaManager
	notices   *redis.NoticeStore
	jobs      *jobs.Client
	logger    *logger.Logger
}

// NewIntegrityHandler creates a new IntegrityHandler.
func NewIntegrityHandler(
	integrity *app.IntegrityService,
	scheduler *app.ScanScheduler,
	transfer *app.TransferService,
	schema *postgres.SchemaManager,
	notices *redis.NoticeStore,
	jobsClient *jobs.Client,
	log *logger.Logger,
) *IntegrityHandler {
	return &IntegrityHandler{
		integrity: integrity,
		scheduler: scheduler,
		transfer:  transfer,
		schema:    schema,
		notices:   notices,
		jobs:      jobsClient,
		logger:    log,
	}
}

// ScanRequest represents the request to run an integrity scan.
type ScanRequest struct {
	Repair     bool  `json:"repair"`
	BatchSize  int   `json:"batch_size" validate:"min=0"`
	AfterID    int64 `json:"after_id" validate:"min=0"`
	MaxBatches int   `json:"max_batches" validate:"min=0"`

	// Async enqueues the scan as a background job instead of running it
	// in the request.
	Async bool `json:"async"`
}

// Scan handles POST /api/v1/integrity/scan
func (h *IntegrityHandler) Scan(w http.ResponseWriter, r *http.Request) {
	// An empty body runs a default dry-run scan.
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if req.Async {
		err := h.jobs.EnqueueIntegrityScan(r.Context(), jobs.IntegrityScanPayload{
			Repair:    req.Repair,
			BatchSize: req.BatchSize,
			AfterID:   req.AfterID,
		})
		if err != nil {
			apierror.Internal("Failed to enqueue scan").WriteJSON(w)
			return
		}
		respondJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
		return
	}

	report, err := h.integrity.Scan(r.Context(), app.ScanOptions{
		Repair:     req.Repair,
		BatchSize:  req.BatchSize,
		AfterID:    req.AfterID,
		MaxBatches: req.MaxBatches,
	})
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

// StatusResponse summarizes scanner and schema state.
type StatusResponse struct {
	Schema   postgres.Status `json:"schema"`
	LastScan *time.Time      `json:"last_scan,omitempty"`
}

// Status handles GET /api/v1/integrity/status
func (h *IntegrityHandler) Status(w http.ResponseWriter, r *http.Request) {
	schemaStatus, err := h.schema.Status(r.Context())
	if err != nil {
		apierror.Internal("Failed to read schema status").WriteJSON(w)
		return
	}

	resp := StatusResponse{Schema: schemaStatus}
	if last, err := h.scheduler.LastScan(r.Context()); err == nil && !last.IsZero() {
		resp.LastScan = &last
	}
	respondJSON(w, http.StatusOK, resp)
}

// Notice handles GET /api/v1/integrity/notice
func (h *IntegrityHandler) Notice(w http.ResponseWriter, r *http.Request) {
	notice, err := h.notices.Get(r.Context())
	if err != nil {
		apierror.Internal("Failed to read notice").WriteJSON(w)
		return
	}
	if notice == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, notice)
}

// DismissNotice handles DELETE /api/v1/integrity/notice
func (h *IntegrityHandler) DismissNotice(w http.ResponseWriter, r *http.Request) {
	if err := h.notices.Dismiss(r.Context()); err != nil {
		apierror.Internal("Failed to dismiss notice").WriteJSON(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export handles GET /api/v1/relations/export
func (h *IntegrityHandler) Export(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="relations.json"`)
	if _, err := h.transfer.Export(r.Context(), w); err != nil {
		// Headers are gone already; just log.
		h.logger.WithContext(r.Context()).Error("export failed", "error", err)
	}
}

// Import handles POST /api/v1/relations/import
func (h *IntegrityHandler) Import(w http.ResponseWriter, r *http.Request) {
	report, err := h.transfer.Import(r.Context(), r.Body)
	if err != nil {
		apierror.BadRequest(err.Error()).WriteJSON(w)
		return
	}
	respondJSON(w, http.StatusOK, report)
}
