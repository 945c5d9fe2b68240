// Package jobs provides background job definitions and handlers using Asynq.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/contentgraph/api/internal/app"
	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/shared"
	"github.com/contentgraph/api/pkg/logger"
)

// Task types for maintenance jobs
const (
	TypeIntegrityScan   = "maintenance:integrity_scan"
	TypeEndpointCleanup = "maintenance:endpoint_cleanup"
)

// IntegrityScanPayload contains data for a background integrity scan.
type IntegrityScanPayload struct {
	Repair    bool  `json:"repair"`
	BatchSize int   `json:"batch_size"`
	AfterID   int64 `json:"after_id"`
}

// EndpointCleanupPayload contains data for cascading a deleted endpoint
// into the relation graph.
type EndpointCleanupPayload struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
	Mode string `json:"mode"`
}

// NewIntegrityScanTask creates a new integrity scan task.
func NewIntegrityScanTask(payload IntegrityScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal integrity scan payload: %w", err)
	}
	return asynq.NewTask(
		TypeIntegrityScan,
		data,
		asynq.MaxRetry(2),
		asynq.Timeout(30*time.Minute),
		asynq.Queue("maintenance"),
	), nil
}

// NewEndpointCleanupTask creates a new endpoint cleanup task.
func NewEndpointCleanupTask(payload EndpointCleanupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal endpoint cleanup payload: %w", err)
	}
	return asynq.NewTask(
		TypeEndpointCleanup,
		data,
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
		asynq.Queue("maintenance"),
	), nil
}

// MaintenanceTaskHandler processes maintenance jobs.
type MaintenanceTaskHandler struct {
	integrity *app.IntegrityService
	cleanup   *app.CleanupService
	logger    *logger.Logger
}

// NewMaintenanceTaskHandler creates a new maintenance task handler.
func NewMaintenanceTaskHandler(integrity *app.IntegrityService, cleanup *app.CleanupService, log *logger.Logger) *MaintenanceTaskHandler {
	return &MaintenanceTaskHandler{
		integrity: integrity,
		cleanup:   cleanup,
		logger:    log.With("component", "maintenance_tasks"),
	}
}

// RegisterHandlers registers the maintenance handlers on the mux.
func (h *MaintenanceTaskHandler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeIntegrityScan, h.HandleIntegrityScan)
	mux.HandleFunc(TypeEndpointCleanup, h.HandleEndpointCleanup)
}

// HandleIntegrityScan runs an integrity scan from a queued request. The scan
// runs as the system actor since there is no request context to inherit.
func (h *MaintenanceTaskHandler) HandleIntegrityScan(ctx context.Context, t *asynq.Task) error {
	var payload IntegrityScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal integrity scan payload: %w", err)
	}

	ctx = shared.WithActor(ctx, shared.SystemActor)
	report, err := h.integrity.Scan(ctx, app.ScanOptions{
		Repair:    payload.Repair,
		BatchSize: payload.BatchSize,
		AfterID:   payload.AfterID,
	})
	if err != nil {
		return fmt.Errorf("integrity scan failed: %w", err)
	}

	h.logger.Info("queued integrity scan finished",
		"scan_id", report.ScanID,
		"scanned", report.Scanned,
		"issues", report.Issues(),
		"cleaned", report.Cleaned,
	)
	return nil
}

// HandleEndpointCleanup cascades a deleted endpoint into the graph.
func (h *MaintenanceTaskHandler) HandleEndpointCleanup(ctx context.Context, t *asynq.Task) error {
	var payload EndpointCleanupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal endpoint cleanup payload: %w", err)
	}

	kind, err := content.ParseKind(payload.Kind)
	if err != nil {
		return fmt.Errorf("invalid cleanup payload kind %q: %w", payload.Kind, err)
	}

	ctx = shared.WithActor(ctx, shared.SystemActor)
	removed, err := h.cleanup.ObjectDeleted(ctx, kind, payload.ID, app.CleanupMode(payload.Mode))
	if err != nil {
		return fmt.Errorf("endpoint cleanup failed: %w", err)
	}

	h.logger.Info("queued endpoint cleanup finished",
		"kind", kind, "id", payload.ID, "removed", removed)
	return nil
}
