package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/contentgraph/api/internal/app"
	"github.com/contentgraph/api/pkg/apierror"
	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/shared"
	"github.com/contentgraph/api/pkg/logger"
	"github.com/contentgraph/api/pkg/validator"
)

// ContentHandler handles content item HTTP requests.
type ContentHandler struct {
	service   *app.ContentService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewContentHandler creates a new ContentHandler.
func NewContentHandler(svc *app.ContentService, v *validator.Validator, log *logger.Logger) *ContentHandler {
	return &ContentHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// ContentResponse represents a content item in API responses.
type ContentResponse struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	Subtype   string    `json:"subtype,omitempty"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toContentResponse(item *content.Item) ContentResponse {
	return ContentResponse{
		ID:        item.ID,
		Kind:      item.Kind.String(),
		Subtype:   item.Subtype,
		Title:     item.Title,
		Status:    string(item.Status),
		CreatedAt: item.CreatedAt,
	}
}

// CreateContentRequest represents the request to create a content item.
type CreateContentRequest struct {
	Kind    string `json:"kind" validate:"omitempty,endpoint_kind"`
	Subtype string `json:"subtype" validate:"max=50"`
	Title   string `json:"title" validate:"required,max=500"`
	Status  string `json:"status" validate:"omitempty,oneof=draft published trashed"`
}

// Create handles POST /api/v1/content
func (h *ContentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateContentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		apierror.UnprocessableEntity("Validation failed", err).WriteJSON(w)
		return
	}

	kind, err := content.ParseKind(req.Kind)
	if err != nil {
		apierror.BadRequest(err.Error()).WriteJSON(w)
		return
	}

	item := &content.Item{
		Kind:    kind,
		Subtype: req.Subtype,
		Title:   req.Title,
		Status:  content.Status(req.Status),
	}
	if err := h.service.Create(r.Context(), item); err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	respondJSON(w, http.StatusCreated, toContentResponse(item))
}

// Get handles GET /api/v1/content/{id}
func (h *ContentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := parseQueryInt64(chi.URLParam(r, "id"))
	if id <= 0 {
		apierror.BadRequest("Invalid content id").WriteJSON(w)
		return
	}

	kind, err := content.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		apierror.BadRequest(err.Error()).WriteJSON(w)
		return
	}

	item, err := h.service.Get(r.Context(), kind, id)
	if err != nil {
		if shared.IsNotFound(err) {
			apierror.NotFound("Content item not found").WriteJSON(w)
			return
		}
		apierror.FromDomain(err).WriteJSON(w)
		return
	}
	respondJSON(w, http.StatusOK, toContentResponse(item))
}

// Delete handles DELETE /api/v1/content/{id}
func (h *ContentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := parseQueryInt64(chi.URLParam(r, "id"))
	if id <= 0 {
		apierror.BadRequest("Invalid content id").WriteJSON(w)
		return
	}

	kind, err := content.ParseKind(r.URL.Query().Get("kind"))
	if err != nil {
		apierror.BadRequest(err.Error()).WriteJSON(w)
		return
	}

	if err := h.service.Delete(r.Context(), kind, id); err != nil {
		if shared.IsNotFound(err) {
			apierror.NotFound("Content item not found").WriteJSON(w)
			return
		}
		apierror.FromDomain(err).WriteJSON(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// List handles GET /api/v1/content
//
// Relation filtering: related_to=1,2,3 narrows the listing to items related
// to those ids; relation_type and relation_direction refine the filter.
func (h *ContentHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	opts := content.ListOptions{
		Subtype: query.Get("subtype"),
		Limit:   parseQueryInt(query.Get("limit"), 50),
		Offset:  parseQueryInt(query.Get("offset"), 0),
	}

	if raw := query.Get("kind"); raw != "" {
		kind, err := content.ParseKind(raw)
		if err != nil {
			apierror.BadRequest(err.Error()).WriteJSON(w)
			return
		}
		opts.Kind = kind
	}

	if raw := query.Get("related_to"); raw != "" {
		opts.Relation = &content.RelationFilter{
			IDs:       parseQueryInt64List(raw),
			Type:      query.Get("relation_type"),
			Direction: content.RelationDirection(query.Get("relation_direction")),
		}
	}

	items, err := h.service.List(r.Context(), opts)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	data := make([]ContentResponse, len(items))
	for i, item := range items {
		data[i] = toContentResponse(item)
	}
	respondJSON(w, http.StatusOK, ListResponse[ContentResponse]{Data: data, Count: len(data)})
}
