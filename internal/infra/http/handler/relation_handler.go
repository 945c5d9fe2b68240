package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/contentgraph/api/internal/app"
	"github.com/contentgraph/api/pkg/apierror"
	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/logger"
	"github.com/contentgraph/api/pkg/validator"
)

// RelationHandler handles relation HTTP requests.
type RelationHandler struct {
	service   *app.RelationService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewRelationHandler creates a new RelationHandler.
func NewRelationHandler(svc *app.RelationService, v *validator.Validator, log *logger.Logger) *RelationHandler {
	return &RelationHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// CreateRelationRequest represents the request to create a relation.
type CreateRelationRequest struct {
	FromID    int64  `json:"from_id" validate:"required,min=1"`
	ToID      int64  `json:"to_id" validate:"required,min=1"`
	Type      string `json:"type" validate:"required,relation_slug"`
	ToType    string `json:"to_type" validate:"omitempty,endpoint_kind"`
	Direction string `json:"direction" validate:"omitempty,relation_direction"`
}

// RelationResponse represents a relation in API responses.
type RelationResponse struct {
	ID        int64     `json:"id"`
	FromID    int64     `json:"from_id"`
	ToID      int64     `json:"to_id"`
	ToType    string    `json:"to_type"`
	Type      string    `json:"type"`
	Direction string    `json:"direction"`
	Order     int       `json:"order"`
	CreatedAt time.Time `json:"created_at"`
}

func toRelationResponse(r *relation.Relation) RelationResponse {
	return RelationResponse{
		ID:        r.ID,
		FromID:    r.FromID,
		ToID:      r.ToID,
		ToType:    r.ToType.String(),
		Type:      r.Type,
		Direction: r.Direction.String(),
		Order:     r.Order,
		CreatedAt: r.CreatedAt,
	}
}

// Create handles POST /api/v1/relations
func (h *RelationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRelationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}

	if err := h.validator.Validate(req); err != nil {
		apierror.UnprocessableEntity("Validation failed", err).WriteJSON(w)
		return
	}

	toType, err := content.ParseKind(req.ToType)
	if err != nil {
		apierror.BadRequest(err.Error()).WriteJSON(w)
		return
	}

	var direction relation.Direction
	if req.Direction != "" {
		direction, err = relation.ParseDirection(req.Direction)
		if err != nil {
			apierror.BadRequest(err.Error()).WriteJSON(w)
			return
		}
	}

	id, err := h.service.AddRelation(r.Context(), app.AddRelationInput{
		FromID:    req.FromID,
		ToID:      req.ToID,
		Type:      req.Type,
		Direction: direction,
		ToType:    toType,
	})
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	respondJSON(w, http.StatusCreated, map[string]any{
		"id":   id,
		"hash": relation.Hash(req.FromID, req.ToID, req.Type),
	})
}

// Delete handles DELETE /api/v1/relations
func (h *RelationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	fromID := parseQueryInt64(query.Get("from_id"))
	toID := parseQueryInt64(query.Get("to_id"))
	if fromID <= 0 || toID <= 0 {
		apierror.BadRequest("from_id and to_id are required").WriteJSON(w)
		return
	}

	if err := h.service.RemoveRelation(r.Context(), fromID, toID, query.Get("type")); err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListRelated handles GET /api/v1/content/{id}/related
func (h *RelationHandler) ListRelated(w http.ResponseWriter, r *http.Request) {
	fromID := parseQueryInt64(chi.URLParam(r, "id"))
	if fromID <= 0 {
		apierror.BadRequest("Invalid content id").WriteJSON(w)
		return
	}

	query := r.URL.Query()
	related, err := h.service.GetRelated(r.Context(), fromID,
		query.Get("type"), parseQueryInt(query.Get("limit"), 0))
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	respondJSON(w, http.StatusOK, ListResponse[relation.Related]{
		Data:  related,
		Count: len(related),
	})
}

// ListAll handles GET /api/v1/content/{id}/relations
func (h *RelationHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	fromID := parseQueryInt64(chi.URLParam(r, "id"))
	if fromID <= 0 {
		apierror.BadRequest("Invalid content id").WriteJSON(w)
		return
	}

	rows, err := h.service.GetAllRelations(r.Context(), fromID)
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	data := make([]RelationResponse, len(rows))
	for i, row := range rows {
		data[i] = toRelationResponse(row)
	}
	respondJSON(w, http.StatusOK, ListResponse[RelationResponse]{Data: data, Count: len(data)})
}

// Check handles GET /api/v1/relations/check
func (h *RelationHandler) Check(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	fromID := parseQueryInt64(query.Get("from_id"))
	toID := parseQueryInt64(query.Get("to_id"))
	if fromID <= 0 || toID <= 0 {
		apierror.BadRequest("from_id and to_id are required").WriteJSON(w)
		return
	}

	related, err := h.service.IsRelated(r.Context(), fromID, toID, query.Get("type"))
	if err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"related": related})
}

// SetOrderRequest represents the request to reorder a relation.
type SetOrderRequest struct {
	Order int `json:"order" validate:"min=0"`
}

// SetOrder handles PUT /api/v1/relations/{id}/order
func (h *RelationHandler) SetOrder(w http.ResponseWriter, r *http.Request) {
	id := parseQueryInt64(chi.URLParam(r, "id"))
	if id <= 0 {
		apierror.BadRequest("Invalid relation id").WriteJSON(w)
		return
	}

	var req SetOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		apierror.UnprocessableEntity("Validation failed", err).WriteJSON(w)
		return
	}

	if err := h.service.SetRelationOrder(r.Context(), id, req.Order); err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
