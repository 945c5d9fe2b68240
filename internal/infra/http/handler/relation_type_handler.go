package handler

import (
	"encoding/json"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/contentgraph/api/pkg/apierror"
	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/logger"
	"github.com/contentgraph/api/pkg/validator"
)

// RelationTypeHandler handles relation-type registry HTTP requests.
type RelationTypeHandler struct {
	registry  *relation.Registry
	validator *validator.Validator
	logger    *logger.Logger
}

// NewRelationTypeHandler creates a new RelationTypeHandler.
func NewRelationTypeHandler(registry *relation.Registry, v *validator.Validator, log *logger.Logger) *RelationTypeHandler {
	return &RelationTypeHandler{
		registry:  registry,
		validator: v,
		logger:    log,
	}
}

// TypeResponse represents a relation type in API responses.
type TypeResponse struct {
	Slug            string   `json:"slug"`
	Label           string   `json:"label"`
	Bidirectional   bool     `json:"bidirectional"`
	FromKind        string   `json:"from_kind"`
	ToKinds         []string `json:"to_kinds"`
	AllowedSubtypes []string `json:"allowed_subtypes,omitempty"`
	MaxConnections  int      `json:"max_connections,omitempty"`
}

func toTypeResponse(def relation.TypeDefinition) TypeResponse {
	toKinds := make([]string, len(def.ToKinds))
	for i, k := range def.ToKinds {
		toKinds[i] = k.String()
	}
	return TypeResponse{
		Slug:            def.Slug,
		Label:           def.Label,
		Bidirectional:   def.Bidirectional,
		FromKind:        def.FromKind.String(),
		ToKinds:         toKinds,
		AllowedSubtypes: def.AllowedSubtypes,
		MaxConnections:  def.MaxConnections,
	}
}

// List handles GET /api/v1/relation-types
func (h *RelationTypeHandler) List(w http.ResponseWriter, r *http.Request) {
	defs := h.registry.Types()
	data := make([]TypeResponse, 0, len(defs))
	for _, def := range defs {
		data = append(data, toTypeResponse(def))
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Slug < data[j].Slug })
	respondJSON(w, http.StatusOK, ListResponse[TypeResponse]{Data: data, Count: len(data)})
}

// Get handles GET /api/v1/relation-types/{slug}
func (h *RelationTypeHandler) Get(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	def, ok := h.registry.Type(slug)
	if !ok {
		apierror.NotFound("Unknown relation type: " + slug).WriteJSON(w)
		return
	}
	respondJSON(w, http.StatusOK, toTypeResponse(def))
}

// RegisterTypeRequest represents the request to register a relation type.
type RegisterTypeRequest struct {
	Slug            string   `json:"slug" validate:"required,relation_slug"`
	Label           string   `json:"label" validate:"required,max=100"`
	Bidirectional   bool     `json:"bidirectional"`
	FromKind        string   `json:"from_kind" validate:"omitempty,endpoint_kind"`
	ToKinds         []string `json:"to_kinds" validate:"omitempty,dive,endpoint_kind"`
	AllowedSubtypes []string `json:"allowed_subtypes"`
	MaxConnections  int      `json:"max_connections" validate:"min=0"`
}

// Register handles POST /api/v1/relation-types
func (h *RelationTypeHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterTypeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierror.BadRequest("Invalid request body").WriteJSON(w)
		return
	}
	if err := h.validator.Validate(req); err != nil {
		apierror.UnprocessableEntity("Validation failed", err).WriteJSON(w)
		return
	}

	def := relation.TypeDefinition{
		Slug:            req.Slug,
		Label:           req.Label,
		Bidirectional:   req.Bidirectional,
		AllowedSubtypes: req.AllowedSubtypes,
		MaxConnections:  req.MaxConnections,
	}
	if req.FromKind != "" {
		kind, err := content.ParseKind(req.FromKind)
		if err != nil {
			apierror.BadRequest(err.Error()).WriteJSON(w)
			return
		}
		def.FromKind = kind
	}
	for _, raw := range req.ToKinds {
		kind, err := content.ParseKind(raw)
		if err != nil {
			apierror.BadRequest(err.Error()).WriteJSON(w)
			return
		}
		def.ToKinds = append(def.ToKinds, kind)
	}

	if err := h.registry.Register(def); err != nil {
		apierror.FromDomain(err).WriteJSON(w)
		return
	}

	h.logger.WithContext(r.Context()).Info("relation type registered", "slug", req.Slug)
	registered, _ := h.registry.Type(req.Slug)
	respondJSON(w, http.StatusCreated, toTypeResponse(registered))
}
