package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentgraph/api/internal/app"
	"github.com/contentgraph/api/internal/config"
	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/domain/shared"
	"github.com/contentgraph/api/pkg/logger"
	"github.com/contentgraph/api/pkg/validator"
)

// fakeRelationRepo is a minimal in-memory relation.Repository for handler
// tests; the service-level suites cover the storage semantics.
type fakeRelationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*relation.Relation
}

func (f *fakeRelationRepo) Insert(_ context.Context, rel *relation.Relation) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.FromID == rel.FromID && r.ToID == rel.ToID && r.Type == rel.Type && r.ToType == rel.ToType {
			return 0, relation.ErrRelationExists
		}
	}
	f.nextID++
	cp := *rel
	cp.ID = f.nextID
	f.rows = append(f.rows, &cp)
	return cp.ID, nil
}

func (f *fakeRelationRepo) Delete(_ context.Context, fromID, toID int64, typ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []*relation.Relation
	var n int64
	for _, r := range f.rows {
		if r.FromID == fromID && r.ToID == toID && (typ == "" || r.Type == typ) {
			n++
			continue
		}
		kept = append(kept, r)
	}
	f.rows = kept
	return n, nil
}

func (f *fakeRelationRepo) Exists(_ context.Context, fromID, toID int64, typ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.FromID == fromID && r.ToID == toID && (typ == "" || r.Type == typ) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRelationRepo) BidirectionalTypesBetween(_ context.Context, fromID, toID int64, typ string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, r := range f.rows {
		if r.FromID == fromID && r.ToID == toID && r.Direction == relation.DirectionBi &&
			(typ == "" || r.Type == typ) && !seen[r.Type] {
			seen[r.Type] = true
			out = append(out, r.Type)
		}
	}
	return out, nil
}

func (f *fakeRelationRepo) ListFrom(_ context.Context, fromID int64, opts relation.ListOptions) ([]*relation.Relation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*relation.Relation
	for _, r := range f.rows {
		if r.FromID == fromID && (opts.Type == "" || r.Type == opts.Type) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRelationRepo) ListAllFrom(ctx context.Context, fromID int64) ([]*relation.Relation, error) {
	return f.ListFrom(ctx, fromID, relation.ListOptions{})
}

func (f *fakeRelationRepo) CountFrom(_ context.Context, fromID int64, typ string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, r := range f.rows {
		if r.FromID == fromID && (typ == "" || r.Type == typ) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRelationRepo) TargetsFrom(_ context.Context, fromID int64, typ string) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []int64
	for _, r := range f.rows {
		if r.FromID == fromID && r.Type == typ {
			out = append(out, r.ToID)
		}
	}
	return out, nil
}

func (f *fakeRelationRepo) UpdateOrder(_ context.Context, id int64, order int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.rows {
		if r.ID == id {
			r.Order = order
		}
	}
	return nil
}

func (f *fakeRelationRepo) Chunk(_ context.Context, afterID int64, limit int) ([]*relation.Relation, error) {
	return nil, nil
}

func (f *fakeRelationRepo) DuplicateGroups(_ context.Context) ([]relation.DuplicateGroup, error) {
	return nil, nil
}

func (f *fakeRelationRepo) DeleteDuplicates(_ context.Context, _ relation.DuplicateGroup) (int64, error) {
	return 0, nil
}

func (f *fakeRelationRepo) DeleteByIDs(_ context.Context, _ []int64) (int64, error) { return 0, nil }

func (f *fakeRelationRepo) DeleteAllFor(_ context.Context, _ content.Kind, _ int64) (int64, error) {
	return 0, nil
}

func (f *fakeRelationRepo) Count(_ context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return int64(len(f.rows)), nil
}

// fakeContentRepo holds a fixed set of draft posts.
type fakeContentRepo struct {
	posts map[int64]*content.Item
}

func (f *fakeContentRepo) Create(_ context.Context, _ *content.Item) error { return nil }

func (f *fakeContentRepo) Delete(_ context.Context, _ content.Kind, _ int64) (bool, error) {
	return false, nil
}

func (f *fakeContentRepo) Get(_ context.Context, kind content.Kind, id int64) (*content.Item, error) {
	if kind == content.KindPost {
		if item, ok := f.posts[id]; ok {
			return item, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (f *fakeContentRepo) Exists(ctx context.Context, kind content.Kind, id int64) (bool, error) {
	_, err := f.Get(ctx, kind, id)
	return err == nil, nil
}

func (f *fakeContentRepo) Subtype(ctx context.Context, kind content.Kind, id int64) (string, error) {
	item, err := f.Get(ctx, kind, id)
	if err != nil {
		return "", err
	}
	return item.Subtype, nil
}

func (f *fakeContentRepo) List(_ context.Context, _ content.ListOptions) ([]*content.Item, error) {
	return nil, nil
}

func newTestHandler(t *testing.T) (*RelationHandler, *fakeRelationRepo) {
	t.Helper()
	log := logger.New(logger.Config{Level: "error", Format: "text"})
	repo := &fakeRelationRepo{}
	contents := &fakeContentRepo{posts: map[int64]*content.Item{
		1: {ID: 1, Kind: content.KindPost, Subtype: "post", Status: content.StatusDraft},
		2: {ID: 2, Kind: content.KindPost, Subtype: "post", Status: content.StatusDraft},
	}}
	hooks := relation.NewHooks()
	svc := app.NewRelationService(
		repo, contents, relation.Bootstrap(hooks), app.NewCapabilityGate(), hooks,
		config.GraphConfig{CyclePrevention: true, CycleDepth: 5, ManualOrdering: true}, log)
	return NewRelationHandler(svc, validator.New(), log), repo
}

func testRouter(h *RelationHandler) chi.Router {
	r := chi.NewRouter()
	r.Post("/relations", h.Create)
	r.Delete("/relations", h.Delete)
	r.Get("/relations/check", h.Check)
	r.Put("/relations/{id}/order", h.SetOrder)
	r.Get("/content/{id}/related", h.ListRelated)
	r.Get("/content/{id}/relations", h.ListAll)
	return r
}

func doRequest(router chi.Router, method, target string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req = req.WithContext(shared.WithActor(req.Context(), shared.Actor{
		UserID: 7, Name: "editor", Roles: []string{"editor"},
	}))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestRelationHandler_Create(t *testing.T) {
	h, repo := newTestHandler(t)
	router := testRouter(h)

	t.Run("created", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/relations", CreateRelationRequest{
			FromID: 1, ToID: 2, Type: "related_to",
		})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.EqualValues(t, 1, body["id"])
		assert.Equal(t, relation.Hash(1, 2, "related_to"), body["hash"])

		n, _ := repo.Count(context.Background())
		assert.EqualValues(t, 2, n, "bidirectional adds store both rows")
	})

	t.Run("duplicate maps to 409", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/relations", CreateRelationRequest{
			FromID: 1, ToID: 2, Type: "related_to",
		})
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("missing endpoint maps to 404", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/relations", CreateRelationRequest{
			FromID: 1, ToID: 99, Type: "related_to",
		})
		require.Equal(t, http.StatusNotFound, rec.Code)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "post_not_found", body["error"])
	})

	t.Run("bad payload maps to 422", func(t *testing.T) {
		rec := doRequest(router, http.MethodPost, "/relations", CreateRelationRequest{
			FromID: 1, ToID: 2, Type: "Not A Slug",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("malformed body maps to 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/relations", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("no actor maps to 403", func(t *testing.T) {
		var buf bytes.Buffer
		_ = json.NewEncoder(&buf).Encode(CreateRelationRequest{FromID: 2, ToID: 1, Type: "depends_on"})
		req := httptest.NewRequest(http.MethodPost, "/relations", &buf)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRelationHandler_CheckAndList(t *testing.T) {
	h, _ := newTestHandler(t)
	router := testRouter(h)

	rec := doRequest(router, http.MethodPost, "/relations", CreateRelationRequest{
		FromID: 1, ToID: 2, Type: "depends_on",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("check related", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/relations/check?from_id=1&to_id=2&type=depends_on", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]bool
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body["related"])
	})

	t.Run("check unrelated", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/relations/check?from_id=2&to_id=1", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body map[string]bool
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body["related"])
	})

	t.Run("check requires ids", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/relations/check?from_id=1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("list related", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/content/1/related", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body ListResponse[relation.Related]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, 1, body.Count)
		assert.EqualValues(t, 2, body.Data[0].ID)
	})

	t.Run("list all rows", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/content/1/relations", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body ListResponse[RelationResponse]
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Equal(t, 1, body.Count)
		assert.Equal(t, "depends_on", body.Data[0].Type)
		assert.Equal(t, "unidirectional", body.Data[0].Direction)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := doRequest(router, http.MethodGet, "/content/abc/related", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRelationHandler_Delete(t *testing.T) {
	h, repo := newTestHandler(t)
	router := testRouter(h)

	rec := doRequest(router, http.MethodPost, "/relations", CreateRelationRequest{
		FromID: 1, ToID: 2, Type: "related_to",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("removes both rows of a pair", func(t *testing.T) {
		rec := doRequest(router, http.MethodDelete, "/relations?from_id=1&to_id=2&type=related_to", nil)
		assert.Equal(t, http.StatusNoContent, rec.Code)

		n, _ := repo.Count(context.Background())
		assert.EqualValues(t, 0, n)
	})

	t.Run("requires ids", func(t *testing.T) {
		rec := doRequest(router, http.MethodDelete, "/relations?from_id=1", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRelationHandler_SetOrder(t *testing.T) {
	h, repo := newTestHandler(t)
	router := testRouter(h)

	rec := doRequest(router, http.MethodPost, "/relations", CreateRelationRequest{
		FromID: 1, ToID: 2, Type: "depends_on",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doRequest(router, http.MethodPut, "/relations/1/order", SetOrderRequest{Order: 4})
	require.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 4, repo.rows[0].Order)
}
