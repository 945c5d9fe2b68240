package app

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/contentgraph/api/internal/config"
	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/domain/shared"
	"github.com/contentgraph/api/pkg/logger"
)

// =============================================================================
// Mock Repositories
// =============================================================================

var errBoom = errors.New("boom")

// mockRelationRepo implements relation.Repository in memory.
type mockRelationRepo struct {
	mu     sync.Mutex
	nextID int64
	rows   []*relation.Relation

	insertErr    error
	chunkErr     error
	deleteAllErr error
}

func newMockRelationRepo() *mockRelationRepo {
	return &mockRelationRepo{}
}

// addRaw appends a row without the uniqueness check, so tests can build
// states the write path would reject.
func (m *mockRelationRepo) addRaw(rel *relation.Relation) *relation.Relation {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rel
	if cp.ID == 0 {
		m.nextID++
		cp.ID = m.nextID
	} else if cp.ID > m.nextID {
		m.nextID = cp.ID
	}
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	m.rows = append(m.rows, &cp)
	return &cp
}

func (m *mockRelationRepo) Insert(_ context.Context, rel *relation.Relation) (int64, error) {
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.FromID == rel.FromID && r.ToID == rel.ToID && r.Type == rel.Type && r.ToType == rel.ToType {
			return 0, relation.ErrRelationExists
		}
	}
	m.nextID++
	cp := *rel
	cp.ID = m.nextID
	cp.CreatedAt = time.Now()
	m.rows = append(m.rows, &cp)
	return cp.ID, nil
}

func (m *mockRelationRepo) Delete(_ context.Context, fromID, toID int64, typ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*relation.Relation
	var removed int64
	for _, r := range m.rows {
		if r.FromID == fromID && r.ToID == toID && (typ == "" || r.Type == typ) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return removed, nil
}

func (m *mockRelationRepo) Exists(_ context.Context, fromID, toID int64, typ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.FromID == fromID && r.ToID == toID && (typ == "" || r.Type == typ) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRelationRepo) BidirectionalTypesBetween(_ context.Context, fromID, toID int64, typ string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, r := range m.rows {
		if r.FromID == fromID && r.ToID == toID && r.Direction == relation.DirectionBi &&
			(typ == "" || r.Type == typ) && !seen[r.Type] {
			seen[r.Type] = true
			out = append(out, r.Type)
		}
	}
	return out, nil
}

func (m *mockRelationRepo) ListFrom(_ context.Context, fromID int64, opts relation.ListOptions) ([]*relation.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*relation.Relation
	for _, r := range m.rows {
		if r.FromID == fromID && (opts.Type == "" || r.Type == opts.Type) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *mockRelationRepo) ListAllFrom(_ context.Context, fromID int64) ([]*relation.Relation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*relation.Relation
	for _, r := range m.rows {
		if r.FromID == fromID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type < out[j].Type
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *mockRelationRepo) CountFrom(_ context.Context, fromID int64, typ string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, r := range m.rows {
		if r.FromID == fromID && (typ == "" || r.Type == typ) {
			n++
		}
	}
	return n, nil
}

func (m *mockRelationRepo) TargetsFrom(_ context.Context, fromID int64, typ string) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []int64
	for _, r := range m.rows {
		if r.FromID == fromID && r.Type == typ {
			out = append(out, r.ToID)
		}
	}
	return out, nil
}

func (m *mockRelationRepo) UpdateOrder(_ context.Context, id int64, order int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			r.Order = order
			return nil
		}
	}
	return shared.ErrNotFound
}

func (m *mockRelationRepo) Chunk(_ context.Context, afterID int64, limit int) ([]*relation.Relation, error) {
	if m.chunkErr != nil {
		return nil, m.chunkErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*relation.Relation
	for _, r := range m.rows {
		if r.ID > afterID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *mockRelationRepo) DuplicateGroups(_ context.Context) ([]relation.DuplicateGroup, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	type tuple struct {
		fromID int64
		toID   int64
		typ    string
		toType content.Kind
	}
	groups := make(map[tuple]*relation.DuplicateGroup)
	var order []tuple
	for _, r := range m.rows {
		k := tuple{r.FromID, r.ToID, r.Type, r.ToType}
		g, ok := groups[k]
		if !ok {
			g = &relation.DuplicateGroup{FromID: r.FromID, ToID: r.ToID, Type: r.Type, ToType: r.ToType, KeepID: r.ID}
			groups[k] = g
			order = append(order, k)
		}
		g.Count++
		if r.ID < g.KeepID {
			g.KeepID = r.ID
		}
	}
	var out []relation.DuplicateGroup
	for _, k := range order {
		if groups[k].Count > 1 {
			out = append(out, *groups[k])
		}
	}
	return out, nil
}

func (m *mockRelationRepo) DeleteDuplicates(_ context.Context, g relation.DuplicateGroup) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*relation.Relation
	var removed int64
	for _, r := range m.rows {
		if r.ID != g.KeepID && r.FromID == g.FromID && r.ToID == g.ToID && r.Type == g.Type && r.ToType == g.ToType {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return removed, nil
}

func (m *mockRelationRepo) DeleteByIDs(_ context.Context, ids []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	doomed := make(map[int64]bool, len(ids))
	for _, id := range ids {
		doomed[id] = true
	}
	var kept []*relation.Relation
	var removed int64
	for _, r := range m.rows {
		if doomed[r.ID] {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return removed, nil
}

func (m *mockRelationRepo) DeleteAllFor(_ context.Context, kind content.Kind, id int64) (int64, error) {
	if m.deleteAllErr != nil {
		return 0, m.deleteAllErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var kept []*relation.Relation
	var removed int64
	for _, r := range m.rows {
		fromSide := kind == content.KindPost && r.FromID == id
		toSide := r.ToType == kind && r.ToID == id
		if fromSide || toSide {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.rows = kept
	return removed, nil
}

func (m *mockRelationRepo) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

// mockContentRepo implements content.Repository in memory.
type mockContentRepo struct {
	mu     sync.Mutex
	nextID int64
	items  map[content.Kind]map[int64]*content.Item

	// listFn overrides List when set, so tests can capture the options
	// the service built.
	listFn func(opts content.ListOptions) ([]*content.Item, error)

	// existsErr fails Exists for specific ids.
	existsErr map[int64]error
}

func newMockContentRepo() *mockContentRepo {
	return &mockContentRepo{items: make(map[content.Kind]map[int64]*content.Item)}
}

func (m *mockContentRepo) put(item *content.Item) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.items[item.Kind] == nil {
		m.items[item.Kind] = make(map[int64]*content.Item)
	}
	if item.ID > m.nextID {
		m.nextID = item.ID
	}
	m.items[item.Kind][item.ID] = item
}

func (m *mockContentRepo) Create(_ context.Context, item *content.Item) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	item.ID = m.nextID
	item.CreatedAt = time.Now()
	if m.items[item.Kind] == nil {
		m.items[item.Kind] = make(map[int64]*content.Item)
	}
	m.items[item.Kind][item.ID] = item
	return nil
}

func (m *mockContentRepo) Delete(_ context.Context, kind content.Kind, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[kind][id]; !ok {
		return false, nil
	}
	delete(m.items[kind], id)
	return true, nil
}

func (m *mockContentRepo) Get(_ context.Context, kind content.Kind, id int64) (*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[kind][id]; ok {
		return item, nil
	}
	return nil, shared.ErrNotFound
}

func (m *mockContentRepo) Exists(_ context.Context, kind content.Kind, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.existsErr[id]; ok {
		return false, err
	}
	_, ok := m.items[kind][id]
	return ok, nil
}

func (m *mockContentRepo) Subtype(_ context.Context, kind content.Kind, id int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if item, ok := m.items[kind][id]; ok {
		return item.Subtype, nil
	}
	return "", shared.ErrNotFound
}

func (m *mockContentRepo) List(_ context.Context, opts content.ListOptions) ([]*content.Item, error) {
	if m.listFn != nil {
		return m.listFn(opts)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*content.Item
	for _, item := range m.items[opts.Kind] {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// Fixtures
// =============================================================================

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "text", Output: io.Discard})
}

func defaultGraphConfig() config.GraphConfig {
	return config.GraphConfig{
		CyclePrevention: true,
		CycleDepth:      10,
		ManualOrdering:  true,
	}
}

type fixture struct {
	svc      *RelationService
	repo     *mockRelationRepo
	contents *mockContentRepo
	registry *relation.Registry
	hooks    *relation.Hooks
}

func newFixture(cfg config.GraphConfig) *fixture {
	hooks := relation.NewHooks()
	registry := relation.Bootstrap(hooks)
	repo := newMockRelationRepo()
	contents := newMockContentRepo()
	svc := NewRelationService(repo, contents, registry, NewCapabilityGate(), hooks, cfg, testLogger())
	return &fixture{svc: svc, repo: repo, contents: contents, registry: registry, hooks: hooks}
}

func (f *fixture) seedPost(id int64, subtype string, status content.Status) {
	f.contents.put(&content.Item{ID: id, Kind: content.KindPost, Subtype: subtype, Status: status})
}

func (f *fixture) seedUser(id int64) {
	f.contents.put(&content.Item{ID: id, Kind: content.KindUser})
}

func (f *fixture) seedTerm(id int64) {
	f.contents.put(&content.Item{ID: id, Kind: content.KindTerm})
}

func editorCtx() context.Context {
	return shared.WithActor(context.Background(), shared.Actor{UserID: 7, Name: "editor", Roles: []string{RoleEditor}})
}

func adminCtx() context.Context {
	return shared.WithActor(context.Background(), shared.Actor{UserID: 1, Name: "admin", Roles: []string{RoleAdmin}})
}

func systemCtx() context.Context {
	return shared.WithActor(context.Background(), shared.SystemActor)
}
