package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/domain/shared"
)

func TestAddRelation_Unidirectional(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	f.seedPost(1, "post", content.StatusDraft)
	f.seedPost(2, "post", content.StatusDraft)

	var got relation.AddedEvent
	f.hooks.OnRelationAdded(func(ev relation.AddedEvent) { got = ev })

	id, err := f.svc.AddRelation(editorCtx(), AddRelationInput{FromID: 1, ToID: 2, Type: "depends_on"})
	require.NoError(t, err)
	assert.Positive(t, id)

	count, _ := f.repo.Count(context.Background())
	assert.EqualValues(t, 1, count)

	mirror, _ := f.repo.Exists(context.Background(), 2, 1, "depends_on")
	assert.False(t, mirror, "unidirectional add must not mirror")

	assert.Equal(t, id, got.RelationID)
	assert.Equal(t, relation.DirectionUni, got.Direction)
	assert.Equal(t, relation.Hash(1, 2, "depends_on"), got.Hash)
}

func TestAddRelation_BidirectionalMirror(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	f.seedPost(1, "post", content.StatusDraft)
	f.seedPost(2, "post", content.StatusDraft)

	_, err := f.svc.AddRelation(editorCtx(), AddRelationInput{FromID: 1, ToID: 2, Type: "related_to"})
	require.NoError(t, err)

	count, _ := f.repo.Count(context.Background())
	assert.EqualValues(t, 2, count)

	mirror, _ := f.repo.Exists(context.Background(), 2, 1, "related_to")
	assert.True(t, mirror)
}

func TestAddRelation_DuplicateBeforeCycle(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	f.seedPost(1, "post", content.StatusDraft)
	f.seedPost(2, "post", content.StatusDraft)

	_, err := f.svc.AddRelation(editorCtx(), AddRelationInput{FromID: 1, ToID: 2, Type: "related_to"})
	require.NoError(t, err)

	// The mirror row 2->1 already exists and the reverse edge 1->2 would
	// close a cycle; the duplicate check runs first and must win.
	_, err = f.svc.AddRelation(editorCtx(), AddRelationInput{FromID: 2, ToID: 1, Type: "related_to"})
	require.Error(t, err)
	assert.Equal(t, relation.KindRelationExists, relation.KindOf(err))
}

func TestAddRelation_SelfRelation(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	f.seedPost(1, "post", content.StatusDraft)

	_, err := f.svc.AddRelation(editorCtx(), AddRelationInput{FromID: 1, ToID: 1, Type: "related_to"})
	require.Error(t, err)
	assert.Equal(t, relation.KindSelfRelation, relation.KindOf(err))
}

func TestAddRelation_InvalidIDs(t *testing.T) {
	f := newFixture(defaultGraphConfig())

	for _, in := range []AddRelationInput{
		{FromID: 0, ToID: 2, Type: "related_to"},
		{FromID: 1, ToID: -3, Type: "related_to"},
	} {
		_, err := f.svc.AddRelation(editorCtx(), in)
		require.Error(t, err)
		assert.Equal(t, relation.KindInvalidID, relation.KindOf(err))
	}
}

func TestAddRelation_EndpointNotFound(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	f.seedPost(1, "post", content.StatusDraft)

	t.Run("missing source", func(t *testing.T) {
		_, err := f.svc.AddRelation(editorCtx(), AddRelationInput{FromID: 99, ToID: 1, Type: "related_to"})
		require.Error(t, err)
		assert.Equal(t, relation.KindEndpointNotFound, relation.KindOf(err))
	})

	t.Run("missing target", func(t *testing.T) {
		_, err := f.svc.AddRelation(editorCtx(), AddRelationInput{FromID: 1, ToID: 99, Type: "related_to"})
		require.Error(t, err)
		assert.Equal(t, relation.KindEndpointNotFound, relation.KindOf(err))
	})
}

func TestAddRelation_NoActor(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	f.seedPost(1, "post", content.StatusDraft)
	f.seedPost(2, "post", content.StatusDraft)

	_, err := f.svc.AddRelation(context.Background(), AddRelationInput{FromID: 1, ToID: 2, Type: "related_to"})
	require.Error(t, err)
	assert.Equal(t, relation.KindPermissionDenied, relation.KindOf(err))
}

func TestAddRelation_PolicyVeto(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	f.seedPost(1, "post", content.StatusDraft)
	f.seedPost(2, "post", content.StatusDraft)

	f.svc.AddAddPolicy(func(_ context.Context, fromID, _ int64, _ string) bool {
		return fromID != 1
	})

	_, err := f.svc.AddRelation(editorCtx(), AddRelationInput{FromID: 1, ToID: 2, Type: "related_to"})
	require.Error(t, err)
	assert.Equal(t, relation.KindRelationNotAllowed, relation.KindOf(err))
}

func TestAddRelation_CyclePrevention(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	for id := int64(1); id <= 4; id++ {
		f.seedPost(id, "post", content.StatusDraft)
	}
	ctx := editorCtx()

	t.Run("direct reverse edge", func(t *testing.T) {
		_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: 1, ToID: 2, Type: "parent_of"})
		require.NoError(t, err)

		_, err = f.svc.AddRelation(ctx, AddRelationInput{FromID: 2, ToID: 1, Type: "parent_of"})
		require.Error(t, err)
		assert.Equal(t, relation.KindInfiniteLoop, relation.KindOf(err))
	})

	t.Run("transitive cycle", func(t *testing.T) {
		_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: 2, ToID: 3, Type: "parent_of"})
		require.NoError(t, err)

		_, err = f.svc.AddRelation(ctx, AddRelationInput{FromID: 3, ToID: 1, Type: "parent_of"})
		require.Error(t, err)
		assert.Equal(t, relation.KindInfiniteLoop, relation.KindOf(err))
	})

	t.Run("other type does not count", func(t *testing.T) {
		_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: 3, ToID: 1, Type: "depends_on"})
		assert.NoError(t, err)
	})
}

func TestAddRelation_CycleDepthBound(t *testing.T) {
	cfg := defaultGraphConfig()
	cfg.CycleDepth = 2
	f := newFixture(cfg)
	for id := int64(1); id <= 5; id++ {
		f.seedPost(id, "post", content.StatusDraft)
	}
	ctx := editorCtx()

	// Chain 1->2->3->4, then close 4->1. The back-path is four hops, past
	// the depth bound, so the check treats it as cycle-free.
	for _, pair := range [][2]int64{{1, 2}, {2, 3}, {3, 4}} {
		_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: pair[0], ToID: pair[1], Type: "parent_of"})
		require.NoError(t, err)
	}

	_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: 4, ToID: 1, Type: "parent_of"})
	assert.NoError(t, err)
}

func TestAddRelation_GlobalMaxRelationships(t *testing.T) {
	cfg := defaultGraphConfig()
	cfg.MaxRelationships = 2
	f := newFixture(cfg)
	for id := int64(1); id <= 4; id++ {
		f.seedPost(id, "post", content.StatusDraft)
	}
	ctx := editorCtx()

	for _, to := range []int64{2, 3} {
		_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: 1, ToID: to, Type: "depends_on"})
		require.NoError(t, err)
	}

	_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: 1, ToID: 4, Type: "depends_on"})
	require.Error(t, err)
	assert.Equal(t, relation.KindMaxRelationships, relation.KindOf(err))
}

func TestAddRelation_TypeMaxConnections(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	require.NoError(t, f.registry.Register(relation.TypeDefinition{
		Slug: "featured", Label: "Featured", MaxConnections: 1,
	}))
	for id := int64(1); id <= 3; id++ {
		f.seedPost(id, "post", content.StatusDraft)
	}
	ctx := editorCtx()

	_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: 1, ToID: 2, Type: "featured"})
	require.NoError(t, err)

	_, err = f.svc.AddRelation(ctx, AddRelationInput{FromID: 1, ToID: 3, Type: "featured"})
	require.Error(t, err)
	assert.Equal(t, relation.KindMaxRelationships, relation.KindOf(err))

	// The cap is per type, other types still accept rows.
	_, err = f.svc.AddRelation(ctx, AddRelationInput{FromID: 1, ToID: 3, Type: "depends_on"})
	assert.NoError(t, err)
}

func TestAddRelation_UnregisteredType(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	f.seedPost(1, "post", content.StatusDraft)
	f.seedPost(2, "post", content.StatusDraft)

	_, err := f.svc.AddRelation(editorCtx(), AddRelationInput{FromID: 1, ToID: 2, Type: "nope"})
	require.Error(t, err)
	assert.Equal(t, relation.KindInvalidRelationType, relation.KindOf(err))
}

func TestAddRelation_TargetKind(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	require.NoError(t, f.registry.Register(relation.TypeDefinition{
		Slug: "authored_by", Label: "Authored By",
		ToKinds: []content.Kind{content.KindUser},
	}))
	f.seedPost(1, "post", content.StatusDraft)
	f.seedUser(5)
	ctx := editorCtx()

	t.Run("allowed kind", func(t *testing.T) {
		_, err := f.svc.AddRelation(ctx, AddRelationInput{
			FromID: 1, ToID: 5, Type: "authored_by", ToType: content.KindUser,
		})
		assert.NoError(t, err)
	})

	t.Run("kind outside the allow-list", func(t *testing.T) {
		_, err := f.svc.AddRelation(ctx, AddRelationInput{
			FromID: 1, ToID: 5, Type: "related_to", ToType: content.KindUser,
		})
		require.Error(t, err)
		assert.Equal(t, relation.KindPostTypeNotAllowed, relation.KindOf(err))
	})

	t.Run("same id across kinds is not a self relation", func(t *testing.T) {
		f.seedUser(1)
		_, err := f.svc.AddRelation(ctx, AddRelationInput{
			FromID: 1, ToID: 1, Type: "authored_by", ToType: content.KindUser,
		})
		assert.NoError(t, err)
	})

	t.Run("explicit bidirectional cannot span kinds", func(t *testing.T) {
		f.seedUser(6)
		_, err := f.svc.AddRelation(ctx, AddRelationInput{
			FromID: 1, ToID: 6, Type: "authored_by", ToType: content.KindUser,
			Direction: relation.DirectionBi,
		})
		require.Error(t, err)
		assert.Equal(t, relation.KindPostTypeNotAllowed, relation.KindOf(err))

		// No half-written pair: neither the row nor a mirror landed.
		forward, _ := f.repo.Exists(context.Background(), 1, 6, "authored_by")
		assert.False(t, forward)
		mirror, _ := f.repo.Exists(context.Background(), 6, 1, "authored_by")
		assert.False(t, mirror)
	})
}

func TestAddRelation_SourceKindDispatch(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	require.NoError(t, f.registry.Register(relation.TypeDefinition{
		Slug: "follows", Label: "Follows",
		FromKind: content.KindUser,
		ToKinds:  []content.Kind{content.KindUser},
	}))
	f.seedUser(7)
	f.seedUser(8)

	memberCtx := func(id int64) context.Context {
		return shared.WithActor(context.Background(), shared.Actor{UserID: id, Name: "member"})
	}

	t.Run("source looked up among its declared kind", func(t *testing.T) {
		_, err := f.svc.AddRelation(memberCtx(7), AddRelationInput{
			FromID: 7, ToID: 8, Type: "follows", ToType: content.KindUser,
		})
		assert.NoError(t, err)
	})

	t.Run("capability follows the source kind", func(t *testing.T) {
		// A user edits only their own record; editing another user's
		// relations needs admin.
		_, err := f.svc.AddRelation(memberCtx(9), AddRelationInput{
			FromID: 8, ToID: 7, Type: "follows", ToType: content.KindUser,
		})
		require.Error(t, err)
		assert.Equal(t, relation.KindPermissionDenied, relation.KindOf(err))
	})

	t.Run("self relation within the source kind", func(t *testing.T) {
		_, err := f.svc.AddRelation(memberCtx(7), AddRelationInput{
			FromID: 7, ToID: 7, Type: "follows", ToType: content.KindUser,
		})
		require.Error(t, err)
		assert.Equal(t, relation.KindSelfRelation, relation.KindOf(err))
	})
}

func TestAddRelation_SubtypeAllowList(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	require.NoError(t, f.registry.Register(relation.TypeDefinition{
		Slug: "page_link", Label: "Page Link",
		AllowedSubtypes: []string{"page"},
	}))
	f.seedPost(1, "page", content.StatusDraft)
	f.seedPost(2, "page", content.StatusDraft)
	f.seedPost(3, "article", content.StatusDraft)
	ctx := editorCtx()

	_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: 1, ToID: 2, Type: "page_link"})
	assert.NoError(t, err)

	_, err = f.svc.AddRelation(ctx, AddRelationInput{FromID: 1, ToID: 3, Type: "page_link"})
	require.Error(t, err)
	assert.Equal(t, relation.KindPostTypeNotAllowed, relation.KindOf(err))
}

func TestAddRelation_ImmutableMode(t *testing.T) {
	cfg := defaultGraphConfig()
	cfg.ImmutableMode = true
	f := newFixture(cfg)
	f.seedPost(1, "post", content.StatusPublished)
	f.seedPost(2, "post", content.StatusDraft)
	f.seedPost(3, "post", content.StatusDraft)

	t.Run("published source rejected", func(t *testing.T) {
		_, err := f.svc.AddRelation(editorCtx(), AddRelationInput{FromID: 1, ToID: 2, Type: "related_to"})
		require.Error(t, err)
		assert.Equal(t, relation.KindImmutableMode, relation.KindOf(err))
	})

	t.Run("draft source unaffected", func(t *testing.T) {
		_, err := f.svc.AddRelation(editorCtx(), AddRelationInput{FromID: 2, ToID: 3, Type: "related_to"})
		assert.NoError(t, err)
	})

	t.Run("privileged context bypasses", func(t *testing.T) {
		_, err := f.svc.AddRelation(systemCtx(), AddRelationInput{FromID: 1, ToID: 3, Type: "related_to"})
		assert.NoError(t, err)
	})
}

func TestRemoveRelation(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	f.seedPost(1, "post", content.StatusDraft)
	f.seedPost(2, "post", content.StatusDraft)
	ctx := editorCtx()

	t.Run("bidirectional removes the mirror", func(t *testing.T) {
		_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: 1, ToID: 2, Type: "related_to"})
		require.NoError(t, err)

		var removed relation.RemovedEvent
		f.hooks.OnRelationRemoved(func(ev relation.RemovedEvent) { removed = ev })

		require.NoError(t, f.svc.RemoveRelation(ctx, 1, 2, "related_to"))

		count, _ := f.repo.Count(context.Background())
		assert.EqualValues(t, 0, count)
		assert.EqualValues(t, 1, removed.FromID)
	})

	t.Run("unidirectional leaves the reverse row", func(t *testing.T) {
		// Independent edges in both directions for a uni type.
		f.repo.addRaw(&relation.Relation{FromID: 1, ToID: 2, Type: "depends_on", ToType: content.KindPost, Direction: relation.DirectionUni})
		f.repo.addRaw(&relation.Relation{FromID: 2, ToID: 1, Type: "depends_on", ToType: content.KindPost, Direction: relation.DirectionUni})

		require.NoError(t, f.svc.RemoveRelation(ctx, 1, 2, "depends_on"))

		reverse, _ := f.repo.Exists(context.Background(), 2, 1, "depends_on")
		assert.True(t, reverse)
	})

	t.Run("untyped remove keeps independent reverse edges", func(t *testing.T) {
		f.repo.addRaw(&relation.Relation{FromID: 1, ToID: 2, Type: "related_to", ToType: content.KindPost, Direction: relation.DirectionBi})
		f.repo.addRaw(&relation.Relation{FromID: 2, ToID: 1, Type: "related_to", ToType: content.KindPost, Direction: relation.DirectionBi})
		f.repo.addRaw(&relation.Relation{FromID: 2, ToID: 1, Type: "references", ToType: content.KindPost, Direction: relation.DirectionUni})

		require.NoError(t, f.svc.RemoveRelation(ctx, 1, 2, ""))

		mirror, _ := f.repo.Exists(context.Background(), 2, 1, "related_to")
		assert.False(t, mirror, "the bidirectional mirror must go")
		reverse, _ := f.repo.Exists(context.Background(), 2, 1, "references")
		assert.True(t, reverse, "the unrelated reverse edge must survive")
	})

	t.Run("idempotent on absent rows", func(t *testing.T) {
		assert.NoError(t, f.svc.RemoveRelation(ctx, 8, 9, "related_to"))
	})

	t.Run("no actor rejected", func(t *testing.T) {
		err := f.svc.RemoveRelation(context.Background(), 1, 2, "related_to")
		require.Error(t, err)
		assert.Equal(t, relation.KindPermissionDenied, relation.KindOf(err))
	})
}

func TestGetRelated(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	for id := int64(1); id <= 4; id++ {
		f.seedPost(id, "post", content.StatusDraft)
	}
	ctx := editorCtx()

	for _, to := range []int64{2, 3, 4} {
		_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: 1, ToID: to, Type: "depends_on"})
		require.NoError(t, err)
	}

	t.Run("most recent first", func(t *testing.T) {
		related, err := f.svc.GetRelated(ctx, 1, "depends_on", 0)
		require.NoError(t, err)
		require.Len(t, related, 3)
		assert.EqualValues(t, 4, related[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		related, err := f.svc.GetRelated(ctx, 1, "depends_on", 2)
		require.NoError(t, err)
		assert.Len(t, related, 2)
	})

	t.Run("read policy veto yields empty, not error", func(t *testing.T) {
		f.svc.AddReadPolicy(func(_ context.Context, _ int64, _ string) bool { return false })
		related, err := f.svc.GetRelated(ctx, 1, "depends_on", 0)
		require.NoError(t, err)
		assert.Empty(t, related)
	})
}

func TestIsRelated(t *testing.T) {
	f := newFixture(defaultGraphConfig())
	f.seedPost(1, "post", content.StatusDraft)
	f.seedPost(2, "post", content.StatusDraft)
	ctx := editorCtx()

	_, err := f.svc.AddRelation(ctx, AddRelationInput{FromID: 1, ToID: 2, Type: "depends_on"})
	require.NoError(t, err)

	ok, err := f.svc.IsRelated(ctx, 1, 2, "depends_on")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.svc.IsRelated(ctx, 1, 2, "parent_of")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = f.svc.IsRelated(ctx, 1, 2, "")
	require.NoError(t, err)
	assert.True(t, ok, "empty type matches any")
}

func TestSetRelationOrder(t *testing.T) {
	t.Run("enabled", func(t *testing.T) {
		f := newFixture(defaultGraphConfig())
		row := f.repo.addRaw(&relation.Relation{FromID: 1, ToID: 2, Type: "depends_on", ToType: content.KindPost, Direction: relation.DirectionUni})

		require.NoError(t, f.svc.SetRelationOrder(editorCtx(), row.ID, 5))
		assert.Equal(t, 5, row.Order)
	})

	t.Run("disabled is a no-op", func(t *testing.T) {
		cfg := defaultGraphConfig()
		cfg.ManualOrdering = false
		f := newFixture(cfg)
		row := f.repo.addRaw(&relation.Relation{FromID: 1, ToID: 2, Type: "depends_on", ToType: content.KindPost, Direction: relation.DirectionUni})

		require.NoError(t, f.svc.SetRelationOrder(editorCtx(), row.ID, 5))
		assert.Equal(t, 0, row.Order)
	})
}
