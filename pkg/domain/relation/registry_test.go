package relation_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/domain/shared"
)

func TestRegister_SlugValidation(t *testing.T) {
	r := relation.NewRegistry(nil)

	valid := []string{"related_to", "a", "parent-of", "tier2_link"}
	for _, slug := range valid {
		assert.NoError(t, r.Register(relation.TypeDefinition{Slug: slug, Label: "X"}), slug)
	}

	invalid := []string{"", "  ", "Related", "2fast", "_leading", "has space", "dots.here"}
	for _, slug := range invalid {
		err := r.Register(relation.TypeDefinition{Slug: slug, Label: "X"})
		require.Error(t, err, slug)
		assert.True(t, shared.IsValidation(err), slug)
	}
}

func TestRegister_Validation(t *testing.T) {
	r := relation.NewRegistry(nil)

	t.Run("label required", func(t *testing.T) {
		err := r.Register(relation.TypeDefinition{Slug: "nolabel"})
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("negative max connections", func(t *testing.T) {
		err := r.Register(relation.TypeDefinition{Slug: "neg", Label: "X", MaxConnections: -1})
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("invalid target kind", func(t *testing.T) {
		err := r.Register(relation.TypeDefinition{Slug: "bad", Label: "X", ToKinds: []content.Kind{"widget"}})
		assert.True(t, shared.IsValidation(err))
	})

	t.Run("slug trimmed", func(t *testing.T) {
		require.NoError(t, r.Register(relation.TypeDefinition{Slug: "  padded  ", Label: "X"}))
		assert.True(t, r.Exists("padded"))
	})

	t.Run("bidirectional cannot span kinds", func(t *testing.T) {
		err := r.Register(relation.TypeDefinition{
			Slug: "buddy", Label: "X", Bidirectional: true,
			ToKinds: []content.Kind{content.KindUser},
		})
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))

		err = r.Register(relation.TypeDefinition{
			Slug: "buddy", Label: "X", Bidirectional: true,
			ToKinds: []content.Kind{content.KindPost, content.KindUser},
		})
		require.Error(t, err)
		assert.True(t, shared.IsValidation(err))
		assert.False(t, r.Exists("buddy"))
	})

	t.Run("bidirectional within one kind", func(t *testing.T) {
		assert.NoError(t, r.Register(relation.TypeDefinition{
			Slug: "peer_of", Label: "X", Bidirectional: true,
			FromKind: content.KindUser,
			ToKinds:  []content.Kind{content.KindUser},
		}))
	})
}

func TestRegister_Defaults(t *testing.T) {
	r := relation.NewRegistry(nil)
	require.NoError(t, r.Register(relation.TypeDefinition{Slug: "minimal", Label: "Minimal"}))

	def, ok := r.Type("minimal")
	require.True(t, ok)
	assert.Equal(t, content.KindPost, def.FromKind)
	assert.Equal(t, []content.Kind{content.KindPost}, def.ToKinds)
	assert.NotNil(t, def.AllowedSubtypes)
	assert.Empty(t, def.AllowedSubtypes)
	assert.Equal(t, relation.DirectionUni, def.Direction())
}

func TestRegister_OverwritesAndNotifies(t *testing.T) {
	hooks := relation.NewHooks()
	r := relation.NewRegistry(hooks)

	var events []relation.TypeRegisteredEvent
	hooks.OnTypeRegistered(func(ev relation.TypeRegisteredEvent) { events = append(events, ev) })

	require.NoError(t, r.Register(relation.TypeDefinition{Slug: "link", Label: "First"}))
	require.NoError(t, r.Register(relation.TypeDefinition{Slug: "link", Label: "Second", Bidirectional: true}))

	def, ok := r.Type("link")
	require.True(t, ok)
	assert.Equal(t, "Second", def.Label)
	assert.True(t, r.IsBidirectional("link"))

	require.Len(t, events, 2)
	assert.Equal(t, "link", events[1].Slug)
	assert.Equal(t, "Second", events[1].Definition.Label)
}

func TestBootstrap_DefaultTypes(t *testing.T) {
	r := relation.Bootstrap(relation.NewHooks())

	for _, slug := range []string{"related_to", "parent_of", "depends_on", "references"} {
		assert.True(t, r.Exists(slug), slug)
	}
	assert.True(t, r.IsBidirectional("related_to"))
	assert.False(t, r.IsBidirectional("parent_of"))

	t.Run("extensions run after defaults", func(t *testing.T) {
		r := relation.Bootstrap(relation.NewHooks(), func(r *relation.Registry) {
			_ = r.Register(relation.TypeDefinition{Slug: "related_to", Label: "Shadowed"})
		})
		assert.False(t, r.IsBidirectional("related_to"))
	})
}

func TestTypesFilter(t *testing.T) {
	r := relation.Bootstrap(relation.NewHooks())

	r.AddTypesFilter(func(types map[string]relation.TypeDefinition) map[string]relation.TypeDefinition {
		delete(types, "references")
		types["virtual"] = relation.TypeDefinition{Slug: "virtual", Label: "Virtual"}
		return types
	})

	types := r.Types()
	assert.NotContains(t, types, "references")
	assert.Contains(t, types, "virtual")

	// Filters shape the view only, never the canonical store.
	assert.True(t, r.Exists("references"))
	assert.False(t, r.Exists("virtual"))
}

func TestSubtypesAllowed(t *testing.T) {
	r := relation.NewRegistry(nil)
	require.NoError(t, r.Register(relation.TypeDefinition{
		Slug: "page_link", Label: "Page Link", AllowedSubtypes: []string{"page", "article"},
	}))
	require.NoError(t, r.Register(relation.TypeDefinition{Slug: "open", Label: "Open"}))

	assert.True(t, r.SubtypesAllowed("page_link", "page", "article"))
	assert.False(t, r.SubtypesAllowed("page_link", "page", "post"))
	assert.False(t, r.SubtypesAllowed("page_link", "post", "page"))
	assert.True(t, r.SubtypesAllowed("open", "anything", "goes"))
	assert.False(t, r.SubtypesAllowed("ghost", "page", "page"))
}

func TestSupportsTarget(t *testing.T) {
	def := relation.TypeDefinition{
		Slug: "authored_by", Label: "Authored By",
		ToKinds: []content.Kind{content.KindUser, content.KindTerm},
	}

	assert.True(t, def.SupportsTarget(content.KindUser))
	assert.True(t, def.SupportsTarget(content.KindTerm))
	assert.False(t, def.SupportsTarget(content.KindPost))
}
