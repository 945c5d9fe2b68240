package relation

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"sync"

	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/shared"
)

// slugRegex validates type slugs: lowercase letters, numbers, underscores,
// hyphens. Must start with a letter.
var slugRegex = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// TypeDefinition describes a registered relation type.
type TypeDefinition struct {
	Slug          string `json:"slug"`
	Label         string `json:"label"`
	Bidirectional bool   `json:"bidirectional"`

	// AllowedSubtypes is an allow-list of content subtypes permitted on
	// both ends. Empty means unrestricted.
	AllowedSubtypes []string `json:"allowed_subtypes"`

	// FromKind and ToKinds declare which entity kinds may appear as
	// source and target.
	FromKind content.Kind   `json:"from_kind"`
	ToKinds  []content.Kind `json:"to_kinds"`

	// MaxConnections caps outgoing rows of this type per source object.
	// Zero means unlimited.
	MaxConnections int `json:"max_connections"`
}

// Direction returns the direction rows of this type are created with.
func (d TypeDefinition) Direction() Direction {
	if d.Bidirectional {
		return DirectionBi
	}
	return DirectionUni
}

// SupportsTarget reports whether the kind may appear as target.
func (d TypeDefinition) SupportsTarget(k content.Kind) bool {
	return slices.Contains(d.ToKinds, k)
}

// TypesFilter lets observers augment the visible registry without mutating
// the canonical store. Filters receive and return the full mapping.
type TypesFilter func(map[string]TypeDefinition) map[string]TypeDefinition

// Registry is the in-memory table of registered relation types. It is
// rebuilt on every process start from the defaults plus extension
// callbacks; it is not the source of truth for historical rows, which
// reference types by slug and outlive unregistration.
type Registry struct {
	mu      sync.RWMutex
	types   map[string]TypeDefinition
	filters []TypesFilter
	hooks   *Hooks
}

// NewRegistry creates an empty registry. Hooks may be nil.
func NewRegistry(hooks *Hooks) *Registry {
	return &Registry{
		types: make(map[string]TypeDefinition),
		hooks: hooks,
	}
}

// Bootstrap builds a registry with the default types registered first, then
// invokes extension callbacks in order. Extensions may overwrite defaults.
func Bootstrap(hooks *Hooks, extensions ...func(*Registry)) *Registry {
	r := NewRegistry(hooks)
	for _, def := range DefaultTypes() {
		// Defaults are known-valid.
		_ = r.Register(def)
	}
	for _, ext := range extensions {
		ext(r)
	}
	return r
}

// DefaultTypes returns the built-in relation types.
func DefaultTypes() []TypeDefinition {
	return []TypeDefinition{
		{Slug: "related_to", Label: "Related To", Bidirectional: true},
		{Slug: "parent_of", Label: "Parent Of"},
		{Slug: "depends_on", Label: "Depends On"},
		{Slug: "references", Label: "References"},
	}
}

// Register validates and stores a type definition, overwriting any prior
// definition for the same slug, and notifies observers.
func (r *Registry) Register(def TypeDefinition) error {
	def.Slug = strings.TrimSpace(def.Slug)
	if def.Slug == "" || !slugRegex.MatchString(def.Slug) {
		return fmt.Errorf("%w: invalid relation type slug: %q", shared.ErrValidation, def.Slug)
	}
	if strings.TrimSpace(def.Label) == "" {
		return fmt.Errorf("%w: relation type %q requires a label", shared.ErrValidation, def.Slug)
	}
	if def.MaxConnections < 0 {
		return fmt.Errorf("%w: relation type %q: max connections cannot be negative", shared.ErrValidation, def.Slug)
	}
	if def.AllowedSubtypes == nil {
		def.AllowedSubtypes = []string{}
	}
	if def.FromKind == "" {
		def.FromKind = content.KindPost
	}
	if !def.FromKind.IsValid() {
		return fmt.Errorf("%w: relation type %q: invalid source kind %q", shared.ErrValidation, def.Slug, def.FromKind)
	}
	if len(def.ToKinds) == 0 {
		def.ToKinds = []content.Kind{content.KindPost}
	}
	for _, k := range def.ToKinds {
		if !k.IsValid() {
			return fmt.Errorf("%w: relation type %q: invalid target kind %q", shared.ErrValidation, def.Slug, k)
		}
	}

	// Bidirectional rows are stored as a mirrored pair, and a mirror row's
	// implicit source kind is the original target. The pair is only
	// coherent when both ends share one kind.
	if def.Bidirectional && (len(def.ToKinds) != 1 || def.ToKinds[0] != def.FromKind) {
		return fmt.Errorf("%w: relation type %q: bidirectional types must relate objects of a single kind", shared.ErrValidation, def.Slug)
	}

	r.mu.Lock()
	r.types[def.Slug] = def
	r.mu.Unlock()

	if r.hooks != nil {
		r.hooks.notifyTypeRegistered(TypeRegisteredEvent{Slug: def.Slug, Definition: def})
	}
	return nil
}

// AddTypesFilter registers an observer filter applied by Types.
func (r *Registry) AddTypesFilter(f TypesFilter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = append(r.filters, f)
}

// Types returns the full registry mapping with observer filters applied.
// The returned map is a copy; mutating it does not affect the registry.
func (r *Registry) Types() map[string]TypeDefinition {
	r.mu.RLock()
	out := maps.Clone(r.types)
	filters := slices.Clone(r.filters)
	r.mu.RUnlock()

	for _, f := range filters {
		if filtered := f(out); filtered != nil {
			out = filtered
		}
	}
	return out
}

// Type returns the definition for a slug.
func (r *Registry) Type(slug string) (TypeDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[slug]
	return def, ok
}

// Exists reports whether a slug is registered.
func (r *Registry) Exists(slug string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.types[slug]
	return ok
}

// IsBidirectional reports whether rows of the type mirror. Unregistered
// slugs report false.
func (r *Registry) IsBidirectional(slug string) bool {
	def, ok := r.Type(slug)
	return ok && def.Bidirectional
}

// SubtypesAllowed reports whether both endpoint subtypes are permitted for
// the type. An empty allow-list permits everything; an unregistered slug
// permits nothing.
func (r *Registry) SubtypesAllowed(slug, fromSubtype, toSubtype string) bool {
	def, ok := r.Type(slug)
	if !ok {
		return false
	}
	if len(def.AllowedSubtypes) == 0 {
		return true
	}
	return slices.Contains(def.AllowedSubtypes, fromSubtype) &&
		slices.Contains(def.AllowedSubtypes, toSubtype)
}
