package relation

import (
	"sync"

	"github.com/contentgraph/api/pkg/domain/content"
)

// AddedEvent is delivered after a relation row is persisted.
type AddedEvent struct {
	RelationID int64
	FromID     int64
	ToID       int64
	Type       string
	ToType     content.Kind
	Direction  Direction

	// Hash is the direction-independent pair identity.
	Hash string
}

// RemovedEvent is delivered after relation rows are deleted.
type RemovedEvent struct {
	FromID int64
	ToID   int64
	Type   string
}

// TypeRegisteredEvent is delivered after a type registration.
type TypeRegisteredEvent struct {
	Slug       string
	Definition TypeDefinition
}

// CleanedEvent is delivered after cascading cleanup removed all relations
// touching an object.
type CleanedEvent struct {
	Kind    content.Kind
	ID      int64
	Mode    string
	Removed int64
}

// Hooks dispatches lifecycle notifications to registered observers.
// Dispatch is synchronous and best-effort: observers run after the core
// mutation committed, a panicking observer is isolated, and no observer
// result is consumed.
type Hooks struct {
	mu             sync.RWMutex
	added          []func(AddedEvent)
	removed        []func(RemovedEvent)
	typeRegistered []func(TypeRegisteredEvent)
	cleaned        []func(CleanedEvent)
}

// NewHooks creates an empty dispatcher.
func NewHooks() *Hooks {
	return &Hooks{}
}

// OnRelationAdded registers an observer for added relations.
func (h *Hooks) OnRelationAdded(f func(AddedEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.added = append(h.added, f)
}

// OnRelationRemoved registers an observer for removed relations.
func (h *Hooks) OnRelationRemoved(f func(RemovedEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removed = append(h.removed, f)
}

// OnTypeRegistered registers an observer for type registrations.
func (h *Hooks) OnTypeRegistered(f func(TypeRegisteredEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.typeRegistered = append(h.typeRegistered, f)
}

// OnRelationsCleaned registers an observer for cascading cleanups.
func (h *Hooks) OnRelationsCleaned(f func(CleanedEvent)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cleaned = append(h.cleaned, f)
}

func (h *Hooks) NotifyRelationAdded(ev AddedEvent) {
	h.mu.RLock()
	observers := h.added
	h.mu.RUnlock()
	for _, f := range observers {
		invoke(func() { f(ev) })
	}
}

func (h *Hooks) NotifyRelationRemoved(ev RemovedEvent) {
	h.mu.RLock()
	observers := h.removed
	h.mu.RUnlock()
	for _, f := range observers {
		invoke(func() { f(ev) })
	}
}

func (h *Hooks) NotifyRelationsCleaned(ev CleanedEvent) {
	h.mu.RLock()
	observers := h.cleaned
	h.mu.RUnlock()
	for _, f := range observers {
		invoke(func() { f(ev) })
	}
}

func (h *Hooks) notifyTypeRegistered(ev TypeRegisteredEvent) {
	h.mu.RLock()
	observers := h.typeRegistered
	h.mu.RUnlock()
	for _, f := range observers {
		invoke(func() { f(ev) })
	}
}

// invoke runs an observer, swallowing panics so a broken observer cannot
// roll back or abort the mutation that triggered it.
func invoke(f func()) {
	defer func() {
		_ = recover()
	}()
	f()
}
