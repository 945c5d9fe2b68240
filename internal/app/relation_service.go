package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/contentgraph/api/internal/config"
	"github.com/contentgraph/api/internal/metrics"
	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/domain/shared"
	"github.com/contentgraph/api/pkg/logger"
)

// AddPolicy may veto a relation before any other validation runs.
// Returning false rejects the add with relation_not_allowed.
type AddPolicy func(ctx context.Context, fromID, toID int64, typ string) bool

// ReadPolicy may veto related-object lookups. Returning false yields an
// empty result instead of an error.
type ReadPolicy func(ctx context.Context, fromID int64, typ string) bool

// RelationService is the system of record for the relationship graph. All
// writes flow through it; it enforces every invariant the storage layer
// cannot.
type RelationService struct {
	repo        relation.Repository
	contentRepo content.Repository
	registry    *relation.Registry
	gate        *CapabilityGate
	hooks       *relation.Hooks
	cfg         config.GraphConfig
	logger      *logger.Logger

	addPolicies  []AddPolicy
	readPolicies []ReadPolicy
}

// NewRelationService creates a new RelationService.
func NewRelationService(
	repo relation.Repository,
	contentRepo content.Repository,
	registry *relation.Registry,
	gate *CapabilityGate,
	hooks *relation.Hooks,
	cfg config.GraphConfig,
	log *logger.Logger,
) *RelationService {
	return &RelationService{
		repo:        repo,
		contentRepo: contentRepo,
		registry:    registry,
		gate:        gate,
		hooks:       hooks,
		cfg:         cfg,
		logger:      log.With("service", "relation"),
	}
}

// Registry exposes the type registry to collaborators.
func (s *RelationService) Registry() *relation.Registry {
	return s.registry
}

// AddAddPolicy registers a veto policy consulted before every add.
func (s *RelationService) AddAddPolicy(p AddPolicy) {
	s.addPolicies = append(s.addPolicies, p)
}

// AddReadPolicy registers a veto policy consulted before related lookups.
func (s *RelationService) AddReadPolicy(p ReadPolicy) {
	s.readPolicies = append(s.readPolicies, p)
}

// AddRelationInput carries the arguments of AddRelation. Direction empty
// means "derive from the type's registered directionality".
type AddRelationInput struct {
	FromID    int64
	ToID      int64
	Type      string
	Direction relation.Direction
	ToType    content.Kind
}

// AddRelation validates and persists a new relation, mirroring it for
// bidirectional types. Returns the new row's surrogate id.
//
// The validation steps run in a fixed order so each failure surfaces its
// most precise kind: the duplicate check runs before cycle and limit
// checks, so re-adding an existing relation reports relation_exists rather
// than being masked as a cycle or limit violation.
func (s *RelationService) AddRelation(ctx context.Context, in AddRelationInput) (int64, error) {
	id, err := s.addRelation(ctx, in)
	if err != nil {
		metrics.RelationAddRejectedTotal.WithLabelValues(relation.KindOf(err)).Inc()
		return 0, err
	}
	metrics.RelationsCreatedTotal.WithLabelValues(in.Type).Inc()
	return id, nil
}

func (s *RelationService) addRelation(ctx context.Context, in AddRelationInput) (int64, error) {
	if in.ToType == "" {
		in.ToType = content.KindPost
	}

	// The type's declared source kind drives the capability and existence
	// checks. Unknown types fall through as posts; the registry check
	// below still rejects them with the precise kind.
	fromKind := s.sourceKind(in.Type)

	// Policy veto comes first: extensions may forbid the pair outright.
	for _, p := range s.addPolicies {
		if !p(ctx, in.FromID, in.ToID, in.Type) {
			return 0, fmt.Errorf("add %d->%d (%s): %w", in.FromID, in.ToID, in.Type, relation.ErrRelationNotAllowed)
		}
	}

	if err := s.gate.CanCreate(ctx, fromKind, in.FromID); err != nil {
		return 0, err
	}

	if in.FromID <= 0 || in.ToID <= 0 {
		return 0, relation.ErrInvalidID
	}

	if in.FromID == in.ToID && in.ToType == fromKind {
		return 0, relation.ErrSelfRelation
	}

	source, err := s.contentRepo.Get(ctx, fromKind, in.FromID)
	if err != nil {
		if shared.IsNotFound(err) {
			return 0, fmt.Errorf("source %d: %w", in.FromID, relation.ErrEndpointNotFound)
		}
		return 0, fmt.Errorf("%w: %w", relation.ErrDBError, err)
	}
	targetExists, err := s.contentRepo.Exists(ctx, in.ToType, in.ToID)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", relation.ErrDBError, err)
	}
	if !targetExists {
		return 0, fmt.Errorf("target %s %d: %w", in.ToType, in.ToID, relation.ErrEndpointNotFound)
	}

	// Published sources are frozen in immutable mode unless the caller is
	// a privileged context (admin surface or CLI).
	if s.cfg.ImmutableMode && source.Status == content.StatusPublished {
		if actor, ok := shared.ActorFromContext(ctx); !ok || !actor.Privileged {
			return 0, relation.ErrImmutableMode
		}
	}

	exists, err := s.repo.Exists(ctx, in.FromID, in.ToID, in.Type)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", relation.ErrDBError, err)
	}
	if exists {
		return 0, relation.ErrRelationExists
	}

	if s.cfg.CyclePrevention {
		cycle, err := s.wouldCycle(ctx, in.FromID, in.ToID, in.Type)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", relation.ErrDBError, err)
		}
		if cycle {
			return 0, relation.ErrInfiniteLoop
		}
	}

	if s.cfg.MaxRelationships > 0 {
		count, err := s.repo.CountFrom(ctx, in.FromID, "")
		if err != nil {
			return 0, fmt.Errorf("%w: %w", relation.ErrDBError, err)
		}
		if count >= int64(s.cfg.MaxRelationships) {
			return 0, relation.ErrMaxRelationships
		}
	}

	def, ok := s.registry.Type(in.Type)
	if !ok {
		return 0, fmt.Errorf("type %q: %w", in.Type, relation.ErrInvalidRelationType)
	}

	if !def.SupportsTarget(in.ToType) {
		return 0, fmt.Errorf("type %q does not target %s: %w", in.Type, in.ToType, relation.ErrPostTypeNotAllowed)
	}
	if in.ToType == content.KindPost && len(def.AllowedSubtypes) > 0 {
		toSubtype, err := s.contentRepo.Subtype(ctx, in.ToType, in.ToID)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", relation.ErrDBError, err)
		}
		if !s.registry.SubtypesAllowed(in.Type, source.Subtype, toSubtype) {
			return 0, relation.ErrPostTypeNotAllowed
		}
	}

	if def.MaxConnections > 0 {
		count, err := s.repo.CountFrom(ctx, in.FromID, in.Type)
		if err != nil {
			return 0, fmt.Errorf("%w: %w", relation.ErrDBError, err)
		}
		if count >= int64(def.MaxConnections) {
			return 0, fmt.Errorf("type %q allows %d connections: %w", in.Type, def.MaxConnections, relation.ErrMaxRelationships)
		}
	}

	// Explicit direction wins; otherwise the type decides.
	direction := in.Direction
	if direction == "" {
		direction = def.Direction()
	}

	// A mirror row's implicit source kind is the original target, so a
	// bidirectional pair is only coherent between objects of one kind.
	if direction == relation.DirectionBi && in.ToType != fromKind {
		return 0, fmt.Errorf("bidirectional relation cannot target %s from %s: %w", in.ToType, fromKind, relation.ErrPostTypeNotAllowed)
	}

	rel := &relation.Relation{
		FromID:    in.FromID,
		ToID:      in.ToID,
		ToType:    in.ToType,
		Type:      in.Type,
		Direction: direction,
	}

	id, err := s.repo.Insert(ctx, rel)
	if err != nil {
		if errors.Is(err, relation.ErrRelationExists) {
			// Lost a race with a concurrent add for the same edge.
			return 0, relation.ErrRelationExists
		}
		return 0, fmt.Errorf("%w: %w", relation.ErrDBError, err)
	}

	// The mirror insert is a second, non-atomic write and is not guarded
	// by the duplicate check above. A pre-existing mirror (the caller
	// added B->A explicitly) trips the uniqueness constraint and must
	// surface as relation_exists, not a crash; the integrity scanner is
	// the backstop for the one-sided pair this leaves behind.
	if direction == relation.DirectionBi {
		if _, err := s.repo.Insert(ctx, rel.Mirror()); err != nil {
			if errors.Is(err, relation.ErrRelationExists) {
				return 0, relation.ErrRelationExists
			}
			return 0, fmt.Errorf("%w: %w", relation.ErrDBError, err)
		}
	}

	s.hooks.NotifyRelationAdded(relation.AddedEvent{
		RelationID: id,
		FromID:     in.FromID,
		ToID:       in.ToID,
		Type:       in.Type,
		ToType:     in.ToType,
		Direction:  direction,
		Hash:       relation.Hash(in.FromID, in.ToID, in.Type),
	})

	if s.cfg.DebugLog {
		s.logger.Debug("relation added",
			"id", id, "from", in.FromID, "to", in.ToID,
			"type", in.Type, "direction", direction.String())
	}

	return id, nil
}

// sourceKind resolves the kind of a relation's source object from the
// type's registered FromKind. Unregistered or empty types resolve to post,
// the kind the original schema assumed for every source.
func (s *RelationService) sourceKind(typ string) content.Kind {
	if typ != "" {
		if def, ok := s.registry.Type(typ); ok && def.FromKind != "" {
			return def.FromKind
		}
	}
	return content.KindPost
}

// wouldCycle reports whether adding from->to for the type closes a directed
// cycle: either the reverse edge already exists, or a path from to back to
// from exists within the configured depth. The bound makes the check
// terminate on large or already-cyclic graphs; paths longer than the bound
// are treated as cycle-free.
func (s *RelationService) wouldCycle(ctx context.Context, fromID, toID int64, typ string) (bool, error) {
	reverse, err := s.repo.Exists(ctx, toID, fromID, typ)
	if err != nil {
		return false, err
	}
	if reverse {
		return true, nil
	}

	// Iterative breadth-first walk with a visited set; no recursion.
	visited := map[int64]bool{toID: true}
	frontier := []int64{toID}

	for depth := 0; depth < s.cfg.CycleDepth && len(frontier) > 0; depth++ {
		var next []int64
		for _, id := range frontier {
			targets, err := s.repo.TargetsFrom(ctx, id, typ)
			if err != nil {
				return false, err
			}
			for _, t := range targets {
				if t == fromID {
					return true, nil
				}
				if !visited[t] {
					visited[t] = true
					next = append(next, t)
				}
			}
		}
		frontier = next
	}
	return false, nil
}

// RemoveRelation deletes the relation rows between the pair, plus the
// mirror rows when the stored direction was bidirectional. An empty type
// matches all types. Idempotent: removing an absent relation succeeds.
func (s *RelationService) RemoveRelation(ctx context.Context, fromID, toID int64, typ string) error {
	if err := s.gate.CanDelete(ctx, s.sourceKind(typ), fromID); err != nil {
		return err
	}

	// The stored direction decides mirror handling, so read it before
	// the rows disappear. The mirror delete stays scoped to the types
	// whose rows were stored bidirectional: an independent reverse edge
	// of another type must survive an untyped remove.
	biTypes, err := s.repo.BidirectionalTypesBetween(ctx, fromID, toID, typ)
	if err != nil {
		return fmt.Errorf("%w: %w", relation.ErrDBError, err)
	}

	removed, err := s.repo.Delete(ctx, fromID, toID, typ)
	if err != nil {
		return fmt.Errorf("%w: %w", relation.ErrDBError, err)
	}

	for _, t := range biTypes {
		mirrored, err := s.repo.Delete(ctx, toID, fromID, t)
		if err != nil {
			return fmt.Errorf("%w: %w", relation.ErrDBError, err)
		}
		removed += mirrored
	}

	if removed > 0 {
		s.hooks.NotifyRelationRemoved(relation.RemovedEvent{FromID: fromID, ToID: toID, Type: typ})
		label := typ
		if label == "" {
			label = "all"
		}
		metrics.RelationsRemovedTotal.WithLabelValues(label).Add(float64(removed))

		if s.cfg.DebugLog {
			s.logger.Debug("relation removed", "from", fromID, "to", toID, "type", typ, "rows", removed)
		}
	}

	return nil
}

// GetRelated returns the outgoing related objects of the source, most
// recent relation first. Incoming lookups are a content-query concern, not
// this call.
func (s *RelationService) GetRelated(ctx context.Context, fromID int64, typ string, limit int) ([]relation.Related, error) {
	for _, p := range s.readPolicies {
		if !p(ctx, fromID, typ) {
			return []relation.Related{}, nil
		}
	}

	rows, err := s.repo.ListFrom(ctx, fromID, relation.ListOptions{Type: typ, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", relation.ErrDBError, err)
	}

	related := make([]relation.Related, 0, len(rows))
	for _, r := range rows {
		related = append(related, relation.Related{ID: r.ToID, Type: r.Type})
	}
	return related, nil
}

// GetAllRelations returns the full outgoing relation records of the
// source, grouped by type then recency.
func (s *RelationService) GetAllRelations(ctx context.Context, fromID int64) ([]*relation.Relation, error) {
	rows, err := s.repo.ListAllFrom(ctx, fromID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", relation.ErrDBError, err)
	}
	return rows, nil
}

// IsRelated reports whether an outgoing relation exists, optionally
// type-scoped.
func (s *RelationService) IsRelated(ctx context.Context, fromID, toID int64, typ string) (bool, error) {
	exists, err := s.repo.Exists(ctx, fromID, toID, typ)
	if err != nil {
		return false, fmt.Errorf("%w: %w", relation.ErrDBError, err)
	}
	return exists, nil
}

// SetRelationOrder updates the manual ordering value of a row. No-op
// unless manual ordering is enabled.
func (s *RelationService) SetRelationOrder(ctx context.Context, id int64, order int) error {
	if !s.cfg.ManualOrdering {
		return nil
	}
	if err := s.repo.UpdateOrder(ctx, id, order); err != nil {
		return fmt.Errorf("%w: %w", relation.ErrDBError, err)
	}
	return nil
}
