package app

import (
	"context"
	"fmt"

	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/domain/shared"
	"github.com/contentgraph/api/pkg/logger"
)

// RelationFilterPolicy may veto the relation filter of a listing.
// Returning false drops the filter entirely, so the listing runs without
// the relation join.
type RelationFilterPolicy func(ctx context.Context, f *content.RelationFilter) bool

// CleanupEnqueuer queues a cascading relation cleanup to run in the
// background when the inline cascade after a delete fails.
type CleanupEnqueuer interface {
	EnqueueEndpointCleanup(ctx context.Context, kind content.Kind, id int64, mode CleanupMode) error
}

// ContentService manages content items and the relation-aware listing that
// lets callers ask "give me the items related to these ids".
type ContentService struct {
	repo     content.Repository
	registry *relation.Registry
	cleanup  *CleanupService
	logger   *logger.Logger

	queue          CleanupEnqueuer
	filterPolicies []RelationFilterPolicy
}

// NewContentService creates a new ContentService.
func NewContentService(
	repo content.Repository,
	registry *relation.Registry,
	cleanup *CleanupService,
	log *logger.Logger,
) *ContentService {
	return &ContentService{
		repo:     repo,
		registry: registry,
		cleanup:  cleanup,
		logger:   log.With("service", "content"),
	}
}

// SetCleanupQueue wires the background fallback for failed inline
// cleanups. Optional; without it a failed cascade is left to the scanner.
func (s *ContentService) SetCleanupQueue(q CleanupEnqueuer) {
	s.queue = q
}

// AddRelationFilterPolicy registers a veto policy consulted before any
// relation-filtered listing.
func (s *ContentService) AddRelationFilterPolicy(p RelationFilterPolicy) {
	s.filterPolicies = append(s.filterPolicies, p)
}

// Create persists a new content item. Kind defaults to post, posts default
// to the "post" subtype, and new items start as drafts unless a status is
// given.
func (s *ContentService) Create(ctx context.Context, item *content.Item) error {
	if item.Kind == "" {
		item.Kind = content.KindPost
	}
	if !item.Kind.IsValid() {
		return fmt.Errorf("%w: invalid kind: %s", shared.ErrValidation, item.Kind)
	}
	if item.Kind == content.KindPost && item.Subtype == "" {
		item.Subtype = "post"
	}
	if item.Status == "" {
		item.Status = content.StatusDraft
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return fmt.Errorf("failed to create %s: %w", item.Kind, err)
	}
	return nil
}

// Get returns the item, or shared.ErrNotFound.
func (s *ContentService) Get(ctx context.Context, kind content.Kind, id int64) (*content.Item, error) {
	return s.repo.Get(ctx, kind, id)
}

// Delete removes an item and cascades into the relation graph, so no row
// keeps pointing at a gone endpoint. Returns shared.ErrNotFound when the
// item did not exist.
func (s *ContentService) Delete(ctx context.Context, kind content.Kind, id int64) error {
	existed, err := s.repo.Delete(ctx, kind, id)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", kind, id, err)
	}
	if !existed {
		return shared.ErrNotFound
	}
	if _, err := s.cleanup.ObjectDeleted(ctx, kind, id, CleanupHard); err != nil {
		// The endpoint is already gone; hand the cascade to the job queue
		// so its retries finish the work. Without a queue the leftover
		// rows are the integrity scanner's problem.
		s.logger.Warn("relation cleanup failed after delete",
			"kind", kind, "id", id, "error", err)
		if s.queue != nil {
			if qerr := s.queue.EnqueueEndpointCleanup(ctx, kind, id, CleanupHard); qerr != nil {
				s.logger.Error("failed to queue endpoint cleanup",
					"kind", kind, "id", id, "error", qerr)
			}
		}
	}
	return nil
}

// List returns items matching the options. When a relation filter is set,
// the result is narrowed to items connected to the filter ids: outgoing
// lists the targets of the ids' relations, incoming lists the sources
// pointing at the ids.
func (s *ContentService) List(ctx context.Context, opts content.ListOptions) ([]*content.Item, error) {
	if opts.Relation != nil {
		// The veto escape hatch: a policy may suppress the relation join
		// entirely, turning the call into a plain listing.
		for _, p := range s.filterPolicies {
			if !p(ctx, opts.Relation) {
				opts.Relation = nil
				break
			}
		}
	}
	if opts.Relation != nil {
		filter, err := s.normalizeFilter(opts.Relation)
		if err != nil {
			return nil, err
		}
		// An empty id list can never match anything.
		if filter == nil {
			return []*content.Item{}, nil
		}
		opts.Relation = filter
	}

	items, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("content listing failed: %w", err)
	}
	return items, nil
}

func (s *ContentService) normalizeFilter(f *content.RelationFilter) (*content.RelationFilter, error) {
	out := *f
	if len(out.IDs) == 0 {
		return nil, nil
	}
	for _, id := range out.IDs {
		if id <= 0 {
			return nil, relation.ErrInvalidID
		}
	}
	if out.Type != "" && !s.registry.Exists(out.Type) {
		return nil, relation.ErrInvalidRelationType
	}
	if out.Direction == "" {
		out.Direction = content.DirectionOutgoing
	}
	if out.Direction != content.DirectionOutgoing && out.Direction != content.DirectionIncoming {
		return nil, fmt.Errorf("%w: invalid relation filter direction: %s", shared.ErrValidation, out.Direction)
	}
	return &out, nil
}
