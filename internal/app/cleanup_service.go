package app

import (
	"context"
	"fmt"

	"github.com/contentgraph/api/internal/metrics"
	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/logger"
)

// CleanupMode selects how endpoint deletion cascades into the graph.
type CleanupMode string

const (
	// CleanupHard removes relation rows when the endpoint is deleted.
	CleanupHard CleanupMode = "hard"
	// CleanupTrash removes relation rows already when the endpoint is
	// moved to trash, so restored objects come back unlinked.
	CleanupTrash CleanupMode = "trash"
)

// CleanupService cascades endpoint deletions into the relation graph. For
// posts it removes rows where the post appears on either side; for users
// and terms only rows that target them, since those kinds never originate
// relations.
type CleanupService struct {
	repo   relation.Repository
	hooks  *relation.Hooks
	logger *logger.Logger
}

// NewCleanupService creates a new CleanupService.
func NewCleanupService(repo relation.Repository, hooks *relation.Hooks, log *logger.Logger) *CleanupService {
	return &CleanupService{
		repo:   repo,
		hooks:  hooks,
		logger: log.With("service", "cleanup"),
	}
}

// ObjectDeleted removes all relation rows touching the object. Idempotent:
// a second call for the same object removes nothing and still succeeds.
func (s *CleanupService) ObjectDeleted(ctx context.Context, kind content.Kind, id int64, mode CleanupMode) (int64, error) {
	if id <= 0 || !kind.IsValid() {
		return 0, relation.ErrInvalidID
	}

	removed, err := s.repo.DeleteAllFor(ctx, kind, id)
	if err != nil {
		return 0, fmt.Errorf("cleanup for %s %d failed: %w", kind, id, err)
	}

	if removed > 0 {
		metrics.RelationsRemovedTotal.WithLabelValues("cleanup").Add(float64(removed))
		s.logger.Info("cascaded endpoint deletion",
			"kind", kind, "id", id, "mode", mode, "removed", removed)
	}

	s.hooks.NotifyRelationsCleaned(relation.CleanedEvent{
		Kind:    kind,
		ID:      id,
		Mode:    string(mode),
		Removed: removed,
	})
	return removed, nil
}
