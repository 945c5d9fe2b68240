// Command seed populates a development database with content items and a
// randomized relation graph.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/contentgraph/api/internal/app"
	"github.com/contentgraph/api/internal/config"
	"github.com/contentgraph/api/internal/infra/postgres"
	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/domain/relation"
	"github.com/contentgraph/api/pkg/domain/shared"
	"github.com/contentgraph/api/pkg/logger"
)

var subtypes = []string{"post", "page", "article", "product"}

func main() {
	posts := flag.Int("posts", 50, "Number of posts to create")
	users := flag.Int("users", 10, "Number of users to create")
	terms := flag.Int("terms", 10, "Number of terms to create")
	relations := flag.Int("relations", 100, "Number of relations to attempt")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	flag.Parse()

	if err := run(*posts, *users, *terms, *relations, *seed); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(posts, users, terms, relationCount int, seed int64) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Level: "warn", Format: "text", Output: os.Stderr})

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	relationRepo := postgres.NewRelationRepository(db)
	contentRepo := postgres.NewContentRepository(db)
	settings := postgres.NewSettingsRepository(db)
	schema := postgres.NewSchemaManager(db, settings, log)

	ctx := shared.WithActor(context.Background(), shared.SystemActor)
	if err := schema.EnsureSchema(ctx); err != nil {
		return err
	}

	hooks := relation.NewHooks()
	registry := relation.Bootstrap(hooks)
	relations := app.NewRelationService(
		relationRepo, contentRepo, registry, app.NewCapabilityGate(), hooks, cfg.Graph, log)

	rng := rand.New(rand.NewSource(seed))

	ids := make(map[content.Kind][]int64)
	create := func(kind content.Kind, n int, title func(i int) string) error {
		for i := 0; i < n; i++ {
			item := &content.Item{
				Kind:   kind,
				Title:  title(i),
				Status: content.StatusPublished,
			}
			if kind == content.KindPost {
				item.Subtype = subtypes[rng.Intn(len(subtypes))]
			}
			if err := contentRepo.Create(ctx, item); err != nil {
				return err
			}
			ids[kind] = append(ids[kind], item.ID)
		}
		return nil
	}

	if err := create(content.KindPost, posts, func(i int) string { return fmt.Sprintf("Post %d", i+1) }); err != nil {
		return err
	}
	if err := create(content.KindUser, users, func(i int) string { return fmt.Sprintf("User %d", i+1) }); err != nil {
		return err
	}
	if err := create(content.KindTerm, terms, func(i int) string { return fmt.Sprintf("Term %d", i+1) }); err != nil {
		return err
	}
	fmt.Printf("Created %d posts, %d users, %d terms\n", posts, users, terms)

	types := []string{"related_to", "parent_of", "depends_on", "references"}
	kinds := []content.Kind{content.KindPost, content.KindUser, content.KindTerm}

	// Widen references so the seed graph can reach users and terms.
	// related_to stays post-only: bidirectional types cannot span kinds.
	if def, ok := registry.Type("references"); ok {
		def.ToKinds = kinds
		if err := registry.Register(def); err != nil {
			return err
		}
	}

	created, skipped := 0, 0
	for i := 0; i < relationCount; i++ {
		fromID := ids[content.KindPost][rng.Intn(len(ids[content.KindPost]))]
		toType := kinds[rng.Intn(len(kinds))]
		pool := ids[toType]
		if len(pool) == 0 {
			continue
		}
		toID := pool[rng.Intn(len(pool))]

		typ := types[rng.Intn(len(types))]
		if toType != content.KindPost {
			// Only references accepts non-post targets in the seed set.
			typ = "references"
		}

		_, err := relations.AddRelation(ctx, app.AddRelationInput{
			FromID: fromID,
			ToID:   toID,
			Type:   typ,
			ToType: toType,
		})
		switch {
		case err == nil:
			created++
		case errors.Is(err, relation.ErrRelationExists),
			errors.Is(err, relation.ErrSelfRelation),
			errors.Is(err, relation.ErrInfiniteLoop):
			skipped++
		default:
			return err
		}
	}

	fmt.Printf("Created %d relations (%d attempts skipped)\n", created, skipped)
	return nil
}
