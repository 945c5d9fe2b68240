package jobs

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/contentgraph/api/internal/app"
	"github.com/contentgraph/api/pkg/domain/content"
	"github.com/contentgraph/api/pkg/logger"
)

// Client manages enqueueing background jobs using Asynq.
type Client struct {
	client *asynq.Client
	logger *logger.Logger
}

// ClientConfig contains configuration for the job client.
type ClientConfig struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// NewClient creates a new job client for enqueueing tasks.
func NewClient(cfg ClientConfig, log *logger.Logger) (*Client, error) {
	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	client := asynq.NewClient(redisOpt)

	return &Client{
		client: client,
		logger: log.With("component", "job_client"),
	}, nil
}

// Close closes the client connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// EnqueueIntegrityScan enqueues a background integrity scan.
func (c *Client) EnqueueIntegrityScan(ctx context.Context, payload IntegrityScanPayload) error {
	task, err := NewIntegrityScanTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue integrity scan",
			"repair", payload.Repair,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("integrity scan queued",
		"task_id", info.ID,
		"repair", payload.Repair,
		"queue", info.Queue,
	)
	return nil
}

// EnqueueEndpointCleanup enqueues a cascading cleanup for a deleted
// endpoint. Satisfies app.CleanupEnqueuer.
func (c *Client) EnqueueEndpointCleanup(ctx context.Context, kind content.Kind, id int64, mode app.CleanupMode) error {
	payload := EndpointCleanupPayload{
		Kind: kind.String(),
		ID:   id,
		Mode: string(mode),
	}
	task, err := NewEndpointCleanupTask(payload)
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	info, err := c.client.EnqueueContext(ctx, task)
	if err != nil {
		c.logger.Error("failed to enqueue endpoint cleanup",
			"kind", payload.Kind,
			"id", payload.ID,
			"error", err,
		)
		return fmt.Errorf("failed to enqueue task: %w", err)
	}

	c.logger.Info("endpoint cleanup queued",
		"task_id", info.ID,
		"kind", payload.Kind,
		"id", payload.ID,
		"queue", info.Queue,
	)
	return nil
}
