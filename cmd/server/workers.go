package main

import (
	"github.com/contentgraph/api/internal/config"
	"github.com/contentgraph/api/internal/infra/jobs"
	"github.com/contentgraph/api/pkg/logger"
)

// Workers bundles the background processing components.
type Workers struct {
	worker *jobs.Worker
}

// NewJobClient creates the enqueue-side client.
func NewJobClient(cfg *config.Config, log *logger.Logger) (*jobs.Client, error) {
	return jobs.NewClient(jobs.ClientConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
	}, log)
}

// NewWorkers creates the background job worker.
func NewWorkers(cfg *config.Config, services *Services, log *logger.Logger) (*Workers, error) {
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisAddr:     cfg.Redis.Addr(),
		RedisPassword: cfg.Redis.Password,
		RedisDB:       cfg.Redis.DB,
		Concurrency:   cfg.Worker.Concurrency,
	}, services.Integrity, services.Cleanup, log)
	if err != nil {
		return nil, err
	}
	return &Workers{worker: worker}, nil
}

// Start starts the workers.
func (w *Workers) Start() error {
	return w.worker.Start()
}

// Stop stops the workers gracefully.
func (w *Workers) Stop() {
	w.worker.Stop()
}
