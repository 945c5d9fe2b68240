package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/contentgraph/api/internal/config"
	"github.com/contentgraph/api/pkg/domain/shared"
	"github.com/contentgraph/api/pkg/logger"
)

// lastScanKey is the settings key holding the last completed scheduled scan.
const lastScanKey = "relations_last_scan"

// NoticeSink receives the post-scan summary surfaced to operators.
type NoticeSink interface {
	Publish(ctx context.Context, scanID string, cleaned int64, breakdown map[string]int64) error
}

// ScanStateStore persists scheduler state between runs.
type ScanStateStore interface {
	GetTime(ctx context.Context, key string) (time.Time, error)
	SetTime(ctx context.Context, key string, v time.Time) error
}

// ScanScheduler runs the integrity scan on a daily cron schedule, records
// the completion timestamp, and publishes a notice when the run found
// anything.
type ScanScheduler struct {
	integrity *IntegrityService
	state     ScanStateStore
	notices   NoticeSink
	cfg       config.ScannerConfig
	cron      *cron.Cron
	logger    *logger.Logger
}

// NewScanScheduler creates a new ScanScheduler.
func NewScanScheduler(
	integrity *IntegrityService,
	state ScanStateStore,
	notices NoticeSink,
	cfg config.ScannerConfig,
	log *logger.Logger,
) *ScanScheduler {
	return &ScanScheduler{
		integrity: integrity,
		state:     state,
		notices:   notices,
		cfg:       cfg,
		cron:      cron.New(),
		logger:    log.With("service", "scan_scheduler"),
	}
}

// Start registers the daily job and starts the cron loop.
func (s *ScanScheduler) Start() error {
	_, err := s.cron.AddFunc(s.cfg.DailySchedule, func() {
		s.RunScheduledScan(context.Background())
	})
	if err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info("scheduled daily integrity scan", "schedule", s.cfg.DailySchedule)
	return nil
}

// Stop halts the cron loop and waits for a running job to finish.
func (s *ScanScheduler) Stop() {
	<-s.cron.Stop().Done()
}

// LastScan returns when the last scheduled scan completed, zero if never.
func (s *ScanScheduler) LastScan(ctx context.Context) (time.Time, error) {
	return s.state.GetTime(ctx, lastScanKey)
}

// RunScheduledScan executes one full scan as the system actor. Failures are
// logged, never propagated into the cron loop.
func (s *ScanScheduler) RunScheduledScan(ctx context.Context) {
	ctx = shared.WithActor(ctx, shared.SystemActor)

	report, err := s.integrity.Scan(ctx, ScanOptions{
		Repair:    s.cfg.DailyRepair,
		BatchSize: s.cfg.BatchSize,
	})
	if err != nil {
		s.logger.Error("scheduled integrity scan failed", "error", err)
		return
	}

	if err := s.state.SetTime(ctx, lastScanKey, time.Now().UTC()); err != nil {
		s.logger.Warn("failed to record last scan time", "error", err)
	}

	if report.Issues() == 0 {
		return
	}
	if err := s.notices.Publish(ctx, report.ScanID, report.Cleaned, report.Breakdown()); err != nil {
		s.logger.Warn("failed to publish scan notice", "scan_id", report.ScanID, "error", err)
	}
}
