package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// noticeKey holds the current integrity-scan summary notice.
const noticeKey = "contentgraph:integrity:notice"

// noticeTTL bounds how long an undismissed notice survives.
const noticeTTL = 7 * 24 * time.Hour

// Notice is the dismissible summary surfaced after a scheduled scan cleaned
// something.
type Notice struct {
	ScanID    string         `json:"scan_id"`
	Cleaned   int64          `json:"cleaned"`
	Breakdown map[string]int64 `json:"breakdown"`
	CreatedAt time.Time      `json:"created_at"`
}

// NoticeStore persists the scan summary notice in Redis.
type NoticeStore struct {
	client *Client
}

// NewNoticeStore creates a new NoticeStore.
func NewNoticeStore(client *Client) *NoticeStore {
	return &NoticeStore{client: client}
}

// Put stores the notice, replacing any prior one.
func (s *NoticeStore) Put(ctx context.Context, n Notice) error {
	raw, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notice: %w", err)
	}
	if err := s.client.client.Set(ctx, noticeKey, raw, noticeTTL).Err(); err != nil {
		return fmt.Errorf("failed to store notice: %w", err)
	}
	return nil
}

// Get returns the current notice, or nil when none is pending.
func (s *NoticeStore) Get(ctx context.Context) (*Notice, error) {
	raw, err := s.client.client.Get(ctx, noticeKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load notice: %w", err)
	}
	var n Notice
	if err := json.Unmarshal(raw, &n); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notice: %w", err)
	}
	return &n, nil
}

// Dismiss removes the current notice.
func (s *NoticeStore) Dismiss(ctx context.Context) error {
	if err := s.client.client.Del(ctx, noticeKey).Err(); err != nil {
		return fmt.Errorf("failed to dismiss notice: %w", err)
	}
	return nil
}

// Publish stores a fresh notice built from scan results.
func (s *NoticeStore) Publish(ctx context.Context, scanID string, cleaned int64, breakdown map[string]int64) error {
	return s.Put(ctx, Notice{
		ScanID:    scanID,
		Cleaned:   cleaned,
		Breakdown: breakdown,
		CreatedAt: time.Now().UTC(),
	})
}
