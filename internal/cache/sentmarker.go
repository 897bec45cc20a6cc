// Package cache keeps an advisory Redis marker of places that already sent
// today. The database unique index stays authoritative; the marker only
// lets repeated attempts skip the lookup.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SentMarker is nil-safe: a nil *SentMarker reports nothing sent and ignores writes.
type SentMarker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSentMarker(client *redis.Client, ttl time.Duration) *SentMarker {
	if client == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 36 * time.Hour
	}
	return &SentMarker{client: client, ttl: ttl}
}

func sentKey(placeID, dayKey string) string {
	return fmt.Sprintf("ping:sent:%s:%s", placeID, dayKey)
}

// MarkSent records a committed send. Call only after the commit.
func (m *SentMarker) MarkSent(ctx context.Context, placeID, dayKey, eventID string) error {
	if m == nil {
		return nil
	}
	return m.client.Set(ctx, sentKey(placeID, dayKey), eventID, m.ttl).Err()
}

// EventID returns the event recorded for (placeID, dayKey); ok is false when
// nothing was sent or the marker expired.
func (m *SentMarker) EventID(ctx context.Context, placeID, dayKey string) (id string, ok bool, err error) {
	if m == nil {
		return "", false, nil
	}
	id, err = m.client.Get(ctx, sentKey(placeID, dayKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
