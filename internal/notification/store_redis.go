package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	id "registre/pkg/domain"
)

const (
	// Feed key; LPUSH keeps reads newest-first without sorting.
	feedKey = "registre:notifications"
	// feedCap bounds the feed; old notices fall off the tail.
	feedCap = 1000
)

// RedisStore keeps the notification feed in a capped Redis list so multiple
// service instances share one feed. This is the recommended store for
// deployments with more than one replica.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Append(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	pipe := s.client.Pipeline()
	pipe.LPush(ctx, feedKey, payload)
	pipe.LTrim(ctx, feedKey, 0, feedCap-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("push notification: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, forUser *id.UserID) ([]Notification, error) {
	raw, err := s.client.LRange(ctx, feedKey, 0, feedCap-1).Result()
	if err != nil {
		return nil, fmt.Errorf("read notification feed: %w", err)
	}
	out := make([]Notification, 0, len(raw))
	for _, item := range raw {
		var n Notification
		if err := json.Unmarshal([]byte(item), &n); err != nil {
			// Skip malformed items instead of poisoning the whole feed.
			continue
		}
		if forUser == nil || n.VisibleTo(*forUser) {
			out = append(out, n)
		}
	}
	return out, nil
}
