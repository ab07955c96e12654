package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Liveness mirrors which sessions hold live in-process state into Redis, as
// best-effort operational visibility. Keys expire on their own if a process
// dies without cleaning up.
type Liveness struct {
	client *redis.Client
	ttl    time.Duration
}

func NewLiveness(client *redis.Client, ttl time.Duration) *Liveness {
	return &Liveness{client: client, ttl: ttl}
}

func (l *Liveness) MarkLive(ctx context.Context, sessionID int64) {
	_ = l.client.Set(ctx, l.key(sessionID), "1", l.ttl).Err()
}

func (l *Liveness) ClearLive(ctx context.Context, sessionID int64) {
	_ = l.client.Del(ctx, l.key(sessionID)).Err()
}

func (l *Liveness) key(sessionID int64) string {
	return fmt.Sprintf("game:session:%d", sessionID)
}
