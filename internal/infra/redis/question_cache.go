package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"camembert-game-service/internal/app"
	"camembert-game-service/internal/domain"
)

// QuestionCache decorates a gateway with a Redis cache for question content
// (prompt, expected answer, options). Questions are immutable during play,
// so validation and reveal paths can skip the database. All other gateway
// calls pass straight through.
type QuestionCache struct {
	app.Gateway
	client *redis.Client
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, inner app.Gateway, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		Gateway: inner,
		client:  client,
		ttl:     ttl,
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) GetQuestion(ctx context.Context, questionID int64) (domain.Question, error) {
	key := c.key(questionID)

	if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var q domain.Question
		if err := json.Unmarshal(raw, &q); err == nil {
			return q, nil
		}
		// unreadable entry: fall through and refill
		_ = c.client.Del(ctx, key).Err()
	}

	result, err, _ := c.sf.Do(key, func() (interface{}, error) {
		if raw, err := c.client.Get(ctx, key).Bytes(); err == nil {
			var q domain.Question
			if err := json.Unmarshal(raw, &q); err == nil {
				return q, nil
			}
		}

		q, err := c.Gateway.GetQuestion(ctx, questionID)
		if err != nil {
			return domain.Question{}, err
		}
		if raw, err := json.Marshal(q); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttlWithJitter()).Err()
		}
		return q, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *QuestionCache) key(questionID int64) string {
	return fmt.Sprintf("question:%d", questionID)
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
