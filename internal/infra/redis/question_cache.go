package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"ai-or-not-service/internal/domain"
	"ai-or-not-service/internal/infra/memory"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const activeQuestionsKey = "questions:active"

// QuestionCache keeps the active question set in Redis as a JSON blob and
// falls back to a loader on cache miss. Implements game.QuestionSource.
// Shared Redis means multiple service instances warm the cache once.
type QuestionCache struct {
	client *redis.Client
	loader memory.QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionCache(client *redis.Client, loader memory.QuestionLoader, ttl time.Duration) *QuestionCache {
	return &QuestionCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuestionCache) ActiveQuestions(ctx context.Context) ([]domain.Question, error) {
	if questions, ok := c.fromCache(ctx); ok {
		return questions, nil
	}

	result, err, _ := c.sf.Do(activeQuestionsKey, func() (interface{}, error) {
		// Re-check in case another goroutine filled the key.
		if questions, ok := c.fromCache(ctx); ok {
			return questions, nil
		}

		questions, err := c.loader.LoadActive(ctx)
		if err != nil {
			return nil, err
		}

		if data, err := json.Marshal(questions); err == nil {
			// best-effort: a failed cache write only costs the next loader hit
			_ = c.client.Set(ctx, activeQuestionsKey, data, c.ttlWithJitter()).Err()
		}
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (c *QuestionCache) QuestionsByID(ctx context.Context, ids []string) ([]domain.Question, error) {
	active, err := c.ActiveQuestions(ctx)
	if err != nil {
		return nil, err
	}
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}
	selected := make([]domain.Question, 0, len(ids))
	for _, q := range active {
		if _, ok := wanted[q.ID]; ok {
			selected = append(selected, q)
		}
	}
	return selected, nil
}

func (c *QuestionCache) fromCache(ctx context.Context) ([]domain.Question, bool) {
	data, err := c.client.Get(ctx, activeQuestionsKey).Bytes()
	if err != nil {
		return nil, false
	}
	var questions []domain.Question
	if err := json.Unmarshal(data, &questions); err != nil {
		return nil, false
	}
	return questions, true
}

func (c *QuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
