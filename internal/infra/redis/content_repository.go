package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"gameshow-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// ContentLoader fetches base question content from a backing store.
type ContentLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.BaseQuestion, error)
}

// ContentRepository caches base questions in Redis so every engine process
// shares one cache, and falls back to a loader on miss.
// Questions are stored as: SET content:question:{questionID} {json} EX ttl
type ContentRepository struct {
	client *redis.Client
	loader ContentLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewContentRepository(client *redis.Client, loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *ContentRepository) GetQuestion(ctx context.Context, questionID string) (domain.BaseQuestion, error) {
	key := r.questionKey(questionID)

	if q, ok := r.cached(ctx, key); ok {
		return q, nil
	}

	result, err, _ := r.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if q, ok := r.cached(ctx, key); ok {
			return q, nil
		}

		question, err := r.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.BaseQuestion{}, err
		}

		if raw, err := json.Marshal(question); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return question, nil
	})
	if err != nil {
		return domain.BaseQuestion{}, err
	}
	return result.(domain.BaseQuestion), nil
}

// Invalidate drops a cached question, e.g. after a content import.
func (r *ContentRepository) Invalidate(ctx context.Context, questionID string) error {
	return r.client.Del(ctx, r.questionKey(questionID)).Err()
}

func (r *ContentRepository) cached(ctx context.Context, key string) (domain.BaseQuestion, bool) {
	// redis.Nil and transport errors both fall through to the loader.
	raw, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		return domain.BaseQuestion{}, false
	}
	var q domain.BaseQuestion
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.BaseQuestion{}, false
	}
	return q, true
}

func (r *ContentRepository) questionKey(questionID string) string {
	return "content:question:" + questionID
}

func (r *ContentRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
