package memory

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"gameshow-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// ContentLoader fetches base question content from a backing store (Postgres,
// SQLite, YAML file).
type ContentLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.BaseQuestion, error)
}

// ContentRepository keeps authored questions in process memory. Every action
// on a question reads its base content, so a session in play hits the loader
// once per question and TTL. Live session state never goes through here.
type ContentRepository struct {
	loader ContentLoader
	ttl    time.Duration
	clock  func() time.Time
	loads  singleflight.Group

	mu      sync.RWMutex
	entries map[string]contentEntry
}

type contentEntry struct {
	question domain.BaseQuestion
	expires  time.Time
}

func NewContentRepository(loader ContentLoader, ttl time.Duration) *ContentRepository {
	return &ContentRepository{
		loader:  loader,
		ttl:     ttl,
		clock:   time.Now,
		entries: make(map[string]contentEntry),
	}
}

func (r *ContentRepository) GetQuestion(ctx context.Context, questionID string) (domain.BaseQuestion, error) {
	if q, ok := r.lookup(questionID); ok {
		return q, nil
	}
	v, err, _ := r.loads.Do(questionID, func() (interface{}, error) {
		if q, ok := r.lookup(questionID); ok {
			return q, nil
		}
		q, err := r.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.BaseQuestion{}, err
		}
		r.store(questionID, q)
		return q, nil
	})
	if err != nil {
		return domain.BaseQuestion{}, err
	}
	return v.(domain.BaseQuestion), nil
}

func (r *ContentRepository) lookup(questionID string) (domain.BaseQuestion, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[questionID]
	if !ok || !e.expires.After(r.clock()) {
		return domain.BaseQuestion{}, false
	}
	return e.question, true
}

// store saves q and drops whatever has expired, so questions of finished
// sessions do not pile up.
func (r *ContentRepository) store(questionID string, q domain.BaseQuestion) {
	now := r.clock()
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, e := range r.entries {
		if !e.expires.After(now) {
			delete(r.entries, id)
		}
	}
	r.entries[questionID] = contentEntry{question: q, expires: now.Add(r.lifetime(questionID))}
}

// lifetime stretches the TTL by up to 10%, derived from the id, so questions
// of one round loaded together do not expire together.
func (r *ContentRepository) lifetime(questionID string) time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(questionID))
	spread := int64(r.ttl)/10 + 1
	return r.ttl + time.Duration(int64(h.Sum32())%spread)
}

// StaticContentLoader serves a fixed question set, read from a content file or
// built in tests.
type StaticContentLoader struct {
	questions map[string]domain.BaseQuestion
}

func NewStaticContentLoader(questions ...domain.BaseQuestion) *StaticContentLoader {
	m := make(map[string]domain.BaseQuestion, len(questions))
	for _, q := range questions {
		m[q.ID] = q
	}
	return &StaticContentLoader{questions: m}
}

func (l *StaticContentLoader) LoadQuestion(_ context.Context, questionID string) (domain.BaseQuestion, error) {
	q, ok := l.questions[questionID]
	if !ok {
		return domain.BaseQuestion{}, fmt.Errorf("question %s: %w", questionID, domain.ErrContentNotFound)
	}
	return q, nil
}
