package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"ai-or-not-service/internal/domain"

	"golang.org/x/sync/singleflight"
)

// QuestionLoader fetches question content from a backing store.
type QuestionLoader interface {
	LoadActive(ctx context.Context) ([]domain.Question, error)
}

// QuestionBank caches the active question set with a TTL so every room
// creation does not hit the backing store. Implements game.QuestionSource.
type QuestionBank struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu        sync.RWMutex
	cached    []domain.Question
	expiresAt time.Time
}

func NewQuestionBank(loader QuestionLoader, ttl time.Duration) *QuestionBank {
	return &QuestionBank{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *QuestionBank) ActiveQuestions(ctx context.Context) ([]domain.Question, error) {
	now := b.clock()

	b.mu.RLock()
	if b.cached != nil && b.expiresAt.After(now) {
		questions := b.cached
		b.mu.RUnlock()
		return questions, nil
	}
	b.mu.RUnlock()

	result, err, _ := b.sf.Do("active", func() (interface{}, error) {
		now := b.clock()
		b.mu.RLock()
		if b.cached != nil && b.expiresAt.After(now) {
			questions := b.cached
			b.mu.RUnlock()
			return questions, nil
		}
		b.mu.RUnlock()

		questions, err := b.loader.LoadActive(ctx)
		if err != nil {
			return nil, err
		}

		b.mu.Lock()
		b.cached = questions
		b.expiresAt = now.Add(b.ttlWithJitter())
		b.mu.Unlock()
		return questions, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

func (b *QuestionBank) QuestionsByID(ctx context.Context, ids []string) ([]domain.Question, error) {
	active, err := b.ActiveQuestions(ctx)
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

func (b *QuestionBank) ttlWithJitter() time.Duration {
	if b.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread refreshes
	jitterMax := int64(b.ttl) / 10
	return b.ttl + time.Duration(b.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves a fixed question list (tests and demo mode).
type StaticQuestionLoader struct {
	questions []domain.Question
}

func NewStaticQuestionLoader(questions []domain.Question) *StaticQuestionLoader {
	ordered := append([]domain.Question(nil), questions...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OrderIndex < ordered[j].OrderIndex
	})
	return &StaticQuestionLoader{questions: ordered}
}

func (l *StaticQuestionLoader) LoadActive(_ context.Context) ([]domain.Question, error) {
	active := make([]domain.Question, 0, len(l.questions))
	for _, q := range l.questions {
		if q.Active {
			active = append(active, q)
		}
	}
	return active, nil
}
