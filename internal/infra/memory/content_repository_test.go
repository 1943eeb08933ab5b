package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"gameshow-service/internal/domain"
)

func TestContentRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		ContentLoader: NewStaticContentLoader(sampleQuestion()),
	}
	repo := NewContentRepository(loader, time.Minute)

	if _, err := repo.GetQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("get question: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	q, err := repo.GetQuestion(context.Background(), "q1")
	if err != nil {
		t.Fatalf("get question 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if q.MCQ == nil || q.MCQ.AnswerIdx != 1 {
		t.Fatalf("unexpected cached content %+v", q)
	}
}

func TestContentRepositoryExpires(t *testing.T) {
	loader := &countingLoader{ContentLoader: NewStaticContentLoader(sampleQuestion())}
	repo := NewContentRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetQuestion(context.Background(), "q1")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetQuestion(context.Background(), "q1")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestContentRepositoryMissing(t *testing.T) {
	repo := NewContentRepository(NewStaticContentLoader(), time.Minute)
	_, err := repo.GetQuestion(context.Background(), "nope")
	if !errors.Is(err, domain.ErrContentNotFound) {
		t.Fatalf("expected content not found, got %v", err)
	}
}

func TestContentRepositoryDropsExpiredOnFill(t *testing.T) {
	second := sampleQuestion()
	second.ID = "q2"
	repo := NewContentRepository(NewStaticContentLoader(sampleQuestion(), second), time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	if _, err := repo.GetQuestion(context.Background(), "q1"); err != nil {
		t.Fatalf("get q1: %v", err)
	}
	now = now.Add(2 * time.Minute)
	if _, err := repo.GetQuestion(context.Background(), "q2"); err != nil {
		t.Fatalf("get q2: %v", err)
	}
	if _, ok := repo.entries["q1"]; ok || len(repo.entries) != 1 {
		t.Fatalf("expected only q2 held, got %v", repo.entries)
	}
}

func TestContentRepositoryLifetimeSpread(t *testing.T) {
	repo := NewContentRepository(NewStaticContentLoader(), 10*time.Second)
	for _, id := range []string{"q1", "q2", "a-much-longer-question-id"} {
		got := repo.lifetime(id)
		if got < 10*time.Second || got > 11*time.Second {
			t.Fatalf("lifetime of %s out of range: %v", id, got)
		}
		if again := repo.lifetime(id); again != got {
			t.Fatalf("lifetime of %s must be stable, got %v then %v", id, got, again)
		}
	}
	if d := NewContentRepository(NewStaticContentLoader(), 0).lifetime("q1"); d != 0 {
		t.Fatalf("expected no caching without a ttl, got %v", d)
	}
}

type countingLoader struct {
	ContentLoader
	calls int
}

func (l *countingLoader) LoadQuestion(ctx context.Context, questionID string) (domain.BaseQuestion, error) {
	l.calls++
	return l.ContentLoader.LoadQuestion(ctx, questionID)
}

func sampleQuestion() domain.BaseQuestion {
	return domain.BaseQuestion{
		ID:    "q1",
		Type:  domain.TypeMCQ,
		Title: "What is 2 + 2?",
		MCQ: &domain.MCQContent{
			Choices:   []string{"3", "4", "5"},
			AnswerIdx: 1,
		},
	}
}
