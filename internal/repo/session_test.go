package repo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"gameshow-service/internal/domain"
	"gameshow-service/internal/infra/memory"
	"gameshow-service/internal/repo"
	"gameshow-service/internal/store"
)

func TestMissingSessionIsMissingReference(t *testing.T) {
	s := memory.NewStore()
	err := s.RunTx(context.Background(), func(_ context.Context, tx store.Tx) error {
		_, err := repo.New(tx, "nope").Session()
		return err
	})
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}

func TestRealtimeDocumentsDefaultToZero(t *testing.T) {
	s := memory.NewStore()
	err := s.RunTx(context.Background(), func(_ context.Context, tx store.Tx) error {
		r := repo.New(tx, "s1")
		c, err := r.Chooser()
		if err != nil {
			return err
		}
		if len(c.TeamOrder) != 0 || c.Current() != "" {
			t.Fatalf("expected empty chooser, got %+v", c)
		}
		scores, err := r.GameScores()
		if err != nil {
			return err
		}
		scores.Scores["t1"] += 2
		return r.SaveGameScores(scores)
	})
	if err != nil {
		t.Fatalf("run tx: %v", err)
	}

	scores, ok, err := store.Get[domain.Scores](context.Background(), s, store.RealtimePath("s1", store.RealtimeScores))
	if err != nil || !ok || scores.Scores["t1"] != 2 {
		t.Fatalf("unexpected ledger %+v ok=%v err=%v", scores, ok, err)
	}
}

func TestSubscribeRejectsForeignPath(t *testing.T) {
	s := memory.NewStore()
	_, _, err := repo.Subscribe(context.Background(), s, "s1", store.SessionPath("s2"))
	if _, ok := domain.IsRejection(err); !ok {
		t.Fatalf("expected rejection, got %v", err)
	}
}

func TestWatchDecodesSnapshots(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	s := memory.NewStore()
	path := store.SessionPath("s1")

	ch, cancel, err := repo.Watch[domain.Session](ctx, s, path)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer cancel()

	if first := <-ch; first.Value != nil {
		t.Fatalf("expected missing session first, got %+v", first.Value)
	}
	_ = s.Put(ctx, path, domain.Session{ID: "s1", Status: domain.StatusGameHome})

	select {
	case u := <-ch:
		if u.Value == nil || u.Value.Status != domain.StatusGameHome {
			t.Fatalf("unexpected update %+v", u)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for update")
	}
}
