package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gameshow-service/internal/store"
)

type counter struct {
	N int `json:"n"`
}

func TestRunTxCommitsAtomically(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.RunTx(ctx, func(_ context.Context, tx store.Tx) error {
		if err := tx.Set("a", counter{N: 1}); err != nil {
			return err
		}
		return tx.Set("b", counter{N: 2})
	})
	if err != nil {
		t.Fatalf("run tx: %v", err)
	}

	var a, b counter
	if ok, _ := s.Get(ctx, "a", &a); !ok || a.N != 1 {
		t.Fatalf("expected a=1, got %+v ok=%v", a, ok)
	}
	if ok, _ := s.Get(ctx, "b", &b); !ok || b.N != 2 {
		t.Fatalf("expected b=2, got %+v ok=%v", b, ok)
	}
}

func TestRunTxAbortLeavesNoWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	boom := errors.New("boom")

	err := s.RunTx(ctx, func(_ context.Context, tx store.Tx) error {
		_ = tx.Set("a", counter{N: 1})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected body error, got %v", err)
	}
	if ok, _ := s.Get(ctx, "a", &counter{}); ok {
		t.Fatalf("expected no write after abort")
	}
}

func TestRunTxReadsOwnWrites(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	err := s.RunTx(ctx, func(_ context.Context, tx store.Tx) error {
		_ = tx.Set("a", counter{N: 7})
		var c counter
		ok, err := tx.Get("a", &c)
		if err != nil || !ok || c.N != 7 {
			t.Fatalf("expected staged read, got %+v ok=%v err=%v", c, ok, err)
		}
		tx.Delete("a")
		if ok, _ := tx.Get("a", &c); ok {
			t.Fatalf("expected staged delete to hide document")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run tx: %v", err)
	}
}

func TestConcurrentIncrementsAreSerialized(t *testing.T) {
	ctx := context.Background()
	s := NewStore(WithMaxRetries(1000))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.RunTx(ctx, func(_ context.Context, tx store.Tx) error {
				var c counter
				if _, err := tx.Get("n", &c); err != nil {
					return err
				}
				c.N++
				return tx.Set("n", c)
			})
			if err != nil {
				t.Errorf("run tx: %v", err)
			}
		}()
	}
	wg.Wait()

	var c counter
	_, _ = s.Get(ctx, "n", &c)
	if c.N != 20 {
		t.Fatalf("expected 20 increments, got %d", c.N)
	}
}

func TestAfterCommitRunsOncePerCommit(t *testing.T) {
	ctx := context.Background()
	var s *Store
	s = NewStore(WithBeforeCommit(func(attempt int) {
		if attempt == 0 {
			// Concurrent writer invalidates the first attempt.
			s.mu.Lock()
			e := s.docs["n"]
			e.version++
			s.docs["n"] = e
			s.mu.Unlock()
		}
	}))

	hooks := 0
	bodies := 0
	err := s.RunTx(ctx, func(_ context.Context, tx store.Tx) error {
		bodies++
		var c counter
		if _, err := tx.Get("n", &c); err != nil {
			return err
		}
		c.N++
		tx.AfterCommit(func() { hooks++ })
		return tx.Set("n", c)
	})
	if err != nil {
		t.Fatalf("run tx: %v", err)
	}
	if bodies != 2 {
		t.Fatalf("expected a retry, bodies=%d", bodies)
	}
	if hooks != 1 {
		t.Fatalf("expected hook once, got %d", hooks)
	}
}

func TestRunTxReportsConflictWhenRetriesExhausted(t *testing.T) {
	ctx := context.Background()
	var s *Store
	s = NewStore(WithMaxRetries(3), WithBeforeCommit(func(int) {
		s.mu.Lock()
		e := s.docs["n"]
		e.version++
		s.docs["n"] = e
		s.mu.Unlock()
	}))

	err := s.RunTx(ctx, func(_ context.Context, tx store.Tx) error {
		_, err := tx.Get("n", &counter{})
		return err
	})
	if !store.IsRetryable(err) {
		t.Fatalf("expected retryable conflict, got %v", err)
	}
}

func TestSubscribeDeliversLatestSnapshot(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	s := NewStore()

	ch, cancel, err := s.Subscribe(ctx, "a")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	initial := <-ch
	if initial.Data != nil {
		t.Fatalf("expected empty initial snapshot, got %s", initial.Data)
	}

	_ = s.Put(ctx, "a", counter{N: 1})
	_ = s.Put(ctx, "a", counter{N: 2})

	select {
	case snap := <-ch:
		if snap.Version != 2 {
			t.Fatalf("expected latest version 2, got %d (%s)", snap.Version, snap.Data)
		}
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
}

func TestSubscribeClosesOnContextCancel(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	s := NewStore()

	ch, _, err := s.Subscribe(ctx, "a")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	<-ch
	cancelCtx()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after cancel")
	}
}
