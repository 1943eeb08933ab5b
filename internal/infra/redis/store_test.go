package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gameshow-service/internal/store"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type counter struct {
	N int `json:"n"`
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := newClient(mr)
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, opts...), mr
}

func TestStoreCommitsHashWithVersion(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)

	err := s.RunTx(ctx, func(_ context.Context, tx store.Tx) error {
		return tx.Set("sessions/s1", counter{N: 3})
	})
	if err != nil {
		t.Fatalf("run tx: %v", err)
	}
	if got := mr.HGet("gs:sessions/s1", "v"); got != "1" {
		t.Fatalf("expected version 1, got %q", got)
	}

	var c counter
	ok, err := s.Get(ctx, "sessions/s1", &c)
	if err != nil || !ok || c.N != 3 {
		t.Fatalf("expected n=3, got %+v ok=%v err=%v", c, ok, err)
	}
}

func TestStoreAbortLeavesNoWrites(t *testing.T) {
	ctx := context.Background()
	s, mr := newTestStore(t)
	boom := errors.New("boom")

	err := s.RunTx(ctx, func(_ context.Context, tx store.Tx) error {
		_ = tx.Set("a", counter{N: 1})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected body error, got %v", err)
	}
	if mr.Exists("gs:a") {
		t.Fatalf("expected no key after abort")
	}
}

func TestStoreSerializesConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t, WithMaxRetries(200))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
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
	if c.N != 10 {
		t.Fatalf("expected 10 increments, got %d", c.N)
	}
}

func TestStoreDeleteHidesDocument(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)

	_ = s.RunTx(ctx, func(_ context.Context, tx store.Tx) error { return tx.Set("a", counter{N: 1}) })
	_ = s.RunTx(ctx, func(_ context.Context, tx store.Tx) error { tx.Delete("a"); return nil })

	if ok, _ := s.Get(ctx, "a", &counter{}); ok {
		t.Fatalf("expected deleted document to be missing")
	}
}

func TestStoreSubscribeReceivesCommits(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()
	s, _ := newTestStore(t)

	ch, cancel, err := s.Subscribe(ctx, "a")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if initial := <-ch; initial.Data != nil || initial.Version != 0 {
		t.Fatalf("expected empty initial snapshot, got %+v", initial)
	}

	_ = s.RunTx(ctx, func(_ context.Context, tx store.Tx) error { return tx.Set("a", counter{N: 5}) })

	select {
	case snap := <-ch:
		if snap.Version != 1 || string(snap.Data) != `{"n":5}` {
			t.Fatalf("unexpected snapshot %+v (%s)", snap, snap.Data)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for snapshot")
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
