package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"gameshow-service/internal/store"
)

type entry struct {
	data    []byte
	version int64
}

// Store is an in-memory implementation of store.Store. Transactions are
// optimistic: every read records the document version and the commit fails
// when any of them moved, in which case the body is run again.
type Store struct {
	mu          sync.RWMutex
	docs        map[string]entry
	subscribers map[string]map[chan store.Snapshot]struct{}

	maxRetries   int
	beforeCommit func(attempt int)
}

// Option configures a Store.
type Option func(*Store)

// WithMaxRetries bounds transparent retries.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithBeforeCommit installs a hook called between the transaction body and
// its commit. Tests use it to inject concurrent writes.
func WithBeforeCommit(fn func(attempt int)) Option {
	return func(s *Store) { s.beforeCommit = fn }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		docs:        make(map[string]entry),
		subscribers: make(map[string]map[chan store.Snapshot]struct{}),
		maxRetries:  store.DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RunTx implements store.Store.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{
			s:       s,
			reads:   make(map[string]int64),
			staging: store.NewStaging(),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		if s.beforeCommit != nil {
			s.beforeCommit(attempt)
		}
		if s.commit(tx) {
			tx.hooks.Run()
			return nil
		}
	}
	return store.ErrConflict
}

func (s *Store) commit(tx *memTx) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for path, version := range tx.reads {
		if s.docs[path].version != version {
			return false
		}
	}
	for _, w := range tx.staging.Writes() {
		e := s.docs[w.Path]
		e.version++
		e.data = w.Data
		s.docs[w.Path] = e
		s.broadcastLocked(store.Snapshot{Path: w.Path, Data: cloneRaw(e.data), Version: e.version})
	}
	return true
}

// Get implements store.Store.
func (s *Store) Get(_ context.Context, path string, dst any) (bool, error) {
	s.mu.RLock()
	e := s.docs[path]
	s.mu.RUnlock()
	return decode(e.data, dst)
}

// Put writes a document outside of any business transaction.
func (s *Store) Put(ctx context.Context, path string, v any) error {
	return s.RunTx(ctx, func(_ context.Context, tx store.Tx) error {
		return tx.Set(path, v)
	})
}

// Subscribe implements store.Store. Slow subscribers only ever miss
// intermediate snapshots, never the latest one.
func (s *Store) Subscribe(ctx context.Context, path string) (<-chan store.Snapshot, func(), error) {
	ch := make(chan store.Snapshot, 1)

	s.mu.Lock()
	if s.subscribers[path] == nil {
		s.subscribers[path] = make(map[chan store.Snapshot]struct{})
	}
	s.subscribers[path][ch] = struct{}{}
	e := s.docs[path]
	ch <- store.Snapshot{Path: path, Data: cloneRaw(e.data), Version: e.version}
	s.mu.Unlock()

	done := make(chan struct{})
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			s.mu.Lock()
			if subs, ok := s.subscribers[path]; ok {
				if _, ok := subs[ch]; ok {
					delete(subs, ch)
					close(ch)
				}
				if len(subs) == 0 {
					delete(s.subscribers, path)
				}
			}
			s.mu.Unlock()
		})
	}
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()
	return ch, cancel, nil
}

func (s *Store) broadcastLocked(snap store.Snapshot) {
	for ch := range s.subscribers[snap.Path] {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

type memTx struct {
	s       *Store
	reads   map[string]int64
	staging *store.Staging
	hooks   store.Hooks
}

func (t *memTx) Get(path string, dst any) (bool, error) {
	if data, ok := t.staging.Lookup(path); ok {
		return decode(data, dst)
	}
	t.s.mu.RLock()
	e := t.s.docs[path]
	t.s.mu.RUnlock()
	if _, seen := t.reads[path]; !seen {
		t.reads[path] = e.version
	}
	return decode(e.data, dst)
}

func (t *memTx) Set(path string, v any) error {
	data, err := store.Encode(v)
	if err != nil {
		return err
	}
	t.staging.Put(path, data)
	return nil
}

func (t *memTx) Delete(path string) {
	t.staging.Put(path, nil)
}

func (t *memTx) AfterCommit(fn func()) {
	t.hooks.Add(fn)
}

func decode(data []byte, dst any) (bool, error) {
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode document: %w", err)
	}
	return true, nil
}

func cloneRaw(data []byte) json.RawMessage {
	if data == nil {
		return nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out
}
