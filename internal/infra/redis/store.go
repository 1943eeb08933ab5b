package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"gameshow-service/internal/store"
	"github.com/redis/go-redis/v9"
)

// Store is a Redis implementation of store.Store, shareable by any number of
// stateless engine processes.
//
// Each document is a hash {data, v}. Transactions WATCH every key they read
// (and every key they write) and apply the staged writes in one MULTI/EXEC,
// which also PUBLISHes the new snapshot of every changed path. A watched key
// modified by another client makes EXEC fail with redis.TxFailedErr, and the
// body is run again.
type Store struct {
	client     *redis.Client
	prefix     string
	maxRetries int
}

// Option configures a Store.
type Option func(*Store)

// WithPrefix namespaces keys and channels.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// WithMaxRetries bounds transparent retries.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

func NewStore(client *redis.Client, opts ...Option) *Store {
	s := &Store{client: client, prefix: "gs:", maxRetries: store.DefaultMaxRetries}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) key(path string) string {
	return s.prefix + path
}

func (s *Store) channel(path string) string {
	return s.prefix + "feed:" + path
}

// RunTx implements store.Store.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		tx := &redisTx{
			s:       s,
			ctx:     ctx,
			reads:   make(map[string]int64),
			staging: store.NewStaging(),
		}
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx.rtx = rtx
			if err := fn(ctx, tx); err != nil {
				return err
			}
			return tx.commit()
		})
		if err == nil {
			tx.hooks.Run()
			return nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return store.ErrConflict
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, path string, dst any) (bool, error) {
	data, _, err := readDoc(ctx, s.client, s.key(path))
	if err != nil {
		return false, err
	}
	return decode(data, dst)
}

// Subscribe implements store.Store. The subscription is confirmed before the
// current snapshot is read so no commit can fall in between; snapshots older
// than the last delivered version are dropped.
func (s *Store) Subscribe(ctx context.Context, path string) (<-chan store.Snapshot, func(), error) {
	pubsub := s.client.Subscribe(ctx, s.channel(path))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", path, err)
	}

	data, version, err := readDoc(ctx, s.client, s.key(path))
	if err != nil {
		_ = pubsub.Close()
		return nil, nil, err
	}

	out := make(chan store.Snapshot, 1)
	out <- store.Snapshot{Path: path, Data: data, Version: version}

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		defer close(out)
		last := version
		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var snap store.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					continue
				}
				if snap.Version <= last {
					continue
				}
				if string(snap.Data) == "null" {
					snap.Data = nil
				}
				last = snap.Version
				select {
				case out <- snap:
				default:
					select {
					case <-out:
					default:
					}
					out <- snap
				}
			}
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			close(done)
			_ = pubsub.Close()
			<-finished
		})
	}
	return out, cancel, nil
}

type redisTx struct {
	s       *Store
	ctx     context.Context
	rtx     *redis.Tx
	reads   map[string]int64
	staging *store.Staging
	hooks   store.Hooks
}

func (t *redisTx) Get(path string, dst any) (bool, error) {
	if data, ok := t.staging.Lookup(path); ok {
		return decode(data, dst)
	}
	key := t.s.key(path)
	if err := t.rtx.Watch(t.ctx, key).Err(); err != nil {
		return false, fmt.Errorf("watch %s: %w", path, err)
	}
	data, version, err := readDoc(t.ctx, t.rtx, key)
	if err != nil {
		return false, err
	}
	if _, seen := t.reads[path]; !seen {
		t.reads[path] = version
	}
	return decode(data, dst)
}

func (t *redisTx) Set(path string, v any) error {
	data, err := store.Encode(v)
	if err != nil {
		return err
	}
	t.staging.Put(path, data)
	return nil
}

func (t *redisTx) Delete(path string) {
	t.staging.Put(path, nil)
}

func (t *redisTx) AfterCommit(fn func()) {
	t.hooks.Add(fn)
}

type stagedWrite struct {
	key     string
	channel string
	data    []byte
	snap    []byte
	version int64
}

func (t *redisTx) commit() error {
	writes := t.staging.Writes()
	if len(writes) == 0 {
		return nil
	}

	staged := make([]stagedWrite, 0, len(writes))
	for _, w := range writes {
		key := t.s.key(w.Path)
		version, seen := t.reads[w.Path]
		if !seen {
			if err := t.rtx.Watch(t.ctx, key).Err(); err != nil {
				return fmt.Errorf("watch %s: %w", w.Path, err)
			}
			var err error
			if _, version, err = readDoc(t.ctx, t.rtx, key); err != nil {
				return err
			}
		}
		next := version + 1
		snap, err := json.Marshal(store.Snapshot{Path: w.Path, Data: w.Data, Version: next})
		if err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
		staged = append(staged, stagedWrite{
			key:     key,
			channel: t.s.channel(w.Path),
			data:    w.Data,
			snap:    snap,
			version: next,
		})
	}

	_, err := t.rtx.TxPipelined(t.ctx, func(pipe redis.Pipeliner) error {
		for _, w := range staged {
			pipe.HSet(t.ctx, w.key, "data", string(w.data), "v", w.version)
			pipe.Publish(t.ctx, w.channel, string(w.snap))
		}
		return nil
	})
	return err
}

type hashReader interface {
	HMGet(ctx context.Context, key string, fields ...string) *redis.SliceCmd
}

// readDoc returns the document data (nil when missing or deleted) and version.
func readDoc(ctx context.Context, r hashReader, key string) ([]byte, int64, error) {
	vals, err := r.HMGet(ctx, key, "data", "v").Result()
	if err != nil {
		return nil, 0, fmt.Errorf("read %s: %w", key, err)
	}
	var (
		data    []byte
		version int64
	)
	if s, ok := vals[0].(string); ok && s != "" {
		data = []byte(s)
	}
	if s, ok := vals[1].(string); ok {
		version, err = strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("parse version of %s: %w", key, err)
		}
	}
	return data, version, nil
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
