// Package store defines the transactional document store the engine is built
// on. Documents are JSON values addressed by path-like keys. Implementations
// live under internal/infra.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrConflict is returned when a transaction kept colliding with concurrent
// writers until its retry budget ran out. Callers may retry the action.
var ErrConflict = errors.New("transaction conflict: retries exhausted")

// DefaultMaxRetries bounds transparent transaction retries.
const DefaultMaxRetries = 10

// Snapshot is the latest state of one document. Data is nil when the
// document does not exist.
type Snapshot struct {
	Path    string          `json:"path"`
	Data    json.RawMessage `json:"data"`
	Version int64           `json:"version"`
}

// Tx is an optimistic read-modify-write transaction. Reads observe staged
// writes of the same transaction. Writes become visible to other readers and
// subscribers together, only after commit.
type Tx interface {
	// Get decodes the document at path into dst and reports whether it exists.
	Get(path string, dst any) (bool, error)
	// Set stages a write of v at path.
	Set(path string, v any) error
	// Delete stages the removal of path.
	Delete(path string)
	// AfterCommit registers fn to run once after a successful commit. It is
	// the only place for effects that must not be repeated by a retry.
	AfterCommit(fn func())
}

// Store runs transactions and serves reads and change feeds.
type Store interface {
	// RunTx runs fn in a transaction, retrying transparently on conflict.
	// fn must only stage writes through tx; it may run several times.
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Get reads the committed document at path.
	Get(ctx context.Context, path string, dst any) (bool, error)
	// Subscribe streams the latest snapshot of path, starting with the current
	// one. The caller must invoke the returned cancel function.
	Subscribe(ctx context.Context, path string) (<-chan Snapshot, func(), error)
}

// IsRetryable reports whether err is a transient conflict.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// GetTx reads a typed document inside a transaction.
func GetTx[T any](tx Tx, path string) (*T, bool, error) {
	var v T
	ok, err := tx.Get(path, &v)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

// Get reads a typed committed document.
func Get[T any](ctx context.Context, s Store, path string) (*T, bool, error) {
	var v T
	ok, err := s.Get(ctx, path, &v)
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

// Hooks collects AfterCommit callbacks for Tx implementations.
type Hooks struct {
	fns []func()
}

// Add registers a callback.
func (h *Hooks) Add(fn func()) {
	if fn != nil {
		h.fns = append(h.fns, fn)
	}
}

// Run invokes the callbacks in registration order.
func (h *Hooks) Run() {
	for _, fn := range h.fns {
		fn()
	}
}

// Write is a staged mutation. A nil Data means delete.
type Write struct {
	Path string
	Data []byte
}

// Staging keeps the ordered write set of a transaction with read-your-writes.
type Staging struct {
	order  []string
	writes map[string][]byte
}

// NewStaging returns an empty write set.
func NewStaging() *Staging {
	return &Staging{writes: make(map[string][]byte)}
}

// Put stages encoded data at path; nil data stages a delete.
func (s *Staging) Put(path string, data []byte) {
	if _, ok := s.writes[path]; !ok {
		s.order = append(s.order, path)
	}
	s.writes[path] = data
}

// Lookup returns staged data. The second result reports whether the path was
// written in this transaction.
func (s *Staging) Lookup(path string) ([]byte, bool) {
	data, ok := s.writes[path]
	return data, ok
}

// Writes returns staged writes in first-write order.
func (s *Staging) Writes() []Write {
	out := make([]Write, 0, len(s.order))
	for _, p := range s.order {
		out = append(out, Write{Path: p, Data: s.writes[p]})
	}
	return out
}

// Encode marshals a document for storage.
func Encode(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return data, nil
}
