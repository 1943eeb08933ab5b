package repo

import (
	"context"
	"encoding/json"

	"gameshow-service/internal/domain"
	"gameshow-service/internal/store"
)

// Subscribe opens a change feed on a path of the session's subtree.
func Subscribe(ctx context.Context, s store.Store, sessionID, path string) (<-chan store.Snapshot, func(), error) {
	if !store.BelongsTo(path, sessionID) {
		return nil, nil, domain.Reject(domain.RejectInvalidArgument, "path %q is outside session %s", path, sessionID)
	}
	return s.Subscribe(ctx, path)
}

// Update is a decoded snapshot. Value is nil when the document is missing.
type Update[T any] struct {
	Value   *T
	Version int64
}

// Watch decodes the change feed of path into T. Snapshots that fail to decode
// are skipped. The returned channel closes when the subscription ends.
func Watch[T any](ctx context.Context, s store.Store, path string) (<-chan Update[T], func(), error) {
	snaps, cancel, err := s.Subscribe(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	out := make(chan Update[T], 1)
	go func() {
		defer close(out)
		for snap := range snaps {
			u := Update[T]{Version: snap.Version}
			if snap.Data != nil {
				var v T
				if err := json.Unmarshal(snap.Data, &v); err != nil {
					continue
				}
				u.Value = &v
			}
			select {
			case out <- u:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, cancel, nil
}
