package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"gameshow-service/internal/domain"
	"gameshow-service/internal/repo"
	"gameshow-service/internal/store"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ContentRepository loads immutable base question content (from cache/backing store).
type ContentRepository interface {
	GetQuestion(ctx context.Context, questionID string) (domain.BaseQuestion, error)
}

// Event is one committed action.
type Event struct {
	SessionID  string
	RoundID    string
	QuestionID string
	ActorID    string
	Action     string
	At         time.Time
}

// EventSink receives committed actions, once per commit.
type EventSink interface {
	Record(ctx context.Context, ev Event) error
}

// Ref addresses the target of an action. RoundID and QuestionID are empty for
// session-scope actions.
type Ref struct {
	SessionID  string `json:"sessionId"`
	RoundID    string `json:"roundId,omitempty"`
	QuestionID string `json:"questionId,omitempty"`
	ActorID    string `json:"actorId,omitempty"`
}

// Engine orchestrates game sessions on top of a transactional store. It holds
// no session state between calls, so any number of engines can share a store.
type Engine struct {
	store   store.Store
	content ContentRepository
	events  EventSink
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
	rnd     *shuffler
	newID   func() string
}

// Option configures an Engine.
type Option func(*Engine)

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithEventSink archives committed actions.
func WithEventSink(s EventSink) Option {
	return func(e *Engine) { e.events = s }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithSeed makes shuffles and random picks reproducible.
func WithSeed(seed int64) Option {
	return func(e *Engine) { e.rnd = newShuffler(seed) }
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

func NewEngine(st store.Store, content ContentRepository, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		content: content,
		logger:  slog.Default(),
		tracer:  otel.Tracer("gameshow-service/internal/app"),
		now:     time.Now,
		rnd:     newShuffler(time.Now().UnixNano()),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns the committed document at a path of the session subtree.
func (e *Engine) Snapshot(ctx context.Context, sessionID, path string) (json.RawMessage, bool, error) {
	if !store.BelongsTo(path, sessionID) {
		return nil, false, domain.Reject(domain.RejectInvalidArgument, "path %q is outside session %s", path, sessionID)
	}
	var raw json.RawMessage
	ok, err := e.store.Get(ctx, path, &raw)
	if err != nil {
		return nil, false, err
	}
	return raw, ok, nil
}

// Subscribe streams the latest snapshot of a path of the session subtree.
// The caller must invoke the returned cancel function to avoid leaks.
func (e *Engine) Subscribe(ctx context.Context, sessionID, path string) (<-chan store.Snapshot, func(), error) {
	return repo.Subscribe(ctx, e.store, sessionID, path)
}

// WatchScores follows the game-level scoreboard of a session.
func (e *Engine) WatchScores(ctx context.Context, sessionID string) (<-chan repo.Update[domain.Scores], func(), error) {
	return repo.Watch[domain.Scores](ctx, e.store, store.RealtimePath(sessionID, store.RealtimeScores))
}

// run executes fn in one store transaction. fn may run several times; only the
// writes staged through the turn are kept, and the event is archived once.
func (e *Engine) run(ctx context.Context, action string, ref Ref, fn func(t *turn) error) error {
	ctx, span := e.tracer.Start(ctx, "engine."+action, trace.WithAttributes(
		attribute.String("gameshow.session_id", ref.SessionID),
		attribute.String("gameshow.round_id", ref.RoundID),
		attribute.String("gameshow.question_id", ref.QuestionID),
		attribute.String("gameshow.actor_id", ref.ActorID),
	))
	defer span.End()

	attempts := 0
	err := e.store.RunTx(ctx, func(ctx context.Context, tx store.Tx) error {
		attempts++
		t := e.newTurn(ctx, tx, ref)
		if err := fn(t); err != nil {
			return err
		}
		changed, err := t.flush()
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}
		ev := Event{
			SessionID:  t.ref.SessionID,
			RoundID:    t.ref.RoundID,
			QuestionID: t.ref.QuestionID,
			ActorID:    t.ref.ActorID,
			Action:     action,
			At:         t.now,
		}
		tx.AfterCommit(func() { e.committed(ctx, ev) })
		return nil
	})
	span.SetAttributes(attribute.Int("gameshow.tx_attempts", attempts))
	if err != nil {
		e.failed(span, action, ref, err)
		return err
	}
	return nil
}

// runSession is run with the session record loaded.
func (e *Engine) runSession(ctx context.Context, action string, ref Ref, fn func(t *turn) error) error {
	return e.run(ctx, action, ref, func(t *turn) error {
		if err := t.loadSession(); err != nil {
			return err
		}
		return fn(t)
	})
}

// runQuestion is runSession with the round, the live question and its
// protocol loaded. Base content is read before the transaction.
func (e *Engine) runQuestion(ctx context.Context, action string, ref Ref, fn func(t *turn) error) error {
	base, err := e.loadContent(ctx, ref.QuestionID)
	if err != nil {
		return err
	}
	return e.runSession(ctx, action, ref, func(t *turn) error {
		if err := t.loadQuestion(ref.RoundID, base); err != nil {
			return err
		}
		return fn(t)
	})
}

func (e *Engine) loadContent(ctx context.Context, questionID string) (domain.BaseQuestion, error) {
	if questionID == "" {
		return domain.BaseQuestion{}, fmt.Errorf("empty question id: %w", domain.ErrQuestionNotFound)
	}
	q, err := e.content.GetQuestion(ctx, questionID)
	if err != nil {
		return domain.BaseQuestion{}, fmt.Errorf("load question %s: %w", questionID, err)
	}
	return q, nil
}

// loadRoundContent reads the committed round and the base content of all its questions.
func (e *Engine) loadRoundContent(ctx context.Context, sessionID, roundID string) (map[string]domain.BaseQuestion, error) {
	round, ok, err := store.Get[domain.Round](ctx, e.store, store.RoundPath(sessionID, roundID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("round %s: %w", roundID, domain.ErrRoundNotFound)
	}
	bases := make(map[string]domain.BaseQuestion, len(round.QuestionIDs))
	for _, qid := range round.QuestionIDs {
		q, err := e.loadContent(ctx, qid)
		if err != nil {
			return nil, err
		}
		bases[qid] = q
	}
	return bases, nil
}

func (e *Engine) committed(ctx context.Context, ev Event) {
	e.logger.Debug("action committed",
		"action", ev.Action,
		"session", ev.SessionID,
		"round", ev.RoundID,
		"question", ev.QuestionID,
		"actor", ev.ActorID,
	)
	if e.events == nil {
		return
	}
	if err := e.events.Record(context.WithoutCancel(ctx), ev); err != nil {
		e.logger.Warn("archive event", "action", ev.Action, "session", ev.SessionID, "err", err)
	}
}

func (e *Engine) failed(span trace.Span, action string, ref Ref, err error) {
	if rej, ok := domain.IsRejection(err); ok {
		span.SetAttributes(attribute.String("gameshow.reject_code", string(rej.Code)))
		e.logger.Info("action rejected",
			"action", action,
			"session", ref.SessionID,
			"actor", ref.ActorID,
			"code", rej.Code,
			"reason", rej.Reason,
		)
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	level := slog.LevelError
	if domain.IsMissingReference(err) || store.IsRetryable(err) {
		level = slog.LevelWarn
	}
	e.logger.Log(context.Background(), level, "action failed",
		"action", action,
		"session", ref.SessionID,
		"round", ref.RoundID,
		"question", ref.QuestionID,
		"err", err,
	)
}

// shuffler is a goroutine-safe source of permutations.
type shuffler struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newShuffler(seed int64) *shuffler {
	return &shuffler{r: rand.New(rand.NewSource(seed))}
}

func (s *shuffler) Perm(n int) []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Perm(n)
}

func (s *shuffler) Intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Intn(n)
}

// Strings returns a shuffled copy.
func (s *shuffler) Strings(in []string) []string {
	out := make([]string, len(in))
	for i, j := range s.Perm(len(in)) {
		out[i] = in[j]
	}
	return out
}
