package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gameshow-service/internal/app"
	"gameshow-service/internal/domain"
	"gameshow-service/internal/infra/memory"
	"gameshow-service/internal/store"
)

const (
	sessionID = "s1"
	organizer = "org"
)

var teams = []string{"red", "blue", "green"}

// player returns the single player of a team.
func player(team string) string {
	return "p-" + team
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.Store
	engine *app.Engine
	events *recorder
}

type recorder struct {
	mu     sync.Mutex
	events []app.Event
}

func (r *recorder) Record(_ context.Context, ev app.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) count(action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ev := range r.events {
		if ev.Action == action {
			n++
		}
	}
	return n
}

// newFixture creates a started game with one player per team.
func newFixture(t *testing.T, policy domain.ScorePolicy, rounds []app.RoundSetup, questions []domain.BaseQuestion, opts ...memory.Option) *fixture {
	t.Helper()
	f := newBareFixture(t, opts...)
	f.create(policy, rounds, questions)
	f.ok(f.engine.StartGame(f.ctx, f.org()))
	return f
}

func newBareFixture(t *testing.T, opts ...memory.Option) *fixture {
	t.Helper()
	st := memory.NewStore(opts...)
	rec := &recorder{}
	return &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  st,
		events: rec,
		engine: app.NewEngine(st, nil, app.WithSeed(7), app.WithEventSink(rec)),
	}
}

func (f *fixture) create(policy domain.ScorePolicy, rounds []app.RoundSetup, questions []domain.BaseQuestion) {
	f.t.Helper()
	content := memory.NewContentRepository(memory.NewStaticContentLoader(questions...), time.Minute)
	f.engine = app.NewEngine(f.store, content, app.WithSeed(7), app.WithEventSink(f.events))

	setup := app.Setup{
		ID:          sessionID,
		Title:       "Quiz night",
		ScorePolicy: policy,
		Organizers:  []app.PersonSetup{{ID: organizer, Name: "Host"}},
		Rounds:      rounds,
	}
	for _, team := range teams {
		setup.Teams = append(setup.Teams, app.TeamSetup{ID: team, Name: team})
	}
	if _, err := f.engine.CreateSession(f.ctx, setup); err != nil {
		f.t.Fatalf("create session: %v", err)
	}
	for _, team := range teams {
		if _, err := f.engine.Join(f.ctx, sessionID, app.JoinRequest{ParticipantID: player(team), Name: team, TeamID: team}); err != nil {
			f.t.Fatalf("join %s: %v", team, err)
		}
	}
}

func (f *fixture) org() app.Ref {
	return app.Ref{SessionID: sessionID, ActorID: organizer}
}

func (f *fixture) orgAt(roundID, questionID string) app.Ref {
	return app.Ref{SessionID: sessionID, RoundID: roundID, QuestionID: questionID, ActorID: organizer}
}

func (f *fixture) as(actor, roundID, questionID string) app.Ref {
	return app.Ref{SessionID: sessionID, RoundID: roundID, QuestionID: questionID, ActorID: actor}
}

func (f *fixture) ok(err error) {
	f.t.Helper()
	if err != nil {
		f.t.Fatalf("unexpected error: %v", err)
	}
}

func (f *fixture) rejected(err error, code domain.RejectCode) {
	f.t.Helper()
	rej, ok := domain.IsRejection(err)
	if !ok {
		f.t.Fatalf("expected %s rejection, got %v", code, err)
	}
	if rej.Code != code {
		f.t.Fatalf("expected %s rejection, got %s (%s)", code, rej.Code, rej.Reason)
	}
}

// startQuestion starts a round and its first question.
func (f *fixture) startQuestion(roundID string) {
	f.t.Helper()
	f.ok(f.engine.StartRound(f.ctx, f.orgAt(roundID, "")))
	f.ok(f.engine.StartNextQuestion(f.ctx, f.orgAt(roundID, "")))
}

func load[T any](f *fixture, path string) *T {
	f.t.Helper()
	v, ok, err := store.Get[T](f.ctx, f.store, path)
	if err != nil {
		f.t.Fatalf("get %s: %v", path, err)
	}
	if !ok {
		f.t.Fatalf("missing document %s", path)
	}
	return v
}

func (f *fixture) session() *domain.Session {
	return load[domain.Session](f, store.SessionPath(sessionID))
}

func (f *fixture) round(roundID string) *domain.Round {
	return load[domain.Round](f, store.RoundPath(sessionID, roundID))
}

func (f *fixture) live(roundID, questionID string) *domain.LiveQuestion {
	return load[domain.LiveQuestion](f, store.QuestionPath(sessionID, roundID, questionID))
}

func (f *fixture) gameScores() *domain.Scores {
	return load[domain.Scores](f, store.RealtimePath(sessionID, store.RealtimeScores))
}

func (f *fixture) roundScores(roundID string) *domain.Scores {
	s := load[domain.Scores](f, store.RoundScoresPath(sessionID, roundID))
	s.Normalize()
	return s
}

func (f *fixture) timer() *domain.Timer {
	return load[domain.Timer](f, store.RealtimePath(sessionID, store.RealtimeTimer))
}

func (f *fixture) chooser() *domain.Chooser {
	return load[domain.Chooser](f, store.RealtimePath(sessionID, store.RealtimeChooser))
}

func (f *fixture) effects() *domain.Effects {
	return load[domain.Effects](f, store.RealtimePath(sessionID, store.RealtimeEffects))
}

func mcq(id string) domain.BaseQuestion {
	return domain.BaseQuestion{
		ID:    id,
		Type:  domain.TypeMCQ,
		Title: "Capital of France?",
		MCQ:   &domain.MCQContent{Choices: []string{"Lyon", "Paris", "Nice"}, AnswerIdx: 1},
	}
}

func round(id string, rt domain.RoundType, rw domain.Rewards, questionIDs ...string) app.RoundSetup {
	return app.RoundSetup{ID: id, Title: id, Type: rt, QuestionIDs: questionIDs, Rewards: rw}
}

func intp(v int) *int { return &v }

func TestCreateSessionWritesSetup(t *testing.T) {
	f := newBareFixture(t)
	f.create(domain.PolicyRanking, []app.RoundSetup{round("r1", domain.RoundType(domain.TypeMCQ), domain.Rewards{}, "q1")}, []domain.BaseQuestion{mcq("q1")})

	s := f.session()
	if s.Status != domain.StatusNotStarted || s.ScorePolicy != domain.PolicyRanking {
		t.Fatalf("unexpected session %+v", s)
	}
	if len(s.TeamIDs) != 3 || len(s.RoundIDs) != 1 || !s.IsOrganizer(organizer) {
		t.Fatalf("unexpected session wiring %+v", s)
	}
	team := load[domain.Team](f, store.TeamPath(sessionID, "red"))
	if len(team.PlayerIDs) != 1 || team.PlayerIDs[0] != player("red") {
		t.Fatalf("expected p-red in red, got %+v", team)
	}
	ready := load[domain.Ready](f, store.RealtimePath(sessionID, store.RealtimeReady))
	if ready.NumPlayers != 3 {
		t.Fatalf("expected 3 players, got %+v", ready)
	}

	_, err := f.engine.CreateSession(f.ctx, app.Setup{
		ID:         sessionID,
		Organizers: []app.PersonSetup{{ID: organizer}},
		Teams:      []app.TeamSetup{{ID: "x"}},
	})
	f.rejected(err, domain.RejectAlreadyDone)
}

func TestCreateSessionRejectsUnknownContent(t *testing.T) {
	f := newBareFixture(t)
	content := memory.NewContentRepository(memory.NewStaticContentLoader(), time.Minute)
	f.engine = app.NewEngine(f.store, content)

	_, err := f.engine.CreateSession(f.ctx, app.Setup{
		Organizers: []app.PersonSetup{{ID: organizer}},
		Teams:      []app.TeamSetup{{ID: "red"}},
		Rounds:     []app.RoundSetup{round("r1", domain.RoundMixed, domain.Rewards{}, "missing")},
	})
	if !errors.Is(err, domain.ErrContentNotFound) {
		t.Fatalf("expected ErrContentNotFound, got %v", err)
	}

	_, err = f.engine.CreateSession(f.ctx, app.Setup{
		ScorePolicy: "bogus",
		Organizers:  []app.PersonSetup{{ID: organizer}},
		Teams:       []app.TeamSetup{{ID: "red"}},
	})
	f.rejected(err, domain.RejectInvalidArgument)
}

func TestJoinMovesPlayerBetweenTeams(t *testing.T) {
	f := newBareFixture(t)
	f.create(domain.PolicyRanking, nil, nil)

	p, err := f.engine.Join(f.ctx, sessionID, app.JoinRequest{ParticipantID: player("red"), Name: "Red", TeamID: "blue"})
	f.ok(err)
	if p.TeamID != "blue" {
		t.Fatalf("expected blue, got %+v", p)
	}
	red := load[domain.Team](f, store.TeamPath(sessionID, "red"))
	blue := load[domain.Team](f, store.TeamPath(sessionID, "blue"))
	if len(red.PlayerIDs) != 0 || len(blue.PlayerIDs) != 2 {
		t.Fatalf("unexpected teams red=%v blue=%v", red.PlayerIDs, blue.PlayerIDs)
	}
	ready := load[domain.Ready](f, store.RealtimePath(sessionID, store.RealtimeReady))
	if ready.NumPlayers != 3 {
		t.Fatalf("moving must not count a new player, got %d", ready.NumPlayers)
	}

	_, err = f.engine.Join(f.ctx, sessionID, app.JoinRequest{Name: "Ghost", TeamID: "purple"})
	if !errors.Is(err, domain.ErrTeamNotFound) {
		t.Fatalf("expected ErrTeamNotFound, got %v", err)
	}
}

func TestSetReadyCountsPlayers(t *testing.T) {
	f := newBareFixture(t)
	f.create(domain.PolicyRanking, nil, nil)

	f.ok(f.engine.SetReady(f.ctx, f.as(player("red"), "", ""), true))
	f.ok(f.engine.SetReady(f.ctx, f.as(player("red"), "", ""), true))
	f.ok(f.engine.SetReady(f.ctx, f.as(player("blue"), "", ""), true))

	ready := load[domain.Ready](f, store.RealtimePath(sessionID, store.RealtimeReady))
	if ready.NumReady != 2 {
		t.Fatalf("expected 2 ready, got %+v", ready)
	}
	p := load[domain.Participant](f, store.PlayerPath(sessionID, player("red")))
	if p.Status != domain.PlayerReady {
		t.Fatalf("expected ready status, got %s", p.Status)
	}

	f.rejected(f.engine.SetReady(f.ctx, f.org(), true), domain.RejectForbidden)
}

func TestNoDoubleCountingUnderRetry(t *testing.T) {
	var (
		f      *fixture
		armed  bool
		mu     sync.Mutex
		forced int
	)
	f = newFixture(t, domain.PolicyRanking,
		[]app.RoundSetup{round("r1", domain.RoundType(domain.TypeMCQ), domain.Rewards{Reward: 2}, "q1")},
		[]domain.BaseQuestion{mcq("q1")},
		memory.WithBeforeCommit(func(attempt int) {
			mu.Lock()
			fire := armed && attempt == 0
			armed = false
			mu.Unlock()
			if !fire {
				return
			}
			// A concurrent writer touches the session between read and commit.
			s, _, _ := store.Get[domain.Session](context.Background(), f.store, store.SessionPath(sessionID))
			if err := f.store.Put(context.Background(), store.SessionPath(sessionID), s); err != nil {
				t.Errorf("concurrent put: %v", err)
			}
			forced++
		}),
	)
	f.startQuestion("r1")
	acting := f.live("r1", "q1").TeamID
	before := f.effects().Seq

	mu.Lock()
	armed = true
	mu.Unlock()
	f.ok(f.engine.SelectChoice(f.ctx, f.as(player(acting), "r1", "q1"), 1))

	if forced != 1 {
		t.Fatalf("expected one forced conflict, got %d", forced)
	}
	if got := f.gameScores().Scores[acting]; got != 2 {
		t.Fatalf("expected a single award of 2, got %d", got)
	}
	if got := f.roundScores("r1").Scores[acting]; got != 2 {
		t.Fatalf("expected round score 2, got %d", got)
	}
	// correct_answer and question_end
	if got := f.effects().Seq - before; got != 2 {
		t.Fatalf("expected 2 effects, got %d", got)
	}
	if got := f.events.count(app.ActionSelectChoice); got != 1 {
		t.Fatalf("expected the action archived once, got %d", got)
	}
}

func TestDispatchRoutesActions(t *testing.T) {
	f := newFixture(t, domain.PolicyRanking,
		[]app.RoundSetup{round("r1", domain.RoundType(domain.TypeMCQ), domain.Rewards{}, "q1")},
		[]domain.BaseQuestion{mcq("q1")},
	)
	f.ok(f.engine.Dispatch(f.ctx, app.Action{Ref: f.orgAt("r1", ""), Name: app.ActionStartRound}))
	f.ok(f.engine.Dispatch(f.ctx, app.Action{Ref: f.orgAt("r1", ""), Name: app.ActionStartNextQuestion}))
	acting := f.live("r1", "q1").TeamID

	err := f.engine.Dispatch(f.ctx, app.Action{Ref: f.as(player(acting), "r1", "q1"), Name: app.ActionSelectChoice})
	f.rejected(err, domain.RejectInvalidArgument)

	err = f.engine.Dispatch(f.ctx, app.Action{Ref: f.as(player(acting), "r1", "q1"), Name: app.ActionSelectProposal, Args: app.Args{Idx: intp(0)}})
	f.rejected(err, domain.RejectInvalidState)

	err = f.engine.Dispatch(f.ctx, app.Action{Ref: f.org(), Name: "launchRockets"})
	f.rejected(err, domain.RejectInvalidArgument)

	f.ok(f.engine.Dispatch(f.ctx, app.Action{Ref: f.as(player(acting), "r1", "q1"), Name: app.ActionSelectChoice, Args: app.Args{Idx: intp(1)}}))
	if !f.live("r1", "q1").Ended() {
		t.Fatalf("expected question to end")
	}
}

func TestSnapshotStaysInsideSession(t *testing.T) {
	f := newFixture(t, domain.PolicyRanking, nil, nil)

	raw, ok, err := f.engine.Snapshot(f.ctx, sessionID, store.SessionPath(sessionID))
	if err != nil || !ok || len(raw) == 0 {
		t.Fatalf("expected session snapshot, got ok=%v err=%v", ok, err)
	}
	_, _, err = f.engine.Snapshot(f.ctx, sessionID, store.SessionPath("other"))
	f.rejected(err, domain.RejectInvalidArgument)
}
