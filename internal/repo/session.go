// Package repo provides typed, session-scoped accessors over the document
// store. A Session handle is bound to one transaction and one session id; it
// is built per call and never cached between calls.
package repo

import (
	"fmt"

	"gameshow-service/internal/domain"
	"gameshow-service/internal/store"
)

// Session reads and stages the documents of one game session.
type Session struct {
	tx store.Tx
	id string
}

// New scopes tx to a session.
func New(tx store.Tx, sessionID string) *Session {
	return &Session{tx: tx, id: sessionID}
}

// ID returns the session id the handle is scoped to.
func (r *Session) ID() string {
	return r.id
}

// get decodes the document at path. A missing document yields missing when
// it is non-nil, or a zero value otherwise.
func get[T any](tx store.Tx, path string, missing error) (*T, error) {
	v, ok, err := store.GetTx[T](tx, path)
	if err != nil {
		return nil, err
	}
	if !ok {
		if missing != nil {
			return nil, fmt.Errorf("%s: %w", path, missing)
		}
		return new(T), nil
	}
	return v, nil
}

func (r *Session) Session() (*domain.Session, error) {
	return get[domain.Session](r.tx, store.SessionPath(r.id), domain.ErrSessionNotFound)
}

func (r *Session) SaveSession(s *domain.Session) error {
	return r.tx.Set(store.SessionPath(r.id), s)
}

func (r *Session) Round(roundID string) (*domain.Round, error) {
	return get[domain.Round](r.tx, store.RoundPath(r.id, roundID), domain.ErrRoundNotFound)
}

func (r *Session) SaveRound(round *domain.Round) error {
	return r.tx.Set(store.RoundPath(r.id, round.ID), round)
}

// Question returns the live record of a question.
func (r *Session) Question(roundID, questionID string) (*domain.LiveQuestion, error) {
	return get[domain.LiveQuestion](r.tx, store.QuestionPath(r.id, roundID, questionID), domain.ErrQuestionNotFound)
}

func (r *Session) SaveQuestion(q *domain.LiveQuestion) error {
	return r.tx.Set(store.QuestionPath(r.id, q.RoundID, q.ID), q)
}

func (r *Session) DeleteQuestion(roundID, questionID string) {
	r.tx.Delete(store.QuestionPath(r.id, roundID, questionID))
}

func (r *Session) Participant(id string) (*domain.Participant, error) {
	return get[domain.Participant](r.tx, store.PlayerPath(r.id, id), domain.ErrParticipantNotFound)
}

// FindParticipant is Participant without the missing-reference error.
func (r *Session) FindParticipant(id string) (*domain.Participant, bool, error) {
	return store.GetTx[domain.Participant](r.tx, store.PlayerPath(r.id, id))
}

func (r *Session) SaveParticipant(p *domain.Participant) error {
	return r.tx.Set(store.PlayerPath(r.id, p.ID), p)
}

func (r *Session) Team(id string) (*domain.Team, error) {
	return get[domain.Team](r.tx, store.TeamPath(r.id, id), domain.ErrTeamNotFound)
}

func (r *Session) SaveTeam(t *domain.Team) error {
	return r.tx.Set(store.TeamPath(r.id, t.ID), t)
}

// Chooser returns the rotation, empty when it was never seeded.
func (r *Session) Chooser() (*domain.Chooser, error) {
	return get[domain.Chooser](r.tx, store.RealtimePath(r.id, store.RealtimeChooser), nil)
}

func (r *Session) SaveChooser(c *domain.Chooser) error {
	return r.tx.Set(store.RealtimePath(r.id, store.RealtimeChooser), c)
}

func (r *Session) Timer() (*domain.Timer, error) {
	return get[domain.Timer](r.tx, store.RealtimePath(r.id, store.RealtimeTimer), nil)
}

func (r *Session) SaveTimer(t *domain.Timer) error {
	return r.tx.Set(store.RealtimePath(r.id, store.RealtimeTimer), t)
}

// GameScores returns the game-scope ledger.
func (r *Session) GameScores() (*domain.Scores, error) {
	s, err := get[domain.Scores](r.tx, store.RealtimePath(r.id, store.RealtimeScores), nil)
	if err != nil {
		return nil, err
	}
	s.Normalize()
	return s, nil
}

func (r *Session) SaveGameScores(s *domain.Scores) error {
	return r.tx.Set(store.RealtimePath(r.id, store.RealtimeScores), s)
}

// RoundScores returns the round-scope ledger.
func (r *Session) RoundScores(roundID string) (*domain.Scores, error) {
	s, err := get[domain.Scores](r.tx, store.RoundScoresPath(r.id, roundID), nil)
	if err != nil {
		return nil, err
	}
	s.Normalize()
	return s, nil
}

func (r *Session) SaveRoundScores(roundID string, s *domain.Scores) error {
	return r.tx.Set(store.RoundScoresPath(r.id, roundID), s)
}

func (r *Session) DeleteRoundScores(roundID string) {
	r.tx.Delete(store.RoundScoresPath(r.id, roundID))
}

func (r *Session) Ready() (*domain.Ready, error) {
	return get[domain.Ready](r.tx, store.RealtimePath(r.id, store.RealtimeReady), nil)
}

func (r *Session) SaveReady(rd *domain.Ready) error {
	return r.tx.Set(store.RealtimePath(r.id, store.RealtimeReady), rd)
}

func (r *Session) Effects() (*domain.Effects, error) {
	return get[domain.Effects](r.tx, store.RealtimePath(r.id, store.RealtimeEffects), nil)
}

func (r *Session) SaveEffects(e *domain.Effects) error {
	return r.tx.Set(store.RealtimePath(r.id, store.RealtimeEffects), e)
}
