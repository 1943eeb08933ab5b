package app

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gameshow-service/internal/domain"
	"gameshow-service/internal/repo"
	"gameshow-service/internal/store"
)

type doc uint16

const (
	docSession doc = 1 << iota
	docRound
	docLive
	docChooser
	docTimer
	docGameScores
	docRoundScores
	docEffects
)

// turn is the working set of one transaction attempt. Documents are loaded
// lazily, mutated in place and staged together by flush.
type turn struct {
	ctx  context.Context
	e    *Engine
	tx   store.Tx
	repo *repo.Session
	ref  Ref
	now  time.Time

	session *domain.Session
	round   *domain.Round
	base    domain.BaseQuestion
	live    *domain.LiveQuestion
	proto   protocol

	chooser     *domain.Chooser
	timer       *domain.Timer
	gameScores  *domain.Scores
	roundScores *domain.Scores
	effects     *domain.Effects
	players     map[string]*domain.Participant

	dirty        doc
	dirtyPlayers map[string]bool
	// wrote is set by callers that stage writes through repo directly.
	wrote bool
}

func (e *Engine) newTurn(ctx context.Context, tx store.Tx, ref Ref) *turn {
	return &turn{
		ctx:          ctx,
		e:            e,
		tx:           tx,
		repo:         repo.New(tx, ref.SessionID),
		ref:          ref,
		now:          e.now().UTC(),
		players:      make(map[string]*domain.Participant),
		dirtyPlayers: make(map[string]bool),
	}
}

func (t *turn) mark(d doc) {
	t.dirty |= d
}

// flush stages every modified document and reports whether anything changed.
func (t *turn) flush() (bool, error) {
	if t.dirty&docSession != 0 {
		t.session.UpdatedAt = t.now
		if err := t.repo.SaveSession(t.session); err != nil {
			return false, err
		}
	}
	if t.dirty&docRound != 0 {
		if err := t.repo.SaveRound(t.round); err != nil {
			return false, err
		}
	}
	if t.dirty&docLive != 0 {
		if err := t.repo.SaveQuestion(t.live); err != nil {
			return false, err
		}
	}
	if t.dirty&docChooser != 0 {
		if err := t.repo.SaveChooser(t.chooser); err != nil {
			return false, err
		}
	}
	if t.dirty&docTimer != 0 {
		if err := t.repo.SaveTimer(t.timer); err != nil {
			return false, err
		}
	}
	if t.dirty&docGameScores != 0 {
		if err := t.repo.SaveGameScores(t.gameScores); err != nil {
			return false, err
		}
	}
	if t.dirty&docRoundScores != 0 {
		if err := t.repo.SaveRoundScores(t.round.ID, t.roundScores); err != nil {
			return false, err
		}
	}
	if t.dirty&docEffects != 0 {
		if err := t.repo.SaveEffects(t.effects); err != nil {
			return false, err
		}
	}
	ids := make([]string, 0, len(t.dirtyPlayers))
	for id := range t.dirtyPlayers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := t.repo.SaveParticipant(t.players[id]); err != nil {
			return false, err
		}
	}
	return t.dirty != 0 || len(ids) > 0 || t.wrote, nil
}

func (t *turn) loadSession() error {
	s, err := t.repo.Session()
	if err != nil {
		return err
	}
	t.session = s
	return nil
}

func (t *turn) loadRound(roundID string) error {
	if !t.session.HasRound(roundID) {
		return fmt.Errorf("round %s of session %s: %w", roundID, t.session.ID, domain.ErrRoundNotFound)
	}
	r, err := t.repo.Round(roundID)
	if err != nil {
		return err
	}
	t.round = r
	return nil
}

func (t *turn) loadQuestion(roundID string, base domain.BaseQuestion) error {
	if err := t.loadRound(roundID); err != nil {
		return err
	}
	if t.round.QuestionIndex(base.ID) < 0 {
		return fmt.Errorf("question %s of round %s: %w", base.ID, roundID, domain.ErrQuestionNotFound)
	}
	live, err := t.repo.Question(roundID, base.ID)
	if err != nil {
		return err
	}
	p, err := protocolFor(base.Type)
	if err != nil {
		return err
	}
	t.base = base
	t.live = live
	t.proto = p
	return nil
}

// rewards returns the round configuration with per-type defaults applied.
func (t *turn) rewards() domain.Rewards {
	return withDefaults(t.round.Rewards)
}

func (t *turn) participant(id string) (*domain.Participant, error) {
	if p, ok := t.players[id]; ok {
		return p, nil
	}
	p, err := t.repo.Participant(id)
	if err != nil {
		return nil, err
	}
	t.players[id] = p
	return p, nil
}

func (t *turn) setStatus(playerID string, status domain.PlayerStatus) error {
	p, err := t.participant(playerID)
	if err != nil {
		return err
	}
	if p.Status != status {
		p.Status = status
		t.dirtyPlayers[p.ID] = true
	}
	return nil
}

// resetPlayers sets every player idle, or focus for members of focusTeam.
func (t *turn) resetPlayers(focusTeam string) error {
	for _, teamID := range t.session.TeamIDs {
		team, err := t.repo.Team(teamID)
		if err != nil {
			return err
		}
		status := domain.PlayerIdle
		if teamID == focusTeam && focusTeam != "" {
			status = domain.PlayerFocus
		}
		for _, pid := range team.PlayerIDs {
			if err := t.setStatus(pid, status); err != nil {
				return err
			}
		}
	}
	return nil
}

func (t *turn) requireOrganizer() error {
	if !t.session.IsOrganizer(t.ref.ActorID) {
		return domain.Reject(domain.RejectForbidden, "%q is not an organizer of session %s", t.ref.ActorID, t.session.ID)
	}
	return nil
}

// requirePlayer returns the acting participant when it is a player with a team.
func (t *turn) requirePlayer() (*domain.Participant, error) {
	p, err := t.participant(t.ref.ActorID)
	if err != nil {
		return nil, err
	}
	if p.Role != domain.RolePlayer || p.TeamID == "" {
		return nil, domain.Reject(domain.RejectForbidden, "%q is not a player", p.ID)
	}
	return p, nil
}

// requireActive rejects actions on questions that are not being played.
func (t *turn) requireActive() error {
	switch t.live.Status {
	case domain.LiveEnded:
		return domain.Reject(domain.RejectAlreadyResolved, "question %s has ended", t.live.ID)
	case domain.LiveIdle:
		return domain.Reject(domain.RejectInvalidState, "question %s has not started", t.live.ID)
	}
	if t.session.CurrentQuestion != t.live.ID || t.session.Status != domain.StatusQuestionActive {
		return domain.Reject(domain.RejectInvalidState, "question %s is not the current question", t.live.ID)
	}
	return nil
}

// requireAuthorized rejects player actions while the organizer holds the timer.
func (t *turn) requireAuthorized() error {
	tm, err := t.loadTimer()
	if err != nil {
		return err
	}
	if !tm.Authorized {
		return domain.Reject(domain.RejectInvalidState, "player actions are not authorized")
	}
	return nil
}

// actingPlayer checks that the actor is a player of the acting team on an
// active question and returns it.
func (t *turn) actingPlayer() (*domain.Participant, error) {
	if err := t.requireActive(); err != nil {
		return nil, err
	}
	p, err := t.requirePlayer()
	if err != nil {
		return nil, err
	}
	if p.TeamID != t.live.TeamID {
		return nil, domain.Reject(domain.RejectWrongTurn, "team %s is not the acting team", p.TeamID)
	}
	if err := t.requireAuthorized(); err != nil {
		return nil, err
	}
	return p, nil
}

// teamOf returns the team id of a participant, "" when unknown.
func (t *turn) teamOf(playerID string) string {
	p, err := t.participant(playerID)
	if err != nil {
		return ""
	}
	return p.TeamID
}
