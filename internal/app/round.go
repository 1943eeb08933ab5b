package app

import (
	"context"
	"fmt"

	"gameshow-service/internal/domain"
	"gameshow-service/internal/store"
)

// StartRound selects a round. A round in progress is resumed where it was
// left; otherwise it is initialized: order, payout cap, ledger, chooser and
// the live state of every question.
func (e *Engine) StartRound(ctx context.Context, ref Ref) error {
	bases, err := e.loadRoundContent(ctx, ref.SessionID, ref.RoundID)
	if err != nil {
		return err
	}
	return e.runSession(ctx, ActionStartRound, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		switch t.session.Status {
		case domain.StatusGameHome, domain.StatusRoundEnd:
		default:
			return domain.Reject(domain.RejectInvalidState, "cannot start a round from %s", t.session.Status)
		}
		if err := t.loadRound(ref.RoundID); err != nil {
			return err
		}
		if t.round.Played() {
			return domain.Reject(domain.RejectAlreadyDone, "round %s was already played", t.round.ID)
		}
		if t.round.InProgress() {
			return t.resumeRound()
		}
		return t.initRound(bases)
	})
}

// resumeRound re-enters a round in progress without reshuffling anything.
func (t *turn) resumeRound() error {
	t.session.CurrentRound = t.round.ID
	t.session.CurrentQuestion = ""
	t.session.Status = domain.StatusRoundStart
	for _, qid := range t.round.QuestionIDs {
		live, err := t.repo.Question(t.round.ID, qid)
		if err != nil {
			return err
		}
		if live.Status == domain.LiveActive {
			t.session.CurrentQuestion = qid
			t.session.Status = domain.StatusQuestionActive
			break
		}
	}
	if t.session.CurrentQuestion == "" && t.round.CurrentQuestionIdx > 0 {
		t.session.CurrentQuestion = t.round.QuestionIDs[t.round.CurrentQuestionIdx-1]
		t.session.Status = domain.StatusQuestionEnd
	}
	t.mark(docSession)
	return nil
}

func (t *turn) initRound(bases map[string]domain.BaseQuestion) error {
	if t.round.Order == nil {
		order, err := t.nextRoundOrder()
		if err != nil {
			return err
		}
		t.round.Order = &order
	}

	rw := t.rewards()
	maxPoints := 0
	for _, qid := range t.round.QuestionIDs {
		base, ok := bases[qid]
		if !ok {
			return fmt.Errorf("question %s: %w", qid, domain.ErrContentNotFound)
		}
		live, err := newLive(base, t.round.ID, t.e.rnd)
		if err != nil {
			return err
		}
		if err := t.repo.SaveQuestion(live); err != nil {
			return err
		}
		p, _ := protocolFor(base.Type)
		maxPoints += p.MaxPoints(base, rw, len(t.session.TeamIDs))
	}
	t.wrote = true

	t.round.MaxPoints = 0
	if t.session.ScorePolicy == domain.PolicyCompletionRate {
		t.round.MaxPoints = maxPoints
	}
	t.round.DateStart = &t.now
	t.round.DateEnd = nil
	t.round.CurrentQuestionIdx = 0
	t.round.QuestionStatus = []domain.QuestionOutcome{}
	t.mark(docRound)

	t.roundScores = domain.NewScores(t.session.TeamIDs)
	t.mark(docRoundScores)

	if err := t.seedChooser(false); err != nil {
		return err
	}

	t.session.CurrentRound = t.round.ID
	t.session.CurrentQuestion = ""
	t.session.Status = domain.StatusRoundStart
	t.mark(docSession)

	if err := t.resetTimer(0, false); err != nil {
		return err
	}
	if err := t.resetPlayers(""); err != nil {
		return err
	}
	return t.effect(domain.EffectRoundStart, "", "")
}

// nextRoundOrder is the number of rounds already selected in the session.
func (t *turn) nextRoundOrder() (int, error) {
	n := 0
	for _, rid := range t.session.RoundIDs {
		r, err := t.repo.Round(rid)
		if err != nil {
			return 0, err
		}
		if r.Order != nil {
			n++
		}
	}
	return n, nil
}

// StartNextQuestion starts the next question of the current round.
func (e *Engine) StartNextQuestion(ctx context.Context, ref Ref) error {
	round, err := e.peekRound(ctx, ref)
	if err != nil {
		return err
	}
	idx := round.CurrentQuestionIdx
	if idx >= len(round.QuestionIDs) {
		return domain.Reject(domain.RejectAlreadyDone, "round %s has no more questions", round.ID)
	}
	base, err := e.loadContent(ctx, round.QuestionIDs[idx])
	if err != nil {
		return err
	}
	return e.runSession(ctx, ActionStartNextQuestion, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		if err := t.requireCurrentRound(ref.RoundID); err != nil {
			return err
		}
		switch t.session.Status {
		case domain.StatusRoundStart, domain.StatusQuestionEnd:
		default:
			return domain.Reject(domain.RejectInvalidState, "cannot start a question from %s", t.session.Status)
		}
		if err := t.loadQuestion(ref.RoundID, base); err != nil {
			return err
		}
		// The round moved on since it was peeked; the caller retries.
		if t.round.CurrentQuestionIdx != idx {
			return domain.Reject(domain.RejectInvalidState, "round %s advanced concurrently", t.round.ID)
		}
		if t.live.Status != domain.LiveIdle {
			return domain.Reject(domain.RejectAlreadyDone, "question %s was already played", t.live.ID)
		}
		t.ref.QuestionID = t.live.ID
		c, err := t.loadChooser()
		if err != nil {
			return err
		}
		t.live.StartChooser = c.Clone()
		t.mark(docLive)
		return t.proto.PrepareStart(t, idx)
	})
}

// peekRound reads the committed round outside a transaction, to know which
// base content to load.
func (e *Engine) peekRound(ctx context.Context, ref Ref) (*domain.Round, error) {
	round, ok, err := store.Get[domain.Round](ctx, e.store, store.RoundPath(ref.SessionID, ref.RoundID))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("round %s: %w", ref.RoundID, domain.ErrRoundNotFound)
	}
	return round, nil
}

func (t *turn) requireCurrentRound(roundID string) error {
	if t.session.CurrentRound != roundID || !t.session.Status.InRound() {
		return domain.Reject(domain.RejectInvalidState, "round %s is not being played", roundID)
	}
	return nil
}

// EndRound closes the current round and freezes its contribution.
func (e *Engine) EndRound(ctx context.Context, ref Ref) error {
	return e.runSession(ctx, ActionEndRound, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		if err := t.loadRound(ref.RoundID); err != nil {
			return err
		}
		if t.round.Played() {
			return domain.Reject(domain.RejectAlreadyDone, "round %s already ended", t.round.ID)
		}
		if err := t.requireCurrentRound(ref.RoundID); err != nil {
			return err
		}
		if t.session.Status == domain.StatusQuestionActive {
			return domain.Reject(domain.RejectInvalidState, "question %s is still active", t.session.CurrentQuestion)
		}
		t.round.DateEnd = &t.now
		t.mark(docRound)

		gs, err := t.loadGameScores()
		if err != nil {
			return err
		}
		for _, teamID := range t.session.TeamIDs {
			setProgress(gs, t.round.ID, teamID)
		}
		t.mark(docGameScores)

		t.session.Status = domain.StatusRoundEnd
		t.session.CurrentQuestion = ""
		t.mark(docSession)

		if err := t.resetTimer(0, false); err != nil {
			return err
		}
		if err := t.resetPlayers(""); err != nil {
			return err
		}
		return t.effect(domain.EffectRoundEnd, "", "")
	})
}

// ResetRound restores a round to its pristine state and reverts its
// contribution to the game ledger. Its order is kept.
func (e *Engine) ResetRound(ctx context.Context, ref Ref) error {
	return e.runSession(ctx, ActionResetRound, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		if t.session.Status == domain.StatusGameEnd {
			return domain.Reject(domain.RejectInvalidState, "the game has ended")
		}
		if err := t.loadRound(ref.RoundID); err != nil {
			return err
		}
		gs, err := t.loadGameScores()
		if err != nil {
			return err
		}
		revertRound(gs, t.round.ID)
		t.mark(docGameScores)

		t.pristineRound(t.round, false)
		t.mark(docRound)

		if t.session.CurrentRound == t.round.ID {
			if t.session.Status.InRound() || t.session.Status == domain.StatusRoundEnd {
				t.session.Status = domain.StatusGameHome
			}
			t.session.CurrentRound = ""
			t.session.CurrentQuestion = ""
			t.mark(docSession)
			if err := t.resetTimer(0, false); err != nil {
				return err
			}
		}
		return t.resetPlayers("")
	})
}

// pristineRound clears the play state of a round and deletes its live
// questions and ledger; they are rebuilt when the round starts again.
func (t *turn) pristineRound(r *domain.Round, clearOrder bool) {
	if clearOrder {
		r.Order = nil
	}
	r.DateStart = nil
	r.DateEnd = nil
	r.CurrentQuestionIdx = 0
	r.QuestionStatus = []domain.QuestionOutcome{}
	r.MaxPoints = 0
	for _, qid := range r.QuestionIDs {
		t.repo.DeleteQuestion(r.ID, qid)
	}
	t.repo.DeleteRoundScores(r.ID)
	t.wrote = true
}
