package app

import (
	"context"

	"gameshow-service/internal/domain"
)

// StartGame opens the game: the chooser is shuffled, scores are zeroed and the
// session goes to the game home.
func (e *Engine) StartGame(ctx context.Context, ref Ref) error {
	return e.runSession(ctx, ActionStartGame, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		switch t.session.Status {
		case domain.StatusNotStarted:
		case domain.StatusGameEnd:
			return domain.Reject(domain.RejectInvalidState, "the game has ended")
		default:
			return domain.Reject(domain.RejectAlreadyDone, "the game has already started")
		}
		if err := t.seedChooser(true); err != nil {
			return err
		}
		t.gameScores = domain.NewScores(t.session.TeamIDs)
		t.mark(docGameScores)

		t.session.Status = domain.StatusGameHome
		t.session.DateStart = &t.now
		t.mark(docSession)

		if err := t.resetTimer(0, false); err != nil {
			return err
		}
		if err := t.resetPlayers(""); err != nil {
			return err
		}
		return t.effect(domain.EffectGameStart, "", "")
	})
}

// ResetGame wipes every round back to pristine, zeroes the scores and
// reshuffles the chooser.
func (e *Engine) ResetGame(ctx context.Context, ref Ref) error {
	return e.runSession(ctx, ActionResetGame, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		if t.session.Status == domain.StatusGameEnd {
			return domain.Reject(domain.RejectInvalidState, "the game has ended")
		}
		for _, rid := range t.session.RoundIDs {
			r, err := t.repo.Round(rid)
			if err != nil {
				return err
			}
			t.pristineRound(r, true)
			if err := t.repo.SaveRound(r); err != nil {
				return err
			}
		}
		if err := t.seedChooser(true); err != nil {
			return err
		}
		t.gameScores = domain.NewScores(t.session.TeamIDs)
		t.mark(docGameScores)

		t.session.Status = domain.StatusGameHome
		t.session.CurrentRound = ""
		t.session.CurrentQuestion = ""
		t.session.DateEnd = nil
		if t.session.DateStart == nil {
			t.session.DateStart = &t.now
		}
		t.mark(docSession)

		if err := t.resetTimer(0, false); err != nil {
			return err
		}
		return t.resetPlayers("")
	})
}

// ReturnToGameHome goes back to round selection. Leaving a round before it
// ended keeps it in progress so that it can be resumed.
func (e *Engine) ReturnToGameHome(ctx context.Context, ref Ref) error {
	return e.runSession(ctx, ActionReturnToGameHome, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		switch {
		case t.session.Status == domain.StatusGameHome:
			return domain.Reject(domain.RejectAlreadyDone, "already at game home")
		case t.session.Status == domain.StatusRoundEnd,
			t.session.Status == domain.StatusFinale,
			t.session.Status.InRound():
		default:
			return domain.Reject(domain.RejectInvalidState, "cannot return home from %s", t.session.Status)
		}
		t.session.Status = domain.StatusGameHome
		t.session.CurrentRound = ""
		t.session.CurrentQuestion = ""
		t.mark(docSession)
		if err := t.resetTimer(0, false); err != nil {
			return err
		}
		return t.resetPlayers("")
	})
}

// StartFinale moves the session to the finale.
func (e *Engine) StartFinale(ctx context.Context, ref Ref) error {
	return e.runSession(ctx, ActionStartFinale, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		switch t.session.Status {
		case domain.StatusGameHome, domain.StatusRoundEnd:
		case domain.StatusFinale:
			return domain.Reject(domain.RejectAlreadyDone, "the finale has started")
		default:
			return domain.Reject(domain.RejectInvalidState, "cannot start the finale from %s", t.session.Status)
		}
		t.session.Status = domain.StatusFinale
		t.session.CurrentRound = ""
		t.session.CurrentQuestion = ""
		t.mark(docSession)
		return t.resetTimer(0, false)
	})
}

// EndGame ends the session. Ending an ended game is a no-op.
func (e *Engine) EndGame(ctx context.Context, ref Ref) error {
	return e.runSession(ctx, ActionEndGame, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		switch t.session.Status {
		case domain.StatusGameEnd:
			return nil
		case domain.StatusNotStarted:
			return domain.Reject(domain.RejectInvalidState, "the game has not started")
		}
		t.session.Status = domain.StatusGameEnd
		t.session.DateEnd = &t.now
		t.mark(docSession)
		if err := t.endTimer(); err != nil {
			return err
		}
		if err := t.resetPlayers(""); err != nil {
			return err
		}
		return t.effect(domain.EffectGameEnd, "", "")
	})
}
