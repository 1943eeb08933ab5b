package app

import (
	"context"

	"gameshow-service/internal/domain"
)

func (t *turn) loadTimer() (*domain.Timer, error) {
	if t.timer != nil {
		return t.timer, nil
	}
	tm, err := t.repo.Timer()
	if err != nil {
		return nil, err
	}
	if tm.Status == "" {
		tm.Status = domain.TimerReset
	}
	t.timer = tm
	return tm, nil
}

func (t *turn) setTimer(status domain.TimerStatus, fn func(tm *domain.Timer)) error {
	tm, err := t.loadTimer()
	if err != nil {
		return err
	}
	tm.Status = status
	if fn != nil {
		fn(tm)
	}
	tm.Seq++
	tm.UpdatedAt = t.now
	t.mark(docTimer)
	return nil
}

// resetTimer arms a countdown of duration seconds without starting it.
func (t *turn) resetTimer(duration int, authorized bool) error {
	return t.setTimer(domain.TimerReset, func(tm *domain.Timer) {
		tm.Duration = duration
		tm.Forward = false
		tm.Authorized = authorized
	})
}

// restartTimer re-arms a countdown and keeps it running.
func (t *turn) restartTimer(duration int) error {
	return t.setTimer(domain.TimerStart, func(tm *domain.Timer) {
		tm.Duration = duration
		tm.Forward = false
	})
}

func (t *turn) endTimer() error {
	tm, err := t.loadTimer()
	if err != nil {
		return err
	}
	if tm.Status == domain.TimerEnd {
		return nil
	}
	return t.setTimer(domain.TimerEnd, func(tm *domain.Timer) {
		tm.Authorized = false
	})
}

// ResetTimer re-arms the countdown with duration seconds.
func (e *Engine) ResetTimer(ctx context.Context, ref Ref, duration int) error {
	return e.runSession(ctx, ActionResetTimer, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		if duration < 0 {
			return domain.Reject(domain.RejectInvalidArgument, "negative duration %d", duration)
		}
		return t.setTimer(domain.TimerReset, func(tm *domain.Timer) {
			tm.Duration = duration
			tm.ManagedBy = t.ref.ActorID
		})
	})
}

// StartTimer starts or resumes the countdown.
func (e *Engine) StartTimer(ctx context.Context, ref Ref) error {
	return e.runSession(ctx, ActionStartTimer, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		tm, err := t.loadTimer()
		if err != nil {
			return err
		}
		switch tm.Status {
		case domain.TimerStart:
			return domain.Reject(domain.RejectAlreadyDone, "timer already running")
		case domain.TimerEnd:
			return domain.Reject(domain.RejectInvalidState, "timer has ended")
		}
		if err := t.setTimer(domain.TimerStart, func(tm *domain.Timer) {
			tm.ManagedBy = t.ref.ActorID
		}); err != nil {
			return err
		}
		return t.effect(domain.EffectTimerStart, "", "")
	})
}

// PauseTimer pauses a running countdown.
func (e *Engine) PauseTimer(ctx context.Context, ref Ref) error {
	return e.runSession(ctx, ActionPauseTimer, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		tm, err := t.loadTimer()
		if err != nil {
			return err
		}
		if tm.Status != domain.TimerStart {
			return domain.Reject(domain.RejectInvalidState, "timer is not running")
		}
		return t.setTimer(domain.TimerPause, func(tm *domain.Timer) {
			tm.ManagedBy = t.ref.ActorID
		})
	})
}

// AuthorizeTimer opens or closes player actions.
func (e *Engine) AuthorizeTimer(ctx context.Context, ref Ref, authorized bool) error {
	return e.runSession(ctx, ActionAuthorizeTimer, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		tm, err := t.loadTimer()
		if err != nil {
			return err
		}
		if tm.Authorized == authorized {
			return nil
		}
		tm.Authorized = authorized
		tm.ManagedBy = t.ref.ActorID
		tm.UpdatedAt = t.now
		t.mark(docTimer)
		return nil
	})
}

// HandleCountdownTimeout applies the question's fallback when its countdown
// expired. Any client may report the expiry; the call is a no-op when the
// question already ended, the timer is not running, or seq is non-zero and
// does not match the timer transition the caller observed.
func (e *Engine) HandleCountdownTimeout(ctx context.Context, ref Ref, seq int64) error {
	return e.runQuestion(ctx, ActionCountdownTimeout, ref, func(t *turn) error {
		if t.live.Status != domain.LiveActive || t.session.CurrentQuestion != t.live.ID {
			return nil
		}
		tm, err := t.loadTimer()
		if err != nil {
			return err
		}
		if tm.Status != domain.TimerStart {
			return nil
		}
		if seq != 0 && seq != tm.Seq {
			return nil
		}
		return t.proto.Timeout(t)
	})
}
