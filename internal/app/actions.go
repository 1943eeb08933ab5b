package app

import (
	"context"

	"gameshow-service/internal/domain"
)

// Action names, as archived and as accepted by Dispatch.
const (
	ActionCreateSession     = "createSession"
	ActionJoin              = "join"
	ActionSetReady          = "setReady"
	ActionStartGame         = "startGame"
	ActionResetGame         = "resetGame"
	ActionReturnToGameHome  = "returnToGameHome"
	ActionStartFinale       = "startFinale"
	ActionEndGame           = "endGame"
	ActionStartRound        = "startRound"
	ActionStartNextQuestion = "startNextQuestion"
	ActionEndRound          = "endRound"
	ActionResetRound        = "resetRound"
	ActionResetQuestion     = "resetQuestion"
	ActionEndQuestion       = "endQuestion"
	ActionCountdownTimeout  = "handleCountdownTimeout"
	ActionResetTimer        = "resetTimer"
	ActionStartTimer        = "startTimer"
	ActionPauseTimer        = "pauseTimer"
	ActionAuthorizeTimer    = "authorizeTimer"

	ActionSelectOption           = "selectOption"
	ActionSelectChoice           = "selectChoice"
	ActionValidateHiddenAnswer   = "validateHiddenAnswer"
	ActionValidateAnswer         = "validateAnswer"
	ActionAddPlayerToBuzzer      = "addPlayerToBuzzer"
	ActionRemovePlayerFromBuzzer = "removePlayerFromBuzzer"
	ActionValidateHeadBuzzer     = "validateHeadBuzzer"
	ActionInvalidateHeadBuzzer   = "invalidateHeadBuzzer"
	ActionRevealClue             = "revealClue"
	ActionRevealElement          = "revealElement"
	ActionValidateAllElements    = "validateAllElements"
	ActionRevealLabel            = "revealLabel"
	ActionValidateAllLabels      = "validateAllLabels"
	ActionPlaceBid               = "placeBid"
	ActionEndReflection          = "endReflection"
	ActionValidateItem           = "validateItem"
	ActionEndChallenge           = "endChallenge"
	ActionSelectProposal         = "selectProposal"
	ActionSubmitMatch            = "submitMatch"
)

// Args carries the arguments of every dispatchable action. Only the fields an
// action reads need to be set.
type Args struct {
	Idx        *int   `json:"idx,omitempty"`
	Option     string `json:"option,omitempty"`
	Key        string `json:"key,omitempty"`
	Correct    *bool  `json:"correct,omitempty"`
	Bid        *int   `json:"bid,omitempty"`
	Rows       []int  `json:"rows,omitempty"`
	Duration   *int   `json:"duration,omitempty"`
	Authorized *bool  `json:"authorized,omitempty"`
	Ready      *bool  `json:"ready,omitempty"`
	TimerSeq   int64  `json:"timerSeq,omitempty"`
}

// Action is one named command addressed to a session.
type Action struct {
	Ref
	Name string `json:"action"`
	Args Args   `json:"args"`
}

// Dispatch routes a named action to its engine method.
func (e *Engine) Dispatch(ctx context.Context, a Action) error {
	ref := a.Ref
	switch a.Name {
	case ActionSetReady:
		ready, err := requireBool(a.Name, "ready", a.Args.Ready)
		if err != nil {
			return err
		}
		return e.SetReady(ctx, ref, ready)
	case ActionStartGame:
		return e.StartGame(ctx, ref)
	case ActionResetGame:
		return e.ResetGame(ctx, ref)
	case ActionReturnToGameHome:
		return e.ReturnToGameHome(ctx, ref)
	case ActionStartFinale:
		return e.StartFinale(ctx, ref)
	case ActionEndGame:
		return e.EndGame(ctx, ref)
	case ActionStartRound:
		return e.StartRound(ctx, ref)
	case ActionStartNextQuestion:
		return e.StartNextQuestion(ctx, ref)
	case ActionEndRound:
		return e.EndRound(ctx, ref)
	case ActionResetRound:
		return e.ResetRound(ctx, ref)
	case ActionResetQuestion:
		return e.ResetQuestion(ctx, ref)
	case ActionEndQuestion:
		return e.EndQuestion(ctx, ref)
	case ActionCountdownTimeout:
		return e.HandleCountdownTimeout(ctx, ref, a.Args.TimerSeq)
	case ActionResetTimer:
		d, err := requireInt(a.Name, "duration", a.Args.Duration)
		if err != nil {
			return err
		}
		return e.ResetTimer(ctx, ref, d)
	case ActionStartTimer:
		return e.StartTimer(ctx, ref)
	case ActionPauseTimer:
		return e.PauseTimer(ctx, ref)
	case ActionAuthorizeTimer:
		v, err := requireBool(a.Name, "authorized", a.Args.Authorized)
		if err != nil {
			return err
		}
		return e.AuthorizeTimer(ctx, ref, v)

	case ActionSelectOption:
		return e.SelectOption(ctx, ref, a.Args.Option)
	case ActionSelectChoice:
		idx, err := requireInt(a.Name, "idx", a.Args.Idx)
		if err != nil {
			return err
		}
		return e.SelectChoice(ctx, ref, idx)
	case ActionValidateHiddenAnswer:
		v, err := requireBool(a.Name, "correct", a.Args.Correct)
		if err != nil {
			return err
		}
		return e.ValidateHiddenAnswer(ctx, ref, v)
	case ActionValidateAnswer:
		v, err := requireBool(a.Name, "correct", a.Args.Correct)
		if err != nil {
			return err
		}
		return e.ValidateAnswer(ctx, ref, v)
	case ActionAddPlayerToBuzzer:
		return e.AddPlayerToBuzzer(ctx, ref)
	case ActionRemovePlayerFromBuzzer:
		return e.RemovePlayerFromBuzzer(ctx, ref)
	case ActionValidateHeadBuzzer:
		return e.ValidateHeadBuzzer(ctx, ref)
	case ActionInvalidateHeadBuzzer:
		return e.InvalidateHeadBuzzer(ctx, ref)
	case ActionRevealClue:
		return e.RevealClue(ctx, ref)
	case ActionRevealElement:
		return e.RevealElement(ctx, ref, a.Args.Key)
	case ActionValidateAllElements:
		return e.ValidateAllElements(ctx, ref)
	case ActionRevealLabel:
		idx, err := requireInt(a.Name, "idx", a.Args.Idx)
		if err != nil {
			return err
		}
		return e.RevealLabel(ctx, ref, idx)
	case ActionValidateAllLabels:
		return e.ValidateAllLabels(ctx, ref)
	case ActionPlaceBid:
		bid, err := requireInt(a.Name, "bid", a.Args.Bid)
		if err != nil {
			return err
		}
		return e.PlaceBid(ctx, ref, bid)
	case ActionEndReflection:
		return e.EndReflection(ctx, ref)
	case ActionValidateItem:
		idx, err := requireInt(a.Name, "idx", a.Args.Idx)
		if err != nil {
			return err
		}
		return e.ValidateItem(ctx, ref, idx)
	case ActionEndChallenge:
		return e.EndChallenge(ctx, ref)
	case ActionSelectProposal:
		idx, err := requireInt(a.Name, "idx", a.Args.Idx)
		if err != nil {
			return err
		}
		return e.SelectProposal(ctx, ref, idx)
	case ActionSubmitMatch:
		return e.SubmitMatch(ctx, ref, a.Args.Rows)
	}
	return domain.Reject(domain.RejectInvalidArgument, "unknown action %q", a.Name)
}

func requireInt(action, name string, v *int) (int, error) {
	if v == nil {
		return 0, domain.Reject(domain.RejectInvalidArgument, "%s needs %s", action, name)
	}
	return *v, nil
}

func requireBool(action, name string, v *bool) (bool, error) {
	if v == nil {
		return false, domain.Reject(domain.RejectInvalidArgument, "%s needs %s", action, name)
	}
	return *v, nil
}

// as returns the loaded protocol as P, or rejects the action for question
// types that do not support it.
func as[P any](t *turn, action string) (P, error) {
	p, ok := t.proto.(P)
	if !ok {
		var zero P
		return zero, domain.Reject(domain.RejectInvalidState, "%s is not supported by %s questions", action, t.base.Type)
	}
	return p, nil
}

type choiceSelector interface {
	SelectChoice(t *turn, idx int) error
}

type buzzer interface {
	AddPlayerToBuzzer(t *turn) error
	RemovePlayerFromBuzzer(t *turn) error
	InvalidateHeadBuzzer(t *turn) error
}

func (e *Engine) SelectOption(ctx context.Context, ref Ref, option string) error {
	return e.runQuestion(ctx, ActionSelectOption, ref, func(t *turn) error {
		p, err := as[naguiProtocol](t, ActionSelectOption)
		if err != nil {
			return err
		}
		return p.SelectOption(t, option)
	})
}

// SelectChoice answers an mcq, or a nagui question in square or duo.
func (e *Engine) SelectChoice(ctx context.Context, ref Ref, idx int) error {
	return e.runQuestion(ctx, ActionSelectChoice, ref, func(t *turn) error {
		p, err := as[choiceSelector](t, ActionSelectChoice)
		if err != nil {
			return err
		}
		return p.SelectChoice(t, idx)
	})
}

func (e *Engine) ValidateHiddenAnswer(ctx context.Context, ref Ref, correct bool) error {
	return e.runQuestion(ctx, ActionValidateHiddenAnswer, ref, func(t *turn) error {
		p, err := as[naguiProtocol](t, ActionValidateHiddenAnswer)
		if err != nil {
			return err
		}
		return p.ValidateHiddenAnswer(t, correct)
	})
}

func (e *Engine) ValidateAnswer(ctx context.Context, ref Ref, correct bool) error {
	return e.runQuestion(ctx, ActionValidateAnswer, ref, func(t *turn) error {
		p, err := as[basicProtocol](t, ActionValidateAnswer)
		if err != nil {
			return err
		}
		return p.ValidateAnswer(t, correct)
	})
}

// AddPlayerToBuzzer queues the acting player. Concurrent buzzes are ordered
// by commit.
func (e *Engine) AddPlayerToBuzzer(ctx context.Context, ref Ref) error {
	return e.runQuestion(ctx, ActionAddPlayerToBuzzer, ref, func(t *turn) error {
		p, err := as[buzzer](t, ActionAddPlayerToBuzzer)
		if err != nil {
			return err
		}
		return p.AddPlayerToBuzzer(t)
	})
}

func (e *Engine) RemovePlayerFromBuzzer(ctx context.Context, ref Ref) error {
	return e.runQuestion(ctx, ActionRemovePlayerFromBuzzer, ref, func(t *turn) error {
		p, err := as[buzzer](t, ActionRemovePlayerFromBuzzer)
		if err != nil {
			return err
		}
		return p.RemovePlayerFromBuzzer(t)
	})
}

func (e *Engine) InvalidateHeadBuzzer(ctx context.Context, ref Ref) error {
	return e.runQuestion(ctx, ActionInvalidateHeadBuzzer, ref, func(t *turn) error {
		p, err := as[buzzer](t, ActionInvalidateHeadBuzzer)
		if err != nil {
			return err
		}
		return p.InvalidateHeadBuzzer(t)
	})
}

func (e *Engine) ValidateHeadBuzzer(ctx context.Context, ref Ref) error {
	return e.runQuestion(ctx, ActionValidateHeadBuzzer, ref, func(t *turn) error {
		p, err := as[riddleProtocol](t, ActionValidateHeadBuzzer)
		if err != nil {
			return err
		}
		return p.ValidateHeadBuzzer(t)
	})
}

func (e *Engine) RevealClue(ctx context.Context, ref Ref) error {
	return e.runQuestion(ctx, ActionRevealClue, ref, func(t *turn) error {
		p, err := as[riddleProtocol](t, ActionRevealClue)
		if err != nil {
			return err
		}
		return p.RevealClue(t)
	})
}

func (e *Engine) RevealElement(ctx context.Context, ref Ref, key string) error {
	return e.runQuestion(ctx, ActionRevealElement, ref, func(t *turn) error {
		p, err := as[quoteProtocol](t, ActionRevealElement)
		if err != nil {
			return err
		}
		return p.RevealElement(t, key)
	})
}

func (e *Engine) ValidateAllElements(ctx context.Context, ref Ref) error {
	return e.runQuestion(ctx, ActionValidateAllElements, ref, func(t *turn) error {
		p, err := as[quoteProtocol](t, ActionValidateAllElements)
		if err != nil {
			return err
		}
		return p.ValidateAllElements(t)
	})
}

func (e *Engine) RevealLabel(ctx context.Context, ref Ref, idx int) error {
	return e.runQuestion(ctx, ActionRevealLabel, ref, func(t *turn) error {
		p, err := as[labellingProtocol](t, ActionRevealLabel)
		if err != nil {
			return err
		}
		return p.RevealLabel(t, idx)
	})
}

func (e *Engine) ValidateAllLabels(ctx context.Context, ref Ref) error {
	return e.runQuestion(ctx, ActionValidateAllLabels, ref, func(t *turn) error {
		p, err := as[labellingProtocol](t, ActionValidateAllLabels)
		if err != nil {
			return err
		}
		return p.ValidateAllLabels(t)
	})
}

func (e *Engine) PlaceBid(ctx context.Context, ref Ref, bid int) error {
	return e.runQuestion(ctx, ActionPlaceBid, ref, func(t *turn) error {
		p, err := as[enumerationProtocol](t, ActionPlaceBid)
		if err != nil {
			return err
		}
		return p.PlaceBid(t, bid)
	})
}

func (e *Engine) EndReflection(ctx context.Context, ref Ref) error {
	return e.runQuestion(ctx, ActionEndReflection, ref, func(t *turn) error {
		p, err := as[enumerationProtocol](t, ActionEndReflection)
		if err != nil {
			return err
		}
		return p.EndReflection(t)
	})
}

func (e *Engine) ValidateItem(ctx context.Context, ref Ref, idx int) error {
	return e.runQuestion(ctx, ActionValidateItem, ref, func(t *turn) error {
		p, err := as[enumerationProtocol](t, ActionValidateItem)
		if err != nil {
			return err
		}
		return p.ValidateItem(t, idx)
	})
}

func (e *Engine) EndChallenge(ctx context.Context, ref Ref) error {
	return e.runQuestion(ctx, ActionEndChallenge, ref, func(t *turn) error {
		p, err := as[enumerationProtocol](t, ActionEndChallenge)
		if err != nil {
			return err
		}
		return p.EndChallenge(t)
	})
}

func (e *Engine) SelectProposal(ctx context.Context, ref Ref, idx int) error {
	return e.runQuestion(ctx, ActionSelectProposal, ref, func(t *turn) error {
		p, err := as[oddOneOutProtocol](t, ActionSelectProposal)
		if err != nil {
			return err
		}
		return p.SelectProposal(t, idx)
	})
}

func (e *Engine) SubmitMatch(ctx context.Context, ref Ref, rows []int) error {
	return e.runQuestion(ctx, ActionSubmitMatch, ref, func(t *turn) error {
		p, err := as[matchingProtocol](t, ActionSubmitMatch)
		if err != nil {
			return err
		}
		return p.SubmitMatch(t, rows)
	})
}
