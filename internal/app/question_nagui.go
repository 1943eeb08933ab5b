package app

import "gameshow-service/internal/domain"

// naguiProtocol: the acting team first picks how it wants to answer.
//   - hide: answer aloud without seeing the choices, judged by the organizer.
//   - square: pick among all choices.
//   - duo: pick between the answer and one decoy.
//
// Each option pays its own reward.
type naguiProtocol struct{}

func (naguiProtocol) InitialState(q *domain.LiveQuestion, _ domain.BaseQuestion, _ *shuffler) {
	q.Choice = &domain.ChoiceState{}
}

func (naguiProtocol) MaxPoints(_ domain.BaseQuestion, rw domain.Rewards, _ int) int {
	best := 0
	for _, opt := range []string{domain.NaguiHide, domain.NaguiSquare, domain.NaguiDuo} {
		if v := rw.Options[opt]; v > best {
			best = v
		}
	}
	return best
}

func (naguiProtocol) PrepareStart(t *turn, order int) error {
	return t.startChooserTurn(order)
}

func (naguiProtocol) Timeout(t *turn) error {
	return t.endQuestion(outcome{teamID: t.live.TeamID})
}

func (naguiProtocol) SelectOption(t *turn, option string) error {
	p, err := t.actingPlayer()
	if err != nil {
		return err
	}
	switch option {
	case domain.NaguiHide, domain.NaguiSquare, domain.NaguiDuo:
	default:
		return domain.Reject(domain.RejectInvalidArgument, "unknown option %q", option)
	}
	if t.live.Choice.Option != "" {
		return domain.Reject(domain.RejectAlreadyDone, "option %q already selected", t.live.Choice.Option)
	}
	t.live.Choice.Option = option
	t.live.PlayerID = p.ID
	t.mark(docLive)
	return nil
}

func (naguiProtocol) SelectChoice(t *turn, idx int) error {
	p, err := t.actingPlayer()
	if err != nil {
		return err
	}
	content := t.base.Nagui
	if content == nil {
		return domain.Reject(domain.RejectInvalidState, "question %s has no choices", t.base.ID)
	}
	option := t.live.Choice.Option
	switch option {
	case "":
		return domain.Reject(domain.RejectInvalidState, "select an option first")
	case domain.NaguiHide:
		return domain.Reject(domain.RejectInvalidState, "hidden answers are judged by the organizer")
	}
	if idx < 0 || idx >= len(content.Choices) {
		return domain.Reject(domain.RejectInvalidArgument, "choice %d out of range", idx)
	}
	if option == domain.NaguiDuo && idx != content.AnswerIdx && idx != content.DuoIdx {
		return domain.Reject(domain.RejectInvalidArgument, "choice %d is not offered in duo", idx)
	}
	return t.answerChoice(p, idx, idx == content.AnswerIdx, t.rewards().Options[option])
}

func (naguiProtocol) ValidateHiddenAnswer(t *turn, correct bool) error {
	if err := t.requireOrganizer(); err != nil {
		return err
	}
	if err := t.requireActive(); err != nil {
		return err
	}
	if t.live.Choice.Option != domain.NaguiHide {
		return domain.Reject(domain.RejectInvalidState, "the acting team did not hide the choices")
	}
	var p *domain.Participant
	if t.live.PlayerID != "" {
		pp, err := t.participant(t.live.PlayerID)
		if err != nil {
			return err
		}
		p = pp
	}
	return t.judge(p, correct, t.rewards().Options[domain.NaguiHide])
}
