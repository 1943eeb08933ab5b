package app

import "gameshow-service/internal/domain"

// mcqProtocol: the acting team picks one choice.
type mcqProtocol struct{}

func (mcqProtocol) InitialState(q *domain.LiveQuestion, _ domain.BaseQuestion, _ *shuffler) {
	q.Choice = &domain.ChoiceState{}
}

func (mcqProtocol) MaxPoints(_ domain.BaseQuestion, rw domain.Rewards, _ int) int {
	return rw.Reward
}

func (mcqProtocol) PrepareStart(t *turn, order int) error {
	return t.startChooserTurn(order)
}

func (mcqProtocol) Timeout(t *turn) error {
	return t.endQuestion(outcome{teamID: t.live.TeamID})
}

func (mcqProtocol) SelectChoice(t *turn, idx int) error {
	p, err := t.actingPlayer()
	if err != nil {
		return err
	}
	content := t.base.MCQ
	if content == nil {
		return domain.Reject(domain.RejectInvalidState, "question %s has no choices", t.base.ID)
	}
	if idx < 0 || idx >= len(content.Choices) {
		return domain.Reject(domain.RejectInvalidArgument, "choice %d out of range", idx)
	}
	return t.answerChoice(p, idx, idx == content.AnswerIdx, t.rewards().Reward)
}

// answerChoice records a choice of the acting team and ends the question.
func (t *turn) answerChoice(p *domain.Participant, idx int, correct bool, reward int) error {
	choice := idx
	t.live.Choice.ChoiceIdx = &choice
	t.live.PlayerID = p.ID
	t.mark(docLive)
	return t.judge(p, correct, reward)
}

// judge applies a verdict on the acting team's single answer and ends the
// question.
func (t *turn) judge(p *domain.Participant, correct bool, reward int) error {
	team := t.live.TeamID
	playerID := ""
	if p != nil {
		playerID = p.ID
		status := domain.PlayerWrong
		if correct {
			status = domain.PlayerCorrect
		}
		if err := t.setStatus(p.ID, status); err != nil {
			return err
		}
	}
	earned := 0
	if correct {
		earned = reward
		if err := t.award(team, reward); err != nil {
			return err
		}
	} else if err := t.penalize(team); err != nil {
		return err
	}
	if err := t.answerEffect(correct, team, playerID); err != nil {
		return err
	}
	return t.endQuestion(outcome{teamID: team, playerID: playerID, correct: correct, reward: earned})
}
