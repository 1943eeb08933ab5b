package app

import "gameshow-service/internal/domain"

// basicProtocol: the acting team answers aloud and the organizer judges.
type basicProtocol struct{}

func (basicProtocol) InitialState(*domain.LiveQuestion, domain.BaseQuestion, *shuffler) {}

func (basicProtocol) MaxPoints(_ domain.BaseQuestion, rw domain.Rewards, _ int) int {
	return rw.Reward
}

func (basicProtocol) PrepareStart(t *turn, order int) error {
	return t.startChooserTurn(order)
}

func (basicProtocol) Timeout(t *turn) error {
	return t.endQuestion(outcome{teamID: t.live.TeamID})
}

func (basicProtocol) ValidateAnswer(t *turn, correct bool) error {
	if err := t.requireOrganizer(); err != nil {
		return err
	}
	if err := t.requireActive(); err != nil {
		return err
	}
	return t.judge(nil, correct, t.rewards().Reward)
}
