package app

import (
	"context"
	"fmt"

	"gameshow-service/internal/domain"
)

// protocol is the lifecycle contract every question type implements.
// Type-specific actions are additional methods, discovered with a type
// assertion by the matching engine action.
type protocol interface {
	// InitialState fills the type state of a fresh live record.
	InitialState(q *domain.LiveQuestion, base domain.BaseQuestion, rnd *shuffler)
	// MaxPoints bounds what all teams together can earn on the question.
	MaxPoints(base domain.BaseQuestion, rw domain.Rewards, numTeams int) int
	// PrepareStart makes the question active. order is its position in the round.
	PrepareStart(t *turn, order int) error
	// Timeout is the fallback when the countdown expires on an active question.
	Timeout(t *turn) error
}

var protocols = map[domain.QuestionType]protocol{
	domain.TypeMCQ:              mcqProtocol{},
	domain.TypeNagui:            naguiProtocol{},
	domain.TypeBasic:            basicProtocol{},
	domain.TypeProgressiveClues: riddleProtocol{buzzerQueue{clues: true}},
	domain.TypeImage:            riddleProtocol{},
	domain.TypeEmoji:            riddleProtocol{},
	domain.TypeBlindtest:        riddleProtocol{},
	domain.TypeQuote:            quoteProtocol{},
	domain.TypeLabelling:        labellingProtocol{},
	domain.TypeEnumeration:      enumerationProtocol{},
	domain.TypeOddOneOut:        oddOneOutProtocol{},
	domain.TypeMatching:         matchingProtocol{},
}

func protocolFor(qt domain.QuestionType) (protocol, error) {
	p, ok := protocols[qt]
	if !ok {
		return nil, fmt.Errorf("unknown question type %q", qt)
	}
	return p, nil
}

// Reward defaults applied when a round leaves a value unset.
const (
	defaultReward        = 1
	defaultMaxTries      = 2
	defaultMaxMistakes   = 3
	defaultClueDelay     = 2
	defaultChallengeTime = 60
)

var defaultThinkingTime = map[domain.QuestionType]int{
	domain.TypeMCQ:              20,
	domain.TypeNagui:            20,
	domain.TypeBasic:            30,
	domain.TypeProgressiveClues: 30,
	domain.TypeImage:            30,
	domain.TypeEmoji:            30,
	domain.TypeBlindtest:        30,
	domain.TypeQuote:            60,
	domain.TypeLabelling:        60,
	domain.TypeEnumeration:      30,
	domain.TypeOddOneOut:        20,
	domain.TypeMatching:         30,
}

var defaultNaguiOptions = map[string]int{
	domain.NaguiHide:   5,
	domain.NaguiSquare: 3,
	domain.NaguiDuo:    1,
}

func withDefaults(rw domain.Rewards) domain.Rewards {
	if rw.Reward == 0 {
		rw.Reward = defaultReward
	}
	if rw.MaxTries == 0 {
		rw.MaxTries = defaultMaxTries
	}
	if rw.MaxMistakes == 0 {
		rw.MaxMistakes = defaultMaxMistakes
	}
	if rw.ClueDelay == 0 {
		rw.ClueDelay = defaultClueDelay
	}
	if rw.ChallengeTime == 0 {
		rw.ChallengeTime = defaultChallengeTime
	}
	opts := make(map[string]int, len(defaultNaguiOptions))
	for k, v := range defaultNaguiOptions {
		opts[k] = v
	}
	for k, v := range rw.Options {
		opts[k] = v
	}
	rw.Options = opts
	return rw
}

func thinkingTime(rw domain.Rewards, qt domain.QuestionType) int {
	if rw.ThinkingTime > 0 {
		return rw.ThinkingTime
	}
	return defaultThinkingTime[qt]
}

// newLive builds the initial live record of a question.
func newLive(base domain.BaseQuestion, roundID string, rnd *shuffler) (*domain.LiveQuestion, error) {
	p, err := protocolFor(base.Type)
	if err != nil {
		return nil, err
	}
	q := &domain.LiveQuestion{
		ID:      base.ID,
		RoundID: roundID,
		Type:    base.Type,
		Status:  domain.LiveIdle,
	}
	p.InitialState(q, base, rnd)
	return q, nil
}

// begin marks the live question active for teamID ("" when every team may act)
// and arms the countdown.
func (t *turn) begin(teamID string, duration int) error {
	t.live.Status = domain.LiveActive
	t.live.DateStart = &t.now
	t.live.DateEnd = nil
	t.live.TeamID = teamID
	t.mark(docLive)

	t.session.CurrentQuestion = t.live.ID
	t.session.Status = domain.StatusQuestionActive
	t.mark(docSession)

	if err := t.resetTimer(duration, true); err != nil {
		return err
	}
	return t.resetPlayers(teamID)
}

// startChooserTurn is PrepareStart for chooser-driven types.
func (t *turn) startChooserTurn(order int) error {
	if order > 0 {
		if _, err := t.rotateChooser(); err != nil {
			return err
		}
	}
	team, err := t.actingTeam()
	if err != nil {
		return err
	}
	return t.begin(team, thinkingTime(t.rewards(), t.base.Type))
}

type outcome struct {
	teamID   string
	playerID string
	correct  bool
	reward   int
}

// endQuestion moves the live question to its terminal state. It is a no-op on
// an ended question.
func (t *turn) endQuestion(o outcome) error {
	if t.live.Ended() {
		return nil
	}
	correct := o.correct
	t.live.Status = domain.LiveEnded
	t.live.DateEnd = &t.now
	if o.teamID != "" {
		t.live.TeamID = o.teamID
	}
	t.live.PlayerID = o.playerID
	t.live.Correct = &correct
	t.live.Reward = o.reward
	t.mark(docLive)

	t.setOutcome(domain.QuestionOutcome{
		QuestionID: t.live.ID,
		TeamID:     o.teamID,
		PlayerID:   o.playerID,
		Correct:    o.correct,
		Reward:     o.reward,
	})
	t.round.CurrentQuestionIdx = t.round.NextPending()
	t.mark(docRound)

	if t.session.CurrentQuestion == t.live.ID && t.session.Status == domain.StatusQuestionActive {
		t.session.Status = domain.StatusQuestionEnd
		t.mark(docSession)
	}
	if err := t.endTimer(); err != nil {
		return err
	}
	return t.effect(domain.EffectQuestionEnd, o.teamID, o.playerID)
}

func (t *turn) setOutcome(o domain.QuestionOutcome) {
	for i := range t.round.QuestionStatus {
		if t.round.QuestionStatus[i].QuestionID == o.QuestionID {
			t.round.QuestionStatus[i] = o
			return
		}
	}
	t.round.QuestionStatus = append(t.round.QuestionStatus, o)
}

func (t *turn) clearOutcome(questionID string) {
	kept := t.round.QuestionStatus[:0]
	for _, o := range t.round.QuestionStatus {
		if o.QuestionID != questionID {
			kept = append(kept, o)
		}
	}
	t.round.QuestionStatus = kept
}

// resetQuestion restores the live question to its initial values and reverts
// its own ledger contribution. The round cursor moves back to the first
// question without an outcome, so the next start replays it. Resetting the
// current question also restores the rotation it started with.
func (t *turn) resetQuestion() error {
	if err := t.revertQuestion(t.live.ID); err != nil {
		return err
	}
	started := t.live.StartChooser
	fresh, err := newLive(t.base, t.round.ID, t.e.rnd)
	if err != nil {
		return err
	}
	*t.live = *fresh
	t.mark(docLive)

	t.clearOutcome(t.live.ID)
	t.round.CurrentQuestionIdx = t.round.NextPending()
	t.mark(docRound)

	if t.session.CurrentQuestion != t.live.ID || !t.session.Status.InRound() || t.session.CurrentRound != t.round.ID {
		return nil
	}
	if started != nil {
		c, err := t.loadChooser()
		if err != nil {
			return err
		}
		*c = *started.Clone()
		t.mark(docChooser)
	}
	t.session.Status = domain.StatusRoundStart
	t.mark(docSession)
	if err := t.resetTimer(thinkingTime(t.rewards(), t.base.Type), false); err != nil {
		return err
	}
	return t.resetPlayers("")
}

// ResetQuestion restores a question to its initial state.
func (e *Engine) ResetQuestion(ctx context.Context, ref Ref) error {
	return e.runQuestion(ctx, ActionResetQuestion, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		return t.resetQuestion()
	})
}

// EndQuestion ends the question without a winner. Ending an ended question is
// a no-op.
func (e *Engine) EndQuestion(ctx context.Context, ref Ref) error {
	return e.runQuestion(ctx, ActionEndQuestion, ref, func(t *turn) error {
		if err := t.requireOrganizer(); err != nil {
			return err
		}
		switch t.live.Status {
		case domain.LiveEnded:
			return nil
		case domain.LiveIdle:
			return domain.Reject(domain.RejectInvalidState, "question %s has not started", t.live.ID)
		}
		return t.endQuestion(outcome{teamID: t.live.TeamID})
	})
}
