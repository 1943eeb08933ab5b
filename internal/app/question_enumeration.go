package app

import "gameshow-service/internal/domain"

// enumerationProtocol: teams bid on how many items they can cite, then the
// highest bidder has to cite them.
type enumerationProtocol struct{}

func (enumerationProtocol) InitialState(q *domain.LiveQuestion, _ domain.BaseQuestion, _ *shuffler) {
	q.Enumeration = &domain.EnumerationState{
		Phase: domain.PhaseIdle,
		Bets:  []domain.Bet{},
		Cited: []int{},
	}
}

// MaxPoints is the larger of a successful challenge and a failed one paying
// every other team.
func (enumerationProtocol) MaxPoints(_ domain.BaseQuestion, rw domain.Rewards, numTeams int) int {
	success := rw.Reward + rw.BonusReward
	failure := (numTeams - 1) * rw.Reward
	if failure > success {
		return failure
	}
	return success
}

func (enumerationProtocol) PrepareStart(t *turn, _ int) error {
	t.live.Enumeration.Phase = domain.PhaseReflection
	return t.begin("", thinkingTime(t.rewards(), t.base.Type))
}

func (e enumerationProtocol) Timeout(t *turn) error {
	switch t.live.Enumeration.Phase {
	case domain.PhaseReflection:
		return e.resolveChallenger(t)
	case domain.PhaseChallenge:
		return e.resolveChallenge(t)
	}
	return t.endQuestion(outcome{})
}

func maxBid(base domain.BaseQuestion) int {
	if base.Enumeration == nil {
		return 0
	}
	if base.Enumeration.MaxBid > 0 {
		return base.Enumeration.MaxBid
	}
	return len(base.Enumeration.Answer)
}

func (enumerationProtocol) PlaceBid(t *turn, bid int) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	p, err := t.requirePlayer()
	if err != nil {
		return err
	}
	if err := t.requireAuthorized(); err != nil {
		return err
	}
	st := t.live.Enumeration
	if st.Phase != domain.PhaseReflection {
		return domain.Reject(domain.RejectInvalidState, "bids are closed")
	}
	if bid < 0 || bid > maxBid(t.base) {
		return domain.Reject(domain.RejectInvalidArgument, "bid %d out of range 0..%d", bid, maxBid(t.base))
	}
	for _, b := range st.Bets {
		if b.TeamID == p.TeamID {
			return domain.Reject(domain.RejectAlreadyDone, "team %s already bid", p.TeamID)
		}
	}
	st.Bets = append(st.Bets, domain.Bet{PlayerID: p.ID, TeamID: p.TeamID, Value: bid, At: t.now})
	t.mark(docLive)
	return t.setStatus(p.ID, domain.PlayerReady)
}

func (e enumerationProtocol) EndReflection(t *turn) error {
	if err := t.requireOrganizer(); err != nil {
		return err
	}
	if err := t.requireActive(); err != nil {
		return err
	}
	if t.live.Enumeration.Phase != domain.PhaseReflection {
		return domain.Reject(domain.RejectInvalidState, "not in reflection")
	}
	return e.resolveChallenger(t)
}

// challenger returns the highest bid; the earliest bid wins ties.
func challenger(bets []domain.Bet) (domain.Bet, bool) {
	if len(bets) == 0 {
		return domain.Bet{}, false
	}
	best := bets[0]
	for _, b := range bets[1:] {
		if b.Value > best.Value {
			best = b
		}
	}
	return best, true
}

func (enumerationProtocol) resolveChallenger(t *turn) error {
	st := t.live.Enumeration
	best, ok := challenger(st.Bets)
	if !ok {
		st.Phase = domain.PhaseEnd
		return t.endQuestion(outcome{})
	}
	st.Phase = domain.PhaseChallenge
	st.Challenger = &best
	t.live.TeamID = best.TeamID
	t.live.PlayerID = best.PlayerID
	t.mark(docLive)
	if err := t.resetPlayers(best.TeamID); err != nil {
		return err
	}
	return t.resetTimer(t.rewards().ChallengeTime, true)
}

func (e enumerationProtocol) ValidateItem(t *turn, idx int) error {
	if err := t.requireOrganizer(); err != nil {
		return err
	}
	if err := t.requireActive(); err != nil {
		return err
	}
	st := t.live.Enumeration
	if st.Phase != domain.PhaseChallenge {
		return domain.Reject(domain.RejectInvalidState, "not in challenge")
	}
	if t.base.Enumeration == nil || idx < 0 || idx >= len(t.base.Enumeration.Answer) {
		return domain.Reject(domain.RejectInvalidArgument, "item %d out of range", idx)
	}
	for _, c := range st.Cited {
		if c == idx {
			return domain.Reject(domain.RejectAlreadyDone, "item %d already cited", idx)
		}
	}
	st.Cited = append(st.Cited, idx)
	t.mark(docLive)
	if len(st.Cited) == len(t.base.Enumeration.Answer) {
		return e.resolveChallenge(t)
	}
	return nil
}

func (e enumerationProtocol) EndChallenge(t *turn) error {
	if err := t.requireOrganizer(); err != nil {
		return err
	}
	if err := t.requireActive(); err != nil {
		return err
	}
	if t.live.Enumeration.Phase != domain.PhaseChallenge {
		return domain.Reject(domain.RejectInvalidState, "not in challenge")
	}
	return e.resolveChallenge(t)
}

// resolveChallenge pays the challenger when it cited at least its bid, and
// every other team otherwise.
func (enumerationProtocol) resolveChallenge(t *turn) error {
	st := t.live.Enumeration
	ch := st.Challenger
	st.Phase = domain.PhaseEnd
	t.mark(docLive)
	rw := t.rewards()

	if len(st.Cited) >= ch.Value {
		reward := rw.Reward
		if len(st.Cited) > ch.Value {
			reward += rw.BonusReward
		}
		if err := t.award(ch.TeamID, reward); err != nil {
			return err
		}
		if err := t.setStatus(ch.PlayerID, domain.PlayerCorrect); err != nil {
			return err
		}
		if err := t.answerEffect(true, ch.TeamID, ch.PlayerID); err != nil {
			return err
		}
		return t.endQuestion(outcome{teamID: ch.TeamID, playerID: ch.PlayerID, correct: true, reward: reward})
	}

	if err := t.awardAll(rw.Reward, ch.TeamID); err != nil {
		return err
	}
	if err := t.penalize(ch.TeamID); err != nil {
		return err
	}
	if err := t.setStatus(ch.PlayerID, domain.PlayerWrong); err != nil {
		return err
	}
	if err := t.answerEffect(false, ch.TeamID, ch.PlayerID); err != nil {
		return err
	}
	return t.endQuestion(outcome{teamID: ch.TeamID, playerID: ch.PlayerID})
}
