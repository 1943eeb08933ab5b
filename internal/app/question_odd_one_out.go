package app

import "gameshow-service/internal/domain"

// oddOneOutProtocol: teams take turns picking propositions; picking the odd
// one loses. Picks are indexes into the base items; Order is only the
// shuffled display order.
type oddOneOutProtocol struct{}

func (oddOneOutProtocol) InitialState(q *domain.LiveQuestion, base domain.BaseQuestion, rnd *shuffler) {
	n := 0
	if base.OddOneOut != nil {
		n = len(base.OddOneOut.Items)
	}
	q.OddOneOut = &domain.OddOneOutState{
		Order: rnd.Perm(n),
		Picks: []domain.Pick{},
	}
}

// MaxPoints is reached when every proposition but the odd one was picked and
// every team is paid.
func (oddOneOutProtocol) MaxPoints(_ domain.BaseQuestion, rw domain.Rewards, numTeams int) int {
	return numTeams * rw.Reward
}

func (oddOneOutProtocol) PrepareStart(t *turn, order int) error {
	return t.startChooserTurn(order)
}

// Timeout picks a random remaining proposition for the acting team.
func (o oddOneOutProtocol) Timeout(t *turn) error {
	remaining := o.remaining(t)
	if len(remaining) == 0 {
		return t.endQuestion(outcome{})
	}
	idx := remaining[t.e.rnd.Intn(len(remaining))]
	return o.pick(t, idx, "")
}

func (o oddOneOutProtocol) SelectProposal(t *turn, idx int) error {
	p, err := t.actingPlayer()
	if err != nil {
		return err
	}
	if t.base.OddOneOut == nil || idx < 0 || idx >= len(t.base.OddOneOut.Items) {
		return domain.Reject(domain.RejectInvalidArgument, "proposition %d out of range", idx)
	}
	if t.live.OddOneOut.Picked(idx) {
		return domain.Reject(domain.RejectAlreadyDone, "proposition %d already picked", idx)
	}
	return o.pick(t, idx, p.ID)
}

func (oddOneOutProtocol) remaining(t *turn) []int {
	if t.base.OddOneOut == nil {
		return nil
	}
	var out []int
	for i := range t.base.OddOneOut.Items {
		if !t.live.OddOneOut.Picked(i) {
			out = append(out, i)
		}
	}
	return out
}

func (o oddOneOutProtocol) pick(t *turn, idx int, playerID string) error {
	team := t.live.TeamID
	st := t.live.OddOneOut
	st.Picks = append(st.Picks, domain.Pick{Idx: idx, PlayerID: playerID, TeamID: team})
	t.live.PlayerID = playerID
	t.mark(docLive)
	rw := t.rewards()

	if t.base.OddOneOut.Items[idx].IsOdd {
		if playerID != "" {
			if err := t.setStatus(playerID, domain.PlayerWrong); err != nil {
				return err
			}
		}
		if err := t.penalize(team); err != nil {
			return err
		}
		if t.session.ScorePolicy == domain.PolicyCompletionRate {
			if err := t.moveToHead(team); err != nil {
				return err
			}
		}
		if err := t.awardAll(rw.Reward, team); err != nil {
			return err
		}
		if err := t.answerEffect(false, team, playerID); err != nil {
			return err
		}
		return t.endQuestion(outcome{teamID: team, playerID: playerID})
	}

	if playerID != "" {
		if err := t.setStatus(playerID, domain.PlayerCorrect); err != nil {
			return err
		}
	}
	if err := t.answerEffect(true, team, playerID); err != nil {
		return err
	}
	if len(o.remaining(t)) <= 1 {
		if err := t.awardAll(rw.Reward, ""); err != nil {
			return err
		}
		return t.endQuestion(outcome{correct: true, reward: rw.Reward})
	}

	next, err := t.rotateChooser()
	if err != nil {
		return err
	}
	t.live.TeamID = next
	if err := t.resetPlayers(next); err != nil {
		return err
	}
	return t.restartTimer(thinkingTime(rw, t.base.Type))
}
