package app

import "gameshow-service/internal/domain"

// matchingProtocol: teams take turns matching one item per column. A team
// that made maxMistakes wrong matches is out for the rest of the question.
type matchingProtocol struct{}

func (matchingProtocol) InitialState(q *domain.LiveQuestion, base domain.BaseQuestion, rnd *shuffler) {
	st := &domain.MatchingState{
		Order:    [][]int{},
		Matched:  []int{},
		Attempts: []domain.MatchAttempt{},
	}
	if base.Matching != nil {
		rows := len(base.Matching.Rows)
		for c := 0; c < base.Matching.NumCols(); c++ {
			st.Order = append(st.Order, rnd.Perm(rows))
		}
	}
	q.Matching = st
}

func (matchingProtocol) MaxPoints(base domain.BaseQuestion, rw domain.Rewards, _ int) int {
	if base.Matching == nil {
		return 0
	}
	return len(base.Matching.Rows) * rw.Reward
}

func (matchingProtocol) PrepareStart(t *turn, order int) error {
	return t.startChooserTurn(order)
}

// Timeout counts as a wrong match of the acting team.
func (m matchingProtocol) Timeout(t *turn) error {
	return m.attempt(t, "", nil, false)
}

func (m matchingProtocol) SubmitMatch(t *turn, rows []int) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	p, err := t.requirePlayer()
	if err != nil {
		return err
	}
	if m.excluded(t, p.TeamID) {
		return domain.Reject(domain.RejectMaxTries, "team %s made too many mistakes", p.TeamID)
	}
	if p.TeamID != t.live.TeamID {
		return domain.Reject(domain.RejectWrongTurn, "team %s is not the acting team", p.TeamID)
	}
	if err := t.requireAuthorized(); err != nil {
		return err
	}
	content := t.base.Matching
	if content == nil || len(rows) != content.NumCols() {
		return domain.Reject(domain.RejectInvalidArgument, "a match needs one item per column")
	}
	for _, r := range rows {
		if r < 0 || r >= len(content.Rows) {
			return domain.Reject(domain.RejectInvalidArgument, "row %d out of range", r)
		}
		if t.live.Matching.IsMatched(r) {
			return domain.Reject(domain.RejectAlreadyDone, "row %d already matched", r)
		}
	}
	correct := true
	for _, r := range rows[1:] {
		if r != rows[0] {
			correct = false
		}
	}
	return m.attempt(t, p.ID, rows, correct)
}

func (matchingProtocol) excluded(t *turn, teamID string) bool {
	return t.live.Matching.Mistakes(teamID) >= t.rewards().MaxMistakes
}

func (m matchingProtocol) attempt(t *turn, playerID string, rows []int, correct bool) error {
	team := t.live.TeamID
	st := t.live.Matching
	st.Attempts = append(st.Attempts, domain.MatchAttempt{
		TeamID:   team,
		PlayerID: playerID,
		Rows:     rows,
		Correct:  correct,
	})
	t.live.PlayerID = playerID
	t.mark(docLive)
	rw := t.rewards()

	if correct {
		st.Matched = append(st.Matched, rows[0])
		if err := t.award(team, rw.Reward); err != nil {
			return err
		}
	} else if err := t.penalize(team); err != nil {
		return err
	}
	if err := t.answerEffect(correct, team, playerID); err != nil {
		return err
	}

	total := len(t.base.Matching.Rows)
	if total-len(st.Matched) == 1 {
		// The last row has a single possible match.
		for r := 0; r < total; r++ {
			if !st.IsMatched(r) {
				st.Matched = append(st.Matched, r)
				break
			}
		}
	}
	if len(st.Matched) == total {
		return t.endQuestion(outcome{correct: true, reward: rw.Reward})
	}

	next, ok, err := t.advanceChooser(func(id string) bool { return m.excluded(t, id) })
	if err != nil {
		return err
	}
	if !ok {
		return t.endQuestion(outcome{})
	}
	t.live.TeamID = next
	if err := t.resetPlayers(next); err != nil {
		return err
	}
	return t.restartTimer(thinkingTime(rw, t.base.Type))
}
