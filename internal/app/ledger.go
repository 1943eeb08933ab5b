package app

import "gameshow-service/internal/domain"

// The ledger has two scopes. The round scope keys progress and deltas by
// question id, the game scope by round id. Deltas are what a reset reverts.
//
// Mistakes follow the session's score policy:
//   - ranking: the team loses mistakePenalty in both scopes.
//   - completion_rate: scores never decrease; the round mistake counter grows.

func (t *turn) loadGameScores() (*domain.Scores, error) {
	if t.gameScores != nil {
		return t.gameScores, nil
	}
	s, err := t.repo.GameScores()
	if err != nil {
		return nil, err
	}
	t.gameScores = s
	return s, nil
}

func (t *turn) loadRoundScores() (*domain.Scores, error) {
	if t.roundScores != nil {
		return t.roundScores, nil
	}
	s, err := t.repo.RoundScores(t.round.ID)
	if err != nil {
		return nil, err
	}
	t.roundScores = s
	return s, nil
}

// award adds points to a team for the current question in both scopes.
func (t *turn) award(teamID string, points int) error {
	if teamID == "" || points == 0 {
		return nil
	}
	rs, err := t.loadRoundScores()
	if err != nil {
		return err
	}
	gs, err := t.loadGameScores()
	if err != nil {
		return err
	}
	credit(rs, t.live.ID, teamID, points)
	credit(gs, t.round.ID, teamID, points)
	t.mark(docRoundScores | docGameScores)
	return nil
}

// awardAll credits every team of the session, except the excluded one.
func (t *turn) awardAll(points int, except string) error {
	for _, teamID := range t.session.TeamIDs {
		if teamID == except {
			continue
		}
		if err := t.award(teamID, points); err != nil {
			return err
		}
	}
	return nil
}

// penalize records a mistake of a team on the current question.
func (t *turn) penalize(teamID string) error {
	if teamID == "" {
		return nil
	}
	if t.session.ScorePolicy == domain.PolicyCompletionRate {
		rs, err := t.loadRoundScores()
		if err != nil {
			return err
		}
		rs.Mistakes[teamID]++
		addDelta(rs.MistakeDeltas, t.live.ID, teamID, 1)
		t.mark(docRoundScores)
		return nil
	}
	return t.award(teamID, -t.rewards().MistakePenalty)
}

// revertQuestion removes the contribution of one question from both scopes.
// Contributions of other questions are left untouched.
func (t *turn) revertQuestion(questionID string) error {
	rs, err := t.loadRoundScores()
	if err != nil {
		return err
	}
	gs, err := t.loadGameScores()
	if err != nil {
		return err
	}
	for teamID, d := range rs.Deltas[questionID] {
		rs.Scores[teamID] -= d
		gs.Scores[teamID] -= d
		if gd := gs.Deltas[t.round.ID]; gd != nil {
			gd[teamID] -= d
		}
		delete(rs.ScoresProgress[teamID], questionID)
		setProgress(gs, t.round.ID, teamID)
	}
	delete(rs.Deltas, questionID)
	for teamID, n := range rs.MistakeDeltas[questionID] {
		rs.Mistakes[teamID] -= n
	}
	delete(rs.MistakeDeltas, questionID)
	t.mark(docRoundScores | docGameScores)
	return nil
}

// revertRound removes the contribution of one round from the game scope.
func revertRound(gs *domain.Scores, roundID string) {
	for teamID, d := range gs.Deltas[roundID] {
		gs.Scores[teamID] -= d
		delete(gs.ScoresProgress[teamID], roundID)
	}
	delete(gs.Deltas, roundID)
}

// credit applies a delta and records the cumulative value reached at key.
func credit(s *domain.Scores, key, teamID string, points int) {
	s.Scores[teamID] += points
	addDelta(s.Deltas, key, teamID, points)
	setProgress(s, key, teamID)
}

func setProgress(s *domain.Scores, key, teamID string) {
	if s.ScoresProgress[teamID] == nil {
		s.ScoresProgress[teamID] = make(map[string]int)
	}
	s.ScoresProgress[teamID][key] = s.Scores[teamID]
}

func addDelta(m map[string]map[string]int, key, teamID string, n int) {
	if m[key] == nil {
		m[key] = make(map[string]int)
	}
	m[key][teamID] += n
}
