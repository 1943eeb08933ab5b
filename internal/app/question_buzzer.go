package app

import (
	"sort"
	"strconv"

	"gameshow-service/internal/domain"
)

// buzzerQueue is the buzz-in mechanics shared by riddles, quotes and
// labelling. The head of the queue is the only participant allowed to
// answer; queue order is commit order.
type buzzerQueue struct {
	// clues gates re-buzzing behind newly revealed clues.
	clues bool
}

func (buzzerQueue) initQueue(q *domain.LiveQuestion) {
	q.Buzzer = &domain.BuzzerState{
		Buzzed:   []string{},
		Canceled: []domain.Cancellation{},
	}
}

func (q buzzerQueue) AddPlayerToBuzzer(t *turn) error {
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
	b := t.live.Buzzer
	for _, id := range b.Buzzed {
		if id == p.ID {
			return domain.Reject(domain.RejectAlreadyDone, "%s already buzzed", p.ID)
		}
		if t.teamOf(id) == p.TeamID {
			return domain.Reject(domain.RejectAlreadyDone, "team %s already has a buzzer queued", p.TeamID)
		}
	}
	rw := t.rewards()
	if b.CancelCount(p.ID) >= rw.MaxTries {
		return domain.Reject(domain.RejectMaxTries, "%s used all %d tries", p.ID, rw.MaxTries)
	}
	if q.clues {
		if last, ok := b.LastCancel(p.ID); ok && b.CurrentClueIdx-last.ClueIdx < rw.ClueDelay {
			return domain.Reject(domain.RejectInvalidState, "%s must wait for %d more clue(s)", p.ID, rw.ClueDelay-(b.CurrentClueIdx-last.ClueIdx))
		}
	}
	b.Buzzed = append(b.Buzzed, p.ID)
	t.mark(docLive)
	if err := t.setStatus(p.ID, domain.PlayerFocus); err != nil {
		return err
	}
	return t.effect(domain.EffectBuzz, p.TeamID, p.ID)
}

func (buzzerQueue) RemovePlayerFromBuzzer(t *turn) error {
	if err := t.requireActive(); err != nil {
		return err
	}
	p, err := t.requirePlayer()
	if err != nil {
		return err
	}
	b := t.live.Buzzer
	kept := make([]string, 0, len(b.Buzzed))
	for _, id := range b.Buzzed {
		if id != p.ID {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(b.Buzzed) {
		return domain.Reject(domain.RejectInvalidState, "%s is not in the buzzer queue", p.ID)
	}
	b.Buzzed = kept
	t.mark(docLive)
	return t.setStatus(p.ID, domain.PlayerIdle)
}

func (buzzerQueue) InvalidateHeadBuzzer(t *turn) error {
	if err := t.requireOrganizer(); err != nil {
		return err
	}
	if err := t.requireActive(); err != nil {
		return err
	}
	if t.live.Buzzer.Head() == "" {
		return domain.Reject(domain.RejectInvalidState, "nobody buzzed")
	}
	return t.cancelHead(true)
}

// queueTimeout cancels the head and restarts the countdown for the next
// buzzer, or ends the question when nobody is queued.
func (buzzerQueue) queueTimeout(t *turn, end func() error) error {
	if t.live.Buzzer.Head() == "" {
		return end()
	}
	if err := t.cancelHead(false); err != nil {
		return err
	}
	return t.restartTimer(thinkingTime(t.rewards(), t.base.Type))
}

// cancelHead removes the head buzzer, records the cancellation and promotes
// the next one.
func (t *turn) cancelHead(penalize bool) error {
	b := t.live.Buzzer
	head := b.Head()
	b.Buzzed = b.Buzzed[1:]
	b.Canceled = append(b.Canceled, domain.Cancellation{
		PlayerID: head,
		ClueIdx:  b.CurrentClueIdx,
		At:       t.now,
	})
	t.mark(docLive)
	if err := t.setStatus(head, domain.PlayerWrong); err != nil {
		return err
	}
	team := t.teamOf(head)
	if penalize {
		if err := t.penalize(team); err != nil {
			return err
		}
	}
	return t.answerEffect(false, team, head)
}

// riddleProtocol covers progressive clues, image, emoji and blindtest: the
// first validated buzzer wins the question.
type riddleProtocol struct {
	buzzerQueue
}

func (r riddleProtocol) InitialState(q *domain.LiveQuestion, _ domain.BaseQuestion, _ *shuffler) {
	r.initQueue(q)
}

func (riddleProtocol) MaxPoints(_ domain.BaseQuestion, rw domain.Rewards, _ int) int {
	return rw.Reward
}

func (riddleProtocol) PrepareStart(t *turn, _ int) error {
	return t.begin("", thinkingTime(t.rewards(), t.base.Type))
}

func (r riddleProtocol) Timeout(t *turn) error {
	return r.queueTimeout(t, func() error {
		return t.endQuestion(outcome{})
	})
}

func (riddleProtocol) ValidateHeadBuzzer(t *turn) error {
	if err := t.requireOrganizer(); err != nil {
		return err
	}
	if err := t.requireActive(); err != nil {
		return err
	}
	head := t.live.Buzzer.Head()
	if head == "" {
		return domain.Reject(domain.RejectInvalidState, "nobody buzzed")
	}
	team := t.teamOf(head)
	reward := t.rewards().Reward
	if err := t.award(team, reward); err != nil {
		return err
	}
	if err := t.setStatus(head, domain.PlayerCorrect); err != nil {
		return err
	}
	if err := t.answerEffect(true, team, head); err != nil {
		return err
	}
	return t.endQuestion(outcome{teamID: team, playerID: head, correct: true, reward: reward})
}

func (r riddleProtocol) RevealClue(t *turn) error {
	if err := t.requireOrganizer(); err != nil {
		return err
	}
	if err := t.requireActive(); err != nil {
		return err
	}
	if !r.clues || t.base.Riddle == nil {
		return domain.Reject(domain.RejectInvalidState, "question %s has no clues", t.base.ID)
	}
	b := t.live.Buzzer
	if b.CurrentClueIdx+1 >= len(t.base.Riddle.Clues) {
		return domain.Reject(domain.RejectAlreadyDone, "all clues are revealed")
	}
	b.CurrentClueIdx++
	t.mark(docLive)
	return nil
}

// quoteProtocol: buzzers guess the author, the source or hidden parts of a
// quote. Each revealed element is credited to the head buzzer's team.
type quoteProtocol struct {
	buzzerQueue
}

func (q quoteProtocol) InitialState(lq *domain.LiveQuestion, _ domain.BaseQuestion, _ *shuffler) {
	q.initQueue(lq)
	lq.Buzzer.Revealed = map[string]domain.Credit{}
}

func (quoteProtocol) MaxPoints(base domain.BaseQuestion, rw domain.Rewards, _ int) int {
	return len(quoteKeys(base)) * rw.Reward
}

func (quoteProtocol) PrepareStart(t *turn, _ int) error {
	return t.begin("", thinkingTime(t.rewards(), t.base.Type))
}

func (q quoteProtocol) Timeout(t *turn) error {
	return q.queueTimeout(t, func() error {
		return t.finishReveal()
	})
}

func (quoteProtocol) RevealElement(t *turn, key string) error {
	return t.revealOne(quoteKeys(t.base), key)
}

func (quoteProtocol) ValidateAllElements(t *turn) error {
	return t.revealAll(quoteKeys(t.base))
}

// quoteKeys lists the guessable elements: author, source or quote_N.
func quoteKeys(base domain.BaseQuestion) []string {
	if base.Quote == nil {
		return nil
	}
	return base.Quote.ToGuess
}

// labellingProtocol: labels of an image are revealed one at a time, each
// credited to the head buzzer's team.
type labellingProtocol struct {
	buzzerQueue
}

func (l labellingProtocol) InitialState(lq *domain.LiveQuestion, _ domain.BaseQuestion, _ *shuffler) {
	l.initQueue(lq)
	lq.Buzzer.Revealed = map[string]domain.Credit{}
}

func (labellingProtocol) MaxPoints(base domain.BaseQuestion, rw domain.Rewards, _ int) int {
	return len(labelKeys(base)) * rw.Reward
}

func (labellingProtocol) PrepareStart(t *turn, _ int) error {
	return t.begin("", thinkingTime(t.rewards(), t.base.Type))
}

func (l labellingProtocol) Timeout(t *turn) error {
	return l.queueTimeout(t, func() error {
		return t.finishReveal()
	})
}

func (labellingProtocol) RevealLabel(t *turn, idx int) error {
	keys := labelKeys(t.base)
	if idx < 0 || idx >= len(keys) {
		return domain.Reject(domain.RejectInvalidArgument, "label %d out of range", idx)
	}
	return t.revealOne(keys, keys[idx])
}

func (labellingProtocol) ValidateAllLabels(t *turn) error {
	return t.revealAll(labelKeys(t.base))
}

func labelKeys(base domain.BaseQuestion) []string {
	if base.Labelling == nil {
		return nil
	}
	keys := make([]string, len(base.Labelling.Labels))
	for i := range keys {
		keys[i] = strconv.Itoa(i)
	}
	return keys
}

func (t *turn) revealOne(keys []string, key string) error {
	if err := t.requireOrganizer(); err != nil {
		return err
	}
	if err := t.requireActive(); err != nil {
		return err
	}
	if !contains(keys, key) {
		return domain.Reject(domain.RejectInvalidArgument, "unknown element %q", key)
	}
	if _, ok := t.live.Buzzer.Revealed[key]; ok {
		return domain.Reject(domain.RejectAlreadyDone, "element %q already revealed", key)
	}
	if err := t.reveal(key); err != nil {
		return err
	}
	if len(t.live.Buzzer.Revealed) >= len(keys) {
		return t.finishReveal()
	}
	return nil
}

func (t *turn) revealAll(keys []string) error {
	if err := t.requireOrganizer(); err != nil {
		return err
	}
	if err := t.requireActive(); err != nil {
		return err
	}
	var pending []string
	for _, key := range keys {
		if _, ok := t.live.Buzzer.Revealed[key]; !ok {
			pending = append(pending, key)
		}
	}
	if err := t.creditHead(pending...); err != nil {
		return err
	}
	return t.finishReveal()
}

// reveal credits one element to the head buzzer's team.
func (t *turn) reveal(key string) error {
	return t.creditHead(key)
}

// creditHead credits every key to the head buzzer's team, if anyone is
// queued, then frees the head's slot once.
func (t *turn) creditHead(keys ...string) error {
	b := t.live.Buzzer
	if b.Revealed == nil {
		b.Revealed = map[string]domain.Credit{}
	}
	if len(keys) == 0 {
		return nil
	}
	head := b.Head()
	credit := domain.Credit{}
	if head != "" {
		credit = domain.Credit{PlayerID: head, TeamID: t.teamOf(head)}
	}
	for _, key := range keys {
		b.Revealed[key] = credit
	}
	t.mark(docLive)
	if head == "" {
		return nil
	}
	if err := t.award(credit.TeamID, len(keys)*t.rewards().Reward); err != nil {
		return err
	}
	if err := t.setStatus(head, domain.PlayerCorrect); err != nil {
		return err
	}
	if err := t.answerEffect(true, credit.TeamID, head); err != nil {
		return err
	}
	b.Buzzed = b.Buzzed[1:]
	return nil
}

// finishReveal ends a quote or labelling question; the winner is the team
// with the most credited elements.
func (t *turn) finishReveal() error {
	counts := map[string]int{}
	for _, c := range t.live.Buzzer.Revealed {
		if c.TeamID != "" {
			counts[c.TeamID]++
		}
	}
	best, bestN := "", 0
	teams := append([]string(nil), t.session.TeamIDs...)
	sort.SliceStable(teams, func(i, j int) bool { return counts[teams[i]] > counts[teams[j]] })
	if len(teams) > 0 && counts[teams[0]] > 0 {
		best, bestN = teams[0], counts[teams[0]]
	}
	return t.endQuestion(outcome{
		teamID:  best,
		correct: bestN > 0,
		reward:  bestN * t.rewards().Reward,
	})
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
