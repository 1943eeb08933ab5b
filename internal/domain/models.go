package domain

import "time"

// SessionStatus is the top-level state of a game session.
type SessionStatus string

const (
	StatusNotStarted     SessionStatus = "not_started"
	StatusGameHome       SessionStatus = "game_home"
	StatusRoundStart     SessionStatus = "round_start"
	StatusQuestionActive SessionStatus = "question_active"
	StatusQuestionEnd    SessionStatus = "question_end"
	StatusRoundEnd       SessionStatus = "round_end"
	StatusFinale         SessionStatus = "finale"
	StatusGameEnd        SessionStatus = "game_end"
)

// InRound reports whether a round is being played.
func (s SessionStatus) InRound() bool {
	return s == StatusRoundStart || s == StatusQuestionActive || s == StatusQuestionEnd
}

// ScorePolicy selects how scores are accumulated and normalized.
type ScorePolicy string

const (
	PolicyRanking        ScorePolicy = "ranking"
	PolicyCompletionRate ScorePolicy = "completion_rate"
)

// Valid reports whether the policy is known.
func (p ScorePolicy) Valid() bool {
	return p == PolicyRanking || p == PolicyCompletionRate
}

// Session is the top-level aggregate of one play-through.
type Session struct {
	ID              string        `json:"id"`
	Title           string        `json:"title"`
	Status          SessionStatus `json:"status"`
	ScorePolicy     ScorePolicy   `json:"scorePolicy"`
	CurrentRound    string        `json:"currentRound,omitempty"`
	CurrentQuestion string        `json:"currentQuestion,omitempty"`
	RoundIDs        []string      `json:"roundIds"`
	TeamIDs         []string      `json:"teamIds"`
	OrganizerIDs    []string      `json:"organizerIds"`
	CreatedAt       time.Time     `json:"createdAt"`
	UpdatedAt       time.Time     `json:"updatedAt"`
	DateStart       *time.Time    `json:"dateStart,omitempty"`
	DateEnd         *time.Time    `json:"dateEnd,omitempty"`
}

// IsOrganizer reports whether the participant id organizes this session.
func (s *Session) IsOrganizer(id string) bool {
	for _, o := range s.OrganizerIDs {
		if o == id {
			return true
		}
	}
	return false
}

// HasRound reports whether the round belongs to the session.
func (s *Session) HasRound(id string) bool {
	for _, r := range s.RoundIDs {
		if r == id {
			return true
		}
	}
	return false
}

// Rewards is the reward/penalty configuration of a round. Zero values are
// replaced by per-type defaults when the round starts.
type Rewards struct {
	Reward         int            `json:"reward" yaml:"reward"`
	BonusReward    int            `json:"bonusReward,omitempty" yaml:"bonusReward"`
	MistakePenalty int            `json:"mistakePenalty,omitempty" yaml:"mistakePenalty"`
	MaxTries       int            `json:"maxTries,omitempty" yaml:"maxTries"`
	MaxMistakes    int            `json:"maxMistakes,omitempty" yaml:"maxMistakes"`
	ThinkingTime   int            `json:"thinkingTime,omitempty" yaml:"thinkingTime"`
	ChallengeTime  int            `json:"challengeTime,omitempty" yaml:"challengeTime"`
	ClueDelay      int            `json:"clueDelay,omitempty" yaml:"clueDelay"`
	Options        map[string]int `json:"options,omitempty" yaml:"options"`
}

// QuestionOutcome summarizes how a question of the round was resolved.
type QuestionOutcome struct {
	QuestionID string `json:"questionId"`
	TeamID     string `json:"teamId,omitempty"`
	PlayerID   string `json:"playerId,omitempty"`
	Correct    bool   `json:"correct"`
	Reward     int    `json:"reward"`
}

// Round is a scored segment of the game.
type Round struct {
	ID                 string            `json:"id"`
	Title              string            `json:"title"`
	Type               RoundType         `json:"type"`
	QuestionIDs        []string          `json:"questionIds"`
	Order              *int              `json:"order,omitempty"`
	CurrentQuestionIdx int               `json:"currentQuestionIdx"`
	QuestionStatus     []QuestionOutcome `json:"questionStatus"`
	Rewards            Rewards           `json:"rewards"`
	MaxPoints          int               `json:"maxPoints"`
	DateStart          *time.Time        `json:"dateStart,omitempty"`
	DateEnd            *time.Time        `json:"dateEnd,omitempty"`
}

// Played reports whether the round has been fully played.
func (r *Round) Played() bool {
	return r.DateEnd != nil
}

// InProgress reports whether the round was started and not ended.
func (r *Round) InProgress() bool {
	return r.DateStart != nil && r.DateEnd == nil
}

// NextPending returns the index of the first question without an outcome, or
// len(QuestionIDs) when every question has ended.
func (r *Round) NextPending() int {
	ended := make(map[string]bool, len(r.QuestionStatus))
	for _, o := range r.QuestionStatus {
		ended[o.QuestionID] = true
	}
	for i, id := range r.QuestionIDs {
		if !ended[id] {
			return i
		}
	}
	return len(r.QuestionIDs)
}

// Clone returns a copy that shares no memory with c.
func (c *Chooser) Clone() *Chooser {
	return &Chooser{TeamOrder: append([]string(nil), c.TeamOrder...), Index: c.Index}
}

// QuestionIndex returns the position of a question in the round, or -1.
func (r *Round) QuestionIndex(questionID string) int {
	for i, id := range r.QuestionIDs {
		if id == questionID {
			return i
		}
	}
	return -1
}

// Role of a participant.
type Role string

const (
	RoleOrganizer Role = "organizer"
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

// PlayerStatus drives turn and feedback semantics, never scoring.
type PlayerStatus string

const (
	PlayerIdle    PlayerStatus = "idle"
	PlayerFocus   PlayerStatus = "focus"
	PlayerReady   PlayerStatus = "ready"
	PlayerCorrect PlayerStatus = "correct"
	PlayerWrong   PlayerStatus = "wrong"
)

// Participant is an organizer, player or spectator of a session.
type Participant struct {
	ID     string       `json:"id"`
	Name   string       `json:"name"`
	Role   Role         `json:"role"`
	TeamID string       `json:"teamId,omitempty"`
	Status PlayerStatus `json:"status"`
}

// Team groups players; scores are attached to teams.
type Team struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Color     string   `json:"color,omitempty"`
	PlayerIDs []string `json:"playerIds"`
}

// Chooser is the rotation of acting teams.
type Chooser struct {
	TeamOrder []string `json:"teamOrder"`
	Index     int      `json:"index"`
}

// Current returns the acting team, or "" when the rotation is empty.
func (c *Chooser) Current() string {
	if len(c.TeamOrder) == 0 {
		return ""
	}
	return c.TeamOrder[c.Index%len(c.TeamOrder)]
}

// TimerStatus is the lifecycle state of the countdown.
type TimerStatus string

const (
	TimerReset TimerStatus = "reset"
	TimerStart TimerStatus = "start"
	TimerPause TimerStatus = "pause"
	TimerEnd   TimerStatus = "end"
)

// Timer is pure data rendered by clients; the engine never sleeps on it.
type Timer struct {
	Status     TimerStatus `json:"status"`
	Duration   int         `json:"duration"`
	Forward    bool        `json:"forward"`
	Authorized bool        `json:"authorized"`
	ManagedBy  string      `json:"managedBy,omitempty"`
	Seq        int64       `json:"seq"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// Scores is one scope (game or round) of the score ledger.
type Scores struct {
	Scores         map[string]int            `json:"scores"`
	ScoresProgress map[string]map[string]int `json:"scoresProgress"`
	Deltas         map[string]map[string]int `json:"deltas"`
	Mistakes       map[string]int            `json:"mistakes,omitempty"`
	// MistakeDeltas is mistakes per question (or round) and team, reverted on reset.
	MistakeDeltas map[string]map[string]int `json:"mistakeDeltas,omitempty"`
}

// NewScores returns a zeroed ledger for the given teams.
func NewScores(teamIDs []string) *Scores {
	s := &Scores{
		Scores:         make(map[string]int, len(teamIDs)),
		ScoresProgress: make(map[string]map[string]int, len(teamIDs)),
		Deltas:         make(map[string]map[string]int),
		Mistakes:       make(map[string]int),
		MistakeDeltas:  make(map[string]map[string]int),
	}
	for _, id := range teamIDs {
		s.Scores[id] = 0
		s.ScoresProgress[id] = make(map[string]int)
	}
	return s
}

// Normalize allocates nil maps of a decoded ledger.
func (s *Scores) Normalize() {
	if s.Scores == nil {
		s.Scores = make(map[string]int)
	}
	if s.ScoresProgress == nil {
		s.ScoresProgress = make(map[string]map[string]int)
	}
	if s.Deltas == nil {
		s.Deltas = make(map[string]map[string]int)
	}
	if s.Mistakes == nil {
		s.Mistakes = make(map[string]int)
	}
	if s.MistakeDeltas == nil {
		s.MistakeDeltas = make(map[string]map[string]int)
	}
}

// Total sums every team's score.
func (s *Scores) Total() int {
	n := 0
	for _, v := range s.Scores {
		n += v
	}
	return n
}

// Ready counts players that flagged themselves ready.
type Ready struct {
	NumPlayers int      `json:"numPlayers"`
	NumReady   int      `json:"numReady"`
	PlayerIDs  []string `json:"playerIds"`
}

// EffectKind names a presentation cue.
type EffectKind string

const (
	EffectCorrectAnswer EffectKind = "correct_answer"
	EffectWrongAnswer   EffectKind = "wrong_answer"
	EffectBuzz          EffectKind = "buzz"
	EffectQuestionEnd   EffectKind = "question_end"
	EffectRoundStart    EffectKind = "round_start"
	EffectRoundEnd      EffectKind = "round_end"
	EffectGameStart     EffectKind = "game_start"
	EffectGameEnd       EffectKind = "game_end"
	EffectTimerStart    EffectKind = "timer_start"
)

// Effect is a queued side-effect marker staged in the same transaction as
// the event that caused it.
type Effect struct {
	ID       string     `json:"id"`
	Seq      int64      `json:"seq"`
	Kind     EffectKind `json:"kind"`
	TeamID   string     `json:"teamId,omitempty"`
	PlayerID string     `json:"playerId,omitempty"`
	At       time.Time  `json:"at"`
}

// Effects is the bounded queue of recent markers.
type Effects struct {
	Seq   int64    `json:"seq"`
	Items []Effect `json:"items"`
}
