package domain

import "time"

// QuestionType is the closed set of interaction styles.
type QuestionType string

const (
	TypeMCQ              QuestionType = "mcq"
	TypeNagui            QuestionType = "nagui"
	TypeBasic            QuestionType = "basic"
	TypeProgressiveClues QuestionType = "progressive_clues"
	TypeImage            QuestionType = "image"
	TypeEmoji            QuestionType = "emoji"
	TypeBlindtest        QuestionType = "blindtest"
	TypeQuote            QuestionType = "quote"
	TypeLabelling        QuestionType = "labelling"
	TypeEnumeration      QuestionType = "enumeration"
	TypeOddOneOut        QuestionType = "odd_one_out"
	TypeMatching         QuestionType = "matching"
)

// RoundType is a question type, or one of the composite kinds.
type RoundType string

const (
	RoundMixed   RoundType = "mixed"
	RoundSpecial RoundType = "special"
)

// Nagui options.
const (
	NaguiHide   = "hide"
	NaguiSquare = "square"
	NaguiDuo    = "duo"
)

// MCQContent is a multiple-choice question.
type MCQContent struct {
	Choices     []string `json:"choices" yaml:"choices"`
	AnswerIdx   int      `json:"answerIdx" yaml:"answerIdx"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation"`
}

// NaguiContent is a multiple-choice question played with hide/square/duo options.
type NaguiContent struct {
	Choices     []string `json:"choices" yaml:"choices"`
	AnswerIdx   int      `json:"answerIdx" yaml:"answerIdx"`
	DuoIdx      int      `json:"duoIdx" yaml:"duoIdx"`
	Explanation string   `json:"explanation,omitempty" yaml:"explanation"`
}

// BasicContent is a single answer judged by the organizer.
type BasicContent struct {
	Answer string `json:"answer" yaml:"answer"`
}

// RiddleContent covers progressive clues, image, emoji and blindtest.
type RiddleContent struct {
	Answer string   `json:"answer" yaml:"answer"`
	Clues  []string `json:"clues,omitempty" yaml:"clues"`
	Media  string   `json:"media,omitempty" yaml:"media"`
}

// Span is a half-open character range of the quote text.
type Span struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

// QuoteContent is a quote with guessable elements.
type QuoteContent struct {
	Quote      string   `json:"quote" yaml:"quote"`
	Author     string   `json:"author,omitempty" yaml:"author"`
	Source     string   `json:"source,omitempty" yaml:"source"`
	QuoteParts []Span   `json:"quoteParts,omitempty" yaml:"quoteParts"`
	ToGuess    []string `json:"toGuess" yaml:"toGuess"`
}

// LabellingContent is an image with numbered labels.
type LabellingContent struct {
	Image  string   `json:"image,omitempty" yaml:"image"`
	Labels []string `json:"labels" yaml:"labels"`
}

// EnumerationContent lists the items a challenger must cite.
type EnumerationContent struct {
	Answer []string `json:"answer" yaml:"answer"`
	MaxBid int      `json:"maxBid,omitempty" yaml:"maxBid"`
}

// OddOneOutItem is one proposition.
type OddOneOutItem struct {
	Title       string `json:"title" yaml:"title"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation"`
	IsOdd       bool   `json:"isOdd,omitempty" yaml:"isOdd"`
}

// OddOneOutContent holds propositions with exactly one odd.
type OddOneOutContent struct {
	Items []OddOneOutItem `json:"items" yaml:"items"`
}

// OddIndex returns the index of the odd item, or -1 unless exactly one item
// is odd.
func (c *OddOneOutContent) OddIndex() int {
	idx := -1
	for i, it := range c.Items {
		if !it.IsOdd {
			continue
		}
		if idx >= 0 {
			return -1
		}
		idx = i
	}
	return idx
}

// MatchingContent holds rows of matching tuples (2 or 3 columns).
type MatchingContent struct {
	Rows [][]string `json:"rows" yaml:"rows"`
}

// NumCols returns the number of columns of the grid.
func (c *MatchingContent) NumCols() int {
	if len(c.Rows) == 0 {
		return 0
	}
	return len(c.Rows[0])
}

// BaseQuestion is immutable authored content shared across sessions.
type BaseQuestion struct {
	ID    string       `json:"id" yaml:"id"`
	Type  QuestionType `json:"type" yaml:"type"`
	Title string       `json:"title" yaml:"title"`
	Note  string       `json:"note,omitempty" yaml:"note"`

	MCQ         *MCQContent         `json:"mcq,omitempty" yaml:"mcq"`
	Nagui       *NaguiContent       `json:"nagui,omitempty" yaml:"nagui"`
	Basic       *BasicContent       `json:"basic,omitempty" yaml:"basic"`
	Riddle      *RiddleContent      `json:"riddle,omitempty" yaml:"riddle"`
	Quote       *QuoteContent       `json:"quote,omitempty" yaml:"quote"`
	Labelling   *LabellingContent   `json:"labelling,omitempty" yaml:"labelling"`
	Enumeration *EnumerationContent `json:"enumeration,omitempty" yaml:"enumeration"`
	OddOneOut   *OddOneOutContent   `json:"oddOneOut,omitempty" yaml:"oddOneOut"`
	Matching    *MatchingContent    `json:"matching,omitempty" yaml:"matching"`
}

// LiveStatus is the per-session lifecycle of a question.
type LiveStatus string

const (
	LiveIdle   LiveStatus = "idle"
	LiveActive LiveStatus = "active"
	LiveEnded  LiveStatus = "ended"
)

// ChoiceState is the live state of mcq and nagui questions.
type ChoiceState struct {
	Option    string `json:"option,omitempty"`
	ChoiceIdx *int   `json:"choiceIdx,omitempty"`
}

// Cancellation records an invalidated buzz.
type Cancellation struct {
	PlayerID string    `json:"playerId"`
	ClueIdx  int       `json:"clueIdx"`
	At       time.Time `json:"at"`
}

// Credit records who revealed a quote element or a label.
type Credit struct {
	PlayerID string `json:"playerId,omitempty"`
	TeamID   string `json:"teamId,omitempty"`
}

// BuzzerState is the live state of the buzzer family.
type BuzzerState struct {
	Buzzed         []string          `json:"buzzed"`
	Canceled       []Cancellation    `json:"canceled"`
	CurrentClueIdx int               `json:"currentClueIdx"`
	Revealed       map[string]Credit `json:"revealed,omitempty"`
}

// Head returns the authoritative buzzer, or "".
func (b *BuzzerState) Head() string {
	if len(b.Buzzed) == 0 {
		return ""
	}
	return b.Buzzed[0]
}

// CancelCount returns how many times a participant was invalidated.
func (b *BuzzerState) CancelCount(playerID string) int {
	n := 0
	for _, c := range b.Canceled {
		if c.PlayerID == playerID {
			n++
		}
	}
	return n
}

// LastCancel returns the latest cancellation of a participant.
func (b *BuzzerState) LastCancel(playerID string) (Cancellation, bool) {
	for i := len(b.Canceled) - 1; i >= 0; i-- {
		if b.Canceled[i].PlayerID == playerID {
			return b.Canceled[i], true
		}
	}
	return Cancellation{}, false
}

// Enumeration phases.
const (
	PhaseIdle       = "idle"
	PhaseReflection = "reflection"
	PhaseChallenge  = "challenge"
	PhaseEnd        = "end"
)

// Bet is a bid placed during the reflection phase.
type Bet struct {
	PlayerID string    `json:"playerId"`
	TeamID   string    `json:"teamId"`
	Value    int       `json:"value"`
	At       time.Time `json:"at"`
}

// EnumerationState is the live state of an enumeration question.
type EnumerationState struct {
	Phase      string `json:"phase"`
	Bets       []Bet  `json:"bets"`
	Challenger *Bet   `json:"challenger,omitempty"`
	Cited      []int  `json:"cited"`
}

// Pick is one selected odd-one-out proposition.
type Pick struct {
	Idx      int    `json:"idx"`
	PlayerID string `json:"playerId"`
	TeamID   string `json:"teamId"`
}

// OddOneOutState is the live state of an odd-one-out question.
type OddOneOutState struct {
	Order []int  `json:"order"`
	Picks []Pick `json:"picks"`
}

// Picked reports whether a proposition was already selected.
func (s *OddOneOutState) Picked(idx int) bool {
	for _, p := range s.Picks {
		if p.Idx == idx {
			return true
		}
	}
	return false
}

// MatchAttempt is one submitted match.
type MatchAttempt struct {
	TeamID   string `json:"teamId"`
	PlayerID string `json:"playerId"`
	Rows     []int  `json:"rows"`
	Correct  bool   `json:"correct"`
}

// MatchingState is the live state of a matching grid.
type MatchingState struct {
	Order    [][]int        `json:"order"`
	Matched  []int          `json:"matched"`
	Attempts []MatchAttempt `json:"attempts"`
}

// Mistakes counts a team's incorrect attempts.
func (s *MatchingState) Mistakes(teamID string) int {
	n := 0
	for _, a := range s.Attempts {
		if a.TeamID == teamID && !a.Correct {
			n++
		}
	}
	return n
}

// IsMatched reports whether a row was revealed.
func (s *MatchingState) IsMatched(row int) bool {
	for _, m := range s.Matched {
		if m == row {
			return true
		}
	}
	return false
}

// LiveQuestion is the mutable per-session play state of a question.
type LiveQuestion struct {
	ID        string       `json:"id"`
	RoundID   string       `json:"roundId"`
	Type      QuestionType `json:"type"`
	Status    LiveStatus   `json:"status"`
	DateStart *time.Time   `json:"dateStart,omitempty"`
	DateEnd   *time.Time   `json:"dateEnd,omitempty"`
	TeamID    string       `json:"teamId,omitempty"`
	PlayerID  string       `json:"playerId,omitempty"`
	Correct   *bool        `json:"correct,omitempty"`
	Reward    int          `json:"reward"`
	// Rotation in effect when the question started.
	StartChooser *Chooser `json:"startChooser,omitempty"`

	Choice      *ChoiceState      `json:"choice,omitempty"`
	Buzzer      *BuzzerState      `json:"buzzer,omitempty"`
	Enumeration *EnumerationState `json:"enumeration,omitempty"`
	OddOneOut   *OddOneOutState   `json:"oddOneOut,omitempty"`
	Matching    *MatchingState    `json:"matching,omitempty"`
}

// Ended reports whether the question reached its terminal state.
func (q *LiveQuestion) Ended() bool {
	return q.Status == LiveEnded
}
