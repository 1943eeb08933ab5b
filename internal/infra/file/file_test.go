package file

import (
	"os"
	"path/filepath"
	"testing"

	"gameshow-service/internal/domain"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "doc.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestReadQuestions(t *testing.T) {
	path := write(t, `
questions:
  - id: q1
    type: mcq
    title: Capital of France?
    mcq:
      choices: [Lyon, Paris, Nice]
      answerIdx: 1
  - id: q2
    type: odd_one_out
    title: Not a planet
    oddOneOut:
      items:
        - title: Mars
        - title: Pluto
          isOdd: true
`)
	qs, err := ReadQuestions(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(qs) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(qs))
	}
	if qs[0].Type != domain.TypeMCQ || qs[0].MCQ.AnswerIdx != 1 || len(qs[0].MCQ.Choices) != 3 {
		t.Fatalf("unexpected mcq %+v", qs[0])
	}
	if qs[1].OddOneOut.OddIndex() != 1 {
		t.Fatalf("expected Pluto odd, got %+v", qs[1].OddOneOut)
	}
}

func TestReadQuestionsRejectsDuplicates(t *testing.T) {
	path := write(t, `
questions:
  - id: q1
    type: basic
  - id: q1
    type: basic
`)
	if _, err := ReadQuestions(path); err == nil {
		t.Fatalf("expected duplicate id error")
	}
}

func TestReadQuestionsNeedsExactlyOneOddItem(t *testing.T) {
	for name, items := range map[string]string{
		"none": "        - title: Mars\n        - title: Venus\n",
		"two":  "        - title: Mars\n          isOdd: true\n        - title: Pluto\n          isOdd: true\n",
	} {
		t.Run(name, func(t *testing.T) {
			path := write(t, "questions:\n  - id: q1\n    type: odd_one_out\n    oddOneOut:\n      items:\n"+items)
			if _, err := ReadQuestions(path); err == nil {
				t.Fatalf("expected an odd item error")
			}
		})
	}
}

func TestReadSetup(t *testing.T) {
	path := write(t, `
title: Friday night
scorePolicy: completion_rate
organizers:
  - id: host
    name: Host
teams:
  - id: red
    name: Red
    color: "#f00"
rounds:
  - id: r1
    title: Warmup
    type: mcq
    questionIds: [q1, q2]
    rewards:
      reward: 2
`)
	setup, err := ReadSetup(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if setup.ScorePolicy != domain.PolicyCompletionRate || len(setup.Teams) != 1 {
		t.Fatalf("unexpected setup %+v", setup)
	}
	r := setup.Rounds[0]
	if r.Type != domain.RoundType(domain.TypeMCQ) || r.Rewards.Reward != 2 || len(r.QuestionIDs) != 2 {
		t.Fatalf("unexpected round %+v", r)
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := ReadSetup(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected an error")
	}
}
