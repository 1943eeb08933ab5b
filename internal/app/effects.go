package app

import "gameshow-service/internal/domain"

// maxEffects bounds the effect queue; clients only render recent cues.
const maxEffects = 20

// effect queues a presentation cue. It is a staged write, committed with the
// event that caused it.
func (t *turn) effect(kind domain.EffectKind, teamID, playerID string) error {
	if t.effects == nil {
		fx, err := t.repo.Effects()
		if err != nil {
			return err
		}
		t.effects = fx
	}
	t.effects.Seq++
	t.effects.Items = append(t.effects.Items, domain.Effect{
		ID:       t.e.newID(),
		Seq:      t.effects.Seq,
		Kind:     kind,
		TeamID:   teamID,
		PlayerID: playerID,
		At:       t.now,
	})
	if n := len(t.effects.Items); n > maxEffects {
		t.effects.Items = append([]domain.Effect(nil), t.effects.Items[n-maxEffects:]...)
	}
	t.mark(docEffects)
	return nil
}

// answerEffect queues the cue matching a verdict.
func (t *turn) answerEffect(correct bool, teamID, playerID string) error {
	kind := domain.EffectWrongAnswer
	if correct {
		kind = domain.EffectCorrectAnswer
	}
	return t.effect(kind, teamID, playerID)
}
