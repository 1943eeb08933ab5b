package app

import "gameshow-service/internal/domain"

func (t *turn) loadChooser() (*domain.Chooser, error) {
	if t.chooser != nil {
		return t.chooser, nil
	}
	c, err := t.repo.Chooser()
	if err != nil {
		return nil, err
	}
	t.chooser = c
	return c, nil
}

// seedChooser shuffles the session teams into a new rotation. Unless force is
// set, an existing rotation is kept.
func (t *turn) seedChooser(force bool) error {
	c, err := t.loadChooser()
	if err != nil {
		return err
	}
	if !force && len(c.TeamOrder) > 0 {
		return nil
	}
	c.TeamOrder = t.e.rnd.Strings(t.session.TeamIDs)
	c.Index = 0
	t.mark(docChooser)
	return nil
}

// rotateChooser advances the rotation cyclically and returns the acting team.
func (t *turn) rotateChooser() (string, error) {
	c, err := t.loadChooser()
	if err != nil {
		return "", err
	}
	if len(c.TeamOrder) == 0 {
		return "", nil
	}
	c.Index = (c.Index + 1) % len(c.TeamOrder)
	t.mark(docChooser)
	return c.Current(), nil
}

// advanceChooser moves to the next team not skipped. It reports false, and
// leaves the rotation unchanged, when every team is skipped.
func (t *turn) advanceChooser(skip func(teamID string) bool) (string, bool, error) {
	c, err := t.loadChooser()
	if err != nil {
		return "", false, err
	}
	n := len(c.TeamOrder)
	for step := 1; step <= n; step++ {
		idx := (c.Index + step) % n
		if !skip(c.TeamOrder[idx]) {
			c.Index = idx
			t.mark(docChooser)
			return c.TeamOrder[idx], true, nil
		}
	}
	return "", false, nil
}

// moveToHead puts a team first in the rotation and makes it current.
func (t *turn) moveToHead(teamID string) error {
	c, err := t.loadChooser()
	if err != nil {
		return err
	}
	order := make([]string, 0, len(c.TeamOrder))
	order = append(order, teamID)
	for _, id := range c.TeamOrder {
		if id != teamID {
			order = append(order, id)
		}
	}
	c.TeamOrder = order
	c.Index = 0
	t.mark(docChooser)
	return nil
}

// actingTeam returns the current chooser team.
func (t *turn) actingTeam() (string, error) {
	c, err := t.loadChooser()
	if err != nil {
		return "", err
	}
	return c.Current(), nil
}
