package postgres

import (
	"context"
	"fmt"
	"time"

	"gameshow-service/internal/app"
	"github.com/uptrace/bun"
)

type sessionEvent struct {
	bun.BaseModel `bun:"table:session_events"`

	ID         int64     `bun:"id,pk,autoincrement"`
	SessionID  string    `bun:"session_id,notnull"`
	RoundID    string    `bun:"round_id,nullzero"`
	QuestionID string    `bun:"question_id,nullzero"`
	ActorID    string    `bun:"actor_id,nullzero"`
	Action     string    `bun:"action,notnull"`
	At         time.Time `bun:"at,notnull"`
}

// EventArchive appends committed actions to session_events. The engine calls
// Record after commit, so each row is one committed action.
type EventArchive struct {
	db *bun.DB
}

func NewEventArchive(db *bun.DB) *EventArchive {
	return &EventArchive{db: db}
}

func (a *EventArchive) Record(ctx context.Context, ev app.Event) error {
	row := sessionEvent{
		SessionID:  ev.SessionID,
		RoundID:    ev.RoundID,
		QuestionID: ev.QuestionID,
		ActorID:    ev.ActorID,
		Action:     ev.Action,
		At:         ev.At.UTC(),
	}
	if _, err := a.db.NewInsert().Model(&row).Exec(ctx); err != nil {
		return fmt.Errorf("archive %s: %w", ev.Action, err)
	}
	return nil
}

// List returns the archived actions of a session in commit order.
func (a *EventArchive) List(ctx context.Context, sessionID string) ([]app.Event, error) {
	var rows []sessionEvent
	err := a.db.NewSelect().
		Model(&rows).
		Where("session_id = ?", sessionID).
		OrderExpr("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events := make([]app.Event, 0, len(rows))
	for _, r := range rows {
		events = append(events, app.Event{
			SessionID:  r.SessionID,
			RoundID:    r.RoundID,
			QuestionID: r.QuestionID,
			ActorID:    r.ActorID,
			Action:     r.Action,
			At:         r.At,
		})
	}
	return events, nil
}
