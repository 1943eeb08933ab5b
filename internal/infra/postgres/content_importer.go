package postgres

import (
	"context"
	"fmt"

	"gameshow-service/internal/domain"
	"github.com/uptrace/bun"
)

type questionRow struct {
	bun.BaseModel `bun:"table:questions"`

	ID   string              `bun:"id,pk"`
	Type domain.QuestionType `bun:"type,notnull"`
	Data domain.BaseQuestion `bun:"data,type:jsonb,notnull"`
}

// ContentImporter upserts authored questions.
type ContentImporter struct {
	db *bun.DB
}

func NewContentImporter(db *bun.DB) *ContentImporter {
	return &ContentImporter{db: db}
}

// Import writes every question, replacing existing rows with the same id.
func (i *ContentImporter) Import(ctx context.Context, questions []domain.BaseQuestion) (int, error) {
	if len(questions) == 0 {
		return 0, nil
	}
	rows := make([]questionRow, 0, len(questions))
	for _, q := range questions {
		if q.ID == "" {
			return 0, fmt.Errorf("import: question without id")
		}
		rows = append(rows, questionRow{ID: q.ID, Type: q.Type, Data: q})
	}
	_, err := i.db.NewInsert().
		Model(&rows).
		On("CONFLICT (id) DO UPDATE").
		Set("type = EXCLUDED.type").
		Set("data = EXCLUDED.data").
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("import questions: %w", err)
	}
	return len(rows), nil
}
