package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gameshow-service/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ContentLoader loads base question JSONB from Postgres.
type ContentLoader struct {
	pool *pgxpool.Pool
}

func NewContentLoader(pool *pgxpool.Pool) *ContentLoader {
	return &ContentLoader{pool: pool}
}

func (l *ContentLoader) LoadQuestion(ctx context.Context, questionID string) (domain.BaseQuestion, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM questions WHERE id=$1`, questionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BaseQuestion{}, fmt.Errorf("load question %s: %w", questionID, domain.ErrContentNotFound)
	}
	if err != nil {
		return domain.BaseQuestion{}, fmt.Errorf("load question: %w", err)
	}
	var q domain.BaseQuestion
	if err := json.Unmarshal(raw, &q); err != nil {
		return domain.BaseQuestion{}, fmt.Errorf("unmarshal question: %w", err)
	}
	if q.ID == "" {
		q.ID = questionID
	}
	return q, nil
}
