// Package sqlite keeps authored questions in a single SQLite file, for
// single-host deployments without Postgres.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"gameshow-service/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `CREATE TABLE IF NOT EXISTS questions (
	id   TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	data TEXT NOT NULL
)`

// ContentStore loads and imports base questions.
type ContentStore struct {
	db *sql.DB
}

// Open opens the database at path and creates the schema.
func Open(path string) (*ContentStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &ContentStore{db: db}, nil
}

func (s *ContentStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *ContentStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ContentStore) LoadQuestion(ctx context.Context, questionID string) (domain.BaseQuestion, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM questions WHERE id = ?`, questionID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.BaseQuestion{}, fmt.Errorf("load question %s: %w", questionID, domain.ErrContentNotFound)
	}
	if err != nil {
		return domain.BaseQuestion{}, fmt.Errorf("load question: %w", err)
	}
	var q domain.BaseQuestion
	if err := json.Unmarshal([]byte(raw), &q); err != nil {
		return domain.BaseQuestion{}, fmt.Errorf("unmarshal question: %w", err)
	}
	return q, nil
}

// Import upserts questions in one transaction.
func (s *ContentStore) Import(ctx context.Context, questions []domain.BaseQuestion) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO questions (id, type, data) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET type = excluded.type, data = excluded.data`)
	if err != nil {
		return 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for _, q := range questions {
		if q.ID == "" {
			return 0, fmt.Errorf("import: question without id")
		}
		data, err := json.Marshal(q)
		if err != nil {
			return 0, fmt.Errorf("marshal question %s: %w", q.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, q.ID, string(q.Type), string(data)); err != nil {
			return 0, fmt.Errorf("import question %s: %w", q.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit import: %w", err)
	}
	return len(questions), nil
}
