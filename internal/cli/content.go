package cli

import (
	"context"
	"fmt"
	"os"

	"gameshow-service/internal/domain"
	"gameshow-service/internal/infra/file"
	pginfra "gameshow-service/internal/infra/postgres"
	redisinfra "gameshow-service/internal/infra/redis"
	"github.com/spf13/cobra"
)

func newContentCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Manage authored questions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "import <file>",
		Short: "Import questions from a YAML file into Postgres or SQLite",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return importContent(cmd.Context(), flags, args[0])
		},
	})
	return cmd
}

func importContent(ctx context.Context, flags *rootFlags, path string) error {
	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stderr, cfg.Log)

	questions, err := file.ReadQuestions(path)
	if err != nil {
		return err
	}
	d, err := openDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.close()

	var n int
	switch {
	case d.bun != nil:
		n, err = pginfra.NewContentImporter(d.bun).Import(ctx, questions)
	case d.sqlite != nil:
		n, err = d.sqlite.Import(ctx, questions)
	default:
		return fmt.Errorf("no content database configured: set postgres.url or sqlite.path")
	}
	if err != nil {
		return err
	}

	// Cached copies would otherwise outlive the import until their TTL.
	if d.redis != nil {
		loader, err := d.contentLoader(cfg)
		if err != nil {
			return err
		}
		cache := redisinfra.NewContentRepository(d.redis, loader, defaultContentTTL)
		for _, q := range questions {
			if err := cache.Invalidate(ctx, q.ID); err != nil {
				logger.Warn("content cache invalidation failed", "question_id", q.ID, "error", err)
			}
		}
	}
	logger.Info("content imported", "path", path, "questions", n, "types", countTypes(questions))
	return nil
}

func countTypes(questions []domain.BaseQuestion) map[domain.QuestionType]int {
	out := make(map[domain.QuestionType]int)
	for _, q := range questions {
		out[q.Type]++
	}
	return out
}
