package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"gameshow-service/internal/app"
	"gameshow-service/internal/domain"
	"gameshow-service/internal/infra/file"
	"github.com/spf13/cobra"
)

func newSessionCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage game sessions",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create <file>",
		Short: "Create a session from a YAML setup file and print its id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return createSession(cmd.Context(), flags, args[0], cmd.OutOrStdout())
		},
	})

	var count int
	scores := &cobra.Command{
		Use:   "scores <session-id>",
		Short: "Print the game scoreboard of a session each time it changes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return watchScores(cmd.Context(), flags, args[0], count, cmd.OutOrStdout())
		},
	}
	scores.Flags().IntVar(&count, "count", 0, "stop after this many updates (0 follows until interrupted)")
	cmd.AddCommand(scores)
	return cmd
}

// sessionEngine opens the shared session store. Sessions held in a
// process-local store would vanish on exit, so redis is required.
func sessionEngine(ctx context.Context, flags *rootFlags) (*app.Engine, *deps, *slog.Logger, error) {
	cfg, err := loadConfig(flags)
	if err != nil {
		return nil, nil, nil, err
	}
	if cfg.Redis.Addr == "" {
		return nil, nil, nil, fmt.Errorf("redis addr not configured")
	}
	logger := newLogger(os.Stderr, cfg.Log)
	d, err := openDeps(ctx, cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	engine, err := d.engine(cfg)
	if err != nil {
		d.close()
		return nil, nil, nil, err
	}
	return engine, d, logger, nil
}

func createSession(ctx context.Context, flags *rootFlags, path string, out io.Writer) error {
	setup, err := file.ReadSetup(path)
	if err != nil {
		return err
	}
	engine, d, logger, err := sessionEngine(ctx, flags)
	if err != nil {
		return err
	}
	defer d.close()

	id, err := engine.CreateSession(ctx, setup)
	if err != nil {
		return err
	}
	logger.Info("session created", "session_id", id, "title", setup.Title)
	_, err = fmt.Fprintln(out, id)
	return err
}

// watchScores writes one "team=score" line per scoreboard change.
func watchScores(ctx context.Context, flags *rootFlags, sessionID string, count int, out io.Writer) error {
	engine, d, _, err := sessionEngine(ctx, flags)
	if err != nil {
		return err
	}
	defer d.close()

	updates, cancel, err := engine.WatchScores(ctx, sessionID)
	if err != nil {
		return err
	}
	defer cancel()

	seen := 0
	for u := range updates {
		if u.Value == nil {
			return fmt.Errorf("session %s: %w", sessionID, domain.ErrSessionNotFound)
		}
		if _, err := fmt.Fprintln(out, formatScores(u.Value.Scores)); err != nil {
			return err
		}
		seen++
		if count > 0 && seen >= count {
			return nil
		}
	}
	return nil
}

func formatScores(scores map[string]int) string {
	teams := make([]string, 0, len(scores))
	for id := range scores {
		teams = append(teams, id)
	}
	sort.Strings(teams)
	parts := make([]string, len(teams))
	for i, id := range teams {
		parts[i] = fmt.Sprintf("%s=%d", id, scores[id])
	}
	return strings.Join(parts, " ")
}
