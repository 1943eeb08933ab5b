package cli

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"gameshow-service/internal/telemetry"
	transport "gameshow-service/internal/transport/http"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newStartCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the game show server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServer(cmd.Context(), flags)
		},
	}
}

func runServer(ctx context.Context, flags *rootFlags) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(flags)
	if err != nil {
		return err
	}
	logger := newLogger(os.Stdout, cfg.Log)

	shutdownTracing, err := telemetry.Setup(ctx, cfg.OTel.ServiceName, cfg.OTel.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	d, err := openDeps(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer d.close()

	engine, err := d.engine(cfg)
	if err != nil {
		return err
	}
	router := transport.NewRouter(engine, transport.Options{
		Logger:    logger,
		PublicURL: cfg.Server.PublicURL,
		Checkers:  d.checkers(),
	})
	addr := net.JoinHostPort("", cfg.Server.Port)
	srv := transport.NewServer(addr, router, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", "addr", addr)
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down http server")
		return srv.Shutdown(context.Background())
	})
	return g.Wait()
}
