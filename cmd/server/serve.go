package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/task-manager/internal/queue"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server together with the optional session pruner
(SESSION_PRUNE_INTERVAL) and audit consumer (AUDIT_ENABLED).`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.Background()); err != nil {
			a.Log.Warn("shutdown", "error", err)
		}
	}()

	cfg := a.Config
	e := a.Router(ctx)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Log.InfoContext(gctx, "listening", "addr", cfg.Addr(), "env", cfg.Env, "store", cfg.StoreDriver)
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return e.Shutdown(sctx)
	})
	if cfg.PruneInterval > 0 {
		g.Go(func() error { return a.Pruner.Run(gctx) })
	}
	if cfg.AuditEnabled {
		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.AuditLogDir, a.Log.With("component", "audit-consumer"))
		g.Go(func() error { return consumer.Run(gctx) })
	}

	return g.Wait()
}
