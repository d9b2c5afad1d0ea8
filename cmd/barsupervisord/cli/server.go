package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/edirooss/barsupervisord/internal/config"
	"github.com/edirooss/barsupervisord/internal/rpc"
	"github.com/edirooss/barsupervisord/internal/supervisor"
)

func newServerCmd() *cobra.Command {
	var backlog int
	var startOn bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the supervisor daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			log, err := newLogger()
			if err != nil {
				return err
			}
			defer log.Sync() //nolint:errcheck

			return runServer(log, flags.dir, backlog, startOn)
		},
	}

	cmd.Flags().IntVar(&backlog, "backlog", 0, "max concurrent RPC connections (0 = unbounded)")
	cmd.Flags().BoolVar(&startOn, "on", false, "turn on immediately at startup")
	return cmd
}

func runServer(log *zap.Logger, dir string, backlog int, startOn bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("server: mkdir %s: %w", dir, err)
	}
	if err := supervisor.WriteDaemonPIDFile(dir); err != nil {
		return fail(log, err)
	}
	defer func() {
		if err := supervisor.RemoveDaemonPIDFile(dir); err != nil {
			log.Warn("remove pid file", zap.Error(err))
		}
	}()

	if failed, total, err := supervisor.RunOrphanSweep(dir, log); err != nil {
		log.Warn("orphan sweep incomplete", zap.Int("failed", failed), zap.Int("total", total), zap.Error(err))
	} else if total > 0 {
		log.Info("orphan sweep reaped leftover feeds", zap.Int("total", total))
	}

	cfg, err := config.LoadOrInit(filepath.Join(dir, "conf.toml"))
	if err != nil {
		return fail(log, err)
	}

	sup, err := supervisor.New(dir, cfg, log)
	if err != nil {
		return fail(log, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runDone := make(chan struct{})
	go func() {
		sup.Run(ctx)
		close(runDone)
	}()

	if startOn {
		if err := sup.SendOn(ctx); err != nil {
			log.Error("initial on failed", zap.Error(err))
		}
	}

	srv, err := rpc.Listen(filepath.Join(dir, "socket"), backlog, log)
	if err != nil {
		stop()
		<-runDone
		return fail(log, err)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Serve(ctx, sup) }()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-serveErr:
		if err != nil {
			log.Error("rpc serve failed", zap.Error(err))
		}
		stop()
	}

	_ = srv.Close()
	<-runDone
	return nil
}
