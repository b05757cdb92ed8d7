package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leeforge/picpipe/config"
	"github.com/leeforge/picpipe/logging"
	"github.com/leeforge/picpipe/media/queue"
	"github.com/leeforge/picpipe/server"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the image pipeline over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, root, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func runServe(ctx context.Context, root *rootOptions, addr string) error {
	a, err := newApp(ctx, root, true, func(next *config.AppConfig) {
		logging.Global().Info("config file changed; restart to apply",
			zap.String("addr", next.Server.Addr),
			zap.String("storage", next.Storage.Driver),
		)
	})
	if err != nil {
		return err
	}
	defer a.close()

	if addr == "" {
		addr = a.cfg.Server.Addr
	}
	maxUpload, err := a.cfg.Server.MaxUploadBytes()
	if err != nil {
		return err
	}

	jobs := queue.NewAsyncProcessor(a.cfg.Pipeline.Workers, a.cfg.Pipeline.QueueSize, a.pipeline, a.logger, a.metrics)
	jobs.Start()
	defer func() {
		if err := jobs.Stop(30 * time.Second); err != nil {
			a.logger.Warn("queue did not drain", zap.Error(err))
		}
	}()

	a.logger.Info("starting picpipe",
		zap.String("storage", a.store.Name()),
		zap.Strings("config_files", a.loader.Files()),
		zap.Int("workers", a.cfg.Pipeline.Workers),
	)

	srv := server.New(a.pipeline, server.Options{
		Addr:         addr,
		MaxUpload:    maxUpload,
		ReadTimeout:  time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(a.cfg.Server.WriteTimeout) * time.Second,
		Logger:       a.logger,
		Metrics:      a.metrics,
		Queue:        jobs,
		RateLimit:    a.cfg.Server.RateLimit,
	})
	return srv.Run(ctx)
}
