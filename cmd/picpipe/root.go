package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leeforge/picpipe/config"
	"github.com/leeforge/picpipe/env_mode"
	"github.com/leeforge/picpipe/logging"
	"github.com/leeforge/picpipe/media/codec"
	"github.com/leeforge/picpipe/media/palette"
	"github.com/leeforge/picpipe/media/processor"
	"github.com/leeforge/picpipe/media/storage"
	"github.com/leeforge/picpipe/metrics"
)

type rootOptions struct {
	configPath string
	envMode    string
	verbose    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "picpipe",
		Short: "picpipe - image resize, budget compression, upload and color sampling",
		Long: `picpipe resizes images to a pixel bound, recompresses them until they fit a
byte budget, stores them in a blob store and samples their dominant colors.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.envMode == "" {
				return nil
			}
			return env_mode.Set(env_mode.Parse(opts.envMode))
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "config directory (default $CONFIG_PATH or ./config)")
	cmd.PersistentFlags().StringVar(&opts.envMode, "env", "", "environment mode: dev, pro or test (default $GO_ENV_MODE)")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log at debug level")

	cmd.AddCommand(
		newServeCmd(opts),
		newResizeCmd(opts),
		newUploadCmd(opts),
		newColorsCmd(opts),
		newBatchCmd(opts),
	)
	return cmd
}

// app holds everything a command needs, built from configuration.
type app struct {
	cfg      *config.AppConfig
	loader   *config.Loader
	logger   logging.Logger
	metrics  *metrics.Collector
	store    storage.Provider
	pipeline *processor.Pipeline
}

// newApp loads configuration and wires the pipeline. The blob store is
// only built when withStore is set so offline commands work without
// storage credentials.
func newApp(ctx context.Context, opts *rootOptions, withStore bool, onReload func(*config.AppConfig)) (*app, error) {
	loadOpts := config.DefaultOptions()
	if opts.configPath != "" {
		loadOpts.BasePath = opts.configPath
	}
	loadOpts.WatchAble = onReload != nil

	cfg, loader, err := config.Load(loadOpts, onReload)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if opts.verbose {
		cfg.Log.Level = "debug"
	}

	logger := logging.Init(cfg.Log)
	collector := metrics.NewCollector()

	pipelineOpts := []processor.Option{
		processor.WithLogger(logger),
		processor.WithMetrics(collector),
		processor.WithDefaults(cfg.Pipeline.Defaults()),
		processor.WithPalette(palette.New(cfg.Pipeline.Colors)),
	}

	var store storage.Provider
	if withStore {
		store, err = cfg.StorageProvider(ctx)
		if err != nil {
			return nil, fmt.Errorf("init %s storage: %w", cfg.Storage.Driver, err)
		}
		pipelineOpts = append(pipelineOpts, processor.WithStore(store))
	}

	nc := codec.New()
	nc.Quality = cfg.Pipeline.ResizeQuality

	return &app{
		cfg:      cfg,
		loader:   loader,
		logger:   logger,
		metrics:  collector,
		store:    store,
		pipeline: processor.New(nc, pipelineOpts...),
	}, nil
}

func (a *app) close() {
	_ = a.logger.Sync()
}
