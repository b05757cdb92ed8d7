package config

import (
	"context"
	"fmt"

	"github.com/creasty/defaults"
	"github.com/dustin/go-humanize"
	"github.com/go-playground/validator/v10"

	"github.com/leeforge/picpipe/logging"
	"github.com/leeforge/picpipe/media/processor"
	"github.com/leeforge/picpipe/media/storage"
)

// AppConfig is the full picpipe configuration.
type AppConfig struct {
	Log      logging.Config `mapstructure:"log" json:"log" yaml:"log"`
	Pipeline PipelineConfig `mapstructure:"pipeline" json:"pipeline" yaml:"pipeline"`
	Storage  storage.Config `mapstructure:"storage" json:"storage" yaml:"storage"`
	Server   ServerConfig   `mapstructure:"server" json:"server" yaml:"server"`
}

// PipelineConfig holds job defaults and worker sizing.
type PipelineConfig struct {
	MaxByte           int `mapstructure:"max-byte" json:"maxByte" yaml:"max-byte" default:"100000000" validate:"gt=0"`
	JPEGCompressLevel int `mapstructure:"jpeg-compress-level" json:"jpegCompressLevel" yaml:"jpeg-compress-level" default:"10" validate:"min=1,max=10"`
	PNGCompressLevel  int `mapstructure:"png-compress-level" json:"pngCompressLevel" yaml:"png-compress-level" default:"5" validate:"min=0,max=9"`
	CompressTries     int `mapstructure:"compress-tries" json:"compressTries" yaml:"compress-tries" default:"5" validate:"min=1,max=50"`
	Workers           int `mapstructure:"workers" json:"workers" yaml:"workers" default:"4" validate:"min=1"`
	QueueSize         int `mapstructure:"queue-size" json:"queueSize" yaml:"queue-size" default:"100" validate:"min=1"`
	Colors            int `mapstructure:"colors" json:"colors" yaml:"colors" default:"9" validate:"min=1,max=9"`
	ResizeQuality     int `mapstructure:"resize-quality" json:"resizeQuality" yaml:"resize-quality" default:"80" validate:"min=1,max=100"`
}

// Defaults converts the section into processor job defaults.
func (p PipelineConfig) Defaults() processor.Defaults {
	return processor.Defaults{
		MaxByte:           p.MaxByte,
		JPEGCompressLevel: p.JPEGCompressLevel,
		PNGCompressLevel:  p.PNGCompressLevel,
		CompressTries:     p.CompressTries,
	}
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `mapstructure:"addr" json:"addr" yaml:"addr" default:":8080" validate:"required"`
	// MaxUpload is a human size such as "32MB".
	MaxUpload string `mapstructure:"max-upload" json:"maxUpload" yaml:"max-upload" default:"32MB" validate:"required"`
	// ReadTimeout and WriteTimeout are in seconds.
	ReadTimeout  int `mapstructure:"read-timeout" json:"readTimeout" yaml:"read-timeout" default:"30"`
	WriteTimeout int `mapstructure:"write-timeout" json:"writeTimeout" yaml:"write-timeout" default:"60"`
	// RateLimit is image requests per client per minute; 0 disables it.
	RateLimit int `mapstructure:"rate-limit" json:"rateLimit" yaml:"rate-limit" default:"0" validate:"gte=0"`
}

// MaxUploadBytes parses MaxUpload.
func (s ServerConfig) MaxUploadBytes() (int64, error) {
	n, err := humanize.ParseBytes(s.MaxUpload)
	if err != nil {
		return 0, fmt.Errorf("server.max-upload: %w", err)
	}
	return int64(n), nil
}

// Validate checks struct tags and derived values.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := c.Server.MaxUploadBytes(); err != nil {
		return err
	}
	return nil
}

// Load reads files and environment through opts, applies struct defaults
// and validates the result. When opts.WatchAble is set, onReload receives
// each successfully re-validated config.
func Load(opts Options, onReload func(*AppConfig)) (*AppConfig, *Loader, error) {
	loader, err := NewLoader(opts)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := build(loader)
	if err != nil {
		return nil, nil, err
	}

	loader.Watch(func() error {
		fresh, err := NewLoader(opts)
		if err != nil {
			return err
		}
		next, err := build(fresh)
		if err != nil {
			return err
		}
		if onReload != nil {
			onReload(next)
		}
		return nil
	})
	return cfg, loader, nil
}

func build(loader *Loader) (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("failed to set defaults: %w", err)
	}
	if err := loader.Bind(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// StorageProvider builds the configured blob store provider.
func (c *AppConfig) StorageProvider(ctx context.Context) (storage.Provider, error) {
	return storage.NewFromConfig(ctx, c.Storage)
}
