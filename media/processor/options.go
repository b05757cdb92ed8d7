package processor

import (
	"github.com/leeforge/picpipe/logging"
	"github.com/leeforge/picpipe/metrics"
)

// Defaults fills job fields the caller left at zero.
type Defaults struct {
	MaxByte           int
	JPEGCompressLevel int
	PNGCompressLevel  int
	CompressTries     int
}

// StandardDefaults returns the stock job defaults.
func StandardDefaults() Defaults {
	return Defaults{
		MaxByte:           DefaultMaxByte,
		JPEGCompressLevel: DefaultJPEGCompressLevel,
		PNGCompressLevel:  DefaultPNGCompressLevel,
		CompressTries:     DefaultCompressTries,
	}
}

func (d Defaults) withFallback() Defaults {
	std := StandardDefaults()
	if d.MaxByte <= 0 {
		d.MaxByte = std.MaxByte
	}
	if d.JPEGCompressLevel <= 0 {
		d.JPEGCompressLevel = std.JPEGCompressLevel
	}
	if d.PNGCompressLevel <= 0 {
		d.PNGCompressLevel = std.PNGCompressLevel
	}
	if d.CompressTries <= 0 {
		d.CompressTries = std.CompressTries
	}
	return d
}

// Apply normalizes the MIME type and fills zero-valued tuning fields.
func (d Defaults) Apply(job ImageJob) ImageJob {
	d = d.withFallback()

	job.MimeType = NormalizeMime(job.MimeType)
	if job.MaxByte <= 0 {
		job.MaxByte = d.MaxByte
	}
	if job.CompressTries <= 0 {
		job.CompressTries = d.CompressTries
	}
	if job.CompressLevel <= 0 {
		switch job.Format() {
		case FormatPNG:
			job.CompressLevel = d.PNGCompressLevel
		default:
			job.CompressLevel = d.JPEGCompressLevel
		}
	}
	return job
}

type options struct {
	store    BlobStore
	palette  PaletteExtractor
	logger   logging.Logger
	metrics  *metrics.Collector
	defaults Defaults
}

// Option configures a Pipeline or Compressor.
type Option func(*options)

// WithStore sets the blob store used by Bucketer.
func WithStore(store BlobStore) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithPalette sets the extractor used by ColorPull.
func WithPalette(p PaletteExtractor) Option {
	return func(o *options) {
		o.palette = p
	}
}

func WithLogger(logger logging.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

func WithMetrics(c *metrics.Collector) Option {
	return func(o *options) {
		o.metrics = c
	}
}

func WithDefaults(d Defaults) Option {
	return func(o *options) {
		o.defaults = d
	}
}

func buildOptions(opts []Option) options {
	o := options{
		defaults: StandardDefaults(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.Nop()
	}
	if o.metrics == nil {
		o.metrics = metrics.NewCollector()
	}
	o.defaults = o.defaults.withFallback()
	return o
}
