package processor

import (
	"context"

	"go.uber.org/zap"

	apperrors "github.com/leeforge/picpipe/errors"
	"github.com/leeforge/picpipe/logging"
	"github.com/leeforge/picpipe/metrics"
)

// Compressor re-encodes a buffer already at its target dimensions until it
// fits the job's byte budget.
type Compressor struct {
	codec    Codec
	logger   logging.Logger
	metrics  *metrics.Collector
	defaults Defaults
}

// NewCompressor creates a Compressor. Only WithLogger, WithMetrics and
// WithDefaults are used.
func NewCompressor(codec Codec, opts ...Option) *Compressor {
	o := buildOptions(opts)
	return &Compressor{
		codec:    codec,
		logger:   o.logger.Named("compressor"),
		metrics:  o.metrics,
		defaults: o.defaults,
	}
}

// Compress dispatches on the job's format. A result still over budget once
// retries run out is returned without error; callers compare Size with
// MaxByte when they care.
func (c *Compressor) Compress(ctx context.Context, job ImageJob) (ImageJob, error) {
	job = c.defaults.Apply(job)

	switch job.Format() {
	case FormatJPEG:
		return c.compressJPEG(ctx, job)
	case FormatPNG:
		return c.compressPNG(ctx, job)
	default:
		return ImageJob{}, Validate(job, ModeSample).Err()
	}
}

func (c *Compressor) compressJPEG(ctx context.Context, job ImageJob) (ImageJob, error) {
	log := logging.WithContext(c.logger, ctx)

	level := clampJPEGLevel(job.CompressLevel)
	tries := job.CompressTries
	buf := job.Buffer
	attempt := CompressionAttempt{Level: level, Size: len(buf)}
	encodes := 0

	for attempt.Size > job.MaxByte && tries > 0 {
		out, err := c.codec.Encode(buf, EncodeParams{Format: FormatJPEG, Quality: level * 10})
		if err != nil {
			return ImageJob{}, apperrors.WrapCodec(err, "encode")
		}
		encodes++
		buf = out
		attempt = CompressionAttempt{Level: level, Size: len(buf)}

		log.Debug("jpeg recompressed",
			zap.Int("level", attempt.Level),
			zap.Int("size", attempt.Size),
			zap.Int("max_byte", job.MaxByte),
			zap.Int("tries_left", tries-1),
		)

		if attempt.Size <= job.MaxByte {
			break
		}
		tries--
		if level > minJPEGLevel {
			level--
		}
	}

	job.Buffer = buf
	job.Size = len(buf)
	job.CompressLevel = level
	job.CompressTries = tries

	c.record(FormatJPEG, encodes, job)
	return job, nil
}

func (c *Compressor) compressPNG(ctx context.Context, job ImageJob) (ImageJob, error) {
	job.Size = len(job.Buffer)
	if job.Size <= job.MaxByte {
		c.record(FormatPNG, 0, job)
		return job, nil
	}

	out, err := c.codec.Encode(job.Buffer, EncodeParams{Format: FormatPNG, CompressionLevel: job.CompressLevel})
	if err != nil {
		return ImageJob{}, apperrors.WrapCodec(err, "encode")
	}

	logging.WithContext(c.logger, ctx).Debug("png recompressed",
		zap.Int("compression_level", job.CompressLevel),
		zap.Int("size_before", job.Size),
		zap.Int("size", len(out)),
		zap.Int("max_byte", job.MaxByte),
	)

	job.Buffer = out
	job.Size = len(out)
	c.record(FormatPNG, 1, job)
	return job, nil
}

func (c *Compressor) record(format Format, encodes int, job ImageJob) {
	labels := map[string]string{"format": string(format)}
	c.metrics.ObserveHistogram("compress_encodes", float64(encodes), labels)
	if job.Size > job.MaxByte {
		c.metrics.IncCounter("compress_over_budget_total", labels)
	}
}

func clampJPEGLevel(level int) int {
	if level < minJPEGLevel {
		return minJPEGLevel
	}
	if level > maxJPEGLevel {
		return maxJPEGLevel
	}
	return level
}
