package processor

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	apperrors "github.com/leeforge/picpipe/errors"
	"github.com/leeforge/picpipe/logging"
	"github.com/leeforge/picpipe/media/storage"
	"github.com/leeforge/picpipe/metrics"
)

// Pipeline composes validation, the resize pass, the budget compressor and
// the optional upload and color sampling stages.
type Pipeline struct {
	codec      Codec
	store      BlobStore
	palette    PaletteExtractor
	compressor *Compressor
	logger     logging.Logger
	metrics    *metrics.Collector
	defaults   Defaults
}

// New creates a Pipeline around codec.
func New(codec Codec, opts ...Option) *Pipeline {
	o := buildOptions(opts)
	return &Pipeline{
		codec:      codec,
		store:      o.store,
		palette:    o.palette,
		compressor: NewCompressor(codec, opts...),
		logger:     o.logger.Named("pipeline"),
		metrics:    o.metrics,
		defaults:   o.defaults,
	}
}

// Defaults returns the defaults applied to incoming jobs.
func (p *Pipeline) Defaults() Defaults {
	return p.defaults
}

// ResizeAndCompress validates job, applies the resize chosen by
// ResolveTransform and, unless the job is a thumbnail, runs the budget
// compressor on the result.
func (p *Pipeline) ResizeAndCompress(ctx context.Context, job ImageJob) (ImageJob, error) {
	start := time.Now()
	job = p.defaults.Apply(job)
	log := logging.WithContext(p.logger, ctx).With(zap.String("mimetype", job.MimeType))

	if err := Validate(job, ModeResize).Err(); err != nil {
		p.fail("validate", job.Format())
		log.Warn("resize job rejected", zap.Error(err))
		return ImageJob{}, err
	}

	originalSize := len(job.Buffer)
	resized, t, err := p.resize(job)
	if err != nil {
		p.fail("resize", job.Format())
		log.Error("resize failed", zap.Error(err))
		return ImageJob{}, err
	}
	p.metrics.IncCounter("transforms_total", map[string]string{"transform": t.String()})

	out := resized
	if !job.Thumb {
		out, err = p.compressor.Compress(ctx, resized)
		if err != nil {
			p.fail("compress", job.Format())
			log.Error("compress failed", zap.Error(err))
			return ImageJob{}, err
		}
	}

	p.metrics.IncCounter("jobs_total", map[string]string{"format": string(job.Format()), "status": "ok"})
	p.metrics.ObserveHistogram("job_duration_seconds", time.Since(start).Seconds(), nil)
	log.Info("image resized",
		zap.String("transform", t.String()),
		zap.String("size_before", humanize.Bytes(uint64(originalSize))),
		zap.String("size_after", humanize.Bytes(uint64(out.Size))),
		zap.Bool("within_budget", out.Size <= out.MaxByte),
		zap.Duration("took", time.Since(start)),
	)
	return out, nil
}

// resize reads fresh metadata, resolves the transform and applies it.
func (p *Pipeline) resize(job ImageJob) (ImageJob, Transform, error) {
	meta, err := p.codec.Metadata(job.Buffer)
	if err != nil {
		return ImageJob{}, Transform{}, apperrors.WrapCodec(err, "metadata")
	}

	t := ResolveJobTransform(job, meta)
	out, err := p.codec.Apply(job.Buffer, t, job.Format())
	if err != nil {
		return ImageJob{}, t, apperrors.WrapCodec(err, "resize").WithDetail("transform", t.String())
	}

	job.Buffer = out
	job.Size = len(out)
	return job, t, nil
}

// Bucketer uploads the job's buffer to its bucket under its name and
// attaches the returned ETag.
func (p *Pipeline) Bucketer(ctx context.Context, job ImageJob) (ImageJob, error) {
	job.MimeType = NormalizeMime(job.MimeType)
	log := logging.WithContext(p.logger, ctx).With(zap.String("bucket", job.Bucket), zap.String("key", job.Name))

	if err := Validate(job, ModeUpload).Err(); err != nil {
		p.fail("validate", job.Format())
		log.Warn("upload job rejected", zap.Error(err))
		return ImageJob{}, err
	}
	if p.store == nil {
		return ImageJob{}, apperrors.NewInternal("no blob store configured")
	}

	out, err := p.store.Put(ctx, storage.PutInput{
		Body:        job.Buffer,
		Key:         job.Name,
		Bucket:      job.Bucket,
		ContentType: job.MimeType,
	})
	if err != nil {
		p.fail("upload", job.Format())
		log.Error("upload failed", zap.String("provider", p.store.Name()), zap.Error(err))
		return ImageJob{}, apperrors.WrapStore(err, p.store.Name())
	}

	job.ETag = out.ETag
	job.Size = len(job.Buffer)
	p.metrics.IncCounter("uploads_total", map[string]string{"provider": p.store.Name()})
	log.Info("image uploaded", zap.String("etag", job.ETag), zap.Int("size", job.Size))
	return job, nil
}

// ColorPull attaches up to nine palette colors and the average color of
// the job's image.
func (p *Pipeline) ColorPull(ctx context.Context, job ImageJob) (ImageJob, error) {
	job.MimeType = NormalizeMime(job.MimeType)
	log := logging.WithContext(p.logger, ctx)

	if err := Validate(job, ModeSample).Err(); err != nil {
		p.fail("validate", job.Format())
		return ImageJob{}, err
	}
	if p.palette == nil {
		return ImageJob{}, apperrors.NewInternal("no palette extractor configured")
	}

	colors, average, err := p.palette.Sample(job.Buffer, string(job.Format()))
	if err != nil {
		p.fail("colors", job.Format())
		log.Error("color sampling failed", zap.Error(err))
		return ImageJob{}, apperrors.WrapCodec(err, "sample")
	}

	job.PicColors = colors
	job.ColorAverage = average
	log.Debug("colors sampled", zap.Strings("colors", colors), zap.String("average", average))
	return job, nil
}

// Steps selects the stages Process runs. Resizing runs unless SkipResize
// is set, so an upload without a target size stores the bytes as sent.
type Steps struct {
	Colors     bool
	Upload     bool
	SkipResize bool
}

// Process runs ResizeAndCompress, then ColorPull and Bucketer when asked.
// The first failing stage ends the job.
func (p *Pipeline) Process(ctx context.Context, job ImageJob, steps Steps) (ImageJob, error) {
	out := job
	var err error
	if !steps.SkipResize {
		if out, err = p.ResizeAndCompress(ctx, job); err != nil {
			return ImageJob{}, err
		}
	}
	if steps.Colors {
		if out, err = p.ColorPull(ctx, out); err != nil {
			return ImageJob{}, err
		}
	}
	if steps.Upload {
		if out, err = p.Bucketer(ctx, out); err != nil {
			return ImageJob{}, err
		}
	}
	return out, nil
}

func (p *Pipeline) fail(stage string, format Format) {
	p.metrics.IncCounter("jobs_failed_total", map[string]string{"stage": stage, "format": string(format)})
}
