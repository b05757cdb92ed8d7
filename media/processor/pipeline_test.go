package processor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/leeforge/picpipe/errors"
	"github.com/leeforge/picpipe/metrics"
)

func resizeJob(size, maxByte int) ImageJob {
	return ImageJob{
		Buffer:   sized(jpegMagic, size),
		MimeType: "image/jpg",
		MaxPixel: 100,
		MaxByte:  maxByte,
	}
}

func TestResizeAndCompressValidatesFirst(t *testing.T) {
	codec := &fakeCodec{}
	collector := metrics.NewCollector()
	p := New(codec, WithMetrics(collector))

	out, err := p.ResizeAndCompress(context.Background(), ImageJob{MimeType: MimeJPEG})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
	assert.Equal(t, ImageJob{}, out)
	assert.Zero(t, codec.calls())
	assert.Equal(t, float64(1), collector.Total("jobs_failed_total"))
}

func TestResizeAndCompressThumbSkipsCompression(t *testing.T) {
	codec := &fakeCodec{meta: Metadata{Width: 800, Height: 600}, applySize: 5000}
	job := resizeJob(10_000, 100)
	job.Thumb = true

	out, err := New(codec).ResizeAndCompress(context.Background(), job)
	require.NoError(t, err)
	require.Len(t, codec.applied, 1)
	assert.Equal(t, Transform{Kind: TransformThumbnail, MaxPixel: 100}, codec.applied[0])
	assert.Empty(t, codec.encodes)
	assert.Equal(t, 5000, out.Size)
	assert.Equal(t, MimeJPEG, out.MimeType)
}

func TestResizeAndCompressPassthrough(t *testing.T) {
	codec := &fakeCodec{meta: Metadata{Width: 800, Height: 600}}
	job := resizeJob(1000, 1000)

	out, err := New(codec).ResizeAndCompress(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, TransformPassthroughRotateOnly, codec.applied[0].Kind)
	assert.Empty(t, codec.encodes)
	assert.Equal(t, job.Buffer, out.Buffer)

	again, err := New(codec).ResizeAndCompress(context.Background(), out)
	require.NoError(t, err)
	assert.Equal(t, out.Buffer, again.Buffer)
}

func TestResizeAndCompressScalesThenCompresses(t *testing.T) {
	codec := &fakeCodec{meta: Metadata{Width: 600, Height: 800}, applySize: 3000, sizes: []int{2000, 900}}
	job := resizeJob(10_000, 1000)
	job.CompressLevel = 8

	out, err := New(codec).ResizeAndCompress(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, TransformScaleToHeight, codec.applied[0].Kind)
	assert.Equal(t, []int{80, 70}, codec.qualities())
	assert.Equal(t, 900, out.Size)
	assert.Equal(t, 7, out.CompressLevel)
}

func TestResizeAndCompressUsesPipelineDefaults(t *testing.T) {
	codec := &fakeCodec{meta: Metadata{Width: 10, Height: 10}}
	p := New(codec, WithDefaults(Defaults{MaxByte: 50}))
	job := resizeJob(100, 0)

	out, err := p.ResizeAndCompress(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, 50, out.MaxByte)
	assert.Equal(t, TransformScaleToSquare, codec.applied[0].Kind)
}

func TestResizeAndCompressCodecErrors(t *testing.T) {
	t.Run("metadata", func(t *testing.T) {
		codec := &fakeCodec{metaErr: errBoom}
		out, err := New(codec).ResizeAndCompress(context.Background(), resizeJob(10, 5))
		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCodec))
		assert.Equal(t, ImageJob{}, out)
		assert.Empty(t, codec.applied)
	})

	t.Run("apply", func(t *testing.T) {
		codec := &fakeCodec{meta: Metadata{Width: 20, Height: 10}, applyErr: errBoom}
		_, err := New(codec).ResizeAndCompress(context.Background(), resizeJob(10, 5))
		require.Error(t, err)
		assert.Equal(t, "scale_to_width", apperrors.FromError(err).Details["transform"])
	})
}

func TestBucketer(t *testing.T) {
	store := &fakeStore{etag: `"abc"`}
	p := New(&fakeCodec{}, WithStore(store))
	job := ImageJob{Buffer: sized(pngMagic, 64), MimeType: MimePNG, Name: "a/b.png", Bucket: "photos"}

	out, err := p.Bucketer(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, `"abc"`, out.ETag)
	assert.Equal(t, 64, out.Size)
	require.Len(t, store.puts, 1)
	assert.Equal(t, "photos", store.puts[0].Bucket)
	assert.Equal(t, "a/b.png", store.puts[0].Key)
	assert.Equal(t, MimePNG, store.puts[0].ContentType)
}

func TestBucketerErrors(t *testing.T) {
	job := ImageJob{Buffer: sized(pngMagic, 64), MimeType: MimePNG, Name: "a.png", Bucket: "photos"}

	t.Run("validation before store", func(t *testing.T) {
		store := &fakeStore{}
		bad := job
		bad.Bucket = ""
		_, err := New(&fakeCodec{}, WithStore(store)).Bucketer(context.Background(), bad)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))
		assert.Empty(t, store.puts)
	})

	t.Run("store failure", func(t *testing.T) {
		out, err := New(&fakeCodec{}, WithStore(&fakeStore{err: errBoom})).Bucketer(context.Background(), job)
		require.Error(t, err)
		assert.ErrorIs(t, err, errBoom)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeStore))
		assert.Equal(t, ImageJob{}, out)
	})

	t.Run("no store", func(t *testing.T) {
		_, err := New(&fakeCodec{}).Bucketer(context.Background(), job)
		assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
	})
}

func TestColorPull(t *testing.T) {
	job := ImageJob{Buffer: sized(jpegMagic, 64), MimeType: "image/jpg"}

	p := New(&fakeCodec{}, WithPalette(fakePalette{colors: []string{"ff0000", "00ff00"}, average: "7f7f00"}))
	out, err := p.ColorPull(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, []string{"ff0000", "00ff00"}, out.PicColors)
	assert.Equal(t, "7f7f00", out.ColorAverage)

	_, err = New(&fakeCodec{}, WithPalette(fakePalette{err: errBoom})).ColorPull(context.Background(), job)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeCodec))

	_, err = New(&fakeCodec{}).ColorPull(context.Background(), job)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeInternal))
}

func TestProcessRunsSteps(t *testing.T) {
	codec := &fakeCodec{meta: Metadata{Width: 10, Height: 10}}
	store := &fakeStore{etag: `"e"`}
	p := New(codec, WithStore(store), WithPalette(fakePalette{colors: []string{"000000"}, average: "000000"}))

	job := resizeJob(100, 1000)
	job.Name, job.Bucket = "x.jpg", "b"

	out, err := p.Process(context.Background(), job, Steps{Colors: true, Upload: true})
	require.NoError(t, err)
	assert.Equal(t, `"e"`, out.ETag)
	assert.Equal(t, []string{"000000"}, out.PicColors)

	store.err = errBoom
	out, err = p.Process(context.Background(), job, Steps{Upload: true})
	require.Error(t, err)
	assert.Equal(t, ImageJob{}, out)
}

func TestProcessSkipResizeStoresAsSent(t *testing.T) {
	codec := &fakeCodec{applyErr: errBoom}
	store := &fakeStore{etag: `"raw"`}
	p := New(codec, WithStore(store))

	job := ImageJob{Buffer: sized(jpegMagic, 64), MimeType: "image/jpeg", Name: "x.jpg", Bucket: "b"}
	out, err := p.Process(context.Background(), job, Steps{Upload: true, SkipResize: true})
	require.NoError(t, err)
	assert.Equal(t, `"raw"`, out.ETag)
	require.Len(t, store.puts, 1)
	assert.Equal(t, job.Buffer, store.puts[0].Body)
	assert.Zero(t, codec.calls())
}
