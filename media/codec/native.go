// Package codec implements processor.Codec on top of imaging and
// nfnt/resize.
package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"

	"github.com/leeforge/picpipe/media/processor"
)

// ResizeQuality is the JPEG quality used when writing the resize pass.
const ResizeQuality = 80

// Output limits. MaxDimension is the largest side a JPEG can carry and
// MaxOutputPixels bounds the canvas a resize may allocate.
const (
	MaxDimension    = 65535
	MaxOutputPixels = 16383 * 16383
)

// Native decodes, orients, resizes and encodes in-process.
type Native struct {
	// Quality overrides ResizeQuality when positive.
	Quality int
}

// New returns a Native codec with the default resize quality.
func New() *Native {
	return &Native{Quality: ResizeQuality}
}

var _ processor.Codec = (*Native)(nil)

// Metadata reports the oriented dimensions and the format sniffed from
// the leading bytes. The buffer is decoded once.
func (n *Native) Metadata(buf []byte) (processor.Metadata, error) {
	img, err := decode(buf)
	if err != nil {
		return processor.Metadata{}, err
	}
	b := img.Bounds()
	return processor.Metadata{
		Width:  b.Dx(),
		Height: b.Dy(),
		Format: sniffFormat(buf),
	}, nil
}

// Apply runs t on buf and re-encodes the result in format.
// Targets larger than MaxDimension or MaxOutputPixels are refused before
// any canvas is allocated.
func (n *Native) Apply(buf []byte, t processor.Transform, format processor.Format) ([]byte, error) {
	if t.Kind != processor.TransformPassthroughRotateOnly && (t.MaxPixel <= 0 || t.MaxPixel > MaxDimension) {
		return nil, fmt.Errorf("target %dpx is outside 1..%d", t.MaxPixel, MaxDimension)
	}
	img, err := decode(buf)
	if err != nil {
		return nil, err
	}
	if w, h := targetSize(t, img.Bounds()); int64(w)*int64(h) > MaxOutputPixels {
		return nil, fmt.Errorf("target %dx%d exceeds %d pixels", w, h, MaxOutputPixels)
	}

	var out image.Image
	switch t.Kind {
	case processor.TransformThumbnail:
		out = imaging.Fill(img, t.MaxPixel, t.MaxPixel, imaging.Center, imaging.Lanczos)
	case processor.TransformPassthroughRotateOnly:
		out = img
	case processor.TransformScaleToWidth:
		out = resize.Resize(uint(t.MaxPixel), 0, img, resize.Lanczos3)
	case processor.TransformScaleToHeight:
		out = resize.Resize(0, uint(t.MaxPixel), img, resize.Lanczos3)
	case processor.TransformScaleToSquare:
		out = resize.Resize(uint(t.MaxPixel), uint(t.MaxPixel), img, resize.Lanczos3)
	default:
		return nil, fmt.Errorf("unsupported transform %s", t.Kind)
	}

	return encode(out, processor.EncodeParams{
		Format:           format,
		Quality:          n.quality(),
		CompressionLevel: processor.DefaultPNGCompressLevel,
	})
}

// Encode re-encodes buf with params without changing its dimensions.
func (n *Native) Encode(buf []byte, params processor.EncodeParams) ([]byte, error) {
	img, err := decode(buf)
	if err != nil {
		return nil, err
	}
	return encode(img, params)
}

// targetSize predicts the output dimensions of t applied to an image with
// bounds b.
func targetSize(t processor.Transform, b image.Rectangle) (int, int) {
	w, h := b.Dx(), b.Dy()
	m := t.MaxPixel
	switch t.Kind {
	case processor.TransformThumbnail, processor.TransformScaleToSquare:
		return m, m
	case processor.TransformScaleToWidth:
		if w > 0 {
			return m, max(1, int(int64(h)*int64(m)/int64(w)))
		}
	case processor.TransformScaleToHeight:
		if h > 0 {
			return max(1, int(int64(w)*int64(m)/int64(h))), m
		}
	}
	return w, h
}

func (n *Native) quality() int {
	if n.Quality > 0 {
		return n.Quality
	}
	return ResizeQuality
}

func decode(buf []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(buf), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return img, nil
}

func encode(img image.Image, params processor.EncodeParams) ([]byte, error) {
	var w bytes.Buffer
	var err error
	switch params.Format {
	case processor.FormatJPEG:
		err = imaging.Encode(&w, img, imaging.JPEG, imaging.JPEGQuality(clampQuality(params.Quality)))
	case processor.FormatPNG:
		err = imaging.Encode(&w, img, imaging.PNG, imaging.PNGCompressionLevel(PNGLevel(params.CompressionLevel)))
	default:
		return nil, fmt.Errorf("unsupported format %q", params.Format)
	}
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", params.Format, err)
	}
	return w.Bytes(), nil
}

// PNGLevel maps a 0-9 zlib style level onto the presets image/png offers.
func PNGLevel(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}

func clampQuality(q int) int {
	if q < 1 {
		return 1
	}
	if q > 100 {
		return 100
	}
	return q
}

func sniffFormat(buf []byte) processor.Format {
	switch mime := mimetype.Detect(buf); {
	case mime.Is("image/jpeg"):
		return processor.FormatJPEG
	case mime.Is("image/png"):
		return processor.FormatPNG
	default:
		return processor.Format(strings.TrimPrefix(mime.String(), "image/"))
	}
}
