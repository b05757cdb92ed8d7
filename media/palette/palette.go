// Package palette samples representative colors from an encoded image.
package palette

import (
	"bytes"
	"fmt"
	"image"
	"strings"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/disintegration/imaging"
	colorful "github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/draw"
)

const (
	// MaxColors is the most colors Sample returns.
	MaxColors = 9
	// SampleEdge bounds the longest side of the image the sampler works on.
	SampleEdge = 200

	saturateBy = 0.33 * 18 / 100
	brightenBy = 0.25 * 18 / 100
)

// Extractor implements processor.PaletteExtractor with k-means clustering.
type Extractor struct {
	colors int
}

// New returns an Extractor producing up to n colors; n outside 1..MaxColors
// means MaxColors.
func New(n int) *Extractor {
	if n <= 0 || n > MaxColors {
		n = MaxColors
	}
	return &Extractor{colors: n}
}

// Sample returns the dominant colors and the average color of buf as hex
// strings without the leading '#'. format is informational; the decoder
// sniffs the buffer.
func (e *Extractor) Sample(buf []byte, format string) ([]string, string, error) {
	img, err := imaging.Decode(bytes.NewReader(buf), imaging.AutoOrientation(true))
	if err != nil {
		return nil, "", fmt.Errorf("decode %s: %w", format, err)
	}
	small := downscale(img, SampleEdge)

	items, err := e.cluster(small)
	if err != nil {
		return nil, "", err
	}

	seen := make(map[string]struct{}, len(items))
	colors := make([]string, 0, len(items))
	for _, item := range items {
		if item.Cnt == 0 {
			continue
		}
		hex := Enhance(colorful.Color{
			R: float64(item.Color.R) / 255,
			G: float64(item.Color.G) / 255,
			B: float64(item.Color.B) / 255,
		})
		if _, dup := seen[hex]; dup {
			continue
		}
		seen[hex] = struct{}{}
		colors = append(colors, hex)
	}
	return colors, Average(small), nil
}

// cluster runs k-means, shrinking k when the image has too few distinct
// pixels for the requested number of centroids.
func (e *Extractor) cluster(img image.Image) ([]prominentcolor.ColorItem, error) {
	args := prominentcolor.ArgumentNoCropping | prominentcolor.ArgumentAverageMean
	var lastErr error
	for k := e.colors; k > 0; k-- {
		items, err := prominentcolor.KmeansWithAll(k, img, args, prominentcolor.DefaultSize, nil)
		if err == nil && len(items) > 0 {
			return items, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no colors found")
	}
	return nil, fmt.Errorf("cluster: %w", lastErr)
}

// Enhance saturates and brightens c in CIE LCh and returns it as hex
// without '#'.
func Enhance(c colorful.Color) string {
	h, chroma, l := c.Hcl()
	out := colorful.Hcl(h, chroma+saturateBy, l+brightenBy).Clamped()
	return strings.TrimPrefix(out.Hex(), "#")
}

// Average returns the mean RGB of img as hex without '#'.
func Average(img image.Image) string {
	b := img.Bounds()
	var r, g, bl, n uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			cr, cg, cb, _ := img.At(x, y).RGBA()
			r += uint64(cr >> 8)
			g += uint64(cg >> 8)
			bl += uint64(cb >> 8)
			n++
		}
	}
	if n == 0 {
		return "000000"
	}
	return fmt.Sprintf("%02x%02x%02x", r/n, g/n, bl/n)
}

func downscale(img image.Image, edge int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= edge && h <= edge {
		return img
	}
	if w >= h {
		h = max(1, h*edge/w)
		w = edge
	} else {
		w = max(1, w*edge/h)
		h = edge
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}
