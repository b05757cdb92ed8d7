package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveTransform(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		maxByte       int
		thumb         bool
		current       int
		want          TransformKind
	}{
		{"thumb wins over budget", 800, 600, 1000, true, 10, TransformThumbnail},
		{"thumb wins over square", 500, 500, 10, true, 5000, TransformThumbnail},
		{"within budget", 800, 600, 1000, false, 1000, TransformPassthroughRotateOnly},
		{"within budget portrait", 600, 800, 5000, false, 10, TransformPassthroughRotateOnly},
		{"landscape", 800, 600, 1000, false, 1001, TransformScaleToWidth},
		{"portrait", 600, 800, 1000, false, 5000, TransformScaleToHeight},
		{"square", 700, 700, 1000, false, 5000, TransformScaleToSquare},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveTransform(tt.width, tt.height, 200, tt.maxByte, tt.thumb, tt.current)
			assert.Equal(t, tt.want, got.Kind)
			if tt.want != TransformPassthroughRotateOnly {
				assert.Equal(t, 200, got.MaxPixel)
			}
		})
	}
}

func TestResolveJobTransformUsesBufferLength(t *testing.T) {
	job := ImageJob{Buffer: sized(jpegMagic, 2000), MaxPixel: 100, MaxByte: 1999}
	got := ResolveJobTransform(job, Metadata{Width: 10, Height: 20})
	assert.Equal(t, TransformScaleToHeight, got.Kind)

	job.MaxByte = 2000
	got = ResolveJobTransform(job, Metadata{Width: 10, Height: 20})
	assert.Equal(t, TransformPassthroughRotateOnly, got.Kind)
}

func TestTransformKindString(t *testing.T) {
	assert.Equal(t, "scale_to_width", TransformScaleToWidth.String())
	assert.Equal(t, "unknown", TransformKind(42).String())
}
