package processor

import (
	"context"

	"github.com/leeforge/picpipe/media/storage"
)

// Codec performs the pixel work: decode, orient, resize and encode.
type Codec interface {
	// Metadata reads dimensions and format without keeping the decoded image.
	Metadata(buf []byte) (Metadata, error)
	// Apply runs a resize transform and re-encodes in format.
	Apply(buf []byte, t Transform, format Format) ([]byte, error)
	// Encode re-encodes buf at the given quality or compression level.
	Encode(buf []byte, params EncodeParams) ([]byte, error)
}

// BlobStore persists a buffer and returns the store's integrity tag.
type BlobStore interface {
	Put(ctx context.Context, input storage.PutInput) (storage.PutOutput, error)
	Name() string
}

// PaletteExtractor samples representative colors from an encoded image.
// Colors are hex strings without the leading '#'.
type PaletteExtractor interface {
	Sample(buf []byte, format string) (colors []string, average string, err error)
}
