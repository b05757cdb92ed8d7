package processor

import (
	"context"
	"errors"

	"github.com/leeforge/picpipe/media/storage"
)

var (
	jpegMagic = []byte{0xFF, 0xD8, 0xFF, 0xE0}
	pngMagic  = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}
)

// sized returns a binary buffer of n bytes starting with magic.
func sized(magic []byte, n int) []byte {
	buf := make([]byte, max(n, len(magic)))
	copy(buf, magic)
	return buf
}

// fakeCodec returns scripted sizes and records every call.
type fakeCodec struct {
	meta      Metadata
	metaErr   error
	applySize int
	applyErr  error
	sizes     []int
	encodeErr error

	metaCalls int
	applied   []Transform
	encodes   []EncodeParams
}

func (f *fakeCodec) Metadata(buf []byte) (Metadata, error) {
	f.metaCalls++
	return f.meta, f.metaErr
}

func (f *fakeCodec) Apply(buf []byte, t Transform, format Format) ([]byte, error) {
	f.applied = append(f.applied, t)
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	if f.applySize > 0 {
		return sized(buf[:min(len(buf), 8)], f.applySize), nil
	}
	return buf, nil
}

func (f *fakeCodec) Encode(buf []byte, params EncodeParams) ([]byte, error) {
	f.encodes = append(f.encodes, params)
	if f.encodeErr != nil {
		return nil, f.encodeErr
	}
	n := len(buf)
	if i := len(f.encodes) - 1; i < len(f.sizes) {
		n = f.sizes[i]
	} else if len(f.sizes) > 0 {
		n = f.sizes[len(f.sizes)-1]
	}
	return sized(buf[:min(len(buf), 8)], n), nil
}

func (f *fakeCodec) calls() int {
	return f.metaCalls + len(f.applied) + len(f.encodes)
}

func (f *fakeCodec) qualities() []int {
	q := make([]int, 0, len(f.encodes))
	for _, p := range f.encodes {
		q = append(q, p.Quality)
	}
	return q
}

type fakeStore struct {
	etag string
	err  error
	puts []storage.PutInput
}

func (s *fakeStore) Put(ctx context.Context, input storage.PutInput) (storage.PutOutput, error) {
	s.puts = append(s.puts, input)
	if s.err != nil {
		return storage.PutOutput{}, s.err
	}
	return storage.PutOutput{ETag: s.etag, Size: int64(len(input.Body))}, nil
}

func (s *fakeStore) Name() string { return "fake" }

type fakePalette struct {
	colors  []string
	average string
	err     error
}

func (p fakePalette) Sample(buf []byte, format string) ([]string, string, error) {
	return p.colors, p.average, p.err
}

var errBoom = errors.New("boom")
