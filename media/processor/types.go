package processor

import "strings"

// Supported MIME types.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

// Job defaults applied when the caller leaves a field at zero.
const (
	DefaultMaxByte           = 100_000_000
	DefaultJPEGCompressLevel = 10
	DefaultPNGCompressLevel  = 5
	DefaultCompressTries     = 5

	maxJPEGLevel = 10
	minJPEGLevel = 1
)

// Format is the encoding family a job is processed with.
type Format string

const (
	FormatJPEG    Format = "jpeg"
	FormatPNG     Format = "png"
	FormatUnknown Format = ""
)

// FormatOf maps a MIME type onto its Format.
func FormatOf(mimetype string) Format {
	switch NormalizeMime(mimetype) {
	case MimeJPEG:
		return FormatJPEG
	case MimePNG:
		return FormatPNG
	default:
		return FormatUnknown
	}
}

// NormalizeMime lowercases the MIME type and folds the image/jpg alias onto image/jpeg.
func NormalizeMime(mimetype string) string {
	m := strings.ToLower(strings.TrimSpace(mimetype))
	if m == "image/jpg" || m == "image/pjpeg" {
		return MimeJPEG
	}
	return m
}

// ImageJob is the unit of work. Stages receive it by value and return the
// next state, so a buffer is only ever owned by the stage running it.
type ImageJob struct {
	Buffer   []byte `json:"-"`
	MimeType string `json:"mimetype"`

	MaxPixel      int  `json:"maxPixel,omitempty"`
	MaxByte       int  `json:"maxByte,omitempty"`
	Thumb         bool `json:"thumb,omitempty"`
	CompressLevel int  `json:"compressLevel,omitempty"`
	CompressTries int  `json:"compressTries,omitempty"`

	// Upload destination.
	Name   string `json:"name,omitempty"`
	Bucket string `json:"bucket,omitempty"`

	// Outputs.
	Size         int      `json:"size"`
	ETag         string   `json:"eTag,omitempty"`
	PicColors    []string `json:"picColors,omitempty"`
	ColorAverage string   `json:"colorAverage,omitempty"`
}

// Format returns the encoding family of the job's MIME type.
func (j ImageJob) Format() Format {
	return FormatOf(j.MimeType)
}

// Metadata holds facts read from a decoded buffer.
type Metadata struct {
	Width  int
	Height int
	Format Format
}

// TransformKind names the resize operation picked for a job.
type TransformKind int

const (
	TransformThumbnail TransformKind = iota
	TransformPassthroughRotateOnly
	TransformScaleToWidth
	TransformScaleToHeight
	TransformScaleToSquare
)

var transformNames = map[TransformKind]string{
	TransformThumbnail:             "thumbnail",
	TransformPassthroughRotateOnly: "passthrough",
	TransformScaleToWidth:          "scale_to_width",
	TransformScaleToHeight:         "scale_to_height",
	TransformScaleToSquare:         "scale_to_square",
}

func (k TransformKind) String() string {
	if name, ok := transformNames[k]; ok {
		return name
	}
	return "unknown"
}

// Transform is the resize chosen once per job. MaxPixel is unused by
// TransformPassthroughRotateOnly.
type Transform struct {
	Kind     TransformKind
	MaxPixel int
}

func (t Transform) String() string {
	return t.Kind.String()
}

// EncodeParams tells the codec how to re-encode a buffer. Quality is the
// JPEG quality 1-100; CompressionLevel is the PNG zlib level 0-9.
type EncodeParams struct {
	Format           Format
	Quality          int
	CompressionLevel int
}

// CompressionAttempt is the state of the latest encode in the budget loop.
type CompressionAttempt struct {
	Level int
	Size  int
}
