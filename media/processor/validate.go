package processor

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	validatorV10 "github.com/go-playground/validator/v10"

	apperrors "github.com/leeforge/picpipe/errors"
)

// Mode selects which fields a job must carry.
type Mode int

const (
	// ModeResize is used by ResizeAndCompress.
	ModeResize Mode = iota
	// ModeUpload is used by Bucketer.
	ModeUpload
	// ModeSample is used by ColorPull.
	ModeSample
)

func (m Mode) String() string {
	switch m {
	case ModeResize:
		return "resize"
	case ModeUpload:
		return "upload"
	case ModeSample:
		return "sample"
	default:
		return "unknown"
	}
}

var validator *validatorV10.Validate

func init() {
	validator = validatorV10.New()
	validator.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	})
	if err := validator.RegisterValidation("binary", isBinaryBuffer); err != nil {
		panic(err)
	}
}

// isBinaryBuffer rejects buffers that sniff as text, e.g. a file name or a
// base64 string passed where the raw bytes were expected.
func isBinaryBuffer(fl validatorV10.FieldLevel) bool {
	buf, ok := fl.Field().Interface().([]byte)
	if !ok {
		return false
	}
	return !strings.HasPrefix(mimetype.Detect(buf).String(), "text/")
}

// Per-mode views of an ImageJob. Field order is the order violations are reported in.
type resizeFields struct {
	Buffer   []byte `json:"buffer" validate:"required,min=1,binary"`
	MaxPixel int    `json:"maxPixel" validate:"gt=0"`
	MimeType string `json:"mimetype" validate:"oneof=image/jpeg image/png"`
}

type uploadFields struct {
	Buffer   []byte `json:"buffer" validate:"required,min=1,binary"`
	Name     string `json:"name" validate:"required"`
	Bucket   string `json:"bucket" validate:"required"`
	MimeType string `json:"mimetype" validate:"oneof=image/jpeg image/png"`
}

type sampleFields struct {
	Buffer   []byte `json:"buffer" validate:"required,min=1,binary"`
	MimeType string `json:"mimetype" validate:"oneof=image/jpeg image/png"`
}

// Violation is one missing or malformed field.
type Violation struct {
	Field  string
	Reason string
}

// ValidationReport lists every violation found on a job, in field order.
type ValidationReport struct {
	Mode       Mode
	Violations []Violation
}

// OK reports whether the job passed validation.
func (r ValidationReport) OK() bool {
	return len(r.Violations) == 0
}

// Fields returns the names of the violated fields.
func (r ValidationReport) Fields() []string {
	fields := make([]string, 0, len(r.Violations))
	for _, v := range r.Violations {
		fields = append(fields, v.Field)
	}
	return fields
}

// Message renders the report as
// "missing or invalid properties: buffer, maxPixel and mimetype".
func (r ValidationReport) Message() string {
	if r.OK() {
		return ""
	}
	noun := "property"
	if len(r.Violations) > 1 {
		noun = "properties"
	}
	return fmt.Sprintf("missing or invalid %s: %s", noun, joinHuman(r.Fields()))
}

// Err returns nil for a valid job, otherwise a validation AppError.
func (r ValidationReport) Err() error {
	if r.OK() {
		return nil
	}
	appErr := apperrors.NewValidation(r.Message(), r.Fields()).WithDetail("mode", r.Mode.String())
	for _, v := range r.Violations {
		appErr.WithDetail(v.Field, v.Reason)
	}
	return appErr
}

// Validate checks job for the fields mode requires and collects every violation.
func Validate(job ImageJob, mode Mode) ValidationReport {
	mime := NormalizeMime(job.MimeType)

	var view any
	switch mode {
	case ModeUpload:
		view = uploadFields{Buffer: job.Buffer, Name: job.Name, Bucket: job.Bucket, MimeType: mime}
	case ModeSample:
		view = sampleFields{Buffer: job.Buffer, MimeType: mime}
	default:
		view = resizeFields{Buffer: job.Buffer, MaxPixel: job.MaxPixel, MimeType: mime}
	}

	report := ValidationReport{Mode: mode}
	err := validator.Struct(view)
	if err == nil {
		return report
	}

	fieldErrs, ok := err.(validatorV10.ValidationErrors)
	if !ok {
		report.Violations = append(report.Violations, Violation{Field: "input", Reason: err.Error()})
		return report
	}
	for _, fe := range fieldErrs {
		report.Violations = append(report.Violations, Violation{
			Field:  fe.Field(),
			Reason: violationReason(fe),
		})
	}
	return report
}

func violationReason(fe validatorV10.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return "is required"
	case "binary":
		return "must be raw image bytes, not text"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	default:
		return fmt.Sprintf("failed validation for tag '%s'", fe.Tag())
	}
}

// joinHuman joins names as "a", "a and b" or "a, b and c".
func joinHuman(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
