// Package binding decodes multipart image requests into typed forms.
package binding

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	validatorV10 "github.com/go-playground/validator/v10"
	"github.com/go-viper/mapstructure/v2"
)

// DefaultFileField is the multipart field carrying the image.
const DefaultFileField = "file"

type BindError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e BindError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: field '%s' %s", e.Type, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

type ValidationErrors []BindError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", ve[0].Error())
}

// Upload is the file part of a multipart request.
type Upload struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Multipart parses r as multipart/form-data limited to maxBytes, decodes
// the text fields into v through `form` tags and returns the file named by
// fileField. A missing file yields an empty Upload, leaving the decision to
// the caller's own validation.
func Multipart(r *http.Request, maxBytes int64, fileField string, v any) (Upload, error) {
	if fileField == "" {
		fileField = DefaultFileField
	}
	if err := r.ParseMultipartForm(maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return Upload{}, &BindError{Type: "bind_error", Message: "request body too large"}
		}
		return Upload{}, &BindError{Type: "bind_error", Message: "invalid multipart form: " + err.Error()}
	}

	if v != nil {
		if err := Form(r.MultipartForm.Value, v); err != nil {
			return Upload{}, err
		}
	}

	file, header, err := r.FormFile(fileField)
	if errors.Is(err, http.ErrMissingFile) {
		return Upload{}, nil
	}
	if err != nil {
		return Upload{}, &BindError{Type: "bind_error", Field: fileField, Message: err.Error()}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return Upload{}, &BindError{Type: "bind_error", Field: fileField, Message: "failed to read file: " + err.Error()}
	}
	return Upload{
		Data:        data,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

// Form decodes url.Values style input into v with weak typing, so "true"
// and "800" land in bool and int fields, then validates v.
func Form(values map[string][]string, v any) error {
	flat := make(map[string]any, len(values))
	for k, vs := range values {
		if len(vs) > 0 {
			flat[k] = vs[0]
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "form",
		WeaklyTypedInput: true,
		Result:           v,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(flat); err != nil {
		return &BindError{Type: "form_error", Message: "failed to decode form: " + err.Error()}
	}

	if err := validator.Struct(v); err != nil {
		var fieldErrs validatorV10.ValidationErrors
		if errors.As(err, &fieldErrs) {
			out := make(ValidationErrors, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				out = append(out, BindError{
					Type:    "validation_error",
					Field:   fe.Field(),
					Message: getValidationMessage(fe),
				})
			}
			return out
		}
		return &BindError{Type: "validation_error", Message: err.Error()}
	}
	return nil
}
