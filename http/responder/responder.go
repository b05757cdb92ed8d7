// Package responder writes the JSON envelope used by every picpipe endpoint.
package responder

import (
	"errors"
	"net/http"

	apperrors "github.com/leeforge/picpipe/errors"
	"github.com/leeforge/picpipe/http/binding"
	"github.com/leeforge/picpipe/http/middleware"
	"github.com/leeforge/picpipe/json"
)

var encodeFailed = []byte(`{"error":{"code":5000,"message":"encode failed"}}`)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	raw, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(encodeFailed)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// requestMeta fills trace ID and elapsed time from the request context
// before any explicit options.
func requestMeta(r *http.Request, opts []Option) Meta {
	base := []Option{}
	if r != nil {
		base = append(base,
			WithTraceID(middleware.GetTraceIDFromRequest(r)),
			WithTook(middleware.GetRequestDurationFromRequest(r)),
		)
	}
	return *NewMeta(append(base, opts...)...)
}

// Write sends a success response with data
func Write(w http.ResponseWriter, r *http.Request, status int, data any, opts ...Option) {
	writeJSON(w, status, &Response{Data: data, Meta: requestMeta(r, opts)})
}

// WriteError sends an error response
func WriteError(w http.ResponseWriter, r *http.Request, status int, err Error, opts ...Option) {
	writeJSON(w, status, &Response{Error: &err, Meta: requestMeta(r, opts)})
}

// OK responds with 200 OK and data
func OK(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	Write(w, r, http.StatusOK, data, opts...)
}

// Created responds with 201 Created and data
func Created(w http.ResponseWriter, r *http.Request, data any, opts ...Option) {
	Write(w, r, http.StatusCreated, data, opts...)
}

// BadRequest responds with 400 Bad Request
func BadRequest(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	WriteError(w, r, http.StatusBadRequest, NewError(ErrCodeBadRequest, message), opts...)
}

// NotFound responds with 404 Not Found
func NotFound(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	WriteError(w, r, http.StatusNotFound, NewError(ErrCodeNotFound, message), opts...)
}

// BindError responds with 400 Bad Request for binding errors
func BindError(w http.ResponseWriter, r *http.Request, details any, opts ...Option) {
	WriteError(w, r, http.StatusBadRequest, NewErrorWithDetails(ErrCodeBindFailed, "", details), opts...)
}

// InternalServerError responds with 500 Internal Server Error
func InternalServerError(w http.ResponseWriter, r *http.Request, message string, opts ...Option) {
	WriteError(w, r, http.StatusInternalServerError, NewError(ErrCodeInternalServer, message), opts...)
}

// FromError picks status, code and message for err. AppErrors keep their
// status and details; binding errors are 400; anything else is a 500 whose
// message is not exposed.
func FromError(w http.ResponseWriter, r *http.Request, err error, opts ...Option) {
	var (
		bindErr   *binding.BindError
		fieldsErr binding.ValidationErrors
		appErr    *apperrors.AppError
	)
	switch {
	case errors.As(err, &fieldsErr):
		WriteError(w, r, http.StatusBadRequest, NewErrorWithDetails(ErrCodeValidationFailed, "", []binding.BindError(fieldsErr)), opts...)
	case errors.As(err, &bindErr):
		BindError(w, r, bindErr, opts...)
	case errors.As(err, &appErr):
		status := appErr.Status()
		msg := appErr.Message
		if status >= http.StatusInternalServerError && appErr.Type != apperrors.ErrorTypeStore {
			msg = ""
		}
		e := NewErrorWithDetails(codeFor(appErr.Type), msg, appErr.Details)
		if appErr.Type == apperrors.ErrorTypeCodec && appErr.InnerError != nil {
			e.Message = appErr.Error()
		}
		WriteError(w, r, status, e, opts...)
	default:
		InternalServerError(w, r, "", opts...)
	}
}
