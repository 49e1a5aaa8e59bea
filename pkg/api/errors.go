// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package api carries the HTTP surface shared by every handler: error kinds
// with their status mapping, the JSON error envelope and body codecs.
package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// Kind is the machine-readable error code surfaced to clients.
type Kind string

const (
	// KindInvalidInput rejects a request whose payload failed validation.
	KindInvalidInput Kind = "INVALID_INPUT"
	// KindUnauthorized rejects a request without a valid identity or with
	// one that does not own the resource.
	KindUnauthorized Kind = "UNAUTHORIZED"
	// KindNotFound signals a missing resource.
	KindNotFound Kind = "NOT_FOUND"
	// KindConflict signals a concurrent duplicate of the same request.
	KindConflict Kind = "CONFLICT"
	// KindInternal covers everything the caller cannot fix.
	KindInternal Kind = "INTERNAL"
)

// Error pairs a safe user-facing message with the internal cause. The cause
// is logged, never serialized.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// NewError wraps cause with a kind and a safe message. The cause gets a
// stack capture so 5xx logs point at the failing line.
func NewError(kind Kind, message string, cause error) *Error {
	if cause != nil {
		cause = errs.Wrap(cause)
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// Unwrap exposes the cause to errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// Status maps an error kind to its HTTP status code.
func Status(kind Kind) int {
	switch kind {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

type errorEnvelope struct {
	ErrorCode string `json:"error_code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
}

// ServeError writes the JSON error envelope for err and logs it. Unknown
// error values are treated as internal. 4xx responses log at warn without
// the stack; 5xx responses log the cause with its stack capture.
func ServeError(log *zap.Logger, w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetReqID(r.Context())

	apiErr, ok := err.(*Error)
	if !ok {
		apiErr = NewError(KindInternal, "Unexpected system error", err)
	}
	status := Status(apiErr.Kind)

	fields := []zap.Field{
		zap.String("request_id", reqID),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("code", string(apiErr.Kind)),
		zap.String("user_msg", apiErr.Message),
	}
	if status >= http.StatusInternalServerError {
		// errs.Wrap stored the stack; %+v prints it.
		fields = append(fields, zap.String("cause", fmt.Sprintf("%+v", apiErr.Cause)))
		log.Error("request failed", fields...)
	} else {
		if apiErr.Cause != nil {
			fields = append(fields, zap.Error(apiErr.Cause))
		}
		log.Warn("request rejected", fields...)
	}

	_ = WriteJSON(w, status, errorEnvelope{
		ErrorCode: string(apiErr.Kind),
		Message:   apiErr.Message,
		RequestID: reqID,
	})
}
