// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package api_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/marketplace/pkg/api"
)

func TestStatusMapping(t *testing.T) {
	cases := map[api.Kind]int{
		api.KindInvalidInput: http.StatusBadRequest,
		api.KindUnauthorized: http.StatusUnauthorized,
		api.KindNotFound:     http.StatusNotFound,
		api.KindConflict:     http.StatusConflict,
		api.KindInternal:     http.StatusInternalServerError,
	}
	for kind, status := range cases {
		assert.Equal(t, status, api.Status(kind))
	}
}

func TestServeError_Envelope(t *testing.T) {
	log := zaptest.NewLogger(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/listings", nil)

	api.ServeError(log, rec, req, api.NewError(api.KindInvalidInput, "Title must be between 5 and 100 characters", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var envelope struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INVALID_INPUT", envelope.ErrorCode)
	assert.Equal(t, "Title must be between 5 and 100 characters", envelope.Message)
}

func TestServeError_UnknownErrorIsInternal(t *testing.T) {
	log := zaptest.NewLogger(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/listings/abc", nil)

	api.ServeError(log, rec, req, errors.New("pq: connection refused"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var envelope map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "INTERNAL", envelope["error_code"])
	// The internal cause never leaks into the envelope.
	assert.NotContains(t, envelope["message"], "connection refused")
}
