// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package idempotency

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storj.io/marketplace/pkg/api"
)

// ignoredHeaders are never captured or replayed: they are connection- or
// response-instance specific.
var ignoredHeaders = map[string]bool{
	"Access-Control-Allow-Origin":      true,
	"Access-Control-Allow-Methods":     true,
	"Access-Control-Allow-Headers":     true,
	"Access-Control-Allow-Credentials": true,
	"Access-Control-Expose-Headers":    true,
	"Date":                             true,
	"Content-Length":                   true,
	"Connection":                       true,
}

// Handler returns the idempotency middleware. Requests without an
// Idempotency-Key header pass through untouched.
//
// The same key with a different request body is not detected here; the
// ownership checks and database constraints upstream are the safety net.
func Handler(log *zap.Logger, store *Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			key := r.Header.Get("Idempotency-Key")
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			// Atomic set-if-absent: exactly one request per key gets past
			// this line while the lock lives.
			acquired, err := store.Lock(ctx, key)
			if err != nil {
				api.ServeError(log, w, r, api.NewError(api.KindInternal, "Idempotency service unavailable", err))
				return
			}

			if !acquired {
				resp, found, err := store.Response(ctx, key)
				if err != nil {
					api.ServeError(log, w, r, api.NewError(api.KindInternal, "Idempotency service unavailable", err))
					return
				}

				if found {
					replay(w, resp)
					return
				}

				// Lock held but no data yet: the first run is still in
				// flight on some instance.
				w.Header().Set("Retry-After", "1")
				api.ServeError(log, w, r, api.NewError(api.KindConflict, "Request is currently being processed", nil))
				return
			}

			recorder := &responseRecorder{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				body:           &bytes.Buffer{},
			}
			next.ServeHTTP(recorder, r)

			// Server-side failures release the lock so the client retry
			// gets a fresh run instead of a cached failure.
			if recorder.statusCode >= http.StatusInternalServerError || recorder.statusCode == http.StatusTooManyRequests {
				log.Warn("idempotent handler failed, releasing lock",
					zap.String("key", key), zap.Int("status", recorder.statusCode))
				_ = store.Release(context.WithoutCancel(ctx), key)
				return
			}

			// Persist on a detached context so a slow cache write never
			// blocks the client response.
			go persist(log, store, key, Response{
				StatusCode: recorder.statusCode,
				Headers:    captureHeaders(recorder.Header()),
				Body:       recorder.body.Bytes(),
			})
		})
	}
}

func persist(log *zap.Logger, store *Store, key string, resp Response) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := store.Commit(ctx, key, resp); err != nil {
		log.Error("failed to persist idempotent response",
			zap.String("key", key), zap.Error(err))
	}
}

func captureHeaders(headers http.Header) http.Header {
	clean := make(http.Header, len(headers))
	for name, values := range headers {
		if !ignoredHeaders[name] {
			clean[name] = values
		}
	}
	return clean
}

func replay(w http.ResponseWriter, resp *Response) {
	for name, values := range resp.Headers {
		if ignoredHeaders[name] {
			continue
		}
		for _, value := range values {
			w.Header().Add(name, value)
		}
	}
	w.Header().Set("X-Idempotency-Hit", "true")
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}

// responseRecorder tees status and body out of the response stream.
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}
