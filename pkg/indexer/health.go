// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package indexer

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"storj.io/marketplace/pkg/api"
)

// Pinger reports database liveness; satisfied by pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports whether the worker can reach its dependencies.
type HealthHandler struct {
	log   *zap.Logger
	db    Pinger
	index Indexer
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(log *zap.Logger, db Pinger, index Indexer) *HealthHandler {
	return &HealthHandler{log: log, db: db, index: index}
}

// ServeHTTP answers GET /health.
func (handler *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := handler.db.Ping(ctx); err != nil {
		handler.log.Error("health check: database unreachable", zap.Error(err))
		_ = api.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db unreachable"})
		return
	}
	if err := handler.index.HealthCheck(ctx); err != nil {
		handler.log.Error("health check: search engine unreachable", zap.Error(err))
		_ = api.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "search unreachable"})
		return
	}
	_ = api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
