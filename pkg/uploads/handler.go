// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package uploads

import (
	"net/http"

	"go.uber.org/zap"

	"storj.io/marketplace/pkg/api"
	"storj.io/marketplace/pkg/auth"
)

// Handler exposes the presign endpoint.
type Handler struct {
	log     *zap.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(log *zap.Logger, service *Service) *Handler {
	return &Handler{log: log, service: service}
}

// PresignUpload handles POST /files/presign.
func (handler *Handler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := auth.FromContext(ctx)
	if err != nil {
		api.ServeError(handler.log, w, r, api.NewError(api.KindUnauthorized, "Unauthorized", err))
		return
	}

	var req PresignRequest
	if err := api.ReadJSON(r, &req); err != nil {
		api.ServeError(handler.log, w, r, api.NewError(api.KindInvalidInput, "Invalid request body", err))
		return
	}

	resp, err := handler.service.PresignUpload(ctx, user.ID, req)
	if err != nil {
		api.ServeError(handler.log, w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, resp)
}
