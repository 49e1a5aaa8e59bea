// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package listings

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"storj.io/marketplace/pkg/api"
	"storj.io/marketplace/pkg/auth"
	"storj.io/marketplace/pkg/listingdb"
)

// Handler exposes the listing endpoints.
type Handler struct {
	log     *zap.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(log *zap.Logger, service *Service) *Handler {
	return &Handler{log: log, service: service}
}

// Create handles POST /listings.
func (handler *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := auth.FromContext(ctx)
	if err != nil {
		api.ServeError(handler.log, w, r, api.NewError(api.KindUnauthorized, "Unauthorized", err))
		return
	}

	var req CreateRequest
	if err := api.ReadJSON(r, &req); err != nil {
		api.ServeError(handler.log, w, r, api.NewError(api.KindInvalidInput, "Invalid request body", err))
		return
	}

	listing, err := handler.service.Create(ctx, user, &req)
	if err != nil {
		api.ServeError(handler.log, w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":     listingdb.UUIDString(listing.ID),
		"status": string(listing.Status),
	})
}

// Get handles GET /listings/{id}. No authentication; rate limiting sits in
// front of it at the edge.
func (handler *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	listingID := chi.URLParam(r, "id")
	if listingID == "" {
		api.ServeError(handler.log, w, r, api.NewError(api.KindInvalidInput, "Listing ID is required", nil))
		return
	}

	response, err := handler.service.GetByID(ctx, listingID)
	if err != nil {
		api.ServeError(handler.log, w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, response)
}

// List handles GET /listings, returning the caller's own listings.
func (handler *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := auth.FromContext(ctx)
	if err != nil {
		api.ServeError(handler.log, w, r, api.NewError(api.KindUnauthorized, "Unauthorized", err))
		return
	}

	responses, err := handler.service.GetForSeller(ctx, user)
	if err != nil {
		api.ServeError(handler.log, w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, responses)
}

// Update handles PUT /listings/{id}.
func (handler *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := auth.FromContext(ctx)
	if err != nil {
		api.ServeError(handler.log, w, r, api.NewError(api.KindUnauthorized, "Unauthorized", err))
		return
	}

	listingID := chi.URLParam(r, "id")
	if listingID == "" {
		api.ServeError(handler.log, w, r, api.NewError(api.KindInvalidInput, "Listing ID is required", nil))
		return
	}

	var req UpdateRequest
	if err := api.ReadJSON(r, &req); err != nil {
		api.ServeError(handler.log, w, r, api.NewError(api.KindInvalidInput, "Invalid request body", err))
		return
	}

	if _, err := handler.service.Update(ctx, user, listingID, &req); err != nil {
		api.ServeError(handler.log, w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusOK, nil)
}

// Delete handles DELETE /listings/{id}.
func (handler *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := auth.FromContext(ctx)
	if err != nil {
		api.ServeError(handler.log, w, r, api.NewError(api.KindUnauthorized, "Unauthorized", err))
		return
	}

	listingID := chi.URLParam(r, "id")
	if listingID == "" {
		api.ServeError(handler.log, w, r, api.NewError(api.KindInvalidInput, "Listing ID is required", nil))
		return
	}

	if err := handler.service.Delete(ctx, user, listingID); err != nil {
		api.ServeError(handler.log, w, r, err)
		return
	}

	api.WriteJSON(w, http.StatusNoContent, nil)
}
