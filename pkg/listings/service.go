// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package listings implements the listing lifecycle: creation, reads,
// partial updates and soft deletion.
package listings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/marketplace/pkg/api"
	"storj.io/marketplace/pkg/auth"
	"storj.io/marketplace/pkg/cache"
	"storj.io/marketplace/pkg/events"
	"storj.io/marketplace/pkg/listingdb"
	"storj.io/marketplace/pkg/objectstore"
)

var (
	mon = monkit.Package()

	// Error is the class of listing service errors.
	Error = errs.Class("listings error")
)

// CacheTTL bounds how long a listing response is served from cache.
const CacheTTL = time.Hour

func cacheKey(listingID string) string {
	return "listing:" + listingID
}

// TxBeginner starts database transactions; satisfied by pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service orchestrates listing writes and reads.
type Service struct {
	log            *zap.Logger
	db             *listingdb.DB
	txs            TxBeginner
	store          objectstore.Provider
	publisher      *events.Publisher
	cache          *cache.Client
	publicFilesURL string
}

// NewService constructs a Service.
func NewService(log *zap.Logger, db *listingdb.DB, txs TxBeginner, store objectstore.Provider, publisher *events.Publisher, cache *cache.Client, publicFilesURL string) *Service {
	return &Service{
		log:            log,
		db:             db,
		txs:            txs,
		store:          store,
		publisher:      publisher,
		cache:          cache,
		publicFilesURL: publicFilesURL,
	}
}

// Create validates the request, persists the listing and its files in one
// transaction, then publishes a validation event per file. Publishing is
// best-effort after commit.
func (service *Service) Create(ctx context.Context, user auth.User, req *CreateRequest) (_ *listingdb.Listing, err error) {
	defer mon.Task()(&ctx)(&err)

	traceID := middleware.GetReqID(ctx)

	service.log.Info("creating listing",
		zap.String("user_id", user.ID), zap.String("title", req.Title))

	if err := req.Validate(user.ID); err != nil {
		return nil, err
	}

	userUUID, err := listingdb.ParseUUID(user.ID)
	if err != nil {
		return nil, api.NewError(api.KindInternal, "Invalid user ID", err)
	}

	var dimensionsData []byte
	if req.Dimensions != nil {
		dimensionsData, err = json.Marshal(dimensionsFromRequest(*req.Dimensions))
		if err != nil {
			return nil, api.NewError(api.KindInvalidInput, "Invalid dimensions", err)
		}
	}

	tx, err := service.txs.Begin(ctx)
	if err != nil {
		return nil, api.NewError(api.KindInternal, "Failed to start transaction. Please try again later.", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	qtx := service.db.WithTx(tx)

	listing, err := qtx.CreateListing(ctx, &listingdb.Listing{
		SellerID:       userUUID,
		SellerName:     user.Email,
		SellerUsername: user.Username,

		Title:        req.Title,
		Description:  textValue(req.Description),
		PriceMinUnit: req.PriceMinUnit,
		Currency:     req.Currency,
		Categories:   req.Categories,
		License:      req.License,

		ClientID: user.AuthorizedParty,
		TraceID:  traceID,

		ThumbnailPath: textValue(req.Files[0].Path),
		Status:        listingdb.StatusPendingValidation,

		IsNSFW:     req.IsNSFW,
		IsPhysical: req.IsPhysical,

		IsAssemblyRequired: req.PrinterSettings.IsAssemblyRequired,
		IsHardwareRequired: req.PrinterSettings.IsHardwareRequired,
		HardwareRequired:   sliceValue(req.PrinterSettings.HardwareRequired),
		IsMulticolor:       req.PrinterSettings.IsMulticolor,

		DimensionsMM:           dimensionsData,
		RecommendedNozzleTempC: int4FromFloat(req.PrinterSettings.RecommendedNozzleTempC),
		RecommendedMaterials:   sliceValue(req.PrinterSettings.RecommendedMaterials),

		IsAIGenerated: req.IsAIGenerated,
		AIModelName:   textPtr(req.AIModelName),

		IsRemixingAllowed: req.IsRemixingAllowed,
	})
	if err != nil {
		service.log.Error("failed to create listing", zap.Error(err))
		return nil, api.NewError(api.KindInternal, "Failed to create listing. Please try again later.", err)
	}

	var pending []events.StartFileValidation
	for _, file := range req.Files {
		var kind listingdb.FileKind
		switch strings.ToLower(file.Type) {
		case "model":
			kind = listingdb.FileKindModel
		case "image":
			kind = listingdb.FileKindImage
		default:
			return nil, api.NewError(api.KindInvalidInput, "Unsupported file type: "+file.Type, nil)
		}

		record, err := qtx.CreateListingFile(ctx, &listingdb.ListingFile{
			ListingID: listing.ID,
			FilePath:  file.Path,
			FileType:  kind,
			FileSize:  file.Size,
			Status:    listingdb.FileStatusPending,
		})
		if err != nil {
			service.log.Error("failed to save listing file", zap.Error(err))
			return nil, api.NewError(api.KindInternal, "Failed to save listing file. Please try again later.", err)
		}

		pending = append(pending, events.StartFileValidation{
			ListingID: listingdb.UUIDString(listing.ID),
			UserID:    user.ID,
			TraceID:   traceID,
			FileID:    listingdb.UUIDString(record.ID),
			FileKey:   file.Path,
			FileType:  strings.ToLower(file.Type),
		})
	}

	if err := tx.Commit(ctx); err != nil {
		service.log.Error("failed to commit transaction", zap.Error(err))
		return nil, api.NewError(api.KindInternal, "Failed to finalise transaction", err)
	}

	// If a publish is lost the file stays PENDING until the client
	// retries; the broker deduplicates on the message id.
	for _, event := range pending {
		if err := service.publisher.PublishFileValidation(ctx, event); err != nil {
			service.log.Error("failed to publish file validation event",
				zap.String("file_id", event.FileID),
				zap.String("listing_id", event.ListingID),
				zap.Error(err))
		}
	}

	return listing, nil
}

// GetByID serves a listing from cache when possible, otherwise reads the
// database and refreshes the cache asynchronously.
func (service *Service) GetByID(ctx context.Context, listingID string) (_ *Response, err error) {
	defer mon.Task()(&ctx)(&err)

	key := cacheKey(listingID)

	var cached Response
	found, err := service.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		service.log.Error("failed to read listing from cache",
			zap.String("listing_id", listingID), zap.Error(err))
	} else if found {
		return &cached, nil
	}

	id, err := listingdb.ParseUUID(listingID)
	if err != nil {
		return nil, api.NewError(api.KindInvalidInput, "Invalid listing ID provided", err)
	}

	listing, files, err := service.db.GetListingWithFiles(ctx, id)
	if err != nil {
		if errors.Is(err, listingdb.ErrNotFound) {
			return nil, api.NewError(api.KindNotFound, "Listing not found", err)
		}
		return nil, api.NewError(api.KindInternal, "Failed to fetch listing", err)
	}

	response := service.toResponse(ctx, listing, files)

	go func() {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := service.cache.SetJSON(saveCtx, key, response, CacheTTL); err != nil {
			service.log.Error("failed to cache listing",
				zap.String("listing_id", listingID), zap.Error(err))
		}
	}()

	return &response, nil
}

// GetForSeller returns the caller's listings, newest first. This read skips
// the cache; sellers expect to see their own writes immediately.
func (service *Service) GetForSeller(ctx context.Context, user auth.User) (_ []Response, err error) {
	defer mon.Task()(&ctx)(&err)

	sellerID, err := listingdb.ParseUUID(user.ID)
	if err != nil {
		return nil, api.NewError(api.KindInvalidInput, "Invalid user ID provided", err)
	}

	rows, err := service.db.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, api.NewError(api.KindInternal, "Unable to get the user's listings", err)
	}

	responses := make([]Response, 0, len(rows))
	for i := range rows {
		files, err := service.db.ListFiles(ctx, rows[i].ID)
		if err != nil {
			return nil, api.NewError(api.KindInternal, "Unable to get the user's listings", err)
		}
		responses = append(responses, service.toResponse(ctx, &rows[i], files))
	}
	return responses, nil
}

// Update applies a partial update to a listing the caller owns, invalidates
// the cache and requests a re-index.
func (service *Service) Update(ctx context.Context, user auth.User, listingID string, req *UpdateRequest) (_ *listingdb.Listing, err error) {
	defer mon.Task()(&ctx)(&err)

	traceID := middleware.GetReqID(ctx)

	userUUID, err := listingdb.ParseUUID(user.ID)
	if err != nil {
		return nil, api.NewError(api.KindInvalidInput, "Invalid user ID provided", err)
	}
	id, err := listingdb.ParseUUID(listingID)
	if err != nil {
		return nil, api.NewError(api.KindInvalidInput, "Invalid listing ID provided", err)
	}

	existing, err := service.db.GetListingByID(ctx, id)
	if err != nil {
		if errors.Is(err, listingdb.ErrNotFound) {
			return nil, api.NewError(api.KindNotFound, "Listing not found", err)
		}
		return nil, api.NewError(api.KindInternal, "Failed to fetch existing listing", err)
	}

	if existing.SellerID != userUUID {
		return nil, api.NewError(api.KindUnauthorized, "You do not own this listing", nil)
	}

	if err := req.apply(existing); err != nil {
		return nil, err
	}

	updated, err := service.db.UpdateListing(ctx, existing)
	if err != nil {
		service.log.Error("failed to update listing",
			zap.String("listing_id", listingID), zap.Error(err))
		return nil, api.NewError(api.KindInternal, "Failed to save listing updates", err)
	}

	if err := service.cache.Delete(ctx, cacheKey(listingID)); err != nil {
		service.log.Error("failed to invalidate listing cache",
			zap.String("listing_id", listingID), zap.Error(err))
	}

	if err := service.publisher.PublishReIndex(ctx, events.ReIndexListing{
		ListingID: listingID,
		TraceID:   traceID,
	}); err != nil {
		// Best effort: the index catches up on the next write.
		service.log.Error("failed to publish re-index event",
			zap.String("listing_id", listingID), zap.Error(err))
	}

	return updated, nil
}

// Delete soft-deletes a listing the caller owns. A listing that is absent,
// already deleted or owned by someone else deletes as a silent no-op, so
// the operation stays safe to retry.
func (service *Service) Delete(ctx context.Context, user auth.User, listingID string) (err error) {
	defer mon.Task()(&ctx)(&err)

	sellerID, err := listingdb.ParseUUID(user.ID)
	if err != nil {
		return api.NewError(api.KindInvalidInput, "Invalid user ID provided", err)
	}
	id, err := listingdb.ParseUUID(listingID)
	if err != nil {
		return api.NewError(api.KindInvalidInput, "Invalid listing ID provided", err)
	}

	if err := service.db.SoftDelete(ctx, sellerID, id); err != nil {
		return api.NewError(api.KindInternal, "Failed to delete listing", err)
	}

	if err := service.cache.Delete(ctx, cacheKey(listingID)); err != nil {
		service.log.Error("failed to invalidate listing cache",
			zap.String("listing_id", listingID), zap.Error(err))
	}
	return nil
}

// apply copies the non-nil fields of the request onto the listing.
func (req *UpdateRequest) apply(listing *listingdb.Listing) error {
	if req.Title != nil {
		titleLen := len(strings.TrimSpace(*req.Title))
		if titleLen < 5 || titleLen > 100 {
			return invalid("Title must be between 5 and 100 characters")
		}
		listing.Title = *req.Title
	}
	if req.Description != nil {
		descLen := len(strings.TrimSpace(*req.Description))
		if descLen < 20 || descLen > 5000 {
			return invalid("Description must be between 20 and 5000 characters")
		}
		listing.Description = textValue(*req.Description)
	}
	if req.Categories != nil {
		if len(req.Categories) == 0 {
			return invalid("At least one category is required")
		}
		listing.Categories = req.Categories
	}
	if req.License != nil {
		if strings.TrimSpace(*req.License) == "" {
			return invalid("A valid license type is required")
		}
		listing.License = *req.License
	}
	if req.PriceMinUnit != nil {
		if *req.PriceMinUnit < 0 {
			return invalid("Price cannot be negative")
		}
		listing.PriceMinUnit = *req.PriceMinUnit
	}
	if req.Currency != nil {
		listing.Currency = *req.Currency
	}
	if listing.PriceMinUnit > 0 {
		switch strings.ToLower(listing.Currency) {
		case "usd", "gbp":
		default:
			return invalid("Currency must be 'usd' or 'gbp'")
		}
	}

	if req.AIModelName != nil {
		// An empty string clears the column.
		name := strings.TrimSpace(*req.AIModelName)
		listing.AIModelName = textPtr(req.AIModelName)
		listing.AIModelName.Valid = name != ""
	}

	if req.Dimensions != nil {
		if req.Dimensions.X < 0 || req.Dimensions.Y < 0 || req.Dimensions.Z < 0 {
			return invalid("Dimensions cannot be negative")
		}
		data, err := json.Marshal(dimensionsFromRequest(*req.Dimensions))
		if err != nil {
			return invalid("Invalid dimensions format")
		}
		listing.DimensionsMM = data
	}

	if req.IsRemixingAllowed != nil {
		listing.IsRemixingAllowed = *req.IsRemixingAllowed
	}
	if req.IsPhysical != nil {
		listing.IsPhysical = *req.IsPhysical
	}
	if req.IsNSFW != nil {
		listing.IsNSFW = *req.IsNSFW
	}
	if req.IsAIGenerated != nil {
		listing.IsAIGenerated = *req.IsAIGenerated
	}
	if listing.IsAIGenerated && !listing.AIModelName.Valid {
		return invalid("AI Model Name is required for AI-generated content")
	}

	if ps := req.PrinterSettings; ps != nil {
		if ps.IsAssemblyRequired != nil {
			listing.IsAssemblyRequired = *ps.IsAssemblyRequired
		}
		if ps.IsHardwareRequired != nil {
			listing.IsHardwareRequired = *ps.IsHardwareRequired
		}
		if ps.HardwareRequired != nil {
			for _, item := range *ps.HardwareRequired {
				if strings.TrimSpace(item) == "" {
					return invalid("Hardware list cannot contain empty entries")
				}
			}
			listing.HardwareRequired = *ps.HardwareRequired
		}
		if ps.IsMulticolor != nil {
			listing.IsMulticolor = *ps.IsMulticolor
		}
		if ps.RecommendedMaterials != nil {
			for _, mat := range *ps.RecommendedMaterials {
				if strings.TrimSpace(mat) == "" {
					return invalid("Material list cannot contain empty entries")
				}
			}
			listing.RecommendedMaterials = *ps.RecommendedMaterials
		}
		if ps.RecommendedNozzleTempC != nil {
			temp := *ps.RecommendedNozzleTempC
			if temp < 180 || temp > 450 {
				return invalid("Recommended nozzle temperature must be within a realistic range (180-450°C)")
			}
			listing.RecommendedNozzleTempC = int4FromFloat(ps.RecommendedNozzleTempC)
		}
	}
	return nil
}

func dimensionsFromRequest(d Dimensions) dimensionsJSON {
	return dimensionsJSON{Width: d.X, Depth: d.Y, Height: d.Z}
}
