// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package indexer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"go.uber.org/zap"

	"storj.io/marketplace/pkg/listingdb"
)

// Service turns listings into search documents. Its IndexListing return
// value doubles as the ack decision: nil acks the message, an error nacks
// it for redelivery, so permanent conditions must return nil.
type Service struct {
	log            *zap.Logger
	db             *listingdb.DB
	index          Indexer
	publicFilesURL string
}

// NewService constructs a Service.
func NewService(log *zap.Logger, db *listingdb.DB, index Indexer, publicFilesURL string) *Service {
	return &Service{
		log:            log,
		db:             db,
		index:          index,
		publicFilesURL: publicFilesURL,
	}
}

// dimensionsJSON is the shape stored in the dimensions_mm column.
type dimensionsJSON struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// IndexListing fetches the listing, builds its search document and upserts
// it, then records last_indexed_at.
func (service *Service) IndexListing(ctx context.Context, listingID string) (err error) {
	defer mon.Task()(&ctx)(&err)

	service.log.Info("indexing listing", zap.String("listing_id", listingID))

	id, err := listingdb.ParseUUID(listingID)
	if err != nil {
		// Permanent: this id will never parse, retrying loops forever.
		service.log.Error("invalid listing id, discarding", zap.String("listing_id", listingID))
		return nil
	}

	listing, err := service.db.GetListingByID(ctx, id)
	if err != nil {
		if errors.Is(err, listingdb.ErrNotFound) {
			// Ghost: deleted between publish and delivery.
			service.log.Warn("listing not found, skipping index", zap.String("listing_id", listingID))
			return nil
		}
		service.log.Error("failed to fetch listing", zap.String("listing_id", listingID), zap.Error(err))
		return err
	}

	if !listing.ThumbnailPath.Valid {
		service.log.Warn("listing has no thumbnail, cannot index", zap.String("listing_id", listingID))
		return nil
	}

	document := service.buildDocument(listingID, listing)

	if err := service.index.Upsert(ctx, Collection, document); err != nil {
		service.log.Error("failed to upsert search document", zap.String("listing_id", listingID), zap.Error(err))
		return err
	}

	if err := service.db.MarkIndexed(ctx, id); err != nil {
		service.log.Error("failed to record index timestamp", zap.String("listing_id", listingID), zap.Error(err))
		return err
	}

	service.log.Info("indexed listing", zap.String("listing_id", listingID))
	return nil
}

func (service *Service) buildDocument(listingID string, listing *listingdb.Listing) map[string]any {
	var dims dimensionsJSON
	if len(listing.DimensionsMM) > 0 {
		if err := json.Unmarshal(listing.DimensionsMM, &dims); err != nil {
			// Permanent data-shape problem; index with zero dimensions
			// rather than retrying forever.
			service.log.Warn("unreadable dimensions column, indexing zero dimensions",
				zap.String("listing_id", listingID), zap.Error(err))
			dims = dimensionsJSON{}
		}
	}

	thumbnailURL := strings.TrimRight(service.publicFilesURL, "/") + "/" + strings.TrimLeft(listing.ThumbnailPath.String, "/")

	return map[string]any{
		"id":            listingID,
		"title":         listing.Title,
		"description":   listing.Description.String,
		"thumbnail_url": thumbnailURL,
		"categories":    listing.Categories,
		"license":       listing.License,

		"is_manifold":  false,
		"file_formats": []string{"stl"},

		"is_physical":        listing.IsPhysical,
		"dim_x_mm":           dims.Width,
		"dim_y_mm":           dims.Depth,
		"dim_z_mm":           dims.Height,
		"total_weight_grams": int4Ptr(listing.TotalWeightGrams),

		"is_assembly_required":      listing.IsAssemblyRequired,
		"is_hardware_required":      listing.IsHardwareRequired,
		"hardware_required":         listing.HardwareRequired,
		"recommended_materials":     listing.RecommendedMaterials,
		"is_multicolor":             listing.IsMulticolor,
		"recommended_nozzle_temp_c": int4Ptr(listing.RecommendedNozzleTempC),

		"is_nsfw": listing.IsNSFW,

		"is_ai_generated": listing.IsAIGenerated,
		"ai_model_name":   textPtr(listing.AIModelName),

		"parent_listing_id": uuidPtr(listing.ParentListingID),
		"is_remix_allowed":  listing.IsRemixingAllowed,

		"likes_count":     int64(listing.LikesCount.Int32),
		"downloads_count": int64(listing.DownloadsCount.Int32),
		"comments_count":  int64(listing.CommentsCount.Int32),

		"price_min_unit":     listing.PriceMinUnit,
		"sale_price":         int8Ptr(listing.SalePrice),
		"sale_end_timestamp": unixPtr(listing.SaleEndTimestamp),
		"is_sale_active":     listing.IsSaleActive,
		"sale_name":          textPtr(listing.SaleName),
		"currency":           listing.Currency,

		"seller_id":       listingdb.UUIDString(listing.SellerID),
		"seller_name":     listing.SellerName,
		"seller_username": listing.SellerUsername,
		"seller_verified": listing.SellerVerified,

		"created_at": listing.CreatedAt.Time.Unix(),
		"updated_at": listing.UpdatedAt.Time.Unix(),
	}
}
