// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package listings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"storj.io/marketplace/pkg/listingdb"
	"storj.io/marketplace/pkg/objectstore"
)

// ModelURLExpiry bounds signed download URLs for private model files.
const ModelURLExpiry = 15 * time.Minute

// toResponse converts a stored listing into the client representation.
// Files that have not passed validation keep their metadata but lose their
// path; validated models get a signed URL, validated images a public one.
func (service *Service) toResponse(ctx context.Context, listing *listingdb.Listing, files []listingdb.ListingFile) Response {
	dtos := make([]FileDTO, 0, len(files))
	for _, file := range files {
		dto := FileDTO{
			ID:           listingdb.UUIDString(file.ID),
			FileType:     string(file.FileType),
			Status:       string(file.Status),
			Size:         file.FileSize,
			Metadata:     file.Metadata,
			ErrorMessage: textToPtr(file.ErrorMessage),
			IsGenerated:  file.IsGenerated,
			SourceFileID: uuidToPtr(file.SourceFileID),
		}

		if file.Status == listingdb.FileStatusValid {
			switch file.FileType {
			case listingdb.FileKindModel:
				signed, err := service.store.PresignGet(ctx, objectstore.BucketProduct, file.FilePath, ModelURLExpiry)
				if err != nil {
					service.log.Error("failed to sign model url",
						zap.String("file_id", dto.ID), zap.Error(err))
				} else {
					dto.FilePath = &signed
				}
			default:
				url := publicURL(service.publicFilesURL, file.FilePath)
				dto.FilePath = &url
			}
		}

		dtos = append(dtos, dto)
	}

	var dimX, dimY, dimZ *int
	if len(listing.DimensionsMM) > 0 {
		var dims dimensionsJSON
		if err := json.Unmarshal(listing.DimensionsMM, &dims); err != nil {
			service.log.Warn("unreadable dimensions column, skipping",
				zap.String("listing_id", listingdb.UUIDString(listing.ID)), zap.Error(err))
		} else {
			x, y, z := int(dims.Width), int(dims.Depth), int(dims.Height)
			dimX, dimY, dimZ = &x, &y, &z
		}
	}

	var thumbnail *string
	if listing.ThumbnailPath.Valid {
		url := publicURL(service.publicFilesURL, listing.ThumbnailPath.String)
		thumbnail = &url
	}

	return Response{
		ID: listingdb.UUIDString(listing.ID),

		SellerID:       listingdb.UUIDString(listing.SellerID),
		SellerName:     listing.SellerName,
		SellerUsername: listing.SellerUsername,
		SellerVerified: listing.SellerVerified,

		Title:        listing.Title,
		Description:  listing.Description.String,
		PriceMinUnit: listing.PriceMinUnit,
		Currency:     listing.Currency,
		Categories:   listing.Categories,
		License:      listing.License,

		ThumbnailPath: thumbnail,
		Files:         dtos,

		IsRemixingAllowed: listing.IsRemixingAllowed,
		ParentListingID:   uuidToPtr(listing.ParentListingID),

		IsPhysical:       listing.IsPhysical,
		TotalWeightGrams: int4ToPtr(listing.TotalWeightGrams),

		DimXMM: dimX,
		DimYMM: dimY,
		DimZMM: dimZ,

		IsAssemblyRequired: listing.IsAssemblyRequired,
		IsHardwareRequired: listing.IsHardwareRequired,
		HardwareRequired:   listing.HardwareRequired,

		IsMulticolor:           listing.IsMulticolor,
		RecommendedMaterials:   listing.RecommendedMaterials,
		RecommendedNozzleTempC: int4ToPtr(listing.RecommendedNozzleTempC),

		IsAIGenerated: listing.IsAIGenerated,
		AIModelName:   textToPtr(listing.AIModelName),

		IsNSFW: listing.IsNSFW,

		LikesCount:     int(listing.LikesCount.Int32),
		DownloadsCount: int(listing.DownloadsCount.Int32),
		CommentsCount:  int(listing.CommentsCount.Int32),

		IsSaleActive:     listing.IsSaleActive,
		SaleName:         textToPtr(listing.SaleName),
		SaleEndTimestamp: timestampToPtr(listing.SaleEndTimestamp),

		Status:        string(listing.Status),
		CreatedAt:     listing.CreatedAt.Time,
		UpdatedAt:     listing.UpdatedAt.Time,
		LastIndexedAt: timestampToPtr(listing.LastIndexedAt),
		DeletedAt:     timestampToPtr(listing.DeletedAt),
	}
}

// publicURL joins the public base URL and a stored path with exactly one
// slash between them.
func publicURL(base, path string) string {
	return fmt.Sprintf("%s/%s", strings.TrimRight(base, "/"), strings.TrimLeft(path, "/"))
}

func textValue(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

func textPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func textToPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func sliceValue(s *[]string) []string {
	if s == nil {
		return []string{}
	}
	return *s
}

func int4FromFloat(f *float64) pgtype.Int4 {
	if f == nil {
		return pgtype.Int4{}
	}
	return pgtype.Int4{Int32: int32(*f), Valid: true}
}

func int4ToPtr(i pgtype.Int4) *int {
	if !i.Valid {
		return nil
	}
	val := int(i.Int32)
	return &val
}

func uuidToPtr(id pgtype.UUID) *string {
	if !id.Valid {
		return nil
	}
	s := listingdb.UUIDString(id)
	return &s
}

func timestampToPtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	val := t.Time
	return &val
}
