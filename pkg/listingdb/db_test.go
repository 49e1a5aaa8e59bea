// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package listingdb_test

import (
	"testing"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storj.io/marketplace/internal/testcontext"
	"storj.io/marketplace/pkg/listingdb"
)

var listingColumns = []string{
	"id", "seller_id", "seller_name", "seller_username", "seller_verified",
	"title", "description", "price_min_unit", "currency", "categories", "license",
	"client_id", "trace_id", "thumbnail_path", "status", "is_nsfw", "is_physical",
	"total_weight_grams", "is_assembly_required", "is_hardware_required",
	"hardware_required", "is_multicolor", "dimensions_mm",
	"recommended_nozzle_temp_c", "recommended_materials", "is_ai_generated",
	"ai_model_name", "is_remixing_allowed", "parent_listing_id", "likes_count",
	"downloads_count", "comments_count", "is_sale_active", "sale_name", "sale_price",
	"sale_end_timestamp", "last_indexed_at", "created_at", "updated_at", "deleted_at",
}

func listingRow(listing listingdb.Listing) *pgxmock.Rows {
	return pgxmock.NewRows(listingColumns).AddRow(
		listing.ID, listing.SellerID, listing.SellerName, listing.SellerUsername, listing.SellerVerified,
		listing.Title, listing.Description, listing.PriceMinUnit, listing.Currency, listing.Categories, listing.License,
		listing.ClientID, listing.TraceID, listing.ThumbnailPath, listing.Status, listing.IsNSFW, listing.IsPhysical,
		listing.TotalWeightGrams, listing.IsAssemblyRequired, listing.IsHardwareRequired,
		listing.HardwareRequired, listing.IsMulticolor, listing.DimensionsMM,
		listing.RecommendedNozzleTempC, listing.RecommendedMaterials, listing.IsAIGenerated,
		listing.AIModelName, listing.IsRemixingAllowed, listing.ParentListingID, listing.LikesCount,
		listing.DownloadsCount, listing.CommentsCount, listing.IsSaleActive, listing.SaleName, listing.SalePrice,
		listing.SaleEndTimestamp, listing.LastIndexedAt, listing.CreatedAt, listing.UpdatedAt, listing.DeletedAt,
	)
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}

func mustUUID(t *testing.T, s string) pgtype.UUID {
	t.Helper()
	id, err := listingdb.ParseUUID(s)
	require.NoError(t, err)
	return id
}

func TestCreateListing(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	stored := listingdb.Listing{
		ID:         mustUUID(t, "6a6b5f75-97b2-4f0f-9f11-6e1a72e0b6fd"),
		SellerID:   mustUUID(t, "5f9d2f7b-17a8-4f88-9a3e-4a1a5a3d2b1c"),
		Title:      "Articulated Dragon",
		Currency:   "usd",
		Categories: []string{"toys"},
		License:    "cc-by-4.0",
		Status:     listingdb.StatusPendingValidation,
	}
	mock.ExpectQuery("INSERT INTO listings").WithArgs(anyArgs(25)...).WillReturnRows(listingRow(stored))

	db := listingdb.New(mock)
	created, err := db.CreateListing(ctx, &listingdb.Listing{
		SellerID:   stored.SellerID,
		Title:      stored.Title,
		Currency:   stored.Currency,
		Categories: stored.Categories,
		License:    stored.License,
		Status:     listingdb.StatusPendingValidation,
	})
	require.NoError(t, err)
	assert.Equal(t, stored.ID, created.ID)
	assert.Equal(t, listingdb.StatusPendingValidation, created.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetListingByID_NotFound(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM listings").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(listingColumns))

	db := listingdb.New(mock)
	_, err = db.GetListingByID(ctx, mustUUID(t, "6a6b5f75-97b2-4f0f-9f11-6e1a72e0b6fd"))
	assert.ErrorIs(t, err, listingdb.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDelete(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sellerID := mustUUID(t, "5f9d2f7b-17a8-4f88-9a3e-4a1a5a3d2b1c")
	listingID := mustUUID(t, "6a6b5f75-97b2-4f0f-9f11-6e1a72e0b6fd")

	mock.ExpectExec("UPDATE listings").
		WithArgs(listingID, sellerID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	db := listingdb.New(mock)
	require.NoError(t, db.SoftDelete(ctx, sellerID, listingID))

	// Deleting someone else's listing matches zero rows and is a no-op.
	mock.ExpectExec("UPDATE listings").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.NoError(t, db.SoftDelete(ctx, sellerID, listingID))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkIndexed(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	listingID := mustUUID(t, "6a6b5f75-97b2-4f0f-9f11-6e1a72e0b6fd")
	mock.ExpectExec("UPDATE listings").
		WithArgs(listingID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	db := listingdb.New(mock)
	require.NoError(t, db.MarkIndexed(ctx, listingID))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListBySeller(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	sellerID := mustUUID(t, "5f9d2f7b-17a8-4f88-9a3e-4a1a5a3d2b1c")
	first := listingdb.Listing{
		ID:       mustUUID(t, "6a6b5f75-97b2-4f0f-9f11-6e1a72e0b6fd"),
		SellerID: sellerID,
		Title:    "Articulated Dragon",
		Status:   listingdb.StatusActive,
	}

	mock.ExpectQuery("SELECT (.+) FROM listings").
		WithArgs(sellerID).
		WillReturnRows(listingRow(first))

	db := listingdb.New(mock)
	listings, err := db.ListBySeller(ctx, sellerID)
	require.NoError(t, err)
	require.Len(t, listings, 1)
	assert.Equal(t, "Articulated Dragon", listings[0].Title)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUUIDHelpers(t *testing.T) {
	id, err := listingdb.ParseUUID("6a6b5f75-97b2-4f0f-9f11-6e1a72e0b6fd")
	require.NoError(t, err)
	assert.True(t, id.Valid)
	assert.Equal(t, "6a6b5f75-97b2-4f0f-9f11-6e1a72e0b6fd", listingdb.UUIDString(id))

	_, err = listingdb.ParseUUID("not-a-uuid")
	assert.Error(t, err)

	assert.Equal(t, "", listingdb.UUIDString(pgtype.UUID{}))
}
