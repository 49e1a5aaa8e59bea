// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package indexer_test

import (
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"
	"go.uber.org/zap/zaptest"

	"storj.io/marketplace/internal/testcontext"
	"storj.io/marketplace/pkg/eventbus"
	"storj.io/marketplace/pkg/events"
	"storj.io/marketplace/pkg/indexer"
	"storj.io/marketplace/pkg/listingdb"
)

const testListingID = "6a6b5f75-97b2-4f0f-9f11-6e1a72e0b6fd"

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

func indexableListing(t *testing.T) listingdb.Listing {
	t.Helper()
	id, err := listingdb.ParseUUID(testListingID)
	require.NoError(t, err)
	seller, err := listingdb.ParseUUID("a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11")
	require.NoError(t, err)

	return listingdb.Listing{
		ID:             id,
		SellerID:       seller,
		SellerName:     "maker@example.com",
		SellerUsername: "maker",
		Title:          "Articulated Dragon",
		Description:    pgtype.Text{String: "A fully articulated dragon.", Valid: true},
		Currency:       "gbp",
		Categories:     []string{"artistic"},
		License:        "standard",
		ThumbnailPath:  pgtype.Text{String: "images/thumb.png", Valid: true},
		Status:         listingdb.StatusActive,
		DimensionsMM:   []byte(`{"width":100,"depth":50,"height":25}`),
		CreatedAt:      pgtype.Timestamptz{Time: time.Unix(1700000000, 0), Valid: true},
		UpdatedAt:      pgtype.Timestamptz{Time: time.Unix(1700000100, 0), Valid: true},
	}
}

func newService(t *testing.T, mock pgxmock.PgxPoolIface, index indexer.Indexer) *indexer.Service {
	return indexer.NewService(zaptest.NewLogger(t), listingdb.New(mock), index, "https://files.example.com")
}

func TestIndexListing_HappyPath(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("SELECT (.+) FROM listings").WithArgs(pgxmock.AnyArg()).WillReturnRows(listingRow(indexableListing(t)))
	mock.ExpectExec("UPDATE listings").WithArgs(pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	memory := indexer.NewMemory()
	service := newService(t, mock, memory)

	require.NoError(t, service.IndexListing(ctx, testListingID))

	doc, found, err := memory.Get(ctx, indexer.Collection, testListingID)
	require.NoError(t, err)
	require.True(t, found)

	fields := doc.(map[string]any)
	assert.Equal(t, "Articulated Dragon", fields["title"])
	assert.Equal(t, "https://files.example.com/images/thumb.png", fields["thumbnail_url"])
	assert.Equal(t, float64(100), fields["dim_x_mm"])
	assert.Equal(t, float64(50), fields["dim_y_mm"])
	assert.Equal(t, float64(25), fields["dim_z_mm"])
	assert.Equal(t, int64(1700000000), fields["created_at"])
	assert.Equal(t, "a0eebc99-9c0b-4ef8-bb6d-6bb9bd380a11", fields["seller_id"])

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexListing_PermanentConditionsAck(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	memory := indexer.NewMemory()
	service := newService(t, mock, memory)

	// Malformed UUID never reaches the database.
	require.NoError(t, service.IndexListing(ctx, "not-a-uuid"))

	// Ghost listing: deleted between publish and delivery.
	mock.ExpectQuery("SELECT (.+) FROM listings").
		WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows(listingColumns))
	require.NoError(t, service.IndexListing(ctx, testListingID))

	// Missing thumbnail cannot be indexed.
	listing := indexableListing(t)
	listing.ThumbnailPath = pgtype.Text{}
	mock.ExpectQuery("SELECT (.+) FROM listings").WithArgs(pgxmock.AnyArg()).WillReturnRows(listingRow(listing))
	require.NoError(t, service.IndexListing(ctx, testListingID))

	count, err := memory.Count(ctx, indexer.Collection)
	require.NoError(t, err)
	assert.Zero(t, count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexListing_TransientConditionsNack(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	memory := indexer.NewMemory()
	service := newService(t, mock, memory)

	// Database outage.
	mock.ExpectQuery("SELECT (.+) FROM listings").WithArgs(pgxmock.AnyArg()).WillReturnError(errs.New("connection refused"))
	assert.Error(t, service.IndexListing(ctx, testListingID))

	// Search engine outage; the mark-indexed write never happens.
	memory.FailUpserts = true
	mock.ExpectQuery("SELECT (.+) FROM listings").WithArgs(pgxmock.AnyArg()).WillReturnRows(listingRow(indexableListing(t)))
	assert.Error(t, service.IndexListing(ctx, testListingID))

	// Mark-indexed failure after a successful upsert.
	memory.FailUpserts = false
	mock.ExpectQuery("SELECT (.+) FROM listings").WithArgs(pgxmock.AnyArg()).WillReturnRows(listingRow(indexableListing(t)))
	mock.ExpectExec("UPDATE listings").WithArgs(pgxmock.AnyArg()).WillReturnError(errs.New("connection refused"))
	assert.Error(t, service.IndexListing(ctx, testListingID))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIndexListing_Reindex(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	memory := indexer.NewMemory()
	service := newService(t, mock, memory)

	for i := 0; i < 2; i++ {
		mock.ExpectQuery("SELECT (.+) FROM listings").WithArgs(pgxmock.AnyArg()).WillReturnRows(listingRow(indexableListing(t)))
		mock.ExpectExec("UPDATE listings").WithArgs(pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		require.NoError(t, service.IndexListing(ctx, testListingID))
	}

	// Upsert is idempotent: two runs leave one document.
	count, err := memory.Count(ctx, indexer.Collection)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReader_PoisonPillAcks(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	memory := indexer.NewMemory()
	bus := eventbus.NewTestBus()
	config := events.Config{IndexListing: "listings.index"}

	reader := indexer.NewReader(zaptest.NewLogger(t), bus, config, newService(t, mock, memory))
	_, err = reader.Run()
	require.NoError(t, err)

	// Not JSON at all: acked without touching the database or the index.
	require.NoError(t, bus.Deliver(ctx, "listings.index", []byte(`{ not json`)))

	count, err := memory.Count(ctx, indexer.Collection)
	require.NoError(t, err)
	assert.Zero(t, count)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReader_DeliversToService(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	memory := indexer.NewMemory()
	bus := eventbus.NewTestBus()
	config := events.Config{IndexListing: "listings.index"}

	reader := indexer.NewReader(zaptest.NewLogger(t), bus, config, newService(t, mock, memory))
	_, err = reader.Run()
	require.NoError(t, err)

	mock.ExpectQuery("SELECT (.+) FROM listings").WithArgs(pgxmock.AnyArg()).WillReturnRows(listingRow(indexableListing(t)))
	mock.ExpectExec("UPDATE listings").WithArgs(pgxmock.AnyArg()).WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, bus.Deliver(ctx, "listings.index", []byte(`{"listing_id":"`+testListingID+`"}`)))

	_, found, err := memory.Get(ctx, indexer.Collection, testListingID)
	require.NoError(t, err)
	assert.True(t, found)

	// Transient service errors propagate so the bus nacks and redelivers.
	mock.ExpectQuery("SELECT (.+) FROM listings").WithArgs(pgxmock.AnyArg()).WillReturnError(errs.New("connection refused"))
	assert.Error(t, bus.Deliver(ctx, "listings.index", []byte(`{"listing_id":"`+testListingID+`"}`)))

	require.NoError(t, mock.ExpectationsWereMet())
}
