// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package listingdb

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds the postgres connection settings.
type Config struct {
	DSN string `help:"postgres connection string" default:"postgres://localhost:5432/marketplace"`
}

// Queryable is the query surface shared by pgxpool.Pool and pgx.Tx, so the
// same methods run inside and outside transactions.
type Queryable interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Open connects a pgx pool and verifies it with a ping.
func Open(ctx context.Context, config Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, config.DSN)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, Error.Wrap(err)
	}
	return pool, nil
}

// DB runs listing queries against a Queryable.
type DB struct {
	db Queryable
}

// New wraps a Queryable.
func New(db Queryable) *DB {
	return &DB{db: db}
}

// WithTx returns a DB bound to the transaction.
func (db *DB) WithTx(tx pgx.Tx) *DB {
	return &DB{db: tx}
}

const listingColumns = `id, seller_id, seller_name, seller_username, seller_verified,
	title, description, price_min_unit, currency, categories, license,
	client_id, trace_id, thumbnail_path, status, is_nsfw, is_physical,
	total_weight_grams, is_assembly_required, is_hardware_required,
	hardware_required, is_multicolor, dimensions_mm,
	recommended_nozzle_temp_c, recommended_materials, is_ai_generated,
	ai_model_name, is_remixing_allowed, parent_listing_id, likes_count,
	downloads_count, comments_count, is_sale_active, sale_name, sale_price,
	sale_end_timestamp, last_indexed_at, created_at, updated_at, deleted_at`

func scanListing(row pgx.Row) (*Listing, error) {
	var l Listing
	err := row.Scan(
		&l.ID, &l.SellerID, &l.SellerName, &l.SellerUsername, &l.SellerVerified,
		&l.Title, &l.Description, &l.PriceMinUnit, &l.Currency, &l.Categories, &l.License,
		&l.ClientID, &l.TraceID, &l.ThumbnailPath, &l.Status, &l.IsNSFW, &l.IsPhysical,
		&l.TotalWeightGrams, &l.IsAssemblyRequired, &l.IsHardwareRequired,
		&l.HardwareRequired, &l.IsMulticolor, &l.DimensionsMM,
		&l.RecommendedNozzleTempC, &l.RecommendedMaterials, &l.IsAIGenerated,
		&l.AIModelName, &l.IsRemixingAllowed, &l.ParentListingID, &l.LikesCount,
		&l.DownloadsCount, &l.CommentsCount, &l.IsSaleActive, &l.SaleName, &l.SalePrice,
		&l.SaleEndTimestamp, &l.LastIndexedAt, &l.CreatedAt, &l.UpdatedAt, &l.DeletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, Error.Wrap(err)
	}
	return &l, nil
}

const fileColumns = `id, listing_id, file_path, file_type, file_size, metadata,
	status, error_message, is_generated, source_file_id, created_at, updated_at`

func scanListingFile(row pgx.Row) (*ListingFile, error) {
	var f ListingFile
	err := row.Scan(
		&f.ID, &f.ListingID, &f.FilePath, &f.FileType, &f.FileSize, &f.Metadata,
		&f.Status, &f.ErrorMessage, &f.IsGenerated, &f.SourceFileID, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, Error.Wrap(err)
	}
	return &f, nil
}

// CreateListing inserts a new listing and returns the stored row.
func (db *DB) CreateListing(ctx context.Context, listing *Listing) (_ *Listing, err error) {
	defer mon.Task()(&ctx)(&err)

	row := db.db.QueryRow(ctx, `
		INSERT INTO listings (
			seller_id, seller_name, seller_username, title, description,
			price_min_unit, currency, categories, license, client_id, trace_id,
			thumbnail_path, status, is_nsfw, is_physical, is_assembly_required,
			is_hardware_required, hardware_required, is_multicolor,
			dimensions_mm, recommended_nozzle_temp_c, recommended_materials,
			is_ai_generated, ai_model_name, is_remixing_allowed
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23, $24, $25
		)
		RETURNING `+listingColumns,
		listing.SellerID, listing.SellerName, listing.SellerUsername,
		listing.Title, listing.Description, listing.PriceMinUnit,
		listing.Currency, listing.Categories, listing.License,
		listing.ClientID, listing.TraceID, listing.ThumbnailPath,
		listing.Status, listing.IsNSFW, listing.IsPhysical,
		listing.IsAssemblyRequired, listing.IsHardwareRequired,
		listing.HardwareRequired, listing.IsMulticolor, listing.DimensionsMM,
		listing.RecommendedNozzleTempC, listing.RecommendedMaterials,
		listing.IsAIGenerated, listing.AIModelName, listing.IsRemixingAllowed,
	)
	return scanListing(row)
}

// CreateListingFile inserts a file record linked to a listing.
func (db *DB) CreateListingFile(ctx context.Context, file *ListingFile) (_ *ListingFile, err error) {
	defer mon.Task()(&ctx)(&err)

	row := db.db.QueryRow(ctx, `
		INSERT INTO listing_files (listing_id, file_path, file_type, file_size, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+fileColumns,
		file.ListingID, file.FilePath, file.FileType, file.FileSize, file.Status,
	)
	return scanListingFile(row)
}

// GetListingByID returns a listing that has not been soft deleted.
func (db *DB) GetListingByID(ctx context.Context, id pgtype.UUID) (_ *Listing, err error) {
	defer mon.Task()(&ctx)(&err)

	row := db.db.QueryRow(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE id = $1 AND deleted_at IS NULL`,
		id,
	)
	return scanListing(row)
}

// ListFiles returns a listing's file records, oldest first.
func (db *DB) ListFiles(ctx context.Context, listingID pgtype.UUID) (_ []ListingFile, err error) {
	defer mon.Task()(&ctx)(&err)

	rows, err := db.db.Query(ctx, `
		SELECT `+fileColumns+`
		FROM listing_files
		WHERE listing_id = $1
		ORDER BY created_at`,
		listingID,
	)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer rows.Close()

	var files []ListingFile
	for rows.Next() {
		file, err := scanListingFile(rows)
		if err != nil {
			return nil, err
		}
		files = append(files, *file)
	}
	return files, Error.Wrap(rows.Err())
}

// GetListingWithFiles returns a listing together with its file records.
func (db *DB) GetListingWithFiles(ctx context.Context, id pgtype.UUID) (_ *Listing, _ []ListingFile, err error) {
	defer mon.Task()(&ctx)(&err)

	listing, err := db.GetListingByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	files, err := db.ListFiles(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return listing, files, nil
}

// ListBySeller returns the seller's listings, newest first.
func (db *DB) ListBySeller(ctx context.Context, sellerID pgtype.UUID) (_ []Listing, err error) {
	defer mon.Task()(&ctx)(&err)

	rows, err := db.db.Query(ctx, `
		SELECT `+listingColumns+`
		FROM listings
		WHERE seller_id = $1 AND deleted_at IS NULL
		ORDER BY created_at DESC`,
		sellerID,
	)
	if err != nil {
		return nil, Error.Wrap(err)
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *listing)
	}
	return listings, Error.Wrap(rows.Err())
}

// UpdateListing persists the mutable fields and bumps updated_at.
func (db *DB) UpdateListing(ctx context.Context, listing *Listing) (_ *Listing, err error) {
	defer mon.Task()(&ctx)(&err)

	row := db.db.QueryRow(ctx, `
		UPDATE listings SET
			title = $2, description = $3, price_min_unit = $4, currency = $5,
			categories = $6, license = $7, thumbnail_path = $8, is_nsfw = $9,
			is_physical = $10, is_assembly_required = $11,
			is_hardware_required = $12, hardware_required = $13,
			is_multicolor = $14, dimensions_mm = $15,
			recommended_nozzle_temp_c = $16, recommended_materials = $17,
			is_ai_generated = $18, ai_model_name = $19,
			is_remixing_allowed = $20, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING `+listingColumns,
		listing.ID, listing.Title, listing.Description, listing.PriceMinUnit,
		listing.Currency, listing.Categories, listing.License,
		listing.ThumbnailPath, listing.IsNSFW, listing.IsPhysical,
		listing.IsAssemblyRequired, listing.IsHardwareRequired,
		listing.HardwareRequired, listing.IsMulticolor, listing.DimensionsMM,
		listing.RecommendedNozzleTempC, listing.RecommendedMaterials,
		listing.IsAIGenerated, listing.AIModelName, listing.IsRemixingAllowed,
	)
	return scanListing(row)
}

// SoftDelete marks the listing deleted. The seller scope prevents deleting
// other users' listings; when nothing matches (wrong owner, already deleted
// or absent) the delete is a no-op rather than an error.
func (db *DB) SoftDelete(ctx context.Context, sellerID, id pgtype.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = db.db.Exec(ctx, `
		UPDATE listings
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND seller_id = $2 AND deleted_at IS NULL`,
		id, sellerID,
	)
	return Error.Wrap(err)
}

// MarkIndexed records a successful search index build.
func (db *DB) MarkIndexed(ctx context.Context, id pgtype.UUID) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = db.db.Exec(ctx, `
		UPDATE listings
		SET last_indexed_at = now()
		WHERE id = $1`,
		id,
	)
	return Error.Wrap(err)
}
