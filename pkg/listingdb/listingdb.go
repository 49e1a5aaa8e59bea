// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package listingdb implements the postgres persistence layer for listings
// and their files.
package listingdb

import (
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/zeebo/errs"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"
)

var (
	mon = monkit.Package()

	// Error is the class of listing database errors.
	Error = errs.Class("listingdb error")

	// ErrNotFound is returned when a listing does not exist or is soft
	// deleted.
	ErrNotFound = errs.New("listing not found")
)

// Status is the lifecycle state of a listing.
type Status string

// Listing lifecycle states. Validation promotes PENDING_VALIDATION to
// ACTIVE or REJECTED; HIDDEN is an administrative takedown.
const (
	StatusPendingValidation Status = "PENDING_VALIDATION"
	StatusActive            Status = "ACTIVE"
	StatusRejected          Status = "REJECTED"
	StatusHidden            Status = "HIDDEN"
)

// FileStatus is the validation state of an uploaded file.
type FileStatus string

// File validation states.
const (
	FileStatusPending FileStatus = "PENDING"
	FileStatusValid   FileStatus = "VALID"
	FileStatusInvalid FileStatus = "INVALID"
	FileStatusFailed  FileStatus = "FAILED"
)

// FileKind distinguishes printable models from gallery images.
type FileKind string

// File kinds.
const (
	FileKindModel FileKind = "MODEL"
	FileKindImage FileKind = "IMAGE"
)

// Listing is a row in the listings table.
type Listing struct {
	ID       pgtype.UUID
	SellerID pgtype.UUID

	SellerName     string
	SellerUsername string
	SellerVerified bool

	Title        string
	Description  pgtype.Text
	PriceMinUnit int64
	Currency     string
	Categories   []string
	License      string

	ClientID string
	TraceID  string

	ThumbnailPath pgtype.Text
	Status        Status

	IsNSFW     bool
	IsPhysical bool

	TotalWeightGrams   pgtype.Int4
	IsAssemblyRequired bool
	IsHardwareRequired bool
	HardwareRequired   []string
	IsMulticolor       bool

	// DimensionsMM is the raw JSONB column: {"width":..,"depth":..,"height":..}.
	DimensionsMM []byte

	RecommendedNozzleTempC pgtype.Int4
	RecommendedMaterials   []string

	IsAIGenerated bool
	AIModelName   pgtype.Text

	IsRemixingAllowed bool
	ParentListingID   pgtype.UUID

	LikesCount     pgtype.Int4
	DownloadsCount pgtype.Int4
	CommentsCount  pgtype.Int4

	IsSaleActive     bool
	SaleName         pgtype.Text
	SalePrice        pgtype.Int8
	SaleEndTimestamp pgtype.Timestamptz

	LastIndexedAt pgtype.Timestamptz
	CreatedAt     pgtype.Timestamptz
	UpdatedAt     pgtype.Timestamptz
	DeletedAt     pgtype.Timestamptz
}

// ListingFile is a row in the listing_files table.
type ListingFile struct {
	ID        pgtype.UUID
	ListingID pgtype.UUID

	FilePath string
	FileType FileKind
	FileSize int64

	// Metadata is populated by the validation workers (mesh stats, image
	// dimensions) as raw JSONB.
	Metadata []byte

	Status       FileStatus
	ErrorMessage pgtype.Text

	IsGenerated  bool
	SourceFileID pgtype.UUID

	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}
