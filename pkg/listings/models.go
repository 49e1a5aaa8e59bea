// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package listings

import (
	"encoding/json"
	"time"
)

// CreateRequest is the payload for creating a listing.
type CreateRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Categories  []string `json:"categories"`
	License     string   `json:"license"`

	// PriceMinUnit is in minor currency units (pennies, cents).
	PriceMinUnit int64  `json:"price_min_unit"`
	Currency     string `json:"currency"`
	IsFree       bool   `json:"isFree"`

	PrinterSettings PrinterSettings `json:"printerSettings"`
	Dimensions      *Dimensions     `json:"dimensions"`

	IsNSFW     bool `json:"isNSFW"`
	IsPhysical bool `json:"isPhysical"`

	IsAIGenerated bool    `json:"isAIGenerated"`
	AIModelName   *string `json:"aiModelName"`

	IsRemixingAllowed bool `json:"isRemixingAllowed"`

	Files []CreateFile `json:"files"`
}

// UpdateRequest is a partial update; nil fields are left untouched.
type UpdateRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Categories  []string `json:"categories"`
	License     *string  `json:"license"`

	PriceMinUnit *int64  `json:"price_min_unit"`
	Currency     *string `json:"currency"`
	IsFree       *bool   `json:"isFree"`

	PrinterSettings *UpdatePrinterSettings `json:"printerSettings"`
	Dimensions      *Dimensions            `json:"dimensions"`

	IsNSFW     *bool `json:"isNSFW"`
	IsPhysical *bool `json:"isPhysical"`

	IsAIGenerated *bool   `json:"isAIGenerated"`
	AIModelName   *string `json:"aiModelName"`

	IsRemixingAllowed *bool `json:"isRemixingAllowed"`
}

// PrinterSettings carries slicer hints attached to a listing.
type PrinterSettings struct {
	NozzleDiameter         *string   `json:"nozzleDiameter"`
	NozzleTemperature      *float64  `json:"nozzleTemperature"`
	RecommendedMaterials   *[]string `json:"recommendedMaterials"`
	RecommendedNozzleTempC *float64  `json:"recommendedNozzleTempC"`
	IsAssemblyRequired     bool      `json:"isAssemblyRequired"`
	IsHardwareRequired     bool      `json:"isHardwareRequired"`
	IsMulticolor           bool      `json:"isMulticolor"`
	HardwareRequired       *[]string `json:"hardwareRequired"`
}

// UpdatePrinterSettings is the partial-update form of PrinterSettings.
type UpdatePrinterSettings struct {
	NozzleDiameter         *string   `json:"nozzleDiameter"`
	NozzleTemperature      *float64  `json:"nozzleTemperature"`
	RecommendedMaterials   *[]string `json:"recommendedMaterials"`
	RecommendedNozzleTempC *float64  `json:"recommendedNozzleTempC"`
	IsAssemblyRequired     *bool     `json:"isAssemblyRequired"`
	IsHardwareRequired     *bool     `json:"isHardwareRequired"`
	IsMulticolor           *bool     `json:"isMulticolor"`
	HardwareRequired       *[]string `json:"hardwareRequired"`
}

// Dimensions is the bounding box of the printed object in millimetres.
type Dimensions struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// dimensionsJSON is the shape stored in the dimensions_mm JSONB column.
// Width maps to X, depth to Y, height to Z.
type dimensionsJSON struct {
	Width  float64 `json:"width"`
	Depth  float64 `json:"depth"`
	Height float64 `json:"height"`
}

// CreateFile references an object the user already uploaded to the
// incoming bucket.
type CreateFile struct {
	Type string `json:"type"`
	Path string `json:"path"`
	Size int64  `json:"size"`
}

// FileDTO is a listing file as returned to clients. FilePath is only set
// for validated files; for models it is a short-lived signed URL.
type FileDTO struct {
	ID           string          `json:"id"`
	FilePath     *string         `json:"file_path"`
	FileType     string          `json:"file_type"`
	Status       string          `json:"status"`
	Size         int64           `json:"size"`
	Metadata     json.RawMessage `json:"metadata"`
	ErrorMessage *string         `json:"error_message"`
	IsGenerated  bool            `json:"is_generated"`
	SourceFileID *string         `json:"source_file_id,omitempty"`
}

// Response is the full listing representation served to clients.
type Response struct {
	ID string `json:"id"`

	SellerID       string `json:"seller_id"`
	SellerName     string `json:"seller_name"`
	SellerUsername string `json:"seller_username"`
	SellerVerified bool   `json:"seller_verified"`

	Title        string   `json:"title"`
	Description  string   `json:"description"`
	PriceMinUnit int64    `json:"price_min_unit"`
	Currency     string   `json:"currency"`
	Categories   []string `json:"categories"`
	License      string   `json:"license"`

	ThumbnailPath *string   `json:"thumbnail_path"`
	Files         []FileDTO `json:"files"`

	IsRemixingAllowed bool    `json:"is_remixing_allowed"`
	ParentListingID   *string `json:"parent_listing_id"`

	IsPhysical       bool `json:"is_physical"`
	TotalWeightGrams *int `json:"total_weight_grams"`

	DimXMM *int `json:"dim_x_mm"`
	DimYMM *int `json:"dim_y_mm"`
	DimZMM *int `json:"dim_z_mm"`

	IsAssemblyRequired bool     `json:"is_assembly_required"`
	IsHardwareRequired bool     `json:"is_hardware_required"`
	HardwareRequired   []string `json:"hardware_required"`

	IsMulticolor           bool     `json:"is_multicolor"`
	RecommendedMaterials   []string `json:"recommended_materials"`
	RecommendedNozzleTempC *int     `json:"recommended_nozzle_temp_c"`

	IsAIGenerated bool    `json:"is_ai_generated"`
	AIModelName   *string `json:"ai_model_name"`

	IsNSFW bool `json:"is_nsfw"`

	LikesCount     int `json:"likes_count"`
	DownloadsCount int `json:"downloads_count"`
	CommentsCount  int `json:"comments_count"`

	IsSaleActive     bool       `json:"is_sale_active"`
	SaleName         *string    `json:"sale_name"`
	SaleEndTimestamp *time.Time `json:"sale_end_timestamp"`

	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastIndexedAt *time.Time `json:"last_indexed_at"`
	DeletedAt     *time.Time `json:"deleted_at,omitempty"`
}
