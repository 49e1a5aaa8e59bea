// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package listings

import (
	"fmt"
	"strings"

	"storj.io/marketplace/pkg/api"
)

func invalid(message string) error {
	return api.NewError(api.KindInvalidInput, message, nil)
}

// Validate checks a create request against the listing quality rules.
func (req *CreateRequest) Validate(userID string) error {
	titleLen := len(strings.TrimSpace(req.Title))
	if titleLen < 5 || titleLen > 100 {
		return invalid("Title must be between 5 and 100 characters")
	}

	descLen := len(strings.TrimSpace(req.Description))
	if descLen < 20 {
		return invalid("Description must be at least 20 characters")
	}
	if descLen > 5000 {
		return invalid("Description cannot exceed 5000 characters")
	}

	if len(req.Categories) == 0 {
		return invalid("At least one category is required")
	}

	if strings.TrimSpace(req.License) == "" {
		return invalid("A valid license type is required")
	}

	if req.PriceMinUnit < 0 {
		return invalid("Price cannot be negative")
	}
	if req.PriceMinUnit > 0 {
		switch strings.ToLower(req.Currency) {
		case "usd", "gbp":
		default:
			return invalid("Currency must be 'usd' or 'gbp'")
		}
	}

	if req.Dimensions != nil {
		if req.Dimensions.X < 0 || req.Dimensions.Y < 0 || req.Dimensions.Z < 0 {
			return invalid("Dimensions cannot be negative")
		}
	}

	if req.PrinterSettings.RecommendedNozzleTempC != nil {
		temp := *req.PrinterSettings.RecommendedNozzleTempC
		// Sanity range for consumer FDM printing.
		if temp < 180 || temp > 450 {
			return invalid("Recommended nozzle temperature must be within a realistic range (180-450°C)")
		}
	}

	if req.PrinterSettings.RecommendedMaterials != nil {
		for _, mat := range *req.PrinterSettings.RecommendedMaterials {
			if strings.TrimSpace(mat) == "" {
				return invalid("Material list cannot contain empty entries")
			}
		}
	}
	if req.PrinterSettings.HardwareRequired != nil {
		for _, item := range *req.PrinterSettings.HardwareRequired {
			if strings.TrimSpace(item) == "" {
				return invalid("Hardware list cannot contain empty entries")
			}
		}
	}

	if req.IsAIGenerated {
		if req.AIModelName == nil || strings.TrimSpace(*req.AIModelName) == "" {
			return invalid("AI Model Name is required for AI-generated content")
		}
	}

	if len(req.Files) == 0 {
		return invalid("At least one file is required")
	}

	hasModel := false
	hasImage := false
	for _, f := range req.Files {
		if f.Path == "" {
			return invalid("File path cannot be empty")
		}
		if !OwnsPath(userID, f.Path) {
			return invalid("You do not have permission to use this file")
		}
		if f.Size <= 0 {
			return invalid("File size must be positive")
		}

		switch strings.ToLower(f.Type) {
		case "model":
			hasModel = true
		case "image":
			hasImage = true
		default:
			return invalid(fmt.Sprintf("Invalid file type '%s'. Must be 'model' or 'image'", f.Type))
		}
	}
	if !hasModel {
		return invalid("You must upload at least one 3D model file")
	}
	if !hasImage {
		return invalid("You must upload at least one gallery image")
	}

	return nil
}

// OwnsPath reports whether the user id segment of an upload key matches the
// caller. Keys look like YYYY/MM/DD/userID/draftID/kind/file.ext.
func OwnsPath(userID, filePath string) bool {
	parts := strings.SplitN(filePath, "/", 6)
	if len(parts) < 6 {
		return false
	}
	return parts[3] == userID
}
