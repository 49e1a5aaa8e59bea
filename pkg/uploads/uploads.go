// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package uploads issues presigned browser-upload policies for the
// incoming-files bucket.
package uploads

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/marketplace/pkg/api"
	"storj.io/marketplace/pkg/objectstore"
)

var (
	mon = monkit.Package()

	// Error is the class of upload service errors.
	Error = errs.Class("uploads error")
)

// Config holds upload policy settings.
type Config struct {
	ValidationWindowHours int `help:"hours an upload policy stays valid" default:"1"`
}

// Constraint bounds one upload kind.
type Constraint struct {
	MaxSize          int64
	AllowedMimeTypes []string
	Prefix           string
}

// DefaultConstraints are the production upload limits per file kind.
func DefaultConstraints() map[string]Constraint {
	return map[string]Constraint{
		"image": {
			MaxSize:          5 * 1024 * 1024,
			AllowedMimeTypes: []string{"image/jpeg", "image/png", "image/gif"},
			Prefix:           "images/",
		},
		"model": {
			MaxSize: 50 * 1024 * 1024,
			AllowedMimeTypes: []string{
				"application/vnd.ms-pki.stl",
				"application/vnd.ms-pki.3mf",
				"model/stl",
				"model/3mf",
				"application/octet-stream",
			},
			Prefix: "models/",
		},
	}
}

// extensionMimeTypes infers a content type when the client omits one.
var extensionMimeTypes = map[string]string{
	".stl": "model/stl",
	".3mf": "model/3mf",
	".obj": "application/octet-stream",
}

// PresignRequest asks for a browser-upload policy.
type PresignRequest struct {
	Type        string `json:"type"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	DraftID     string `json:"draft_id"`
}

// PresignResponse carries the POST policy back to the client.
type PresignResponse struct {
	UploadURL string            `json:"uploadUrl"`
	FormData  map[string]string `json:"fields"`
	Key       string            `json:"key"`
}

// Service builds storage keys and signs upload policies.
type Service struct {
	log         *zap.Logger
	store       objectstore.Provider
	constraints map[string]Constraint
	config      Config
}

// NewService constructs a Service with the given constraints.
func NewService(log *zap.Logger, store objectstore.Provider, constraints map[string]Constraint, config Config) *Service {
	return &Service{
		log:         log,
		store:       store,
		constraints: constraints,
		config:      config,
	}
}

// PresignUpload validates the request against the kind's constraints and
// returns a signed POST policy for the incoming-files bucket.
func (service *Service) PresignUpload(ctx context.Context, userID string, req PresignRequest) (_ *PresignResponse, err error) {
	defer mon.Task()(&ctx)(&err)

	constraint, ok := service.constraints[req.Type]
	if !ok {
		return nil, api.NewError(api.KindInvalidInput, "Unknown file type. Must be 'model' or 'image'", nil)
	}

	ext := strings.ToLower(filepath.Ext(req.Filename))

	mimeType := req.ContentType
	if mimeType == "" {
		mimeType, ok = extensionMimeTypes[ext]
		if !ok && ext != "" && req.Type == "model" {
			// Slicer formats are a zoo; unknown model extensions fall
			// back to a generic binary type.
			mimeType = "application/octet-stream"
		}
	}
	if !slices.Contains(constraint.AllowedMimeTypes, mimeType) {
		return nil, api.NewError(api.KindInvalidInput,
			fmt.Sprintf("File type %q is not allowed for %s uploads", mimeType, req.Type), nil)
	}

	if ext == "" {
		return nil, api.NewError(api.KindInvalidInput, "Filename must have an extension", nil)
	}

	key := StorageKey(userID, req.DraftID, req.Filename, constraint.Prefix, ext)

	url, fields, err := service.store.PresignUpload(ctx, objectstore.UploadPolicy{
		Bucket:      objectstore.BucketIncoming,
		Key:         key,
		ContentType: mimeType,
		MaxSize:     constraint.MaxSize,
		Expires:     time.Duration(service.config.ValidationWindowHours) * time.Hour,
	})
	if err != nil {
		return nil, api.NewError(api.KindInternal, "Failed to generate upload signature", Error.Wrap(err))
	}

	service.log.Debug("presigned upload",
		zap.String("user_id", userID),
		zap.String("key", key),
		zap.String("content_type", mimeType))

	return &PresignResponse{UploadURL: url, FormData: fields, Key: key}, nil
}

// StorageKey builds the object key YYYY/MM/DD/userID/draftID/prefix/hash.ext.
// The user id segment is what ownership checks verify at listing creation.
func StorageKey(userID, draftID, filename, prefix, ext string) string {
	now := time.Now().UTC()
	datePrefix := fmt.Sprintf("%d/%02d/%02d", now.Year(), now.Month(), now.Day())
	return path.Join(datePrefix, userID, draftID, prefix, hashFilename(filename)+ext)
}

func hashFilename(filename string) string {
	sum := sha256.Sum256([]byte(filename))
	return fmt.Sprintf("%x", sum)
}
