// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package events defines the marketplace event payloads and the publisher
// that routes them onto the bus.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zeebo/errs"
	"go.uber.org/zap"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/marketplace/pkg/eventbus"
)

var (
	mon = monkit.Package()

	// Error is the class of event publishing errors.
	Error = errs.Class("events error")
)

// File kinds carried in StartFileValidation.FileType.
const (
	FileTypeImage = "image"
	FileTypeModel = "model"
)

// StartFileValidation asks the validation workers to inspect an uploaded
// file. FileKey is the object location in storage.
type StartFileValidation struct {
	ListingID string `json:"listing_id"`
	UserID    string `json:"user_id"`
	TraceID   string `json:"trace_id"`
	FileID    string `json:"file_id"`
	FileKey   string `json:"file_key"`
	FileType  string `json:"file_type"`
}

// ReIndexListing asks the index worker to rebuild a listing's search
// document after an update.
type ReIndexListing struct {
	ListingID string `json:"listing_id"`
	TraceID   string `json:"trace_id"`
}

// IndexListing is consumed by the index worker once validation promotes a
// listing.
type IndexListing struct {
	ListingID string `json:"listing_id"`
}

// Config maps event kinds to broker subjects.
type Config struct {
	ValidateImageStart string `help:"subject for image validation requests" default:"validation.image.start"`
	ValidateModelStart string `help:"subject for model validation requests" default:"validation.model.start"`
	IndexListing       string `help:"subject for listing index requests" default:"listings.index"`
}

// Publisher serializes payloads and publishes them on the configured
// subjects.
type Publisher struct {
	log    *zap.Logger
	bus    eventbus.Bus
	config Config
}

// NewPublisher constructs a Publisher.
func NewPublisher(log *zap.Logger, bus eventbus.Bus, config Config) *Publisher {
	return &Publisher{log: log, bus: bus, config: config}
}

// PublishFileValidation routes the event by file type. The message id is
// derived from the identifiers so broker-side deduplication collapses
// repeated publishes of the same file.
func (publisher *Publisher) PublishFileValidation(ctx context.Context, event StartFileValidation) (err error) {
	defer mon.Task()(&ctx)(&err)

	var subject string
	switch event.FileType {
	case FileTypeImage:
		subject = publisher.config.ValidateImageStart
	case FileTypeModel:
		subject = publisher.config.ValidateModelStart
	default:
		return Error.New("unsupported file type: %s", event.FileType)
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return Error.Wrap(err)
	}

	publisher.log.Info("publishing file validation request",
		zap.String("listing_id", event.ListingID),
		zap.String("file_id", event.FileID),
		zap.String("file_type", event.FileType))

	msgID := fmt.Sprintf("start.%s.%s.%s", event.UserID, event.ListingID, event.FileID)
	return Error.Wrap(publisher.bus.Publish(ctx, subject, payload, msgID))
}

// PublishReIndex requests a fresh search document for an updated listing.
func (publisher *Publisher) PublishReIndex(ctx context.Context, event ReIndexListing) (err error) {
	defer mon.Task()(&ctx)(&err)

	payload, err := json.Marshal(event)
	if err != nil {
		return Error.Wrap(err)
	}

	publisher.log.Info("publishing reindex request", zap.String("listing_id", event.ListingID))

	return Error.Wrap(publisher.bus.Publish(ctx, publisher.config.IndexListing, payload, "reindex."+event.ListingID+"."+event.TraceID))
}
