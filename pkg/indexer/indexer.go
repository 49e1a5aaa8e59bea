// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package indexer builds search documents from listings and keeps the
// search engine in sync with the database.
package indexer

import (
	"context"

	"github.com/zeebo/errs"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"
)

var (
	mon = monkit.Package()

	// Error is the class of indexer errors.
	Error = errs.Class("indexer error")
)

// Collection is the search collection holding one document per listing.
const Collection = "listings"

// Config holds the search engine connection settings.
type Config struct {
	URL    string `help:"typesense server URL" default:"http://localhost:8108"`
	APIKey string `help:"typesense API key" default:""`
}

// Indexer is the search engine contract. Narrow enough that the in-memory
// test double and Typesense both implement it.
type Indexer interface {
	// Upsert adds or replaces a document keyed by its "id" field.
	Upsert(ctx context.Context, collection string, document any) error

	// Delete removes a document by id.
	Delete(ctx context.Context, collection string, id string) error

	// Get retrieves a document by id.
	Get(ctx context.Context, collection string, id string) (any, bool, error)

	// Count returns the number of documents in a collection.
	Count(ctx context.Context, collection string) (int64, error)

	// HealthCheck reports whether the engine is reachable and healthy.
	HealthCheck(ctx context.Context) error

	// Close releases client resources.
	Close() error
}
