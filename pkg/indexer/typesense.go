// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package indexer

import (
	"context"
	"time"

	"github.com/typesense/typesense-go/typesense"
)

// Typesense implements Indexer against a Typesense server.
type Typesense struct {
	client *typesense.Client
}

var _ Indexer = (*Typesense)(nil)

// NewTypesense builds a client from config.
func NewTypesense(config Config) *Typesense {
	return &Typesense{
		client: typesense.NewClient(
			typesense.WithServer(config.URL),
			typesense.WithAPIKey(config.APIKey),
		),
	}
}

// Upsert adds or replaces a document.
func (t *Typesense) Upsert(ctx context.Context, collection string, document any) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = t.client.Collection(collection).Documents().Upsert(ctx, document)
	if err != nil {
		return Error.New("upsert failed: %w", err)
	}
	return nil
}

// Delete removes a document by id.
func (t *Typesense) Delete(ctx context.Context, collection string, id string) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = t.client.Collection(collection).Document(id).Delete(ctx)
	if err != nil {
		return Error.New("delete failed: %w", err)
	}
	return nil
}

// Get retrieves a document by id.
func (t *Typesense) Get(ctx context.Context, collection string, id string) (_ any, _ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	document, err := t.client.Collection(collection).Document(id).Retrieve(ctx)
	if err != nil {
		return nil, false, Error.New("get failed: %w", err)
	}
	return document, true, nil
}

// Count returns the number of documents in a collection.
func (t *Typesense) Count(ctx context.Context, collection string) (_ int64, err error) {
	defer mon.Task()(&ctx)(&err)

	resp, err := t.client.Collection(collection).Retrieve(ctx)
	if err != nil {
		return 0, Error.New("count failed: %w", err)
	}
	return *resp.NumDocuments, nil
}

// HealthCheck verifies the server responds and reports healthy.
func (t *Typesense) HealthCheck(ctx context.Context) error {
	healthy, err := t.client.Health(ctx, 5*time.Second)
	if err != nil {
		return Error.New("health check failed: %w", err)
	}
	if !healthy {
		return Error.New("typesense is unhealthy")
	}
	return nil
}

// Close is a no-op; the client holds no persistent connections.
func (t *Typesense) Close() error { return nil }
