// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package indexer

import (
	"context"
	"sync"
)

// Memory is a thread-safe in-memory Indexer for tests.
type Memory struct {
	mu          sync.Mutex
	collections map[string]map[string]any

	// FailUpserts simulates a search engine outage.
	FailUpserts bool
}

var _ Indexer = (*Memory)(nil)

// NewMemory returns an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]any)}
}

func documentID(document any) (string, bool) {
	doc, ok := document.(map[string]any)
	if !ok {
		return "", false
	}
	id, ok := doc["id"].(string)
	return id, ok
}

// Upsert stores the document under its "id" field.
func (m *Memory) Upsert(ctx context.Context, collection string, document any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailUpserts {
		return Error.New("simulated upsert failure")
	}

	id, ok := documentID(document)
	if !ok {
		return Error.New("document has no string id field")
	}

	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]any)
		m.collections[collection] = docs
	}
	docs[id] = document
	return nil
}

// Delete removes a document by id.
func (m *Memory) Delete(ctx context.Context, collection string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.collections[collection], id)
	return nil
}

// Get retrieves a document by id.
func (m *Memory) Get(ctx context.Context, collection string, id string) (any, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.collections[collection][id]
	return doc, ok, nil
}

// Count returns the number of documents in a collection.
func (m *Memory) Count(ctx context.Context, collection string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return int64(len(m.collections[collection])), nil
}

// HealthCheck always succeeds.
func (m *Memory) HealthCheck(ctx context.Context) error { return nil }

// Close is a no-op.
func (m *Memory) Close() error { return nil }
