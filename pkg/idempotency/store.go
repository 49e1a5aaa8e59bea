// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package idempotency makes mutating endpoints safe to retry behind a
// client-supplied Idempotency-Key: one handler run per key, with the
// committed response replayed to every retry.
package idempotency

import (
	"context"
	"net/http"
	"time"

	"github.com/zeebo/errs"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"

	"storj.io/marketplace/pkg/cache"
)

var (
	mon = monkit.Package()

	// Error is the class of idempotency store errors.
	Error = errs.Class("idempotency error")
)

const (
	lockSuffix = ":lock"
	dataSuffix = ":data"

	// LockTTL bounds how long a key blocks while its first request runs.
	LockTTL = 10 * time.Second

	// DataTTL bounds how long a committed response is replayed.
	DataTTL = 7 * 24 * time.Hour
)

// Response is the captured handler output replayed to retries.
type Response struct {
	StatusCode int         `json:"status_code"`
	Headers    http.Header `json:"headers"`
	Body       []byte      `json:"body"`
}

// Store persists locks and committed responses in redis.
type Store struct {
	cache *cache.Client
}

// NewStore wraps a cache client.
func NewStore(cache *cache.Client) *Store {
	return &Store{cache: cache}
}

// Lock tries to acquire the per-key run slot. If a committed response
// already exists the lock is refused so the caller falls through to the
// replay path.
func (store *Store) Lock(ctx context.Context, key string) (_ bool, err error) {
	defer mon.Task()(&ctx)(&err)

	_, found, err := store.Response(ctx, key)
	if err != nil {
		return false, err
	}
	if found {
		return false, nil
	}
	ok, err := store.cache.SetNX(ctx, key+lockSuffix, "1", LockTTL)
	return ok, Error.Wrap(err)
}

// Response returns the committed response for key, if any.
func (store *Store) Response(ctx context.Context, key string) (_ *Response, found bool, err error) {
	defer mon.Task()(&ctx)(&err)

	var resp Response
	found, err = store.cache.GetJSON(ctx, key+dataSuffix, &resp)
	if err != nil || !found {
		return nil, false, Error.Wrap(err)
	}
	return &resp, true, nil
}

// Commit stores the response under the long TTL and releases the lock so
// waiting retries read the data instead of conflicting.
func (store *Store) Commit(ctx context.Context, key string, resp Response) (err error) {
	defer mon.Task()(&ctx)(&err)

	if err := store.cache.SetJSON(ctx, key+dataSuffix, resp, DataTTL); err != nil {
		return Error.Wrap(err)
	}
	// The data is committed; a failed lock delete only delays retries
	// until the lock TTL expires.
	_ = store.cache.Delete(ctx, key+lockSuffix)
	return nil
}

// Release drops the lock (and any stale data) so the next retry gets a
// fresh handler run.
func (store *Store) Release(ctx context.Context, key string) (err error) {
	defer mon.Task()(&ctx)(&err)

	return Error.Wrap(store.cache.Delete(ctx, key+lockSuffix, key+dataSuffix))
}
