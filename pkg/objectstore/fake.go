// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package objectstore

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"
)

// Fake is an in-memory Provider for tests.
type Fake struct {
	mu      sync.Mutex
	objects map[string][]byte

	// SignedPolicies records every PresignUpload call.
	SignedPolicies []UploadPolicy
}

var _ Provider = (*Fake)(nil)

// NewFake returns an empty in-memory store.
func NewFake() *Fake {
	return &Fake{objects: make(map[string][]byte)}
}

func objectKey(bucket Bucket, key string) string {
	return string(bucket) + "/" + key
}

// Put stores an object directly, bypassing upload policies.
func (fake *Fake) Put(bucket Bucket, key string, data []byte) {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	fake.objects[objectKey(bucket, key)] = data
}

// PresignUpload records the policy and returns a deterministic fake URL.
func (fake *Fake) PresignUpload(ctx context.Context, policy UploadPolicy) (string, map[string]string, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	fake.SignedPolicies = append(fake.SignedPolicies, policy)
	fields := map[string]string{
		"key":          policy.Key,
		"Content-Type": policy.ContentType,
	}
	return "http://fake-store/" + string(policy.Bucket), fields, nil
}

// PresignGet returns a deterministic fake URL for existing objects.
func (fake *Fake) PresignGet(ctx context.Context, bucket Bucket, key string, expiry time.Duration) (string, error) {
	return "http://fake-store/" + string(bucket) + "/" + key + "?signed=true", nil
}

// Copy duplicates an object between buckets.
func (fake *Fake) Copy(ctx context.Context, srcBucket Bucket, srcKey string, dstBucket Bucket, dstKey string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	data, ok := fake.objects[objectKey(srcBucket, srcKey)]
	if !ok {
		return ErrNotFound
	}
	fake.objects[objectKey(dstBucket, dstKey)] = data
	return nil
}

// Delete removes an object.
func (fake *Fake) Delete(ctx context.Context, bucket Bucket, key string) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	delete(fake.objects, objectKey(bucket, key))
	return nil
}

// Get returns a reader over the stored object.
func (fake *Fake) Get(ctx context.Context, bucket Bucket, key string) (io.ReadCloser, error) {
	fake.mu.Lock()
	defer fake.mu.Unlock()

	data, ok := fake.objects[objectKey(bucket, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
