// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package objectstore abstracts the S3-compatible object store used for
// direct uploads and validated file hosting.
package objectstore

import (
	"context"
	"io"
	"time"

	"github.com/zeebo/errs"
)

var (
	// Error is the class of object store errors.
	Error = errs.Class("objectstore error")

	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errs.New("objectstore: key not found")

	// ErrAccessDenied is returned when the store rejects the credentials
	// or the key is outside the granted scope.
	ErrAccessDenied = errs.New("objectstore: access denied")
)

// Bucket names a logical storage zone. A dedicated type keeps callers from
// passing arbitrary strings.
type Bucket string

const (
	// BucketIncoming is private with a 24h retention policy; users upload
	// here directly via presigned POST.
	BucketIncoming Bucket = "incoming-files"

	// BucketPublic has public read; validated images and thumbnails are
	// hosted here permanently.
	BucketPublic Bucket = "public-files"

	// BucketProduct is private; validated model files are served from it
	// through short-lived signed URLs only.
	BucketProduct Bucket = "product-files"
)

// MinUploadSize rejects empty-file spam in presigned POST policies.
const MinUploadSize = 1024

// UploadPolicy scopes a presigned POST grant: exact bucket and key, a size
// window, an exact content type and an expiry.
type UploadPolicy struct {
	Bucket      Bucket
	Key         string
	ContentType string
	MaxSize     int64
	Expires     time.Duration
}

// Config holds the connection settings for the object store.
type Config struct {
	Endpoint string `help:"S3-compatible endpoint" default:"localhost:9000"`
	UseSSL   bool   `help:"use TLS when talking to the object store" default:"false"`
}

// Provider abstracts MinIO, AWS S3 or any compatible store.
type Provider interface {
	// PresignUpload returns the POST URL and the signed form fields the
	// client must send verbatim, with the file as the last field.
	PresignUpload(ctx context.Context, policy UploadPolicy) (url string, fields map[string]string, err error)

	// PresignGet returns a temporary download URL for a private bucket.
	PresignGet(ctx context.Context, bucket Bucket, key string, expiry time.Duration) (string, error)

	// Copy moves an object between buckets on the server side, without
	// the data passing through this process.
	Copy(ctx context.Context, srcBucket Bucket, srcKey string, dstBucket Bucket, dstKey string) error

	// Delete removes an object.
	Delete(ctx context.Context, bucket Bucket, key string) error

	// Get returns a streaming reader so workers can scan large files
	// without loading them into memory.
	Get(ctx context.Context, bucket Bucket, key string) (io.ReadCloser, error)
}
