// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package objectstore

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"
)

var mon = monkit.Package()

// Minio implements Provider against a MinIO or S3 endpoint.
type Minio struct {
	client *minio.Client
}

var _ Provider = (*Minio)(nil)

// NewMinio connects to the object store endpoint using static credentials.
func NewMinio(config Config, accessKeyID, secretAccessKey string) (*Minio, error) {
	client, err := minio.New(config.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKeyID, secretAccessKey, ""),
		Secure: config.UseSSL,
	})
	if err != nil {
		return nil, Error.Wrap(err)
	}
	return &Minio{client: client}, nil
}

// PresignUpload builds a POST policy constraining bucket, key, expiry, size
// window and content type, and returns its signed form.
func (m *Minio) PresignUpload(ctx context.Context, policy UploadPolicy) (_ string, _ map[string]string, err error) {
	defer mon.Task()(&ctx)(&err)

	post := minio.NewPostPolicy()
	if err := post.SetBucket(string(policy.Bucket)); err != nil {
		return "", nil, Error.Wrap(err)
	}
	if err := post.SetKey(policy.Key); err != nil {
		return "", nil, Error.Wrap(err)
	}
	if err := post.SetExpires(time.Now().Add(policy.Expires).UTC()); err != nil {
		return "", nil, Error.Wrap(err)
	}
	if err := post.SetContentLengthRange(MinUploadSize, policy.MaxSize); err != nil {
		return "", nil, Error.Wrap(err)
	}
	if err := post.SetContentType(policy.ContentType); err != nil {
		return "", nil, Error.Wrap(err)
	}

	url, fields, err := m.client.PresignedPostPolicy(ctx, post)
	if err != nil {
		return "", nil, Error.Wrap(err)
	}
	return url.String(), fields, nil
}

// PresignGet returns a temporary GET URL for a private object.
func (m *Minio) PresignGet(ctx context.Context, bucket Bucket, key string, expiry time.Duration) (_ string, err error) {
	defer mon.Task()(&ctx)(&err)

	url, err := m.client.PresignedGetObject(ctx, string(bucket), key, expiry, nil)
	if err != nil {
		return "", wrapMinioError(err)
	}
	return url.String(), nil
}

// Copy performs a server-side copy between buckets.
func (m *Minio) Copy(ctx context.Context, srcBucket Bucket, srcKey string, dstBucket Bucket, dstKey string) (err error) {
	defer mon.Task()(&ctx)(&err)

	_, err = m.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: string(dstBucket), Object: dstKey},
		minio.CopySrcOptions{Bucket: string(srcBucket), Object: srcKey},
	)
	return wrapMinioError(err)
}

// Delete removes an object.
func (m *Minio) Delete(ctx context.Context, bucket Bucket, key string) (err error) {
	defer mon.Task()(&ctx)(&err)

	err = m.client.RemoveObject(ctx, string(bucket), key, minio.RemoveObjectOptions{
		GovernanceBypass: true,
	})
	return wrapMinioError(err)
}

// Get returns the object stream. GetObject is lazy, so Stat confirms the
// key exists before the reader is handed out.
func (m *Minio) Get(ctx context.Context, bucket Bucket, key string) (_ io.ReadCloser, err error) {
	defer mon.Task()(&ctx)(&err)

	obj, err := m.client.GetObject(ctx, string(bucket), key, minio.GetObjectOptions{})
	if err != nil {
		return nil, wrapMinioError(err)
	}
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		return nil, wrapMinioError(err)
	}
	return obj, nil
}

// wrapMinioError translates SDK errors into the package's domain errors.
func wrapMinioError(err error) error {
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey":
		return ErrNotFound
	case "AccessDenied":
		return ErrAccessDenied
	}
	switch resp.StatusCode {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusForbidden:
		return ErrAccessDenied
	}
	return Error.Wrap(err)
}
