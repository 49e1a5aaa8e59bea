// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package events_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storj.io/marketplace/internal/testcontext"
	"storj.io/marketplace/pkg/eventbus"
	"storj.io/marketplace/pkg/events"
)

func testConfig() events.Config {
	return events.Config{
		ValidateImageStart: "validation.image.start",
		ValidateModelStart: "validation.model.start",
		IndexListing:       "listings.index",
	}
}

func TestPublishFileValidation_RoutesByType(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	bus := eventbus.NewTestBus()
	publisher := events.NewPublisher(zaptest.NewLogger(t), bus, testConfig())

	require.NoError(t, publisher.PublishFileValidation(ctx, events.StartFileValidation{
		ListingID: "listing-1",
		UserID:    "user-1",
		FileID:    "file-1",
		FileKey:   "images/2026/01/02/user-1/draft-1/images/abc.png",
		FileType:  events.FileTypeImage,
	}))
	require.NoError(t, publisher.PublishFileValidation(ctx, events.StartFileValidation{
		ListingID: "listing-1",
		UserID:    "user-1",
		FileID:    "file-2",
		FileType:  events.FileTypeModel,
	}))

	published := bus.Published()
	require.Len(t, published, 2)

	assert.Equal(t, "validation.image.start", published[0].Subject)
	assert.Equal(t, "start.user-1.listing-1.file-1", published[0].MsgID)

	assert.Equal(t, "validation.model.start", published[1].Subject)
	assert.Equal(t, "start.user-1.listing-1.file-2", published[1].MsgID)

	var payload events.StartFileValidation
	require.NoError(t, json.Unmarshal(published[0].Payload, &payload))
	assert.Equal(t, "images/2026/01/02/user-1/draft-1/images/abc.png", payload.FileKey)
	assert.Equal(t, events.FileTypeImage, payload.FileType)
}

func TestPublishFileValidation_RejectsUnknownType(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	bus := eventbus.NewTestBus()
	publisher := events.NewPublisher(zaptest.NewLogger(t), bus, testConfig())

	err := publisher.PublishFileValidation(ctx, events.StartFileValidation{FileType: "archive"})
	assert.Error(t, err)
	assert.Empty(t, bus.Published())
}

func TestPublishReIndex(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	bus := eventbus.NewTestBus()
	publisher := events.NewPublisher(zaptest.NewLogger(t), bus, testConfig())

	require.NoError(t, publisher.PublishReIndex(ctx, events.ReIndexListing{
		ListingID: "listing-9",
		TraceID:   "trace-1",
	}))

	published := bus.Published()
	require.Len(t, published, 1)
	assert.Equal(t, "listings.index", published[0].Subject)

	var payload events.ReIndexListing
	require.NoError(t, json.Unmarshal(published[0].Payload, &payload))
	assert.Equal(t, "listing-9", payload.ListingID)
	assert.Equal(t, "trace-1", payload.TraceID)
}
