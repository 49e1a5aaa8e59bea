// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package eventbus_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeebo/errs"

	"storj.io/marketplace/internal/testcontext"
	"storj.io/marketplace/pkg/eventbus"
)

func TestTestBus_PublishRecords(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	bus := eventbus.NewTestBus()

	require.NoError(t, bus.Publish(ctx, "validation.image.start", []byte(`{"a":1}`), "id-1"))
	require.NoError(t, bus.Publish(ctx, "listings.index", []byte(`{"b":2}`), "id-2"))

	published := bus.Published()
	require.Len(t, published, 2)
	assert.Equal(t, "validation.image.start", published[0].Subject)
	assert.Equal(t, "id-1", published[0].MsgID)
	assert.Equal(t, "listings.index", published[1].Subject)

	require.NoError(t, bus.Drain())
	assert.Error(t, bus.Publish(ctx, "listings.index", nil, "id-3"))
}

func TestTestBus_DeliverRoutesToHandler(t *testing.T) {
	ctx := testcontext.New(t)
	defer ctx.Cleanup()

	bus := eventbus.NewTestBus()

	var got []byte
	sub, err := bus.Subscribe("listings.index", "listings-worker",
		func(ctx context.Context, payload []byte) error {
			got = payload
			return nil
		})
	require.NoError(t, err)

	require.NoError(t, bus.Deliver(ctx, "listings.index", []byte(`{"listing_id":"x"}`)))
	assert.Equal(t, `{"listing_id":"x"}`, string(got))

	// Handler errors surface so redelivery decisions are testable.
	_, err = bus.Subscribe("listings.index", "listings-worker",
		func(ctx context.Context, payload []byte) error {
			return errs.New("transient")
		})
	require.NoError(t, err)
	assert.Error(t, bus.Deliver(ctx, "listings.index", nil))

	require.NoError(t, sub.Unsubscribe())
	assert.Error(t, bus.Deliver(ctx, "listings.index", nil))
}
