// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package indexer

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"storj.io/marketplace/pkg/eventbus"
	"storj.io/marketplace/pkg/events"
)

// QueueGroup shares the index subject between worker replicas.
const QueueGroup = "listings-worker"

// Reader binds the index subject to the service. Malformed payloads are
// acked here so they never reach the service.
type Reader struct {
	log     *zap.Logger
	bus     eventbus.Bus
	config  events.Config
	service *Service
}

// NewReader constructs a Reader.
func NewReader(log *zap.Logger, bus eventbus.Bus, config events.Config, service *Service) *Reader {
	return &Reader{log: log, bus: bus, config: config, service: service}
}

// Run subscribes to the index subject within the worker queue group.
func (reader *Reader) Run() (eventbus.Subscription, error) {
	subject := reader.config.IndexListing
	reader.log.Info("subscribing to index events", zap.String("subject", subject))

	return reader.bus.Subscribe(subject, QueueGroup, func(ctx context.Context, payload []byte) error {
		var event events.IndexListing
		if err := json.Unmarshal(payload, &event); err != nil {
			// Poison pill: ack, or it loops forever.
			reader.log.Error("discarding malformed index event",
				zap.String("subject", subject), zap.Error(err))
			return nil
		}
		return reader.service.IndexListing(ctx, event.ListingID)
	})
}
