// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package eventbus abstracts the message broker connecting the gateway to
// the validation and indexing workers.
package eventbus

import (
	"context"

	"github.com/zeebo/errs"
	monkit "gopkg.in/spacemonkeygo/monkit.v2"
)

var (
	mon = monkit.Package()

	// Error is the class of event bus errors.
	Error = errs.Class("eventbus error")
)

// Config holds the broker connection settings.
type Config struct {
	Endpoint string `help:"nats server endpoint" default:"nats://localhost:4222"`
}

// Handler processes one message payload. Returning an error requests
// redelivery.
type Handler func(ctx context.Context, payload []byte) error

// Subscription is an active consumer binding.
type Subscription interface {
	// Unsubscribe stops delivery to the handler.
	Unsubscribe() error
}

// Bus publishes and consumes durable messages.
type Bus interface {
	// Publish sends payload on subject. msgID deduplicates redundant
	// publishes of the same logical event on the broker side.
	Publish(ctx context.Context, subject string, payload []byte, msgID string) error

	// Subscribe delivers subject messages to handler. Subscribers sharing
	// a queue group split the messages between them.
	Subscribe(subject, group string, handler Handler) (Subscription, error)

	// Drain flushes buffered messages and closes the connection.
	Drain() error
}
