// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package eventbus

import (
	"context"
	"sync"
)

// Message is a published event recorded by TestBus.
type Message struct {
	Subject string
	Payload []byte
	MsgID   string
}

// TestBus is an in-memory Bus for tests. Publishes are recorded and can be
// delivered to subscribers on demand.
type TestBus struct {
	mu        sync.Mutex
	published []Message
	handlers  map[string]Handler
	closed    bool
}

var _ Bus = (*TestBus)(nil)

// NewTestBus returns an empty in-memory bus.
func NewTestBus() *TestBus {
	return &TestBus{handlers: make(map[string]Handler)}
}

// Publish records the message.
func (bus *TestBus) Publish(ctx context.Context, subject string, payload []byte, msgID string) error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	if bus.closed {
		return Error.New("bus is closed")
	}
	bus.published = append(bus.published, Message{Subject: subject, Payload: payload, MsgID: msgID})
	return nil
}

// Subscribe registers handler for subject. Only one handler per subject is
// kept; queue-group semantics collapse to a single consumer in tests.
func (bus *TestBus) Subscribe(subject, group string, handler Handler) (Subscription, error) {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.handlers[subject] = handler
	return testSubscription{bus: bus, subject: subject}, nil
}

// Deliver invokes the subject's handler synchronously, returning the
// handler's error so tests can assert ack and nack decisions.
func (bus *TestBus) Deliver(ctx context.Context, subject string, payload []byte) error {
	bus.mu.Lock()
	handler, ok := bus.handlers[subject]
	bus.mu.Unlock()

	if !ok {
		return Error.New("no handler for subject %q", subject)
	}
	return handler(ctx, payload)
}

// Published returns a copy of all recorded messages.
func (bus *TestBus) Published() []Message {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	out := make([]Message, len(bus.published))
	copy(out, bus.published)
	return out
}

// Drain marks the bus closed.
func (bus *TestBus) Drain() error {
	bus.mu.Lock()
	defer bus.mu.Unlock()

	bus.closed = true
	return nil
}

type testSubscription struct {
	bus     *TestBus
	subject string
}

func (s testSubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	delete(s.bus.handlers, s.subject)
	return nil
}
