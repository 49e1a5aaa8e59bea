// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

package eventbus

import (
	"context"
	"os"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

var _ Bus = (*NATS)(nil)

// NATS is the JetStream-backed bus used in production.
type NATS struct {
	log      *zap.Logger
	conn     *nats.Conn
	js       nats.JetStreamContext
	draining atomic.Bool
}

// Dial connects to the broker. clientName shows up on the server side and
// makes connection debugging bearable.
func Dial(log *zap.Logger, config Config, clientName string) (*NATS, error) {
	bus := &NATS{log: log}

	conn, err := nats.Connect(config.Endpoint,
		nats.Name(clientName),

		// Reconnect forever; the broker going away must not take the
		// service with it.
		nats.MaxReconnects(-1),
		nats.ReconnectWait(3*time.Second),

		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn("nats disconnected, buffering messages", zap.Error(err))
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", conn.ConnectedUrl()))
		}),

		// A permanently closed connection outside of shutdown means
		// reconnects ran out or auth is broken; exit and let the
		// orchestrator restart us.
		nats.ClosedHandler(func(_ *nats.Conn) {
			if bus.draining.Load() {
				return
			}
			log.Error("nats connection closed permanently, exiting")
			os.Exit(1)
		}),
	)
	if err != nil {
		return nil, Error.Wrap(err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, Error.Wrap(err)
	}

	bus.conn, bus.js = conn, js
	return bus, nil
}

// Publish sends payload on subject through JetStream. The broker drops
// duplicate msgIDs inside its deduplication window.
func (bus *NATS) Publish(ctx context.Context, subject string, payload []byte, msgID string) (err error) {
	defer mon.Task()(&ctx)(&err)

	bus.log.Debug("publishing event",
		zap.String("subject", subject),
		zap.String("msg_id", msgID),
		zap.Int("size", len(payload)))

	_, err = bus.js.Publish(subject, payload, nats.MsgId(msgID), nats.Context(ctx))
	return Error.Wrap(err)
}

// Subscribe binds handler to subject within a queue group. Each message runs
// under its own 30 second context so a stuck handler cannot wedge the
// consumer; handler errors nack the message for redelivery.
func (bus *NATS) Subscribe(subject, group string, handler Handler) (Subscription, error) {
	bus.log.Info("subscribing", zap.String("subject", subject), zap.String("group", group))

	sub, err := bus.js.QueueSubscribe(subject, group, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := handler(ctx, msg.Data); err != nil {
			bus.log.Error("handler failed, nacking message",
				zap.String("subject", subject), zap.Error(err))
			_ = msg.Nak()
			return
		}
		if err := msg.Ack(); err != nil {
			bus.log.Error("failed to ack message",
				zap.String("subject", subject), zap.Error(err))
		}
	},
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.DeliverAll(),
		nats.MaxAckPending(10),
	)
	if err != nil {
		return nil, Error.New("subscribe to %q failed: %w", subject, err)
	}

	return natsSubscription{sub: sub}, nil
}

// Drain flushes pending messages and closes the connection.
func (bus *NATS) Drain() error {
	bus.log.Info("draining nats connection")
	bus.draining.Store(true)
	return Error.Wrap(bus.conn.Drain())
}

type natsSubscription struct {
	sub *nats.Subscription
}

func (s natsSubscription) Unsubscribe() error {
	return Error.Wrap(s.sub.Unsubscribe())
}
