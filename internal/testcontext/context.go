// Copyright (C) 2025 Storj Labs, Inc.
// See LICENSE for copying information.

// Package testcontext provides a context with deadline and an errgroup for
// coordinating goroutines spawned from tests.
package testcontext

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultTimeout = 30 * time.Second

// Context is a context for testing.
type Context struct {
	context.Context
	group  *errgroup.Group
	test   testing.TB
	cancel context.CancelFunc
}

// New creates a new test context with a default timeout.
func New(test testing.TB) *Context {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	group, ctx := errgroup.WithContext(ctx)
	return &Context{
		Context: ctx,
		group:   group,
		test:    test,
		cancel:  cancel,
	}
}

// Go runs fn in a goroutine. Call Wait to check the result.
func (ctx *Context) Go(fn func() error) {
	ctx.test.Helper()
	ctx.group.Go(fn)
}

// Check calls fn and fails the test on error.
func (ctx *Context) Check(fn func() error) {
	ctx.test.Helper()
	if err := fn(); err != nil {
		ctx.test.Fatal(err)
	}
}

// Wait blocks until all goroutines have finished and fails the test if any
// of them returned an error.
func (ctx *Context) Wait() {
	ctx.test.Helper()
	if err := ctx.group.Wait(); err != nil {
		ctx.test.Fatal(err)
	}
}

// Cleanup waits for goroutines and releases the context.
func (ctx *Context) Cleanup() {
	ctx.test.Helper()
	defer ctx.cancel()
	if err := ctx.group.Wait(); err != nil {
		ctx.test.Fatal(err)
	}
}
