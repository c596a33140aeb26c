// Package queue defines the message-queue contract the wranglers use to
// hand batches between pipeline stages, together with a SQLite-backed
// implementation.
//
// Semantics follow the FIFO-with-receipt model the orchestrator expects:
// messages within one group are received oldest first; a received message
// becomes invisible for a visibility window and is only removed once the
// consumer deletes it by receipt. A consumer that fails mid-run simply never
// deletes, and the message resurfaces after the window.
package queue

import (
	"context"
	"errors"
)

// ErrEmpty is returned by Receive when no visible message exists for the
// group. Callers translate this into a no-data failure for the run.
var ErrEmpty = errors.New("queue: no message available")

// Message is one queued batch notice. Body conventionally carries the
// row-oriented JSON payload or a pointer to the stored object.
type Message struct {
	ID      string
	GroupID string
	Body    []byte
	// Receipt authorizes deletion of this delivery. It changes on every
	// receive, so a stale consumer cannot delete a redelivered message.
	Receipt string
}

// Queue is the minimal contract the wranglers consume.
type Queue interface {
	// Send enqueues body for the group.
	Send(ctx context.Context, groupID string, body []byte) error
	// Receive returns the oldest visible message for the group, marking it
	// invisible for the configured visibility window.
	Receive(ctx context.Context, groupID string) (*Message, error)
	// Delete removes a received message by its receipt.
	Delete(ctx context.Context, receipt string) error
}
