package broker

import (
	"context"

	"inboxhook/pkg/models"
)

// Producer publishes envelopes keyed by conversation ID, so one
// conversation's messages stay on one partition in order.
type Producer interface {
	Publish(ctx context.Context, topic string, env models.MessageEnvelope) error
	Close() error
}

// Consumer reads a topic and commits each offset only after the handler has
// dealt with it. A message the handler keeps failing on is parked on the
// dead letter topic and then committed.
type Consumer interface {
	Consume(ctx context.Context, topic string, handler HandlerFunc) error
	Close() error
	SetServiceName(name string)
}

type HandlerFunc func(ctx context.Context, env models.MessageEnvelope) error
