package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"inboxhook/internal/broker"
	"inboxhook/internal/config"
	"inboxhook/internal/logger"
)

type closer struct {
	name string
	fn   func(ctx context.Context) error
}

// Base holds what every entrypoint shares: config, logger, the optional Kafka
// clients and the resources to release on shutdown.
type Base struct {
	Config   *config.Config
	Logger   logger.Logger
	Producer broker.Producer
	Consumer broker.Consumer

	closers []closer
}

func NewBase(cfg *config.Config, log logger.Logger) *Base {
	return &Base{
		Config: cfg,
		Logger: log,
	}
}

// OnShutdown registers fn to be called by Shutdown. Closers run last-in
// first-out, so a resource is released before the ones it was built on.
func (b *Base) OnShutdown(name string, fn func(ctx context.Context) error) {
	b.closers = append(b.closers, closer{name: name, fn: fn})
}

// InitBroker connects the Kafka producer and consumer. With the broker
// disabled both stay nil and nil is returned.
func (b *Base) InitBroker(serviceName string) error {
	producer, err := broker.NewProducer(b.Config.Broker, b.Logger)
	if errors.Is(err, broker.ErrDisabled) {
		b.Logger.Infow("Broker disabled, sink and backfill are off")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to create producer: %w", err)
	}

	consumer, err := broker.NewConsumer(b.Config.Broker, b.Logger)
	if err != nil {
		producer.Close()
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	if serviceName != "" {
		consumer.SetServiceName(serviceName)
	}

	b.Producer = producer
	b.Consumer = consumer

	b.OnShutdown("kafka producer", func(context.Context) error { return producer.Close() })
	b.OnShutdown("kafka consumer", func(context.Context) error { return consumer.Close() })
	return nil
}

// Shutdown runs every registered closer once, even when some fail, and
// reports the failures together.
func (b *Base) Shutdown(ctx context.Context) error {
	b.Logger.InfowCtx(ctx, "Shutting down application...")

	closers := b.closers
	b.closers = nil

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		c := closers[i]
		if err := c.fn(ctx); err != nil {
			b.Logger.WarnwCtx(ctx, "Shutdown step failed", "step", c.name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %w", errors.Join(errs...))
	}

	b.Logger.InfowCtx(ctx, "Application exited successfully")
	return nil
}
