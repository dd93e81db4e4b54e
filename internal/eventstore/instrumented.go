package eventstore

import (
	"context"
	"time"

	"inboxhook/pkg/metrics"
	"inboxhook/pkg/models"
)

type instrumentedStore struct {
	store   Store
	backend string
}

// WithMetrics records count and latency of every call under backend.
func WithMetrics(store Store, backend string) Store {
	return &instrumentedStore{store: store, backend: backend}
}

func (s *instrumentedStore) Append(ctx context.Context, msg models.StoredMessage) (bool, error) {
	start := time.Now()
	inserted, err := s.store.Append(ctx, msg)
	metrics.ObserveStoreOperation(s.backend, "append", err, time.Since(start))
	return inserted, err
}

func (s *instrumentedStore) ListAll(ctx context.Context) (Snapshot, error) {
	start := time.Now()
	snap, err := s.store.ListAll(ctx)
	metrics.ObserveStoreOperation(s.backend, "list_all", err, time.Since(start))
	return snap, err
}

func (s *instrumentedStore) ListByConversation(ctx context.Context, conversationID string) ([]models.StoredMessage, error) {
	start := time.Now()
	msgs, err := s.store.ListByConversation(ctx, conversationID)
	metrics.ObserveStoreOperation(s.backend, "list_by_conversation", err, time.Since(start))
	return msgs, err
}

func (s *instrumentedStore) Clear(ctx context.Context) error {
	start := time.Now()
	err := s.store.Clear(ctx)
	metrics.ObserveStoreOperation(s.backend, "clear", err, time.Since(start))
	return err
}
