package eventstore

import (
	"context"
	"fmt"

	"github.com/sony/gobreaker"

	"inboxhook/internal/config"
	"inboxhook/pkg/circuitbreaker"
	pkgerrors "inboxhook/pkg/errors"
	"inboxhook/pkg/models"
)

// CircuitBreakerStore stops calling a failing backend for a while. Only
// STORE_UNAVAILABLE errors count as failures; a rejected message does not trip
// the breaker.
type CircuitBreakerStore struct {
	store Store
	cb    *circuitbreaker.Wrapper
}

func NewCircuitBreakerStore(store Store, name string, cfg config.CircuitBreakerConfig) *CircuitBreakerStore {
	cbConfig := circuitbreaker.DefaultConfig(name)
	if cfg.MaxRequests > 0 {
		cbConfig.MaxRequests = cfg.MaxRequests
	}
	if cfg.Interval > 0 {
		cbConfig.Interval = cfg.Interval
	}
	if cfg.Timeout > 0 {
		cbConfig.Timeout = cfg.Timeout
	}
	if cfg.FailureRatio > 0 && cfg.MinRequests > 0 {
		cbConfig.ReadyToTrip = circuitbreaker.TripOnFailureRatio(cfg.MinRequests, cfg.FailureRatio)
	}
	cbConfig.IsSuccessful = func(err error) bool {
		return err == nil || !pkgerrors.IsStoreUnavailable(err)
	}

	return &CircuitBreakerStore{
		store: store,
		cb:    circuitbreaker.NewWrapper(cbConfig),
	}
}

func (s *CircuitBreakerStore) Append(ctx context.Context, msg models.StoredMessage) (bool, error) {
	result, err := s.cb.Execute(ctx, func() (interface{}, error) {
		return s.store.Append(ctx, msg)
	})
	if err != nil {
		return false, s.wrap("append", err)
	}
	return result.(bool), nil
}

func (s *CircuitBreakerStore) ListAll(ctx context.Context) (Snapshot, error) {
	result, err := s.cb.Execute(ctx, func() (interface{}, error) {
		return s.store.ListAll(ctx)
	})
	if err != nil {
		return Snapshot{}, s.wrap("list_all", err)
	}
	return result.(Snapshot), nil
}

func (s *CircuitBreakerStore) ListByConversation(ctx context.Context, conversationID string) ([]models.StoredMessage, error) {
	result, err := s.cb.Execute(ctx, func() (interface{}, error) {
		return s.store.ListByConversation(ctx, conversationID)
	})
	if err != nil {
		return nil, s.wrap("list_by_conversation", err)
	}
	return result.([]models.StoredMessage), nil
}

func (s *CircuitBreakerStore) Clear(ctx context.Context) error {
	_, err := s.cb.Execute(ctx, func() (interface{}, error) {
		return nil, s.store.Clear(ctx)
	})
	if err != nil {
		return s.wrap("clear", err)
	}
	return nil
}

func (s *CircuitBreakerStore) State() string {
	return s.cb.State().String()
}

// wrap turns breaker rejections into STORE_UNAVAILABLE so callers see one
// error kind for "cannot reach the store".
func (s *CircuitBreakerStore) wrap(op string, err error) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return unavailable(op, fmt.Errorf("circuit breaker %s: %w", s.cb.Name(), err))
	}
	return err
}
