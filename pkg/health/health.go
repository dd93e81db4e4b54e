package health

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

const checkTimeout = 5 * time.Second

type Checker interface {
	Check(ctx context.Context) error
	Name() string
}

type Health struct {
	Status    Status                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks"`
}

type CheckResult struct {
	Status    Status    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type registered struct {
	checker  Checker
	critical bool
}

// Registry runs checks. A failing critical check makes the whole service
// unhealthy; a failing optional one (e.g. the Kafka sink) only degrades it.
type Registry struct {
	checks []registered
}

func NewRegistry() *Registry {
	return &Registry{}
}

func (r *Registry) Register(checker Checker) {
	r.checks = append(r.checks, registered{checker: checker, critical: true})
}

func (r *Registry) RegisterOptional(checker Checker) {
	r.checks = append(r.checks, registered{checker: checker})
}

func (r *Registry) Check(ctx context.Context) Health {
	results := make(map[string]CheckResult, len(r.checks))
	overall := StatusHealthy

	for _, rc := range r.checks {
		result := CheckResult{Status: StatusHealthy, Timestamp: time.Now()}

		if err := rc.checker.Check(ctx); err != nil {
			result.Message = err.Error()
			if rc.critical {
				result.Status = StatusUnhealthy
				overall = StatusUnhealthy
			} else {
				result.Status = StatusDegraded
				if overall == StatusHealthy {
					overall = StatusDegraded
				}
			}
		}

		results[rc.checker.Name()] = result
	}

	return Health{
		Status:    overall,
		Timestamp: time.Now(),
		Checks:    results,
	}
}

// CheckFunc adapts a function to Checker.
type CheckFunc struct {
	name string
	fn   func(ctx context.Context) error
}

func NewCheckFunc(name string, fn func(ctx context.Context) error) CheckFunc {
	return CheckFunc{name: name, fn: fn}
}

func (c CheckFunc) Name() string { return c.name }

func (c CheckFunc) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	return c.fn(ctx)
}

func NewPostgreSQLChecker(db *sql.DB) CheckFunc {
	return NewCheckFunc("postgresql", func(ctx context.Context) error {
		if err := db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgresql ping failed: %w", err)
		}
		return nil
	})
}

func NewRedisChecker(client *redis.Client) CheckFunc {
	return NewCheckFunc("redis", func(ctx context.Context) error {
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis ping failed: %w", err)
		}
		return nil
	})
}

func NewMongoDBChecker(client *mongo.Client) CheckFunc {
	return NewCheckFunc("mongodb", func(ctx context.Context) error {
		if err := client.Ping(ctx, nil); err != nil {
			return fmt.Errorf("mongodb ping failed: %w", err)
		}
		return nil
	})
}
