package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func ok(context.Context) error   { return nil }
func fail(context.Context) error { return errors.New("down") }

func TestRegistry_Check(t *testing.T) {
	tests := []struct {
		name     string
		critical func(context.Context) error
		optional func(context.Context) error
		want     Status
	}{
		{name: "all healthy", critical: ok, optional: ok, want: StatusHealthy},
		{name: "optional down", critical: ok, optional: fail, want: StatusDegraded},
		{name: "critical down", critical: fail, optional: ok, want: StatusUnhealthy},
		{name: "both down", critical: fail, optional: fail, want: StatusUnhealthy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			r.Register(NewCheckFunc("store", tt.critical))
			r.RegisterOptional(NewCheckFunc("kafka", tt.optional))

			h := r.Check(context.Background())

			assert.Equal(t, tt.want, h.Status)
			assert.Len(t, h.Checks, 2)
		})
	}
}

func TestRegistry_Empty(t *testing.T) {
	h := NewRegistry().Check(context.Background())
	assert.Equal(t, StatusHealthy, h.Status)
}
