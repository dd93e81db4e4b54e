package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inboxhook/internal/config"
	"inboxhook/internal/logger"
)

func TestFactory_Disabled(t *testing.T) {
	_, err := NewProducer(config.BrokerConfig{}, logger.NopLogger())
	assert.ErrorIs(t, err, ErrDisabled)

	_, err = NewConsumer(config.BrokerConfig{}, logger.NopLogger())
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestFactory_Enabled(t *testing.T) {
	cfg := config.BrokerConfig{
		Enabled: true,
		Kafka:   config.KafkaConfig{Brokers: []string{"localhost:9092"}, DLQTopic: "inbox.dlq"},
	}

	p, err := NewProducer(cfg, logger.NopLogger())
	require.NoError(t, err)
	assert.NoError(t, p.Close())

	c, err := NewConsumer(cfg, logger.NopLogger())
	require.NoError(t, err)
	kc := c.(*KafkaConsumer)
	assert.NotNil(t, kc.dlqProducer)
	assert.NoError(t, c.Close())
}

func TestKafkaConsumer_RetryPolicy(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.RetryConfig
		want func(t *testing.T, c *KafkaConsumer)
	}{
		{
			name: "defaults",
			cfg:  config.RetryConfig{},
			want: func(t *testing.T, c *KafkaConsumer) {
				p := c.retryPolicy()
				assert.Equal(t, 3, p.MaxAttempts)
				assert.Equal(t, time.Second, p.InitialInterval)
				assert.Equal(t, 30*time.Second, p.MaxInterval)
			},
		},
		{
			name: "overrides",
			cfg: config.RetryConfig{
				MaxAttempts:     5,
				InitialInterval: 10 * time.Millisecond,
				MaxInterval:     time.Second,
				Multiplier:      3,
				MaxElapsedTime:  time.Minute,
			},
			want: func(t *testing.T, c *KafkaConsumer) {
				p := c.retryPolicy()
				assert.Equal(t, 5, p.MaxAttempts)
				assert.Equal(t, 10*time.Millisecond, p.InitialInterval)
				assert.Equal(t, 3.0, p.Multiplier)
				assert.Equal(t, time.Minute, p.MaxElapsedTime)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewKafkaConsumer(config.KafkaConfig{Retry: tt.cfg}, logger.NopLogger())
			tt.want(t, c)
		})
	}
}
