package models

import (
	"time"

	"github.com/google/uuid"
)

// EnvelopeBuilder wraps a stored message for a Kafka topic.
type EnvelopeBuilder struct {
	env MessageEnvelope
}

// NewEnvelope starts an envelope for msg, published by source.
func NewEnvelope(source string, msg StoredMessage) *EnvelopeBuilder {
	return &EnvelopeBuilder{env: MessageEnvelope{Source: source, Message: msg}}
}

// WithCorrelation copies the trace and request IDs of the call that stored
// the message. Empty values are left out of the JSON.
func (b *EnvelopeBuilder) WithCorrelation(traceID, requestID string) *EnvelopeBuilder {
	b.env.Metadata.TraceID = traceID
	b.env.Metadata.RequestID = requestID
	return b
}

func (b *EnvelopeBuilder) Inserted(inserted bool) *EnvelopeBuilder {
	b.env.Metadata.Inserted = inserted
	return b
}

func (b *EnvelopeBuilder) At(ts time.Time) *EnvelopeBuilder {
	b.env.Timestamp = ts.UTC()
	return b
}

// Build fills in a random ID and the current time when unset and validates
// the result.
func (b *EnvelopeBuilder) Build() (MessageEnvelope, error) {
	env := b.env
	if env.ID == "" {
		env.ID = uuid.NewString()
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now().UTC()
	}
	if err := ValidateMessageEnvelope(&env); err != nil {
		return MessageEnvelope{}, err
	}
	return env, nil
}
