package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateStoredMessage(t *testing.T) {
	tests := []struct {
		name      string
		msg       *StoredMessage
		wantField string
	}{
		{name: "nil", msg: nil, wantField: "message"},
		{name: "missing id", msg: &StoredMessage{ConversationID: "c"}, wantField: "id"},
		{name: "missing conversation", msg: &StoredMessage{ID: "m"}, wantField: "conversationId"},
		{
			name:      "attachment without url",
			msg:       &StoredMessage{ID: "m", ConversationID: "c", Attachments: []Attachment{{Type: "image"}}},
			wantField: "attachments[0].url",
		},
		{name: "valid without text", msg: &StoredMessage{ID: "m", ConversationID: "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStoredMessage(tt.msg)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var vErr *ValidationError
			require.True(t, errors.As(err, &vErr))
			assert.Equal(t, tt.wantField, vErr.Field)
		})
	}
}

func TestEnvelopeBuilder(t *testing.T) {
	msg := StoredMessage{ID: "m1", ConversationID: "c1"}

	env, err := NewEnvelope("webhook", msg).
		WithCorrelation("t1", "").
		Inserted(true).
		Build()
	require.NoError(t, err)

	assert.NotEmpty(t, env.ID)
	assert.False(t, env.Timestamp.IsZero())
	assert.Equal(t, "t1", env.Metadata.TraceID)
	assert.Empty(t, env.Metadata.RequestID)
	assert.True(t, env.Metadata.Inserted)

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	env, err = NewEnvelope("backfill", msg).At(at).Build()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, env.Timestamp.Location())
	assert.True(t, at.Equal(env.Timestamp))

	_, err = NewEnvelope("", msg).Build()
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "source", vErr.Field)

	_, err = NewEnvelope("webhook", StoredMessage{ID: "m2"}).Build()
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "conversationId", vErr.Field)
}
