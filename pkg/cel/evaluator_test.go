package cel

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvent() map[string]interface{} {
	return map[string]interface{}{
		"type":      "messages",
		"platform":  "instagram",
		"userId":    "U1",
		"timestamp": int64(1700000000000),
		"data": map[string]interface{}{
			"messageId":      "m1",
			"message":        "hi there",
			"senderId":       "U1",
			"recipientId":    "PAGE",
			"commentId":      "",
			"postId":         "",
			"hasAttachments": false,
		},
	}
}

func TestNewEvaluator(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)
	assert.NotNil(t, eval)
}

func TestValidateExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name      string
		expr      string
		wantError bool
	}{
		{
			name:      "valid simple expression",
			expr:      `event.type == "messages"`,
			wantError: false,
		},
		{
			name:      "valid numeric comparison",
			expr:      `event.timestamp > 0`,
			wantError: false,
		},
		{
			name:      "invalid expression",
			expr:      `invalid syntax here!!!`,
			wantError: true,
		},
		{
			name:      "undefined variable",
			expr:      `payload.status == "test"`,
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := eval.ValidateExpression(tt.expr)
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateFilterExpression(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	assert.NoError(t, eval.ValidateFilterExpression(`event.platform == "facebook"`))
	assert.Error(t, eval.ValidateFilterExpression(`"not a bool"`))
	assert.Error(t, eval.ValidateFilterExpression(`event.platform ==`))
}

func TestFilterMatches(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	tests := []struct {
		name string
		expr string
		want bool
	}{
		{"type match", `event.type == "messages"`, true},
		{"type mismatch", `event.type == "message_echoes"`, false},
		{"nested field", `event.data.message.contains("hi")`, true},
		{"numeric", `event.timestamp >= 1700000000000`, true},
		{"in list", `event.userId in ["U2", "U3"]`, false},
		{"bool field", `event.data.hasAttachments`, false},
		{"combined", `event.platform == "instagram" && event.data.recipientId == "PAGE"`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := eval.CompileFilter(tt.expr)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, f.Expression())

			got, err := f.Matches(context.Background(), sampleEvent())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFilterMatches_MissingKey(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	f, err := eval.CompileFilter(`event.data.reaction == "love"`)
	require.NoError(t, err)

	_, err = f.Matches(context.Background(), sampleEvent())
	assert.Error(t, err)
}

func TestSkipExpressionExamplesCompile(t *testing.T) {
	eval, err := NewEvaluator()
	require.NoError(t, err)

	for name, expr := range SkipExpressionExamples {
		t.Run(name, func(t *testing.T) {
			_, err := eval.CompileFilter(expr)
			assert.NoError(t, err)
		})
	}
}

func TestExpandPreset(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		want    string
		wantErr bool
	}{
		{name: "plain expression", value: `event.platform == "facebook"`, want: `event.platform == "facebook"`},
		{name: "preset", value: "@echoes_only", want: SkipExpressionExamples["echoes_only"]},
		{name: "unknown preset", value: "@nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPreset(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
