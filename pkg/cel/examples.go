package cel

import (
	"fmt"
	"strings"
)

// SkipExpressionExamples are ready-made values for ingestion.skip_expression.
// Each matches the events that should be normalized but not stored.
var SkipExpressionExamples = map[string]string{
	"echoes_only":          `event.type == "message_echoes"`,
	"single_platform":      `event.platform == "instagram"`,
	"empty_text":           `event.data.message == "" && !event.data.hasAttachments`,
	"blocked_user":         `event.userId in ["1234567890", "9876543210"]`,
	"before_cutover":       `event.timestamp < 1700000000000`,
	"keyword":              `event.data.message.contains("unsubscribe")`,
	"attachments_only":     `event.data.hasAttachments && event.data.message == ""`,
	"combined_conditions":  `event.platform == "facebook" && event.type == "message_echoes" && event.data.message == ""`,
	"has_recipient":        `has(event.data.recipientId) && event.data.recipientId != ""`,
	"case_insensitive_ask": `event.data.message.lowerAscii().startsWith("test:")`,
}

// ExpandPreset resolves "@name" to the matching entry in
// SkipExpressionExamples. Anything else is returned unchanged.
func ExpandPreset(value string) (string, error) {
	name, ok := strings.CutPrefix(value, "@")
	if !ok {
		return value, nil
	}
	expr, found := SkipExpressionExamples[name]
	if !found {
		return "", fmt.Errorf("unknown skip expression preset %q", name)
	}
	return expr, nil
}
