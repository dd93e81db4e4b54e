package ingestion

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"inboxhook/internal/config"
	"inboxhook/internal/normalizer"
	"inboxhook/pkg/models"
)

func testPlatforms() config.PlatformsConfig {
	return config.PlatformsConfig{
		Instagram: config.PlatformConfig{AccessToken: "ig-access", AccountID: "IG_ACCOUNT"},
	}
}

func TestBuildMessage(t *testing.T) {
	withAttachment := inbound("m3", "U2", "")
	withAttachment.Data.Attachments = []models.Attachment{{Type: "image", URL: "https://cdn/x.jpg"}}

	tests := []struct {
		name      string
		platform  string
		event     normalizer.WebhookEvent
		accountID string
		want      models.StoredMessage
	}{
		{
			name:     "facebook inbound",
			platform: "facebook",
			event:    inbound("m1", "U1", "hi"),
			want: models.StoredMessage{
				ID: "m1", ConversationID: "U1", SenderID: "U1", Text: "hi",
				Timestamp: 1700000000000, Platform: "facebook",
			},
		},
		{
			name:     "facebook echo is filed under the recipient",
			platform: "facebook",
			event:    echo("m2", "U1", "hello"),
			want: models.StoredMessage{
				ID: "m2", ConversationID: "U1", SenderID: "business", Text: "hello",
				Timestamp: 1700000000001, IsFromMe: true, Platform: "facebook",
			},
		},
		{
			name:      "facebook ignores account id",
			platform:  "facebook",
			event:     inbound("m1", "PAGE", "hi"),
			accountID: "PAGE",
			want: models.StoredMessage{
				ID: "m1", ConversationID: "PAGE", SenderID: "PAGE", Text: "hi",
				Timestamp: 1700000000000, Platform: "facebook",
			},
		},
		{
			name:     "instagram inbound",
			platform: "instagram",
			event:    inbound("m1", "U1", "hi"),
			want: models.StoredMessage{
				ID: "m1", ConversationID: "U1", SenderID: "U1", Text: "hi",
				Timestamp: 1700000000000, Platform: "instagram",
			},
		},
		{
			name:     "instagram echo",
			platform: "instagram",
			event:    echo("m2", "U1", "yo"),
			want: models.StoredMessage{
				ID: "m2", ConversationID: "U1", SenderID: "business", Text: "yo",
				Timestamp: 1700000000001, IsFromMe: true, Platform: "instagram",
			},
		},
		{
			name:      "instagram sender equal to account",
			platform:  "instagram",
			event:     inbound("m4", "IG_ACCOUNT", "from app"),
			accountID: "IG_ACCOUNT",
			want: models.StoredMessage{
				ID: "m4", ConversationID: "IG_ACCOUNT", SenderID: "business", Text: "from app",
				Timestamp: 1700000000000, IsFromMe: true, Platform: "instagram",
			},
		},
		{
			name:     "attachments are copied and text stays empty",
			platform: "instagram",
			event:    withAttachment,
			want: models.StoredMessage{
				ID: "m3", ConversationID: "U2", SenderID: "U2", Text: "",
				Timestamp:   1700000000000,
				Attachments: []models.Attachment{{Type: "image", URL: "https://cdn/x.jpg"}},
				Platform:    "instagram",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BuildMessage(tt.platform, tt.event, tt.accountID)
			assert.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildMessage_RejectsNonMessages(t *testing.T) {
	_, ok := BuildMessage("facebook", normalizer.WebhookEvent{Type: normalizer.TypeComments}, "")
	assert.False(t, ok)

	_, ok = BuildMessage("facebook", normalizer.WebhookEvent{Type: normalizer.TypeMessages}, "")
	assert.False(t, ok, "message id is required")

	_, ok = BuildMessage("tiktok", inbound("m1", "U1", "hi"), "")
	assert.False(t, ok)
}
