package normalizer

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "inboxhook/pkg/errors"
	"inboxhook/pkg/models"
)

func mustParse(t *testing.T, body string) *Payload {
	t.Helper()
	p, err := Parse([]byte(body))
	require.NoError(t, err)
	return p
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte(`{"object": "page", "entry": `))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestValidateObject(t *testing.T) {
	tests := []struct {
		platform string
		object   string
		wantErr  bool
	}{
		{platform: "facebook", object: "page"},
		{platform: "instagram", object: "instagram"},
		{platform: "facebook", object: "instagram", wantErr: true},
		{platform: "instagram", object: "page", wantErr: true},
		{platform: "instagram", object: "", wantErr: true},
		{platform: "whatsapp", object: "whatsapp_business_account", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.platform+"/"+tt.object, func(t *testing.T) {
			err := ValidateObject(tt.platform, &Payload{Object: tt.object})
			if tt.wantErr {
				assert.True(t, pkgerrors.IsValidation(err))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNormalize_InstagramExample(t *testing.T) {
	body := `{"object":"instagram","entry":[{"messaging":[{"sender":{"id":"U1"},"recipient":{"id":"PAGE"},"timestamp":1700000000000,"message":{"mid":"m1","text":"hi"}}]}]}`

	events, err := Normalize("instagram", []byte(body))
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, TypeMessages, ev.Type)
	assert.Equal(t, "U1", ev.UserID)
	assert.Equal(t, int64(1700000000000), ev.Timestamp)
	assert.Equal(t, "m1", ev.Data.MessageID)
	assert.Equal(t, "hi", ev.Data.Message)
	assert.Equal(t, "PAGE", ev.Data.RecipientID)
	assert.True(t, ev.IsMessageLike())
}

func TestNormalize_WrongObject(t *testing.T) {
	_, err := Normalize("facebook", []byte(`{"object":"instagram","entry":[]}`))
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestNormalize_Completeness(t *testing.T) {
	for _, n := range []int{1, 2, 5} {
		for _, m := range []int{1, 3, 4} {
			t.Run(fmt.Sprintf("%dx%d", n, m), func(t *testing.T) {
				entries := make([]string, 0, n)
				for i := 0; i < n; i++ {
					subs := make([]string, 0, m)
					for j := 0; j < m; j++ {
						subs = append(subs, fmt.Sprintf(
							`{"sender":{"id":"U%d"},"recipient":{"id":"PAGE"},"timestamp":%d,"message":{"mid":"m-%d-%d","text":"t"}}`,
							i, 1700000000000+j, i, j))
					}
					entries = append(entries, `{"id":"PAGE","time":1700000000000,"messaging":[`+strings.Join(subs, ",")+`]}`)
				}
				body := `{"object":"page","entry":[` + strings.Join(entries, ",") + `]}`

				res := NormalizeFacebook(mustParse(t, body))

				require.Len(t, res.Events, n*m)
				assert.Empty(t, res.Skipped)
				k := 0
				for i := 0; i < n; i++ {
					for j := 0; j < m; j++ {
						assert.Equal(t, fmt.Sprintf("m-%d-%d", i, j), res.Events[k].Data.MessageID)
						k++
					}
				}
			})
		}
	}
}

func TestNormalize_UnknownShapeTolerance(t *testing.T) {
	body := `{"object":"page","entry":[{"messaging":[
		{"sender":{"id":"U1"},"recipient":{"id":"PAGE"},"timestamp":1,"message":{"mid":"m1","text":"a"}},
		{"sender":{"id":"U1"},"recipient":{"id":"PAGE"},"timestamp":2,"optin":{"ref":"x"}}
	]}]}`

	res := NormalizeFacebook(mustParse(t, body))

	require.Len(t, res.Events, 1)
	assert.Equal(t, "m1", res.Events[0].Data.MessageID)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, 1, res.Skipped[0].Index)
}

func TestNormalize_MalformedSubEventDoesNotAbortBatch(t *testing.T) {
	body := `{"object":"page","entry":[
		"not an entry",
		{"messaging":[
			{"sender":{"id":"U1"},"timestamp":"yesterday","message":{"mid":"bad"}},
			{"sender":{"id":"U1"},"recipient":{"id":"PAGE"},"timestamp":5,"message":{"mid":"m2","text":"ok"}},
			{"sender":{"id":"U1"},"recipient":{"id":"PAGE"},"timestamp":6,"message":{"text":"no mid"}}
		]}
	]}`

	res := NormalizeFacebook(mustParse(t, body))

	require.Len(t, res.Events, 1)
	assert.Equal(t, "m2", res.Events[0].Data.MessageID)
	assert.Len(t, res.Skipped, 3)
}

func TestNormalize_EchoUsesRecipient(t *testing.T) {
	body := `{"object":"page","entry":[{"messaging":[
		{"sender":{"id":"PAGE"},"recipient":{"id":"U1"},"timestamp":10,"message":{"mid":"e1","text":"reply","is_echo":true}}
	]}]}`

	res := NormalizeFacebook(mustParse(t, body))

	require.Len(t, res.Events, 1)
	ev := res.Events[0]
	assert.Equal(t, TypeMessageEchoes, ev.Type)
	assert.Equal(t, "U1", ev.UserID)
	assert.Equal(t, "PAGE", ev.Data.SenderID)
	assert.Equal(t, "U1", ev.Data.RecipientID)
}

func TestNormalize_Attachments(t *testing.T) {
	body := `{"object":"instagram","entry":[{"messaging":[
		{"sender":{"id":"U1"},"recipient":{"id":"IG"},"timestamp":10,"message":{"mid":"m1","attachments":[
			{"type":"image","payload":{"url":"https://cdn/a.jpg"}},
			{"type":"fallback","payload":{}},
			{"type":"story_mention"},
			{"type":"video","payload":{"url":"https://cdn/b.mp4"}}
		]}}
	]}]}`

	res := NormalizeInstagram(mustParse(t, body))

	require.Len(t, res.Events, 1)
	assert.Equal(t, []models.Attachment{
		{Type: "image", URL: "https://cdn/a.jpg"},
		{Type: "video", URL: "https://cdn/b.mp4"},
	}, res.Events[0].Data.Attachments)
	assert.Equal(t, "", res.Events[0].Data.Message)
}

func TestNormalize_OtherMessagingTypes(t *testing.T) {
	body := `{"object":"page","entry":[{"time":1700000000000,"messaging":[
		{"sender":{"id":"U1"},"recipient":{"id":"PAGE"},"timestamp":1,"read":{"watermark":99}},
		{"sender":{"id":"U1"},"recipient":{"id":"PAGE"},"timestamp":2,"delivery":{"mids":["m9"],"watermark":98}},
		{"sender":{"id":"U1"},"recipient":{"id":"PAGE"},"timestamp":3,"postback":{"title":"Start","payload":"GET_STARTED"}},
		{"sender":{"id":"U1"},"recipient":{"id":"PAGE"},"reaction":{"mid":"m9","action":"react","emoji":"❤"}},
		{"sender":{"id":"U1"},"recipient":{"id":"PAGE"},"timestamp":5,"message":{"mid":"gone","is_deleted":true}}
	]}]}`

	res := NormalizeFacebook(mustParse(t, body))

	require.Len(t, res.Events, 4)
	assert.Equal(t, TypeMessageReads, res.Events[0].Type)
	assert.Equal(t, int64(99), res.Events[0].Data.Watermark)
	assert.Equal(t, TypeMessageDeliveries, res.Events[1].Type)
	assert.Equal(t, "m9", res.Events[1].Data.MessageID)
	assert.Equal(t, TypePostbacks, res.Events[2].Type)
	assert.Equal(t, "GET_STARTED", res.Events[2].Data.Payload)
	assert.Equal(t, TypeReactions, res.Events[3].Type)
	assert.Equal(t, "❤", res.Events[3].Data.Reaction)
	assert.Equal(t, int64(1700000000000), res.Events[3].Timestamp)

	for _, ev := range res.Events {
		assert.False(t, ev.IsMessageLike())
		assert.Equal(t, "U1", ev.UserID)
	}
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, "deleted message", res.Skipped[0].Reason)
}

func TestNormalize_Comments(t *testing.T) {
	t.Run("instagram", func(t *testing.T) {
		body := `{"object":"instagram","entry":[{"id":"IG","time":1700000000,"changes":[
			{"field":"comments","value":{"id":"c1","text":"nice","from":{"id":"U7","username":"u7"},"media":{"id":"media1"}}},
			{"field":"mentions","value":{"media_id":"x"}}
		]}]}`

		res := NormalizeInstagram(mustParse(t, body))

		require.Len(t, res.Events, 1)
		ev := res.Events[0]
		assert.Equal(t, TypeComments, ev.Type)
		assert.Equal(t, "U7", ev.UserID)
		assert.Equal(t, "c1", ev.Data.CommentID)
		assert.Equal(t, "nice", ev.Data.Message)
		assert.Equal(t, "media1", ev.Data.PostID)
		assert.Equal(t, int64(1700000000000), ev.Timestamp)
		assert.Len(t, res.Skipped, 1)
	})

	t.Run("facebook", func(t *testing.T) {
		body := `{"object":"page","entry":[{"id":"PAGE","time":1700000000,"changes":[
			{"field":"feed","value":{"item":"comment","verb":"add","comment_id":"c2","post_id":"p1","message":"hello","sender_id":"U8","created_time":1700000123}},
			{"field":"feed","value":{"item":"like","verb":"add","post_id":"p1"}}
		]}]}`

		res := NormalizeFacebook(mustParse(t, body))

		require.Len(t, res.Events, 1)
		ev := res.Events[0]
		assert.Equal(t, "U8", ev.UserID)
		assert.Equal(t, "c2", ev.Data.CommentID)
		assert.Equal(t, "p1", ev.Data.PostID)
		assert.Equal(t, int64(1700000123000), ev.Timestamp)
	})

	t.Run("comments field is instagram only", func(t *testing.T) {
		body := `{"object":"page","entry":[{"changes":[{"field":"comments","value":{"id":"c1"}}]}]}`
		res := NormalizeFacebook(mustParse(t, body))
		assert.Empty(t, res.Events)
	})
}

func TestNormalize_InstagramMessagesChange(t *testing.T) {
	body := `{"object":"instagram","entry":[{"id":"IG","time":1700000000000,"changes":[
		{"field":"messages","value":{"sender":{"id":"U1"},"recipient":{"id":"IG"},"timestamp":1700000000001,"message":{"mid":"m1","text":"via change"}}}
	]}]}`

	res := NormalizeInstagram(mustParse(t, body))

	require.Len(t, res.Events, 1)
	assert.Equal(t, TypeMessages, res.Events[0].Type)
	assert.Equal(t, "via change", res.Events[0].Data.Message)
}

func TestWebhookEvent_FieldsIsJSONCompatible(t *testing.T) {
	ev := WebhookEvent{Type: TypeMessages, Platform: "facebook", UserID: "U1", Data: EventData{MessageID: "m1"}}

	_, err := json.Marshal(ev.Fields())
	require.NoError(t, err)
	assert.Equal(t, "messages", ev.Fields()["type"])
}
