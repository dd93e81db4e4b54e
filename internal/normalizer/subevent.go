package normalizer

import (
	"encoding/json"

	"inboxhook/internal/constants"
	"inboxhook/pkg/models"
)

// subEvent is one classified element of an entry's messaging[] or changes[]
// list. Exactly one variant is produced per element; skipped carries the
// reason an element was dropped.
type subEvent interface {
	event(platform string) (WebhookEvent, bool)
}

type (
	inboundMessage struct {
		m messaging
	}
	echoMessage struct {
		m messaging
	}
	readReceipt struct {
		m messaging
	}
	deliveryReceipt struct {
		m messaging
	}
	postback struct {
		m messaging
	}
	reaction struct {
		m messaging
	}
	comment struct {
		v         commentValue
		timestamp int64
	}
	skipped struct {
		reason string
	}
)

func (s inboundMessage) event(platform string) (WebhookEvent, bool) {
	return WebhookEvent{
		Type:      TypeMessages,
		Platform:  platform,
		UserID:    s.m.Sender.ID,
		Timestamp: s.m.Timestamp,
		Data:      messageData(s.m),
	}, true
}

// echo events are filed under the counterpart, i.e. the echo's recipient.
func (s echoMessage) event(platform string) (WebhookEvent, bool) {
	return WebhookEvent{
		Type:      TypeMessageEchoes,
		Platform:  platform,
		UserID:    s.m.Recipient.ID,
		Timestamp: s.m.Timestamp,
		Data:      messageData(s.m),
	}, true
}

func (s readReceipt) event(platform string) (WebhookEvent, bool) {
	return WebhookEvent{
		Type:      TypeMessageReads,
		Platform:  platform,
		UserID:    s.m.Sender.ID,
		Timestamp: s.m.Timestamp,
		Data: EventData{
			MessageID:   s.m.Read.MID,
			Watermark:   s.m.Read.Watermark,
			SenderID:    s.m.Sender.ID,
			RecipientID: s.m.Recipient.ID,
		},
	}, true
}

func (s deliveryReceipt) event(platform string) (WebhookEvent, bool) {
	data := EventData{
		Watermark:   s.m.Delivery.Watermark,
		SenderID:    s.m.Sender.ID,
		RecipientID: s.m.Recipient.ID,
	}
	if len(s.m.Delivery.MIDs) > 0 {
		data.MessageID = s.m.Delivery.MIDs[0]
	}

	return WebhookEvent{
		Type:      TypeMessageDeliveries,
		Platform:  platform,
		UserID:    s.m.Sender.ID,
		Timestamp: s.m.Timestamp,
		Data:      data,
	}, true
}

func (s postback) event(platform string) (WebhookEvent, bool) {
	return WebhookEvent{
		Type:      TypePostbacks,
		Platform:  platform,
		UserID:    s.m.Sender.ID,
		Timestamp: s.m.Timestamp,
		Data: EventData{
			MessageID:   s.m.Postback.MID,
			Title:       s.m.Postback.Title,
			Payload:     s.m.Postback.Payload,
			SenderID:    s.m.Sender.ID,
			RecipientID: s.m.Recipient.ID,
		},
	}, true
}

func (s reaction) event(platform string) (WebhookEvent, bool) {
	r := s.m.Reaction
	value := r.Reaction
	if value == "" {
		value = r.Emoji
	}

	return WebhookEvent{
		Type:      TypeReactions,
		Platform:  platform,
		UserID:    s.m.Sender.ID,
		Timestamp: s.m.Timestamp,
		Data: EventData{
			MessageID:   r.MID,
			Reaction:    value,
			Action:      r.Action,
			SenderID:    s.m.Sender.ID,
			RecipientID: s.m.Recipient.ID,
		},
	}, true
}

func (s comment) event(platform string) (WebhookEvent, bool) {
	v := s.v

	userID := v.SenderID
	if v.From != nil && v.From.ID != "" {
		userID = v.From.ID
	}

	data := EventData{
		CommentID: firstNonEmpty(v.CommentID, v.ID),
		Message:   firstNonEmpty(v.Text, v.Message),
		PostID:    v.PostID,
		ParentID:  v.ParentID,
		SenderID:  userID,
	}
	if data.PostID == "" && v.Media != nil {
		data.PostID = v.Media.ID
	}

	return WebhookEvent{
		Type:      TypeComments,
		Platform:  platform,
		UserID:    userID,
		Timestamp: s.timestamp,
		Data:      data,
	}, true
}

func (s skipped) event(string) (WebhookEvent, bool) {
	return WebhookEvent{}, false
}

func messageData(m messaging) EventData {
	return EventData{
		MessageID:   m.Message.MID,
		Message:     m.Message.Text,
		Attachments: attachments(m.Message.Attachments),
		SenderID:    m.Sender.ID,
		RecipientID: m.Recipient.ID,
	}
}

// attachments keeps the order of the input and drops entries without a URL.
func attachments(in []attachmentBody) []models.Attachment {
	var out []models.Attachment
	for _, a := range in {
		if a.Payload == nil || a.Payload.URL == "" {
			continue
		}
		out = append(out, models.Attachment{Type: a.Type, URL: a.Payload.URL})
	}
	return out
}

// classifyMessaging decodes one messaging[] element. The checks run in a fixed
// order so a shape carrying several keys still maps to exactly one variant.
func classifyMessaging(raw json.RawMessage, entryTime int64) subEvent {
	var m messaging
	if err := json.Unmarshal(raw, &m); err != nil {
		return skipped{reason: "malformed messaging event"}
	}
	if m.Timestamp == 0 {
		m.Timestamp = toMillis(entryTime)
	}

	switch {
	case m.Message != nil:
		switch {
		case m.Message.MID == "":
			return skipped{reason: "message without mid"}
		case m.Message.IsDeleted:
			return skipped{reason: "deleted message"}
		case m.Message.IsEcho:
			return echoMessage{m: m}
		default:
			return inboundMessage{m: m}
		}
	case m.Read != nil:
		return readReceipt{m: m}
	case m.Delivery != nil:
		return deliveryReceipt{m: m}
	case m.Postback != nil:
		return postback{m: m}
	case m.Reaction != nil:
		return reaction{m: m}
	}

	return skipped{reason: "unrecognized messaging event"}
}

// classifyChange decodes one changes[] element for platform.
func classifyChange(raw json.RawMessage, platform string, entryTime int64) subEvent {
	var c change
	if err := json.Unmarshal(raw, &c); err != nil {
		return skipped{reason: "malformed change"}
	}

	switch {
	case platform == constants.PlatformInstagram && c.Field == "messages":
		// Instagram can deliver DMs as a change whose value is a messaging event.
		return classifyMessaging(c.Value, entryTime)
	case platform == constants.PlatformInstagram && c.Field == "comments":
		return decodeComment(c.Value, entryTime, "")
	case platform == constants.PlatformFacebook && c.Field == "feed":
		return decodeComment(c.Value, entryTime, "comment")
	}

	return skipped{reason: "unrecognized change field " + c.Field}
}

func decodeComment(raw json.RawMessage, entryTime int64, wantItem string) subEvent {
	var v commentValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return skipped{reason: "malformed comment"}
	}
	if wantItem != "" && v.Item != wantItem {
		return skipped{reason: "feed item " + v.Item}
	}
	if v.CommentID == "" && v.ID == "" {
		return skipped{reason: "comment without id"}
	}

	ts := toMillis(entryTime)
	if v.CreatedTime > 0 {
		ts = toMillis(v.CreatedTime)
	}

	return comment{v: v, timestamp: ts}
}

// toMillis accepts epoch seconds or milliseconds. Meta uses both, depending
// on the field.
func toMillis(ts int64) int64 {
	if ts > 0 && ts < 1e12 {
		return ts * 1000
	}
	return ts
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
