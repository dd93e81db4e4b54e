package normalizer

import (
	"encoding/json"

	"inboxhook/pkg/models"
)

type EventType string

const (
	TypeMessages          EventType = "messages"
	TypeMessageEchoes     EventType = "message_echoes"
	TypeComments          EventType = "comments"
	TypeMessageReads      EventType = "message_reads"
	TypeMessageDeliveries EventType = "message_deliveries"
	TypePostbacks         EventType = "postbacks"
	TypeReactions         EventType = "reactions"
)

// WebhookEvent is one normalized sub-event. Type decides which Data fields are
// populated.
type WebhookEvent struct {
	Type      EventType `json:"type"`
	Platform  string    `json:"platform"`
	UserID    string    `json:"userId"`
	Timestamp int64     `json:"timestamp"`
	Data      EventData `json:"data"`
}

type EventData struct {
	MessageID   string              `json:"messageId,omitempty"`
	Message     string              `json:"message,omitempty"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
	SenderID    string              `json:"senderId,omitempty"`
	RecipientID string              `json:"recipientId,omitempty"`

	CommentID string `json:"commentId,omitempty"`
	PostID    string `json:"postId,omitempty"`
	ParentID  string `json:"parentId,omitempty"`

	Watermark int64 `json:"watermark,omitempty"`

	Title   string `json:"title,omitempty"`
	Payload string `json:"payload,omitempty"`

	Reaction string `json:"reaction,omitempty"`
	Action   string `json:"action,omitempty"`
}

// IsMessageLike reports whether the event should become a StoredMessage.
func (e WebhookEvent) IsMessageLike() bool {
	return (e.Type == TypeMessages || e.Type == TypeMessageEchoes) && e.Data.MessageID != ""
}

// Fields flattens the event into the map shape filter expressions see.
func (e WebhookEvent) Fields() map[string]interface{} {
	return map[string]interface{}{
		"type":      string(e.Type),
		"platform":  e.Platform,
		"userId":    e.UserID,
		"timestamp": e.Timestamp,
		"data": map[string]interface{}{
			"messageId":      e.Data.MessageID,
			"message":        e.Data.Message,
			"senderId":       e.Data.SenderID,
			"recipientId":    e.Data.RecipientID,
			"commentId":      e.Data.CommentID,
			"postId":         e.Data.PostID,
			"hasAttachments": len(e.Data.Attachments) > 0,
		},
	}
}

// Payload is the top level of a Meta webhook POST body. Entries and their
// sub-events stay raw so one malformed element cannot fail the whole batch.
type Payload struct {
	Object string            `json:"object"`
	Entry  []json.RawMessage `json:"entry"`
}

type entry struct {
	ID        string            `json:"id"`
	Time      int64             `json:"time"`
	Messaging []json.RawMessage `json:"messaging"`
	Changes   []json.RawMessage `json:"changes"`
}

type party struct {
	ID string `json:"id"`
}

type messaging struct {
	Sender    party         `json:"sender"`
	Recipient party         `json:"recipient"`
	Timestamp int64         `json:"timestamp"`
	Message   *messageBody  `json:"message"`
	Read      *readBody     `json:"read"`
	Delivery  *deliveryBody `json:"delivery"`
	Postback  *postbackBody `json:"postback"`
	Reaction  *reactionBody `json:"reaction"`
}

type messageBody struct {
	MID         string           `json:"mid"`
	Text        string           `json:"text"`
	IsEcho      bool             `json:"is_echo"`
	IsDeleted   bool             `json:"is_deleted"`
	Attachments []attachmentBody `json:"attachments"`
}

type attachmentBody struct {
	Type    string `json:"type"`
	Payload *struct {
		URL string `json:"url"`
	} `json:"payload"`
}

type readBody struct {
	MID       string `json:"mid"`
	Watermark int64  `json:"watermark"`
}

type deliveryBody struct {
	MIDs      []string `json:"mids"`
	Watermark int64    `json:"watermark"`
}

type postbackBody struct {
	MID     string `json:"mid"`
	Title   string `json:"title"`
	Payload string `json:"payload"`
}

type reactionBody struct {
	MID      string `json:"mid"`
	Action   string `json:"action"`
	Reaction string `json:"reaction"`
	Emoji    string `json:"emoji"`
}

type change struct {
	Field string          `json:"field"`
	Value json.RawMessage `json:"value"`
}

// commentValue covers both the Instagram "comments" and the Facebook "feed"
// change values; each platform fills a different subset.
type commentValue struct {
	ID          string `json:"id"`
	CommentID   string `json:"comment_id"`
	Text        string `json:"text"`
	Message     string `json:"message"`
	PostID      string `json:"post_id"`
	ParentID    string `json:"parent_id"`
	Item        string `json:"item"`
	Verb        string `json:"verb"`
	SenderID    string `json:"sender_id"`
	CreatedTime int64  `json:"created_time"`
	From        *struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
	Media *struct {
		ID string `json:"id"`
	} `json:"media"`
}
