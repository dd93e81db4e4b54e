package models

import "time"

// StoredMessage is the persisted form of a chat message. The JSON names are
// the contract with the dashboard and with backfill jobs.
type StoredMessage struct {
	ID             string       `json:"id"`
	ConversationID string       `json:"conversationId"`
	SenderID       string       `json:"senderId"`
	Text           string       `json:"text"`
	Timestamp      int64        `json:"timestamp"`
	IsFromMe       bool         `json:"isFromMe"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	Platform       string       `json:"platform,omitempty"`
}

type Attachment struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// MessageEnvelope wraps a StoredMessage on Kafka topics.
type MessageEnvelope struct {
	ID        string        `json:"id"`
	Source    string        `json:"source"`
	Timestamp time.Time     `json:"timestamp"`
	Message   StoredMessage `json:"message"`
	Metadata  Metadata      `json:"metadata"`
}

type Metadata struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	// Inserted is false when the store already held the message.
	Inserted bool     `json:"inserted"`
	DLQ      *DLQInfo `json:"dlq,omitempty"`
}

// DLQInfo is set on envelopes parked on the dead letter topic.
type DLQInfo struct {
	Reason      string    `json:"reason"`
	SourceTopic string    `json:"source_topic"`
	FailedAt    time.Time `json:"failed_at"`
}
