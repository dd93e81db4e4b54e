package models

import "fmt"

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// ValidateStoredMessage checks the fields a message cannot be stored without.
func ValidateStoredMessage(msg *StoredMessage) error {
	if msg == nil {
		return &ValidationError{Field: "message", Message: "message cannot be nil"}
	}
	if msg.ID == "" {
		return &ValidationError{Field: "id", Message: "message ID is required"}
	}
	if msg.ConversationID == "" {
		return &ValidationError{Field: "conversationId", Message: "conversation ID is required"}
	}
	for i, a := range msg.Attachments {
		if a.URL == "" {
			return &ValidationError{Field: fmt.Sprintf("attachments[%d].url", i), Message: "attachment URL is required"}
		}
	}
	return nil
}

func ValidateMessageEnvelope(env *MessageEnvelope) error {
	if env == nil {
		return &ValidationError{Field: "envelope", Message: "message envelope cannot be nil"}
	}
	if env.ID == "" {
		return &ValidationError{Field: "id", Message: "envelope ID is required"}
	}
	if env.Source == "" {
		return &ValidationError{Field: "source", Message: "envelope source is required"}
	}
	return ValidateStoredMessage(&env.Message)
}
