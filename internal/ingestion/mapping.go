package ingestion

import (
	"inboxhook/internal/constants"
	"inboxhook/internal/normalizer"
	"inboxhook/pkg/models"
)

// BuildMessage converts a message-like event into the record the store keeps.
// Each platform files messages into conversations by its own rule, and the
// two rules are intentionally not merged. accountID is the connected business
// account on the platform, possibly empty.
func BuildMessage(platform string, ev normalizer.WebhookEvent, accountID string) (models.StoredMessage, bool) {
	if !ev.IsMessageLike() {
		return models.StoredMessage{}, false
	}

	msg := models.StoredMessage{
		ID:        ev.Data.MessageID,
		Text:      ev.Data.Message,
		Timestamp: ev.Timestamp,
		Platform:  platform,
	}
	if len(ev.Data.Attachments) > 0 {
		msg.Attachments = append([]models.Attachment(nil), ev.Data.Attachments...)
	}

	switch platform {
	case constants.PlatformFacebook:
		facebookParticipants(&msg, ev)
	case constants.PlatformInstagram:
		instagramParticipants(&msg, ev, accountID)
	default:
		return models.StoredMessage{}, false
	}

	return msg, true
}

// Page echoes are filed under the customer they were sent to.
func facebookParticipants(msg *models.StoredMessage, ev normalizer.WebhookEvent) {
	if ev.Type == normalizer.TypeMessageEchoes {
		msg.ConversationID = firstNonEmpty(ev.Data.RecipientID, ev.UserID)
		msg.SenderID = constants.BusinessSenderID
		msg.IsFromMe = true
		return
	}

	sender := firstNonEmpty(ev.Data.SenderID, ev.UserID)
	msg.ConversationID = sender
	msg.SenderID = sender
	msg.IsFromMe = false
}

// Instagram threads are keyed by the event user. A message counts as ours
// when it is an echo or when the sender is the connected account.
func instagramParticipants(msg *models.StoredMessage, ev normalizer.WebhookEvent, accountID string) {
	sender := firstNonEmpty(ev.Data.SenderID, ev.UserID)

	msg.ConversationID = ev.UserID
	msg.IsFromMe = ev.Type == normalizer.TypeMessageEchoes || (accountID != "" && sender == accountID)
	if msg.IsFromMe {
		msg.SenderID = constants.BusinessSenderID
	} else {
		msg.SenderID = sender
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
