// Package eventstore persists StoredMessage records with first-write-wins
// semantics keyed by message id.
package eventstore

import (
	"context"
	"sort"

	pkgerrors "inboxhook/pkg/errors"
	"inboxhook/pkg/models"
)

// Store is safe for concurrent use. Two concurrent Appends with the same id
// leave exactly one record, the one that won the race.
type Store interface {
	// Append inserts msg unless a record with the same id exists. inserted is
	// false for the no-op case.
	Append(ctx context.Context, msg models.StoredMessage) (inserted bool, err error)
	// ListAll returns every record in insertion order.
	ListAll(ctx context.Context) (Snapshot, error)
	// ListByConversation returns the conversation's records sorted by
	// timestamp ascending; equal timestamps keep insertion order.
	ListByConversation(ctx context.Context, conversationID string) ([]models.StoredMessage, error)
	Clear(ctx context.Context) error
}

type Snapshot struct {
	Messages []models.StoredMessage `json:"messages"`
	// LastUpdate is epoch ms of the last insert or clear, 0 for a fresh store.
	LastUpdate int64 `json:"lastUpdate"`
}

// sortByTimestamp expects msgs in insertion order.
func sortByTimestamp(msgs []models.StoredMessage) {
	sort.SliceStable(msgs, func(i, j int) bool {
		return msgs[i].Timestamp < msgs[j].Timestamp
	})
}

func validate(msg *models.StoredMessage) error {
	if err := models.ValidateStoredMessage(msg); err != nil {
		return pkgerrors.ErrValidation.WithMessage(err.Error()).WithCause(err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return pkgerrors.ErrStoreUnavailable.
		WithDetail("operation", op).
		WithCause(err)
}

func cloneMessage(msg models.StoredMessage) models.StoredMessage {
	if msg.Attachments != nil {
		msg.Attachments = append([]models.Attachment(nil), msg.Attachments...)
	}
	return msg
}
