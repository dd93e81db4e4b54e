package eventstore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "inboxhook/pkg/errors"
	"inboxhook/pkg/models"
)

// runStoreContract checks the behaviour every backend must share. newStore
// must return an empty store.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("append is idempotent and first write wins", func(t *testing.T) {
		s := newStore(t)

		first := models.StoredMessage{ID: "m1", ConversationID: "U1", SenderID: "U1", Text: "first", Timestamp: 10}
		second := first
		second.Text = "second"

		inserted, err := s.Append(ctx, first)
		require.NoError(t, err)
		assert.True(t, inserted)

		inserted, err = s.Append(ctx, second)
		require.NoError(t, err)
		assert.False(t, inserted)

		snap, err := s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, snap.Messages, 1)
		assert.Equal(t, "first", snap.Messages[0].Text)
	})

	t.Run("list by conversation sorts by timestamp keeping insertion order on ties", func(t *testing.T) {
		s := newStore(t)

		for _, m := range []models.StoredMessage{
			{ID: "a", ConversationID: "c1", Timestamp: 30},
			{ID: "b", ConversationID: "c1", Timestamp: 10},
			{ID: "x", ConversationID: "c2", Timestamp: 5},
			{ID: "c", ConversationID: "c1", Timestamp: 20},
			{ID: "d", ConversationID: "c1", Timestamp: 10},
			{ID: "e", ConversationID: "c1", Timestamp: 20},
		} {
			_, err := s.Append(ctx, m)
			require.NoError(t, err)
		}

		msgs, err := s.ListByConversation(ctx, "c1")
		require.NoError(t, err)

		ids := make([]string, 0, len(msgs))
		for _, m := range msgs {
			ids = append(ids, m.ID)
		}
		assert.Equal(t, []string{"b", "d", "c", "e", "a"}, ids)

		empty, err := s.ListByConversation(ctx, "nobody")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("list all keeps insertion order and tracks last update", func(t *testing.T) {
		s := newStore(t)

		snap, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Messages)
		assert.Zero(t, snap.LastUpdate)

		_, err = s.Append(ctx, models.StoredMessage{ID: "late", ConversationID: "c", Timestamp: 100})
		require.NoError(t, err)
		_, err = s.Append(ctx, models.StoredMessage{ID: "early", ConversationID: "c", Timestamp: 1})
		require.NoError(t, err)

		snap, err = s.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, snap.Messages, 2)
		assert.Equal(t, "late", snap.Messages[0].ID)
		assert.Equal(t, "early", snap.Messages[1].ID)
		assert.Positive(t, snap.LastUpdate)
	})

	t.Run("round trips every field", func(t *testing.T) {
		s := newStore(t)

		msg := models.StoredMessage{
			ID:             "full",
			ConversationID: "U9",
			SenderID:       "business",
			Text:           "",
			Timestamp:      1700000000000,
			IsFromMe:       true,
			Attachments: []models.Attachment{
				{Type: "image", URL: "https://cdn/1.jpg"},
				{Type: "file", URL: "https://cdn/2.pdf"},
			},
			Platform: "instagram",
		}
		_, err := s.Append(ctx, msg)
		require.NoError(t, err)

		msgs, err := s.ListByConversation(ctx, "U9")
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, msg, msgs[0])
	})

	t.Run("rejects messages without id or conversation", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Append(ctx, models.StoredMessage{ConversationID: "c"})
		assert.True(t, pkgerrors.IsValidation(err))

		_, err = s.Append(ctx, models.StoredMessage{ID: "m"})
		assert.True(t, pkgerrors.IsValidation(err))
	})

	t.Run("concurrent duplicates converge to one record", func(t *testing.T) {
		s := newStore(t)

		const workers = 16
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			winners  int
			firstErr error
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				inserted, err := s.Append(ctx, models.StoredMessage{
					ID:             "dup",
					ConversationID: "c",
					Text:           fmt.Sprintf("writer-%d", i),
				})
				mu.Lock()
				defer mu.Unlock()
				if err != nil && firstErr == nil {
					firstErr = err
				}
				if inserted {
					winners++
				}
			}(i)
		}
		wg.Wait()

		require.NoError(t, firstErr)
		assert.Equal(t, 1, winners)

		snap, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, snap.Messages, 1)
	})

	t.Run("clear empties the store", func(t *testing.T) {
		s := newStore(t)

		_, err := s.Append(ctx, models.StoredMessage{ID: "m", ConversationID: "c"})
		require.NoError(t, err)
		require.NoError(t, s.Clear(ctx))

		snap, err := s.ListAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, snap.Messages)
		assert.Positive(t, snap.LastUpdate)

		inserted, err := s.Append(ctx, models.StoredMessage{ID: "m", ConversationID: "c"})
		require.NoError(t, err)
		assert.True(t, inserted)
	})
}
