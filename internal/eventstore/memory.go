package eventstore

import (
	"context"
	"sync"
	"time"

	"inboxhook/pkg/models"
)

// MemoryStore keeps everything in process. Records are lost on restart.
type MemoryStore struct {
	mu         sync.RWMutex
	ids        map[string]struct{}
	messages   []models.StoredMessage
	lastUpdate int64
	now        func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ids: make(map[string]struct{}),
		now: time.Now,
	}
}

func (s *MemoryStore) Append(ctx context.Context, msg models.StoredMessage) (bool, error) {
	if err := validate(&msg); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, unavailable("append", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ids[msg.ID]; exists {
		return false, nil
	}

	s.ids[msg.ID] = struct{}{}
	s.messages = append(s.messages, cloneMessage(msg))
	s.lastUpdate = s.now().UnixMilli()

	return true, nil
}

func (s *MemoryStore) ListAll(ctx context.Context) (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.StoredMessage, len(s.messages))
	for i, m := range s.messages {
		out[i] = cloneMessage(m)
	}

	return Snapshot{Messages: out, LastUpdate: s.lastUpdate}, nil
}

func (s *MemoryStore) ListByConversation(ctx context.Context, conversationID string) ([]models.StoredMessage, error) {
	s.mu.RLock()
	out := make([]models.StoredMessage, 0)
	for _, m := range s.messages {
		if m.ConversationID == conversationID {
			out = append(out, cloneMessage(m))
		}
	}
	s.mu.RUnlock()

	sortByTimestamp(out)
	return out, nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = make(map[string]struct{})
	s.messages = nil
	s.lastUpdate = s.now().UnixMilli()

	return nil
}
