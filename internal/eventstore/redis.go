package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"inboxhook/internal/constants"
	"inboxhook/pkg/models"
)

// appendScript performs the first-write check and both index updates in one
// step so a concurrent duplicate can never be indexed twice.
//
// KEYS: message key, global index, conversation index, sequence, last update
// ARGV: message JSON, message id, now (epoch ms)
var appendScript = redis.NewScript(`
if not redis.call('SET', KEYS[1], ARGV[1], 'NX') then
  return 0
end
local seq = redis.call('INCR', KEYS[4])
redis.call('ZADD', KEYS[2], seq, ARGV[2])
redis.call('ZADD', KEYS[3], seq, ARGV[2])
redis.call('SET', KEYS[5], ARGV[3])
return seq
`)

const (
	redisBatchSize = 500
	redisScanCount = 500
)

type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func messageKey(id string) string {
	return constants.CacheKeyPrefixMessage + id
}

func conversationKey(id string) string {
	return constants.CacheKeyPrefixConversation + id
}

func (s *RedisStore) Append(ctx context.Context, msg models.StoredMessage) (bool, error) {
	if err := validate(&msg); err != nil {
		return false, err
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return false, unavailable("append", fmt.Errorf("failed to encode message: %w", err))
	}

	keys := []string{
		messageKey(msg.ID),
		constants.CacheKeyMessageIndex,
		conversationKey(msg.ConversationID),
		constants.CacheKeyMessageSeq,
		constants.CacheKeyLastUpdate,
	}
	seq, err := appendScript.Run(ctx, s.client, keys, data, msg.ID, s.now().UnixMilli()).Int64()
	if err != nil {
		return false, unavailable("append", err)
	}

	return seq > 0, nil
}

func (s *RedisStore) ListAll(ctx context.Context) (Snapshot, error) {
	ids, err := s.client.ZRange(ctx, constants.CacheKeyMessageIndex, 0, -1).Result()
	if err != nil {
		return Snapshot{}, unavailable("list_all", err)
	}

	msgs, err := s.load(ctx, ids)
	if err != nil {
		return Snapshot{}, unavailable("list_all", err)
	}

	lastUpdate, err := s.client.Get(ctx, constants.CacheKeyLastUpdate).Int64()
	if err != nil && err != redis.Nil {
		return Snapshot{}, unavailable("list_all", err)
	}

	return Snapshot{Messages: msgs, LastUpdate: lastUpdate}, nil
}

func (s *RedisStore) ListByConversation(ctx context.Context, conversationID string) ([]models.StoredMessage, error) {
	ids, err := s.client.ZRange(ctx, conversationKey(conversationID), 0, -1).Result()
	if err != nil {
		return nil, unavailable("list_by_conversation", err)
	}

	msgs, err := s.load(ctx, ids)
	if err != nil {
		return nil, unavailable("list_by_conversation", err)
	}

	sortByTimestamp(msgs)
	return msgs, nil
}

// load fetches message bodies for ids, preserving their order. Ids whose key
// vanished (e.g. during a concurrent Clear) are skipped.
func (s *RedisStore) load(ctx context.Context, ids []string) ([]models.StoredMessage, error) {
	out := make([]models.StoredMessage, 0, len(ids))

	for start := 0; start < len(ids); start += redisBatchSize {
		end := start + redisBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, messageKey(id))
		}

		values, err := s.client.MGet(ctx, keys...).Result()
		if err != nil {
			return nil, err
		}

		for i, v := range values {
			raw, ok := v.(string)
			if !ok {
				continue
			}
			var msg models.StoredMessage
			if err := json.Unmarshal([]byte(raw), &msg); err != nil {
				return nil, fmt.Errorf("failed to decode %s: %w", keys[i], err)
			}
			out = append(out, msg)
		}
	}

	return out, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	for _, pattern := range []string{constants.CacheKeyPrefixMessage + "*", constants.CacheKeyPrefixConversation + "*"} {
		if err := s.deleteMatching(ctx, pattern); err != nil {
			return unavailable("clear", err)
		}
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, constants.CacheKeyMessageIndex)
	pipe.Set(ctx, constants.CacheKeyLastUpdate, s.now().UnixMilli(), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return unavailable("clear", err)
	}

	return nil
}

func (s *RedisStore) deleteMatching(ctx context.Context, pattern string) error {
	iter := s.client.Scan(ctx, 0, pattern, redisScanCount).Iterator()
	batch := make([]string, 0, redisScanCount)

	for iter.Next(ctx) {
		batch = append(batch, iter.Val())
		if len(batch) == redisScanCount {
			if err := s.client.Del(ctx, batch...).Err(); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis scan failed: %w", err)
	}

	if len(batch) > 0 {
		return s.client.Del(ctx, batch...).Err()
	}
	return nil
}
