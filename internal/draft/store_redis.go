package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"ipregistry/pkg/platform/sentinel"
)

// Redis key prefix for draft sessions.
const draftKeyPrefix = "draft:"

// RedisStore is the production draft store. Keys carry a TTL so abandoned
// drafts age out on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(formID, principal string) string {
	return draftKeyPrefix + principal + ":" + formID
}

// stored is the JSON shape persisted under the key.
type stored struct {
	Data    json.RawMessage `json:"data"`
	SavedAt time.Time       `json:"saved_at"`
}

func (s *RedisStore) Put(ctx context.Context, d Draft) error {
	value, err := json.Marshal(stored{Data: d.Data, SavedAt: d.SavedAt})
	if err != nil {
		return fmt.Errorf("marshal draft: %w", err)
	}
	if err := s.client.Set(ctx, redisKey(d.FormID, d.Principal), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("put draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, formID, principal string) (Draft, error) {
	raw, err := s.client.Get(ctx, redisKey(formID, principal)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Draft{}, sentinel.ErrNotFound
	}
	if err != nil {
		return Draft{}, fmt.Errorf("get draft: %w", err)
	}

	var st stored
	if err := json.Unmarshal(raw, &st); err != nil {
		return Draft{}, fmt.Errorf("unmarshal draft: %w", err)
	}
	return Draft{FormID: formID, Principal: principal, Data: st.Data, SavedAt: st.SavedAt}, nil
}

// Delete is idempotent; deleting an absent draft is not an error.
func (s *RedisStore) Delete(ctx context.Context, formID, principal string) error {
	if err := s.client.Del(ctx, redisKey(formID, principal)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}
