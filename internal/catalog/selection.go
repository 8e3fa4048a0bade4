package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/genpad/internal/generator"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// SelectionKey is the durable-store key prefix for remembered selections
const SelectionKey = "last-used-generator"

// SelectionStore remembers the last generator chosen per scope and category.
// Load returns found=false when nothing has been stored.
type SelectionStore interface {
	Load(ctx context.Context, scope string, category generator.Category) (generator.Descriptor, bool, error)
	Save(ctx context.Context, scope string, d generator.Descriptor) error
}

func selectionKey(scope string, category generator.Category) string {
	return fmt.Sprintf("%s:%s:%s", SelectionKey, scope, category)
}

// RedisSelectionStore keeps selections in Redis without expiry
type RedisSelectionStore struct {
	client *redis.Client
}

// NewRedisSelectionStore connects to redisURL and verifies the connection
func NewRedisSelectionStore(redisURL string) (*RedisSelectionStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisSelectionStore{client: client}, nil
}

// NewRedisSelectionStoreWithClient wraps an existing client
func NewRedisSelectionStoreWithClient(client *redis.Client) *RedisSelectionStore {
	return &RedisSelectionStore{client: client}
}

func (s *RedisSelectionStore) Load(ctx context.Context, scope string, category generator.Category) (generator.Descriptor, bool, error) {
	raw, err := s.client.Get(ctx, selectionKey(scope, category)).Bytes()
	if err == redis.Nil {
		return generator.Descriptor{}, false, nil
	}
	if err != nil {
		return generator.Descriptor{}, false, fmt.Errorf("load selection: %w", err)
	}

	var d generator.Descriptor
	if err := json.Unmarshal(raw, &d); err != nil {
		return generator.Descriptor{}, false, fmt.Errorf("decode selection: %w", err)
	}
	return d, true, nil
}

// Save stores d without its auth token; Service.Resolve takes the token from
// the live catalog entry with the same ID.
func (s *RedisSelectionStore) Save(ctx context.Context, scope string, d generator.Descriptor) error {
	d.AuthToken = ""
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}
	if err := s.client.Set(ctx, selectionKey(scope, d.Category), raw, 0).Err(); err != nil {
		return fmt.Errorf("save selection: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisSelectionStore) Close() error {
	return s.client.Close()
}

// MemorySelectionStore keeps selections in process memory; used when Redis is
// not configured. Selections survive catalog reloads but not restarts.
type MemorySelectionStore struct {
	cache *cache.Cache
}

func NewMemorySelectionStore() *MemorySelectionStore {
	return &MemorySelectionStore{cache: cache.New(cache.NoExpiration, 0)}
}

func (s *MemorySelectionStore) Load(_ context.Context, scope string, category generator.Category) (generator.Descriptor, bool, error) {
	v, ok := s.cache.Get(selectionKey(scope, category))
	if !ok {
		return generator.Descriptor{}, false, nil
	}
	return v.(generator.Descriptor), true, nil
}

func (s *MemorySelectionStore) Save(_ context.Context, scope string, d generator.Descriptor) error {
	s.cache.Set(selectionKey(scope, d.Category), d, cache.NoExpiration)
	return nil
}
