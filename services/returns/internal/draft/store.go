package draft

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 30 * time.Minute

var ErrNoDraft = errors.New("no draft for this order")

type Store interface {
	Load(ctx context.Context, userID, orderID uuid.UUID) (*Draft, error)
	Save(ctx context.Context, d *Draft) error
	Delete(ctx context.Context, userID, orderID uuid.UUID) error
}

func Key(userID, orderID uuid.UUID) string {
	return fmt.Sprintf("returns:draft:%s:%s", userID, orderID)
}

// RedisStore keeps drafts as JSON. Every save extends the TTL.
type RedisStore struct {
	Client redis.UniversalClient
	TTL    time.Duration
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{Client: client, TTL: DefaultTTL}
}

func (s *RedisStore) Load(ctx context.Context, userID, orderID uuid.UUID) (*Draft, error) {
	raw, err := s.Client.Get(ctx, Key(userID, orderID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNoDraft
	}
	if err != nil {
		return nil, fmt.Errorf("load draft: %w", err)
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode draft: %w", err)
	}
	return &d, nil
}

func (s *RedisStore) Save(ctx context.Context, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encode draft: %w", err)
	}
	if err := s.Client.Set(ctx, Key(d.UserID, d.OrderID), raw, s.TTL).Err(); err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID, orderID uuid.UUID) error {
	if err := s.Client.Del(ctx, Key(userID, orderID)).Err(); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// MemoryStore is the single-instance fallback when no redis is configured. Entries do not expire.
type MemoryStore struct {
	mu     sync.Mutex
	drafts map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{drafts: map[string][]byte{}}
}

func (s *MemoryStore) Load(_ context.Context, userID, orderID uuid.UUID) (*Draft, error) {
	s.mu.Lock()
	raw, ok := s.drafts[Key(userID, orderID)]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNoDraft
	}
	var d Draft
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *MemoryStore) Save(_ context.Context, d *Draft) error {
	raw, err := json.Marshal(d)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.drafts[Key(d.UserID, d.OrderID)] = raw
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, userID, orderID uuid.UUID) error {
	s.mu.Lock()
	delete(s.drafts, Key(userID, orderID))
	s.mu.Unlock()
	return nil
}
