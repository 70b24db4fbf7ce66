package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/healer-app/messaging/internal/chat"
)

// Store caches full conversations keyed by the unordered participant pair.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

func New(addr, password string, db int, ttl time.Duration) *Store {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Store{rdb: rdb, ttl: ttl}
}

func NewWithClient(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func conversationKey(userA, userB uint64) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return fmt.Sprintf("conv:%d:%d", userA, userB)
}

// GetConversation returns the cached conversation; redis.Nil means miss.
func (s *Store) GetConversation(ctx context.Context, userA, userB uint64) ([]chat.Message, error) {
	raw, err := s.rdb.Get(ctx, conversationKey(userA, userB)).Bytes()
	if err != nil {
		return nil, err
	}
	var msgs []chat.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (s *Store) SetConversation(ctx context.Context, userA, userB uint64, msgs []chat.Message) error {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, conversationKey(userA, userB), raw, s.ttl).Err()
}

func (s *Store) InvalidateConversation(ctx context.Context, userA, userB uint64) error {
	return s.rdb.Del(ctx, conversationKey(userA, userB)).Err()
}

func (s *Store) Close() error {
	return s.rdb.Close()
}
