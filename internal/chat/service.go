package chat

import (
	"context"
)

// ConversationCache is the optional read-through cache in front of the
// conversation query. Implemented by redisstore. A nil cache disables caching.
type ConversationCache interface {
	GetConversation(ctx context.Context, userA, userB uint64) ([]Message, error)
	SetConversation(ctx context.Context, userA, userB uint64, msgs []Message) error
	InvalidateConversation(ctx context.Context, userA, userB uint64) error
}

type Service struct {
	repo  *Repo
	cache ConversationCache
}

func NewService(repo *Repo, cache ConversationCache) *Service {
	return &Service{repo: repo, cache: cache}
}

// CreateMessage durably stores m and assigns its id. The cached conversation
// for the pair is invalidated best-effort; a cache failure never fails the
// write.
func (s *Service) CreateMessage(ctx context.Context, m *Message) error {
	if err := s.repo.CreateMessage(ctx, m); err != nil {
		return err
	}
	if s.cache != nil {
		_ = s.cache.InvalidateConversation(ctx, m.SenderID, m.RecipientID)
	}
	return nil
}

// FindConversation returns the full ordered conversation between the two
// users, trying the cache first.
func (s *Service) FindConversation(ctx context.Context, userA, userB uint64) ([]Message, error) {
	if s.cache != nil {
		if msgs, err := s.cache.GetConversation(ctx, userA, userB); err == nil {
			return msgs, nil
		}
	}

	msgs, err := s.repo.FindConversation(ctx, userA, userB)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.SetConversation(ctx, userA, userB, msgs)
	}
	return msgs, nil
}
