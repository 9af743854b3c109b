package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sokoflow/soko-engine/pkg/models"
	"github.com/sokoflow/soko-engine/pkg/repositories"
)

const (
	historyCacheTTL   = 5 * time.Minute
	historyCacheLimit = 50
)

// ConversationService records interactions and serves conversation history,
// with an optional Redis read cache in front of Postgres.
type ConversationService interface {
	InteractionRecorder
	History(ctx context.Context, tenantID, userID string, conversationID *string) ([]*models.Interaction, error)
	SubmitFeedback(ctx context.Context, interactionID uuid.UUID, rating int, feedbackText *string) error
}

type conversationService struct {
	repo   repositories.InteractionRepository
	cache  *redis.Client // nil disables caching
	logger *zap.Logger
}

// NewConversationService creates the service. cache may be nil.
func NewConversationService(repo repositories.InteractionRepository, cache *redis.Client, logger *zap.Logger) ConversationService {
	return &conversationService{repo: repo, cache: cache, logger: logger}
}

func (s *conversationService) RecordInteraction(ctx context.Context, interaction *models.Interaction) error {
	if err := s.repo.Create(ctx, interaction); err != nil {
		return err
	}

	if s.cache != nil && interaction.UserID != nil {
		keys := []string{historyCacheKey(interaction.TenantID, *interaction.UserID, nil)}
		if interaction.ConversationID != nil {
			keys = append(keys, historyCacheKey(interaction.TenantID, *interaction.UserID, interaction.ConversationID))
		}
		if err := s.cache.Del(ctx, keys...).Err(); err != nil {
			s.logger.Warn("Failed to invalidate history cache", zap.Error(err))
		}
	}

	return nil
}

func (s *conversationService) History(ctx context.Context, tenantID, userID string, conversationID *string) ([]*models.Interaction, error) {
	key := historyCacheKey(tenantID, userID, conversationID)

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, key).Result()
		if err == nil {
			var interactions []*models.Interaction
			if err := json.Unmarshal([]byte(cached), &interactions); err == nil {
				return interactions, nil
			}
			// Unreadable cache entry; fall through to the database.
			s.cache.Del(ctx, key)
		} else if err != redis.Nil {
			s.logger.Warn("History cache read failed", zap.Error(err))
		}
	}

	interactions, err := s.repo.ListByUser(ctx, tenantID, userID, conversationID, historyCacheLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation history: %w", err)
	}

	if s.cache != nil {
		if payload, err := json.Marshal(interactions); err == nil {
			if err := s.cache.Set(ctx, key, payload, historyCacheTTL).Err(); err != nil {
				s.logger.Warn("History cache write failed", zap.Error(err))
			}
		}
	}

	return interactions, nil
}

func (s *conversationService) SubmitFeedback(ctx context.Context, interactionID uuid.UUID, rating int, feedbackText *string) error {
	return s.repo.RecordFeedback(ctx, interactionID, rating, feedbackText)
}

func historyCacheKey(tenantID, userID string, conversationID *string) string {
	conv := "all"
	if conversationID != nil {
		conv = *conversationID
	}
	return fmt.Sprintf("soko:conversations:%s:%s:%s", tenantID, userID, conv)
}
