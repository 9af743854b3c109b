package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sokoflow/soko-engine/pkg/apperrors"
	"github.com/sokoflow/soko-engine/pkg/database"
	"github.com/sokoflow/soko-engine/pkg/models"
)

// InteractionRepository provides data access for the engine's interaction
// log.
type InteractionRepository interface {
	Create(ctx context.Context, interaction *models.Interaction) error
	ListByUser(ctx context.Context, tenantID, userID string, conversationID *string, limit int) ([]*models.Interaction, error)
	RecordFeedback(ctx context.Context, interactionID uuid.UUID, rating int, feedbackText *string) error
}

type interactionRepository struct {
	db *database.DB
}

// NewInteractionRepository creates a repository on the engine database.
func NewInteractionRepository(db *database.DB) InteractionRepository {
	return &interactionRepository{db: db}
}

var _ InteractionRepository = (*interactionRepository)(nil)

func (r *interactionRepository) Create(ctx context.Context, interaction *models.Interaction) error {
	if interaction.ID == uuid.Nil {
		interaction.ID = uuid.New()
	}
	if interaction.CreatedAt.IsZero() {
		interaction.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO ai_interactions (
			id, tenant_id, branch_id, user_id, conversation_id,
			user_message, response, category, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		interaction.ID,
		interaction.TenantID,
		interaction.BranchID,
		interaction.UserID,
		interaction.ConversationID,
		interaction.UserMessage,
		interaction.Response,
		interaction.Category,
		interaction.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create interaction: %w", err)
	}

	return nil
}

func (r *interactionRepository) ListByUser(ctx context.Context, tenantID, userID string, conversationID *string, limit int) ([]*models.Interaction, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	query := `
		SELECT id, tenant_id, branch_id, user_id, conversation_id,
		       user_message, response, category, rating, feedback_text,
		       created_at, rated_at
		FROM ai_interactions
		WHERE tenant_id = $1 AND user_id = $2`
	args := []any{tenantID, userID}

	if conversationID != nil {
		query += fmt.Sprintf(" AND conversation_id = $%d", len(args)+1)
		args = append(args, *conversationID)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list interactions: %w", err)
	}
	defer rows.Close()

	var interactions []*models.Interaction
	for rows.Next() {
		i := &models.Interaction{}
		if err := rows.Scan(
			&i.ID, &i.TenantID, &i.BranchID, &i.UserID, &i.ConversationID,
			&i.UserMessage, &i.Response, &i.Category, &i.Rating, &i.FeedbackText,
			&i.CreatedAt, &i.RatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan interaction: %w", err)
		}
		interactions = append(interactions, i)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interactions: %w", err)
	}

	return interactions, nil
}

func (r *interactionRepository) RecordFeedback(ctx context.Context, interactionID uuid.UUID, rating int, feedbackText *string) error {
	if rating < 1 || rating > 5 {
		return apperrors.ErrInvalidRating
	}

	query := `
		UPDATE ai_interactions
		SET rating = $2, feedback_text = $3, rated_at = $4
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query, interactionID, rating, feedbackText, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to record feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}

	return nil
}
