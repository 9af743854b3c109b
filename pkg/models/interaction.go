package models

import (
	"time"

	"github.com/google/uuid"
)

// Interaction records one processed question and its answer. Category is
// the query type the planner resolved, or "no_plan" when planning failed.
type Interaction struct {
	ID             uuid.UUID  `json:"id"`
	TenantID       string     `json:"tenant_id"`
	BranchID       *string    `json:"branch_id,omitempty"`
	UserID         *string    `json:"user_id,omitempty"`
	ConversationID *string    `json:"conversation_id,omitempty"`
	UserMessage    string     `json:"user_message"`
	Response       string     `json:"response"`
	Category       string     `json:"category"`
	Rating         *int       `json:"rating,omitempty"`
	FeedbackText   *string    `json:"feedback_text,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	RatedAt        *time.Time `json:"rated_at,omitempty"`
}
