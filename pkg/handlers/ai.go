package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sokoflow/soko-engine/pkg/apperrors"
	"github.com/sokoflow/soko-engine/pkg/models"
	"github.com/sokoflow/soko-engine/pkg/services"
)

// DynamicQueryRequest is the POST /process_dynamic_query body.
type DynamicQueryRequest struct {
	Query       string         `json:"query"`
	TenantID    string         `json:"tenant_id"`
	BranchID    string         `json:"branch_id,omitempty"`
	UserContext map[string]any `json:"user_context,omitempty"`
}

// DataSummary describes the shape of the executed result.
type DataSummary struct {
	RowsReturned int      `json:"rows_returned"`
	Columns      []string `json:"columns"`
}

// DynamicQueryResponse is the POST /process_dynamic_query reply.
type DynamicQueryResponse struct {
	Response    string      `json:"response"`
	Insights    []string    `json:"insights"`
	QueryType   *string     `json:"query_type"`
	DataSummary DataSummary `json:"data_summary"`
}

// ConversationsResponse wraps the history listing.
type ConversationsResponse struct {
	Interactions []*models.Interaction `json:"interactions"`
}

// FeedbackRequest is the POST /feedback body.
type FeedbackRequest struct {
	InteractionID string  `json:"interaction_id"`
	Rating        int     `json:"rating"`
	FeedbackText  *string `json:"feedback_text,omitempty"`
}

// AIHandler exposes the free-text query engine over HTTP.
type AIHandler struct {
	queryService  services.DynamicQueryService
	conversations services.ConversationService
	logger        *zap.Logger
}

// NewAIHandler creates the handler.
func NewAIHandler(queryService services.DynamicQueryService, conversations services.ConversationService, logger *zap.Logger) *AIHandler {
	return &AIHandler{
		queryService:  queryService,
		conversations: conversations,
		logger:        logger,
	}
}

// RegisterRoutes registers the handler's routes on the given mux.
func (h *AIHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /process_dynamic_query", h.ProcessDynamicQuery)
	mux.HandleFunc("GET /conversations", h.ListConversations)
	mux.HandleFunc("POST /feedback", h.SubmitFeedback)
}

// ProcessDynamicQuery handles POST /process_dynamic_query.
func (h *AIHandler) ProcessDynamicQuery(w http.ResponseWriter, r *http.Request) {
	var req DynamicQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		h.writeError(w, http.StatusBadRequest, apperrors.ErrMissingQuery.Error())
		return
	}
	if strings.TrimSpace(req.TenantID) == "" {
		h.writeError(w, http.StatusBadRequest, apperrors.ErrMissingTenant.Error())
		return
	}

	result := h.queryService.Process(r.Context(), &services.DynamicQueryRequest{
		Query:          req.Query,
		TenantID:       req.TenantID,
		BranchID:       req.BranchID,
		UserID:         contextString(req.UserContext, "user_id"),
		ConversationID: contextString(req.UserContext, "conversation_id"),
	})

	resp := DynamicQueryResponse{
		Response:  result.Response,
		Insights:  result.Insights,
		QueryType: result.QueryType,
		DataSummary: DataSummary{
			RowsReturned: result.RowCount,
			Columns:      result.Columns,
		},
	}
	if err := WriteJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListConversations handles GET /conversations?tenant_id=..&user_id=..[&conversation_id=..]
func (h *AIHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	tenantID := r.URL.Query().Get("tenant_id")
	userID := r.URL.Query().Get("user_id")
	if tenantID == "" || userID == "" {
		h.writeError(w, http.StatusBadRequest, "tenant_id and user_id are required")
		return
	}

	var conversationID *string
	if cid := r.URL.Query().Get("conversation_id"); cid != "" {
		conversationID = &cid
	}

	interactions, err := h.conversations.History(r.Context(), tenantID, userID, conversationID)
	if err != nil {
		h.logger.Error("Failed to load conversation history", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to load conversation history")
		return
	}
	if interactions == nil {
		interactions = []*models.Interaction{}
	}

	if err := WriteJSON(w, http.StatusOK, ConversationsResponse{Interactions: interactions}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// SubmitFeedback handles POST /feedback.
func (h *AIHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var req FeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	interactionID, err := uuid.Parse(req.InteractionID)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "interaction_id must be a valid UUID")
		return
	}

	err = h.conversations.SubmitFeedback(r.Context(), interactionID, req.Rating, req.FeedbackText)
	switch {
	case errors.Is(err, apperrors.ErrInvalidRating):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "interaction not found")
	case err != nil:
		h.logger.Error("Failed to record feedback", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, "failed to record feedback")
	default:
		if err := WriteJSON(w, http.StatusOK, map[string]bool{"success": true}); err != nil {
			h.logger.Error("Failed to write response", zap.Error(err))
		}
	}
}

func (h *AIHandler) writeError(w http.ResponseWriter, status int, message string) {
	if err := ErrorResponse(w, status, message); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}

func contextString(userContext map[string]any, key string) string {
	if userContext == nil {
		return ""
	}
	if v, ok := userContext[key].(string); ok {
		return v
	}
	return ""
}
