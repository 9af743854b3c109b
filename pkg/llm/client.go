// Package llm provides the optional OpenAI-backed rephrase suggester used
// on the "no plan" path. When no API key is configured the engine runs
// without it and answers with the static rephrase narrative only.
package llm

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/sokoflow/soko-engine/pkg/config"
)

const rephraseSystemMessage = "You help retail business owners query their own sales data. " +
	"Given a question our engine could not interpret, suggest one clearer rewording " +
	"that asks about sales, products, customers, branches, staff or business info. " +
	"Reply with the reworded question only."

// Suggester proposes a clearer rewording of a question the planner could
// not interpret.
type Suggester interface {
	SuggestRephrase(ctx context.Context, query string) (string, error)
}

// OpenAISuggester implements Suggester against the chat completions API.
type OpenAISuggester struct {
	client    *openai.Client
	model     string
	maxTokens int
}

// NewOpenAISuggester creates a suggester, or nil when no API key is
// configured. A nil Suggester is a valid "disabled" state.
func NewOpenAISuggester(cfg *config.OpenAIConfig) *OpenAISuggester {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil
	}
	return &OpenAISuggester{
		client:    openai.NewClient(cfg.APIKey),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
	}
}

// SuggestRephrase asks the model for a single clearer rewording.
func (s *OpenAISuggester) SuggestRephrase(ctx context.Context, query string) (string, error) {
	resp, err := s.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     s.model,
		MaxTokens: s.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: rephraseSystemMessage},
			{Role: openai.ChatMessageRoleUser, Content: query},
		},
	})
	if err != nil {
		return "", fmt.Errorf("rephrase completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("rephrase completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
