// Package services wires the request pipeline: normalize, classify, plan,
// execute, narrate. Everything downstream of input validation is absorbed
// into a conversational answer; this service never returns an error to the
// transport layer.
package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sokoflow/soko-engine/pkg/apperrors"
	"github.com/sokoflow/soko-engine/pkg/intent"
	"github.com/sokoflow/soko-engine/pkg/llm"
	"github.com/sokoflow/soko-engine/pkg/logging"
	"github.com/sokoflow/soko-engine/pkg/models"
	"github.com/sokoflow/soko-engine/pkg/narrative"
	"github.com/sokoflow/soko-engine/pkg/nlp"
	"github.com/sokoflow/soko-engine/pkg/planner"
	sqlguard "github.com/sokoflow/soko-engine/pkg/sql"
	"github.com/sokoflow/soko-engine/pkg/store"
)

const (
	rephraseNarrative = "I'm not sure how to answer that yet. Try asking about your sales, " +
		"products, customers, branches or staff - for example \"what is my total revenue this month\"."
	apologyNarrative = "Sorry, I ran into a problem looking that up. Please try again in a moment."

	noPlanCategory = "no_plan"
)

// DynamicQueryRequest carries one validated free-text question.
type DynamicQueryRequest struct {
	Query          string
	TenantID       string
	BranchID       string
	UserID         string
	ConversationID string
}

// DynamicQueryResult is the engine's answer. QueryType is nil when no plan
// was produced or execution failed.
type DynamicQueryResult struct {
	Response  string
	Insights  []string
	QueryType *string
	RowCount  int
	Columns   []string
}

// DynamicQueryService runs the free-text query pipeline.
type DynamicQueryService interface {
	Process(ctx context.Context, req *DynamicQueryRequest) *DynamicQueryResult
}

type dynamicQueryService struct {
	analyzer  nlp.Analyzer
	planner   *planner.Planner
	executor  store.Executor
	synth     *narrative.Synthesizer
	insights  *narrative.InsightExtractor
	suggester llm.Suggester // nil when OpenAI is not configured
	recorder  InteractionRecorder
	logger    *zap.Logger
}

// InteractionRecorder persists processed interactions. Recording failures
// are logged and never fail the request.
type InteractionRecorder interface {
	RecordInteraction(ctx context.Context, interaction *models.Interaction) error
}

// NewDynamicQueryService creates the pipeline service. suggester and
// recorder may be nil.
func NewDynamicQueryService(
	analyzer nlp.Analyzer,
	plnr *planner.Planner,
	executor store.Executor,
	synth *narrative.Synthesizer,
	insights *narrative.InsightExtractor,
	suggester llm.Suggester,
	recorder InteractionRecorder,
	logger *zap.Logger,
) DynamicQueryService {
	return &dynamicQueryService{
		analyzer:  analyzer,
		planner:   plnr,
		executor:  executor,
		synth:     synth,
		insights:  insights,
		suggester: suggester,
		recorder:  recorder,
		logger:    logger,
	}
}

func (s *dynamicQueryService) Process(ctx context.Context, req *DynamicQueryRequest) *DynamicQueryResult {
	result := s.run(ctx, req)
	s.record(ctx, req, result)
	return result
}

func (s *dynamicQueryService) run(ctx context.Context, req *DynamicQueryRequest) *DynamicQueryResult {
	// Identifiers are always bound as parameters, but a hostile identifier
	// is still worth rejecting and logging before it reaches the store.
	if failures := sqlguard.CheckAllParameters(map[string]any{
		"tenant_id": req.TenantID,
		"branch_id": req.BranchID,
	}); len(failures) > 0 {
		for _, f := range failures {
			s.logger.Warn("Rejected scope identifier failing injection check",
				zap.String("param", f.ParamName),
				zap.String("fingerprint", f.Fingerprint))
		}
		return &DynamicQueryResult{Response: apologyNarrative, Insights: []string{}, Columns: []string{}}
	}

	tokens, entities, err := s.analyzer.Analyze(req.Query)
	if err != nil {
		s.logger.Warn("Text analysis failed, continuing with empty tokens", zap.Error(err))
	}

	analysis := intent.Classify(tokens, entities)
	s.logger.Debug("Classified query",
		zap.String("intent", string(analysis.PrimaryIntent)),
		zap.String("query", logging.SanitizeQuery(req.Query)))

	plan, err := s.planner.Build(analysis, planner.Scope{
		TenantID: req.TenantID,
		BranchID: req.BranchID,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNoPlan) {
			return s.rephraseResult(ctx, req.Query)
		}
		s.logger.Error("Planner failed unexpectedly", zap.Error(err))
		return s.rephraseResult(ctx, req.Query)
	}

	rowset, err := s.executor.Execute(ctx, plan.SQL, plan.Args...)
	if err != nil {
		// Internal detail stays in the log; the caller gets an apology.
		s.logger.Error("Query execution failed",
			zap.String("query_type", string(plan.Type)),
			zap.String("error", logging.SanitizeError(err)))
		return &DynamicQueryResult{Response: apologyNarrative, Insights: []string{}, Columns: []string{}}
	}

	// Narrative and insights are independent stages: a failure in one must
	// not suppress the other.
	response := s.synth.Render(plan.Type, rowset)
	insights := s.insights.Extract(plan.Type, rowset)
	if insights == nil {
		insights = []string{}
	}

	qt := string(plan.Type)
	return &DynamicQueryResult{
		Response:  response,
		Insights:  insights,
		QueryType: &qt,
		RowCount:  len(rowset.Rows),
		Columns:   rowset.Columns,
	}
}

// rephraseResult builds the "please rephrase" answer, appending a model
// suggestion when OpenAI is configured.
func (s *dynamicQueryService) rephraseResult(ctx context.Context, query string) *DynamicQueryResult {
	response := rephraseNarrative
	if s.suggester != nil {
		suggestion, err := s.suggester.SuggestRephrase(ctx, query)
		if err != nil {
			s.logger.Warn("Rephrase suggestion failed", zap.Error(err))
		} else if suggestion != "" {
			response = fmt.Sprintf("%s\n\nDid you mean: %q?", rephraseNarrative, suggestion)
		}
	}
	return &DynamicQueryResult{Response: response, Insights: []string{}, Columns: []string{}}
}

func (s *dynamicQueryService) record(ctx context.Context, req *DynamicQueryRequest, result *DynamicQueryResult) {
	if s.recorder == nil {
		return
	}

	category := noPlanCategory
	if result.QueryType != nil {
		category = *result.QueryType
	}

	interaction := &models.Interaction{
		TenantID:    req.TenantID,
		UserMessage: req.Query,
		Response:    result.Response,
		Category:    category,
	}
	if req.BranchID != "" {
		interaction.BranchID = &req.BranchID
	}
	if req.UserID != "" {
		interaction.UserID = &req.UserID
	}
	if req.ConversationID != "" {
		interaction.ConversationID = &req.ConversationID
	}

	if err := s.recorder.RecordInteraction(ctx, interaction); err != nil {
		s.logger.Warn("Failed to record interaction", zap.Error(err))
	}
}

