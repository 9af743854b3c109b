package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sokoflow/soko-engine/pkg/llm"
	"github.com/sokoflow/soko-engine/pkg/models"
	"github.com/sokoflow/soko-engine/pkg/narrative"
	"github.com/sokoflow/soko-engine/pkg/nlp"
	"github.com/sokoflow/soko-engine/pkg/planner"
	"github.com/sokoflow/soko-engine/pkg/store"
)

// fieldsAnalyzer is a deterministic stand-in for the prose-backed analyzer:
// lowercase whitespace tokens, no entities.
type fieldsAnalyzer struct{}

func (fieldsAnalyzer) Analyze(text string) ([]string, []nlp.Entity, error) {
	return strings.Fields(strings.ToLower(text)), nil, nil
}

type failingAnalyzer struct{}

func (failingAnalyzer) Analyze(text string) ([]string, []nlp.Entity, error) {
	return nil, nil, errors.New("segmenter unavailable")
}

type stubExecutor struct {
	rowset *store.RowSet
	err    error

	lastSQL  string
	lastArgs []any
	calls    int
}

func (e *stubExecutor) Execute(ctx context.Context, sql string, args ...any) (*store.RowSet, error) {
	e.calls++
	e.lastSQL = sql
	e.lastArgs = args
	if e.err != nil {
		return nil, e.err
	}
	return e.rowset, nil
}

type stubRecorder struct {
	recorded []*models.Interaction
	err      error
}

func (r *stubRecorder) RecordInteraction(ctx context.Context, interaction *models.Interaction) error {
	r.recorded = append(r.recorded, interaction)
	return r.err
}

type stubSuggester struct {
	suggestion string
	err        error
}

func (s *stubSuggester) SuggestRephrase(ctx context.Context, query string) (string, error) {
	return s.suggestion, s.err
}

func newTestService(exec store.Executor, recorder InteractionRecorder, suggester *stubSuggester) DynamicQueryService {
	var sg llm.Suggester
	if suggester != nil {
		sg = suggester
	}
	return NewDynamicQueryService(
		fieldsAnalyzer{},
		planner.New(),
		exec,
		narrative.NewSynthesizer(),
		narrative.NewInsightExtractor(),
		sg,
		recorder,
		zap.NewNop(),
	)
}

func TestProcessTopProducts(t *testing.T) {
	exec := &stubExecutor{rowset: &store.RowSet{
		Columns: []string{"name", "units_sold", "revenue"},
		Rows: []map[string]any{
			{"name": "Maize flour", "units_sold": int64(120), "revenue": float64(60000)},
			{"name": "Cooking oil", "units_sold": int64(45), "revenue": float64(30000)},
			{"name": "Sugar", "units_sold": int64(30), "revenue": float64(10000)},
		},
	}}
	recorder := &stubRecorder{}
	svc := newTestService(exec, recorder, nil)

	result := svc.Process(context.Background(), &DynamicQueryRequest{
		Query:    "what were my best selling products this month",
		TenantID: "tenant-1",
		UserID:   "user-7",
	})

	require.NotNil(t, result.QueryType)
	assert.Equal(t, "top_products", *result.QueryType)
	assert.LessOrEqual(t, result.RowCount, 10)
	assert.Contains(t, result.Response, "Maize flour")
	assert.Contains(t, result.Response, "Ksh 60,000")

	// Revenue concentration: 60000 of 100000.
	require.NotEmpty(t, result.Insights)
	assert.Contains(t, result.Insights[0], "60.0%")

	// Tenant scoping reaches the executor as a bound parameter.
	assert.Contains(t, exec.lastSQL, `"tenantId" = $1`)
	assert.NotContains(t, exec.lastSQL, "tenant-1")
	require.NotEmpty(t, exec.lastArgs)
	assert.Equal(t, "tenant-1", exec.lastArgs[0])

	// The interaction is recorded with the plan's category.
	require.Len(t, recorder.recorded, 1)
	rec := recorder.recorded[0]
	assert.Equal(t, "tenant-1", rec.TenantID)
	assert.Equal(t, "top_products", rec.Category)
	require.NotNil(t, rec.UserID)
	assert.Equal(t, "user-7", *rec.UserID)
	assert.Nil(t, rec.BranchID)
}

func TestProcessUnscopedRequestYieldsRephrase(t *testing.T) {
	// An empty tenant cannot be planned for; the transport layer rejects it
	// with a 400, but the service still answers conversationally.
	exec := &stubExecutor{}
	recorder := &stubRecorder{}
	svc := newTestService(exec, recorder, nil)

	result := svc.Process(context.Background(), &DynamicQueryRequest{
		Query: "show me total sales",
	})

	assert.Nil(t, result.QueryType)
	assert.Equal(t, rephraseNarrative, result.Response)
	assert.Empty(t, result.Insights)
	assert.Zero(t, exec.calls, "no statement should be executed without a plan")

	require.Len(t, recorder.recorded, 1)
	assert.Equal(t, noPlanCategory, recorder.recorded[0].Category)
}

func TestProcessNoPlanAppendsSuggestion(t *testing.T) {
	svc := newTestService(&stubExecutor{}, nil, &stubSuggester{suggestion: "what were my sales today"})

	result := svc.Process(context.Background(), &DynamicQueryRequest{
		Query: "greetings machine",
	})

	assert.Nil(t, result.QueryType)
	assert.Contains(t, result.Response, rephraseNarrative)
	assert.Contains(t, result.Response, `Did you mean: "what were my sales today"?`)
}

func TestProcessSuggesterFailureFallsBack(t *testing.T) {
	svc := newTestService(&stubExecutor{}, nil, &stubSuggester{err: errors.New("rate limited")})

	result := svc.Process(context.Background(), &DynamicQueryRequest{
		Query: "greetings machine",
	})

	assert.Equal(t, rephraseNarrative, result.Response)
}

func TestProcessUnrelatedQuestionFallsBackToGeneralCount(t *testing.T) {
	exec := &stubExecutor{rowset: &store.RowSet{
		Columns: []string{"count"},
		Rows:    []map[string]any{{"count": int64(42)}},
	}}
	svc := newTestService(exec, nil, nil)

	result := svc.Process(context.Background(), &DynamicQueryRequest{
		Query:    "what is the meaning of life",
		TenantID: "tenant-1",
	})

	require.NotNil(t, result.QueryType)
	assert.Equal(t, "general_count", *result.QueryType)
	assert.Contains(t, result.Response, "42")
}

func TestProcessExecutionFailureYieldsApology(t *testing.T) {
	exec := &stubExecutor{err: errors.New(`connection to "db:5432" refused`)}
	svc := newTestService(exec, nil, nil)

	result := svc.Process(context.Background(), &DynamicQueryRequest{
		Query:    "show me total sales",
		TenantID: "tenant-1",
	})

	assert.Nil(t, result.QueryType)
	assert.Equal(t, apologyNarrative, result.Response)
	assert.Empty(t, result.Insights)
	assert.NotContains(t, result.Response, "db:5432")
}

func TestProcessHostileTenantIDRejected(t *testing.T) {
	exec := &stubExecutor{}
	svc := newTestService(exec, nil, nil)

	result := svc.Process(context.Background(), &DynamicQueryRequest{
		Query:    "show me total sales",
		TenantID: "x' OR '1'='1",
	})

	assert.Equal(t, apologyNarrative, result.Response)
	assert.Zero(t, exec.calls)
}

func TestProcessAnalyzerFailureDegradesToGeneralCount(t *testing.T) {
	exec := &stubExecutor{rowset: &store.RowSet{
		Columns: []string{"count"},
		Rows:    []map[string]any{{"count": int64(3)}},
	}}
	svc := NewDynamicQueryService(
		failingAnalyzer{},
		planner.New(),
		exec,
		narrative.NewSynthesizer(),
		narrative.NewInsightExtractor(),
		nil,
		nil,
		zap.NewNop(),
	)

	result := svc.Process(context.Background(), &DynamicQueryRequest{
		Query:    "show me total sales",
		TenantID: "tenant-1",
	})

	// No tokens means a general fallback, never a hard failure.
	require.NotNil(t, result.QueryType)
	assert.Equal(t, "general_count", *result.QueryType)
}

func TestProcessRecorderFailureDoesNotFailRequest(t *testing.T) {
	exec := &stubExecutor{rowset: &store.RowSet{
		Columns: []string{"total_revenue", "transaction_count", "avg_sale"},
		Rows: []map[string]any{
			{"total_revenue": float64(500), "transaction_count": int64(2), "avg_sale": float64(250)},
		},
	}}
	recorder := &stubRecorder{err: errors.New("insert failed")}
	svc := newTestService(exec, recorder, nil)

	result := svc.Process(context.Background(), &DynamicQueryRequest{
		Query:    "total revenue",
		TenantID: "tenant-1",
	})

	require.NotNil(t, result.QueryType)
	assert.Equal(t, "sales_summary", *result.QueryType)
	assert.Len(t, recorder.recorded, 1)
}

func TestProcessIsDeterministic(t *testing.T) {
	exec := &stubExecutor{rowset: &store.RowSet{
		Columns: []string{"name", "units_sold", "revenue"},
		Rows: []map[string]any{
			{"name": "Maize flour", "units_sold": int64(120), "revenue": float64(60000)},
			{"name": "Sugar", "units_sold": int64(30), "revenue": float64(40000)},
		},
	}}
	svc := newTestService(exec, nil, nil)

	req := &DynamicQueryRequest{Query: "top products this week", TenantID: "tenant-1"}
	first := svc.Process(context.Background(), req)
	second := svc.Process(context.Background(), req)

	assert.Equal(t, first.Response, second.Response)
	assert.Equal(t, first.Insights, second.Insights)
	assert.Equal(t, first.QueryType, second.QueryType)
}
