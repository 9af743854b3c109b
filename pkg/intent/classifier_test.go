package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_PrimaryIntent(t *testing.T) {
	tests := []struct {
		name     string
		tokens   []string
		expected Intent
	}{
		{
			name:     "sales keywords",
			tokens:   []string{"total", "revenue", "last", "month"},
			expected: IntentSales,
		},
		{
			name:     "substring match on plural",
			tokens:   []string{"top", "products"},
			expected: IntentProducts,
		},
		{
			name:     "customer keywords",
			tokens:   []string{"best", "customers"},
			expected: IntentCustomers,
		},
		{
			name:     "branch keywords",
			tokens:   []string{"branches", "nairobi"},
			expected: IntentBranches,
		},
		{
			name:     "business keywords",
			tokens:   []string{"company", "profile"},
			expected: IntentBusiness,
		},
		{
			name:     "no keyword matches",
			tokens:   []string{"hello", "friend"},
			expected: IntentGeneral,
		},
		{
			name:     "empty tokens",
			tokens:   nil,
			expected: IntentGeneral,
		},
		{
			// "sold" hits sales only; "stock" hits products only; sales is
			// declared first so it wins the 1-1 tie.
			name:     "tie goes to first-declared category",
			tokens:   []string{"sold", "stock"},
			expected: IntentSales,
		},
		{
			// "user" appears in both the customers and users keyword sets;
			// customers is declared first.
			name:     "user token ties customers and users",
			tokens:   []string{"user"},
			expected: IntentCustomers,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			analysis := Classify(tt.tokens, nil)
			assert.Equal(t, tt.expected, analysis.PrimaryIntent)
		})
	}
}

func TestClassify_Scores(t *testing.T) {
	analysis := Classify([]string{"sales", "revenue", "product"}, nil)

	assert.Equal(t, 2, analysis.IntentScores[IntentSales])
	assert.Equal(t, 1, analysis.IntentScores[IntentProducts])
	assert.Equal(t, 0, analysis.IntentScores[IntentBranches])
}

func TestClassify_TokenMatchingMultipleKeywordsCountsOnce(t *testing.T) {
	// "sales" contains both "sale" and "sales"; it must count as one token.
	analysis := Classify([]string{"sales"}, nil)
	assert.Equal(t, 1, analysis.IntentScores[IntentSales])
}

func TestClassify_Modifiers(t *testing.T) {
	analysis := Classify([]string{"total", "sales", "today", "month"}, nil)

	assert.True(t, analysis.Aggregation["total"])
	assert.False(t, analysis.Aggregation["average"])
	assert.True(t, analysis.TimeContext["today"])
	assert.True(t, analysis.TimeContext["month"])
	assert.False(t, analysis.TimeContext["yesterday"])
}

func TestClassify_EmptyInput(t *testing.T) {
	analysis := Classify(nil, nil)

	require.NotNil(t, analysis)
	assert.Equal(t, IntentGeneral, analysis.PrimaryIntent)
	assert.Empty(t, analysis.TimeContext)
	assert.Empty(t, analysis.Aggregation)
}

func TestClassify_Deterministic(t *testing.T) {
	tokens := []string{"top", "selling", "products", "this", "month"}

	first := Classify(tokens, nil)
	for i := 0; i < 10; i++ {
		again := Classify(tokens, nil)
		assert.Equal(t, first.PrimaryIntent, again.PrimaryIntent)
		assert.Equal(t, first.IntentScores, again.IntentScores)
		assert.Equal(t, first.TimeContext, again.TimeContext)
		assert.Equal(t, first.Aggregation, again.Aggregation)
	}
}

func TestHasSuperlative(t *testing.T) {
	assert.True(t, Classify([]string{"top", "products"}, nil).HasSuperlative())
	assert.True(t, Classify([]string{"best", "customers"}, nil).HasSuperlative())
	assert.False(t, Classify([]string{"list", "products"}, nil).HasSuperlative())
}
