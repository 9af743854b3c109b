package narrative

import (
	"fmt"

	"github.com/sokoflow/soko-engine/pkg/planner"
	"github.com/sokoflow/soko-engine/pkg/store"
)

type insightFunc func(rs *store.RowSet) []string

// InsightExtractor derives 0-2 short supplementary observations from the
// same result set the synthesizer renders. It must never fail the request:
// unexpected shapes and internal panics both yield an empty list.
type InsightExtractor struct {
	extractors map[planner.QueryType]insightFunc
}

// NewInsightExtractor creates an extractor with the full observation table.
func NewInsightExtractor() *InsightExtractor {
	return &InsightExtractor{
		extractors: map[planner.QueryType]insightFunc{
			planner.TypeSalesSummary:    salesSummaryInsights,
			planner.TypeTopProducts:     concentrationInsights("revenue", "product"),
			planner.TypeTopCustomers:    concentrationInsights("revenue", "customer"),
			planner.TypeInventoryStatus: inventoryInsights,
			planner.TypeCustomerList:    customerListInsights,
		},
	}
}

// Extract returns at most two observations for the query type, or an empty
// list when none apply.
func (e *InsightExtractor) Extract(qt planner.QueryType, rs *store.RowSet) (out []string) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
		}
	}()

	if rs == nil || len(rs.Rows) == 0 {
		return nil
	}
	fn, ok := e.extractors[qt]
	if !ok {
		return nil
	}

	insights := fn(rs)
	if len(insights) > 2 {
		insights = insights[:2]
	}
	return insights
}

func salesSummaryInsights(rs *store.RowSet) []string {
	row := rs.Rows[0]
	count := cellInt(row, "transaction_count")
	if count == 0 {
		return nil
	}
	total := cellFloat(row, "total_revenue")
	avg := total / float64(count)
	return []string{fmt.Sprintf("Your average transaction value is %s.", formatMoney(avg))}
}

// concentrationInsights reports what share of the listed revenue the top
// entry accounts for.
func concentrationInsights(revenueCol, noun string) insightFunc {
	return func(rs *store.RowSet) []string {
		var total float64
		for _, row := range rs.Rows {
			total += cellFloat(row, revenueCol)
		}
		if total <= 0 {
			return nil
		}

		topShare := cellFloat(rs.Rows[0], revenueCol) / total * 100
		insights := []string{fmt.Sprintf("Your top %s accounts for %s of this revenue.",
			noun, formatPercent(topShare))}
		if topShare > 50 && len(rs.Rows) > 1 {
			insights = append(insights,
				fmt.Sprintf("Revenue is heavily concentrated in one %s; consider broadening your mix.", noun))
		}
		return insights
	}
}

func inventoryInsights(rs *store.RowSet) []string {
	var restock int64
	for _, row := range rs.Rows {
		if cellInt(row, "quantity") < cellInt(row, "minStock") {
			restock++
		}
	}
	if restock == 0 {
		return []string{"All products are at or above their minimum stock levels."}
	}
	verb := "are"
	if restock == 1 {
		verb = "is"
	}
	return []string{fmt.Sprintf("%s %s below minimum stock and should be restocked.",
		countNoun(restock, "product"), verb)}
}

func customerListInsights(rs *store.RowSet) []string {
	var total float64
	for _, row := range rs.Rows {
		total += cellFloat(row, "total_spent")
	}
	if total <= 0 {
		return nil
	}
	avg := total / float64(len(rs.Rows))
	return []string{fmt.Sprintf("Your customers spend %s on average.", formatMoney(avg))}
}
