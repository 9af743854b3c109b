package narrative

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sokoflow/soko-engine/pkg/planner"
	"github.com/sokoflow/soko-engine/pkg/store"
)

func rowset(columns []string, rows ...map[string]any) *store.RowSet {
	return &store.RowSet{Columns: columns, Rows: rows}
}

func TestRender_SalesSummary(t *testing.T) {
	s := NewSynthesizer()

	rs := rowset([]string{"total_revenue", "transaction_count"},
		map[string]any{"total_revenue": 125000.0, "transaction_count": int64(42)})

	out := s.Render(planner.TypeSalesSummary, rs)
	assert.Contains(t, out, "Ksh 125,000")
	assert.Contains(t, out, "42 sales")
}

func TestRender_SalesSummary_Empty(t *testing.T) {
	s := NewSynthesizer()

	empty := s.Render(planner.TypeSalesSummary, rowset([]string{"total_revenue", "transaction_count"}))
	zeroCount := s.Render(planner.TypeSalesSummary,
		rowset([]string{"total_revenue", "transaction_count"},
			map[string]any{"total_revenue": 0.0, "transaction_count": int64(0)}))

	populated := s.Render(planner.TypeSalesSummary,
		rowset([]string{"total_revenue", "transaction_count"},
			map[string]any{"total_revenue": 10.0, "transaction_count": int64(1)}))

	assert.Contains(t, empty, "couldn't find any sales")
	assert.Equal(t, empty, zeroCount)
	assert.NotEqual(t, empty, populated, "no-data narrative must differ from the populated one")
}

func TestRender_SalesAverage(t *testing.T) {
	s := NewSynthesizer()

	rs := rowset([]string{"average_sale", "transaction_count"},
		map[string]any{"average_sale": 2500.5, "transaction_count": int64(8)})

	out := s.Render(planner.TypeSalesAverage, rs)
	assert.Contains(t, out, "Ksh 2,500.50")
	assert.Contains(t, out, "8 sales")
}

func TestRender_SalesList(t *testing.T) {
	s := NewSynthesizer()

	rs := rowset([]string{"id", "total", "customerName", "createdAt"},
		map[string]any{"id": "s1", "total": 2500.0, "customerName": "Jane Wanjiku", "createdAt": time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)},
		map[string]any{"id": "s2", "total": 800.0, "customerName": "", "createdAt": time.Date(2026, 8, 11, 9, 0, 0, 0, time.UTC)},
	)

	out := s.Render(planner.TypeSalesList, rs)
	assert.Contains(t, out, "Here are your 2 most recent sales:")
	assert.Contains(t, out, "Jane Wanjiku")
	assert.Contains(t, out, "walk-in customer")
	assert.Contains(t, out, "12 Aug 2026")

	single := rowset([]string{"id", "total", "customerName", "createdAt"},
		map[string]any{"id": "s1", "total": 2500.0, "customerName": "Jane Wanjiku", "createdAt": time.Date(2026, 8, 12, 10, 0, 0, 0, time.UTC)},
	)
	assert.Contains(t, s.Render(planner.TypeSalesList, single), "Here is your most recent sale:")
}

func TestRender_TopProducts(t *testing.T) {
	s := NewSynthesizer()

	rs := rowset([]string{"name", "units_sold", "revenue"},
		map[string]any{"name": "Maize Flour 2kg", "units_sold": int64(120), "revenue": 54000.0},
		map[string]any{"name": "Cooking Oil 1L", "units_sold": int64(45), "revenue": 31500.0},
	)

	out := s.Render(planner.TypeTopProducts, rs)
	assert.Contains(t, out, "1. Maize Flour 2kg")
	assert.Contains(t, out, "120 units sold")
	assert.Contains(t, out, "Ksh 54,000")
	assert.Contains(t, out, "2. Cooking Oil 1L")
}

func TestRender_InventoryStatus(t *testing.T) {
	s := NewSynthesizer()

	rs := rowset([]string{"name", "quantity", "minStock", "maxStock"},
		map[string]any{"name": "Sugar 1kg", "quantity": int64(50), "minStock": int64(10)},
		map[string]any{"name": "Bread", "quantity": int64(2), "minStock": int64(20)},
		map[string]any{"name": "Milk 500ml", "quantity": int64(0), "minStock": int64(30)},
	)

	out := s.Render(planner.TypeInventoryStatus, rs)
	assert.Contains(t, out, "1 well-stocked")
	assert.Contains(t, out, "1 running low")
	assert.Contains(t, out, "1 out of stock")
	assert.Contains(t, out, "Bread: 2 left (minimum 20)")
	assert.Contains(t, out, "Milk 500ml is out of stock")
}

func TestRender_CustomerList_Tiers(t *testing.T) {
	s := NewSynthesizer()

	// Average spend is 5,175: Amina is above 2x it, Brian below half.
	rs := rowset([]string{"customerName", "purchases", "total_spent"},
		map[string]any{"customerName": "Amina", "purchases": int64(10), "total_spent": int64(15000)},
		map[string]any{"customerName": "Brian", "purchases": int64(1), "total_spent": int64(100)},
		map[string]any{"customerName": "Carol", "purchases": int64(2), "total_spent": int64(3000)},
		map[string]any{"customerName": "David", "purchases": int64(1), "total_spent": int64(2600)},
	)

	out := s.Render(planner.TypeCustomerList, rs)
	assert.Contains(t, out, "4 customers")
	assert.Contains(t, out, "1 high-value")
	assert.Contains(t, out, "2 regular")
	assert.Contains(t, out, "1 low-value")
}

func TestRender_Counts(t *testing.T) {
	s := NewSynthesizer()

	tests := []struct {
		qt       planner.QueryType
		expected string
	}{
		{planner.TypeCountSales, "42 sales"},
		{planner.TypeCountProducts, "42 products"},
		{planner.TypeCountCustomers, "42 customers"},
		{planner.TypeGeneralCount, "42 transactions"},
	}

	for _, tt := range tests {
		t.Run(string(tt.qt), func(t *testing.T) {
			out := s.Render(tt.qt, rowset([]string{"count"}, map[string]any{"count": int64(42)}))
			assert.Contains(t, out, tt.expected, "narrative must contain the literal count")
		})
	}
}

func TestRender_CountSingular(t *testing.T) {
	s := NewSynthesizer()

	out := s.Render(planner.TypeCountCustomers, rowset([]string{"count"}, map[string]any{"count": int64(1)}))
	assert.Contains(t, out, "1 customer")
	assert.NotContains(t, out, "1 customers")
}

func TestRender_BusinessInfo(t *testing.T) {
	s := NewSynthesizer()

	rs := rowset([]string{"name", "businessType", "city", "country", "foundedYear", "employeeCount"},
		map[string]any{
			"name": "Mama Njeri Stores", "businessType": "Retail",
			"city": "Nakuru", "country": "Kenya",
			"foundedYear": int64(2015), "employeeCount": int64(12),
		})

	out := s.Render(planner.TypeBusinessInfo, rs)
	assert.Contains(t, out, "Mama Njeri Stores")
	assert.Contains(t, out, "Nakuru, Kenya")
	assert.Contains(t, out, "Founded: 2015")
	assert.Contains(t, out, "Employees: 12")
}

func TestRender_BranchList(t *testing.T) {
	s := NewSynthesizer()

	rs := rowset([]string{"id", "name", "city", "country", "isMainBranch"},
		map[string]any{"id": "b1", "name": "CBD Shop", "city": "Nairobi", "country": "Kenya", "isMainBranch": true},
		map[string]any{"id": "b2", "name": "Westlands", "city": "Nairobi", "country": "Kenya", "isMainBranch": false},
	)

	out := s.Render(planner.TypeBranchList, rs)
	assert.Contains(t, out, "2 branches")
	assert.Contains(t, out, "CBD Shop — Nairobi, Kenya (main branch)")
	assert.NotContains(t, out, "Westlands — Nairobi, Kenya (main branch)")
}

func TestRender_UnknownTypeFallsBackToGeneric(t *testing.T) {
	s := NewSynthesizer()

	rs := rowset([]string{"a", "b", "c", "d", "e", "f", "g"},
		map[string]any{"a": 1}, map[string]any{"a": 2})

	out := s.Render(planner.QueryType("mystery"), rs)
	assert.Contains(t, out, "2 rows")
	assert.Contains(t, out, "a, b, c, d, e")
	assert.Contains(t, out, "(and 2 more)")
	assert.NotContains(t, out, "f,")
}

func TestRender_EmptyRowsNeverPanics(t *testing.T) {
	s := NewSynthesizer()

	types := []planner.QueryType{
		planner.TypeSalesSummary, planner.TypeSalesAverage, planner.TypeSalesList,
		planner.TypeTopProducts, planner.TypeInventoryStatus, planner.TypeTopCustomers,
		planner.TypeCustomerList, planner.TypeBranchList, planner.TypeUserList,
		planner.TypeBusinessInfo, planner.TypeCountSales, planner.TypeCountProducts,
		planner.TypeCountCustomers, planner.TypeGeneralCount, planner.QueryType("mystery"),
	}

	for _, qt := range types {
		out := s.Render(qt, rowset(nil))
		require.NotEmpty(t, out, "query type %s must yield a no-data narrative", qt)
		assert.NotEqual(t, FormattingErrorNarrative, out)
	}
}

func TestRender_NilRowSet(t *testing.T) {
	s := NewSynthesizer()
	out := s.Render(planner.TypeSalesSummary, nil)
	assert.NotEmpty(t, out)
}

func TestRender_Idempotent(t *testing.T) {
	s := NewSynthesizer()
	rs := rowset([]string{"total_revenue", "transaction_count"},
		map[string]any{"total_revenue": 99.5, "transaction_count": int64(3)})

	first := s.Render(planner.TypeSalesSummary, rs)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, s.Render(planner.TypeSalesSummary, rs))
	}
}
