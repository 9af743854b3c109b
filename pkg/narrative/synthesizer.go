// Package narrative turns tabular query results into human-readable prose
// and short supplementary insights. Rendering is a dispatch over the closed
// set of query types so each template stays independently testable.
package narrative

import (
	"fmt"
	"strings"
	"time"

	"github.com/sokoflow/soko-engine/pkg/planner"
	"github.com/sokoflow/soko-engine/pkg/store"
)

// FormattingErrorNarrative is returned when a template panics on an
// unexpected data shape. Synthesis failures never fail the request.
const FormattingErrorNarrative = "I ran into a problem formatting your answer. Please try asking again."

type renderFunc func(rs *store.RowSet) string

// Synthesizer renders one narrative per query type.
type Synthesizer struct {
	renderers map[planner.QueryType]renderFunc
}

// NewSynthesizer creates a synthesizer with the full template table.
func NewSynthesizer() *Synthesizer {
	return &Synthesizer{
		renderers: map[planner.QueryType]renderFunc{
			planner.TypeSalesSummary:    renderSalesSummary,
			planner.TypeSalesAverage:    renderSalesAverage,
			planner.TypeSalesList:       renderSalesList,
			planner.TypeTopProducts:     renderTopProducts,
			planner.TypeInventoryStatus: renderInventoryStatus,
			planner.TypeTopCustomers:    renderTopCustomers,
			planner.TypeCustomerList:    renderCustomerList,
			planner.TypeBranchList:      renderBranchList,
			planner.TypeUserList:        renderUserList,
			planner.TypeBusinessInfo:    renderBusinessInfo,
			planner.TypeCountSales:      renderCountSales,
			planner.TypeCountProducts:   renderCountProducts,
			planner.TypeCountCustomers:  renderCountCustomers,
			planner.TypeGeneralCount:    renderGeneralCount,
		},
	}
}

// Render produces the narrative for a result set. Unknown query types fall
// back to a generic row/column description. A panicking template yields
// FormattingErrorNarrative instead of propagating.
func (s *Synthesizer) Render(qt planner.QueryType, rs *store.RowSet) (out string) {
	defer func() {
		if r := recover(); r != nil {
			out = FormattingErrorNarrative
		}
	}()

	if rs == nil {
		rs = &store.RowSet{}
	}
	if fn, ok := s.renderers[qt]; ok {
		return fn(rs)
	}
	return renderGeneric(rs)
}

func renderSalesSummary(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "I couldn't find any sales for that period, so there's no revenue to summarize yet."
	}
	row := rs.Rows[0]
	count := cellInt(row, "transaction_count")
	if count == 0 {
		return "I couldn't find any sales for that period, so there's no revenue to summarize yet."
	}
	total := cellFloat(row, "total_revenue")
	return fmt.Sprintf("Your total revenue is %s across %s.",
		formatMoney(total), countNoun(count, "sale"))
}

func renderSalesAverage(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "I couldn't find any sales to average for that period."
	}
	row := rs.Rows[0]
	count := cellInt(row, "transaction_count")
	if count == 0 {
		return "I couldn't find any sales to average for that period."
	}
	avg := cellFloat(row, "average_sale")
	return fmt.Sprintf("Your average sale value is %s over %s.",
		formatMoney(avg), countNoun(count, "sale"))
}

func renderSalesList(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "No sales records found for that period."
	}

	var b strings.Builder
	if len(rs.Rows) == 1 {
		b.WriteString("Here is your most recent sale:\n")
	} else {
		fmt.Fprintf(&b, "Here are your %d most recent sales:\n", len(rs.Rows))
	}
	for i, row := range rs.Rows {
		customer := toString(row["customerName"])
		if customer == "" {
			customer = "walk-in customer"
		}
		fmt.Fprintf(&b, "%d. %s — %s (%s)\n",
			i+1, formatMoney(cellFloat(row, "total")), customer, formatDate(row["createdAt"]))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderTopProducts(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "No product sales found for that period yet, so there are no top sellers to report."
	}

	var b strings.Builder
	b.WriteString("Your top selling products:\n")
	for i, row := range rs.Rows {
		fmt.Fprintf(&b, "%d. %s — %s sold, %s in revenue\n",
			i+1, toString(row["name"]),
			countNoun(cellInt(row, "units_sold"), "unit"),
			formatMoney(cellFloat(row, "revenue")))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderInventoryStatus(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "No inventory records found for your business."
	}

	var low, out int
	var attention []string
	for _, row := range rs.Rows {
		qty := cellInt(row, "quantity")
		min := cellInt(row, "minStock")
		switch {
		case qty == 0:
			out++
			attention = append(attention, fmt.Sprintf("• %s is out of stock", toString(row["name"])))
		case qty < min:
			low++
			attention = append(attention, fmt.Sprintf("• %s: %d left (minimum %d)", toString(row["name"]), qty, min))
		}
	}
	stocked := len(rs.Rows) - low - out

	var b strings.Builder
	fmt.Fprintf(&b, "Inventory status for %s: %d well-stocked, %d running low, %d out of stock.",
		countNoun(int64(len(rs.Rows)), "product"), stocked, low, out)
	if len(attention) > 0 {
		b.WriteString("\n\nNeeds attention:\n")
		if len(attention) > 5 {
			attention = attention[:5]
		}
		b.WriteString(strings.Join(attention, "\n"))
	}
	return b.String()
}

func renderTopCustomers(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "No customer purchases found for that period yet."
	}

	var b strings.Builder
	b.WriteString("Your top customers by spend:\n")
	for i, row := range rs.Rows {
		fmt.Fprintf(&b, "%d. %s — %s over %s\n",
			i+1, toString(row["customerName"]),
			formatMoney(cellFloat(row, "revenue")),
			countNoun(cellInt(row, "purchases"), "purchase"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCustomerList(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "I couldn't find any named customers in your sales records yet."
	}

	// Tier customers against the average spend: high value above 2x the
	// average, low value below half of it.
	var totalSpend float64
	for _, row := range rs.Rows {
		totalSpend += cellFloat(row, "total_spent")
	}
	avg := totalSpend / float64(len(rs.Rows))

	var high, regular, low int
	for _, row := range rs.Rows {
		spent := cellFloat(row, "total_spent")
		switch {
		case spent >= avg*2:
			high++
		case spent < avg/2:
			low++
		default:
			regular++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "You have %s on record: %d high-value, %d regular, %d low-value.\n",
		countNoun(int64(len(rs.Rows)), "customer"), high, regular, low)
	for _, row := range rs.Rows {
		fmt.Fprintf(&b, "• %s: %s, %s\n",
			toString(row["customerName"]),
			countNoun(cellInt(row, "purchases"), "purchase"),
			formatMoney(cellFloat(row, "total_spent")))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderBranchList(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "No branches found for your business."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your business has %s:\n", countNoun(int64(len(rs.Rows)), "branch"))
	for i, row := range rs.Rows {
		line := fmt.Sprintf("%d. %s", i+1, toString(row["name"]))
		if city := toString(row["city"]); city != "" {
			line += " — " + city
			if country := toString(row["country"]); country != "" {
				line += ", " + country
			}
		}
		if isMain, ok := row["isMainBranch"].(bool); ok && isMain {
			line += " (main branch)"
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderUserList(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "No staff accounts found for your business."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Your team has %s:\n", countNoun(int64(len(rs.Rows)), "member"))
	for _, row := range rs.Rows {
		fmt.Fprintf(&b, "• %s (%s)\n", toString(row["name"]), toString(row["email"]))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderBusinessInfo(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "I couldn't find a business profile for your account."
	}
	row := rs.Rows[0]

	var b strings.Builder
	fmt.Fprintf(&b, "Business profile for %s:\n", toString(row["name"]))
	if v := toString(row["businessType"]); v != "" {
		fmt.Fprintf(&b, "• Type: %s\n", v)
	}
	if city := toString(row["city"]); city != "" {
		loc := city
		if country := toString(row["country"]); country != "" {
			loc += ", " + country
		}
		fmt.Fprintf(&b, "• Location: %s\n", loc)
	}
	if v := toString(row["contactEmail"]); v != "" {
		fmt.Fprintf(&b, "• Contact: %s\n", v)
	}
	if v := toString(row["website"]); v != "" {
		fmt.Fprintf(&b, "• Website: %s\n", v)
	}
	if year := cellInt(row, "foundedYear"); year > 0 {
		fmt.Fprintf(&b, "• Founded: %d\n", year)
	}
	if count := cellInt(row, "employeeCount"); count > 0 {
		fmt.Fprintf(&b, "• Employees: %d\n", count)
	}
	if v := toString(row["businessDescription"]); v != "" {
		fmt.Fprintf(&b, "• About: %s\n", v)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCountSales(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "I couldn't find any sales records to count."
	}
	return fmt.Sprintf("You have recorded %s.", countNoun(cellInt(rs.Rows[0], "count"), "sale"))
}

func renderCountProducts(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "I couldn't find any products to count."
	}
	return fmt.Sprintf("You have %s in your catalog.", countNoun(cellInt(rs.Rows[0], "count"), "product"))
}

func renderCountCustomers(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "I couldn't find any customers to count."
	}
	return fmt.Sprintf("You have %s on record.", countNoun(cellInt(rs.Rows[0], "count"), "customer"))
}

func renderGeneralCount(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "I couldn't find any transactions for your business yet."
	}
	return fmt.Sprintf("I found %s for your business.", countNoun(cellInt(rs.Rows[0], "count"), "transaction"))
}

// renderGeneric handles unrecognized query types: row count plus the first
// five column names with an overflow note.
func renderGeneric(rs *store.RowSet) string {
	if len(rs.Rows) == 0 {
		return "I couldn't find any matching data for your question."
	}

	cols := rs.Columns
	overflow := ""
	if len(cols) > 5 {
		overflow = fmt.Sprintf(" (and %d more)", len(cols)-5)
		cols = cols[:5]
	}
	return fmt.Sprintf("I found %s with columns: %s%s.",
		countNoun(int64(len(rs.Rows)), "row"), strings.Join(cols, ", "), overflow)
}

func formatDate(v any) string {
	if t, ok := v.(time.Time); ok {
		return t.Format("2 Jan 2006")
	}
	return toString(v)
}
