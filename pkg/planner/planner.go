// Package planner maps a classified question plus its tenant scope to one
// concrete parameterized SQL plan. Tenant and branch identifiers and all
// computed time bounds are bound as query parameters, never interpolated
// into the statement text.
package planner

import (
	"fmt"
	"time"

	"github.com/sokoflow/soko-engine/pkg/apperrors"
	"github.com/sokoflow/soko-engine/pkg/intent"
)

// QueryType tags a plan with the narrative template that renders its result.
type QueryType string

const (
	TypeSalesSummary    QueryType = "sales_summary"
	TypeSalesAverage    QueryType = "sales_average"
	TypeSalesList       QueryType = "sales_list"
	TypeTopProducts     QueryType = "top_products"
	TypeInventoryStatus QueryType = "inventory_status"
	TypeTopCustomers    QueryType = "top_customers"
	TypeCustomerList    QueryType = "customer_list"
	TypeBranchList      QueryType = "branch_list"
	TypeUserList        QueryType = "user_list"
	TypeBusinessInfo    QueryType = "business_info"
	TypeCountSales      QueryType = "count_sales"
	TypeCountProducts   QueryType = "count_products"
	TypeCountCustomers  QueryType = "count_customers"
	TypeGeneralCount    QueryType = "general_count"
)

// Scope identifies the tenant (required) and branch (optional) every plan
// is restricted to.
type Scope struct {
	TenantID string
	BranchID string
}

// Plan is a parameterized, scoped query expression ready for execution.
type Plan struct {
	Type QueryType
	SQL  string
	Args []any
}

// Planner builds plans. The clock is injectable so time-window tests are
// reproducible.
type Planner struct {
	now func() time.Time
}

// New creates a planner using the wall clock.
func New() *Planner {
	return &Planner{now: time.Now}
}

// NewWithClock creates a planner with a fixed clock source.
func NewWithClock(now func() time.Time) *Planner {
	return &Planner{now: now}
}

// stmt accumulates a SQL statement's positional parameters.
type stmt struct {
	args []any
}

// bind registers a parameter value and returns its $n placeholder.
func (s *stmt) bind(v any) string {
	s.args = append(s.args, v)
	return fmt.Sprintf("$%d", len(s.args))
}

// Build derives a plan from the analysis and scope. It returns
// apperrors.ErrNoPlan when no plan can be constructed; callers must treat
// that as "ask the user to rephrase", not as a failure.
func (p *Planner) Build(analysis *intent.QueryAnalysis, scope Scope) (*Plan, error) {
	if analysis == nil || scope.TenantID == "" {
		return nil, apperrors.ErrNoPlan
	}

	// Counting questions ("how many X", "count of X", "number of X") win
	// over the plain intent dispatch so that "how many customers do I have"
	// produces a count, not a customer listing. A superlative overrides the
	// count: "how many top products" is still a top-products question.
	if !analysis.HasSuperlative() {
		if qt, ok := p.countingPlanType(analysis); ok {
			return p.buildByType(qt, analysis, scope)
		}
	}

	switch analysis.PrimaryIntent {
	case intent.IntentSales:
		switch {
		case analysis.Aggregation["total"] || analysis.Aggregation["sum"]:
			return p.buildByType(TypeSalesSummary, analysis, scope)
		case analysis.Aggregation["average"]:
			return p.buildByType(TypeSalesAverage, analysis, scope)
		default:
			return p.buildByType(TypeSalesList, analysis, scope)
		}
	case intent.IntentProducts:
		if analysis.HasSuperlative() {
			return p.buildByType(TypeTopProducts, analysis, scope)
		}
		return p.buildByType(TypeInventoryStatus, analysis, scope)
	case intent.IntentCustomers:
		if analysis.HasSuperlative() {
			return p.buildByType(TypeTopCustomers, analysis, scope)
		}
		return p.buildByType(TypeCustomerList, analysis, scope)
	case intent.IntentBranches:
		return p.buildByType(TypeBranchList, analysis, scope)
	case intent.IntentUsers:
		return p.buildByType(TypeUserList, analysis, scope)
	case intent.IntentBusiness:
		return p.buildByType(TypeBusinessInfo, analysis, scope)
	default:
		return p.buildByType(TypeGeneralCount, analysis, scope)
	}
}

// countingPlanType detects counting questions and picks the counted domain.
func (p *Planner) countingPlanType(analysis *intent.QueryAnalysis) (QueryType, bool) {
	counting := analysis.Aggregation["count"] ||
		analysis.HasToken("number") ||
		(analysis.HasToken("how") && analysis.HasToken("many"))
	if !counting {
		return "", false
	}

	switch {
	case analysis.HasToken("sale"), analysis.HasToken("transaction"):
		return TypeCountSales, true
	case analysis.HasToken("product"), analysis.HasToken("item"):
		return TypeCountProducts, true
	case analysis.HasToken("customer"), analysis.HasToken("client"):
		return TypeCountCustomers, true
	}

	if analysis.PrimaryIntent == intent.IntentGeneral {
		return TypeGeneralCount, true
	}
	return "", false
}

func (p *Planner) buildByType(qt QueryType, analysis *intent.QueryAnalysis, scope Scope) (*Plan, error) {
	s := &stmt{}

	var sql string
	switch qt {
	case TypeSalesSummary:
		sql = fmt.Sprintf(
			`SELECT COALESCE(SUM(total), 0) AS total_revenue, COUNT(*) AS transaction_count FROM "Sale" WHERE %s%s`,
			tenantScope(s, scope), timeWindow(s, analysis, p.now()))
	case TypeSalesAverage:
		sql = fmt.Sprintf(
			`SELECT COALESCE(AVG(total), 0) AS average_sale, COUNT(*) AS transaction_count FROM "Sale" WHERE %s%s`,
			tenantScope(s, scope), timeWindow(s, analysis, p.now()))
	case TypeSalesList:
		sql = fmt.Sprintf(
			`SELECT id, total, "customerName", "createdAt" FROM "Sale" WHERE %s%s ORDER BY "createdAt" DESC LIMIT 20`,
			tenantScope(s, scope), timeWindow(s, analysis, p.now()))
	case TypeTopProducts:
		sql = fmt.Sprintf(
			`SELECT p.name, SUM(si.quantity) AS units_sold, SUM(si.quantity * si.price) AS revenue `+
				`FROM "SaleItem" si `+
				`JOIN "Sale" s ON si."saleId" = s.id `+
				`JOIN "Product" p ON si."productId" = p.id `+
				`WHERE %s%s GROUP BY p.name ORDER BY revenue DESC LIMIT 10`,
			aliasedTenantScope(s, scope, "s"), aliasedTimeWindow(s, analysis, p.now(), "s"))
	case TypeInventoryStatus:
		sql = fmt.Sprintf(
			`SELECT p.name, i.quantity, i."minStock", i."maxStock" `+
				`FROM "Inventory" i `+
				`JOIN "Product" p ON i."productId" = p.id `+
				`WHERE %s ORDER BY p.name`,
			aliasedTenantScope(s, scope, "i"))
	case TypeTopCustomers:
		sql = fmt.Sprintf(
			`SELECT "customerName", SUM(total) AS revenue, COUNT(*) AS purchases FROM "Sale" `+
				`WHERE %s%s AND "customerName" IS NOT NULL AND "customerName" <> '' `+
				`GROUP BY "customerName" ORDER BY revenue DESC LIMIT 10`,
			tenantScope(s, scope), timeWindow(s, analysis, p.now()))
	case TypeCustomerList:
		sql = fmt.Sprintf(
			`SELECT "customerName", COUNT(*) AS purchases, SUM(total) AS total_spent FROM "Sale" `+
				`WHERE %s%s AND "customerName" IS NOT NULL AND "customerName" <> '' `+
				`GROUP BY "customerName" ORDER BY total_spent DESC LIMIT 20`,
			tenantScope(s, scope), timeWindow(s, analysis, p.now()))
	case TypeBranchList:
		sql = fmt.Sprintf(
			`SELECT id, name, address, city, country, phone, email, "isMainBranch", status FROM "Branch" WHERE "tenantId" = %s`,
			s.bind(scope.TenantID))
		if scope.BranchID != "" {
			sql += fmt.Sprintf(` AND id = %s`, s.bind(scope.BranchID))
		}
		sql += ` ORDER BY "isMainBranch" DESC, name`
	case TypeUserList:
		sql = fmt.Sprintf(
			`SELECT name, email, "createdAt" FROM "User" WHERE "tenantId" = %s ORDER BY "createdAt" DESC LIMIT 20`,
			s.bind(scope.TenantID))
	case TypeBusinessInfo:
		sql = fmt.Sprintf(
			`SELECT name, "businessType", "contactEmail", "contactPhone", address, city, country, website, `+
				`"businessDescription", "foundedYear", "employeeCount" FROM "Tenant" WHERE id = %s`,
			s.bind(scope.TenantID))
	case TypeCountSales:
		sql = fmt.Sprintf(`SELECT COUNT(*) AS count FROM "Sale" WHERE %s%s`,
			tenantScope(s, scope), timeWindow(s, analysis, p.now()))
	case TypeCountProducts:
		sql = fmt.Sprintf(`SELECT COUNT(*) AS count FROM "Product" WHERE "tenantId" = %s`,
			s.bind(scope.TenantID))
	case TypeCountCustomers:
		sql = fmt.Sprintf(
			`SELECT COUNT(DISTINCT "customerName") AS count FROM "Sale" `+
				`WHERE %s%s AND "customerName" IS NOT NULL AND "customerName" <> ''`,
			tenantScope(s, scope), timeWindow(s, analysis, p.now()))
	case TypeGeneralCount:
		sql = fmt.Sprintf(`SELECT COUNT(*) AS count FROM "Sale" WHERE %s%s`,
			tenantScope(s, scope), timeWindow(s, analysis, p.now()))
	default:
		return nil, apperrors.ErrNoPlan
	}

	return &Plan{Type: qt, SQL: sql, Args: s.args}, nil
}

// tenantScope emits the mandatory tenant predicate and, when supplied, the
// branch predicate. Every statement the planner produces passes through
// here or through aliasedTenantScope.
func tenantScope(s *stmt, scope Scope) string {
	return aliasedTenantScope(s, scope, "")
}

func aliasedTenantScope(s *stmt, scope Scope, alias string) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	out := fmt.Sprintf(`%s"tenantId" = %s`, prefix, s.bind(scope.TenantID))
	if scope.BranchID != "" {
		out += fmt.Sprintf(` AND %s"branchId" = %s`, prefix, s.bind(scope.BranchID))
	}
	return out
}

// timeWindow appends a createdAt predicate derived from the time context.
// Precedence, first match wins: today/current, yesterday, week or "last",
// month, year.
func timeWindow(s *stmt, analysis *intent.QueryAnalysis, now time.Time) string {
	return aliasedTimeWindow(s, analysis, now, "")
}

func aliasedTimeWindow(s *stmt, analysis *intent.QueryAnalysis, now time.Time, alias string) string {
	prefix := ""
	if alias != "" {
		prefix = alias + "."
	}
	col := prefix + `"createdAt"`

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	tc := analysis.TimeContext
	switch {
	case tc["today"] || tc["current"]:
		return fmt.Sprintf(` AND %s >= %s`, col, s.bind(midnight))
	case tc["yesterday"]:
		return fmt.Sprintf(` AND %s >= %s AND %s < %s`,
			col, s.bind(midnight.AddDate(0, 0, -1)), col, s.bind(midnight))
	case tc["week"] || tc["last"]:
		return fmt.Sprintf(` AND %s >= %s`, col, s.bind(now.AddDate(0, 0, -7)))
	case tc["month"]:
		return fmt.Sprintf(` AND %s >= %s`, col, s.bind(now.AddDate(0, 0, -30)))
	case tc["year"]:
		return fmt.Sprintf(` AND %s >= %s`, col, s.bind(now.AddDate(0, 0, -365)))
	default:
		return ""
	}
}
