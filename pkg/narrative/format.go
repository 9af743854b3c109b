package narrative

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jinzhu/inflection"
)

// Money and percentage rendering follow the platform's display convention
// (Kenyan shillings, one decimal place on percentages). Presentation only;
// adapt per locale.

// formatMoney renders an amount as "Ksh 1,234,567.50". Whole amounts drop
// the decimals to match the dashboard's style.
func formatMoney(amount float64) string {
	if amount == float64(int64(amount)) {
		return "Ksh " + groupDigits(strconv.FormatInt(int64(amount), 10))
	}
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	parts := strings.SplitN(s, ".", 2)
	return "Ksh " + groupDigits(parts[0]) + "." + parts[1]
}

// formatPercent renders a ratio already scaled to 0-100.
func formatPercent(pct float64) string {
	return fmt.Sprintf("%.1f%%", pct)
}

// countNoun renders "1 sale" / "3 sales" style phrases.
func countNoun(n int64, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", inflection.Singular(noun))
	}
	return fmt.Sprintf("%s %s", groupDigits(strconv.FormatInt(n, 10)), inflection.Plural(noun))
}

// groupDigits inserts thousands separators into a decimal integer string.
func groupDigits(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}

	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// toFloat coerces the scalar types pgx hands back into a float64.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// toInt coerces a scalar into an int64.
func toInt(v any) (int64, bool) {
	f, ok := toFloat(v)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// toString coerces a scalar into a display string.
func toString(v any) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

// cellFloat reads a numeric column from a row, 0 when absent or non-numeric.
func cellFloat(row map[string]any, col string) float64 {
	f, _ := toFloat(row[col])
	return f
}

// cellInt reads an integer column from a row, 0 when absent or non-numeric.
func cellInt(row map[string]any, col string) int64 {
	n, _ := toInt(row[col])
	return n
}
