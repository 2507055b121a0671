package pivot

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

const grandTotalKey = "grandtotal"

// CanonicalKey folds s to lower case and strips everything that is not a
// letter or digit. It is used to join field and column names coming from
// sources with inconsistent casing ("Sales ($)" and "sales" both become "sales").
func CanonicalKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		}
	}
	return b.String()
}

// IsGrandTotalText reports whether s names a grand total ("Grand Total",
// "GRAND_TOTAL", "grand-total", ...).
func IsGrandTotalText(s string) bool {
	return CanonicalKey(s) == grandTotalKey
}

// isGrandTotalRaw applies the grand-total predicate to a raw node: the
// explicit tag wins, otherwise labels and the column discriminator are sniffed.
func isGrandTotalRaw(r RawNode) bool {
	if r.GrandTotal != nil {
		return *r.GrandTotal
	}
	if IsGrandTotalText(r.Column) {
		return true
	}
	for _, l := range r.Labels {
		if IsGrandTotalText(valueText(l.Value)) {
			return true
		}
	}
	return false
}

// valueText renders a label or record value as display text.
func valueText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case bool:
		return strconv.FormatBool(x)
	case fmt.Stringer:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

// toFloat extracts a numeric value. Strings are not coerced.
func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
