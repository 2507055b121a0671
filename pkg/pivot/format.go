package pivot

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Placeholder is rendered for missing values.
const Placeholder = "-"

// Formatter renders cell values for display.
type Formatter struct {
	decimals int
	tag      language.Tag
	printer  *message.Printer
	dates    dateLayouts
}

// NewFormatter returns a formatter for a BCP 47 locale ("en", "de-CH").
// Unknown locales fall back to English. decimals is the number of fraction
// digits for percentages and the maximum for other numbers.
func NewFormatter(locale string, decimals int) *Formatter {
	tag, err := language.Parse(locale)
	if err != nil || locale == "" {
		tag = language.English
	}
	return &Formatter{
		decimals: max(decimals, 0),
		tag:      tag,
		printer:  message.NewPrinter(tag),
		dates:    dateLayoutsFor(tag),
	}
}

// Locale returns the formatter's language tag.
func (f *Formatter) Locale() language.Tag { return f.tag }

// Percent renders p with a fixed number of decimals and a % suffix.
func (f *Formatter) Percent(p float64) string {
	return fmt.Sprintf("%.*f%%", f.decimals, p)
}

// Number renders v with locale grouping.
func (f *Formatter) Number(v float64) string {
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(f.decimals)))
}

// Value renders any cell value: numbers with grouping, dates in the locale's
// date style, nil as [Placeholder] and everything else as text.
func (f *Formatter) Value(v any) string {
	if v == nil {
		return Placeholder
	}
	if n, ok := toFloat(v); ok {
		return f.Number(n)
	}
	switch x := v.(type) {
	case time.Time:
		return f.date(x)
	case string:
		if t, ok := parseDate(x); ok {
			return f.date(t)
		}
		return x
	}
	return valueText(v)
}

// Cell renders a value, as a percentage when pct is set.
func (f *Formatter) Cell(v any, pct *float64) string {
	if pct != nil {
		return f.Percent(*pct)
	}
	return f.Value(v)
}

func (f *Formatter) date(t time.Time) string {
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(f.dates.date)
	}
	return t.Format(f.dates.dateTime)
}

type dateLayouts struct{ date, dateTime string }

// dateLayoutsFor picks date patterns by base language; x/text has no date
// formatting, so the common conventions are listed here.
func dateLayoutsFor(tag language.Tag) dateLayouts {
	base, _ := tag.Base()
	region, _ := tag.Region()
	switch base.String() {
	case "en":
		if r := region.String(); r == "GB" || r == "AU" || r == "NZ" || r == "IE" {
			return dateLayouts{"02/01/2006", "02/01/2006 15:04"}
		}
		return dateLayouts{"Jan 2, 2006", "Jan 2, 2006, 3:04 PM"}
	case "de", "ru", "pl", "cs", "fi", "nb", "da", "tr":
		return dateLayouts{"02.01.2006", "02.01.2006 15:04"}
	case "fr", "es", "it", "pt", "nl", "el":
		return dateLayouts{"02/01/2006", "02/01/2006 15:04"}
	default:
		return dateLayouts{"2006-01-02", "2006-01-02 15:04"}
	}
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parseDate recognizes ISO 8601 date and date-time strings.
func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if len(s) < len("2006-01-02") || s[4] != '-' || s[7] != '-' {
		return time.Time{}, false
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
