package dashboard

import (
	"time"

	"github.com/shopspring/decimal"

	"predictboard/internal/domain"
)

// Placeholder stands in for values that cannot be computed.
const Placeholder = "—"

// FormatPrice formats a price as $X.XX.
func FormatPrice(p decimal.Decimal) string {
	return "$" + p.StringFixed(2)
}

// FormatChange formats an absolute change with an explicit sign: "+2.20",
// "-5.19". Zero is "+0.00".
func FormatChange(c decimal.Decimal) string {
	if c.IsNegative() {
		return c.StringFixed(2)
	}
	return "+" + c.StringFixed(2)
}

// FormatPercent formats a signed percentage: "+2.50%", "-1.25%".
func FormatPercent(p decimal.Decimal) string {
	return FormatChange(p) + "%"
}

// FormatQuotePercent formats a quote's percent change as "(X.XX%)".
func FormatQuotePercent(p decimal.Decimal) string {
	return "(" + p.StringFixed(2) + "%)"
}

// FormatDate renders a YYYY-MM-DD date as "Fri, May 17, 2024". Unparseable
// input is returned unchanged.
func FormatDate(date string) string {
	t, err := time.Parse(domain.DateLayout, date)
	if err != nil {
		return date
	}
	return t.Format("Mon, Jan 2, 2006")
}

// Arrow returns the direction glyph shown next to a change.
func Arrow(d domain.Direction) string {
	if d == domain.DirectionDown {
		return "↘"
	}
	return "↗"
}
