package utils

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// dateTimeLayout renders e.g. "Jan 05 2026, 3:04 PM".
const dateTimeLayout = "Jan 02 2006, 3:04 PM"

var htmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#039;",
)

// EscapeHTML converts value to a string safe for HTML text and attribute
// contexts. nil becomes the empty string.
func EscapeHTML(value any) string {
	if value == nil {
		return ""
	}
	return htmlReplacer.Replace(fmt.Sprint(value))
}

// ToNumber coerces loosely typed input into a finite float64.
// Missing, empty, non-numeric and non-finite input yields 0.
func ToNumber(value any) float64 {
	var n float64
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		n = v
	case float32:
		n = float64(v)
	case int:
		n = float64(v)
	case int32:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint:
		n = float64(v)
	case uint32:
		n = float64(v)
	case uint64:
		n = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		n = f
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return 0
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		n = f
	case interface{ Float64() float64 }:
		n = v.Float64()
	default:
		return 0
	}

	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0
	}
	return n
}

// FormatMoney formats value with two decimals and thousands separators,
// prefixed by currencySymbol (which may be empty). Halves round away from
// zero on the shortest decimal form, so 2.675 renders as 2.68.
func FormatMoney(value any, currencySymbol string) string {
	d := decimal.NewFromFloat(ToNumber(value)).Round(2)

	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Abs()
	}

	parts := strings.SplitN(d.StringFixed(2), ".", 2)
	fraction := "00"
	if len(parts) == 2 {
		fraction = parts[1]
	}

	p := message.NewPrinter(language.English)
	return currencySymbol + sign + p.Sprintf("%d", d.IntPart()) + "." + fraction
}

// FormattedDateTime renders t as short month, two-digit day, year and
// 12-hour time. The zero time renders as "".
func FormattedDateTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateTimeLayout)
}

// ResolveLogoSrc returns the image source for a company logo, or "" when
// there is none. Embedded data URIs and every other reference are returned
// as-is; nothing is fetched here.
func ResolveLogoSrc(rawLogo string) string {
	return strings.TrimSpace(rawLogo)
}
