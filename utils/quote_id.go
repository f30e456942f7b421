package utils

import (
	"fmt"
	"strings"
)

// FormatQuoteID strips the company qualifier from a three-part quote number.
// Example: Q26-1-00006 -> Q26-00006
// Any other shape is returned unchanged; nil becomes "".
func FormatQuoteID(quoteID any) string {
	if quoteID == nil {
		return ""
	}
	s := fmt.Sprint(quoteID)

	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return s
	}
	return parts[0] + "-" + parts[2]
}
