// Package format renders simulation figures for humans (prompts, reports, CLI).
package format

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Currency formats a whole-unit amount with thousands separators, e.g. "$12,345".
func Currency(v float64) string {
	if math.IsInf(v, 1) {
		return "∞"
	}
	if v < 0 {
		return "-" + printer.Sprintf("$%.0f", math.Round(-v))
	}
	return printer.Sprintf("$%.0f", math.Round(v))
}

// Price formats a user-entered amount without losing cents, e.g. "$9.99" or "$20".
func Price(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) || v == math.Trunc(v) {
		return Currency(v)
	}
	if v < 0 {
		return "-$" + exact(-v, 2)
	}
	return "$" + exact(v, 2)
}

// Number formats a whole number with thousands separators.
func Number(v float64) string {
	return printer.Sprintf("%.0f", math.Round(v))
}

// Quantity formats a user-entered count as given, e.g. "2.5" or "1,000".
func Quantity(v float64) string {
	if v < 0 {
		return "-" + exact(-v, 0)
	}
	return exact(v, 0)
}

// Count formats a customer count with one decimal place.
func Count(v float64) string {
	return printer.Sprintf("%.1f", v)
}

// Percent formats a percentage the way it was entered, e.g. "3%" or "2.25%".
func Percent(v float64) string {
	return Quantity(v) + "%"
}

// exact renders a non-negative v with grouped whole digits and the shortest
// fraction that round-trips, padded to at least minFrac digits.
func exact(v float64, minFrac int) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	whole, frac, _ := strings.Cut(s, ".")
	w, _ := strconv.ParseFloat(whole, 64)
	out := printer.Sprintf("%.0f", w)
	if frac == "" {
		return out
	}
	if len(frac) < minFrac {
		frac += strings.Repeat("0", minFrac-len(frac))
	}
	return out + "." + frac
}
