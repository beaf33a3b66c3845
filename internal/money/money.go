// Package money formats integer minor-unit amounts for display. Amounts stay
// integers everywhere else in the codebase; only the rendered string is
// currency- and locale-aware.
package money

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format renders an amount of minor units (pence, cents) in the given ISO
// currency for the given locale. Unknown currency codes fall back to a plain
// "CODE 12.34" rendering rather than failing.
func Format(minor int64, code string, loc language.Tag) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%s %.2f", strings.ToUpper(code), float64(minor)/100)
	}

	scale, _ := currency.Cash.Rounding(unit)
	major := float64(minor) / math.Pow10(scale)

	p := message.NewPrinter(loc)
	return p.Sprint(currency.Symbol(unit.Amount(major)))
}

// ParseLocale resolves a BCP 47 locale string, defaulting to British English
// when the input is empty or malformed.
func ParseLocale(s string) language.Tag {
	if s == "" {
		return language.BritishEnglish
	}
	tag, err := language.Parse(s)
	if err != nil {
		return language.BritishEnglish
	}
	return tag
}
