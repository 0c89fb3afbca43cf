// Package money formats minor-unit amounts for people and files.
package money

import (
	"fmt"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Formatter renders amounts with a currency symbol and locale grouping.
type Formatter struct {
	symbol  string
	printer *message.Printer
}

func NewFormatter(symbol string, tag language.Tag) Formatter {
	return Formatter{symbol: symbol, printer: message.NewPrinter(tag)}
}

// Amount renders cents as e.g. "$1,234.05" or "-$3.10".
func (f Formatter) Amount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
	}
	whole, frac := split(cents)
	p := f.printer
	if p == nil {
		p = message.NewPrinter(language.English)
	}
	return fmt.Sprintf("%s%s%s.%02d", sign, f.symbol, p.Sprintf("%d", whole), frac)
}

// Decimal renders cents in major units with two decimals and no grouping,
// e.g. 123405 -> "1234.05".
func Decimal(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
	}
	whole, frac := split(cents)
	return fmt.Sprintf("%s%d.%02d", sign, whole, frac)
}

func split(cents int64) (uint64, uint64) {
	u := uint64(cents)
	if cents < 0 {
		u = uint64(-(cents + 1)) + 1
	}
	return u / 100, u % 100
}
