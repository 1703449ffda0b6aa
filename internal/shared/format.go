package shared

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printerOnce sync.Once
	printer     *message.Printer
)

func idPrinter() *message.Printer {
	printerOnce.Do(func() {
		printer = message.NewPrinter(language.Indonesian)
	})
	return printer
}

// FormatInt renders n with Indonesian digit grouping (1.234.567).
func FormatInt(n int64) string {
	return idPrinter().Sprintf("%d", n)
}

// FormatDecimal renders v with the given number of decimals and Indonesian
// separators (1.234,50).
func FormatDecimal(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return idPrinter().Sprintf(fmt.Sprintf("%%.%df", decimals), v)
}

// FormatRupiah renders an amount as "Rp1.234.567".
func FormatRupiah(v float64) string {
	return "Rp" + idPrinter().Sprintf("%.0f", v)
}
