package report

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatNumber formats v with a fixed number of decimals and thousands
// separators, e.g. FormatNumber(1800, 1) == "1,800.0".
func FormatNumber(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return printer.Sprintf(fmt.Sprintf("%%.%df", decimals), v)
}

// FormatKg formats a total in kilograms.
func FormatKg(v float64) string {
	return FormatNumber(v, 1)
}

// FormatUnit formats a per-GB, per-user or per-system allocation.
func FormatUnit(v float64) string {
	return FormatNumber(v, 2)
}

// formatFactor prints a factor as entered: whole numbers without decimals,
// everything else with the shortest exact representation.
func formatFactor(f float64) string {
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func formatOptionalFactor(f *float64) string {
	if f == nil {
		return "not set"
	}
	return formatFactor(*f)
}
