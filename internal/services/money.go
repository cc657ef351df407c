package services

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.BritishEnglish)

// FormatAmount renders a minor-unit amount as a localised currency string,
// e.g. FormatAmount(26000, "GBP") returns "£260.00". Unknown currency codes
// fall back to GBP.
func FormatAmount(minorUnits int64, code string) string {
	unit, err := currency.ParseISO(code)
	if err != nil {
		unit = currency.GBP
	}
	major := float64(minorUnits) / 100
	return moneyPrinter.Sprintf("%v", currency.NarrowSymbol(unit.Amount(major)))
}
