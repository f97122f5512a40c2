package format

import (
	"fmt"
	"math"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var symbols = map[currency.Unit]string{
	currency.KRW: "₩",
	currency.JPY: "¥",
	currency.USD: "$",
	currency.EUR: "€",
}

// Formatter renders amounts held in the smallest unit of Unit for a locale.
type Formatter struct {
	Unit currency.Unit
	Tag  language.Tag
}

var krw = Formatter{Unit: currency.KRW, Tag: language.Korean}

// KRW formats a whole-won amount the way ko-KR renders Korean won, e.g. "₩1,490,000".
func KRW(amount int64) string {
	return krw.Format(amount)
}

// Format renders amount, interpreted in minor units of f.Unit. It never fails.
func (f Formatter) Format(amount int64) string {
	unit := f.Unit
	if unit == (currency.Unit{}) {
		unit = currency.KRW
	}
	tag := f.Tag
	if tag == language.Und {
		tag = language.Korean
	}

	// The magnitude is unsigned so math.MinInt64 keeps its exact value.
	sign := ""
	abs := uint64(amount)
	if amount < 0 {
		sign = "-"
		abs = uint64(-amount)
	}

	symbol, ok := symbols[unit]
	if !ok {
		symbol = unit.String() + " "
	}

	printer := message.NewPrinter(tag)
	scale, _ := currency.Standard.Rounding(unit)
	if scale == 0 {
		return sign + symbol + printer.Sprintf("%d", abs)
	}

	divisor := uint64(math.Pow10(scale))
	major := printer.Sprintf("%d", abs/divisor)
	minor := fmt.Sprintf("%0*d", scale, abs%divisor)
	return sign + symbol + major + "." + minor
}
