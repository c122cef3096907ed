// Package core provides money parsing and handling utilities.
//
// Amounts travel as float64 through the API and the stores. Text input (CSV
// cells) is parsed through shopspring/decimal so that values such as "12.30"
// or "1e2" are read exactly before conversion, and aggregated totals are
// rounded to cents to hide binary floating point noise.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TotalPlaces is the number of decimal places kept in aggregated totals.
const TotalPlaces = 2

// ParseAmount parses a textual amount. It accepts a dot or a single comma as
// decimal separator and rejects blanks, garbage and negative values.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("abc")   -> 0, ErrInvalidAmount
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAmount
	}
	if strings.Count(s, ",") == 1 && !strings.Contains(s, ".") {
		s = strings.Replace(s, ",", ".", 1)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if d.IsNegative() {
		return 0, ErrInvalidAmount
	}
	return d.InexactFloat64(), nil
}

// RoundTotal rounds a summed amount to TotalPlaces.
func RoundTotal(total float64) float64 {
	return decimal.NewFromFloat(total).Round(TotalPlaces).InexactFloat64()
}

// SumAmounts adds amounts exactly and returns the rounded total.
func SumAmounts(amounts ...float64) float64 {
	sum := decimal.Zero
	for _, a := range amounts {
		sum = sum.Add(decimal.NewFromFloat(a))
	}
	return sum.Round(TotalPlaces).InexactFloat64()
}
