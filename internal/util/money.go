package util

import (
	"math"
	"strings"

	"github.com/spf13/cast"
)

var moneyCleaner = strings.NewReplacer("£", "", "$", "", "€", "", ",", "", " ", "", " ", "")

// ParseMoney reads a numeric cell that may carry a currency prefix, thousands
// separators, or stray whitespace. "£1,234.50" parses to 1234.5.
func ParseMoney(input string) (float64, error) {
	s := moneyCleaner.Replace(strings.TrimSpace(input))
	return cast.ToFloat64E(s)
}

// ParseNumber is ParseMoney without the currency connotation; spreadsheet
// numeric cells go through the same cleaning.
func ParseNumber(input string) (float64, error) {
	return ParseMoney(input)
}

// ParseInt reads an integer cell, tolerating "12,000" and "12000.0".
func ParseInt(input string) (int, error) {
	f, err := ParseMoney(input)
	if err != nil {
		return 0, err
	}
	return int(math.Round(f)), nil
}

// Round2 rounds a currency amount to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
