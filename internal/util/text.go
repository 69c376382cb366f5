package util

import (
	"regexp"
	"strings"
)

var (
	reHeaderStrip = regexp.MustCompile(`[^a-z0-9]+`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// NormalizeHeader collapses a column header to a comparison key: lowercase,
// alphanumerics only. "Monthly_Payment" and "monthly payment " both become
// "monthlypayment".
func NormalizeHeader(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	return reHeaderStrip.ReplaceAllString(s, "")
}

// NormalizeSpaces trims and collapses runs of whitespace to single spaces.
func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// SplitList splits a free-form list cell on commas and semicolons, dropping
// empty entries.
func SplitList(input string) []string {
	parts := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

func IntPtr(v int) *int { return &v }
