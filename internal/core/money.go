// Package core provides the domain model plus amount and date
// normalization shared by every import and approval workflow.
package core

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount parses a locale-ambiguous decimal string. When the input
// contains both a comma and a dot, whichever separator appears last is the
// decimal point and the other is a thousands separator. A lone comma is
// always a decimal point. Returns NaN for empty or unparsable input; the
// caller must check with math.IsNaN before using the value.
//
// Examples:
//
//	ParseAmount("1.234,56") -> 1234.56
//	ParseAmount("1,234.56") -> 1234.56
//	ParseAmount("-12,30")   -> -12.3
//	ParseAmount("abc")      -> NaN
func ParseAmount(raw string) float64 {
	s := strings.Join(strings.Fields(raw), "")
	if s == "" {
		return math.NaN()
	}

	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")
	switch {
	case hasComma && hasDot:
		if strings.LastIndex(s, ",") > strings.LastIndex(s, ".") {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case hasComma:
		if strings.Count(s, ",") > 1 {
			return math.NaN()
		}
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// Round2 rounds to two decimal places, half away from zero. The original
// system rounded on x+epsilon, which mishandled negative halves; this
// implementation rounds -1.235 to -1.24 and 1.235 to 1.24.
func Round2(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	// The epsilon is sign-matched so negative halves round away from zero
	// too. It only compensates representation error (1.235*100 is stored
	// as 123.4999...), never changes a value that is genuinely below half.
	scaled := x * 100
	return math.Round(scaled+math.Copysign(1e-9, scaled)) / 100
}
