// Package tracker models per-channel win/loss statistics and their persistence.
package tracker

import (
	"math"
	"strconv"
)

const (
	winRateDigits = 4
	// NoWinRate is reported when no match has been recorded.
	NoWinRate = "-"
)

// Score is a victory/defeat tally. The zero value is an empty score.
type Score struct {
	victories uint
	defeats   uint
}

// NewScore builds a score from two counts.
func NewScore(victories, defeats uint) Score {
	return Score{victories: victories, defeats: defeats}
}

// Victories returns the number of wins.
func (s Score) Victories() uint {
	return s.victories
}

// Defeats returns the number of losses.
func (s Score) Defeats() uint {
	return s.defeats
}

// Total returns the number of recorded matches.
func (s Score) Total() uint {
	return s.victories + s.defeats
}

// Merge adds other's counters into s.
func (s *Score) Merge(other Score) {
	s.victories += other.victories
	s.defeats += other.defeats
}

// WinRatePercent formats victories/total as a percentage rounded to four
// significant digits, for example "60.00%" or "100.0%". It returns NoWinRate
// when Total is zero.
func (s Score) WinRatePercent() string {
	total := s.Total()
	if total == 0 {
		return NoWinRate
	}

	percent := float64(s.victories) / float64(total) * 100

	return formatSignificant(percent, winRateDigits) + "%"
}

// String renders the score as "victories-defeats".
func (s Score) String() string {
	return strconv.FormatUint(uint64(s.victories), 10) + "-" + strconv.FormatUint(uint64(s.defeats), 10)
}

// formatSignificant renders value in fixed notation with the given number of
// significant digits. value must be finite and non-negative.
func formatSignificant(value float64, digits int) string {
	if value == 0 {
		return strconv.FormatFloat(0, 'f', digits-1, 64)
	}

	exponent := int(math.Floor(math.Log10(value)))
	decimals := max(digits-1-exponent, 0)
	formatted := strconv.FormatFloat(value, 'f', decimals, 64)

	// Rounding can carry into a new leading digit (99.996 -> 100.00).
	rounded, err := strconv.ParseFloat(formatted, 64)
	if err == nil && decimals > 0 && rounded >= math.Pow10(exponent+1) {
		formatted = strconv.FormatFloat(value, 'f', decimals-1, 64)
	}

	return formatted
}
