package utils

import (
	"encoding/json"
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var ErrInvalidAmount = errors.New("invalid amount")

var (
	// plain decimals only: no sign, exponent, hex or digit separators
	reAmount  = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)
	rePercent = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)
)

// Cents converts a decimal amount ("1500", "1500.5", 1500.55) to integer
// cents. Empty means zero. Negative values, exponent forms and more than two
// decimals are rejected.
func Cents(n json.Number) (int64, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, nil
	}
	if !reAmount.MatchString(s) {
		return 0, ErrInvalidAmount
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f > math.MaxInt64/100 {
		return 0, ErrInvalidAmount
	}
	return int64(math.Round(f * 100)), nil
}

// PercentToBps converts a percentage (15, "7.5") to basis points.
func PercentToBps(n json.Number) (int64, error) {
	s := strings.TrimSpace(n.String())
	if s == "" {
		return 0, nil
	}
	if !rePercent.MatchString(s) {
		return 0, ErrInvalidAmount
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f > 100 {
		return 0, ErrInvalidAmount
	}
	return int64(math.Round(f * 100)), nil
}

// TaxCents is amount*rate rounded half away from zero to the nearest cent.
func TaxCents(amountCents, rateBps int64) int64 {
	return int64(math.Round(float64(amountCents) * float64(rateBps) / 10000))
}
