package menu

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrBadPrice reports an unparseable or negative price input.
var ErrBadPrice = errors.New("menu: invalid price")

// ParsePrice parses user price input, accepting both '.' and ',' as the
// decimal separator and an optional leading euro sign.
func ParsePrice(input string) (float64, error) {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "€")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return 0, ErrBadPrice
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, ErrBadPrice
	}
	return v, nil
}

// FormatPrice renders a price with the euro sign and two decimals.
func FormatPrice(v float64) string {
	return fmt.Sprintf("€%.2f", v)
}
