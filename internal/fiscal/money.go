// Package fiscal maps domestic sale and void requests into the authority's
// submission payloads. All functions are pure; monetary arithmetic runs on
// integer cents with half-up rounding at every intermediate step so that the
// 2-decimal strings we emit match the authority's own arithmetic.
package fiscal

import (
	"fmt"
	"strconv"
	"strings"
)

// Cents is a monetary amount in hundredths of the unit currency.
type Cents int64

// ParseAmount parses a decimal string like "8.50" into cents. At most two
// decimal places are accepted; the authority's fields carry no more.
func ParseAmount(s string) (Cents, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	orig := s
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	if s == "" || s == "." {
		return 0, fmt.Errorf("invalid amount %q", orig)
	}
	whole, frac := s, ""
	if i := strings.Index(s, "."); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	// digits only: ParseInt would let a stray sign through
	if !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("invalid amount %q", orig)
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimals", orig)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", orig)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", orig)
	}
	c := Cents(w*100 + f)
	if neg {
		c = -c
	}
	return c, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// String renders the amount as a fixed 2-decimal string, e.g. "8.50".
func (c Cents) String() string {
	v := int64(c)
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// divRoundHalfUp divides num by den rounding half-up. Operands must be
// non-negative.
func divRoundHalfUp(num, den int64) int64 {
	return (num + den/2) / den
}

// netFromGross computes the tax-exclusive amount of a gross amount at the
// given whole-percent VAT rate: gross / (1 + rate/100), rounded half-up to
// the cent.
func netFromGross(gross Cents, ratePercent int) Cents {
	return Cents(divRoundHalfUp(int64(gross)*100, int64(100+ratePercent)))
}
