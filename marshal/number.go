package marshal

import (
	"math"
	"strconv"
	"strings"
)

// formatNumber renders a finite float64 the way ECMAScript Number#toString
// does: shortest round-trip digits, fixed notation for 1e-6 <= |f| < 1e21,
// exponent notation without zero padding otherwise. Negative zero is "0".
func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	mant, exp, _ := strings.Cut(s, "e")
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mant + "e" + sign + digits
}

// natIndex converts a decoded JSON number to a non-negative integer index.
func natIndex(v any) (int, bool) {
	f, ok := v.(float64)
	if !ok || f < 0 || f != math.Trunc(f) || f > math.MaxInt32 {
		return 0, false
	}
	return int(f), true
}
