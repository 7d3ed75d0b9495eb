package generators

import (
	"fmt"
	"strconv"
	"strings"

	contextutils "mathapp/internal/utils"
)

// FormatSignedTerm renders n as an explicit signed term: "+ 3" or "- 3".
func FormatSignedTerm(n int) string {
	if n < 0 {
		return fmt.Sprintf("- %d", -n)
	}
	return fmt.Sprintf("+ %d", n)
}

// FormatCoefficient renders n·symbol collapsing the usual algebra
// conventions: 1x becomes x, -1x becomes -x, 0x becomes 0.
func FormatCoefficient(n int, symbol string) string {
	switch n {
	case 0:
		return "0"
	case 1:
		return symbol
	case -1:
		return "-" + symbol
	}
	return fmt.Sprintf("%d%s", n, symbol)
}

// SimplifyFraction reduces num/den by their GCD. A zero denominator is a
// distinguishable error, never silently coerced. The sign is normalized onto
// the numerator.
func SimplifyFraction(num, den int) (int, int, error) {
	if den == 0 {
		return 0, 0, contextutils.ErrZeroDenominator
	}
	if num == 0 {
		return 0, 1, nil
	}
	g := gcd(abs(num), abs(den))
	num, den = num/g, den/g
	if den < 0 {
		num, den = -num, -den
	}
	return num, den, nil
}

// FormatFraction renders a fraction, collapsing denominator 1 to a plain
// integer.
func FormatFraction(num, den int) string {
	if den == 1 {
		return strconv.Itoa(num)
	}
	return fmt.Sprintf("%d/%d", num, den)
}

// FormatDecimal renders v with at most decimals places, using the comma
// decimal separator and no trailing zeros.
func FormatDecimal(v float64, decimals int) string {
	s := strconv.FormatFloat(v, 'f', decimals, 64)
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return strings.ReplaceAll(s, ".", ",")
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
