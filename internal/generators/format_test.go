package generators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contextutils "mathapp/internal/utils"
)

func TestFormatSignedTerm(t *testing.T) {
	assert.Equal(t, "+ 3", FormatSignedTerm(3))
	assert.Equal(t, "- 3", FormatSignedTerm(-3))
	assert.Equal(t, "+ 0", FormatSignedTerm(0))
}

func TestFormatCoefficient(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{0, "0"},
		{1, "x"},
		{-1, "-x"},
		{3, "3x"},
		{-5, "-5x"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatCoefficient(tt.n, "x"))
	}
}

func TestSimplifyFraction(t *testing.T) {
	tests := []struct {
		name     string
		num, den int
		wantNum  int
		wantDen  int
	}{
		{"already reduced", 3, 4, 3, 4},
		{"reduces by gcd", 8, 6, 4, 3},
		{"collapses to integer", 8, 4, 2, 1},
		{"zero numerator", 0, 7, 0, 1},
		{"negative numerator", -8, 6, -4, 3},
		{"sign moves to numerator", 8, -6, -4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			num, den, err := SimplifyFraction(tt.num, tt.den)
			require.NoError(t, err)
			assert.Equal(t, tt.wantNum, num)
			assert.Equal(t, tt.wantDen, den)
		})
	}
}

func TestSimplifyFractionZeroDenominator(t *testing.T) {
	_, _, err := SimplifyFraction(3, 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, contextutils.ErrZeroDenominator)
}

func TestSimplifyFractionScaleInvariant(t *testing.T) {
	// simplifyFraction(a*k, b*k) must equal simplifyFraction(a, b), and the
	// result must not be reducible any further.
	for a := 1; a <= 12; a++ {
		for b := 1; b <= 12; b++ {
			baseNum, baseDen, err := SimplifyFraction(a, b)
			require.NoError(t, err)
			if baseDen != 1 {
				assert.Equal(t, 1, gcd(abs(baseNum), baseDen), "%d/%d not fully reduced", baseNum, baseDen)
			}
			for k := 2; k <= 5; k++ {
				num, den, err := SimplifyFraction(a*k, b*k)
				require.NoError(t, err)
				assert.Equal(t, baseNum, num, "simplify(%d,%d)", a*k, b*k)
				assert.Equal(t, baseDen, den, "simplify(%d,%d)", a*k, b*k)
			}
		}
	}
}

func TestFormatFraction(t *testing.T) {
	assert.Equal(t, "4/3", FormatFraction(4, 3))
	assert.Equal(t, "2", FormatFraction(2, 1))
	assert.Equal(t, "-4/3", FormatFraction(-4, 3))
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		v    float64
		want string
	}{
		{3.5, "3,5"},
		{3, "3"},
		{-2.25, "-2,25"},
		{2.666666, "2,67"},
		{10.10, "10,1"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatDecimal(tt.v, 2))
	}
}
