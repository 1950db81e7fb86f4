package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/contract-engine/money"
)

// =============================================================================
// PARSING AND REPRESENTATION
// =============================================================================

func TestParse_Valid(t *testing.T) {
	a, err := money.Parse("150.00")
	require.NoError(t, err)
	assert.Equal(t, "150.00", a.String())
	assert.Equal(t, int64(15000), a.Cents())
}

func TestParse_WholeNumber(t *testing.T) {
	a, err := money.Parse("42")
	require.NoError(t, err)
	assert.Equal(t, "42.00", a.String())
}

func TestParse_SubCentPrecision_Rejected(t *testing.T) {
	_, err := money.Parse("10.005")
	assert.ErrorIs(t, err, money.ErrInvalidAmount)
}

func TestParse_Malformed_Rejected(t *testing.T) {
	_, err := money.Parse("ten")
	assert.ErrorIs(t, err, money.ErrInvalidAmount)
}

func TestFromCents_RoundTrip(t *testing.T) {
	a := money.FromCents(3334)
	assert.Equal(t, "33.34", a.String())
	assert.Equal(t, int64(3334), a.Cents())
}

// =============================================================================
// SUBTRACT
// =============================================================================

func TestSubtract_Exact(t *testing.T) {
	a := money.MustParse("0.30")
	b := money.MustParse("0.10")

	c, err := money.Subtract(a, b)
	require.NoError(t, err)

	// 0.30 - 0.10 must be exactly 0.20, not 0.19999999...
	assert.Equal(t, "0.20", c.String())
}

func TestSubtract_NegativeOperand_Rejected(t *testing.T) {
	neg := money.Zero.Sub(money.MustParse("1.00"))

	_, err := money.Subtract(neg, money.Zero)
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = money.Subtract(money.Zero, neg)
	assert.ErrorIs(t, err, money.ErrInvalidAmount)
}

func TestSubtract_ResultMayGoNegative(t *testing.T) {
	// b > a is not enforced here; callers that care validate themselves.
	c, err := money.Subtract(money.MustParse("10.00"), money.MustParse("15.00"))
	require.NoError(t, err)
	assert.True(t, c.IsNegative())
}

// =============================================================================
// SPLIT - Remainder distribution
// =============================================================================

func TestSplit_FrontLoadedRemainder(t *testing.T) {
	// GIVEN: 100.00 divided into 3 parts
	// THEN: The extra cent lands on the first part: [33.34, 33.33, 33.33]

	parts, err := money.Split(money.MustParse("100.00"), 3)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	assert.Equal(t, "33.34", parts[0].String())
	assert.Equal(t, "33.33", parts[1].String())
	assert.Equal(t, "33.33", parts[2].String())
}

func TestSplit_EvenDivision(t *testing.T) {
	parts, err := money.Split(money.MustParse("120.00"), 4)
	require.NoError(t, err)

	for _, p := range parts {
		assert.Equal(t, "30.00", p.String())
	}
}

func TestSplit_SumInvariant(t *testing.T) {
	// The parts must sum back to the total exactly, for awkward totals too.
	cases := []struct {
		total string
		n     int
	}{
		{"100.00", 3},
		{"0.01", 3},
		{"999.99", 7},
		{"1.00", 12},
		{"45000.00", 36},
		{"0.00", 5},
	}

	for _, tc := range cases {
		total := money.MustParse(tc.total)
		parts, err := money.Split(total, tc.n)
		require.NoError(t, err)
		require.Len(t, parts, tc.n)

		sum := money.Zero
		for _, p := range parts {
			sum = sum.Add(p)
		}
		assert.True(t, sum.Equal(total), "split of %s into %d: sum %s", tc.total, tc.n, sum)
	}
}

func TestSplit_PartsDifferByAtMostOneCent(t *testing.T) {
	parts, err := money.Split(money.MustParse("999.99"), 7)
	require.NoError(t, err)

	min, max := parts[0], parts[0]
	for _, p := range parts {
		min = min.Min(p)
		max = max.Max(p)
	}
	assert.LessOrEqual(t, max.Cents()-min.Cents(), int64(1))
}

func TestSplit_InvalidCount_Rejected(t *testing.T) {
	_, err := money.Split(money.MustParse("10.00"), 0)
	assert.ErrorIs(t, err, money.ErrInvalidAmount)

	_, err = money.Split(money.MustParse("10.00"), -1)
	assert.ErrorIs(t, err, money.ErrInvalidAmount)
}
