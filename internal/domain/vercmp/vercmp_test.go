package vercmp

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCompare covers ordering, numeric (not lexicographic) comparison and zero padding.
func TestCompare(t *testing.T) {
	t.Parallel()

	cases := []struct {
		a, b string
		want Result
	}{
		{"0.19.0", "0.2.0", Greater},
		{"0.2.0", "0.19.0", Less},
		{"0.19", "0.19.0", Equal},
		{"0.19.0.0", "0.19", Equal},
		{"1.0.0", "0.99.99", Greater},
		{"0.18.5", "0.19.0", Less},
		{"0.21.0", "0.21.0", Equal},
		{"0.21.1", "0.21", Greater},
	}

	for _, tc := range cases {
		got := Compare(MustParse(tc.a), MustParse(tc.b))
		require.Equal(t, tc.want, got, "%s vs %s", tc.a, tc.b)
	}
}

// TestCompare_Properties checks reflexivity and antisymmetry on random specs.
func TestCompare_Properties(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2)) //nolint:gosec // Deterministic test data.

	randomSpec := func(size int) Spec {
		s := make(Spec, size)
		for i := range s {
			s[i] = rng.IntN(25)
		}

		return s
	}

	for range 500 {
		size := 1 + rng.IntN(4)
		a, b := randomSpec(size), randomSpec(size)

		require.Equal(t, Equal, Compare(a, a))
		require.Equal(t, Compare(a, b) == Greater, Compare(b, a) == Less, "%v %v", a, b)
		require.Equal(t, Compare(a, b) == Equal, Compare(b, a) == Equal, "%v %v", a, b)
	}
}

// TestParseSpec_Invalid ensures malformed tokens fail instead of turning into zero.
func TestParseSpec_Invalid(t *testing.T) {
	t.Parallel()

	for _, s := range []string{"", "0.x.1", "0..1", "1.-2", "rc1", "0.19.0-rc1", "1.+2"} {
		_, err := ParseSpec(s)
		require.ErrorIs(t, err, ErrInvalidVersion, s)
	}

	spec, err := ParseSpec(" 0.19.1 ")
	require.NoError(t, err)
	require.Equal(t, Spec{0, 19, 1}, spec)
	require.Equal(t, "0.19.1", spec.String())
}

// TestPredicates checks the threshold helpers at and around the boundary.
func TestPredicates(t *testing.T) {
	t.Parallel()

	threshold := MustParse("0.19.0")

	require.True(t, AtLeast(MustParse("0.19.0"), threshold))
	require.True(t, AtLeast(MustParse("0.19.1"), threshold))
	require.False(t, AtLeast(MustParse("0.18.5"), threshold))
	require.True(t, Before(MustParse("0.18.5"), threshold))
	require.False(t, Before(MustParse("0.19"), threshold))
}

// TestMustParse_Panics documents that thresholds must be well formed.
func TestMustParse_Panics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() { MustParse("zero") })
}
