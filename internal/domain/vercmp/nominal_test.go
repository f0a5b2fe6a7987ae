package vercmp

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestParseNominal covers releases and the accepted pre-release spellings.
func TestParseNominal(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"0.21.0":     "",
		"0.21.0-rc1": "rc1",
		"0.21.0rc1":  "rc1",
		"0.21.0~rc2": "rc2",
		"1.0.0.beta": "beta",
	}

	for raw, pre := range cases {
		n, err := ParseNominal(raw)
		require.NoError(t, err, raw)
		require.Equal(t, raw, n.String())
		require.Equal(t, pre, n.PreRelease, raw)
		require.Len(t, n.Numeric, 3)
	}

	for _, raw := range []string{"", "0.21", "v0.21.0", "0.21.x", "0.21.0-", "0.21.0.1", "0.21.0-1"} {
		_, err := ParseNominal(raw)
		require.ErrorIs(t, err, ErrInvalidVersion, raw)
	}
}

// TestNominal_PreReleaseOrdering checks that a pre-release sorts before its release.
func TestNominal_PreReleaseOrdering(t *testing.T) {
	t.Parallel()

	threshold := MustParse("0.19.0")

	rc, err := ParseNominal("0.19.0-rc1")
	require.NoError(t, err)
	require.False(t, rc.AtLeast(threshold))
	require.True(t, rc.Before(threshold))

	release, err := ParseNominal("0.19.0")
	require.NoError(t, err)
	require.True(t, release.AtLeast(threshold))

	newerRC, err := ParseNominal("0.19.1-rc1")
	require.NoError(t, err)
	require.True(t, newerRC.AtLeast(threshold))

	require.True(t, Nominal{}.IsZero())
}
