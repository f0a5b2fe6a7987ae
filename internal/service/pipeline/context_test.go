package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/mesos-packager/internal/domain/platform"
	"github.com/oshokin/mesos-packager/internal/domain/policy"
	"github.com/oshokin/mesos-packager/internal/domain/vercmp"
)

func mustNominal(t *testing.T, s string) vercmp.Nominal {
	t.Helper()

	v, err := vercmp.ParseNominal(s)
	require.NoError(t, err)

	return v
}

func TestSetNominalVersionOnce(t *testing.T) {
	t.Parallel()

	bc := &BuildContext{}
	require.True(t, bc.NominalVersion().IsZero())

	require.NoError(t, bc.SetNominalVersion(mustNominal(t, "0.21.0")))
	require.ErrorIs(t, bc.SetNominalVersion(mustNominal(t, "0.22.0")), errVersionAlreadySet)
	require.Equal(t, "0.21.0", bc.NominalVersion().String())
}

func TestSetNominalVersionRejectsZero(t *testing.T) {
	t.Parallel()

	bc := &BuildContext{}
	require.ErrorIs(t, bc.SetNominalVersion(vercmp.Nominal{}), vercmp.ErrInvalidVersion)
}

func TestDecisionIsDerivedOnceAndCopied(t *testing.T) {
	t.Parallel()

	probe := &fixedProbe{}
	table := policy.NewTable(probe)
	bc := &BuildContext{Platform: platform.ID{Family: platform.CentOS, Major: "7"}}

	_, err := bc.Decision(context.Background(), table)
	require.ErrorIs(t, err, errVersionNotSet)

	require.NoError(t, bc.SetNominalVersion(mustNominal(t, "0.21.0")))

	_, err = bc.Decision(context.Background(), nil)
	require.ErrorIs(t, err, errNoPolicy)

	first, err := bc.Decision(context.Background(), table)
	require.NoError(t, err)

	first.BuildFlags[0] = "--prefix=/opt"

	second, err := bc.Decision(context.Background(), table)
	require.NoError(t, err)
	require.Equal(t, "--prefix=/usr", second.BuildFlags[0])
	require.Equal(t, 1, probe.calls)
}

func TestPrebuiltMode(t *testing.T) {
	t.Parallel()

	require.Equal(t, Mode{SkipCheckout: true, SkipBuild: true}, Prebuilt())
}
