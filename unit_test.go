package mmv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnitBuilderSingleDimension(t *testing.T) {
	u, err := NewUnitBuilder().Space(MebibyteScale, 1).Build()
	require.NoError(t, err)
	require.NotZero(t, u.PMAPI())
}

func TestUnitBuilderCombinesDimensions(t *testing.T) {
	// bytes/sec: space dimension power 1, time dimension power -1.
	u, err := NewUnitBuilder().Space(ByteScale, 1).Time(SecondScale, -1).Build()
	require.NoError(t, err)

	space, err := NewUnitBuilder().Space(ByteScale, 1).Build()
	require.NoError(t, err)
	timeOnly, err := NewUnitBuilder().Time(SecondScale, -1).Build()
	require.NoError(t, err)

	require.Equal(t, space.PMAPI()|timeOnly.PMAPI(), u.PMAPI())
}

func TestUnitBuilderRejectsOutOfRangePower(t *testing.T) {
	_, err := NewUnitBuilder().Space(ByteScale, 8).Build()
	require.ErrorIs(t, err, ErrInvalidUnit)

	_, err = NewUnitBuilder().Time(SecondScale, -9).Build()
	require.ErrorIs(t, err, ErrInvalidUnit)
}

func TestCountOne(t *testing.T) {
	u := CountOne()
	// count dimension occupies bits 20-23, holding the signed power directly.
	require.Equal(t, uint32(1)<<20, u.PMAPI())
}

func TestUnitZeroValueIsDimensionless(t *testing.T) {
	var u Unit
	require.Zero(t, u.PMAPI())
}
