package mmv

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterUpDown(t *testing.T) {
	c, err := NewCounter(1, 0, "c")
	require.NoError(t, err)

	c.Up()
	c.Up()
	require.Equal(t, int64(2), c.Val())

	c.Down()
	require.Equal(t, int64(1), c.Val())

	require.NoError(t, c.Inc(10))
	require.Equal(t, int64(11), c.Val())
}
