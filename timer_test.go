package mmv

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTimerAccumulatesElapsed(t *testing.T) {
	tm, err := NewTimer(1, "op")
	require.NoError(t, err)
	require.Equal(t, 0.0, tm.Elapsed())

	tm.Start()
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, tm.Stop())

	require.Greater(t, tm.Elapsed(), 0.0)
}

func TestTimerStopWithoutStartIsNoop(t *testing.T) {
	tm, err := NewTimer(1, "op")
	require.NoError(t, err)
	require.NoError(t, tm.Stop())
	require.Equal(t, 0.0, tm.Elapsed())
}
