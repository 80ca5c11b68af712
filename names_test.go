package mmv

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateNameRejectsEmptyTooLongAndNonPrintable(t *testing.T) {
	require.ErrorIs(t, validateName(""), ErrInvalidName)
	require.ErrorIs(t, validateName(strings.Repeat("a", maxNameLength+1)), ErrInvalidName)
	require.ErrorIs(t, validateName("bad\x01name"), ErrInvalidName)
	require.NoError(t, validateName(strings.Repeat("a", maxNameLength)))
}

func TestValidateClientNamePattern(t *testing.T) {
	require.NoError(t, validateClientName("my-client_1.0"))
	require.ErrorIs(t, validateClientName("has space"), ErrInvalidName)
	require.ErrorIs(t, validateClientName(""), ErrInvalidName)
}
