package mmv

import (
	"encoding/binary"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHostByteOrderMatchesRuntimeArch(t *testing.T) {
	order := hostByteOrder()
	switch runtime.GOARCH {
	case "amd64", "arm64", "386", "arm", "riscv64":
		require.Equal(t, binary.LittleEndian, order)
	}
}

func TestCheckLittleEndianHost(t *testing.T) {
	err := checkLittleEndianHost()
	if hostByteOrder() == binary.LittleEndian {
		require.NoError(t, err)
	} else {
		require.ErrorIs(t, err, ErrUnsupportedArch)
	}
}
