package mmv

import (
	"encoding/binary"
	"unsafe"
)

// hostByteOrder probes the running process's native byte order by laying a
// known uint16 over two bytes and looking at which one lands at the lower
// address.
func hostByteOrder() binary.ByteOrder {
	var i uint16 = 0x0100
	b := (*[2]byte)(unsafe.Pointer(&i))
	if b[0] == 0x01 {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// checkLittleEndianHost rejects big-endian hosts at Export time. The MMV
// wire format is little-endian only, so this library refuses outright
// rather than silently byteswap.
func checkLittleEndianHost() error {
	if hostByteOrder() != binary.LittleEndian {
		return ErrUnsupportedArch
	}
	return nil
}
