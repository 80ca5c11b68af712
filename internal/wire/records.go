// Package wire encodes and decodes the fixed-size MMV records bit-exactly,
// little-endian. It owns the one authoritative definition of every byte
// offset within a record so the writer (client.go) and the round-trip test
// helper (internal/mmvcheck) never disagree about layout.
package wire

import (
	"encoding/binary"

	"github.com/pcpmmv/mmv/internal/layout"
)

// Magic is the 4-byte MMV file signature.
var Magic = [4]byte{'M', 'M', 'V', 0}

// Version is the MMV format version this library writes.
const Version = 1

// Flags bits.
const ProcessFlag uint32 = 0x2

// Header mirrors the 40-byte wire header.
type Header struct {
	Generation1 int64
	Generation2 int64
	TocCount    int32
	Flags       uint32
	ProcessID   int32
	ClusterID   uint32
}

// PutHeader encodes h into buf[0:40].
func PutHeader(buf []byte, h Header) {
	copy(buf[0:4], Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], Version)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(h.Generation1))
	binary.LittleEndian.PutUint64(buf[16:24], uint64(h.Generation2))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(h.TocCount))
	binary.LittleEndian.PutUint32(buf[28:32], h.Flags)
	binary.LittleEndian.PutUint32(buf[32:36], uint32(h.ProcessID))
	binary.LittleEndian.PutUint32(buf[36:40], h.ClusterID)
}

// Header offsets of the generation fields, used by the generation seqlock
// (CommitGeneration, ReadGenerations).
const (
	Generation1Offset = 8
	Generation2Offset = 16
)

// GetHeader decodes buf[0:40] into a Header. It does not validate the magic;
// callers check that separately since a bad magic is a distinct failure mode.
func GetHeader(buf []byte) Header {
	return Header{
		Generation1: int64(binary.LittleEndian.Uint64(buf[8:16])),
		Generation2: int64(binary.LittleEndian.Uint64(buf[16:24])),
		TocCount:    int32(binary.LittleEndian.Uint32(buf[24:28])),
		Flags:       binary.LittleEndian.Uint32(buf[28:32]),
		ProcessID:   int32(binary.LittleEndian.Uint32(buf[32:36])),
		ClusterID:   binary.LittleEndian.Uint32(buf[36:40]),
	}
}

// PutTocEntry encodes a TOC entry at buf[off:off+16].
func PutTocEntry(buf []byte, off int64, e layout.TocEntry) {
	binary.LittleEndian.PutUint32(buf[off:off+4], e.Kind)
	binary.LittleEndian.PutUint32(buf[off+4:off+8], e.Count)
	binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(e.Offset))
}

// GetTocEntry decodes a TOC entry at buf[off:off+16].
func GetTocEntry(buf []byte, off int64) layout.TocEntry {
	return layout.TocEntry{
		Kind:   binary.LittleEndian.Uint32(buf[off : off+4]),
		Count:  binary.LittleEndian.Uint32(buf[off+4 : off+8]),
		Offset: int64(binary.LittleEndian.Uint64(buf[off+8 : off+16])),
	}
}

// PutIndom encodes an Indom record at buf[off:off+32].
func PutIndom(buf []byte, r layout.IndomRecord) {
	off := r.Offset
	binary.LittleEndian.PutUint32(buf[off:off+4], r.ID)
	binary.LittleEndian.PutUint32(buf[off+4:off+8], uint32(r.InstanceCount))
	binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(r.InstancesOffset))
	binary.LittleEndian.PutUint64(buf[off+16:off+24], uint64(r.ShortHelpOffset))
	binary.LittleEndian.PutUint64(buf[off+24:off+32], uint64(r.LongHelpOffset))
}

// GetIndom decodes an Indom record at buf[off:off+32].
func GetIndom(buf []byte, off int64) layout.IndomRecord {
	return layout.IndomRecord{
		Offset:          off,
		ID:              binary.LittleEndian.Uint32(buf[off : off+4]),
		InstanceCount:   int32(binary.LittleEndian.Uint32(buf[off+4 : off+8])),
		InstancesOffset: int64(binary.LittleEndian.Uint64(buf[off+8 : off+16])),
		ShortHelpOffset: int64(binary.LittleEndian.Uint64(buf[off+16 : off+24])),
		LongHelpOffset:  int64(binary.LittleEndian.Uint64(buf[off+24 : off+32])),
	}
}

// PutInstance encodes an Instance record at buf[off:off+80].
func PutInstance(buf []byte, r layout.InstanceRecord) {
	off := r.Offset
	binary.LittleEndian.PutUint64(buf[off:off+8], uint64(r.IndomOffset))
	// bytes off+8:off+12 are padding, left zero.
	binary.LittleEndian.PutUint32(buf[off+12:off+16], r.InternalID)
	putFixedString(buf[off+16:off+80], r.Name)
}

// GetInstance decodes an Instance record at buf[off:off+80].
func GetInstance(buf []byte, off int64) layout.InstanceRecord {
	return layout.InstanceRecord{
		Offset:      off,
		IndomOffset: int64(binary.LittleEndian.Uint64(buf[off : off+8])),
		InternalID:  binary.LittleEndian.Uint32(buf[off+12 : off+16]),
		Name:        getFixedString(buf[off+16 : off+80]),
	}
}

// PutMetric encodes a Metric record at buf[off:off+104].
func PutMetric(buf []byte, r layout.MetricRecord) {
	off := r.Offset
	putFixedString(buf[off:off+64], r.Name)
	binary.LittleEndian.PutUint32(buf[off+64:off+68], r.ItemID)
	binary.LittleEndian.PutUint32(buf[off+68:off+72], r.Type)
	binary.LittleEndian.PutUint32(buf[off+72:off+76], r.Semantics)
	binary.LittleEndian.PutUint32(buf[off+76:off+80], r.Unit)
	binary.LittleEndian.PutUint32(buf[off+80:off+84], uint32(int32(r.IndomID)))
	// bytes off+84:off+88 are padding, left zero.
	binary.LittleEndian.PutUint64(buf[off+88:off+96], uint64(r.ShortHelpOffset))
	binary.LittleEndian.PutUint64(buf[off+96:off+104], uint64(r.LongHelpOffset))
}

// GetMetric decodes a Metric record at buf[off:off+104].
func GetMetric(buf []byte, off int64) layout.MetricRecord {
	return layout.MetricRecord{
		Offset:          off,
		Name:            getFixedString(buf[off : off+64]),
		ItemID:          binary.LittleEndian.Uint32(buf[off+64 : off+68]),
		Type:            binary.LittleEndian.Uint32(buf[off+68 : off+72]),
		Semantics:       binary.LittleEndian.Uint32(buf[off+72 : off+76]),
		Unit:            binary.LittleEndian.Uint32(buf[off+76 : off+80]),
		IndomID:         int64(int32(binary.LittleEndian.Uint32(buf[off+80 : off+84]))),
		ShortHelpOffset: int64(binary.LittleEndian.Uint64(buf[off+88 : off+96])),
		LongHelpOffset:  int64(binary.LittleEndian.Uint64(buf[off+96 : off+104])),
	}
}

// PutValue encodes a Value record at buf[off:off+32]. For a STRING value,
// value is the offset of the currently-referenced string slot (always the
// primary slot at export time) and extra is the offset of its shadow slot.
func PutValue(buf []byte, r layout.ValueRecord) {
	off := r.Offset
	var value uint64
	if r.IsString {
		value = uint64(r.PrimaryStringOffset)
		binary.LittleEndian.PutUint64(buf[off+8:off+16], uint64(r.ShadowStringOffset))
	} else {
		value = r.Fixed
		binary.LittleEndian.PutUint64(buf[off+8:off+16], 0)
	}
	binary.LittleEndian.PutUint64(buf[off:off+8], value)
	binary.LittleEndian.PutUint64(buf[off+16:off+24], uint64(r.MetricOffset))
	binary.LittleEndian.PutUint64(buf[off+24:off+32], uint64(r.InstanceOffset))
}

// GetValue decodes a Value record at buf[off:off+32]. Whether the value is a
// string pointer or a fixed-width payload is determined by the caller from
// the referenced Metric's type tag.
func GetValue(buf []byte, off int64) layout.ValueRecord {
	return layout.ValueRecord{
		Offset:         off,
		Fixed:          binary.LittleEndian.Uint64(buf[off : off+8]),
		MetricOffset:   int64(binary.LittleEndian.Uint64(buf[off+16 : off+24])),
		InstanceOffset: int64(binary.LittleEndian.Uint64(buf[off+24 : off+32])),
	}
}

// PutString encodes a NUL-terminated, zero-padded 256-byte String record at
// buf[off:off+256].
func PutString(buf []byte, off int64, s string) {
	region := buf[off : off+int64(StringSize)]
	for i := range region {
		region[i] = 0
	}
	copy(region, s)
	// region[len(s)] is already 0 (the NUL terminator) from the clear above.
}

// GetString decodes the NUL-terminated payload of a 256-byte String record
// at buf[off:off+256].
func GetString(buf []byte, off int64) string {
	region := buf[off : off+int64(StringSize)]
	n := indexByte(region, 0)
	if n < 0 {
		n = len(region)
	}
	return string(region[:n])
}

// StringSize is the fixed wire size of a String record.
const StringSize = 256

func putFixedString(region []byte, s string) {
	for i := range region {
		region[i] = 0
	}
	n := copy(region, s)
	_ = n // region[n] (if n < len(region)) is already 0, the NUL terminator
}

func getFixedString(region []byte) string {
	n := indexByte(region, 0)
	if n < 0 {
		n = len(region)
	}
	return string(region[:n])
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
