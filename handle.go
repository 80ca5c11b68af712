package mmv

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/pcpmmv/mmv/internal/layout"
	"github.com/pcpmmv/mmv/internal/wire"
)

// mmapHandle is the valueHandle backing a live, exported metric: writes go
// straight into the mapped file at the offsets the layout planner assigned
// this value.
type mmapHandle struct {
	data       []byte
	valueOff   int64
	primaryOff int64
	shadowOff  int64
	closed     *atomic.Bool
}

func newMmapHandle(data []byte, rec *layout.ValueRecord, closed *atomic.Bool) *mmapHandle {
	return &mmapHandle{
		data:       data,
		valueOff:   rec.Offset,
		primaryOff: rec.PrimaryStringOffset,
		shadowOff:  rec.ShadowStringOffset,
		closed:     closed,
	}
}

func (h *mmapHandle) writeFixed(t Type, val interface{}) error {
	if h.closed.Load() {
		return ErrSlotFrozen
	}
	bits, err := encodeFixed(t, val)
	if err != nil {
		return err
	}
	wire.WriteFixed(h.data, h.valueOff, bits)
	return nil
}

func (h *mmapHandle) writeString(s string) error {
	if h.closed.Load() {
		return ErrSlotFrozen
	}
	wire.WriteString(h.data, h.valueOff, h.primaryOff, h.shadowOff, s)
	return nil
}

// encodeFixed packs val into the little-endian 8-byte bit pattern its value
// slot carries on the wire. Narrower types (including signed int32) are
// zero-extended to fill the slot so the unused high bytes are always zero.
func encodeFixed(t Type, val interface{}) (uint64, error) {
	switch t {
	case Int32Type:
		v, ok := val.(int32)
		if !ok {
			return 0, fmt.Errorf("%w: expected int32, got %T", ErrTypeMismatch, val)
		}
		return uint64(uint32(v)), nil
	case Uint32Type:
		v, ok := val.(uint32)
		if !ok {
			return 0, fmt.Errorf("%w: expected uint32, got %T", ErrTypeMismatch, val)
		}
		return uint64(v), nil
	case Int64Type:
		v, ok := val.(int64)
		if !ok {
			return 0, fmt.Errorf("%w: expected int64, got %T", ErrTypeMismatch, val)
		}
		return uint64(v), nil
	case Uint64Type:
		v, ok := val.(uint64)
		if !ok {
			return 0, fmt.Errorf("%w: expected uint64, got %T", ErrTypeMismatch, val)
		}
		return v, nil
	case FloatType:
		v, ok := val.(float32)
		if !ok {
			return 0, fmt.Errorf("%w: expected float32, got %T", ErrTypeMismatch, val)
		}
		return uint64(math.Float32bits(v)), nil
	case DoubleType:
		v, ok := val.(float64)
		if !ok {
			return 0, fmt.Errorf("%w: expected float64, got %T", ErrTypeMismatch, val)
		}
		return math.Float64bits(v), nil
	default:
		return 0, fmt.Errorf("%w: type %v has no fixed-width encoding", ErrTypeMismatch, t)
	}
}
