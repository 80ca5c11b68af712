package mmv

import "fmt"

// SpaceScale is the scale component of a unit's space dimension.
//
// Bit layout mirrors PCP's pmUnits: the space dimension's signed power
// occupies bits 28-31 with its scale in bits 16-19.
// See: https://github.com/performancecopilot/pcp/blob/master/src/include/pcp/pmapi.h#L61-L101
type SpaceScale uint32

// Possible values for SpaceScale.
const (
	ByteScale SpaceScale = iota
	KibibyteScale
	MebibyteScale
	GibibyteScale
	TebibyteScale
	PebibyteScale
	ExbibyteScale
)

// TimeScale is the scale component of a unit's time dimension.
//
// The time dimension occupies bits 24-27 with its scale in bits 12-15.
type TimeScale uint32

// Possible values for TimeScale.
const (
	NanosecondScale TimeScale = iota
	MicrosecondScale
	MillisecondScale
	SecondScale
	MinuteScale
	HourScale
)

// CountScale is the scale component of a unit's count dimension.
//
// The count dimension occupies bits 20-23 with its scale in bits 8-11; "one"
// is the only scale PCP defines for counted quantities.
type CountScale uint32

// OneScale is the only defined CountScale.
const OneScale CountScale = 0

const (
	dimSpaceShift   = 28
	scaleSpaceShift = 16
	dimTimeShift    = 24
	scaleTimeShift  = 12
	dimCountShift   = 20
	scaleCountShift = 8

	dimMask = 0xf
)

// Unit is the packed 32-bit PCP unit word for a metric: up to three
// dimensions (space, time, count), each with a power in -8..+7 and a scale,
// plus reserved bits left zero. The zero Unit is dimensionless.
type Unit uint32

// Builder assembles a Unit one dimension at a time. Each dimension may be
// set at most once; a power outside -8..+7 fails the build.
type Builder struct {
	word uint32
	err  error
}

// NewUnitBuilder returns an empty Builder.
func NewUnitBuilder() *Builder {
	return &Builder{}
}

func checkPower(power int) error {
	if power < -8 || power > 7 {
		return fmt.Errorf("%w: power %d out of range -8..7", ErrInvalidUnit, power)
	}
	return nil
}

// Space sets the space dimension's scale and power.
func (b *Builder) Space(scale SpaceScale, power int) *Builder {
	if b.err != nil {
		return b
	}
	if err := checkPower(power); err != nil {
		b.err = err
		return b
	}
	dim := uint32(power) & dimMask
	b.word |= dim << dimSpaceShift
	b.word |= (uint32(scale) & dimMask) << scaleSpaceShift
	return b
}

// Time sets the time dimension's scale and power.
func (b *Builder) Time(scale TimeScale, power int) *Builder {
	if b.err != nil {
		return b
	}
	if err := checkPower(power); err != nil {
		b.err = err
		return b
	}
	dim := uint32(power) & dimMask
	b.word |= dim << dimTimeShift
	b.word |= (uint32(scale) & dimMask) << scaleTimeShift
	return b
}

// Count sets the count dimension's scale and power.
func (b *Builder) Count(scale CountScale, power int) *Builder {
	if b.err != nil {
		return b
	}
	if err := checkPower(power); err != nil {
		b.err = err
		return b
	}
	dim := uint32(power) & dimMask
	b.word |= dim << dimCountShift
	b.word |= (uint32(scale) & dimMask) << scaleCountShift
	return b
}

// Build returns the packed Unit, or the first error encountered while
// chaining dimension calls.
func (b *Builder) Build() (Unit, error) {
	if b.err != nil {
		return 0, b.err
	}
	return Unit(b.word), nil
}

// CountOne is the unit for a plain counted quantity (PCP's OneUnit): count
// dimension, power 1, scale "one". It is the common case for request/event
// counters and is provided as a shortcut for NewUnitBuilder().Count(OneScale, 1).
func CountOne() Unit {
	u, _ := NewUnitBuilder().Count(OneScale, 1).Build()
	return u
}

// PMAPI returns the packed 32-bit PCP representation of the unit.
func (u Unit) PMAPI() uint32 { return uint32(u) }

func (u Unit) String() string {
	return fmt.Sprintf("0x%08x", uint32(u))
}
