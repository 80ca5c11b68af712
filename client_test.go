package mmv

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pcpmmv/mmv/internal/mmvcheck"
)

func TestNewClientValidatesName(t *testing.T) {
	_, err := NewClient("bad name with spaces")
	require.ErrorIs(t, err, ErrInvalidName)

	c, err := NewClient("good-name_1.0")
	require.NoError(t, err)
	require.NotNil(t, c)
}

func TestRegisterRejectsDuplicateNameAndItemID(t *testing.T) {
	c, err := NewClient("dupes")
	require.NoError(t, err)

	m1, err := NewSingletonMetric(int32(0), 1, "m", Int32Type, NoSemantics, Unit(0))
	require.NoError(t, err)
	require.NoError(t, c.Register(m1))

	m2, err := NewSingletonMetric(int32(0), 2, "m", Int32Type, NoSemantics, Unit(0))
	require.NoError(t, err)
	err = c.Register(m2)
	require.ErrorIs(t, err, ErrInvalidName)

	m3, err := NewSingletonMetric(int32(0), 1, "m3", Int32Type, NoSemantics, Unit(0))
	require.NoError(t, err)
	err = c.Register(m3)
	require.ErrorIs(t, err, ErrInvalidName)
}

func TestRegisterRejectsConflictingIndomID(t *testing.T) {
	c, err := NewClient("indom-conflict")
	require.NoError(t, err)

	d1, err := NewInstanceDomainFromNames(1, "", "", "a")
	require.NoError(t, err)
	d2, err := NewInstanceDomainFromNames(1, "", "", "b")
	require.NoError(t, err)

	m1, err := NewInstanceMetric(Instances{"a": int64(0)}, 1, "m1", d1, Int64Type, NoSemantics, Unit(0))
	require.NoError(t, err)
	require.NoError(t, c.Register(m1))

	m2, err := NewInstanceMetric(Instances{"b": int64(0)}, 2, "m2", d2, Int64Type, NoSemantics, Unit(0))
	require.NoError(t, err)
	err = c.Register(m2)
	require.ErrorIs(t, err, ErrInvalidDomain)
}

func TestExportThenSetWritesThroughAndRoundTrips(t *testing.T) {
	t.Setenv("PCP_TMP_DIR", t.TempDir())

	c, err := NewClient("roundtrip", ProcessFlag)
	require.NoError(t, err)

	counter, err := NewCounter(1, 0, "requests", "request count")
	require.NoError(t, err)
	require.NoError(t, c.Register(counter))

	indom, err := NewInstanceDomainFromNames(1, "", "", "east", "west")
	require.NoError(t, err)
	region, err := NewInstanceMetric(Instances{"east": int64(1), "west": int64(2)}, 2, "region.load", indom, Int64Type, InstantSemantics, Unit(0))
	require.NoError(t, err)
	require.NoError(t, c.Register(region))

	str, err := NewSingletonMetric("hello", 3, "greeting", StringType, NoSemantics, Unit(0))
	require.NoError(t, err)
	require.NoError(t, c.Register(str))

	require.NoError(t, c.Export())
	defer c.MustStop()

	require.NoError(t, counter.Set(5))
	require.NoError(t, region.SetInstance("east", int64(99)))
	require.NoError(t, str.Set("updated"))

	snap, err := mmvcheck.Decode(c.mapped.Data)
	require.NoError(t, err)

	requestsMetric, ok := snap.MetricByName("requests")
	require.True(t, ok)
	values := snap.ValuesForMetric(requestsMetric.Offset)
	require.Len(t, values, 1)
	require.Equal(t, uint64(5), values[0].Fixed)

	greetingMetric, ok := snap.MetricByName("greeting")
	require.True(t, ok)
	gValues := snap.ValuesForMetric(greetingMetric.Offset)
	require.Len(t, gValues, 1)
	require.Equal(t, "updated", snap.Strings[int64(gValues[0].Fixed)])
}

// TestSingletonCounterMatchesWorkedByteEncoding checks the spec's worked
// example directly: an I32 value of 42 is stored as the little-endian bytes
// 2A 00 00 00 00 00 00 00 at the value slot.
func TestSingletonCounterMatchesWorkedByteEncoding(t *testing.T) {
	t.Setenv("PCP_TMP_DIR", t.TempDir())

	c, err := NewClient("simple")
	require.NoError(t, err)

	m, err := NewSingletonMetric(int32(42), 725, "simple.counter", Int32Type, CounterSemantics, CountOne(), "A Simple Metric", "...")
	require.NoError(t, err)
	require.NoError(t, c.Register(m))
	require.NoError(t, c.Export())
	defer c.MustStop()

	snap, err := mmvcheck.Decode(c.mapped.Data)
	require.NoError(t, err)

	metric, ok := snap.MetricByName("simple.counter")
	require.True(t, ok)
	values := snap.ValuesForMetric(metric.Offset)
	require.Len(t, values, 1)

	want := []byte{0x2A, 0, 0, 0, 0, 0, 0, 0}
	got := c.mapped.Data[values[0].Offset : values[0].Offset+8]
	require.Equal(t, want, got)
}

// TestExportWithNoMetricsProducesHeaderOnlyFile covers the "empty export"
// scenario: a client with nothing registered still exports successfully, to
// a 40-byte, header-only file with a zero TOC count.
func TestExportWithNoMetricsProducesHeaderOnlyFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PCP_TMP_DIR", dir)

	c, err := NewClient("empty")
	require.NoError(t, err)
	require.NoError(t, c.Export())
	defer c.MustStop()

	require.Len(t, c.mapped.Data, 40)

	snap, err := mmvcheck.Decode(c.mapped.Data)
	require.NoError(t, err)
	require.Empty(t, snap.Toc)
}

// TestInstanceMetricScenarioOnlyTargetInstanceChanges covers the spec's
// worked "products.count" scenario: after export, setting one instance of an
// indom leaves every other instance's value untouched, and an unknown
// instance name is rejected.
func TestInstanceMetricScenarioOnlyTargetInstanceChanges(t *testing.T) {
	t.Setenv("PCP_TMP_DIR", t.TempDir())

	c, err := NewClient("products")
	require.NoError(t, err)

	indom, err := NewInstanceDomainFromNames(1, "", "", "Anvils", "Rockets", "Giant_Rubber_Bands")
	require.NoError(t, err)

	vals := Instances{"Anvils": uint64(0), "Rockets": uint64(0), "Giant_Rubber_Bands": uint64(0)}
	m, err := NewInstanceMetric(vals, 1, "products.count", indom, Uint64Type, CounterSemantics, CountOne())
	require.NoError(t, err)
	require.NoError(t, c.Register(m))
	require.NoError(t, c.Export())
	defer c.MustStop()

	require.NoError(t, m.SetInstance("Rockets", uint64(7)))

	rocketsVal, err := m.ValInstance("Rockets")
	require.NoError(t, err)
	require.Equal(t, uint64(7), rocketsVal)

	anvilsVal, err := m.ValInstance("Anvils")
	require.NoError(t, err)
	require.Equal(t, uint64(0), anvilsVal)

	bandsVal, err := m.ValInstance("Giant_Rubber_Bands")
	require.NoError(t, err)
	require.Equal(t, uint64(0), bandsVal)

	err = m.SetInstance("Missiles", uint64(1))
	require.ErrorIs(t, err, ErrUnknownInstance)
}

func TestSetAfterStopFails(t *testing.T) {
	t.Setenv("PCP_TMP_DIR", t.TempDir())

	c, err := NewClient("frozen")
	require.NoError(t, err)

	counter, err := NewCounter(1, 0, "c", "")
	require.NoError(t, err)
	require.NoError(t, c.Register(counter))
	require.NoError(t, c.Export())
	require.NoError(t, c.Stop())

	err = counter.Set(1)
	require.ErrorIs(t, err, ErrSlotFrozen)
}
