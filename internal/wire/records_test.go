package wire

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pcpmmv/mmv/internal/layout"
)

func TestHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, HeaderSize)
	h := Header{Generation1: 10, Generation2: 10, TocCount: 3, Flags: ProcessFlag, ProcessID: 1234, ClusterID: 7}
	PutHeader(buf, h)

	require.Equal(t, Magic[:], buf[0:4])
	require.Equal(t, h, GetHeader(buf))
}

func TestTocEntryRoundTrip(t *testing.T) {
	buf := make([]byte, TocEntrySize)
	e := layout.TocEntry{Kind: layout.TocMetrics, Count: 4, Offset: 128}
	PutTocEntry(buf, 0, e)
	require.Equal(t, e, GetTocEntry(buf, 0))
}

func TestIndomRoundTrip(t *testing.T) {
	buf := make([]byte, 32)
	r := layout.IndomRecord{ID: 9, InstanceCount: 2, InstancesOffset: 64, ShortHelpOffset: 1000, LongHelpOffset: 2000}
	PutIndom(buf, r)
	require.Equal(t, r, GetIndom(buf, 0))
}

func TestInstanceRoundTrip(t *testing.T) {
	buf := make([]byte, 80)
	r := layout.InstanceRecord{IndomOffset: 40, InternalID: 3, Name: "eth0"}
	PutInstance(buf, r)
	require.Equal(t, r, GetInstance(buf, 0))
}

func TestMetricRoundTrip(t *testing.T) {
	buf := make([]byte, 104)
	r := layout.MetricRecord{
		ItemID: 42, Name: "requests.total", Type: 3, Semantics: 1, Unit: 0,
		IndomID: -1, ShortHelpOffset: 500, LongHelpOffset: 600,
	}
	PutMetric(buf, r)
	require.Equal(t, r, GetMetric(buf, 0))
}

func TestMetricRoundTripWithIndom(t *testing.T) {
	buf := make([]byte, 104)
	r := layout.MetricRecord{ItemID: 1, Name: "m", IndomID: 5}
	PutMetric(buf, r)
	require.Equal(t, int64(5), GetMetric(buf, 0).IndomID)
}

func TestValueRoundTripFixed(t *testing.T) {
	buf := make([]byte, 32)
	r := layout.ValueRecord{MetricOffset: 200, InstanceOffset: 0, Fixed: 0xDEADBEEF}
	PutValue(buf, r)

	got := GetValue(buf, 0)
	require.Equal(t, r.Fixed, got.Fixed)
	require.Equal(t, r.MetricOffset, got.MetricOffset)
	require.Equal(t, r.InstanceOffset, got.InstanceOffset)
}

func TestValueRoundTripString(t *testing.T) {
	buf := make([]byte, 32)
	r := layout.ValueRecord{
		MetricOffset: 200, InstanceOffset: 40,
		IsString: true, PrimaryStringOffset: 900, ShadowStringOffset: 1200,
	}
	PutValue(buf, r)

	got := GetValue(buf, 0)
	require.Equal(t, uint64(900), got.Fixed)
}

func TestStringRoundTrip(t *testing.T) {
	buf := make([]byte, 256)
	PutString(buf, 0, "a payload")
	require.Equal(t, "a payload", GetString(buf, 0))
}

func TestStringRoundTripEmpty(t *testing.T) {
	buf := make([]byte, 256)
	PutString(buf, 0, "")
	require.Equal(t, "", GetString(buf, 0))
}

func TestFixedStringTruncatesAtNUL(t *testing.T) {
	buf := make([]byte, 80)
	PutInstance(buf, layout.InstanceRecord{Name: "short"})
	r := GetInstance(buf, 0)
	require.Equal(t, "short", r.Name)
	require.NotContains(t, r.Name, "\x00")
}
