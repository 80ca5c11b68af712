package mmvcheck

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pcpmmv/mmv/internal/layout"
	"github.com/pcpmmv/mmv/internal/wire"
)

func TestDecodeRejectsTooSmallBuffer(t *testing.T) {
	_, err := Decode([]byte{1, 2, 3})
	require.Error(t, err)
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	buf := make([]byte, wire.HeaderSize)
	_, err := Decode(buf)
	require.Error(t, err)
}

func TestDecodeRejectsMismatchedGenerations(t *testing.T) {
	p, err := layout.Plan(layout.Input{
		Metrics: []layout.MetricInput{{ItemID: 1, Name: "m", IndomID: -1, Values: []layout.ValueInput{{Fixed: 1}}}},
	}, layout.DefaultSizeCap)
	require.NoError(t, err)

	buf := wire.Build(p, wire.Header{Generation1: 1, Generation2: 2})
	_, err = Decode(buf)
	require.Error(t, err)
}

func TestDecodeReconstructsMetricsAndValues(t *testing.T) {
	indom, err := layout.Plan(layout.Input{
		Indoms: []layout.IndomInput{{ID: 1, Instances: []layout.InstanceInput{{InternalID: 0, Name: "a"}}}},
		Metrics: []layout.MetricInput{
			{ItemID: 1, Name: "requests", IndomID: -1, Values: []layout.ValueInput{{Fixed: 7}}},
			{ItemID: 2, Name: "by.region", IndomID: 1, Values: []layout.ValueInput{{InstanceName: "a", Fixed: 3}}},
		},
	}, layout.DefaultSizeCap)
	require.NoError(t, err)

	buf := wire.Build(indom, wire.Header{Generation1: 1, Generation2: 1})
	snap, err := Decode(buf)
	require.NoError(t, err)

	m, ok := snap.MetricByName("requests")
	require.True(t, ok)
	vs := snap.ValuesForMetric(m.Offset)
	require.Len(t, vs, 1)
	require.Equal(t, uint64(7), vs[0].Fixed)

	require.Len(t, snap.Indoms, 1)
	require.Len(t, snap.Instances, 1)
}
