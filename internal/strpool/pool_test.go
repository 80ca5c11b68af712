package strpool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInternDeduplicatesIdenticalContent(t *testing.T) {
	p := New()

	a, err := p.Intern("hello")
	require.NoError(t, err)
	b, err := p.Intern("hello")
	require.NoError(t, err)
	require.Equal(t, a, b)
	require.Equal(t, 1, p.MetadataCount())

	c, err := p.Intern("world")
	require.NoError(t, err)
	require.NotEqual(t, a, c)
	require.Equal(t, 2, p.MetadataCount())
}

func TestInternRejectsOversizeString(t *testing.T) {
	p := New()
	_, err := p.Intern(strings.Repeat("x", MaxLength+1))
	require.Error(t, err)
}

func TestAddValueSlotNeverDeduplicates(t *testing.T) {
	p := New()

	a, err := p.AddValueSlot("same")
	require.NoError(t, err)
	b, err := p.AddValueSlot("same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
	require.Equal(t, 2, p.ValueSlotCount())
}

func TestValueSlotRecordIndexAccountsForMetadata(t *testing.T) {
	p := New()

	_, err := p.Intern("meta-one")
	require.NoError(t, err)
	_, err = p.Intern("meta-two")
	require.NoError(t, err)

	slot, err := p.AddValueSlot("value")
	require.NoError(t, err)
	require.Equal(t, 0, slot)
	require.Equal(t, 2, p.ValueSlotRecordIndex(slot))

	entries := p.Entries()
	require.Len(t, entries, 3)
	require.Equal(t, "value", entries[p.ValueSlotRecordIndex(slot)].Value)
}

func TestEntriesOrdersMetadataBeforeValueSlots(t *testing.T) {
	p := New()

	_, err := p.AddValueSlot("slot")
	require.NoError(t, err)
	_, err = p.Intern("meta")
	require.NoError(t, err)

	entries := p.Entries()
	require.Equal(t, "meta", entries[0].Value)
	require.Equal(t, "slot", entries[1].Value)
}
