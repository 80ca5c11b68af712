// Package layout computes the MMV file's byte layout: the order and size of
// every section, and the cross-reference offsets (indom→instance,
// metric→indom, value→metric/instance/string) that make the file
// self-describing to a reader.
//
// The package knows nothing about the caller's metric/instance types; it
// operates entirely on the plain Input structs below, which the root
// package builds from its descriptor model.
package layout

import (
	"errors"
	"fmt"

	"github.com/pcpmmv/mmv/internal/strpool"
)

// Record sizes, as laid out on the wire.
const (
	HeaderSize   = 40
	TocEntrySize = 16
	IndomSize    = 32
	InstanceSize = 80
	MetricSize   = 104
	ValueSize    = 32
	StringSize   = strpool.RecordSize // 256

	// DefaultSizeCap is the soft cap on total file size.
	DefaultSizeCap = 16 * 1024 * 1024
)

// Section kinds, matching the wire TOC's section_kind field.
const (
	TocIndoms    = 1
	TocInstances = 2
	TocMetrics   = 3
	TocValues    = 4
	TocStrings   = 5
)

// ErrTooLarge is returned when the planned layout exceeds the size cap.
var ErrTooLarge = errors.New("layout: planned file size exceeds cap")

// InstanceInput is one instance of an indom, in the order it should appear
// on the wire.
type InstanceInput struct {
	InternalID uint32
	Name       string
}

// IndomInput describes one instance domain.
type IndomInput struct {
	ID                  uint32
	ShortHelp, LongHelp string
	Instances           []InstanceInput
}

// ValueInput is the initial value of one (metric, instance?) pair.
// InstanceName is empty for a singleton metric's sole value.
type ValueInput struct {
	InstanceName string
	IsString     bool
	Fixed        uint64 // little-endian bit pattern, meaningful when !IsString
	Str          string // initial payload, meaningful when IsString
}

// MetricInput describes one metric and the initial value(s) it carries.
type MetricInput struct {
	ItemID              uint32
	Name                string
	Type                uint32
	Semantics           uint32
	Unit                uint32
	IndomID             int64 // -1 if the metric has no instance domain
	ShortHelp, LongHelp string
	Values              []ValueInput
}

// Input is the full, immutable set of descriptors to lay out.
type Input struct {
	Indoms  []IndomInput
	Metrics []MetricInput
}

// IndomRecord is a planned Indom record.
type IndomRecord struct {
	Offset          int64
	ID              uint32
	InstanceCount   int32
	InstancesOffset int64
	ShortHelpOffset int64
	LongHelpOffset  int64
}

// InstanceRecord is a planned Instance record.
type InstanceRecord struct {
	Offset      int64
	IndomOffset int64
	InternalID  uint32
	Name        string
}

// MetricRecord is a planned Metric record.
type MetricRecord struct {
	Offset          int64
	ItemID          uint32
	Name            string
	Type            uint32
	Semantics       uint32
	Unit            uint32
	IndomID         int64
	ShortHelpOffset int64
	LongHelpOffset  int64
}

// ValueRecord is a planned Value record. PrimaryStringOffset/ShadowStringOffset
// are 0 unless the value is a STRING value, in which case they hold the two
// owned 256-byte regions; the value slot's pointer references
// PrimaryStringOffset at export time.
type ValueRecord struct {
	Offset              int64
	MetricOffset        int64
	InstanceOffset      int64 // 0 for a singleton metric's value
	ItemID              uint32
	InstanceName        string
	IsString            bool
	Fixed               uint64
	PrimaryStringOffset int64
	ShadowStringOffset  int64
}

// StringRecord is a planned String record.
type StringRecord struct {
	Offset  int64
	Content string
}

// TocEntry is a planned TOC entry.
type TocEntry struct {
	Kind   uint32
	Count  uint32
	Offset int64
}

// Plan is the complete, offset-assigned layout of one MMV file.
type Plan struct {
	TotalSize int64
	Toc       []TocEntry
	Indoms    []IndomRecord
	Instances []InstanceRecord
	Metrics   []MetricRecord
	Values    []ValueRecord
	Strings   []StringRecord

	valueIndex map[valueKey]int
}

type valueKey struct {
	itemID   uint32
	instance string
}

// ValueByKey looks up a planned value record by metric item id and instance
// name ("" for a singleton).
func (p *Plan) ValueByKey(itemID uint32, instance string) (*ValueRecord, bool) {
	idx, ok := p.valueIndex[valueKey{itemID, instance}]
	if !ok {
		return nil, false
	}
	return &p.Values[idx], true
}

// Plan computes offsets for every section and cross-reference in input,
// rejecting the layout with ErrTooLarge if it would exceed sizeCap (use
// DefaultSizeCap unless the caller configured another).
func Plan(input Input, sizeCap int64) (*Plan, error) {
	pool := strpool.New()

	indomShortOff := make([]int, len(input.Indoms))
	indomLongOff := make([]int, len(input.Indoms))
	for i, d := range input.Indoms {
		var err error
		if indomShortOff[i], err = pool.Intern(d.ShortHelp); err != nil {
			return nil, err
		}
		if indomLongOff[i], err = pool.Intern(d.LongHelp); err != nil {
			return nil, err
		}
	}

	metricShortOff := make([]int, len(input.Metrics))
	metricLongOff := make([]int, len(input.Metrics))
	for i, m := range input.Metrics {
		var err error
		if metricShortOff[i], err = pool.Intern(m.ShortHelp); err != nil {
			return nil, err
		}
		if metricLongOff[i], err = pool.Intern(m.LongHelp); err != nil {
			return nil, err
		}
	}

	// String-value slots (primary + shadow per STRING value), appended
	// after all metadata strings, never deduplicated.
	type stringSlotPair struct{ primary, shadow int }
	slotIndex := make(map[valueKey]stringSlotPair)
	for _, m := range input.Metrics {
		for _, v := range m.Values {
			if !v.IsString {
				continue
			}
			primary, err := pool.AddValueSlot(v.Str)
			if err != nil {
				return nil, err
			}
			shadow, err := pool.AddValueSlot("")
			if err != nil {
				return nil, err
			}
			slotIndex[valueKey{m.ItemID, v.InstanceName}] = stringSlotPair{
				primary: pool.ValueSlotRecordIndex(primary),
				shadow:  pool.ValueSlotRecordIndex(shadow),
			}
		}
	}

	// Section counts.
	indomCount := len(input.Indoms)
	instanceCount := 0
	for _, d := range input.Indoms {
		instanceCount += len(d.Instances)
	}
	metricCount := len(input.Metrics)
	valueCount := 0
	for _, m := range input.Metrics {
		valueCount += len(m.Values)
	}
	stringCount := pool.Count()

	toc := make([]TocEntry, 0, 5)
	appendToc := func(kind uint32, count int) {
		if count > 0 {
			toc = append(toc, TocEntry{Kind: kind, Count: uint32(count)})
		}
	}
	appendToc(TocIndoms, indomCount)
	appendToc(TocInstances, instanceCount)
	appendToc(TocMetrics, metricCount)
	appendToc(TocValues, valueCount)
	appendToc(TocStrings, stringCount)

	offset := int64(HeaderSize) + int64(len(toc))*TocEntrySize

	indomsOffset := offset
	offset += int64(indomCount) * IndomSize
	instancesOffset := offset
	offset += int64(instanceCount) * InstanceSize
	metricsOffset := offset
	offset += int64(metricCount) * MetricSize
	valuesOffset := offset
	offset += int64(valueCount) * ValueSize
	stringsOffset := offset
	offset += int64(stringCount) * StringSize

	for i := range toc {
		switch toc[i].Kind {
		case TocIndoms:
			toc[i].Offset = indomsOffset
		case TocInstances:
			toc[i].Offset = instancesOffset
		case TocMetrics:
			toc[i].Offset = metricsOffset
		case TocValues:
			toc[i].Offset = valuesOffset
		case TocStrings:
			toc[i].Offset = stringsOffset
		}
	}

	totalSize := offset
	if sizeCap <= 0 {
		sizeCap = DefaultSizeCap
	}
	if totalSize > sizeCap {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d byte cap", ErrTooLarge, totalSize, sizeCap)
	}

	// Strings section: offsets are simply sequential, in pool.Entries() order.
	entries := pool.Entries()
	strings := make([]StringRecord, len(entries))
	for i, e := range entries {
		strings[i] = StringRecord{
			Offset:  stringsOffset + int64(i)*StringSize,
			Content: e.Value,
		}
	}
	stringOffsetAt := func(idx int) int64 { return stringsOffset + int64(idx)*StringSize }

	// Indom records + their instances.
	indoms := make([]IndomRecord, indomCount)
	instances := make([]InstanceRecord, 0, instanceCount)
	instOffset := instancesOffset
	for i, d := range input.Indoms {
		indomRecOffset := indomsOffset + int64(i)*IndomSize
		indoms[i] = IndomRecord{
			Offset:          indomRecOffset,
			ID:              d.ID,
			InstanceCount:   int32(len(d.Instances)),
			InstancesOffset: instOffset,
			ShortHelpOffset: stringOffsetAt(indomShortOff[i]),
			LongHelpOffset:  stringOffsetAt(indomLongOff[i]),
		}
		for _, inst := range d.Instances {
			instances = append(instances, InstanceRecord{
				Offset:      instOffset,
				IndomOffset: indomRecOffset,
				InternalID:  inst.InternalID,
				Name:        inst.Name,
			})
			instOffset += InstanceSize
		}
	}

	// index instance offsets by (indomID, name) for metric value wiring.
	instOffsetByName := make(map[uint32]map[string]int64, indomCount)
	idx := 0
	for _, d := range input.Indoms {
		m := make(map[string]int64, len(d.Instances))
		for range d.Instances {
			m[instances[idx].Name] = instances[idx].Offset
			idx++
		}
		instOffsetByName[d.ID] = m
	}

	// Metric records.
	metrics := make([]MetricRecord, metricCount)
	metricOffsetByItem := make(map[uint32]int64, metricCount)
	for i, m := range input.Metrics {
		recOffset := metricsOffset + int64(i)*MetricSize
		metrics[i] = MetricRecord{
			Offset:          recOffset,
			ItemID:          m.ItemID,
			Name:            m.Name,
			Type:            m.Type,
			Semantics:       m.Semantics,
			Unit:            m.Unit,
			IndomID:         m.IndomID,
			ShortHelpOffset: stringOffsetAt(metricShortOff[i]),
			LongHelpOffset:  stringOffsetAt(metricLongOff[i]),
		}
		metricOffsetByItem[m.ItemID] = recOffset
	}

	// Value records, grouped by metric (insertion order within a metric).
	values := make([]ValueRecord, 0, valueCount)
	valueIndex := make(map[valueKey]int, valueCount)
	valOffset := valuesOffset
	for _, m := range input.Metrics {
		metricOffset := metricOffsetByItem[m.ItemID]
		var indomID uint32
		hasIndom := m.IndomID >= 0
		if hasIndom {
			indomID = uint32(m.IndomID)
		}
		for _, v := range m.Values {
			var instOff int64
			if hasIndom {
				instOff = instOffsetByName[indomID][v.InstanceName]
			}

			rec := ValueRecord{
				Offset:         valOffset,
				MetricOffset:   metricOffset,
				InstanceOffset: instOff,
				ItemID:         m.ItemID,
				InstanceName:   v.InstanceName,
				IsString:       v.IsString,
				Fixed:          v.Fixed,
			}
			if v.IsString {
				pair := slotIndex[valueKey{m.ItemID, v.InstanceName}]
				rec.PrimaryStringOffset = stringOffsetAt(pair.primary)
				rec.ShadowStringOffset = stringOffsetAt(pair.shadow)
			}

			valueIndex[valueKey{m.ItemID, v.InstanceName}] = len(values)
			values = append(values, rec)
			valOffset += ValueSize
		}
	}

	return &Plan{
		TotalSize:  totalSize,
		Toc:        toc,
		Indoms:     indoms,
		Instances:  instances,
		Metrics:    metrics,
		Values:     values,
		Strings:    strings,
		valueIndex: valueIndex,
	}, nil
}
