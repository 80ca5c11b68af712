// Package mmvcheck is an internal decoder for MMV files: it walks a mapped
// buffer's TOC and reconstructs every record as a plain Go value, so tests
// can assert on the exact bytes Client.Export produced without exposing a
// decoder on the public API. Besides the tests, only cmd/mmvexample's dump
// subcommand imports it; it is not a general-purpose decoder.
//
// It decodes each TOC section concurrently, one goroutine per section,
// through internal/wire's Get* functions rather than an unsafe struct
// overlay, so the writer and this checker can never disagree about field
// offsets.
package mmvcheck

import (
	"fmt"
	"sync"

	"github.com/pcpmmv/mmv/internal/layout"
	"github.com/pcpmmv/mmv/internal/wire"
)

// Snapshot is a fully decoded MMV file.
type Snapshot struct {
	Header    wire.Header
	Toc       []layout.TocEntry
	Indoms    map[int64]layout.IndomRecord
	Instances map[int64]layout.InstanceRecord
	Metrics   map[int64]layout.MetricRecord
	Values    map[int64]layout.ValueRecord
	Strings   map[int64]string
}

// Decode parses data into a Snapshot, validating the magic and the TOC
// bounds but not cross-reference consistency (callers assert on that
// themselves, since what counts as consistent is test-specific).
func Decode(data []byte) (*Snapshot, error) {
	if len(data) < wire.HeaderSize {
		return nil, fmt.Errorf("mmvcheck: file of %d bytes is smaller than the header", len(data))
	}
	if string(data[0:3]) != "MMV" {
		return nil, fmt.Errorf("mmvcheck: bad magic %q", data[0:4])
	}

	h := wire.GetHeader(data)
	if h.Generation1 != h.Generation2 {
		return nil, fmt.Errorf("mmvcheck: mismatched generations %d/%d, file is mid-export", h.Generation1, h.Generation2)
	}

	toc := make([]layout.TocEntry, h.TocCount)
	for i := range toc {
		off := int64(wire.HeaderSize) + int64(i)*wire.TocEntrySize
		if off+wire.TocEntrySize > int64(len(data)) {
			return nil, fmt.Errorf("mmvcheck: TOC entry %d is truncated", i)
		}
		toc[i] = wire.GetTocEntry(data, off)
	}

	snap := &Snapshot{
		Header:    h,
		Toc:       toc,
		Indoms:    make(map[int64]layout.IndomRecord),
		Instances: make(map[int64]layout.InstanceRecord),
		Metrics:   make(map[int64]layout.MetricRecord),
		Values:    make(map[int64]layout.ValueRecord),
		Strings:   make(map[int64]string),
	}

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		errs = make([]error, len(toc))
	)

	wg.Add(len(toc))
	for i, entry := range toc {
		go func(i int, entry layout.TocEntry) {
			defer wg.Done()
			errs[i] = decodeSection(data, entry, snap, &mu)
		}(i, entry)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return snap, nil
}

func decodeSection(data []byte, entry layout.TocEntry, snap *Snapshot, mu *sync.Mutex) error {
	switch entry.Kind {
	case layout.TocIndoms:
		for i := uint32(0); i < entry.Count; i++ {
			off := entry.Offset + int64(i)*layout.IndomSize
			if off+layout.IndomSize > int64(len(data)) {
				return fmt.Errorf("mmvcheck: indom record %d is truncated", i)
			}
			r := wire.GetIndom(data, off)
			mu.Lock()
			snap.Indoms[off] = r
			mu.Unlock()
		}
	case layout.TocInstances:
		for i := uint32(0); i < entry.Count; i++ {
			off := entry.Offset + int64(i)*layout.InstanceSize
			if off+layout.InstanceSize > int64(len(data)) {
				return fmt.Errorf("mmvcheck: instance record %d is truncated", i)
			}
			r := wire.GetInstance(data, off)
			mu.Lock()
			snap.Instances[off] = r
			mu.Unlock()
		}
	case layout.TocMetrics:
		for i := uint32(0); i < entry.Count; i++ {
			off := entry.Offset + int64(i)*layout.MetricSize
			if off+layout.MetricSize > int64(len(data)) {
				return fmt.Errorf("mmvcheck: metric record %d is truncated", i)
			}
			r := wire.GetMetric(data, off)
			mu.Lock()
			snap.Metrics[off] = r
			mu.Unlock()
		}
	case layout.TocValues:
		for i := uint32(0); i < entry.Count; i++ {
			off := entry.Offset + int64(i)*layout.ValueSize
			if off+layout.ValueSize > int64(len(data)) {
				return fmt.Errorf("mmvcheck: value record %d is truncated", i)
			}
			r := wire.GetValue(data, off)
			mu.Lock()
			snap.Values[off] = r
			mu.Unlock()
		}
	case layout.TocStrings:
		for i := uint32(0); i < entry.Count; i++ {
			off := entry.Offset + int64(i)*layout.StringSize
			if off+layout.StringSize > int64(len(data)) {
				return fmt.Errorf("mmvcheck: string record %d is truncated", i)
			}
			s := wire.GetString(data, off)
			mu.Lock()
			snap.Strings[off] = s
			mu.Unlock()
		}
	default:
		return fmt.Errorf("mmvcheck: unknown TOC section kind %d", entry.Kind)
	}
	return nil
}

// MetricByName finds a decoded metric record by its name field.
func (s *Snapshot) MetricByName(name string) (layout.MetricRecord, bool) {
	for _, m := range s.Metrics {
		if m.Name == name {
			return m, true
		}
	}
	return layout.MetricRecord{}, false
}

// ValuesForMetric returns every decoded value record whose MetricOffset
// matches metricOffset.
func (s *Snapshot) ValuesForMetric(metricOffset int64) []layout.ValueRecord {
	var out []layout.ValueRecord
	for _, v := range s.Values {
		if v.MetricOffset == metricOffset {
			out = append(out, v)
		}
	}
	return out
}
