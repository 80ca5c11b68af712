package mmv

import (
	"fmt"
	"sort"
)

// Histogram tracks counts of observations falling into caller-defined,
// contiguous buckets, exported as one InstanceMetric instance per bucket.
// It carries no statistics engine of its own, only bucket bookkeeping.
type Histogram struct {
	*InstanceMetric
	bounds []float64 // upper bound of every bucket but the last, ascending
	names  []string  // instance name per bucket, same order as bounds plus "+Inf"
}

// NewHistogram creates a Histogram with one bucket per upper bound in
// bounds (sorted ascending here; each bound is inclusive, so a bucket named
// "<=b" counts observations v <= b) plus a final "+Inf" bucket, backed by a
// new instance domain with id domainID whose short help is
// name+" histogram buckets".
func NewHistogram(itemID, domainID uint32, name string, bounds []float64, desc ...string) (*Histogram, error) {
	if len(bounds) == 0 {
		return nil, fmt.Errorf("%w: histogram %q needs at least one bucket bound", ErrInvalidDomain, name)
	}
	sorted := append([]float64(nil), bounds...)
	sort.Float64s(sorted)

	names := make([]string, len(sorted)+1)
	for i, b := range sorted {
		names[i] = fmt.Sprintf("<=%g", b)
	}
	names[len(sorted)] = "+Inf"

	indom, err := NewInstanceDomainFromNames(domainID, name+" histogram buckets", "", names...)
	if err != nil {
		return nil, err
	}

	vals := make(Instances, len(names))
	for _, n := range names {
		vals[n] = int64(0)
	}

	m, err := NewInstanceMetric(vals, itemID, name, indom, Int64Type, CounterSemantics, CountOne(), desc...)
	if err != nil {
		return nil, err
	}

	return &Histogram{InstanceMetric: m, bounds: sorted, names: names}, nil
}

// Observe increments the count of the bucket v falls into.
func (h *Histogram) Observe(v float64) error {
	for i, b := range h.bounds {
		if v <= b {
			return h.incBucket(h.names[i])
		}
	}
	return h.incBucket(h.names[len(h.names)-1])
}

// MustObserve is Observe that panics on error.
func (h *Histogram) MustObserve(v float64) {
	if err := h.Observe(v); err != nil {
		panic(err)
	}
}

func (h *Histogram) incBucket(bucket string) error {
	cur, err := h.ValInstance(bucket)
	if err != nil {
		return err
	}
	return h.SetInstance(bucket, cur.(int64)+1)
}

// BucketCount returns the current count of the named bucket.
func (h *Histogram) BucketCount(bucket string) (int64, error) {
	v, err := h.ValInstance(bucket)
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}
