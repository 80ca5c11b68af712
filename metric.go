package mmv

import (
	"fmt"
	"sync"
)

// MetricDesc carries the metadata shared by every kind of metric: the
// caller-supplied item id, its name, type, semantics, unit, and help text.
// It maps directly onto the wire Metric record once a Client.Export
// assigns it an offset.
type MetricDesc struct {
	itemID              uint32
	name                string
	t                   Type
	sem                 Semantics
	u                   Unit
	shortHelp, longHelp string
	indom               *InstanceDomain
}

func newMetricDesc(itemID uint32, name string, t Type, sem Semantics, u Unit, indom *InstanceDomain, shortHelp, longHelp string) (*MetricDesc, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	return &MetricDesc{
		itemID:    itemID,
		name:      name,
		t:         t,
		sem:       sem,
		u:         u,
		indom:     indom,
		shortHelp: shortHelp,
		longHelp:  longHelp,
	}, nil
}

// ID returns the metric's item id.
func (d *MetricDesc) ID() uint32 { return d.itemID }

// Name returns the metric's name.
func (d *MetricDesc) Name() string { return d.name }

// Type returns the metric's declared type.
func (d *MetricDesc) Type() Type { return d.t }

// Semantics returns the metric's semantics.
func (d *MetricDesc) Semantics() Semantics { return d.sem }

// Unit returns the metric's packed unit word.
func (d *MetricDesc) Unit() Unit { return d.u }

// Indom returns the metric's instance domain, or nil for a singleton metric.
func (d *MetricDesc) Indom() *InstanceDomain { return d.indom }

// ShortDescription returns the metric's short help text.
func (d *MetricDesc) ShortDescription() string { return d.shortHelp }

// LongDescription returns the metric's long help text.
func (d *MetricDesc) LongDescription() string { return d.longHelp }

// Description returns the concatenated short and long help text.
func (d *MetricDesc) Description() string {
	if d.longHelp == "" {
		return d.shortHelp
	}
	return d.shortHelp + "\n\n" + d.longHelp
}

///////////////////////////////////////////////////////////////////////////

// valueHandle is the live, offset-keyed write target for one (metric,
// instance?) value, attached by Client.Export once the layout is committed.
// Before export it is nil and Set only updates the in-memory val.
type valueHandle interface {
	writeFixed(t Type, val interface{}) error
	writeString(s string) error
}

// SingletonMetric is a metric with no instance domain: a single named,
// typed, mutable value.
type SingletonMetric struct {
	*MetricDesc
	mu     sync.RWMutex
	val    interface{}
	handle valueHandle
}

// NewSingletonMetric creates a singleton metric. itemID must be unique
// within the eventual export; desc is optional (shortHelp[, longHelp]).
func NewSingletonMetric(val interface{}, itemID uint32, name string, t Type, sem Semantics, u Unit, desc ...string) (*SingletonMetric, error) {
	if !t.IsCompatible(val) {
		return nil, fmt.Errorf("%w: value %v is not compatible with type %v", ErrTypeMismatch, val, t)
	}

	short, long, err := splitDesc(desc)
	if err != nil {
		return nil, err
	}

	d, err := newMetricDesc(itemID, name, t, sem, u, nil, short, long)
	if err != nil {
		return nil, err
	}

	return &SingletonMetric{
		MetricDesc: d,
		val:        t.resolve(val),
	}, nil
}

func splitDesc(desc []string) (short, long string, err error) {
	if len(desc) > 2 {
		return "", "", fmt.Errorf("%w: at most 2 description strings (short, long) accepted", ErrInvalidName)
	}
	if len(desc) > 0 {
		short = desc[0]
	}
	if len(desc) > 1 {
		long = desc[1]
	}
	return short, long, nil
}

// Val returns the metric's current value.
func (m *SingletonMetric) Val() interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.val
}

// Set updates the metric's value, writing through to the mapped file if the
// metric has already been exported.
func (m *SingletonMetric) Set(val interface{}) error {
	if !m.t.IsCompatible(val) {
		return fmt.Errorf("%w: value %v is not compatible with type %v", ErrTypeMismatch, val, m.t)
	}
	val = m.t.resolve(val)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle != nil {
		if m.t == StringType {
			if err := m.handle.writeString(val.(string)); err != nil {
				return err
			}
		} else if err := m.handle.writeFixed(m.t, val); err != nil {
			return err
		}
	}
	m.val = val
	return nil
}

// MustSet is Set that panics on error.
func (m *SingletonMetric) MustSet(val interface{}) {
	if err := m.Set(val); err != nil {
		panic(err)
	}
}

func (m *SingletonMetric) attachHandle(h valueHandle) { m.handle = h }

func (m *SingletonMetric) String() string {
	return fmt.Sprintf("%s: %v", m.name, m.Val())
}

///////////////////////////////////////////////////////////////////////////

// instanceSlot is one instance's live value plus its write handle.
type instanceSlot struct {
	val    interface{}
	handle valueHandle
}

// InstanceMetric is a metric dimensioned by an InstanceDomain: it holds one
// value per instance, all sharing the metric's type, unit, and semantics.
type InstanceMetric struct {
	*MetricDesc
	mu    sync.RWMutex
	slots map[string]*instanceSlot
}

// NewInstanceMetric creates an instance metric. vals must supply exactly one
// initial value per instance of indom.
func NewInstanceMetric(vals Instances, itemID uint32, name string, indom *InstanceDomain, t Type, sem Semantics, u Unit, desc ...string) (*InstanceMetric, error) {
	if len(vals) != indom.InstanceCount() {
		return nil, fmt.Errorf("%w: %d values given for %d instances", ErrInvalidDomain, len(vals), indom.InstanceCount())
	}

	short, long, err := splitDesc(desc)
	if err != nil {
		return nil, err
	}

	d, err := newMetricDesc(itemID, name, t, sem, u, indom, short, long)
	if err != nil {
		return nil, err
	}

	slots := make(map[string]*instanceSlot, len(vals))
	for _, inst := range indom.Instances() {
		val, present := vals[inst.Name]
		if !present {
			return nil, fmt.Errorf("%w: instance %q has no initial value", ErrInvalidDomain, inst.Name)
		}
		if !t.IsCompatible(val) {
			return nil, fmt.Errorf("%w: value %v for instance %q is not compatible with type %v", ErrTypeMismatch, val, inst.Name, t)
		}
		slots[inst.Name] = &instanceSlot{val: t.resolve(val)}
	}

	return &InstanceMetric{
		MetricDesc: d,
		slots:      slots,
	}, nil
}

// ValInstance returns the current value of the named instance.
func (m *InstanceMetric) ValInstance(name string) (interface{}, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	slot, ok := m.slots[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an instance of metric %q", ErrUnknownInstance, name, m.name)
	}
	return slot.val, nil
}

// SetInstance updates the value of the named instance, writing through to
// the mapped file if the metric has already been exported.
func (m *InstanceMetric) SetInstance(name string, val interface{}) error {
	if !m.t.IsCompatible(val) {
		return fmt.Errorf("%w: value %v is not compatible with type %v", ErrTypeMismatch, val, m.t)
	}
	val = m.t.resolve(val)

	m.mu.Lock()
	defer m.mu.Unlock()

	slot, ok := m.slots[name]
	if !ok {
		return fmt.Errorf("%w: %q is not an instance of metric %q", ErrUnknownInstance, name, m.name)
	}

	if slot.handle != nil {
		if m.t == StringType {
			if err := slot.handle.writeString(val.(string)); err != nil {
				return err
			}
		} else if err := slot.handle.writeFixed(m.t, val); err != nil {
			return err
		}
	}
	slot.val = val
	return nil
}

// MustSetInstance is SetInstance that panics on error.
func (m *InstanceMetric) MustSetInstance(name string, val interface{}) {
	if err := m.SetInstance(name, val); err != nil {
		panic(err)
	}
}

func (m *InstanceMetric) attachInstanceHandle(name string, h valueHandle) {
	if slot, ok := m.slots[name]; ok {
		slot.handle = h
	}
}

// exportable is the interface Client.Export uses to enumerate any metric
// kind (singleton or instance) without knowing its concrete type.
type exportable interface {
	Desc() *MetricDesc
}

// Desc exposes the shared descriptor for layout planning.
func (m *SingletonMetric) Desc() *MetricDesc { return m.MetricDesc }

// Desc exposes the shared descriptor for layout planning.
func (m *InstanceMetric) Desc() *MetricDesc { return m.MetricDesc }
