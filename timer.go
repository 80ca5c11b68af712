package mmv

import "time"

// Timer accumulates elapsed wall-clock time into a Double counter metric,
// the conventional shape for a PCP "time this took" instrument: the
// underlying value only ever grows, so it carries CounterSemantics like
// Counter, but with a time.Second unit rather than a bare count. It stays a
// thin wrapper with no statistics engine of its own.
type Timer struct {
	*SingletonMetric
	start time.Time
}

func timerUnit() Unit {
	u, _ := NewUnitBuilder().Time(SecondScale, 1).Build()
	return u
}

// NewTimer creates a Timer with the given item id, starting at zero elapsed
// seconds.
func NewTimer(itemID uint32, name string, desc ...string) (*Timer, error) {
	m, err := NewSingletonMetric(float64(0), itemID, name, DoubleType, CounterSemantics, timerUnit(), desc...)
	if err != nil {
		return nil, err
	}
	return &Timer{SingletonMetric: m}, nil
}

// Elapsed returns the total seconds accumulated so far.
func (t *Timer) Elapsed() float64 { return t.SingletonMetric.Val().(float64) }

// Start begins timing. Calling Start again before Stop discards the
// previous start point.
func (t *Timer) Start() { t.start = time.Now() }

// Stop adds the time since the last Start to the accumulated total.
func (t *Timer) Stop() error {
	if t.start.IsZero() {
		return nil
	}
	d := time.Since(t.start).Seconds()
	t.start = time.Time{}
	return t.SingletonMetric.Set(t.Elapsed() + d)
}

// MustStop is Stop that panics on error.
func (t *Timer) MustStop() {
	if err := t.Stop(); err != nil {
		panic(err)
	}
}
