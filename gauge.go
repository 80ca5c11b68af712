package mmv

// Gauge wraps a SingletonMetric of DoubleType/InstantSemantics, the common
// case for a point-in-time measurement that can move in either direction.
type Gauge struct {
	*SingletonMetric
}

// NewGauge creates a Gauge with the given item id and starting value.
func NewGauge(itemID uint32, val float64, name string, desc ...string) (*Gauge, error) {
	m, err := NewSingletonMetric(val, itemID, name, DoubleType, InstantSemantics, Unit(0), desc...)
	if err != nil {
		return nil, err
	}
	return &Gauge{m}, nil
}

// Val returns the gauge's current value.
func (g *Gauge) Val() float64 { return g.SingletonMetric.Val().(float64) }

// Set sets the gauge's value.
func (g *Gauge) Set(val float64) error { return g.SingletonMetric.Set(val) }

// MustSet is Set that panics on error.
func (g *Gauge) MustSet(val float64) {
	if err := g.Set(val); err != nil {
		panic(err)
	}
}

// Inc adds val (which may be negative) to the gauge's current value.
func (g *Gauge) Inc(val float64) error { return g.Set(g.Val() + val) }

// MustInc is Inc that panics on error.
func (g *Gauge) MustInc(val float64) {
	if err := g.Inc(val); err != nil {
		panic(err)
	}
}

// Dec subtracts val from the gauge's current value.
func (g *Gauge) Dec(val float64) error { return g.Inc(-val) }

// MustDec is Dec that panics on error.
func (g *Gauge) MustDec(val float64) {
	if err := g.Dec(val); err != nil {
		panic(err)
	}
}
