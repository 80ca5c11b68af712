package mmv

// Counter wraps a SingletonMetric of Int64Type/CounterSemantics, the common
// case for a monotonically increasing request or event tally.
type Counter struct {
	*SingletonMetric
}

// NewCounter creates a Counter with the given item id and starting value.
func NewCounter(itemID uint32, val int64, name string, desc ...string) (*Counter, error) {
	m, err := NewSingletonMetric(val, itemID, name, Int64Type, CounterSemantics, CountOne(), desc...)
	if err != nil {
		return nil, err
	}
	return &Counter{m}, nil
}

// Val returns the counter's current value.
func (c *Counter) Val() int64 { return c.SingletonMetric.Val().(int64) }

// Set sets the counter's value directly.
func (c *Counter) Set(val int64) error { return c.SingletonMetric.Set(val) }

// Inc increases the counter by val, which may be negative.
func (c *Counter) Inc(val int64) error { return c.Set(c.Val() + val) }

// MustInc is Inc that panics on error.
func (c *Counter) MustInc(val int64) {
	if err := c.Inc(val); err != nil {
		panic(err)
	}
}

// Dec decreases the counter by val.
func (c *Counter) Dec(val int64) error { return c.Inc(-val) }

// MustDec is Dec that panics on error.
func (c *Counter) MustDec(val int64) {
	if err := c.Dec(val); err != nil {
		panic(err)
	}
}

// Up increases the counter by 1.
func (c *Counter) Up() { c.MustInc(1) }

// Down decreases the counter by 1.
func (c *Counter) Down() { c.MustDec(1) }
