package mmv

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pcpmmv/mmv/internal/layout"
	"github.com/pcpmmv/mmv/internal/strpool"
	"github.com/pcpmmv/mmv/internal/wire"
)

// ProcessFlag marks the exported file as belonging to a specific process,
// causing Client.Export to stamp the header's process_id field.
const ProcessFlag = wire.ProcessFlag

// metricHandle is the richer, package-private interface every registerable
// metric kind satisfies: exportable for layout planning, plus the ability to
// wire up its live value handle(s) once Export has committed a Plan.
type metricHandle interface {
	exportable
	attachHandles(plan *layout.Plan, data []byte, closed *atomic.Bool)
}

func (m *SingletonMetric) attachHandles(plan *layout.Plan, data []byte, closed *atomic.Bool) {
	rec, ok := plan.ValueByKey(m.itemID, "")
	if !ok {
		return
	}
	m.attachHandle(newMmapHandle(data, rec, closed))
}

func (m *InstanceMetric) attachHandles(plan *layout.Plan, data []byte, closed *atomic.Bool) {
	for _, inst := range m.indom.Instances() {
		rec, ok := plan.ValueByKey(m.itemID, inst.Name)
		if !ok {
			continue
		}
		m.attachInstanceHandle(inst.Name, newMmapHandle(data, rec, closed))
	}
}

// Client materialises a set of registered metrics into a single MMV file,
// maps it into the process's address space, and thereafter routes every
// metric Set/SetInstance call into the mapping.
type Client struct {
	name      string
	clusterID uint32
	flags     uint32
	sizeCap   int64

	mu       sync.Mutex
	exported bool
	metrics  []metricHandle
	indoms   map[uint32]*InstanceDomain
	indomIDs []uint32 // first-registration order

	mapped *wire.MappedFile
	plan   *layout.Plan
	closed atomic.Bool
}

// NewClient creates a client for the given export name (must match
// [A-Za-z0-9_.-]{1,63}), combining any flags (e.g. ProcessFlag) with
// a bitwise OR.
func NewClient(name string, flags ...uint32) (*Client, error) {
	if err := validateClientName(name); err != nil {
		return nil, err
	}

	var f uint32
	for _, x := range flags {
		f |= x
	}

	return &Client{
		name:    name,
		flags:   f,
		sizeCap: layout.DefaultSizeCap,
		indoms:  make(map[uint32]*InstanceDomain),
	}, nil
}

// SetClusterID sets the header's cluster_id field. Pre-export only.
func (c *Client) SetClusterID(id uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exported {
		return fmt.Errorf("mmv: cannot set cluster id after export")
	}
	c.clusterID = id
	return nil
}

// SetFlags ORs mask into the header's feature flags. Pre-export only.
func (c *Client) SetFlags(mask uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exported {
		return fmt.Errorf("mmv: cannot set flags after export")
	}
	c.flags |= mask
	return nil
}

// SetSizeCap overrides the default 16 MiB soft cap on planned file size.
// Pre-export only.
func (c *Client) SetSizeCap(bytes int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exported {
		return fmt.Errorf("mmv: cannot change size cap after export")
	}
	c.sizeCap = bytes
	return nil
}

// Register adds a metric to the set this client will export. Metric names
// and item ids must be unique across all registered metrics, and an indom
// id, once seen, must always refer to the same InstanceDomain. Register is
// pre-export only: structure is frozen at Export.
func (c *Client) Register(m metricHandle) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exported {
		return fmt.Errorf("mmv: cannot register a metric after export")
	}

	d := m.Desc()
	for _, existing := range c.metrics {
		ed := existing.Desc()
		if ed.name == d.name {
			return fmt.Errorf("%w: metric name %q already registered", ErrInvalidName, d.name)
		}
		if ed.itemID == d.itemID {
			return fmt.Errorf("%w: item id %d already registered (metric %q)", ErrInvalidName, d.itemID, d.name)
		}
	}

	if d.indom != nil {
		if prior, ok := c.indoms[d.indom.id]; ok && prior != d.indom {
			return fmt.Errorf("%w: indom id %d refers to two different instance domains", ErrInvalidDomain, d.indom.id)
		}
		if _, ok := c.indoms[d.indom.id]; !ok {
			c.indoms[d.indom.id] = d.indom
			c.indomIDs = append(c.indomIDs, d.indom.id)
		}
	}

	c.metrics = append(c.metrics, m)
	return nil
}

// MustRegister is Register that panics on error.
func (c *Client) MustRegister(m metricHandle) {
	if err := c.Register(m); err != nil {
		panic(err)
	}
}

// Export computes the layout for every registered metric, writes it to
// $PCP_TMP_DIR/mmv/<name> (or /tmp/mmv/<name>), memory-maps it, and
// publishes it atomically via the generation fields. After Export returns
// successfully every registered metric's Set/SetInstance writes through to
// the mapping.
func (c *Client) Export() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.exported {
		return fmt.Errorf("mmv: client %q already exported", c.name)
	}
	if err := checkLittleEndianHost(); err != nil {
		return err
	}

	input, err := c.buildInput()
	if err != nil {
		return err
	}

	plan, err := layout.Plan(input, c.sizeCap)
	if err != nil {
		if errors.Is(err, layout.ErrTooLarge) {
			return fmt.Errorf("%w: %v", ErrLayoutTooLarge, err)
		}
		return err
	}

	header := wire.Header{Flags: c.flags, ClusterID: c.clusterID}
	if c.flags&wire.ProcessFlag != 0 {
		header.ProcessID = int32(os.Getpid())
	}
	buf := wire.Build(plan, header)

	dir, err := wire.ResolveDir()
	if err != nil {
		return &ExportError{Op: "mkdir", Path: dir, Err: err}
	}

	mapped, err := wire.WriteAndMap(dir, c.name, buf)
	if err != nil {
		var opErr *wire.OpError
		if errors.As(err, &opErr) {
			return &ExportError{Op: opErr.Op, Path: opErr.Path, Err: opErr.Err}
		}
		return &ExportError{Op: "export", Path: c.name, Err: err}
	}

	gen := nextGeneration(c.name)
	wire.CommitGeneration(mapped.Data, gen)

	c.mapped = mapped
	c.plan = plan
	for _, m := range c.metrics {
		m.attachHandles(plan, mapped.Data, &c.closed)
	}
	c.exported = true

	return nil
}

// MustExport is Export that panics on error.
func (c *Client) MustExport() {
	if err := c.Export(); err != nil {
		panic(err)
	}
}

// Stop unmaps the client's file, leaving it on disk. Further writes to any
// of this client's metrics fail with ErrSlotFrozen.
func (c *Client) Stop() error {
	return c.stop(false)
}

// StopAndRemove unmaps the client's file and deletes it.
func (c *Client) StopAndRemove() error {
	return c.stop(true)
}

func (c *Client) stop(remove bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.mapped == nil {
		return nil
	}
	c.closed.Store(true)
	err := c.mapped.Close(remove)
	c.mapped = nil
	return err
}

// MustStop is Stop that panics on error.
func (c *Client) MustStop() {
	if err := c.Stop(); err != nil {
		panic(err)
	}
}

// buildInput translates the registered metrics and indoms into the plain
// structs internal/layout operates on.
func (c *Client) buildInput() (layout.Input, error) {
	input := layout.Input{
		Indoms:  make([]layout.IndomInput, 0, len(c.indomIDs)),
		Metrics: make([]layout.MetricInput, 0, len(c.metrics)),
	}

	for _, id := range c.indomIDs {
		d := c.indoms[id]
		instances := make([]layout.InstanceInput, len(d.instances))
		for i, inst := range d.instances {
			instances[i] = layout.InstanceInput{InternalID: inst.InternalID, Name: inst.Name}
		}
		input.Indoms = append(input.Indoms, layout.IndomInput{
			ID:        d.id,
			ShortHelp: d.shortHelp,
			LongHelp:  d.longHelp,
			Instances: instances,
		})
	}

	for _, m := range c.metrics {
		d := m.Desc()
		indomID := int64(-1)
		if d.indom != nil {
			indomID = int64(d.indom.id)
		}

		values, err := metricValues(m)
		if err != nil {
			return layout.Input{}, err
		}

		input.Metrics = append(input.Metrics, layout.MetricInput{
			ItemID:    d.itemID,
			Name:      d.name,
			Type:      uint32(d.t),
			Semantics: uint32(d.sem),
			Unit:      d.u.PMAPI(),
			IndomID:   indomID,
			ShortHelp: d.shortHelp,
			LongHelp:  d.longHelp,
			Values:    values,
		})
	}

	return input, nil
}

func metricValues(m metricHandle) ([]layout.ValueInput, error) {
	switch mm := m.(type) {
	case *SingletonMetric:
		v, err := valueInput(mm.t, "", mm.Val())
		if err != nil {
			return nil, err
		}
		return []layout.ValueInput{v}, nil
	case *InstanceMetric:
		out := make([]layout.ValueInput, 0, len(mm.indom.instances))
		for _, inst := range mm.indom.instances {
			val, err := mm.ValInstance(inst.Name)
			if err != nil {
				return nil, err
			}
			v, err := valueInput(mm.t, inst.Name, val)
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("mmv: unrecognised metric implementation %T", m)
	}
}

func valueInput(t Type, instanceName string, val interface{}) (layout.ValueInput, error) {
	if t == StringType {
		s := val.(string)
		if len(s) > strpool.MaxLength {
			return layout.ValueInput{}, fmt.Errorf("%w: initial string value exceeds %d bytes", ErrTypeMismatch, strpool.MaxLength)
		}
		return layout.ValueInput{InstanceName: instanceName, IsString: true, Str: s}, nil
	}
	bits, err := encodeFixed(t, val)
	if err != nil {
		return layout.ValueInput{}, err
	}
	return layout.ValueInput{InstanceName: instanceName, Fixed: bits}, nil
}

///////////////////////////////////////////////////////////////////////////
// Generation assignment.

var (
	genMu        sync.Mutex
	lastGenByKey = map[string]int64{}
)

// nextGeneration returns a generation value guaranteed non-zero and
// strictly greater than any previous generation returned for the same name.
func nextGeneration(name string) int64 {
	genMu.Lock()
	defer genMu.Unlock()

	now := time.Now().Unix()
	if now <= 0 {
		now = 1
	}
	if prev, ok := lastGenByKey[name]; ok && now <= prev {
		now = prev + 1
	}
	lastGenByKey[name] = now
	return now
}
