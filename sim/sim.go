// Package sim provides a software Neural Compute Stick implementing the
// mvnclite.Driver interface.  It runs a deterministic stand-in for the graph
// so the whole pipeline can be exercised without hardware, and every device
// call can be made to fail on demand.
package sim

import (
	"bytes"
	"math"
	"strconv"
	"sync"

	"github.com/swdee/go-mvnclite"
	"github.com/x448/float16"
)

// Op names a device call that can be made to fail
type Op string

const (
	OpSetLogLevel     Op = "SetLogLevel"
	OpDeviceName      Op = "DeviceName"
	OpOpenDevice      Op = "OpenDevice"
	OpCloseDevice     Op = "CloseDevice"
	OpAllocateGraph   Op = "AllocateGraph"
	OpDeallocateGraph Op = "DeallocateGraph"
	OpLoadTensor      Op = "LoadTensor"
	OpGetResult       Op = "GetResult"
	OpTimeTaken       Op = "TimeTaken"
	OpThermalLevel    Op = "ThermalThrottlingLevel"
	OpDebugInfo       Op = "DebugInfo"
)

// DefaultOutputs is the number of categories a simulated graph produces
// when its file does not declare it, matching the age network
const DefaultOutputs = 8

// outputsHeader starts the optional first line of a simulated graph file
// declaring its number of outputs, for example "outputs=2"
const outputsHeader = "outputs="

// InferFunc computes the float32 output of a graph for a half precision input
type InferFunc func(graph []byte, tensor []uint16) []float32

// Driver is a simulated mvnc runtime with a set of attached devices
type Driver struct {
	mu sync.Mutex

	devices   []string
	faults    map[Op]error
	infer     InferFunc
	outputs   int
	timeTaken []float32
	throttle  int
	debugInfo string
	logLevel  int

	openDevices int
	liveGraphs  int
	allocations int
	inferences  int
}

// Option configures a Driver
type Option func(*Driver)

// WithDevices sets the names of the attached devices, none attached when
// empty
func WithDevices(names ...string) Option {
	return func(d *Driver) {
		d.devices = names
	}
}

// WithInfer replaces the simulated graph computation
func WithInfer(fn InferFunc) Option {
	return func(d *Driver) {
		d.infer = fn
	}
}

// WithOutputs sets the number of categories the default graph computation
// produces for graphs not declaring it
func WithOutputs(n int) Option {
	return func(d *Driver) {
		d.outputs = n
	}
}

// New returns a Driver with one attached device named "sim0"
func New(opts ...Option) *Driver {

	d := &Driver{
		devices:   []string{"sim0"},
		faults:    make(map[Op]error),
		outputs:   DefaultOutputs,
		timeTaken: []float32{4.2, 18.6, 9.1},
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.infer == nil {
		d.infer = func(graph []byte, tensor []uint16) []float32 {
			return softmaxBuckets(graphOutputs(graph, d.outputs), tensor)
		}
	}

	return d
}

// Fail makes every following call of op return err, typically an
// mvnclite.Status
func (d *Driver) Fail(op Op, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.faults[op] = err
}

// Clear removes the failure set for op
func (d *Driver) Clear(op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.faults, op)
}

// SetTimeTaken sets the per stage timings reported after each inference
func (d *Driver) SetTimeTaken(ms ...float32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.timeTaken = ms
}

// SetThrottle sets the reported thermal throttling level
func (d *Driver) SetThrottle(level int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.throttle = level
}

// SetDebugInfo sets the debug string reported after a MyriadError
func (d *Driver) SetDebugInfo(info string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.debugInfo = info
}

// LogLevel returns the last log level set
func (d *Driver) LogLevel() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.logLevel
}

// OpenDevices returns the number of devices currently open
func (d *Driver) OpenDevices() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.openDevices
}

// LiveGraphs returns the number of graphs allocated and not yet released
func (d *Driver) LiveGraphs() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.liveGraphs
}

// Allocations returns the number of successful graph allocations
func (d *Driver) Allocations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.allocations
}

// Inferences returns the number of completed inferences
func (d *Driver) Inferences() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.inferences
}

// fault returns the failure set for op, caller must hold d.mu
func (d *Driver) fault(op Op) error {
	return d.faults[op]
}

// DeviceName implements mvnclite.Driver
func (d *Driver) DeviceName(index int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fault(OpDeviceName); err != nil {
		return "", err
	}

	if index < 0 || index >= len(d.devices) {
		return "", mvnclite.DeviceNotFound
	}

	return d.devices[index], nil
}

// SetLogLevel implements mvnclite.Driver
func (d *Driver) SetLogLevel(level int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fault(OpSetLogLevel); err != nil {
		return err
	}

	d.logLevel = level
	return nil
}

// OpenDevice implements mvnclite.Driver
func (d *Driver) OpenDevice(name string) (mvnclite.DeviceHandle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.fault(OpOpenDevice); err != nil {
		return nil, err
	}

	for _, n := range d.devices {
		if n == name {
			d.openDevices++
			return &device{drv: d, name: name}, nil
		}
	}

	return nil, mvnclite.DeviceNotFound
}

// device is an open simulated device
type device struct {
	drv    *Driver
	name   string
	closed bool
}

// AllocateGraph implements mvnclite.DeviceHandle
func (v *device) AllocateGraph(data []byte) (mvnclite.GraphHandle, error) {
	v.drv.mu.Lock()
	defer v.drv.mu.Unlock()

	if v.closed {
		return nil, mvnclite.Gone
	}

	if err := v.drv.fault(OpAllocateGraph); err != nil {
		return nil, err
	}

	if len(data) == 0 {
		return nil, mvnclite.InvalidParameters
	}

	v.drv.liveGraphs++
	v.drv.allocations++

	return &graph{dev: v, data: append([]byte(nil), data...)}, nil
}

// ThermalThrottlingLevel implements mvnclite.DeviceHandle
func (v *device) ThermalThrottlingLevel() (int, error) {
	v.drv.mu.Lock()
	defer v.drv.mu.Unlock()

	if v.closed {
		return 0, mvnclite.Gone
	}

	if err := v.drv.fault(OpThermalLevel); err != nil {
		return 0, err
	}

	return v.drv.throttle, nil
}

// Close implements mvnclite.DeviceHandle.  Closing the device releases every
// graph still allocated on it.
func (v *device) Close() error {
	v.drv.mu.Lock()
	defer v.drv.mu.Unlock()

	if v.closed {
		return mvnclite.Gone
	}

	if err := v.drv.fault(OpCloseDevice); err != nil {
		return err
	}

	v.closed = true
	v.drv.openDevices--
	v.drv.liveGraphs = 0

	return nil
}

// graph is a graph allocated on a simulated device
type graph struct {
	dev         *device
	data        []byte
	pending     []uint16
	deallocated bool
}

// usable returns an error if the graph can no longer be used, caller must
// hold the driver lock
func (g *graph) usable() error {
	if g.dev.closed {
		return mvnclite.Gone
	}

	if g.deallocated {
		return mvnclite.InvalidParameters
	}

	return nil
}

// LoadTensor implements mvnclite.GraphHandle
func (g *graph) LoadTensor(tensor []uint16) error {
	drv := g.dev.drv
	drv.mu.Lock()
	defer drv.mu.Unlock()

	if err := g.usable(); err != nil {
		return err
	}

	if err := drv.fault(OpLoadTensor); err != nil {
		return err
	}

	if g.pending != nil {
		return mvnclite.Busy
	}

	g.pending = append([]uint16(nil), tensor...)

	return nil
}

// GetResult implements mvnclite.GraphHandle
func (g *graph) GetResult() ([]uint16, error) {
	drv := g.dev.drv
	drv.mu.Lock()
	defer drv.mu.Unlock()

	if err := g.usable(); err != nil {
		return nil, err
	}

	tensor := g.pending
	g.pending = nil

	if err := drv.fault(OpGetResult); err != nil {
		return nil, err
	}

	if tensor == nil {
		return nil, mvnclite.NoData
	}

	out := drv.infer(g.data, tensor)
	half := make([]uint16, len(out))

	for i, v := range out {
		half[i] = float16.Fromfloat32(v).Bits()
	}

	drv.inferences++

	return half, nil
}

// TimeTaken implements mvnclite.GraphHandle
func (g *graph) TimeTaken() ([]float32, error) {
	drv := g.dev.drv
	drv.mu.Lock()
	defer drv.mu.Unlock()

	if err := g.usable(); err != nil {
		return nil, err
	}

	if err := drv.fault(OpTimeTaken); err != nil {
		return nil, err
	}

	return append([]float32(nil), drv.timeTaken...), nil
}

// DebugInfo implements mvnclite.GraphHandle
func (g *graph) DebugInfo() (string, error) {
	drv := g.dev.drv
	drv.mu.Lock()
	defer drv.mu.Unlock()

	if err := drv.fault(OpDebugInfo); err != nil {
		return "", err
	}

	return drv.debugInfo, nil
}

// Deallocate implements mvnclite.GraphHandle.  The graph is gone from the
// device even when a failure is injected.
func (g *graph) Deallocate() error {
	drv := g.dev.drv
	drv.mu.Lock()
	defer drv.mu.Unlock()

	if err := g.usable(); err != nil {
		return err
	}

	g.deallocated = true
	drv.liveGraphs--

	return drv.fault(OpDeallocateGraph)
}

// graphOutputs returns the output count declared by a simulated graph file,
// or def
func graphOutputs(graph []byte, def int) int {

	if !bytes.HasPrefix(graph, []byte(outputsHeader)) {
		return def
	}

	line, _, _ := bytes.Cut(graph[len(outputsHeader):], []byte("\n"))
	n, err := strconv.Atoi(string(bytes.TrimSpace(line)))

	if err != nil || n <= 0 {
		return def
	}

	return n
}

// softmaxBuckets returns n probabilities for tensor.  Input values are summed
// into n buckets by index and the bucket means passed through a softmax, so
// different images give different but repeatable rankings.
func softmaxBuckets(n int, tensor []uint16) []float32 {

	if n <= 0 {
		return nil
	}

	sums := make([]float64, n)
	counts := make([]int, n)

	for i, h := range tensor {
		sums[i%n] += float64(float16.Frombits(h).Float32())
		counts[i%n]++
	}

	maxV := math.Inf(-1)

	for i := range sums {
		if counts[i] > 0 {
			sums[i] /= float64(counts[i])
		}
		maxV = math.Max(maxV, sums[i])
	}

	var total float64

	for i := range sums {
		sums[i] = math.Exp(sums[i] - maxV)
		total += sums[i]
	}

	out := make([]float32, n)

	for i := range sums {
		out[i] = float32(sums[i] / total)
	}

	return out
}
