package mvnclite

import (
	"fmt"
	"log/slog"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ThrottleLevel is the thermal throttling state reported by the device
type ThrottleLevel int

const (
	ThrottleNormal   ThrottleLevel = 0
	ThrottleActive   ThrottleLevel = 1
	ThrottleCritical ThrottleLevel = 2
)

// String returns a readable description of the throttle level
func (t ThrottleLevel) String() string {
	switch t {
	case ThrottleNormal:
		return "normal"
	case ThrottleActive:
		return "throttling"
	case ThrottleCritical:
		return "critical"
	default:
		return fmt.Sprintf("unknown level %d", int(t))
	}
}

// Telemetry is the device report for one inference
type Telemetry struct {
	// TimeTaken are the per stage timings in milliseconds
	TimeTaken []float32
	// TotalMillis is the sum of TimeTaken
	TotalMillis float32
	// Throttle is the thermal throttling level after the inference
	Throttle ThrottleLevel
	// Slow is set when TotalMillis exceeded the slow threshold
	Slow bool
}

// Summary aggregates the inferences observed by a Monitor
type Summary struct {
	// Count is the number of inferences observed
	Count int
	// MeanMillis, StdDevMillis and MaxMillis are over the retained history
	MeanMillis   float64
	StdDevMillis float64
	MaxMillis    float64
	// SlowCount is the number of inferences flagged slow
	SlowCount int
	// ThrottledCount is the number of inferences with throttling active or
	// critical
	ThrottledCount int
}

// Monitor interprets the timing and thermal signals of the device after each
// inference and keeps a bounded history of inference times
type Monitor struct {
	log           *slog.Logger
	slowThreshold time.Duration
	// history is a ring buffer of total inference times in milliseconds
	history []float64
	size    int
	next    int

	count          int
	slowCount      int
	throttledCount int
}

// NewMonitor returns a Monitor flagging inferences slower than slowThreshold
// and retaining the last historySize timings
func NewMonitor(logger *slog.Logger, slowThreshold time.Duration, historySize int) *Monitor {

	if logger == nil {
		logger = slog.Default()
	}

	if historySize <= 0 {
		historySize = DefaultHistorySize
	}

	return &Monitor{
		log:           logger,
		slowThreshold: slowThreshold,
		history:       make([]float64, 0, historySize),
		size:          historySize,
	}
}

// Collect fetches the timings of the last inference from graph and the
// throttling level from dev, records them and logs any warnings.  A failed
// fetch returns GetGraphOptionError or GetDeviceOptionError and records
// nothing.
func (m *Monitor) Collect(graph GraphHandle, dev DeviceHandle) (Telemetry, error) {

	const op = "Telemetry"

	timeTaken, err := graph.TimeTaken()

	if err != nil {
		e := newError(op, GetGraphOptionError, "", err)
		e.Detail = "time taken"
		return Telemetry{}, e
	}

	level, err := dev.ThermalThrottlingLevel()

	if err != nil {
		e := newError(op, GetDeviceOptionError, "", err)
		e.Detail = "thermal throttling level"
		return Telemetry{}, e
	}

	var total float32

	for _, t := range timeTaken {
		total += t
	}

	t := Telemetry{
		TimeTaken:   timeTaken,
		TotalMillis: total,
		Throttle:    ThrottleLevel(level),
		Slow:        float64(total) > float64(m.slowThreshold)/float64(time.Millisecond),
	}

	m.Observe(t)

	return t, nil
}

// Observe records a telemetry report and logs throttling and slow inferences
func (m *Monitor) Observe(t Telemetry) {

	m.count++

	if len(m.history) < m.size {
		m.history = append(m.history, float64(t.TotalMillis))
	} else {
		m.history[m.next] = float64(t.TotalMillis)
	}

	m.next = (m.next + 1) % m.size

	switch t.Throttle {
	case ThrottleNormal:
	case ThrottleActive:
		m.throttledCount++
		m.log.Warn("device temperature high, thermal throttling initiated")
	case ThrottleCritical:
		m.throttledCount++
		m.log.Error("*** WARNING: device temperature critical, aggressive thermal throttling initiated, " +
			"continued use may result in device damage ***")
	default:
		m.log.Warn("device reported unknown thermal throttling level", "level", int(t.Throttle))
	}

	if t.Slow {
		m.slowCount++
		m.log.Warn("inference abnormally slow", "ms", t.TotalMillis,
			"threshold", m.slowThreshold)
	}
}

// Summary returns statistics over the observed inferences
func (m *Monitor) Summary() Summary {

	s := Summary{
		Count:          m.count,
		SlowCount:      m.slowCount,
		ThrottledCount: m.throttledCount,
	}

	if len(m.history) == 0 {
		return s
	}

	s.MaxMillis = floats.Max(m.history)

	if len(m.history) == 1 {
		s.MeanMillis = m.history[0]
		return s
	}

	s.MeanMillis, s.StdDevMillis = stat.MeanStdDev(m.history, nil)

	return s
}

// Reset clears the history and counters
func (m *Monitor) Reset() {
	m.history = m.history[:0]
	m.next = 0
	m.count = 0
	m.slowCount = 0
	m.throttledCount = 0
}
