package mvnclite

import (
	"log/slog"
	"path/filepath"
	"strings"
	"time"
)

// State is the lifecycle state of a Session
type State int

const (
	// StateClosed has no device handle
	StateClosed State = iota
	// StateOpened holds a device but no network
	StateOpened
	// StateNetworkLoaded holds a device and an allocated graph
	StateNetworkLoaded
)

// String returns a readable name of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpened:
		return "opened"
	case StateNetworkLoaded:
		return "network loaded"
	default:
		return "unknown"
	}
}

const (
	// DefaultDeviceLogLevel is the runtime verbosity used by the NCSDK tools
	DefaultDeviceLogLevel = 2
	// DefaultSlowThreshold is the inference time above which an inference is
	// flagged as abnormally slow
	DefaultSlowThreshold = 100 * time.Millisecond
	// DefaultHistorySize is the number of inference timings kept for the
	// telemetry summary
	DefaultHistorySize = 256
)

// Config defines how a Session talks to the device
type Config struct {
	// Driver is the vendor runtime, required
	Driver Driver
	// DeviceIndex selects which attached device to open
	DeviceIndex int
	// DeviceLogLevel is applied to the runtime when the device is opened
	DeviceLogLevel int
	// Logger receives diagnostics, defaults to slog.Default()
	Logger *slog.Logger
	// Checksums maps a network path (or its base name) to the hex SHA-256
	// of its known good graph file
	Checksums map[string]string
	// SlowThreshold defaults to DefaultSlowThreshold
	SlowThreshold time.Duration
	// HistorySize defaults to DefaultHistorySize
	HistorySize int
}

// Session owns one accelerator device and at most one loaded network.  A
// Session must only be used by one goroutine at a time, see Guard for
// sharing it.
type Session struct {
	cfg    Config
	log    *slog.Logger
	driver Driver

	// dev is the open device, nil when closed
	dev DeviceHandle
	// devName is the name dev was opened by
	devName string

	// the network fields below are either all set or all empty
	graph       GraphHandle
	graphData   []byte
	labels      []string
	profile     NormalizationProfile
	inputSize   int
	networkPath string

	// bufs are the preprocessing buffers
	bufs tensorBuffers

	monitor *Monitor
}

// NewSession returns a closed Session for the given configuration
func NewSession(cfg Config) (*Session, error) {

	if cfg.Driver == nil {
		return nil, errorf("NewSession", InvalidInput, "", "no driver given")
	}

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	if cfg.SlowThreshold <= 0 {
		cfg.SlowThreshold = DefaultSlowThreshold
	}

	if cfg.HistorySize <= 0 {
		cfg.HistorySize = DefaultHistorySize
	}

	return &Session{
		cfg:     cfg,
		log:     cfg.Logger,
		driver:  cfg.Driver,
		monitor: NewMonitor(cfg.Logger, cfg.SlowThreshold, cfg.HistorySize),
	}, nil
}

// Open creates a Session and opens the configured device
func Open(cfg Config) (*Session, error) {

	s, err := NewSession(cfg)

	if err != nil {
		return nil, err
	}

	if err := s.Open(); err != nil {
		return nil, err
	}

	return s, nil
}

// State returns the current lifecycle state
func (s *Session) State() State {
	switch {
	case s.dev == nil:
		return StateClosed
	case s.graph == nil:
		return StateOpened
	default:
		return StateNetworkLoaded
	}
}

// Open applies the runtime log level and acquires the device.  It is only
// valid on a closed Session.
func (s *Session) Open() error {

	const op = "Open"

	if s.dev != nil {
		return errorf(op, NotAllowedThisTime, "", "device %s already open", s.devName)
	}

	if err := s.driver.SetLogLevel(s.cfg.DeviceLogLevel); err != nil {
		s.log.Warn("failed setting device log level", "op", op,
			"level", s.cfg.DeviceLogLevel, "error", err)
	}

	name, err := s.driver.DeviceName(s.cfg.DeviceIndex)

	if err != nil {
		return newError(op, NoDeviceFound, "", err)
	}

	dev, err := s.driver.OpenDevice(name)

	if err != nil {
		e := newError(op, OpenDeviceFailed, "", err)
		e.Detail = "device " + name
		return e
	}

	if dev == nil {
		return errorf(op, OpenDeviceFailed, "", "device %s returned no handle", name)
	}

	s.dev = dev
	s.devName = name

	s.log.Info("device opened", "op", op, "device", name)

	return nil
}

// UploadNetwork loads the network directory at path and allocates its graph
// on the device.  A loaded network must be removed with UnloadNetwork first.
// On any failure the Session is left exactly as it was.
func (s *Session) UploadNetwork(path string) error {

	const op = "UploadNetwork"

	if s.dev == nil {
		return errorf(op, InvalidDevHandle, path, "cannot load graph for closed device")
	}

	if path == "" {
		return errorf(op, InvalidInput, "", "no network path given")
	}

	if s.networkLoaded() {
		return errorf(op, NotAllowedThisTime, path,
			"cannot upload a new network before unloading %s", s.networkPath)
	}

	nw, err := LoadNetwork(path)

	if err != nil {
		if e, ok := err.(*Error); ok {
			e.Op = op
		}
		return err
	}

	graph, err := s.dev.AllocateGraph(nw.Graph)

	if err == nil && graph == nil {
		err = ErrUnknown
	}

	if err != nil {
		s.verifyGraph(op, nw)
		return newError(op, AllocateGraphError, path, err)
	}

	s.graph = graph
	s.graphData = nw.Graph
	s.labels = nw.Labels
	s.profile = nw.Profile
	s.inputSize = nw.InputSize
	s.networkPath = path

	s.log.Info("graph allocated", "op", op, "device", s.devName, "network", path,
		"categories", len(nw.Labels), "inputsize", nw.InputSize)

	return nil
}

// verifyGraph logs whether the graph that the device refused matches its
// known good checksum, telling a corrupted file apart from a device that
// rejected a valid graph
func (s *Session) verifyGraph(op string, nw *Network) {

	sum := GraphChecksum(nw.Graph)
	known, source := s.knownChecksum(nw.Path)

	switch {
	case known == "":
		s.log.Warn("graph rejected by device, no known checksum to verify against",
			"op", op, "network", nw.Path, "sha256", sum)
	case strings.EqualFold(known, sum):
		s.log.Warn("graph rejected by device although its checksum matches",
			"op", op, "network", nw.Path, "sha256", sum, "source", source)
	default:
		s.log.Error("graph checksum mismatch, graph data is corrupted",
			"op", op, "network", nw.Path, "sha256", sum, "expected", known, "source", source)
	}
}

// knownChecksum looks up the known good graph digest for a network, first
// from the configuration then from the network's graph.sha256 file
func (s *Session) knownChecksum(path string) (sum, source string) {

	for _, key := range []string{path, filepath.Clean(path), filepath.Base(path)} {
		if v, ok := s.cfg.Checksums[key]; ok && v != "" {
			return v, "config"
		}
	}

	if v, ok := ReadChecksumFile(path); ok {
		return v, ChecksumFile
	}

	return "", ""
}

// UnloadNetwork releases the loaded graph and forgets its labels and
// normalisation.  If the device fails to release the graph a warning is
// logged and the handle is dropped anyway, the device is assumed to no longer
// hold it.
func (s *Session) UnloadNetwork() error {

	const op = "UnloadNetwork"

	if s.dev == nil {
		return errorf(op, InvalidDevHandle, "", "cannot unload graph for closed device")
	}

	if s.graph == nil {
		return errorf(op, InvalidInput, "", "cannot unload null graph")
	}

	graph := s.graph
	path := s.networkPath

	s.clearNetwork()

	if err := graph.Deallocate(); err != nil {
		s.log.Warn("failed deallocating graph, assuming device released it",
			"op", op, "device", s.devName, "network", path,
			"error", newError(op, DeallocateGraphError, path, err))
		return nil
	}

	s.log.Info("graph deallocated", "op", op, "device", s.devName, "network", path)

	return nil
}

// Close releases the conversion buffers and the device.  When
// deallocGraphFirst is set a loaded graph is unloaded first, otherwise it is
// dropped together with the device.  The device handle is released even when
// closing it fails, in which case CloseDeviceFailed is returned.
func (s *Session) Close(deallocGraphFirst bool) error {

	const op = "Close"

	if s.dev == nil {
		return errorf(op, InvalidDevHandle, "", "cannot close null device")
	}

	s.bufs.release()

	if s.graph != nil {
		if deallocGraphFirst {
			if err := s.UnloadNetwork(); err != nil {
				s.log.Warn("failed unloading network on close", "op", op, "error", err)
			}
		} else {
			s.clearNetwork()
		}
	}

	dev := s.dev
	name := s.devName

	s.dev = nil
	s.devName = ""

	if err := dev.Close(); err != nil {
		e := newError(op, CloseDeviceFailed, "", err)
		e.Detail = "device " + name
		return e
	}

	s.log.Info("device closed", "op", op, "device", name)

	return nil
}

// networkLoaded reports whether any network field is populated
func (s *Session) networkLoaded() bool {
	return s.graph != nil || s.graphData != nil || s.labels != nil || s.networkPath != ""
}

// clearNetwork drops every network field together
func (s *Session) clearNetwork() {
	s.graph = nil
	s.graphData = nil
	s.labels = nil
	s.profile = NormalizationProfile{}
	s.inputSize = 0
	s.networkPath = ""
}

// DeviceName returns the name of the open device
func (s *Session) DeviceName() string {
	return s.devName
}

// NetworkPath returns the directory of the loaded network
func (s *Session) NetworkPath() string {
	return s.networkPath
}

// Labels returns a copy of the loaded network's category labels
func (s *Session) Labels() []string {
	if s.labels == nil {
		return nil
	}
	return append([]string(nil), s.labels...)
}

// InputSize returns the side length of the square input tensor of the loaded
// network
func (s *Session) InputSize() int {
	return s.inputSize
}

// Profile returns the loaded network's normalisation profile
func (s *Session) Profile() NormalizationProfile {
	return s.profile
}

// GraphChecksum returns the SHA-256 of the loaded graph, or an empty string
// when no network is loaded
func (s *Session) GraphChecksum() string {
	if s.graphData == nil {
		return ""
	}
	return GraphChecksum(s.graphData)
}

// Monitor returns the telemetry monitor of the Session
func (s *Session) Monitor() *Monitor {
	return s.monitor
}
