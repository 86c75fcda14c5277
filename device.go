package mvnclite

// Driver is the entry point into the vendor runtime.  The mvnc package
// provides the cgo implementation against libmvnc, the sim package a
// software device.  Every call may fail and none of them are idempotent.
type Driver interface {
	// DeviceName returns the name of the attached device at index, failing
	// when no device is attached there
	DeviceName(index int) (string, error)
	// SetLogLevel sets the runtime wide diagnostic verbosity
	SetLogLevel(level int) error
	// OpenDevice acquires the named device
	OpenDevice(name string) (DeviceHandle, error)
}

// DeviceHandle is an opened accelerator.  The Session is its only owner.
type DeviceHandle interface {
	// AllocateGraph uploads the compiled graph and returns its handle
	AllocateGraph(graph []byte) (GraphHandle, error)
	// ThermalThrottlingLevel returns 0 when normal, 1 when throttling and
	// 2 when aggressively throttling
	ThermalThrottlingLevel() (int, error)
	// Close releases the device
	Close() error
}

// GraphHandle is a graph allocated on the device.
type GraphHandle interface {
	// LoadTensor queues a half precision input tensor for inference
	LoadTensor(tensor []uint16) error
	// GetResult blocks until the queued inference completes and returns the
	// half precision output
	GetResult() ([]uint16, error)
	// TimeTaken returns the per stage timings in milliseconds of the last
	// inference
	TimeTaken() ([]float32, error)
	// DebugInfo returns the device debug string after a MyriadError
	DebugInfo() (string, error)
	// Deallocate releases the graph on the device
	Deallocate() error
}
