//go:build mvnc

package mvnc

/*
#cgo LDFLAGS: -lmvnc
#include <mvnc.h>
#include <stdlib.h>
*/
import "C"
import (
	"unsafe"

	"github.com/swdee/go-mvnclite"
)

// option values understood by the runtime
const (
	optLogLevel          = C.MVNC_LOGLEVEL
	optTimeTaken         = C.MVNC_TIMETAKEN
	optDebugInfo         = C.MVNC_DEBUGINFO
	optThermalThrottling = C.MVNC_THERMAL_THROTTLING_LEVEL
)

// Driver calls the mvnc C API
type Driver struct{}

// New returns a Driver for the devices attached to this host
func New() *Driver {
	return &Driver{}
}

// status converts a C return code
func status(rc C.mvncStatus) error {
	if rc == C.MVNC_OK {
		return nil
	}
	return mvnclite.Status(rc)
}

// DeviceName returns the name of the attached device at index
func (d *Driver) DeviceName(index int) (string, error) {

	var name [C.MVNC_MAXNAMESIZE]C.char

	rc := C.mvncGetDeviceName(C.int(index), &name[0], C.uint(len(name)))

	if err := status(rc); err != nil {
		return "", err
	}

	return C.GoString(&name[0]), nil
}

// SetLogLevel sets the verbosity of the runtime
func (d *Driver) SetLogLevel(level int) error {

	cLevel := C.int(level)

	rc := C.mvncSetDeviceOption(nil, optLogLevel, unsafe.Pointer(&cLevel),
		C.uint(unsafe.Sizeof(cLevel)))

	return status(rc)
}

// OpenDevice boots and opens the named device
func (d *Driver) OpenDevice(name string) (mvnclite.DeviceHandle, error) {

	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var h unsafe.Pointer

	rc := C.mvncOpenDevice(cName, &h)

	if err := status(rc); err != nil {
		return nil, err
	}

	return &device{handle: h}, nil
}

// device wraps an open device handle
type device struct {
	handle unsafe.Pointer
}

// AllocateGraph uploads a compiled graph file to the device
func (v *device) AllocateGraph(data []byte) (mvnclite.GraphHandle, error) {

	if len(data) == 0 {
		return nil, mvnclite.InvalidParameters
	}

	// the graph file is copied into C memory as the runtime keeps reading it
	// while allocating
	cData := C.CBytes(data)
	defer C.free(cData)

	var g unsafe.Pointer

	rc := C.mvncAllocateGraph(v.handle, &g, cData, C.uint(len(data)))

	if err := status(rc); err != nil {
		return nil, err
	}

	return &graph{handle: g}, nil
}

// ThermalThrottlingLevel returns 0 when the device is running normally, 1
// when throttling and 2 when aggressively throttling
func (v *device) ThermalThrottlingLevel() (int, error) {

	var level C.int
	size := C.uint(unsafe.Sizeof(level))

	rc := C.mvncGetDeviceOption(v.handle, optThermalThrottling,
		unsafe.Pointer(&level), &size)

	if err := status(rc); err != nil {
		return 0, err
	}

	return int(level), nil
}

// Close releases the device
func (v *device) Close() error {
	return status(C.mvncCloseDevice(v.handle))
}

// graph wraps an allocated graph handle
type graph struct {
	handle unsafe.Pointer
}

// LoadTensor queues a half precision input tensor for inference
func (g *graph) LoadTensor(tensor []uint16) error {

	if len(tensor) == 0 {
		return mvnclite.InvalidParameters
	}

	// copy to C memory, Go memory must not be retained by C after the call
	size := C.size_t(len(tensor)) * C.size_t(unsafe.Sizeof(tensor[0]))
	cTensor := C.malloc(size)
	defer C.free(cTensor)

	copy(unsafe.Slice((*uint16)(cTensor), len(tensor)), tensor)

	rc := C.mvncLoadTensor(g.handle, cTensor, C.uint(size), nil)

	return status(rc)
}

// GetResult blocks until the queued inference completes and returns its half
// precision output.  The runtime owns the result buffer, so it is copied into
// Go memory before returning.
func (g *graph) GetResult() ([]uint16, error) {

	var (
		result    unsafe.Pointer
		resultLen C.uint
		userParam unsafe.Pointer
	)

	rc := C.mvncGetResult(g.handle, &result, &resultLen, &userParam)

	if err := status(rc); err != nil {
		return nil, err
	}

	n := int(resultLen) / 2
	out := make([]uint16, n)

	if n > 0 {
		copy(out, unsafe.Slice((*uint16)(result), n))
	}

	return out, nil
}

// TimeTaken returns the per stage timings in milliseconds of the last
// inference
func (g *graph) TimeTaken() ([]float32, error) {

	var (
		data   *C.float
		length C.uint
	)

	rc := C.mvncGetGraphOption(g.handle, optTimeTaken, unsafe.Pointer(&data), &length)

	if err := status(rc); err != nil {
		return nil, err
	}

	n := int(length) / int(unsafe.Sizeof(C.float(0)))
	out := make([]float32, n)

	if n > 0 {
		copy(out, unsafe.Slice((*float32)(unsafe.Pointer(data)), n))
	}

	return out, nil
}

// DebugInfo returns the device's description of the last MyriadError
func (g *graph) DebugInfo() (string, error) {

	var (
		info   *C.char
		length C.uint
	)

	rc := C.mvncGetGraphOption(g.handle, optDebugInfo, unsafe.Pointer(&info), &length)

	if err := status(rc); err != nil {
		return "", err
	}

	if info == nil {
		return "", nil
	}

	return C.GoString(info), nil
}

// Deallocate releases the graph from the device
func (g *graph) Deallocate() error {
	return status(C.mvncDeallocateGraph(g.handle))
}
