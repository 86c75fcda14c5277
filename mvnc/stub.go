//go:build !mvnc

package mvnc

import (
	"errors"

	"github.com/swdee/go-mvnclite"
)

// ErrNotBuilt is returned by every call of a Driver compiled without the mvnc
// build tag
var ErrNotBuilt = errors.New("mvnc: built without libmvnc support, rebuild with -tags mvnc")

// Driver stands in for the libmvnc binding
type Driver struct{}

// New returns a Driver that fails every call with ErrNotBuilt
func New() *Driver {
	return &Driver{}
}

// DeviceName implements mvnclite.Driver
func (d *Driver) DeviceName(index int) (string, error) {
	return "", ErrNotBuilt
}

// SetLogLevel implements mvnclite.Driver
func (d *Driver) SetLogLevel(level int) error {
	return ErrNotBuilt
}

// OpenDevice implements mvnclite.Driver
func (d *Driver) OpenDevice(name string) (mvnclite.DeviceHandle, error) {
	return nil, ErrNotBuilt
}
