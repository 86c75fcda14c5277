package mvnclite

import "fmt"

// Status wraps the mvncStatus codes returned by the NCSDK C API.  Drivers
// return a Status as the error value of any call the device rejected, so the
// numeric code survives wrapping and can be recovered with errors.As
type Status int

// mvncStatus values as defined in mvnc.h
const (
	Success              Status = 0
	Busy                 Status = -1
	ErrUnknown           Status = -2
	OutOfMemory          Status = -3
	DeviceNotFound       Status = -4
	InvalidParameters    Status = -5
	Timeout              Status = -6
	MvCmdNotFound        Status = -7
	NoData               Status = -8
	Gone                 Status = -9
	UnsupportedGraphFile Status = -10
	MyriadError          Status = -11
)

// String returns a readable description of the status code
func (s Status) String() string {
	switch s {
	case Success:
		return "MVNC_OK"
	case Busy:
		return "MVNC_BUSY"
	case ErrUnknown:
		return "MVNC_ERROR"
	case OutOfMemory:
		return "MVNC_OUT_OF_MEMORY"
	case DeviceNotFound:
		return "MVNC_DEVICE_NOT_FOUND"
	case InvalidParameters:
		return "MVNC_INVALID_PARAMETERS"
	case Timeout:
		return "MVNC_TIMEOUT"
	case MvCmdNotFound:
		return "MVNC_MVCMDNOTFOUND"
	case NoData:
		return "MVNC_NODATA"
	case Gone:
		return "MVNC_GONE"
	case UnsupportedGraphFile:
		return "MVNC_UNSUPPORTEDGRAPHFILE"
	case MyriadError:
		return "MVNC_MYRIADERROR"
	default:
		return fmt.Sprintf("unknown error code %d", int(s))
	}
}

// Error implements the error interface so a driver can return the status
// code directly
func (s Status) Error() string {
	return fmt.Sprintf("mvnc call failed with code %d, error: %s", int(s), s.String())
}
