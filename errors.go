package mvnclite

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies why a Session operation failed.  Kind implements error so
// callers can test for a category with errors.Is(err, mvnclite.DataLoadFailed)
type Kind int

const (
	NoDeviceFound Kind = iota + 1
	OpenDeviceFailed
	CloseDeviceFailed
	InvalidDevHandle
	InvalidInput
	NotAllowedThisTime
	DataLoadFailed
	AllocateGraphError
	DeallocateGraphError
	LoadTensorError
	GetResultError
	GetGraphOptionError
	GetDeviceOptionError
)

// String returns a readable description of the error kind
func (k Kind) String() string {
	switch k {
	case NoDeviceFound:
		return "no device found"
	case OpenDeviceFailed:
		return "open device failed"
	case CloseDeviceFailed:
		return "close device failed"
	case InvalidDevHandle:
		return "invalid device handle"
	case InvalidInput:
		return "invalid input"
	case NotAllowedThisTime:
		return "not allowed this time"
	case DataLoadFailed:
		return "data load failed"
	case AllocateGraphError:
		return "allocate graph failed"
	case DeallocateGraphError:
		return "deallocate graph failed"
	case LoadTensorError:
		return "load tensor failed"
	case GetResultError:
		return "get result failed"
	case GetGraphOptionError:
		return "get graph option failed"
	case GetDeviceOptionError:
		return "get device option failed"
	default:
		return fmt.Sprintf("unknown kind %d", int(k))
	}
}

// Error implements the error interface
func (k Kind) Error() string {
	return k.String()
}

// Error is the error returned by Session operations.  It records enough
// context (operation, kind, device status code and network path) to diagnose
// a failure from a log line alone
type Error struct {
	// Op is the Session operation that failed, eg: "UploadNetwork"
	Op string
	// Kind is the failure category
	Kind Kind
	// Status is the mvnc status code when the device rejected a call,
	// otherwise Success
	Status Status
	// Path is the network directory involved, if any
	Path string
	// Detail is additional free text, such as the device debug string
	Detail string
	// Err is the underlying cause
	Err error
}

func (e *Error) Error() string {
	var b strings.Builder

	b.WriteString(e.Op)
	b.WriteString(": ")
	b.WriteString(e.Kind.String())

	if e.Path != "" {
		fmt.Fprintf(&b, " (network %s)", e.Path)
	}

	if e.Status != Success {
		fmt.Fprintf(&b, ", code %d (%s)", int(e.Status), e.Status.String())
	}

	if e.Detail != "" {
		b.WriteString(", ")
		b.WriteString(e.Detail)
	}

	// a bare Status cause is already described by the code above
	if _, bare := e.Err.(Status); e.Err != nil && !bare {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the Kind of this error
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// newError builds an Error, lifting any Status found in the cause chain
func newError(op string, kind Kind, path string, cause error) *Error {
	e := &Error{
		Op:   op,
		Kind: kind,
		Path: path,
		Err:  cause,
	}

	var st Status

	if errors.As(cause, &st) {
		e.Status = st
	}

	return e
}

// errorf builds an Error without a device cause
func errorf(op string, kind Kind, path string, format string, args ...any) *Error {
	return &Error{
		Op:     op,
		Kind:   kind,
		Path:   path,
		Detail: fmt.Sprintf(format, args...),
	}
}

// KindOf returns the Kind of err, or zero if err did not come from this
// package
func KindOf(err error) Kind {
	var e *Error

	if errors.As(err, &e) {
		return e.Kind
	}

	var k Kind

	if errors.As(err, &k) {
		return k
	}

	return 0
}
