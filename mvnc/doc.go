// Package mvnc binds the Movidius Neural Compute SDK C library (libmvnc) to
// the mvnclite.Driver interface.
//
// The binding needs mvnc.h and libmvnc and is only compiled with the mvnc
// build tag:
//
//	go build -tags mvnc ./...
//
// Without the tag New returns a Driver that finds no device, so the rest of
// the module, including the simulated device, builds on any host.
package mvnc
