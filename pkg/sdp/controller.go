// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

// Controller is the contract a physical transport adapter fulfils for the
// protocol engine. The engine consumes this interface; implementations live
// outside the core (pkg/transport).
//
// Read must block until exactly len(p) bytes are available; short reads are
// not tolerated by the frame codec. Write returns the number of bytes
// actually transmitted to the destination. When a new message is ready the
// adapter invokes the dispatcher's OnData upcall with the source identifier
// and must keep the bytes readable through Read until the upcall returns.
type Controller interface {
	Init() error
	Read(p []byte) (int, error)
	Write(id *DeviceID, p []byte) (int, error)
	Close() error
}

// ControllerType keys the transport registry by physical layer.
type ControllerType int

// Transport controller classes
const (
	ControllerEthernet ControllerType = iota
	ControllerUART
	ControllerRS485
)

func (t ControllerType) String() string {
	switch t {
	case ControllerEthernet:
		return "ethernet"
	case ControllerUART:
		return "uart"
	case ControllerRS485:
		return "rs485"
	}
	return "unknown"
}

// ControllerRegistry maps controller classes to their adapters. It is
// injected into the dispatcher at construction; there is no process-wide
// controller state.
type ControllerRegistry map[ControllerType]Controller
