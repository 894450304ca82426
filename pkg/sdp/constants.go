// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

// Package sdp implements the Syndesi Device Protocol engine: device
// identifiers with multi-hop routing chains, the binary frame codec, and the
// dispatch state machine that classifies inbound frames as confirms (replies
// to outstanding requests) or indications (new requests to serve).
//
// The package is transport-agnostic. Physical controllers (TCP, UART,
// WebSocket) live in pkg/transport and satisfy the Controller contract
// defined here.
package sdp

// Wire header layout. The network header is a single byte of bit flags; the
// two bytes after it hold either the payload length or, for error frames, the
// error code. The two fields share the same byte range so a fixed-size header
// read always determines how to interpret the rest of the frame.
const (
	NetworkHeaderSize = 1
	PayloadLengthSize = 2
	ErrorCodeSize     = 2
	HeaderSize        = NetworkHeaderSize + PayloadLengthSize

	// Each routed address segment carries a one-byte header
	// (address type + more-segments flag) before its address bytes.
	AddressingHeaderSize = 1
)

// Network header bit flags (byte 0 of every frame)
const (
	flagRouting = 0x01 // an address chain follows the header
	flagFollow  = 0x02 // reserved: another frame follows this one
	flagError   = 0x04 // the length field holds an error code instead
)

// ErrorCode is a wire-transmitted 2-byte protocol error code.
type ErrorCode uint16

// Protocol error codes carried by error frames
const (
	ErrorNone           ErrorCode = 0
	ErrorNoInterpreter  ErrorCode = 1
	ErrorInvalidPayload ErrorCode = 2
)

func (e ErrorCode) String() string {
	switch e {
	case ErrorNone:
		return "NO_ERROR"
	case ErrorNoInterpreter:
		return "NO_INTERPRETER"
	case ErrorInvalidPayload:
		return "INVALID_PAYLOAD"
	}
	return "UNKNOWN"
}

// DefaultIPPort is the SDP transport port unless overridden by Settings.
const DefaultIPPort = 2608

// Address body sizes per address type
const (
	IPv4AddrSize = 4
	IPv6AddrSize = 16
)

// CommandIDSize is the 2-byte command identifier prefixed to every
// non-error payload so interpreters can claim it.
const CommandIDSize = 2
