// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"errors"
	"fmt"
	"io"
	"time"
)

// Frame codec errors
var (
	// ErrFrameTooLarge is returned when addressing plus payload exceeds the
	// 16-bit length field.
	ErrFrameTooLarge = errors.New("sdp: frame exceeds 16-bit length field")
)

// NetworkHeader is the single byte of bit flags opening every frame.
type NetworkHeader struct {
	// Routing signals that an address chain follows the header: the frame
	// must be re-routed through intermediate devices.
	Routing bool
	// Follow is reserved: another frame follows the current one.
	Follow bool
	// Error marks an error frame; the length field holds the error code.
	Error bool
}

func (h NetworkHeader) pack() byte {
	var b byte
	if h.Routing {
		b |= flagRouting
	}
	if h.Follow {
		b |= flagFollow
	}
	if h.Error {
		b |= flagError
	}
	return b
}

func unpackNetworkHeader(b byte) NetworkHeader {
	return NetworkHeader{
		Routing: b&flagRouting != 0,
		Follow:  b&flagFollow != 0,
		Error:   b&flagError != 0,
	}
}

// Frame is one complete wire-transmitted protocol message: network header,
// length-or-errorcode field, optional address chain, payload bytes. The
// whole wire image lives in one owned buffer; PayloadBuffer hands out
// borrowed sub-views into it.
type Frame struct {
	header         NetworkHeader
	buf            *Buffer
	payloadLength  uint16
	errorCode      ErrorCode
	addressingSize int
	id             *DeviceID
	received       time.Time
}

// NewErrorFrame builds an error frame for the given identifier. The frame is
// exactly HeaderSize bytes: the error code occupies the same byte range as a
// payload frame's length field.
func NewErrorFrame(id *DeviceID, code ErrorCode) (*Frame, error) {
	buf, err := NewBuffer(NetworkHeaderSize + ErrorCodeSize)
	if err != nil {
		return nil, err
	}
	f := &Frame{
		header: NetworkHeader{
			Routing: id.RerouteCount() > 0,
			Error:   true,
		},
		buf:       buf,
		errorCode: code,
		id:        id,
	}
	data, err := buf.Bytes()
	if err != nil {
		return nil, err
	}
	data[0] = f.header.pack()
	putUint16(data[NetworkHeaderSize:], uint16(code))
	return f, nil
}

// NewPayloadFrame builds a payload frame: header, 2-byte length, the
// identifier's forwarding chain, then the payload serialized by its own
// codec. The length field covers addressing bytes plus payload bytes.
func NewPayloadFrame(id *DeviceID, p Payload) (*Frame, error) {
	addrSize := id.TotalAddressingSize()
	length := addrSize + p.Length()
	if length > 0xFFFF {
		return nil, fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, length)
	}

	buf, err := NewBuffer(HeaderSize + length)
	if err != nil {
		return nil, err
	}
	f := &Frame{
		header: NetworkHeader{
			Routing: id.RerouteCount() > 0,
		},
		buf:            buf,
		payloadLength:  uint16(length),
		addressingSize: addrSize,
		id:             id,
	}

	data, err := buf.Bytes()
	if err != nil {
		return nil, err
	}
	data[0] = f.header.pack()
	putUint16(data[NetworkHeaderSize:], f.payloadLength)

	if addrSize > 0 {
		chain, err := buf.SubView(HeaderSize, addrSize)
		if err != nil {
			return nil, err
		}
		if err := id.SerializeChain(chain); err != nil {
			return nil, err
		}
	}

	payload, err := buf.SubView(HeaderSize+addrSize, 0)
	if err != nil {
		return nil, err
	}
	if err := p.Build(payload); err != nil {
		return nil, err
	}
	return f, nil
}

// ReadFrame reads one frame from a blocking byte source. The fixed-size
// header is always read first; for error frames the remaining header bytes
// are the error code and nothing more is read, otherwise they are the length
// of the address-chain-plus-payload region which is then read exactly. A
// routed chain is parsed onto a private copy of id, reachable through ID;
// the caller's identifier is never modified, so one connection identifier
// can be reused across frames.
func ReadFrame(r io.Reader, id *DeviceID) (*Frame, error) {
	var hdr [HeaderSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("sdp: read frame header: %w", err)
	}

	f := &Frame{
		header:   unpackNetworkHeader(hdr[0]),
		id:       id,
		received: time.Now(),
	}

	if f.header.Error {
		f.errorCode = ErrorCode(getUint16(hdr[NetworkHeaderSize:]))
		f.buf = FromBytes(hdr[:], true, false)
		return f, nil
	}

	f.payloadLength = getUint16(hdr[NetworkHeaderSize:])
	buf, err := NewBuffer(HeaderSize + int(f.payloadLength))
	if err != nil {
		return nil, err
	}
	f.buf = buf
	data, err := buf.Bytes()
	if err != nil {
		return nil, err
	}
	copy(data, hdr[:])
	if _, err := io.ReadFull(r, data[HeaderSize:]); err != nil {
		return nil, fmt.Errorf("sdp: read frame body: %w", err)
	}

	if f.header.Routing {
		chain, err := buf.SubView(HeaderSize, 0)
		if err != nil {
			return nil, err
		}
		routed := id.Clone()
		if err := routed.ParseChain(chain); err != nil {
			return nil, err
		}
		f.id = routed
		f.addressingSize = routed.TotalAddressingSize() - id.TotalAddressingSize()
	}
	return f, nil
}

// PayloadBuffer returns a borrowed view over the payload region: past the
// network header for error frames (the error code bytes), past header and
// address chain for payload frames. It never copies.
func (f *Frame) PayloadBuffer() (*Buffer, error) {
	if f.header.Error {
		return f.buf.SubView(NetworkHeaderSize, 0)
	}
	return f.buf.SubView(HeaderSize+f.addressingSize, 0)
}

// Bytes returns the frame's complete wire image.
func (f *Frame) Bytes() ([]byte, error) {
	return f.buf.Bytes()
}

// ID returns the frame's device identifier.
func (f *Frame) ID() *DeviceID {
	return f.id
}

// Header returns the parsed network header flags.
func (f *Frame) Header() NetworkHeader {
	return f.header
}

// IsError reports whether this is an error frame.
func (f *Frame) IsError() bool {
	return f.header.Error
}

// ErrorCode returns the wire error code; meaningful only for error frames.
func (f *Frame) ErrorCode() ErrorCode {
	return f.errorCode
}

// PayloadLength returns the length field: addressing bytes plus payload
// bytes. Zero for error frames.
func (f *Frame) PayloadLength() uint16 {
	return f.payloadLength
}

// Received returns the decode timestamp for frames read from a transport.
func (f *Frame) Received() time.Time {
	return f.received
}
