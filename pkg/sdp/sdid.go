// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// AddressType identifies the address family of one identifier segment.
type AddressType uint8

// Address families carried in the per-segment header byte
const (
	AddressIPv4 AddressType = iota
	AddressIPv6
	AddressReserved
)

// Size returns the on-wire address body size for the family, 0 if unknown.
func (t AddressType) Size() int {
	switch t {
	case AddressIPv4:
		return IPv4AddrSize
	case AddressIPv6:
		return IPv6AddrSize
	}
	return 0
}

// Identifier errors
var (
	// ErrNotParsed is returned when a textual identifier is not recognized.
	// Only dotted-quad IPv4, optionally suffixed with ":port", is parsed;
	// IPv6 is supported structurally but has no textual form here.
	ErrNotParsed = errors.New("sdp: identifier not parsed")

	// ErrBadAddressLength is returned when raw address bytes do not match
	// the declared address family.
	ErrBadAddressLength = errors.New("sdp: address byte count does not match type")

	// ErrMalformedChain is returned when a wire address chain is truncated
	// or carries an unknown address family.
	ErrMalformedChain = errors.New("sdp: malformed address chain")
)

// noAddressString is the display form for unrecognized address families.
const noAddressString = "no address"

// DeviceID is a device identifier: one address segment, optionally chained to
// further segments for multi-hop routing through intermediate devices. The
// first (outermost) segment is the local notion of the peer and is never
// serialized; only the forwarding chain after it goes on the wire. The port
// belongs to the first segment only and is used for transport dispatch, not
// serialized in the chain.
type DeviceID struct {
	addrType AddressType
	addr     []byte
	port     uint16
	chained  bool // this segment is part of a forwarding chain
	next     *DeviceID
}

// ParseDeviceID parses a textual identifier: a dotted-quad IPv4 address with
// an optional ":port" suffix. When no port is given defaultPort is used
// (typically Settings.IPPort()). Any other syntax fails with ErrNotParsed.
func ParseDeviceID(text string, defaultPort uint16) (*DeviceID, error) {
	if !strings.Contains(text, ".") {
		return nil, fmt.Errorf("%w: %q", ErrNotParsed, text)
	}

	host := text
	port := defaultPort
	if i := strings.LastIndex(text, ":"); i >= 0 {
		host = text[:i]
		p, err := strconv.ParseUint(text[i+1:], 10, 16)
		if err != nil {
			return nil, fmt.Errorf("%w: bad port in %q", ErrNotParsed, text)
		}
		port = uint16(p)
	}

	parts := strings.Split(host, ".")
	if len(parts) != IPv4AddrSize {
		return nil, fmt.Errorf("%w: %q", ErrNotParsed, text)
	}
	addr := make([]byte, IPv4AddrSize)
	for i, part := range parts {
		v, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrNotParsed, text)
		}
		addr[i] = byte(v)
	}

	return &DeviceID{addrType: AddressIPv4, addr: addr, port: port}, nil
}

// FromIPv4 constructs an identifier directly from 4 raw address bytes.
func FromIPv4(addr []byte, port uint16) (*DeviceID, error) {
	if len(addr) != IPv4AddrSize {
		return nil, fmt.Errorf("%w: got %d bytes for IPv4", ErrBadAddressLength, len(addr))
	}
	dup := make([]byte, IPv4AddrSize)
	copy(dup, addr)
	return &DeviceID{addrType: AddressIPv4, addr: dup, port: port}, nil
}

// Clone returns a deep copy of the identifier, forwarding chain included.
// The copy and the original never share segments.
func (d *DeviceID) Clone() *DeviceID {
	if d == nil {
		return nil
	}
	return &DeviceID{
		addrType: d.addrType,
		addr:     append([]byte(nil), d.addr...),
		port:     d.port,
		chained:  d.chained,
		next:     d.next.Clone(),
	}
}

// Append adds a forwarding segment at the tail of the chain, for re-routing
// through an intermediate device.
func (d *DeviceID) Append(addr []byte, t AddressType) error {
	if t.Size() == 0 {
		return fmt.Errorf("%w: type %d", ErrBadAddressLength, t)
	}
	if len(addr) != t.Size() {
		return fmt.Errorf("%w: got %d bytes for type %d", ErrBadAddressLength, len(addr), t)
	}
	tail := d
	for tail.next != nil {
		tail = tail.next
	}
	dup := make([]byte, len(addr))
	copy(dup, addr)
	tail.next = &DeviceID{addrType: t, addr: dup, chained: true}
	return nil
}

// RerouteCount returns the number of chained forwarding segments beyond the
// first identifier.
func (d *DeviceID) RerouteCount() int {
	n := 0
	for s := d.next; s != nil; s = s.next {
		n++
	}
	return n
}

// TotalAddressingSize returns the byte count of the serialized forwarding
// chain: one header byte plus the address body for every segment beyond the
// first. The outermost identifier itself is never written to the wire.
func (d *DeviceID) TotalAddressingSize() int {
	size := 0
	for s := d.next; s != nil; s = s.next {
		size += AddressingHeaderSize + s.addrType.Size()
	}
	return size
}

// segmentHeader packs the address type and more-segments flag into the
// per-segment wire header byte.
func segmentHeader(t AddressType, more bool) byte {
	h := byte(t) << 1
	if more {
		h |= 0x01
	}
	return h
}

// SerializeChain writes the forwarding chain into dst: for each segment
// beyond the first, a header byte (type + more-segments flag) followed by the
// raw address bytes. dst must be at least TotalAddressingSize() long.
func (d *DeviceID) SerializeChain(dst *Buffer) error {
	if d.next == nil {
		return nil
	}
	return d.next.serializeSegments(dst)
}

func (d *DeviceID) serializeSegments(dst *Buffer) error {
	data, err := dst.Bytes()
	if err != nil {
		return err
	}
	segSize := AddressingHeaderSize + d.addrType.Size()
	if len(data) < segSize {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrMalformedChain, segSize, len(data))
	}
	data[0] = segmentHeader(d.addrType, d.next != nil)
	copy(data[AddressingHeaderSize:segSize], d.addr)
	if d.next != nil {
		sub, err := dst.SubView(segSize, 0)
		if err != nil {
			return err
		}
		return d.next.serializeSegments(sub)
	}
	return nil
}

// ParseChain reads a serialized forwarding chain from src and appends the
// parsed segments to d. It is the inverse of SerializeChain.
func (d *DeviceID) ParseChain(src *Buffer) error {
	data, err := src.Bytes()
	if err != nil {
		return err
	}
	if len(data) < AddressingHeaderSize {
		return fmt.Errorf("%w: missing segment header", ErrMalformedChain)
	}
	t := AddressType(data[0] >> 1)
	more := data[0]&0x01 != 0
	bodySize := t.Size()
	if bodySize == 0 {
		return fmt.Errorf("%w: unknown address type %d", ErrMalformedChain, t)
	}
	segSize := AddressingHeaderSize + bodySize
	if len(data) < segSize {
		return fmt.Errorf("%w: truncated segment body", ErrMalformedChain)
	}
	if err := d.Append(data[AddressingHeaderSize:segSize], t); err != nil {
		return err
	}
	if more {
		sub, err := src.SubView(segSize, 0)
		if err != nil {
			return err
		}
		return d.ParseChain(sub)
	}
	return nil
}

// Equal compares the outermost identifiers only: raw address bytes and port.
// This is the reply-correlation equality used by the dispatcher.
func (d *DeviceID) Equal(other *DeviceID) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.addrType == other.addrType &&
		bytes.Equal(d.addr, other.addr) &&
		d.port == other.port
}

// String renders the identifier: dotted quad for IPv4, a sentinel for
// unrecognized families.
func (d *DeviceID) String() string {
	switch d.addrType {
	case AddressIPv4:
		parts := make([]string, len(d.addr))
		for i, b := range d.addr {
			parts[i] = strconv.Itoa(int(b))
		}
		return strings.Join(parts, ".")
	default:
		return noAddressString
	}
}

// AddressType returns the address family of the outermost segment.
func (d *DeviceID) AddressType() AddressType {
	return d.addrType
}

// Address returns a copy of the outermost segment's raw address bytes.
func (d *DeviceID) Address() []byte {
	dup := make([]byte, len(d.addr))
	copy(dup, d.addr)
	return dup
}

// Port returns the transport port attached to the first segment.
func (d *DeviceID) Port() uint16 {
	return d.port
}

// SetPort overrides the transport port of the first segment.
func (d *DeviceID) SetPort(port uint16) {
	d.port = port
}

// Next returns the following chained segment, nil at the end of the chain.
func (d *DeviceID) Next() *DeviceID {
	return d.next
}
