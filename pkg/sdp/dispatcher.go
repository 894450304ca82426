// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"errors"
	"fmt"
	"sync"
)

// Dispatcher errors
var (
	// ErrInvalidAddressType is returned when a frame's destination address
	// family has no transport class (only IPv4/IPv6 resolve today).
	ErrInvalidAddressType = errors.New("sdp: invalid address type")

	// ErrNoController is returned when the registry has no adapter for the
	// resolved transport class.
	ErrNoController = errors.New("sdp: no controller registered")

	// ErrShortWrite is returned when a transport accepted fewer bytes than
	// the frame holds.
	ErrShortWrite = errors.New("sdp: short transport write")
)

// Dispatcher routes frames between the transport adapters and the payload
// interpreters. Outbound requests append their destination to a pending-reply
// FIFO; each inbound frame is classified as a confirm (its source matches a
// pending entry, which is removed) or an indication (a new request to serve).
//
// The engine's dispatch logic is synchronous, but transport adapters may run
// one goroutine per connection, so the pending list and the interpreter chain
// are guarded by a mutex. Interpreter callbacks run outside the lock so they
// may issue further requests.
type Dispatcher struct {
	settings    *Settings
	controllers ControllerRegistry

	mu      sync.Mutex
	chain   []Interpreter
	pending []*DeviceID
}

// NewDispatcher builds a dispatcher over the given settings and transport
// registry.
func NewDispatcher(settings *Settings, controllers ControllerRegistry) *Dispatcher {
	if settings == nil {
		settings = NewSettings()
	}
	return &Dispatcher{settings: settings, controllers: controllers}
}

// Attach appends an interpreter at the tail of the chain. Interpreters are
// tried in attach order; the first to claim a payload wins.
func (d *Dispatcher) Attach(i Interpreter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.chain = append(d.chain, i)
}

// Init initializes every registered controller.
func (d *Dispatcher) Init() error {
	for t, c := range d.controllers {
		if err := c.Init(); err != nil {
			return fmt.Errorf("sdp: init %s controller: %w", t, err)
		}
	}
	return nil
}

// Close closes every registered controller, returning the first failure.
func (d *Dispatcher) Close() error {
	var first error
	for _, c := range d.controllers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// resolve maps an identifier's address family to its transport adapter.
// IP-addressed frames prefer the Ethernet adapter but fall back to a
// point-to-point link (UART, RS485) carrying IP identifiers when that is
// all the registry holds.
func (d *Dispatcher) resolve(id *DeviceID) (Controller, error) {
	switch id.AddressType() {
	case AddressIPv4, AddressIPv6:
	default:
		return nil, fmt.Errorf("%w: %d", ErrInvalidAddressType, id.AddressType())
	}
	for _, class := range []ControllerType{ControllerEthernet, ControllerUART, ControllerRS485} {
		if c := d.controllers[class]; c != nil {
			return c, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoController, ControllerEthernet)
}

// Request transmits an outbound request frame. On a complete write the
// destination identifier joins the pending-reply list so the matching reply
// is classified as a confirm.
func (d *Dispatcher) Request(f *Frame) error {
	c, err := d.resolve(f.ID())
	if err != nil {
		return err
	}
	if f.ID().Port() == 0 {
		f.ID().SetPort(d.settings.IPPort())
	}

	data, err := f.Bytes()
	if err != nil {
		return err
	}
	n, err := c.Write(f.ID(), data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(data))
	}

	d.mu.Lock()
	d.pending = append(d.pending, f.ID())
	d.mu.Unlock()
	return nil
}

// SendRequest builds a payload frame for the identifier and transmits it.
func (d *Dispatcher) SendRequest(p Payload, id *DeviceID) error {
	f, err := NewPayloadFrame(id, p)
	if err != nil {
		return err
	}
	return d.Request(f)
}

// Response transmits an outbound reply frame. No pending entry is recorded.
func (d *Dispatcher) Response(f *Frame) error {
	c, err := d.resolve(f.ID())
	if err != nil {
		return err
	}
	return d.sendOn(c, f)
}

func (d *Dispatcher) sendOn(c Controller, f *Frame) error {
	data, err := f.Bytes()
	if err != nil {
		return err
	}
	n, err := c.Write(f.ID(), data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("%w: %d of %d bytes", ErrShortWrite, n, len(data))
	}
	return nil
}

// OnData is the adapter upcall: a message from source is readable on c. The
// frame is parsed and classified. A source matching a pending-reply entry
// makes it a confirm (the first matching entry is removed, FIFO order kept
// for the rest); anything else is an indication and produces exactly one
// reply frame on the originating controller.
func (d *Dispatcher) OnData(c Controller, source *DeviceID, length int) error {
	f, err := ReadFrame(c, source)
	if err != nil {
		return err
	}

	if d.takePending(source) {
		return d.confirm(f)
	}
	return d.indication(c, f)
}

// takePending removes the first pending entry equal to id, reporting whether
// one was found.
func (d *Dispatcher) takePending(id *DeviceID) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	for i, p := range d.pending {
		if p.Equal(id) {
			d.pending = append(d.pending[:i], d.pending[i+1:]...)
			return true
		}
	}
	return false
}

// PendingReplies returns the number of outstanding requests.
func (d *Dispatcher) PendingReplies() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Dispatcher) interpreters() []Interpreter {
	d.mu.Lock()
	defer d.mu.Unlock()
	chain := make([]Interpreter, len(d.chain))
	copy(chain, d.chain)
	return chain
}

// confirm drives the interpreter chain over a correlated reply. For error
// frames the error interpreters are always tried first; a reply nobody
// consumes is dropped.
func (d *Dispatcher) confirm(f *Frame) error {
	payload, err := f.PayloadBuffer()
	if err != nil {
		return err
	}
	chain := d.interpreters()

	if f.IsError() {
		for _, i := range chain {
			if i.Kind() == KindError && i.ParseReply(payload) {
				return nil
			}
		}
	}
	for _, i := range chain {
		if i.Kind() == KindError {
			continue
		}
		if i.ParseReply(payload) {
			return nil
		}
	}
	return nil
}

// indication serves an inbound request: the first interpreter to claim it
// provides the reply payload; otherwise a NO_INTERPRETER error frame is
// synthesized. An error frame where a request was expected answers
// INVALID_PAYLOAD.
func (d *Dispatcher) indication(c Controller, f *Frame) error {
	var reply *Frame
	var err error

	if f.IsError() {
		reply, err = NewErrorFrame(f.ID(), ErrorInvalidPayload)
	} else {
		payload, perr := f.PayloadBuffer()
		if perr != nil {
			return perr
		}
		var replyPayload Payload
		for _, i := range d.interpreters() {
			if i.Kind() == KindError {
				// A device never receives an error request
				continue
			}
			if replyPayload = i.ParseRequest(payload); replyPayload != nil {
				break
			}
		}
		if replyPayload != nil {
			reply, err = NewPayloadFrame(f.ID(), replyPayload)
		} else {
			reply, err = NewErrorFrame(f.ID(), ErrorNoInterpreter)
		}
	}
	if err != nil {
		return err
	}
	return d.sendOn(c, reply)
}
