// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// fakeController records writes and serves injected frames, standing in for
// a transport adapter.
type fakeController struct {
	writes [][]byte
	reader *bytes.Reader
}

func (c *fakeController) Init() error { return nil }

func (c *fakeController) Read(p []byte) (int, error) {
	return io.ReadFull(c.reader, p)
}

func (c *fakeController) Write(id *DeviceID, p []byte) (int, error) {
	dup := make([]byte, len(p))
	copy(dup, p)
	c.writes = append(c.writes, dup)
	return len(p), nil
}

func (c *fakeController) Close() error { return nil }

// inject delivers a wire image as if it had arrived from source.
func (c *fakeController) inject(d *Dispatcher, source *DeviceID, wire []byte) error {
	c.reader = bytes.NewReader(wire)
	return d.OnData(c, source, len(wire))
}

func newTestDispatcher() (*Dispatcher, *fakeController) {
	c := &fakeController{}
	d := NewDispatcher(NewSettings(), ControllerRegistry{ControllerEthernet: c})
	return d, c
}

func mustID(t *testing.T, text string) *DeviceID {
	t.Helper()
	id, err := ParseDeviceID(text, DefaultIPPort)
	if err != nil {
		t.Fatalf("ParseDeviceID(%q): %v", text, err)
	}
	return id
}

// frameBytes builds a request frame's wire image for injection.
func frameBytes(t *testing.T, id *DeviceID, p Payload) []byte {
	t.Helper()
	f, err := NewPayloadFrame(id, p)
	if err != nil {
		t.Fatalf("NewPayloadFrame: %v", err)
	}
	wire, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	return wire
}

// ============================================================
// Outbound Tests
// ============================================================

func TestDispatcher_Request(t *testing.T) {
	d, c := newTestDispatcher()

	if err := d.SendRequest(&DeviceDiscoverRequest{}, mustID(t, "10.0.0.1")); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}

	if len(c.writes) != 1 {
		t.Fatalf("Expected 1 transport write, got %d", len(c.writes))
	}
	if d.PendingReplies() != 1 {
		t.Errorf("Expected 1 pending reply, got %d", d.PendingReplies())
	}
}

func TestDispatcher_Request_DefaultPort(t *testing.T) {
	d, _ := newTestDispatcher()

	id, err := ParseDeviceID("10.0.0.1", 0)
	if err != nil {
		t.Fatalf("ParseDeviceID: %v", err)
	}
	if err := d.SendRequest(&DeviceDiscoverRequest{}, id); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	if id.Port() != DefaultIPPort {
		t.Errorf("Expected default port %d, got %d", DefaultIPPort, id.Port())
	}
}

func TestDispatcher_Request_InvalidAddressType(t *testing.T) {
	d, _ := newTestDispatcher()

	bad := &DeviceID{addrType: AddressReserved}
	if err := d.SendRequest(&DeviceDiscoverRequest{}, bad); !errors.Is(err, ErrInvalidAddressType) {
		t.Errorf("Expected ErrInvalidAddressType, got %v", err)
	}
}

func TestDispatcher_Request_NoController(t *testing.T) {
	d := NewDispatcher(NewSettings(), ControllerRegistry{})
	err := d.SendRequest(&DeviceDiscoverRequest{}, mustID(t, "10.0.0.1"))
	if !errors.Is(err, ErrNoController) {
		t.Errorf("Expected ErrNoController, got %v", err)
	}
}

// ============================================================
// Confirm Classification Tests
// ============================================================

func TestDispatcher_ConfirmCorrelation(t *testing.T) {
	d, c := newTestDispatcher()

	var gotData uint32
	d.Attach(NewBasicCommandSet(BCSCallbacks{
		RegisterReadReply: func(p *RegisterRead16Reply) { gotData = p.Data },
	}))

	deviceA := mustID(t, "10.0.0.1")
	deviceB := mustID(t, "10.0.0.2")
	if err := d.SendRequest(&RegisterRead16Request{Address: 1}, deviceA); err != nil {
		t.Fatalf("SendRequest A: %v", err)
	}
	if err := d.SendRequest(&RegisterRead16Request{Address: 2}, deviceB); err != nil {
		t.Fatalf("SendRequest B: %v", err)
	}
	c.writes = nil

	// B answers first; its pending entry is removed, A's stays
	wire := frameBytes(t, mustID(t, "10.0.0.2"), &RegisterRead16Reply{Data: 0x4242})
	if err := c.inject(d, mustID(t, "10.0.0.2"), wire); err != nil {
		t.Fatalf("OnData: %v", err)
	}

	if gotData != 0x4242 {
		t.Errorf("Reply callback not invoked, got data 0x%X", gotData)
	}
	if d.PendingReplies() != 1 {
		t.Errorf("Expected 1 remaining pending entry, got %d", d.PendingReplies())
	}
	if len(c.writes) != 0 {
		t.Errorf("A confirm must not produce a reply frame, got %d writes", len(c.writes))
	}
}

func TestDispatcher_ConfirmUnconsumed(t *testing.T) {
	d, c := newTestDispatcher()
	// No interpreter attached: the reply is silently dropped

	device := mustID(t, "10.0.0.1")
	if err := d.SendRequest(&RegisterRead16Request{Address: 1}, device); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	c.writes = nil

	wire := frameBytes(t, mustID(t, "10.0.0.1"), &RegisterRead16Reply{Data: 7})
	if err := c.inject(d, mustID(t, "10.0.0.1"), wire); err != nil {
		t.Fatalf("OnData: %v", err)
	}
	if len(c.writes) != 0 {
		t.Errorf("Unconsumed confirm must not answer, got %d writes", len(c.writes))
	}
	if d.PendingReplies() != 0 {
		t.Errorf("Pending entry should be consumed, got %d", d.PendingReplies())
	}
}

func TestDispatcher_ConfirmErrorFrame(t *testing.T) {
	d, c := newTestDispatcher()

	var gotCode ErrorCode
	bcsCalled := false
	d.Attach(NewBasicCommandSet(BCSCallbacks{
		RegisterReadReply: func(*RegisterRead16Reply) { bcsCalled = true },
	}))
	// Attached last, still gets error frames first
	d.Attach(NewErrorInterpreter(func(code ErrorCode) { gotCode = code }))

	device := mustID(t, "10.0.0.1")
	if err := d.SendRequest(&RegisterRead16Request{Address: 1}, device); err != nil {
		t.Fatalf("SendRequest: %v", err)
	}
	c.writes = nil

	f, err := NewErrorFrame(mustID(t, "10.0.0.1"), ErrorNoInterpreter)
	if err != nil {
		t.Fatalf("NewErrorFrame: %v", err)
	}
	wire, _ := f.Bytes()
	if err := c.inject(d, mustID(t, "10.0.0.1"), wire); err != nil {
		t.Fatalf("OnData: %v", err)
	}

	if gotCode != ErrorNoInterpreter {
		t.Errorf("Expected error code %d, got %d", ErrorNoInterpreter, gotCode)
	}
	if bcsCalled {
		t.Error("Error frame must not reach command interpreters once consumed")
	}
}

// ============================================================
// Indication Classification Tests
// ============================================================

func TestDispatcher_IndicationServed(t *testing.T) {
	d, c := newTestDispatcher()
	d.Attach(NewBasicCommandSet(BCSCallbacks{
		RegisterRead: func(req *RegisterRead16Request) *RegisterRead16Reply {
			return &RegisterRead16Reply{Data: req.Address * 2}
		},
	}))

	wire := frameBytes(t, mustID(t, "10.0.0.9"), &RegisterRead16Request{Address: 21})
	if err := c.inject(d, mustID(t, "10.0.0.9"), wire); err != nil {
		t.Fatalf("OnData: %v", err)
	}

	if len(c.writes) != 1 {
		t.Fatalf("Expected exactly one reply frame, got %d", len(c.writes))
	}
	reply, err := ReadFrame(bytes.NewReader(c.writes[0]), mustID(t, "10.0.0.9"))
	if err != nil {
		t.Fatalf("ReadFrame(reply): %v", err)
	}
	payload, err := reply.PayloadBuffer()
	if err != nil {
		t.Fatalf("PayloadBuffer: %v", err)
	}
	cmd, body, err := splitCommand(payload)
	if err != nil {
		t.Fatalf("splitCommand: %v", err)
	}
	if cmd != CmdRegisterRead16 {
		t.Fatalf("Expected REGISTER_READ_16 reply, got %s", CommandName(cmd))
	}
	decoded, err := ParseRegisterRead16Reply(body)
	if err != nil {
		t.Fatalf("ParseRegisterRead16Reply: %v", err)
	}
	if decoded.Data != 42 {
		t.Errorf("Expected data 42, got %d", decoded.Data)
	}
}

func TestDispatcher_IndicationNoInterpreter(t *testing.T) {
	d, c := newTestDispatcher()

	wire := frameBytes(t, mustID(t, "10.0.0.9"), &RegisterRead16Request{Address: 1})
	if err := c.inject(d, mustID(t, "10.0.0.9"), wire); err != nil {
		t.Fatalf("OnData: %v", err)
	}

	if len(c.writes) != 1 {
		t.Fatalf("Expected exactly one error reply, got %d writes", len(c.writes))
	}
	reply, err := ReadFrame(bytes.NewReader(c.writes[0]), mustID(t, "10.0.0.9"))
	if err != nil {
		t.Fatalf("ReadFrame(reply): %v", err)
	}
	if !reply.IsError() || reply.ErrorCode() != ErrorNoInterpreter {
		t.Errorf("Expected NO_INTERPRETER error frame, got error=%v code=%d",
			reply.IsError(), reply.ErrorCode())
	}
}

func TestDispatcher_IndicationErrorFrame(t *testing.T) {
	d, c := newTestDispatcher()
	d.Attach(NewErrorInterpreter(func(ErrorCode) {}))

	// An inbound error frame with no pending request is itself invalid
	f, err := NewErrorFrame(mustID(t, "10.0.0.9"), ErrorNoInterpreter)
	if err != nil {
		t.Fatalf("NewErrorFrame: %v", err)
	}
	wire, _ := f.Bytes()
	if err := c.inject(d, mustID(t, "10.0.0.9"), wire); err != nil {
		t.Fatalf("OnData: %v", err)
	}

	if len(c.writes) != 1 {
		t.Fatalf("Expected exactly one reply, got %d writes", len(c.writes))
	}
	reply, err := ReadFrame(bytes.NewReader(c.writes[0]), mustID(t, "10.0.0.9"))
	if err != nil {
		t.Fatalf("ReadFrame(reply): %v", err)
	}
	if !reply.IsError() || reply.ErrorCode() != ErrorInvalidPayload {
		t.Errorf("Expected INVALID_PAYLOAD error frame, got error=%v code=%d",
			reply.IsError(), reply.ErrorCode())
	}
}

func TestDispatcher_IndicationNoCallback(t *testing.T) {
	d, c := newTestDispatcher()
	d.Attach(NewBasicCommandSet(BCSCallbacks{
		RegisterRead: func(*RegisterRead16Request) *RegisterRead16Reply {
			// Handler registered but declines to answer
			return nil
		},
	}))

	wire := frameBytes(t, mustID(t, "10.0.0.9"), &RegisterRead16Request{Address: 1})
	if err := c.inject(d, mustID(t, "10.0.0.9"), wire); err != nil {
		t.Fatalf("OnData: %v", err)
	}

	if len(c.writes) != 1 {
		t.Fatalf("Expected exactly one reply, got %d writes", len(c.writes))
	}
	reply, err := ReadFrame(bytes.NewReader(c.writes[0]), mustID(t, "10.0.0.9"))
	if err != nil {
		t.Fatalf("ReadFrame(reply): %v", err)
	}
	payload, _ := reply.PayloadBuffer()
	cmd, body, err := splitCommand(payload)
	if err != nil {
		t.Fatalf("splitCommand: %v", err)
	}
	if cmd != CmdError {
		t.Fatalf("Expected ERROR reply, got %s", CommandName(cmd))
	}
	decoded, err := ParseErrorReply(body)
	if err != nil {
		t.Fatalf("ParseErrorReply: %v", err)
	}
	if decoded.Code != CommandErrorNoCallback {
		t.Errorf("Expected no-callback code, got %d", decoded.Code)
	}
}

func TestDispatcher_RoutedIndicationsIndependent(t *testing.T) {
	d, c := newTestDispatcher()
	d.Attach(NewBasicCommandSet(BCSCallbacks{
		RegisterRead: func(req *RegisterRead16Request) *RegisterRead16Reply {
			return &RegisterRead16Reply{Data: req.Address}
		},
	}))

	routed := mustID(t, "10.0.0.9")
	if err := routed.Append([]byte{172, 16, 0, 9}, AddressIPv4); err != nil {
		t.Fatalf("Append: %v", err)
	}
	wire := frameBytes(t, routed, &RegisterRead16Request{Address: 5})

	// A transport keeps one identifier per connection; routed frames must
	// not accumulate chain segments on it across events
	source := mustID(t, "10.0.0.9")
	for i := 0; i < 2; i++ {
		if err := c.inject(d, source, wire); err != nil {
			t.Fatalf("OnData %d: %v", i, err)
		}
	}

	if source.RerouteCount() != 0 {
		t.Errorf("Connection identifier picked up %d chain segments", source.RerouteCount())
	}
	if len(c.writes) != 2 {
		t.Fatalf("Expected 2 replies, got %d", len(c.writes))
	}
	if !bytes.Equal(c.writes[0], c.writes[1]) {
		t.Errorf("Identical requests must produce identical replies, got %d and %d bytes",
			len(c.writes[0]), len(c.writes[1]))
	}
}

func TestDispatcher_FirstMatchWins(t *testing.T) {
	d, c := newTestDispatcher()

	firstServed := false
	d.Attach(NewBasicCommandSet(BCSCallbacks{
		RegisterRead: func(*RegisterRead16Request) *RegisterRead16Reply {
			firstServed = true
			return &RegisterRead16Reply{Data: 1}
		},
	}))
	d.Attach(NewBasicCommandSet(BCSCallbacks{
		RegisterRead: func(*RegisterRead16Request) *RegisterRead16Reply {
			t.Error("Second interpreter must not be offered a claimed request")
			return &RegisterRead16Reply{Data: 2}
		},
	}))

	wire := frameBytes(t, mustID(t, "10.0.0.9"), &RegisterRead16Request{Address: 0})
	if err := c.inject(d, mustID(t, "10.0.0.9"), wire); err != nil {
		t.Fatalf("OnData: %v", err)
	}
	if !firstServed {
		t.Error("First interpreter should have served the request")
	}
	if len(c.writes) != 1 {
		t.Errorf("Expected exactly one reply, got %d", len(c.writes))
	}
}
