// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"bytes"
	"testing"
)

// ============================================================
// Error Frame Tests
// ============================================================

func TestNewErrorFrame_WireImage(t *testing.T) {
	id, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	f, err := NewErrorFrame(id, ErrorNoInterpreter)
	if err != nil {
		t.Fatalf("NewErrorFrame: %v", err)
	}

	wire, err := f.Bytes()
	if err != nil {
		t.Fatalf("Bytes: %v", err)
	}
	if len(wire) != HeaderSize {
		t.Fatalf("Error frame should be exactly %d bytes, got %d", HeaderSize, len(wire))
	}
	if wire[0]&flagError == 0 {
		t.Error("Error flag not set in network header")
	}
	if got := getUint16(wire[NetworkHeaderSize:]); got != uint16(ErrorNoInterpreter) {
		t.Errorf("Expected error code %d in length field, got %d", ErrorNoInterpreter, got)
	}
}

func TestErrorFrame_RoundTrip(t *testing.T) {
	src, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	f, err := NewErrorFrame(src, ErrorInvalidPayload)
	if err != nil {
		t.Fatalf("NewErrorFrame: %v", err)
	}
	wire, _ := f.Bytes()

	peer, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	parsed, err := ReadFrame(bytes.NewReader(wire), peer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	if !parsed.IsError() {
		t.Fatal("Parsed frame should be an error frame")
	}
	if parsed.ErrorCode() != ErrorInvalidPayload {
		t.Errorf("Expected code %d, got %d", ErrorInvalidPayload, parsed.ErrorCode())
	}
	if parsed.Received().IsZero() {
		t.Error("Received timestamp should be set by ReadFrame")
	}
}

// ============================================================
// Payload Frame Tests
// ============================================================

func TestPayloadFrame_RoundTrip(t *testing.T) {
	id, _ := ParseDeviceID("192.168.1.40", DefaultIPPort)
	req := &RegisterWrite16Request{Address: 0x1000, Data: 0xBEEF}

	f, err := NewPayloadFrame(id, req)
	if err != nil {
		t.Fatalf("NewPayloadFrame: %v", err)
	}
	wire, _ := f.Bytes()

	if len(wire) != HeaderSize+req.Length() {
		t.Fatalf("Expected %d wire bytes, got %d", HeaderSize+req.Length(), len(wire))
	}
	if got := getUint16(wire[NetworkHeaderSize:]); got != uint16(req.Length()) {
		t.Errorf("Length field should equal payload length %d, got %d", req.Length(), got)
	}

	peer, _ := ParseDeviceID("192.168.1.40", DefaultIPPort)
	parsed, err := ReadFrame(bytes.NewReader(wire), peer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if parsed.IsError() {
		t.Fatal("Payload frame misparsed as error")
	}
	if parsed.PayloadLength() != uint16(req.Length()) {
		t.Errorf("Expected payload length %d, got %d", req.Length(), parsed.PayloadLength())
	}

	payload, err := parsed.PayloadBuffer()
	if err != nil {
		t.Fatalf("PayloadBuffer: %v", err)
	}
	cmd, body, err := splitCommand(payload)
	if err != nil {
		t.Fatalf("splitCommand: %v", err)
	}
	if cmd != CmdRegisterWrite16 {
		t.Errorf("Expected command 0x%04X, got 0x%04X", uint16(CmdRegisterWrite16), uint16(cmd))
	}
	decoded, err := ParseRegisterWrite16Request(body)
	if err != nil {
		t.Fatalf("ParseRegisterWrite16Request: %v", err)
	}
	if decoded.Address != req.Address || decoded.Data != req.Data {
		t.Errorf("Round trip mismatch: got address 0x%X data 0x%X", decoded.Address, decoded.Data)
	}
}

func TestPayloadFrame_RoutingFlag(t *testing.T) {
	direct, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	f, err := NewPayloadFrame(direct, &DeviceDiscoverRequest{})
	if err != nil {
		t.Fatalf("NewPayloadFrame: %v", err)
	}
	if f.Header().Routing {
		t.Error("Unchained identifier should not set the routing flag")
	}

	routed, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	routed.Append([]byte{10, 0, 0, 2}, AddressIPv4)
	f, err = NewPayloadFrame(routed, &DeviceDiscoverRequest{})
	if err != nil {
		t.Fatalf("NewPayloadFrame: %v", err)
	}
	if !f.Header().Routing {
		t.Error("Chained identifier should set the routing flag")
	}
	if f.PayloadLength() != uint16(routed.TotalAddressingSize()+(&DeviceDiscoverRequest{}).Length()) {
		t.Errorf("Length field should cover addressing plus payload, got %d", f.PayloadLength())
	}
}

func TestReadFrame_RoutedChain(t *testing.T) {
	src, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	src.Append([]byte{172, 16, 0, 9}, AddressIPv4)
	f, err := NewPayloadFrame(src, &RegisterRead16Request{Address: 0x20})
	if err != nil {
		t.Fatalf("NewPayloadFrame: %v", err)
	}
	wire, _ := f.Bytes()

	peer, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	parsed, err := ReadFrame(bytes.NewReader(wire), peer)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}

	if peer.RerouteCount() != 0 {
		t.Errorf("Reading a frame must not touch the caller's identifier, got %d segments", peer.RerouteCount())
	}
	routed := parsed.ID()
	if routed.RerouteCount() != 1 {
		t.Fatalf("Expected 1 parsed chain segment, got %d", routed.RerouteCount())
	}
	got := routed.Next().Address()
	want := []byte{172, 16, 0, 9}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Chain byte %d: expected %d, got %d", i, want[i], got[i])
		}
	}

	// The payload view starts after the parsed chain
	payload, err := parsed.PayloadBuffer()
	if err != nil {
		t.Fatalf("PayloadBuffer: %v", err)
	}
	cmd, body, err := splitCommand(payload)
	if err != nil {
		t.Fatalf("splitCommand: %v", err)
	}
	if cmd != CmdRegisterRead16 {
		t.Errorf("Expected command 0x%04X, got 0x%04X", uint16(CmdRegisterRead16), uint16(cmd))
	}
	req, err := ParseRegisterRead16Request(body)
	if err != nil {
		t.Fatalf("ParseRegisterRead16Request: %v", err)
	}
	if req.Address != 0x20 {
		t.Errorf("Expected address 0x20, got 0x%X", req.Address)
	}
}

func TestReadFrame_Truncated(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: []byte{}},
		{name: "header only", data: []byte{0x00}},
		{name: "body missing", data: []byte{0x00, 0x00, 0x08}},
		{name: "body short", data: []byte{0x00, 0x00, 0x08, 0x01, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
			if _, err := ReadFrame(bytes.NewReader(tt.data), id); err == nil {
				t.Error("Expected error for truncated frame")
			}
		})
	}
}

func TestPayloadBuffer_Borrowed(t *testing.T) {
	id, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	f, err := NewPayloadFrame(id, &DeviceDiscoverRequest{})
	if err != nil {
		t.Fatalf("NewPayloadFrame: %v", err)
	}
	payload, err := f.PayloadBuffer()
	if err != nil {
		t.Fatalf("PayloadBuffer: %v", err)
	}
	if payload.Owned() {
		t.Error("Payload view should borrow the frame's storage")
	}
	if payload.Offset() != HeaderSize {
		t.Errorf("Expected payload offset %d, got %d", HeaderSize, payload.Offset())
	}
}
