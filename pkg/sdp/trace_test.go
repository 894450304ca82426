// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"bytes"
	"strings"
	"testing"
)

func TestTraceWriter_RoundTrip(t *testing.T) {
	var capture bytes.Buffer
	w := NewTraceWriter(&capture)

	id, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	payloadFrame, err := NewPayloadFrame(id, &RegisterWrite16Request{Address: 0x10, Data: 0x2000})
	if err != nil {
		t.Fatalf("NewPayloadFrame: %v", err)
	}
	errorFrame, err := NewErrorFrame(id, ErrorInvalidPayload)
	if err != nil {
		t.Fatalf("NewErrorFrame: %v", err)
	}

	if err := w.Record(payloadFrame); err != nil {
		t.Fatalf("Record payload frame: %v", err)
	}
	if err := w.Record(errorFrame); err != nil {
		t.Fatalf("Record error frame: %v", err)
	}

	records, err := ReadTraceRecords(&capture)
	if err != nil {
		t.Fatalf("ReadTraceRecords: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Error {
		t.Error("First record should not be an error")
	}
	if first.Command != uint16(CmdRegisterWrite16) {
		t.Errorf("Expected command 0x%04X, got 0x%04X", uint16(CmdRegisterWrite16), first.Command)
	}
	if len(first.Payload) != 8 {
		t.Errorf("Expected 8 body bytes, got %d", len(first.Payload))
	}
	if first.Source != "10.0.0.1" {
		t.Errorf("Expected source 10.0.0.1, got %q", first.Source)
	}
	if first.Timestamp.IsZero() {
		t.Error("Record timestamp should be set")
	}

	second := records[1]
	if !second.Error || second.Code != uint16(ErrorInvalidPayload) {
		t.Errorf("Expected error record with code %d, got error=%v code=%d",
			ErrorInvalidPayload, second.Error, second.Code)
	}
}

func TestReadTraceRecords_Truncated(t *testing.T) {
	var capture bytes.Buffer
	w := NewTraceWriter(&capture)
	id, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	f, _ := NewPayloadFrame(id, &DeviceDiscoverRequest{})
	w.Record(f)
	w.Record(f)

	// Cut the stream mid-record: the first record stays readable
	cut := capture.Bytes()[:capture.Len()-3]
	records, err := ReadTraceRecords(bytes.NewReader(cut))
	if err == nil {
		t.Error("Expected error for truncated capture")
	}
	if len(records) != 1 {
		t.Errorf("Expected 1 readable record before the cut, got %d", len(records))
	}
}

// ============================================================
// Formatter Tests
// ============================================================

func TestFormatFrame_ErrorFrame(t *testing.T) {
	id, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	f, err := NewErrorFrame(id, ErrorNoInterpreter)
	if err != nil {
		t.Fatalf("NewErrorFrame: %v", err)
	}

	out := FormatFrame(f)
	if !strings.Contains(out, "10.0.0.1") {
		t.Errorf("Output should name the source: %q", out)
	}
	if !strings.Contains(out, "ERROR") {
		t.Errorf("Output should mark the error frame: %q", out)
	}
}

func TestFormatFrame_PayloadFrame(t *testing.T) {
	id, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	f, err := NewPayloadFrame(id, &RegisterRead16Request{Address: 0xABCD})
	if err != nil {
		t.Fatalf("NewPayloadFrame: %v", err)
	}

	out := FormatFrame(f)
	if !strings.Contains(out, "REGISTER_READ_16") {
		t.Errorf("Output should name the command: %q", out)
	}
	if !strings.Contains(out, "0x0000ABCD") {
		t.Errorf("Output should decode the address: %q", out)
	}
}

func TestFormatFrame_HexFallback(t *testing.T) {
	id, _ := ParseDeviceID("10.0.0.1", DefaultIPPort)
	f, err := NewPayloadFrame(id, &SPIWriteOnlyRequest{Interface: 0, WriteData: []byte{0xCA, 0xFE}})
	if err != nil {
		t.Fatalf("NewPayloadFrame: %v", err)
	}

	out := FormatFrame(f)
	if !strings.Contains(out, "Payload:") {
		t.Errorf("Uncatalogued payloads should hex dump: %q", out)
	}
	if !strings.Contains(out, "CA FE") {
		t.Errorf("Hex dump should carry the body bytes: %q", out)
	}
}
