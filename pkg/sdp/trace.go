// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"errors"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// TraceRecord is one captured frame in a trace file. Records are written as
// a CBOR sequence so captures stream and truncated files stay readable up to
// the cut.
type TraceRecord struct {
	Timestamp time.Time `cbor:"timestamp"`
	Source    string    `cbor:"source"`
	Error     bool      `cbor:"error"`
	Code      uint16    `cbor:"code,omitempty"`
	Command   uint16    `cbor:"command,omitempty"`
	Payload   []byte    `cbor:"payload,omitempty"`
}

// TraceWriter appends frames to a capture stream.
type TraceWriter struct {
	enc *cbor.Encoder
}

// NewTraceWriter wraps w as a CBOR capture stream.
func NewTraceWriter(w io.Writer) *TraceWriter {
	return &TraceWriter{enc: cbor.NewEncoder(w)}
}

// Record appends one frame to the capture.
func (t *TraceWriter) Record(f *Frame) error {
	rec := TraceRecord{
		Timestamp: f.Received(),
		Source:    f.ID().String(),
		Error:     f.IsError(),
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now()
	}

	if f.IsError() {
		rec.Code = uint16(f.ErrorCode())
	} else {
		payload, err := f.PayloadBuffer()
		if err != nil {
			return err
		}
		data, err := payload.Bytes()
		if err != nil {
			return err
		}
		if len(data) >= CommandIDSize {
			rec.Command = getUint16(data)
			rec.Payload = append([]byte(nil), data[CommandIDSize:]...)
		}
	}
	return t.enc.Encode(rec)
}

// ReadTraceRecords decodes a capture stream until EOF.
func ReadTraceRecords(r io.Reader) ([]TraceRecord, error) {
	dec := cbor.NewDecoder(r)
	var records []TraceRecord
	for {
		var rec TraceRecord
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return records, nil
			}
			return records, err
		}
		records = append(records, rec)
	}
}
