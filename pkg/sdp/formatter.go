// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"fmt"
	"strings"
)

// FormatFrame renders a frame in human-readable form for the CLI tools:
// timestamp, source, classification, and a decoded or hex-dumped payload.
func FormatFrame(f *Frame) string {
	var b strings.Builder

	ts := f.Received().Format("15:04:05.000")
	if f.IsError() {
		fmt.Fprintf(&b, "[%s] %s ERROR %s (0x%04X)\n", ts, f.ID(), f.ErrorCode(), uint16(f.ErrorCode()))
		return b.String()
	}

	payload, err := f.PayloadBuffer()
	if err != nil {
		fmt.Fprintf(&b, "[%s] %s <unreadable payload: %v>\n", ts, f.ID(), err)
		return b.String()
	}
	data, err := payload.Bytes()
	if err != nil || len(data) < CommandIDSize {
		fmt.Fprintf(&b, "[%s] %s <empty frame> len=%d\n", ts, f.ID(), f.PayloadLength())
		return b.String()
	}

	cmd := CommandID(getUint16(data))
	fmt.Fprintf(&b, "[%s] %s %s (0x%04X) len=%d\n", ts, f.ID(), CommandName(cmd), uint16(cmd), f.PayloadLength())

	if summary := summarizePayload(cmd, payload); summary != "" {
		b.WriteString(summary)
	} else if len(data) > CommandIDSize {
		b.WriteString(formatHexDump(data[CommandIDSize:]))
	}
	return b.String()
}

// summarizePayload decodes the commands with an unambiguous one-line
// rendering; everything else falls back to a hex dump. Requests and replies
// of the same command are distinguished by body size where possible.
func summarizePayload(cmd CommandID, payload *Buffer) string {
	body, err := payload.SubView(CommandIDSize, 0)
	if err != nil {
		return ""
	}

	switch cmd {
	case CmdError:
		if p, err := ParseErrorReply(body); err == nil {
			return fmt.Sprintf("  Command error: %d\n", p.Code)
		}
	case CmdRegisterRead16:
		if body.Length() == 4 {
			if p, err := ParseRegisterRead16Request(body); err == nil {
				return fmt.Sprintf("  Address: 0x%08X\n", p.Address)
			}
		}
	case CmdRegisterWrite16:
		if p, err := ParseRegisterWrite16Request(body); err == nil {
			return fmt.Sprintf("  Address: 0x%08X, Data: 0x%08X\n", p.Address, p.Data)
		}
	case CmdDeviceDiscover:
		if body.Length() == 0 {
			return "  (no payload)\n"
		}
		if p, err := ParseDeviceDiscoverReply(body); err == nil {
			return fmt.Sprintf("  Device: %s (%s), protocol v%d, device v%d\n",
				p.Name, p.Description, p.ProtocolVersion, p.DeviceVersion)
		}
	case CmdI2CRead:
		if p, err := ParseI2CReadRequest(body); err == nil {
			return fmt.Sprintf("  Interface: %d, read size: %d\n", p.Interface, p.ReadSize)
		}
	}
	return ""
}

// formatHexDump renders payload bytes as "  Payload: 12 F1 8A ...", wrapped
// every 16 bytes.
func formatHexDump(data []byte) string {
	var b strings.Builder
	b.WriteString("  Payload: ")
	for i, v := range data {
		if i > 0 && i%16 == 0 {
			b.WriteString("\n           ")
		}
		fmt.Fprintf(&b, "%02X ", v)
	}
	b.WriteString("\n")
	return b.String()
}
