// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

// CommandID is the 16-bit command identifier prefixed to every non-error
// payload. The engine treats commands opaquely; the catalogue below is the
// basic command set every device speaks.
type CommandID uint16

// Command catalogue
const (
	CmdNoCommand       CommandID = 0x0000
	CmdError           CommandID = 0x0001
	CmdDeviceDiscover  CommandID = 0x0002
	CmdRegisterRead16  CommandID = 0x0100
	CmdRegisterWrite16 CommandID = 0x0101
	CmdSPIReadWrite    CommandID = 0x0110
	CmdSPIWriteOnly    CommandID = 0x0111
	CmdI2CRead         CommandID = 0x0120
	CmdI2CWrite        CommandID = 0x0121
)

// CommandIDs lists every catalogued command in id order.
var CommandIDs = []CommandID{
	CmdNoCommand,
	CmdError,
	CmdDeviceDiscover,
	CmdRegisterRead16,
	CmdRegisterWrite16,
	CmdSPIReadWrite,
	CmdSPIWriteOnly,
	CmdI2CRead,
	CmdI2CWrite,
}

// CommandName returns the catalogue name for a command id.
func CommandName(id CommandID) string {
	switch id {
	case CmdNoCommand:
		return "NO_COMMAND"
	case CmdError:
		return "ERROR"
	case CmdDeviceDiscover:
		return "DEVICE_DISCOVER"
	case CmdRegisterRead16:
		return "REGISTER_READ_16"
	case CmdRegisterWrite16:
		return "REGISTER_WRITE_16"
	case CmdSPIReadWrite:
		return "SPI_READ_WRITE"
	case CmdSPIWriteOnly:
		return "SPI_WRITE_ONLY"
	case CmdI2CRead:
		return "I2C_READ"
	case CmdI2CWrite:
		return "I2C_WRITE"
	}
	return "UNKNOWN"
}

// Payload is the contract between the frame codec and the command payloads:
// serialize into a buffer, report the serialized length, and identify the
// command. Length includes the 2-byte command id prefix that Build writes
// first, so a frame's length field needs no special casing.
type Payload interface {
	Command() CommandID
	Length() int
	Build(dst *Buffer) error
}

// buildHeader writes the command id prefix and returns the body region.
func buildHeader(p Payload, dst *Buffer) ([]byte, error) {
	data, err := dst.Bytes()
	if err != nil {
		return nil, err
	}
	if len(data) < p.Length() {
		return nil, ErrShortPayloadBuffer
	}
	putUint16(data, uint16(p.Command()))
	return data[CommandIDSize:p.Length()], nil
}

// NewPayload returns a zero-valued payload for the given command id and
// direction, nil when the id is unknown or the direction does not exist for
// the command (an ERROR request, for instance).
func NewPayload(id CommandID, request bool) Payload {
	switch id {
	case CmdError:
		if !request {
			return &ErrorReply{}
		}
	case CmdDeviceDiscover:
		if request {
			return &DeviceDiscoverRequest{}
		}
		return &DeviceDiscoverReply{}
	case CmdRegisterRead16:
		if request {
			return &RegisterRead16Request{}
		}
		return &RegisterRead16Reply{}
	case CmdRegisterWrite16:
		if request {
			return &RegisterWrite16Request{}
		}
		return &RegisterWrite16Reply{}
	case CmdSPIReadWrite:
		if request {
			return &SPIReadWriteRequest{}
		}
		return &SPIReadWriteReply{}
	case CmdSPIWriteOnly:
		if request {
			return &SPIWriteOnlyRequest{}
		}
		return &SPIWriteOnlyReply{}
	case CmdI2CRead:
		if request {
			return &I2CReadRequest{}
		}
		return &I2CReadReply{}
	case CmdI2CWrite:
		if request {
			return &I2CWriteRequest{}
		}
		return &I2CWriteReply{}
	}
	return nil
}
