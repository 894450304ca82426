// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

// BCSCallbacks binds user handlers to the basic command set. Request
// handlers run on the device side and produce the reply payload; reply
// handlers run on the host side when a correlated reply arrives. Any nil
// request handler leaves the command unclaimed, so the dispatcher answers
// NO_INTERPRETER; nil reply handlers consume the reply silently.
type BCSCallbacks struct {
	Discover      func(*DeviceDiscoverRequest) *DeviceDiscoverReply
	RegisterRead  func(*RegisterRead16Request) *RegisterRead16Reply
	RegisterWrite func(*RegisterWrite16Request) *RegisterWrite16Reply
	SPITransfer   func(*SPIReadWriteRequest) *SPIReadWriteReply
	SPIWrite      func(*SPIWriteOnlyRequest) *SPIWriteOnlyReply
	I2CRead       func(*I2CReadRequest) *I2CReadReply
	I2CWrite      func(*I2CWriteRequest) *I2CWriteReply

	DiscoverReply      func(*DeviceDiscoverReply)
	RegisterReadReply  func(*RegisterRead16Reply)
	RegisterWriteReply func(*RegisterWrite16Reply)
	SPITransferReply   func(*SPIReadWriteReply)
	SPIWriteReply      func(*SPIWriteOnlyReply)
	I2CReadReply       func(*I2CReadReply)
	I2CWriteReply      func(*I2CWriteReply)
	CommandError       func(*ErrorReply)
}

// BasicCommandSet interprets the register/SPI/I2C/discover command family.
// It claims a payload by its leading 2-byte command id.
type BasicCommandSet struct {
	callbacks BCSCallbacks
}

// NewBasicCommandSet builds a basic command set interpreter with the given
// callbacks.
func NewBasicCommandSet(callbacks BCSCallbacks) *BasicCommandSet {
	return &BasicCommandSet{callbacks: callbacks}
}

// Kind identifies the basic command set family.
func (b *BasicCommandSet) Kind() InterpreterKind {
	return KindBasicCommandSet
}

// ParseRequest claims catalogued requests and produces the reply payload via
// the registered handler. Unknown command ids and commands without a handler
// are left unclaimed.
func (b *BasicCommandSet) ParseRequest(payload *Buffer) Payload {
	id, body, err := splitCommand(payload)
	if err != nil {
		return nil
	}

	switch id {
	case CmdDeviceDiscover:
		if b.callbacks.Discover == nil {
			return nil
		}
		req, err := ParseDeviceDiscoverRequest(body)
		if err != nil {
			return &ErrorReply{Code: CommandErrorInvalidFrame}
		}
		if reply := b.callbacks.Discover(req); reply != nil {
			return reply
		}
	case CmdRegisterRead16:
		if b.callbacks.RegisterRead == nil {
			return nil
		}
		req, err := ParseRegisterRead16Request(body)
		if err != nil {
			return &ErrorReply{Code: CommandErrorInvalidFrame}
		}
		if reply := b.callbacks.RegisterRead(req); reply != nil {
			return reply
		}
	case CmdRegisterWrite16:
		if b.callbacks.RegisterWrite == nil {
			return nil
		}
		req, err := ParseRegisterWrite16Request(body)
		if err != nil {
			return &ErrorReply{Code: CommandErrorInvalidFrame}
		}
		if reply := b.callbacks.RegisterWrite(req); reply != nil {
			return reply
		}
	case CmdSPIReadWrite:
		if b.callbacks.SPITransfer == nil {
			return nil
		}
		req, err := ParseSPIReadWriteRequest(body)
		if err != nil {
			return &ErrorReply{Code: CommandErrorInvalidFrame}
		}
		if reply := b.callbacks.SPITransfer(req); reply != nil {
			return reply
		}
	case CmdSPIWriteOnly:
		if b.callbacks.SPIWrite == nil {
			return nil
		}
		req, err := ParseSPIWriteOnlyRequest(body)
		if err != nil {
			return &ErrorReply{Code: CommandErrorInvalidFrame}
		}
		if reply := b.callbacks.SPIWrite(req); reply != nil {
			return reply
		}
	case CmdI2CRead:
		if b.callbacks.I2CRead == nil {
			return nil
		}
		req, err := ParseI2CReadRequest(body)
		if err != nil {
			return &ErrorReply{Code: CommandErrorInvalidFrame}
		}
		if reply := b.callbacks.I2CRead(req); reply != nil {
			return reply
		}
	case CmdI2CWrite:
		if b.callbacks.I2CWrite == nil {
			return nil
		}
		req, err := ParseI2CWriteRequest(body)
		if err != nil {
			return &ErrorReply{Code: CommandErrorInvalidFrame}
		}
		if reply := b.callbacks.I2CWrite(req); reply != nil {
			return reply
		}
	}

	// Handler declined to reply
	if payloadClaimed(id, b.callbacks) {
		return &ErrorReply{Code: CommandErrorNoCallback}
	}
	return nil
}

// ParseReply consumes catalogued replies and forwards them to the registered
// reply callbacks. Returns false for command ids outside the family so the
// scan continues.
func (b *BasicCommandSet) ParseReply(payload *Buffer) bool {
	id, body, err := splitCommand(payload)
	if err != nil {
		return false
	}

	switch id {
	case CmdError:
		reply, err := ParseErrorReply(body)
		if err != nil {
			return false
		}
		if b.callbacks.CommandError != nil {
			b.callbacks.CommandError(reply)
		}
	case CmdDeviceDiscover:
		reply, err := ParseDeviceDiscoverReply(body)
		if err != nil {
			return false
		}
		if b.callbacks.DiscoverReply != nil {
			b.callbacks.DiscoverReply(reply)
		}
	case CmdRegisterRead16:
		reply, err := ParseRegisterRead16Reply(body)
		if err != nil {
			return false
		}
		if b.callbacks.RegisterReadReply != nil {
			b.callbacks.RegisterReadReply(reply)
		}
	case CmdRegisterWrite16:
		reply, err := ParseRegisterWrite16Reply(body)
		if err != nil {
			return false
		}
		if b.callbacks.RegisterWriteReply != nil {
			b.callbacks.RegisterWriteReply(reply)
		}
	case CmdSPIReadWrite:
		reply, err := ParseSPIReadWriteReply(body)
		if err != nil {
			return false
		}
		if b.callbacks.SPITransferReply != nil {
			b.callbacks.SPITransferReply(reply)
		}
	case CmdSPIWriteOnly:
		reply, err := ParseSPIWriteOnlyReply(body)
		if err != nil {
			return false
		}
		if b.callbacks.SPIWriteReply != nil {
			b.callbacks.SPIWriteReply(reply)
		}
	case CmdI2CRead:
		reply, err := ParseI2CReadReply(body)
		if err != nil {
			return false
		}
		if b.callbacks.I2CReadReply != nil {
			b.callbacks.I2CReadReply(reply)
		}
	case CmdI2CWrite:
		reply, err := ParseI2CWriteReply(body)
		if err != nil {
			return false
		}
		if b.callbacks.I2CWriteReply != nil {
			b.callbacks.I2CWriteReply(reply)
		}
	default:
		return false
	}
	return true
}

// splitCommand reads the leading command id and returns the body view.
func splitCommand(payload *Buffer) (CommandID, *Buffer, error) {
	data, err := payload.Bytes()
	if err != nil {
		return 0, nil, err
	}
	if len(data) < CommandIDSize {
		return 0, nil, ErrShortPayloadBuffer
	}
	body, err := payload.SubView(CommandIDSize, 0)
	if err != nil {
		return 0, nil, err
	}
	return CommandID(getUint16(data)), body, nil
}

// payloadClaimed reports whether the command id belongs to the family and a
// request handler was registered for it.
func payloadClaimed(id CommandID, cb BCSCallbacks) bool {
	switch id {
	case CmdDeviceDiscover:
		return cb.Discover != nil
	case CmdRegisterRead16:
		return cb.RegisterRead != nil
	case CmdRegisterWrite16:
		return cb.RegisterWrite != nil
	case CmdSPIReadWrite:
		return cb.SPITransfer != nil
	case CmdSPIWriteOnly:
		return cb.SPIWrite != nil
	case CmdI2CRead:
		return cb.I2CRead != nil
	case CmdI2CWrite:
		return cb.I2CWrite != nil
	}
	return false
}
