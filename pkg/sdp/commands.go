// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"errors"
	"fmt"
)

// Basic command set payloads. These are mechanical, schema-driven data
// classes: fixed big-endian field layouts with a request and a reply variant
// per command. Variable-size fields are length-prefixed with a 4-byte count.

// Payload codec errors
var (
	// ErrShortPayloadBuffer is returned when a payload buffer is smaller
	// than the fields it must hold.
	ErrShortPayloadBuffer = errors.New("sdp: payload buffer too short")
)

// Status is the 1-byte acknowledge carried by write-style replies.
type Status uint8

// Write acknowledge values
const (
	StatusOK  Status = 0
	StatusNOK Status = 1
)

// CommandError is the 1-byte code carried by an ERROR reply payload.
type CommandError uint8

// ERROR reply codes
const (
	CommandErrorInvalidFrame CommandError = 0
	CommandErrorOther        CommandError = 1
	CommandErrorNoCallback   CommandError = 2
)

func (e CommandError) String() string {
	switch e {
	case CommandErrorInvalidFrame:
		return "invalid frame"
	case CommandErrorOther:
		return "other"
	case CommandErrorNoCallback:
		return "no callback"
	}
	return "unknown"
}

// bodyBytes fetches the payload body and checks it holds at least min bytes.
func bodyBytes(src *Buffer, min int) ([]byte, error) {
	data, err := src.Bytes()
	if err != nil {
		return nil, err
	}
	if len(data) < min {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortPayloadBuffer, min, len(data))
	}
	return data, nil
}

// ErrorReply reports a command-level failure.
type ErrorReply struct {
	Code CommandError
}

func (p *ErrorReply) Command() CommandID { return CmdError }
func (p *ErrorReply) Length() int        { return CommandIDSize + 1 }

func (p *ErrorReply) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	body[0] = byte(p.Code)
	return nil
}

// ParseErrorReply parses an ERROR reply body.
func ParseErrorReply(src *Buffer) (*ErrorReply, error) {
	data, err := bodyBytes(src, 1)
	if err != nil {
		return nil, err
	}
	return &ErrorReply{Code: CommandError(data[0])}, nil
}

// DeviceDiscoverRequest asks a device to identify itself. It has no fields.
type DeviceDiscoverRequest struct{}

func (p *DeviceDiscoverRequest) Command() CommandID { return CmdDeviceDiscover }
func (p *DeviceDiscoverRequest) Length() int        { return CommandIDSize }

func (p *DeviceDiscoverRequest) Build(dst *Buffer) error {
	_, err := buildHeader(p, dst)
	return err
}

// ParseDeviceDiscoverRequest parses a DEVICE_DISCOVER request body.
func ParseDeviceDiscoverRequest(src *Buffer) (*DeviceDiscoverRequest, error) {
	return &DeviceDiscoverRequest{}, nil
}

// DiscoverIDSize is the fixed size of the unique device identifier carried by
// a DEVICE_DISCOVER reply.
const DiscoverIDSize = 20

// DeviceDiscoverReply identifies a device: unique id, protocol and device
// versions, and human-readable name and description.
type DeviceDiscoverReply struct {
	ID              [DiscoverIDSize]byte
	ProtocolVersion uint32
	DeviceVersion   uint32
	Name            string
	Description     string
}

func (p *DeviceDiscoverReply) Command() CommandID { return CmdDeviceDiscover }

func (p *DeviceDiscoverReply) Length() int {
	return CommandIDSize + DiscoverIDSize + 4 + 4 + 4 + len(p.Name) + 4 + len(p.Description)
}

func (p *DeviceDiscoverReply) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	pos := copy(body, p.ID[:])
	putUint32(body[pos:], p.ProtocolVersion)
	pos += 4
	putUint32(body[pos:], p.DeviceVersion)
	pos += 4
	putUint32(body[pos:], uint32(len(p.Name)))
	pos += 4
	pos += copy(body[pos:], p.Name)
	putUint32(body[pos:], uint32(len(p.Description)))
	pos += 4
	copy(body[pos:], p.Description)
	return nil
}

// ParseDeviceDiscoverReply parses a DEVICE_DISCOVER reply body.
func ParseDeviceDiscoverReply(src *Buffer) (*DeviceDiscoverReply, error) {
	data, err := bodyBytes(src, DiscoverIDSize+4+4+4)
	if err != nil {
		return nil, err
	}
	p := &DeviceDiscoverReply{}
	pos := copy(p.ID[:], data)
	p.ProtocolVersion = getUint32(data[pos:])
	pos += 4
	p.DeviceVersion = getUint32(data[pos:])
	pos += 4
	nameLen := int(getUint32(data[pos:]))
	pos += 4
	if len(data) < pos+nameLen+4 {
		return nil, fmt.Errorf("%w: truncated name", ErrShortPayloadBuffer)
	}
	p.Name = string(data[pos : pos+nameLen])
	pos += nameLen
	descLen := int(getUint32(data[pos:]))
	pos += 4
	if len(data) < pos+descLen {
		return nil, fmt.Errorf("%w: truncated description", ErrShortPayloadBuffer)
	}
	p.Description = string(data[pos : pos+descLen])
	return p, nil
}

// RegisterRead16Request reads one 16-bit-addressed device register.
type RegisterRead16Request struct {
	Address uint32
}

func (p *RegisterRead16Request) Command() CommandID { return CmdRegisterRead16 }
func (p *RegisterRead16Request) Length() int        { return CommandIDSize + 4 }

func (p *RegisterRead16Request) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	putUint32(body, p.Address)
	return nil
}

// ParseRegisterRead16Request parses a REGISTER_READ_16 request body.
func ParseRegisterRead16Request(src *Buffer) (*RegisterRead16Request, error) {
	data, err := bodyBytes(src, 4)
	if err != nil {
		return nil, err
	}
	return &RegisterRead16Request{Address: getUint32(data)}, nil
}

// RegisterRead16Reply carries the value read from a register.
type RegisterRead16Reply struct {
	Data uint32
}

func (p *RegisterRead16Reply) Command() CommandID { return CmdRegisterRead16 }
func (p *RegisterRead16Reply) Length() int        { return CommandIDSize + 4 }

func (p *RegisterRead16Reply) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	putUint32(body, p.Data)
	return nil
}

// ParseRegisterRead16Reply parses a REGISTER_READ_16 reply body.
func ParseRegisterRead16Reply(src *Buffer) (*RegisterRead16Reply, error) {
	data, err := bodyBytes(src, 4)
	if err != nil {
		return nil, err
	}
	return &RegisterRead16Reply{Data: getUint32(data)}, nil
}

// RegisterWrite16Request writes one 16-bit-addressed device register.
type RegisterWrite16Request struct {
	Address uint32
	Data    uint32
}

func (p *RegisterWrite16Request) Command() CommandID { return CmdRegisterWrite16 }
func (p *RegisterWrite16Request) Length() int        { return CommandIDSize + 8 }

func (p *RegisterWrite16Request) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	putUint32(body, p.Address)
	putUint32(body[4:], p.Data)
	return nil
}

// ParseRegisterWrite16Request parses a REGISTER_WRITE_16 request body.
func ParseRegisterWrite16Request(src *Buffer) (*RegisterWrite16Request, error) {
	data, err := bodyBytes(src, 8)
	if err != nil {
		return nil, err
	}
	return &RegisterWrite16Request{Address: getUint32(data), Data: getUint32(data[4:])}, nil
}

// RegisterWrite16Reply acknowledges a register write.
type RegisterWrite16Reply struct {
	Status Status
}

func (p *RegisterWrite16Reply) Command() CommandID { return CmdRegisterWrite16 }
func (p *RegisterWrite16Reply) Length() int        { return CommandIDSize + 1 }

func (p *RegisterWrite16Reply) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	body[0] = byte(p.Status)
	return nil
}

// ParseRegisterWrite16Reply parses a REGISTER_WRITE_16 reply body.
func ParseRegisterWrite16Reply(src *Buffer) (*RegisterWrite16Reply, error) {
	data, err := bodyBytes(src, 1)
	if err != nil {
		return nil, err
	}
	return &RegisterWrite16Reply{Status: Status(data[0])}, nil
}

// SPIReadWriteRequest performs a full-duplex SPI transfer on the given
// interface: WriteData is shifted out while the same number of bytes is
// shifted in.
type SPIReadWriteRequest struct {
	Interface uint32
	WriteData []byte
}

func (p *SPIReadWriteRequest) Command() CommandID { return CmdSPIReadWrite }
func (p *SPIReadWriteRequest) Length() int        { return CommandIDSize + 8 + len(p.WriteData) }

func (p *SPIReadWriteRequest) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	putUint32(body, p.Interface)
	putUint32(body[4:], uint32(len(p.WriteData)))
	copy(body[8:], p.WriteData)
	return nil
}

// ParseSPIReadWriteRequest parses an SPI_READ_WRITE request body.
func ParseSPIReadWriteRequest(src *Buffer) (*SPIReadWriteRequest, error) {
	data, err := bodyBytes(src, 8)
	if err != nil {
		return nil, err
	}
	size := int(getUint32(data[4:]))
	if len(data) < 8+size {
		return nil, fmt.Errorf("%w: truncated write data", ErrShortPayloadBuffer)
	}
	p := &SPIReadWriteRequest{Interface: getUint32(data), WriteData: make([]byte, size)}
	copy(p.WriteData, data[8:8+size])
	return p, nil
}

// SPIReadWriteReply carries the bytes shifted in during an SPI transfer.
type SPIReadWriteReply struct {
	ReadData []byte
}

func (p *SPIReadWriteReply) Command() CommandID { return CmdSPIReadWrite }
func (p *SPIReadWriteReply) Length() int        { return CommandIDSize + 4 + len(p.ReadData) }

func (p *SPIReadWriteReply) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	putUint32(body, uint32(len(p.ReadData)))
	copy(body[4:], p.ReadData)
	return nil
}

// ParseSPIReadWriteReply parses an SPI_READ_WRITE reply body.
func ParseSPIReadWriteReply(src *Buffer) (*SPIReadWriteReply, error) {
	data, err := bodyBytes(src, 4)
	if err != nil {
		return nil, err
	}
	size := int(getUint32(data))
	if len(data) < 4+size {
		return nil, fmt.Errorf("%w: truncated read data", ErrShortPayloadBuffer)
	}
	p := &SPIReadWriteReply{ReadData: make([]byte, size)}
	copy(p.ReadData, data[4:4+size])
	return p, nil
}

// SPIWriteOnlyRequest performs a write-only SPI transfer.
type SPIWriteOnlyRequest struct {
	Interface uint32
	WriteData []byte
}

func (p *SPIWriteOnlyRequest) Command() CommandID { return CmdSPIWriteOnly }
func (p *SPIWriteOnlyRequest) Length() int        { return CommandIDSize + 8 + len(p.WriteData) }

func (p *SPIWriteOnlyRequest) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	putUint32(body, p.Interface)
	putUint32(body[4:], uint32(len(p.WriteData)))
	copy(body[8:], p.WriteData)
	return nil
}

// ParseSPIWriteOnlyRequest parses an SPI_WRITE_ONLY request body.
func ParseSPIWriteOnlyRequest(src *Buffer) (*SPIWriteOnlyRequest, error) {
	data, err := bodyBytes(src, 8)
	if err != nil {
		return nil, err
	}
	size := int(getUint32(data[4:]))
	if len(data) < 8+size {
		return nil, fmt.Errorf("%w: truncated write data", ErrShortPayloadBuffer)
	}
	p := &SPIWriteOnlyRequest{Interface: getUint32(data), WriteData: make([]byte, size)}
	copy(p.WriteData, data[8:8+size])
	return p, nil
}

// SPIWriteOnlyReply acknowledges a write-only SPI transfer.
type SPIWriteOnlyReply struct {
	Status Status
}

func (p *SPIWriteOnlyReply) Command() CommandID { return CmdSPIWriteOnly }
func (p *SPIWriteOnlyReply) Length() int        { return CommandIDSize + 1 }

func (p *SPIWriteOnlyReply) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	body[0] = byte(p.Status)
	return nil
}

// ParseSPIWriteOnlyReply parses an SPI_WRITE_ONLY reply body.
func ParseSPIWriteOnlyReply(src *Buffer) (*SPIWriteOnlyReply, error) {
	data, err := bodyBytes(src, 1)
	if err != nil {
		return nil, err
	}
	return &SPIWriteOnlyReply{Status: Status(data[0])}, nil
}

// I2CReadRequest reads ReadSize bytes from an I2C interface.
type I2CReadRequest struct {
	Interface uint32
	ReadSize  uint32
}

func (p *I2CReadRequest) Command() CommandID { return CmdI2CRead }
func (p *I2CReadRequest) Length() int        { return CommandIDSize + 8 }

func (p *I2CReadRequest) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	putUint32(body, p.Interface)
	putUint32(body[4:], p.ReadSize)
	return nil
}

// ParseI2CReadRequest parses an I2C_READ request body.
func ParseI2CReadRequest(src *Buffer) (*I2CReadRequest, error) {
	data, err := bodyBytes(src, 8)
	if err != nil {
		return nil, err
	}
	return &I2CReadRequest{Interface: getUint32(data), ReadSize: getUint32(data[4:])}, nil
}

// I2CReadReply carries the bytes read from an I2C interface.
type I2CReadReply struct {
	ReadData []byte
}

func (p *I2CReadReply) Command() CommandID { return CmdI2CRead }
func (p *I2CReadReply) Length() int        { return CommandIDSize + 4 + len(p.ReadData) }

func (p *I2CReadReply) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	putUint32(body, uint32(len(p.ReadData)))
	copy(body[4:], p.ReadData)
	return nil
}

// ParseI2CReadReply parses an I2C_READ reply body.
func ParseI2CReadReply(src *Buffer) (*I2CReadReply, error) {
	data, err := bodyBytes(src, 4)
	if err != nil {
		return nil, err
	}
	size := int(getUint32(data))
	if len(data) < 4+size {
		return nil, fmt.Errorf("%w: truncated read data", ErrShortPayloadBuffer)
	}
	p := &I2CReadReply{ReadData: make([]byte, size)}
	copy(p.ReadData, data[4:4+size])
	return p, nil
}

// I2CWriteRequest writes bytes to an I2C interface.
type I2CWriteRequest struct {
	Interface uint32
	WriteData []byte
}

func (p *I2CWriteRequest) Command() CommandID { return CmdI2CWrite }
func (p *I2CWriteRequest) Length() int        { return CommandIDSize + 8 + len(p.WriteData) }

func (p *I2CWriteRequest) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	putUint32(body, p.Interface)
	putUint32(body[4:], uint32(len(p.WriteData)))
	copy(body[8:], p.WriteData)
	return nil
}

// ParseI2CWriteRequest parses an I2C_WRITE request body.
func ParseI2CWriteRequest(src *Buffer) (*I2CWriteRequest, error) {
	data, err := bodyBytes(src, 8)
	if err != nil {
		return nil, err
	}
	size := int(getUint32(data[4:]))
	if len(data) < 8+size {
		return nil, fmt.Errorf("%w: truncated write data", ErrShortPayloadBuffer)
	}
	p := &I2CWriteRequest{Interface: getUint32(data), WriteData: make([]byte, size)}
	copy(p.WriteData, data[8:8+size])
	return p, nil
}

// I2CWriteReply acknowledges an I2C write.
type I2CWriteReply struct {
	Status Status
}

func (p *I2CWriteReply) Command() CommandID { return CmdI2CWrite }
func (p *I2CWriteReply) Length() int        { return CommandIDSize + 1 }

func (p *I2CWriteReply) Build(dst *Buffer) error {
	body, err := buildHeader(p, dst)
	if err != nil {
		return err
	}
	body[0] = byte(p.Status)
	return nil
}

// ParseI2CWriteReply parses an I2C_WRITE reply body.
func ParseI2CWriteReply(src *Buffer) (*I2CWriteReply, error) {
	data, err := bodyBytes(src, 1)
	if err != nil {
		return nil, err
	}
	return &I2CWriteReply{Status: Status(data[0])}, nil
}
