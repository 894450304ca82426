// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

// ErrorInterpreter consumes error-frame replies and surfaces the wire error
// code to a registered callback. It never claims requests.
type ErrorInterpreter struct {
	// OnReply is invoked with the error code of every consumed error reply.
	OnReply func(code ErrorCode)
}

// NewErrorInterpreter builds an error interpreter with the given callback.
// A nil callback is allowed; replies are then consumed silently.
func NewErrorInterpreter(onReply func(code ErrorCode)) *ErrorInterpreter {
	return &ErrorInterpreter{OnReply: onReply}
}

// ParseRequest always declines: a device never receives an error request.
func (e *ErrorInterpreter) ParseRequest(payload *Buffer) Payload {
	return nil
}

// ParseReply consumes the 2-byte error code and invokes the callback.
func (e *ErrorInterpreter) ParseReply(payload *Buffer) bool {
	data, err := payload.Bytes()
	if err != nil || len(data) < ErrorCodeSize {
		return false
	}
	if e.OnReply != nil {
		e.OnReply(ErrorCode(getUint16(data)))
	}
	return true
}

// Kind identifies this as the error interpreter.
func (e *ErrorInterpreter) Kind() InterpreterKind {
	return KindError
}
