// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

// InterpreterKind classifies an interpreter for dispatch ordering. Error
// interpreters are never offered requests (a device must never receive an
// error request) and are always consulted first for replies carried by error
// frames.
type InterpreterKind int

// Interpreter kinds
const (
	KindError InterpreterKind = iota
	KindBasicCommandSet
	KindOther
)

// Interpreter is a payload codec bound to one command family.
//
// ParseRequest inspects an inbound request payload; returning a non-nil
// Payload means the interpreter claims the command and has already produced
// the reply payload. Returning nil passes the request to the next
// interpreter in attach order.
//
// ParseReply inspects a correlated reply payload; returning true means the
// reply was consumed (and any registered callback invoked), which stops the
// scan.
type Interpreter interface {
	ParseRequest(payload *Buffer) Payload
	ParseReply(payload *Buffer) bool
	Kind() InterpreterKind
}
