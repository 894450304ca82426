// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

// Network byte order helpers. All multi-byte fields on the wire (payload
// length, error code, command id, payload fields) are big-endian regardless
// of host order. Explicit shifts are used instead of struct overlays so the
// layout never depends on compiler packing.

func putUint16(dst []byte, v uint16) {
	dst[0] = byte(v >> 8)
	dst[1] = byte(v)
}

func getUint16(src []byte) uint16 {
	return uint16(src[0])<<8 | uint16(src[1])
}

func putUint32(dst []byte, v uint32) {
	dst[0] = byte(v >> 24)
	dst[1] = byte(v >> 16)
	dst[2] = byte(v >> 8)
	dst[3] = byte(v)
}

func getUint32(src []byte) uint32 {
	return uint32(src[0])<<24 | uint32(src[1])<<16 | uint32(src[2])<<8 | uint32(src[3])
}
