// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

// Package transport provides the physical controllers behind the sdp engine:
// TCP, UART (serial) and WebSocket adapters satisfying the sdp.Controller
// contract. Each adapter watches its connections and raises the
// data-available upcall; the engine then reads exactly the bytes it needs.
package transport

import (
	"bufio"
	"fmt"
	"net"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
)

// DataSink receives the data-available upcall when a controller has a
// message ready. *sdp.Dispatcher satisfies it.
type DataSink interface {
	OnData(c sdp.Controller, source *sdp.DeviceID, length int) error
}

// deviceIDFromAddr derives the source identifier for an inbound connection.
// Only IPv4 peers are representable today.
func deviceIDFromAddr(addr net.Addr) (*sdp.DeviceID, error) {
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return nil, fmt.Errorf("transport: unsupported peer address %v", addr)
	}
	ip4 := tcpAddr.IP.To4()
	if ip4 == nil {
		return nil, fmt.Errorf("transport: non-IPv4 peer %v", addr)
	}
	return sdp.FromIPv4(ip4, uint16(tcpAddr.Port))
}

// waitReadable blocks until at least one byte is buffered, returning the
// number of readable bytes.
func waitReadable(br *bufio.Reader) (int, error) {
	if _, err := br.Peek(1); err != nil {
		return 0, err
	}
	return br.Buffered(), nil
}
