// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package cmd

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"syscall"
	"time"

	"golang.org/x/term"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
	"github.com/syndesi-comm/syndesi-go/pkg/transport"
)

// Connection is a plain byte stream to a device, used by the passive tools
// (trace, delay) that read frames without driving a dispatcher.
type Connection = io.ReadWriteCloser

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("SYNDESI_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens a plain byte stream based on the connection flags:
// TCP to --host, the --serial port, or the --url WebSocket tunnel. The
// serial and WebSocket links ride the transport package's openers.
func OpenConnection(settings *sdp.Settings) (Connection, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := transport.DialWebSocket(transport.WebSocketOptions{
			URL:           wsURL,
			Username:      wsUsername,
			Password:      password,
			SkipTLSVerify: wsNoSSLVerify,
		})
		if err != nil {
			return nil, "", err
		}
		return transport.NewWebSocketStream(conn), fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if serialPort != "" {
		port, err := transport.OpenSerialPort(serialPort, baudRate)
		if err != nil {
			return nil, "", err
		}
		return port, fmt.Sprintf("Serial: %s @ %d baud", serialPort, baudRate), nil
	}

	if hostFlag != "" {
		addr := hostFlag
		if !strings.Contains(addr, ":") {
			addr = fmt.Sprintf("%s:%d", addr, settings.IPPort())
		}
		conn, err := net.DialTimeout("tcp", addr, 10*time.Second)
		if err != nil {
			return nil, "", fmt.Errorf("failed to connect to %s: %v", addr, err)
		}
		return conn, fmt.Sprintf("TCP: %s", addr), nil
	}

	return nil, "", fmt.Errorf("one of --host, --serial or --url must be specified")
}
