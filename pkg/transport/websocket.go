// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
)

// WebSocketOptions configures the tunnel endpoint.
type WebSocketOptions struct {
	URL           string
	Username      string
	Password      string
	SkipTLSVerify bool
}

// WebSocket tunnels frames over a single WebSocket connection carrying
// binary messages. Like the UART link it is point-to-point: the peer
// identifier is fixed at construction.
type WebSocket struct {
	opts WebSocketOptions
	peer *sdp.DeviceID
	sink DataSink
	log  *logrus.Entry

	conn *websocket.Conn
	pw   *io.PipeWriter
	wg   sync.WaitGroup

	writeMu sync.Mutex

	deliverMu sync.Mutex
	br        *bufio.Reader
	active    bool
	closed    bool
}

// NewWebSocket builds a WebSocket controller. peer identifies the device at
// the far end of the tunnel.
func NewWebSocket(opts WebSocketOptions, peer *sdp.DeviceID, sink DataSink) *WebSocket {
	return &WebSocket{
		opts: opts,
		peer: peer,
		sink: sink,
		log:  logrus.WithField("controller", "websocket"),
	}
}

// DialWebSocket opens a tunnel endpoint with HTTP Basic auth. Only ws and
// wss URLs are accepted.
func DialWebSocket(opts WebSocketOptions) (*websocket.Conn, error) {
	u, err := url.Parse(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("transport: invalid URL: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("transport: unsupported URL scheme %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: opts.SkipTLSVerify,
		}
	}

	headers := http.Header{}
	if opts.Username != "" && opts.Password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(opts.Username + ":" + opts.Password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, opts.URL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("transport: websocket dial failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("transport: websocket dial failed: %w", err)
	}
	return conn, nil
}

// Init dials the endpoint and starts the message pump and watcher.
func (w *WebSocket) Init() error {
	conn, err := DialWebSocket(w.opts)
	if err != nil {
		return err
	}
	w.conn = conn
	w.log.WithField("url", w.opts.URL).Info("tunnel open")

	pr, pw := io.Pipe()
	w.pw = pw
	w.br = bufio.NewReader(pr)

	w.wg.Add(2)
	go w.pump()
	go w.watch()
	return nil
}

// pump copies inbound binary messages into the byte stream the watcher
// consumes. Non-binary messages are skipped.
func (w *WebSocket) pump() {
	defer w.wg.Done()
	defer w.pw.Close()
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			if !w.isClosed() {
				w.log.WithError(err).Warn("tunnel lost")
			}
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		if _, err := w.pw.Write(data); err != nil {
			return
		}
	}
}

func (w *WebSocket) watch() {
	defer w.wg.Done()
	for {
		n, err := waitReadable(w.br)
		if err != nil {
			return
		}

		w.deliverMu.Lock()
		w.active = true
		cbErr := w.sink.OnData(w, w.peer, n)
		w.active = false
		w.deliverMu.Unlock()

		if cbErr != nil {
			w.log.WithError(cbErr).Warn("frame dropped")
		}
	}
}

// Read consumes the stream exposed during a data-available upcall.
func (w *WebSocket) Read(p []byte) (int, error) {
	if !w.active {
		return 0, ErrNoActiveStream
	}
	return io.ReadFull(w.br, p)
}

// Write sends p as one binary message. The identifier is ignored; the
// tunnel has one peer.
func (w *WebSocket) Write(_ *sdp.DeviceID, p []byte) (int, error) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close shuts the tunnel and waits for the pump and watcher to drain.
func (w *WebSocket) Close() error {
	w.deliverMu.Lock()
	w.closed = true
	w.deliverMu.Unlock()
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.wg.Wait()
	return err
}

func (w *WebSocket) isClosed() bool {
	w.deliverMu.Lock()
	defer w.deliverMu.Unlock()
	return w.closed
}

// ErrStreamClosed is returned by WebSocketStream reads once the tunnel has
// gone down.
var ErrStreamClosed = errors.New("transport: stream closed")

// WebSocketStream exposes an established tunnel as a plain byte stream, for
// passive tools that read frames without driving a dispatcher. Binary
// messages become stream bytes; other message types are skipped.
type WebSocketStream struct {
	conn    *websocket.Conn
	pr      *io.PipeReader
	writeMu sync.Mutex
}

// NewWebSocketStream starts the message pump over conn.
func NewWebSocketStream(conn *websocket.Conn) *WebSocketStream {
	pr, pw := io.Pipe()
	s := &WebSocketStream{conn: conn, pr: pr}
	go func() {
		defer pw.CloseWithError(ErrStreamClosed)
		for {
			messageType, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if messageType != websocket.BinaryMessage {
				continue
			}
			if _, err := pw.Write(data); err != nil {
				return
			}
		}
	}()
	return s
}

func (s *WebSocketStream) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

func (s *WebSocketStream) Write(p []byte) (int, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *WebSocketStream) Close() error {
	s.pr.Close()
	return s.conn.Close()
}
