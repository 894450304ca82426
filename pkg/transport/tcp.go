// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package transport

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
)

// ErrNoActiveStream is returned by Read outside a data-available upcall.
var ErrNoActiveStream = errors.New("transport: no active stream")

// tcpLink is one live connection with its buffered reader.
type tcpLink struct {
	conn net.Conn
	br   *bufio.Reader
}

// TCP is the Ethernet controller. In host mode it dials devices on demand
// and keeps connections open for reuse; in device mode it listens for
// inbound hosts. Either way each connection gets a watcher goroutine that
// raises the data-available upcall when bytes arrive.
type TCP struct {
	settings   *sdp.Settings
	sink       DataSink
	log        *logrus.Entry
	listenAddr string // device mode when non-empty

	ln net.Listener
	wg sync.WaitGroup

	connMu sync.Mutex
	conns  map[string]*tcpLink
	closed bool

	// deliverMu serializes upcalls; active is the stream Read consumes
	// while an upcall is in flight.
	deliverMu sync.Mutex
	active    *bufio.Reader
}

// NewTCPHost builds an outbound Ethernet controller for a host talking to
// devices.
func NewTCPHost(settings *sdp.Settings, sink DataSink) *TCP {
	return &TCP{
		settings: settings,
		sink:     sink,
		log:      logrus.WithField("controller", "tcp"),
		conns:    make(map[string]*tcpLink),
	}
}

// NewTCPDevice builds a listening Ethernet controller for a device serving
// hosts. An empty listenAddr binds the default port on all interfaces.
func NewTCPDevice(listenAddr string, settings *sdp.Settings, sink DataSink) *TCP {
	if settings == nil {
		settings = sdp.NewSettings()
	}
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%d", settings.IPPort())
	}
	return &TCP{
		settings:   settings,
		sink:       sink,
		log:        logrus.WithField("controller", "tcp"),
		listenAddr: listenAddr,
		conns:      make(map[string]*tcpLink),
	}
}

// Init starts the accept loop in device mode; host mode dials lazily.
func (t *TCP) Init() error {
	if t.listenAddr == "" {
		return nil
	}
	ln, err := net.Listen("tcp", t.listenAddr)
	if err != nil {
		return fmt.Errorf("transport: listen %s: %w", t.listenAddr, err)
	}
	t.ln = ln
	t.log.WithField("addr", ln.Addr()).Info("listening")
	t.wg.Add(1)
	go t.acceptLoop()
	return nil
}

func (t *TCP) acceptLoop() {
	defer t.wg.Done()
	for {
		conn, err := t.ln.Accept()
		if err != nil {
			if !t.isClosed() {
				t.log.WithError(err).Warn("accept failed")
			}
			return
		}
		source, err := deviceIDFromAddr(conn.RemoteAddr())
		if err != nil {
			t.log.WithError(err).Warn("rejecting peer")
			conn.Close()
			continue
		}
		t.log.WithField("peer", conn.RemoteAddr()).Debug("host connected")
		t.track(source, conn)
	}
}

// track registers the connection under its peer identifier and starts its
// watcher.
func (t *TCP) track(id *sdp.DeviceID, conn net.Conn) *tcpLink {
	link := &tcpLink{conn: conn, br: bufio.NewReader(conn)}
	key := connKey(id)

	t.connMu.Lock()
	if old, ok := t.conns[key]; ok {
		old.conn.Close()
	}
	t.conns[key] = link
	t.connMu.Unlock()

	t.wg.Add(1)
	go t.watch(key, id, link)
	return link
}

// watch blocks on the connection and raises one upcall per readable burst.
// The upcall runs with the stream exposed through Read; the engine reads
// exactly one frame per call and any remaining buffered bytes trigger the
// next round without touching the socket.
func (t *TCP) watch(key string, source *sdp.DeviceID, link *tcpLink) {
	defer t.wg.Done()
	for {
		n, err := waitReadable(link.br)
		if err != nil {
			if err != io.EOF && !t.isClosed() {
				t.log.WithError(err).WithField("peer", source).Warn("connection lost")
			}
			t.drop(key, link)
			return
		}

		t.deliverMu.Lock()
		t.active = link.br
		cbErr := t.sink.OnData(t, source, n)
		t.active = nil
		t.deliverMu.Unlock()

		if cbErr != nil {
			t.log.WithError(cbErr).WithField("peer", source).Warn("frame dropped")
		}
	}
}

func (t *TCP) drop(key string, link *tcpLink) {
	t.connMu.Lock()
	if t.conns[key] == link {
		delete(t.conns, key)
	}
	t.connMu.Unlock()
	link.conn.Close()
}

// Addr returns the bound listener address in device mode, nil otherwise.
func (t *TCP) Addr() net.Addr {
	if t.ln == nil {
		return nil
	}
	return t.ln.Addr()
}

// Read consumes the stream exposed during a data-available upcall.
func (t *TCP) Read(p []byte) (int, error) {
	if t.active == nil {
		return 0, ErrNoActiveStream
	}
	return io.ReadFull(t.active, p)
}

// Write sends p to the identified peer, dialing it first in host mode when
// no connection exists yet.
func (t *TCP) Write(id *sdp.DeviceID, p []byte) (int, error) {
	link, err := t.linkFor(id)
	if err != nil {
		return 0, err
	}
	return link.conn.Write(p)
}

func (t *TCP) linkFor(id *sdp.DeviceID) (*tcpLink, error) {
	key := connKey(id)

	t.connMu.Lock()
	link, ok := t.conns[key]
	t.connMu.Unlock()
	if ok {
		return link, nil
	}

	if t.listenAddr != "" {
		return nil, fmt.Errorf("transport: no connection from %s", key)
	}

	conn, err := net.Dial("tcp", key)
	if err != nil {
		return nil, fmt.Errorf("transport: dial %s: %w", key, err)
	}
	t.log.WithField("peer", key).Debug("device connected")
	return t.track(id, conn), nil
}

// Close shuts the listener and every live connection.
func (t *TCP) Close() error {
	t.connMu.Lock()
	t.closed = true
	links := make([]*tcpLink, 0, len(t.conns))
	for _, link := range t.conns {
		links = append(links, link)
	}
	t.conns = make(map[string]*tcpLink)
	t.connMu.Unlock()

	if t.ln != nil {
		t.ln.Close()
	}
	for _, link := range links {
		link.conn.Close()
	}
	t.wg.Wait()
	return nil
}

func (t *TCP) isClosed() bool {
	t.connMu.Lock()
	defer t.connMu.Unlock()
	return t.closed
}

func connKey(id *sdp.DeviceID) string {
	return fmt.Sprintf("%s:%d", id, id.Port())
}
