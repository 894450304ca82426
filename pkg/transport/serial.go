// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package transport

import (
	"bufio"
	"fmt"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
)

// Serial is the UART controller. The link is point-to-point, so the peer
// identifier is fixed at construction and every inbound frame is attributed
// to it.
type Serial struct {
	portName string
	baudRate int
	peer     *sdp.DeviceID
	sink     DataSink
	log      *logrus.Entry

	port serial.Port
	wg   sync.WaitGroup

	deliverMu sync.Mutex
	br        *bufio.Reader
	active    bool
	closed    bool
}

// NewSerial builds a UART controller on the named port. peer identifies the
// device at the far end of the link.
func NewSerial(portName string, baudRate int, peer *sdp.DeviceID, sink DataSink) *Serial {
	return &Serial{
		portName: portName,
		baudRate: baudRate,
		peer:     peer,
		sink:     sink,
		log:      logrus.WithField("controller", "serial"),
	}
}

// OpenSerialPort opens the named port at 8N1, the fixed framing every link
// uses. The returned port doubles as a plain byte stream for passive tools.
func OpenSerialPort(portName string, baudRate int) (serial.Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("transport: open serial port %s: %w", portName, err)
	}
	return port, nil
}

// Init opens the port and starts the watcher.
func (s *Serial) Init() error {
	port, err := OpenSerialPort(s.portName, s.baudRate)
	if err != nil {
		return err
	}
	s.port = port
	s.br = bufio.NewReader(port)
	s.log.WithFields(logrus.Fields{"port": s.portName, "baud": s.baudRate}).Info("port open")

	s.wg.Add(1)
	go s.watch()
	return nil
}

func (s *Serial) watch() {
	defer s.wg.Done()
	for {
		n, err := waitReadable(s.br)
		if err != nil {
			if err != io.EOF && !s.isClosed() {
				s.log.WithError(err).Warn("port lost")
			}
			return
		}

		s.deliverMu.Lock()
		s.active = true
		cbErr := s.sink.OnData(s, s.peer, n)
		s.active = false
		s.deliverMu.Unlock()

		if cbErr != nil {
			s.log.WithError(cbErr).Warn("frame dropped")
		}
	}
}

// Read consumes the stream exposed during a data-available upcall.
func (s *Serial) Read(p []byte) (int, error) {
	if !s.active {
		return 0, ErrNoActiveStream
	}
	return io.ReadFull(s.br, p)
}

// Write sends p down the link. The identifier is ignored; the link has one
// peer.
func (s *Serial) Write(_ *sdp.DeviceID, p []byte) (int, error) {
	return s.port.Write(p)
}

// Close shuts the port and waits for the watcher to drain.
func (s *Serial) Close() error {
	s.deliverMu.Lock()
	s.closed = true
	s.deliverMu.Unlock()
	if s.port == nil {
		return nil
	}
	err := s.port.Close()
	s.wg.Wait()
	return err
}

func (s *Serial) isClosed() bool {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()
	return s.closed
}
