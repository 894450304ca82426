// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package cmd

import (
	"fmt"
	"time"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
	"github.com/syndesi-comm/syndesi-go/pkg/transport"
)

// replyTimeout bounds how long a client command waits for its reply.
var replyTimeout time.Duration

// dispatcherRef breaks the construction cycle between controllers and the
// dispatcher: controllers take their sink before the dispatcher exists.
type dispatcherRef struct {
	d *sdp.Dispatcher
}

func (r *dispatcherRef) OnData(c sdp.Controller, source *sdp.DeviceID, length int) error {
	return r.d.OnData(c, source, length)
}

// session is one host-side exchange with a device: a dispatcher over the
// transport selected by the connection flags, with every reply funnelled
// into a single event channel.
type session struct {
	settings   *sdp.Settings
	dispatcher *sdp.Dispatcher
	target     *sdp.DeviceID
	events     chan any
}

// openSession builds the transport stack from the connection flags and
// resolves the target identifier.
func openSession() (*session, error) {
	settings, err := sdp.LoadSettings(configPath)
	if err != nil {
		return nil, err
	}

	host := hostFlag
	if host == "" {
		if serialPort == "" && wsURL == "" {
			return nil, fmt.Errorf("one of --host, --serial or --url must be specified")
		}
		// Point-to-point links still need a peer identity for correlation
		host = "127.0.0.1"
	}
	target, err := sdp.ParseDeviceID(host, settings.IPPort())
	if err != nil {
		return nil, err
	}

	s := &session{
		settings: settings,
		target:   target,
		events:   make(chan any, 8),
	}

	ref := &dispatcherRef{}
	registry := sdp.ControllerRegistry{}
	switch {
	case wsURL != "":
		password := ""
		if wsUsername != "" {
			if password, err = GetPassword(); err != nil {
				return nil, err
			}
		}
		registry[sdp.ControllerEthernet] = transport.NewWebSocket(transport.WebSocketOptions{
			URL:           wsURL,
			Username:      wsUsername,
			Password:      password,
			SkipTLSVerify: wsNoSSLVerify,
		}, target, ref)
	case serialPort != "":
		registry[sdp.ControllerUART] = transport.NewSerial(serialPort, baudRate, target, ref)
	default:
		registry[sdp.ControllerEthernet] = transport.NewTCPHost(settings, ref)
	}

	d := sdp.NewDispatcher(settings, registry)
	ref.d = d
	d.Attach(sdp.NewErrorInterpreter(func(code sdp.ErrorCode) {
		s.push(code)
	}))
	d.Attach(sdp.NewBasicCommandSet(sdp.BCSCallbacks{
		DiscoverReply:      func(p *sdp.DeviceDiscoverReply) { s.push(p) },
		RegisterReadReply:  func(p *sdp.RegisterRead16Reply) { s.push(p) },
		RegisterWriteReply: func(p *sdp.RegisterWrite16Reply) { s.push(p) },
		SPITransferReply:   func(p *sdp.SPIReadWriteReply) { s.push(p) },
		SPIWriteReply:      func(p *sdp.SPIWriteOnlyReply) { s.push(p) },
		I2CReadReply:       func(p *sdp.I2CReadReply) { s.push(p) },
		I2CWriteReply:      func(p *sdp.I2CWriteReply) { s.push(p) },
		CommandError:       func(p *sdp.ErrorReply) { s.push(p) },
	}))

	if err := d.Init(); err != nil {
		return nil, err
	}
	s.dispatcher = d
	return s, nil
}

func (s *session) push(ev any) {
	select {
	case s.events <- ev:
	default:
	}
}

// send transmits one request to the session target.
func (s *session) send(p sdp.Payload) error {
	return s.dispatcher.SendRequest(p, s.target)
}

// await blocks for the next reply event. Protocol and command errors come
// back as Go errors.
func (s *session) await() (any, error) {
	select {
	case ev := <-s.events:
		switch v := ev.(type) {
		case sdp.ErrorCode:
			return nil, fmt.Errorf("device error: %s", v)
		case *sdp.ErrorReply:
			return nil, fmt.Errorf("command rejected: %s", v.Code)
		default:
			return ev, nil
		}
	case <-time.After(replyTimeout):
		return nil, fmt.Errorf("no reply within %s", replyTimeout)
	}
}

// exchange sends one request and waits for its reply.
func (s *session) exchange(p sdp.Payload) (any, error) {
	if err := s.send(p); err != nil {
		return nil, err
	}
	return s.await()
}

func (s *session) Close() error {
	return s.dispatcher.Close()
}

func init() {
	rootCmd.PersistentFlags().DurationVar(&replyTimeout, "timeout", 5*time.Second, "Reply timeout for client commands")
}
