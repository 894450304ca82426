// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package cmd

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
	"github.com/syndesi-comm/syndesi-go/pkg/transport"
)

var (
	listenAddr string
	deviceName string
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Run a software device that answers discovery and register access",
	Long: `Serve the device side of the protocol on a TCP listener, backed by an
in-memory register file. Useful for exercising hosts without hardware.`,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address (default :2608)")
	listenCmd.Flags().StringVar(&deviceName, "name", "syndesi-soft", "Advertised device name")
	rootCmd.AddCommand(listenCmd)
}

// registerFile is the daemon's in-memory register map.
type registerFile struct {
	mu        sync.Mutex
	registers map[uint32]uint32
}

func (r *registerFile) read(address uint32) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.registers[address]
}

func (r *registerFile) write(address, data uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.registers[address] = data
}

func runListen(cmd *cobra.Command, args []string) error {
	settings, err := sdp.LoadSettings(configPath)
	if err != nil {
		return err
	}

	log := logrus.WithField("component", "device")
	regs := &registerFile{registers: make(map[uint32]uint32)}

	ref := &dispatcherRef{}
	registry := sdp.ControllerRegistry{
		sdp.ControllerEthernet: transport.NewTCPDevice(listenAddr, settings, ref),
	}
	d := sdp.NewDispatcher(settings, registry)
	ref.d = d

	d.Attach(sdp.NewErrorInterpreter(func(code sdp.ErrorCode) {
		log.WithField("code", code).Warn("peer reported error")
	}))
	d.Attach(sdp.NewBasicCommandSet(sdp.BCSCallbacks{
		Discover: func(*sdp.DeviceDiscoverRequest) *sdp.DeviceDiscoverReply {
			log.Info("discovery request")
			reply := &sdp.DeviceDiscoverReply{
				ProtocolVersion: 1,
				DeviceVersion:   1,
				Name:            deviceName,
				Description:     "software device",
			}
			copy(reply.ID[:], deviceName)
			return reply
		},
		RegisterRead: func(req *sdp.RegisterRead16Request) *sdp.RegisterRead16Reply {
			data := regs.read(req.Address)
			log.WithFields(logrus.Fields{"address": req.Address, "data": data}).Info("register read")
			return &sdp.RegisterRead16Reply{Data: data}
		},
		RegisterWrite: func(req *sdp.RegisterWrite16Request) *sdp.RegisterWrite16Reply {
			regs.write(req.Address, req.Data)
			log.WithFields(logrus.Fields{"address": req.Address, "data": req.Data}).Info("register write")
			return &sdp.RegisterWrite16Reply{Status: sdp.StatusOK}
		},
	}))

	if err := d.Init(); err != nil {
		return err
	}
	defer d.Close()

	log.WithField("name", deviceName).Info("device running, Ctrl+C to stop")

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig

	log.Info("shutting down")
	return nil
}
