// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package cmd

import (
	"fmt"
	"io"
	"net"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
)

var (
	delayListen   string
	delayDuration time.Duration
)

var delayCmd = &cobra.Command{
	Use:   "delay",
	Short: "Relay TCP traffic to a device with an added delay",
	Long: `Run a TCP proxy between a host and the --host device, delaying every
chunk of bytes by a fixed duration in both directions. Useful for testing
host-side timeout handling against slow links.`,
	RunE: runDelay,
}

func init() {
	delayCmd.Flags().StringVar(&delayListen, "listen", "", "Proxy listen address (default :2608)")
	delayCmd.Flags().DurationVar(&delayDuration, "delay", 100*time.Millisecond, "Delay added to each direction")
	rootCmd.AddCommand(delayCmd)
}

// delayedChunk carries one read burst through the delay line.
type delayedChunk struct {
	data  []byte
	dueAt time.Time
}

// delayPipe copies src to dst, holding each chunk back by the configured
// delay.
func delayPipe(dst io.Writer, src io.Reader, delay time.Duration, log *logrus.Entry) {
	chunks := make(chan delayedChunk, 64)

	go func() {
		defer close(chunks)
		buf := make([]byte, 4096)
		for {
			n, err := src.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				chunks <- delayedChunk{data: data, dueAt: time.Now().Add(delay)}
			}
			if err != nil {
				return
			}
		}
	}()

	for chunk := range chunks {
		if wait := time.Until(chunk.dueAt); wait > 0 {
			time.Sleep(wait)
		}
		if _, err := dst.Write(chunk.data); err != nil {
			log.WithError(err).Debug("relay write failed")
			return
		}
	}
}

func runDelay(cmd *cobra.Command, args []string) error {
	if hostFlag == "" {
		return fmt.Errorf("--host is required")
	}
	settings, err := sdp.LoadSettings(configPath)
	if err != nil {
		return err
	}

	upstream := hostFlag
	if !strings.Contains(upstream, ":") {
		upstream = fmt.Sprintf("%s:%d", upstream, settings.IPPort())
	}
	listen := delayListen
	if listen == "" {
		listen = fmt.Sprintf(":%d", settings.IPPort())
	}

	log := logrus.WithField("component", "delay")
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		return err
	}
	defer ln.Close()

	fmt.Printf("Syndesi - Delay Proxy\n")
	fmt.Printf("Listening on %s, relaying to %s with %s delay each way\n", ln.Addr(), upstream, delayDuration)
	fmt.Printf("Press Ctrl+C to exit\n\n")

	for {
		client, err := ln.Accept()
		if err != nil {
			return err
		}
		go func(client net.Conn) {
			defer client.Close()
			device, err := net.DialTimeout("tcp", upstream, 10*time.Second)
			if err != nil {
				log.WithError(err).Warn("upstream dial failed")
				return
			}
			defer device.Close()

			log.WithField("client", client.RemoteAddr()).Info("relaying")
			done := make(chan struct{})
			go func() {
				delayPipe(device, client, delayDuration, log)
				close(done)
			}()
			delayPipe(client, device, delayDuration, log)
			<-done
		}(client)
	}
}
