// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Identify the target device",
	Long: `Send a DEVICE_DISCOVER request and print the device's identity:
unique ID, name, description and version numbers.`,
	RunE: runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ev, err := s.exchange(&sdp.DeviceDiscoverRequest{})
	if err != nil {
		return err
	}
	reply, ok := ev.(*sdp.DeviceDiscoverReply)
	if !ok {
		return fmt.Errorf("unexpected reply %T", ev)
	}

	fmt.Printf("Device:       %s\n", reply.Name)
	fmt.Printf("Description:  %s\n", reply.Description)
	fmt.Printf("Unique ID:    %X\n", reply.ID)
	fmt.Printf("Protocol:     v%d\n", reply.ProtocolVersion)
	fmt.Printf("Firmware:     v%d\n", reply.DeviceVersion)
	return nil
}
