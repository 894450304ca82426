// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package cmd

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
)

var spiInterface uint32

var spiCmd = &cobra.Command{
	Use:   "spi",
	Short: "Bridge SPI transfers through the device",
}

var spiTransferCmd = &cobra.Command{
	Use:   "transfer <hex-bytes>",
	Short: "Full-duplex SPI transfer, printing the bytes clocked back",
	Args:  cobra.ExactArgs(1),
	RunE:  runSPITransfer,
}

var spiWriteCmd = &cobra.Command{
	Use:   "write <hex-bytes>",
	Short: "Write-only SPI transfer",
	Args:  cobra.ExactArgs(1),
	RunE:  runSPIWrite,
}

func init() {
	spiCmd.PersistentFlags().Uint32Var(&spiInterface, "interface", 0, "SPI interface index on the device")
	spiCmd.AddCommand(spiTransferCmd)
	spiCmd.AddCommand(spiWriteCmd)
	rootCmd.AddCommand(spiCmd)
}

// parseHexArg decodes "DEADBEEF" or "de:ad:be:ef" style byte strings.
func parseHexArg(arg string) ([]byte, error) {
	clean := strings.NewReplacer(":", "", " ", "").Replace(arg)
	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex data %q: %v", arg, err)
	}
	return data, nil
}

func runSPITransfer(cmd *cobra.Command, args []string) error {
	writeData, err := parseHexArg(args[0])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ev, err := s.exchange(&sdp.SPIReadWriteRequest{Interface: spiInterface, WriteData: writeData})
	if err != nil {
		return err
	}
	reply, ok := ev.(*sdp.SPIReadWriteReply)
	if !ok {
		return fmt.Errorf("unexpected reply %T", ev)
	}

	fmt.Printf("Read: %X\n", reply.ReadData)
	return nil
}

func runSPIWrite(cmd *cobra.Command, args []string) error {
	writeData, err := parseHexArg(args[0])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ev, err := s.exchange(&sdp.SPIWriteOnlyRequest{Interface: spiInterface, WriteData: writeData})
	if err != nil {
		return err
	}
	reply, ok := ev.(*sdp.SPIWriteOnlyReply)
	if !ok {
		return fmt.Errorf("unexpected reply %T", ev)
	}
	if reply.Status != sdp.StatusOK {
		return fmt.Errorf("device rejected SPI write")
	}

	fmt.Printf("Wrote %d bytes\n", len(writeData))
	return nil
}
