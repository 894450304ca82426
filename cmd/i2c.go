// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
)

var i2cInterface uint32

var i2cCmd = &cobra.Command{
	Use:   "i2c",
	Short: "Bridge I2C transfers through the device",
}

var i2cReadCmd = &cobra.Command{
	Use:   "read <count>",
	Short: "Read bytes from the I2C bus",
	Args:  cobra.ExactArgs(1),
	RunE:  runI2CRead,
}

var i2cWriteCmd = &cobra.Command{
	Use:   "write <hex-bytes>",
	Short: "Write bytes to the I2C bus",
	Args:  cobra.ExactArgs(1),
	RunE:  runI2CWrite,
}

func init() {
	i2cCmd.PersistentFlags().Uint32Var(&i2cInterface, "interface", 0, "I2C interface index on the device")
	i2cCmd.AddCommand(i2cReadCmd)
	i2cCmd.AddCommand(i2cWriteCmd)
	rootCmd.AddCommand(i2cCmd)
}

func runI2CRead(cmd *cobra.Command, args []string) error {
	count, err := parseUint32Arg(args[0])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ev, err := s.exchange(&sdp.I2CReadRequest{Interface: i2cInterface, ReadSize: count})
	if err != nil {
		return err
	}
	reply, ok := ev.(*sdp.I2CReadReply)
	if !ok {
		return fmt.Errorf("unexpected reply %T", ev)
	}

	fmt.Printf("Read: %X\n", reply.ReadData)
	return nil
}

func runI2CWrite(cmd *cobra.Command, args []string) error {
	writeData, err := parseHexArg(args[0])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ev, err := s.exchange(&sdp.I2CWriteRequest{Interface: i2cInterface, WriteData: writeData})
	if err != nil {
		return err
	}
	reply, ok := ev.(*sdp.I2CWriteReply)
	if !ok {
		return fmt.Errorf("unexpected reply %T", ev)
	}
	if reply.Status != sdp.StatusOK {
		return fmt.Errorf("device rejected I2C write")
	}

	fmt.Printf("Wrote %d bytes\n", len(writeData))
	return nil
}
