// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/syndesi-comm/syndesi-go/pkg/sdp"
)

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Read and write device registers",
}

var registerReadCmd = &cobra.Command{
	Use:   "read <address>",
	Short: "Read a 16-bit register",
	Args:  cobra.ExactArgs(1),
	RunE:  runRegisterRead,
}

var registerWriteCmd = &cobra.Command{
	Use:   "write <address> <value>",
	Short: "Write a 16-bit register",
	Args:  cobra.ExactArgs(2),
	RunE:  runRegisterWrite,
}

func init() {
	registerCmd.AddCommand(registerReadCmd)
	registerCmd.AddCommand(registerWriteCmd)
	rootCmd.AddCommand(registerCmd)
}

// parseUint32Arg accepts decimal or 0x-prefixed hex.
func parseUint32Arg(arg string) (uint32, error) {
	v, err := strconv.ParseUint(arg, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q: %v", arg, err)
	}
	return uint32(v), nil
}

func runRegisterRead(cmd *cobra.Command, args []string) error {
	address, err := parseUint32Arg(args[0])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ev, err := s.exchange(&sdp.RegisterRead16Request{Address: address})
	if err != nil {
		return err
	}
	reply, ok := ev.(*sdp.RegisterRead16Reply)
	if !ok {
		return fmt.Errorf("unexpected reply %T", ev)
	}

	fmt.Printf("0x%08X: 0x%04X (%d)\n", address, reply.Data, reply.Data)
	return nil
}

func runRegisterWrite(cmd *cobra.Command, args []string) error {
	address, err := parseUint32Arg(args[0])
	if err != nil {
		return err
	}
	value, err := parseUint32Arg(args[1])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	ev, err := s.exchange(&sdp.RegisterWrite16Request{Address: address, Data: value})
	if err != nil {
		return err
	}
	reply, ok := ev.(*sdp.RegisterWrite16Reply)
	if !ok {
		return fmt.Errorf("unexpected reply %T", ev)
	}
	if reply.Status != sdp.StatusOK {
		return fmt.Errorf("device rejected write to 0x%08X", address)
	}

	fmt.Printf("0x%08X <- 0x%04X ok\n", address, value)
	return nil
}
