// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project
//
// Syndesi - host-side tooling for the Syndesi Device Protocol.

package main

import (
	"os"

	"github.com/syndesi-comm/syndesi-go/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
