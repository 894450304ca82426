// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 The Syndesi Project

package sdp

import (
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
)

// Settings holds the tunable transport parameters. Zero values fall back to
// protocol defaults; access is safe from concurrent adapters.
type Settings struct {
	mu     sync.RWMutex
	ipPort uint16
}

// NewSettings returns settings with the default IP port.
func NewSettings() *Settings {
	return &Settings{ipPort: DefaultIPPort}
}

// IPPort returns the configured SDP transport port.
func (s *Settings) IPPort() uint16 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ipPort
}

// SetIPPort overrides the SDP transport port.
func (s *Settings) SetIPPort(port uint16) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ipPort = port
}

// settingsFile is the on-disk TOML shape.
type settingsFile struct {
	IPPort uint16 `toml:"ip_port"`
}

// LoadSettings reads a TOML settings file. A missing file is not an error;
// the defaults are returned.
func LoadSettings(path string) (*Settings, error) {
	s := NewSettings()
	if path == "" {
		return s, nil
	}

	var file settingsFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("sdp: load settings %s: %w", path, err)
	}
	if file.IPPort != 0 {
		s.SetIPPort(file.IPPort)
	}
	return s, nil
}
