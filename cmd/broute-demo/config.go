// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package main

import (
	"os"

	"github.com/spf13/viper"
)

// pairingSettings is what the "pairing" subcommand persists after a
// successful scan/join, and what "run" reloads on every subsequent
// invocation. Loading goes through viper instead of encoding/json so env
// vars (BROUTE_DEMO_*) can override the file without editing it.
type pairingSettings struct {
	RouteBID       string `mapstructure:"route_b_id"`
	RouteBPassword string `mapstructure:"route_b_password"`
	Device         string `mapstructure:"device"`
	BaudRate       int    `mapstructure:"baud_rate"`
}

func setConfigDefaults() {
	viper.SetDefault("device", "/dev/ttyUSB0")
	viper.SetDefault("baud_rate", 115200)
}

// loadSettings reads settingsFile (if present) layered under env vars
// prefixed BROUTE_DEMO_, e.g. BROUTE_DEMO_DEVICE.
func loadSettings(settingsFile string) (pairingSettings, error) {
	setConfigDefaults()
	viper.SetEnvPrefix("broute_demo")
	viper.AutomaticEnv()

	if _, err := os.Stat(settingsFile); err == nil {
		viper.SetConfigFile(settingsFile)
		if err := viper.ReadInConfig(); err != nil {
			return pairingSettings{}, err
		}
	}

	var s pairingSettings
	if err := viper.Unmarshal(&s); err != nil {
		return pairingSettings{}, err
	}
	return s, nil
}

// saveSettings writes s to settingsFile in the format its extension names
// (JSON for the default settings.json), which viper reads back on the next
// invocation.
func saveSettings(settingsFile string, s pairingSettings) error {
	viper.Set("route_b_id", s.RouteBID)
	viper.Set("route_b_password", s.RouteBPassword)
	viper.Set("device", s.Device)
	viper.Set("baud_rate", s.BaudRate)
	return viper.WriteConfigAs(settingsFile)
}
