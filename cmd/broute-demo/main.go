// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors

// Command broute-demo is a thin CLI wrapper around the broute package: one
// subcommand scans/joins a meter and saves the credentials and device it
// used, a second reloads those settings and prints a few readings.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ogws/broute"
)

func main() {
	var settingsFile, device, routeBID, routeBPassword string

	app := &cli.App{
		Name:    "broute-demo",
		Usage:   "talk to a Route B smart meter through a Wi-SUN SK module",
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "settings",
				Aliases:     []string{"S"},
				Usage:       "settings file path",
				Destination: &settingsFile,
				Value:       "settings.json",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "pairing",
				Usage: "scan for a meter, join it, and save the result to the settings file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "device",
						Aliases:     []string{"D"},
						Usage:       "serial device path",
						Destination: &device,
						Value:       "/dev/ttyUSB0",
					},
					&cli.StringFlag{
						Name:    "id",
						Aliases: []string{"Id"},
						Usage:   "Route B ID (32 characters)",
						Action: func(_ *cli.Context, s string) error {
							if len(s) != 32 {
								return fmt.Errorf("route B id must be 32 characters, got %d", len(s))
							}
							routeBID = s
							return nil
						},
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"Pwd"},
						Usage:   "Route B password (12 characters)",
						Action: func(_ *cli.Context, s string) error {
							if len(s) != 12 {
								return fmt.Errorf("route B password must be 12 characters, got %d", len(s))
							}
							routeBPassword = s
							return nil
						},
					},
				},
				Action: func(_ *cli.Context) error {
					return pairing(settingsFile, device, routeBID, routeBPassword)
				},
			},
			{
				Name:  "run",
				Usage: "reload settings and print a few readings from the meter",
				Action: func(_ *cli.Context) error {
					return run(settingsFile)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "broute-demo:", err)
		os.Exit(1)
	}
}

func newLogger() *zap.Logger {
	logger, err := zap.NewDevelopment()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// pairing opens a Client against device with the given credentials, which
// drives the scan/PANA-join sequence to completion, then persists the
// credentials, device and baud rate so run can reconnect with them. Scan
// results are not saved; run scans again on its own Open.
func pairing(settingsFile, device, routeBID, routeBPassword string) error {
	logger := newLogger()
	defer logger.Sync()

	client, err := broute.New(device, routeBID, routeBPassword, broute.WithLogger(logger))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := client.Open(ctx); err != nil {
		return err
	}
	defer client.Close(context.Background())

	logger.Info("joined meter successfully")

	return saveSettings(settingsFile, pairingSettings{
		RouteBID:       routeBID,
		RouteBPassword: routeBPassword,
		Device:         device,
		BaudRate:       115200,
	})
}

// run reloads settingsFile, reconnects, and prints a handful of readings
// a freshly joined meter is expected to answer.
func run(settingsFile string) error {
	settings, err := loadSettings(settingsFile)
	if err != nil {
		return err
	}

	logger := newLogger()
	defer logger.Sync()

	client, err := broute.New(settings.Device, settings.RouteBID, settings.RouteBPassword,
		broute.WithLogger(logger), broute.WithBaudRate(settings.BaudRate))
	if err != nil {
		return err
	}

	openCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := client.Open(openCtx); err != nil {
		return err
	}
	defer client.Close(context.Background())

	ctx, reqCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer reqCancel()

	if status, err := client.GetOperationStatus(ctx); err != nil {
		logger.Warn("GetOperationStatus", zap.Error(err))
	} else {
		fmt.Printf("operation status: on=%v\n", status)
	}

	if code, err := client.GetManufacturerCode(ctx); err != nil {
		logger.Warn("GetManufacturerCode", zap.Error(err))
	} else {
		fmt.Printf("manufacturer code: %02X%02X%02X\n", code[0], code[1], code[2])
	}

	if watts, err := client.GetInstantaneousPower(ctx); err != nil {
		logger.Warn("GetInstantaneousPower", zap.Error(err))
	} else {
		fmt.Printf("instantaneous power: %d W\n", watts)
	}

	if current, err := client.GetInstantaneousCurrent(ctx); err != nil {
		logger.Warn("GetInstantaneousCurrent", zap.Error(err))
	} else if current.Single {
		fmt.Printf("instantaneous current: %.1f A (single phase)\n", current.RPhase)
	} else {
		fmt.Printf("instantaneous current: R=%.1fA T=%.1fA\n", current.RPhase, current.TPhase)
	}

	energy, err := client.GetCumulativeEnergy(ctx, false)
	if err != nil {
		logger.Warn("GetCumulativeEnergy", zap.Error(err))
	} else if energy == nil {
		fmt.Println("cumulative energy: no data")
	} else {
		fmt.Printf("cumulative energy: %.3f kWh\n", *energy)
	}

	return nil
}
