// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors

// Package broute is a client library for Japan's Route B smart electric
// energy meter protocol: it drives a Wi-SUN "SK module" over a serial line
// through PAN scan and PANA authentication, then exchanges ECHONET Lite
// requests with the meter behind a small, named-operation façade.
package broute

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tarm/serial"

	"github.com/ogws/broute/internal/echonet"
	"github.com/ogws/broute/internal/echonet/codec"
	"github.com/ogws/broute/internal/session"
	"github.com/ogws/broute/internal/skwrapper"
)

// Client is a single open connection to one smart meter over Route B.
// Create one with New, call Open once, and Close it when done; a Client is
// not reusable across Open/Close cycles; construct a new one instead.
type Client struct {
	cfg  config
	port *serial.Port
	skw  *skwrapper.Wrapper
	mgr  *session.Manager
	el   *echonet.Client

	mu          sync.Mutex
	coefficient uint32
	unit        float64
	haveUnits   bool
}

// New constructs a Client for the meter reachable through dev (a serial
// device path) authenticated with rbid/pwd, opening the serial device. Call
// Open to run the scan/join sequence.
func New(dev, rbid, pwd string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	cfg.sessionCfg.RouteBID = rbid
	cfg.sessionCfg.RouteBPwd = pwd
	for _, opt := range opts {
		opt(&cfg)
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        dev,
		Baud:        cfg.baud,
		ReadTimeout: 10 * time.Second,
		Size:        8,
	})
	if err != nil {
		return nil, fmt.Errorf("broute: opening serial device %s: %w", dev, err)
	}

	skw := skwrapper.New(port, cfg.logger.Named("skwrapper"))
	mgr := session.NewManager(skw, cfg.logger.Named("session"), cfg.sessionCfg)
	el := echonet.NewClient(mgr, cfg.logger.Named("echonet"))

	return &Client{cfg: cfg, port: port, skw: skw, mgr: mgr, el: el}, nil
}

// Open runs the scan/join sequence (see internal/session's state machine)
// and, on success, starts the ECHONET receive loop. It is not re-entrant on
// an already-opened Client.
func (c *Client) Open(ctx context.Context) error {
	c.skw.Start()
	if err := c.mgr.Open(ctx); err != nil {
		return translateErr(err)
	}
	c.el.Start()
	return nil
}

// Close tears down the PANA session, stops the receive loop, and releases
// the serial device. Close is idempotent; operations on a closed Client
// return NeedToReopen.
func (c *Client) Close(ctx context.Context) error {
	c.el.Close()
	err := c.mgr.Close(ctx)
	if closeErr := c.port.Close(); err == nil {
		err = closeErr
	}
	return translateErr(err)
}

func (c *Client) get(ctx context.Context, epc byte) (any, error) {
	props, err := c.el.Request(ctx, echonet.ESVGet, []echonet.Property{{EPC: epc}})
	if err != nil {
		return nil, translateErr(err)
	}
	for _, p := range props {
		if p.EPC == epc {
			return codec.Table[epc].Decode(p.EDT)
		}
	}
	return nil, fmt.Errorf("broute: meter did not return EPC %02X", epc)
}

func (c *Client) set(ctx context.Context, epc byte, value any) error {
	edt, err := codec.Table[epc].Encode(value)
	if err != nil {
		return err
	}
	_, err = c.el.Request(ctx, echonet.ESVSetC, []echonet.Property{{EPC: epc, EDT: edt}})
	return translateErr(err)
}

// ensureUnits fetches and caches the coefficient (0xD3) and unit multiplier
// (0xE1) on first access after Open, per the meter-facade's caching rule.
// A meter that does not implement 0xD3 defaults the coefficient to 1,
// mirroring how a Get-not-possible on that EPC is treated upstream.
func (c *Client) ensureUnits(ctx context.Context) (uint32, float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.haveUnits {
		return c.coefficient, c.unit, nil
	}

	coef, err := c.get(ctx, 0xD3)
	if err != nil {
		var notPossible *ResponseNotPossibleError
		if !errors.As(err, &notPossible) {
			return 0, 0, err
		}
		coef = uint32(1)
	}
	unit, err := c.get(ctx, 0xE1)
	if err != nil {
		return 0, 0, err
	}

	c.coefficient = coef.(uint32)
	c.unit = unit.(float64)
	c.haveUnits = true
	return c.coefficient, c.unit, nil
}
