// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors

// Package session drives the SK module through PAN scan and PANA
// authentication and tracks the resulting transmission gate, generalizing
// the wrapper's raw command/event surface into a single long-lived
// connection to one smart meter.
package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ogws/broute/internal/skwrapper"
)

// Config parameterizes one session's open() sequence.
type Config struct {
	RouteBID  string
	RouteBPwd string

	// ResetOnOpen issues SKRESET before probing ROPT, matching modules that
	// come up in an unknown state after a power cycle.
	ResetOnOpen bool

	// ScanBaseDuration is the first scan-duration argument tried; each
	// failed pass increments it by one up to ScanMaxAttempts passes.
	ScanBaseDuration int
	ScanMaxAttempts  int

	JoinRetries int

	// StallThreshold is how long a Transmit call waits for SKSENDTO to
	// finish before defensively closing the gate.
	StallThreshold time.Duration
}

// DefaultConfig returns the scan/join/stall parameters the module datasheet
// recommends.
func DefaultConfig() Config {
	return Config{
		ScanBaseDuration: 4,
		ScanMaxAttempts:  7,
		JoinRetries:      3,
		StallThreshold:   5 * time.Second,
	}
}

// Manager owns one smart meter's PAN scan / PANA join lifecycle and
// transmission gate atop a skwrapper.Wrapper.
type Manager struct {
	skw    *skwrapper.Wrapper
	logger *zap.Logger
	cfg    Config

	state atomic.Int32
	gate  *Gate

	meterAddr string
	channel   byte
	panID     uint16
	macAddr   uint64

	closing   chan struct{}
	closeOnce sync.Once
}

// NewManager wraps an already-started skwrapper.Wrapper.
func NewManager(skw *skwrapper.Wrapper, logger *zap.Logger, cfg Config) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		skw:     skw,
		logger:  logger.Named("session"),
		cfg:     cfg,
		gate:    NewGate(),
		closing: make(chan struct{}),
	}
}

// State reports the manager's current lifecycle position.
func (m *Manager) State() State { return State(m.state.Load()) }

func (m *Manager) setState(s State) { m.state.Store(int32(s)) }

// MeterAddress returns the neighbour smart meter's IPv6 link-local address,
// valid once Open has returned successfully.
func (m *Manager) MeterAddress() string { return m.meterAddr }

// Open runs ROPT/WOPT negotiation, registers the Route-B credentials, scans
// for the meter's PAN (escalating the scan duration across repeated passes),
// resolves its link-local address, and establishes a PANA session with it.
func (m *Manager) Open(ctx context.Context) error {
	m.setState(StateScanning)

	if m.cfg.ResetOnOpen {
		if err := m.skw.SKRESET(ctx); err != nil {
			return fmt.Errorf("reset module: %w", err)
		}
	}

	if err := m.negotiatePayloadMode(ctx); err != nil {
		return err
	}

	if err := m.skw.SKSETPWD(ctx, m.cfg.RouteBPwd); err != nil {
		return fmt.Errorf("register password: %w", err)
	}
	if err := m.skw.SKSETRBID(ctx, m.cfg.RouteBID); err != nil {
		return fmt.Errorf("register route-b id: %w", err)
	}

	desc, err := m.scan(ctx)
	if err != nil {
		m.setState(StateFailed)
		return err
	}
	m.channel, m.panID, m.macAddr = desc.Channel, desc.PanID, desc.MacAddr

	macHex := fmt.Sprintf("%016X", m.macAddr)
	addr, err := m.skw.SKLL64(ctx, macHex)
	if err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("resolve neighbour address: %w", err)
	}
	m.meterAddr = addr

	if err := m.skw.SKSREG(ctx, "S2", fmt.Sprintf("%02X", m.channel)); err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("set channel register: %w", err)
	}
	if err := m.skw.SKSREG(ctx, "S3", fmt.Sprintf("%04X", m.panID)); err != nil {
		m.setState(StateFailed)
		return fmt.Errorf("set pan-id register: %w", err)
	}

	m.setState(StateJoining)
	if err := m.join(ctx); err != nil {
		m.setState(StateFailed)
		return err
	}

	m.setState(StateJoined)
	ch, cancel := m.skw.Subscribe("EVENT")
	go m.runEventLoop(ch, cancel)
	return nil
}

// negotiatePayloadMode probes ROPT and, on firmware that supports it,
// switches to ASCII payload mode. Firmware that answers ROPT with
// FAIL ER04 ("unsupported") is assumed to already be in ASCII mode; that
// response is not treated as fatal.
func (m *Manager) negotiatePayloadMode(ctx context.Context) error {
	mode, err := m.skw.ROPT(ctx)
	if err != nil {
		var cmdErr *skwrapper.CommandError
		if errors.As(err, &cmdErr) && cmdErr.Kind == skwrapper.ErrKindUnsupported {
			m.skw.SetMode(skwrapper.PayloadModeASCII)
			return nil
		}
		return fmt.Errorf("probe payload mode: %w", err)
	}
	if mode != skwrapper.PayloadModeASCII {
		if err := m.skw.WOPT(ctx, skwrapper.PayloadModeASCII); err != nil {
			return fmt.Errorf("set ascii payload mode: %w", err)
		}
	}
	m.skw.SetMode(skwrapper.PayloadModeASCII)
	return nil
}

func (m *Manager) scan(ctx context.Context) (skwrapper.PanDescriptor, error) {
	duration := m.cfg.ScanBaseDuration
	for attempt := 0; attempt < m.cfg.ScanMaxAttempts; attempt++ {
		descs, err := m.skw.SKSCAN(ctx, duration)
		if err != nil {
			return skwrapper.PanDescriptor{}, fmt.Errorf("scan: %w", err)
		}
		if len(descs) > 0 {
			return descs[0], nil
		}
		m.logger.Debug("scan pass found no PAN, escalating duration", zap.Int("duration", duration))
		duration++
	}
	return skwrapper.PanDescriptor{}, ErrScanFailure
}

func (m *Manager) join(ctx context.Context) error {
	for attempt := 0; attempt < m.cfg.JoinRetries; attempt++ {
		lines, err := m.skw.SKJOIN(ctx, m.meterAddr)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrJoinFailure, err)
		}
		if len(lines) > 0 && lastLineStartsWith(lines, "EVENT 25") {
			return nil
		}
		m.logger.Warn("PANA join rejected, retrying", zap.Int("attempt", attempt))
	}
	return ErrJoinFailure
}

func lastLineStartsWith(lines []string, prefix string) bool {
	return len(lines[len(lines)-1]) >= len(prefix) && lines[len(lines)-1][:len(prefix)] == prefix
}

// runEventLoop handles the long-lived PANA lifecycle notifications: it is
// independent from any single command's own wait predicate, since the same
// underlying line is delivered to both.
func (m *Manager) runEventLoop(ch <-chan skwrapper.Event, cancel func()) {
	defer cancel()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			m.handleEvent(ev.Text)
		case <-m.closing:
			return
		}
	}
}

// Event codes are the module's own two-digit hex numbers (0x24 PANA auth
// failure, 0x25 PANA auth success, 0x26 session termination notice, 0x29
// PANA session lifetime expiring, 0x32/0x33 transmission restriction
// asserted/lifted), not decimal.
const (
	eventPanaAuthFailure   = 0x24
	eventPanaAuthSuccess   = 0x25
	eventSessionTerminated = 0x26
	eventLifetimeExpiring  = 0x29
	eventTxRestricted      = 0x32
	eventTxUnrestricted    = 0x33
)

func (m *Manager) handleEvent(text string) {
	switch eventCode(text) {
	case eventPanaAuthFailure:
		m.gate.Restrict()
		if m.State() == StateRejoining {
			m.logger.Error("rejoin rejected")
			m.fail()
		}
	case eventPanaAuthSuccess:
		if m.State() == StateRejoining {
			m.logger.Info("rejoined the PAN")
			m.setState(StateJoined)
			m.gate.Unrestrict(true)
		}
	case eventSessionTerminated:
		m.gate.Unrestrict(false)
	case eventLifetimeExpiring:
		m.logger.Warn("PANA session lifetime expiring, scheduling rejoin")
		m.gate.Restrict()
		m.setState(StateRejoining)
		go m.rejoin()
	case eventTxRestricted:
		m.gate.Restrict()
	case eventTxUnrestricted:
		m.gate.Unrestrict(false)
	}
}

func (m *Manager) rejoin() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := m.skw.SKJOIN(ctx, m.meterAddr); err != nil {
		m.logger.Error("rejoin failed", zap.Error(err))
		m.fail()
	}
}

// fail marks the session permanently failed and unblocks every waiter
// (gate acquires, in-flight transmits) so they observe ErrNeedToReopen
// instead of hanging until their own deadline.
func (m *Manager) fail() {
	m.setState(StateFailed)
	m.closeOnce.Do(func() { close(m.closing) })
}

func eventCode(text string) int {
	if len(text) < 7 || text[:6] != "EVENT " {
		return -1
	}
	end := 6
	for end < len(text) && text[end] != ' ' {
		end++
	}
	n, err := strconv.ParseInt(text[6:end], 16, 32)
	if err != nil {
		return -1
	}
	return int(n)
}

// Transmit acquires the transmission gate and sends data to the meter,
// defensively re-closing the gate if the underlying write stalls past
// StallThreshold.
func (m *Manager) Transmit(ctx context.Context, data []byte) error {
	select {
	case <-m.closing:
		return ErrNeedToReopen
	default:
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-m.closing:
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := m.gate.Acquire(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrNeedToReopen, err)
	}

	done := make(chan error, 1)
	go func() { done <- m.skw.SKSENDTO(ctx, m.meterAddr, data) }()

	var err error
	select {
	case err = <-done:
	case <-time.After(m.cfg.StallThreshold):
		m.gate.Restrict()
		err = <-done
		m.gate.Unrestrict(false)
	}
	select {
	case <-m.closing:
		if err != nil {
			return fmt.Errorf("%w: %v", ErrNeedToReopen, err)
		}
	default:
	}
	return err
}

// Subscribe exposes the underlying wrapper's event bus for the ECHONET
// client, which needs its own view of ERXUDP and transmission-status lines.
func (m *Manager) Subscribe(selectors ...string) (<-chan skwrapper.Event, func()) {
	return m.skw.Subscribe(selectors...)
}

// Close tears down the PANA session and stops the event loop. Close is
// safe to call more than once.
func (m *Manager) Close(ctx context.Context) error {
	m.closeOnce.Do(func() { close(m.closing) })
	m.setState(StateClosed)
	_, err := m.skw.SKTERM(ctx)
	return err
}
