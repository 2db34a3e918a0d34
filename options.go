// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package broute

import (
	"time"

	"go.uber.org/zap"

	"github.com/ogws/broute/internal/session"
)

// config collects everything an Option can set before New opens the
// serial device.
type config struct {
	baud       int
	logger     *zap.Logger
	sessionCfg session.Config
}

func defaultConfig() config {
	cfg := session.DefaultConfig()
	cfg.ResetOnOpen = true
	return config{
		baud:       115200,
		logger:     zap.NewNop(),
		sessionCfg: cfg,
	}
}

// Option configures a Client at construction time.
type Option func(*config)

// WithBaudRate overrides the default 115200 baud serial rate.
func WithBaudRate(baud int) Option {
	return func(c *config) { c.baud = baud }
}

// WithResetOnOpen controls whether SKRESET is issued during Open. Defaults
// to true.
func WithResetOnOpen(reset bool) Option {
	return func(c *config) { c.sessionCfg.ResetOnOpen = reset }
}

// WithLogger supplies the root logger; the client derives the three named
// sinks ("skwrapper", "session", "echonet") from it. Defaults to a no-op
// logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithScanLimits overrides the scan-duration escalation ladder: baseDuration
// is SKSCAN's duration parameter on the first pass, doubling in effect on
// each successive empty pass up to maxAttempts tries.
func WithScanLimits(baseDuration, maxAttempts int) Option {
	return func(c *config) {
		c.sessionCfg.ScanBaseDuration = baseDuration
		c.sessionCfg.ScanMaxAttempts = maxAttempts
	}
}

// WithJoinRetries overrides how many SKJOIN attempts Open makes before
// raising JoinFailure.
func WithJoinRetries(retries int) Option {
	return func(c *config) { c.sessionCfg.JoinRetries = retries }
}

// WithStallThreshold overrides how long Transmit waits for a serial write to
// complete before defensively restricting the transmission gate.
func WithStallThreshold(d time.Duration) Option {
	return func(c *config) { c.sessionCfg.StallThreshold = d }
}
