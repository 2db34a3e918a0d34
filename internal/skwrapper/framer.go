// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors

// Package skwrapper implements the line-oriented, half-duplex command/event
// framer that sits directly on top of the Wi-SUN SK module's serial UART.
package skwrapper

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// PayloadMode mirrors the SK module's ROPT/WOPT setting: whether ERXUDP
// payloads arrive as raw binary bytes following the event line (Binary) or
// as inline hex digits within the event line itself (ASCII).
type PayloadMode int

const (
	// PayloadModeASCII is the mode this library actively selects via
	// "WOPT 01": ERXUDP payloads are hex-encoded inline, so no extra binary
	// run follows the line.
	PayloadModeASCII PayloadMode = iota
	// PayloadModeBinary is the module's power-on default on firmware that
	// doesn't persist WOPT.
	PayloadModeBinary
)

// Line is one framed unit read from the module: a CRLF-terminated text line,
// plus an optional binary payload run immediately following it (only ever
// populated in PayloadModeBinary, for an ERXUDP line).
type Line struct {
	Text    string
	Payload []byte
}

// Framer splits a byte stream into Lines, switching between CRLF-delimited
// text and fixed-length binary payload runs. The binary-length counter is
// derived entirely from the preceding ERXUDP line's trailing decimal field;
// while consuming a payload run the framer must not attempt CRLF splitting,
// since the payload bytes may themselves contain '\r' or '\n'.
type Framer struct {
	r    *bufio.Reader
	mode PayloadMode
}

// NewFramer wraps r for line/payload framing. The framer starts in
// PayloadModeBinary since that is the module's default until WOPT is known
// to have taken effect.
func NewFramer(r io.Reader) *Framer {
	return &Framer{r: bufio.NewReader(r), mode: PayloadModeBinary}
}

// SetMode switches the payload framing mode. The session manager flips this
// to PayloadModeASCII once ROPT/WOPT negotiation completes, including when
// ROPT comes back unsupported (such firmware is taken to be in ASCII mode).
func (f *Framer) SetMode(m PayloadMode) {
	f.mode = m
}

// Mode reports the framer's current payload mode.
func (f *Framer) Mode() PayloadMode {
	return f.mode
}

// ReadLine blocks until one framed Line is available, or returns the
// underlying read error (including io.EOF on stream closure).
func (f *Framer) ReadLine() (Line, error) {
	text, err := f.r.ReadString('\n')
	if err != nil {
		return Line{}, err
	}
	text = strings.TrimRight(text, "\r\n")

	if f.mode == PayloadModeBinary && strings.HasPrefix(text, "ERXUDP") {
		if n, ok := trailingDecimalLength(text); ok {
			payload := make([]byte, n)
			if _, err := io.ReadFull(f.r, payload); err != nil {
				return Line{}, err
			}
			return Line{Text: text, Payload: payload}, nil
		}
	}
	return Line{Text: text}, nil
}

// trailingDecimalLength extracts the last whitespace-separated field of an
// ERXUDP line as a decimal byte count.
func trailingDecimalLength(line string) (int, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(fields[len(fields)-1])
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
