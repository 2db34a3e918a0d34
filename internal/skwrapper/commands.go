// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package skwrapper

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// PanDescriptor is a smart meter's PAN, accumulated from an EPANDESC block
// during SKSCAN.
type PanDescriptor struct {
	Channel byte
	PanID   uint16
	MacAddr uint64
}

// SKVER returns the module's stack version string (the EVER line).
func (w *Wrapper) SKVER(ctx context.Context) (string, error) {
	lines, err := w.Exec(ctx, "SKVER", []string{"OK"}, nil)
	if err != nil {
		return "", err
	}
	return extract(lines, "EVER")
}

// SKINFO returns the module's own link-local address/MAC/channel/PAN-id line.
func (w *Wrapper) SKINFO(ctx context.Context) (string, error) {
	lines, err := w.Exec(ctx, "SKINFO", []string{"OK"}, nil)
	if err != nil {
		return "", err
	}
	return extract(lines, "EINFO")
}

// SKRESET issues a soft reset of the module, optionally run once at open to
// clear any stuck state left by a previous process.
func (w *Wrapper) SKRESET(ctx context.Context) error {
	_, err := w.Exec(ctx, "SKRESET", []string{"OK"}, nil)
	return err
}

// ROPT probes the module's current ERXUDP payload reporting mode. Some
// firmware does not support ROPT at all, in which case the command fails
// with ER04 ("unsupported"); callers must handle that *CommandError
// specially rather than treating it as fatal.
func (w *Wrapper) ROPT(ctx context.Context) (PayloadMode, error) {
	lines, err := w.Exec(ctx, "ROPT", []string{"OK"}, nil)
	if err != nil {
		return 0, err
	}
	line, err := extract(lines, "OK ")
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return 0, fmt.Errorf("malformed ROPT response: %q", line)
	}
	opt, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0, fmt.Errorf("malformed ROPT response: %q", line)
	}
	if opt == 1 {
		return PayloadModeASCII, nil
	}
	return PayloadModeBinary, nil
}

// WOPT sets the ERXUDP payload reporting mode (0 = binary, 1 = ASCII hex).
// This is persisted on the module across power cycles and can only be
// written a limited number of times, hence ROPT is always probed first.
func (w *Wrapper) WOPT(ctx context.Context, mode PayloadMode) error {
	opt := 0
	if mode == PayloadModeASCII {
		opt = 1
	}
	_, err := w.Exec(ctx, fmt.Sprintf("WOPT %02d", opt), []string{"OK"}, nil)
	return err
}

// SKSETPWD registers the Route-B password.
func (w *Wrapper) SKSETPWD(ctx context.Context, pwd string) error {
	_, err := w.Exec(ctx, fmt.Sprintf("SKSETPWD C %s", pwd), []string{"OK"}, nil)
	return err
}

// SKSETRBID registers the Route-B authentication id.
func (w *Wrapper) SKSETRBID(ctx context.Context, rbid string) error {
	_, err := w.Exec(ctx, fmt.Sprintf("SKSETRBID %s", rbid), []string{"OK"}, nil)
	return err
}

// SKSREG writes a module status register (S2 = channel, S3 = PAN id, ...).
func (w *Wrapper) SKSREG(ctx context.Context, reg string, val string) error {
	_, err := w.Exec(ctx, fmt.Sprintf("SKSREG %s %s", reg, val), []string{"OK"}, nil)
	return err
}

// SKSCAN runs one active-scan pass of the given duration parameter and
// returns every PAN descriptor observed in the EPANDESC block before the
// scan completes ("EVENT 22"). Scan-duration escalation across repeated
// passes is the session manager's responsibility.
func (w *Wrapper) SKSCAN(ctx context.Context, duration int) ([]PanDescriptor, error) {
	lines, err := w.Exec(ctx, fmt.Sprintf("SKSCAN 2 FFFFFFFF %d 0", duration), []string{"EVENT 22"}, nil)
	if err != nil {
		return nil, err
	}
	return parsePanDescriptors(lines), nil
}

// parsePanDescriptors scans SKSCAN's indented "Channel:"/"Pan ID:"/"Addr:"
// triples, one descriptor per complete Channel+Pan ID+Addr group.
func parsePanDescriptors(lines []string) []PanDescriptor {
	var out []PanDescriptor
	var cur PanDescriptor
	var haveChannel, havePan, haveAddr bool

	flush := func() {
		if haveChannel && havePan && haveAddr {
			out = append(out, cur)
		}
		cur = PanDescriptor{}
		haveChannel, havePan, haveAddr = false, false, false
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		idx := strings.Index(trimmed, ":")
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(trimmed[:idx])
		val := strings.TrimSpace(trimmed[idx+1:])
		switch key {
		case "Channel":
			if haveChannel {
				flush()
			}
			if n, err := strconv.ParseUint(val, 16, 8); err == nil {
				cur.Channel = byte(n)
				haveChannel = true
			}
		case "Pan ID":
			if n, err := strconv.ParseUint(val, 16, 16); err == nil {
				cur.PanID = uint16(n)
				havePan = true
			}
		case "Addr":
			if n, err := strconv.ParseUint(val, 16, 64); err == nil {
				cur.MacAddr = n
				haveAddr = true
			}
		}
	}
	flush()
	return out
}

// SKLL64 resolves mac's IPv6 link-local address.
func (w *Wrapper) SKLL64(ctx context.Context, macHex string) (string, error) {
	lines, err := w.Exec(ctx, fmt.Sprintf("SKLL64 %s", macHex), []string{"FE80:"}, nil)
	if err != nil {
		return "", err
	}
	return extract(lines, "FE80:")
}

// SKJOIN starts a PANA session with the neighbour at ip6Addr, blocking until
// "EVENT 24" (rejected) or "EVENT 25" (established). Retry escalation across
// repeated join attempts is the session manager's responsibility.
func (w *Wrapper) SKJOIN(ctx context.Context, ip6Addr string) ([]string, error) {
	return w.Exec(ctx, fmt.Sprintf("SKJOIN %s", ip6Addr), []string{"EVENT 24", "EVENT 25"}, nil)
}

// SKTERM tears down an established PANA session.
func (w *Wrapper) SKTERM(ctx context.Context) ([]string, error) {
	return w.Exec(ctx, "SKTERM", []string{"EVENT 27", "EVENT 28"}, nil)
}

// SKSENDTO transmits data to ip6Addr:port over the established PANA session.
// data is the raw frame to transmit; per the module datasheet SKSENDTO's
// trailing payload is always raw binary regardless of the ERXUDP reporting
// mode (WOPT only governs how received frames are echoed back, never how
// outbound frames are sent).
func (w *Wrapper) SKSENDTO(ctx context.Context, ip6Addr string, data []byte) error {
	const handle = 1
	const port = 0x0E1A
	const sec = 2
	const side = 0
	cmd := fmt.Sprintf("SKSENDTO %d %s %04X %d %d %04X", handle, ip6Addr, port, sec, side, len(data))
	_, err := w.Exec(ctx, cmd, []string{"OK"}, data)
	return err
}

func extract(lines []string, prefix string) (string, error) {
	for i := len(lines) - 1; i >= 0; i-- {
		if strings.HasPrefix(lines[i], prefix) || strings.Contains(lines[i], prefix) {
			return lines[i], nil
		}
	}
	return "", fmt.Errorf("no line with prefix %q in response", prefix)
}
