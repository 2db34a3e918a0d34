// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package session

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ogws/broute/internal/skwrapper"
)

type fakeModule struct {
	conn net.Conn
	r    *bufio.Reader
}

func newFakeSession(t *testing.T, cfg Config) (*Manager, *fakeModule) {
	t.Helper()
	client, server := net.Pipe()
	skw := skwrapper.New(client, zap.NewNop())
	skw.Start()
	m := NewManager(skw, zap.NewNop(), cfg)
	t.Cleanup(func() { _ = skw.Close() })
	return m, &fakeModule{conn: server, r: bufio.NewReader(server)}
}

func (m *fakeModule) readCommand(t *testing.T) string {
	t.Helper()
	line, err := m.r.ReadString('\n')
	require.NoError(t, err)
	return line
}

func (m *fakeModule) send(t *testing.T, s string) {
	t.Helper()
	_, err := m.conn.Write([]byte(s))
	require.NoError(t, err)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.RouteBID = "00112233445566778899AABBCCDDEEFF"
	cfg.RouteBPwd = "ABCDEFGHIJKL"
	cfg.ScanMaxAttempts = 2
	cfg.JoinRetries = 2
	return cfg
}

// driveHappyPathOpen scripts every exchange a successful Open() performs,
// with the PAN found on the first scan pass.
func driveHappyPathOpen(t *testing.T, mod *fakeModule) {
	t.Helper()
	require.Contains(t, mod.readCommand(t), "ROPT")
	mod.send(t, "OK 01\r\n")

	require.Contains(t, mod.readCommand(t), "SKSETPWD")
	mod.send(t, "OK\r\n")

	require.Contains(t, mod.readCommand(t), "SKSETRBID")
	mod.send(t, "OK\r\n")

	require.Contains(t, mod.readCommand(t), "SKSCAN")
	mod.send(t, "EPANDESC\r\n")
	mod.send(t, "  Channel:21\r\n")
	mod.send(t, "  Pan ID:8888\r\n")
	mod.send(t, "  Addr:001D129100000001\r\n")
	mod.send(t, "EVENT 22 FE80::1\r\n")

	require.Contains(t, mod.readCommand(t), "SKLL64")
	mod.send(t, "FE80::21D:1291:0:1\r\n")

	require.Contains(t, mod.readCommand(t), "SKSREG S2")
	mod.send(t, "OK\r\n")
	require.Contains(t, mod.readCommand(t), "SKSREG S3")
	mod.send(t, "OK\r\n")

	require.Contains(t, mod.readCommand(t), "SKJOIN")
	mod.send(t, "EVENT 25 FE80::21D:1291:0:1\r\n")
}

func TestManager_Open_HappyPath(t *testing.T) {
	m, mod := newFakeSession(t, testConfig())
	go driveHappyPathOpen(t, mod)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Open(ctx))

	assert.Equal(t, StateJoined, m.State())
	assert.Equal(t, "FE80::21D:1291:0:1", m.MeterAddress())
	assert.True(t, m.gate.Open())
}

func TestManager_Open_ROPTUnsupportedFallsBackToASCII(t *testing.T) {
	m, mod := newFakeSession(t, testConfig())
	go func() {
		require.Contains(t, mod.readCommand(t), "ROPT")
		mod.send(t, "FAIL ER04\r\n")

		require.Contains(t, mod.readCommand(t), "SKSETPWD")
		mod.send(t, "OK\r\n")
		require.Contains(t, mod.readCommand(t), "SKSETRBID")
		mod.send(t, "OK\r\n")

		require.Contains(t, mod.readCommand(t), "SKSCAN")
		mod.send(t, "EPANDESC\r\n")
		mod.send(t, "  Channel:21\r\n")
		mod.send(t, "  Pan ID:8888\r\n")
		mod.send(t, "  Addr:001D129100000001\r\n")
		mod.send(t, "EVENT 22 FE80::1\r\n")

		require.Contains(t, mod.readCommand(t), "SKLL64")
		mod.send(t, "FE80::21D:1291:0:1\r\n")
		require.Contains(t, mod.readCommand(t), "SKSREG S2")
		mod.send(t, "OK\r\n")
		require.Contains(t, mod.readCommand(t), "SKSREG S3")
		mod.send(t, "OK\r\n")
		require.Contains(t, mod.readCommand(t), "SKJOIN")
		mod.send(t, "EVENT 25 FE80::21D:1291:0:1\r\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Open(ctx))
	assert.Equal(t, StateJoined, m.State())
}

func TestManager_Open_ScanEscalatesOnEmptyPass(t *testing.T) {
	m, mod := newFakeSession(t, testConfig())
	go func() {
		require.Contains(t, mod.readCommand(t), "ROPT")
		mod.send(t, "OK 01\r\n")
		require.Contains(t, mod.readCommand(t), "SKSETPWD")
		mod.send(t, "OK\r\n")
		require.Contains(t, mod.readCommand(t), "SKSETRBID")
		mod.send(t, "OK\r\n")

		first := mod.readCommand(t)
		require.Contains(t, first, "SKSCAN")
		mod.send(t, "EVENT 22 FE80::1\r\n") // no PAN found

		second := mod.readCommand(t)
		require.Contains(t, second, "SKSCAN")
		assert.NotEqual(t, first, second, "second scan pass should use an escalated duration")
		mod.send(t, "EPANDESC\r\n")
		mod.send(t, "  Channel:21\r\n")
		mod.send(t, "  Pan ID:8888\r\n")
		mod.send(t, "  Addr:001D129100000001\r\n")
		mod.send(t, "EVENT 22 FE80::1\r\n")

		require.Contains(t, mod.readCommand(t), "SKLL64")
		mod.send(t, "FE80::21D:1291:0:1\r\n")
		require.Contains(t, mod.readCommand(t), "SKSREG S2")
		mod.send(t, "OK\r\n")
		require.Contains(t, mod.readCommand(t), "SKSREG S3")
		mod.send(t, "OK\r\n")
		require.Contains(t, mod.readCommand(t), "SKJOIN")
		mod.send(t, "EVENT 25 FE80::21D:1291:0:1\r\n")
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Open(ctx))
	assert.Equal(t, StateJoined, m.State())
}

func TestManager_Rejoin_SucceedsReopensGate(t *testing.T) {
	m, mod := newFakeSession(t, testConfig())
	go driveHappyPathOpen(t, mod)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Open(ctx))
	require.True(t, m.gate.Open())

	mod.send(t, "EVENT 29 FE80::21D:1291:0:1\r\n")

	require.Eventually(t, func() bool {
		return m.State() == StateRejoining
	}, time.Second, 5*time.Millisecond)
	assert.False(t, m.gate.Open())

	require.Contains(t, mod.readCommand(t), "SKJOIN")
	mod.send(t, "EVENT 25 FE80::21D:1291:0:1\r\n")

	require.Eventually(t, func() bool {
		return m.State() == StateJoined && m.gate.Open()
	}, time.Second, 5*time.Millisecond)
}

func TestManager_Rejoin_FailureMarksSessionFailed(t *testing.T) {
	m, mod := newFakeSession(t, testConfig())
	go driveHappyPathOpen(t, mod)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, m.Open(ctx))

	mod.send(t, "EVENT 29 FE80::21D:1291:0:1\r\n")
	require.Eventually(t, func() bool {
		return m.State() == StateRejoining
	}, time.Second, 5*time.Millisecond)

	require.Contains(t, mod.readCommand(t), "SKJOIN")
	mod.send(t, "EVENT 24 FE80::21D:1291:0:1\r\n")

	require.Eventually(t, func() bool {
		return m.State() == StateFailed
	}, time.Second, 5*time.Millisecond)

	transmitCtx, transmitCancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer transmitCancel()
	err := m.Transmit(transmitCtx, []byte{0x01})
	assert.ErrorIs(t, err, ErrNeedToReopen)
}
