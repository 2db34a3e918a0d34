// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package skwrapper

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFramer_ASCIIMode_NoBinaryRun(t *testing.T) {
	// In ASCII payload mode an ERXUDP line carries its data inline as hex;
	// nothing extra should be consumed as a binary run, even though the
	// trailing field looks like a length.
	input := "ERXUDP FE80:0000 FE80:0000 0E1A 0E1A 001D129100000001 01 0 0 0004 10810001\r\n" +
		"OK\r\n"
	f := NewFramer(bytes.NewBufferString(input))
	f.SetMode(PayloadModeASCII)

	line, err := f.ReadLine()
	require.NoError(t, err)
	assert.Nil(t, line.Payload)
	assert.Contains(t, line.Text, "ERXUDP")

	line, err = f.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "OK", line.Text)
}

func TestFramer_BinaryMode_ConsumesAnnouncedLength(t *testing.T) {
	payload := []byte{0x10, 0x81, 0x00, 0x01}
	var buf bytes.Buffer
	buf.WriteString("ERXUDP FE80:0000 FE80:0000 0E1A 0E1A 001D129100000001 01 0 0 0004\r\n")
	buf.Write(payload)
	buf.WriteString("OK\r\n")

	f := NewFramer(&buf)
	f.SetMode(PayloadModeBinary)

	line, err := f.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, payload, line.Payload)

	line, err = f.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "OK", line.Text)
	assert.Nil(t, line.Payload)
}

func TestFramer_BinaryMode_PayloadBytesNeverSplitAsLines(t *testing.T) {
	// the binary payload contains a byte sequence that looks like a CRLF;
	// the framer must not split on it while consuming the announced length.
	payload := []byte{0x0d, 0x0a, 0xff, 0x00}
	var buf bytes.Buffer
	buf.WriteString("ERXUDP FE80:0000 FE80:0000 0E1A 0E1A 001D129100000001 01 0 0 0004\r\n")
	buf.Write(payload)
	buf.WriteString("OK\r\n")

	f := NewFramer(&buf)
	f.SetMode(PayloadModeBinary)

	line, err := f.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, payload, line.Payload)

	line, err = f.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "OK", line.Text)
}
