// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package echonet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTIDTable_AllocateDeliverReclaim(t *testing.T) {
	tbl := newTIDTable()

	tid, ch := tbl.allocate()
	resp := Frame{TID: tid, ESV: ESVGetResponse}

	require.True(t, tbl.deliver(resp))
	select {
	case got := <-ch:
		assert.Equal(t, resp, got)
	default:
		t.Fatal("expected buffered response on channel")
	}

	tbl.reclaim(tid)
	assert.False(t, tbl.deliver(resp))
}

func TestTIDTable_AllocateSkipsInFlight(t *testing.T) {
	tbl := newTIDTable()
	tbl.next = 5

	first, _ := tbl.allocate()
	assert.EqualValues(t, 5, first)

	// first is occupied until reclaimed, so allocating from 5 again should skip it
	tbl.next = 5
	second, _ := tbl.allocate()
	assert.NotEqual(t, first, second)
}

func TestTIDTable_DeliverUnknownTIDReturnsFalse(t *testing.T) {
	tbl := newTIDTable()
	assert.False(t, tbl.deliver(Frame{TID: 99}))
}
