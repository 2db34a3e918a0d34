// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package echonet

import (
	"context"
	"encoding/hex"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogws/broute/internal/skwrapper"
)

// fakeTransport stands in for a session.Manager: Transmit decodes the
// outgoing frame, lets a test-supplied responder build the reply, and
// publishes it as an ERXUDP line to every active subscriber.
type fakeTransport struct {
	mu          sync.Mutex
	subscribers []chan skwrapper.Event
	respond     func(req Frame) (Frame, bool)
}

func (f *fakeTransport) Subscribe(selectors ...string) (<-chan skwrapper.Event, func()) {
	ch := make(chan skwrapper.Event, 8)
	f.mu.Lock()
	f.subscribers = append(f.subscribers, ch)
	f.mu.Unlock()
	return ch, func() {}
}

func (f *fakeTransport) Transmit(ctx context.Context, data []byte) error {
	req, err := Parse(data)
	if err != nil {
		return err
	}
	resp, ok := f.respond(req)
	if !ok {
		return nil
	}
	line := "ERXUDP 1081 FE80::1 FE80::2 0E1A 0E1A 001D129100000001 1 " +
		strings.ToUpper(hex.EncodeToString(resp.Encode()))
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subscribers {
		ch <- skwrapper.Event{Line: skwrapper.Line{Text: line}}
	}
	return nil
}

func TestClient_Request_InstantaneousPower(t *testing.T) {
	transport := &fakeTransport{
		respond: func(req Frame) (Frame, bool) {
			return Frame{
				TID:        req.TID,
				SEOJ:       req.DEOJ,
				DEOJ:       req.SEOJ,
				ESV:        ESVGetResponse,
				Properties: []Property{{EPC: 0xE7, EDT: []byte{0x00, 0x00, 0x01, 0xF4}}},
			}, true
		},
	}
	c := NewClient(transport, nil)
	c.Start()
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	props, err := c.Request(ctx, ESVGet, []Property{{EPC: 0xE7}})
	require.NoError(t, err)
	require.Len(t, props, 1)
	assert.Equal(t, byte(0xE7), props[0].EPC)
	assert.Equal(t, []byte{0x00, 0x00, 0x01, 0xF4}, props[0].EDT)
}

func TestClient_Request_AggregateWithUnsupportedEPCFails(t *testing.T) {
	transport := &fakeTransport{
		respond: func(req Frame) (Frame, bool) {
			return Frame{
				TID:        req.TID,
				SEOJ:       req.DEOJ,
				DEOJ:       req.SEOJ,
				ESV:        ESVGetNotPossible,
				Properties: []Property{{EPC: 0x7F}},
			}, true
		},
	}
	c := NewClient(transport, nil)
	c.Start()
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := c.Request(ctx, ESVGet, []Property{{EPC: 0xE7}, {EPC: 0xD3}, {EPC: 0x7F}})
	require.Error(t, err)
	var notPossible *ResponseNotPossibleError
	require.ErrorAs(t, err, &notPossible)
	assert.Equal(t, []byte{0x7F}, notPossible.EPCs)
}

func TestClient_Request_DeadlineExceededWrapsErrNeedToReopen(t *testing.T) {
	transport := &fakeTransport{
		respond: func(req Frame) (Frame, bool) {
			return Frame{}, false // never answers
		},
	}
	c := NewClient(transport, nil)
	c.Start()
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Request(ctx, ESVGet, []Property{{EPC: 0xE7}})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNeedToReopen)
}

func TestClient_HandleEvent_IgnoresTransmissionStatusNotices(t *testing.T) {
	transport := &fakeTransport{}
	c := NewClient(transport, nil)
	// Should not panic or attempt TID matching on non-ERXUDP lines.
	c.handleEvent("EVENT 21 FE80::1")
	c.handleEvent("EVENT 02 FE80::1")
}
