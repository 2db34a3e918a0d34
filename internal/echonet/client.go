// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package echonet

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ogws/broute/internal/skwrapper"
)

// Transport is the subset of the session manager a Client needs: gated
// transmission and a view of the wrapper's event bus. *session.Manager
// satisfies this structurally.
type Transport interface {
	Transmit(ctx context.Context, data []byte) error
	Subscribe(selectors ...string) (<-chan skwrapper.Event, func())
}

// Client builds and sends ECHONET Lite requests to one smart meter and
// matches its responses by transaction id.
type Client struct {
	transport Transport
	logger    *zap.Logger
	tids      *tidTable

	done chan struct{}
}

// NewClient wraps transport. Call Start before issuing requests.
func NewClient(transport Transport, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		transport: transport,
		logger:    logger.Named("echonet"),
		tids:      newTIDTable(),
		done:      make(chan struct{}),
	}
}

// Start launches the long-lived goroutine that receives ERXUDP events and
// matches them to in-flight requests by TID.
func (c *Client) Start() {
	ch, cancel := c.transport.Subscribe("ERXUDP", "EVENT 21", "EVENT 02")
	go c.runReceiveLoop(ch, cancel)
}

func (c *Client) runReceiveLoop(ch <-chan skwrapper.Event, cancel func()) {
	defer cancel()
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			c.handleEvent(ev.Text)
		case <-c.done:
			return
		}
	}
}

func (c *Client) handleEvent(text string) {
	switch {
	case strings.HasPrefix(text, "ERXUDP"):
		frame, err := parseERXUDP(text)
		if err != nil {
			c.logger.Debug("dropping unparseable ERXUDP line", zap.Error(err), zap.String("line", text))
			return
		}
		if !c.tids.deliver(frame) {
			c.logger.Debug("dropping response for unknown or reclaimed TID", zap.Uint16("tid", frame.TID))
		}
	case strings.HasPrefix(text, "EVENT 21"), strings.HasPrefix(text, "EVENT 02"):
		// transmission-status / neighbour-solicitation notices for the
		// datagram just sent; no response payload of their own, nothing to
		// match against a TID.
	}
}

// parseERXUDP extracts the ECHONET Lite frame carried inline as uppercase
// hex in an ERXUDP line's trailing field (ASCII payload mode).
func parseERXUDP(text string) (Frame, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Frame{}, fmt.Errorf("echonet: empty ERXUDP line")
	}
	raw, err := hex.DecodeString(fields[len(fields)-1])
	if err != nil {
		return Frame{}, fmt.Errorf("echonet: ERXUDP payload not hex: %w", err)
	}
	return Parse(raw)
}

// Request sends one frame with service code esv carrying props and waits for
// its matching response. It returns the response's properties with their EDTs
// undecoded; a not-possible response yields *ResponseNotPossibleError.
func (c *Client) Request(ctx context.Context, esv byte, props []Property) ([]Property, error) {
	tid, respCh := c.tids.allocate()
	defer c.tids.reclaim(tid)

	frame := Frame{
		TID:        tid,
		SEOJ:       objBytes(SEOJClientController),
		DEOJ:       objBytes(DEOJLowVoltageSmartMeter),
		ESV:        esv,
		Properties: props,
	}
	if err := c.transport.Transmit(ctx, frame.Encode()); err != nil {
		return nil, err
	}

	select {
	case resp := <-respCh:
		return evaluateResponse(resp)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrNeedToReopen, ctx.Err())
	case <-c.done:
		return nil, fmt.Errorf("%w: client closed", ErrNeedToReopen)
	}
}

func evaluateResponse(f Frame) ([]Property, error) {
	switch f.ESV {
	case ESVGetResponse, ESVSetResponse:
		return f.Properties, nil
	case ESVGetNotPossible, ESVSetNotPossible:
		epcs := make([]byte, 0, len(f.Properties))
		for _, p := range f.Properties {
			epcs = append(epcs, p.EPC)
		}
		return nil, &ResponseNotPossibleError{EPCs: epcs}
	default:
		return nil, fmt.Errorf("echonet: unexpected ESV %02X in response", f.ESV)
	}
}

func objBytes(obj uint32) [3]byte {
	return [3]byte{byte(obj >> 16), byte(obj >> 8), byte(obj)}
}

// Close stops the receive loop.
func (c *Client) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}
