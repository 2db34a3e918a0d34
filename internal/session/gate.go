// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package session

import (
	"context"
	"sync"
)

// Gate is a reference-counted transmission gate: open while its restriction
// counter is zero, closed otherwise. Multiple independent reasons to close
// the gate (re-auth in progress, a module-signalled restriction) each add a
// restriction; the gate only reopens once every one of them has cleared, so
// a nested restriction can't be undone by an unrelated Unrestrict call.
type Gate struct {
	mu           sync.Mutex
	restrictions int
	openCh       chan struct{}
}

// NewGate returns a Gate that starts open.
func NewGate() *Gate {
	ch := make(chan struct{})
	close(ch)
	return &Gate{openCh: ch}
}

// Acquire blocks until the gate is open or ctx is done, whichever comes
// first.
func (g *Gate) Acquire(ctx context.Context) error {
	g.mu.Lock()
	ch := g.openCh
	g.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Restrict adds one restriction, closing the gate if it was open.
func (g *Gate) Restrict() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.restrictions++
	if g.restrictions == 1 {
		g.openCh = make(chan struct{})
	}
}

// Unrestrict clears one restriction (or, if force is true, every
// outstanding restriction), reopening the gate once none remain.
func (g *Gate) Unrestrict(force bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if force {
		g.restrictions = 0
	} else if g.restrictions > 0 {
		g.restrictions--
	}
	if g.restrictions == 0 {
		select {
		case <-g.openCh:
			// already open
		default:
			close(g.openCh)
		}
	}
}

// Open reports whether the gate currently has no outstanding restrictions.
func (g *Gate) Open() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.restrictions == 0
}
