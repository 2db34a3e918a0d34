// SPDX-License-Identifier: MIT
// SPDX-FileCopyrightText: 2026 ogws contributors
package skwrapper

import "strings"

// Event is an unsolicited line routed to event-bus subscribers: a PANA
// lifecycle notification ("EVENT nn"), a scan-result fragment ("EPANDESC"
// block line), or an inbound UDP reception ("ERXUDP").
type Event struct {
	Line
}

type subscription struct {
	selectors []string
	ch        chan Event
}

// matches reports whether an event's text is addressed to any of the
// subscription's selectors, each a literal line prefix (e.g. "EVENT 25",
// "ERXUDP", "EPANDESC").
func (s subscription) matches(text string) bool {
	for _, sel := range s.selectors {
		if strings.HasPrefix(text, sel) {
			return true
		}
	}
	return false
}

// Subscribe registers interest in lines beginning with any of selectors. The
// returned channel receives every matching Event until the returned cancel
// func is called; callers must drain it promptly: delivery never blocks the
// reader goroutine, so once the channel's 64-event buffer is full further
// matching events are dropped.
func (w *Wrapper) Subscribe(selectors ...string) (<-chan Event, func()) {
	ch := make(chan Event, 64)
	sub := &subscription{selectors: selectors, ch: ch}

	w.mu.Lock()
	w.subscribers = append(w.subscribers, sub)
	w.mu.Unlock()

	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		for i, s := range w.subscribers {
			if s == sub {
				w.subscribers = append(w.subscribers[:i], w.subscribers[i+1:]...)
				break
			}
		}
		close(ch)
	}
	return ch, cancel
}

// publish fans a line out to every subscriber whose selector matches. Must
// be called with w.mu not held.
func (w *Wrapper) publish(line Line) {
	w.mu.Lock()
	subs := make([]*subscription, len(w.subscribers))
	copy(subs, w.subscribers)
	w.mu.Unlock()

	for _, s := range subs {
		if s.matches(line.Text) {
			select {
			case s.ch <- Event{line}:
			default:
				w.logger.Sugar().Warnf("dropping event for slow subscriber %v: %s", s.selectors, line.Text)
			}
		}
	}
}
