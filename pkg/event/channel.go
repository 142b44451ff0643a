// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package event

import (
	"sync"
	"sync/atomic"
)

// Channel is an Observer writing Events into a bounded channel. If the buffer is full, Events are dropped and
// counted instead of blocking the emitting component.
type Channel struct {
	events  chan Event
	dropped atomic.Uint64

	closeOnce sync.Once
	closed    atomic.Bool
	mutex     sync.RWMutex
}

// NewChannel creates a Channel observer with the given buffer size.
func NewChannel(size int) *Channel {
	if size < 1 {
		size = 1
	}

	return &Channel{events: make(chan Event, size)}
}

// OnEvent enqueues an Event without blocking.
func (c *Channel) OnEvent(e Event) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	if c.closed.Load() {
		return
	}

	select {
	case c.events <- e:
	default:
		c.dropped.Add(1)
	}
}

// C returns the channel to receive Events from. It is closed by Close.
func (c *Channel) C() <-chan Event {
	return c.events
}

// Dropped returns the number of Events which were discarded due to a full buffer.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}

// Close this Channel. Remaining buffered Events can still be received.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		c.mutex.Lock()
		c.closed.Store(true)
		close(c.events)
		c.mutex.Unlock()
	})
}
