// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dtn7/agentbus/pkg/agent"
	"github.com/dtn7/agentbus/pkg/bus"
	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// node is an Agent with its Handler and a recorder for its Events.
type node struct {
	agent   *agent.Base
	handler *Handler
	events  *recorder
}

// newNetwork registers a Base agent with an attached Handler for each id. The bus is only started if requested.
func newNetwork(t *testing.T, start bool, ids ...string) (*bus.Bus, map[string]*node) {
	t.Helper()

	b := bus.New(bus.Config{MaxQueueSize: 100, MessageRetryLimit: 1, ProcessInterval: 5 * time.Millisecond})
	nodes := make(map[string]*node, len(ids))

	for _, id := range ids {
		a := agent.NewBase(agent.Config{ID: id, Role: "worker", Capabilities: []string{"test", id}})
		h := New(a, b, Config{RequestTimeout: time.Second})
		a.Attach(h)

		require.NoError(t, b.Register(context.Background(), a))
		nodes[id] = &node{agent: a, handler: h, events: record(a.Events())}
	}

	if start {
		require.NoError(t, b.Start())
	}
	t.Cleanup(func() {
		_ = b.Close(context.Background())
	})

	return b, nodes
}

// recorder collects all Events of an Emitter.
type recorder struct {
	mutex  sync.Mutex
	events []event.Event
}

func record(em *event.Emitter) *recorder {
	r := &recorder{}
	em.Observe(event.ObserverFunc(func(e event.Event) {
		r.mutex.Lock()
		r.events = append(r.events, e)
		r.mutex.Unlock()
	}))
	return r
}

func (r *recorder) ofType(t event.Type) (events []event.Event) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	for _, e := range r.events {
		if e.Type == t {
			events = append(events, e)
		}
	}
	return
}

func (r *recorder) count(t event.Type) int {
	return len(r.ofType(t))
}

// inbox collects Envelopes passed to a HandlerFunc.
type inbox struct {
	mutex     sync.Mutex
	envelopes []*envelope.Envelope
}

func (ib *inbox) handle(_ context.Context, env *envelope.Envelope) error {
	ib.mutex.Lock()
	ib.envelopes = append(ib.envelopes, env)
	ib.mutex.Unlock()
	return nil
}

func (ib *inbox) all() []*envelope.Envelope {
	ib.mutex.Lock()
	defer ib.mutex.Unlock()

	return append([]*envelope.Envelope(nil), ib.envelopes...)
}

func (ib *inbox) len() int {
	return len(ib.all())
}

// clock is a settable time source.
type clock struct {
	mutex sync.Mutex
	now   time.Time
}

func newClock(h ...*Handler) *clock {
	c := &clock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	for _, handler := range h {
		handler.now = c.Now
	}
	return c
}

func (c *clock) Now() time.Time {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mutex.Lock()
	c.now = c.now.Add(d)
	c.mutex.Unlock()
}

const (
	waitFor = time.Second
	tick    = 5 * time.Millisecond
)
