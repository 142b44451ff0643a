// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bus

import (
	"context"
	"sync"

	"github.com/dtn7/agentbus/pkg/agent"
	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// mockAgent records received Envelopes. Its behavior is controlled by the process function.
type mockAgent struct {
	id      string
	role    string
	process func(env *envelope.Envelope) error
	events  *event.Emitter

	mutex       sync.Mutex
	state       agent.State
	received    []*envelope.Envelope
	executed    []agent.Task
	shutdowns   int
	shutdownErr error
}

func newMockAgent(id, role string) *mockAgent {
	return &mockAgent{
		id:     id,
		role:   role,
		events: event.NewEmitter(id),
		state:  agent.StateIdle,
	}
}

func (ma *mockAgent) ID() string             { return ma.id }
func (ma *mockAgent) Role() string           { return ma.role }
func (ma *mockAgent) Capabilities() []string { return nil }
func (ma *mockAgent) Events() *event.Emitter { return ma.events }

func (ma *mockAgent) State() agent.State {
	ma.mutex.Lock()
	defer ma.mutex.Unlock()

	return ma.state
}

func (ma *mockAgent) setState(state agent.State) {
	ma.mutex.Lock()
	ma.state = state
	ma.mutex.Unlock()
}

func (ma *mockAgent) Init(context.Context) error {
	return nil
}

func (ma *mockAgent) Shutdown(context.Context) error {
	ma.mutex.Lock()
	defer ma.mutex.Unlock()

	ma.shutdowns++
	ma.state = agent.StateStopped
	return ma.shutdownErr
}

func (ma *mockAgent) ProcessMessage(_ context.Context, env *envelope.Envelope) error {
	ma.mutex.Lock()
	ma.received = append(ma.received, env)
	process := ma.process
	ma.mutex.Unlock()

	if process != nil {
		return process(env)
	}
	return nil
}

func (ma *mockAgent) Execute(_ context.Context, task agent.Task) (any, error) {
	ma.mutex.Lock()
	ma.executed = append(ma.executed, task)
	ma.mutex.Unlock()

	return ma.id, nil
}

func (ma *mockAgent) receivedCount() int {
	ma.mutex.Lock()
	defer ma.mutex.Unlock()

	return len(ma.received)
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

func message(from string, to ...string) *envelope.Envelope {
	env, err := envelope.Builder().Type(envelope.Request).From(from).To(to...).Payload("test").Build()
	if err != nil {
		panic(err)
	}
	return env
}
