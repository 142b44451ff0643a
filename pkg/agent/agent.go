// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"context"
	"errors"

	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// ErrMaxIterationsExceeded is returned by Execute if a Task was not done within its iteration bound.
var ErrMaxIterationsExceeded = errors.New("maximum iterations exceeded")

// State of an Agent.
type State string

const (
	StateIdle    State = "idle"
	StateBusy    State = "busy"
	StateError   State = "error"
	StateStopped State = "stopped"
)

// Agent is the interface the bus requires from its participants.
//
// ProcessMessage is called sequentially by the bus for every delivered Envelope. A returned error marks the
// delivery as failed and causes the bus to retry it. Execute runs a Task directly, bypassing the bus' queue.
// Events returns the Emitter for lifecycle notifications, i.e., TaskCompleted, TaskFailed, Escalation and
// ApprovalRequired, which the bus re-publishes.
type Agent interface {
	ID() string
	Role() string
	Capabilities() []string
	State() State

	Init(ctx context.Context) error
	Shutdown(ctx context.Context) error

	ProcessMessage(ctx context.Context, env *envelope.Envelope) error
	Execute(ctx context.Context, task Task) (any, error)

	Events() *event.Emitter
}

// Handler is the protocol side of an Agent. It receives all Envelopes which are not part of the Agent's own
// execution loop and sends replies.
type Handler interface {
	HandleMessage(ctx context.Context, env *envelope.Envelope) error
	Send(ctx context.Context, env *envelope.Envelope) error
}

// Task to be executed by an Agent.
type Task struct {
	ID          string         `json:"id"`
	Description string         `json:"description,omitempty"`
	Input       any            `json:"input,omitempty"`
	Context     map[string]any `json:"context,omitempty"`

	// MaxIterations overrides the Agent's bound if positive.
	MaxIterations int `json:"maxIterations,omitempty"`
}

// StatusReport answers a STATUS Envelope.
type StatusReport struct {
	ID           string   `json:"id"`
	Role         string   `json:"role"`
	State        State    `json:"state"`
	Capabilities []string `json:"capabilities"`
}
