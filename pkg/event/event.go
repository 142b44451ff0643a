// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package event

import (
	"fmt"
	"time"

	"github.com/dtn7/agentbus/pkg/envelope"
)

// Type of an Event.
type Type string

const (
	// Agent lifecycle, re-published by the bus.
	TaskCompleted    Type = "taskCompleted"
	TaskFailed       Type = "taskFailed"
	Escalation       Type = "escalation"
	ApprovalRequired Type = "approvalRequired"

	// Bus
	AgentRegistered       Type = "agentRegistered"
	AgentUnregistered     Type = "agentUnregistered"
	MessageQueued         Type = "messageQueued"
	MessageDelivered      Type = "messageDelivered"
	MessageDeliveryFailed Type = "messageDeliveryFailed"

	// Protocol handler
	MessageExpired         Type = "messageExpired"
	MessageUnhandled       Type = "messageUnhandled"
	HandlerError           Type = "handlerError"
	Subscribed             Type = "subscribed"
	Unsubscribed           Type = "unsubscribed"
	TaskDelegated          Type = "taskDelegated"
	CollaborationStarted   Type = "collaborationStarted"
	CollaborationCompleted Type = "collaborationCompleted"
	ProposalCreated        Type = "proposalCreated"
	ConsensusReached       Type = "consensusReached"
	VoteError              Type = "voteError"
	ThreadClosed           Type = "threadClosed"
	ThreadArchived         Type = "threadArchived"
)

// Event is a notification about something that happened within an agent, the bus or a protocol handler.
type Event struct {
	Type      Type      `json:"type"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`

	// Envelope related to this Event, if any.
	Envelope *envelope.Envelope `json:"envelope,omitempty"`

	// Err is set for failure Events.
	Err error `json:"-"`

	Data map[string]any `json:"data,omitempty"`
}

// New creates an Event of the given type with the current timestamp.
func New(t Type, source string) Event {
	return Event{
		Type:      t,
		Source:    source,
		Timestamp: time.Now(),
	}
}

// WithEnvelope returns a copy of this Event referring to the Envelope.
func (e Event) WithEnvelope(env *envelope.Envelope) Event {
	e.Envelope = env
	return e
}

// WithError returns a copy of this Event carrying the error.
func (e Event) WithError(err error) Event {
	e.Err = err
	return e
}

// WithData returns a copy of this Event with an additional data entry.
func (e Event) WithData(key string, value any) Event {
	data := make(map[string]any, len(e.Data)+1)
	for k, v := range e.Data {
		data[k] = v
	}
	data[key] = value
	e.Data = data
	return e
}

// ErrorString returns the Event's error message or an empty string.
func (e Event) ErrorString() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

func (e Event) String() string {
	if e.Envelope != nil {
		return fmt.Sprintf("Event{Type: %s, Source: %s, Envelope: %s}", e.Type, e.Source, e.Envelope.ID)
	}
	return fmt.Sprintf("Event{Type: %s, Source: %s}", e.Type, e.Source)
}
