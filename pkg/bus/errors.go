// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bus

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateAgent is returned when registering an Agent whose id is already known.
	ErrDuplicateAgent = errors.New("agent already registered")

	// ErrAgentNotFound is returned for unknown Agent ids.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrQueueFull is returned by RouteMessage if the queue reached its capacity.
	ErrQueueFull = errors.New("message queue is full")

	// ErrNoAgentForRole is returned by SendTaskToRole if no Agent has the requested role.
	ErrNoAgentForRole = errors.New("no agent for role")

	// ErrClosed is returned after the Bus was closed.
	ErrClosed = errors.New("bus is closed")
)

// DeliveryError is attached to a MessageDeliveryFailed Event after an Envelope was dropped.
type DeliveryError struct {
	EnvelopeID string
	Target     string
	Attempts   int
	Err        error
}

func (de *DeliveryError) Error() string {
	return fmt.Sprintf("delivery of %s to %s failed after %d attempts: %v", de.EnvelopeID, de.Target, de.Attempts, de.Err)
}

func (de *DeliveryError) Unwrap() error {
	return de.Err
}
