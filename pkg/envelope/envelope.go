// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package envelope

import (
	"fmt"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
)

// Envelope is a message between agents. Its ID is unique, while the CorrelationID stays the same for all
// Envelopes belonging to one request/response exchange.
type Envelope struct {
	ID   string      `json:"id"`
	Type MessageType `json:"type"`

	From string   `json:"from"`
	To   []string `json:"to,omitempty"`

	Topic         string `json:"topic,omitempty"`
	ReplyTo       string `json:"replyTo,omitempty"`
	CorrelationID string `json:"correlationId,omitempty"`
	ThreadID      string `json:"threadId,omitempty"`

	Priority Priority       `json:"priority"`
	Payload  any            `json:"payload,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	Timestamp time.Time     `json:"timestamp"`
	TTL       time.Duration `json:"ttl,omitempty"`
	Encrypted bool          `json:"encrypted,omitempty"`
}

// NewID creates a new time sortable identifier, used for Envelopes and coordination aggregates.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Recipient returns the first addressed agent or an empty string.
func (env *Envelope) Recipient() string {
	if len(env.To) == 0 {
		return ""
	}
	return env.To[0]
}

// IsAddressedTo checks if the agent id is one of this Envelope's recipients.
func (env *Envelope) IsAddressedTo(id string) bool {
	for _, to := range env.To {
		if to == id {
			return true
		}
	}
	return false
}

// ExpiresAt returns the point in time after which this Envelope is expired. The second value is false for
// Envelopes without a TTL.
func (env *Envelope) ExpiresAt() (time.Time, bool) {
	if env.TTL <= 0 {
		return time.Time{}, false
	}
	return env.Timestamp.Add(env.TTL), true
}

// IsExpired checks if this Envelope's TTL has elapsed at the given time.
func (env *Envelope) IsExpired(now time.Time) bool {
	expires, ok := env.ExpiresAt()
	return ok && now.After(expires)
}

// Clone creates a copy of this Envelope with its own recipient list and Metadata. The Payload is shared.
func (env *Envelope) Clone() *Envelope {
	clone := *env
	clone.To = append([]string(nil), env.To...)
	clone.Metadata = maps.Clone(env.Metadata)
	return &clone
}

// CheckValid returns all problems of this Envelope, bundled as a multierror.
func (env *Envelope) CheckValid() (errs error) {
	if env.ID == "" {
		errs = multierror.Append(errs, fmt.Errorf("Envelope: empty ID"))
	}

	if typeErr := env.Type.CheckValid(); typeErr != nil {
		errs = multierror.Append(errs, typeErr)
	}

	if env.Priority < PriorityLow || env.Priority > PriorityCritical {
		errs = multierror.Append(errs, fmt.Errorf("Envelope: priority %d out of range", env.Priority))
	}

	if env.TTL < 0 {
		errs = multierror.Append(errs, fmt.Errorf("Envelope: negative TTL %v", env.TTL))
	}

	if len(env.To) == 0 && env.Type != Broadcast && !(env.Type == Event && env.Topic != "") {
		errs = multierror.Append(errs, fmt.Errorf("Envelope: %s requires at least one recipient", env.Type))
	}

	return
}

func (env *Envelope) String() string {
	return fmt.Sprintf("Envelope{ID: %s, Type: %s, From: %s, To: %v, CorrelationID: %s}",
		env.ID, env.Type, env.From, env.To, env.CorrelationID)
}
