// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package envelope

import (
	"fmt"
	"time"
)

// EnvelopeBuilder creates Envelopes through a fluent interface. The first error is kept and returned by Build.
type EnvelopeBuilder struct {
	err error
	env Envelope
}

// Builder creates a new EnvelopeBuilder with a fresh ID, the current timestamp and a normal priority.
func Builder() *EnvelopeBuilder {
	return &EnvelopeBuilder{
		env: Envelope{
			ID:        NewID(),
			Timestamp: time.Now(),
			Priority:  PriorityNormal,
		},
	}
}

// Error returns the first error which occurred while building.
func (bldr *EnvelopeBuilder) Error() error {
	return bldr.err
}

func (bldr *EnvelopeBuilder) Type(mt MessageType) *EnvelopeBuilder {
	if bldr.err == nil {
		if err := mt.CheckValid(); err != nil {
			bldr.err = err
		} else {
			bldr.env.Type = mt
		}
	}
	return bldr
}

func (bldr *EnvelopeBuilder) From(id string) *EnvelopeBuilder {
	if bldr.err == nil {
		bldr.env.From = id
	}
	return bldr
}

// To sets the recipients, replacing previously set ones.
func (bldr *EnvelopeBuilder) To(ids ...string) *EnvelopeBuilder {
	if bldr.err == nil {
		bldr.env.To = append([]string(nil), ids...)
	}
	return bldr
}

func (bldr *EnvelopeBuilder) Topic(topic string) *EnvelopeBuilder {
	if bldr.err == nil {
		bldr.env.Topic = topic
	}
	return bldr
}

func (bldr *EnvelopeBuilder) ReplyTo(id string) *EnvelopeBuilder {
	if bldr.err == nil {
		bldr.env.ReplyTo = id
	}
	return bldr
}

func (bldr *EnvelopeBuilder) CorrelationID(id string) *EnvelopeBuilder {
	if bldr.err == nil {
		bldr.env.CorrelationID = id
	}
	return bldr
}

func (bldr *EnvelopeBuilder) ThreadID(id string) *EnvelopeBuilder {
	if bldr.err == nil {
		bldr.env.ThreadID = id
	}
	return bldr
}

func (bldr *EnvelopeBuilder) Priority(p Priority) *EnvelopeBuilder {
	if bldr.err == nil {
		if p < PriorityLow || p > PriorityCritical {
			bldr.err = fmt.Errorf("priority %d out of range", p)
		} else {
			bldr.env.Priority = p
		}
	}
	return bldr
}

func (bldr *EnvelopeBuilder) Payload(payload any) *EnvelopeBuilder {
	if bldr.err == nil {
		bldr.env.Payload = payload
	}
	return bldr
}

// Metadata sets a single metadata entry.
func (bldr *EnvelopeBuilder) Metadata(key string, value any) *EnvelopeBuilder {
	if bldr.err == nil {
		if bldr.env.Metadata == nil {
			bldr.env.Metadata = make(map[string]any)
		}
		bldr.env.Metadata[key] = value
	}
	return bldr
}

// TTL sets the time to live, either as a time.Duration, as milliseconds (int) or as a duration string.
func (bldr *EnvelopeBuilder) TTL(ttl interface{}) *EnvelopeBuilder {
	if bldr.err != nil {
		return bldr
	}

	switch ttl := ttl.(type) {
	case time.Duration:
		bldr.env.TTL = ttl
	case int:
		bldr.env.TTL = time.Duration(ttl) * time.Millisecond
	case string:
		if dur, err := time.ParseDuration(ttl); err != nil {
			bldr.err = err
		} else {
			bldr.env.TTL = dur
		}
	default:
		bldr.err = fmt.Errorf("%T is neither a Duration, an int nor a string", ttl)
	}

	if bldr.err == nil && bldr.env.TTL < 0 {
		bldr.err = fmt.Errorf("TTL's duration %v < 0", bldr.env.TTL)
	}
	return bldr
}

func (bldr *EnvelopeBuilder) Encrypted(encrypted bool) *EnvelopeBuilder {
	if bldr.err == nil {
		bldr.env.Encrypted = encrypted
	}
	return bldr
}

// Build the Envelope. The Envelope is checked by CheckValid.
func (bldr *EnvelopeBuilder) Build() (*Envelope, error) {
	if bldr.err != nil {
		return nil, bldr.err
	}

	env := bldr.env.Clone()
	if err := env.CheckValid(); err != nil {
		return nil, err
	}
	return env, nil
}
