// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package coord

import (
	"fmt"
	"sort"
	"time"

	"github.com/dtn7/agentbus/pkg/envelope"
)

// ThreadStatus of a Thread.
type ThreadStatus string

const (
	ThreadActive   ThreadStatus = "active"
	ThreadClosed   ThreadStatus = "closed"
	ThreadArchived ThreadStatus = "archived"
)

// Thread is a conversation, an append-only sequence of Envelopes between a set of participants.
type Thread struct {
	ID           string
	Participants map[string]struct{}
	Messages     []*envelope.Envelope
	Status       ThreadStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time

	// MaxMessages limits the stored history. Older Envelopes are discarded first; zero disables the limit.
	MaxMessages int
}

// NewThread creates an active Thread. An empty id results in a generated one.
func NewThread(id string, now time.Time, participants ...string) *Thread {
	if id == "" {
		id = envelope.NewID()
	}

	t := &Thread{
		ID:           id,
		Participants: make(map[string]struct{}),
		Status:       ThreadActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	for _, p := range participants {
		t.AddParticipant(p)
	}
	return t
}

// AddParticipant adds an agent to the participants. Empty ids are ignored.
func (t *Thread) AddParticipant(id string) {
	if id != "" {
		t.Participants[id] = struct{}{}
	}
}

// HasParticipant checks if the agent takes part in this Thread.
func (t *Thread) HasParticipant(id string) bool {
	_, ok := t.Participants[id]
	return ok
}

// ParticipantIDs returns the sorted participant ids.
func (t *Thread) ParticipantIDs() []string {
	ids := make([]string, 0, len(t.Participants))
	for id := range t.Participants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Append an Envelope to an active Thread. Its sender and recipients become participants.
func (t *Thread) Append(env *envelope.Envelope, now time.Time) error {
	if t.Status != ThreadActive {
		return fmt.Errorf("%w: %s is %s", ErrThreadNotActive, t.ID, t.Status)
	}

	t.AddParticipant(env.From)
	for _, to := range env.To {
		t.AddParticipant(to)
	}

	t.Messages = append(t.Messages, env)
	if t.MaxMessages > 0 && len(t.Messages) > t.MaxMessages {
		t.Messages = append([]*envelope.Envelope(nil), t.Messages[len(t.Messages)-t.MaxMessages:]...)
	}

	t.UpdatedAt = now
	return nil
}

// History returns up to limit of the most recent Envelopes, the most recent one last. A limit of zero or
// less returns the whole history.
func (t *Thread) History(limit int) []*envelope.Envelope {
	start := 0
	if limit > 0 && len(t.Messages) > limit {
		start = len(t.Messages) - limit
	}
	return append([]*envelope.Envelope(nil), t.Messages[start:]...)
}

// Close an active Thread. Closing an already closed Thread is a no-op.
func (t *Thread) Close(now time.Time) {
	if t.Status == ThreadActive {
		t.Status = ThreadClosed
		t.UpdatedAt = now
	}
}

// Archive marks the Thread as archived.
func (t *Thread) Archive(now time.Time) {
	if t.Status != ThreadArchived {
		t.Status = ThreadArchived
		t.UpdatedAt = now
	}
}

// Clone creates a copy of this Thread. Envelopes are shared.
func (t *Thread) Clone() *Thread {
	clone := *t
	clone.Participants = make(map[string]struct{}, len(t.Participants))
	for p := range t.Participants {
		clone.Participants[p] = struct{}{}
	}
	clone.Messages = append([]*envelope.Envelope(nil), t.Messages...)
	return &clone
}
