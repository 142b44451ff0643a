// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package coord

import (
	"fmt"
	"maps"
	"time"

	"github.com/dtn7/agentbus/pkg/envelope"
)

// SessionStatus of a collaboration Session.
type SessionStatus string

const (
	SessionPending   SessionStatus = "pending"
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
	SessionCancelled SessionStatus = "cancelled"
)

// IsTerminal reports whether no further transition is defined.
func (ss SessionStatus) IsTerminal() bool {
	return ss == SessionCompleted || ss == SessionFailed || ss == SessionCancelled
}

// ParticipantStatus of a single Session participant.
type ParticipantStatus string

const (
	ParticipantActive ParticipantStatus = "active"
	ParticipantLeft   ParticipantStatus = "left"
)

// RoleInitiator is the role of a Session's initiator.
const RoleInitiator = "initiator"

// Participant of a collaboration Session.
type Participant struct {
	Role     string            `json:"role"`
	JoinedAt time.Time         `json:"joinedAt"`
	Status   ParticipantStatus `json:"status"`
}

// Session is a multi-party collaboration on some task, started by its initiator.
type Session struct {
	ID        string
	Initiator string
	Task      any

	Participants map[string]*Participant
	Results      map[string]any
	Status       SessionStatus

	CreatedAt time.Time
	UpdatedAt time.Time

	// order of joining, the initiator always being first
	order []string
}

// NewSession creates a pending Session with its initiator as the first participant.
func NewSession(id, initiator string, task any, now time.Time) *Session {
	if id == "" {
		id = envelope.NewID()
	}

	s := &Session{
		ID:           id,
		Initiator:    initiator,
		Task:         task,
		Participants: make(map[string]*Participant),
		Results:      make(map[string]any),
		Status:       SessionPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.Join(initiator, RoleInitiator, now)
	return s
}

// Join adds an agent as an active participant or reactivates a former one.
func (s *Session) Join(agentID, role string, now time.Time) {
	if p, ok := s.Participants[agentID]; ok {
		p.Status = ParticipantActive
		if role != "" {
			p.Role = role
		}
	} else {
		s.Participants[agentID] = &Participant{Role: role, JoinedAt: now, Status: ParticipantActive}
		s.order = append(s.order, agentID)
	}
	s.UpdatedAt = now
}

// Leave marks a participant as left.
func (s *Session) Leave(agentID string, now time.Time) error {
	p, ok := s.Participants[agentID]
	if !ok {
		return fmt.Errorf("%w: %s in session %s", ErrNotParticipant, agentID, s.ID)
	}

	p.Status = ParticipantLeft
	s.UpdatedAt = now
	return nil
}

// Submit records a participant's result.
func (s *Session) Submit(agentID string, result any, now time.Time) error {
	if s.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrSessionTerminated, s.ID, s.Status)
	}

	if p, ok := s.Participants[agentID]; !ok || p.Status != ParticipantActive {
		return fmt.Errorf("%w: %s in session %s", ErrNotParticipant, agentID, s.ID)
	}

	s.Results[agentID] = result
	s.UpdatedAt = now
	return nil
}

// ActiveCount returns the number of participants which have not left.
func (s *Session) ActiveCount() int {
	n := 0
	for _, p := range s.Participants {
		if p.Status == ParticipantActive {
			n++
		}
	}
	return n
}

// IsComplete holds iff there are at least as many results as active participants.
func (s *Session) IsComplete() bool {
	return len(s.Results) >= s.ActiveCount()
}

// ParticipantIDs returns all participants in order of joining, starting with the initiator.
func (s *Session) ParticipantIDs() []string {
	return append([]string(nil), s.order...)
}

// SetStatus moves the Session to a new status. Terminal states cannot be left.
func (s *Session) SetStatus(status SessionStatus, now time.Time) error {
	if s.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", ErrSessionTerminated, s.ID, s.Status)
	}

	s.Status = status
	s.UpdatedAt = now
	return nil
}

// Clone creates a deep copy of the Session's bookkeeping. Task and results are shared.
func (s *Session) Clone() *Session {
	clone := *s
	clone.Participants = make(map[string]*Participant, len(s.Participants))
	for id, p := range s.Participants {
		pCopy := *p
		clone.Participants[id] = &pCopy
	}
	clone.Results = maps.Clone(s.Results)
	clone.order = append([]string(nil), s.order...)
	return &clone
}
