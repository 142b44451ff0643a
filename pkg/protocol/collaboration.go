// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/coord"
	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// StartCollaboration creates a Session initiated by this Handler's Owner and invites other agents by a
// COLLABORATE_REQUEST. The initiator holds the Session's canonical state.
func (h *Handler) StartCollaboration(ctx context.Context, task any, invitees []string) (*coord.Session, error) {
	session := coord.NewSession("", h.owner.ID(), task, h.now())

	h.mutex.Lock()
	h.sessions[session.ID] = session
	snapshot := session.Clone()
	h.mutex.Unlock()

	if len(invitees) > 0 {
		env, err := envelope.Builder().
			Type(envelope.CollaborateRequest).
			From(h.owner.ID()).
			To(invitees...).
			Payload(CollaborationRequest{
				SessionID: session.ID,
				Initiator: h.owner.ID(),
				Task:      task,
				Invitees:  append([]string(nil), invitees...),
			}).
			Build()
		if err != nil {
			return nil, err
		}

		if err := h.multicast(ctx, env); err != nil {
			return snapshot, err
		}
	}

	h.log().WithFields(log.Fields{
		"session":  session.ID,
		"invitees": invitees,
	}).Info("Started collaboration")

	h.emit(h.newEvent(event.CollaborationStarted).WithData("session", session.ID).WithData("invitees", invitees))
	return snapshot, nil
}

// multicast fans out an Envelope of any type to each of its recipients.
func (h *Handler) multicast(ctx context.Context, env *envelope.Envelope) error {
	env.From = h.owner.ID()
	return h.fanOut(ctx, env, env.To)
}

// Collaboration returns a copy of a known Session, either owned or cached.
func (h *Handler) Collaboration(sessionID string) (*coord.Session, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	session, ok := h.sessions[sessionID]
	if !ok {
		return nil, false
	}
	return session.Clone(), true
}

// JoinCollaboration joins a Session and notifies its initiator. Unknown Sessions are cached as a stub.
func (h *Handler) JoinCollaboration(ctx context.Context, initiator, sessionID, role string) error {
	self := h.owner.ID()

	h.mutex.Lock()
	session, ok := h.sessions[sessionID]
	if !ok {
		session = coord.NewSession(sessionID, initiator, nil, h.now())
		h.sessions[sessionID] = session
	}
	session.Join(self, role, h.now())
	initiator = session.Initiator
	h.mutex.Unlock()

	if initiator == self {
		return nil
	}
	return h.sendToInitiator(ctx, envelope.CollaborateJoin, initiator, CollaborationJoin{SessionID: sessionID, Role: role})
}

// LeaveCollaboration marks the Owner as having left a Session and notifies its initiator.
func (h *Handler) LeaveCollaboration(ctx context.Context, sessionID string) error {
	self := h.owner.ID()

	h.mutex.Lock()
	session, ok := h.sessions[sessionID]
	if !ok {
		h.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	err := session.Leave(self, h.now())
	initiator := session.Initiator
	h.mutex.Unlock()

	if err != nil {
		return err
	}
	if initiator == self {
		h.evaluateSession(ctx, sessionID)
		return nil
	}
	return h.sendToInitiator(ctx, envelope.CollaborateLeave, initiator, CollaborationJoin{SessionID: sessionID})
}

// SubmitCollaborationResult records the Owner's result locally and sends it to the Session's initiator,
// together with the completeness of the local copy.
func (h *Handler) SubmitCollaborationResult(ctx context.Context, sessionID string, result any) error {
	self := h.owner.ID()

	h.mutex.Lock()
	session, ok := h.sessions[sessionID]
	if !ok {
		h.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	err := session.Submit(self, result, h.now())
	complete := session.IsComplete()
	initiator := session.Initiator
	h.mutex.Unlock()

	if err != nil {
		return err
	}
	if initiator == self {
		h.evaluateSession(ctx, sessionID)
		return nil
	}
	return h.sendToInitiator(ctx, envelope.CollaborateUpdate, initiator, CollaborationUpdate{
		SessionID: sessionID,
		Result:    result,
		Complete:  complete,
	})
}

// CancelCollaboration cancels an owned Session and informs all other participants.
func (h *Handler) CancelCollaboration(ctx context.Context, sessionID string) error {
	self := h.owner.ID()

	h.mutex.Lock()
	session, ok := h.sessions[sessionID]
	if !ok {
		h.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	if session.Initiator != self {
		h.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrNotInitiator, sessionID)
	}
	err := session.SetStatus(coord.SessionCancelled, h.now())
	participants := others(session.ParticipantIDs(), self)
	h.mutex.Unlock()

	if err != nil {
		return err
	}

	h.log().WithField("session", sessionID).Info("Cancelled collaboration")
	return h.notifyParticipants(ctx, sessionID, participants, coord.SessionCancelled)
}

func (h *Handler) notifyParticipants(ctx context.Context, sessionID string, participants []string, status coord.SessionStatus) error {
	if len(participants) == 0 {
		return nil
	}

	env, err := envelope.Builder().
		Type(envelope.CollaborateUpdate).
		From(h.owner.ID()).
		To(participants...).
		Payload(CollaborationUpdate{SessionID: sessionID, Status: status, Complete: status == coord.SessionCompleted}).
		Build()
	if err != nil {
		return err
	}
	return h.multicast(ctx, env)
}

func (h *Handler) sendToInitiator(ctx context.Context, mt envelope.MessageType, initiator string, payload any) error {
	env, err := envelope.Builder().
		Type(mt).
		From(h.owner.ID()).
		To(initiator).
		Payload(payload).
		Build()
	if err != nil {
		return err
	}
	return h.Send(ctx, env)
}

// ownedSession returns a Session initiated by this Owner; the caller must hold the mutex.
func (h *Handler) ownedSession(sessionID string) (*coord.Session, error) {
	session, ok := h.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	if session.Initiator != h.owner.ID() {
		return nil, fmt.Errorf("%w: %s", ErrNotInitiator, sessionID)
	}
	return session, nil
}

func (h *Handler) handleCollaborationJoin(_ context.Context, env *envelope.Envelope) error {
	join, err := payloadAs[CollaborationJoin](env)
	if err != nil {
		return err
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()

	session, err := h.ownedSession(join.SessionID)
	if err != nil {
		return err
	}
	if session.Status.IsTerminal() {
		return fmt.Errorf("%w: %s is %s", coord.ErrSessionTerminated, session.ID, session.Status)
	}

	session.Join(env.From, join.Role, h.now())
	if session.Status == coord.SessionPending {
		return session.SetStatus(coord.SessionActive, h.now())
	}
	return nil
}

func (h *Handler) handleCollaborationLeave(ctx context.Context, env *envelope.Envelope) error {
	leave, err := payloadAs[CollaborationJoin](env)
	if err != nil {
		return err
	}

	h.mutex.Lock()
	session, err := h.ownedSession(leave.SessionID)
	if err == nil {
		err = session.Leave(env.From, h.now())
	}
	h.mutex.Unlock()

	if err != nil {
		return err
	}
	h.evaluateSession(ctx, leave.SessionID)
	return nil
}

// handleCollaborationUpdate processes results at the initiator and status changes at the participants.
func (h *Handler) handleCollaborationUpdate(ctx context.Context, env *envelope.Envelope) error {
	update, err := payloadAs[CollaborationUpdate](env)
	if err != nil {
		return err
	}

	h.mutex.Lock()
	session, ok := h.sessions[update.SessionID]
	if !ok {
		h.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSession, update.SessionID)
	}

	if session.Initiator != h.owner.ID() {
		defer h.mutex.Unlock()

		if env.From != session.Initiator || update.Status == "" {
			return fmt.Errorf("%w: unexpected update for %s from %s", ErrNotInitiator, session.ID, env.From)
		}
		return session.SetStatus(update.Status, h.now())
	}

	err = session.Submit(env.From, update.Result, h.now())
	h.mutex.Unlock()

	if err != nil {
		return err
	}

	h.log().WithFields(log.Fields{
		"session":         update.SessionID,
		"from":            env.From,
		"sender_complete": update.Complete,
	}).Debug("Received collaboration result")

	h.evaluateSession(ctx, update.SessionID)
	return nil
}

// evaluateSession completes an owned Session once its canonical copy holds all results.
func (h *Handler) evaluateSession(ctx context.Context, sessionID string) {
	self := h.owner.ID()

	h.mutex.Lock()
	session, err := h.ownedSession(sessionID)
	if err != nil || session.Status.IsTerminal() || len(session.Results) == 0 || !session.IsComplete() {
		h.mutex.Unlock()
		return
	}
	_ = session.SetStatus(coord.SessionCompleted, h.now())
	snapshot := session.Clone()
	participants := others(session.ParticipantIDs(), self)
	h.mutex.Unlock()

	h.log().WithFields(log.Fields{
		"session": sessionID,
		"results": len(snapshot.Results),
	}).Info("Completed collaboration")

	h.emit(h.newEvent(event.CollaborationCompleted).
		WithData("session", sessionID).
		WithData("results", snapshot.Results))

	if err := h.notifyParticipants(ctx, sessionID, participants, coord.SessionCompleted); err != nil {
		h.log().WithField("session", sessionID).WithError(err).Warn("Notifying participants failed")
	}
}

func others(ids []string, self string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != self {
			out = append(out, id)
		}
	}
	return out
}
