// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// DelegateTask sends a TASK_DELEGATE Envelope and returns it. Replies carry its correlation id; matching them
// is up to the caller.
func (h *Handler) DelegateTask(ctx context.Context, to string, req TaskRequest) (*envelope.Envelope, error) {
	env, err := envelope.Builder().
		Type(envelope.TaskDelegate).
		From(h.owner.ID()).
		To(to).
		CorrelationID(envelope.NewID()).
		Priority(req.Priority).
		Payload(req).
		Build()
	if err != nil {
		return nil, err
	}

	if err := h.Send(ctx, env); err != nil {
		return nil, err
	}

	h.log().WithFields(log.Fields{
		"to":          to,
		"correlation": env.CorrelationID,
	}).Debug("Delegated task")

	h.emit(h.newEvent(event.TaskDelegated).WithEnvelope(env).WithData("to", to))
	return env, nil
}

// AcceptTask answers a TASK_DELEGATE Envelope with TASK_ACCEPT.
func (h *Handler) AcceptTask(ctx context.Context, delegation *envelope.Envelope) error {
	return h.Send(ctx, envelope.NewReply(delegation, envelope.TaskAccept, TaskAnswer{Accepted: true}))
}

// RejectTask answers a TASK_DELEGATE Envelope with TASK_REJECT.
func (h *Handler) RejectTask(ctx context.Context, delegation *envelope.Envelope, reason string) error {
	return h.Send(ctx, envelope.NewReply(delegation, envelope.TaskReject, TaskAnswer{Reason: reason}))
}

// ReportProgress sends TASK_PROGRESS for a delegated task, identified by its correlation id.
func (h *Handler) ReportProgress(ctx context.Context, to, correlationID string, progress float64, message string) error {
	return h.sendTaskUpdate(ctx, envelope.TaskProgress, to, correlationID, TaskUpdate{Progress: progress, Message: message})
}

// CompleteTask sends TASK_COMPLETE for a delegated task, identified by its correlation id.
func (h *Handler) CompleteTask(ctx context.Context, to, correlationID string, result any) error {
	return h.sendTaskUpdate(ctx, envelope.TaskComplete, to, correlationID, TaskUpdate{Progress: 1, Result: result})
}

// FailTask sends TASK_FAILED for a delegated task, identified by its correlation id.
func (h *Handler) FailTask(ctx context.Context, to, correlationID string, reason error) error {
	update := TaskUpdate{}
	if reason != nil {
		update.Error = reason.Error()
	}
	return h.sendTaskUpdate(ctx, envelope.TaskFailed, to, correlationID, update)
}

func (h *Handler) sendTaskUpdate(ctx context.Context, mt envelope.MessageType, to, correlationID string, update TaskUpdate) error {
	env, err := envelope.Builder().
		Type(mt).
		From(h.owner.ID()).
		To(to).
		CorrelationID(correlationID).
		Payload(update).
		Build()
	if err != nil {
		return err
	}

	return h.Send(ctx, env)
}
