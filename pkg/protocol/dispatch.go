// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// HandleMessage processes an Envelope delivered to this Handler's Owner.
//
// Expired Envelopes are dropped first. Replies matching a pending request resolve it. Envelopes belonging to
// a thread are appended to it. All others are dispatched to the HandlerFunc registered for their type.
// Failing HandlerFuncs are reported as HandlerError Events and, for REQUEST Envelopes, answered with an ERROR
// reply. Envelopes without a HandlerFunc are reported as MessageUnhandled Events, except for unmatched
// replies, which are dropped.
//
// HandleMessage does not return the errors of HandlerFuncs, as the bus would retry their delivery.
func (h *Handler) HandleMessage(ctx context.Context, env *envelope.Envelope) error {
	logger := h.log().WithFields(log.Fields{
		"envelope": env.ID,
		"type":     env.Type,
		"from":     env.From,
	})

	if env.IsExpired(h.now()) {
		logger.Debug("Dropping expired envelope")
		h.emit(h.newEvent(event.MessageExpired).WithEnvelope(env))
		return nil
	}

	if env.Type.IsReply() && env.CorrelationID != "" && h.resolve(env) {
		logger.Debug("Resolved pending request")
		return nil
	}

	if env.ThreadID != "" {
		h.record(env)
		return nil
	}

	fn, ok := h.handlerFor(env.Type)
	switch {
	case ok:
		if err := h.call(ctx, fn, env); err != nil {
			h.handlerFailed(ctx, env, err)
		}

	case env.Type.IsReply():
		logger.Debug("Dropping reply without pending request")

	default:
		logger.Debug("No handler for envelope")
		h.emit(h.newEvent(event.MessageUnhandled).WithEnvelope(env))
	}

	return nil
}

// call a HandlerFunc, converting panics to errors.
func (h *Handler) call(ctx context.Context, fn HandlerFunc, env *envelope.Envelope) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	return fn(ctx, env)
}

func (h *Handler) handlerFailed(ctx context.Context, env *envelope.Envelope, err error) {
	handlerErr := &HandlerError{MessageType: env.Type, EnvelopeID: env.ID, Err: err}

	h.log().WithFields(log.Fields{
		"envelope": env.ID,
		"type":     env.Type,
		"from":     env.From,
	}).WithError(err).Warn("Handler failed")

	h.emit(h.newEvent(event.HandlerError).WithEnvelope(env).WithError(handlerErr))

	if env.Type != envelope.Request || env.From == "" {
		return
	}

	if sendErr := h.Send(ctx, envelope.NewErrorReply(env, err)); sendErr != nil {
		h.log().WithField("envelope", env.ID).WithError(sendErr).Warn("Sending error reply failed")
	}
}
