// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/envelope"
)

type pendingResult struct {
	env *envelope.Envelope
	err error
}

// pendingRequest awaits a reply. It is removed from the pending map by exactly one settle call.
type pendingRequest struct {
	to     string
	result chan pendingResult
	timer  *time.Timer
}

type requestOptions struct {
	timeout  time.Duration
	priority envelope.Priority
	metadata map[string]any
}

// RequestOption configures a single Request.
type RequestOption func(*requestOptions)

// WithTimeout overrides the configured RequestTimeout.
func WithTimeout(timeout time.Duration) RequestOption {
	return func(ro *requestOptions) {
		if timeout > 0 {
			ro.timeout = timeout
		}
	}
}

// WithPriority sets the request's priority, PriorityNormal by default.
func WithPriority(priority envelope.Priority) RequestOption {
	return func(ro *requestOptions) {
		ro.priority = priority
	}
}

// WithMetadata adds a metadata entry to the request.
func WithMetadata(key string, value any) RequestOption {
	return func(ro *requestOptions) {
		if ro.metadata == nil {
			ro.metadata = make(map[string]any)
		}
		ro.metadata[key] = value
	}
}

// Request sends a REQUEST Envelope and blocks until its reply arrives.
//
// The reply is returned for a RESPONSE and a *RemoteError for an ERROR. Without a reply, ErrRequestTimeout is
// returned after the timeout. The same timeout is used as the request's TTL, so that the request is dropped by
// its recipient if it was not delivered in time. A canceled context aborts the wait.
//
// Request must not be called from a HandlerFunc or ProcessMessage, as this blocks the bus until it times out.
func (h *Handler) Request(ctx context.Context, to string, payload any, opts ...RequestOption) (*envelope.Envelope, error) {
	ro := requestOptions{
		timeout:  h.conf.RequestTimeout,
		priority: envelope.PriorityNormal,
	}
	for _, opt := range opts {
		opt(&ro)
	}

	bldr := envelope.Builder().
		Type(envelope.Request).
		From(h.owner.ID()).
		To(to).
		CorrelationID(envelope.NewID()).
		Priority(ro.priority).
		Payload(payload).
		TTL(ro.timeout)
	for k, v := range ro.metadata {
		bldr.Metadata(k, v)
	}

	env, err := bldr.Build()
	if err != nil {
		return nil, err
	}

	pr := &pendingRequest{to: to, result: make(chan pendingResult, 1)}

	h.mutex.Lock()
	h.pending[env.CorrelationID] = pr
	pr.timer = time.AfterFunc(ro.timeout, func() {
		h.settle(env.CorrelationID, pendingResult{
			err: fmt.Errorf("%w: no reply from %s within %v", ErrRequestTimeout, to, ro.timeout),
		})
	})
	h.mutex.Unlock()

	if err := h.Send(ctx, env); err != nil {
		h.settle(env.CorrelationID, pendingResult{err: err})
		return nil, (<-pr.result).err
	}

	select {
	case res := <-pr.result:
		return res.env, res.err

	case <-ctx.Done():
		if h.settle(env.CorrelationID, pendingResult{err: ctx.Err()}) {
			return nil, ctx.Err()
		}
		// Settled concurrently by a reply or the timer.
		res := <-pr.result
		return res.env, res.err
	}
}

// settle removes a pending request and hands over its result. Only the first call for a correlation id
// succeeds.
func (h *Handler) settle(correlationID string, res pendingResult) bool {
	h.mutex.Lock()
	pr, ok := h.pending[correlationID]
	if ok {
		delete(h.pending, correlationID)
	}
	h.mutex.Unlock()

	if !ok {
		return false
	}

	pr.timer.Stop()
	pr.result <- res
	return true
}

// resolve a pending request by a RESPONSE or ERROR Envelope.
func (h *Handler) resolve(env *envelope.Envelope) bool {
	res := pendingResult{env: env}
	if env.Type == envelope.Error {
		res = pendingResult{err: newRemoteError(env)}
	}

	return h.settle(env.CorrelationID, res)
}

// Pending returns the number of requests awaiting a reply.
func (h *Handler) Pending() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	return len(h.pending)
}

// failPending rejects all pending requests, e.g., on shutdown.
func (h *Handler) failPending(err error) {
	h.mutex.Lock()
	ids := make([]string, 0, len(h.pending))
	for id := range h.pending {
		ids = append(ids, id)
	}
	h.mutex.Unlock()

	for _, id := range ids {
		h.settle(id, pendingResult{err: err})
	}

	if len(ids) > 0 {
		h.log().WithFields(log.Fields{
			"requests": len(ids),
		}).WithError(err).Debug("Rejected pending requests")
	}
}
