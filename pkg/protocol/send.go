// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dtn7/agentbus/pkg/envelope"
)

// Send an Envelope from this Handler's Owner. The sender is always set to the Owner.
//
// BROADCAST Envelopes are cloned for every other known agent, MULTICAST Envelopes for each of their recipients
// and EVENT Envelopes with a topic but without recipients for each subscriber of this topic. All other
// Envelopes are routed once. The errors of all routings are aggregated.
func (h *Handler) Send(ctx context.Context, env *envelope.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env.From = h.owner.ID()
	if env.ID == "" {
		env.ID = envelope.NewID()
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = h.now()
	}

	if env.ThreadID != "" {
		h.record(env)
	}

	var targets []string
	switch {
	case env.Type == envelope.Broadcast:
		for _, id := range h.router.AgentIDs() {
			if id != env.From {
				targets = append(targets, id)
			}
		}

	case env.Type == envelope.Multicast:
		targets = env.To

	case env.Type == envelope.Event && env.Topic != "" && len(env.To) == 0:
		targets = h.Subscribers(env.Topic)

	default:
		return h.router.RouteMessage(env)
	}

	return h.fanOut(ctx, env, targets)
}

// fanOut routes a clone of an Envelope to each target concurrently.
func (h *Handler) fanOut(ctx context.Context, env *envelope.Envelope, targets []string) error {
	group, ctx := errgroup.WithContext(ctx)

	var (
		errsMutex sync.Mutex
		errs      error
	)

	for _, target := range targets {
		clone := env.Clone()
		clone.ID = envelope.NewID()
		clone.To = []string{target}

		group.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}

			if err := h.router.RouteMessage(clone); err != nil {
				errsMutex.Lock()
				errs = multierror.Append(errs, fmt.Errorf("sending %s to %s: %w", env.Type, clone.Recipient(), err))
				errsMutex.Unlock()
			}
			return nil
		})
	}

	// Routing errors are aggregated in errs; the group only waits.
	_ = group.Wait()

	h.log().WithFields(log.Fields{
		"type":    env.Type,
		"topic":   env.Topic,
		"targets": len(targets),
	}).Debug("Fanned out envelope")

	return errs
}
