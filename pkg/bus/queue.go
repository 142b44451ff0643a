// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// queueEntry is an Envelope waiting for its delivery.
type queueEntry struct {
	env      *envelope.Envelope
	queuedAt time.Time
	retries  int
}

// RouteMessage enqueues an Envelope for delivery and returns immediately.
func (b *Bus) RouteMessage(env *envelope.Envelope) error {
	if env == nil {
		return fmt.Errorf("routing a nil envelope")
	}
	if err := env.CheckValid(); err != nil {
		return fmt.Errorf("routing envelope %s: %w", env.ID, err)
	}

	b.mutex.Lock()
	if b.closed {
		b.mutex.Unlock()
		return ErrClosed
	}
	if len(b.queue) >= b.conf.MaxQueueSize {
		b.mutex.Unlock()
		return fmt.Errorf("%w: %d envelopes queued", ErrQueueFull, b.conf.MaxQueueSize)
	}
	b.queue = append(b.queue, &queueEntry{env: env, queuedAt: time.Now()})
	b.mutex.Unlock()

	log.WithFields(log.Fields{
		"envelope": env.ID,
		"type":     env.Type,
		"from":     env.From,
		"to":       env.To,
	}).Debug("Queued envelope")

	b.events.Emit(event.New(event.MessageQueued, Source).WithEnvelope(env))
	return nil
}

// QueueLen returns the number of queued Envelopes.
func (b *Bus) QueueLen() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return len(b.queue)
}

// ProcessQueue delivers all currently queued Envelopes in FIFO order. Envelopes queued or re-queued while
// processing are left for the next call. Concurrent calls return immediately and report false.
//
// ProcessQueue is called by the processor started by Start. It is exported to drive a Bus manually.
func (b *Bus) ProcessQueue(ctx context.Context) bool {
	if !b.processing.CompareAndSwap(false, true) {
		log.Debug("Skipping queue processing, previous run is still active")
		return false
	}
	defer b.processing.Store(false)

	b.mutex.Lock()
	entries := b.queue
	b.queue = nil
	b.mutex.Unlock()

	for i, entry := range entries {
		if ctx.Err() != nil {
			b.requeue(entries[i:])
			break
		}
		b.process(ctx, entry)
	}
	return true
}

// requeue prepends unprocessed entries, keeping their order. A closed Bus discards them.
func (b *Bus) requeue(entries []*queueEntry) {
	b.mutex.Lock()
	if !b.closed {
		b.queue = append(append([]*queueEntry(nil), entries...), b.queue...)
	}
	b.mutex.Unlock()
}

// process delivers one entry to each of its targets. Targets failing recoverably are re-queued together at the
// tail while the entry's retries do not exceed the limit.
func (b *Bus) process(ctx context.Context, entry *queueEntry) {
	var retryTargets []string
	var retryErr error

	for _, target := range entry.env.To {
		err := b.deliver(ctx, entry.env, target)
		switch {
		case err == nil:
			b.delivered.Add(1)
			b.events.Emit(event.New(event.MessageDelivered, Source).WithEnvelope(entry.env).WithData("target", target))

		case errors.Is(err, ErrAgentNotFound):
			b.dropped(entry, target, entry.retries+1, err)

		default:
			retryTargets = append(retryTargets, target)
			retryErr = err
		}
	}

	if len(retryTargets) == 0 {
		return
	}

	entry.retries++
	if entry.retries > b.conf.MessageRetryLimit {
		for _, target := range retryTargets {
			b.dropped(entry, target, entry.retries, retryErr)
		}
		return
	}

	if len(retryTargets) != len(entry.env.To) {
		env := entry.env.Clone()
		env.To = retryTargets
		entry.env = env
	}

	log.WithFields(log.Fields{
		"envelope": entry.env.ID,
		"targets":  retryTargets,
		"retries":  entry.retries,
		"error":    retryErr,
	}).Debug("Re-queuing envelope after failed delivery")

	// Retries are re-appended regardless of the queue's capacity.
	b.mutex.Lock()
	if !b.closed {
		b.queue = append(b.queue, entry)
	}
	b.mutex.Unlock()
}

func (b *Bus) dropped(entry *queueEntry, target string, attempts int, err error) {
	b.failed.Add(1)

	deliveryErr := &DeliveryError{
		EnvelopeID: entry.env.ID,
		Target:     target,
		Attempts:   attempts,
		Err:        err,
	}

	log.WithFields(log.Fields{
		"envelope": entry.env.ID,
		"type":     entry.env.Type,
		"target":   target,
		"attempts": deliveryErr.Attempts,
		"queued":   entry.queuedAt,
	}).WithError(err).Warn("Dropping undeliverable envelope")

	b.events.Emit(event.New(event.MessageDeliveryFailed, Source).WithEnvelope(entry.env).WithError(deliveryErr))
}

// deliver an Envelope to a single target. Panics inside the target are converted to errors.
func (b *Bus) deliver(ctx context.Context, env *envelope.Envelope, target string) (err error) {
	a, ok := b.Agent(target)
	if !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, target)
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("agent %s panicked: %v", target, r)
		}
	}()

	return a.ProcessMessage(ctx, env)
}
