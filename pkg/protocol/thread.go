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

// threadFor returns a thread, creating it if necessary; the caller must hold the mutex.
func (h *Handler) threadFor(threadID string) *coord.Thread {
	thread, ok := h.threads[threadID]
	if !ok {
		thread = coord.NewThread(threadID, h.now(), h.owner.ID())
		thread.MaxMessages = h.conf.MaxThreadMessages
		h.threads[thread.ID] = thread
	}
	return thread
}

// StartThread creates a new thread with the Owner and the given participants.
func (h *Handler) StartThread(participants ...string) *coord.Thread {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	thread := h.threadFor(envelope.NewID())
	for _, p := range participants {
		thread.AddParticipant(p)
	}

	h.log().WithField("thread", thread.ID).Debug("Started thread")
	return thread.Clone()
}

// Thread returns a copy of a known thread.
func (h *Handler) Thread(threadID string) (*coord.Thread, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	thread, ok := h.threads[threadID]
	if !ok {
		return nil, false
	}
	return thread.Clone(), true
}

// SendInThread sends an Envelope as part of a thread, which is created on demand. The Envelope is recorded
// in the Owner's copy of the thread.
func (h *Handler) SendInThread(ctx context.Context, threadID string, env *envelope.Envelope) error {
	h.mutex.Lock()
	thread := h.threadFor(threadID)
	status := thread.Status
	h.mutex.Unlock()

	if status != coord.ThreadActive {
		return fmt.Errorf("%w: %s is %s", coord.ErrThreadNotActive, threadID, status)
	}

	env.ThreadID = threadID
	return h.Send(ctx, env)
}

// ThreadHistory returns up to limit of a thread's latest Envelopes, the most recent one last. A limit of
// zero or less returns the whole history.
func (h *Handler) ThreadHistory(threadID string, limit int) ([]*envelope.Envelope, error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	thread, ok := h.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}
	return thread.History(limit), nil
}

// CloseThread closes a thread for further Envelopes.
func (h *Handler) CloseThread(threadID string) error {
	h.mutex.Lock()
	thread, ok := h.threads[threadID]
	if ok {
		thread.Close(h.now())
	}
	h.mutex.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}

	h.emit(h.newEvent(event.ThreadClosed).WithData("thread", threadID))
	return nil
}

// ArchiveThread marks a thread as archived and stores it in the configured ThreadArchive, if any.
func (h *Handler) ArchiveThread(threadID string) error {
	h.mutex.Lock()
	thread, ok := h.threads[threadID]
	if !ok {
		h.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownThread, threadID)
	}
	thread.Archive(h.now())
	snapshot := thread.Clone()
	archive := h.archive
	h.mutex.Unlock()

	if archive != nil {
		if err := archive.Store(snapshot); err != nil {
			return fmt.Errorf("archiving thread %s: %w", threadID, err)
		}
	}

	h.log().WithFields(log.Fields{
		"thread":   threadID,
		"messages": len(snapshot.Messages),
		"stored":   archive != nil,
	}).Info("Archived thread")

	h.emit(h.newEvent(event.ThreadArchived).WithData("thread", threadID))
	return nil
}

// record appends an Envelope to its thread.
func (h *Handler) record(env *envelope.Envelope) {
	h.mutex.Lock()
	err := h.threadFor(env.ThreadID).Append(env, h.now())
	h.mutex.Unlock()

	if err != nil {
		h.log().WithFields(log.Fields{
			"thread":   env.ThreadID,
			"envelope": env.ID,
		}).WithError(err).Debug("Dropping envelope for inactive thread")
	}
}
