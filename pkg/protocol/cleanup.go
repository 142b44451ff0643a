// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"errors"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/coord"
	"github.com/dtn7/agentbus/pkg/cron"
)

// ErrHandlerClosed rejects the pending requests of a closed Handler.
var ErrHandlerClosed = errors.New("protocol handler closed")

// CleanupStats counts the entries evicted by Cleanup.
type CleanupStats struct {
	Threads   int
	Sessions  int
	Proposals int
}

// Cleanup evicts threads which are older than ThreadMaxAge or no longer active, collaboration sessions in a
// terminal state and proposals which are no longer open.
func (h *Handler) Cleanup(now time.Time) (stats CleanupStats) {
	h.mutex.Lock()
	for id, thread := range h.threads {
		if thread.Status != coord.ThreadActive || now.Sub(thread.CreatedAt) > h.conf.ThreadMaxAge {
			delete(h.threads, id)
			stats.Threads++
		}
	}
	for id, session := range h.sessions {
		if session.Status.IsTerminal() {
			delete(h.sessions, id)
			stats.Sessions++
		}
	}
	for id, p := range h.proposals {
		if p.Status != coord.ProposalOpen {
			delete(h.proposals, id)
			stats.Proposals++
		}
	}
	h.mutex.Unlock()

	if stats != (CleanupStats{}) {
		h.log().WithFields(log.Fields{
			"threads":   stats.Threads,
			"sessions":  stats.Sessions,
			"proposals": stats.Proposals,
		}).Debug("Cleaned up protocol state")
	}
	return
}

func (h *Handler) cleanupJob() string {
	return "protocol_cleanup_" + h.owner.ID()
}

// Schedule registers Cleanup on a Cron, running every CleanupInterval. Nothing is scheduled if the interval is
// zero.
func (h *Handler) Schedule(c *cron.Cron) error {
	if h.conf.CleanupInterval == 0 {
		return nil
	}

	return c.Register(h.cleanupJob(), func() { h.Cleanup(h.now()) }, h.conf.CleanupInterval)
}

// Close unregisters the cleanup job from a Cron, if given, and rejects all pending requests.
func (h *Handler) Close(c *cron.Cron) {
	if c != nil {
		c.Unregister(h.cleanupJob())
	}
	h.failPending(ErrHandlerClosed)
}
