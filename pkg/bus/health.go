// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bus

import "github.com/dtn7/agentbus/pkg/agent"

// Health is a snapshot of the Bus' state.
type Health struct {
	Running     bool                `json:"running"`
	TotalAgents int                 `json:"totalAgents"`
	ByState     map[agent.State]int `json:"byState"`
	ByRole      map[string]int      `json:"byRole"`
	QueueDepth  int                 `json:"queueDepth"`
	Delivered   uint64              `json:"delivered"`
	Failed      uint64              `json:"failed"`
}

// Health reports the Bus' current state.
func (b *Bus) Health() Health {
	agents := b.Agents()

	b.mutex.RLock()
	health := Health{
		Running:     b.cron != nil && !b.closed,
		TotalAgents: len(agents),
		ByState:     make(map[agent.State]int),
		ByRole:      make(map[string]int, len(b.roles)),
		QueueDepth:  len(b.queue),
	}
	for role, ids := range b.roles {
		health.ByRole[role] = len(ids)
	}
	b.mutex.RUnlock()

	for _, a := range agents {
		health.ByState[a.State()]++
	}
	health.Delivered = b.delivered.Load()
	health.Failed = b.failed.Load()

	return health
}
