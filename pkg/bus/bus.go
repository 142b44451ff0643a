// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/agent"
	"github.com/dtn7/agentbus/pkg/cron"
	"github.com/dtn7/agentbus/pkg/event"
)

// Source is the id used as the Event source and as the sender of Broadcast Envelopes.
const Source = "bus"

const processJob = "process_queue"

type registration struct {
	agent  agent.Agent
	cancel func()
}

// Bus is the directory and delivery queue for Agents. A Bus must be created by New.
type Bus struct {
	conf   Config
	events *event.Emitter

	mutex  sync.RWMutex
	agents map[string]*registration
	order  []string
	roles  map[string][]string
	queue  []*queueEntry
	cron   *cron.Cron
	closed bool

	processing atomic.Bool
	delivered  atomic.Uint64
	failed     atomic.Uint64

	ctx       context.Context
	ctxCancel context.CancelFunc
}

// New creates a Bus. The queue processor is not running before Start is called.
func New(conf Config) *Bus {
	ctx, ctxCancel := context.WithCancel(context.Background())

	return &Bus{
		conf:      conf.withDefaults(),
		events:    event.NewEmitter(Source),
		agents:    make(map[string]*registration),
		roles:     make(map[string][]string),
		ctx:       ctx,
		ctxCancel: ctxCancel,
	}
}

// Config returns the effective configuration.
func (b *Bus) Config() Config {
	return b.conf
}

// Events returns the Emitter for bus Events. The Agents' lifecycle Events are re-published here.
func (b *Bus) Events() *event.Emitter {
	return b.events
}

// Register an Agent. Its Init method is called before it becomes addressable.
func (b *Bus) Register(ctx context.Context, a agent.Agent) error {
	id := a.ID()

	b.mutex.Lock()
	if b.closed {
		b.mutex.Unlock()
		return ErrClosed
	}
	if _, exists := b.agents[id]; exists {
		b.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrDuplicateAgent, id)
	}
	// Reserve the id while Init runs.
	reg := &registration{agent: a}
	b.agents[id] = reg
	b.mutex.Unlock()

	if err := a.Init(ctx); err != nil {
		b.mutex.Lock()
		delete(b.agents, id)
		b.mutex.Unlock()

		return fmt.Errorf("initializing agent %s: %w", id, err)
	}

	cancel := a.Events().Observe(event.ObserverFunc(b.events.Emit))

	b.mutex.Lock()
	reg.cancel = cancel
	b.order = append(b.order, id)
	b.roles[a.Role()] = append(b.roles[a.Role()], id)
	b.mutex.Unlock()

	log.WithFields(log.Fields{
		"agent": id,
		"role":  a.Role(),
	}).Info("Registered agent")

	b.events.Emit(event.New(event.AgentRegistered, Source).WithData("agent", id).WithData("role", a.Role()))
	return nil
}

// Unregister an Agent by its id. The Agent's Shutdown method is called after its removal.
func (b *Bus) Unregister(ctx context.Context, id string) error {
	b.mutex.Lock()
	reg, exists := b.agents[id]
	if !exists || reg.cancel == nil {
		b.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrAgentNotFound, id)
	}
	b.remove(id, reg)
	b.mutex.Unlock()

	err := reg.agent.Shutdown(ctx)

	log.WithFields(log.Fields{
		"agent": id,
		"role":  reg.agent.Role(),
	}).Info("Unregistered agent")

	b.events.Emit(event.New(event.AgentUnregistered, Source).WithData("agent", id).WithData("role", reg.agent.Role()))

	if err != nil {
		return fmt.Errorf("shutting down agent %s: %w", id, err)
	}
	return nil
}

// remove an Agent from the directory; the caller must hold the mutex.
func (b *Bus) remove(id string, reg *registration) {
	reg.cancel()
	delete(b.agents, id)
	b.order = removeID(b.order, id)

	role := reg.agent.Role()
	if ids := removeID(b.roles[role], id); len(ids) > 0 {
		b.roles[role] = ids
	} else {
		delete(b.roles, role)
	}
}

func removeID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, other := range ids {
		if other != id {
			out = append(out, other)
		}
	}
	return out
}

// lookup a registered Agent; the caller must hold the mutex.
func (b *Bus) lookup(id string) (agent.Agent, bool) {
	reg, exists := b.agents[id]
	if !exists || reg.cancel == nil {
		return nil, false
	}
	return reg.agent, true
}

// Agent returns a registered Agent by its id.
func (b *Bus) Agent(id string) (agent.Agent, bool) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return b.lookup(id)
}

// Agents returns all registered Agents in their registration order.
func (b *Bus) Agents() []agent.Agent {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	agents := make([]agent.Agent, 0, len(b.order))
	for _, id := range b.order {
		agents = append(agents, b.agents[id].agent)
	}
	return agents
}

// AgentIDs returns all registered Agent ids in their registration order.
func (b *Bus) AgentIDs() []string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	return append([]string(nil), b.order...)
}

// AgentsByRole returns all Agents of a role in their registration order.
func (b *Bus) AgentsByRole(role string) []agent.Agent {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	agents := make([]agent.Agent, 0, len(b.roles[role]))
	for _, id := range b.roles[role] {
		agents = append(agents, b.agents[id].agent)
	}
	return agents
}

// Start the queue processor. Calling Start on a running Bus is a no-op.
func (b *Bus) Start() error {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if b.closed {
		return ErrClosed
	}
	if b.cron != nil {
		return nil
	}

	b.cron = cron.NewCronResolution(b.conf.ProcessInterval)
	if err := b.cron.Register(processJob, func() { b.ProcessQueue(b.ctx) }, b.conf.ProcessInterval); err != nil {
		b.cron.Stop()
		b.cron = nil
		return err
	}

	log.WithFields(log.Fields{
		"interval":    b.conf.ProcessInterval,
		"retry_limit": b.conf.MessageRetryLimit,
		"queue_size":  b.conf.MaxQueueSize,
	}).Info("Started bus queue processor")
	return nil
}

// Close stops the queue processor and shuts down all registered Agents. Queued Envelopes are discarded.
func (b *Bus) Close(ctx context.Context) error {
	b.mutex.Lock()
	if b.closed {
		b.mutex.Unlock()
		return nil
	}
	b.closed = true

	if b.cron != nil {
		b.cron.Stop()
	}
	b.ctxCancel()

	regs := make([]*registration, 0, len(b.order))
	for _, id := range b.order {
		reg := b.agents[id]
		regs = append(regs, reg)
		b.remove(id, reg)
	}
	dropped := len(b.queue)
	b.queue = nil
	b.mutex.Unlock()

	var errs error
	for _, reg := range regs {
		if err := reg.agent.Shutdown(ctx); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("shutting down agent %s: %w", reg.agent.ID(), err))
		}
		b.events.Emit(event.New(event.AgentUnregistered, Source).WithData("agent", reg.agent.ID()).WithData("role", reg.agent.Role()))
	}

	log.WithFields(log.Fields{
		"agents":  len(regs),
		"dropped": dropped,
	}).Info("Closed bus")

	return errs
}
