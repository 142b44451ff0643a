// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/coord"
	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// Owner is the Agent a Handler acts for. Every agent.Agent is an Owner.
type Owner interface {
	ID() string
	Capabilities() []string
	Events() *event.Emitter
}

// Router delivers Envelopes. It is implemented by *bus.Bus.
type Router interface {
	RouteMessage(env *envelope.Envelope) error
	AgentIDs() []string
}

// ThreadArchive persists archived threads. It is implemented by *storage.Archive.
type ThreadArchive interface {
	Store(thread *coord.Thread) error
}

// HandlerFunc processes an Envelope of a specific MessageType.
type HandlerFunc func(ctx context.Context, env *envelope.Envelope) error

// Handler is an Agent's protocol layer. It must be created by New and attached to its Agent, e.g., by
// agent.Base.Attach, to receive Envelopes.
type Handler struct {
	owner  Owner
	router Router
	conf   Config

	mutex         sync.Mutex
	handlers      map[envelope.MessageType]HandlerFunc
	pending       map[string]*pendingRequest
	threads       map[string]*coord.Thread
	sessions      map[string]*coord.Session
	proposals     map[string]*coord.Proposal
	subscriptions map[string]struct{}
	subscribers   map[string]map[string]struct{}
	archive       ThreadArchive

	// now is replaced in tests.
	now func() time.Time
}

// New creates a Handler for an Owner, sending through a Router.
func New(owner Owner, router Router, conf Config) *Handler {
	h := &Handler{
		owner:         owner,
		router:        router,
		conf:          conf.withDefaults(),
		handlers:      make(map[envelope.MessageType]HandlerFunc),
		pending:       make(map[string]*pendingRequest),
		threads:       make(map[string]*coord.Thread),
		sessions:      make(map[string]*coord.Session),
		proposals:     make(map[string]*coord.Proposal),
		subscriptions: make(map[string]struct{}),
		subscribers:   make(map[string]map[string]struct{}),
		now:           time.Now,
	}

	h.handlers[envelope.Ping] = h.handlePing
	h.handlers[envelope.CapabilityQuery] = h.handleCapabilityQuery
	h.handlers[envelope.Vote] = h.handleVote
	h.handlers[envelope.CollaborateJoin] = h.handleCollaborationJoin
	h.handlers[envelope.CollaborateLeave] = h.handleCollaborationLeave
	h.handlers[envelope.CollaborateUpdate] = h.handleCollaborationUpdate

	return h
}

// ID of the Handler's Owner.
func (h *Handler) ID() string {
	return h.owner.ID()
}

// Config returns the effective configuration.
func (h *Handler) Config() Config {
	return h.conf
}

// SetArchive configures the ThreadArchive used by ArchiveThread.
func (h *Handler) SetArchive(archive ThreadArchive) {
	h.mutex.Lock()
	h.archive = archive
	h.mutex.Unlock()
}

func (h *Handler) log() *log.Entry {
	return log.WithField("agent", h.owner.ID())
}

// emit an Event through the Owner's Emitter.
func (h *Handler) emit(e event.Event) {
	h.owner.Events().Emit(e)
}

func (h *Handler) newEvent(t event.Type) event.Event {
	return event.New(t, h.owner.ID())
}

// RegisterHandler registers or replaces the HandlerFunc for a MessageType, including the default ones.
func (h *Handler) RegisterHandler(mt envelope.MessageType, fn HandlerFunc) {
	h.mutex.Lock()
	h.handlers[mt] = fn
	h.mutex.Unlock()
}

// UnregisterHandler removes the HandlerFunc for a MessageType.
func (h *Handler) UnregisterHandler(mt envelope.MessageType) {
	h.mutex.Lock()
	delete(h.handlers, mt)
	h.mutex.Unlock()
}

func (h *Handler) handlerFor(mt envelope.MessageType) (HandlerFunc, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	fn, ok := h.handlers[mt]
	return fn, ok
}

func (h *Handler) handlePing(ctx context.Context, env *envelope.Envelope) error {
	return h.Send(ctx, envelope.NewReply(env, envelope.Pong, Pong{Status: StatusAlive}))
}

func (h *Handler) handleCapabilityQuery(ctx context.Context, env *envelope.Envelope) error {
	return h.Send(ctx, envelope.NewReply(env, envelope.CapabilityResponse, CapabilityResponse{
		Agent:        h.owner.ID(),
		Capabilities: h.owner.Capabilities(),
	}))
}
