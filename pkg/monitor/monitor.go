// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package monitor exposes a Bus over HTTP for inspection.
//
// The REST routes report the bus' health and its registered agents and accept Envelopes for delivery. The
// /events route upgrades to a WebSocket, streaming all bus Events as JSON.
package monitor

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/agent"
	"github.com/dtn7/agentbus/pkg/bus"
	"github.com/dtn7/agentbus/pkg/envelope"
)

// DefaultStreamBuffer is the number of Events buffered per WebSocket client before Events are dropped.
const DefaultStreamBuffer = 256

// AgentView is the JSON representation of a registered Agent.
type AgentView struct {
	ID           string      `json:"id"`
	Role         string      `json:"role"`
	State        agent.State `json:"state"`
	Capabilities []string    `json:"capabilities"`
}

// RouteResponse answers a POST /messages request.
type RouteResponse struct {
	ID    string `json:"id,omitempty"`
	Error string `json:"error,omitempty"`
}

// Monitor is a http.Handler for a Bus.
type Monitor struct {
	bus      *bus.Bus
	router   *mux.Router
	upgrader websocket.Upgrader
	buffer   int

	mutex   sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
}

// New creates a Monitor for a Bus. A non-positive buffer selects DefaultStreamBuffer.
func New(b *bus.Bus, buffer int) *Monitor {
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}

	m := &Monitor{
		bus:     b,
		router:  mux.NewRouter(),
		buffer:  buffer,
		clients: make(map[*streamClient]struct{}),
	}

	m.router.HandleFunc("/health", m.handleHealth).Methods(http.MethodGet)
	m.router.HandleFunc("/agents", m.handleAgents).Methods(http.MethodGet)
	m.router.HandleFunc("/agents/{id}", m.handleAgent).Methods(http.MethodGet)
	m.router.HandleFunc("/messages", m.handleRoute).Methods(http.MethodPost)
	m.router.HandleFunc("/events", m.handleEvents).Methods(http.MethodGet)

	return m
}

// ServeHTTP is a http.Handler to be bound to a HTTP endpoint, e.g., /monitor.
func (m *Monitor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.router.ServeHTTP(w, r)
}

// Close disconnects all WebSocket clients.
func (m *Monitor) Close() {
	m.mutex.Lock()
	m.closed = true
	clients := make([]*streamClient, 0, len(m.clients))
	for client := range m.clients {
		clients = append(clients, client)
	}
	m.mutex.Unlock()

	for _, client := range clients {
		client.shutdown()
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warn("Failed to write monitor response")
	}
}

func viewOf(a agent.Agent) AgentView {
	return AgentView{
		ID:           a.ID(),
		Role:         a.Role(),
		State:        a.State(),
		Capabilities: a.Capabilities(),
	}
}

// handleHealth processes /health GET requests.
func (m *Monitor) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, m.bus.Health())
}

// handleAgents processes /agents GET requests.
func (m *Monitor) handleAgents(w http.ResponseWriter, _ *http.Request) {
	agents := m.bus.Agents()
	views := make([]AgentView, 0, len(agents))
	for _, a := range agents {
		views = append(views, viewOf(a))
	}
	writeJSON(w, http.StatusOK, views)
}

// handleAgent processes /agents/{id} GET requests.
func (m *Monitor) handleAgent(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if a, ok := m.bus.Agent(id); ok {
		writeJSON(w, http.StatusOK, viewOf(a))
	} else {
		writeJSON(w, http.StatusNotFound, RouteResponse{Error: "unknown agent " + id})
	}
}

// handleRoute processes /messages POST requests, queuing the posted Envelope.
func (m *Monitor) handleRoute(w http.ResponseWriter, r *http.Request) {
	var env envelope.Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		writeJSON(w, http.StatusBadRequest, RouteResponse{Error: err.Error()})
		return
	}

	if env.ID == "" {
		env.ID = envelope.NewID()
	}
	if env.Timestamp.IsZero() {
		env.Timestamp = time.Now()
	}

	err := m.bus.RouteMessage(&env)

	log.WithFields(log.Fields{
		"envelope": env.ID,
		"type":     env.Type,
		"to":       env.To,
		"error":    err,
	}).Info("Processing monitor message")

	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, RouteResponse{ID: env.ID})
	case errors.Is(err, bus.ErrQueueFull), errors.Is(err, bus.ErrClosed):
		writeJSON(w, http.StatusServiceUnavailable, RouteResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusBadRequest, RouteResponse{Error: err.Error()})
	}
}

// handleEvents upgrades /events GET requests to a WebSocket Event stream.
func (m *Monitor) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, connErr := m.upgrader.Upgrade(w, r, nil)
	if connErr != nil {
		log.WithError(connErr).Warn("Upgrading HTTP request to WebSocket errored")
		return
	}

	client := newStreamClient(conn, m.buffer)

	m.mutex.Lock()
	if m.closed {
		m.mutex.Unlock()
		_ = conn.Close()
		return
	}
	m.clients[client] = struct{}{}
	m.mutex.Unlock()

	cancel := m.bus.Events().Observe(client.events)
	client.start()
	cancel()

	m.mutex.Lock()
	delete(m.clients, client)
	m.mutex.Unlock()
}
