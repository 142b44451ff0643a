// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dtn7/agentbus/pkg/agent"
	"github.com/dtn7/agentbus/pkg/bus"
	"github.com/dtn7/agentbus/pkg/event"
)

func newTestMonitor(t *testing.T, ids ...string) (*bus.Bus, *httptest.Server) {
	t.Helper()

	b := bus.New(bus.DefaultConfig())
	for _, id := range ids {
		a := agent.NewBase(agent.Config{ID: id, Role: "worker", Capabilities: []string{"echo"}})
		if err := b.Register(context.Background(), a); err != nil {
			t.Fatal(err)
		}
	}

	m := New(b, 0)
	server := httptest.NewServer(m)

	t.Cleanup(func() {
		m.Close()
		server.Close()
		_ = b.Close(context.Background())
	})

	return b, server
}

func getJSON(t *testing.T, url string, status int, v any) {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != status {
		t.Fatalf("GET %s: expected status %d, got %d", url, status, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatal(err)
	}
}

func TestMonitorHealth(t *testing.T) {
	_, server := newTestMonitor(t, "a", "b")

	var health bus.Health
	getJSON(t, server.URL+"/health", http.StatusOK, &health)

	if health.TotalAgents != 2 {
		t.Fatalf("expected 2 agents, got %d", health.TotalAgents)
	}
	if health.ByRole["worker"] != 2 {
		t.Fatalf("expected 2 workers, got %v", health.ByRole)
	}
	if health.ByState[agent.StateIdle] != 2 {
		t.Fatalf("expected 2 idle agents, got %v", health.ByState)
	}
	if health.Running {
		t.Fatal("bus was never started")
	}
}

func TestMonitorAgents(t *testing.T) {
	_, server := newTestMonitor(t, "a", "b")

	var views []AgentView
	getJSON(t, server.URL+"/agents", http.StatusOK, &views)

	if len(views) != 2 {
		t.Fatalf("expected 2 agents, got %v", views)
	}
	if views[0].ID != "a" || views[1].ID != "b" {
		t.Fatalf("unexpected agents %v", views)
	}

	var view AgentView
	getJSON(t, server.URL+"/agents/b", http.StatusOK, &view)
	if view.ID != "b" || view.Role != "worker" || view.State != agent.StateIdle {
		t.Fatalf("unexpected agent %v", view)
	}
	if len(view.Capabilities) != 1 || view.Capabilities[0] != "echo" {
		t.Fatalf("unexpected capabilities %v", view.Capabilities)
	}

	var resp RouteResponse
	getJSON(t, server.URL+"/agents/nope", http.StatusNotFound, &resp)
	if resp.Error == "" {
		t.Fatal("expected an error message")
	}
}

func TestMonitorRoute(t *testing.T) {
	b, server := newTestMonitor(t, "a")

	tests := []struct {
		body   string
		status int
		queued int
	}{
		{`{"type": "PING", "from": "cli", "to": ["a"], "priority": "high"}`, http.StatusAccepted, 1},
		{`{"type": "PING", "from": "cli"}`, http.StatusBadRequest, 1},
		{`{"type": "NOPE", "to": ["a"]}`, http.StatusBadRequest, 1},
		{`{"type": `, http.StatusBadRequest, 1},
	}

	for _, test := range tests {
		resp, err := http.Post(server.URL+"/messages", "application/json", strings.NewReader(test.body))
		if err != nil {
			t.Fatal(err)
		}

		var answer RouteResponse
		decErr := json.NewDecoder(resp.Body).Decode(&answer)
		resp.Body.Close()

		if decErr != nil {
			t.Fatal(decErr)
		}
		if resp.StatusCode != test.status {
			t.Fatalf("%s: expected status %d, got %d (%s)", test.body, test.status, resp.StatusCode, answer.Error)
		}
		if test.status == http.StatusAccepted && answer.ID == "" {
			t.Fatalf("%s: expected an envelope ID", test.body)
		}
		if l := b.QueueLen(); l != test.queued {
			t.Fatalf("%s: expected queue length %d, got %d", test.body, test.queued, l)
		}
	}
}

func TestMonitorRouteTTL(t *testing.T) {
	b, server := newTestMonitor(t, "a")

	queued := event.NewChannel(1)
	defer queued.Close()
	cancel := b.Events().Observe(event.Only(queued, event.MessageQueued))
	defer cancel()

	body := `{"type": "PING", "from": "cli", "to": ["a"], "ttl": 30000}`
	resp, err := http.Post(server.URL+"/messages", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected status %d, got %d", http.StatusAccepted, resp.StatusCode)
	}

	select {
	case e := <-queued.C():
		if e.Envelope.TTL != 30*time.Second {
			t.Fatalf("expected a TTL of 30s, got %v", e.Envelope.TTL)
		}
		if e.Envelope.IsExpired(time.Now()) {
			t.Fatal("envelope expired right away")
		}
	default:
		t.Fatal("envelope was not queued")
	}
}

func TestMonitorEvents(t *testing.T) {
	b, server := newTestMonitor(t)

	wsUrl := "ws" + strings.TrimPrefix(server.URL, "http") + "/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsUrl, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	// The server observes the bus shortly after the upgrade; emit until the first Event arrives.
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				b.Events().Emit(event.New(event.Escalation, "tester").WithData("reason", "test"))
			}
		}
	}()

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatal(err)
	}

	var msg EventMessage
	if err := json.NewDecoder(bytes.NewReader(data)).Decode(&msg); err != nil {
		t.Fatal(err)
	}
	if msg.Type != event.Escalation || msg.Source != "tester" {
		t.Fatalf("unexpected event %v", msg)
	}
	if msg.Data["reason"] != "test" {
		t.Fatalf("unexpected data %v", msg.Data)
	}
}
