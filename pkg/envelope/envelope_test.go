// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package envelope

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEnvelopeIsExpired(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		ttl     time.Duration
		age     time.Duration
		expired bool
	}{
		{"no ttl", 0, time.Hour, false},
		{"fresh", time.Second, 500 * time.Millisecond, false},
		{"elapsed", time.Second, 2 * time.Second, true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			env := &Envelope{Timestamp: now.Add(-test.age), TTL: test.ttl}
			if exp := env.IsExpired(now); exp != test.expired {
				t.Fatalf("IsExpired() = %t, expected %t", exp, test.expired)
			}
		})
	}
}

func TestEnvelopeClone(t *testing.T) {
	env, err := Builder().Type(Request).From("a").To("b", "c").Metadata("k", "v").Build()
	if err != nil {
		t.Fatal(err)
	}

	clone := env.Clone()
	clone.To[0] = "x"
	clone.Metadata["k"] = "changed"

	if env.To[0] != "b" {
		t.Fatalf("modifying the clone's recipients changed the original: %v", env.To)
	}
	if env.Metadata["k"] != "v" {
		t.Fatalf("modifying the clone's metadata changed the original: %v", env.Metadata)
	}
	if clone.ID != env.ID {
		t.Fatalf("clone has ID %s, expected %s", clone.ID, env.ID)
	}
}

func TestEnvelopeCheckValid(t *testing.T) {
	tests := []struct {
		name  string
		env   Envelope
		valid bool
	}{
		{"request", Envelope{ID: "1", Type: Request, To: []string{"b"}}, true},
		{"broadcast without recipient", Envelope{ID: "1", Type: Broadcast}, true},
		{"topic event without recipient", Envelope{ID: "1", Type: Event, Topic: "orders"}, true},
		{"request without recipient", Envelope{ID: "1", Type: Request}, false},
		{"unknown type", Envelope{ID: "1", Type: "FOO", To: []string{"b"}}, false},
		{"empty id", Envelope{Type: Request, To: []string{"b"}}, false},
		{"priority", Envelope{ID: "1", Type: Request, To: []string{"b"}, Priority: 23}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if err := test.env.CheckValid(); (err == nil) != test.valid {
				t.Fatalf("CheckValid() = %v, expected valid: %t", err, test.valid)
			}
		})
	}
}

func TestNewResponse(t *testing.T) {
	request, err := Builder().Type(Request).From("alice").To("bob").Payload("ping").Build()
	if err != nil {
		t.Fatal(err)
	}

	response := NewResponse(request, "pong")
	if response.Recipient() != "alice" || response.From != "bob" {
		t.Fatalf("response is addressed from %s to %v", response.From, response.To)
	}
	if response.CorrelationID != request.ID {
		t.Fatalf("response correlation %s, expected request's ID %s", response.CorrelationID, request.ID)
	}
	if response.ReplyTo != request.ID {
		t.Fatalf("response replies to %s, expected %s", response.ReplyTo, request.ID)
	}

	request.CorrelationID = "corr-1"
	if response := NewResponse(request, nil); response.CorrelationID != "corr-1" {
		t.Fatalf("response correlation %s, expected corr-1", response.CorrelationID)
	}
}

func TestNewErrorReply(t *testing.T) {
	request := &Envelope{ID: "req", Type: Request, From: "alice", To: []string{"bob"}, CorrelationID: "c"}

	reply := NewErrorReply(request, errTest("boom"))
	if reply.Type != Error {
		t.Fatalf("reply type %s", reply.Type)
	}
	if payload, ok := reply.Payload.(ErrorPayload); !ok || payload.Error != "boom" {
		t.Fatalf("unexpected payload %v", reply.Payload)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

func TestPriorityOrderAndJSON(t *testing.T) {
	ordered := []Priority{PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent, PriorityCritical}
	for i := 1; i < len(ordered); i++ {
		if ordered[i-1] >= ordered[i] {
			t.Fatalf("%v is not lower than %v", ordered[i-1], ordered[i])
		}
	}

	data, err := json.Marshal(PriorityUrgent)
	if err != nil {
		t.Fatal(err)
	} else if string(data) != `"URGENT"` {
		t.Fatalf("marshalled to %s", data)
	}

	var p Priority
	if err := json.Unmarshal([]byte(`"critical"`), &p); err != nil {
		t.Fatal(err)
	} else if p != PriorityCritical {
		t.Fatalf("unmarshalled to %v", p)
	}

	if err := json.Unmarshal([]byte(`"whatever"`), &p); err == nil {
		t.Fatal("unknown priority did not error")
	}
}

func TestEnvelopeJSONTTLMilliseconds(t *testing.T) {
	env, err := Builder().Type(Ping).From("a").To("b").TTL(30000).Build()
	if err != nil {
		t.Fatal(err)
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatal(err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatal(err)
	} else if ttl := fields["ttl"]; ttl != float64(30000) {
		t.Fatalf("ttl marshalled to %v", ttl)
	} else if fields["priority"] != "NORMAL" || fields["type"] != "PING" {
		t.Fatalf("unexpected fields %v", fields)
	}

	var decoded Envelope
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.TTL != 30*time.Second {
		t.Fatalf("ttl unmarshalled to %v", decoded.TTL)
	}
	if decoded.ID != env.ID || decoded.From != "a" || len(decoded.To) != 1 || decoded.To[0] != "b" {
		t.Fatalf("unexpected envelope %v", &decoded)
	}
	if !decoded.Timestamp.Equal(env.Timestamp) {
		t.Fatalf("timestamp %v differs from %v", decoded.Timestamp, env.Timestamp)
	}

	var plain Envelope
	if err := json.Unmarshal([]byte(`{"id": "x", "type": "PING", "to": ["b"]}`), &plain); err != nil {
		t.Fatal(err)
	} else if plain.TTL != 0 {
		t.Fatalf("missing ttl unmarshalled to %v", plain.TTL)
	}
}
