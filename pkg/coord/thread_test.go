// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package coord

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dtn7/agentbus/pkg/envelope"
)

func threadEnvelope(i int) *envelope.Envelope {
	return &envelope.Envelope{
		ID:   fmt.Sprintf("env-%d", i),
		Type: envelope.Request,
		From: "a",
		To:   []string{"b"},
	}
}

func TestThreadAppendAndHistory(t *testing.T) {
	now := time.Now()
	th := NewThread("", now, "a")

	for i := 0; i < 5; i++ {
		if err := th.Append(threadEnvelope(i), now); err != nil {
			t.Fatal(err)
		}
	}

	if !th.HasParticipant("b") {
		t.Fatalf("recipient did not become a participant: %v", th.ParticipantIDs())
	}

	hist := th.History(2)
	if len(hist) != 2 || hist[0].ID != "env-3" || hist[1].ID != "env-4" {
		t.Fatalf("unexpected history %v", hist)
	}

	if all := th.History(0); len(all) != 5 {
		t.Fatalf("full history has %d entries", len(all))
	}
}

func TestThreadMaxMessages(t *testing.T) {
	now := time.Now()
	th := NewThread("t", now)
	th.MaxMessages = 3

	for i := 0; i < 10; i++ {
		_ = th.Append(threadEnvelope(i), now)
	}

	if len(th.Messages) != 3 || th.Messages[0].ID != "env-7" {
		t.Fatalf("history was not trimmed: %v", th.Messages)
	}
}

func TestThreadClosedRefusesAppend(t *testing.T) {
	now := time.Now()
	th := NewThread("t", now)
	th.Close(now)

	if err := th.Append(threadEnvelope(0), now); !errors.Is(err, ErrThreadNotActive) {
		t.Fatalf("expected ErrThreadNotActive, got %v", err)
	}

	th.Archive(now)
	if th.Status != ThreadArchived {
		t.Fatalf("status is %s", th.Status)
	}
}
