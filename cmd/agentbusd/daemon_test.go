// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"os"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/agent"
	"github.com/dtn7/agentbus/pkg/bus"
	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
	"github.com/dtn7/agentbus/pkg/protocol"
)

func testDaemonConfig(t *testing.T) daemonConfig {
	return daemonConfig{
		bus:              bus.Config{MaxQueueSize: 100, MessageRetryLimit: 1, ProcessInterval: 5 * time.Millisecond},
		protocol:         protocol.Config{RequestTimeout: 2 * time.Second},
		archiveDir:       t.TempDir(),
		archiveRetention: time.Hour,
		workers: []agent.Config{
			{ID: "planner", Role: "planning"},
			{ID: "worker", Role: "execution", Capabilities: []string{"echo"}},
		},
	}
}

func startTestDaemon(t *testing.T) *daemon {
	t.Helper()

	d, err := startDaemon(testDaemonConfig(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := d.Close(); err != nil {
			t.Fatal(err)
		}
	})
	return d
}

func TestDaemonRequest(t *testing.T) {
	d := startTestDaemon(t)

	resp, err := d.workers[0].handler.Request(context.Background(), "worker", "hello")
	if err != nil {
		t.Fatal(err)
	}
	if resp.Type != envelope.Response || resp.Payload != "hello" {
		t.Fatalf("unexpected response %v with payload %v", resp, resp.Payload)
	}
}

func TestDaemonDelegation(t *testing.T) {
	d := startTestDaemon(t)

	replies := event.NewChannel(16)
	defer replies.Close()
	cancel := d.bus.Events().Observe(event.Only(event.ObserverFunc(func(e event.Event) {
		if e.Envelope != nil && (e.Envelope.Type == envelope.TaskAccept || e.Envelope.Type == envelope.TaskComplete) {
			replies.OnEvent(e)
		}
	}), event.MessageDelivered))
	defer cancel()

	delegation, err := d.workers[0].handler.DelegateTask(context.Background(), "worker",
		protocol.TaskRequest{Task: agent.Task{ID: "t1", Input: 23}})
	if err != nil {
		t.Fatal(err)
	}

	var types []envelope.MessageType
	timeout := time.After(5 * time.Second)
	for len(types) < 2 {
		select {
		case e := <-replies.C():
			if e.Envelope.CorrelationID != delegation.CorrelationID {
				t.Fatalf("unexpected correlation id %s", e.Envelope.CorrelationID)
			}
			types = append(types, e.Envelope.Type)
		case <-timeout:
			t.Fatalf("received only %v", types)
		}
	}

	if types[0] != envelope.TaskAccept || types[1] != envelope.TaskComplete {
		t.Fatalf("unexpected replies %v", types)
	}
}

func TestDaemonArchive(t *testing.T) {
	d := startTestDaemon(t)
	h := d.workers[0].handler

	thread := h.StartThread("planner", "worker")
	if err := h.ArchiveThread(thread.ID); err != nil {
		t.Fatal(err)
	}
	if !d.archive.KnowsThread(thread.ID) {
		t.Fatal("thread was not stored")
	}
}

func TestWatchConfig(t *testing.T) {
	filename := writeConfig(t, "[logging]\nlevel = \"info\"\n")

	applied := make(chan logConf, 16)
	cw, err := watchConfig(filename, func(conf logConf) {
		select {
		case applied <- conf:
		default:
		}
	})
	if err != nil {
		t.Fatal(err)
	}
	defer cw.Close()

	if err := os.WriteFile(filename, []byte("[logging]\nlevel = \"debug\"\n"), 0600); err != nil {
		t.Fatal(err)
	}

	// A single write might be reported more than once, possibly while the file is still empty.
	timeout := time.After(5 * time.Second)
	for {
		select {
		case conf := <-applied:
			if conf.Level == log.DebugLevel.String() {
				return
			}
		case <-timeout:
			t.Fatal("configuration change was not applied")
		}
	}
}
