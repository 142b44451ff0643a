// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/dtn7/agentbus/pkg/bus"
	"github.com/dtn7/agentbus/pkg/protocol"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	filename := filepath.Join(t.TempDir(), "agentbusd.toml")
	if err := os.WriteFile(filename, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return filename
}

func TestParseConfigExample(t *testing.T) {
	conf, err := parseConfig("agentbusd.toml")
	if err != nil {
		t.Fatal(err)
	}

	if conf.bus != bus.DefaultConfig() {
		t.Fatalf("expected default bus config, got %+v", conf.bus)
	}
	if conf.protocol.CleanupInterval != 10*time.Minute {
		t.Fatalf("unexpected cleanup interval %v", conf.protocol.CleanupInterval)
	}
	if conf.archiveRetention != 168*time.Hour {
		t.Fatalf("unexpected retention %v", conf.archiveRetention)
	}
	if conf.monitorListen != "localhost:8080" || conf.monitorBuffer != 256 {
		t.Fatalf("unexpected monitor config %q %d", conf.monitorListen, conf.monitorBuffer)
	}

	if len(conf.workers) != 3 {
		t.Fatalf("expected 3 workers, got %d", len(conf.workers))
	}
	if w := conf.workers[1]; w.ID != "worker-1" || w.Role != "execution" || w.MaxIterations != 5 {
		t.Fatalf("unexpected worker %+v", w)
	}
}

func TestParseConfigDefaults(t *testing.T) {
	filename := writeConfig(t, `
[[worker]]
id = "a"
role = "r"
`)

	conf, err := parseConfig(filename)
	if err != nil {
		t.Fatal(err)
	}

	if conf.bus != bus.DefaultConfig() {
		t.Fatalf("expected default bus config, got %+v", conf.bus)
	}
	if conf.protocol != protocol.DefaultConfig() {
		t.Fatalf("expected default protocol config, got %+v", conf.protocol)
	}
	if conf.archiveDir != "" || conf.monitorListen != "" {
		t.Fatal("archive and monitor should be disabled")
	}
}

func TestParseConfigRetryLimitZero(t *testing.T) {
	filename := writeConfig(t, `
[bus]
retry-limit = 0

[[worker]]
id = "a"
role = "r"
`)

	conf, err := parseConfig(filename)
	if err != nil {
		t.Fatal(err)
	}
	if conf.bus.MessageRetryLimit != 0 {
		t.Fatalf("expected retry limit 0, got %d", conf.bus.MessageRetryLimit)
	}
}

func TestParseConfigErrors(t *testing.T) {
	filename := writeConfig(t, `
[bus]
max-queue-size = -1
process-interval = "soon"

[protocol]
cleanup-interval = "1ms"

[logging]
level = "loud"
format = "xml"

[[worker]]
id = "a"
role = "r"

[[worker]]
id = "a"
`)

	_, err := parseConfig(filename)
	if err == nil {
		t.Fatal("expected an error")
	}

	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Fatalf("expected a multierror, got %T", err)
	}
	if l := len(merr.Errors); l != 7 {
		t.Fatalf("expected 7 errors, got %d: %v", l, err)
	}

	for _, key := range []string{"bus.max-queue-size", "bus.process-interval", "protocol.cleanup-interval",
		"logging.level", "logging.format", "duplicate id", "empty role"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("error misses %q: %v", key, err)
		}
	}
}

func TestParseConfigNoWorker(t *testing.T) {
	if _, err := parseConfig(writeConfig(t, "[logging]\nlevel = \"debug\"\n")); err == nil {
		t.Fatal("expected an error without workers")
	}
}

func TestParseConfigMissingFile(t *testing.T) {
	if _, err := parseConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
