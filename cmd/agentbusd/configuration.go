// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/agent"
	"github.com/dtn7/agentbus/pkg/bus"
	"github.com/dtn7/agentbus/pkg/cron"
	"github.com/dtn7/agentbus/pkg/protocol"
)

// tomlConfig describes the TOML-configuration.
type tomlConfig struct {
	Bus      busConf
	Protocol protocolConf
	Logging  logConf
	Monitor  monitorConf
	Archive  archiveConf
	Worker   []workerConf
}

// busConf describes the Bus-configuration block.
type busConf struct {
	MaxQueueSize    int    `toml:"max-queue-size"`
	RetryLimit      *int   `toml:"retry-limit"`
	ProcessInterval string `toml:"process-interval"`
}

// protocolConf describes the Protocol-configuration block, shared by all workers.
type protocolConf struct {
	RequestTimeout    string `toml:"request-timeout"`
	MaxThreadMessages int    `toml:"max-thread-messages"`
	ThreadMaxAge      string `toml:"thread-max-age"`
	CleanupInterval   string `toml:"cleanup-interval"`
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// monitorConf describes the Monitor-configuration block. An empty listen address disables the monitor.
type monitorConf struct {
	Listen string
	Buffer int
}

// archiveConf describes the Archive-configuration block. An empty directory disables the archive.
type archiveConf struct {
	Dir       string
	Retention string
}

// workerConf describes a Worker-configuration block.
type workerConf struct {
	Id            string
	Role          string
	Capabilities  []string
	MaxIterations int `toml:"max-iterations"`
}

// daemonConfig is the validated configuration.
type daemonConfig struct {
	bus      bus.Config
	protocol protocol.Config
	logging  logConf

	monitorListen string
	monitorBuffer int

	archiveDir       string
	archiveRetention time.Duration

	workers []agent.Config
}

// parseDuration parses an optional duration. Empty strings result in zero.
func parseDuration(key, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	} else if d < 0 {
		return 0, fmt.Errorf("%s: negative duration %v", key, d)
	}
	return d, nil
}

// checkLogging validates a Logging-configuration block.
func checkLogging(conf logConf) (errs error) {
	if conf.Level != "" {
		if _, err := log.ParseLevel(conf.Level); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}

	switch conf.Format {
	case "", "text", "json":
	default:
		errs = multierror.Append(errs, fmt.Errorf("logging.format: unknown format %q", conf.Format))
	}
	return
}

// applyLogging configures logrus based on a Logging-configuration block.
func applyLogging(conf logConf) {
	if conf.Level != "" {
		if lvl, err := log.ParseLevel(conf.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    conf.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("Failed to set log level. Please select one of the provided ones")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(conf.ReportCaller)

	switch conf.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})

	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})

	default:
		log.Warn("Unknown logging format")
	}
}

// decodeConfig reads the TOML file without validating it.
func decodeConfig(filename string) (conf tomlConfig, err error) {
	_, err = toml.DecodeFile(filename, &conf)
	return
}

// parseConfig reads and validates the TOML configuration. All problems are reported at once.
func parseConfig(filename string) (dc daemonConfig, err error) {
	conf, decErr := decodeConfig(filename)
	if decErr != nil {
		err = decErr
		return
	}

	var errs error
	addErr := func(e error) {
		if e != nil {
			errs = multierror.Append(errs, e)
		}
	}

	// Logging
	addErr(checkLogging(conf.Logging))
	dc.logging = conf.Logging

	// Bus
	dc.bus = bus.DefaultConfig()
	if conf.Bus.MaxQueueSize < 0 {
		addErr(fmt.Errorf("bus.max-queue-size: negative size %d", conf.Bus.MaxQueueSize))
	} else if conf.Bus.MaxQueueSize > 0 {
		dc.bus.MaxQueueSize = conf.Bus.MaxQueueSize
	}
	if conf.Bus.RetryLimit != nil {
		if *conf.Bus.RetryLimit < 0 {
			addErr(fmt.Errorf("bus.retry-limit: negative limit %d", *conf.Bus.RetryLimit))
		} else {
			dc.bus.MessageRetryLimit = *conf.Bus.RetryLimit
		}
	}
	if d, dErr := parseDuration("bus.process-interval", conf.Bus.ProcessInterval); dErr != nil {
		addErr(dErr)
	} else if d > 0 {
		dc.bus.ProcessInterval = d
	}

	// Protocol
	dc.protocol = protocol.DefaultConfig()
	if d, dErr := parseDuration("protocol.request-timeout", conf.Protocol.RequestTimeout); dErr != nil {
		addErr(dErr)
	} else if d > 0 {
		dc.protocol.RequestTimeout = d
	}
	if d, dErr := parseDuration("protocol.thread-max-age", conf.Protocol.ThreadMaxAge); dErr != nil {
		addErr(dErr)
	} else if d > 0 {
		dc.protocol.ThreadMaxAge = d
	}
	if d, dErr := parseDuration("protocol.cleanup-interval", conf.Protocol.CleanupInterval); dErr != nil {
		addErr(dErr)
	} else if d > 0 && d < cron.DefaultResolution {
		addErr(fmt.Errorf("protocol.cleanup-interval: %v is shorter than %v", d, cron.DefaultResolution))
	} else {
		dc.protocol.CleanupInterval = d
	}
	if conf.Protocol.MaxThreadMessages < 0 {
		addErr(fmt.Errorf("protocol.max-thread-messages: negative size %d", conf.Protocol.MaxThreadMessages))
	} else if conf.Protocol.MaxThreadMessages > 0 {
		dc.protocol.MaxThreadMessages = conf.Protocol.MaxThreadMessages
	}

	// Monitor
	dc.monitorListen = conf.Monitor.Listen
	dc.monitorBuffer = conf.Monitor.Buffer

	// Archive
	dc.archiveDir = conf.Archive.Dir
	if d, dErr := parseDuration("archive.retention", conf.Archive.Retention); dErr != nil {
		addErr(dErr)
	} else {
		dc.archiveRetention = d
	}

	// Worker
	if len(conf.Worker) == 0 {
		addErr(fmt.Errorf("worker: no worker configured"))
	}

	knownIds := make(map[string]struct{}, len(conf.Worker))
	for i, w := range conf.Worker {
		if w.Id == "" {
			addErr(fmt.Errorf("worker %d: empty id", i))
		} else if _, known := knownIds[w.Id]; known {
			addErr(fmt.Errorf("worker %d: duplicate id %q", i, w.Id))
		} else {
			knownIds[w.Id] = struct{}{}
		}

		if w.Role == "" {
			addErr(fmt.Errorf("worker %d: empty role", i))
		}
		if w.MaxIterations < 0 {
			addErr(fmt.Errorf("worker %d: negative max-iterations %d", i, w.MaxIterations))
		}

		dc.workers = append(dc.workers, agent.Config{
			ID:            w.Id,
			Role:          w.Role,
			Capabilities:  w.Capabilities,
			MaxIterations: w.MaxIterations,
		})
	}

	err = errs
	return
}
