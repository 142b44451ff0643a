// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package event

import (
	log "github.com/sirupsen/logrus"
)

// LogObserver writes all Events to logrus at the configured level.
type LogObserver struct {
	logger *log.Logger
	level  log.Level
}

// NewLogObserver creates a LogObserver. A nil logger falls back to logrus' standard logger.
func NewLogObserver(logger *log.Logger, level log.Level) *LogObserver {
	if logger == nil {
		logger = log.StandardLogger()
	}

	return &LogObserver{logger: logger, level: level}
}

// OnEvent logs the Event.
func (lo *LogObserver) OnEvent(e Event) {
	fields := log.Fields{
		"event":  e.Type,
		"source": e.Source,
	}
	if e.Envelope != nil {
		fields["envelope"] = e.Envelope.ID
		fields["message_type"] = e.Envelope.Type
	}
	for k, v := range e.Data {
		fields[k] = v
	}

	entry := lo.logger.WithFields(fields)
	if e.Err != nil {
		entry = entry.WithError(e.Err)
	}
	entry.Log(lo.level, "Event")
}
