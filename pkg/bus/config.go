// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package bus

import "time"

const (
	DefaultMaxQueueSize      = 10000
	DefaultMessageRetryLimit = 3
	DefaultProcessInterval   = 100 * time.Millisecond
)

// Config of a Bus.
type Config struct {
	// MaxQueueSize is the number of queued Envelopes after which RouteMessage fails with ErrQueueFull.
	MaxQueueSize int

	// MessageRetryLimit is the number of re-deliveries after a failed first attempt. Zero disables retries.
	MessageRetryLimit int

	// ProcessInterval is the tick of the queue processor.
	ProcessInterval time.Duration
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		MaxQueueSize:      DefaultMaxQueueSize,
		MessageRetryLimit: DefaultMessageRetryLimit,
		ProcessInterval:   DefaultProcessInterval,
	}
}

func (conf Config) withDefaults() Config {
	if conf.MaxQueueSize <= 0 {
		conf.MaxQueueSize = DefaultMaxQueueSize
	}
	if conf.MessageRetryLimit < 0 {
		conf.MessageRetryLimit = 0
	}
	if conf.ProcessInterval <= 0 {
		conf.ProcessInterval = DefaultProcessInterval
	}
	return conf
}
