// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import "time"

const (
	DefaultRequestTimeout    = 30 * time.Second
	DefaultMaxThreadMessages = 1000
	DefaultHeartbeatInterval = 60 * time.Second
	DefaultThreadMaxAge      = 24 * time.Hour
)

// Config of a Handler.
type Config struct {
	// RequestTimeout is used for requests without an explicit timeout. It also becomes the request's TTL.
	RequestTimeout time.Duration

	// MaxThreadMessages limits each thread's history; older Envelopes are discarded.
	MaxThreadMessages int

	// ThreadMaxAge is the age after which Cleanup evicts a thread, regardless of its status.
	ThreadMaxAge time.Duration

	// CleanupInterval is the interval for Schedule's cleanup job. Zero disables it.
	CleanupInterval time.Duration

	// The following values are accepted for compatibility, but not enforced. Retries are performed by the bus.
	MaxRetries        int
	RetryDelay        time.Duration
	EnableEncryption  bool
	HeartbeatInterval time.Duration
}

// DefaultConfig returns a Config with all defaults applied.
func DefaultConfig() Config {
	return Config{
		RequestTimeout:    DefaultRequestTimeout,
		MaxThreadMessages: DefaultMaxThreadMessages,
		ThreadMaxAge:      DefaultThreadMaxAge,
		HeartbeatInterval: DefaultHeartbeatInterval,
	}
}

func (conf Config) withDefaults() Config {
	if conf.RequestTimeout <= 0 {
		conf.RequestTimeout = DefaultRequestTimeout
	}
	if conf.MaxThreadMessages <= 0 {
		conf.MaxThreadMessages = DefaultMaxThreadMessages
	}
	if conf.ThreadMaxAge <= 0 {
		conf.ThreadMaxAge = DefaultThreadMaxAge
	}
	if conf.HeartbeatInterval <= 0 {
		conf.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if conf.CleanupInterval < 0 {
		conf.CleanupInterval = 0
	}
	return conf
}
