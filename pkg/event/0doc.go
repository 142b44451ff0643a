// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package event describes the notifications emitted by agents, the bus and protocol handlers.
//
// Notifications are dispatched synchronously by an Emitter to its Observers. An Observer must not block; the
// Channel observer decouples slow consumers through a bounded buffer and counts Events it had to drop.
package event
