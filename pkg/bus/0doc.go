// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package bus implements the in-process message bus connecting Agents.
//
// The Bus is a directory of registered Agents, indexed by their id and their role, and a FIFO queue of
// Envelopes. RouteMessage only enqueues an Envelope; a processor, driven by a Cron, drains the queue on a
// fixed tick and hands each Envelope to its targets' ProcessMessage method. Failed deliveries are re-queued at
// the tail until a retry limit is exceeded. All outcomes are published as Events.
//
// Besides queued delivery, SendTask and Broadcast address Agents directly, bypassing the queue.
package bus
