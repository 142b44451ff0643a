// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package protocol implements the per-agent communication layer on top of the bus.
//
// Each Agent owns one Handler. The Handler sends Envelopes through the bus, fanning them out for BROADCAST,
// MULTICAST and topic EVENTs, and processes the Envelopes delivered to its Agent. Replies are matched to
// pending requests by their correlation id; everything else is appended to conversation threads or dispatched
// to handler functions registered per MessageType.
//
// On top of this, the Handler provides task delegation, multi-party collaboration sessions and quorum based
// consensus. All state, i.e., pending requests, threads, sessions, proposals and subscriptions, is owned by
// the Handler and only changed by its own Agent's messages.
package protocol
