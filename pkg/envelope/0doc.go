// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package envelope provides the Envelope, the atomic communication unit exchanged between agents on a bus.
//
// An Envelope carries its addressing (From, To, Topic, ReplyTo), its correlation data (CorrelationID, ThreadID)
// and timing metadata (Timestamp, TTL) next to an opaque Payload. Envelopes are created either by the Builder or
// by the reply constructors NewResponse and NewErrorReply, which derive the addressing from a received Envelope.
package envelope
