// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package coord contains the stateful aggregates agents coordinate on: conversation Threads, collaboration
// Sessions and consensus Proposals.
//
// The types are plain values without internal locking. They are owned by exactly one protocol handler, which
// serializes all access to them.
package coord
