// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package agent describes the boundary between the bus and its worker agents.
//
// The bus only requires the Agent interface: an identity, a role, a ProcessMessage method for delivered
// Envelopes and an Emitter for lifecycle Events. Base is a reusable implementation, running an
// iterate-until-done loop for Tasks and passing all protocol traffic to an attached Handler.
package agent
