// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package coord

import "errors"

var (
	// ErrIneligibleVoter is returned if a vote is cast by an agent outside of a Proposal's voters.
	ErrIneligibleVoter = errors.New("voter is not eligible for this proposal")

	// ErrVotingClosed is returned if a vote is cast on a Proposal which is no longer open.
	ErrVotingClosed = errors.New("voting on this proposal is closed")

	// ErrThreadNotActive is returned when appending to a closed or archived Thread.
	ErrThreadNotActive = errors.New("thread is not active")

	// ErrNotParticipant is returned for operations by agents which are not part of a Session.
	ErrNotParticipant = errors.New("agent is not an active participant")

	// ErrSessionTerminated is returned when modifying a Session in a terminal state.
	ErrSessionTerminated = errors.New("collaboration session is terminated")
)
