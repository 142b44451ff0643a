// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"fmt"
	"time"

	"github.com/dtn7/agentbus/pkg/coord"
	"github.com/dtn7/agentbus/pkg/envelope"
)

// StatusAlive is the status reported in PONG Envelopes.
const StatusAlive = "alive"

// Pong is the payload of a PONG Envelope.
type Pong struct {
	Status string `json:"status"`
}

// CapabilityResponse is the payload of a CAPABILITY_RESPONSE Envelope.
type CapabilityResponse struct {
	Agent        string   `json:"agent"`
	Capabilities []string `json:"capabilities"`
}

// TaskRequest is the payload of a TASK_DELEGATE Envelope.
type TaskRequest struct {
	Task     any               `json:"task"`
	Priority envelope.Priority `json:"priority"`
	Deadline time.Time         `json:"deadline,omitempty"`
	Context  map[string]any    `json:"context,omitempty"`
}

// TaskAnswer is the payload of TASK_ACCEPT and TASK_REJECT Envelopes.
type TaskAnswer struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// TaskUpdate is the payload of TASK_PROGRESS, TASK_COMPLETE and TASK_FAILED Envelopes.
type TaskUpdate struct {
	Progress float64 `json:"progress,omitempty"`
	Message  string  `json:"message,omitempty"`
	Result   any     `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// CollaborationRequest is the payload of a COLLABORATE_REQUEST Envelope.
type CollaborationRequest struct {
	SessionID string   `json:"sessionId"`
	Initiator string   `json:"initiator"`
	Task      any      `json:"task"`
	Invitees  []string `json:"invitees"`
}

// CollaborationJoin is the payload of COLLABORATE_JOIN and COLLABORATE_LEAVE Envelopes.
type CollaborationJoin struct {
	SessionID string `json:"sessionId"`
	Role      string `json:"role,omitempty"`
}

// CollaborationUpdate is the payload of a COLLABORATE_UPDATE Envelope. Participants send their results,
// including their own view of the session's completeness. The initiator sends status changes.
type CollaborationUpdate struct {
	SessionID string              `json:"sessionId"`
	Result    any                 `json:"result,omitempty"`
	Complete  bool                `json:"complete"`
	Status    coord.SessionStatus `json:"status,omitempty"`
}

// ProposalRequest is the payload of a PROPOSE Envelope.
type ProposalRequest struct {
	ProposalID string       `json:"proposalId"`
	Proposal   any          `json:"proposal"`
	Policy     coord.Policy `json:"requiredVotes"`
	Voters     []string     `json:"voters"`
	Deadline   time.Time    `json:"deadline,omitempty"`
}

// VoteRequest is the payload of a VOTE Envelope.
type VoteRequest struct {
	ProposalID string `json:"proposalId"`
	Approve    bool   `json:"vote"`
	Reason     string `json:"reason,omitempty"`
}

// ConsensusResult is the payload of a CONSENSUS Envelope.
type ConsensusResult struct {
	ProposalID string               `json:"proposalId"`
	Status     coord.ProposalStatus `json:"status"`
	Approvals  int                  `json:"approvals"`
	Rejections int                  `json:"rejections"`
	Required   int                  `json:"required"`
}

// payloadAs extracts a typed payload, accepting both values and pointers.
func payloadAs[T any](env *envelope.Envelope) (T, error) {
	switch payload := env.Payload.(type) {
	case T:
		return payload, nil
	case *T:
		if payload != nil {
			return *payload, nil
		}
	}

	var zero T
	return zero, fmt.Errorf("%w: %s envelope %s carries %T instead of %T",
		ErrMalformedPayload, env.Type, env.ID, env.Payload, zero)
}
