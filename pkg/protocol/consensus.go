// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package protocol

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/dtn7/agentbus/pkg/coord"
	"github.com/dtn7/agentbus/pkg/envelope"
	"github.com/dtn7/agentbus/pkg/event"
)

// CreateProposal puts a proposal to a vote among the voters, who receive a PROPOSE Envelope. A zero deadline
// disables expiry.
func (h *Handler) CreateProposal(ctx context.Context, proposal any, voters []string, policy coord.Policy, deadline time.Time) (*coord.Proposal, error) {
	p := coord.NewProposal("", h.owner.ID(), proposal, voters, policy, deadline, h.now())

	h.mutex.Lock()
	h.proposals[p.ID] = p
	snapshot := p.Clone()
	h.mutex.Unlock()

	if len(snapshot.Voters) > 0 {
		env, err := envelope.Builder().
			Type(envelope.Propose).
			From(h.owner.ID()).
			To(snapshot.Voters...).
			Payload(ProposalRequest{
				ProposalID: p.ID,
				Proposal:   proposal,
				Policy:     policy,
				Voters:     snapshot.Voters,
				Deadline:   deadline,
			}).
			Build()
		if err != nil {
			return nil, err
		}

		if err := h.multicast(ctx, env); err != nil {
			return snapshot, err
		}
	}

	h.log().WithFields(log.Fields{
		"proposal": p.ID,
		"policy":   policy,
		"voters":   len(snapshot.Voters),
	}).Info("Created proposal")

	h.emit(h.newEvent(event.ProposalCreated).WithData("proposal", p.ID).WithData("voters", snapshot.Voters))
	return snapshot, nil
}

// Vote on a proposal. The VOTE Envelope is only sent to the proposer.
func (h *Handler) Vote(ctx context.Context, proposer, proposalID string, approve bool, reason string) error {
	env, err := envelope.Builder().
		Type(envelope.Vote).
		From(h.owner.ID()).
		To(proposer).
		Payload(VoteRequest{ProposalID: proposalID, Approve: approve, Reason: reason}).
		Build()
	if err != nil {
		return err
	}

	return h.Send(ctx, env)
}

// Proposal returns a copy of an owned proposal.
func (h *Handler) Proposal(proposalID string) (*coord.Proposal, bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	p, ok := h.proposals[proposalID]
	if !ok {
		return nil, false
	}
	return p.Clone(), true
}

// ProposalResult re-evaluates an owned proposal, e.g., to apply its deadline, and returns its status.
func (h *Handler) ProposalResult(ctx context.Context, proposalID string) (coord.ProposalStatus, error) {
	h.mutex.Lock()
	p, ok := h.proposals[proposalID]
	if !ok {
		h.mutex.Unlock()
		return "", fmt.Errorf("%w: %s", ErrUnknownProposal, proposalID)
	}
	before := p.Status
	status := p.Evaluate(h.now())
	snapshot := p.Clone()
	h.mutex.Unlock()

	if before == coord.ProposalOpen && status != coord.ProposalOpen {
		h.consensusReached(ctx, snapshot)
	}
	return status, nil
}

// handleVote applies a vote to an owned proposal. Rejected votes are reported as VoteError Events.
func (h *Handler) handleVote(ctx context.Context, env *envelope.Envelope) error {
	vote, err := payloadAs[VoteRequest](env)
	if err != nil {
		return err
	}

	h.mutex.Lock()
	p, ok := h.proposals[vote.ProposalID]
	if !ok {
		h.mutex.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownProposal, vote.ProposalID)
	}
	before := p.Status
	voteErr := p.CastVote(env.From, vote.Approve, vote.Reason, h.now())
	snapshot := p.Clone()
	h.mutex.Unlock()

	if before == coord.ProposalOpen && snapshot.Status != coord.ProposalOpen {
		h.consensusReached(ctx, snapshot)
	}

	if voteErr != nil {
		h.log().WithFields(log.Fields{
			"proposal": vote.ProposalID,
			"voter":    env.From,
		}).WithError(voteErr).Debug("Rejected vote")

		h.emit(h.newEvent(event.VoteError).WithEnvelope(env).WithError(voteErr).WithData("proposal", vote.ProposalID))
	}
	return nil
}

// consensusReached publishes the final status of a proposal to its voters.
func (h *Handler) consensusReached(ctx context.Context, p *coord.Proposal) {
	result := ConsensusResult{
		ProposalID: p.ID,
		Status:     p.Status,
		Approvals:  p.Approvals(),
		Rejections: p.Rejections(),
		Required:   p.RequiredApprovals(),
	}

	h.log().WithFields(log.Fields{
		"proposal":  p.ID,
		"status":    p.Status,
		"approvals": result.Approvals,
		"required":  result.Required,
	}).Info("Consensus reached")

	h.emit(h.newEvent(event.ConsensusReached).WithData("proposal", p.ID).WithData("result", result))

	if len(p.Voters) == 0 {
		return
	}

	env, err := envelope.Builder().
		Type(envelope.Consensus).
		From(h.owner.ID()).
		To(p.Voters...).
		Payload(result).
		Build()
	if err == nil {
		err = h.multicast(ctx, env)
	}
	if err != nil {
		h.log().WithField("proposal", p.ID).WithError(err).Warn("Publishing consensus failed")
	}
}
