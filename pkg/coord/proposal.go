// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package coord

import (
	"fmt"
	"strconv"
	"time"

	"github.com/dtn7/agentbus/pkg/envelope"
)

// ProposalStatus of a consensus Proposal.
type ProposalStatus string

const (
	ProposalOpen     ProposalStatus = "open"
	ProposalPassed   ProposalStatus = "passed"
	ProposalRejected ProposalStatus = "rejected"
	ProposalExpired  ProposalStatus = "expired"
)

// Policy is the quorum rule for a Proposal: a majority, all voters or an explicit number of approvals.
type Policy struct {
	// Count of required approvals; zero for Majority and -1 for Unanimous.
	count int
}

var (
	Majority  = Policy{count: 0}
	Unanimous = Policy{count: -1}
)

// AtLeast requires n approvals. At least one approval is always required.
func AtLeast(n int) Policy {
	if n < 1 {
		n = 1
	}
	return Policy{count: n}
}

// ParsePolicy parses "majority", "unanimous" or a positive number.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "majority":
		return Majority, nil
	case "unanimous":
		return Unanimous, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return Policy{}, fmt.Errorf("invalid quorum policy %q", s)
	}
	return AtLeast(n), nil
}

// Required returns the number of approvals needed out of total eligible voters.
func (p Policy) Required(total int) int {
	switch {
	case p.count == 0:
		return total/2 + 1
	case p.count < 0:
		return total
	default:
		return p.count
	}
}

func (p Policy) String() string {
	switch {
	case p.count == 0:
		return "majority"
	case p.count < 0:
		return "unanimous"
	default:
		return strconv.Itoa(p.count)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	parsed, err := ParsePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Ballot is a single vote.
type Ballot struct {
	Approve   bool      `json:"vote"`
	Reason    string    `json:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Proposal is put to a vote by its proposer among a fixed set of eligible voters.
type Proposal struct {
	ID       string
	Proposer string
	Proposal any
	Policy   Policy

	Voters []string
	Votes  map[string]Ballot
	Status ProposalStatus

	// Deadline is optional; the zero time disables it.
	Deadline  time.Time
	CreatedAt time.Time

	eligible map[string]struct{}
}

// NewProposal creates an open Proposal. Duplicate voters are ignored.
func NewProposal(id, proposer string, proposal any, voters []string, policy Policy, deadline, now time.Time) *Proposal {
	if id == "" {
		id = envelope.NewID()
	}

	p := &Proposal{
		ID:        id,
		Proposer:  proposer,
		Proposal:  proposal,
		Policy:    policy,
		Votes:     make(map[string]Ballot),
		Status:    ProposalOpen,
		Deadline:  deadline,
		CreatedAt: now,
		eligible:  make(map[string]struct{}),
	}
	for _, v := range voters {
		if _, dup := p.eligible[v]; !dup {
			p.eligible[v] = struct{}{}
			p.Voters = append(p.Voters, v)
		}
	}
	return p
}

// IsEligible checks if the agent may vote on this Proposal.
func (p *Proposal) IsEligible(voter string) bool {
	_, ok := p.eligible[voter]
	return ok
}

// RequiredApprovals for this Proposal to pass.
func (p *Proposal) RequiredApprovals() int {
	return p.Policy.Required(len(p.Voters))
}

// Approvals returns the number of approving votes.
func (p *Proposal) Approvals() (n int) {
	for _, b := range p.Votes {
		if b.Approve {
			n++
		}
	}
	return
}

// Rejections returns the number of rejecting votes.
func (p *Proposal) Rejections() int {
	return len(p.Votes) - p.Approvals()
}

// CastVote records a vote and re-evaluates the Proposal's status. A voter's later vote replaces the former.
func (p *Proposal) CastVote(voter string, approve bool, reason string, now time.Time) error {
	if !p.IsEligible(voter) {
		return fmt.Errorf("%w: %s on %s", ErrIneligibleVoter, voter, p.ID)
	}
	if p.Status != ProposalOpen {
		return fmt.Errorf("%w: %s is %s", ErrVotingClosed, p.ID, p.Status)
	}

	p.Votes[voter] = Ballot{Approve: approve, Reason: reason, Timestamp: now}
	p.Evaluate(now)
	return nil
}

// Evaluate the quorum rule for an open Proposal and return the resulting status. Terminal states are kept.
func (p *Proposal) Evaluate(now time.Time) ProposalStatus {
	if p.Status != ProposalOpen {
		return p.Status
	}

	required := p.RequiredApprovals()
	approvals := p.Approvals()
	remaining := len(p.Voters) - len(p.Votes)

	switch {
	case approvals >= required:
		p.Status = ProposalPassed
	case approvals+remaining < required:
		p.Status = ProposalRejected
	case !p.Deadline.IsZero() && now.After(p.Deadline):
		p.Status = ProposalExpired
	}
	return p.Status
}

// Clone creates a copy of this Proposal. The proposal payload is shared.
func (p *Proposal) Clone() *Proposal {
	clone := *p
	clone.Voters = append([]string(nil), p.Voters...)
	clone.Votes = make(map[string]Ballot, len(p.Votes))
	for k, v := range p.Votes {
		clone.Votes[k] = v
	}
	clone.eligible = make(map[string]struct{}, len(p.eligible))
	for k := range p.eligible {
		clone.eligible[k] = struct{}{}
	}
	return &clone
}
