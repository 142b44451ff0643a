// SPDX-FileCopyrightText: 2026 dtn7 contributors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package coord

import (
	"errors"
	"testing"
	"time"
)

var fiveVoters = []string{"v1", "v2", "v3", "v4", "v5"}

func TestPolicyRequired(t *testing.T) {
	tests := []struct {
		policy   Policy
		total    int
		required int
	}{
		{Majority, 5, 3},
		{Majority, 4, 3},
		{Majority, 1, 1},
		{Unanimous, 5, 5},
		{AtLeast(2), 5, 2},
		{AtLeast(0), 5, 1},
		{AtLeast(-3), 5, 1},
	}

	for _, test := range tests {
		if r := test.policy.Required(test.total); r != test.required {
			t.Fatalf("%v of %d requires %d, expected %d", test.policy, test.total, r, test.required)
		}
	}
}

func TestAtLeastNonPositive(t *testing.T) {
	for _, n := range []int{0, -1, -7} {
		p := AtLeast(n)
		if p == Majority || p == Unanimous {
			t.Fatalf("AtLeast(%d) became %v", n, p)
		} else if p.String() != "1" {
			t.Fatalf("AtLeast(%d) is %v, expected 1", n, p)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	for _, s := range []string{"majority", "unanimous", "3"} {
		p, err := ParsePolicy(s)
		if err != nil {
			t.Fatal(err)
		} else if p.String() != s {
			t.Fatalf("parsed %q to %v", s, p)
		}
	}

	for _, s := range []string{"most", "0", "-2"} {
		if _, err := ParsePolicy(s); err == nil {
			t.Fatalf("parsing %q did not error", s)
		}
	}
}

func TestProposalMajorityPassesOnThirdApproval(t *testing.T) {
	now := time.Now()
	p := NewProposal("", "chair", "budget", fiveVoters, Majority, time.Time{}, now)

	for i, v := range []string{"v1", "v2", "v3"} {
		if err := p.CastVote(v, true, "", now); err != nil {
			t.Fatal(err)
		}

		expected := ProposalOpen
		if i == 2 {
			expected = ProposalPassed
		}
		if p.Status != expected {
			t.Fatalf("after %d approvals status is %s, expected %s", i+1, p.Status, expected)
		}
	}

	if err := p.CastVote("v4", false, "", now); !errors.Is(err, ErrVotingClosed) {
		t.Fatalf("vote on passed proposal: %v", err)
	}
}

func TestProposalUnanimousRejectsOnFirstNo(t *testing.T) {
	now := time.Now()
	p := NewProposal("", "chair", "budget", fiveVoters, Unanimous, time.Time{}, now)

	_ = p.CastVote("v1", true, "", now)
	if err := p.CastVote("v2", false, "too expensive", now); err != nil {
		t.Fatal(err)
	}

	if p.Status != ProposalRejected {
		t.Fatalf("status is %s", p.Status)
	}
	if p.Votes["v2"].Reason != "too expensive" {
		t.Fatalf("reason was not recorded: %v", p.Votes["v2"])
	}
}

func TestProposalMajorityEarlyReject(t *testing.T) {
	now := time.Now()
	p := NewProposal("", "chair", nil, fiveVoters, Majority, time.Time{}, now)

	for _, v := range []string{"v1", "v2"} {
		_ = p.CastVote(v, false, "", now)
	}
	if p.Status != ProposalOpen {
		t.Fatalf("status after two rejects is %s", p.Status)
	}

	_ = p.CastVote("v3", false, "", now)
	if p.Status != ProposalRejected {
		t.Fatalf("status after three rejects is %s", p.Status)
	}
}

func TestProposalIneligibleVoter(t *testing.T) {
	now := time.Now()
	p := NewProposal("", "chair", nil, fiveVoters, Majority, time.Time{}, now)

	if err := p.CastVote("mallory", true, "", now); !errors.Is(err, ErrIneligibleVoter) {
		t.Fatalf("expected ErrIneligibleVoter, got %v", err)
	}
	if len(p.Votes) != 0 {
		t.Fatal("ineligible vote was recorded")
	}
}

func TestProposalDeadline(t *testing.T) {
	now := time.Now()
	p := NewProposal("", "chair", nil, fiveVoters, Majority, now.Add(time.Minute), now)

	if s := p.Evaluate(now); s != ProposalOpen {
		t.Fatalf("status before deadline is %s", s)
	}

	later := now.Add(2 * time.Minute)
	if err := p.CastVote("v1", true, "", later); err != nil {
		t.Fatal(err)
	}
	if p.Status != ProposalExpired {
		t.Fatalf("status after deadline is %s", p.Status)
	}

	if s := p.Evaluate(later.Add(time.Hour)); s != ProposalExpired {
		t.Fatalf("terminal state changed to %s", s)
	}
}
