package models

import (
	"time"

	id "attest/pkg/domain"
)

// ChallengeDecision is the certifier's ruling on a filed challenge.
type ChallengeDecision string

const (
	ChallengeUndecided ChallengeDecision = ""
	ChallengeAccepted  ChallengeDecision = "accepted"
	ChallengeRejected  ChallengeDecision = "rejected"
)

// Challenge tracks the contest window state for one item's revocation
// decision. It is created when the challenge work item is generated for the
// affected user, optionally challenged by them, and then decided by the
// certifier (or expired by the scheduler).
type Challenge struct {
	// WorkItem is the challenge work item offered to the affected user.
	WorkItem id.WorkItemID `json:"work_item"`

	// Owner is the user who may contest the decision.
	Owner string `json:"owner"`

	// Challenged is set once the owner actually files a dispute.
	Challenged bool `json:"challenged"`

	ChallengerComments string `json:"challenger_comments,omitempty"`

	Decision        ChallengeDecision `json:"decision,omitempty"`
	DeciderName     string            `json:"decider_name,omitempty"`
	DeciderComments string            `json:"decider_comments,omitempty"`
	DecidedAt       time.Time         `json:"decided_at,omitzero"`

	// ChallengeExpired: the window closed before the owner disputed.
	ChallengeExpired bool `json:"challenge_expired,omitempty"`
	// DecisionExpired: a dispute was filed but nobody ruled on it in time.
	DecisionExpired bool `json:"decision_expired,omitempty"`
}

// NewChallenge records that a challenge work item was generated.
func NewChallenge(owner string) *Challenge {
	return &Challenge{WorkItem: id.NewWorkItemID(), Owner: owner}
}

// File records the owner's dispute.
func (c *Challenge) File(comments string) {
	c.Challenged = true
	c.ChallengerComments = comments
}

// IsActive reports whether a filed dispute is still awaiting a ruling.
func (c *Challenge) IsActive() bool {
	return c != nil && c.Challenged && c.Decision == ChallengeUndecided &&
		!c.ChallengeExpired && !c.DecisionExpired
}

// Accept upholds the dispute; the caller clears the underlying decision.
func (c *Challenge) Accept(who, comments string, now time.Time) {
	c.Decision = ChallengeAccepted
	c.DeciderName = who
	c.DeciderComments = comments
	c.DecidedAt = now
}

// Reject overrules the dispute; the underlying decision stands.
func (c *Challenge) Reject(who, comments string, now time.Time) {
	c.Decision = ChallengeRejected
	c.DeciderName = who
	c.DeciderComments = comments
	c.DecidedAt = now
}

// Expire closes the contest window with no dispute filed. Returns whether
// the challenge work item was still outstanding.
func (c *Challenge) Expire() bool {
	if c.Challenged {
		return false
	}
	c.ChallengeExpired = true
	return true
}

// ExpireDecision voids a filed dispute nobody ruled on in time.
func (c *Challenge) ExpireDecision() {
	c.DecisionExpired = true
}
