package models

import (
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// DelegationState tracks where a delegation is in its lifecycle.
type DelegationState string

const (
	// DelegationActive: the delegate holds the work item and may decide.
	DelegationActive DelegationState = "active"
	// DelegationFinished: the delegate completed their decisions and control
	// returned to the original owner.
	DelegationFinished DelegationState = "finished"
	// DelegationReturned: the delegate bounced the work back undecided.
	DelegationReturned DelegationState = "returned"
	// DelegationRevoked: the requester withdrew the delegation.
	DelegationRevoked DelegationState = "revoked"
)

// Delegation records the reassignment of an item or entity to another
// reviewer.
type Delegation struct {
	// Recipient is the reviewer the work was delegated to.
	Recipient string `json:"recipient"`

	// ActorName is who requested the delegation.
	ActorName string `json:"actor_name"`

	// WorkItem is the work item created for the delegate.
	WorkItem id.WorkItemID `json:"work_item"`

	// ActingWorkItem is the work item the delegation itself was requested
	// from, when a delegate sub-delegates. Zero when the owner delegated
	// directly.
	ActingWorkItem id.WorkItemID `json:"acting_work_item,omitzero"`

	Description string `json:"description,omitempty"`
	Comments    string `json:"comments,omitempty"`

	// ReviewRequired means the original owner must sign off on decisions the
	// delegate made once the delegation finishes.
	ReviewRequired bool `json:"review_required"`

	State   DelegationState `json:"state"`
	Created time.Time       `json:"created"`
}

// NewDelegation opens an active delegation.
func NewDelegation(actor, recipient string, actingWorkItem id.WorkItemID,
	description, comments string, reviewRequired bool, now time.Time) (*Delegation, error) {

	if recipient == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "delegation recipient cannot be empty")
	}
	return &Delegation{
		Recipient:      recipient,
		ActorName:      actor,
		WorkItem:       id.NewWorkItemID(),
		ActingWorkItem: actingWorkItem,
		Description:    description,
		Comments:       comments,
		ReviewRequired: reviewRequired,
		State:          DelegationActive,
		Created:        now,
	}, nil
}

func (d *Delegation) Active() bool   { return d != nil && d.State == DelegationActive }
func (d *Delegation) Returned() bool { return d != nil && d.State == DelegationReturned }
func (d *Delegation) Revoked() bool  { return d != nil && d.State == DelegationRevoked }

// Revoke withdraws the delegation. The surrounding orchestration deletes the
// delegate's work item.
func (d *Delegation) Revoke() {
	d.State = DelegationRevoked
}

// Return bounces the delegation back to the requester undecided.
func (d *Delegation) Return() {
	d.State = DelegationReturned
}

// Finish marks the delegation complete; if ReviewRequired is set the owner
// now owes a review of the delegate's decisions.
func (d *Delegation) Finish() {
	d.State = DelegationFinished
}

// RequiresReview reports whether a decision made under this delegation still
// needs the owner's sign-off: review was requested, the delegation has run
// its course, and it was not simply returned undecided.
func (d *Delegation) RequiresReview() bool {
	return d != nil && d.ReviewRequired && !d.Active() && !d.Returned()
}
