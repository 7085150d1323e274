package models

import (
	"time"

	id "attest/pkg/domain"
)

// Item is a single certifiable line item: one entitlement, role, profile, or
// account held by the entity being certified. The decision state machine
// operates on items.
type Item struct {
	ID       id.ItemID   `json:"id"`
	EntityID id.EntityID `json:"entity_id"`

	Type    ItemType `json:"type"`
	SubType string   `json:"sub_type,omitempty"`

	// Phase overrides the certification phase for this item when rolling
	// phases are in effect. PhaseNone means the item follows the
	// certification.
	Phase Phase `json:"phase,omitempty"`

	// NextPhaseTransition is when this item rolls to its next phase.
	NextPhaseTransition time.Time `json:"next_phase_transition,omitzero"`

	// Account coordinates for exception and account items. Two items are on
	// the same account when all three match.
	Application    string `json:"application,omitempty"`
	Instance       string `json:"instance,omitempty"`
	NativeIdentity string `json:"native_identity,omitempty"`

	// Bundle is the role name for role membership items.
	Bundle string `json:"bundle,omitempty"`

	// ExceptionAttribute/Value identify the entitlement being certified when
	// granularity is finer than application.
	ExceptionAttribute string `json:"exception_attribute,omitempty"`
	ExceptionValue     string `json:"exception_value,omitempty"`

	PolicyViolation string `json:"policy_violation,omitempty"`

	Action     *Action     `json:"action,omitempty"`
	Delegation *Delegation `json:"delegation,omitempty"`
	Challenge  *Challenge  `json:"challenge,omitempty"`

	// WakeUpDate drives escalation and reminder processing on delegations.
	WakeUpDate time.Time `json:"wake_up_date,omitzero"`

	// FinishedDate is set when the item reaches a completed summary status.
	FinishedDate time.Time `json:"finished_date,omitzero"`

	// Summary is the rolled-up status, refreshed by statistics processing.
	Summary ItemStatus `json:"summary,omitempty"`

	// Persisted reports whether the item has been written to the store.
	// Reassignment commands cannot be flushed while they reference
	// unpersisted items.
	Persisted bool `json:"persisted,omitempty"`

	// NeedsRefresh marks the item for the next statistics pass.
	NeedsRefresh bool `json:"needs_refresh,omitempty"`

	// NeedsContinuousFlush marks the item for immediate remediation
	// processing when revokes are processed immediately.
	NeedsContinuousFlush bool `json:"needs_continuous_flush,omitempty"`
}

func NewItem(entity id.EntityID, typ ItemType) *Item {
	return &Item{ID: id.NewItemID(), EntityID: entity, Type: typ}
}

// ActedUpon reports whether a real decision has been recorded. A cleared
// action does not count.
func (it *Item) ActedUpon() bool {
	return it.Action != nil && it.Action.Status != StatusNone &&
		it.Action.Status != StatusCleared
}

// Delegated reports whether the item has an active delegation.
func (it *Item) Delegated() bool {
	return it.Delegation.Active()
}

// Returned reports whether the item's delegation was returned undecided.
func (it *Item) Returned() bool {
	return it.Delegation.Returned()
}

// Finished reports whether the item has reached a completed summary status.
func (it *Item) Finished() bool {
	return it.Summary.IsComplete()
}

// ChallengeActive reports whether an undecided challenge is open.
func (it *Item) ChallengeActive() bool {
	return it.Challenge != nil && it.Challenge.IsActive()
}

// OnSameAccount reports whether other certifies an entitlement on the same
// account as this item. Only account-bearing item types participate.
func (it *Item) OnSameAccount(other *Item) bool {
	if !it.accountBearing() || !other.accountBearing() {
		return false
	}
	return it.Application == other.Application &&
		it.Instance == other.Instance &&
		it.NativeIdentity == other.NativeIdentity
}

func (it *Item) accountBearing() bool {
	switch it.Type {
	case ItemTypeException, ItemTypeAccountGroupMembership, ItemTypeAccount:
		return it.Application != "" && it.NativeIdentity != ""
	}
	return false
}

// AllowAccountLevelActions reports whether account-wide approve and revoke
// apply to this item.
func (it *Item) AllowAccountLevelActions() bool {
	switch it.Type {
	case ItemTypeException, ItemTypeAccountGroupMembership, ItemTypeAccount:
		return it.Application != "" && it.NativeIdentity != ""
	}
	return false
}

// Delegate opens a delegation on the item. Any prior returned delegation is
// replaced.
func (it *Item) Delegate(recipient, actorName string, workItem id.WorkItemID,
	description, comments string, reviewRequired bool, now time.Time) error {

	d, err := NewDelegation(actorName, recipient, workItem, description,
		comments, reviewRequired, now)
	if err != nil {
		return err
	}
	it.Delegation = d
	it.NeedsRefresh = true
	return nil
}

// RevokeDelegation cancels the item's delegation, if any.
func (it *Item) RevokeDelegation() {
	if it.Delegation != nil {
		it.Delegation.Revoke()
		it.NeedsRefresh = true
	}
}

// WasDecidedInDelegationChain reports whether the item's decision was made
// inside the work item of the given delegation.
func (it *Item) WasDecidedInDelegationChain(d *Delegation) bool {
	if it.Action == nil || d == nil {
		return false
	}
	return !it.Action.ActingWorkItem.IsZero() &&
		it.Action.ActingWorkItem == d.WorkItem
}

// MarkForRefresh flags the item for the next statistics pass.
func (it *Item) MarkForRefresh() {
	it.NeedsRefresh = true
}

// MarkForContinuousFlush flags the item for immediate remediation processing.
func (it *Item) MarkForContinuousFlush() {
	it.NeedsContinuousFlush = true
}

// ClearFinished resets the finished date when a decision changes after the
// item was considered done.
func (it *Item) ClearFinished() {
	it.FinishedDate = time.Time{}
}
