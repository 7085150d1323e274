// Package decision implements the certification decision state machine:
// legality checks for changing a decision, the bookkeeping that runs before
// every decision, and the account level cascades that fan a decision out to
// sibling items.
package decision

import (
	"time"

	"attest/internal/certification/models"
	id "attest/pkg/domain"
)

// Decider applies decisions to the items of one certification. It mutates the
// certification tree in place; the caller owns transactionality and is
// expected to discard the whole tree on error.
type Decider struct {
	cert *models.Certification
}

func NewDecider(cert *models.Certification) *Decider {
	return &Decider{cert: cert}
}

func (d *Decider) entityDelegation(it *models.Item) *models.Delegation {
	if e := d.cert.EntityOf(it); e != nil {
		return e.Delegation
	}
	return nil
}

// checkDecisionErrors returns the reason the actor may not record the
// requested decision on the item, or nil when the decision is legal. The
// ownership checks only apply when the action targets the item directly;
// cascaded saves skip them but still honor the phase and revoke locks.
func (d *Decider) checkDecisionErrors(it *models.Item, actor string,
	workItem id.WorkItemID, requested models.ActionStatus, direct bool) error {

	newStatus, _, err := models.NormalizeStatus(requested)
	if err != nil {
		return err
	}

	entityDel := d.entityDelegation(it)
	current := currentStatus(it.Action)

	if LockedByPhase(d.cert, it.Action, it.Phase) && current != newStatus {
		return illegalDecision(MsgCantChangeAfterChallenge)
	}
	if LockedByRevokes(d.cert, it.Delegation, entityDel, it.Action) && current != newStatus {
		return illegalDecision(MsgCantRemoveRevoke)
	}
	if !direct {
		return nil
	}

	// Case 1: the entity is delegated and the requester, acting outside any
	// work item, tries to decide an item they did not decide before
	// delegating. Returned items go back to the requester.
	isRequesterOfReturnedItem := it.Returned() && actor == it.Delegation.ActorName
	if entityDel.Active() && workItem.IsZero() &&
		((it.Action == nil && !isRequesterOfReturnedItem) ||
			(it.Action != nil && entityDel.WorkItem == it.Action.ActingWorkItem)) {
		return illegalDecision(MsgCantDecideOnDelegatedEntity)
	}

	// Case 2: the entity delegate tries to change a decision that was made
	// outside their delegation.
	if entityDel.Active() && !workItem.IsZero() &&
		it.Action != nil && !wasDecidedInEntityDelegationChain(it, entityDel) {
		return illegalDecision(MsgDelegateCantChange)
	}

	// Case 3: the item is delegated and the requester tries to decide it.
	// The requester may only clear, which revokes the delegation.
	if it.Delegated() && workItem.IsZero() && newStatus != models.StatusNone {
		return illegalDecision(MsgCantDecideOnDelegatedItem)
	}

	// Case 4: a work item owner tries to change an item that was never
	// delegated to them.
	if !it.Delegated() && !entityDel.Active() && !workItem.IsZero() {
		return illegalDecision(MsgWorkItemOwnerCantChange)
	}

	// Case 5: an entity delegate viewing an item delegation someone else
	// requested cannot change it.
	if it.Delegated() && !workItem.IsZero() &&
		workItem != it.Delegation.WorkItem && actor != it.Delegation.ActorName {
		return illegalDecision(MsgCantDecideOnDelegatedItem)
	}

	return nil
}

// wasDecidedInEntityDelegationChain reports whether the item's decision was
// made inside the entity delegation, directly or through an item delegation
// that was itself requested from the entity delegation's work item.
func wasDecidedInEntityDelegationChain(it *models.Item, entityDel *models.Delegation) bool {
	a := it.Action
	if a == nil || a.ActingWorkItem.IsZero() || !entityDel.Active() {
		return false
	}
	if a.ActingWorkItem == entityDel.WorkItem {
		return true
	}
	itemDel := it.Delegation
	return itemDel != nil && !itemDel.ActingWorkItem.IsZero() &&
		itemDel.ActingWorkItem == entityDel.WorkItem &&
		a.ActingWorkItem == itemDel.WorkItem
}

// preAction runs the checks and bookkeeping that precede every decision:
// legality, clearing returned delegations, clearing conflicting account
// revokes, detaching copied decisions, dropping inactive delegations when the
// status changes, and flagging the item for refresh.
func (d *Decider) preAction(it *models.Item, actor string, workItem id.WorkItemID,
	requested models.ActionStatus, direct bool, now time.Time) error {

	if err := d.checkDecisionErrors(it, actor, workItem, requested, direct); err != nil {
		return err
	}

	newStatus, isRevokeAccount, err := models.NormalizeStatus(requested)
	if err != nil {
		return err
	}

	// A returned delegation's work item is already gone; drop the record so
	// the decision can proceed.
	d.removeReturnedDelegations(it)

	if direct {
		if err := d.clearOtherRevokeAccountItems(it, actor, workItem, isRevokeAccount, now); err != nil {
			return err
		}
	}

	// A changed decision no longer stands for the items it was copied to.
	if it.Action != nil && len(it.Action.ChildActions) > 0 {
		for _, other := range d.cert.Items {
			if other.Action == nil || other.Action.SourceAction == nil ||
				*other.Action.SourceAction != it.Action.ID {
				continue
			}
			other.Action.SourceAction = nil
			if err := d.clear(other, actor, workItem, false, now); err != nil {
				return err
			}
		}
		it.Action.ChildActions = nil
	}

	// Likewise this decision no longer follows the one it was copied from.
	if it.Action != nil && len(it.Action.ParentActions) > 0 {
		for _, parentID := range it.Action.ParentActions {
			if parent := d.findAction(parentID); parent != nil {
				parent.RemoveChild(it.Action.ID)
			}
		}
		it.Action.ParentActions = nil
		it.Action.SourceAction = nil
	}

	// Changing the decision on a previously delegated item discards the
	// spent delegation record.
	if it.Action != nil && newStatus != it.Action.Status {
		if it.Delegation != nil && !it.Delegation.Active() {
			it.Delegation = nil
		}
	}

	// A finished item that is being re-decided comes back from the dead so
	// it gets refinished.
	if !it.FinishedDate.IsZero() {
		it.ClearFinished()
	}

	it.MarkForRefresh()
	it.MarkForContinuousFlush()
	return nil
}

func (d *Decider) removeReturnedDelegations(it *models.Item) {
	if it.Delegation.Returned() {
		it.Delegation = nil
	}
	if e := d.cert.EntityOf(it); e != nil && e.Delegation.Returned() {
		e.Delegation = nil
	}
}

// clearOtherRevokeAccountItems clears revoke account decisions on sibling
// items when a finer grained decision is being made on this account. A new
// revoke account decision keeps the siblings as they are.
func (d *Decider) clearOtherRevokeAccountItems(it *models.Item, actor string,
	workItem id.WorkItemID, isRevokeAccount bool, now time.Time) error {

	if isRevokeAccount {
		return nil
	}
	switch it.Type {
	case models.ItemTypeException, models.ItemTypeAccountGroupMembership:
	default:
		return nil
	}
	for _, other := range d.cert.ItemsOnSameAccount(it) {
		if other.Action != nil && other.Action.RevokeAccount {
			if err := d.clear(other, actor, workItem, false, now); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Decider) findAction(actionID id.ActionID) *models.Action {
	for _, it := range d.cert.Items {
		if it.Action != nil && it.Action.ID == actionID {
			return it.Action
		}
	}
	return nil
}

func ensureAction(it *models.Item) *models.Action {
	if it.Action == nil {
		it.Action = models.NewAction()
	}
	return it.Action
}

// Approve records an approval on the item.
func (d *Decider) Approve(it *models.Item, actor string, workItem id.WorkItemID,
	comments string, now time.Time) error {

	if err := d.preAction(it, actor, workItem, models.StatusApproved, true, now); err != nil {
		return err
	}
	ensureAction(it).Approve(d.cert.ID, actor, workItem, comments, now)
	return nil
}

// ApproveWithProvisioning approves the item and requests provisioning of
// missing required access alongside.
func (d *Decider) ApproveWithProvisioning(it *models.Item, actor string,
	workItem id.WorkItemID, plan *models.RemediationPlan,
	owner, description, comments string, now time.Time) error {

	if err := d.preAction(it, actor, workItem, models.StatusApproved, true, now); err != nil {
		return err
	}
	ensureAction(it).ApproveWithProvisioning(d.cert.ID, actor, workItem, plan,
		owner, description, comments, now)
	return nil
}

// Acknowledge records an acknowledgment on the item.
func (d *Decider) Acknowledge(it *models.Item, actor string, workItem id.WorkItemID,
	comments string, now time.Time) error {

	if err := d.preAction(it, actor, workItem, models.StatusAcknowledged, true, now); err != nil {
		return err
	}
	ensureAction(it).Acknowledge(d.cert.ID, actor, workItem, comments, now)
	return nil
}

// Mitigate records a conditional approval expiring at the given date.
func (d *Decider) Mitigate(it *models.Item, actor string, workItem id.WorkItemID,
	expiration time.Time, comments string, now time.Time) error {

	if err := d.preAction(it, actor, workItem, models.StatusMitigated, true, now); err != nil {
		return err
	}
	ensureAction(it).Mitigate(d.cert.ID, actor, workItem, expiration, comments, now)
	return nil
}

// Remediate records a remediation request on the item. Additional actions
// only apply to assigned role items.
func (d *Decider) Remediate(it *models.Item, actor string, workItem id.WorkItemID,
	remediation models.RemediationAction, recipient, description, comments string,
	details, additional *models.RemediationPlan, now time.Time) error {

	if err := d.preAction(it, actor, workItem, models.StatusRemediated, true, now); err != nil {
		return err
	}
	if it.SubType != models.SubTypeAssignedRole {
		additional = nil
	}
	ensureAction(it).Remediate(d.cert.ID, actor, workItem, remediation,
		recipient, description, comments, details, additional, now)
	return nil
}

// RevokeAccount revokes the whole account the item lives on, cascading the
// revoke to every other item on the same account. Siblings already locked by
// revoke processing are left alone; delegated siblings lose their delegation.
// A visited set guards against items appearing twice in the sibling scan.
// Returns the siblings the revoke cascaded to.
func (d *Decider) RevokeAccount(it *models.Item, actor string, workItem id.WorkItemID,
	remediation models.RemediationAction,
	recipient, description, comments string, now time.Time) ([]*models.Item, error) {

	if err := d.preAction(it, actor, workItem, models.StatusRevokeAccount, true, now); err != nil {
		return nil, err
	}

	visited := map[id.ItemID]bool{it.ID: true}
	var cascade []*models.Item
	for _, other := range d.cert.ItemsOnSameAccount(it) {
		if visited[other.ID] {
			continue
		}
		visited[other.ID] = true
		if LockedByRevokesFor(d.cert, other) {
			continue
		}
		if other.Delegated() {
			other.RevokeDelegation()
		}
		cascade = append(cascade, other)
	}

	for _, other := range cascade {
		if err := d.preAction(other, actor, workItem, models.StatusRevokeAccount, false, now); err != nil {
			return nil, err
		}
		ensureAction(other).RevokeWholeAccount(d.cert.ID, actor, workItem,
			remediation, recipient, description, comments, now)
	}

	ensureAction(it).RevokeWholeAccount(d.cert.ID, actor, workItem,
		remediation, recipient, description, comments, now)
	return cascade, nil
}

// ApproveAccount approves every item on the same account as the given item.
// Siblings whose remediation has already been kicked off keep their decision;
// delegated siblings lose their delegation. Returns the siblings the approval
// cascaded to.
func (d *Decider) ApproveAccount(it *models.Item, actor string, workItem id.WorkItemID,
	comments string, now time.Time) ([]*models.Item, error) {

	if err := d.preAction(it, actor, workItem, models.StatusApproved, true, now); err != nil {
		return nil, err
	}

	visited := map[id.ItemID]bool{it.ID: true}
	var cascade []*models.Item
	for _, other := range d.cert.ItemsOnSameAccount(it) {
		if visited[other.ID] {
			continue
		}
		visited[other.ID] = true
		if other.Delegated() {
			other.RevokeDelegation()
		}
		if other.Action != nil && other.Action.RemediationKickedOff {
			continue
		}
		cascade = append(cascade, other)
	}

	for _, other := range cascade {
		if err := d.preAction(other, actor, workItem, models.StatusApproved, false, now); err != nil {
			return nil, err
		}
		ensureAction(other).Approve(d.cert.ID, actor, workItem, comments, now)
	}

	ensureAction(it).Approve(d.cert.ID, actor, workItem, comments, now)
	return cascade, nil
}

// Clear withdraws the decision on the item.
func (d *Decider) Clear(it *models.Item, actor string, workItem id.WorkItemID,
	now time.Time) error {

	return d.clear(it, actor, workItem, true, now)
}

func (d *Decider) clear(it *models.Item, actor string, workItem id.WorkItemID,
	direct bool, now time.Time) error {

	if err := d.preAction(it, actor, workItem, models.StatusNone, direct, now); err != nil {
		return err
	}
	if it.Action != nil {
		it.Action.Clear(d.cert.ID, actor, workItem, "", now)
	}
	return nil
}

// BulkCertify applies a bulk template decision to the item.
func (d *Decider) BulkCertify(it *models.Item, actor string, workItem id.WorkItemID,
	template *models.Action, now time.Time) error {

	requested := template.Status
	if requested == models.StatusRemediated && template.RevokeAccount {
		requested = models.StatusRevokeAccount
	}
	if err := d.preAction(it, actor, workItem, requested, true, now); err != nil {
		return err
	}
	return ensureAction(it).BulkCertify(d.cert.ID, actor, workItem, template, now)
}

// Delegate hands the item to another reviewer. An existing revoke account
// decision on a sibling is cleared first so the delegate starts from a
// consistent account state.
func (d *Decider) Delegate(it *models.Item, requester string, workItem id.WorkItemID,
	recipient, description, comments string, reviewRequired bool, now time.Time) error {

	if it.Action != nil && it.Action.RevokeAccount {
		if err := d.clearOtherRevokeAccountItems(it, requester, workItem, false, now); err != nil {
			return err
		}
	}
	return it.Delegate(recipient, requester, workItem, description, comments,
		reviewRequired, now)
}

// DelegateEntity hands a whole entity to another reviewer.
func (d *Decider) DelegateEntity(e *models.Entity, requester string,
	workItem id.WorkItemID, recipient, description, comments string,
	reviewRequired bool, now time.Time) error {

	return e.Delegate(recipient, requester, workItem, description, comments,
		reviewRequired, now)
}

// Review marks a delegate's decision as reviewed by the owner.
func (d *Decider) Review(it *models.Item) {
	if it.Action != nil {
		it.Action.Reviewed = true
	}
	it.MarkForRefresh()
	it.MarkForContinuousFlush()
}

// FileChallenge opens a challenge on the item's decision during the
// challenge window.
func (d *Decider) FileChallenge(it *models.Item, challenger, comments string) error {
	if err := d.assertInChallengePeriod(it); err != nil {
		return err
	}
	if it.Challenge == nil {
		it.Challenge = models.NewChallenge(challenger)
	}
	it.Challenge.File(comments)
	it.MarkForRefresh()
	return nil
}

// AcceptChallenge concedes a challenge: the decision is thrown out and the
// item goes back to needing one.
func (d *Decider) AcceptChallenge(it *models.Item, who, comments string, now time.Time) error {
	if err := d.assertInChallengePeriod(it); err != nil {
		return err
	}
	it.Action = nil
	if it.Challenge != nil {
		it.Challenge.Accept(who, comments, now)
	}
	it.MarkForRefresh()
	return nil
}

// RejectChallenge upholds the decision against a challenge.
func (d *Decider) RejectChallenge(it *models.Item, who, comments string, now time.Time) error {
	if err := d.assertInChallengePeriod(it); err != nil {
		return err
	}
	if it.Challenge != nil {
		it.Challenge.Reject(who, comments, now)
	}
	it.MarkForRefresh()
	return nil
}

func (d *Decider) assertInChallengePeriod(it *models.Item) error {
	if it.Phase == models.PhaseChallenge {
		return nil
	}
	if it.Phase == models.PhaseNone && d.cert.Phase == models.PhaseChallenge {
		return nil
	}
	return illegalDecision(MsgNotInChallengePeriod)
}
