package decision

import (
	"attest/internal/certification/models"
)

// currentStatus is the decision on an action for lock purposes. A cleared
// action counts as no decision at all.
func currentStatus(a *models.Action) models.ActionStatus {
	s := a.CurrentStatus()
	if s == models.StatusCleared {
		return models.StatusNone
	}
	return s
}

// LockedByPhase reports whether an existing decision is frozen by the
// certification lifecycle. Once the challenge window has passed no decision
// may change; during the challenge window remediations are already frozen
// because challengers must have a stable decision to contest. New decisions
// are never phase locked, and the lock only applies when a challenge or
// remediation phase is configured at all.
func LockedByPhase(cert *models.Certification, action *models.Action, itemPhase models.Phase) bool {
	if currentStatus(action) == models.StatusNone {
		return false
	}
	if !cert.PhaseEnabled(models.PhaseChallenge) && !cert.PhaseEnabled(models.PhaseRemediation) {
		return false
	}

	phase := itemPhase
	if phase == models.PhaseNone {
		phase = cert.Phase
	}
	if phase == models.PhaseNone {
		return false
	}

	if phase.After(models.PhaseChallenge) {
		return true
	}
	if phase == models.PhaseChallenge && currentStatus(action) == models.StatusRemediated {
		return true
	}
	return false
}

// LockedByRevokes reports whether an existing decision is frozen because its
// remediation is in motion. A kicked off remediation locks the decision
// permanently no matter what. Otherwise the lock only applies when revokes
// are processed immediately: a remediation, or an approval carrying
// additional provisioning, is committed the moment it is final. Decisions
// still awaiting the owner's review have not committed anything yet and stay
// changeable.
func LockedByRevokes(cert *models.Certification,
	itemDelegation, entityDelegation *models.Delegation, action *models.Action) bool {

	if action != nil && action.RemediationKickedOff {
		return true
	}

	status := currentStatus(action)
	if !cert.ProcessRevokesImmediately || status == models.StatusNone {
		return false
	}
	if models.RequiresReview(action, itemDelegation, entityDelegation) {
		return false
	}

	switch {
	case status == models.StatusRemediated:
		return true
	case status == models.StatusApproved && action.HasAdditionalProvisioning():
		return true
	}
	return false
}

// LockedByRevokesFor is LockedByRevokes with the delegations resolved from
// the certification arena.
func LockedByRevokesFor(cert *models.Certification, it *models.Item) bool {
	var entityDelegation *models.Delegation
	if e := cert.EntityOf(it); e != nil {
		entityDelegation = e.Delegation
	}
	return LockedByRevokes(cert, it.Delegation, entityDelegation, it.Action)
}
