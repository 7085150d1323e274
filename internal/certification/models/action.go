package models

import (
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// RemediationPlan is the provisioning change attached to a remediation or an
// approval with additional provisioning. The actual plan execution belongs to
// the remediation engine; this model only needs to know the plan exists and
// what it asks for.
type RemediationPlan struct {
	Summary  string   `json:"summary,omitempty"`
	Requests []string `json:"requests,omitempty"`
}

// Action is the decision record on a certification item: status, actor,
// timestamps, and the bookkeeping that ties cascaded and copied decisions
// together.
type Action struct {
	ID id.ActionID `json:"id"`

	Status ActionStatus `json:"status"`

	// RevokeAccount qualifies StatusRemediated: the remediation revokes the
	// whole account, not a single entitlement.
	RevokeAccount bool `json:"revoke_account,omitempty"`

	// Actor is who made the decision.
	Actor string `json:"actor"`

	// ActingWorkItem is the work item the decision was made in. Zero when the
	// certification owner decided directly.
	ActingWorkItem id.WorkItemID `json:"acting_work_item,omitzero"`

	// DecisionDate is when the decision was made.
	DecisionDate time.Time `json:"decision_date,omitzero"`

	// DecisionCertification is the certification the decision was made in.
	// Kept for auditing when a decision made in a reassignment certification
	// is later assimilated into the parent.
	DecisionCertification id.CertificationID `json:"decision_certification,omitzero"`

	Comments string `json:"comments,omitempty"`

	// Reviewed is set once the owner signs off on a delegate's decision (or
	// immediately when the owner decides directly).
	Reviewed bool `json:"reviewed,omitempty"`

	// BulkCertified marks decisions applied from a bulk template.
	BulkCertified bool `json:"bulk_certified,omitempty"`

	// AutoDecision marks decisions generated by rule rather than a person.
	AutoDecision bool `json:"auto_decision,omitempty"`

	// MitigationExpiration is when a conditional approval lapses.
	MitigationExpiration time.Time `json:"mitigation_expiration,omitzero"`

	// Remediation describes how a remediation request is carried out.
	Remediation RemediationAction `json:"remediation,omitempty"`

	// Recipient is the backup remediator for the remediation request.
	Recipient   string `json:"recipient,omitempty"`
	Description string `json:"description,omitempty"`

	// RemediationDetails is the provisioning plan removing the access; when
	// nil the remediation engine calculates it at flush time.
	RemediationDetails *RemediationPlan `json:"remediation_details,omitempty"`

	// AdditionalProvisioning carries extra provisioning attached to the
	// decision (e.g. missing required roles requested alongside an approval).
	AdditionalProvisioning *RemediationPlan `json:"additional_provisioning,omitempty"`

	// RemediationKickedOff is set by the remediation engine once the request
	// has been launched at the external system. From that point the decision
	// is permanently locked.
	RemediationKickedOff bool `json:"remediation_kicked_off,omitempty"`

	// RemediationCompleted is set when the external change is confirmed.
	RemediationCompleted bool `json:"remediation_completed,omitempty"`

	// SourceAction points at the action this decision was copied from. A
	// copied decision is never re-decided independently; it follows its
	// source.
	SourceAction *id.ActionID `json:"source_action,omitempty"`

	// ChildActions are decisions copied downstream from this one.
	ChildActions []id.ActionID `json:"child_actions,omitempty"`

	// ParentActions are actions that list this one among their children.
	ParentActions []id.ActionID `json:"parent_actions,omitempty"`
}

func NewAction() *Action {
	return &Action{ID: id.NewActionID()}
}

// HasAdditionalProvisioning reports whether extra provisioning rides along
// with the decision. Relevant to the revoke lock: an approval that triggers
// provisioning is as committed as a revoke once set in motion.
func (a *Action) HasAdditionalProvisioning() bool {
	return a != nil && a.AdditionalProvisioning != nil
}

// CurrentStatus is a nil-safe status accessor.
func (a *Action) CurrentStatus() ActionStatus {
	if a == nil {
		return StatusNone
	}
	return a.Status
}

// decide records the common fields of any decision. Decision-scoped data from
// a previous decision is cleared first so stale remediation or mitigation
// details never survive a status change.
func (a *Action) decide(status ActionStatus, certID id.CertificationID,
	actor string, workItem id.WorkItemID, comments string, now time.Time) {

	a.clearDecisionData()
	a.Status = status
	a.Actor = actor
	a.ActingWorkItem = workItem
	a.Comments = comments
	a.DecisionDate = now
	a.DecisionCertification = certID
	// Decisions the owner makes outside any work item need no review pass.
	a.Reviewed = workItem.IsZero()
}

func (a *Action) clearDecisionData() {
	a.RevokeAccount = false
	a.BulkCertified = false
	a.AutoDecision = false
	a.MitigationExpiration = time.Time{}
	a.Remediation = ""
	a.Recipient = ""
	a.Description = ""
	a.RemediationDetails = nil
	a.AdditionalProvisioning = nil
}

// Approve records an approval.
func (a *Action) Approve(certID id.CertificationID, actor string,
	workItem id.WorkItemID, comments string, now time.Time) {

	a.decide(StatusApproved, certID, actor, workItem, comments, now)
}

// ApproveWithProvisioning records an approval that additionally provisions
// missing required access.
func (a *Action) ApproveWithProvisioning(certID id.CertificationID, actor string,
	workItem id.WorkItemID, plan *RemediationPlan,
	owner, description, comments string, now time.Time) {

	a.decide(StatusApproved, certID, actor, workItem, comments, now)
	a.AdditionalProvisioning = plan
	a.Recipient = owner
	a.Description = description
}

// Acknowledge records an acknowledgment.
func (a *Action) Acknowledge(certID id.CertificationID, actor string,
	workItem id.WorkItemID, comments string, now time.Time) {

	a.decide(StatusAcknowledged, certID, actor, workItem, comments, now)
}

// Clear records that the decision was withdrawn.
func (a *Action) Clear(certID id.CertificationID, actor string,
	workItem id.WorkItemID, comments string, now time.Time) {

	a.decide(StatusCleared, certID, actor, workItem, comments, now)
}

// Mitigate records a conditional approval expiring at the given date.
func (a *Action) Mitigate(certID id.CertificationID, actor string,
	workItem id.WorkItemID, expiration time.Time, comments string, now time.Time) {

	a.decide(StatusMitigated, certID, actor, workItem, comments, now)
	a.MitigationExpiration = expiration
}

// Remediate records a remediation request.
func (a *Action) Remediate(certID id.CertificationID, actor string,
	workItem id.WorkItemID, remediation RemediationAction,
	recipient, description, comments string,
	details, additional *RemediationPlan, now time.Time) {

	a.decide(StatusRemediated, certID, actor, workItem, comments, now)
	a.Remediation = remediation
	// The recipient is the backup remediator; the remediation engine tries
	// to determine the real one at launch time and falls back on this.
	a.Recipient = recipient
	a.Description = description
	a.RemediationDetails = details
	a.AdditionalProvisioning = additional

	// Extra revokes tacked onto the decision make it a bulk certification.
	if additional != nil && len(additional.Requests) > 0 {
		a.BulkCertified = true
	}
}

// RevokeWholeAccount records a remediation that revokes the entire account.
func (a *Action) RevokeWholeAccount(certID id.CertificationID, actor string,
	workItem id.WorkItemID, remediation RemediationAction,
	recipient, description, comments string, now time.Time) {

	a.Remediate(certID, actor, workItem, remediation, recipient, description,
		comments, nil, nil, now)
	a.RevokeAccount = true
}

// BulkCertify applies the status and parameters of a bulk template action.
func (a *Action) BulkCertify(certID id.CertificationID, actor string,
	workItem id.WorkItemID, template *Action, now time.Time) error {

	switch template.Status {
	case StatusApproved:
		a.Approve(certID, actor, workItem, template.Comments, now)
	case StatusMitigated:
		a.Mitigate(certID, actor, workItem, template.MitigationExpiration,
			template.Comments, now)
	case StatusRemediated:
		if template.RevokeAccount {
			a.RevokeWholeAccount(certID, actor, workItem, template.Remediation,
				template.Recipient, template.Description, template.Comments, now)
		} else {
			a.Remediate(certID, actor, workItem, template.Remediation,
				template.Recipient, template.Description, template.Comments,
				nil, nil, now)
		}
	default:
		return dErrors.Newf(dErrors.CodeInternal,
			"unknown bulk certification status %q", string(template.Status))
	}
	a.BulkCertified = true
	return nil
}

// AddChild links a downstream copy of this decision.
func (a *Action) AddChild(child id.ActionID) {
	a.ChildActions = append(a.ChildActions, child)
}

// RemoveChild drops a downstream copy link.
func (a *Action) RemoveChild(child id.ActionID) {
	for i, c := range a.ChildActions {
		if c == child {
			a.ChildActions = append(a.ChildActions[:i], a.ChildActions[i+1:]...)
			return
		}
	}
}
