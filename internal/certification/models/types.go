package models

import dErrors "attest/pkg/domain-errors"

// CertType discriminates what kind of access review a certification is.
type CertType string

const (
	CertTypeManager                 CertType = "manager"
	CertTypeApplicationOwner        CertType = "application_owner"
	CertTypeDataOwner               CertType = "data_owner"
	CertTypeIdentity                CertType = "identity"
	CertTypeGroup                   CertType = "group"
	CertTypeFocused                 CertType = "focused"
	CertTypeBusinessRoleMembership  CertType = "business_role_membership"
	CertTypeBusinessRoleComposition CertType = "business_role_composition"
	CertTypeAccountGroupPermissions CertType = "account_group_permissions"
	CertTypeAccountGroupMembership  CertType = "account_group_membership"
)

// SubTypeAssignedRole marks role items that were assigned rather than
// detected. Only assigned roles accept additional provisioning alongside a
// remediation.
const SubTypeAssignedRole = "assigned_role"

// ItemType discriminates the kind of certifiable an item reviews.
type ItemType string

const (
	ItemTypeBundle                  ItemType = "bundle"
	ItemTypeException               ItemType = "exception"
	ItemTypeAccount                 ItemType = "account"
	ItemTypeAccountGroupMembership  ItemType = "account_group_membership"
	ItemTypeBusinessRoleHierarchy   ItemType = "business_role_hierarchy"
	ItemTypeBusinessRoleRequirement ItemType = "business_role_requirement"
	ItemTypeBusinessRolePermit      ItemType = "business_role_permit"
	ItemTypeBusinessRoleProfile     ItemType = "business_role_profile"
	ItemTypeDataOwner               ItemType = "data_owner"
	ItemTypePolicyViolation         ItemType = "policy_violation"
)

// EntitlementGranularity controls how many items a set of entitlements
// generates.
type EntitlementGranularity string

const (
	// GranularityApplication generates one item per application.
	GranularityApplication EntitlementGranularity = "application"
	// GranularityAttribute generates one item per attribute or permission.
	GranularityAttribute EntitlementGranularity = "attribute"
	// GranularityValue generates one item per attribute value.
	GranularityValue EntitlementGranularity = "value"
)

// ActionStatus is the decision recorded on an item.
//
// StatusRevokeAccount is a request-only pseudo status: callers may ask for it
// but it is never persisted. NormalizeStatus folds it into StatusRemediated
// plus the revoke-account qualifier before anything is stored.
type ActionStatus string

const (
	StatusApproved      ActionStatus = "approved"
	StatusMitigated     ActionStatus = "mitigated"
	StatusRemediated    ActionStatus = "remediated"
	StatusAcknowledged  ActionStatus = "acknowledged"
	StatusCleared       ActionStatus = "cleared"
	StatusRevokeAccount ActionStatus = "revoke_account"

	// StatusNone marks the absence of a decision (clear requests).
	StatusNone ActionStatus = ""
)

// NormalizeStatus translates a requested status into the persisted status
// plus the revoke-account qualifier. The switch is total over the known
// statuses; an unknown enumerant is a programming error (a new status was
// added without updating this mapping) and is fatal to the operation.
func NormalizeStatus(requested ActionStatus) (ActionStatus, bool, error) {
	switch requested {
	case StatusRevokeAccount:
		return StatusRemediated, true, nil
	case StatusApproved, StatusMitigated, StatusRemediated,
		StatusAcknowledged, StatusCleared, StatusNone:
		return requested, false, nil
	default:
		return StatusNone, false, dErrors.Newf(dErrors.CodeInternal,
			"unknown certification action status %q", string(requested))
	}
}

// RemediationAction says how a remediation request should be carried out.
type RemediationAction string

const (
	RemediationOpenWorkItem         RemediationAction = "open_work_item"
	RemediationOpenTicket           RemediationAction = "open_ticket"
	RemediationSendProvisionRequest RemediationAction = "send_provision_request"
	RemediationNoActionRequired     RemediationAction = "no_action_required"
)

// ItemStatus is the derived summary state of an item or entity. It is
// computed from the action/delegation/challenge records, never set directly.
type ItemStatus string

const (
	ItemStatusOpen          ItemStatus = "open"
	ItemStatusDelegated     ItemStatus = "delegated"
	ItemStatusReturned      ItemStatus = "returned"
	ItemStatusWaitingReview ItemStatus = "waiting_review"
	ItemStatusChallenged    ItemStatus = "challenged"
	ItemStatusComplete      ItemStatus = "complete"
)

// IsComplete reports whether the status counts as fully acted upon.
// Challenged counts: the decision is made, it is merely being contested.
func (s ItemStatus) IsComplete() bool {
	return s == ItemStatusComplete || s == ItemStatusChallenged
}
