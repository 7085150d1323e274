package audit

import (
	"time"

	id "attest/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. This
// enables different retention policies, storage backends, and routing.
type EventCategory string

const (
	// CategoryCompliance covers events with legal/regulatory significance.
	// Certification decisions and sign-offs land here; these require
	// tamper-proof storage and long retention.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility. These can be sampled or aggregated with shorter retention.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category      EventCategory      `json:"category"`
	Timestamp     time.Time          `json:"timestamp"`
	Certification id.CertificationID `json:"certification_id"`
	Item          id.ItemID          `json:"item_id,omitzero"`
	Entity        id.EntityID        `json:"entity_id,omitzero"`
	Actor         string             `json:"actor,omitempty"`
	WorkItem      id.WorkItemID      `json:"work_item_id,omitzero"`
	Action        string             `json:"action"`
	Decision      string             `json:"decision,omitempty"`
	Reason        string             `json:"reason,omitempty"`
	RequestID     string             `json:"request_id,omitempty"`
	// Cascaded marks decisions that were pushed onto an item by an
	// account-level action on a sibling rather than made directly.
	Cascaded bool `json:"cascaded,omitempty"`
}

// AuditEvent names the actions recorded on the trail.
type AuditEvent string

const (
	// Decision events
	EventDecisionMade    AuditEvent = "decision_made"
	EventDecisionCleared AuditEvent = "decision_cleared"
	EventDecisionCascade AuditEvent = "decision_cascaded"

	// Delegation events
	EventItemDelegated     AuditEvent = "item_delegated"
	EventDelegationRevoked AuditEvent = "delegation_revoked"

	// Challenge events
	EventChallengeAccepted AuditEvent = "challenge_accepted"
	EventChallengeRejected AuditEvent = "challenge_rejected"

	// Lifecycle events
	EventPhaseAdvanced        AuditEvent = "phase_advanced"
	EventCertificationSigned  AuditEvent = "certification_signed"
	EventReassignmentQueued   AuditEvent = "reassignment_queued"
	EventCertificationCreated AuditEvent = "certification_created"
)
