package models

import (
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// CommandKind discriminates pending bulk commands on a certification.
type CommandKind string

const (
	CommandReassign CommandKind = "reassign"
)

// Command is a pending bulk operation queued on a certification. Commands
// are executed by background processing, not inline with the decision that
// queued them.
type Command struct {
	ID   id.ActionID `json:"id"`
	Kind CommandKind `json:"kind"`

	Requester string `json:"requester"`
	Recipient string `json:"recipient"`

	// CertificationName and Description seed the reassignment certification
	// created when the command executes.
	CertificationName string `json:"certification_name,omitempty"`
	Description       string `json:"description,omitempty"`
	Comments          string `json:"comments,omitempty"`

	// CheckSelfCertify forces a self certification check when the command
	// executes even if the requester was allowed to skip it.
	CheckSelfCertify bool `json:"check_self_certify,omitempty"`

	// SelfCertificationReassignment marks reassignments generated to move
	// items away from a reviewer who holds them.
	SelfCertificationReassignment bool `json:"self_certification_reassignment,omitempty"`

	Created time.Time `json:"created,omitzero"`

	ItemIDs   []id.ItemID   `json:"item_ids,omitempty"`
	EntityIDs []id.EntityID `json:"entity_ids,omitempty"`
}

func NewReassignCommand(requester, recipient string, now time.Time) (*Command, error) {
	if recipient == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput,
			"reassignment requires a recipient")
	}
	return &Command{
		ID:        id.NewActionID(),
		Kind:      CommandReassign,
		Requester: requester,
		Recipient: recipient,
		Created:   now,
	}, nil
}

// Similar reports whether other targets the same recipient with the same
// parameters, so the two commands can be merged instead of queued twice.
func (c *Command) Similar(other *Command) bool {
	return c.Kind == other.Kind &&
		c.Requester == other.Requester &&
		c.Recipient == other.Recipient &&
		c.CertificationName == other.CertificationName &&
		c.Description == other.Description &&
		c.Comments == other.Comments &&
		c.CheckSelfCertify == other.CheckSelfCertify &&
		c.SelfCertificationReassignment == other.SelfCertificationReassignment
}

// MergeIDs absorbs other's targets, skipping duplicates.
func (c *Command) MergeIDs(other *Command) {
	for _, it := range other.ItemIDs {
		if !containsItem(c.ItemIDs, it) {
			c.ItemIDs = append(c.ItemIDs, it)
		}
	}
	for _, e := range other.EntityIDs {
		if !containsEntity(c.EntityIDs, e) {
			c.EntityIDs = append(c.EntityIDs, e)
		}
	}
}

// AddItem queues an item onto the command, skipping duplicates.
func (c *Command) AddItem(item id.ItemID) {
	if !containsItem(c.ItemIDs, item) {
		c.ItemIDs = append(c.ItemIDs, item)
	}
}

// AddEntity queues an entity onto the command, skipping duplicates.
func (c *Command) AddEntity(entity id.EntityID) {
	if !containsEntity(c.EntityIDs, entity) {
		c.EntityIDs = append(c.EntityIDs, entity)
	}
}

func containsItem(ids []id.ItemID, want id.ItemID) bool {
	for _, it := range ids {
		if it == want {
			return true
		}
	}
	return false
}

func containsEntity(ids []id.EntityID, want id.EntityID) bool {
	for _, e := range ids {
		if e == want {
			return true
		}
	}
	return false
}
