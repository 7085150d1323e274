package models

import (
	"time"

	id "attest/pkg/domain"
)

// Entity is the subject of a group of items: an identity, an account group,
// or a role, depending on the certification type. Entities can be delegated
// as a whole, which affects who may decide their items.
type Entity struct {
	ID id.EntityID `json:"id"`

	// Identity is the name of the identity being certified, for identity
	// based certification types.
	Identity string `json:"identity,omitempty"`

	// TargetName is the display name of whatever is being certified.
	TargetName string `json:"target_name,omitempty"`

	// AccountGroup and Application identify the group for group
	// certifications.
	AccountGroup string `json:"account_group,omitempty"`
	Application  string `json:"application,omitempty"`

	// Bundle is the role name for role composition certifications.
	Bundle string `json:"bundle,omitempty"`

	Delegation *Delegation `json:"delegation,omitempty"`

	// Summary is the rolled-up status across the entity's items.
	Summary ItemStatus `json:"summary,omitempty"`

	// Items are the ids of this entity's items in the certification arena.
	Items []id.ItemID `json:"items,omitempty"`
}

func NewEntity() *Entity {
	return &Entity{ID: id.NewEntityID()}
}

// Delegated reports whether the entity has an active delegation.
func (e *Entity) Delegated() bool {
	return e != nil && e.Delegation.Active()
}

// Delegate opens a delegation covering the whole entity.
func (e *Entity) Delegate(recipient, actorName string, workItem id.WorkItemID,
	description, comments string, reviewRequired bool, now time.Time) error {

	d, err := NewDelegation(actorName, recipient, workItem, description,
		comments, reviewRequired, now)
	if err != nil {
		return err
	}
	e.Delegation = d
	return nil
}

// RevokeDelegation cancels the entity's delegation, if any.
func (e *Entity) RevokeDelegation() {
	if e.Delegation != nil {
		e.Delegation.Revoke()
	}
}

// AddItem links an item into the entity.
func (e *Entity) AddItem(item id.ItemID) {
	e.Items = append(e.Items, item)
}

// RemoveItem unlinks an item from the entity.
func (e *Entity) RemoveItem(item id.ItemID) {
	for i, it := range e.Items {
		if it == item {
			e.Items = append(e.Items[:i], e.Items[i+1:]...)
			return
		}
	}
}
