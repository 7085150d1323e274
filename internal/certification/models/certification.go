package models

import (
	"time"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

// SignOff records one approver's sign off on a completed certification.
type SignOff struct {
	Signer string    `json:"signer"`
	Date   time.Time `json:"date"`
}

// Certification is the aggregate root: the review campaign, its entities and
// items, its phase configuration, and any pending bulk commands. Entities and
// items live in flat maps keyed by id; entities refer to their items by id.
type Certification struct {
	ID id.CertificationID `json:"id"`

	Name      string   `json:"name"`
	ShortName string   `json:"short_name,omitempty"`
	Type      CertType `json:"type"`

	Owners  []string `json:"owners,omitempty"`
	Creator string   `json:"creator,omitempty"`

	// Parent links a reassignment or sub certification to the certification
	// it was carved out of.
	Parent id.CertificationID `json:"parent,omitzero"`
	// Children are certifications carved out of this one.
	Children []id.CertificationID `json:"children,omitempty"`

	// BulkReassignment marks certifications created by a reassign command.
	BulkReassignment bool `json:"bulk_reassignment,omitempty"`
	// SelfCertificationReassignment marks certifications created to move
	// items away from a reviewer who holds them.
	SelfCertificationReassignment bool `json:"self_certification_reassignment,omitempty"`

	Phase       Phase         `json:"phase,omitempty"`
	PhaseConfig []PhaseConfig `json:"phase_config,omitempty"`

	// NextPhaseTransition is when the certification rolls to its next phase.
	// Unused when rolling phases put each item on its own clock.
	NextPhaseTransition time.Time `json:"next_phase_transition,omitzero"`

	// Continuous certifications never end; items cycle individually.
	Continuous bool `json:"continuous,omitempty"`

	// ProcessRevokesImmediately launches remediations as soon as the
	// decision is final instead of waiting for the remediation phase.
	ProcessRevokesImmediately bool `json:"process_revokes_immediately,omitempty"`

	EntitlementGranularity EntitlementGranularity `json:"entitlement_granularity,omitempty"`

	Created    time.Time `json:"created,omitzero"`
	Activated  time.Time `json:"activated,omitzero"`
	Finished   time.Time `json:"finished,omitzero"`
	Expiration time.Time `json:"expiration,omitzero"`

	// Signed is set when electronic sign off completes. A signed
	// certification is immutable.
	Signed   time.Time `json:"signed,omitzero"`
	SignOffs []SignOff `json:"sign_offs,omitempty"`

	Entities map[id.EntityID]*Entity `json:"entities,omitempty"`
	Items    map[id.ItemID]*Item     `json:"items,omitempty"`

	// Commands are pending bulk commands on persisted targets, merged by
	// similarity. UnpersistedCommands hold targets that have not been saved
	// yet and are folded into Commands once their targets persist.
	Commands            []*Command `json:"commands,omitempty"`
	UnpersistedCommands []*Command `json:"unpersisted_commands,omitempty"`

	Stats Statistics `json:"stats"`
}

func NewCertification(name string, typ CertType, now time.Time) *Certification {
	return &Certification{
		ID:       id.NewCertificationID(),
		Name:     name,
		Type:     typ,
		Created:  now,
		Entities: map[id.EntityID]*Entity{},
		Items:    map[id.ItemID]*Item{},
	}
}

// AddEntity registers an entity in the arena.
func (c *Certification) AddEntity(e *Entity) {
	if c.Entities == nil {
		c.Entities = map[id.EntityID]*Entity{}
	}
	c.Entities[e.ID] = e
}

// AddItem registers an item in the arena and links it to its entity.
func (c *Certification) AddItem(it *Item) error {
	e, ok := c.Entities[it.EntityID]
	if !ok {
		return dErrors.Newf(dErrors.CodeInvariantViolation,
			"item %s references unknown entity %s", it.ID, it.EntityID)
	}
	if c.Items == nil {
		c.Items = map[id.ItemID]*Item{}
	}
	c.Items[it.ID] = it
	e.AddItem(it.ID)
	return nil
}

// Item resolves an item id, nil when absent.
func (c *Certification) Item(itemID id.ItemID) *Item {
	return c.Items[itemID]
}

// Entity resolves an entity id, nil when absent.
func (c *Certification) Entity(entityID id.EntityID) *Entity {
	return c.Entities[entityID]
}

// EntityOf resolves the entity owning an item, nil when unlinked.
func (c *Certification) EntityOf(it *Item) *Entity {
	if it == nil {
		return nil
	}
	return c.Entities[it.EntityID]
}

// ItemsOnSameAccount returns the entity's other items certifying entitlements
// on the same account as the given item. Items of other entities may carry
// the same account coordinates; their reviews stay independent.
func (c *Certification) ItemsOnSameAccount(it *Item) []*Item {
	e := c.EntityOf(it)
	if e == nil {
		return nil
	}
	var siblings []*Item
	for _, otherID := range e.Items {
		other := c.Items[otherID]
		if other == nil || other.ID == it.ID {
			continue
		}
		if it.OnSameAccount(other) {
			siblings = append(siblings, other)
		}
	}
	return siblings
}

// PhaseEnabled reports whether a phase is enabled in the configuration.
func (c *Certification) PhaseEnabled(p Phase) bool {
	for _, pc := range c.PhaseConfig {
		if pc.Phase == p {
			return pc.Enabled
		}
	}
	return false
}

// UseRollingPhases reports whether items transition phases individually
// instead of with the certification as a whole.
func (c *Certification) UseRollingPhases() bool {
	return c.Continuous || (c.ProcessRevokesImmediately &&
		(c.PhaseEnabled(PhaseChallenge) || c.PhaseEnabled(PhaseRemediation)))
}

// EffectiveItemPhase is the phase governing an item: its own phase when
// rolling, otherwise the certification's.
func (c *Certification) EffectiveItemPhase(it *Item) Phase {
	if it != nil && it.Phase != PhaseNone {
		return it.Phase
	}
	return c.Phase
}

// IsOwner reports whether name is one of the certifiers.
func (c *Certification) IsOwner(name string) bool {
	for _, o := range c.Owners {
		if o == name {
			return true
		}
	}
	return false
}

// IsSigned reports whether sign off has completed.
func (c *Certification) IsSigned() bool {
	return !c.Signed.IsZero()
}

// MergeCommand queues a bulk command, folding it into an existing similar
// command when one is already queued.
func (c *Certification) MergeCommand(cmd *Command) {
	for _, existing := range c.Commands {
		if existing.Similar(cmd) {
			existing.MergeIDs(cmd)
			return
		}
	}
	c.Commands = append(c.Commands, cmd)
}

// BulkReassign queues the given items and entities for reassignment to the
// recipient. Targets that have not been persisted yet are parked on a
// temporary command until FlushUnpersistedCommands runs.
func (c *Certification) BulkReassign(requester, recipient string,
	items []*Item, entities []*Entity,
	certName, description, comments string, now time.Time) error {

	cmd, err := NewReassignCommand(requester, recipient, now)
	if err != nil {
		return err
	}
	cmd.CertificationName = certName
	cmd.Description = description
	cmd.Comments = comments

	pending, err := NewReassignCommand(requester, recipient, now)
	if err != nil {
		return err
	}
	pending.CertificationName = certName
	pending.Description = description
	pending.Comments = comments

	for _, it := range items {
		if it.Persisted {
			cmd.AddItem(it.ID)
		} else {
			pending.AddItem(it.ID)
		}
	}
	for _, e := range entities {
		cmd.AddEntity(e.ID)
	}

	if len(cmd.ItemIDs) > 0 || len(cmd.EntityIDs) > 0 {
		c.MergeCommand(cmd)
	}
	if len(pending.ItemIDs) > 0 {
		c.UnpersistedCommands = append(c.UnpersistedCommands, pending)
	}
	return nil
}

// FlushUnpersistedCommands folds parked commands into the main queue once
// their targets have been persisted. Commands still referencing unpersisted
// items indicate a save was skipped.
func (c *Certification) FlushUnpersistedCommands() error {
	for _, cmd := range c.UnpersistedCommands {
		for _, itemID := range cmd.ItemIDs {
			it := c.Items[itemID]
			if it == nil || !it.Persisted {
				return dErrors.Newf(dErrors.CodeInternal,
					"cannot flush reassignment: item %s was never persisted", itemID)
			}
		}
		c.MergeCommand(cmd)
	}
	c.UnpersistedCommands = nil
	return nil
}

// ClearCommands drops all queued commands after background processing
// executes them.
func (c *Certification) ClearCommands() {
	c.Commands = nil
}
