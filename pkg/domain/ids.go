// Package domain holds identifier types shared across feature packages.
//
// Each id is a distinct uuid-backed type so the compiler rejects mixups
// (passing an item id where an entity id is expected). Construct ids from
// external input with the Parse functions; direct conversion bypasses
// validation.
package domain

import (
	"github.com/google/uuid"

	dErrors "attest/pkg/domain-errors"
)

type (
	// CertificationID identifies one access-review campaign.
	CertificationID uuid.UUID

	// EntityID identifies a certified subject grouping within a certification.
	EntityID uuid.UUID

	// ItemID identifies a single certifiable decision unit.
	ItemID uuid.UUID

	// ActionID identifies a decision record on an item.
	ActionID uuid.UUID

	// WorkItemID identifies the work item a delegated decision is made in.
	WorkItemID uuid.UUID
)

func NewCertificationID() CertificationID { return CertificationID(uuid.New()) }
func NewEntityID() EntityID               { return EntityID(uuid.New()) }
func NewItemID() ItemID                   { return ItemID(uuid.New()) }
func NewActionID() ActionID               { return ActionID(uuid.New()) }
func NewWorkItemID() WorkItemID           { return WorkItemID(uuid.New()) }

func (id CertificationID) String() string { return uuid.UUID(id).String() }
func (id EntityID) String() string        { return uuid.UUID(id).String() }
func (id ItemID) String() string          { return uuid.UUID(id).String() }
func (id ActionID) String() string        { return uuid.UUID(id).String() }
func (id WorkItemID) String() string      { return uuid.UUID(id).String() }

func (id CertificationID) IsZero() bool { return uuid.UUID(id) == uuid.Nil }
func (id EntityID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id ItemID) IsZero() bool          { return uuid.UUID(id) == uuid.Nil }
func (id ActionID) IsZero() bool        { return uuid.UUID(id) == uuid.Nil }
func (id WorkItemID) IsZero() bool      { return uuid.UUID(id) == uuid.Nil }

// Text marshalling so the id types work as JSON map keys in store payloads.

func (id CertificationID) MarshalText() ([]byte, error) { return marshalText(uuid.UUID(id)) }
func (id EntityID) MarshalText() ([]byte, error)        { return marshalText(uuid.UUID(id)) }
func (id ItemID) MarshalText() ([]byte, error)          { return marshalText(uuid.UUID(id)) }
func (id ActionID) MarshalText() ([]byte, error)        { return marshalText(uuid.UUID(id)) }
func (id WorkItemID) MarshalText() ([]byte, error)      { return marshalText(uuid.UUID(id)) }

func (id *CertificationID) UnmarshalText(b []byte) error {
	return unmarshalText((*uuid.UUID)(id), b)
}
func (id *EntityID) UnmarshalText(b []byte) error   { return unmarshalText((*uuid.UUID)(id), b) }
func (id *ItemID) UnmarshalText(b []byte) error     { return unmarshalText((*uuid.UUID)(id), b) }
func (id *ActionID) UnmarshalText(b []byte) error   { return unmarshalText((*uuid.UUID)(id), b) }
func (id *WorkItemID) UnmarshalText(b []byte) error { return unmarshalText((*uuid.UUID)(id), b) }

func marshalText(u uuid.UUID) ([]byte, error) {
	return []byte(u.String()), nil
}

func unmarshalText(u *uuid.UUID, b []byte) error {
	parsed, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// ParseCertificationID constructs a CertificationID from external input.
//
// Errors: CodeInvalidInput when the value is empty, malformed, or the nil
// uuid; no other errors are expected.
func ParseCertificationID(s string) (CertificationID, error) {
	u, err := parseUUID(s)
	return CertificationID(u), err
}

func ParseEntityID(s string) (EntityID, error) {
	u, err := parseUUID(s)
	return EntityID(u), err
}

func ParseItemID(s string) (ItemID, error) {
	u, err := parseUUID(s)
	return ItemID(u), err
}

func ParseActionID(s string) (ActionID, error) {
	u, err := parseUUID(s)
	return ActionID(u), err
}

func ParseWorkItemID(s string) (WorkItemID, error) {
	u, err := parseUUID(s)
	return WorkItemID(u), err
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must be a valid uuid")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id cannot be the nil uuid")
	}
	return u, nil
}
