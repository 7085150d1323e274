package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: certification, entity, or item does not exist in store
// - ErrConflict: a concurrent writer won a uniqueness race
// - ErrInvalidState: object in the wrong lifecycle state for the operation
// - ErrLocked: certification row lock is held elsewhere
// - ErrUnavailable: backing service temporarily unavailable
//
// For validation errors (bad input, illegal decisions) use pkg/domain-errors
// directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrInvalidState = errors.New("invalid state")
	ErrLocked       = errors.New("locked")
	ErrUnavailable  = errors.New("unavailable")
)
