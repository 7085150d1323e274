// Package store persists certification trees. The whole aggregate (entities,
// items, queued commands) saves and loads as one unit; callers own locking.
package store

import (
	"context"
	"time"

	"attest/internal/certification/models"
	id "attest/pkg/domain"
)

// ChildRecord is the projection used for hierarchy completeness checks: just
// enough to know whether a child certification has been signed.
type ChildRecord struct {
	ID     id.CertificationID
	Signed time.Time
}

type Store interface {
	// Save persists the certification tree and marks its items persisted.
	Save(ctx context.Context, cert *models.Certification) error

	// FindByID loads a certification tree. Returns sentinel.ErrNotFound
	// when no certification has the id.
	FindByID(ctx context.Context, certID id.CertificationID) (*models.Certification, error)

	// Children projects the direct children of a certification.
	Children(ctx context.Context, parentID id.CertificationID) ([]ChildRecord, error)
}
