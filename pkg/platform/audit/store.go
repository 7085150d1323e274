package audit

import (
	"context"

	id "attest/pkg/domain"
)

// Store persists audit events. Implementations must be safe for concurrent
// appends.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByCertification(ctx context.Context, certID id.CertificationID) ([]Event, error)
}
