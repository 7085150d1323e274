// Package governance exposes the system defaults that shape certification
// behavior. Components receive a Provider instead of reading global state, so
// tests can pin settings and production can back them with a config service.
package governance

import (
	"context"
	"os"
	"strconv"
	"sync"
)

// Settings are the tunables the certification engine consults.
type Settings struct {
	// AssimilateBulkReassignments folds decisions made in a reassignment
	// certification back into the parent when the reassignment is signed.
	AssimilateBulkReassignments bool

	// RequireReassignmentCompletion blocks signing a certification while
	// reassignment children remain unsigned.
	RequireReassignmentCompletion bool

	// LimitReassignments caps how many times an item may be reassigned.
	LimitReassignments bool
	ReassignmentLimit  int

	// RequireDelegationReview forces owner review of delegate decisions.
	RequireDelegationReview bool

	// DefaultRemediator receives remediation work items when no owner can
	// be determined.
	DefaultRemediator string
}

// Provider hands out the current settings.
type Provider interface {
	Settings(ctx context.Context) (Settings, error)
}

// StaticProvider returns fixed settings. Safe for concurrent use; Update
// swaps the whole snapshot.
type StaticProvider struct {
	mu       sync.RWMutex
	settings Settings
}

func NewStaticProvider(settings Settings) *StaticProvider {
	return &StaticProvider{settings: settings}
}

func (p *StaticProvider) Settings(context.Context) (Settings, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings, nil
}

func (p *StaticProvider) Update(settings Settings) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings = settings
}

// FromEnv builds settings from environment variables, with the defaults the
// product ships with.
func FromEnv() Settings {
	return Settings{
		AssimilateBulkReassignments:   envBool("ATTEST_ASSIMILATE_BULK_REASSIGNMENTS", false),
		RequireReassignmentCompletion: envBool("ATTEST_REQUIRE_REASSIGNMENT_COMPLETION", true),
		LimitReassignments:            envBool("ATTEST_LIMIT_REASSIGNMENTS", false),
		ReassignmentLimit:             envInt("ATTEST_REASSIGNMENT_LIMIT", 1),
		RequireDelegationReview:       envBool("ATTEST_REQUIRE_DELEGATION_REVIEW", true),
		DefaultRemediator:             os.Getenv("ATTEST_DEFAULT_REMEDIATOR"),
	}
}

func envBool(key string, fallback bool) bool {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envInt(key string, fallback int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
