// Package phase computes certification phase transitions from a phase
// configuration list: which phase comes next, when each phase ends, and when
// the certification as a whole expires.
package phase

import (
	"time"

	"attest/internal/certification/models"
)

// ordered is the full phase sequence a certification can move through.
var ordered = []models.Phase{
	models.PhaseStaged,
	models.PhaseActive,
	models.PhaseChallenge,
	models.PhaseRemediation,
	models.PhaseEnd,
}

func enabled(config []models.PhaseConfig, p models.Phase) bool {
	for _, pc := range config {
		if pc.Phase == p {
			return pc.Enabled
		}
	}
	// End is always reachable regardless of configuration.
	return p == models.PhaseEnd
}

func duration(config []models.PhaseConfig, p models.Phase) time.Duration {
	for _, pc := range config {
		if pc.Phase == p {
			return pc.Duration
		}
	}
	return 0
}

// Start is the phase a newly activated certification enters: Staged when
// staging is enabled, otherwise straight to Active.
func Start(config []models.PhaseConfig) models.Phase {
	if enabled(config, models.PhaseStaged) {
		return models.PhaseStaged
	}
	return models.PhaseActive
}

// Next walks the configuration for the next enabled phase after current.
// PhaseNone means the certification has not started. Disabled phases are
// skipped; End is terminal.
func Next(config []models.PhaseConfig, current models.Phase) models.Phase {
	if current == models.PhaseNone {
		return Start(config)
	}
	for _, p := range ordered {
		if !p.After(current) {
			continue
		}
		if enabled(config, p) {
			return p
		}
	}
	return models.PhaseEnd
}

// Previous walks the configuration for the closest enabled phase before
// current. PhaseNone when there is none.
func Previous(config []models.PhaseConfig, current models.Phase) models.Phase {
	prev := models.PhaseNone
	for _, p := range ordered {
		if !p.Before(current) {
			break
		}
		if enabled(config, p) {
			prev = p
		}
	}
	return prev
}

// EndDate is when the target phase ends: the activation date plus the
// durations of every enabled phase up to and including the target. The staged
// phase has no duration; the clock starts at activation.
func EndDate(config []models.PhaseConfig, activated time.Time, target models.Phase) time.Time {
	if activated.IsZero() {
		return time.Time{}
	}
	end := activated
	for _, p := range ordered {
		if p == models.PhaseStaged || p.After(target) {
			continue
		}
		if enabled(config, p) {
			end = end.Add(duration(config, p))
		}
	}
	return end
}

// Expiration is when the certification stops accepting challenges: the end of
// the challenge window. Zero for continuous certifications and for
// certifications that were never activated.
func Expiration(cert *models.Certification) time.Time {
	if cert.Continuous || cert.Activated.IsZero() {
		return time.Time{}
	}
	return EndDate(cert.PhaseConfig, cert.Activated, models.PhaseChallenge)
}

// TransitionAt is when the certification (or an item, under rolling phases)
// moves out of its current phase.
func TransitionAt(config []models.PhaseConfig, activated time.Time, current models.Phase) time.Time {
	if current == models.PhaseEnd {
		return time.Time{}
	}
	return EndDate(config, activated, current)
}
