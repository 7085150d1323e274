package models

import (
	"time"

	dErrors "attest/pkg/domain-errors"
)

// Phase is a stage in the certification lifecycle. The declaration order is
// load-bearing: phase-lock checks and transition walking compare phases by
// this ordering.
type Phase int

const (
	// PhaseNone means the certification (or item) has not started phasing.
	PhaseNone Phase = iota

	// PhaseStaged: generated but not yet active in the system.
	PhaseStaged

	// PhaseActive: decisions are being made.
	PhaseActive

	// PhaseChallenge: affected users may contest revocation decisions.
	PhaseChallenge

	// PhaseRemediation: remediation requests have been sent and are being
	// tracked to completion.
	PhaseRemediation

	// PhaseEnd: terminal phase after all others complete.
	PhaseEnd
)

var phaseNames = map[Phase]string{
	PhaseNone:        "",
	PhaseStaged:      "staged",
	PhaseActive:      "active",
	PhaseChallenge:   "challenge",
	PhaseRemediation: "remediation",
	PhaseEnd:         "end",
}

func (p Phase) String() string {
	return phaseNames[p]
}

// Before reports whether p is strictly earlier than other in the lifecycle.
func (p Phase) Before(other Phase) bool { return p < other }

// After reports whether p is strictly later than other in the lifecycle.
func (p Phase) After(other Phase) bool { return p > other }

func (p Phase) MarshalText() ([]byte, error) {
	name, ok := phaseNames[p]
	if !ok {
		return nil, dErrors.Newf(dErrors.CodeInternal, "unknown phase %d", int(p))
	}
	return []byte(name), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	parsed, err := ParsePhase(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// ParsePhase constructs a Phase from external input. The empty string maps to
// PhaseNone so nullable phase columns round-trip.
func ParsePhase(s string) (Phase, error) {
	for p, name := range phaseNames {
		if name == s {
			return p, nil
		}
	}
	return PhaseNone, dErrors.Newf(dErrors.CodeInvalidInput, "unknown phase %q", s)
}

// PhaseConfig is one entry of a certification's ordered phase configuration:
// whether the phase runs at all and for how long.
type PhaseConfig struct {
	Phase    Phase         `json:"phase"`
	Enabled  bool          `json:"enabled"`
	Duration time.Duration `json:"duration"`
}
