package phase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"attest/internal/certification/models"
)

const day = 24 * time.Hour

// A common production setup: no staging, a 30 day active period, a 10 day
// challenge window, revokes handled outside the certification.
func standardConfig() []models.PhaseConfig {
	return []models.PhaseConfig{
		{Phase: models.PhaseStaged, Enabled: false},
		{Phase: models.PhaseActive, Enabled: true, Duration: 30 * day},
		{Phase: models.PhaseChallenge, Enabled: true, Duration: 10 * day},
		{Phase: models.PhaseRemediation, Enabled: false},
	}
}

func TestNext_SkipsDisabledPhases(t *testing.T) {
	config := standardConfig()

	assert.Equal(t, models.PhaseActive, Next(config, models.PhaseNone))
	assert.Equal(t, models.PhaseChallenge, Next(config, models.PhaseActive))
	assert.Equal(t, models.PhaseEnd, Next(config, models.PhaseChallenge))
	assert.Equal(t, models.PhaseEnd, Next(config, models.PhaseEnd))
}

func TestNext_StagedWhenEnabled(t *testing.T) {
	config := standardConfig()
	config[0].Enabled = true

	assert.Equal(t, models.PhaseStaged, Next(config, models.PhaseNone))
	assert.Equal(t, models.PhaseActive, Next(config, models.PhaseStaged))
}

func TestPrevious(t *testing.T) {
	config := standardConfig()

	assert.Equal(t, models.PhaseNone, Previous(config, models.PhaseActive))
	assert.Equal(t, models.PhaseActive, Previous(config, models.PhaseChallenge))
	assert.Equal(t, models.PhaseChallenge, Previous(config, models.PhaseEnd))
}

func TestEndDate_SumsEnabledDurations(t *testing.T) {
	config := standardConfig()
	activated := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, activated.Add(30*day), EndDate(config, activated, models.PhaseActive))
	assert.Equal(t, activated.Add(40*day), EndDate(config, activated, models.PhaseChallenge))
	// Remediation is disabled so it adds nothing.
	assert.Equal(t, activated.Add(40*day), EndDate(config, activated, models.PhaseRemediation))

	assert.True(t, EndDate(config, time.Time{}, models.PhaseActive).IsZero())
}

func TestExpiration(t *testing.T) {
	activated := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	cert := models.NewCertification("review", models.CertTypeManager, activated)
	cert.PhaseConfig = standardConfig()

	assert.True(t, Expiration(cert).IsZero(), "not yet activated")

	cert.Activated = activated
	assert.Equal(t, activated.Add(40*day), Expiration(cert))

	cert.Continuous = true
	assert.True(t, Expiration(cert).IsZero(), "continuous certifications never expire")
}
