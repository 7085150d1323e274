package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/certification/models"
	id "attest/pkg/domain"
)

func challengeEnabledCert(t *testing.T) *models.Certification {
	t.Helper()
	cert := models.NewCertification("quarterly review", models.CertTypeManager, time.Now())
	cert.PhaseConfig = []models.PhaseConfig{
		{Phase: models.PhaseActive, Enabled: true, Duration: 30 * 24 * time.Hour},
		{Phase: models.PhaseChallenge, Enabled: true, Duration: 10 * 24 * time.Hour},
	}
	return cert
}

func approvedAction(t *testing.T, cert *models.Certification) *models.Action {
	t.Helper()
	a := models.NewAction()
	a.Approve(cert.ID, "owner", id.WorkItemID{}, "", time.Now())
	return a
}

func remediatedAction(t *testing.T, cert *models.Certification) *models.Action {
	t.Helper()
	a := models.NewAction()
	a.Remediate(cert.ID, "owner", id.WorkItemID{}, models.RemediationSendProvisionRequest,
		"", "", "", nil, nil, time.Now())
	return a
}

func TestLockedByPhase_NeverLocksNewDecisions(t *testing.T) {
	cert := challengeEnabledCert(t)
	cert.Phase = models.PhaseEnd

	assert.False(t, LockedByPhase(cert, nil, models.PhaseNone))

	cleared := models.NewAction()
	cleared.Clear(cert.ID, "owner", id.WorkItemID{}, "", time.Now())
	assert.False(t, LockedByPhase(cert, cleared, models.PhaseNone))
}

func TestLockedByPhase_Monotonic(t *testing.T) {
	cert := challengeEnabledCert(t)
	action := approvedAction(t, cert)

	locked := false
	for _, p := range []models.Phase{
		models.PhaseStaged, models.PhaseActive, models.PhaseChallenge,
		models.PhaseRemediation, models.PhaseEnd,
	} {
		cert.Phase = p
		now := LockedByPhase(cert, action, models.PhaseNone)
		if locked {
			assert.True(t, now, "phase %s must not unlock a locked decision", p)
		}
		locked = now
	}
	assert.True(t, locked, "decision must be locked by the end of the lifecycle")
}

func TestLockedByPhase_RemediationFrozenDuringChallenge(t *testing.T) {
	cert := challengeEnabledCert(t)
	cert.Phase = models.PhaseChallenge

	assert.False(t, LockedByPhase(cert, approvedAction(t, cert), models.PhaseNone),
		"approvals stay changeable during the challenge window")
	assert.True(t, LockedByPhase(cert, remediatedAction(t, cert), models.PhaseNone),
		"remediations freeze once challengers can contest them")
}

func TestLockedByPhase_ItemPhaseOverridesCertification(t *testing.T) {
	cert := challengeEnabledCert(t)
	cert.Phase = models.PhaseActive
	action := approvedAction(t, cert)

	assert.False(t, LockedByPhase(cert, action, models.PhaseNone))
	assert.True(t, LockedByPhase(cert, action, models.PhaseRemediation))
}

func TestLockedByPhase_RequiresChallengeOrRemediationEnabled(t *testing.T) {
	cert := challengeEnabledCert(t)
	cert.PhaseConfig = []models.PhaseConfig{
		{Phase: models.PhaseActive, Enabled: true, Duration: 30 * 24 * time.Hour},
	}
	cert.Phase = models.PhaseEnd

	assert.False(t, LockedByPhase(cert, remediatedAction(t, cert), models.PhaseNone))
}

func TestLockedByRevokes_TerminalOnKickedOffRemediation(t *testing.T) {
	cert := challengeEnabledCert(t)
	action := remediatedAction(t, cert)
	action.RemediationKickedOff = true

	// The lock holds regardless of configuration, phase, or review state,
	// and stays held under re-evaluation.
	for range 3 {
		assert.True(t, LockedByRevokes(cert, nil, nil, action))
	}

	cert.ProcessRevokesImmediately = false
	reviewPending, err := models.NewDelegation("owner", "delegate",
		id.WorkItemID{}, "", "", true, time.Now())
	require.NoError(t, err)
	reviewPending.Finish()
	action.Reviewed = false
	assert.True(t, LockedByRevokes(cert, reviewPending, nil, action))
}

func TestLockedByRevokes_RequiresImmediateProcessing(t *testing.T) {
	cert := challengeEnabledCert(t)
	action := remediatedAction(t, cert)

	assert.False(t, LockedByRevokes(cert, nil, nil, action))

	cert.ProcessRevokesImmediately = true
	assert.True(t, LockedByRevokes(cert, nil, nil, action))
	assert.False(t, LockedByRevokes(cert, nil, nil, approvedAction(t, cert)),
		"plain approvals commit nothing")
	assert.False(t, LockedByRevokes(cert, nil, nil, nil), "no decision, no lock")
}

func TestLockedByRevokes_ApprovalWithProvisioningLocks(t *testing.T) {
	cert := challengeEnabledCert(t)
	cert.ProcessRevokesImmediately = true

	action := models.NewAction()
	action.ApproveWithProvisioning(cert.ID, "owner", id.WorkItemID{},
		&models.RemediationPlan{Requests: []string{"add role"}}, "", "", "", time.Now())

	assert.True(t, LockedByRevokes(cert, nil, nil, action))
}

func TestLockedByRevokes_ReviewPendingBypassesLock(t *testing.T) {
	cert := challengeEnabledCert(t)
	cert.ProcessRevokesImmediately = true

	delegation, err := models.NewDelegation("owner", "delegate",
		id.WorkItemID{}, "", "", true, time.Now())
	require.NoError(t, err)

	action := models.NewAction()
	action.Remediate(cert.ID, "delegate", delegation.WorkItem,
		models.RemediationSendProvisionRequest, "", "", "", nil, nil, time.Now())
	delegation.Finish()

	assert.False(t, LockedByRevokes(cert, delegation, nil, action),
		"a decision still awaiting review has not committed")

	action.Reviewed = true
	assert.True(t, LockedByRevokes(cert, delegation, nil, action))
}
