package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"attest/internal/certification/decision"
	"attest/internal/certification/locks"
	"attest/internal/certification/models"
	certstore "attest/internal/certification/store"
	"attest/internal/governance"
	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
	"attest/pkg/platform/audit"
	"attest/pkg/platform/audit/publisher"
	auditmemory "attest/pkg/platform/audit/store/memory"
	"attest/pkg/requestcontext"
)

type fixture struct {
	svc      *Service
	store    *certstore.InMemoryStore
	locker   *locks.InMemoryLocker
	settings *governance.StaticProvider
	audit    *auditmemory.InMemoryStore
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  certstore.NewInMemoryStore(),
		locker: locks.NewInMemoryLocker(),
		settings: governance.NewStaticProvider(governance.Settings{
			RequireReassignmentCompletion: true,
			RequireDelegationReview:       true,
			ReassignmentLimit:             1,
		}),
		audit: auditmemory.NewInMemoryStore(),
		now:   time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = New(f.store, f.locker, f.settings,
		WithAuditPublisher(publisher.NewPublisher(f.audit)))
	return f
}

// as builds a request context for the given actor with the fixture clock.
func (f *fixture) as(actor string) context.Context {
	ctx := requestcontext.WithActor(context.Background(), actor)
	return requestcontext.WithTime(ctx, f.now)
}

// createCert persists a certification owned by "ada" with one entity and two
// exception items on the same account.
func (f *fixture) createCert(t *testing.T) (*models.Certification, []*models.Item) {
	t.Helper()
	entity := models.NewEntity()
	entity.Identity = "jsmith"

	i1 := models.NewItem(entity.ID, models.ItemTypeException)
	i1.Application = "HR System"
	i1.NativeIdentity = "acct1"
	i2 := models.NewItem(entity.ID, models.ItemTypeException)
	i2.Application = "HR System"
	i2.NativeIdentity = "acct1"

	cert, err := f.svc.Create(f.as("ada"), CreateParams{
		Name:   "quarterly exception review",
		Type:   models.CertTypeApplicationOwner,
		Owners: []string{"ada"},
		PhaseConfig: []models.PhaseConfig{
			{Phase: models.PhaseActive, Enabled: true, Duration: 30 * 24 * time.Hour},
			{Phase: models.PhaseChallenge, Enabled: true, Duration: 10 * 24 * time.Hour},
		},
		Entities: []*models.Entity{entity},
		Items:    []*models.Item{i1, i2},
	})
	require.NoError(t, err)
	return cert, []*models.Item{i1, i2}
}

func (f *fixture) events(t *testing.T, certID id.CertificationID) []audit.Event {
	t.Helper()
	events, err := f.audit.ListByCertification(context.Background(), certID)
	require.NoError(t, err)
	return events
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(f.as("ada"), CreateParams{Owners: []string{"ada"}})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = f.svc.Create(f.as("ada"), CreateParams{Name: "review"})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}

func TestCreate_EmitsAuditEvent(t *testing.T) {
	f := newFixture(t)
	cert, _ := f.createCert(t)

	events := f.events(t, cert.ID)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCertificationCreated), events[0].Action)
	assert.Equal(t, "ada", events[0].Actor)
	assert.Equal(t, f.now, events[0].Timestamp)
}

func TestGet_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Get(context.Background(), id.NewCertificationID())
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDecide_ApprovePersistsAndAudits(t *testing.T) {
	f := newFixture(t)
	cert, items := f.createCert(t)

	err := f.svc.Decide(f.as("ada"), cert.ID, items[0].ID, DecisionRequest{
		Status:   models.StatusApproved,
		Comments: "access verified",
	})
	require.NoError(t, err)

	loaded, err := f.svc.Get(context.Background(), cert.ID)
	require.NoError(t, err)
	it := loaded.Item(items[0].ID)
	require.NotNil(t, it.Action)
	assert.Equal(t, models.StatusApproved, it.Action.Status)
	assert.Equal(t, "ada", it.Action.Actor)
	assert.Equal(t, models.ItemStatusComplete, it.Summary)
	assert.Equal(t, 1, loaded.Stats.CompletedItems)

	events := f.events(t, cert.ID)
	last := events[len(events)-1]
	assert.Equal(t, string(audit.EventDecisionMade), last.Action)
	assert.Equal(t, string(models.StatusApproved), last.Decision)
	assert.Equal(t, items[0].ID, last.Item)
}

func TestDecide_ItemNotFound(t *testing.T) {
	f := newFixture(t)
	cert, _ := f.createCert(t)

	err := f.svc.Decide(f.as("ada"), cert.ID, id.NewItemID(), DecisionRequest{
		Status: models.StatusApproved,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDecide_AccountRevokeCascades(t *testing.T) {
	f := newFixture(t)
	cert, items := f.createCert(t)

	err := f.svc.Decide(f.as("ada"), cert.ID, items[0].ID, DecisionRequest{
		Status:      models.StatusRevokeAccount,
		Remediation: models.RemediationSendProvisionRequest,
		Recipient:   "remediator",
	})
	require.NoError(t, err)

	loaded, err := f.svc.Get(context.Background(), cert.ID)
	require.NoError(t, err)
	for _, original := range items {
		it := loaded.Item(original.ID)
		require.NotNil(t, it.Action)
		assert.Equal(t, models.StatusRemediated, it.Action.Status)
		assert.True(t, it.Action.RevokeAccount)
	}

	var made, cascaded int
	for _, event := range f.events(t, cert.ID) {
		switch event.Action {
		case string(audit.EventDecisionMade):
			made++
		case string(audit.EventDecisionCascade):
			cascaded++
			assert.True(t, event.Cascaded)
			assert.Equal(t, items[1].ID, event.Item)
		}
	}
	assert.Equal(t, 1, made)
	assert.Equal(t, 1, cascaded)
}

func TestDecide_LockedAfterRemediationKickoff(t *testing.T) {
	f := newFixture(t)
	cert, items := f.createCert(t)

	err := f.svc.Decide(f.as("ada"), cert.ID, items[0].ID, DecisionRequest{
		Status:      models.StatusRevokeAccount,
		Remediation: models.RemediationSendProvisionRequest,
	})
	require.NoError(t, err)

	// Remediation processing launched the revoke in the background.
	loaded, err := f.svc.Get(context.Background(), cert.ID)
	require.NoError(t, err)
	loaded.Item(items[0].ID).Action.RemediationKickedOff = true
	require.NoError(t, f.store.Save(context.Background(), loaded))

	err = f.svc.Decide(f.as("ada"), cert.ID, items[0].ID, DecisionRequest{
		Status: models.StatusApproved,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
	assert.Equal(t, decision.MsgCantRemoveRevoke, dErrors.MessageOf(err))
}

func TestDecide_ClearWithdrawsDecision(t *testing.T) {
	f := newFixture(t)
	cert, items := f.createCert(t)

	require.NoError(t, f.svc.Decide(f.as("ada"), cert.ID, items[0].ID, DecisionRequest{
		Status: models.StatusApproved,
	}))
	require.NoError(t, f.svc.Decide(f.as("ada"), cert.ID, items[0].ID, DecisionRequest{
		Status: models.StatusNone,
	}))

	loaded, err := f.svc.Get(context.Background(), cert.ID)
	require.NoError(t, err)
	it := loaded.Item(items[0].ID)
	assert.False(t, it.ActedUpon())
	assert.Equal(t, models.ItemStatusOpen, it.Summary)

	events := f.events(t, cert.ID)
	assert.Equal(t, string(audit.EventDecisionCleared), events[len(events)-1].Action)
}

func TestDecide_UnknownStatus(t *testing.T) {
	f := newFixture(t)
	cert, items := f.createCert(t)

	err := f.svc.Decide(f.as("ada"), cert.ID, items[0].ID, DecisionRequest{
		Status: models.ActionStatus("shredded"),
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestDecide_LockContention(t *testing.T) {
	f := newFixture(t)
	cert, items := f.createCert(t)

	held, err := f.locker.Acquire(context.Background(), cert.ID, "bob", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	err = f.svc.Decide(f.as("ada"), cert.ID, items[0].ID, DecisionRequest{
		Status: models.StatusApproved,
	})
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
}

func TestLockedAndActionable(t *testing.T) {
	f := newFixture(t)
	cert, _ := f.createCert(t)
	ctx := context.Background()

	actionable, err := f.svc.LockedAndActionable(ctx, cert.ID)
	require.NoError(t, err)
	assert.False(t, actionable, "no session holds the lock")

	held, err := f.locker.Acquire(ctx, cert.ID, "ada", time.Minute)
	require.NoError(t, err)
	require.True(t, held)

	actionable, err = f.svc.LockedAndActionable(ctx, cert.ID)
	require.NoError(t, err)
	assert.True(t, actionable)
}

func TestDelegate_UsesGovernanceReviewSetting(t *testing.T) {
	f := newFixture(t)
	cert, items := f.createCert(t)

	err := f.svc.Delegate(f.as("ada"), cert.ID, items[0].ID, DelegationRequest{
		Recipient: "bob",
		Comments:  "please review",
	})
	require.NoError(t, err)

	loaded, err := f.svc.Get(context.Background(), cert.ID)
	require.NoError(t, err)
	it := loaded.Item(items[0].ID)
	require.True(t, it.Delegated())
	assert.Equal(t, "bob", it.Delegation.Recipient)
	assert.True(t, it.Delegation.ReviewRequired)
	assert.Equal(t, models.ItemStatusDelegated, it.Summary)
}

func TestRevokeDelegation(t *testing.T) {
	f := newFixture(t)
	cert, items := f.createCert(t)

	err := f.svc.RevokeDelegation(f.as("ada"), cert.ID, items[0].ID)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict),
		"cannot revoke a delegation that does not exist")

	require.NoError(t, f.svc.Delegate(f.as("ada"), cert.ID, items[0].ID,
		DelegationRequest{Recipient: "bob"}))
	require.NoError(t, f.svc.RevokeDelegation(f.as("ada"), cert.ID, items[0].ID))

	loaded, err := f.svc.Get(context.Background(), cert.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Item(items[0].ID).Delegated())
}

func TestChallengeLifecycle(t *testing.T) {
	f := newFixture(t)
	cert, items := f.createCert(t)

	require.NoError(t, f.svc.Activate(f.as("ada"), cert.ID))
	require.NoError(t, f.svc.Decide(f.as("ada"), cert.ID, items[0].ID, DecisionRequest{
		Status:      models.StatusRemediated,
		Remediation: models.RemediationOpenWorkItem,
		Recipient:   "remediator",
	}))

	err := f.svc.FileChallenge(f.as("jsmith"), cert.ID, items[0].ID, "still need this")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict),
		"challenges are rejected outside the challenge phase")

	require.NoError(t, f.svc.AdvancePhase(f.as("ada"), cert.ID))
	require.NoError(t, f.svc.FileChallenge(f.as("jsmith"), cert.ID, items[0].ID, "still need this"))
	require.NoError(t, f.svc.AcceptChallenge(f.as("ada"), cert.ID, items[0].ID, "fair point"))

	loaded, err := f.svc.Get(context.Background(), cert.ID)
	require.NoError(t, err)
	assert.False(t, loaded.Item(items[0].ID).ActedUpon(),
		"accepting the challenge withdraws the decision")

	events := f.events(t, cert.ID)
	assert.Equal(t, string(audit.EventChallengeAccepted), events[len(events)-1].Action)
}
