package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attest/pkg/domain"
)

func TestSummaryFor_Precedence(t *testing.T) {
	cert := newTestCertification(t)
	cert.ID = id.NewCertificationID()
	entity, items := addEntityWithItems(t, cert, "ada", ItemTypeException)
	it := items[0]
	now := time.Now()

	assert.Equal(t, ItemStatusOpen, cert.SummaryFor(it))

	// A decided item is complete.
	it.Action = NewAction()
	it.Action.Approve(cert.ID, "owner", id.WorkItemID{}, "", now)
	assert.Equal(t, ItemStatusComplete, cert.SummaryFor(it))

	// An open challenge trumps the decision.
	it.Challenge = NewChallenge("ada")
	it.Challenge.File("I still need this access")
	assert.Equal(t, ItemStatusChallenged, cert.SummaryFor(it))
	it.Challenge.Reject("owner", "access not justified", now)
	assert.Equal(t, ItemStatusComplete, cert.SummaryFor(it))

	// An active delegation on the parent entity overrides too.
	require.NoError(t, entity.Delegate("owner", "delegate",
		id.WorkItemID{}, "", "", true, now))
	assert.Equal(t, ItemStatusDelegated, cert.SummaryFor(it))
	entity.Delegation.Finish()

	// The delegate decided with review required: waiting for the owner.
	it.Action.Reviewed = false
	assert.Equal(t, ItemStatusWaitingReview, cert.SummaryFor(it))
	it.Action.Reviewed = true
	assert.Equal(t, ItemStatusComplete, cert.SummaryFor(it))
}

func TestSummaryFor_ReturnedDelegation(t *testing.T) {
	cert := newTestCertification(t)
	_, items := addEntityWithItems(t, cert, "ada", ItemTypeException)
	it := items[0]

	require.NoError(t, it.Delegate("owner", "delegate",
		id.WorkItemID{}, "", "", false, time.Now()))
	assert.Equal(t, ItemStatusDelegated, cert.SummaryFor(it))

	it.Delegation.Return()
	assert.Equal(t, ItemStatusReturned, cert.SummaryFor(it))
}

func TestRefreshStatistics_Rollup(t *testing.T) {
	cert := newTestCertification(t)
	now := time.Now()

	_, adaItems := addEntityWithItems(t, cert, "ada",
		ItemTypeException, ItemTypeBundle)
	_, bobItems := addEntityWithItems(t, cert, "bob", ItemTypeException)

	for _, it := range adaItems {
		it.Action = NewAction()
		it.Action.Approve(cert.ID, "owner", id.WorkItemID{}, "", now)
		it.MarkForRefresh()
	}
	require.NoError(t, bobItems[0].Delegate("owner", "delegate",
		id.WorkItemID{}, "", "", false, now))

	cert.RefreshStatistics(now)

	assert.Equal(t, 3, cert.Stats.TotalItems)
	assert.Equal(t, 2, cert.Stats.CompletedItems)
	assert.Equal(t, 1, cert.Stats.DelegatedItems)
	assert.Equal(t, 2, cert.Stats.TotalEntities)
	assert.Equal(t, 1, cert.Stats.CompletedEntities)
	assert.Equal(t, 66, cert.Stats.PercentComplete)
	assert.False(t, cert.Complete())

	for _, it := range adaItems {
		assert.False(t, it.FinishedDate.IsZero())
	}
	assert.True(t, bobItems[0].FinishedDate.IsZero())
}

func TestRefreshStatistics_FinishedDateClearedWhenReopened(t *testing.T) {
	cert := newTestCertification(t)
	now := time.Now()
	_, items := addEntityWithItems(t, cert, "ada", ItemTypeException)
	it := items[0]

	it.Action = NewAction()
	it.Action.Approve(cert.ID, "owner", id.WorkItemID{}, "", now)
	it.MarkForRefresh()
	cert.RefreshStatistics(now)
	require.False(t, it.FinishedDate.IsZero())

	it.Action.Clear(cert.ID, "owner", id.WorkItemID{}, "", now)
	it.MarkForRefresh()
	cert.RefreshStatistics(now)
	assert.True(t, it.FinishedDate.IsZero())
	assert.Equal(t, ItemStatusOpen, it.Summary)
}
