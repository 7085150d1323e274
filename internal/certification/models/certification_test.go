package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "attest/pkg/domain"
	dErrors "attest/pkg/domain-errors"
)

func newTestCertification(t *testing.T) *Certification {
	t.Helper()
	return NewCertification("Manager Access Review Q3", CertTypeManager,
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC))
}

func addEntityWithItems(t *testing.T, cert *Certification, identity string, types ...ItemType) (*Entity, []*Item) {
	t.Helper()
	e := NewEntity()
	e.Identity = identity
	e.TargetName = identity
	cert.AddEntity(e)

	items := make([]*Item, 0, len(types))
	for _, typ := range types {
		it := NewItem(e.ID, typ)
		require.NoError(t, cert.AddItem(it))
		items = append(items, it)
	}
	return e, items
}

func TestCertification_AddItemRequiresKnownEntity(t *testing.T) {
	cert := newTestCertification(t)
	orphan := NewItem(id.NewEntityID(), ItemTypeException)

	err := cert.AddItem(orphan)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func TestCertification_ItemsOnSameAccount(t *testing.T) {
	cert := newTestCertification(t)
	_, items := addEntityWithItems(t, cert, "ada",
		ItemTypeException, ItemTypeException, ItemTypeException, ItemTypeBundle)

	for _, it := range items[:3] {
		it.Application = "Active Directory"
		it.NativeIdentity = "CN=ada"
	}
	items[2].NativeIdentity = "CN=ada.admin"

	siblings := cert.ItemsOnSameAccount(items[0])
	require.Len(t, siblings, 1)
	assert.Equal(t, items[1].ID, siblings[0].ID)

	// Role items never group by account even with matching coordinates.
	items[3].Application = "Active Directory"
	items[3].NativeIdentity = "CN=ada"
	assert.Len(t, cert.ItemsOnSameAccount(items[0]), 1)
}

func TestCertification_UseRollingPhases(t *testing.T) {
	cert := newTestCertification(t)
	cert.PhaseConfig = []PhaseConfig{
		{Phase: PhaseActive, Enabled: true, Duration: 30 * 24 * time.Hour},
		{Phase: PhaseChallenge, Enabled: true, Duration: 10 * 24 * time.Hour},
	}

	assert.False(t, cert.UseRollingPhases())

	cert.ProcessRevokesImmediately = true
	assert.True(t, cert.UseRollingPhases())

	cert.ProcessRevokesImmediately = false
	cert.Continuous = true
	assert.True(t, cert.UseRollingPhases())
}

func TestCertification_EffectiveItemPhase(t *testing.T) {
	cert := newTestCertification(t)
	cert.Phase = PhaseActive
	_, items := addEntityWithItems(t, cert, "ada", ItemTypeException)

	assert.Equal(t, PhaseActive, cert.EffectiveItemPhase(items[0]))

	items[0].Phase = PhaseChallenge
	assert.Equal(t, PhaseChallenge, cert.EffectiveItemPhase(items[0]))
}

func TestCertification_MergeCommandDeduplicates(t *testing.T) {
	cert := newTestCertification(t)
	_, items := addEntityWithItems(t, cert, "ada",
		ItemTypeException, ItemTypeException)
	now := time.Now()

	first, err := NewReassignCommand("owner", "backup", now)
	require.NoError(t, err)
	first.AddItem(items[0].ID)
	cert.MergeCommand(first)

	second, err := NewReassignCommand("owner", "backup", now)
	require.NoError(t, err)
	second.AddItem(items[0].ID)
	second.AddItem(items[1].ID)
	cert.MergeCommand(second)

	require.Len(t, cert.Commands, 1)
	assert.ElementsMatch(t,
		[]id.ItemID{items[0].ID, items[1].ID}, cert.Commands[0].ItemIDs)

	// A different recipient queues separately.
	third, err := NewReassignCommand("owner", "other", now)
	require.NoError(t, err)
	third.AddItem(items[1].ID)
	cert.MergeCommand(third)
	assert.Len(t, cert.Commands, 2)
}

func TestCertification_BulkReassignRequiresRecipient(t *testing.T) {
	cert := newTestCertification(t)
	_, items := addEntityWithItems(t, cert, "ada", ItemTypeException)

	err := cert.BulkReassign("owner", "", items, nil, "", "", "", time.Now())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	assert.Empty(t, cert.Commands)
}

func TestCertification_BulkReassignParksUnpersistedItems(t *testing.T) {
	cert := newTestCertification(t)
	_, items := addEntityWithItems(t, cert, "ada",
		ItemTypeException, ItemTypeException)
	items[0].Persisted = true

	err := cert.BulkReassign("owner", "backup", items, nil,
		"Reassigned review", "", "", time.Now())
	require.NoError(t, err)

	require.Len(t, cert.Commands, 1)
	assert.Equal(t, []id.ItemID{items[0].ID}, cert.Commands[0].ItemIDs)
	require.Len(t, cert.UnpersistedCommands, 1)
	assert.Equal(t, []id.ItemID{items[1].ID}, cert.UnpersistedCommands[0].ItemIDs)

	// Flushing before the item persists is a programming error.
	err = cert.FlushUnpersistedCommands()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	items[1].Persisted = true
	require.NoError(t, cert.FlushUnpersistedCommands())
	assert.Nil(t, cert.UnpersistedCommands)
	require.Len(t, cert.Commands, 1)
	assert.ElementsMatch(t,
		[]id.ItemID{items[0].ID, items[1].ID}, cert.Commands[0].ItemIDs)
}
