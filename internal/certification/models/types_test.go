package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "attest/pkg/domain-errors"
)

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		requested     ActionStatus
		wantStatus    ActionStatus
		wantRevokeAll bool
	}{
		{StatusApproved, StatusApproved, false},
		{StatusMitigated, StatusMitigated, false},
		{StatusRemediated, StatusRemediated, false},
		{StatusAcknowledged, StatusAcknowledged, false},
		{StatusCleared, StatusCleared, false},
		{StatusRevokeAccount, StatusRemediated, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.requested), func(t *testing.T) {
			status, revokeAll, err := NormalizeStatus(tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantRevokeAll, revokeAll)
		})
	}
}

func TestNormalizeStatus_Unknown(t *testing.T) {
	_, _, err := NormalizeStatus(ActionStatus("escalated"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
}

func TestItemStatus_IsComplete(t *testing.T) {
	assert.True(t, ItemStatusComplete.IsComplete())
	assert.True(t, ItemStatusChallenged.IsComplete())
	assert.False(t, ItemStatusOpen.IsComplete())
	assert.False(t, ItemStatusDelegated.IsComplete())
	assert.False(t, ItemStatusWaitingReview.IsComplete())
	assert.False(t, ItemStatusReturned.IsComplete())
}
