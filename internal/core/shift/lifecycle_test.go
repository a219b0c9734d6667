package shift

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from    Status
		trigger Trigger
		want    Status
		wantErr bool
	}{
		{StatusPlanned, TriggerFirstCheckIn, StatusInProgress, false},
		{StatusPlanned, TriggerCancel, StatusCancelled, false},
		{StatusPlanned, TriggerComplete, StatusPlanned, true},
		{StatusInProgress, TriggerCancel, StatusCancelled, false},
		{StatusInProgress, TriggerComplete, StatusCompleted, false},
		{StatusInProgress, TriggerFirstCheckIn, StatusInProgress, true},
		{StatusCompleted, TriggerCancel, StatusCompleted, true},
		{StatusCancelled, TriggerComplete, StatusCancelled, true},
		{StatusCancelled, TriggerFirstCheckIn, StatusCancelled, true},
	}

	for _, tt := range tests {
		got, err := Transition(tt.from, tt.trigger)
		if tt.wantErr {
			require.ErrorIs(t, err, ErrInvalidState, "%s on %s", tt.trigger, tt.from)
		} else {
			require.NoError(t, err, "%s on %s", tt.trigger, tt.from)
		}
		assert.Equal(t, tt.want, got, "%s on %s", tt.trigger, tt.from)
	}
}

func TestStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, StatusPlanned.IsTerminal())
	assert.False(t, StatusInProgress.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, Status("UNKNOWN").IsValid())
}
