package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVisitStatus(t *testing.T) {
	status, err := ParseVisitStatus("CHECKED_IN")
	require.NoError(t, err)
	assert.Equal(t, StatusCheckedIn, status)

	_, err = ParseVisitStatus("checked_in")
	assert.Error(t, err, "statuses are case sensitive")

	_, err = ParseVisitStatus("DELETED")
	assert.Error(t, err)
}

func TestCanTransitionTo(t *testing.T) {
	allowed := []struct{ from, to VisitStatus }{
		{StatusScheduled, StatusCheckedIn},
		{StatusCheckedIn, StatusInProgress},
		{StatusCheckedIn, StatusCheckedOut},
		{StatusInProgress, StatusCheckedOut},
		{StatusCheckedOut, StatusVerified},
		{StatusCheckedOut, StatusFlagged},
		{StatusFlagged, StatusCheckedIn},
		{StatusFlagged, StatusVerified},
		{StatusFlagged, StatusClosed},
	}
	for _, tc := range allowed {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s must be allowed", tc.from, tc.to)
	}

	denied := []struct{ from, to VisitStatus }{
		{StatusScheduled, StatusCheckedOut},
		{StatusScheduled, StatusVerified},
		{StatusCheckedIn, StatusVerified},
		{StatusCheckedOut, StatusCheckedIn},
		{StatusVerified, StatusCheckedIn},
		{StatusVerified, StatusFlagged},
		{StatusClosed, StatusCheckedIn},
		{StatusClosed, StatusVerified},
	}
	for _, tc := range denied {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s must be denied", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, StatusVerified.IsTerminal())
	assert.True(t, StatusClosed.IsTerminal())
	assert.False(t, StatusFlagged.IsTerminal())
	assert.False(t, StatusCheckedOut.IsTerminal())
}

func TestVisitIDTextRoundTrip(t *testing.T) {
	visitID := NewVisitID()

	text, err := visitID.MarshalText()
	require.NoError(t, err)

	var parsed VisitID
	require.NoError(t, parsed.UnmarshalText(text))
	assert.Equal(t, visitID, parsed)

	assert.Error(t, parsed.UnmarshalText([]byte("not-a-uuid")))
}
