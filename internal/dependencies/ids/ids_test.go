package ids

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoundIDIsMonotonic(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	a := NewRoundID(now)
	b := NewRoundID(now)

	assert.Less(t, string(a), string(b))
}

func TestRoundTime(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	got, ok := RoundTime(NewRoundID(now))
	require.True(t, ok)
	assert.True(t, now.Equal(got))

	_, ok = RoundTime("not-a-ulid")
	assert.False(t, ok)
}

func TestNewPeerID(t *testing.T) {
	id := NewPeerID()

	_, err := uuid.Parse(string(id))
	assert.NoError(t, err)
	assert.NotEqual(t, id, NewPeerID())
}
