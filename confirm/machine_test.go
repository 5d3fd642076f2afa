package confirm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineCheck(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMachine(NewMemoryStore(0))
	tr := pendingFor("alice", 3090.4).Trade

	state, p, err := m.Check(ctx, "alice", tr, false)
	require.NoError(t, err)
	assert.Equal(t, Committed, state)
	assert.Empty(t, p.ID)

	_, ok, err := m.Pending(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	state, p, err = m.Check(ctx, "alice", tr, true)
	require.NoError(t, err)
	assert.Equal(t, DuplicateDetected, state)
	assert.Len(t, p.ID, 26)

	held, ok, err := m.Pending(ctx, "alice")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p.ID, held.ID)
}

func TestMachineResolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		decision Decision
		want     State
	}{
		{Yes, Committed},
		{No, Discarded},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(string(tt.decision), func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			m := NewMachine(NewMemoryStore(0))
			parked, err := m.Park(ctx, "alice", pendingFor("alice", 3090.4).Trade)
			require.NoError(t, err)

			state, p, err := m.Resolve(ctx, "alice", tt.decision)
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
			assert.Equal(t, parked.ID, p.ID)

			// The slot is cleared either way.
			_, _, err = m.Resolve(ctx, "alice", tt.decision)
			assert.ErrorIs(t, err, ErrNoPending)
		})
	}
}

func TestMachineParkReplaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMachine(NewMemoryStore(0))
	_, err := m.Park(ctx, "alice", pendingFor("alice", 1).Trade)
	require.NoError(t, err)
	second, err := m.Park(ctx, "alice", pendingFor("alice", 2).Trade)
	require.NoError(t, err)

	_, p, err := m.Resolve(ctx, "alice", Yes)
	require.NoError(t, err)
	assert.Equal(t, second.ID, p.ID)
	assert.InDelta(t, 2.0, p.Trade.Entry, 1e-9)
}

func TestMachineResolveIsPerRequester(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	m := NewMachine(NewMemoryStore(0))
	_, err := m.Park(ctx, "alice", pendingFor("alice", 1).Trade)
	require.NoError(t, err)

	_, _, err = m.Resolve(ctx, "bob", Yes)
	assert.ErrorIs(t, err, ErrNoPending)

	_, ok, err := m.Pending(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
}
