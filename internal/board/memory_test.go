package board_test

import (
	"context"
	"testing"

	"codeberg.org/mutker/plasmactl/internal/board"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDefaults(t *testing.T) {
	b := board.NewMemory()
	ctx := context.Background()

	running, err := b.ReadBool(ctx, board.FieldRunning)
	require.NoError(t, err)
	assert.False(t, running)

	ramp, err := b.ReadString(ctx, board.FieldVoltageRamp)
	require.NoError(t, err)
	assert.Empty(t, ramp)

	sweepTime, err := b.ReadFloat(ctx, board.FieldSweepTime)
	require.NoError(t, err)
	assert.Zero(t, sweepTime)
}

func TestMemoryReadBack(t *testing.T) {
	b := board.NewMemory()
	ctx := context.Background()

	require.NoError(t, b.WriteString(ctx, board.FieldVoltageRamp, "1,2,3"))
	require.NoError(t, b.WriteFloat(ctx, board.FieldSweepTime, 2.5))
	require.NoError(t, b.WriteBool(ctx, board.FieldClientDataReady, true))

	ramp, err := b.ReadString(ctx, board.FieldVoltageRamp)
	require.NoError(t, err)
	assert.Equal(t, "1,2,3", ramp)

	sweepTime, err := b.ReadFloat(ctx, board.FieldSweepTime)
	require.NoError(t, err)
	assert.Equal(t, 2.5, sweepTime)

	ready, err := b.ReadBool(ctx, board.FieldClientDataReady)
	require.NoError(t, err)
	assert.True(t, ready)
}

func TestMemoryFieldGroupsAreIndependent(t *testing.T) {
	b := board.NewMemory()
	ctx := context.Background()

	// Driver publishing samples must not disturb the client's request fields.
	require.NoError(t, b.WriteString(ctx, board.FieldVoltageRamp, "5,10"))
	require.NoError(t, b.WriteString(ctx, board.FieldCurrents, "-0.05"))
	require.NoError(t, b.WriteString(ctx, board.FieldCurrents, "-0.05,-0.1"))

	ramp, err := b.ReadString(ctx, board.FieldVoltageRamp)
	require.NoError(t, err)
	assert.Equal(t, "5,10", ramp)

	currents, err := b.ReadString(ctx, board.FieldCurrents)
	require.NoError(t, err)
	assert.Equal(t, "-0.05,-0.1", currents)
}
