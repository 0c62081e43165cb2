package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/clambin/thermostat-control/internal/controller"
	"github.com/clambin/thermostat-control/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	s, err := store.New(path)
	require.NoError(t, err)

	ctx := context.Background()
	state, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, controller.State{Power: true}, state)

	level, calculated := 22.5, 21.0
	require.NoError(t, s.Save(ctx, controller.State{Level: &level, Calculated: &calculated, Power: false}))
	require.NoError(t, s.Close())

	// state survives a restart
	s, err = store.New(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	state, err = s.Load(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.Level)
	require.NotNil(t, state.Calculated)
	assert.Equal(t, 22.5, *state.Level)
	assert.Equal(t, 21.0, *state.Calculated)
	assert.False(t, state.Power)
	assert.True(t, state.Overridden())

	require.NoError(t, s.Save(ctx, controller.State{Level: &level, Power: true}))
	state, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, state.Calculated)
	assert.True(t, state.Power)
}

func TestSQLiteStore_Memory(t *testing.T) {
	s, err := store.New(":memory:")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	require.NoError(t, s.Save(ctx, controller.State{Power: true}))
	state, err := s.Load(ctx)
	require.NoError(t, err)
	assert.True(t, state.Power)
	assert.Nil(t, state.Level)
}
