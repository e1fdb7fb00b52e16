package world

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/regionwatch/internal/model"
)

func TestWorldJoinAndQuit(t *testing.T) {
	w := New("overworld")

	require.NoError(t, w.Join("p1", "Alice", model.NewLocation("overworld", 1, 2, 3)))
	assert.ErrorIs(t, w.Join("p1", "Alice", model.NewLocation("overworld", 1, 2, 3)), ErrPlayerExists)
	assert.ErrorIs(t, w.Join("p2", "Bob", model.NewLocation("nether", 0, 0, 0)), ErrUnknownWorld)

	assert.True(t, w.IsConnected("p1"))
	name, ok := w.Name("p1")
	require.True(t, ok)
	assert.Equal(t, "Alice", name)
	assert.Equal(t, 1, w.PlayerCount())

	assert.True(t, w.Quit("p1"))
	assert.False(t, w.Quit("p1"))
	assert.False(t, w.IsConnected("p1"))
	assert.Empty(t, w.Worlds())
}

func TestWorldSnapshotViews(t *testing.T) {
	w := New("overworld", "nether")
	require.NoError(t, w.Join("b", "B", model.NewLocation("overworld", 0, 0, 0)))
	require.NoError(t, w.Join("a", "A", model.NewLocation("overworld", 5, 0, 5)))
	require.NoError(t, w.Join("c", "C", model.NewLocation("nether", 1, 1, 1)))

	assert.Equal(t, []string{"nether", "overworld"}, w.Worlds())
	assert.Equal(t, []model.PlayerID{"a", "b"}, w.PlayersIn("overworld"))
	assert.Equal(t, []model.PlayerID{"c"}, w.PlayersIn("nether"))
	assert.Empty(t, w.PlayersIn("end"))

	loc, err := w.Move("a", 7, 8, 9)
	require.NoError(t, err)
	assert.Equal(t, model.NewLocation("overworld", 7, 8, 9), loc)

	got, ok := w.PositionOf("a")
	require.True(t, ok)
	assert.Equal(t, loc, got)

	_, err = w.Move("ghost", 0, 0, 0)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestWorldDeathHidesPosition(t *testing.T) {
	w := New("overworld")
	require.NoError(t, w.Join("p1", "P", model.NewLocation("overworld", 0, 0, 0)))

	require.NoError(t, w.Kill("p1"))
	assert.False(t, w.IsAlive("p1"))
	_, ok := w.PositionOf("p1")
	assert.False(t, ok)
	assert.True(t, w.IsConnected("p1"))

	require.NoError(t, w.Respawn("p1", model.NewLocation("overworld", 3, 3, 3)))
	assert.True(t, w.IsAlive("p1"))
	loc, ok := w.PositionOf("p1")
	require.True(t, ok)
	assert.Equal(t, 3.0, loc.X)
}

func TestWorldTeleportAndUnload(t *testing.T) {
	w := New("overworld")
	require.NoError(t, w.Join("p1", "P", model.NewLocation("overworld", 0, 0, 0)))

	assert.ErrorIs(t, w.Teleport("p1", model.NewLocation("nether", 0, 0, 0)), ErrUnknownWorld)

	assert.False(t, w.IsLoaded("nether"))
	w.LoadWorld("nether")
	assert.True(t, w.IsLoaded("nether"))
	require.NoError(t, w.Teleport("p1", model.NewLocation("nether", 1, 1, 1)))
	assert.Equal(t, []string{"nether"}, w.Worlds())

	w.UnloadWorld("nether")
	assert.False(t, w.IsLoaded("nether"))
	assert.Empty(t, w.Worlds())
	assert.Empty(t, w.PlayersIn("nether"))
	_, ok := w.PositionOf("p1")
	assert.False(t, ok, "players in an unloaded world have no position")
	assert.True(t, w.IsConnected("p1"))
}
