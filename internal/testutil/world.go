package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/udisondev/regionwatch/internal/model"
	"github.com/udisondev/regionwatch/internal/world"
)

// NewWorld creates a world with the given worlds loaded and players joined.
// players maps player id to spawn location.
func NewWorld(t testing.TB, worlds []string, players map[model.PlayerID]model.Location) *world.World {
	t.Helper()

	w := world.New(worlds...)
	for id, loc := range players {
		require.NoError(t, w.Join(id, string(id), loc))
	}
	return w
}

// SilenceLogs discards slog output until the test ends.
func SilenceLogs(t testing.TB) {
	t.Helper()

	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
	t.Cleanup(func() {
		slog.SetDefault(prev)
	})
}
