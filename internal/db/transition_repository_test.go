package db_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/regionwatch/internal/db"
	"github.com/udisondev/regionwatch/internal/model"
	"github.com/udisondev/regionwatch/internal/region"
	"github.com/udisondev/regionwatch/internal/scheduler"
	"github.com/udisondev/regionwatch/internal/testutil"
)

func TestTransitionRepository(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	repo := db.NewTransitionRepository(pool)
	ctx := testutil.ContextWithTimeout(t, 30*time.Second)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	trs := []region.Transition{
		{Kind: region.KindEnter, Player: "p1", RegionID: "plaza", RegionName: "Plaza", World: "overworld", Reason: "JOIN_SERVER", At: at},
		{Kind: region.KindLeave, Player: "p1", RegionID: "plaza", RegionName: "Plaza", World: "overworld", Reason: "MOVE", At: at.Add(time.Second)},
		{Kind: region.KindEnter, Player: "p2", RegionID: "plaza", RegionName: "Plaza", World: "overworld", Reason: "MOVE", At: at},
	}
	require.NoError(t, repo.Insert(ctx, trs))
	require.NoError(t, repo.Insert(ctx, nil))

	rows, err := repo.ListByPlayer(ctx, "p1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, region.KindEnter, rows[0].Kind)
	assert.Equal(t, "JOIN_SERVER", rows[0].Reason)
	assert.Equal(t, region.KindLeave, rows[1].Kind)
	assert.True(t, rows[1].At.Equal(at.Add(time.Second)))

	latest, err := repo.ListByPlayer(ctx, "p1", 1)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, region.KindLeave, latest[0].Kind)

	enters, err := repo.CountByRegion(ctx, "plaza", region.KindEnter)
	require.NoError(t, err)
	assert.Equal(t, int64(2), enters)
}

func TestJournalPersistsManagerTransitions(t *testing.T) {
	pool := testutil.SetupTestDB(t)
	testutil.SilenceLogs(t)
	repo := db.NewTransitionRepository(pool)

	journal := db.NewTransitionJournal(repo, 64, 8, 10*time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- journal.Run(ctx) }()

	w := testutil.NewWorld(t, []string{"overworld"}, map[model.PlayerID]model.Location{
		"p1": model.NewLocation("overworld", 5, 5, 5),
	})
	sched := scheduler.NewManual()
	m := region.NewManager(sched, w, region.Options{SampleInterval: 1, ResolveDelay: 1, Sink: journal})
	require.NoError(t, m.Start())
	t.Cleanup(m.Close)

	plaza := region.NewBasicRegion("plaza", "Plaza", "overworld").
		Define(model.NewBounds(0, 0, 0, 10, 10, 10))
	require.NoError(t, m.Register(plaza))

	sched.TickN(2)
	_, err := w.Move("p1", 50, 5, 50)
	require.NoError(t, err)
	sched.TickN(2)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, int64(2), journal.Stats().Written)

	rows, err := repo.ListByPlayer(context.Background(), "p1", 10)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, region.KindEnter, rows[0].Kind)
	assert.Equal(t, region.KindLeave, rows[1].Kind)
	assert.Equal(t, "Plaza", rows[1].RegionName)
}
