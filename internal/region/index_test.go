package region

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/regionwatch/internal/model"
)

func TestOrderedSetPriorityOrder(t *testing.T) {
	low := snap("low", cube(0, 0, 0, 10, 10, 10), 1, 1, 1)
	high := snap("high", cube(0, 0, 0, 10, 10, 10), 5, 5, 2)
	mid := snap("mid", cube(0, 0, 0, 10, 10, 10), 3, 3, 3)

	set := NewOrderedSet(PriorityOrdering, 3)
	require.True(t, set.Add(low))
	require.True(t, set.Add(high))
	require.True(t, set.Add(mid))
	assert.False(t, set.Add(mid), "duplicate add must be rejected")

	assert.Equal(t, 3, set.Len())
	assert.Equal(t, []string{"high", "mid", "low"}, ids(set.Slice(OrderEnter)))
	assert.Equal(t, []string{"low", "mid", "high"}, ids(set.Slice(OrderLeave)))

	require.True(t, set.Remove(mid))
	assert.False(t, set.Remove(mid))
	assert.False(t, set.Contains(mid))
	assert.Equal(t, []string{"high", "low"}, ids(set.Slice(OrderEnter)))
	assert.Equal(t, []string{"low", "high"}, ids(set.Slice(OrderLeave)))
}

func TestOrderedSetTiesFollowRegistration(t *testing.T) {
	a := snap("a", cube(0, 0, 0, 10, 10, 10), 1, 1, 1)
	b := snap("b", cube(0, 0, 0, 10, 10, 10), 1, 1, 2)
	c := snap("c", cube(0, 0, 0, 10, 10, 10), 1, 1, 3)

	for range 5 {
		set := NewOrderedSet(PriorityOrdering, 3)
		set.Add(c)
		set.Add(a)
		set.Add(b)
		assert.Equal(t, []string{"a", "b", "c"}, ids(set.Slice(OrderEnter)))
		assert.Equal(t, []string{"c", "b", "a"}, ids(set.Slice(OrderLeave)))
	}
}

func TestOrderedSetRemoveID(t *testing.T) {
	a := snap("a", cube(0, 0, 0, 1, 1, 1), 0, 0, 1)
	set := NewOrderedSet(PriorityOrdering, 1)
	set.Add(a)

	got, ok := set.RemoveID("a")
	require.True(t, ok)
	assert.Same(t, a, got)
	assert.Equal(t, 0, set.Len())

	_, ok = set.RemoveID("a")
	assert.False(t, ok)
}

func TestOrderedSetSliceIsCopy(t *testing.T) {
	set := NewOrderedSet(PriorityOrdering, 1)
	set.Add(snap("a", cube(0, 0, 0, 1, 1, 1), 0, 0, 1))

	out := set.Slice(OrderEnter)
	out[0] = nil
	assert.NotNil(t, set.Slice(OrderEnter)[0])
}

func TestEmptySetIsReadOnly(t *testing.T) {
	assert.False(t, emptySet.Add(snap("a", cube(0, 0, 0, 1, 1, 1), 0, 0, 1)))
	assert.Equal(t, 0, emptySet.Len())
}

func TestVolumeOrdering(t *testing.T) {
	small := snap("small", cube(0, 0, 0, 2, 2, 2), 0, 0, 1)
	large := snap("large", cube(0, 0, 0, 20, 20, 20), 0, 0, 2)

	set := NewOrderedSet(VolumeOrdering, 2)
	set.Add(large)
	set.Add(small)

	assert.Equal(t, []string{"small", "large"}, ids(set.Slice(OrderEnter)))
	assert.Equal(t, []string{"large", "small"}, ids(set.Slice(OrderLeave)))
}

func TestParseOrdering(t *testing.T) {
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"", "priority", false},
		{"priority", "priority", false},
		{"volume", "volume", false},
		{"random", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOrdering(tt.name)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Name())
		})
	}
}

func TestCellOf(t *testing.T) {
	tests := []struct {
		name string
		x, z float64
		want CellKey
	}{
		{"origin", 0, 0, CellKey{World: testWorld, X: 0, Z: 0}},
		{"last block of cell 0", 15.9, 15.9, CellKey{World: testWorld, X: 0, Z: 0}},
		{"first block of cell 1", 16, 16, CellKey{World: testWorld, X: 1, Z: 1}},
		{"negative rounds down", -0.5, -16, CellKey{World: testWorld, X: -1, Z: -1}},
		{"negative far", -17, -33, CellKey{World: testWorld, X: -2, Z: -3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CellOf(at(tt.x, 0, tt.z), DefaultCellSize))
		})
	}
}

func TestCellIndexRegisterAllCells(t *testing.T) {
	ci := NewCellIndex(16, PriorityOrdering)
	s := snap("r", cube(0, 0, 0, 31, 64, 31), 0, 0, 1)

	require.True(t, ci.Register(s))
	assert.False(t, ci.Register(s), "second register is a no-op")
	assert.Equal(t, 4, ci.CellCount(IndexAll))
	assert.Equal(t, 4, ci.CellCount(IndexListeners))

	for _, key := range []CellKey{
		{World: testWorld, X: 0, Z: 0},
		{World: testWorld, X: 0, Z: 1},
		{World: testWorld, X: 1, Z: 0},
		{World: testWorld, X: 1, Z: 1},
	} {
		assert.True(t, ci.RegionsInCell(key, IndexAll).Contains(s), "cell %v", key)
	}
	assert.Equal(t, 0, ci.RegionsInCell(CellKey{World: testWorld, X: 2, Z: 2}, IndexAll).Len())

	assert.True(t, ci.HasListeners(testWorld))
	assert.Equal(t, []string{testWorld}, ci.ListenerWorlds())

	require.True(t, ci.Unregister(s))
	assert.False(t, ci.Unregister(s))
	assert.Equal(t, 0, ci.CellCount(IndexAll))
	assert.Equal(t, 0, ci.CellCount(IndexListeners))
	assert.False(t, ci.HasListeners(testWorld))
	assert.Empty(t, ci.ListenerWorlds())
}

func TestCellIndexPassiveRegion(t *testing.T) {
	ci := NewCellIndex(16, PriorityOrdering)
	s := snap("passive", cube(0, 0, 0, 5, 5, 5), 0, 0, 1)
	s.listener = false

	ci.Register(s)

	assert.Equal(t, 1, ci.CellCount(IndexAll))
	assert.Equal(t, 0, ci.CellCount(IndexListeners))
	assert.False(t, ci.HasListeners(testWorld))
}

func TestCellIndexListenerWorldCounter(t *testing.T) {
	ci := NewCellIndex(16, PriorityOrdering)
	a := snap("a", cube(0, 0, 0, 5, 5, 5), 0, 0, 1)
	b := snap("b", cube(100, 0, 100, 120, 5, 120), 0, 0, 2)

	ci.Register(a)
	ci.Register(b)
	ci.Unregister(a)
	assert.True(t, ci.HasListeners(testWorld), "b still listens")

	ci.Unregister(b)
	assert.False(t, ci.HasListeners(testWorld))
}

func TestResolverCellBoundary(t *testing.T) {
	ci := NewCellIndex(16, PriorityOrdering)
	s := snap("r", cube(0, 0, 0, 31, 255, 31), 0, 0, 1)
	ci.Register(s)
	r := NewResolver(ci)

	assert.Equal(t, []string{"r"}, ids(r.Resolve(at(31, 10, 31), IndexAll, OrderEnter)))
	assert.Empty(t, r.Resolve(at(32, 10, 32), IndexAll, OrderEnter))

	other := snap("other", cube(30, 0, 30, 40, 255, 40), 0, 0, 2)
	ci.Register(other)
	assert.Equal(t, []string{"other"}, ids(r.Resolve(at(32, 10, 32), IndexAll, OrderEnter)))
}

func TestResolverFiltersByBoundsAndWorld(t *testing.T) {
	ci := NewCellIndex(16, PriorityOrdering)
	outer := snap("outer", cube(0, 0, 0, 15, 100, 15), 1, 1, 1)
	inner := snap("inner", cube(4, 0, 4, 8, 10, 8), 5, 5, 2)
	ci.Register(outer)
	ci.Register(inner)
	r := NewResolver(ci)

	assert.Equal(t, []string{"inner", "outer"}, ids(r.Resolve(at(5, 5, 5), IndexListeners, OrderEnter)))
	assert.Equal(t, []string{"outer", "inner"}, ids(r.Resolve(at(5, 5, 5), IndexListeners, OrderLeave)))
	assert.Equal(t, []string{"outer"}, ids(r.Resolve(at(5, 50, 5), IndexListeners, OrderEnter)))
	assert.Empty(t, r.Resolve(model.NewLocation("nether", 5, 5, 5), IndexAll, OrderEnter))
}

func TestCellSpan(t *testing.T) {
	ci := NewCellIndex(16, PriorityOrdering)

	tests := []struct {
		name   string
		bounds model.Bounds
		want   int64
		wantOK bool
	}{
		{"single cell", cube(0, 0, 0, 15, 10, 15), 1, true},
		{"two by two", cube(0, 0, 0, 31, 10, 31), 4, true},
		{"straddles origin", cube(-1, 0, -1, 1, 10, 1), 4, true},
		{"int32 edge", cube(0, 0, 0, float64(math.MaxInt32)*16, 10, 10), 1 << 31, true},
		{"whole cell space", cube(math.MinInt32*16, 0, math.MinInt32*16, math.MaxInt32*16, 10, math.MaxInt32*16), math.MaxInt64, true},
		{"beyond int32", cube(0, 0, 0, 1e11, 10, 10), 0, false},
		{"beyond int32 negative", cube(-1e11, 0, 0, 0, 10, 10), 0, false},
		{"nan", cube(math.NaN(), 0, 0, 10, 10, 10), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ci.CellSpan(tt.bounds)
			if ok != tt.wantOK {
				t.Fatalf("CellSpan ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("CellSpan = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestCellIndexIgnoresBoundsBeyondCellSpace(t *testing.T) {
	ci := NewCellIndex(16, PriorityOrdering)
	huge := snap("huge", cube(0, 0, 0, 1e11, 10, 10), 1, 1, 1)

	if ci.Register(huge) {
		t.Fatal("Register of bounds beyond the cell space must index nothing")
	}
	if n := ci.CellCount(IndexAll); n != 0 {
		t.Errorf("CellCount = %d, want 0", n)
	}
	if ci.HasListeners(testWorld) {
		t.Error("listener counter must not count an unindexed region")
	}
	if ci.Unregister(huge) {
		t.Error("Unregister of an unindexed region must report false")
	}
}

func TestManagerRejectsOversizedRegions(t *testing.T) {
	world := newFakeWorld()
	log := &eventLog{}
	m, _ := newTestManager(t, world, Options{MaxRegionCells: 4})

	tests := []struct {
		name    string
		bounds  model.Bounds
		wantReg bool
	}{
		{"beyond int32 cells", cube(0, 0, 0, 1e11, 10, 10), false},
		{"huge but in range", cube(0, 0, 0, 1e10, 10, 1e10), false},
		{"over budget", cube(0, 0, 0, 40, 10, 40), false},
		{"within budget", cube(0, 0, 0, 31, 10, 31), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRegion(log, "r-"+tt.name, tt.bounds, 1)
			if err := m.Register(r); err != nil {
				t.Fatalf("Register: %v", err)
			}
			if _, ok := m.Region(r.ID()); ok != tt.wantReg {
				t.Fatalf("registered = %v, want %v", ok, tt.wantReg)
			}
		})
	}

	if n := m.RegionCount(); n != 1 {
		t.Errorf("RegionCount = %d, want 1", n)
	}
	got := ids(m.Regions(at(5, 5, 5)))
	if len(got) != 1 || got[0] != "r-within budget" {
		t.Errorf("Regions(5,5,5) = %v, want [r-within budget]", got)
	}
}
