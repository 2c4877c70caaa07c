package world

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/core/event"
	"github.com/l1jgo/tilesim/internal/data"
	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
)

const speciesYAML = `
species:
  - name: hero
    kind: player
    marker: 2
    hp: 10
    gravity: true
    jump_speed: 150
  - name: crawler
    fsm: patroller
    marker: 10
    hp: 5
    patrol_span: 2
  - name: statue
    marker: 11
`

func newState(t *testing.T, rows ...[]grid.Code) *State {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "species.yaml")
	require.NoError(t, os.WriteFile(p, []byte(speciesYAML), 0o644))
	species, err := data.LoadSpeciesTable(p)
	require.NoError(t, err)

	s, err := New(species, motion.Metrics{StepsX: 8, StepsY: 8}, event.NewBus(), 1, zap.NewNop())
	require.NoError(t, err)
	if len(rows) > 0 {
		g, err := grid.New([][][]grid.Code{rows}, grid.DefaultObstruction)
		require.NoError(t, err)
		s.SetGrid(g)
	}
	return s
}

func TestSpawnConsumesMarker(t *testing.T) {
	s := newState(t,
		[]grid.Code{0, 10, 0, 10},
		[]grid.Code{100, 100, 100, 100},
	)
	id, ok := s.Spawn("crawler", 10)
	require.True(t, ok)
	assert.Equal(t, grid.Empty, s.Grid.At(0, 1), "marker cleared")
	assert.Equal(t, 10, s.Grid.At(0, 3), "second marker untouched")

	m, ok := s.Motion.Get(id)
	require.True(t, ok)
	assert.Equal(t, motion.At(grid.Cell{X: 1, Y: 0}), m.Pos)
	b, ok := s.Brains.Get(id)
	require.True(t, ok)
	assert.Equal(t, "patroller", b.Table)
	assert.Equal(t, []grid.Cell{{X: 0, Y: 0}, {X: 3, Y: 0}}, b.Waypoints)
	h, _ := s.Health.Get(id)
	assert.Equal(t, component.Health{HP: 5, Max: 5}, *h)

	_, ok = s.Spawn("crawler", 10)
	require.True(t, ok)
	_, ok = s.Spawn("crawler", 10)
	assert.False(t, ok, "no marker left")
	assert.Equal(t, 2, s.Actors.Len())

	_, ok = s.Spawn("dragon", 0)
	assert.False(t, ok)
}

func TestSpawnPlayerAndStatue(t *testing.T) {
	s := newState(t,
		[]grid.Code{2, 0, 11},
		[]grid.Code{100, 100, 100},
	)
	id, ok := s.SpawnPlayer("hero")
	require.True(t, ok)
	got, alive := s.Player()
	assert.True(t, alive)
	assert.Equal(t, id, got)
	p, ok := s.Players.Get(id)
	require.True(t, ok)
	assert.Equal(t, 150.0, p.JumpSpeed)
	assert.False(t, s.Brains.Has(id))

	statue, ok := s.Spawn("statue", 11)
	require.True(t, ok)
	assert.False(t, s.Brains.Has(statue), "species without fsm has no brain")
}

func TestDespawnIsDeferred(t *testing.T) {
	s := newState(t,
		[]grid.Code{10, 10, 10},
		[]grid.Code{100, 100, 100},
	)
	var ids []ecs.EntityID
	for i := 0; i < 3; i++ {
		id, ok := s.Spawn("crawler", 10)
		require.True(t, ok)
		ids = append(ids, id)
	}
	var despawned []event.EntityDespawned
	event.Subscribe(s.Bus, func(e event.EntityDespawned) { despawned = append(despawned, e) })

	var seen []ecs.EntityID
	s.EachActor(func(id ecs.EntityID, _ *component.Actor) {
		seen = append(seen, id)
		if id == ids[0] {
			s.Despawn(ids[1])
			s.Despawn(ids[1])
		}
	})
	assert.Equal(t, []ecs.EntityID{ids[0], ids[2]}, seen, "queued entity is skipped, not removed")
	assert.True(t, s.World.Alive(ids[1]))
	assert.False(t, s.Resolve(ids[1]))

	s.World.FlushDestroyQueue()
	assert.False(t, s.World.Alive(ids[1]))
	assert.Equal(t, 2, s.Actors.Len())

	s.Bus.SwapBuffers()
	s.Bus.DispatchAll()
	require.Len(t, despawned, 1)
	assert.Equal(t, "crawler", despawned[0].Species)
	assert.Equal(t, grid.Cell{X: 1, Y: 0}, despawned[0].Cell)
}

func TestSignalsVisibleNextTick(t *testing.T) {
	s := newState(t, []grid.Code{0})
	s.BeginTick()
	s.Signal("door")
	assert.False(t, s.Signals()["door"])
	s.BeginTick()
	assert.True(t, s.Signals()["door"])
	s.BeginTick()
	assert.False(t, s.Signals()["door"])
	assert.Equal(t, uint64(3), s.Tick())
}

func TestStockTracksEvents(t *testing.T) {
	s := newState(t, []grid.Code{0})
	stock := NewStock(2)
	stock.Attach(s.Bus)
	s.SetInventory(stock)

	event.Emit(s.Bus, event.ItemCollected{Code: 40})
	event.Emit(s.Bus, event.PlayerDied{})
	assert.Equal(t, 2, s.Lives(), "facts arrive after dispatch")
	s.Bus.SwapBuffers()
	s.Bus.DispatchAll()
	assert.Equal(t, 1, s.Lives())
	assert.Equal(t, 1, stock.Count(40))

	event.Emit(s.Bus, event.PlayerDied{})
	event.Emit(s.Bus, event.PlayerDied{})
	s.Bus.SwapBuffers()
	s.Bus.DispatchAll()
	assert.Zero(t, s.Lives(), "never negative")
}

func TestRequestExitFirstWins(t *testing.T) {
	s := newState(t, []grid.Code{0})
	_, ok := s.SessionExit()
	assert.False(t, ok)
	s.RequestExit("exit", 2)
	s.RequestExit("no_lives", 0)
	got, ok := s.SessionExit()
	require.True(t, ok)
	assert.Equal(t, event.SceneExit{Reason: "exit", Level: 2}, got)
}

func TestLoadSceneAndStages(t *testing.T) {
	dir := t.TempDir()
	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	write("s1.txt", "2,0,10,10\n100,100,100,100\n")
	write("s2.txt", "0,10,0,2\n100,100,100,100\n")
	write("broken.txt", "2,0,0,0\n100,100,100,100\n")
	write("levels.yaml", `
levels:
  - id: 1
    stages: [s1.txt, s2.txt]
    player: hero
    spawns: [{species: crawler}]
  - id: 2
    stages: [broken.txt]
    player: hero
    spawns: [{species: crawler}]
`)
	levels, err := data.LoadLevelList(filepath.Join(dir, "levels.yaml"), dir)
	require.NoError(t, err)

	s := newState(t)
	require.True(t, s.LoadScene(levels, levels.Get(1)))
	assert.Equal(t, 3, s.Actors.Len(), "player plus one crawler per marker")
	player, ok := s.Player()
	require.True(t, ok)
	first := s.Actors.IDs()[0]
	assert.Equal(t, player, first, "player spawns first")

	s.RequestStage(1)
	s.RequestStage(0)
	switched, ok := s.ApplyPendingStage()
	assert.True(t, switched)
	assert.True(t, ok)
	assert.Equal(t, 1, s.Grid.Current())
	assert.Equal(t, 2, s.Actors.Len(), "old crawlers cleared, one new one")
	again, alive := s.Player()
	require.True(t, alive)
	assert.Equal(t, player, again, "player survives stage changes")
	m, _ := s.Motion.Get(player)
	assert.Equal(t, grid.Cell{X: 3, Y: 0}, m.Pos.Cell())

	switched, _ = s.ApplyPendingStage()
	assert.False(t, switched)

	assert.False(t, s.LoadScene(levels, levels.Get(2)), "missing crawler marker")
	assert.False(t, s.LoadScene(levels, nil))
}

func TestSnapshot(t *testing.T) {
	s := newState(t,
		[]grid.Code{2, 10},
		[]grid.Code{100, 100},
	)
	player, ok := s.SpawnPlayer("hero")
	require.True(t, ok)
	crawler, ok := s.Spawn("crawler", 10)
	require.True(t, ok)
	b, _ := s.Brains.Get(crawler)
	b.State = "patrol"
	m, _ := s.Motion.Get(player)
	m.Pos.SubX = 4
	_, ok = s.SpawnProjectile(crawler, motion.Left, 3)
	require.True(t, ok)

	snap := s.Snapshot(16)
	require.Len(t, snap.Entities, 3)
	assert.Equal(t, "player", snap.Entities[0].Kind)
	assert.InDelta(t, 8.0, snap.Entities[0].X, 1e-9)
	assert.Equal(t, "idle", snap.Entities[0].Anim)
	assert.Equal(t, "enemy", snap.Entities[1].Kind)
	assert.Equal(t, "patrol", snap.Entities[1].Anim)
	assert.Equal(t, "projectile", snap.Entities[2].Kind)
	assert.Equal(t, "left", snap.Entities[2].Facing)
	assert.Equal(t, 1, snap.Lives)
}

func TestSetSpeciesRefreshesLiveActors(t *testing.T) {
	s := newState(t, []grid.Code{2, 0, 10, 0})
	player, ok := s.SpawnPlayer("hero")
	require.True(t, ok)
	crawler, ok := s.Spawn("crawler", 10)
	require.True(t, ok)
	a, _ := s.Actors.Get(crawler)
	require.Equal(t, grid.DefaultObstruction, a.Obstruction)

	p := filepath.Join(t.TempDir(), "species.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
species:
  - name: hero
    kind: player
    marker: 2
    hp: 10
    jump_speed: 200
  - name: crawler
    fsm: patroller
    marker: 10
    hp: 5
    obstruction: 600
    magnitude: 3
    footprint: {w: 2, h: 1}
`), 0o644))
	species, err := data.LoadSpeciesTable(p)
	require.NoError(t, err)
	require.NoError(t, s.SetSpecies(species))

	a, _ = s.Actors.Get(crawler)
	assert.Equal(t, 600, a.Obstruction)
	assert.Equal(t, 3, a.Magnitude)
	assert.Equal(t, motion.Footprint{W: 2, H: 1}, a.Footprint)
	assert.Equal(t, s.Strategies["crawler"].Obstruction, a.Obstruction, "stepper and pathfinder share one threshold")

	ha, _ := s.Actors.Get(player)
	assert.False(t, ha.Gravity)
	pl, _ := s.Players.Get(player)
	assert.Equal(t, 200.0, pl.JumpSpeed)
}

func TestOverlayStageWaitsForSpawnScan(t *testing.T) {
	g, err := grid.New([][][]grid.Code{
		{{2, 0, 0}},
		{{0, 10, 2}},
	}, grid.DefaultObstruction)
	require.NoError(t, err)
	s := newState(t)
	s.SetGrid(g)
	s.Level = &data.LevelInfo{ID: 1, Player: "hero", Spawns: []data.SpawnEntry{{Species: "crawler", Marker: 10}}}

	_, ok := s.SpawnPlayer("hero")
	require.True(t, ok)
	require.NoError(t, s.OverlayStage(1, [][]grid.Code{{150, 0, 0}}))
	assert.Equal(t, 10, g.Get(1, 0, 1), "held until the stage is entered")
	assert.ErrorIs(t, s.OverlayStage(1, [][]grid.Code{{0}, {0}}), grid.ErrDimensionMismatch)
	assert.ErrorIs(t, s.OverlayStage(4, [][]grid.Code{{0, 0, 0}}), grid.ErrLevelRange)

	require.True(t, s.EnterStage(1))
	assert.Equal(t, []grid.Code{150, 0, 0}, g.Snapshot(1)[0])
	assert.Equal(t, 2, s.Actors.Len(), "crawler spawned from the pristine marker")
	assert.Equal(t, []int{0, 1}, s.VisitedStages())
}
