package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/data"
	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/pathfind"
	"github.com/l1jgo/tilesim/internal/scripting"
)

var metrics = motion.Metrics{StepsX: 8, StepsY: 8}

type hit struct {
	src, tgt ecs.EntityID
	amount   int
}

type fakeEnv struct {
	grid        *grid.Grid
	hits        []hit
	fired       []motion.Direction
	teleports   []grid.Cell
	alarms      int
	signals     []string
	transitions [][2]string
	script      Scripter
}

func (e *fakeEnv) FindPath(start, goal grid.Cell, s *Strategy) []grid.Cell {
	return pathfind.New(e.grid, s.PathOptions()).FindPath(start, goal, s.Heuristic, s.Weight)
}
func (e *fakeEnv) Metrics() motion.Metrics { return metrics }
func (e *fakeEnv) Damage(src, tgt ecs.EntityID, amount int) {
	e.hits = append(e.hits, hit{src, tgt, amount})
}
func (e *fakeEnv) Fire(_ ecs.EntityID, dir motion.Direction, _ int) { e.fired = append(e.fired, dir) }
func (e *fakeEnv) Teleport(_ ecs.EntityID, cell grid.Cell) bool {
	e.teleports = append(e.teleports, cell)
	return true
}
func (e *fakeEnv) RaiseAlarm(ecs.EntityID) { e.alarms++ }
func (e *fakeEnv) Signal(name string)      { e.signals = append(e.signals, name) }
func (e *fakeEnv) Transitioned(_ ecs.EntityID, from, to string) {
	e.transitions = append(e.transitions, [2]string{from, to})
}
func (e *fakeEnv) Script() Scripter { return e.script }

func corridor(t *testing.T, cols int) *grid.Grid {
	t.Helper()
	open := make([]grid.Code, cols)
	floor := make([]grid.Code, cols)
	for i := range floor {
		floor[i] = 100
	}
	g, err := grid.New([][][]grid.Code{{open, floor}}, grid.DefaultObstruction)
	require.NoError(t, err)
	return g
}

func engineFrom(t *testing.T, src string) *Engine {
	t.Helper()
	var f struct {
		FSM map[string]data.RawTable `yaml:"fsm"`
	}
	require.NoError(t, yaml.Unmarshal([]byte(src), &f))
	e, err := NewEngine(f.FSM, zap.NewNop())
	require.NoError(t, err)
	return e
}

func walker() *Strategy {
	return &Strategy{
		Species:        "crawler",
		SenseRadius:    4,
		AttackDamage:   3,
		AttackCooldown: 5,
		Heuristic:      pathfind.Euclidean,
		Weight:         1,
		Magnitude:      1,
		Obstruction:    100,
	}
}

func magnitude(in *component.Intent, s *Strategy) int {
	if in.Mag > 0 {
		return in.Mag
	}
	return s.Magnitude
}

const patrolFSM = `
fsm:
  patroller:
    initial: patrol
    states:
      patrol:
        on_enter: [{animate: walk}]
        while: [{patrol: true}]
        transitions:
          - to: idle
            when: {waypoint_reached_last: true}
      idle:
        on_enter: [{animate: rest}]
        while: [{hold: true}]
`

func TestPatrolReachesLastWaypointThenIdles(t *testing.T) {
	g := corridor(t, 12)
	env := &fakeEnv{grid: g}
	e := engineFrom(t, patrolFSM)
	s := walker()
	stepper := motion.NewStepper(g, metrics, nil)

	goal := grid.Cell{X: 10, Y: 0}
	b := &component.Brain{Table: "patroller", Waypoints: []grid.Cell{{X: 5, Y: 0}, goal}}
	in := &component.Intent{}
	pos := motion.At(grid.Cell{X: 5, Y: 0})

	limit := (10 - 5) * metrics.StepsX
	reached := 0
	for tick := 1; tick <= limit; tick++ {
		require.NoError(t, e.Tick(b, in, s, Sense{Self: 1, Pos: pos}, env))
		pos, _, _ = stepper.Advance(pos, in.DX, in.DY, magnitude(in, s), s.Footprint, s.Obstruction)
		if pos == motion.At(goal) {
			reached = tick
			break
		}
	}
	require.NotZero(t, reached, "never reached %v, at %v", goal, pos)
	assert.LessOrEqual(t, reached, limit)
	assert.Equal(t, "patrol", b.State)
	assert.Equal(t, "walk", b.Anim)

	require.NoError(t, e.Tick(b, in, s, Sense{Self: 1, Pos: pos}, env))
	assert.Equal(t, "idle", b.State)
	assert.Equal(t, "rest", b.Anim)
	assert.Equal(t, 1, b.Counter)
	assert.Zero(t, in.DX)
	assert.Equal(t, [][2]string{{"", "patrol"}, {"patrol", "idle"}}, env.transitions)
}

const combatFSM = `
fsm:
  brute:
    initial: pursue
    states:
      pursue:
        while: [{pursue: true}]
        transitions:
          - to: attack
            when: {in_contact: true}
          - to: flee
            when: {health_below: 15}
      attack:
        while: [{attack: true}]
        transitions:
          - to: pursue
            when: {not_in_contact: true}
          - to: flee
            when: {health_below: 15}
      flee:
        on_enter: [{animate: flee}]
        while: [{flee: true}]
`

func TestFleeTakesPriorityOverContact(t *testing.T) {
	env := &fakeEnv{grid: corridor(t, 12)}
	e := engineFrom(t, combatFSM)
	s := walker()
	b := &component.Brain{Table: "brute", Target: 2, Home: grid.Cell{X: 0, Y: 0}}
	in := &component.Intent{}

	far := Sense{Self: 1, Pos: motion.At(grid.Cell{X: 3}), Health: 20, MaxHealth: 20,
		HasTarget: true, TargetPos: motion.At(grid.Cell{X: 8})}
	require.NoError(t, e.Tick(b, in, s, far, env))
	assert.Equal(t, "pursue", b.State)
	assert.Equal(t, 1, in.DX, "pursuing to the right")

	// same tick: target in contact and health drops to 10
	near := far
	near.TargetPos = motion.At(grid.Cell{X: 3})
	near.Health = 10
	require.NoError(t, e.Tick(b, in, s, near, env))
	assert.Equal(t, "flee", b.State)
	assert.Equal(t, "flee", b.Anim)
	assert.Empty(t, env.hits)
}

func TestAttackAppliesDamageOnCooldown(t *testing.T) {
	env := &fakeEnv{grid: corridor(t, 12)}
	e := engineFrom(t, combatFSM)
	s := walker()
	b := &component.Brain{Table: "brute", Target: 2}
	in := &component.Intent{}
	sense := Sense{Self: 1, Pos: motion.At(grid.Cell{X: 3}), Health: 20,
		HasTarget: true, TargetPos: motion.Position{CellX: 3, SubX: 4}}

	for i := 0; i < 12; i++ {
		require.NoError(t, e.Tick(b, in, s, sense, env))
	}
	assert.Equal(t, "attack", b.State)
	// hits on entering attack at tick 1, then every AttackCooldown ticks: 6, 11
	assert.Equal(t, []hit{{1, 2, 3}, {1, 2, 3}, {1, 2, 3}}, env.hits)

	sense.TargetPos = motion.At(grid.Cell{X: 4})
	require.NoError(t, e.Tick(b, in, s, sense, env))
	assert.Equal(t, "pursue", b.State, "touching edges are not contact")
}

func TestHealthBetweenIsRanged(t *testing.T) {
	env := &fakeEnv{grid: corridor(t, 4)}
	e := engineFrom(t, `
fsm:
  ranged:
    initial: calm
    states:
      calm:
        transitions:
          - to: wounded
            when: {health_between: [35, 40]}
      wounded: {}
`)
	tests := []struct {
		health int
		want   string
	}{
		{41, "calm"},
		{40, "wounded"},
		{36, "wounded"},
		{35, "calm"},
		{10, "calm"},
	}
	for _, tt := range tests {
		b := &component.Brain{Table: "ranged"}
		require.NoError(t, e.Tick(b, &component.Intent{}, walker(), Sense{Health: tt.health}, env))
		assert.Equal(t, tt.want, b.State, "health %d", tt.health)
	}
}

func TestCounterResetsOnTransition(t *testing.T) {
	env := &fakeEnv{grid: corridor(t, 4)}
	e := engineFrom(t, `
fsm:
  blink:
    initial: a
    states:
      a:
        transitions: [{to: b, when: {counter_at_least: 3}}]
      b:
        transitions: [{to: a, when: {counter_at_least: 2}}]
`)
	b := &component.Brain{Table: "blink"}
	var states []string
	for i := 0; i < 8; i++ {
		require.NoError(t, e.Tick(b, &component.Intent{}, walker(), Sense{}, env))
		states = append(states, b.State)
	}
	assert.Equal(t, []string{"a", "a", "a", "b", "b", "a", "a", "a"}, states)
}

func TestAlarmWidensSensing(t *testing.T) {
	env := &fakeEnv{grid: corridor(t, 12)}
	e := engineFrom(t, `
fsm:
  guard:
    initial: idle
    states:
      idle:
        transitions:
          - to: chase
            when: {target_sensed: true}
          - to: raise
            when: {signal: intruder}
      raise:
        on_enter: [{alert: true}, {emit: alarm_bell}]
        transitions: [{to: idle, when: {always: true}}]
      chase:
        while: [{pursue: true}]
`)
	s := walker()
	s.AlarmedSenseRadius = 8
	sense := Sense{Self: 1, Pos: motion.At(grid.Cell{X: 0}), HasTarget: true, TargetPos: motion.At(grid.Cell{X: 6})}

	b := &component.Brain{Table: "guard"}
	require.NoError(t, e.Tick(b, &component.Intent{}, s, sense, env))
	assert.Equal(t, "idle", b.State, "6 cells is outside the calm radius")

	sense.Signals = map[string]bool{"intruder": true}
	require.NoError(t, e.Tick(b, &component.Intent{}, s, sense, env))
	assert.Equal(t, "raise", b.State)
	assert.True(t, b.Alarmed)
	assert.Equal(t, 1, env.alarms)
	assert.Equal(t, []string{"alarm_bell"}, env.signals)

	sense.Signals = nil
	require.NoError(t, e.Tick(b, &component.Intent{}, s, sense, env))
	require.NoError(t, e.Tick(b, &component.Intent{}, s, sense, env))
	assert.Equal(t, "chase", b.State)
}

func TestFireBurstAndReload(t *testing.T) {
	env := &fakeEnv{grid: corridor(t, 12)}
	e := engineFrom(t, `
fsm:
  turret:
    initial: shoot
    states:
      shoot:
        while: [{face_target: true}, {fire: true}]
        transitions: [{to: reload, when: {burst_spent: true}}]
      reload:
        on_enter: [{reload: true}, {cooldown: 4}]
        transitions: [{to: shoot, when: {cooldown_ready: true}}]
`)
	s := walker()
	s.BurstSize = 3
	s.FireCooldown = 1
	b := &component.Brain{Table: "turret"}
	in := &component.Intent{}
	sense := Sense{Self: 1, Pos: motion.At(grid.Cell{X: 6}), HasTarget: true, TargetPos: motion.At(grid.Cell{X: 2})}

	for i := 0; i < 6; i++ {
		require.NoError(t, e.Tick(b, in, s, sense, env))
	}
	// fires on ticks 1-3, reloading from tick 4
	assert.Equal(t, []motion.Direction{motion.Left, motion.Left, motion.Left}, env.fired)
	assert.Equal(t, "reload", b.State)
	assert.Zero(t, b.Shots)
	assert.Equal(t, motion.Left, in.Face)
}

func TestTeleportCyclesWaypoints(t *testing.T) {
	env := &fakeEnv{grid: corridor(t, 12)}
	e := engineFrom(t, `
fsm:
  blinker:
    initial: wait
    states:
      wait:
        transitions: [{to: blink, when: {counter_at_least: 1}}]
      blink:
        on_enter: [{teleport: next}]
        transitions: [{to: wait, when: {always: true}}]
`)
	wps := []grid.Cell{{X: 1}, {X: 5}, {X: 9}}
	b := &component.Brain{Table: "blinker", Waypoints: wps}
	for i := 0; i < 6; i++ {
		require.NoError(t, e.Tick(b, &component.Intent{}, walker(), Sense{}, env))
	}
	assert.Equal(t, []grid.Cell{{X: 5}, {X: 9}, {X: 1}}, env.teleports)
}

type fakeScript struct {
	cond bool
	cmds []scripting.Command
	seen []scripting.AIContext
}

func (f *fakeScript) Condition(_ string, ctx scripting.AIContext) bool {
	f.seen = append(f.seen, ctx)
	return f.cond
}
func (f *fakeScript) Action(_ string, ctx scripting.AIContext) []scripting.Command {
	f.seen = append(f.seen, ctx)
	return f.cmds
}
func (f *fakeScript) ContactDamage(base int, _ scripting.AIContext) int { return base * 10 }

func TestLuaHooks(t *testing.T) {
	script := &fakeScript{cmds: []scripting.Command{
		{Type: "move", DX: 5},
		{Type: "set", Name: "rage", Value: 3},
		{Type: "goto", State: "done"},
		{Type: "bogus"},
	}}
	env := &fakeEnv{grid: corridor(t, 12), script: script}
	e := engineFrom(t, `
fsm:
  scripted:
    initial: think
    states:
      think:
        while: [{lua: think}]
        transitions: [{to: gate, when: {lua: ready}}]
      gate: {}
      done: {}
`)
	b := &component.Brain{Table: "scripted"}
	in := &component.Intent{}
	require.NoError(t, e.Tick(b, in, walker(), Sense{Self: 7, Health: 9}, env))
	assert.Equal(t, "done", b.State)
	assert.Equal(t, 1, in.DX, "move is clamped to a unit step")
	assert.Equal(t, map[string]int{"rage": 3}, b.Scratch)
	require.NotEmpty(t, script.seen)
	assert.Equal(t, uint64(7), script.seen[0].Entity)
	assert.Equal(t, 9, script.seen[0].HP)
	assert.Equal(t, "crawler", script.seen[0].Species)

	script.cond = true
	b2 := &component.Brain{Table: "scripted"}
	require.NoError(t, e.Tick(b2, in, walker(), Sense{}, env))
	assert.Equal(t, "gate", b2.State, "transitions run before while actions")
}

func TestScriptedContactDamage(t *testing.T) {
	env := &fakeEnv{grid: corridor(t, 12), script: &fakeScript{}}
	e := engineFrom(t, `
fsm:
  biter:
    initial: bite
    states:
      bite:
        while: [{attack: 2}]
`)
	b := &component.Brain{Table: "biter", Target: 2}
	sense := Sense{Self: 1, HasTarget: true}
	require.NoError(t, e.Tick(b, &component.Intent{}, walker(), sense, env))
	assert.Equal(t, []hit{{1, 2, 20}}, env.hits)
}

func TestEmptyPathHolds(t *testing.T) {
	walled, err := grid.New([][][]grid.Code{{
		{0, 100, 0},
		{100, 100, 100},
	}}, grid.DefaultObstruction)
	require.NoError(t, err)
	env := &fakeEnv{grid: walled}
	e := engineFrom(t, combatFSM)
	b := &component.Brain{Table: "brute"}
	in := &component.Intent{DX: 1}
	sense := Sense{Pos: motion.At(grid.Cell{X: 0}), Health: 20, HasTarget: true, TargetPos: motion.At(grid.Cell{X: 2})}
	require.NoError(t, e.Tick(b, in, walker(), sense, env))
	assert.Equal(t, "pursue", b.State)
	assert.Zero(t, in.DX)
	assert.Zero(t, in.DY)
}

func TestSettleAlignsBeforeTurning(t *testing.T) {
	g, err := grid.New([][][]grid.Code{{
		{0, 0, 0},
		{0, 0, 0},
		{0, 0, 0},
	}}, grid.DefaultObstruction)
	require.NoError(t, err)
	env := &fakeEnv{grid: g}
	e := engineFrom(t, combatFSM)
	s := walker()
	s.Magnitude = 3
	b := &component.Brain{Table: "brute"}
	in := &component.Intent{}
	sense := Sense{Pos: motion.Position{CellX: 1, SubX: 2}, Health: 20,
		HasTarget: true, TargetPos: motion.At(grid.Cell{X: 1, Y: 2})}
	require.NoError(t, e.Tick(b, in, s, sense, env))
	assert.Equal(t, -1, in.DX)
	assert.Zero(t, in.DY)
	assert.Equal(t, 2, in.Mag, "never overshoots the cell corner")
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  data.RawTable
		want error
	}{
		{"unknown action", data.RawTable{Initial: "a", States: map[string]data.RawState{
			"a": {While: []map[string]any{{"dance": true}}},
		}}, ErrUnknownAction},
		{"unknown condition", data.RawTable{Initial: "a", States: map[string]data.RawState{
			"a": {Transitions: []data.RawTransition{{To: "a", When: map[string]any{"raining": true}}}},
		}}, ErrUnknownCondition},
		{"unknown target", data.RawTable{Initial: "a", States: map[string]data.RawState{
			"a": {Transitions: []data.RawTransition{{To: "z", When: map[string]any{"always": true}}}},
		}}, data.ErrUnknownState},
		{"unknown initial", data.RawTable{Initial: "z", States: map[string]data.RawState{"a": {}}}, data.ErrUnknownState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile("t", tt.raw, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	_, err := Compile("t", data.RawTable{Initial: "a", States: map[string]data.RawState{
		"a": {Transitions: []data.RawTransition{{To: "a", When: map[string]any{"health_between": []any{5}}}}},
	}}, nil)
	assert.Error(t, err, "bad argument")
}

func TestReloadKeepsOldTablesOnError(t *testing.T) {
	e := engineFrom(t, patrolFSM)
	err := e.Reload(map[string]data.RawTable{"x": {Initial: "nope"}})
	require.Error(t, err)
	_, ok := e.Table("patroller")
	assert.True(t, ok)

	require.NoError(t, e.Reload(map[string]data.RawTable{"other": {Initial: "s", States: map[string]data.RawState{"s": {}}}}))
	_, ok = e.Table("patroller")
	assert.False(t, ok)
	assert.Equal(t, 1, e.Count())

	b := &component.Brain{Table: "patroller"}
	assert.Error(t, e.Tick(b, &component.Intent{}, walker(), Sense{}, &fakeEnv{}))
}

func TestStaleStateReentersInitial(t *testing.T) {
	env := &fakeEnv{grid: corridor(t, 12)}
	e := engineFrom(t, patrolFSM)
	b := &component.Brain{Table: "patroller", State: "removed_by_reload"}
	require.NoError(t, e.Tick(b, &component.Intent{}, walker(), Sense{}, env))
	assert.Equal(t, "patrol", b.State)
}

func TestStrategyRoute(t *testing.T) {
	s, err := NewStrategy(&data.Species{Name: "x", Heuristic: "manhattan", PatrolSpan: 3})
	require.NoError(t, err)
	assert.Equal(t, pathfind.Manhattan, s.Heuristic)
	assert.Equal(t, 1, s.Magnitude)
	assert.Equal(t, grid.DefaultObstruction, s.Obstruction)
	assert.Equal(t, []grid.Cell{{X: 0, Y: 4}, {X: 5, Y: 4}}, s.Route(grid.Cell{X: 2, Y: 4}, 10))
	assert.Equal(t, []grid.Cell{{X: 6, Y: 1}, {X: 9, Y: 1}}, s.Route(grid.Cell{X: 9, Y: 1}, 10))

	s.Waypoints = []grid.Cell{{X: 1}}
	route := s.Route(grid.Cell{}, 10)
	route[0].X = 99
	assert.Equal(t, 1, s.Waypoints[0].X, "route is a copy")

	_, err = NewStrategy(&data.Species{Name: "y", Heuristic: "chebyshev"})
	assert.Error(t, err)
}
