package world

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/ai"
	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/core/event"
	"github.com/l1jgo/tilesim/internal/data"
	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
)

// Inventory is the read-back of inventory-derived facts the core gates on.
type Inventory interface {
	Lives() int
}

// State owns the entity table, the tile grid and the session facts.
// Accessed only from the game loop goroutine; no locks.
//
// Entity iteration order is spawn order: the player first, then enemies in
// the order their markers are found scanning the grid row by row. Every
// per-tick pass walks the stores in that order.
type State struct {
	World   *ecs.World
	Grid    *grid.Grid
	Bus     *event.Bus
	Stepper *motion.Stepper
	Metrics motion.Metrics

	Actors      *ecs.PtrComponentStore[component.Actor]
	Motion      *ecs.PtrComponentStore[component.Motion]
	Health      *ecs.PtrComponentStore[component.Health]
	Brains      *ecs.PtrComponentStore[component.Brain]
	Intents     *ecs.PtrComponentStore[component.Intent]
	Projectiles *ecs.PtrComponentStore[component.Projectile]
	Players     *ecs.PtrComponentStore[component.Player]

	Species    *data.SpeciesTable
	Strategies map[string]*ai.Strategy
	Level      *data.LevelInfo

	player      ecs.EntityID
	alarm       bool
	signals     map[string]bool // visible this tick
	nextSignals map[string]bool // raised this tick, visible next tick
	tick        uint64
	inv         Inventory
	exit        *event.SceneExit
	rng         *rand.Rand

	pendingStage int
	visited      map[int]bool          // 本場景進入過的階段
	overlays     map[int][][]grid.Code // 進入階段後才覆寫的存檔地圖

	log *zap.Logger
}

// New 建立空白狀態，並為每個物種建立策略。
func New(species *data.SpeciesTable, m motion.Metrics, bus *event.Bus, seed int64, log *zap.Logger) (*State, error) {
	if log == nil {
		log = zap.NewNop()
	}
	w := ecs.NewWorld()
	s := &State{
		World:       w,
		Bus:         bus,
		Metrics:     m,
		Actors:      ecs.NewStore[component.Actor](w.Registry()),
		Motion:      ecs.NewStore[component.Motion](w.Registry()),
		Health:      ecs.NewStore[component.Health](w.Registry()),
		Brains:      ecs.NewStore[component.Brain](w.Registry()),
		Intents:     ecs.NewStore[component.Intent](w.Registry()),
		Projectiles: ecs.NewStore[component.Projectile](w.Registry()),
		Players:     ecs.NewStore[component.Player](w.Registry()),
		signals:     map[string]bool{},
		nextSignals: map[string]bool{},
		rng:         rand.New(rand.NewSource(seed)),
		log:         log,

		pendingStage: -1,
		visited:      map[int]bool{},
		overlays:     map[int][][]grid.Code{},
	}
	if err := s.SetSpecies(species); err != nil {
		return nil, err
	}
	return s, nil
}

// SetSpecies replaces the species table and rebuilds strategies. Live
// actors have their copied movement tuning refreshed so the stepper and
// the pathfinder agree. An actor whose species vanished keeps its values.
func (s *State) SetSpecies(species *data.SpeciesTable) error {
	strategies := make(map[string]*ai.Strategy, species.Count())
	for _, name := range species.Names() {
		st, err := ai.NewStrategy(species.Get(name))
		if err != nil {
			return err
		}
		strategies[name] = st
	}
	s.Species = species
	s.Strategies = strategies

	s.Actors.Each(func(id ecs.EntityID, a *component.Actor) {
		st, ok := strategies[a.Species]
		if !ok {
			s.log.Warn("熱重載後物種不存在", zap.Stringer("entity", id), zap.String("species", a.Species))
			return
		}
		sp := species.Get(a.Species)
		a.Footprint = st.Footprint
		a.Obstruction = st.Obstruction
		a.Magnitude = st.Magnitude
		a.Gravity = sp.Gravity
		if p, ok := s.Players.Get(id); ok {
			p.JumpSpeed = sp.JumpSpeed
		}
	})
	return nil
}

// SetGrid installs a level grid and a stepper bound to it. Visited stages
// and pending overlays belong to the previous grid and are dropped.
func (s *State) SetGrid(g *grid.Grid) {
	s.Grid = g
	clear(s.visited)
	clear(s.overlays)
	s.visited[g.Current()] = true
	s.Stepper = motion.NewStepper(g, s.Metrics, s.log)
	s.Metrics = s.Stepper.Metrics()
}

func (s *State) Log() *zap.Logger { return s.log }

// Tick 回傳已完成的 BeginTick 次數。
func (s *State) Tick() uint64 { return s.tick }

// BeginTick 遞增 tick 計數，並公開上一 tick 發出的信號。
func (s *State) BeginTick() {
	s.tick++
	s.signals, s.nextSignals = s.nextSignals, s.signals
	clear(s.nextSignals)
}

// Signals 回傳上一 tick 發出的信號。
func (s *State) Signals() map[string]bool { return s.signals }

// Signal 發出具名地圖信號，下一 tick 才可見。
func (s *State) Signal(name string) { s.nextSignals[name] = true }

func (s *State) Alarm() bool { return s.alarm }

// RaiseAlarm 觸發世界警報（只觸發一次）並發出 AlarmRaised。
func (s *State) RaiseAlarm(by ecs.EntityID) {
	if s.alarm {
		return // 警報只觸發一次
	}
	s.alarm = true
	var cell grid.Cell
	if m, ok := s.Motion.Get(by); ok {
		cell = m.Pos.Cell()
	}
	event.Emit(s.Bus, event.AlarmRaised{By: by, Cell: cell})
	s.log.Info("警報觸發", zap.Stringer("by", by), zap.Stringer("cell", cell))
}

// ClearAlarm 在進入階段時清除警報。
func (s *State) ClearAlarm() { s.alarm = false }

// SetInventory 設定庫存回讀介面。
func (s *State) SetInventory(inv Inventory) { s.inv = inv }

// Lives 回傳剩餘生命數；沒有庫存時永遠不會耗盡。
func (s *State) Lives() int {
	if s.inv == nil {
		return 1
	}
	return s.inv.Lives()
}

// RequestExit 記錄本場景必須結束，以第一次請求為準。
func (s *State) RequestExit(reason string, level int) {
	if s.exit != nil {
		return // 以第一次請求為準
	}
	s.exit = &event.SceneExit{Reason: reason, Level: level}
	event.Emit(s.Bus, *s.exit)
	s.log.Info("離開場景", zap.String("reason", reason), zap.Int("next_level", level))
}

// SessionExit 回傳待處理的離開場景請求。
func (s *State) SessionExit() (event.SceneExit, bool) {
	if s.exit == nil {
		return event.SceneExit{}, false
	}
	return *s.exit, true
}

// Roll 以場景種子回傳 [0, n) 的確定性亂數。
func (s *State) Roll(n int) int {
	if n <= 0 {
		return 0
	}
	return s.rng.Intn(n)
}

// Player 回傳玩家實體（玩家存活時）。
func (s *State) Player() (ecs.EntityID, bool) {
	if !s.Resolve(s.player) {
		return ecs.Nil, false
	}
	return s.player, true
}

// Resolve reports whether a handle still names a live entity that is not
// queued for destruction. Handles are re-resolved every tick.
func (s *State) Resolve(id ecs.EntityID) bool {
	return !id.IsZero() && s.World.Alive(id) && !s.World.Pending(id)
}

// EachActor 依生成順序走訪所有存活的角色。
func (s *State) EachActor(fn func(id ecs.EntityID, a *component.Actor)) {
	s.Actors.Each(func(id ecs.EntityID, a *component.Actor) {
		if s.World.Pending(id) {
			return // 本 tick 已排入銷毀
		}
		fn(id, a)
	})
}

// Despawn 將實體排入 tick 結束時的銷毀佇列。
func (s *State) Despawn(id ecs.EntityID) {
	if !s.Resolve(id) {
		return
	}
	var species string
	var cell grid.Cell
	if a, ok := s.Actors.Get(id); ok {
		species = a.Species
	}
	if m, ok := s.Motion.Get(id); ok {
		cell = m.Pos.Cell()
	}
	s.World.MarkForDestruction(id)
	event.Emit(s.Bus, event.EntityDespawned{Entity: id, Species: species, Cell: cell})
}
