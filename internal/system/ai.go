package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/ai"
	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/core/event"
	coresys "github.com/l1jgo/tilesim/internal/core/system"
	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/pathfind"
	"github.com/l1jgo/tilesim/internal/physics"
	"github.com/l1jgo/tilesim/internal/world"
)

// AISystem runs every brain-carrying actor's FSM once per tick, in spawn
// order. Go builds the sensed view and carries out world requests; the
// compiled tables (and any Lua hooks) make the decisions. Phase 2 (AI).
type AISystem struct {
	world  *world.State
	engine *ai.Engine
	script ai.Scripter
	log    *zap.Logger

	// 綁定目前地圖的尋路器，換場景時重建
	paths    *pathfind.Pathfinder
	pathGrid *grid.Grid
}

// NewAISystem wires the FSM engine. script may be nil.
func NewAISystem(ws *world.State, engine *ai.Engine, script ai.Scripter, log *zap.Logger) *AISystem {
	return &AISystem{world: ws, engine: engine, script: script, log: log}
}

func (s *AISystem) Phase() coresys.Phase { return coresys.PhaseAI }

// SetScript swaps the Lua engine after a hot reload.
func (s *AISystem) SetScript(script ai.Scripter) { s.script = script }

func (s *AISystem) Update(_ time.Duration) {
	ws := s.world
	if ws.Grid == nil {
		return
	}
	if s.pathGrid != ws.Grid {
		s.paths = pathfind.New(ws.Grid, pathfind.Options{})
		s.pathGrid = ws.Grid
	}

	var (
		target   ecs.EntityID
		targetOK bool
		tPos     motion.Position
		tFp      motion.Footprint
	)
	// 目標固定為玩家
	if id, alive := ws.Player(); alive {
		if m, ok := ws.Motion.Get(id); ok {
			target, targetOK, tPos = id, true, m.Pos
		}
		if a, ok := ws.Actors.Get(id); ok {
			tFp = a.Footprint
		}
	}

	signals := ws.Signals()
	lives := ws.Lives()
	ws.EachActor(func(id ecs.EntityID, a *component.Actor) {
		b, ok := ws.Brains.Get(id)
		if !ok {
			return
		}
		st := ws.Strategies[a.Species]
		m, _ := ws.Motion.Get(id)
		in, _ := ws.Intents.Get(id)
		if st == nil || m == nil || in == nil {
			return // 物種已被熱重載移除
		}
		sense := ai.Sense{
			Self:      id,
			Pos:       m.Pos,
			Footprint: a.Footprint,
			Facing:    m.Facing,
			Alarm:     ws.Alarm(),
			Signals:   signals,
			Lives:     lives,
			Tick:      ws.Tick(),
		}
		if h, ok := ws.Health.Get(id); ok {
			sense.Health, sense.MaxHealth = h.HP, h.Max
		}
		if targetOK {
			b.Target = target
			sense.HasTarget = true
			sense.TargetPos = tPos
			sense.TargetFootprint = tFp
		} else {
			b.Target = ecs.Nil
		}
		if err := s.engine.Tick(b, in, st, sense, s); err != nil {
			s.log.Warn("AI 更新失敗",
				zap.Stringer("entity", id), zap.String("species", a.Species), zap.Error(err))
		}
	})
}

// ---------- ai.Env ----------

func (s *AISystem) FindPath(start, goal grid.Cell, st *ai.Strategy) []grid.Cell {
	if s.paths == nil {
		return nil
	}
	return s.paths.With(st.PathOptions()).FindPath(start, goal, st.Heuristic, st.Weight)
}

func (s *AISystem) Metrics() motion.Metrics { return s.world.Metrics }

func (s *AISystem) Damage(src, tgt ecs.EntityID, amount int) {
	applyDamage(s.world, src, tgt, amount)
}

func (s *AISystem) Fire(self ecs.EntityID, dir motion.Direction, damage int) {
	if _, ok := s.world.SpawnProjectile(self, dir, damage); !ok {
		s.log.Debug("無法發射", zap.Stringer("entity", self), zap.Stringer("dir", dir))
	}
}

// Teleport moves self onto cell when the cell is inside the grid and not
// blocked for self's obstruction threshold.
func (s *AISystem) Teleport(self ecs.EntityID, cell grid.Cell) bool {
	ws := s.world
	m, ok := ws.Motion.Get(self)
	if !ok || !ws.Grid.InBounds(cell.Y, cell.X) {
		return false
	}
	// 以自身的阻擋門檻判斷落點
	threshold := ws.Grid.Obstruction()
	if a, ok := ws.Actors.Get(self); ok {
		threshold = a.Obstruction
	}
	if ws.Grid.Blocked(cell.Y, cell.X, threshold) {
		return false
	}
	m.Pos = motion.At(cell)
	m.Vertical = physics.Vertical{}
	return true
}

func (s *AISystem) RaiseAlarm(self ecs.EntityID) { s.world.RaiseAlarm(self) }

func (s *AISystem) Signal(name string) { s.world.Signal(name) }

func (s *AISystem) Transitioned(self ecs.EntityID, from, to string) {
	event.Emit(s.world.Bus, event.StateChanged{Entity: self, From: from, To: to})
}

func (s *AISystem) Script() ai.Scripter { return s.script }

var _ ai.Env = (*AISystem)(nil)
