package ai

import (
	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/pathfind"
	"github.com/l1jgo/tilesim/internal/scripting"
)

// Sense is what an actor knows about the world this tick. It is built
// before the actor's FSM runs and never changes during the run.
type Sense struct {
	Self      ecs.EntityID
	Pos       motion.Position
	Footprint motion.Footprint
	Facing    motion.Direction
	Health    int
	MaxHealth int

	HasTarget       bool
	TargetPos       motion.Position
	TargetFootprint motion.Footprint

	Alarm   bool
	Signals map[string]bool
	Lives   int
	Tick    uint64
}

// Env is everything an FSM may ask of the world. Implementations must not
// despawn entities immediately.
type Env interface {
	FindPath(start, goal grid.Cell, s *Strategy) []grid.Cell
	Metrics() motion.Metrics
	Damage(src, tgt ecs.EntityID, amount int)
	Fire(self ecs.EntityID, dir motion.Direction, damage int)
	Teleport(self ecs.EntityID, cell grid.Cell) bool
	RaiseAlarm(self ecs.EntityID)
	Signal(name string)
	Transitioned(self ecs.EntityID, from, to string)
	Script() Scripter // nil when scripting is disabled
}

// Scripter runs lua conditions and actions. *scripting.Engine satisfies it.
type Scripter interface {
	Condition(fn string, ctx scripting.AIContext) bool
	Action(fn string, ctx scripting.AIContext) []scripting.Command
	ContactDamage(base int, ctx scripting.AIContext) int
}

var _ Scripter = (*scripting.Engine)(nil)

// Ctx is the per-actor, per-tick argument to conditions and actions.
type Ctx struct {
	Brain    *component.Brain
	Intent   *component.Intent
	Strategy *Strategy
	Sense    Sense
	Env      Env

	log  *zap.Logger
	next string // state requested by a scripted goto
}

func (c *Ctx) alarmed() bool { return c.Brain.Alarmed || c.Sense.Alarm }

// targetDistance 回傳與目標的歐氏格子距離。
func (c *Ctx) targetDistance() (float64, bool) {
	if !c.Sense.HasTarget {
		return 0, false
	}
	return motion.Distance(c.Sense.Pos, c.Sense.TargetPos), true
}

func (c *Ctx) contact() bool {
	if !c.Sense.HasTarget {
		return false
	}
	return motion.Contact(c.Sense.Pos, c.Sense.TargetPos, c.Sense.Footprint, c.Sense.TargetFootprint, c.Env.Metrics())
}

func (c *Ctx) hold() {
	c.Intent.DX, c.Intent.DY, c.Intent.Mag = 0, 0, 0
}

// settle walks back to the aligned corner of the current cell, one axis at
// a time, never overshooting.
func (c *Ctx) settle() {
	pos := c.Sense.Pos
	c.hold()
	switch {
	case pos.SubX != 0:
		c.Intent.DX = -1
		c.Intent.Mag = min(c.Strategy.Magnitude, pos.SubX)
	case pos.SubY != 0 && !c.Strategy.Gravity:
		c.Intent.DY = -1
		c.Intent.Mag = min(c.Strategy.Magnitude, pos.SubY)
	}
}

// moveToward plans a fresh path to goal and sets one direction of travel.
// An empty path holds position and reports false.
func (c *Ctx) moveToward(goal grid.Cell) bool {
	pos := c.Sense.Pos
	start := pos.Cell()
	if start == goal {
		c.settle()
		return true
	}
	path := c.Env.FindPath(start, goal, c.Strategy)
	dx, dy, _, ok := pathfind.NextDirection(path)
	if !ok {
		c.log.Debug("無路徑，原地等待",
			zap.Stringer("entity", c.Sense.Self),
			zap.Stringer("from", start),
			zap.Stringer("to", goal))
		c.hold()
		return false
	}
	// 轉向另一軸前須先對齊格子
	if (dx == 0 && pos.SubX != 0) || (dy == 0 && pos.SubY != 0 && !c.Strategy.Gravity) {
		c.settle()
		return true
	}
	if c.Strategy.Gravity {
		if dy < 0 && c.Strategy.JumpSpeed > 0 {
			c.Intent.Jump = true
		}
		dy = 0
	}
	c.Intent.DX, c.Intent.DY, c.Intent.Mag = dx, dy, 0
	if f := motion.Horizontal(dx); f != motion.None {
		c.Intent.Face = f
	}
	return true
}

// towardTarget 回傳朝向目標的水平方向，沒有目標時維持目前朝向。
func (c *Ctx) towardTarget() motion.Direction {
	if c.Sense.HasTarget {
		if d := motion.Horizontal(c.Sense.TargetPos.CellX - c.Sense.Pos.CellX); d != motion.None {
			return d
		}
		if d := motion.Vertical(c.Sense.TargetPos.CellY - c.Sense.Pos.CellY); d != motion.None {
			return d
		}
	}
	if c.Intent.Face != motion.None {
		return c.Intent.Face
	}
	if c.Sense.Facing != motion.None {
		return c.Sense.Facing
	}
	return motion.Right
}

func (c *Ctx) scriptContext() scripting.AIContext {
	s := c.Sense
	ctx := scripting.AIContext{
		Entity:    uint64(s.Self),
		Species:   c.Strategy.Species,
		State:     c.Brain.State,
		Counter:   c.Brain.Counter,
		Tick:      s.Tick,
		X:         s.Pos.CellX,
		Y:         s.Pos.CellY,
		HP:        s.Health,
		MaxHP:     s.MaxHealth,
		Cooldown:  c.Brain.Cooldown,
		Shots:     c.Brain.Shots,
		Alarmed:   c.alarmed(),
		Lives:     s.Lives,
		HasTarget: s.HasTarget,
		Scratch:   c.Brain.Scratch,
	}
	if s.HasTarget {
		ctx.TargetX, ctx.TargetY = s.TargetPos.CellX, s.TargetPos.CellY
		ctx.TargetDist, _ = c.targetDistance()
		ctx.Contact = c.contact()
	}
	return ctx
}
