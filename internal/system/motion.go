package system

import (
	"time"

	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/core/ecs"
	coresys "github.com/l1jgo/tilesim/internal/core/system"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/world"
)

// MotionSystem applies each actor's intent through the sub-tile stepper:
// horizontal first, then vertical. Gravity-bound actors only move
// horizontally here; their vertical axis belongs to PhysicsSystem.
// Phase 3 (Motion).
type MotionSystem struct {
	world *world.State
}

func NewMotionSystem(ws *world.State) *MotionSystem {
	return &MotionSystem{world: ws}
}

func (s *MotionSystem) Phase() coresys.Phase { return coresys.PhaseMotion }

func (s *MotionSystem) Update(_ time.Duration) {
	ws := s.world
	if ws.Stepper == nil {
		return
	}
	ecs.Each3(ws.Actors, ws.Motion, ws.Intents, func(id ecs.EntityID, a *component.Actor, m *component.Motion, in *component.Intent) {
		if ws.World.Pending(id) {
			return
		}
		dx, dy := in.DX, in.DY
		if a.Gravity {
			dy = 0 // 垂直軸交給物理系統
		}
		mag := in.Mag
		if mag <= 0 {
			mag = a.Magnitude
		}

		// 朝向：明確指定優先，其次水平，最後垂直
		switch {
		case in.Face.Valid():
			m.Facing = in.Face
		case motion.Horizontal(dx) != motion.None:
			m.Facing = motion.Horizontal(dx)
		case motion.Vertical(dy) != motion.None:
			m.Facing = motion.Vertical(dy)
		}

		before := microX(m.Pos, ws.Metrics)
		m.Pos, _, _ = ws.Stepper.Advance(m.Pos, dx, dy, mag, a.Footprint, a.Obstruction)
		m.VX = sign(microX(m.Pos, ws.Metrics) - before)
	})
}

func microX(p motion.Position, m motion.Metrics) int { return p.CellX*m.StepsX + p.SubX }

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
