package system

import (
	"time"

	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/core/event"
	coresys "github.com/l1jgo/tilesim/internal/core/system"
	"github.com/l1jgo/tilesim/internal/physics"
	"github.com/l1jgo/tilesim/internal/world"
)

// PhysicsSystem resolves the vertical axis of every gravity-bound actor.
// A jump intent is consumed here whether or not the jump starts.
// Phase 4 (Physics).
type PhysicsSystem struct {
	world  *world.State
	params physics.Params
}

func NewPhysicsSystem(ws *world.State, params physics.Params) *PhysicsSystem {
	return &PhysicsSystem{world: ws, params: params}
}

func (s *PhysicsSystem) Phase() coresys.Phase { return coresys.PhasePhysics }

func (s *PhysicsSystem) Update(dt time.Duration) {
	ws := s.world
	if ws.Stepper == nil {
		return
	}
	r := physics.NewResolver(ws.Stepper)
	secs := dt.Seconds()
	ws.EachActor(func(id ecs.EntityID, a *component.Actor) {
		in, _ := ws.Intents.Get(id)
		if !a.Gravity {
			// 不受重力的實體也要消耗跳躍意圖
			if in != nil {
				in.Jump = false
			}
			return
		}
		m, ok := ws.Motion.Get(id)
		if !ok {
			return
		}
		if in != nil && in.Jump {
			in.Jump = false
			if r.Jump(&m.Vertical, s.jumpSpeed(id, a)) {
				event.Emit(ws.Bus, event.Jumped{Entity: id})
			}
		}
		m.Pos = r.Update(m.Pos, &m.Vertical, secs, s.params, a.Footprint, a.Obstruction)
	})
}

func (s *PhysicsSystem) jumpSpeed(id ecs.EntityID, a *component.Actor) float64 {
	// 玩家自身設定優先於物種策略
	if p, ok := s.world.Players.Get(id); ok && p.JumpSpeed > 0 {
		return p.JumpSpeed
	}
	if st := s.world.Strategies[a.Species]; st != nil {
		return st.JumpSpeed
	}
	return 0
}
