package system

import (
	"time"

	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/core/ecs"
	coresys "github.com/l1jgo/tilesim/internal/core/system"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/world"
)

// ProjectileSystem flies projectiles through the same stepper as actors.
// A projectile that cannot move (a wall or the grid edge) or runs out of
// time is despawned; one that overlaps an actor of the other side damages
// it and is despawned. Phase 5 (Projectile).
type ProjectileSystem struct {
	world *world.State
}

func NewProjectileSystem(ws *world.State) *ProjectileSystem {
	return &ProjectileSystem{world: ws}
}

func (s *ProjectileSystem) Phase() coresys.Phase { return coresys.PhaseProjectile }

func (s *ProjectileSystem) Update(_ time.Duration) {
	ws := s.world
	if ws.Stepper == nil {
		return
	}
	ecs.Each2(ws.Projectiles, ws.Motion, func(id ecs.EntityID, p *component.Projectile, m *component.Motion) {
		if ws.World.Pending(id) {
			return
		}
		// 飛行時間耗盡
		p.TTL--
		if p.TTL <= 0 {
			ws.Despawn(id)
			return
		}
		next, moved := ws.Stepper.Step(m.Pos, p.Dir, p.Magnitude, motion.Footprint{}, p.Obstruction)
		if !moved {
			ws.Despawn(id) // 撞牆或飛出地圖
			return
		}
		m.Pos = next
		if victim, ok := s.hit(p, m.Pos); ok {
			applyDamage(ws, p.Owner, victim, p.Damage)
			ws.Despawn(id)
		}
	})
}

// hit finds the first live actor, in spawn order, that the projectile
// overlaps and that is not on the owner's side.
func (s *ProjectileSystem) hit(p *component.Projectile, pos motion.Position) (ecs.EntityID, bool) {
	ws := s.world
	ownerKind := component.KindEnemy
	if a, ok := ws.Actors.Get(p.Owner); ok {
		ownerKind = a.Kind
	}
	var victim ecs.EntityID
	ws.EachActor(func(aid ecs.EntityID, a *component.Actor) {
		// 只取第一個命中者，不打同陣營
		if !victim.IsZero() || aid == p.Owner || a.Kind == ownerKind {
			return
		}
		m, ok := ws.Motion.Get(aid)
		if !ok {
			return
		}
		if motion.Contact(pos, m.Pos, motion.Footprint{}, a.Footprint, ws.Metrics) {
			victim = aid
		}
	})
	return victim, !victim.IsZero()
}
