package system

import (
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/core/event"
	"github.com/l1jgo/tilesim/internal/world"
)

// PlayerInvulnTicks is how long the player ignores damage after a hit.
const PlayerInvulnTicks = 30

// applyDamage removes health from tgt and emits DamageApplied. Deaths are
// resolved later in the interaction phase. Returns false when the hit did
// not land.
func applyDamage(ws *world.State, src, tgt ecs.EntityID, amount int) bool {
	if amount <= 0 || !ws.Resolve(tgt) {
		return false
	}
	h, ok := ws.Health.Get(tgt)
	if !ok || h.HP <= 0 {
		return false
	}
	if p, ok := ws.Players.Get(tgt); ok {
		if p.Invuln > 0 {
			return false // 無敵中
		}
		p.Invuln = PlayerInvulnTicks
	}
	h.HP = max(0, h.HP-amount)
	event.Emit(ws.Bus, event.DamageApplied{Source: src, Target: tgt, Amount: amount, Health: h.HP})
	return true
}
