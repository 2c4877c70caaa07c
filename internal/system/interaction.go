package system

import (
	"time"

	"go.uber.org/zap"

	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/core/event"
	coresys "github.com/l1jgo/tilesim/internal/core/system"
	"github.com/l1jgo/tilesim/internal/data"
	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/physics"
	"github.com/l1jgo/tilesim/internal/world"
)

// InteractionSystem applies tile effects under each actor and then settles
// deaths. Phase 6 (Interaction).
type InteractionSystem struct {
	world   *world.State
	effects *data.EffectTable
	log     *zap.Logger
}

func NewInteractionSystem(ws *world.State, effects *data.EffectTable, log *zap.Logger) *InteractionSystem {
	return &InteractionSystem{world: ws, effects: effects, log: log}
}

func (s *InteractionSystem) Phase() coresys.Phase { return coresys.PhaseInteraction }

// SetEffects swaps the effect table after a hot reload.
func (s *InteractionSystem) SetEffects(t *data.EffectTable) { s.effects = t }

func (s *InteractionSystem) Update(_ time.Duration) {
	ws := s.world
	if ws.Grid == nil {
		return
	}
	// 玩家無敵時間遞減
	ws.Players.Each(func(_ ecs.EntityID, p *component.Player) {
		if p.Invuln > 0 {
			p.Invuln--
		}
	})
	ws.EachActor(func(id ecs.EntityID, a *component.Actor) {
		if m, ok := ws.Motion.Get(id); ok {
			s.applyTile(id, a, m.Pos.Cell())
		}
	})
	ws.EachActor(s.settleDeath)
}

func (s *InteractionSystem) applyTile(id ecs.EntityID, a *component.Actor, cell grid.Cell) {
	ws := s.world
	code := ws.Grid.At(cell.Y, cell.X)
	if code == grid.Empty {
		return
	}
	eff := s.effects.Get(code)
	if eff == nil {
		if code > grid.CosmeticMax && code < ws.Grid.Obstruction() {
			s.log.Debug("未知地格代碼", zap.Int("code", code), zap.Stringer("cell", cell))
		}
		return
	}
	isPlayer := a.Kind == component.KindPlayer
	if eff.PlayerOnly && !isPlayer {
		return // 僅玩家觸發
	}

	switch eff.Kind {
	case data.EffectHazard:
		applyDamage(ws, ecs.Nil, id, eff.Amount)
	case data.EffectHeal:
		// 已死亡或滿血時不補血
		h, ok := ws.Health.Get(id)
		if !ok || h.HP <= 0 || h.HP >= h.Max {
			return
		}
		gained := min(eff.Amount, h.Max-h.HP)
		h.HP += gained
		event.Emit(ws.Bus, event.Healed{Target: id, Amount: gained, Health: h.HP})
	case data.EffectSwitch:
		n := ws.Grid.ReplaceRange(eff.From, eff.To, span(eff.Rows), span(eff.Cols))
		ws.Grid.Put(cell.Y, cell.X, eff.Toggled)
		event.Emit(ws.Bus, event.SwitchToggled{By: id, Cell: cell, From: eff.From, To: eff.To, Replaced: n})
	case data.EffectCheckpoint:
		p, ok := ws.Players.Get(id)
		if !ok || (p.Checkpoint == cell && p.Level == ws.Grid.Current()) {
			return // 站在原存檔點不重複觸發
		}
		p.Checkpoint, p.Level = cell, ws.Grid.Current()
		event.Emit(ws.Bus, event.CheckpointReached{By: id, Level: p.Level, Cell: cell})
	case data.EffectAlarm:
		ws.RaiseAlarm(id)
	case data.EffectPickup:
		if !isPlayer {
			return
		}
		ws.Grid.Put(cell.Y, cell.X, grid.Empty)
		event.Emit(ws.Bus, event.ItemCollected{By: id, Cell: cell, Code: code})
	case data.EffectExit:
		if !isPlayer {
			return
		}
		// 還有下一階段就換階段，否則離開本關
		if next := ws.Grid.Current() + 1; next < ws.Grid.Levels() {
			ws.RequestStage(next)
			return
		}
		nextLevel := 0
		if ws.Level != nil {
			nextLevel = ws.Level.Next
		}
		ws.RequestExit("exit", nextLevel)
	case data.EffectMarker:
	}
}

// settleDeath despawns enemies at zero health, with an optional drop, and
// returns a dead player to the last checkpoint while lives remain.
func (s *InteractionSystem) settleDeath(id ecs.EntityID, a *component.Actor) {
	ws := s.world
	h, ok := ws.Health.Get(id)
	if !ok || h.HP > 0 {
		return
	}
	m, _ := ws.Motion.Get(id)
	var cell grid.Cell
	if m != nil {
		cell = m.Pos.Cell()
	}

	if a.Kind != component.KindPlayer {
		s.drop(id, a, cell)
		ws.Despawn(id)
		return
	}

	event.Emit(ws.Bus, event.PlayerDied{Entity: id, Cell: cell})
	// 庫存在下一 tick 才收到死亡事件，這裡先用目前的生命數判斷
	if ws.Lives() <= 1 {
		s.log.Info("玩家生命耗盡", zap.Stringer("entity", id))
		ws.Despawn(id)
		ws.RequestExit("no_lives", 0)
		return
	}
	h.HP = h.Max
	if p, ok := ws.Players.Get(id); ok && m != nil {
		m.Pos = motion.At(p.Checkpoint)
		m.Vertical = physics.Vertical{}
		p.Held = motion.None
		p.Invuln = PlayerInvulnTicks
	}
	s.log.Debug("玩家復活", zap.Stringer("entity", id), zap.Int("lives_left", ws.Lives()-1))
}

func (s *InteractionSystem) drop(id ecs.EntityID, a *component.Actor, cell grid.Cell) {
	ws := s.world
	sp := ws.Species.Get(a.Species)
	if sp == nil || len(sp.Drops) == 0 {
		return
	}
	code, ok := data.PickDrop(sp.Drops, func() int { return ws.Roll(100) })
	if !ok || ws.Grid.At(cell.Y, cell.X) != grid.Empty {
		return // 地上已有東西，不掉落
	}
	ws.Grid.Put(cell.Y, cell.X, code)
	event.Emit(ws.Bus, event.ItemDropped{By: id, Cell: cell, Code: code})
}

func span(r *[2]int) *grid.Span {
	if r == nil {
		return nil
	}
	return &grid.Span{Lo: r[0], Hi: r[1]}
}
