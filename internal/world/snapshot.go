package world

import (
	"github.com/l1jgo/tilesim/internal/component"
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/physics"
)

// RenderEntity is one entity as renderers see it: a resolved world-space
// position plus the tags needed to pick a sprite.
type RenderEntity struct {
	ID      string  `json:"id"`
	Kind    string  `json:"kind"` // "player", "enemy" or "projectile"
	Species string  `json:"species,omitempty"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Facing  string  `json:"facing"`
	Anim    string  `json:"anim"`
	State   string  `json:"state,omitempty"`
	HP      int     `json:"hp,omitempty"`
}

// Snapshot is the per-tick render view of the simulation.
type Snapshot struct {
	Tick     uint64         `json:"tick"`
	Level    int            `json:"level"`
	Stage    int            `json:"stage"`
	Alarm    bool           `json:"alarm"`
	Lives    int            `json:"lives"`
	Entities []RenderEntity `json:"entities"`
}

// Snapshot builds the render view in spawn order. It never mutates state.
func (s *State) Snapshot(tileSize float64) Snapshot {
	snap := Snapshot{
		Tick:     s.tick,
		Alarm:    s.alarm,
		Lives:    s.Lives(),
		Entities: make([]RenderEntity, 0, s.Motion.Len()),
	}
	if s.Level != nil {
		snap.Level = s.Level.ID
	}
	if s.Grid != nil {
		snap.Stage = s.Grid.Current()
	}
	s.Motion.Each(func(id ecs.EntityID, m *component.Motion) {
		if s.World.Pending(id) {
			return
		}
		x, y := m.Pos.World(s.Metrics, tileSize)
		r := RenderEntity{ID: id.String(), X: x, Y: y, Facing: m.Facing.String()}
		switch {
		case s.Projectiles.Has(id):
			r.Kind, r.Anim = "projectile", "fly"
		case s.Players.Has(id):
			r.Kind, r.Anim = "player", playerAnim(m)
		default:
			r.Kind, r.Anim = "enemy", "idle"
			if b, ok := s.Brains.Get(id); ok {
				r.State = b.State
				r.Anim = b.Anim
				if r.Anim == "" {
					r.Anim = b.State
				}
			}
		}
		if a, ok := s.Actors.Get(id); ok {
			r.Species = a.Species
		}
		if h, ok := s.Health.Get(id); ok {
			r.HP = h.HP
		}
		snap.Entities = append(snap.Entities, r)
	})
	return snap
}

func playerAnim(m *component.Motion) string {
	switch m.Vertical.Status {
	case physics.Jump:
		return "jump"
	case physics.Fall:
		return "fall"
	}
	if m.VX != 0 {
		return "run"
	}
	return "idle"
}
