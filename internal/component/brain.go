package component

import (
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/grid"
)

// Brain is the per-entity FSM state plus the scratch fields the shared
// state families use. Target is a handle resolved every tick.
type Brain struct {
	Table   string
	State   string
	Counter int

	Target ecs.EntityID

	Waypoints     []grid.Cell
	WaypointIndex int
	Home          grid.Cell

	Cooldown int
	Shots    int
	Alarmed  bool

	Anim    string
	Scratch map[string]int
}
