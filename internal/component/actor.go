package component

import (
	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
)

// Kind separates the player from AI-driven actors.
type Kind int

const (
	KindEnemy Kind = iota
	KindPlayer
)

// Actor stores the static identity of a spawned entity.
// Pure data, zero methods; all mutations happen in systems.
type Actor struct {
	Species     string
	Kind        Kind
	Spawn       grid.Cell
	Footprint   motion.Footprint
	Obstruction grid.Code
	Magnitude   int  // micro-steps per tick
	Gravity     bool // vertical motion resolved by physics
}

// Health is current and maximum hit points.
type Health struct {
	HP  int
	Max int
}
