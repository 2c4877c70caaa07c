package component

import (
	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
)

// Player marks the player-controlled actor and keeps the input state that
// persists between frames.
type Player struct {
	Held       motion.Direction
	JumpSpeed  float64
	Checkpoint grid.Cell
	Level      int
	Invuln     int // ticks of damage immunity left
}
