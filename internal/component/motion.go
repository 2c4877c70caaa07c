package component

import (
	"github.com/l1jgo/tilesim/internal/motion"
	"github.com/l1jgo/tilesim/internal/physics"
)

// Motion is an actor's full motion state. The motion system owns Pos on the
// horizontal axis (or both axes for non-gravity actors); the physics system
// owns Vertical.
type Motion struct {
	Pos      motion.Position
	Vertical physics.Vertical
	Facing   motion.Direction
	VX       int // signed micro-steps moved horizontally last tick
}

// Intent is the movement an actor asked for this tick. It is written by the
// AI or input systems and consumed by the motion and physics systems.
type Intent struct {
	DX, DY int
	Mag    int // micro-steps this tick; 0 uses the species magnitude
	Jump   bool
	Face   motion.Direction
}
