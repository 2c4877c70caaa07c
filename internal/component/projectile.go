package component

import (
	"github.com/l1jgo/tilesim/internal/core/ecs"
	"github.com/l1jgo/tilesim/internal/grid"
	"github.com/l1jgo/tilesim/internal/motion"
)

// Projectile moves in a straight line at Magnitude micro-steps per tick
// until it hits a tile, an actor other than its owner, or runs out of TTL.
type Projectile struct {
	Owner       ecs.EntityID
	Dir         motion.Direction
	Magnitude   int
	Damage      int
	Obstruction grid.Code
	TTL         int
}
