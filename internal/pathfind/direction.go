package pathfind

import "github.com/l1jgo/tilesim/internal/grid"

// NextDirection extracts one direction to advance along path. The
// direction comes from the first two distinct cells; dest is extended along
// the path while each following cell continues in that direction, and stops
// at the first cell that turns. ok is false when the path holds fewer than
// two distinct cells, which callers treat as "hold position".
func NextDirection(path []grid.Cell) (dx, dy int, dest grid.Cell, ok bool) {
	if len(path) < 2 {
		return 0, 0, grid.Cell{}, false
	}
	head := path[0]
	i := 1
	for i < len(path) && path[i] == head {
		i++
	}
	if i == len(path) {
		return 0, 0, grid.Cell{}, false
	}
	dx = sign(path[i].X - head.X)
	dy = sign(path[i].Y - head.Y)
	dest = path[i]
	for j := i + 1; j < len(path); j++ {
		if path[j].X-dest.X != dx || path[j].Y-dest.Y != dy {
			break
		}
		dest = path[j]
	}
	return dx, dy, dest, true
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
